package event

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/wms/backend/internal/domain/shared"
)

type namedHandler struct {
	name  string
	types []string
}

func (h *namedHandler) Handle(context.Context, shared.DomainEvent) error { return nil }
func (h *namedHandler) EventTypes() []string                             { return h.types }

func TestHandlerRegistry_TypedSubscription(t *testing.T) {
	registry := NewHandlerRegistry()
	a := &namedHandler{name: "a"}
	b := &namedHandler{name: "b"}

	registry.Register(a, "StockItemCreated")
	registry.Register(b, "StockItemCreated", "LocationAssigned")

	assert.Len(t, registry.HandlersFor("StockItemCreated"), 2)
	assert.Len(t, registry.HandlersFor("LocationAssigned"), 1)
	assert.Empty(t, registry.HandlersFor("LocationVacated"))
}

func TestHandlerRegistry_WildcardReceivesEverything(t *testing.T) {
	registry := NewHandlerRegistry()
	typed := &namedHandler{name: "typed"}
	wildcard := &namedHandler{name: "wildcard"}

	registry.Register(typed, "StockItemCreated")
	registry.Register(wildcard)

	handlers := registry.HandlersFor("StockItemCreated")
	assert.Len(t, handlers, 2)

	// Wildcard handlers come last so typed handlers run first.
	assert.Same(t, typed, handlers[0].(*namedHandler))
	assert.Same(t, wildcard, handlers[1].(*namedHandler))

	assert.Len(t, registry.HandlersFor("NeverSubscribed"), 1)
}

func TestHandlerRegistry_Unregister(t *testing.T) {
	registry := NewHandlerRegistry()
	a := &namedHandler{name: "a"}
	wildcard := &namedHandler{name: "w"}

	registry.Register(a, "StockItemCreated", "LocationAssigned")
	registry.Register(wildcard)

	registry.Unregister(a)
	registry.Unregister(wildcard)

	assert.Empty(t, registry.HandlersFor("StockItemCreated"))
	assert.Empty(t, registry.HandlersFor("LocationAssigned"))
	assert.Empty(t, registry.SubscribedTypes())
}
