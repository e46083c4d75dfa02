package event

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/wms/backend/internal/domain/shared"
)

// DecodeFunc decodes a JSON payload into a concrete domain event
type DecodeFunc func(data []byte) (shared.DomainEvent, error)

// EventSerializer maps event type discriminators to decoders. The decoder
// set is closed and explicit: every variant is registered at construction
// time, never discovered through runtime introspection.
type EventSerializer struct {
	mu       sync.RWMutex
	decoders map[string]DecodeFunc
}

// NewEventSerializer creates a new event serializer
func NewEventSerializer() *EventSerializer {
	return &EventSerializer{
		decoders: make(map[string]DecodeFunc),
	}
}

// Register binds an event type discriminator to the concrete event E.
func Register[E any, PE interface {
	*E
	shared.DomainEvent
}](s *EventSerializer, eventType string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.decoders[eventType] = func(data []byte) (shared.DomainEvent, error) {
		e := PE(new(E))
		if err := json.Unmarshal(data, e); err != nil {
			return nil, fmt.Errorf("failed to unmarshal %s: %w", eventType, err)
		}
		return e, nil
	}
}

// Serialize serializes a domain event to JSON bytes
func (s *EventSerializer) Serialize(event shared.DomainEvent) ([]byte, error) {
	return json.Marshal(event)
}

// Deserialize decodes JSON bytes into the concrete event for eventType.
// Unknown types return ErrEventTypeUnrecognized so consumers can skip them.
func (s *EventSerializer) Deserialize(eventType string, data []byte) (shared.DomainEvent, error) {
	s.mu.RLock()
	decode, ok := s.decoders[eventType]
	s.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", shared.ErrEventTypeUnrecognized, eventType)
	}
	return decode(data)
}

// IsRegistered checks if an event type is registered
func (s *EventSerializer) IsRegistered(eventType string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.decoders[eventType]
	return ok
}

// RegisteredTypes returns all registered event types
func (s *EventSerializer) RegisteredTypes() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	types := make([]string, 0, len(s.decoders))
	for t := range s.decoders {
		types = append(types, t)
	}
	return types
}
