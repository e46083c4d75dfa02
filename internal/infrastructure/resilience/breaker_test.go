package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var errDownstream = errors.New("downstream failed")

func testBreaker(t *testing.T) (*CircuitBreaker, *time.Time) {
	t.Helper()
	b := NewCircuitBreaker("test", BreakerSettings{
		WindowSize:       30 * time.Second,
		FailureThreshold: 0.5,
		MinimumCalls:     4,
		OpenDuration:     10 * time.Second,
		HalfOpenProbes:   2,
	}, zap.NewNop())

	clock := time.Now()
	b.now = func() time.Time { return clock }
	return b, &clock
}

func fail(context.Context) error    { return errDownstream }
func succeed(context.Context) error { return nil }

func TestCircuitBreaker_StaysClosedBelowMinimumCalls(t *testing.T) {
	b, _ := testBreaker(t)

	for i := 0; i < 3; i++ {
		_ = b.Execute(context.Background(), fail)
	}

	assert.Equal(t, StateClosed, b.State())
}

func TestCircuitBreaker_OpensOnFailureRate(t *testing.T) {
	b, _ := testBreaker(t)

	_ = b.Execute(context.Background(), succeed)
	_ = b.Execute(context.Background(), succeed)
	_ = b.Execute(context.Background(), fail)
	_ = b.Execute(context.Background(), fail)

	assert.Equal(t, StateOpen, b.State())

	err := b.Execute(context.Background(), succeed)
	assert.ErrorIs(t, err, ErrCircuitOpen)
}

func TestCircuitBreaker_OldOutcomesFallOutOfWindow(t *testing.T) {
	b, clock := testBreaker(t)

	_ = b.Execute(context.Background(), fail)
	_ = b.Execute(context.Background(), fail)
	_ = b.Execute(context.Background(), fail)

	// The window slides past the early failures.
	*clock = clock.Add(time.Minute)

	_ = b.Execute(context.Background(), succeed)
	assert.Equal(t, StateClosed, b.State())
}

func TestCircuitBreaker_HalfOpenAfterCooldown(t *testing.T) {
	b, clock := testBreaker(t)

	for i := 0; i < 4; i++ {
		_ = b.Execute(context.Background(), fail)
	}
	require.Equal(t, StateOpen, b.State())

	*clock = clock.Add(11 * time.Second)
	assert.Equal(t, StateHalfOpen, b.State())
}

func TestCircuitBreaker_ClosesAfterSuccessfulProbes(t *testing.T) {
	b, clock := testBreaker(t)

	for i := 0; i < 4; i++ {
		_ = b.Execute(context.Background(), fail)
	}
	*clock = clock.Add(11 * time.Second)

	require.NoError(t, b.Execute(context.Background(), succeed))
	require.NoError(t, b.Execute(context.Background(), succeed))

	assert.Equal(t, StateClosed, b.State())
}

func TestCircuitBreaker_ProbeFailureReopens(t *testing.T) {
	b, clock := testBreaker(t)

	for i := 0; i < 4; i++ {
		_ = b.Execute(context.Background(), fail)
	}
	*clock = clock.Add(11 * time.Second)

	require.ErrorIs(t, b.Execute(context.Background(), fail), errDownstream)
	assert.Equal(t, StateOpen, b.State())

	// The cooldown restarts from the failed probe.
	err := b.Execute(context.Background(), succeed)
	assert.ErrorIs(t, err, ErrCircuitOpen)
}

func TestCircuitBreaker_HalfOpenLimitsProbes(t *testing.T) {
	b, clock := testBreaker(t)

	for i := 0; i < 4; i++ {
		_ = b.Execute(context.Background(), fail)
	}
	*clock = clock.Add(11 * time.Second)
	require.Equal(t, StateHalfOpen, b.State())

	// Two probes may be in flight; a third is rejected.
	started := make(chan struct{}, 2)
	release := make(chan struct{})
	for i := 0; i < 2; i++ {
		go func() {
			_ = b.Execute(context.Background(), func(context.Context) error {
				started <- struct{}{}
				<-release
				return nil
			})
		}()
	}
	<-started
	<-started

	err := b.Execute(context.Background(), succeed)
	assert.ErrorIs(t, err, ErrCircuitOpen)
	close(release)
}
