package resilience

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

// State is the circuit breaker state.
type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// ErrCircuitOpen is returned when the breaker rejects a call without
// attempting it.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// BreakerSettings tunes a CircuitBreaker.
type BreakerSettings struct {
	// WindowSize is the rolling window over which the failure rate is
	// computed.
	WindowSize time.Duration
	// FailureThreshold opens the circuit when the failure rate within the
	// window reaches it, e.g. 0.5 for half the calls failing.
	FailureThreshold float64
	// MinimumCalls must be observed within the window before the rate is
	// evaluated, so a single early failure cannot trip the breaker.
	MinimumCalls int
	// OpenDuration is how long the breaker rejects calls before probing.
	OpenDuration time.Duration
	// HalfOpenProbes is how many consecutive probe calls must succeed to
	// close the circuit again.
	HalfOpenProbes int
}

func DefaultBreakerSettings() BreakerSettings {
	return BreakerSettings{
		WindowSize:       30 * time.Second,
		FailureThreshold: 0.5,
		MinimumCalls:     10,
		OpenDuration:     15 * time.Second,
		HalfOpenProbes:   3,
	}
}

type callOutcome struct {
	at      time.Time
	failure bool
}

// CircuitBreaker guards a downstream dependency. Closed it counts outcomes
// over a rolling window; too many failures open it and calls are rejected
// immediately. After OpenDuration it admits a limited number of probes, and
// only a full run of successful probes closes it again. A single probe
// failure reopens it.
type CircuitBreaker struct {
	name     string
	settings BreakerSettings
	logger   *zap.Logger

	mu             sync.Mutex
	state          State
	outcomes       []callOutcome
	openedAt       time.Time
	probesInFlight int
	probeSuccesses int
	now            func() time.Time
}

func NewCircuitBreaker(name string, settings BreakerSettings, logger *zap.Logger) *CircuitBreaker {
	if settings.WindowSize <= 0 {
		settings.WindowSize = DefaultBreakerSettings().WindowSize
	}
	if settings.FailureThreshold <= 0 {
		settings.FailureThreshold = DefaultBreakerSettings().FailureThreshold
	}
	if settings.MinimumCalls <= 0 {
		settings.MinimumCalls = DefaultBreakerSettings().MinimumCalls
	}
	if settings.OpenDuration <= 0 {
		settings.OpenDuration = DefaultBreakerSettings().OpenDuration
	}
	if settings.HalfOpenProbes <= 0 {
		settings.HalfOpenProbes = DefaultBreakerSettings().HalfOpenProbes
	}
	return &CircuitBreaker{
		name:     name,
		settings: settings,
		logger:   logger,
		state:    StateClosed,
		now:      time.Now,
	}
}

// Execute runs fn under the breaker. When the circuit is open it returns
// ErrCircuitOpen without calling fn.
func (b *CircuitBreaker) Execute(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := b.admit(); err != nil {
		return err
	}

	err := fn(ctx)
	b.record(err != nil)
	return err
}

// State reports the current state, advancing open to half-open if the
// cooldown has elapsed.
func (b *CircuitBreaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.maybeTransition()
	return b.state
}

func (b *CircuitBreaker) admit() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.maybeTransition()

	switch b.state {
	case StateClosed:
		return nil
	case StateOpen:
		return ErrCircuitOpen
	case StateHalfOpen:
		if b.probesInFlight >= b.settings.HalfOpenProbes {
			return ErrCircuitOpen
		}
		b.probesInFlight++
		return nil
	default:
		return ErrCircuitOpen
	}
}

func (b *CircuitBreaker) record(failed bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateClosed:
		b.outcomes = append(b.outcomes, callOutcome{at: b.now(), failure: failed})
		b.evaluateWindow()
	case StateHalfOpen:
		b.probesInFlight--
		if failed {
			b.open("probe failed")
			return
		}
		b.probeSuccesses++
		if b.probeSuccesses >= b.settings.HalfOpenProbes {
			b.close()
		}
	case StateOpen:
		// A call admitted before the trip finished after it; ignore.
	}
}

// evaluateWindow prunes outcomes outside the rolling window and opens the
// circuit when the failure rate crosses the threshold. Callers hold b.mu.
func (b *CircuitBreaker) evaluateWindow() {
	cutoff := b.now().Add(-b.settings.WindowSize)
	kept := b.outcomes[:0]
	for _, o := range b.outcomes {
		if o.at.After(cutoff) {
			kept = append(kept, o)
		}
	}
	b.outcomes = kept

	if len(b.outcomes) < b.settings.MinimumCalls {
		return
	}

	failures := 0
	for _, o := range b.outcomes {
		if o.failure {
			failures++
		}
	}
	rate := float64(failures) / float64(len(b.outcomes))
	if rate >= b.settings.FailureThreshold {
		b.open("failure rate threshold crossed")
	}
}

func (b *CircuitBreaker) maybeTransition() {
	if b.state == StateOpen && b.now().Sub(b.openedAt) >= b.settings.OpenDuration {
		b.state = StateHalfOpen
		b.probesInFlight = 0
		b.probeSuccesses = 0
		b.logger.Info("circuit breaker half-open, probing", zap.String("breaker", b.name))
	}
}

func (b *CircuitBreaker) open(reason string) {
	b.state = StateOpen
	b.openedAt = b.now()
	b.outcomes = nil
	b.logger.Warn("circuit breaker opened",
		zap.String("breaker", b.name),
		zap.String("reason", reason),
		zap.Duration("cooldown", b.settings.OpenDuration),
	)
}

func (b *CircuitBreaker) close() {
	b.state = StateClosed
	b.outcomes = nil
	b.probesInFlight = 0
	b.probeSuccesses = 0
	b.logger.Info("circuit breaker closed", zap.String("breaker", b.name))
}
