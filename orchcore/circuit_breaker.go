package orchcore

import (
	"context"
	"sync"
	"time"
)

// CircuitBreakerConfig configures a CircuitBreaker's thresholds.
type CircuitBreakerConfig struct {
	Enabled          bool
	Threshold        int           // consecutive failures before opening
	Timeout          time.Duration // time spent open before probing half-open
	HalfOpenRequests int           // successes required in half-open to close
}

// DefaultCircuitBreakerConfig returns sensible defaults, mirroring the
// teacher's DefaultCircuitBreakerParams.
func DefaultCircuitBreakerConfig() CircuitBreakerConfig {
	return CircuitBreakerConfig{Enabled: true, Threshold: 5, Timeout: 30 * time.Second, HalfOpenRequests: 3}
}

// CircuitState is the three-state circuit breaker state machine.
type CircuitState int

const (
	CircuitClosed CircuitState = iota
	CircuitOpen
	CircuitHalfOpen
)

func (s CircuitState) String() string {
	switch s {
	case CircuitOpen:
		return "open"
	case CircuitHalfOpen:
		return "half-open"
	default:
		return "closed"
	}
}

// CircuitBreaker protects calls to a collaborator (CompletionProvider,
// VectorStore) from cascading failures. Wrap every outbound call in
// Execute so a flaky provider doesn't stall the orchestration loop.
type CircuitBreaker struct {
	mu              sync.Mutex
	cfg             CircuitBreakerConfig
	state           CircuitState
	consecutiveFail int
	halfOpenSuccess int
	openedAt        time.Time
	clock           Clock
}

// NewCircuitBreaker constructs a breaker with the given config. A nil
// clock defaults to SystemClock.
func NewCircuitBreaker(cfg CircuitBreakerConfig, clock Clock) *CircuitBreaker {
	if clock == nil {
		clock = SystemClock{}
	}
	return &CircuitBreaker{cfg: cfg, clock: clock}
}

// CanExecute reports whether a call would currently be allowed through.
func (b *CircuitBreaker) CanExecute() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.canExecuteLocked()
}

func (b *CircuitBreaker) canExecuteLocked() bool {
	if !b.cfg.Enabled {
		return true
	}
	switch b.state {
	case CircuitOpen:
		if b.clock.Now().Sub(b.openedAt) >= b.cfg.Timeout {
			b.state = CircuitHalfOpen
			b.halfOpenSuccess = 0
			return true
		}
		return false
	default:
		return true
	}
}

// Execute runs fn with circuit breaker protection, returning
// ErrTransportFailed-wrapped errors from fn verbatim, or a breaker-open
// error immediately if the circuit is open.
func (b *CircuitBreaker) Execute(ctx context.Context, fn func() error) error {
	b.mu.Lock()
	if !b.canExecuteLocked() {
		b.mu.Unlock()
		return NewFrameworkError("CircuitBreaker.Execute", "transport", ErrTransportFailed)
	}
	b.mu.Unlock()

	err := fn()

	b.mu.Lock()
	defer b.mu.Unlock()
	if err != nil {
		b.consecutiveFail++
		if b.state == CircuitHalfOpen || b.consecutiveFail >= b.cfg.Threshold {
			b.state = CircuitOpen
			b.openedAt = b.clock.Now()
		}
		return err
	}

	switch b.state {
	case CircuitHalfOpen:
		b.halfOpenSuccess++
		if b.halfOpenSuccess >= b.cfg.HalfOpenRequests {
			b.state = CircuitClosed
			b.consecutiveFail = 0
		}
	default:
		b.consecutiveFail = 0
	}
	return nil
}

// ExecuteWithTimeout runs fn with both circuit breaker protection and a
// deadline.
func (b *CircuitBreaker) ExecuteWithTimeout(ctx context.Context, timeout time.Duration, fn func() error) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- fn() }()
	return b.Execute(ctx, func() error {
		select {
		case err := <-done:
			return err
		case <-ctx.Done():
			return NewFrameworkError("CircuitBreaker.ExecuteWithTimeout", "transport", ErrTransportTimeout)
		}
	})
}

// GetState returns the current state as a string: "closed"|"open"|"half-open".
func (b *CircuitBreaker) GetState() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state.String()
}

// Reset clears all failure counters and returns the breaker to closed.
func (b *CircuitBreaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state = CircuitClosed
	b.consecutiveFail = 0
	b.halfOpenSuccess = 0
}
