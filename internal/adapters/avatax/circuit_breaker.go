package avatax

import (
	"errors"
	"time"

	"github.com/sony/gobreaker"
)

// BreakerState is the position of a CircuitBreaker.
type BreakerState int

const (
	BreakerClosed BreakerState = iota
	BreakerOpen
	BreakerHalfOpen
)

func (s BreakerState) String() string {
	switch s {
	case BreakerClosed:
		return "closed"
	case BreakerOpen:
		return "open"
	case BreakerHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

func breakerState(s gobreaker.State) BreakerState {
	switch s {
	case gobreaker.StateOpen:
		return BreakerOpen
	case gobreaker.StateHalfOpen:
		return BreakerHalfOpen
	default:
		return BreakerClosed
	}
}

const (
	// Trial calls admitted while half-open; that many successes close the breaker.
	breakerTrialRequests = 3
	// The failure rate only trips the breaker after this many calls.
	breakerMinRequests = 5
	// Closed-state counters are cleared on this cycle.
	breakerInterval = time.Minute
)

// CircuitBreaker stops calls to AvaTax after repeated upstream failures and
// lets a few trial calls through once the cooldown has passed.
type CircuitBreaker struct {
	breaker     *gobreaker.CircuitBreaker
	maxFailures int
	failureRate float64
	cooldown    time.Duration
}

// NewCircuitBreaker returns a closed breaker that opens after maxFailures
// consecutive failures or once failureRate of at least five calls failed.
// Non-positive arguments fall back to 10 failures, a 50% failure rate and a
// 30s cooldown. onStateChange may be nil.
func NewCircuitBreaker(maxFailures int, failureRate float64, cooldown time.Duration, onStateChange func(from, to BreakerState)) *CircuitBreaker {
	if maxFailures <= 0 {
		maxFailures = 10
	}
	if failureRate <= 0 || failureRate > 1 {
		failureRate = 0.5
	}
	if cooldown <= 0 {
		cooldown = 30 * time.Second
	}

	settings := gobreaker.Settings{
		Name:        "avatax",
		MaxRequests: breakerTrialRequests,
		Interval:    breakerInterval,
		Timeout:     cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.ConsecutiveFailures >= uint32(maxFailures) {
				return true
			}
			ratio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= breakerMinRequests && ratio >= failureRate
		},
	}
	if onStateChange != nil {
		settings.OnStateChange = func(_ string, from, to gobreaker.State) {
			onStateChange(breakerState(from), breakerState(to))
		}
	}

	return &CircuitBreaker{
		breaker:     gobreaker.NewCircuitBreaker(settings),
		maxFailures: maxFailures,
		failureRate: failureRate,
		cooldown:    cooldown,
	}
}

// Execute runs fn unless the breaker rejects the call. Only errors returned by
// fn count as failures.
func (cb *CircuitBreaker) Execute(fn func() error) error {
	_, err := cb.breaker.Execute(func() (any, error) {
		return nil, fn()
	})
	switch {
	case errors.Is(err, gobreaker.ErrOpenState):
		return ErrCircuitOpen
	case errors.Is(err, gobreaker.ErrTooManyRequests):
		return ErrCircuitRecovering
	}
	return err
}

// State returns the current breaker state.
func (cb *CircuitBreaker) State() BreakerState {
	return breakerState(cb.breaker.State())
}

// BreakerStats is a snapshot of the counters of the current state.
type BreakerStats struct {
	State               BreakerState
	Requests            uint32
	Failures            uint32
	ConsecutiveFailures uint32
	FailureRate         float64
}

// Stats returns the breaker counters.
func (cb *CircuitBreaker) Stats() BreakerStats {
	counts := cb.breaker.Counts()
	stats := BreakerStats{
		State:               cb.State(),
		Requests:            counts.Requests,
		Failures:            counts.TotalFailures,
		ConsecutiveFailures: counts.ConsecutiveFailures,
	}
	if counts.Requests > 0 {
		stats.FailureRate = float64(counts.TotalFailures) / float64(counts.Requests)
	}
	return stats
}

var (
	// ErrCircuitOpen is returned without calling AvaTax while the breaker is open.
	ErrCircuitOpen = &CircuitBreakerError{Message: "avatax circuit breaker is open"}
	// ErrCircuitRecovering is returned when the half-open trial calls are taken.
	ErrCircuitRecovering = &CircuitBreakerError{Message: "avatax circuit breaker is half-open, trial calls in flight"}
)

// CircuitBreakerError reports a call rejected by the breaker.
type CircuitBreakerError struct {
	Message string
}

func (e *CircuitBreakerError) Error() string {
	return e.Message
}
