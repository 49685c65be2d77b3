package planclient

import (
	"sync"
	"time"
)

// CircuitBreaker stops attempting remote calls after a run of consecutive
// failures until a cooldown elapses. It lives for the process lifetime and
// is mutated only by the client that owns it.
type CircuitBreaker struct {
	mu                  sync.Mutex
	consecutiveFailures int
	lastFailureTime     time.Time
	isOpen              bool

	failureThreshold int
	cooldown         time.Duration

	// now is swappable for tests.
	now func() time.Time
}

// NewCircuitBreaker returns a closed breaker.
func NewCircuitBreaker(failureThreshold int, cooldown time.Duration) *CircuitBreaker {
	return &CircuitBreaker{
		failureThreshold: failureThreshold,
		cooldown:         cooldown,
		now:              time.Now,
	}
}

// Allow reports whether a call may proceed. When the breaker is open and the
// cooldown has not elapsed since the last failure, it returns false along
// with the remaining wait.
func (b *CircuitBreaker) Allow() (bool, time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.isOpen {
		return true, 0
	}

	elapsed := b.now().Sub(b.lastFailureTime)
	if elapsed >= b.cooldown {
		// Cooldown over: let one call through. Success will close the
		// breaker, another failure re-stamps it.
		return true, 0
	}
	return false, b.cooldown - elapsed
}

// RecordSuccess resets the breaker to closed/zero.
func (b *CircuitBreaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.consecutiveFailures = 0
	b.isOpen = false
	b.lastFailureTime = time.Time{}
}

// RecordFailure counts one exhausted call; the breaker opens once the
// threshold is reached.
func (b *CircuitBreaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.consecutiveFailures++
	b.lastFailureTime = b.now()
	if b.consecutiveFailures >= b.failureThreshold {
		b.isOpen = true
	}
}

// Open reports whether the breaker is currently open.
func (b *CircuitBreaker) Open() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.isOpen
}

// Failures returns the consecutive failure count.
func (b *CircuitBreaker) Failures() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.consecutiveFailures
}
