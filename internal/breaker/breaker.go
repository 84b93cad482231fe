// Package breaker stops calls to an external collaborator (search engine,
// object storage) after repeated failures and lets one trial request through once
// the reset timeout has passed.
package breaker

import (
	"errors"
	"sync"
	"time"
)

// ErrOpen is returned by Do while the breaker is open.
var ErrOpen = errors.New("circuit breaker open")

// CircuitBreaker counts failures of one collaborator.
type CircuitBreaker struct {
	name             string
	failureThreshold int
	resetTimeout     time.Duration

	failures            int
	successes           int
	totalRequests       int
	consecutiveFailures int
	isOpen              bool
	lastFailureTime     time.Time

	onStateChange func(name string, open bool)
	now           func() time.Time
	mutex         sync.Mutex
}

// NewCircuitBreaker creates a breaker that opens after failureThreshold
// consecutive failures, or when 40% of at least 20 calls failed.
func NewCircuitBreaker(name string, failureThreshold int, resetTimeout time.Duration) *CircuitBreaker {
	if failureThreshold <= 0 {
		failureThreshold = 3
	}
	return &CircuitBreaker{
		name:             name,
		failureThreshold: failureThreshold,
		resetTimeout:     resetTimeout,
		now:              time.Now,
	}
}

// OnStateChange registers a callback fired when the breaker opens or closes.
func (cb *CircuitBreaker) OnStateChange(fn func(name string, open bool)) {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()
	cb.onStateChange = fn
}

// RecordSuccess records a successful call
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	cb.successes++
	cb.totalRequests++
	cb.consecutiveFailures = 0
}

// RecordFailure records a failed call
func (cb *CircuitBreaker) RecordFailure() {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	cb.failures++
	cb.consecutiveFailures++
	cb.totalRequests++
	cb.lastFailureTime = cb.now()

	if cb.isOpen {
		return
	}

	if cb.consecutiveFailures >= cb.failureThreshold {
		cb.open()
		return
	}

	// Rate check once there is a meaningful sample
	if cb.totalRequests >= 20 {
		failureRate := float64(cb.failures) / float64(cb.totalRequests)
		if failureRate >= 0.40 {
			cb.open()
		}
	}
}

func (cb *CircuitBreaker) open() {
	cb.isOpen = true
	if cb.onStateChange != nil {
		cb.onStateChange(cb.name, true)
	}
}

// CanProceed checks if calls are allowed. After the reset timeout the
// counters are cleared and calls resume.
func (cb *CircuitBreaker) CanProceed() bool {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	if !cb.isOpen {
		return true
	}

	if cb.now().Sub(cb.lastFailureTime) > cb.resetTimeout {
		cb.isOpen = false
		cb.failures = 0
		cb.successes = 0
		cb.totalRequests = 0
		cb.consecutiveFailures = 0
		if cb.onStateChange != nil {
			cb.onStateChange(cb.name, false)
		}
		return true
	}

	return false
}

// Do runs fn unless the breaker is open and records its outcome.
func (cb *CircuitBreaker) Do(fn func() error) error {
	if !cb.CanProceed() {
		return ErrOpen
	}
	if err := fn(); err != nil {
		cb.RecordFailure()
		return err
	}
	cb.RecordSuccess()
	return nil
}

// Status is a point-in-time view of the breaker.
type Status struct {
	Name     string `json:"name"`
	Open     bool   `json:"open"`
	Failures int    `json:"failures"`
	Total    int    `json:"total"`
}

// GetStatus returns current circuit breaker status
func (cb *CircuitBreaker) GetStatus() Status {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()
	return Status{Name: cb.name, Open: cb.isOpen, Failures: cb.failures, Total: cb.totalRequests}
}
