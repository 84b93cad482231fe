package breaker

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCircuitBreaker_OpensAfterConsecutiveFailures(t *testing.T) {
	cb := NewCircuitBreaker("search", 2, time.Minute)
	boom := errors.New("boom")

	assert.ErrorIs(t, cb.Do(func() error { return boom }), boom)
	assert.True(t, cb.CanProceed())
	assert.ErrorIs(t, cb.Do(func() error { return boom }), boom)

	assert.False(t, cb.CanProceed())
	called := false
	err := cb.Do(func() error { called = true; return nil })
	assert.ErrorIs(t, err, ErrOpen)
	assert.False(t, called)
	assert.True(t, cb.GetStatus().Open)
}

func TestCircuitBreaker_SuccessResetsConsecutive(t *testing.T) {
	cb := NewCircuitBreaker("search", 2, time.Minute)
	cb.RecordFailure()
	cb.RecordSuccess()
	cb.RecordFailure()
	assert.True(t, cb.CanProceed())
}

func TestCircuitBreaker_HalfOpenAfterTimeout(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	cb := NewCircuitBreaker("storage", 1, time.Minute)
	cb.now = func() time.Time { return now }

	var transitions []bool
	cb.OnStateChange(func(_ string, open bool) { transitions = append(transitions, open) })

	cb.RecordFailure()
	assert.False(t, cb.CanProceed())

	now = now.Add(2 * time.Minute)
	assert.True(t, cb.CanProceed())
	assert.Equal(t, Status{Name: "storage"}, cb.GetStatus())
	assert.Equal(t, []bool{true, false}, transitions)
}

func TestCircuitBreaker_FailureRate(t *testing.T) {
	cb := NewCircuitBreaker("search", 100, time.Minute)
	for i := 0; i < 12; i++ {
		cb.RecordSuccess()
	}
	for i := 0; i < 8; i++ {
		cb.RecordSuccess()
		cb.RecordFailure()
	}
	// 8 failures out of 28 calls stays below 40%
	assert.True(t, cb.CanProceed())

	for i := 0; i < 12; i++ {
		cb.RecordFailure()
	}
	assert.False(t, cb.CanProceed())
}
