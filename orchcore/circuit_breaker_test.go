package orchcore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCircuitBreakerOpensAfterThreshold(t *testing.T) {
	clock := NewFixedClock(time.Unix(0, 0))
	cb := NewCircuitBreaker(CircuitBreakerConfig{Enabled: true, Threshold: 2, Timeout: time.Minute, HalfOpenRequests: 1}, clock)

	boom := errors.New("boom")
	require.Error(t, cb.Execute(context.Background(), func() error { return boom }))
	assert.Equal(t, "closed", cb.GetState())
	require.Error(t, cb.Execute(context.Background(), func() error { return boom }))
	assert.Equal(t, "open", cb.GetState())

	err := cb.Execute(context.Background(), func() error { return nil })
	assert.Error(t, err, "circuit must reject calls while open")
}

func TestCircuitBreakerHalfOpenRecovers(t *testing.T) {
	clock := NewFixedClock(time.Unix(0, 0))
	cb := NewCircuitBreaker(CircuitBreakerConfig{Enabled: true, Threshold: 1, Timeout: time.Second, HalfOpenRequests: 2}, clock)

	require.Error(t, cb.Execute(context.Background(), func() error { return errors.New("x") }))
	assert.Equal(t, "open", cb.GetState())

	clock.Advance(2 * time.Second)
	require.NoError(t, cb.Execute(context.Background(), func() error { return nil }))
	assert.Equal(t, "half-open", cb.GetState())

	require.NoError(t, cb.Execute(context.Background(), func() error { return nil }))
	assert.Equal(t, "closed", cb.GetState())
}

func TestCircuitBreakerDisabledAlwaysExecutes(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{Enabled: false}, nil)
	for i := 0; i < 10; i++ {
		_ = cb.Execute(context.Background(), func() error { return errors.New("fail") })
	}
	assert.True(t, cb.CanExecute())
}
