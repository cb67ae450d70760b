package circuitbreaker

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errBoom = errors.New("boom")

func failing() error { return errBoom }

func succeeding() error { return nil }

func TestBreakerOpensAfterMaxFailures(t *testing.T) {
	cb := NewCircuitBreaker(Settings{MaxFailures: 3, Timeout: time.Minute})

	for i := 0; i < 3; i++ {
		assert.ErrorIs(t, cb.Execute(failing), errBoom)
	}
	assert.Equal(t, StateOpen, cb.State())

	// Calls are refused without touching the backend.
	assert.ErrorIs(t, cb.Execute(succeeding), ErrOpen)
}

func TestBreakerRecoversThroughHalfOpen(t *testing.T) {
	cb := NewCircuitBreaker(Settings{MaxFailures: 1, Timeout: 20 * time.Millisecond})

	require.ErrorIs(t, cb.Execute(failing), errBoom)
	require.Equal(t, StateOpen, cb.State())

	time.Sleep(30 * time.Millisecond)

	assert.NoError(t, cb.Execute(succeeding))
	assert.Equal(t, StateClosed, cb.State())
}

func TestHalfOpenFailureReopens(t *testing.T) {
	cb := NewCircuitBreaker(Settings{MaxFailures: 2, Timeout: 20 * time.Millisecond})

	require.ErrorIs(t, cb.Execute(failing), errBoom)
	require.ErrorIs(t, cb.Execute(failing), errBoom)
	require.Equal(t, StateOpen, cb.State())

	time.Sleep(30 * time.Millisecond)

	assert.ErrorIs(t, cb.Execute(failing), errBoom)
	assert.Equal(t, StateOpen, cb.State())
}

func TestSuccessResetsFailureCount(t *testing.T) {
	cb := NewCircuitBreaker(Settings{MaxFailures: 2, Timeout: time.Minute})

	require.ErrorIs(t, cb.Execute(failing), errBoom)
	require.NoError(t, cb.Execute(succeeding))
	require.ErrorIs(t, cb.Execute(failing), errBoom)

	assert.Equal(t, StateClosed, cb.State())
}
