package rpc_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/yourusername/mostrelay/internal/rpc"
)

func TestCircuitBreakerIsHealthyByDefault(t *testing.T) {
	cb := rpc.NewCircuitBreaker()
	assert.True(t, cb.IsHealthy("ws://source"))
}

func TestCircuitBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	cb := rpc.NewCircuitBreaker()
	endpoint := "ws://source"

	for i := 0; i < 3; i++ {
		cb.RecordFailure(endpoint, errors.New("dial failed"))
	}

	assert.False(t, cb.IsHealthy(endpoint))
}

func TestCircuitBreakerStaysHealthyBelowFailureThreshold(t *testing.T) {
	cb := rpc.NewCircuitBreaker()
	endpoint := "ws://source"

	cb.RecordFailure(endpoint, errors.New("dial failed"))
	cb.RecordFailure(endpoint, errors.New("dial failed"))

	assert.True(t, cb.IsHealthy(endpoint))
}

func TestCircuitBreakerRecoversAfterConsecutiveSuccesses(t *testing.T) {
	cb := rpc.NewCircuitBreaker()
	endpoint := "ws://source"

	for i := 0; i < 3; i++ {
		cb.RecordFailure(endpoint, errors.New("dial failed"))
	}
	assert.False(t, cb.IsHealthy(endpoint))

	// successThreshold compares successfulCalls against the endpoint's
	// accumulated failedCalls, so clearing 3 failures takes 5 successes.
	for i := 0; i < 5; i++ {
		cb.RecordSuccess(endpoint, 10)
	}

	assert.True(t, cb.IsHealthy(endpoint))
}

func TestCircuitBreakerTracksEndpointsIndependently(t *testing.T) {
	cb := rpc.NewCircuitBreaker()

	for i := 0; i < 3; i++ {
		cb.RecordFailure("ws://bad", errors.New("dial failed"))
	}

	assert.False(t, cb.IsHealthy("ws://bad"))
	assert.True(t, cb.IsHealthy("ws://good"))
}

var _ rpc.HealthTracker = (*rpc.CircuitBreaker)(nil)
