package rpc

import (
	"sync"
	"time"
)

// endpointHealth mirrors the teacher's EndpointHealth, trimmed to the
// fields a single-endpoint circuit breaker needs.
type endpointHealth struct {
	totalCalls      int64
	successfulCalls int64
	failedCalls     int64
	avgLatencyMs    int64
	lastSuccess     int64
	lastFailure     int64
	circuitOpen     bool
}

// CircuitBreaker implements HealthTracker with the same failure/success
// circuit-breaker thresholds as the teacher's rpc.SimpleHealthTracker
// (src/chainadapter/rpc/health.go), generalized from a multi-endpoint
// tracker to this relayer's fixed per-chain endpoint. The thresholds are
// compared against the difference between an endpoint's cumulative failed
// and successful call counts, not against runs of consecutive calls: the
// circuit opens once failures exceed successes by failureThreshold, and
// closes once successes exceed failures by successThreshold.
type CircuitBreaker struct {
	mu     sync.RWMutex
	health map[string]*endpointHealth

	failureThreshold  int
	successThreshold  int
	circuitOpenWindow time.Duration
}

// NewCircuitBreaker creates a health tracker with the teacher's default
// thresholds.
func NewCircuitBreaker() *CircuitBreaker {
	return &CircuitBreaker{
		health:            make(map[string]*endpointHealth),
		failureThreshold:  3,
		successThreshold:  2,
		circuitOpenWindow: 30 * time.Second,
	}
}

// RecordSuccess implements HealthTracker.
func (t *CircuitBreaker) RecordSuccess(endpoint string, durationMs int64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	h := t.getOrCreate(endpoint)
	h.totalCalls++
	h.successfulCalls++
	h.lastSuccess = time.Now().Unix()

	if h.avgLatencyMs == 0 {
		h.avgLatencyMs = durationMs
	} else {
		h.avgLatencyMs = (h.avgLatencyMs*9 + durationMs) / 10
	}

	if h.circuitOpen {
		consecutiveSuccesses := h.successfulCalls - h.failedCalls
		if consecutiveSuccesses >= int64(t.successThreshold) {
			h.circuitOpen = false
		}
	}
}

// RecordFailure implements HealthTracker.
func (t *CircuitBreaker) RecordFailure(endpoint string, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	h := t.getOrCreate(endpoint)
	h.totalCalls++
	h.failedCalls++
	h.lastFailure = time.Now().Unix()

	consecutiveFailures := h.failedCalls - h.successfulCalls
	if consecutiveFailures >= int64(t.failureThreshold) {
		h.circuitOpen = true
	}
}

// IsHealthy implements HealthTracker.
func (t *CircuitBreaker) IsHealthy(endpoint string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()

	h, exists := t.health[endpoint]
	if !exists {
		return true
	}

	if h.circuitOpen {
		sinceFailure := time.Now().Unix() - h.lastFailure
		if sinceFailure < int64(t.circuitOpenWindow.Seconds()) {
			return false
		}
	}

	return true
}

func (t *CircuitBreaker) getOrCreate(endpoint string) *endpointHealth {
	h, ok := t.health[endpoint]
	if !ok {
		h = &endpointHealth{}
		t.health[endpoint] = h
	}
	return h
}

var _ HealthTracker = (*CircuitBreaker)(nil)
