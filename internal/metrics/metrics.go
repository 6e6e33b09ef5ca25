// Package metrics provides observability for the relayer's RPC calls and
// event-handling pipeline, adapted from the teacher's
// src/chainadapter/metrics package. Where the teacher tracked Build/Sign/
// Broadcast calls for a wallet adapter, this package tracks RPC calls and
// the four stages an event passes through on its way to the destination
// chain (decode, submit, confirm, finality) per SPEC_FULL.md's A4 ambient
// component.
package metrics

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// RelayerMetrics defines the interface for recording and querying relayer
// health metrics.
//
// Contract:
//   - RecordRPCCall() and RecordEventStage() MUST be thread-safe
//   - GetHealthStatus() MUST report Degraded when the thresholds below are
//     exceeded
//   - Export() MUST return Prometheus-compatible text
type RelayerMetrics interface {
	// RecordRPCCall records a single JSON-RPC call with its duration and
	// success status. Thread-safe.
	RecordRPCCall(chain, method string, duration time.Duration, success bool)

	// RecordEventStage records one pipeline stage (decode, submit, confirm,
	// finality) for a single relayed event. Thread-safe.
	RecordEventStage(stage string, duration time.Duration, success bool)

	// RecordCheckpointAdvance records a successful checkpoint write to
	// blockNumber.
	RecordCheckpointAdvance(blockNumber uint32)

	// GetMetrics returns aggregated metrics across all recorded operations.
	GetMetrics() *AggregatedMetrics

	// GetRPCMetrics returns metrics for a specific chain+method pair, or nil
	// if no calls have been recorded for it.
	GetRPCMetrics(chain, method string) *MethodMetrics

	// GetHealthStatus reports OK, Degraded, or Down based on RPC success
	// rate, latency, and checkpoint progress.
	//
	// Down criteria (once any RPC call has been recorded):
	//   - No successful RPC call in the last 5 minutes
	//
	// Degraded criteria:
	//   - RPC success rate < 90%
	//   - Average RPC duration > 5 seconds
	//   - No checkpoint advance in the last 5 minutes (once one has ever
	//     occurred)
	GetHealthStatus() HealthStatus

	// Export returns metrics in Prometheus text format.
	Export() string

	// Reset clears all recorded metrics. Useful for testing.
	Reset()
}

// AggregatedMetrics contains aggregated metrics across all operations.
type AggregatedMetrics struct {
	TotalRPCCalls      int64
	SuccessfulRPCCalls int64
	FailedRPCCalls     int64
	RPCSuccessRate     float64
	AvgRPCDuration     time.Duration
	LastSuccessfulCall time.Time

	TotalEvents      int64
	SuccessfulEvents int64
	FailedEvents     int64
	EventSuccessRate float64

	LastCheckpoint      uint32
	LastCheckpointAt    time.Time
	HasCheckpointEver   bool
}

// MethodMetrics contains metrics for a specific chain+method pair.
type MethodMetrics struct {
	Chain              string
	Method             string
	TotalCalls         int64
	SuccessfulCalls    int64
	FailedCalls        int64
	SuccessRate        float64
	AvgDuration        time.Duration
	MinDuration        time.Duration
	MaxDuration        time.Duration
	LastSuccessfulCall time.Time
	LastFailedCall     time.Time
}

// HealthStatus represents the health status of the relayer pipeline.
type HealthStatus struct {
	Status    string
	Message   string
	CheckedAt time.Time

	LowSuccessRate     bool
	HighLatency        bool
	NoRecentSuccess    bool
	NoRecentCheckpoint bool
}

// IsHealthy returns true if status is "OK".
func (h *HealthStatus) IsHealthy() bool { return h.Status == "OK" }

// IsDegraded returns true if status is "Degraded".
func (h *HealthStatus) IsDegraded() bool { return h.Status == "Degraded" }

// IsDown returns true if status is "Down".
func (h *HealthStatus) IsDown() bool { return h.Status == "Down" }

const (
	degradedSuccessRateThreshold = 0.90
	degradedLatencyThreshold     = 5 * time.Second
	degradedRecencyThreshold     = 5 * time.Minute
)

type rpcKey struct{ chain, method string }

type rpcCounters struct {
	total, success, failed int64
	sumDuration            time.Duration
	minDuration            time.Duration
	maxDuration            time.Duration
	lastSuccess            time.Time
	lastFailure            time.Time
}

type eventCounters struct {
	total, success, failed int64
}

// InMemory is the default RelayerMetrics implementation: in-process
// counters guarded by a mutex, adapted from the teacher's in-memory
// ChainMetrics implementation (the concrete type backing
// metrics.ChainMetrics in src/chainadapter).
type InMemory struct {
	mu sync.Mutex

	rpc map[rpcKey]*rpcCounters

	events map[string]*eventCounters

	lastCheckpoint    uint32
	lastCheckpointAt  time.Time
	hasCheckpointEver bool
}

// NewInMemory constructs an empty InMemory metrics recorder.
func NewInMemory() *InMemory {
	return &InMemory{
		rpc:    make(map[rpcKey]*rpcCounters),
		events: make(map[string]*eventCounters),
	}
}

func (m *InMemory) RecordRPCCall(chain, method string, duration time.Duration, success bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := rpcKey{chain: chain, method: method}
	c, ok := m.rpc[key]
	if !ok {
		c = &rpcCounters{minDuration: duration, maxDuration: duration}
		m.rpc[key] = c
	}

	c.total++
	c.sumDuration += duration
	if duration < c.minDuration {
		c.minDuration = duration
	}
	if duration > c.maxDuration {
		c.maxDuration = duration
	}
	if success {
		c.success++
		c.lastSuccess = time.Now()
	} else {
		c.failed++
		c.lastFailure = time.Now()
	}
}

func (m *InMemory) RecordEventStage(stage string, duration time.Duration, success bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.events[stage]
	if !ok {
		c = &eventCounters{}
		m.events[stage] = c
	}
	c.total++
	if success {
		c.success++
	} else {
		c.failed++
	}
}

func (m *InMemory) RecordCheckpointAdvance(blockNumber uint32) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.lastCheckpoint = blockNumber
	m.lastCheckpointAt = time.Now()
	m.hasCheckpointEver = true
}

func (m *InMemory) GetMetrics() *AggregatedMetrics {
	m.mu.Lock()
	defer m.mu.Unlock()

	agg := &AggregatedMetrics{
		LastCheckpoint:    m.lastCheckpoint,
		LastCheckpointAt:  m.lastCheckpointAt,
		HasCheckpointEver: m.hasCheckpointEver,
	}

	var sumDuration time.Duration
	var lastSuccess time.Time
	for _, c := range m.rpc {
		agg.TotalRPCCalls += c.total
		agg.SuccessfulRPCCalls += c.success
		agg.FailedRPCCalls += c.failed
		sumDuration += c.sumDuration
		if c.lastSuccess.After(lastSuccess) {
			lastSuccess = c.lastSuccess
		}
	}
	if agg.TotalRPCCalls > 0 {
		agg.RPCSuccessRate = float64(agg.SuccessfulRPCCalls) / float64(agg.TotalRPCCalls)
		agg.AvgRPCDuration = sumDuration / time.Duration(agg.TotalRPCCalls)
	}
	agg.LastSuccessfulCall = lastSuccess

	for _, c := range m.events {
		agg.TotalEvents += c.total
		agg.SuccessfulEvents += c.success
		agg.FailedEvents += c.failed
	}
	if agg.TotalEvents > 0 {
		agg.EventSuccessRate = float64(agg.SuccessfulEvents) / float64(agg.TotalEvents)
	}

	return agg
}

func (m *InMemory) GetRPCMetrics(chain, method string) *MethodMetrics {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.rpc[rpcKey{chain: chain, method: method}]
	if !ok {
		return nil
	}

	mm := &MethodMetrics{
		Chain:              chain,
		Method:             method,
		TotalCalls:         c.total,
		SuccessfulCalls:    c.success,
		FailedCalls:        c.failed,
		MinDuration:        c.minDuration,
		MaxDuration:        c.maxDuration,
		LastSuccessfulCall: c.lastSuccess,
		LastFailedCall:     c.lastFailure,
	}
	if c.total > 0 {
		mm.SuccessRate = float64(c.success) / float64(c.total)
		mm.AvgDuration = c.sumDuration / time.Duration(c.total)
	}
	return mm
}

func (m *InMemory) GetHealthStatus() HealthStatus {
	agg := m.GetMetrics()
	now := time.Now()

	status := HealthStatus{Status: "OK", CheckedAt: now}

	if agg.TotalRPCCalls > 0 && agg.RPCSuccessRate < degradedSuccessRateThreshold {
		status.LowSuccessRate = true
	}
	if agg.AvgRPCDuration > degradedLatencyThreshold {
		status.HighLatency = true
	}
	if agg.TotalRPCCalls > 0 && (agg.LastSuccessfulCall.IsZero() || now.Sub(agg.LastSuccessfulCall) > degradedRecencyThreshold) {
		status.NoRecentSuccess = true
	}
	if agg.HasCheckpointEver && now.Sub(agg.LastCheckpointAt) > degradedRecencyThreshold {
		status.NoRecentCheckpoint = true
	}

	switch {
	case status.NoRecentSuccess && agg.TotalRPCCalls > 0:
		status.Status = "Down"
		status.Message = "no successful RPC call in the last 5 minutes"
	case status.LowSuccessRate || status.HighLatency || status.NoRecentCheckpoint:
		status.Status = "Degraded"
		status.Message = "one or more health thresholds exceeded"
	default:
		status.Message = "healthy"
	}

	return status
}

func (m *InMemory) Export() string {
	agg := m.GetMetrics()

	var b strings.Builder
	b.WriteString("# HELP relayer_rpc_calls_total Total number of RPC calls\n")
	b.WriteString("# TYPE relayer_rpc_calls_total counter\n")

	m.mu.Lock()
	keys := make([]rpcKey, 0, len(m.rpc))
	for k := range m.rpc {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].chain != keys[j].chain {
			return keys[i].chain < keys[j].chain
		}
		return keys[i].method < keys[j].method
	})
	for _, k := range keys {
		c := m.rpc[k]
		fmt.Fprintf(&b, "relayer_rpc_calls_total{chain=%q,method=%q,status=\"success\"} %d\n", k.chain, k.method, c.success)
		fmt.Fprintf(&b, "relayer_rpc_calls_total{chain=%q,method=%q,status=\"failure\"} %d\n", k.chain, k.method, c.failed)
	}
	m.mu.Unlock()

	fmt.Fprintf(&b, "# HELP relayer_events_total Total number of events processed by pipeline stage\n")
	fmt.Fprintf(&b, "# TYPE relayer_events_total counter\n")

	m.mu.Lock()
	stages := make([]string, 0, len(m.events))
	for s := range m.events {
		stages = append(stages, s)
	}
	sort.Strings(stages)
	for _, s := range stages {
		c := m.events[s]
		fmt.Fprintf(&b, "relayer_events_total{stage=%q,status=\"success\"} %d\n", s, c.success)
		fmt.Fprintf(&b, "relayer_events_total{stage=%q,status=\"failure\"} %d\n", s, c.failed)
	}
	m.mu.Unlock()

	fmt.Fprintf(&b, "# HELP relayer_checkpoint_block Last checkpointed block number\n")
	fmt.Fprintf(&b, "# TYPE relayer_checkpoint_block gauge\n")
	fmt.Fprintf(&b, "relayer_checkpoint_block %d\n", agg.LastCheckpoint)

	return b.String()
}

func (m *InMemory) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rpc = make(map[rpcKey]*rpcCounters)
	m.events = make(map[string]*eventCounters)
	m.lastCheckpoint = 0
	m.lastCheckpointAt = time.Time{}
	m.hasCheckpointEver = false
}

// NoOp is a RelayerMetrics implementation that does nothing, used when
// metrics collection is disabled.
type NoOp struct{}

func (NoOp) RecordRPCCall(chain, method string, duration time.Duration, success bool) {}
func (NoOp) RecordEventStage(stage string, duration time.Duration, success bool)      {}
func (NoOp) RecordCheckpointAdvance(blockNumber uint32)                               {}
func (NoOp) GetMetrics() *AggregatedMetrics                                           { return &AggregatedMetrics{} }
func (NoOp) GetRPCMetrics(chain, method string) *MethodMetrics                        { return nil }
func (NoOp) GetHealthStatus() HealthStatus {
	return HealthStatus{Status: "OK", Message: "metrics disabled", CheckedAt: time.Now()}
}
func (NoOp) Export() string { return "" }
func (NoOp) Reset()         {}

var (
	_ RelayerMetrics = (*InMemory)(nil)
	_ RelayerMetrics = NoOp{}
)
