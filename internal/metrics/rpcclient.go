package metrics

import (
	"context"
	"encoding/json"
	"time"

	"github.com/yourusername/mostrelay/internal/rpc"
)

// MetricsRPCClient wraps an rpc.Client and records a RelayerMetrics entry
// for every call, adapted from the teacher's MetricsRPCClient in
// src/chainadapter/rpc/metrics_client.go. The wrapper is transparent: it
// implements rpc.Client itself, so it can be substituted wherever a plain
// client is expected.
type MetricsRPCClient struct {
	client  rpc.Client
	metrics RelayerMetrics
	chain   string
}

// NewMetricsRPCClient wraps client, tagging every recorded metric with
// chain (e.g. "source" or "dest").
func NewMetricsRPCClient(client rpc.Client, metrics RelayerMetrics, chain string) *MetricsRPCClient {
	return &MetricsRPCClient{client: client, metrics: metrics, chain: chain}
}

func (m *MetricsRPCClient) Call(ctx context.Context, method string, params interface{}) (json.RawMessage, error) {
	start := time.Now()
	result, err := m.client.Call(ctx, method, params)
	duration := time.Since(start)

	m.metrics.RecordRPCCall(m.chain, method, duration, err == nil)

	return result, err
}

func (m *MetricsRPCClient) Close() error {
	return m.client.Close()
}

var _ rpc.Client = (*MetricsRPCClient)(nil)
