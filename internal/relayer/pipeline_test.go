package relayer_test

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/yourusername/mostrelay/internal/checkpoint"
	"github.com/yourusername/mostrelay/internal/destchain"
	"github.com/yourusername/mostrelay/internal/relayer"
	"github.com/yourusername/mostrelay/internal/sourcechain"
)

// fakeSource implements sourcechain.Client over an in-memory block->events
// map, with a fixed finalized head (the test scenarios only ever need one
// batch of newly finalized blocks).
type fakeSource struct {
	finalizedHead uint32
	events        map[uint32][]sourcechain.DecodedEvent
}

func blockHash(number uint32) sourcechain.Hash {
	var h sourcechain.Hash
	h[0] = byte(number >> 24)
	h[1] = byte(number >> 16)
	h[2] = byte(number >> 8)
	h[3] = byte(number)
	return h
}

func (f *fakeSource) GetFinalizedBlockHash(context.Context) (sourcechain.Hash, error) {
	return blockHash(f.finalizedHead), nil
}

func (f *fakeSource) GetBlockNumber(_ context.Context, hash sourcechain.Hash) (uint32, bool, error) {
	number := uint32(hash[0])<<24 | uint32(hash[1])<<16 | uint32(hash[2])<<8 | uint32(hash[3])
	return number, true, nil
}

func (f *fakeSource) GetBlockHash(_ context.Context, number uint32) (sourcechain.Hash, bool, error) {
	return blockHash(number), true, nil
}

func (f *fakeSource) EventsAt(_ context.Context, _ sourcechain.Hash, blockNumber uint32) ([]sourcechain.DecodedEvent, error) {
	return f.events[blockNumber], nil
}

// fakeDest implements destchain.Client, recording every submitted call and
// optionally blocking on a per-nonce hold channel before returning from
// SubmitCall, used to force handler completion order across blocks.
type fakeDest struct {
	mu    sync.Mutex
	calls []destchain.ReceiveRequestParams
	holds map[string]chan struct{}

	active    int64
	maxActive int64
}

func newFakeDest() *fakeDest {
	return &fakeDest{holds: map[string]chan struct{}{}}
}

func (f *fakeDest) holdNonce(nonce string) chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch := make(chan struct{})
	f.holds[nonce] = ch
	return ch
}

func (f *fakeDest) SubmitCall(ctx context.Context, params destchain.ReceiveRequestParams) (ethcommon.Hash, error) {
	active := atomic.AddInt64(&f.active, 1)
	defer atomic.AddInt64(&f.active, -1)

	for {
		prevMax := atomic.LoadInt64(&f.maxActive)
		if active <= prevMax || atomic.CompareAndSwapInt64(&f.maxActive, prevMax, active) {
			break
		}
	}

	f.mu.Lock()
	f.calls = append(f.calls, params)
	hold, ok := f.holds[params.RequestNonce.String()]
	f.mu.Unlock()

	if ok {
		select {
		case <-hold:
		case <-ctx.Done():
			return ethcommon.Hash{}, ctx.Err()
		}
	}

	return ethcommon.BytesToHash([]byte(params.RequestNonce.String())), nil
}

func (f *fakeDest) maxConcurrency() int64 {
	return atomic.LoadInt64(&f.maxActive)
}

func (f *fakeDest) GetTransaction(context.Context, ethcommon.Hash) (*types.Transaction, *big.Int, bool, error) {
	return nil, big.NewInt(1), true, nil
}

func (f *fakeDest) WaitForConfirmations(context.Context, ethcommon.Hash, uint64, int) error {
	return nil
}

func (f *fakeDest) WaitForFinality(context.Context, ethcommon.Hash) error {
	return nil
}

func (f *fakeDest) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func crosschainTransferEvent(blockNumber uint32, nonce string) sourcechain.DecodedEvent {
	return sourcechain.DecodedEvent{
		Name: "CrosschainTransferRequest",
		Fields: map[string]sourcechain.Value{
			"dest_token_address":    seqValue(fullBytes32Seq(0x11)...),
			"amount":                uintValue("1000"),
			"dest_receiver_address": seqValue(fullBytes32Seq(0x22)...),
			"request_nonce":         uintValue(nonce),
		},
		Block: sourcechain.BlockDetails{BlockNumber: blockNumber, BlockHash: blockHash(blockNumber)},
	}
}

func testPipelineConfig(maxTasks int64) relayer.PipelineConfig {
	return relayer.PipelineConfig{
		Name:                 "test-relayer",
		DefaultSyncFromBlock: 100,
		MaxEventHandlerTasks: maxTasks,
		EventHandler: relayer.EventHandlerConfig{
			CommitteeID:            big.NewInt(7),
			EthTxMinConfirmations:  1,
			EthTxSubmissionRetries: 1,
		},
	}
}

// runUntilDone runs the pipeline under a context that expires after
// timeout, then waits up to an extra grace period for Run to observe the
// cancellation and return, avoiding a race between the test's own deadline
// and the pipeline's.
func runUntilDone(t *testing.T, p *relayer.Pipeline, timeout time.Duration) error {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	select {
	case err := <-done:
		return err
	case <-time.After(timeout + time.Second):
		t.Fatal("pipeline did not finish within timeout")
		return nil
	}
}

// TestS1HappyPathOneEvent covers scenario S1: one event in one block
// produces exactly one destination call with the hash computed per
// spec.md, and the checkpoint is written as the block number once finality
// completes.
func TestS1HappyPathOneEvent(t *testing.T) {
	src := &fakeSource{
		finalizedHead: 100,
		events:        map[uint32][]sourcechain.DecodedEvent{100: {crosschainTransferEvent(100, "1")}},
	}
	dest := newFakeDest()
	store := checkpoint.NewMemoryStore()

	p := relayer.NewPipeline(testPipelineConfig(2), src, dest, store, zap.NewNop())
	err := runUntilDone(t, p, 2*time.Second)
	assert.ErrorIs(t, err, context.DeadlineExceeded, "pipeline keeps polling past the one batch of finalized blocks")

	require.Equal(t, 1, dest.callCount())
	call := dest.calls[0]
	assert.Equal(t, "1", call.RequestNonce.String())
	assert.Equal(t, "1000", call.Amount.String())

	expectedHash, err := relayer.RequestHash(big.NewInt(7), relayer.CrosschainTransferRequest{
		DestTokenAddress:    call.DestTokenAddress,
		Amount:              call.Amount,
		DestReceiverAddress: call.DestReceiverAddress,
		RequestNonce:        call.RequestNonce,
	})
	require.NoError(t, err)
	assert.Equal(t, expectedHash, call.RequestHash)

	value, ok, err := store.Get(checkpoint.Key("test-relayer", checkpoint.ChainKey))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, uint32(100), value)
}

// TestS2OutOfOrderCompletionNeverSkipsCheckpoint covers scenario S2: block
// 101's handler finishes before block 100's, but the checkpoint must never
// observe a value at or past 101 until block 100 has fully completed.
func TestS2OutOfOrderCompletionNeverSkipsCheckpoint(t *testing.T) {
	src := &fakeSource{
		finalizedHead: 101,
		events: map[uint32][]sourcechain.DecodedEvent{
			100: {crosschainTransferEvent(100, "100")},
			101: {crosschainTransferEvent(101, "101")},
		},
	}
	dest := newFakeDest()
	hold := dest.holdNonce("100") // block 100's handler blocks until released
	store := checkpoint.NewMemoryStore()

	p := relayer.NewPipeline(testPipelineConfig(4), src, dest, store, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runDone := make(chan error, 1)
	go func() { runDone <- p.Run(ctx) }()

	// Give block 101's handler (unblocked) time to finish and write its
	// checkpoint, while block 100 remains held.
	time.Sleep(200 * time.Millisecond)

	value, ok, err := store.Get(checkpoint.Key("test-relayer", checkpoint.ChainKey))
	require.NoError(t, err)
	if ok {
		assert.Less(t, value, uint32(100), "checkpoint must not reach block 100 while its handler is still blocked")
	}

	close(hold)

	assert.Eventually(t, func() bool {
		value, ok, err := store.Get(checkpoint.Key("test-relayer", checkpoint.ChainKey))
		return err == nil && ok && value == 101
	}, 2*time.Second, 10*time.Millisecond, "checkpoint should reach 101 once block 100 completes")

	cancel()
	<-runDone
}

// TestS3BoundedConcurrency covers scenario S3: with max_event_handler_tasks
// = 2 and five events in one block, at most two handlers are ever running
// at once, and all five eventually complete.
func TestS3BoundedConcurrency(t *testing.T) {
	events := make([]sourcechain.DecodedEvent, 5)
	for i := range events {
		events[i] = crosschainTransferEvent(100, fmt.Sprintf("%d", i))
	}

	src := &fakeSource{finalizedHead: 100, events: map[uint32][]sourcechain.DecodedEvent{100: events}}
	dest := newFakeDest()
	store := checkpoint.NewMemoryStore()

	holds := make([]chan struct{}, 5)
	for i := range holds {
		holds[i] = dest.holdNonce(fmt.Sprintf("%d", i))
	}

	// Release holds one at a time, slowly enough that all 5 handlers would
	// have started already if concurrency were unbounded.
	go func() {
		for _, h := range holds {
			time.Sleep(20 * time.Millisecond)
			close(h)
		}
	}()

	p := relayer.NewPipeline(testPipelineConfig(2), src, dest, store, zap.NewNop())

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	runDone := make(chan error, 1)
	go func() { runDone <- p.Run(ctx) }()

	assert.Eventually(t, func() bool { return dest.callCount() == 5 }, 2*time.Second, 10*time.Millisecond)
	assert.LessOrEqual(t, dest.maxConcurrency(), int64(2))

	cancel()
	<-runDone
}

// TestS4DecodeFailureStopsCheckpointAdvance covers scenario S4: a malformed
// dest_token_address (length 31 instead of 32) fails the handler, and the
// pipeline must return a fatal error without ever writing a checkpoint.
func TestS4DecodeFailureStopsCheckpointAdvance(t *testing.T) {
	badEvent := crosschainTransferEvent(100, "1")
	badEvent.Fields["dest_token_address"] = seqValue(fullBytes32Seq(0x11)[:31]...)

	src := &fakeSource{finalizedHead: 100, events: map[uint32][]sourcechain.DecodedEvent{100: {badEvent}}}
	dest := newFakeDest()
	store := checkpoint.NewMemoryStore()

	p := relayer.NewPipeline(testPipelineConfig(2), src, dest, store, zap.NewNop())

	err := runUntilDone(t, p, 2*time.Second)
	require.Error(t, err)
	var target *relayer.MissingOrInvalidFieldError
	assert.ErrorAs(t, err, &target)

	_, ok, err := store.Get(checkpoint.Key("test-relayer", checkpoint.ChainKey))
	require.NoError(t, err)
	assert.False(t, ok, "checkpoint must not advance past block 99 on decode failure")
}

// TestS6IgnoredEventKindStillAdvancesCheckpoint covers scenario S6: an event
// whose name does not match CrosschainTransferRequest produces no
// destination call, but the block's waiter still completes and the
// checkpoint still advances.
func TestS6IgnoredEventKindStillAdvancesCheckpoint(t *testing.T) {
	otherEvent := sourcechain.DecodedEvent{
		Name:   "Something_Else",
		Fields: map[string]sourcechain.Value{},
		Block:  sourcechain.BlockDetails{BlockNumber: 100, BlockHash: blockHash(100)},
	}

	src := &fakeSource{finalizedHead: 100, events: map[uint32][]sourcechain.DecodedEvent{100: {otherEvent}}}
	dest := newFakeDest()
	store := checkpoint.NewMemoryStore()

	p := relayer.NewPipeline(testPipelineConfig(2), src, dest, store, zap.NewNop())
	err := runUntilDone(t, p, 2*time.Second)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	assert.Equal(t, 0, dest.callCount())

	value, ok, err := store.Get(checkpoint.Key("test-relayer", checkpoint.ChainKey))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, uint32(100), value)
}
