package relayer

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/yourusername/mostrelay/internal/checkpoint"
	"github.com/yourusername/mostrelay/internal/destchain"
	"github.com/yourusername/mostrelay/internal/metrics"
	"github.com/yourusername/mostrelay/internal/sourcechain"
)

// MaxRequestsPerBlock is the hard safety bound ported verbatim from
// original_source's ALEPH_MAX_REQUESTS_PER_BLOCK: more send_request calls
// than this in a single block indicates the benchmark backing this limit is
// outdated, and the pipeline aborts rather than silently degrade (Open
// Question 2).
const MaxRequestsPerBlock = 50

// PipelineConfig carries everything the Block Pipeline (C6) needs beyond
// its chain clients and checkpoint store.
type PipelineConfig struct {
	Name                 string
	DefaultSyncFromBlock uint32
	MaxEventHandlerTasks int64
	EventHandler         EventHandlerConfig

	// Metrics records RPC/pipeline health. Defaults to a no-op recorder if
	// left nil.
	Metrics metrics.RelayerMetrics
}

// Pipeline drives the Block Pipeline (C6) of spec.md section 4.6: it
// repeatedly discovers newly finalized source blocks, extracts and
// dispatches their events, and advances the checkpoint only once every
// block up to a point has been fully processed — generalized from
// AlephZeroListener::run/handle_events/handle_processed_block in
// original_source's listeners/azero.rs.
type Pipeline struct {
	cfg   PipelineConfig
	src   sourcechain.Client
	dest  destchain.Client
	store checkpoint.Store
	log   *zap.Logger

	sem     *semaphore.Weighted
	pending *PendingBlocks
	metrics metrics.RelayerMetrics

	errMu    sync.Mutex
	fatalErr error
	cancel   context.CancelFunc
}

// NewPipeline builds a Pipeline wired to the given chain clients and
// checkpoint store.
func NewPipeline(cfg PipelineConfig, src sourcechain.Client, dest destchain.Client, store checkpoint.Store, log *zap.Logger) *Pipeline {
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.NoOp{}
	}
	return &Pipeline{
		cfg:     cfg,
		src:     src,
		dest:    dest,
		store:   store,
		log:     log,
		sem:     semaphore.NewWeighted(cfg.MaxEventHandlerTasks),
		pending: NewPendingBlocks(),
		metrics: cfg.Metrics,
	}
}

// Run executes the pipeline's main loop until ctx is cancelled or a fatal
// error occurs. A fatal error from any event handler or finish-block
// goroutine cancels the pipeline's internal context immediately, so a
// blocking poll in progress (e.g. waiting on the next finalized block) is
// interrupted rather than left to hang past the failure, and the checkpoint
// invariant (never advance past a block with unprocessed events) holds.
func (p *Pipeline) Run(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	defer cancel()

	firstUnprocessed := checkpoint.ReadStartBlock(p.log, p.store, p.cfg.Name, checkpoint.ChainKey, p.cfg.DefaultSyncFromBlock)
	p.pending.Add(firstUnprocessed)

	for {
		toBlock, err := sourcechain.GetNextFinalizedBlockNumber(runCtx, p.src, p.log, firstUnprocessed)
		if err != nil {
			if fatal := p.fatal(); fatal != nil {
				return fatal
			}
			return err
		}

		p.log.Info("relayer: processing blocks",
			zap.Uint32("from", firstUnprocessed),
			zap.Uint32("to", toBlock))

		for blockNumber := firstUnprocessed; blockNumber <= toBlock; blockNumber++ {
			// Add the next block number now, so the pending set is never
			// empty between this block's removal and the next one's.
			p.pending.Add(blockNumber + 1)

			if err := p.processBlock(runCtx, blockNumber); err != nil {
				p.fail(err)
				return p.fatal()
			}
		}

		if fatal := p.fatal(); fatal != nil {
			return fatal
		}

		firstUnprocessed = toBlock + 1
	}
}

// fail records the first fatal error and cancels the pipeline's internal
// context so in-flight blocking calls unwind promptly.
func (p *Pipeline) fail(err error) {
	p.errMu.Lock()
	defer p.errMu.Unlock()
	if p.fatalErr == nil {
		p.fatalErr = err
		if p.cancel != nil {
			p.cancel()
		}
	}
}

func (p *Pipeline) fatal() error {
	p.errMu.Lock()
	defer p.errMu.Unlock()
	return p.fatalErr
}

func (p *Pipeline) processBlock(ctx context.Context, blockNumber uint32) error {
	hash, ok, err := p.src.GetBlockHash(ctx, blockNumber)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: block %d", ErrBlockNotFound, blockNumber)
	}

	events, err := p.src.EventsAt(ctx, hash, blockNumber)
	if err != nil {
		return err
	}
	if len(events) > MaxRequestsPerBlock {
		return fmt.Errorf("%w: block %d has %d events", ErrTooManyEventsInBlock, blockNumber, len(events))
	}

	var wg sync.WaitGroup
	for _, event := range events {
		if err := p.sem.Acquire(ctx, 1); err != nil {
			return err
		}

		wg.Add(1)
		go func(event sourcechain.DecodedEvent) {
			defer p.sem.Release(1)
			defer wg.Done()

			if err := HandleEvent(ctx, p.cfg.EventHandler, p.dest, p.log, p.metrics, event); err != nil {
				p.fail(fmt.Errorf("relayer: event handler failed for block %d: %w", blockNumber, err))
			}
		}(event)
	}

	go p.finishBlock(&wg, blockNumber)

	return nil
}

// finishBlock waits for every event handler task spawned for blockNumber to
// finish, then removes it from the pending set and advances the checkpoint
// to one less than the lowest still-pending block number, a direct port of
// handle_processed_block.
func (p *Pipeline) finishBlock(wg *sync.WaitGroup, blockNumber uint32) {
	wg.Wait()

	// p.fail is always called from the handler goroutine's body strictly
	// before its deferred wg.Done(), so a fatal error recorded for this
	// block (or an earlier one) is visible here before wg.Wait() returns.
	// Skip the checkpoint write rather than advance past an unacknowledged
	// block.
	if p.fatal() != nil {
		return
	}

	p.pending.Remove(blockNumber)

	earliestPending, ok := p.pending.Min()
	if !ok {
		p.fail(fmt.Errorf("relayer: pending block set unexpectedly empty after processing block %d", blockNumber))
		return
	}

	if err := checkpoint.WriteCheckpoint(p.store, p.cfg.Name, checkpoint.ChainKey, earliestPending-1); err != nil {
		p.fail(fmt.Errorf("%w: %w", ErrCheckpointWrite, err))
		return
	}

	p.metrics.RecordCheckpointAdvance(earliestPending - 1)
}
