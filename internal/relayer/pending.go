package relayer

import "sync"

// PendingBlocks is a mutex-guarded ordered set of block numbers still
// awaiting full event processing, a direct Go analogue of the
// Arc<Mutex<BTreeSet<u32>>> in original_source's listeners/azero.rs. No
// ordered-set library appears anywhere in the retrieved corpus, so this one
// piece is intentionally built on the standard library: a plain map plus a
// linear scan for the minimum keeps the implementation small, and the set
// size is bounded by in-flight blocks (at most a handful at a time), so the
// O(n) minimum scan costs nothing in practice.
type PendingBlocks struct {
	mu     sync.Mutex
	blocks map[uint32]struct{}
}

// NewPendingBlocks creates an empty set.
func NewPendingBlocks() *PendingBlocks {
	return &PendingBlocks{blocks: make(map[uint32]struct{})}
}

// Add inserts a block number into the set.
func (p *PendingBlocks) Add(blockNumber uint32) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.blocks[blockNumber] = struct{}{}
}

// Remove deletes a block number from the set.
func (p *PendingBlocks) Remove(blockNumber uint32) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.blocks, blockNumber)
}

// Min returns the lowest still-pending block number. ok is false if the set
// is empty, which should never happen while the pipeline is running: the
// invariant is that the next block number is always added before the
// current one is removed.
func (p *PendingBlocks) Min() (uint32, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	min, ok := uint32(0), false
	for b := range p.blocks {
		if !ok || b < min {
			min = b
			ok = true
		}
	}
	return min, ok
}
