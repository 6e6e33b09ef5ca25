package relayer_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/yourusername/mostrelay/internal/relayer"
)

func TestPendingBlocksMinTracksLowest(t *testing.T) {
	p := relayer.NewPendingBlocks()

	_, ok := p.Min()
	assert.False(t, ok, "empty set has no minimum")

	p.Add(10)
	p.Add(5)
	p.Add(7)

	min, ok := p.Min()
	assert.True(t, ok)
	assert.Equal(t, uint32(5), min)

	p.Remove(5)
	min, ok = p.Min()
	assert.True(t, ok)
	assert.Equal(t, uint32(7), min)
}

func TestPendingBlocksNeverEmptyDuringHandoff(t *testing.T) {
	// Mirrors the pipeline's invariant: the next block number is added
	// before the current one is removed, so Min never observes an empty set.
	p := relayer.NewPendingBlocks()
	p.Add(1)

	p.Add(2) // next block added first
	p.Remove(1)

	min, ok := p.Min()
	assert.True(t, ok)
	assert.Equal(t, uint32(2), min)
}
