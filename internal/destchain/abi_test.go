package destchain

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMostABIPacksReceiveRequest(t *testing.T) {
	mostABI := mustParseMostABI()

	data, err := mostABI.Pack("receiveRequest",
		[32]byte{1},
		big.NewInt(1),
		[32]byte{2},
		big.NewInt(1000),
		[32]byte{3},
		big.NewInt(7),
	)
	require.NoError(t, err)

	// 4-byte selector + 6 * 32-byte fixed-width arguments.
	assert.Len(t, data, 4+6*32)
}

func TestTrimHexPrefix(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "with 0x prefix", in: "0xabc123", want: "abc123"},
		{name: "with 0X prefix", in: "0Xabc123", want: "abc123"},
		{name: "without prefix", in: "abc123", want: "abc123"},
		{name: "too short for prefix", in: "a", want: "a"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, trimHexPrefix(tt.in))
		})
	}
}
