package relayer_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/mostrelay/internal/relayer"
	"github.com/yourusername/mostrelay/internal/sourcechain"
)

func seqValue(bytes ...uint64) sourcechain.Value {
	return sourcechain.Value{Kind: sourcechain.KindSeq, Seq: bytes}
}

func uintValue(decimal string) sourcechain.Value {
	return sourcechain.Value{Kind: sourcechain.KindUInt, UInt: decimal}
}

func fullBytes32Seq(fill uint64) []uint64 {
	seq := make([]uint64, 32)
	for i := range seq {
		seq[i] = fill
	}
	return seq
}

func TestDecodeBytes32(t *testing.T) {
	t.Run("valid 32-byte sequence", func(t *testing.T) {
		fields := map[string]sourcechain.Value{
			"dest_token_address": seqValue(fullBytes32Seq(7)...),
		}
		out, err := relayer.DecodeBytes32(fields, "dest_token_address")
		require.NoError(t, err)
		for _, b := range out {
			assert.Equal(t, byte(7), b)
		}
	})

	t.Run("missing field", func(t *testing.T) {
		_, err := relayer.DecodeBytes32(map[string]sourcechain.Value{}, "dest_token_address")
		require.Error(t, err)
		var target *relayer.MissingOrInvalidFieldError
		require.ErrorAs(t, err, &target)
	})

	t.Run("wrong length", func(t *testing.T) {
		fields := map[string]sourcechain.Value{"f": seqValue(1, 2, 3)}
		_, err := relayer.DecodeBytes32(fields, "f")
		require.Error(t, err)
	})

	t.Run("out of byte range element is rejected, not truncated", func(t *testing.T) {
		seq := fullBytes32Seq(0)
		seq[0] = 300 // Open Question 1: reject, do not silently mask to a byte
		fields := map[string]sourcechain.Value{"f": seqValue(seq...)}
		_, err := relayer.DecodeBytes32(fields, "f")
		require.Error(t, err)
	})
}

func TestDecodeU128(t *testing.T) {
	t.Run("valid u128-range value", func(t *testing.T) {
		fields := map[string]sourcechain.Value{"amount": uintValue("340282366920938463463374607431768211455")}
		n, err := relayer.DecodeU128(fields, "amount")
		require.NoError(t, err)
		assert.Equal(t, "340282366920938463463374607431768211455", n.String())
	})

	t.Run("missing field", func(t *testing.T) {
		_, err := relayer.DecodeU128(map[string]sourcechain.Value{}, "amount")
		require.Error(t, err)
	})

	t.Run("non-decimal value", func(t *testing.T) {
		fields := map[string]sourcechain.Value{"amount": uintValue("not-a-number")}
		_, err := relayer.DecodeU128(fields, "amount")
		require.Error(t, err)
	})
}

func TestDecodeCrosschainTransferRequest(t *testing.T) {
	fields := map[string]sourcechain.Value{
		"dest_token_address":    seqValue(fullBytes32Seq(1)...),
		"amount":                uintValue("1000"),
		"dest_receiver_address": seqValue(fullBytes32Seq(2)...),
		"request_nonce":         uintValue("7"),
	}

	req, err := relayer.DecodeCrosschainTransferRequest(fields)
	require.NoError(t, err)
	assert.Equal(t, "1000", req.Amount.String())
	assert.Equal(t, "7", req.RequestNonce.String())
	assert.Equal(t, byte(1), req.DestTokenAddress[0])
	assert.Equal(t, byte(2), req.DestReceiverAddress[0])
}
