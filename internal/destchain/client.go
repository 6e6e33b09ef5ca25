// Package destchain implements the destination (Ethereum-style) chain
// client described in SPEC_FULL.md section 4.3 (component C3).
package destchain

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// ReceiveRequestParams carries the five request fields the "Most" bridge
// contract's receive_request call takes, plus the hash computed over them
// by internal/relayer/hash.go.
type ReceiveRequestParams struct {
	RequestHash         common.Hash
	CommitteeID         *big.Int
	DestTokenAddress    [32]byte
	Amount              *big.Int
	DestReceiverAddress [32]byte
	RequestNonce        *big.Int
}

// Client is the destination chain client of spec.md section 4.3: submit a
// contract call, then observe it.
type Client interface {
	// SubmitCall sends a receive_request transaction and returns its hash.
	SubmitCall(ctx context.Context, params ReceiveRequestParams) (common.Hash, error)

	// GetTransaction looks up a submitted transaction by hash. found is
	// false when the node has never seen it (including "not yet
	// propagated"); callers distinguish that from "seen, then dropped" by
	// tracking whether a prior call returned found=true for the same hash.
	GetTransaction(ctx context.Context, hash common.Hash) (tx *types.Transaction, blockNumber *big.Int, found bool, err error)

	// WaitForConfirmations blocks until hash has at least minConfirmations
	// confirmations. It does not resubmit the transaction: if a transaction
	// that was already observed is no longer found, it keeps polling for at
	// most maxRetries further misses and then returns
	// ErrTxNotPresentInBlockOrMempool.
	WaitForConfirmations(ctx context.Context, hash common.Hash, minConfirmations uint64, maxRetries int) error

	// WaitForFinality blocks until hash's containing block is at or below
	// the destination chain's finalized head.
	WaitForFinality(ctx context.Context, hash common.Hash) error
}
