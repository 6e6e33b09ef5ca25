// Package relayer implements the event decoder, event handler, and block
// pipeline (components C4, C5, C6) described in SPEC_FULL.md sections
// 4.4-4.6, wiring the source and destination chain clients together.
package relayer

import "math/big"

// CrosschainTransferRequest is the decoded payload of a
// "CrosschainTransferRequest" contract event, a direct Go analogue of
// original_source's contracts/azero.rs CrosschainTransferRequestData.
type CrosschainTransferRequest struct {
	DestTokenAddress    [32]byte
	Amount              *big.Int
	DestReceiverAddress [32]byte
	RequestNonce        *big.Int
}
