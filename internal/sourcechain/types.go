// Package sourcechain implements the source (AlephZero-style, Substrate
// family) chain client described in SPEC_FULL.md section 4.2 (component
// C2): finalized-block discovery, per-block raw event retrieval, and
// contract-metadata-driven event filtering.
package sourcechain

import "encoding/hex"

// Hash is a 32-byte block or extrinsic hash.
type Hash [32]byte

// String renders the hash as "0x"-prefixed hex.
func (h Hash) String() string {
	return "0x" + hex.EncodeToString(h[:])
}

// BlockDetails identifies the block a decoded event originated from,
// per spec.md section 3.
type BlockDetails struct {
	BlockNumber uint32
	BlockHash   Hash
}

// ValueKind tags the shape of a decoded contract event field, mirroring the
// aleph-client "Value" enum used by original_source's contracts/azero.rs
// (Value::Seq / Value::UInt).
type ValueKind int

const (
	// KindUInt is a single unsigned integer field (e.g. amount, request_nonce).
	KindUInt ValueKind = iota
	// KindSeq is a sequence of unsigned integers (e.g. a bytes32 field
	// encoded as 32 individual byte-sized integers).
	KindSeq
)

// Value is a tagged union matching the two field shapes the bridge contract
// emits: a bare integer (kept as a decimal string since the contract's u128
// fields overflow uint64), or a sequence of byte-sized integers (a bytes32
// field transcoded element by element).
type Value struct {
	Kind ValueKind
	UInt string   // decimal string, valid when Kind == KindUInt
	Seq  []uint64 // valid when Kind == KindSeq
}

// DecodedEvent is one contract event decoded against the source contract's
// metadata, filtered to the configured contract address, per spec.md
// section 4.2's filter_contract_events.
type DecodedEvent struct {
	Name   string
	Fields map[string]Value
	Block  BlockDetails
}
