package sourcechain

import (
	"fmt"

	"github.com/vedhavyas/go-subkey"
)

// AlephZeroSS58Format is the SS58 address-format prefix AlephZero shares with
// its Substrate/Aleph parent chain.
const AlephZeroSS58Format = 42

// ContractAddress is a source-chain contract identifier: the 32-byte
// account ID a Substrate-family contract is addressed by, together with its
// SS58 string rendering.
type ContractAddress struct {
	AccountID [32]byte
	SS58      string
}

// ParseContractAddress decodes an SS58-encoded address string into its raw
// account ID, adapted from the teacher's sr25519/SS58 handling in
// internal/services/address/kusama.go (there used to derive and encode an
// address; here used in reverse, to decode the configured source contract
// address for use as an RPC filter key).
func ParseContractAddress(ss58 string) (ContractAddress, error) {
	_, pubKey, err := subkey.SS58Decode(ss58)
	if err != nil {
		return ContractAddress{}, fmt.Errorf("sourcechain: invalid SS58 contract address %q: %w", ss58, err)
	}
	if len(pubKey) != 32 {
		return ContractAddress{}, fmt.Errorf("sourcechain: SS58 contract address %q decodes to %d bytes, want 32", ss58, len(pubKey))
	}

	var accountID [32]byte
	copy(accountID[:], pubKey)

	return ContractAddress{AccountID: accountID, SS58: EncodeAlephZeroAddress(pubKey)}, nil
}

// EncodeAlephZeroAddress renders a 32-byte account ID as an AlephZero SS58
// address, mirroring DeriveKusamaAddress's subkey.SS58Encode call but with
// AlephZero's network format instead of Kusama's format 2.
func EncodeAlephZeroAddress(accountID []byte) string {
	return subkey.SS58Encode(accountID, AlephZeroSS58Format)
}
