package relayer

import (
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// requestHashArgs mirrors the ethers-rs abi::encode(&[Token::Uint,
// Token::FixedBytes, Token::Uint, Token::FixedBytes, Token::Uint]) call in
// original_source's listeners/azero.rs: committee_id, dest_token_address,
// amount, dest_receiver_address, request_nonce, each fixed-width 32-byte
// padded (NOT tightly packed) so the Go and Rust hashes agree bit for bit.
var requestHashArgs = abi.Arguments{
	{Type: mustType("uint256")},
	{Type: mustType("bytes32")},
	{Type: mustType("uint256")},
	{Type: mustType("bytes32")},
	{Type: mustType("uint256")},
}

func mustType(name string) abi.Type {
	t, err := abi.NewType(name, "", nil)
	if err != nil {
		panic("relayer: invalid ABI type " + name + ": " + err.Error())
	}
	return t
}

// RequestHash computes keccak256(abi_encode([committee_id, dest_token_address,
// amount, dest_receiver_address, request_nonce])), the value the bridge
// contract's receive_request call authenticates against.
func RequestHash(committeeID *big.Int, req CrosschainTransferRequest) (common.Hash, error) {
	encoded, err := requestHashArgs.Pack(
		committeeID,
		req.DestTokenAddress,
		req.Amount,
		req.DestReceiverAddress,
		req.RequestNonce,
	)
	if err != nil {
		return common.Hash{}, err
	}

	return crypto.Keccak256Hash(encoded), nil
}
