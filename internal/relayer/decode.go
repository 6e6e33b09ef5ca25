package relayer

import (
	"fmt"
	"math/big"

	"github.com/holiman/uint256"

	"github.com/yourusername/mostrelay/internal/sourcechain"
)

// MissingOrInvalidFieldError reports that a decoded event was missing a
// field, had the wrong shape, or (for Seq fields) contained an out-of-range
// element — a direct port of AzeroContractError::MissingOrInvalidField.
type MissingOrInvalidFieldError struct {
	Field  string
	Reason string
}

func (e *MissingOrInvalidFieldError) Error() string {
	return fmt.Sprintf("field %q: %s", e.Field, e.Reason)
}

// DecodeBytes32 extracts a 32-byte field from a Seq value, a direct port of
// decode_seq_field in original_source's contracts/azero.rs. Per Open
// Question 1, elements greater than 255 are rejected rather than truncated
// to a byte.
func DecodeBytes32(fields map[string]sourcechain.Value, name string) ([32]byte, error) {
	var out [32]byte

	v, ok := fields[name]
	if !ok || v.Kind != sourcechain.KindSeq {
		return out, &MissingOrInvalidFieldError{Field: name, Reason: "could not be found or has incorrect format"}
	}
	if len(v.Seq) != 32 {
		return out, &MissingOrInvalidFieldError{Field: name, Reason: "has incorrect length"}
	}

	for i, elem := range v.Seq {
		if elem > 255 {
			return out, &MissingOrInvalidFieldError{
				Field:  name,
				Reason: fmt.Sprintf("contains an element out of byte range at index %d: %d", i, elem),
			}
		}
		out[i] = byte(elem)
	}

	return out, nil
}

// DecodeU128 extracts an unsigned integer field, a direct port of
// decode_uint_field. The value is returned as *big.Int since the source
// field is a u128, which overflows uint64.
//
// The decimal string is first validated with uint256.FromDecimal, which
// rejects anything big.Int.SetString would otherwise accept but a u128
// field never legitimately contains: a minus sign, whitespace, or a
// magnitude beyond 256 bits.
func DecodeU128(fields map[string]sourcechain.Value, name string) (*big.Int, error) {
	v, ok := fields[name]
	if !ok || v.Kind != sourcechain.KindUInt {
		return nil, &MissingOrInvalidFieldError{Field: name, Reason: "could not be found or has incorrect format"}
	}

	n, err := uint256.FromDecimal(v.UInt)
	if err != nil {
		return nil, &MissingOrInvalidFieldError{Field: name, Reason: fmt.Sprintf("is not a valid unsigned decimal integer: %q", v.UInt)}
	}

	return n.ToBig(), nil
}

// DecodeCrosschainTransferRequest decodes the four CrosschainTransferRequest
// fields out of a raw event, a direct port of get_request_event_data.
func DecodeCrosschainTransferRequest(fields map[string]sourcechain.Value) (CrosschainTransferRequest, error) {
	destTokenAddress, err := DecodeBytes32(fields, "dest_token_address")
	if err != nil {
		return CrosschainTransferRequest{}, err
	}

	amount, err := DecodeU128(fields, "amount")
	if err != nil {
		return CrosschainTransferRequest{}, err
	}

	destReceiverAddress, err := DecodeBytes32(fields, "dest_receiver_address")
	if err != nil {
		return CrosschainTransferRequest{}, err
	}

	requestNonce, err := DecodeU128(fields, "request_nonce")
	if err != nil {
		return CrosschainTransferRequest{}, err
	}

	return CrosschainTransferRequest{
		DestTokenAddress:    destTokenAddress,
		Amount:              amount,
		DestReceiverAddress: destReceiverAddress,
		RequestNonce:        requestNonce,
	}, nil
}
