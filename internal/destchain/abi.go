package destchain

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// mostABIJSON is the minimal ABI fragment for the "Most" bridge contract's
// receive_request entry point, matching the call built in original_source's
// contracts/azero.rs MostInstance::receive_request (request_hash,
// committee_id, dest_token_address, amount, dest_receiver_address,
// request_nonce).
const mostABIJSON = `[
	{
		"type": "function",
		"name": "receiveRequest",
		"stateMutability": "nonpayable",
		"inputs": [
			{"name": "requestHash", "type": "bytes32"},
			{"name": "committeeId", "type": "uint256"},
			{"name": "destTokenAddress", "type": "bytes32"},
			{"name": "amount", "type": "uint256"},
			{"name": "destReceiverAddress", "type": "bytes32"},
			{"name": "requestNonce", "type": "uint256"}
		],
		"outputs": []
	}
]`

func mustParseMostABI() abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(mostABIJSON))
	if err != nil {
		panic("destchain: invalid embedded ABI: " + err.Error())
	}
	return parsed
}
