package sourcechain

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/yourusername/mostrelay/internal/rpc"
)

// BlockProdTime is AlephZero's approximate block production interval, used
// to pace both the finalized-head poll loop and its idle backoff, grounded
// on original_source/relayer/src/listeners/azero.rs's
// ALEPH_BLOCK_PROD_TIME_SEC constant.
const BlockProdTime = 1 * time.Second

// Client is the source chain client described in spec.md section 4.2
// (component C2): finalized-block discovery and per-block contract event
// retrieval for a Substrate-family chain.
type Client interface {
	// GetFinalizedBlockHash returns the hash of the chain's current
	// finalized head.
	GetFinalizedBlockHash(ctx context.Context) (Hash, error)

	// GetBlockNumber returns the block number for a given block hash, or
	// ok=false if the chain has no block with that hash.
	GetBlockNumber(ctx context.Context, hash Hash) (number uint32, ok bool, err error)

	// GetBlockHash returns the hash of the block at the given number, or
	// ok=false if no such block is known (e.g. it has not been produced
	// yet).
	GetBlockHash(ctx context.Context, number uint32) (hash Hash, ok bool, err error)

	// EventsAt returns every contract event emitted within the block with
	// the given hash, already filtered to the configured contract address.
	EventsAt(ctx context.Context, hash Hash, blockNumber uint32) ([]DecodedEvent, error)
}

// WSClient implements Client over internal/rpc's Substrate-style JSON-RPC
// transport (chain_getFinalizedHead / chain_getHeader / chain_getBlockHash,
// plus most_getContractEvents for per-block contract events), generalized
// from the teacher's
// rpc.WebSocketRPCClient usage pattern in src/chainadapter/ethereum/rpc.go
// to Substrate's RPC method names.
type WSClient struct {
	rpc     rpc.Client
	log     *zap.Logger
	decoder *EventDecoder
}

// NewWSClient builds a source chain client, wiring decoder against the
// given contract address.
func NewWSClient(rpcClient rpc.Client, log *zap.Logger, contract ContractAddress) *WSClient {
	return &WSClient{
		rpc:     rpcClient,
		log:     log,
		decoder: NewEventDecoder(contract),
	}
}

func (c *WSClient) GetFinalizedBlockHash(ctx context.Context) (Hash, error) {
	raw, err := c.rpc.Call(ctx, "chain_getFinalizedHead", nil)
	if err != nil {
		return Hash{}, fmt.Errorf("sourcechain: chain_getFinalizedHead: %w", err)
	}

	var hexHash string
	if err := json.Unmarshal(raw, &hexHash); err != nil {
		return Hash{}, fmt.Errorf("sourcechain: decoding chain_getFinalizedHead response: %w", err)
	}

	return parseHash(hexHash)
}

func (c *WSClient) GetBlockNumber(ctx context.Context, hash Hash) (uint32, bool, error) {
	raw, err := c.rpc.Call(ctx, "chain_getHeader", []interface{}{hash.String()})
	if err != nil {
		return 0, false, fmt.Errorf("sourcechain: chain_getHeader: %w", err)
	}

	var header *struct {
		Number string `json:"number"`
	}
	if err := json.Unmarshal(raw, &header); err != nil {
		return 0, false, fmt.Errorf("sourcechain: decoding chain_getHeader response: %w", err)
	}
	if header == nil {
		return 0, false, nil
	}

	number, err := parseHexUint32(header.Number)
	if err != nil {
		return 0, false, fmt.Errorf("sourcechain: parsing block number %q: %w", header.Number, err)
	}

	return number, true, nil
}

func (c *WSClient) GetBlockHash(ctx context.Context, number uint32) (Hash, bool, error) {
	raw, err := c.rpc.Call(ctx, "chain_getBlockHash", []interface{}{number})
	if err != nil {
		return Hash{}, false, fmt.Errorf("sourcechain: chain_getBlockHash: %w", err)
	}

	var hexHash *string
	if err := json.Unmarshal(raw, &hexHash); err != nil {
		return Hash{}, false, fmt.Errorf("sourcechain: decoding chain_getBlockHash response: %w", err)
	}
	if hexHash == nil {
		return Hash{}, false, nil
	}

	hash, err := parseHash(*hexHash)
	if err != nil {
		return Hash{}, false, err
	}
	return hash, true, nil
}

func (c *WSClient) EventsAt(ctx context.Context, hash Hash, blockNumber uint32) ([]DecodedEvent, error) {
	raw, err := c.rpc.Call(ctx, "most_getContractEvents", []interface{}{hash.String(), c.decoder.contract.SS58})
	if err != nil {
		return nil, fmt.Errorf("sourcechain: most_getContractEvents: %w", err)
	}

	var rawEvents []json.RawMessage
	if err := json.Unmarshal(raw, &rawEvents); err != nil {
		return nil, fmt.Errorf("sourcechain: decoding most_getContractEvents response: %w", err)
	}

	details := BlockDetails{BlockNumber: blockNumber, BlockHash: hash}

	events := make([]DecodedEvent, 0, len(rawEvents))
	for _, raw := range rawEvents {
		event, ok, err := c.decoder.Decode(raw, details, c.log)
		if err != nil {
			return nil, err
		}
		if ok {
			events = append(events, event)
		}
	}
	return events, nil
}

// GetNextFinalizedBlockNumber blocks until the chain's finalized head is at
// or past notOlderThan, polling at BlockProdTime*10 intervals, ported from
// get_next_finalized_block_number_azero in
// original_source/relayer/src/listeners/azero.rs. RPC errors are logged and
// retried rather than returned, matching the original's "never give up"
// poll loop; only context cancellation stops it.
func GetNextFinalizedBlockNumber(ctx context.Context, c Client, log *zap.Logger, notOlderThan uint32) (uint32, error) {
	for {
		hash, err := c.GetFinalizedBlockHash(ctx)
		if err != nil {
			log.Warn("sourcechain: error getting finalized block hash", zap.Error(err))
		} else {
			number, ok, err := c.GetBlockNumber(ctx, hash)
			if err != nil {
				log.Warn("sourcechain: error getting finalized block number", zap.Error(err))
			} else if !ok {
				log.Warn("sourcechain: finalized block has no number", zap.String("hash", hash.String()))
			} else if number >= notOlderThan {
				return number, nil
			}
		}

		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		case <-time.After(10 * BlockProdTime):
		}
	}
}
