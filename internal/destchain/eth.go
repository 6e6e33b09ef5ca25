package destchain

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"sync"
	"time"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
	"go.uber.org/zap"

	"github.com/yourusername/mostrelay/internal/chainerr"
)

// BlockProdTime is Ethereum's approximate block production interval, used
// to pace confirmation and finality polling, mirroring the Rust original's
// ETH_BLOCK_PROD_TIME_SEC.
const BlockProdTime = 12 * time.Second

// EthClient wraps go-ethereum's ethclient.Client to submit and track
// receive_request transactions, grounded on the teacher's
// src/chainadapter/ethereum/rpc.go RPC helper patterns (eth_getTransactionCount
// and eth_gasPrice via the underlying ethclient equivalents) and the
// reference relayer.go's mutex-guarded nonce tracking and
// types.NewTx/types.SignTx submission flow. Gas is not estimated: every
// transaction uses the fixed gas limit given to NewEthClient.
type EthClient struct {
	eth             *ethclient.Client
	log             *zap.Logger
	privateKey      *ecdsa.PrivateKey
	fromAddress     common.Address
	contractAddress common.Address
	chainID         *big.Int
	gasLimit        uint64

	nonceMu   sync.Mutex
	nextNonce uint64
	nonceSet  bool

	observedMu sync.Mutex
	observed   map[common.Hash]bool
}

// NewEthClient dials rpcURL and derives the sending address from
// privateKeyHex (hex-encoded, no "0x" required).
func NewEthClient(ctx context.Context, rpcURL, privateKeyHex string, contractAddress common.Address, gasLimit uint64, log *zap.Logger) (*EthClient, error) {
	eth, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, chainerr.NewRetryable(chainerr.ErrCodeRPCUnavailable, "failed to dial destination RPC", err)
	}

	key, err := crypto.HexToECDSA(trimHexPrefix(privateKeyHex))
	if err != nil {
		return nil, chainerr.NewUserIntervention(chainerr.ErrCodeInvalidConfig, "invalid ETH_PRIVATE_KEY", err)
	}

	chainID, err := eth.ChainID(ctx)
	if err != nil {
		return nil, chainerr.NewRetryable(chainerr.ErrCodeRPCUnavailable, "failed to fetch destination chain id", err)
	}

	return &EthClient{
		eth:             eth,
		log:             log,
		privateKey:      key,
		fromAddress:     crypto.PubkeyToAddress(key.PublicKey),
		contractAddress: contractAddress,
		chainID:         chainID,
		gasLimit:        gasLimit,
		observed:        make(map[common.Hash]bool),
	}, nil
}

func trimHexPrefix(s string) string {
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		return s[2:]
	}
	return s
}

// ParseAddress parses a hex Ethereum address, rejecting malformed input
// instead of silently zero-padding it the way common.HexToAddress does.
func ParseAddress(hexAddress string) (common.Address, error) {
	if !common.IsHexAddress(hexAddress) {
		return common.Address{}, fmt.Errorf("destchain: invalid address %q", hexAddress)
	}
	return common.HexToAddress(hexAddress), nil
}

// SubmitCall implements Client, sending a receiveRequest transaction signed
// with the relayer's committee key.
func (c *EthClient) SubmitCall(ctx context.Context, params ReceiveRequestParams) (common.Hash, error) {
	data, err := mustParseMostABI().Pack("receiveRequest",
		params.RequestHash,
		params.CommitteeID,
		params.DestTokenAddress,
		params.Amount,
		params.DestReceiverAddress,
		params.RequestNonce,
	)
	if err != nil {
		return common.Hash{}, chainerr.NewNonRetryable(chainerr.ErrCodeRPCParse, "failed to ABI-encode receiveRequest call", err)
	}

	nonce, err := c.allocateNonce(ctx)
	if err != nil {
		return common.Hash{}, err
	}

	gasPrice, err := c.eth.SuggestGasPrice(ctx)
	if err != nil {
		return common.Hash{}, chainerr.NewRetryable(chainerr.ErrCodeRPCUnavailable, "failed to suggest gas price", err)
	}

	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		To:       &c.contractAddress,
		Value:    big.NewInt(0),
		Gas:      c.gasLimit,
		GasPrice: gasPrice,
		Data:     data,
	})

	signer := types.LatestSignerForChainID(c.chainID)
	signedTx, err := types.SignTx(tx, signer, c.privateKey)
	if err != nil {
		return common.Hash{}, chainerr.NewNonRetryable(chainerr.ErrCodeInvalidConfig, "failed to sign transaction", err)
	}

	if err := c.eth.SendTransaction(ctx, signedTx); err != nil {
		return common.Hash{}, chainerr.NewRetryable(chainerr.ErrCodeRPCUnavailable, "failed to broadcast transaction", err)
	}

	c.log.Info("destchain: submitted receiveRequest",
		zap.String("tx_hash", signedTx.Hash().Hex()),
		zap.Uint64("nonce", nonce))

	return signedTx.Hash(), nil
}

func (c *EthClient) allocateNonce(ctx context.Context) (uint64, error) {
	c.nonceMu.Lock()
	defer c.nonceMu.Unlock()

	if !c.nonceSet {
		nonce, err := c.eth.PendingNonceAt(ctx, c.fromAddress)
		if err != nil {
			return 0, chainerr.NewRetryable(chainerr.ErrCodeRPCUnavailable, "failed to fetch starting nonce", err)
		}
		c.nextNonce = nonce
		c.nonceSet = true
	}

	nonce := c.nextNonce
	c.nextNonce++
	return nonce, nil
}

// GetTransaction implements Client.
func (c *EthClient) GetTransaction(ctx context.Context, hash common.Hash) (*types.Transaction, *big.Int, bool, error) {
	tx, isPending, err := c.eth.TransactionByHash(ctx, hash)
	if err != nil {
		if err == ethereum.NotFound {
			c.markObserved(hash, false)
			return nil, nil, false, nil
		}
		return nil, nil, false, chainerr.NewRetryable(chainerr.ErrCodeRPCUnavailable, "failed to fetch transaction", err)
	}
	if isPending {
		c.markObserved(hash, true)
		return tx, nil, true, nil
	}

	receipt, err := c.eth.TransactionReceipt(ctx, hash)
	if err != nil {
		return nil, nil, false, chainerr.NewRetryable(chainerr.ErrCodeRPCUnavailable, "failed to fetch transaction receipt", err)
	}

	c.markObserved(hash, true)
	return tx, receipt.BlockNumber, true, nil
}

// markObserved records whether hash has been seen, and returns whether it
// had previously been observed before this call, per Open Question 3's
// resolution: only a transition from observed to not-found is fatal.
func (c *EthClient) markObserved(hash common.Hash, found bool) (wasObserved bool) {
	c.observedMu.Lock()
	defer c.observedMu.Unlock()

	wasObserved = c.observed[hash]
	if found {
		c.observed[hash] = true
	}
	return wasObserved
}

// WaitForConfirmations implements Client, porting ContractCall::send()
// .confirmations(n).retries(r) from original_source's azero.rs: poll for
// the transaction until it has minConfirmations confirmations. The
// transaction is never resubmitted. Once it has been observed (pending or
// mined), every later poll that no longer finds it uses up one of
// maxRetries; when none are left, ErrTxNotPresentInBlockOrMempool is
// returned.
func (c *EthClient) WaitForConfirmations(ctx context.Context, hash common.Hash, minConfirmations uint64, maxRetries int) error {
	retriesLeft := maxRetries

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(BlockProdTime):
		}

		_, blockNumber, found, err := c.GetTransaction(ctx, hash)
		if err != nil {
			c.log.Warn("destchain: error polling for transaction", zap.String("tx_hash", hash.Hex()), zap.Error(err))
			continue
		}

		if !found {
			wasObserved := c.markObserved(hash, false)
			if wasObserved {
				if retriesLeft <= 0 {
					return fmt.Errorf("destchain: %w: %s", ErrTxNotPresentInBlockOrMempool, hash.Hex())
				}
				retriesLeft--
				c.log.Warn("destchain: transaction dropped from mempool, retry budget decremented",
					zap.String("tx_hash", hash.Hex()), zap.Int("retries_left", retriesLeft))
			}
			continue
		}

		if blockNumber == nil {
			continue // still pending, not yet mined
		}

		head, err := c.eth.BlockNumber(ctx)
		if err != nil {
			c.log.Warn("destchain: error fetching head block number", zap.Error(err))
			continue
		}

		confirmations := head - blockNumber.Uint64() + 1
		if confirmations >= minConfirmations {
			return nil
		}
	}
}

// WaitForFinality implements Client, a direct port of
// wait_for_eth_tx_finality: poll the destination finalized head and the
// transaction's inclusion block, returning once the tx's block is at or
// behind the finalized head.
func (c *EthClient) WaitForFinality(ctx context.Context, hash common.Hash) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(BlockProdTime):
		}

		finalizedHead, err := c.GetNextFinalizedBlockNumber(ctx, 0)
		if err != nil {
			return err
		}

		_, blockNumber, found, err := c.GetTransaction(ctx, hash)
		if err != nil {
			c.log.Warn("destchain: error polling transaction for finality", zap.Error(err))
			continue
		}

		if !found {
			wasObserved := c.markObserved(hash, false)
			if wasObserved {
				return fmt.Errorf("destchain: %w: %s", ErrTxNotPresentInBlockOrMempool, hash.Hex())
			}
			continue
		}

		if blockNumber != nil && blockNumber.Uint64() <= finalizedHead {
			c.log.Info("destchain: transaction finalized", zap.String("tx_hash", hash.Hex()))
			return nil
		}
	}
}

// GetNextFinalizedBlockNumber blocks until the destination chain's
// finalized head is at or past notOlderThan, mirroring
// get_next_finalized_block_number_eth's polling contract.
func (c *EthClient) GetNextFinalizedBlockNumber(ctx context.Context, notOlderThan uint64) (uint64, error) {
	for {
		header, err := c.eth.HeaderByNumber(ctx, big.NewInt(int64(rpc.FinalizedBlockNumber)))
		if err != nil {
			c.log.Warn("destchain: error fetching finalized header", zap.Error(err))
		} else if header.Number.Uint64() >= notOlderThan {
			return header.Number.Uint64(), nil
		}

		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		case <-time.After(BlockProdTime):
		}
	}
}

var _ Client = (*EthClient)(nil)
