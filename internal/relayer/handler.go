package relayer

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"go.uber.org/zap"

	"github.com/yourusername/mostrelay/internal/destchain"
	"github.com/yourusername/mostrelay/internal/metrics"
	"github.com/yourusername/mostrelay/internal/sourcechain"
)

// EventHandlerConfig carries the per-call parameters a handler needs,
// trimmed from the full relayer config.
type EventHandlerConfig struct {
	CommitteeID           *big.Int
	EthTxMinConfirmations uint64
	EthTxSubmissionRetries int
}

// HandleEvent implements the Event Handler (C5) of spec.md section 4.5: for
// a single decoded event, (1) check its name, (2) decode its fields, (3)
// compute its request hash, (4) submit the receive_request call, (5) wait
// for confirmations, (6) wait for destination finality. Any error is fatal
// to the caller; events whose name does not match are silently skipped,
// matching the `if name.eq("CrosschainTransferRequest")` guard in
// original_source's listeners/azero.rs handle_event.
func HandleEvent(ctx context.Context, cfg EventHandlerConfig, dest destchain.Client, log *zap.Logger, m metrics.RelayerMetrics, event sourcechain.DecodedEvent) error {
	if event.Name != "CrosschainTransferRequest" {
		return nil
	}

	start := time.Now()
	req, err := DecodeCrosschainTransferRequest(event.Fields)
	m.RecordEventStage("decode", time.Since(start), err == nil)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrDecodeFailed, err)
	}

	log.Info("relayer: decoded event",
		zap.String("dest_token_address", fmt.Sprintf("0x%x", req.DestTokenAddress)),
		zap.String("amount", req.Amount.String()),
		zap.String("dest_receiver_address", fmt.Sprintf("0x%x", req.DestReceiverAddress)),
		zap.String("request_nonce", req.RequestNonce.String()))

	requestHash, err := RequestHash(cfg.CommitteeID, req)
	if err != nil {
		return fmt.Errorf("relayer: failed to compute request hash: %w", err)
	}

	log.Debug("relayer: computed request hash", zap.String("request_hash", requestHash.Hex()))

	start = time.Now()
	txHash, err := dest.SubmitCall(ctx, destchain.ReceiveRequestParams{
		RequestHash:         requestHash,
		CommitteeID:         cfg.CommitteeID,
		DestTokenAddress:    req.DestTokenAddress,
		Amount:              req.Amount,
		DestReceiverAddress: req.DestReceiverAddress,
		RequestNonce:        req.RequestNonce,
	})
	m.RecordEventStage("submit", time.Since(start), err == nil)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrDestSubmissionFailed, err)
	}

	log.Info("relayer: sent receiveRequest transaction, waiting for confirmations",
		zap.String("tx_hash", txHash.Hex()),
		zap.Uint64("min_confirmations", cfg.EthTxMinConfirmations))

	start = time.Now()
	err = dest.WaitForConfirmations(ctx, txHash, cfg.EthTxMinConfirmations, cfg.EthTxSubmissionRetries)
	m.RecordEventStage("confirm", time.Since(start), err == nil)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrTxMissing, err)
	}

	log.Info("relayer: waiting for destination finality", zap.String("tx_hash", txHash.Hex()))

	start = time.Now()
	err = dest.WaitForFinality(ctx, txHash)
	m.RecordEventStage("finality", time.Since(start), err == nil)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrTxMissing, err)
	}

	log.Info("relayer: destination transaction finalized",
		zap.String("tx_hash", txHash.Hex()),
		zap.String("request_nonce", req.RequestNonce.String()))

	return nil
}
