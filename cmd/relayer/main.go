// Command relayer runs the one-directional AlephZero-to-Ethereum bridge
// relayer described by SPEC_FULL.md, replacing the teacher's interactive
// cmd/arcsign entrypoint with a long-running process entrypoint: load
// configuration once, wire the chain clients and checkpoint store, and run
// the block pipeline until signalled to stop.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/yourusername/mostrelay/internal/checkpoint"
	"github.com/yourusername/mostrelay/internal/config"
	"github.com/yourusername/mostrelay/internal/destchain"
	"github.com/yourusername/mostrelay/internal/logging"
	"github.com/yourusername/mostrelay/internal/metrics"
	"github.com/yourusername/mostrelay/internal/relayer"
	"github.com/yourusername/mostrelay/internal/rpc"
	"github.com/yourusername/mostrelay/internal/sourcechain"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "relayer:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.FromEnv()
	if err != nil {
		return err
	}

	log, err := logging.New(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer log.Sync()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	metricsRecorder := metrics.NewInMemory()

	store, err := checkpoint.NewFileStore(cfg.CheckpointStorePath)
	if err != nil {
		return fmt.Errorf("relayer: failed to open checkpoint store: %w", err)
	}

	src, err := buildSourceClient(cfg, log, metricsRecorder)
	if err != nil {
		return fmt.Errorf("relayer: failed to build source chain client: %w", err)
	}

	dest, err := buildDestClient(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("relayer: failed to build destination chain client: %w", err)
	}

	pipelineCfg := relayer.PipelineConfig{
		Name:                 cfg.Name,
		DefaultSyncFromBlock: cfg.DefaultSyncFromBlockAzero,
		MaxEventHandlerTasks: int64(cfg.AzeroMaxEventHandlerTasks),
		EventHandler: relayer.EventHandlerConfig{
			CommitteeID:            cfg.CommitteeID,
			EthTxMinConfirmations:  cfg.EthTxMinConfirmations,
			EthTxSubmissionRetries: cfg.EthTxSubmissionRetries,
		},
		Metrics: metricsRecorder,
	}

	pipeline := relayer.NewPipeline(pipelineCfg, src, dest, store, log)

	log.Info("relayer: starting",
		zap.String("name", cfg.Name),
		zap.String("azero_rpc_url", cfg.AzeroRPCURL),
		zap.String("eth_rpc_url", cfg.EthRPCURL))

	if err := pipeline.Run(ctx); err != nil {
		if ctx.Err() != nil {
			log.Info("relayer: shutting down on signal")
			return nil
		}
		return fmt.Errorf("relayer: pipeline stopped: %w", err)
	}

	return nil
}

func buildSourceClient(cfg *config.Config, log *zap.Logger, metricsRecorder metrics.RelayerMetrics) (*sourcechain.WSClient, error) {
	health := rpc.NewCircuitBreaker()
	wsClient, err := rpc.NewWSClient(cfg.AzeroRPCURL, log.Named("source_rpc"), health)
	if err != nil {
		return nil, err
	}

	metricsClient := metrics.NewMetricsRPCClient(wsClient, metricsRecorder, "source")

	contract, err := sourcechain.ParseContractAddress(cfg.AzeroContractAddress)
	if err != nil {
		return nil, fmt.Errorf("invalid AZERO_CONTRACT_ADDRESS: %w", err)
	}

	return sourcechain.NewWSClient(metricsClient, log.Named("source"), contract), nil
}

func buildDestClient(ctx context.Context, cfg *config.Config, log *zap.Logger) (*destchain.EthClient, error) {
	contractAddress, err := destchain.ParseAddress(cfg.EthContractAddress)
	if err != nil {
		return nil, fmt.Errorf("invalid ETH_CONTRACT_ADDRESS: %w", err)
	}

	return destchain.NewEthClient(ctx, cfg.EthRPCURL, cfg.EthPrivateKeyHex, contractAddress, cfg.EthGasLimit, log.Named("dest"))
}
