// Package config loads the relayer's immutable startup configuration.
//
// Unlike the teacher's internal/app configuration (an encrypted JSON file
// holding interactive-wallet state), this relayer has no interactive user:
// it is a long-running process, so configuration is sourced from the
// environment once at startup and shared read-only for the process
// lifetime, per SPEC_FULL.md section 6.
package config

import (
	"fmt"
	"math/big"
	"os"
	"strconv"
)

// Config is the immutable, process-wide relayer configuration.
type Config struct {
	// Name identifies this relayer instance; used as the checkpoint key
	// prefix so multiple instances can share a store.
	Name string

	// Source chain (AlephZero-style).
	AzeroRPCURL              string
	AzeroContractAddress     string
	AzeroContractMetadata    string
	AzeroMaxEventHandlerTasks int
	AzeroRefTimeLimit         uint64
	AzeroProofSizeLimit       uint64
	DefaultSyncFromBlockAzero uint32

	// Destination chain (Ethereum-style).
	EthRPCURL               string
	EthContractAddress      string
	EthPrivateKeyHex        string
	EthGasLimit             uint64
	EthTxMinConfirmations   uint64
	EthTxSubmissionRetries  int

	// Committee vote carried in every receive_request call.
	CommitteeID *big.Int

	// Ambient.
	CheckpointStorePath string
	LogLevel            string
}

// FromEnv loads Config from environment variables once at startup,
// matching the "configuration read once at startup" lifecycle of
// SPEC_FULL.md section 3. NAME, AZERO_RPC_URL, AZERO_CONTRACT_ADDRESS,
// ETH_RPC_URL and ETH_CONTRACT_ADDRESS are required. CHECKPOINT_STORE_PATH
// defaults to "{NAME}.checkpoint.json", and the numeric keys and
// COMMITTEE_ID fall back to the defaults below when unset.
// AZERO_CONTRACT_METADATA, ETH_PRIVATE_KEY and LOG_LEVEL are read as given
// and not validated here.
func FromEnv() (*Config, error) {
	cfg := &Config{
		Name:                  os.Getenv("NAME"),
		AzeroRPCURL:           os.Getenv("AZERO_RPC_URL"),
		AzeroContractAddress:  os.Getenv("AZERO_CONTRACT_ADDRESS"),
		AzeroContractMetadata: os.Getenv("AZERO_CONTRACT_METADATA"),
		EthRPCURL:             os.Getenv("ETH_RPC_URL"),
		EthContractAddress:    os.Getenv("ETH_CONTRACT_ADDRESS"),
		EthPrivateKeyHex:      os.Getenv("ETH_PRIVATE_KEY"),
		CheckpointStorePath:   os.Getenv("CHECKPOINT_STORE_PATH"),
		LogLevel:              os.Getenv("LOG_LEVEL"),
	}

	if cfg.Name == "" {
		return nil, fmt.Errorf("config: NAME is required")
	}
	if cfg.AzeroRPCURL == "" {
		return nil, fmt.Errorf("config: AZERO_RPC_URL is required")
	}
	if cfg.AzeroContractAddress == "" {
		return nil, fmt.Errorf("config: AZERO_CONTRACT_ADDRESS is required")
	}
	if cfg.EthRPCURL == "" {
		return nil, fmt.Errorf("config: ETH_RPC_URL is required")
	}
	if cfg.EthContractAddress == "" {
		return nil, fmt.Errorf("config: ETH_CONTRACT_ADDRESS is required")
	}
	if cfg.CheckpointStorePath == "" {
		cfg.CheckpointStorePath = fmt.Sprintf("%s.checkpoint.json", cfg.Name)
	}

	var err error
	if cfg.AzeroMaxEventHandlerTasks, err = parseIntEnv("AZERO_MAX_EVENT_HANDLER_TASKS", "16"); err != nil {
		return nil, err
	}
	if cfg.AzeroRefTimeLimit, err = parseUint64Env("AZERO_REF_TIME_LIMIT", "100000000000"); err != nil {
		return nil, err
	}
	if cfg.AzeroProofSizeLimit, err = parseUint64Env("AZERO_PROOF_SIZE_LIMIT", "1000000"); err != nil {
		return nil, err
	}
	from, err := parseUint64Env("DEFAULT_SYNC_FROM_BLOCK_AZERO", "0")
	if err != nil {
		return nil, err
	}
	cfg.DefaultSyncFromBlockAzero = uint32(from)

	if cfg.EthGasLimit, err = parseUint64Env("ETH_GAS_LIMIT", "300000"); err != nil {
		return nil, err
	}
	if cfg.EthTxMinConfirmations, err = parseUint64Env("ETH_TX_MIN_CONFIRMATIONS", "12"); err != nil {
		return nil, err
	}
	if cfg.EthTxSubmissionRetries, err = parseIntEnv("ETH_TX_SUBMISSION_RETRIES", "3"); err != nil {
		return nil, err
	}

	committeeID, ok := new(big.Int).SetString(envOrDefault("COMMITTEE_ID", "0"), 10)
	if !ok {
		return nil, fmt.Errorf("config: COMMITTEE_ID must be a base-10 integer")
	}
	cfg.CommitteeID = committeeID

	return cfg, nil
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseIntEnv(key, def string) (int, error) {
	v, err := strconv.Atoi(envOrDefault(key, def))
	if err != nil {
		return 0, fmt.Errorf("config: %s must be an integer: %w", key, err)
	}
	return v, nil
}

func parseUint64Env(key, def string) (uint64, error) {
	v, err := strconv.ParseUint(envOrDefault(key, def), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("config: %s must be an unsigned integer: %w", key, err)
	}
	return v, nil
}
