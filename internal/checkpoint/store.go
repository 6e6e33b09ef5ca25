// Package checkpoint implements the durable "(instance_name, chain_key) ->
// last_fully_processed_block" mapping described in SPEC_FULL.md section 4.1
// (component C1). It generalizes the teacher's transaction-state key-value
// store (src/chainadapter/storage/{store,file,memory}.go) from a
// TxState-shaped value to a single uint32 checkpoint value, and replaces its
// methods with the free-function shape of the Rust original's
// redis_helpers.rs (read_first_unprocessed_block_number /
// write_last_processed_block), since the checkpoint store has exactly two
// operations rather than a general CRUD surface.
package checkpoint

import "go.uber.org/zap"

// Store is the minimal atomic get/set contract spec.md assumes of the
// external durable key-value store.
type Store interface {
	// Get returns the stored value for key, or ok=false if absent.
	Get(key string) (value uint32, ok bool, err error)

	// Set atomically stores value under key.
	Set(key string, value uint32) error
}

// ChainKey is the checkpoint key suffix for the AlephZero source chain,
// matching SPEC_FULL.md section 6.
const ChainKey = "alephzero_last_known_block_number"

// Key builds the full store key "{name}:{chainKey}" per spec.md section 3.
func Key(name, chainKey string) string {
	return name + ":" + chainKey
}

// ReadStartBlock returns stored+1 on success, or default on any error or
// absent key (logged as a warning) — spec.md section 4.1: "a fresh or
// corrupted store must never wedge the relayer; it restarts from default,
// and the destination contract deduplicates."
func ReadStartBlock(log *zap.Logger, store Store, name, chainKey string, def uint32) uint32 {
	value, ok, err := store.Get(Key(name, chainKey))
	if err != nil {
		log.Warn("checkpoint store read failed, starting from default",
			zap.String("name", name), zap.Uint32("default", def), zap.Error(err))
		return def
	}
	if !ok {
		log.Warn("no checkpoint found, starting from default",
			zap.String("name", name), zap.Uint32("default", def))
		return def
	}
	return value + 1
}

// WriteCheckpoint stores block under "{name}:{chainKey}". Errors are
// surfaced to the caller: per spec.md section 4.1 a write failure is fatal
// to the pipeline, since silently losing forward progress violates
// at-least-once delivery.
func WriteCheckpoint(store Store, name, chainKey string, block uint32) error {
	return store.Set(Key(name, chainKey), block)
}
