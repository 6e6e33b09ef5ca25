package destchain

import "errors"

// ErrTxNotPresentInBlockOrMempool is returned when a transaction that was
// previously observed (pending or mined) is no longer found by the node,
// mirroring AzeroListenerError::TxNotPresentInBlockOrMempool.
var ErrTxNotPresentInBlockOrMempool = errors.New("destchain: transaction no longer present in block or mempool")
