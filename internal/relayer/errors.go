package relayer

import "errors"

// Pipeline-fatal errors per spec.md section 7: the pipeline's error policy
// is binary (transient inside the two poll loops, fatal everywhere else),
// so these are plain wrapped errors rather than chainerr's three-way
// classification.
var (
	// ErrBlockNotFound is returned when a finalized block number has no
	// corresponding block hash.
	ErrBlockNotFound = errors.New("relayer: block not found")

	// ErrDecodeFailed wraps a MissingOrInvalidFieldError from decode.go.
	ErrDecodeFailed = errors.New("relayer: failed to decode event")

	// ErrDestSubmissionFailed is returned when submitting a receive_request
	// call to the destination chain fails.
	ErrDestSubmissionFailed = errors.New("relayer: destination submission failed")

	// ErrTxMissing is returned when a previously observed destination
	// transaction disappears (see destchain.ErrTxNotPresentInBlockOrMempool).
	ErrTxMissing = errors.New("relayer: destination transaction missing")

	// ErrCheckpointWrite is returned when persisting the checkpoint fails.
	ErrCheckpointWrite = errors.New("relayer: failed to write checkpoint")

	// ErrTooManyEventsInBlock is the hard abort of Open Question 2: more
	// than ALEPH_MAX_REQUESTS_PER_BLOCK events arrived in a single block.
	ErrTooManyEventsInBlock = errors.New("relayer: too many send_request calls in one block")
)
