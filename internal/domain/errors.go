package domain

import "errors"

// Parsing and validation failures. These are recovered close to where they
// happen: the row is dropped or the operation aborts without writing.
var (
	ErrUnparsableAmount    = errors.New("unparsable amount")
	ErrUnparsableDate      = errors.New("unparsable date")
	ErrUnrecognizedLayout  = errors.New("unrecognized CSV layout")
	ErrUnknownCategory     = errors.New("unknown category")
	ErrDuplicateCategory   = errors.New("duplicate category")
	ErrEmptyKeyword        = errors.New("empty keyword")
	ErrSplitMismatch       = errors.New("split amounts do not sum to the original amount")
	ErrTransactionNotFound = errors.New("transaction not found")
)

// Infrastructure failures. These always surface to the operator verbatim;
// nothing retries them.
var (
	ErrStoreUnavailable           = errors.New("store unavailable")
	ErrNotificationDeliveryFailed = errors.New("notification delivery failed")
)

// Import session failures.
var (
	ErrQueueNotDrained = errors.New("conflict queue not drained")
	ErrQueueIdle       = errors.New("no conflict is being presented")
	ErrSessionNotFound = errors.New("session not found")
	ErrStaleImport     = errors.New("ledger changed since the import was staged")
)
