package pool

import "cosmossdk.io/errors"

// Every rejection leaves the ledger untouched; callers are expected to
// correct the input or retry once the precondition clears.
var (
	ErrInvalidAmount   = errors.Register("earnpool", 2, "amount must be positive")
	ErrAmbiguousAmount = errors.Register("earnpool", 3, "exactly one of asset amount and share amount must be set")
	ErrZeroAddress     = errors.Register("earnpool", 4, "zero address")
	ErrNotWhitelisted  = errors.Register("earnpool", 5, "receiver is not whitelisted")
	ErrNotEnoughShares = errors.Register("earnpool", 6, "not enough shares")
	ErrNotAdapter      = errors.Register("earnpool", 7, "caller is not the adapter")
	ErrNotClaimable    = errors.Register("earnpool", 8, "withdrawal batch is not confirmed yet")
	ErrPaused          = errors.Register("earnpool", 9, "pool is paused")
	ErrNoChange        = errors.Register("earnpool", 10, "value already set")
	ErrAdapterNotSet   = errors.Register("earnpool", 11, "adapter is not configured")
)
