package adapter

import "cosmossdk.io/errors"

var (
	ErrInvalidAmount      = errors.Register("adapter", 2, "invalid amount")
	ErrZeroAddress        = errors.Register("adapter", 3, "zero address")
	ErrNothingToMint      = errors.Register("adapter", 4, "vault has no mintable shares")
	ErrNothingToRedeem    = errors.Register("adapter", 5, "vault has no redeemable shares")
	ErrEmptyPool          = errors.Register("adapter", 6, "pool has no shares outstanding")
	ErrVaultMisbehaved = errors.Register("adapter", 7, "vault balance delta mismatch")
	ErrUnknownToken    = errors.Register("adapter", 9, "token not managed by adapter")
	ErrNoOTC           = errors.Register("adapter", 10, "no OTC desk configured")
)
