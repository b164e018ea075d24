// Package vault defines the capability contract of the external
// asynchronous vault that the settlement adapter deposits into. Fulfillment
// is asynchronous and opaque: MaxMint and MaxRedeem become non-zero only
// after some external process acts on a prior request, so callers poll
// rather than assume synchronous completion.
package vault

import (
	"cosmossdk.io/math"
	"github.com/ethereum/go-ethereum/common"
)

// AsyncVault is the two-phase deposit/redeem interface. The adapter is both
// controller and owner of its own vault position.
type AsyncVault interface {
	// Address identifies the vault as a token spender: RequestDeposit pulls
	// the vault asset from owner via an allowance granted to this address.
	Address() common.Address

	// RequestDeposit enters assets into the deposit queue and returns the
	// share amount quoted at request time.
	RequestDeposit(assets math.Int, controller, owner common.Address) (math.Int, error)
	// MaxMint reports how many requested shares are ready to be minted.
	MaxMint(account common.Address) math.Int
	// Mint claims fulfilled shares and returns the assets they consumed.
	Mint(shares math.Int, receiver common.Address) (math.Int, error)

	// RequestRedeem enters shares into the redeem queue.
	RequestRedeem(shares math.Int, controller, owner common.Address) (math.Int, error)
	// MaxRedeem reports how many requested shares are ready to be redeemed.
	MaxRedeem(account common.Address) math.Int
	// Redeem burns fulfilled shares and pays out the vault asset.
	Redeem(shares math.Int, receiver, owner common.Address) (math.Int, error)

	ConvertToAssets(shares math.Int) math.Int
	ConvertToShares(assets math.Int) math.Int
	// BalanceOf returns the vault share balance of an account.
	BalanceOf(account common.Address) math.Int
}
