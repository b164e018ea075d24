package fakevault

import (
	"fmt"
	"sync"

	"cosmossdk.io/math"
	"github.com/ethereum/go-ethereum/common"

	"github.com/rwax/earnpool/token"
	"github.com/rwax/earnpool/vault"
)

type call struct {
	Method string
	Args   []interface{}
}

type Calls []call

func Call(method string, args ...interface{}) call {
	return call{method, args}
}

// Vault returns a fake async vault holding asset, priced 1:1 until
// SetSharePrice is called. Requests sit pending until Fulfill* moves them.
func Vault(self common.Address, asset token.Token) *FakeVault {
	return &FakeVault{
		self:            self,
		asset:           asset,
		priceNum:        math.OneInt(),
		priceDenom:      math.OneInt(),
		shares:          map[common.Address]math.Int{},
		pendingDeposit:  map[common.Address]math.Int{},
		claimableMint:   map[common.Address]math.Int{},
		pendingRedeem:   map[common.Address]math.Int{},
		claimableRedeem: map[common.Address]math.Int{},
		Calls:           Calls{},
	}
}

// FakeVault implements vault.AsyncVault with explicit fulfillment knobs so
// tests control when the two-phase protocol progresses. The share price is
// adjustable to simulate vault growth or loss.
type FakeVault struct {
	mu    sync.Mutex
	self  common.Address
	asset token.Token

	priceNum   math.Int
	priceDenom math.Int

	shares          map[common.Address]math.Int
	pendingDeposit  map[common.Address]math.Int
	claimableMint   map[common.Address]math.Int
	pendingRedeem   map[common.Address]math.Int
	claimableRedeem map[common.Address]math.Int

	Calls Calls
}

var _ vault.AsyncVault = &FakeVault{}

func (v *FakeVault) Address() common.Address { return v.self }

// SetSharePrice sets the asset value of one share as num/denom.
func (v *FakeVault) SetSharePrice(num, denom math.Int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.priceNum = num
	v.priceDenom = denom
}

// FulfillDeposits converts an account's pending deposit into mintable
// shares at the current price.
func (v *FakeVault) FulfillDeposits(account common.Address) {
	v.mu.Lock()
	defer v.mu.Unlock()
	pending := v.get(v.pendingDeposit, account)
	if !pending.IsPositive() {
		return
	}
	v.pendingDeposit[account] = math.ZeroInt()
	v.claimableMint[account] = v.get(v.claimableMint, account).Add(v.toShares(pending))
}

// FulfillRedeems makes an account's pending redemption claimable.
func (v *FakeVault) FulfillRedeems(account common.Address) {
	v.mu.Lock()
	defer v.mu.Unlock()
	pending := v.get(v.pendingRedeem, account)
	if !pending.IsPositive() {
		return
	}
	v.pendingRedeem[account] = math.ZeroInt()
	v.claimableRedeem[account] = v.get(v.claimableRedeem, account).Add(pending)
}

func (v *FakeVault) RequestDeposit(assets math.Int, controller, owner common.Address) (math.Int, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.Calls = append(v.Calls, Call("RequestDeposit", assets, controller, owner))
	if err := v.asset.TransferFrom(v.self, owner, v.self, assets); err != nil {
		return math.Int{}, err
	}
	v.pendingDeposit[controller] = v.get(v.pendingDeposit, controller).Add(assets)
	return v.toShares(assets), nil
}

func (v *FakeVault) MaxMint(account common.Address) math.Int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.get(v.claimableMint, account)
}

func (v *FakeVault) Mint(shares math.Int, receiver common.Address) (math.Int, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.Calls = append(v.Calls, Call("Mint", shares, receiver))
	claimable := v.get(v.claimableMint, receiver)
	if claimable.LT(shares) {
		return math.Int{}, fmt.Errorf("fakevault: %s mintable, %s requested", claimable, shares)
	}
	v.claimableMint[receiver] = claimable.Sub(shares)
	v.shares[receiver] = v.get(v.shares, receiver).Add(shares)
	return v.toAssets(shares), nil
}

func (v *FakeVault) RequestRedeem(shares math.Int, controller, owner common.Address) (math.Int, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.Calls = append(v.Calls, Call("RequestRedeem", shares, controller, owner))
	held := v.get(v.shares, owner)
	if held.LT(shares) {
		return math.Int{}, fmt.Errorf("fakevault: %s held, %s requested", held, shares)
	}
	v.shares[owner] = held.Sub(shares)
	v.pendingRedeem[controller] = v.get(v.pendingRedeem, controller).Add(shares)
	return shares, nil
}

func (v *FakeVault) MaxRedeem(account common.Address) math.Int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.get(v.claimableRedeem, account)
}

func (v *FakeVault) Redeem(shares math.Int, receiver, owner common.Address) (math.Int, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.Calls = append(v.Calls, Call("Redeem", shares, receiver, owner))
	claimable := v.get(v.claimableRedeem, owner)
	if claimable.LT(shares) {
		return math.Int{}, fmt.Errorf("fakevault: %s redeemable, %s requested", claimable, shares)
	}
	assets := v.toAssets(shares)
	if err := v.asset.Transfer(v.self, receiver, assets); err != nil {
		return math.Int{}, err
	}
	v.claimableRedeem[owner] = claimable.Sub(shares)
	return assets, nil
}

func (v *FakeVault) ConvertToAssets(shares math.Int) math.Int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.toAssets(shares)
}

func (v *FakeVault) ConvertToShares(assets math.Int) math.Int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.toShares(assets)
}

func (v *FakeVault) BalanceOf(account common.Address) math.Int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.get(v.shares, account)
}

func (v *FakeVault) toAssets(shares math.Int) math.Int {
	return shares.Mul(v.priceNum).Quo(v.priceDenom)
}

func (v *FakeVault) toShares(assets math.Int) math.Int {
	return assets.Mul(v.priceDenom).Quo(v.priceNum)
}

func (v *FakeVault) get(m map[common.Address]math.Int, account common.Address) math.Int {
	if amount, ok := m[account]; ok {
		return amount
	}
	return math.ZeroInt()
}
