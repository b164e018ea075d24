// Package otc relays funds between the settlement adapter and an
// over-the-counter counterparty wallet. It keeps no exposure accounting on
// the ledger: reconciliation of outstanding OTC positions happens off
// system, and the manager only enforces who may move funds in which
// direction.
package otc

import (
	"io"
	"log"
	"sync"

	"cosmossdk.io/errors"
	"cosmossdk.io/math"
	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"

	"github.com/rwax/earnpool/auth"
	"github.com/rwax/earnpool/token"
)

var (
	ErrNotAdapter    = errors.Register("otc", 2, "caller is not the adapter")
	ErrInvalidAmount = errors.Register("otc", 3, "invalid amount")
	ErrZeroAddress   = errors.Register("otc", 4, "zero address")
)

var logger *log.Logger

// SetLogger overrides the logger output for this package.
func SetLogger(w io.Writer) {
	flags := log.Flags()
	prefix := "[otc] "
	logger = log.New(w, prefix, flags)
}

func init() {
	SetLogger(io.Discard)
}

// Manager is a thin two-way conduit. SwapToken sends adapter funds out to
// the OTC wallet, TransferToAdapter returns manager-custodied funds.
type Manager struct {
	mu      sync.Mutex
	perm    auth.Oracle
	self    common.Address
	adapter common.Address
	wallet  common.Address
}

func New(perm auth.Oracle, self, adapter, wallet common.Address) (*Manager, error) {
	if self == (common.Address{}) || adapter == (common.Address{}) || wallet == (common.Address{}) {
		return nil, ErrZeroAddress
	}
	return &Manager{
		perm:    perm,
		self:    self,
		adapter: adapter,
		wallet:  wallet,
	}, nil
}

// Address returns the manager's own account. The adapter grants it an
// allowance before calling SwapToken.
func (m *Manager) Address() common.Address {
	return m.self
}

// SwapToken pulls amount of tok from the adapter and forwards it to the OTC
// wallet unconditionally. Only the adapter may call. Each transfer is logged
// with a reference id for off-system reconciliation.
func (m *Manager) SwapToken(caller common.Address, tok token.Token, amount math.Int) error {
	if caller != m.adapter {
		return errors.Wrapf(ErrNotAdapter, "caller %s", caller.Hex())
	}
	if amount.IsNil() || !amount.IsPositive() {
		return ErrInvalidAmount
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := tok.TransferFrom(m.self, m.adapter, m.wallet, amount); err != nil {
		return err
	}
	logger.Printf("ref %s: swapped %s %s from adapter to OTC wallet %s",
		uuid.New(), amount, tok.Symbol(), m.wallet.Hex())
	return nil
}

// TransferToAdapter returns amount of tok held by the manager to the
// adapter. Bot-only.
func (m *Manager) TransferToAdapter(caller common.Address, tok token.Token, amount math.Int) error {
	if err := m.perm.Require(caller, auth.RoleBot); err != nil {
		return err
	}
	if amount.IsNil() || !amount.IsPositive() {
		return ErrInvalidAmount
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := tok.Transfer(m.self, m.adapter, amount); err != nil {
		return err
	}
	logger.Printf("ref %s: returned %s %s to adapter", uuid.New(), amount, tok.Symbol())
	return nil
}
