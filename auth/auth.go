// Package auth provides the capability checks that gate every mutating
// entry point of the earn pool, the settlement adapter and the OTC manager.
// The ledger core treats authorization as an opaque collaborator: callers
// carry an account address, and the configured Oracle decides whether that
// address holds the required role.
package auth

import (
	"sync"

	"cosmossdk.io/errors"
	"github.com/ethereum/go-ethereum/common"
)

// Role is a capability required to invoke a gated operation.
type Role uint8

const (
	RoleAdmin Role = iota
	RoleManager
	RoleBot
	RolePauser
)

func (r Role) String() string {
	switch r {
	case RoleAdmin:
		return "admin"
	case RoleManager:
		return "manager"
	case RoleBot:
		return "bot"
	case RolePauser:
		return "pauser"
	}
	return "unknown"
}

var (
	ErrUnauthorized = errors.Register("auth", 2, "account does not hold required role")
	ErrZeroAddress  = errors.Register("auth", 3, "zero address")
)

// Oracle resolves whether an account holds a role. Implementations must be
// goroutine-safe.
type Oracle interface {
	Require(account common.Address, role Role) error
}

// Static is a map-backed Oracle. The admin account holds every role
// implicitly and is the only account allowed to grant or revoke.
type Static struct {
	mu     sync.RWMutex
	admin  common.Address
	grants map[common.Address]map[Role]bool
}

var _ Oracle = &Static{}

func NewStatic(admin common.Address) *Static {
	return &Static{
		admin:  admin,
		grants: map[common.Address]map[Role]bool{},
	}
}

// Require returns ErrUnauthorized unless account holds role.
func (s *Static) Require(account common.Address, role Role) error {
	if account == (common.Address{}) {
		return ErrZeroAddress
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if account == s.admin {
		return nil
	}
	if s.grants[account][role] {
		return nil
	}
	return errors.Wrapf(ErrUnauthorized, "%s is not %s", account.Hex(), role)
}

// Grant gives account the role. Only the admin may grant.
func (s *Static) Grant(caller, account common.Address, role Role) error {
	if account == (common.Address{}) {
		return ErrZeroAddress
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if caller != s.admin {
		return errors.Wrapf(ErrUnauthorized, "%s is not admin", caller.Hex())
	}
	roles, ok := s.grants[account]
	if !ok {
		roles = map[Role]bool{}
		s.grants[account] = roles
	}
	roles[role] = true
	return nil
}

// Revoke removes the role from account. Only the admin may revoke.
func (s *Static) Revoke(caller, account common.Address, role Role) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if caller != s.admin {
		return errors.Wrapf(ErrUnauthorized, "%s is not admin", caller.Hex())
	}
	delete(s.grants[account], role)
	return nil
}
