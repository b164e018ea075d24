package memory

import (
	"sync"

	"cosmossdk.io/math"
	"github.com/ethereum/go-ethereum/common"

	"github.com/rwax/earnpool/pool/store"
)

// New implements an ephemeral in-memory store. Useful for testing and for
// running a pool as a pure simulation.
func New() *memoryStore {
	return &memoryStore{
		state:     store.ZeroPoolState(),
		adapter:   store.ZeroAdapterState(),
		shares:    map[common.Address]math.Int{},
		requests:  map[common.Address][]store.WithdrawalRequest{},
		batches:   map[uint64]math.Int{},
		whitelist: map[common.Address]bool{},
	}
}

// Assert Store implementation
var _ store.Store = &memoryStore{}

type memoryStore struct {
	mu sync.Mutex

	state   store.PoolState
	adapter store.AdapterState

	// Share balances
	shares map[common.Address]math.Int

	// Per-account withdrawal queues, append-ordered
	requests map[common.Address][]store.WithdrawalRequest

	// Batch ledger: batch id -> total owed
	batches map[uint64]math.Int

	whitelist map[common.Address]bool
}

func (s *memoryStore) PoolState() (store.PoolState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state, nil
}

func (s *memoryStore) SetPoolState(state store.PoolState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = state
	return nil
}

func (s *memoryStore) SharesOf(account common.Address) (math.Int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if b, ok := s.shares[account]; ok {
		return b, nil
	}
	return math.ZeroInt(), nil
}

func (s *memoryStore) SetShares(account common.Address, shares math.Int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if shares.IsZero() {
		delete(s.shares, account)
		return nil
	}
	s.shares[account] = shares
	return nil
}

func (s *memoryStore) EachShareholder(fn func(account common.Address, shares math.Int) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for account, shares := range s.shares {
		if err := fn(account, shares); err != nil {
			return err
		}
	}
	return nil
}

func (s *memoryStore) Requests(account common.Address) ([]store.WithdrawalRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	queue := s.requests[account]
	r := make([]store.WithdrawalRequest, len(queue))
	copy(r, queue)
	return r, nil
}

func (s *memoryStore) AppendRequest(account common.Address, r store.WithdrawalRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests[account] = append(s.requests[account], r)
	return nil
}

// RemoveRequest swaps the request at index with the last entry and pops it.
func (s *memoryStore) RemoveRequest(account common.Address, index int) (store.WithdrawalRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	queue := s.requests[account]
	if index < 0 || index >= len(queue) {
		return store.WithdrawalRequest{}, store.ErrInvalidIndex
	}
	removed := queue[index]
	queue[index] = queue[len(queue)-1]
	queue = queue[:len(queue)-1]
	if len(queue) == 0 {
		delete(s.requests, account)
	} else {
		s.requests[account] = queue
	}
	return removed, nil
}

func (s *memoryStore) BatchTotal(id uint64) (math.Int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.batches[id]; ok {
		return t, nil
	}
	return math.ZeroInt(), nil
}

func (s *memoryStore) AddBatchTotal(id uint64, amount math.Int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	total, ok := s.batches[id]
	if !ok {
		total = math.ZeroInt()
	}
	s.batches[id] = total.Add(amount)
	return nil
}

func (s *memoryStore) IsWhitelisted(account common.Address) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.whitelist[account], nil
}

func (s *memoryStore) SetWhitelisted(account common.Address, ok bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ok {
		s.whitelist[account] = true
	} else {
		delete(s.whitelist, account)
	}
	return nil
}

func (s *memoryStore) WhitelistSize() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.whitelist), nil
}

func (s *memoryStore) AdapterState() (store.AdapterState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.adapter, nil
}

func (s *memoryStore) SetAdapterState(state store.AdapterState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.adapter = state
	return nil
}

// Stats returns aggregate statistics about the store state.
func (s *memoryStore) Stats() (*store.Stats, error) {
	stats := store.Stats{
		TotalShares: math.ZeroInt(),
		AmountOwed:  math.ZeroInt(),
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, shares := range s.shares {
		stats.CountShares(shares)
	}
	for _, queue := range s.requests {
		for _, r := range queue {
			stats.CountRequest(r)
		}
	}
	return &stats, nil
}

func (s *memoryStore) Close() error {
	return nil
}
