package badger

import (
	"encoding/binary"

	"cosmossdk.io/math"
	"github.com/dgraph-io/badger/v2"
	"github.com/ethereum/go-ethereum/common"

	"github.com/rwax/earnpool/pool/store"
)

var (
	statePoolKey    = []byte("ep:state")
	stateAdapterKey = []byte("ep:adapter")
	sharesPrefix    = []byte("ep:shares:")
	queuePrefix     = []byte("ep:queue:")
	batchPrefix     = []byte("ep:batch:")
	whitelistPrefix = []byte("ep:wl:")
)

func sharesKey(account common.Address) []byte {
	return append(append([]byte{}, sharesPrefix...), account.Bytes()...)
}

func queueKey(account common.Address) []byte {
	return append(append([]byte{}, queuePrefix...), account.Bytes()...)
}

func batchKey(id uint64) []byte {
	key := append([]byte{}, batchPrefix...)
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], id)
	return append(key, buf[:]...)
}

func whitelistKey(account common.Address) []byte {
	return append(append([]byte{}, whitelistPrefix...), account.Bytes()...)
}

// Open returns a store.Store implementation using Badger as the storage
// driver. The store should be .Close()'d after use.
func Open(opts badger.Options) (*badgerStore, error) {
	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}
	if err := MigrateLatest(db, opts.Dir); err != nil {
		db.Close()
		return nil, err
	}
	return &badgerStore{db: db}, nil
}

// Assert Store implementation
var _ store.Store = &badgerStore{}

type badgerStore struct {
	db *badger.DB
}

func (s *badgerStore) Close() error {
	return s.db.Close()
}

func (s *badgerStore) PoolState() (store.PoolState, error) {
	state := store.ZeroPoolState()
	err := s.db.View(func(txn *badger.Txn) error {
		var rec poolStateRec
		if err := getItem(txn, statePoolKey, &rec); err != nil {
			if err == badger.ErrKeyNotFound {
				return nil
			}
			return err
		}
		var err error
		state, err = decodePoolState(rec)
		return err
	})
	return state, err
}

func (s *badgerStore) SetPoolState(state store.PoolState) error {
	return s.db.Update(func(txn *badger.Txn) error {
		rec := encodePoolState(state)
		return setItem(txn, statePoolKey, &rec)
	})
}

func (s *badgerStore) SharesOf(account common.Address) (math.Int, error) {
	shares := math.ZeroInt()
	err := s.db.View(func(txn *badger.Txn) error {
		var rec string
		if err := getItem(txn, sharesKey(account), &rec); err != nil {
			if err == badger.ErrKeyNotFound {
				return nil
			}
			return err
		}
		var err error
		shares, err = parseInt(rec)
		return err
	})
	return shares, err
}

func (s *badgerStore) SetShares(account common.Address, shares math.Int) error {
	return s.db.Update(func(txn *badger.Txn) error {
		if shares.IsZero() {
			err := txn.Delete(sharesKey(account))
			if err == badger.ErrKeyNotFound {
				return nil
			}
			return err
		}
		rec := shares.String()
		return setItem(txn, sharesKey(account), &rec)
	})
}

func (s *badgerStore) EachShareholder(fn func(account common.Address, shares math.Int) error) error {
	return s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Seek(sharesPrefix); it.ValidForPrefix(sharesPrefix); it.Next() {
			item := it.Item()
			account := common.BytesToAddress(item.Key()[len(sharesPrefix):])
			var rec string
			if err := item.Value(func(val []byte) error {
				return decodeValue(val, &rec)
			}); err != nil {
				return err
			}
			shares, err := parseInt(rec)
			if err != nil {
				return err
			}
			if err := fn(account, shares); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *badgerStore) Requests(account common.Address) ([]store.WithdrawalRequest, error) {
	var queue []store.WithdrawalRequest
	err := s.db.View(func(txn *badger.Txn) error {
		var recs []requestRec
		if err := getItem(txn, queueKey(account), &recs); err != nil {
			if err == badger.ErrKeyNotFound {
				return nil
			}
			return err
		}
		var err error
		queue, err = decodeRequests(recs)
		return err
	})
	return queue, err
}

func (s *badgerStore) AppendRequest(account common.Address, r store.WithdrawalRequest) error {
	return s.db.Update(func(txn *badger.Txn) error {
		var recs []requestRec
		if err := getItem(txn, queueKey(account), &recs); err != nil && err != badger.ErrKeyNotFound {
			return err
		}
		recs = append(recs, encodeRequests([]store.WithdrawalRequest{r})...)
		return setItem(txn, queueKey(account), &recs)
	})
}

func (s *badgerStore) RemoveRequest(account common.Address, index int) (store.WithdrawalRequest, error) {
	var removed store.WithdrawalRequest
	err := s.db.Update(func(txn *badger.Txn) error {
		var recs []requestRec
		if err := getItem(txn, queueKey(account), &recs); err != nil && err != badger.ErrKeyNotFound {
			return err
		}
		if index < 0 || index >= len(recs) {
			return store.ErrInvalidIndex
		}
		var err error
		if removed, err = decodeRequestRec(recs[index]); err != nil {
			return err
		}
		recs[index] = recs[len(recs)-1]
		recs = recs[:len(recs)-1]
		if len(recs) == 0 {
			if err := txn.Delete(queueKey(account)); err != nil && err != badger.ErrKeyNotFound {
				return err
			}
			return nil
		}
		return setItem(txn, queueKey(account), &recs)
	})
	return removed, err
}

func (s *badgerStore) BatchTotal(id uint64) (math.Int, error) {
	total := math.ZeroInt()
	err := s.db.View(func(txn *badger.Txn) error {
		var rec string
		if err := getItem(txn, batchKey(id), &rec); err != nil {
			if err == badger.ErrKeyNotFound {
				return nil
			}
			return err
		}
		var err error
		total, err = parseInt(rec)
		return err
	})
	return total, err
}

func (s *badgerStore) AddBatchTotal(id uint64, amount math.Int) error {
	return s.db.Update(func(txn *badger.Txn) error {
		total := math.ZeroInt()
		var rec string
		if err := getItem(txn, batchKey(id), &rec); err != nil {
			if err != badger.ErrKeyNotFound {
				return err
			}
		} else {
			var err error
			if total, err = parseInt(rec); err != nil {
				return err
			}
		}
		rec = total.Add(amount).String()
		return setItem(txn, batchKey(id), &rec)
	})
}

func (s *badgerStore) IsWhitelisted(account common.Address) (bool, error) {
	var ok bool
	err := s.db.View(func(txn *badger.Txn) error {
		ok = hasKey(txn, whitelistKey(account))
		return nil
	})
	return ok, err
}

func (s *badgerStore) SetWhitelisted(account common.Address, ok bool) error {
	return s.db.Update(func(txn *badger.Txn) error {
		if !ok {
			err := txn.Delete(whitelistKey(account))
			if err == badger.ErrKeyNotFound {
				return nil
			}
			return err
		}
		return txn.Set(whitelistKey(account), []byte{1})
	})
}

func (s *badgerStore) WhitelistSize() (int, error) {
	n := 0
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Seek(whitelistPrefix); it.ValidForPrefix(whitelistPrefix); it.Next() {
			n++
		}
		return nil
	})
	return n, err
}

func (s *badgerStore) AdapterState() (store.AdapterState, error) {
	state := store.ZeroAdapterState()
	err := s.db.View(func(txn *badger.Txn) error {
		var rec adapterStateRec
		if err := getItem(txn, stateAdapterKey, &rec); err != nil {
			if err == badger.ErrKeyNotFound {
				return nil
			}
			return err
		}
		var err error
		state, err = decodeAdapterState(rec)
		return err
	})
	return state, err
}

func (s *badgerStore) SetAdapterState(state store.AdapterState) error {
	return s.db.Update(func(txn *badger.Txn) error {
		rec := encodeAdapterState(state)
		return setItem(txn, stateAdapterKey, &rec)
	})
}

// Stats returns aggregate statistics about the store state.
func (s *badgerStore) Stats() (*store.Stats, error) {
	stats := store.Stats{
		TotalShares: math.ZeroInt(),
		AmountOwed:  math.ZeroInt(),
	}
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Seek(sharesPrefix); it.ValidForPrefix(sharesPrefix); it.Next() {
			var rec string
			if err := it.Item().Value(func(val []byte) error {
				return decodeValue(val, &rec)
			}); err != nil {
				return err
			}
			shares, err := parseInt(rec)
			if err != nil {
				return err
			}
			stats.CountShares(shares)
		}
		for it.Seek(queuePrefix); it.ValidForPrefix(queuePrefix); it.Next() {
			var recs []requestRec
			if err := it.Item().Value(func(val []byte) error {
				return decodeValue(val, &recs)
			}); err != nil {
				return err
			}
			queue, err := decodeRequests(recs)
			if err != nil {
				return err
			}
			for _, r := range queue {
				stats.CountRequest(r)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &stats, nil
}
