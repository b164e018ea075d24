package badger

import (
	"os"
	"testing"

	"github.com/dgraph-io/badger/v2"
	"github.com/stretchr/testify/require"

	"github.com/rwax/earnpool/pool/store"
)

type badgerTemp struct {
	*badgerStore
	dir string
}

func (s badgerTemp) Close() error {
	defer os.RemoveAll(s.dir)
	return s.badgerStore.Close()
}

func openTemp(t *testing.T) badgerTemp {
	t.Helper()
	dir, err := os.MkdirTemp("", "earnpool-badger-test")
	require.NoError(t, err)

	opts := badger.DefaultOptions(dir)
	opts.Logger = nil
	s, err := Open(opts)
	require.NoError(t, err)
	return badgerTemp{s, dir}
}

func TestBadgerStore(t *testing.T) {
	store.TestSuite(t, func() store.Store {
		return openTemp(t)
	})
}

func TestBadgerVersion(t *testing.T) {
	s := openTemp(t)
	defer s.Close()

	err := s.db.View(func(txn *badger.Txn) error {
		version, err := getVersion(txn)
		require.NoError(t, err)
		require.Equal(t, dbVersion, version)
		return nil
	})
	require.NoError(t, err)
}
