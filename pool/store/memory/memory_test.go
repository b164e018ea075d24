package memory

import (
	"testing"

	"github.com/rwax/earnpool/pool/store"
)

func TestMemoryStore(t *testing.T) {
	store.TestSuite(t, func() store.Store {
		return New()
	})
}
