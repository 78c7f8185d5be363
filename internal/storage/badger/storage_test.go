package badger

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/timshannon/badgerhold/v4"
)

// newTestDB opens a throwaway badger store in a temp directory.
func newTestDB(t *testing.T) *BadgerDB {
	t.Helper()

	dir := t.TempDir()
	options := badgerhold.DefaultOptions
	options.Dir = dir
	options.ValueDir = dir
	options.Logger = nil

	store, err := badgerhold.Open(options)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	return &BadgerDB{store: store, gcStop: make(chan struct{})}
}
