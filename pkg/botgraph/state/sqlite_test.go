package state_test

import (
	"path/filepath"
	"testing"

	"github.com/randalmurphal/botgraph/pkg/botgraph/state"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSQLiteStore_Persistence(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "state.db")

	store1, err := state.NewSQLiteStore(dbPath)
	require.NoError(t, err)
	require.NoError(t, store1.Save("channel_filter", "allow|!a:x"))
	require.NoError(t, store1.Close())

	store2, err := state.NewSQLiteStore(dbPath)
	require.NoError(t, err)
	defer store2.Close()

	blob, err := store2.Load("channel_filter")
	require.NoError(t, err)
	assert.Equal(t, "allow|!a:x", blob)
}

func TestSQLiteStore_InvalidPath(t *testing.T) {
	_, err := state.NewSQLiteStore("/nonexistent/path/db.sqlite")
	assert.Error(t, err)
}
