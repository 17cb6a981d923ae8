package cachekv

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type repoEntry struct {
	HeadCommit string `json:"headCommit"`
	DataLevel  string `json:"dataLevel"`
}

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestPutGetRoundTrip(t *testing.T) {
	s := openTestStore(t)
	entry := repoEntry{HeadCommit: "c1", DataLevel: "shallow"}
	require.NoError(t, s.Put("repos", "cra1", entry, time.Now()))

	var got repoEntry
	found, err := s.Get("repos", "cra1", &got)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, entry, got)
}

func TestGetMissingKeyReturnsFalse(t *testing.T) {
	s := openTestStore(t)
	var got repoEntry
	found, err := s.Get("repos", "nope", &got)
	require.NoError(t, err)
	require.False(t, found)
}

func TestStaleCleanupDropsOldEntriesOnly(t *testing.T) {
	s := openTestStore(t)
	old := time.Now().Add(-48 * time.Hour)
	require.NoError(t, s.Put("repos", "old-cra", repoEntry{HeadCommit: "c0"}, old))
	require.NoError(t, s.Put("repos", "fresh-cra", repoEntry{HeadCommit: "c1"}, time.Now()))

	require.NoError(t, s.StaleCleanup(time.Now().Add(-24*time.Hour)))

	var got repoEntry
	found, err := s.Get("repos", "old-cra", &got)
	require.NoError(t, err)
	require.False(t, found)

	found, err = s.Get("repos", "fresh-cra", &got)
	require.NoError(t, err)
	require.True(t, found)
}

func TestDeleteRemovesEntryAndIndex(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.Put("commits", "k1", repoEntry{HeadCommit: "c1"}, time.Now()))
	require.NoError(t, s.Delete("commits", "k1"))

	var got repoEntry
	found, err := s.Get("commits", "k1", &got)
	require.NoError(t, err)
	require.False(t, found)
}
