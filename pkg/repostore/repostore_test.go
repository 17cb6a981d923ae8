package repostore

import (
	"path/filepath"
	"testing"
	"time"

	git "github.com/go-git/go-git/v5"
	"github.com/stretchr/testify/require"

	"github.com/gitgraft/gitgraft/pkg/address"
	"github.com/gitgraft/gitgraft/pkg/gitio"
)

func testCRA(t *testing.T) *address.Result {
	t.Helper()
	r, err := address.NormalizeSync("1234567890123456789012345678901234567890123456789012345678901234/myrepo")
	require.NoError(t, err)
	return r
}

func newTestStore(t *testing.T) *RepoStore {
	t.Helper()
	s, err := New(t.TempDir(), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSetGetDeleteCacheEntry(t *testing.T) {
	s := newTestStore(t)
	cra := testCRA(t)

	entry := CacheEntry{HeadCommit: "abc", DataLevel: DataLevelShallow, CloneURLs: []string{"https://example.com/r.git"}}
	require.NoError(t, s.SetCacheEntry(cra.CanonicalAddress, entry))

	got, found, err := s.GetCacheEntry(cra.CanonicalAddress)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "abc", got.HeadCommit)

	require.NoError(t, s.DeleteCacheEntry(cra.CanonicalAddress))
	_, found, err = s.GetCacheEntry(cra.CanonicalAddress)
	require.NoError(t, err)
	require.False(t, found)
}

func TestNeedsUpdateMissingCacheNoURLsIsTrue(t *testing.T) {
	s := newTestStore(t)
	cra := testCRA(t)

	needs, err := s.NeedsUpdate(nil, cra, nil, nil, time.Now())
	require.NoError(t, err)
	require.True(t, needs)
}

func TestNeedsUpdateFreshCacheNoURLsIsFalse(t *testing.T) {
	s := newTestStore(t)
	cra := testCRA(t)

	cached := &CacheEntry{HeadCommit: "abc", LastUpdated: time.Now()}
	needs, err := s.NeedsUpdate(nil, cra, nil, cached, time.Now())
	require.NoError(t, err)
	require.False(t, needs)
}

func TestNeedsUpdateStaleCacheIsTrue(t *testing.T) {
	s := newTestStore(t)
	cra := testCRA(t)

	cached := &CacheEntry{HeadCommit: "abc", LastUpdated: time.Now().Add(-2 * NeedsUpdateStaleAge)}
	needs, err := s.NeedsUpdate(nil, cra, nil, cached, time.Now())
	require.NoError(t, err)
	require.True(t, needs)
}

func TestResolveBranchFallsBackWhenRequestedMissing(t *testing.T) {
	dir := t.TempDir()
	raw, err := git.PlainInit(dir, false)
	require.NoError(t, err)
	r, err := gitio.Open(dir, nil)
	require.NoError(t, err)
	_ = raw

	require.NoError(t, r.WriteFile("a.txt", []byte("x")))
	_, err = r.Commit("c1", "Test", "test@example.com")
	require.NoError(t, err)

	resolved, err := ResolveBranch(r, "does-not-exist")
	require.NoError(t, err)
	require.NotEmpty(t, resolved)
}

func TestMonotonicUpgradeNeverDowngrades(t *testing.T) {
	require.Equal(t, DataLevelFull, monotonicUpgrade(DataLevelShallow, DataLevelFull))
	require.Equal(t, DataLevelFull, monotonicUpgrade(DataLevelFull, DataLevelShallow))
}

func TestUpsertBranchReplacesExisting(t *testing.T) {
	branches := []BranchRef{{Name: "main", Commit: "a"}}
	branches = upsertBranch(branches, "main", "b")
	require.Len(t, branches, 1)
	require.Equal(t, "b", branches[0].Commit)

	branches = upsertBranch(branches, "dev", "c")
	require.Len(t, branches, 2)
}

func TestDirForUsesFilesystemKey(t *testing.T) {
	s := newTestStore(t)
	cra := testCRA(t)
	dir := s.dirFor(cra)
	require.Equal(t, filepath.Join(s.root, address.FilesystemKey(cra)), dir)
}
