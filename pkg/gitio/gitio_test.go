package gitio

import (
	"os"
	"path/filepath"
	"testing"

	git "github.com/go-git/go-git/v5"
	"github.com/stretchr/testify/require"
)

func initTestRepo(t *testing.T) (*Repo, string) {
	t.Helper()
	dir := t.TempDir()
	raw, err := git.PlainInit(dir, false)
	require.NoError(t, err)
	return &Repo{dir: dir, repo: raw}, dir
}

func TestWriteFileCommitAndReadBlob(t *testing.T) {
	r, dir := initTestRepo(t)

	require.NoError(t, r.WriteFile("hello.txt", []byte("hi")))
	oid, err := r.Commit("initial commit", "Test", "test@example.com")
	require.NoError(t, err)
	require.NotEmpty(t, oid)

	content, err := r.ReadBlob(oid, "hello.txt")
	require.NoError(t, err)
	require.Equal(t, "hi", string(content))

	_ = os.Remove(filepath.Join(dir, ".gitkeep"))
}

func TestHasStagedChangesReflectsWorktree(t *testing.T) {
	r, _ := initTestRepo(t)
	clean, err := r.HasStagedChanges()
	require.NoError(t, err)
	require.False(t, clean)

	require.NoError(t, r.WriteFile("a.txt", []byte("x")))
	dirty, err := r.HasStagedChanges()
	require.NoError(t, err)
	require.True(t, dirty)
}

func TestIsAncestorSameCommit(t *testing.T) {
	r, _ := initTestRepo(t)
	require.NoError(t, r.WriteFile("a.txt", []byte("x")))
	oid, err := r.Commit("c1", "Test", "test@example.com")
	require.NoError(t, err)

	ok, err := r.IsAncestor(oid, oid)
	require.NoError(t, err)
	require.True(t, ok)
}
