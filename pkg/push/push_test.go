package push

import (
	"context"
	"errors"
	"testing"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/stretchr/testify/require"

	"github.com/gitgraft/gitgraft/pkg/gitio"
)

func newBareRemote(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	_, err := git.PlainInit(dir, true)
	require.NoError(t, err)
	return dir
}

func newCloneWithOrigin(t *testing.T, remoteDir string) *gitio.Repo {
	t.Helper()
	dir := t.TempDir()
	repo, err := gitio.CloneFull(context.Background(), dir, remoteDir, "", nil)
	require.NoError(t, err)
	return repo
}

func seedRemote(t *testing.T, remoteDir string) {
	t.Helper()
	scratch := t.TempDir()
	raw, err := git.PlainInit(scratch, false)
	require.NoError(t, err)
	repo, err := gitio.Open(scratch, nil)
	require.NoError(t, err)
	require.NoError(t, repo.WriteFile("a.txt", []byte("x")))
	_, err = repo.Commit("c1", "Test", "test@example.com")
	require.NoError(t, err)

	rem, err := raw.CreateRemote(&config.RemoteConfig{Name: "seed", URLs: []string{remoteDir}})
	require.NoError(t, err)
	require.NoError(t, rem.Push(&git.PushOptions{
		RemoteName: "seed",
		RefSpecs:   []config.RefSpec{"refs/heads/master:refs/heads/master"},
	}))
}

func TestSafePushRejectsDirtyWorkingTree(t *testing.T) {
	remoteDir := newBareRemote(t)
	seedRemote(t, remoteDir)
	repo := newCloneWithOrigin(t, remoteDir)
	require.NoError(t, repo.WriteFile("uncommitted.txt", []byte("x")))

	c := NewCoordinator(repo, nil)
	_, err := c.SafePush(context.Background(), DefaultRemoteConfig(remoteDir, nil), "master")
	require.Error(t, err)
}

func TestSafePushRejectsShallowClone(t *testing.T) {
	remoteDir := newBareRemote(t)
	seedRemote(t, remoteDir)
	dir := t.TempDir()
	repo, err := gitio.CloneShallow(context.Background(), dir, remoteDir, "", nil)
	require.NoError(t, err)

	c := NewCoordinator(repo, nil)
	_, err = c.SafePush(context.Background(), DefaultRemoteConfig(remoteDir, nil), "master")
	require.Error(t, err)
}

func TestSafePushReturnsNeedsSyncWhenStale(t *testing.T) {
	remoteDir := newBareRemote(t)
	seedRemote(t, remoteDir)
	repo := newCloneWithOrigin(t, remoteDir)

	c := NewCoordinator(repo, func(ctx context.Context, remoteURL string) (bool, error) {
		return true, nil
	})
	_, err := c.SafePush(context.Background(), DefaultRemoteConfig(remoteDir, nil), "master")
	require.Error(t, err)
}

func TestLooksProtectedBranchRejectionMatchesKnownMessages(t *testing.T) {
	require.True(t, looksProtectedBranchRejection(errors.New("remote: pre-receive hook declined")))
	require.True(t, looksProtectedBranchRejection(errors.New("update rejected: protected branch")))
	require.False(t, looksProtectedBranchRejection(errors.New("connection reset")))
}

func TestIsRelayBackedDetectsWssScheme(t *testing.T) {
	require.True(t, isRelayBacked("wss://relay.example.com"))
	require.True(t, isRelayBacked("https://relay.example.com/repo.git"))
	require.False(t, isRelayBacked("https://github.com/acme/repo.git"))
}

func TestShortIDTruncates(t *testing.T) {
	require.Equal(t, "abcdefgh", shortID("abcdefghijkl"))
	require.Equal(t, "abc", shortID("abc"))
}
