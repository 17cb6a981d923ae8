package patch

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gitgraft/gitgraft/pkg/nevent"
	nsync "github.com/gitgraft/gitgraft/pkg/util/sync"
)

type stubPusher struct {
	results []PushResult
	err     error
}

func (s *stubPusher) PushAll(ctx context.Context, dir, localBranch string) ([]PushResult, error) {
	return s.results, s.err
}

func TestApplyAndPushAddsFileAndCommits(t *testing.T) {
	repo := newTestRepo(t)
	require.NoError(t, repo.WriteFile("keep.txt", []byte("keep")))
	_, err := repo.Commit("base", "Test", "test@example.com")
	require.NoError(t, err)

	pusher := &stubPusher{results: []PushResult{{RemoteURL: "origin", OK: true}}}
	applier := NewApplier(pusher, nsync.NewNamedLockMap())

	p := nevent.Patch{RawDiff: addDiff}
	result, err := applier.ApplyAndPush(context.Background(), "cra1", repo, p, "master", "apply patch", Author{Name: "Test", Email: "test@example.com"})
	require.NoError(t, err)
	require.True(t, result.Success)
	require.NotEmpty(t, result.MergeCommitOID)
	require.Contains(t, result.PushedRemotes, "origin")

	content, err := repo.ReadBlob(result.MergeCommitOID, "new.txt")
	require.NoError(t, err)
	require.Equal(t, "hello\nworld\n", string(content))
}

func TestApplyAndPushRejectsUnsupportedChange(t *testing.T) {
	repo := newTestRepo(t)
	require.NoError(t, repo.WriteFile("keep.txt", []byte("keep")))
	_, err := repo.Commit("base", "Test", "test@example.com")
	require.NoError(t, err)

	applier := NewApplier(nil, nsync.NewNamedLockMap())
	p := nevent.Patch{RawDiff: renameDiff}
	_, err = applier.ApplyAndPush(context.Background(), "cra1", repo, p, "master", "apply patch", Author{Name: "Test", Email: "test@example.com"})
	require.Error(t, err)
}

func TestApplyAndPushNoChangesErrors(t *testing.T) {
	repo := newTestRepo(t)
	require.NoError(t, repo.WriteFile("new.txt", []byte("hello\nworld\n")))
	_, err := repo.Commit("base", "Test", "test@example.com")
	require.NoError(t, err)

	applier := NewApplier(nil, nsync.NewNamedLockMap())
	p := nevent.Patch{RawDiff: addDiff}
	_, err = applier.ApplyAndPush(context.Background(), "cra1", repo, p, "master", "apply patch", Author{Name: "Test", Email: "test@example.com"})
	require.Error(t, err)
}

func TestApplyHunksRewritesModifiedLine(t *testing.T) {
	out, err := applyHunks("line one\nline two\nline three\n", []Hunk{{OldStart: 1, Lines: []Line{
		{Kind: LineContext, Content: "line one"},
		{Kind: LineRemove, Content: "line two"},
		{Kind: LineAdd, Content: "line TWO"},
		{Kind: LineContext, Content: "line three"},
	}}})
	require.NoError(t, err)
	require.Equal(t, "line one\nline TWO\nline three\n", out)
}
