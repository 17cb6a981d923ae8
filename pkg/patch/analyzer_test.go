package patch

import (
	"context"
	"path/filepath"
	"testing"

	git "github.com/go-git/go-git/v5"
	"github.com/stretchr/testify/require"

	"github.com/gitgraft/gitgraft/internal/cachekv"
	"github.com/gitgraft/gitgraft/pkg/gitio"
	"github.com/gitgraft/gitgraft/pkg/nevent"
)

func newTestRepo(t *testing.T) *gitio.Repo {
	t.Helper()
	dir := t.TempDir()
	_, err := git.PlainInit(dir, false)
	require.NoError(t, err)
	repo, err := gitio.Open(dir, nil)
	require.NoError(t, err)
	return repo
}

func newTestCache(t *testing.T) *cachekv.Store {
	t.Helper()
	s, err := cachekv.Open(filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestAnalyzeCleanPatchOnTopOfBase(t *testing.T) {
	repo := newTestRepo(t)
	require.NoError(t, repo.WriteFile("src/x.ts", []byte("line one\nline two\nline three\n")))
	baseOID, err := repo.Commit("base", "Test", "test@example.com")
	require.NoError(t, err)

	analyzer := NewAnalyzer(newTestCache(t))
	p := nevent.Patch{Commit: "not-an-ancestor", ParentCommit: baseOID, RawDiff: simpleModifyDiff}

	result, err := analyzer.Analyze(context.Background(), "cra1", "patch1", p, repo, "master")
	require.NoError(t, err)
	require.Equal(t, AnalysisClean, result.Analysis)
	require.True(t, result.CanMerge)
	require.False(t, result.HasConflicts)
}

func TestAnalyzeConflictingModifyReportsFile(t *testing.T) {
	repo := newTestRepo(t)
	require.NoError(t, repo.WriteFile("src/x.ts", []byte("totally different content\n")))
	baseOID, err := repo.Commit("base", "Test", "test@example.com")
	require.NoError(t, err)

	analyzer := NewAnalyzer(newTestCache(t))
	p := nevent.Patch{Commit: "not-an-ancestor", ParentCommit: baseOID, RawDiff: simpleModifyDiff}

	result, err := analyzer.Analyze(context.Background(), "cra1", "patch2", p, repo, "master")
	require.NoError(t, err)
	require.Equal(t, AnalysisConflicts, result.Analysis)
	require.True(t, result.HasConflicts)
	require.Contains(t, result.ConflictFiles, "src/x.ts")
}

func TestAnalyzeUpToDateWhenPatchCommitIsAncestor(t *testing.T) {
	repo := newTestRepo(t)
	require.NoError(t, repo.WriteFile("a.txt", []byte("x")))
	oid, err := repo.Commit("c1", "Test", "test@example.com")
	require.NoError(t, err)

	analyzer := NewAnalyzer(newTestCache(t))
	p := nevent.Patch{Commit: oid, RawDiff: addDiff}

	result, err := analyzer.Analyze(context.Background(), "cra1", "patch3", p, repo, "master")
	require.NoError(t, err)
	require.Equal(t, AnalysisUpToDate, result.Analysis)
	require.True(t, result.UpToDate)
}

func TestAlignHunkFindsShiftedContext(t *testing.T) {
	target := []string{"preamble", "line one", "line two", "line three"}
	h := Hunk{OldStart: 1, Lines: []Line{
		{Kind: LineContext, Content: "line one"},
		{Kind: LineRemove, Content: "line two"},
		{Kind: LineContext, Content: "line three"},
	}}
	require.True(t, alignHunk(target, h))
}

func TestAlignHunkFailsOutsideWindow(t *testing.T) {
	far := make([]string, 0, 20)
	for i := 0; i < 20; i++ {
		far = append(far, "filler")
	}
	far[15] = "needle"
	h := Hunk{OldStart: 1, Lines: []Line{{Kind: LineRemove, Content: "needle"}}}
	require.False(t, alignHunk(far, h))
}
