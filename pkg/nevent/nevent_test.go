package nevent

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeAnnouncementRoundTrip(t *testing.T) {
	cfg := Default()
	cfg.ValidateEvents = true

	a := Announcement{
		Identifier:  "repo",
		Name:        "My Repo",
		CloneURLs:   []string{"https://example.com/repo.git", "https://mirror.example.com/repo.git"},
		Maintainers: []string{"aaaa", "bbbb"},
	}
	ev, err := cfg.EncodeAnnouncement(a)
	require.NoError(t, err)

	got, err := cfg.DecodeAnnouncement(ev)
	require.NoError(t, err)
	assert.Equal(t, a.Identifier, got.Identifier)
	assert.Equal(t, a.Name, got.Name)
	assert.ElementsMatch(t, a.CloneURLs, got.CloneURLs)
	assert.ElementsMatch(t, a.Maintainers, got.Maintainers)
}

func TestEncodeAnnouncementRequiresIdentifier(t *testing.T) {
	cfg := Default()
	cfg.ValidateEvents = true
	_, err := cfg.EncodeAnnouncement(Announcement{})
	assert.Error(t, err)
}

func TestStateFusionRoundTrip(t *testing.T) {
	cfg := Default()
	s := State{
		Identifier: "repo",
		Refs:       map[string]string{"refs/heads/main": "c3"},
		Head:       "refs/heads/main",
	}
	ev, err := cfg.EncodeState(s)
	require.NoError(t, err)

	got, err := cfg.DecodeState(ev)
	require.NoError(t, err)
	assert.Equal(t, "c3", got.Refs["refs/heads/main"])
	assert.Equal(t, "refs/heads/main", got.Head)
}

func TestStatusKindRank(t *testing.T) {
	assert.Greater(t, StatusKindRank(KindStatusClosed), StatusKindRank(KindStatusApplied))
	assert.Greater(t, StatusKindRank(KindStatusApplied), StatusKindRank(KindStatusOpen))
	assert.Greater(t, StatusKindRank(KindStatusOpen), StatusKindRank(KindStatusDraft))
}

func TestPatchDecodeIsTolerantOfMissingParent(t *testing.T) {
	cfg := Default()
	p := Patch{CRA: "30617:aaaa:repo", Commit: "c1", Committer: "A <a@example.com> 1000 +0000", RawDiff: "diff --git a b"}
	ev, err := cfg.EncodePatch(p)
	require.NoError(t, err)

	got, err := cfg.DecodePatch(ev)
	require.NoError(t, err)
	assert.Empty(t, got.ParentCommit)
	assert.Equal(t, p.RawDiff, got.RawDiff)
}

func TestPatchDecodeSplitsSubjectAndDescription(t *testing.T) {
	cfg := Default()
	content := "Fix the thing\n\nIt was broken because of a race.\nSee also #42.\n\ndiff --git a/x.go b/x.go\n--- a/x.go\n+++ b/x.go\n"
	p := Patch{CRA: "30617:aaaa:repo", Commit: "c1", Committer: "A <a@example.com> 1000 +0000", RawDiff: content}
	ev, err := cfg.EncodePatch(p)
	require.NoError(t, err)

	got, err := cfg.DecodePatch(ev)
	require.NoError(t, err)
	assert.Equal(t, "Fix the thing", got.Subject)
	assert.Equal(t, "It was broken because of a race.\nSee also #42.", got.Description)
}

func TestSplitSubjectCollapsesMultilineTitle(t *testing.T) {
	subject, description := SplitSubject("Fix the\nthing\n\ndiff --git a b\n")
	assert.Equal(t, "Fix the thing", subject)
	assert.Empty(t, description)
}

func TestSplitSubjectWithNoBlankLine(t *testing.T) {
	subject, description := SplitSubject("Just a title\ndiff --git a b\n")
	assert.Equal(t, "Just a title", subject)
	assert.Empty(t, description)
}

func TestConflictMetadataCarriesRepeatedFiles(t *testing.T) {
	cfg := Default()
	m := ConflictMetadata{CRA: "30617:aaaa:repo", RootID: "root1", ConflictFiles: []string{"src/x.ts", "src/y.ts"}}
	ev, err := cfg.EncodeConflictMetadata(m)
	require.NoError(t, err)

	got, err := cfg.DecodeConflictMetadata(ev)
	require.NoError(t, err)
	assert.Equal(t, []string{"src/x.ts", "src/y.ts"}, got.ConflictFiles)
}
