package patch

import (
	"context"
	"fmt"
	"strings"

	"github.com/gitgraft/gitgraft/pkg/gitio"
	"github.com/gitgraft/gitgraft/pkg/ngerrors"
	"github.com/gitgraft/gitgraft/pkg/nevent"
	nsync "github.com/gitgraft/gitgraft/pkg/util/sync"
)

// Author identifies who a merge commit should be attributed to.
type Author struct {
	Name  string
	Email string
}

// PushResult is one remote's outcome, mirroring the per-remote detail the
// multi-remote push primitive (C4/C8) reports.
type PushResult struct {
	RemoteURL string
	OK        bool
	Fallback  bool
	Warning   string
	Err       error
}

// Pusher is the multi-remote push step the Applier calls after committing.
// Declared here, at the point of use, so that pkg/patch does not import
// pkg/push. push.Coordinator.PushAll has a different signature and does not
// satisfy this interface itself; a caller supplies an adapter.
type Pusher interface {
	PushAll(ctx context.Context, dir, localBranch string) ([]PushResult, error)
}

// ApplyResult is the Applier's §4.7 return shape.
type ApplyResult struct {
	Success        bool
	MergeCommitOID string
	PushedRemotes  []string
	SkippedRemotes []string
	PushErrors     []string
	Warning        string
}

// Applier applies a patch to a local clone and pushes the resulting commit.
type Applier struct {
	pusher Pusher
	locks  nsync.NamedLockMap
}

func NewApplier(pusher Pusher, locks nsync.NamedLockMap) *Applier {
	return &Applier{pusher: pusher, locks: locks}
}

// ApplyAndPush runs the §4.7 Applier algorithm against an already-fully-
// cloned repo (the caller ensures full depth and branch availability via
// RepoStore before calling in).
func (a *Applier) ApplyAndPush(ctx context.Context, cra string, repo *gitio.Repo, p nevent.Patch, targetBranch, mergeMessage string, author Author) (ApplyResult, error) {
	lock := a.locks.LockByName(cra)
	lock.Lock()
	defer lock.Unlock()

	resolvedBranch, err := resolveBranchOn(repo, targetBranch)
	if err != nil {
		return ApplyResult{}, err
	}
	if err := repo.CheckoutBranch(resolvedBranch, false); err != nil {
		return ApplyResult{}, err
	}

	changes, err := Parse(p.RawDiff)
	if err != nil {
		return ApplyResult{}, err
	}
	for _, fc := range changes {
		if fc.Kind == ChangeUnsupported {
			return ApplyResult{}, ngerrors.New(ngerrors.Unsupported, ngerrors.UserActionable, fmt.Sprintf("patch contains an unsupported change to %s", fc.Path))
		}
	}

	for _, fc := range changes {
		if err := applyFileChange(repo, fc); err != nil {
			return ApplyResult{}, err
		}
	}

	staged, err := repo.HasStagedChanges()
	if err != nil {
		return ApplyResult{}, err
	}
	if !staged {
		return ApplyResult{}, ngerrors.New(ngerrors.NoChanges, ngerrors.UserActionable, "patch produced no staged changes")
	}

	oid, err := repo.Commit(mergeMessage, author.Name, author.Email)
	if err != nil {
		return ApplyResult{}, err
	}

	result := ApplyResult{Success: true, MergeCommitOID: oid}
	if a.pusher == nil {
		return result, nil
	}

	pushResults, err := a.pusher.PushAll(ctx, repo.Dir(), resolvedBranch)
	if err != nil {
		result.Warning = err.Error()
		return result, nil
	}
	for _, pr := range pushResults {
		switch {
		case pr.OK && pr.Fallback:
			result.PushedRemotes = append(result.PushedRemotes, pr.RemoteURL)
			result.Warning = joinWarning(result.Warning, pr.Warning)
		case pr.OK:
			result.PushedRemotes = append(result.PushedRemotes, pr.RemoteURL)
		default:
			result.SkippedRemotes = append(result.SkippedRemotes, pr.RemoteURL)
			if pr.Err != nil {
				result.PushErrors = append(result.PushErrors, pr.Err.Error())
			}
		}
	}
	return result, nil
}

func joinWarning(existing, addition string) string {
	if addition == "" {
		return existing
	}
	if existing == "" {
		return addition
	}
	return existing + "; " + addition
}

// applyFileChange writes a single change into the worktree, using the same
// hunk-alignment logic the Analyzer uses to locate modify hunks.
func applyFileChange(repo *gitio.Repo, fc FileChange) error {
	switch fc.Kind {
	case ChangeAdd:
		return repo.WriteFile(fc.Path, []byte(NewFileContent(fc)))
	case ChangeDelete:
		return repo.RemoveFile(fc.Path)
	case ChangeModify:
		head, err := repo.Head()
		if err != nil {
			return err
		}
		commitOID, err := repo.ResolveRef(head)
		if err != nil {
			return err
		}
		existing, err := repo.ReadBlob(commitOID, fc.Path)
		if err != nil {
			return err
		}
		newContent, err := applyHunks(string(existing), fc.Hunks)
		if err != nil {
			return err
		}
		return repo.WriteFile(fc.Path, []byte(newContent))
	default:
		return ngerrors.New(ngerrors.Unsupported, ngerrors.UserActionable, fmt.Sprintf("cannot apply unsupported change to %s", fc.Path))
	}
}

// applyHunks rewrites original by locating and replacing each hunk's old
// content with its new content, using the same ±window alignment search the
// Analyzer performs.
func applyHunks(original string, hunks []Hunk) (string, error) {
	lines := strings.Split(original, "\n")
	trailingNewline := strings.HasSuffix(original, "\n")
	if trailingNewline {
		lines = lines[:len(lines)-1]
	}

	for _, h := range hunks {
		expectedOld := expectedOldLines(h)
		newLines := expectedNewLines(h)
		idx, ok := findAlignment(lines, expectedOld, h.OldStart-1)
		if !ok {
			return "", ngerrors.New(ngerrors.MergeConflict, ngerrors.UserActionable, "hunk could not be aligned during apply")
		}
		rebuilt := make([]string, 0, len(lines)-len(expectedOld)+len(newLines))
		rebuilt = append(rebuilt, lines[:idx]...)
		rebuilt = append(rebuilt, newLines...)
		rebuilt = append(rebuilt, lines[idx+len(expectedOld):]...)
		lines = rebuilt
	}

	out := strings.Join(lines, "\n")
	if trailingNewline {
		out += "\n"
	}
	return out, nil
}

func expectedNewLines(h Hunk) []string {
	var out []string
	for _, l := range h.Lines {
		if l.Kind == LineContext || l.Kind == LineAdd {
			out = append(out, l.Content)
		}
	}
	return out
}

func findAlignment(lines, expected []string, center int) (int, bool) {
	if len(expected) == 0 {
		if center >= 0 && center <= len(lines) {
			return center, true
		}
		return 0, true
	}
	for offset := -DefaultContextSearchWindow; offset <= DefaultContextSearchWindow; offset++ {
		start := center + offset
		if start < 0 || start+len(expected) > len(lines) {
			continue
		}
		if linesMatch(lines[start:start+len(expected)], expected) {
			return start, true
		}
	}
	return 0, false
}
