package patch

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gitgraft/gitgraft/internal/cachekv"
	"github.com/gitgraft/gitgraft/pkg/gitio"
	"github.com/gitgraft/gitgraft/pkg/ngerrors"
	"github.com/gitgraft/gitgraft/pkg/nevent"
)

// DefaultContextSearchWindow is the ±line window the analyzer and applier
// search within, around a hunk's declared old-start, to tolerate small
// drifts between the patch's base and the target branch's current content.
// Kept as a named, overridable constant so the memoized test corpus's
// behavior stays reproducible if it ever needs tightening.
const DefaultContextSearchWindow = 5

// Analysis is the outcome category of a mergeability analysis.
type Analysis string

const (
	AnalysisClean      Analysis = "clean"
	AnalysisConflicts  Analysis = "conflicts"
	AnalysisUpToDate   Analysis = "up-to-date"
	AnalysisError      Analysis = "error"
)

// ConflictDetail describes one file-change that could not be aligned.
type ConflictDetail struct {
	Path      string `json:"path"`
	HunkIndex int    `json:"hunkIndex,omitempty"`
	Reason    string `json:"reason"`
}

// MergeAnalysisResult is the §3 "Merge Analysis Result".
type MergeAnalysisResult struct {
	CanMerge        bool             `json:"canMerge"`
	HasConflicts    bool             `json:"hasConflicts"`
	ConflictFiles   []string         `json:"conflictFiles,omitempty"`
	ConflictDetails []ConflictDetail `json:"conflictDetails,omitempty"`
	UpToDate        bool             `json:"upToDate"`
	FastForward     bool             `json:"fastForward"`
	TargetCommit    string           `json:"targetCommit"`
	MergeBase       string           `json:"mergeBase"`
	PatchCommits    []string         `json:"patchCommits"`
	Analysis        Analysis         `json:"analysis"`
	ErrorMessage    string           `json:"errorMessage,omitempty"`
}

const mergeAnalysisStore = "mergeAnalysis"

// Analyzer computes mergeability of a patch against a target branch.
type Analyzer struct {
	cache *cachekv.Store
}

func NewAnalyzer(cache *cachekv.Store) *Analyzer {
	return &Analyzer{cache: cache}
}

type analysisCacheEntry struct {
	TargetHead string               `json:"targetHead"`
	Result     MergeAnalysisResult  `json:"result"`
}

// Analyze runs the §4.7 Analyzer algorithm. repo must already contain the
// patch's parent commit (the caller ensures this via RepoStore.EnsureFull
// before calling in).
func (a *Analyzer) Analyze(ctx context.Context, cra, patchID string, p nevent.Patch, repo *gitio.Repo, targetBranch string) (MergeAnalysisResult, error) {
	resolvedBranch, err := resolveBranchOn(repo, targetBranch)
	if err != nil {
		return MergeAnalysisResult{Analysis: AnalysisError, ErrorMessage: err.Error()}, nil
	}
	targetCommit, err := repo.ResolveRef(resolvedBranch)
	if err != nil {
		return MergeAnalysisResult{Analysis: AnalysisError, ErrorMessage: err.Error()}, nil
	}

	cacheKey := fmt.Sprintf("%s/%s/%s", cra, patchID, resolvedBranch)
	if a.cache != nil {
		var cached analysisCacheEntry
		found, err := a.cache.Get(mergeAnalysisStore, cacheKey, &cached)
		if err == nil && found && cached.TargetHead == targetCommit {
			return cached.Result, nil
		}
	}

	result, err := a.analyzeUncached(p, repo, targetCommit)
	if err != nil {
		result = MergeAnalysisResult{Analysis: AnalysisError, ErrorMessage: err.Error(), TargetCommit: targetCommit}
	}

	if a.cache != nil {
		_ = a.cache.Put(mergeAnalysisStore, cacheKey, analysisCacheEntry{TargetHead: targetCommit, Result: result}, time.Now())
	}
	return result, nil
}

func (a *Analyzer) analyzeUncached(p nevent.Patch, repo *gitio.Repo, targetCommit string) (MergeAnalysisResult, error) {
	result := MergeAnalysisResult{TargetCommit: targetCommit, PatchCommits: []string{p.Commit}}

	if isAncestor, err := repo.IsAncestor(p.Commit, targetCommit); err == nil && isAncestor {
		result.UpToDate = true
		result.CanMerge = true
		result.Analysis = AnalysisUpToDate
		return result, nil
	}

	parent := p.ParentCommit
	if parent == "" {
		parent = targetCommit
	}
	base, err := repo.MergeBase(parent, targetCommit)
	if err != nil {
		return MergeAnalysisResult{}, err
	}
	result.MergeBase = base
	if base == targetCommit {
		result.FastForward = true
	}

	changes, err := Parse(p.RawDiff)
	if err != nil {
		return MergeAnalysisResult{}, err
	}

	var conflictFiles []string
	var details []ConflictDetail
	for _, fc := range changes {
		if fc.Kind == ChangeUnsupported {
			details = append(details, ConflictDetail{Path: fc.Path, Reason: "unsupported change (binary or rename)"})
			conflictFiles = append(conflictFiles, fc.Path)
			continue
		}
		ok, detail := analyzeFileChange(repo, targetCommit, fc)
		if !ok {
			details = append(details, detail)
			conflictFiles = append(conflictFiles, fc.Path)
		}
	}

	result.ConflictFiles = conflictFiles
	result.ConflictDetails = details
	result.HasConflicts = len(conflictFiles) > 0
	result.CanMerge = !result.HasConflicts
	if result.HasConflicts {
		result.Analysis = AnalysisConflicts
	} else {
		result.Analysis = AnalysisClean
	}
	return result, nil
}

func analyzeFileChange(repo *gitio.Repo, targetCommit string, fc FileChange) (bool, ConflictDetail) {
	existing, readErr := repo.ReadBlob(targetCommit, fc.Path)
	exists := readErr == nil

	switch fc.Kind {
	case ChangeAdd:
		if exists && string(existing) != NewFileContent(fc) {
			return false, ConflictDetail{Path: fc.Path, Reason: "file already exists with different content"}
		}
		return true, ConflictDetail{}
	case ChangeDelete:
		if !exists {
			return false, ConflictDetail{Path: fc.Path, Reason: "file already absent"}
		}
		if !strings.Contains(string(existing), strings.TrimRight(OldFileContent(fc), "\n")) {
			return false, ConflictDetail{Path: fc.Path, Reason: "file content differs from expected deletion"}
		}
		return true, ConflictDetail{}
	case ChangeModify:
		if !exists {
			return false, ConflictDetail{Path: fc.Path, Reason: "file missing on target branch"}
		}
		targetLines := strings.Split(string(existing), "\n")
		for i, h := range fc.Hunks {
			if !alignHunk(targetLines, h) {
				return false, ConflictDetail{Path: fc.Path, HunkIndex: i, Reason: "hunk could not be aligned within search window"}
			}
		}
		return true, ConflictDetail{}
	default:
		return false, ConflictDetail{Path: fc.Path, Reason: "unsupported change"}
	}
}

// alignHunk reports whether h's context+remove lines can be found in
// targetLines within ±DefaultContextSearchWindow of h.OldStart-1 (0-indexed).
func alignHunk(targetLines []string, h Hunk) bool {
	expected := expectedOldLines(h)
	if len(expected) == 0 {
		return true
	}
	center := h.OldStart - 1
	for offset := -DefaultContextSearchWindow; offset <= DefaultContextSearchWindow; offset++ {
		start := center + offset
		if start < 0 || start+len(expected) > len(targetLines) {
			continue
		}
		if linesMatch(targetLines[start:start+len(expected)], expected) {
			return true
		}
	}
	return false
}

func expectedOldLines(h Hunk) []string {
	var out []string
	for _, l := range h.Lines {
		if l.Kind == LineContext || l.Kind == LineRemove {
			out = append(out, l.Content)
		}
	}
	return out
}

func linesMatch(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// resolveBranchOn follows the same order as repostore.ResolveBranch
// (requested, HEAD, main, master, first local branch), kept here so that
// pkg/patch does not import pkg/repostore.
func resolveBranchOn(repo *gitio.Repo, requested string) (string, error) {
	if requested != "" {
		if _, err := repo.ResolveRef(requested); err == nil {
			return requested, nil
		}
	}
	if head, err := repo.Head(); err == nil && head != "" {
		if _, err := repo.ResolveRef(head); err == nil {
			return head, nil
		}
	}
	for _, candidate := range []string{"main", "master"} {
		if _, err := repo.ResolveRef(candidate); err == nil {
			return candidate, nil
		}
	}
	if branches, err := repo.ListBranches(); err == nil && len(branches) > 0 {
		return branches[0], nil
	}
	return "", ngerrors.New(ngerrors.InvalidRefspec, ngerrors.UserActionable, "could not resolve target branch")
}
