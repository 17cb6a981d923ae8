// Package patch implements the PatchEngine (C7): unified-diff parsing,
// three-way mergeability analysis against a local clone, and patch
// application with merge-commit creation. Grounded on spec's diff-grammar
// description directly — no unified-diff parsing library was found anywhere
// in the retrieved pack (see DESIGN.md) — and on the teacher's
// distributed/git.LocalClone.Commit for the commit-creation shape the
// Applier follows.
package patch

import (
	"strconv"
	"strings"

	"github.com/gitgraft/gitgraft/pkg/nevent"
	"github.com/gitgraft/gitgraft/pkg/ngerrors"
)

// ChangeKind classifies a single `diff --git` block.
type ChangeKind string

const (
	ChangeAdd         ChangeKind = "add"
	ChangeModify      ChangeKind = "modify"
	ChangeDelete      ChangeKind = "delete"
	ChangeUnsupported ChangeKind = "unsupported"
)

// LineKind is the leading character of a unified-diff hunk line.
type LineKind byte

const (
	LineContext LineKind = ' '
	LineAdd     LineKind = '+'
	LineRemove  LineKind = '-'
)

// Line is a single hunk line, stripped of its leading marker byte.
type Line struct {
	Kind    LineKind
	Content string
}

// Hunk is one `@@ -a,b +c,d @@` block and its lines.
type Hunk struct {
	OldStart int
	OldLines int
	NewStart int
	NewLines int
	Lines    []Line
}

// FileChange is one file's worth of a parsed patch.
type FileChange struct {
	Path  string
	Kind  ChangeKind
	Hunks []Hunk
}

var hunkHeaderPrefix = "@@ -"

// Parse splits raw into ordered FileChanges. It never returns an error for
// malformed individual hunks; instead the offending file is marked
// unsupported, matching the "no file-change is allowed to abort the whole
// parse" intent of classification-by-precedence. The leading commit-message
// block preceding the first `diff --git` line is not a FileChange and is
// dropped here — callers that need it call SplitSubject on the same raw
// text.
func Parse(raw string) ([]FileChange, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, ngerrors.New(ngerrors.InvalidInput, ngerrors.UserActionable, "empty patch")
	}
	blocks := splitDiffBlocks(raw)
	out := make([]FileChange, 0, len(blocks))
	for _, b := range blocks {
		out = append(out, parseBlock(b))
	}
	return out, nil
}

// SplitSubject extracts a patch's title and description from its raw
// content (commit-message header plus unified diff) per the pinned
// resolution in SPEC_FULL.md §9: delegates to nevent.SplitSubject, which
// nevent.DecodePatch also uses to populate Patch.Subject/Patch.Description
// from a decoded kind-1617 event's content.
func SplitSubject(raw string) (subject, description string) {
	return nevent.SplitSubject(raw)
}

func splitDiffBlocks(raw string) []string {
	lines := strings.Split(raw, "\n")
	var blocks []string
	var current []string
	for _, l := range lines {
		if strings.HasPrefix(l, "diff --git ") {
			if len(current) > 0 {
				blocks = append(blocks, strings.Join(current, "\n"))
			}
			current = []string{l}
			continue
		}
		if current != nil {
			current = append(current, l)
		}
	}
	if len(current) > 0 {
		blocks = append(blocks, strings.Join(current, "\n"))
	}
	return blocks
}

func parseBlock(block string) FileChange {
	lines := strings.Split(block, "\n")
	path := pathFromDiffHeader(lines[0])
	fc := FileChange{Path: path}

	for _, l := range lines[1:] {
		switch {
		case strings.HasPrefix(l, "GIT binary patch"), strings.HasPrefix(l, "Binary files"):
			fc.Kind = ChangeUnsupported
			return fc
		case strings.HasPrefix(l, "rename from"), strings.HasPrefix(l, "rename to"):
			fc.Kind = ChangeUnsupported
			return fc
		case strings.HasPrefix(l, "new file mode"):
			fc.Kind = ChangeAdd
		case strings.HasPrefix(l, "deleted file mode"):
			fc.Kind = ChangeDelete
		case strings.HasPrefix(l, hunkHeaderPrefix):
			if _, ok := parseHunkHeader(l); !ok {
				fc.Kind = ChangeUnsupported
				return fc
			}
		}
	}
	if fc.Kind == "" {
		fc.Kind = ChangeModify
	}

	fc.Hunks = parseHunks(lines)
	return fc
}

func pathFromDiffHeader(header string) string {
	// "diff --git a/path b/path"
	fields := strings.Fields(header)
	for _, f := range fields {
		if strings.HasPrefix(f, "b/") {
			return strings.TrimPrefix(f, "b/")
		}
	}
	if len(fields) > 0 {
		return strings.TrimPrefix(fields[len(fields)-1], "b/")
	}
	return ""
}

func parseHunks(lines []string) []Hunk {
	var hunks []Hunk
	var cur *Hunk
	for _, l := range lines {
		if strings.HasPrefix(l, hunkHeaderPrefix) {
			if cur != nil {
				hunks = append(hunks, *cur)
			}
			h, ok := parseHunkHeader(l)
			if !ok {
				continue
			}
			cur = &h
			continue
		}
		if cur == nil {
			continue
		}
		if l == "" {
			continue
		}
		switch l[0] {
		case '+':
			cur.Lines = append(cur.Lines, Line{Kind: LineAdd, Content: l[1:]})
		case '-':
			cur.Lines = append(cur.Lines, Line{Kind: LineRemove, Content: l[1:]})
		case ' ':
			cur.Lines = append(cur.Lines, Line{Kind: LineContext, Content: l[1:]})
		case '\\':
			// "\ No newline at end of file" — not a content line.
		}
	}
	if cur != nil {
		hunks = append(hunks, *cur)
	}
	return hunks
}

// parseHunkHeader parses "@@ -a,b +c,d @@" (b/d default to 1 when omitted).
func parseHunkHeader(line string) (Hunk, bool) {
	body := strings.TrimPrefix(line, "@@ -")
	rest, _, _ := strings.Cut(body, " @@")
	oldPart, newPart, found := strings.Cut(rest, " +")
	if !found {
		return Hunk{}, false
	}
	oldStart, oldLines, ok1 := parseRange(oldPart)
	newStart, newLines, ok2 := parseRange(newPart)
	if !ok1 || !ok2 {
		return Hunk{}, false
	}
	return Hunk{OldStart: oldStart, OldLines: oldLines, NewStart: newStart, NewLines: newLines}, true
}

func parseRange(s string) (start, count int, ok bool) {
	a, b, found := strings.Cut(s, ",")
	start, err := strconv.Atoi(a)
	if err != nil {
		return 0, 0, false
	}
	if !found {
		return start, 1, true
	}
	count, err = strconv.Atoi(b)
	if err != nil {
		return 0, 0, false
	}
	return start, count, true
}

// NewFileContent reconstructs full content for an `add` change from its
// hunks' added lines.
func NewFileContent(fc FileChange) string {
	var sb strings.Builder
	for _, h := range fc.Hunks {
		for _, l := range h.Lines {
			if l.Kind == LineAdd || l.Kind == LineContext {
				sb.WriteString(l.Content)
				sb.WriteByte('\n')
			}
		}
	}
	return sb.String()
}

// OldFileContent reconstructs the minimum expected old content for a
// `delete` change from its hunks' removed lines.
func OldFileContent(fc FileChange) string {
	var sb strings.Builder
	for _, h := range fc.Hunks {
		for _, l := range h.Lines {
			if l.Kind == LineRemove || l.Kind == LineContext {
				sb.WriteString(l.Content)
				sb.WriteByte('\n')
			}
		}
	}
	return sb.String()
}
