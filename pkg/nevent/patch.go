package nevent

import (
	"fmt"
	"strings"

	"github.com/nbd-wtf/go-nostr"

	"github.com/gitgraft/gitgraft/pkg/ngerrors"
)

// Patch is the decoded shape of a kind-1617 event: a signed unified diff
// targeting a CRA.
type Patch struct {
	CRA          string
	Commit       string
	ParentCommit string
	Committer    string // "<name> <email> <unix-ts> <tz-offset-minutes>"
	Recipients   []string
	Hashtags     []string
	RawDiff      string // event content: leading commit message + unified diff
	Subject      string // derived from RawDiff, see SplitSubject
	Description  string // derived from RawDiff, see SplitSubject
}

// SplitSubject implements SPEC_FULL.md §9's pinned resolution for the
// title/description mapping: the unified diff's leading commit-message
// block (everything before the first `diff --git` line) is split on the
// first blank line. The text before the blank line is the subject,
// trimmed and with embedded newlines collapsed to spaces; the remainder,
// if any, is the description, kept verbatim. This mirrors `git
// format-patch`'s own subject/body convention, which is what §6's "content
// is a unified diff with a leading commit message" implies.
func SplitSubject(raw string) (subject, description string) {
	header := leadingMessageBlock(raw)
	before, after, found := strings.Cut(header, "\n\n")
	subject = strings.TrimSpace(strings.ReplaceAll(before, "\n", " "))
	if found {
		description = strings.Trim(after, "\n")
	}
	return subject, description
}

// leadingMessageBlock returns every line of raw preceding the first
// `diff --git ` line, i.e. the commit-message header a patch's content
// carries ahead of the unified diff itself.
func leadingMessageBlock(raw string) string {
	lines := strings.Split(raw, "\n")
	var msg []string
	for _, l := range lines {
		if strings.HasPrefix(l, "diff --git ") {
			break
		}
		msg = append(msg, l)
	}
	return strings.Join(msg, "\n")
}

// EncodePatch builds the unsigned event for a Patch.
func (c Config) EncodePatch(p Patch) (*nostr.Event, error) {
	if c.ValidateEvents {
		if err := validatePatch(p); err != nil {
			return nil, err
		}
	}
	ev := &nostr.Event{Kind: KindPatch, Content: p.RawDiff}
	ev.Tags = append(ev.Tags, nostr.Tag{"a", p.CRA})
	ev.Tags = append(ev.Tags, nostr.Tag{"commit", p.Commit})
	if p.ParentCommit != "" {
		ev.Tags = append(ev.Tags, nostr.Tag{"parent-commit", p.ParentCommit})
	}
	ev.Tags = append(ev.Tags, nostr.Tag{"committer", p.Committer})
	ev.Tags = append(ev.Tags, sortedSingleValueTags("p", p.Recipients)...)
	ev.Tags = append(ev.Tags, sortedSingleValueTags("t", p.Hashtags)...)
	return ev, nil
}

// DecodePatch is tolerant of a missing parent-commit (root patches).
func (c Config) DecodePatch(ev *nostr.Event) (*Patch, error) {
	if ev.Kind != KindPatch {
		return nil, ngerrors.New(ngerrors.InvalidInput, ngerrors.UserActionable, "event is not a kind-1617 patch")
	}
	subject, description := SplitSubject(ev.Content)
	return &Patch{
		CRA:          firstTagValue(ev.Tags, "a"),
		Commit:       firstTagValue(ev.Tags, "commit"),
		ParentCommit: firstTagValue(ev.Tags, "parent-commit"),
		Committer:    firstTagValue(ev.Tags, "committer"),
		Recipients:   allTagValues(ev.Tags, "p"),
		Hashtags:     allTagValues(ev.Tags, "t"),
		RawDiff:      ev.Content,
		Subject:      subject,
		Description:  description,
	}, nil
}

func validatePatch(p Patch) *ngerrors.Error {
	if p.CRA == "" || p.Commit == "" || p.Committer == "" {
		return ngerrors.New(ngerrors.InvalidInput, ngerrors.UserActionable,
			fmt.Sprintf("patch requires a, commit, and committer tags (got CRA=%q commit=%q committer=%q)", p.CRA, p.Commit, p.Committer))
	}
	return nil
}
