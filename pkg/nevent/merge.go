package nevent

import (
	"github.com/nbd-wtf/go-nostr"

	"github.com/gitgraft/gitgraft/pkg/ngerrors"
)

// MergeMetadata is the decoded shape of a kind-30411 event, published on a
// clean merge.
type MergeMetadata struct {
	CRA          string
	RootID       string
	TargetBranch string
	BaseBranch   string
	MergeCommit  string
}

func (c Config) EncodeMergeMetadata(m MergeMetadata) (*nostr.Event, error) {
	if c.ValidateEvents {
		if m.CRA == "" || m.RootID == "" || m.TargetBranch == "" {
			return nil, ngerrors.New(ngerrors.InvalidInput, ngerrors.UserActionable, "merge metadata requires a, e, and target-branch tags")
		}
	}
	ev := &nostr.Event{Kind: KindMergeMetadata}
	ev.Tags = append(ev.Tags, nostr.Tag{"a", m.CRA})
	ev.Tags = append(ev.Tags, nostr.Tag{"e", m.RootID})
	ev.Tags = append(ev.Tags, nostr.Tag{"target-branch", m.TargetBranch})
	if m.BaseBranch != "" {
		ev.Tags = append(ev.Tags, nostr.Tag{"base-branch", m.BaseBranch})
	}
	ev.Tags = append(ev.Tags, nostr.Tag{"result", "clean"})
	if m.MergeCommit != "" {
		ev.Tags = append(ev.Tags, nostr.Tag{"merge-commit", m.MergeCommit})
	}
	return ev, nil
}

func (c Config) DecodeMergeMetadata(ev *nostr.Event) (*MergeMetadata, error) {
	if ev.Kind != KindMergeMetadata {
		return nil, ngerrors.New(ngerrors.InvalidInput, ngerrors.UserActionable, "event is not a kind-30411 merge metadata event")
	}
	return &MergeMetadata{
		CRA:          firstTagValue(ev.Tags, "a"),
		RootID:       firstTagValue(ev.Tags, "e"),
		TargetBranch: firstTagValue(ev.Tags, "target-branch"),
		BaseBranch:   firstTagValue(ev.Tags, "base-branch"),
		MergeCommit:  firstTagValue(ev.Tags, "merge-commit"),
	}, nil
}

// ConflictMetadata is the decoded shape of a kind-30412 event, published on
// a conflicted analysis.
type ConflictMetadata struct {
	CRA           string
	RootID        string
	TargetBranch  string
	BaseBranch    string
	ConflictFiles []string
}

func (c Config) EncodeConflictMetadata(m ConflictMetadata) (*nostr.Event, error) {
	if c.ValidateEvents {
		if m.CRA == "" || m.RootID == "" || len(m.ConflictFiles) == 0 {
			return nil, ngerrors.New(ngerrors.InvalidInput, ngerrors.UserActionable, "conflict metadata requires a, e, and at least one conflict-file tag")
		}
	}
	ev := &nostr.Event{Kind: KindConflictMetadata}
	ev.Tags = append(ev.Tags, nostr.Tag{"a", m.CRA})
	ev.Tags = append(ev.Tags, nostr.Tag{"e", m.RootID})
	if m.TargetBranch != "" {
		ev.Tags = append(ev.Tags, nostr.Tag{"target-branch", m.TargetBranch})
	}
	if m.BaseBranch != "" {
		ev.Tags = append(ev.Tags, nostr.Tag{"base-branch", m.BaseBranch})
	}
	ev.Tags = append(ev.Tags, nostr.Tag{"result", "conflict"})
	for _, f := range m.ConflictFiles {
		ev.Tags = append(ev.Tags, nostr.Tag{"conflict-file", f})
	}
	return ev, nil
}

func (c Config) DecodeConflictMetadata(ev *nostr.Event) (*ConflictMetadata, error) {
	if ev.Kind != KindConflictMetadata {
		return nil, ngerrors.New(ngerrors.InvalidInput, ngerrors.UserActionable, "event is not a kind-30412 conflict metadata event")
	}
	return &ConflictMetadata{
		CRA:           firstTagValue(ev.Tags, "a"),
		RootID:        firstTagValue(ev.Tags, "e"),
		TargetBranch:  firstTagValue(ev.Tags, "target-branch"),
		BaseBranch:    firstTagValue(ev.Tags, "base-branch"),
		ConflictFiles: allTagValues(ev.Tags, "conflict-file"),
	}, nil
}
