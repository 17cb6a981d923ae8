package nevent

import (
	"github.com/nbd-wtf/go-nostr"

	"github.com/gitgraft/gitgraft/pkg/ngerrors"
)

// Status is the decoded shape of kinds 1630-1633: a status update for a
// root event (a Patch or Issue).
type Status struct {
	Kind              int
	RootID            string
	CRA               string
	Recipients        []string
	MergeCommit       string   // 1631 only
	AppliedAsCommits  []string // 1631 only
}

func IsStatusKind(kind int) bool {
	return kind >= KindStatusOpen && kind <= KindStatusDraft
}

func (c Config) EncodeStatus(s Status) (*nostr.Event, error) {
	if !IsStatusKind(s.Kind) {
		return nil, ngerrors.New(ngerrors.InvalidInput, ngerrors.UserActionable, "status kind must be 1630-1633")
	}
	if c.ValidateEvents {
		if s.RootID == "" || s.CRA == "" {
			return nil, ngerrors.New(ngerrors.InvalidInput, ngerrors.UserActionable, "status requires e and a tags")
		}
	}
	ev := &nostr.Event{Kind: s.Kind}
	ev.Tags = append(ev.Tags, nostr.Tag{"e", s.RootID, "", "root"})
	ev.Tags = append(ev.Tags, nostr.Tag{"a", s.CRA})
	ev.Tags = append(ev.Tags, sortedSingleValueTags("p", s.Recipients)...)
	if s.Kind == KindStatusApplied {
		if s.MergeCommit != "" {
			ev.Tags = append(ev.Tags, nostr.Tag{"merge-commit", s.MergeCommit})
		}
		for _, oid := range s.AppliedAsCommits {
			ev.Tags = append(ev.Tags, nostr.Tag{"applied-as-commits", oid})
		}
	}
	return ev, nil
}

func (c Config) DecodeStatus(ev *nostr.Event) (*Status, error) {
	if !IsStatusKind(ev.Kind) {
		return nil, ngerrors.New(ngerrors.InvalidInput, ngerrors.UserActionable, "event is not a status kind")
	}
	s := &Status{
		Kind:       ev.Kind,
		RootID:     firstTagValue(ev.Tags, "e"),
		CRA:        firstTagValue(ev.Tags, "a"),
		Recipients: allTagValues(ev.Tags, "p"),
	}
	if ev.Kind == KindStatusApplied {
		s.MergeCommit = firstTagValue(ev.Tags, "merge-commit")
		s.AppliedAsCommits = allTagValues(ev.Tags, "applied-as-commits")
	}
	return s, nil
}
