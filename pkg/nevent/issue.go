package nevent

import (
	"github.com/nbd-wtf/go-nostr"

	"github.com/gitgraft/gitgraft/pkg/ngerrors"
)

// Issue is the decoded shape of a kind-1621 event.
type Issue struct {
	CRA      string
	Subject  string
	Hashtags []string
	Body     string // event content: markdown
}

func (c Config) EncodeIssue(i Issue) (*nostr.Event, error) {
	if c.ValidateEvents {
		if i.CRA == "" || i.Subject == "" {
			return nil, ngerrors.New(ngerrors.InvalidInput, ngerrors.UserActionable, "issue requires a and subject tags")
		}
	}
	ev := &nostr.Event{Kind: KindIssue, Content: i.Body}
	ev.Tags = append(ev.Tags, nostr.Tag{"a", i.CRA})
	ev.Tags = append(ev.Tags, nostr.Tag{"subject", i.Subject})
	ev.Tags = append(ev.Tags, sortedSingleValueTags("t", i.Hashtags)...)
	return ev, nil
}

func (c Config) DecodeIssue(ev *nostr.Event) (*Issue, error) {
	if ev.Kind != KindIssue {
		return nil, ngerrors.New(ngerrors.InvalidInput, ngerrors.UserActionable, "event is not a kind-1621 issue")
	}
	return &Issue{
		CRA:      firstTagValue(ev.Tags, "a"),
		Subject:  firstTagValue(ev.Tags, "subject"),
		Hashtags: allTagValues(ev.Tags, "t"),
		Body:     ev.Content,
	}, nil
}
