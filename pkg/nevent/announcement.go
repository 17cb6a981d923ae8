package nevent

import (
	"sort"

	"github.com/nbd-wtf/go-nostr"

	"github.com/gitgraft/gitgraft/pkg/ngerrors"
)

// Announcement is the decoded shape of a kind-30617 event: the authoritative,
// address-replaceable metadata for a CRA.
type Announcement struct {
	Identifier         string
	Name               string
	Description        string
	WebURLs            []string
	CloneURLs          []string
	Relays             []string
	Maintainers        []string
	Hashtags           []string
	EarliestUniqueCommit string
}

// EncodeAnnouncement builds the unsigned event for an Announcement. Tags are
// emitted in the wire-surface order: d, name?, description?, web*, clone*,
// relays*, maintainers*, t*, r.
func (c Config) EncodeAnnouncement(a Announcement) (*nostr.Event, error) {
	if c.ValidateEvents {
		if err := validateAnnouncement(a); err != nil {
			return nil, err
		}
	}
	ev := &nostr.Event{Kind: KindAnnouncement}
	ev.Tags = append(ev.Tags, nostr.Tag{"d", a.Identifier})
	if a.Name != "" {
		ev.Tags = append(ev.Tags, nostr.Tag{"name", a.Name})
	}
	if a.Description != "" {
		ev.Tags = append(ev.Tags, nostr.Tag{"description", a.Description})
	}
	ev.Tags = append(ev.Tags, sortedSingleValueTags("web", a.WebURLs)...)
	ev.Tags = append(ev.Tags, sortedSingleValueTags("clone", a.CloneURLs)...)
	ev.Tags = append(ev.Tags, sortedSingleValueTags("relays", a.Relays)...)
	ev.Tags = append(ev.Tags, sortedSingleValueTags("maintainers", a.Maintainers)...)
	ev.Tags = append(ev.Tags, sortedSingleValueTags("t", a.Hashtags)...)
	if a.EarliestUniqueCommit != "" {
		ev.Tags = append(ev.Tags, nostr.Tag{"r", a.EarliestUniqueCommit, "euc"})
	}
	ev.Content = ""
	return ev, nil
}

// DecodeAnnouncement is tolerant: it never fails on missing optional fields,
// regardless of Config.ValidateEvents.
func (c Config) DecodeAnnouncement(ev *nostr.Event) (*Announcement, error) {
	if ev.Kind != KindAnnouncement {
		return nil, ngerrors.New(ngerrors.InvalidInput, ngerrors.UserActionable, "event is not a kind-30617 announcement")
	}
	a := &Announcement{
		Identifier:  firstTagValue(ev.Tags, "d"),
		Name:        firstTagValue(ev.Tags, "name"),
		Description: firstTagValue(ev.Tags, "description"),
		WebURLs:     allTagValues(ev.Tags, "web"),
		CloneURLs:   allTagValues(ev.Tags, "clone"),
		Relays:      allTagValues(ev.Tags, "relays"),
		Maintainers: allTagValues(ev.Tags, "maintainers"),
		Hashtags:    allTagValues(ev.Tags, "t"),
	}
	for _, t := range ev.Tags {
		if len(t) >= 3 && t[0] == "r" && t[2] == "euc" {
			a.EarliestUniqueCommit = t[1]
		}
	}
	sort.Strings(a.WebURLs)
	return a, nil
}

func validateAnnouncement(a Announcement) *ngerrors.Error {
	if a.Identifier == "" {
		return ngerrors.New(ngerrors.InvalidInput, ngerrors.UserActionable, "announcement requires a non-empty d/identifier tag")
	}
	return nil
}
