package nevent

import (
	"sort"
	"strings"

	"github.com/nbd-wtf/go-nostr"

	"github.com/gitgraft/gitgraft/pkg/ngerrors"
)

// State is the decoded shape of a kind-30618 event: one maintainer's
// snapshot of refs for a CRA, address-replaceable per author.
type State struct {
	Identifier string
	Refs       map[string]string // "refs/heads/main" -> oid
	Head       string            // symbolic target, e.g. "refs/heads/main"
}

// EncodeState builds the unsigned event for a State. One tag per ref, plus
// a HEAD tag carrying the symbolic-ref form.
func (c Config) EncodeState(s State) (*nostr.Event, error) {
	if c.ValidateEvents {
		if err := validateState(s); err != nil {
			return nil, err
		}
	}
	ev := &nostr.Event{Kind: KindState}
	ev.Tags = append(ev.Tags, nostr.Tag{"d", s.Identifier})

	refNames := make([]string, 0, len(s.Refs))
	for name := range s.Refs {
		refNames = append(refNames, name)
	}
	sort.Strings(refNames)
	for _, name := range refNames {
		ev.Tags = append(ev.Tags, nostr.Tag{name, s.Refs[name]})
	}
	if s.Head != "" {
		ev.Tags = append(ev.Tags, nostr.Tag{"HEAD", "ref: " + s.Head})
	}
	return ev, nil
}

// DecodeState is tolerant of missing refs/HEAD.
func (c Config) DecodeState(ev *nostr.Event) (*State, error) {
	if ev.Kind != KindState {
		return nil, ngerrors.New(ngerrors.InvalidInput, ngerrors.UserActionable, "event is not a kind-30618 state")
	}
	s := &State{
		Identifier: firstTagValue(ev.Tags, "d"),
		Refs:       map[string]string{},
	}
	for _, t := range ev.Tags {
		if len(t) < 2 {
			continue
		}
		switch {
		case t[0] == "d":
			continue
		case t[0] == "HEAD":
			s.Head = strings.TrimPrefix(t[1], "ref: ")
		case strings.HasPrefix(t[0], "refs/"):
			s.Refs[t[0]] = t[1]
		}
	}
	return s, nil
}

func validateState(s State) *ngerrors.Error {
	if s.Identifier == "" {
		return ngerrors.New(ngerrors.InvalidInput, ngerrors.UserActionable, "state requires a non-empty d/identifier tag")
	}
	if len(s.Refs) == 0 {
		return ngerrors.New(ngerrors.InvalidInput, ngerrors.UserActionable, "state requires at least one refs/... tag")
	}
	if s.Head == "" {
		return ngerrors.New(ngerrors.InvalidInput, ngerrors.UserActionable, "state requires a HEAD tag")
	}
	return nil
}
