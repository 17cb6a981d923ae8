// Package discovery implements the DiscoveryResolver (C5): fetching
// announcement and state events for a CRA across relays and fusing them
// into one effective ref map, per the maintainer-precedence rule in spec
// §3 "Effective State".
//
// Grounded directly on spec §4.5's numbered algorithm; no teacher/pack
// package performs this exact reduction, so the fusion logic here is new
// domain code built against github.com/nbd-wtf/go-nostr event/filter types
// (the ecosystem library pulled in via sandwichfarm-nophr for the signed
// event fabric this spec describes).
package discovery

import (
	"context"
	"strings"

	"github.com/nbd-wtf/go-nostr"

	"github.com/gitgraft/gitgraft/pkg/nevent"
	"github.com/gitgraft/gitgraft/pkg/netclient"
)

// Result is the fused discovery output for one CRA.
type Result struct {
	Announcement   *nevent.Announcement
	EffectiveState *EffectiveState
	CloneURLs      []string
	Maintainers    map[string]bool
}

// EffectiveState is the deterministic fusion described in spec §3.
type EffectiveState struct {
	Refs map[string]string
	Head string
}

// Resolve fetches (kinds=[30617,30618], #a=[cra]) across every relay client
// knows about, plus ids=[rootEventID] when rootEventID is non-empty, and
// fuses the result. A network error propagates only when the client
// reports zero events received from any relay; a found-nothing result is
// not itself an error — the caller decides whether to fall back to a
// user-provided clone URL list.
func Resolve(ctx context.Context, client netclient.Client, codec nevent.Config, cra string, rootEventID string) (*Result, error) {
	filters := []nostr.Filter{
		{Kinds: []int{nevent.KindAnnouncement, nevent.KindState}, Tags: nostr.TagMap{"a": {cra}}},
	}
	if rootEventID != "" {
		filters = append(filters, nostr.Filter{IDs: []string{rootEventID}})
	}

	events, err := client.FetchEvents(ctx, filters)
	if err != nil {
		return nil, err
	}

	var rawAnnouncements, rawStates []*nostr.Event
	for _, ev := range events {
		switch ev.Kind {
		case nevent.KindAnnouncement:
			rawAnnouncements = append(rawAnnouncements, ev)
		case nevent.KindState:
			rawStates = append(rawStates, ev)
		}
	}

	announcements := latestPerAuthor(rawAnnouncements)
	if len(announcements) == 0 {
		return &Result{CloneURLs: nil, Maintainers: map[string]bool{}}, nil
	}

	craPubkey := craPubkeyOf(cra)
	chosenEvent := selectAnnouncement(announcements, craPubkey)
	announcement, err := codec.DecodeAnnouncement(chosenEvent)
	if err != nil {
		return nil, err
	}

	maintainers := map[string]bool{}
	for _, m := range announcement.Maintainers {
		maintainers[m] = true
	}

	effective := fuseStates(rawStates, codec, maintainers)

	return &Result{
		Announcement:   announcement,
		EffectiveState: effective,
		CloneURLs:      announcement.CloneURLs,
		Maintainers:    maintainers,
	}, nil
}

// latestPerAuthor implements the address-replaceable rule: for a given
// (author, CRA, kind), only the newest-timestamp copy is retained.
func latestPerAuthor(events []*nostr.Event) map[string]*nostr.Event {
	out := map[string]*nostr.Event{}
	for _, ev := range events {
		cur, ok := out[ev.PubKey]
		if !ok || ev.CreatedAt > cur.CreatedAt {
			out[ev.PubKey] = ev
		}
	}
	return out
}

// selectAnnouncement picks the announcement authored by the CRA's own
// pubkey (the repo's owner is trivially able to speak for its own address,
// independent of any declared maintainer set) and otherwise falls back to
// the highest-timestamp announcement among all authors, per spec §4.5
// step 3.
func selectAnnouncement(byAuthor map[string]*nostr.Event, craPubkey string) *nostr.Event {
	if ev, ok := byAuthor[craPubkey]; ok {
		return ev
	}
	var best *nostr.Event
	for _, ev := range byAuthor {
		if best == nil || ev.CreatedAt > best.CreatedAt {
			best = ev
		}
	}
	return best
}

// fuseStates implements the §3 Effective State rule: per ref, the newest
// maintainer-authored state wins; head comes from any maintainer state,
// ties broken by newest. Non-maintainer authors are dropped entirely.
//
// This deliberately does not collapse to one state per author first: the
// reduction runs directly over every qualifying state event, so an older
// state's HEAD can still win if a newer state from the same author only
// touched refs and carried no HEAD tag of its own (spec §8 scenario S3).
func fuseStates(states []*nostr.Event, codec nevent.Config, maintainers map[string]bool) *EffectiveState {
	type fusedRef struct {
		value     string
		createdAt nostr.Timestamp
	}
	refBest := map[string]fusedRef{}
	var headValue string
	var headAt nostr.Timestamp = -1

	for _, ev := range states {
		if !maintainers[ev.PubKey] {
			continue
		}
		st, err := codec.DecodeState(ev)
		if err != nil {
			continue
		}
		for ref, oid := range st.Refs {
			if cur, ok := refBest[ref]; !ok || ev.CreatedAt > cur.createdAt {
				refBest[ref] = fusedRef{value: oid, createdAt: ev.CreatedAt}
			}
		}
		if st.Head != "" && ev.CreatedAt > headAt {
			headAt = ev.CreatedAt
			headValue = st.Head
		}
	}

	refs := make(map[string]string, len(refBest))
	for ref, v := range refBest {
		refs[ref] = v.value
	}
	return &EffectiveState{Refs: refs, Head: headValue}
}

// craPubkeyOf extracts the pubkey-hex component of a "<kind>:<pubkey>:<id>"
// CRA string.
func craPubkeyOf(cra string) string {
	parts := strings.SplitN(cra, ":", 3)
	if len(parts) < 2 {
		return ""
	}
	return parts[1]
}
