// Package status implements the StatusResolver (C9): picking the single
// effective status for a root event under maintainer/kind/time precedence,
// and aggregating labels from self, external, and legacy-tag sources.
//
// Grounded on the teacher's pkg/filter (ListFilter/ObjectFilter,
// ObjectToListFilter) composition style, retargeted from runtime.Object to
// *nostr.Event; the precedence comparator itself is new domain logic from
// spec §4.9.
package status

import (
	"sort"

	"github.com/nbd-wtf/go-nostr"

	"github.com/gitgraft/gitgraft/pkg/nevent"
)

// Role ranks a status event's author relative to the root: maintainer
// outranks the root's own author, which outranks everyone else.
type Role int

const (
	RoleOther Role = iota
	RoleRootAuthor
	RoleMaintainer
)

func roleOf(author string, maintainers map[string]bool, rootAuthor string) Role {
	if maintainers[author] {
		return RoleMaintainer
	}
	if author == rootAuthor {
		return RoleRootAuthor
	}
	return RoleOther
}

// ResolveLatest implements the §4.9 precedence: author role first, then
// status-kind rank (closed > applied > open > draft), then newest
// timestamp. Candidates not addressed to rootID or not a status kind are
// ignored. Returns nil if no candidate qualifies.
func ResolveLatest(rootID string, candidates []*nostr.Event, maintainers map[string]bool, rootAuthor string) *nostr.Event {
	var best *nostr.Event
	var bestRole Role
	var bestRank int

	for _, ev := range candidates {
		if !nevent.IsStatusKind(ev.Kind) {
			continue
		}
		if rootID != "" && !referencesRoot(ev, rootID) {
			continue
		}
		role := roleOf(ev.PubKey, maintainers, rootAuthor)
		rank := nevent.StatusKindRank(ev.Kind)

		if best == nil || outranks(role, rank, ev.CreatedAt, bestRole, bestRank, best.CreatedAt) {
			best, bestRole, bestRank = ev, role, rank
		}
	}
	return best
}

func referencesRoot(ev *nostr.Event, rootID string) bool {
	for _, t := range ev.Tags {
		if len(t) >= 2 && t[0] == "e" && t[1] == rootID {
			return true
		}
	}
	return false
}

func outranks(role Role, rank int, createdAt nostr.Timestamp, bestRole Role, bestRank int, bestCreatedAt nostr.Timestamp) bool {
	if role != bestRole {
		return role > bestRole
	}
	if rank != bestRank {
		return rank > bestRank
	}
	return createdAt > bestCreatedAt
}

// DefaultNamespace is the label namespace used when a label carries none,
// per spec §4.9 "Namespaces default to a domain value when absent."
const DefaultNamespace = "gitgraft"

// Labels is the output of AggregateLabels.
type Labels struct {
	Normalized map[string][]string
	Chips      []string
}

// AggregateLabels fuses three label sources into one normalized view:
// self labels (kind-1985 events authored by objectAuthor), external labels
// (kind-1985 events from anyone else), and legacy plain "t" tag values
// carried directly on the object. Every namespace's values, and the flat
// chip list, are sorted and deduplicated.
func AggregateLabels(objectAuthor string, selfAndExternalLabelEvents []*nostr.Event, legacyTags []string) Labels {
	byNamespace := map[string]map[string]bool{}
	add := func(ns, val string) {
		if ns == "" {
			ns = DefaultNamespace
		}
		if byNamespace[ns] == nil {
			byNamespace[ns] = map[string]bool{}
		}
		byNamespace[ns][val] = true
	}

	for _, ev := range selfAndExternalLabelEvents {
		if ev.Kind != nip32LabelKind {
			continue
		}
		ns, values := decodeNip32Label(ev)
		for _, v := range values {
			add(ns, v)
		}
	}
	for _, t := range legacyTags {
		add(DefaultNamespace, t)
	}

	normalized := map[string][]string{}
	chipSet := map[string]bool{}
	for ns, set := range byNamespace {
		values := make([]string, 0, len(set))
		for v := range set {
			values = append(values, v)
			chipSet[v] = true
		}
		sort.Strings(values)
		normalized[ns] = values
	}
	chips := make([]string, 0, len(chipSet))
	for c := range chipSet {
		chips = append(chips, c)
	}
	sort.Strings(chips)

	return Labels{Normalized: normalized, Chips: chips}
}

// nip32LabelKind is the NIP-32 "Labeling" event kind.
const nip32LabelKind = 1985

// decodeNip32Label reads a kind-1985 event's "L" (namespace) and "l"
// (label value) tags. Multiple "l" tags contribute multiple values; the
// last "L" tag wins if more than one is present.
func decodeNip32Label(ev *nostr.Event) (namespace string, values []string) {
	for _, t := range ev.Tags {
		if len(t) >= 2 && t[0] == "L" {
			namespace = t[1]
		}
	}
	for _, t := range ev.Tags {
		if len(t) >= 2 && t[0] == "l" {
			values = append(values, t[1])
		}
	}
	return namespace, values
}
