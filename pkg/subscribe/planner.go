// Package subscribe implements the SubscriptionPlanner: given an address, a
// root event id, and/or a grouping key, build the minimal deduplicated set
// of network filters that covers them.
package subscribe

import (
	"sort"

	"github.com/nbd-wtf/go-nostr"
)

// Input is the optional triple the planner accepts.
type Input struct {
	Address     string
	RootEventID string
	GroupingKey string
}

// StackKinds are the additional kinds fetched when stacking filters are
// enabled, covering patch and status events for patch-stack discovery.
var StackKinds = []int{1617, 1630, 1631, 1632, 1633}

// shapeRank implements the stable-sort priority: ids, #e, #a, #r.
func shapeRank(f nostr.Filter) int {
	switch {
	case len(f.IDs) > 0:
		return 0
	case len(f.Tags["e"]) > 0 && len(f.Kinds) == 0:
		return 1
	case len(f.Tags["a"]) > 0 && len(f.Kinds) == 0:
		return 2
	case len(f.Tags["r"]) > 0:
		return 3
	default:
		return 4
	}
}

// Plan builds the ordered, deduplicated filter list for Input.
func (c Config) Plan(in Input) []nostr.Filter {
	var filters []nostr.Filter

	if in.RootEventID != "" {
		filters = append(filters, nostr.Filter{IDs: []string{in.RootEventID}})
		filters = append(filters, nostr.Filter{Tags: nostr.TagMap{"e": []string{in.RootEventID}}})
	}
	if in.Address != "" {
		filters = append(filters, nostr.Filter{Tags: nostr.TagMap{"a": []string{in.Address}}})
	}
	if in.GroupingKey != "" {
		filters = append(filters, nostr.Filter{Tags: nostr.TagMap{"r": []string{in.GroupingKey}}})
	}

	if c.EnableStackingFilters {
		if in.RootEventID != "" {
			filters = append(filters, nostr.Filter{Tags: nostr.TagMap{"e": []string{in.RootEventID}}, Kinds: StackKinds})
		}
		if in.Address != "" {
			filters = append(filters, nostr.Filter{Tags: nostr.TagMap{"a": []string{in.Address}}, Kinds: StackKinds})
		}
	}

	return dedupAndSort(filters)
}

// dedupAndSort implements the three-step algorithm: drop exact duplicates,
// merge filters sharing a key set, stable-sort by shape priority.
func dedupAndSort(filters []nostr.Filter) []nostr.Filter {
	// Step (i): drop exact duplicates by canonical hash.
	seen := map[uint64]bool{}
	deduped := make([]nostr.Filter, 0, len(filters))
	for _, f := range filters {
		h := canonicalHash(f)
		if seen[h] {
			continue
		}
		seen[h] = true
		deduped = append(deduped, f)
	}

	// Step (ii): merge filters sharing the same key set (mergeable ones
	// only) by unioning their array tag values.
	type group struct {
		base  nostr.Filter
		index int
	}
	groups := map[uint64]*group{}
	var order []uint64
	var unmergeable []nostr.Filter

	for _, f := range deduped {
		if !isMergeable(f) {
			unmergeable = append(unmergeable, f)
			continue
		}
		ks := keySetHash(f)
		g, ok := groups[ks]
		if !ok {
			cp := f
			cp.Tags = copyTagMap(f.Tags)
			g = &group{base: cp, index: len(order)}
			groups[ks] = g
			order = append(order, ks)
			continue
		}
		g.base = unionFilter(g.base, f)
	}

	merged := make([]nostr.Filter, len(order))
	for i, ks := range order {
		merged[i] = groups[ks].base
	}
	merged = append(merged, unmergeable...)

	// Step (iii): stable-sort by shape priority.
	sort.SliceStable(merged, func(i, j int) bool {
		return shapeRank(merged[i]) < shapeRank(merged[j])
	})
	return merged
}

func copyTagMap(in nostr.TagMap) nostr.TagMap {
	if in == nil {
		return nil
	}
	out := make(nostr.TagMap, len(in))
	for k, v := range in {
		out[k] = append([]string(nil), v...)
	}
	return out
}

// unionFilter merges b into a by unioning array-valued tag fields. The
// shared key-set hash guarantees only that both filters carry the same
// fields, not the same values, so IDs, Kinds, and Authors are unioned too.
func unionFilter(a, b nostr.Filter) nostr.Filter {
	a.IDs = unionStrings(a.IDs, b.IDs)
	a.Kinds = unionInts(a.Kinds, b.Kinds)
	a.Authors = unionStrings(a.Authors, b.Authors)
	if len(b.Tags) > 0 {
		if a.Tags == nil {
			a.Tags = nostr.TagMap{}
		}
		for k, v := range b.Tags {
			a.Tags[k] = unionStrings(a.Tags[k], v)
		}
	}
	return a
}

func unionStrings(a, b []string) []string {
	if len(b) == 0 {
		return a
	}
	present := map[string]bool{}
	for _, v := range a {
		present[v] = true
	}
	out := append([]string(nil), a...)
	for _, v := range b {
		if !present[v] {
			present[v] = true
			out = append(out, v)
		}
	}
	return out
}

func unionInts(a, b []int) []int {
	if len(b) == 0 {
		return a
	}
	present := map[int]bool{}
	for _, v := range a {
		present[v] = true
	}
	out := append([]int(nil), a...)
	for _, v := range b {
		if !present[v] {
			present[v] = true
			out = append(out, v)
		}
	}
	return out
}
