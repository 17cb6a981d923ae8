package subscribe

import (
	"encoding/json"
	"sort"

	"github.com/cespare/xxhash/v2"
	"github.com/nbd-wtf/go-nostr"
)

// canonicalForm produces a normalized representation of a filter: keys in a
// fixed order, array-valued fields sorted, suitable for byte-stable hashing
// and equality comparison.
type canonicalForm struct {
	IDs     []string            `json:"ids,omitempty"`
	Kinds   []int               `json:"kinds,omitempty"`
	Authors []string            `json:"authors,omitempty"`
	Tags    map[string][]string `json:"tags,omitempty"`
}

func canonicalize(f nostr.Filter) canonicalForm {
	c := canonicalForm{
		IDs:     sortedCopy(f.IDs),
		Kinds:   sortedIntCopy(f.Kinds),
		Authors: sortedCopy(f.Authors),
	}
	if len(f.Tags) > 0 {
		c.Tags = make(map[string][]string, len(f.Tags))
		for k, v := range f.Tags {
			c.Tags[k] = sortedCopy(v)
		}
	}
	return c
}

func sortedCopy(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	out := append([]string(nil), in...)
	sort.Strings(out)
	return out
}

func sortedIntCopy(in []int) []int {
	if len(in) == 0 {
		return nil
	}
	out := append([]int(nil), in...)
	sort.Ints(out)
	return out
}

// canonicalJSON returns the fixed-key-order, sorted-array JSON encoding used both
// for exact-duplicate detection and as the xxhash input.
func canonicalJSON(f nostr.Filter) []byte {
	// json.Marshal on a struct already emits keys in field-declaration
	// order, which we've fixed above; map keys are sorted by
	// encoding/json automatically.
	b, _ := json.Marshal(canonicalize(f))
	return b
}

// canonicalHash is the stable grouping/equality key for a filter, ignoring
// since/until/limit (which the planner never sets).
func canonicalHash(f nostr.Filter) uint64 {
	return xxhash.Sum64(canonicalJSON(f))
}

// keySetHash hashes just the set of tag/field keys present (ids, kinds,
// authors, and which tag names), used to find filters that are mergeable
// (same shape, different values) even when their values differ.
func keySetHash(f nostr.Filter) uint64 {
	var keys []string
	if len(f.IDs) > 0 {
		keys = append(keys, "ids")
	}
	if len(f.Kinds) > 0 {
		keys = append(keys, "kinds")
	}
	if len(f.Authors) > 0 {
		keys = append(keys, "authors")
	}
	for k := range f.Tags {
		keys = append(keys, "#"+k)
	}
	sort.Strings(keys)
	b, _ := json.Marshal(keys)
	return xxhash.Sum64(b)
}

// isMergeable reports whether a filter lacks since/until/limit, per the
// dedup algorithm's merge precondition.
func isMergeable(f nostr.Filter) bool {
	return f.Since == nil && f.Until == nil && f.Limit == 0
}
