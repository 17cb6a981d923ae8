package nevent

import (
	"sort"

	"github.com/nbd-wtf/go-nostr"
)

// firstTagValue returns the second element of the first tag whose first
// element equals key, or "" if absent.
func firstTagValue(tags nostr.Tags, key string) string {
	for _, t := range tags {
		if len(t) >= 2 && t[0] == key {
			return t[1]
		}
	}
	return ""
}

// allTagValues returns the second element of every tag whose first element
// equals key, in the order they appear.
func allTagValues(tags nostr.Tags, key string) []string {
	var out []string
	for _, t := range tags {
		if len(t) >= 2 && t[0] == key {
			out = append(out, t[1])
		}
	}
	return out
}

// sortedSingleValueTags builds one tag per value for key, sorted so that two
// encodings of an equivalent set produce byte-equal output.
func sortedSingleValueTags(key string, values []string) nostr.Tags {
	sorted := append([]string(nil), values...)
	sort.Strings(sorted)
	tags := make(nostr.Tags, 0, len(sorted))
	for _, v := range sorted {
		tags = append(tags, nostr.Tag{key, v})
	}
	return tags
}
