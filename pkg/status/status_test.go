package status

import (
	"testing"

	"github.com/nbd-wtf/go-nostr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gitgraft/gitgraft/pkg/nevent"
)

const (
	rootAuthor = "aaaa000000000000000000000000000000000000000000000000000000aaaa"
	maintainer = "bbbb000000000000000000000000000000000000000000000000000000bbbb"
	rootID     = "root123"
)

func statusEvent(author string, kind int, createdAt nostr.Timestamp, rootID string) *nostr.Event {
	return &nostr.Event{
		PubKey:    author,
		Kind:      kind,
		CreatedAt: createdAt,
		Tags:      nostr.Tags{{"e", rootID, "", "root"}},
	}
}

// TestResolveLatestRoleOutranksKindAndTime is scenario S7: the root
// author's open status at t=100 loses to the maintainer's draft status at
// t=50 — role outranks both kind rank and timestamp.
func TestResolveLatestRoleOutranksKindAndTime(t *testing.T) {
	candidates := []*nostr.Event{
		statusEvent(rootAuthor, nevent.KindStatusOpen, 100, rootID),
		statusEvent(maintainer, nevent.KindStatusDraft, 50, rootID),
	}
	maintainers := map[string]bool{maintainer: true}

	best := ResolveLatest(rootID, candidates, maintainers, rootAuthor)
	require.NotNil(t, best)
	assert.Equal(t, maintainer, best.PubKey)
	assert.Equal(t, nevent.KindStatusDraft, best.Kind)
}

func TestResolveLatestKindRankWithinSameRole(t *testing.T) {
	candidates := []*nostr.Event{
		statusEvent(maintainer, nevent.KindStatusOpen, 10, rootID),
		statusEvent(maintainer, nevent.KindStatusClosed, 5, rootID),
	}
	maintainers := map[string]bool{maintainer: true}

	best := ResolveLatest(rootID, candidates, maintainers, rootAuthor)
	require.NotNil(t, best)
	assert.Equal(t, nevent.KindStatusClosed, best.Kind)
}

func TestResolveLatestTimestampTiebreak(t *testing.T) {
	candidates := []*nostr.Event{
		statusEvent(maintainer, nevent.KindStatusOpen, 10, rootID),
		statusEvent(maintainer, nevent.KindStatusOpen, 20, rootID),
	}
	maintainers := map[string]bool{maintainer: true}

	best := ResolveLatest(rootID, candidates, maintainers, rootAuthor)
	require.NotNil(t, best)
	assert.EqualValues(t, 20, best.CreatedAt)
}

func TestResolveLatestIgnoresUnrelatedRoot(t *testing.T) {
	candidates := []*nostr.Event{
		statusEvent(maintainer, nevent.KindStatusOpen, 10, "some-other-root"),
	}
	best := ResolveLatest(rootID, candidates, map[string]bool{maintainer: true}, rootAuthor)
	assert.Nil(t, best)
}

func TestAggregateLabels(t *testing.T) {
	selfLabel := &nostr.Event{
		Kind: nip32LabelKind,
		Tags: nostr.Tags{{"L", "severity"}, {"l", "high"}, {"l", "needs-review"}},
	}
	externalLabel := &nostr.Event{
		Kind: nip32LabelKind,
		Tags: nostr.Tags{{"L", "severity"}, {"l", "high"}},
	}
	legacy := []string{"bug", "bug"}

	labels := AggregateLabels(rootAuthor, []*nostr.Event{selfLabel, externalLabel}, legacy)

	assert.Equal(t, []string{"high", "needs-review"}, labels.Normalized["severity"])
	assert.Equal(t, []string{"bug"}, labels.Normalized[DefaultNamespace])
	assert.Equal(t, []string{"bug", "high", "needs-review"}, labels.Chips)
}
