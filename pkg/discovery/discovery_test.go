package discovery

import (
	"context"
	"testing"

	"github.com/nbd-wtf/go-nostr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gitgraft/gitgraft/pkg/nevent"
	"github.com/gitgraft/gitgraft/pkg/netclient"
)

const (
	pubkeyOwner = "aaaa000000000000000000000000000000000000000000000000000000aaaa"
	pubkeyA     = "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
	pubkeyB     = "bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"
)

type fakeClient struct {
	events []*nostr.Event
}

var _ netclient.Client = (*fakeClient)(nil)

func (f *fakeClient) PublishEvent(ctx context.Context, unsigned *nostr.Event) (*nostr.Event, error) {
	return unsigned, nil
}

func (f *fakeClient) FetchEvents(ctx context.Context, filters []nostr.Filter) ([]*nostr.Event, error) {
	return f.events, nil
}

func (f *fakeClient) GetRelayInfo(ctx context.Context, url string) (*netclient.RelayInfo, error) {
	return nil, nil
}

func stateEvent(codec nevent.Config, author string, createdAt nostr.Timestamp, refs map[string]string, head string) *nostr.Event {
	ev, _ := codec.EncodeState(nevent.State{Identifier: "repo", Refs: refs, Head: head})
	ev.PubKey = author
	ev.CreatedAt = createdAt
	return ev
}

// TestResolveMaintainerPrecedence is scenario S3: maintainers = {A}. A@t=10
// sets main=c1 with HEAD=refs/heads/main; B@t=20 sets main=c2 with
// HEAD=refs/heads/main; A@t=30 sets main=c3 only (no HEAD tag of its own).
// Expected effective state: main=c3 (A's newest ref value), and the HEAD
// carried by A@t=10 (the only maintainer state that carries a HEAD at all,
// since B is dropped as a non-maintainer and A's t=30 update didn't touch
// HEAD).
func TestResolveMaintainerPrecedence(t *testing.T) {
	codec := nevent.Default()

	ann, err := codec.EncodeAnnouncement(nevent.Announcement{
		Identifier:  "repo",
		Maintainers: []string{pubkeyA},
		CloneURLs:   []string{"https://example.com/repo.git"},
	})
	require.NoError(t, err)
	ann.PubKey = pubkeyOwner
	ann.CreatedAt = 1

	cra := "30617:" + pubkeyOwner + ":repo"

	stA1 := stateEvent(codec, pubkeyA, 10, map[string]string{"refs/heads/main": "c1"}, "refs/heads/main")
	stB := stateEvent(codec, pubkeyB, 20, map[string]string{"refs/heads/main": "c2"}, "refs/heads/main")
	stA2 := stateEvent(codec, pubkeyA, 30, map[string]string{"refs/heads/main": "c3"}, "")

	client := &fakeClient{events: []*nostr.Event{ann, stA1, stB, stA2}}

	res, err := Resolve(context.Background(), client, codec, cra, "")
	require.NoError(t, err)
	require.NotNil(t, res.EffectiveState)
	assert.Equal(t, "c3", res.EffectiveState.Refs["refs/heads/main"])
	assert.Equal(t, "refs/heads/main", res.EffectiveState.Head)
	assert.True(t, res.Maintainers[pubkeyA])
	assert.False(t, res.Maintainers[pubkeyB])
	assert.Equal(t, []string{"https://example.com/repo.git"}, res.CloneURLs)
}

// TestResolveNoAnnouncementFound covers spec §4.5 step 5: no announcement
// found returns empty clone URLs and an empty maintainer set, not an error.
func TestResolveNoAnnouncementFound(t *testing.T) {
	codec := nevent.Default()
	client := &fakeClient{}
	res, err := Resolve(context.Background(), client, codec, "30617:"+pubkeyOwner+":repo", "")
	require.NoError(t, err)
	assert.Empty(t, res.CloneURLs)
	assert.Empty(t, res.Maintainers)
}

// TestResolvePrefersOwnerAnnouncement: when multiple announcements exist
// for the same CRA, the one authored by the CRA's own pubkey wins even if
// it isn't the newest.
func TestResolvePrefersOwnerAnnouncement(t *testing.T) {
	codec := nevent.Default()

	ownerAnn, err := codec.EncodeAnnouncement(nevent.Announcement{Identifier: "repo", Name: "official"})
	require.NoError(t, err)
	ownerAnn.PubKey = pubkeyOwner
	ownerAnn.CreatedAt = 1

	impostorAnn, err := codec.EncodeAnnouncement(nevent.Announcement{Identifier: "repo", Name: "impostor"})
	require.NoError(t, err)
	impostorAnn.PubKey = pubkeyB
	impostorAnn.CreatedAt = 100

	cra := "30617:" + pubkeyOwner + ":repo"
	client := &fakeClient{events: []*nostr.Event{ownerAnn, impostorAnn}}

	res, err := Resolve(context.Background(), client, codec, cra, "")
	require.NoError(t, err)
	require.NotNil(t, res.Announcement)
	assert.Equal(t, "official", res.Announcement.Name)
}
