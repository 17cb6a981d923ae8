package netclient

import (
	"context"
	"errors"
	"sync"

	"github.com/nbd-wtf/go-nostr"
	"github.com/nbd-wtf/go-nostr/nip11"

	"github.com/gitgraft/gitgraft/pkg/ngerrors"
)

// Signer signs an unsigned event in place, filling ID/PubKey/Sig. Kept
// private to RelayPool — signing never leaves this boundary, matching the
// spec's framing of the signer as an opaque closure the core never touches.
type Signer interface {
	Sign(ctx context.Context, ev *nostr.Event) error
}

var errNoRelaysConfigured = errors.New("no relays configured")

// RelayPool is a Client backed by github.com/nbd-wtf/go-nostr's SimplePool,
// grounded on the sandwichfarm-nophr sync engine's pattern of bootstrapping
// a fixed relay set and fanning reads/writes across all of them.
type RelayPool struct {
	pool   *nostr.SimplePool
	relays []string
	signer Signer
}

// NewRelayPool constructs a Client over relays. signer may be nil for a
// read-only client (FetchEvents/GetRelayInfo work; PublishEvent requires a
// pre-signed event in that case).
func NewRelayPool(ctx context.Context, relays []string, signer Signer) *RelayPool {
	return &RelayPool{
		pool:   nostr.NewSimplePool(ctx),
		relays: relays,
		signer: signer,
	}
}

// PublishEvent signs unsigned (if a Signer is configured) and publishes to
// every relay in parallel, per §4 "write-to-all" framing at the network
// boundary. It waits for every relay to answer and succeeds if at least one
// of them accepted the event.
func (c *RelayPool) PublishEvent(ctx context.Context, unsigned *nostr.Event) (*nostr.Event, error) {
	if c.signer != nil {
		if err := c.signer.Sign(ctx, unsigned); err != nil {
			return nil, ngerrors.Wrap(err, "signing event")
		}
	}
	if len(c.relays) == 0 {
		return nil, ngerrors.Wrap(errNoRelaysConfigured, "publishing event")
	}

	var mu sync.Mutex
	var lastErr error
	accepted := false
	var wg sync.WaitGroup
	for _, url := range c.relays {
		url := url
		wg.Add(1)
		go func() {
			defer wg.Done()
			relay, err := c.pool.EnsureRelay(url)
			if err != nil {
				mu.Lock()
				lastErr = err
				mu.Unlock()
				return
			}
			if err := relay.Publish(ctx, *unsigned); err != nil {
				mu.Lock()
				lastErr = err
				mu.Unlock()
				return
			}
			mu.Lock()
			accepted = true
			mu.Unlock()
		}()
	}
	wg.Wait()

	if !accepted {
		if lastErr == nil {
			lastErr = errNoRelaysConfigured
		}
		return nil, ngerrors.Wrap(lastErr, "publishing event: no relay accepted it")
	}
	return unsigned, nil
}

// FetchEvents queries every relay with every filter in parallel and
// returns the union, deduplicated by event ID. A partial response (some
// relays erroring) is not itself an error as long as one relay answered —
// matching the spec's "network errors propagate only if zero events were
// received from any relay" failure semantics.
func (c *RelayPool) FetchEvents(ctx context.Context, filters []nostr.Filter) ([]*nostr.Event, error) {
	var mu sync.Mutex
	seen := map[string]*nostr.Event{}
	var lastErr error
	answered := 0
	var wg sync.WaitGroup
	for _, url := range c.relays {
		url := url
		wg.Add(1)
		go func() {
			defer wg.Done()
			relay, err := c.pool.EnsureRelay(url)
			if err != nil {
				mu.Lock()
				lastErr = err
				mu.Unlock()
				return
			}
			for _, f := range filters {
				events, err := relay.QuerySync(ctx, f)
				if err != nil {
					mu.Lock()
					lastErr = err
					mu.Unlock()
					continue
				}
				mu.Lock()
				answered++
				for _, ev := range events {
					seen[ev.ID] = ev
				}
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if answered == 0 {
		return nil, ngerrors.Wrap(lastErr, "fetching events: no relay responded")
	}
	out := make([]*nostr.Event, 0, len(seen))
	for _, ev := range seen {
		out = append(out, ev)
	}
	return out, nil
}

// GetRelayInfo fetches NIP-11 relay metadata. It is optional per the spec;
// a fetch failure is reported as (nil, nil) rather than an error so callers
// that don't care about relay metadata never need to handle it specially.
func (c *RelayPool) GetRelayInfo(ctx context.Context, url string) (*RelayInfo, error) {
	info, err := nip11.Fetch(ctx, url)
	if err != nil {
		return nil, nil
	}
	return &RelayInfo{
		Name:          info.Name,
		Description:   info.Description,
		SupportedNIPs: info.SupportedNIPs,
	}, nil
}
