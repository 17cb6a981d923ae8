// Package netclient is the external event-network collaborator boundary:
// the spec places the signed-event pub/sub fabric itself out of scope, so
// this package defines the Client contract the rest of gitgraft consumes
// (publishEvent / fetchEvents / getRelayInfo) plus a relaypool
// implementation over github.com/nbd-wtf/go-nostr.
package netclient

import (
	"context"

	"github.com/nbd-wtf/go-nostr"
)

// RelayInfo is the optional NIP-11-shaped relay metadata a Client may
// expose; nil when a relay does not serve it.
type RelayInfo struct {
	Name          string
	Description   string
	SupportedNIPs []int
}

// Client is the contract the core consumes. Implementations own signer
// credentials and relay connections; the core never sees either.
type Client interface {
	// PublishEvent signs and publishes unsigned (Sig/PubKey/ID left for
	// the implementation to fill) to every configured relay. It returns the
	// event if at least one relay accepted it, and an error if every relay
	// failed.
	PublishEvent(ctx context.Context, unsigned *nostr.Event) (*nostr.Event, error)
	// FetchEvents queries every configured relay with filters and returns
	// the union of matching events, deduplicated by ID. A partial result
	// (some relays failed) is returned without error as long as at least
	// one relay answered.
	FetchEvents(ctx context.Context, filters []nostr.Filter) ([]*nostr.Event, error)
	// GetRelayInfo returns NIP-11 metadata for url, or nil if unavailable.
	GetRelayInfo(ctx context.Context, url string) (*RelayInfo, error)
}
