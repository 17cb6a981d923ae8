// Package address implements the KeyNormalizer: turning the many surface
// syntaxes a repository can be addressed by into one Canonical Repository
// Address (CRA), plus the Canonical Filesystem Key used for on-disk paths.
package address

import (
	"context"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"

	"github.com/nbd-wtf/go-nostr/nip19"

	"github.com/gitgraft/gitgraft/pkg/ngerrors"
)

// AnnouncementKind is the event kind a decoded bech32 address must carry to
// be accepted as a repo address by Normalize.
const AnnouncementKind = 30617

// Parts is the decomposition of a normalized address.
type Parts struct {
	PubkeyHex    string
	EncodedPubkey string
	Identifier   string
	Nip05        string
}

// Result is the output of Normalize.
type Result struct {
	CanonicalAddress string
	Parts            Parts
}

// Nip05Resolver resolves a nip05 identifier (user@domain) to a hex pubkey.
// Kept as an injected interface so pkg/address stays pure; Normalize never
// calls it directly without a resolver configured.
type Nip05Resolver interface {
	Resolve(ctx context.Context, nip05 string) (pubkeyHex string, err error)
}

var legacyNumericKey = regexp.MustCompile(`^[0-9]+$`)
var legacyKindPrefixed = regexp.MustCompile(`^kind:[0-9]+:`)
var nip05Pattern = regexp.MustCompile(`^[A-Za-z0-9_.+-]+@[A-Za-z0-9-]+(\.[A-Za-z0-9-]+)+$`)
var hex64 = regexp.MustCompile(`^[0-9a-fA-F]{64}$`)

// Normalize accepts any of: bech32 repo-address (naddr), bech32 pubkey
// (npub), "<npub>/<name>", "<hex-pubkey>/<name>", "<nip05>/<name>", a bare
// npub, a bare hex pubkey, or a bare nip05. It resolves nip05 forms through
// resolver, which may be nil — in that case nip05 inputs fail with
// RequiresNetwork, matching the synchronous variant described in the spec.
func Normalize(ctx context.Context, input string, resolver Nip05Resolver) (*Result, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return nil, ngerrors.New(ngerrors.InvalidInput, ngerrors.UserActionable, "empty input")
	}

	// naddr1... encodes a full repo address (kind, pubkey, identifier).
	if strings.HasPrefix(input, "naddr1") {
		prefix, data, err := nip19.Decode(input)
		if err != nil {
			return nil, ngerrors.New(ngerrors.InvalidInput, ngerrors.UserActionable, fmt.Sprintf("invalid naddr: %v", err))
		}
		if prefix != "naddr" {
			return nil, ngerrors.New(ngerrors.InvalidInput, ngerrors.UserActionable, "not an naddr")
		}
		ep, ok := data.(nip19.EntityPointer)
		if !ok {
			return nil, ngerrors.New(ngerrors.InvalidInput, ngerrors.UserActionable, "malformed naddr pointer")
		}
		if ep.Kind != AnnouncementKind {
			return nil, ngerrors.New(ngerrors.InvalidInput, ngerrors.UserActionable, "naddr kind is not the repo-announcement kind")
		}
		return build(ep.PublicKey, ep.Identifier, "")
	}

	// A bare npub, or npub/name.
	if strings.HasPrefix(input, "npub1") {
		npub, rest, _ := strings.Cut(input, "/")
		prefix, data, err := nip19.Decode(npub)
		if err != nil || prefix != "npub" {
			return nil, ngerrors.New(ngerrors.InvalidInput, ngerrors.UserActionable, "invalid npub")
		}
		pk, _ := data.(string)
		return build(pk, strings.TrimSpace(rest), "")
	}

	// hex-pubkey or hex-pubkey/name.
	if head, rest, found := strings.Cut(input, "/"); found || hex64.MatchString(input) {
		candidate := head
		if !found {
			candidate = input
			rest = ""
		}
		if hex64.MatchString(candidate) {
			if _, err := hex.DecodeString(candidate); err == nil {
				return build(strings.ToLower(candidate), strings.TrimSpace(rest), "")
			}
		}
	}

	// nip05-handle or nip05-handle/name.
	head, rest, found := strings.Cut(input, "/")
	nip05Candidate := input
	name := ""
	if found {
		nip05Candidate = head
		name = strings.TrimSpace(rest)
	}
	if nip05Pattern.MatchString(nip05Candidate) {
		if resolver == nil {
			return nil, ngerrors.New(ngerrors.RequiresNetwork, ngerrors.UserActionable, "nip05 input requires a network lookup")
		}
		pk, err := resolver.Resolve(ctx, nip05Candidate)
		if err != nil {
			return nil, ngerrors.New(ngerrors.Unresolvable, ngerrors.UserActionable, fmt.Sprintf("could not resolve %s: %v", nip05Candidate, err))
		}
		return build(pk, name, nip05Candidate)
	}

	return nil, ngerrors.New(ngerrors.InvalidInput, ngerrors.UserActionable, fmt.Sprintf("unrecognized address syntax: %q", input))
}

// NormalizeSync is the synchronous variant: it never performs a network
// lookup, failing with RequiresNetwork on nip05 inputs instead.
func NormalizeSync(input string) (*Result, error) {
	return Normalize(context.Background(), input, nil)
}

func build(pubkeyHex, identifier, nip05 string) (*Result, error) {
	pubkeyHex = strings.ToLower(strings.TrimSpace(pubkeyHex))
	if !hex64.MatchString(pubkeyHex) {
		return nil, ngerrors.New(ngerrors.InvalidInput, ngerrors.UserActionable, "resolved pubkey is not 32 bytes of hex")
	}
	raw, err := hex.DecodeString(pubkeyHex)
	if err != nil {
		return nil, ngerrors.New(ngerrors.InvalidInput, ngerrors.UserActionable, "malformed pubkey hex")
	}
	encoded, err := nip19.EncodePublicKey(pubkeyHex)
	if err != nil {
		return nil, ngerrors.Wrap(err, "encoding pubkey as npub")
	}
	_ = raw

	canonical := fmt.Sprintf("%d:%s:%s", AnnouncementKind, pubkeyHex, identifier)
	return &Result{
		CanonicalAddress: canonical,
		Parts: Parts{
			PubkeyHex:     pubkeyHex,
			EncodedPubkey: encoded,
			Identifier:    identifier,
			Nip05:         nip05,
		},
	}, nil
}

// FilesystemKey derives the Canonical Filesystem Key from a Result:
// "<encoded-pubkey>/<identifier>", or just "<encoded-pubkey>" when the
// identifier is empty.
func FilesystemKey(r *Result) string {
	if r.Parts.Identifier == "" {
		return r.Parts.EncodedPubkey
	}
	return r.Parts.EncodedPubkey + "/" + r.Parts.Identifier
}

// LegacyKeyKind classifies inputs the migration tooling must flag: bare
// numeric keys, and "kind:"-prefixed strings. Neither is auto-rewritten;
// callers surface this to the user as a migration hint.
type LegacyKeyKind int

const (
	NotLegacy LegacyKeyKind = iota
	LegacyNumeric
	LegacyKindPrefixed
)

// DetectLegacyKey reports whether input matches one of the legacy key
// shapes that predate CRA normalization.
func DetectLegacyKey(input string) LegacyKeyKind {
	input = strings.TrimSpace(input)
	switch {
	case legacyKindPrefixed.MatchString(input):
		return LegacyKindPrefixed
	case legacyNumericKey.MatchString(input):
		return LegacyNumeric
	default:
		return NotLegacy
	}
}
