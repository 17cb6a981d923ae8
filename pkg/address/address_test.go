package address

import (
	"errors"
	"testing"

	"github.com/nbd-wtf/go-nostr/nip19"
	"github.com/stretchr/testify/require"

	"github.com/gitgraft/gitgraft/pkg/ngerrors"
)

const alicePubkeyHex = "3bf0c63fcb93463407af97a5e5ee64fa883d107ef9e558472c4eb9aaaefa459d"

func aliceNpub(t *testing.T) string {
	t.Helper()
	npub, err := nip19.EncodePublicKey(alicePubkeyHex)
	require.NoError(t, err)
	return npub
}

func TestNormalizeCanonicalKeyFromNpubAndName(t *testing.T) {
	npub := aliceNpub(t)
	res, err := NormalizeSync(npub + "/  repo  ")
	require.NoError(t, err)
	require.Equal(t, npub+"/repo", FilesystemKey(res))
}

func TestNormalizeCanonicalKeyFromBareNpub(t *testing.T) {
	npub := aliceNpub(t)
	res, err := NormalizeSync(" " + npub + " ")
	require.NoError(t, err)
	require.Equal(t, npub, FilesystemKey(res))
}

func TestNormalizeEmptyInputIsInvalid(t *testing.T) {
	_, err := NormalizeSync("")
	require.Error(t, err)
	require.True(t, errors.Is(err, ngerrors.New(ngerrors.InvalidInput, ngerrors.UserActionable, "")))
}

func TestNormalizeIsIdempotent(t *testing.T) {
	npub := aliceNpub(t)
	first, err := NormalizeSync(npub + "/  repo  ")
	require.NoError(t, err)

	second, err := NormalizeSync(FilesystemKey(first))
	require.NoError(t, err)

	require.Equal(t, first.CanonicalAddress, second.CanonicalAddress)
}

func TestNormalizeIsIdempotentForBareNpub(t *testing.T) {
	npub := aliceNpub(t)
	first, err := NormalizeSync(npub)
	require.NoError(t, err)

	second, err := NormalizeSync(FilesystemKey(first))
	require.NoError(t, err)

	require.Equal(t, first.CanonicalAddress, second.CanonicalAddress)
}
