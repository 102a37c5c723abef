// Package identity derives the deterministic, opaque identifiers the rest of
// the system treats as stable: a provider channel's stable key, and the
// client-facing stream key. Both are base64url(SHA-256(...))[:16].
package identity

import (
	"crypto/sha256"
	"encoding/base64"
	"strconv"
	"strings"
)

// unitSeparator is the 0x1F byte used to join identity fields unambiguously —
// it cannot appear in a playlist attribute value or URL.
const unitSeparator = "\x1F"

// hashKey truncates a SHA-256 digest to 16 base64url characters, unpadded.
func hashKey(parts ...string) string {
	sum := sha256.Sum256([]byte(strings.Join(parts, "")))
	enc := base64.URLEncoding.WithPadding(base64.NoPadding).EncodeToString(sum[:])
	return enc[:16]
}

// ChannelIdentity builds the deduplicated identity string for a parsed
// playlist entry within one fetch, per the Reconciler's channel-upsert rule.
// occurrence is the 1-based count of this exact identity seen so far in the
// current fetch; occurrences beyond the first get a disambiguating suffix so
// exact-duplicate lines still produce distinct stable keys.
func ChannelIdentity(tvgID, displayName, streamURL, groupTitle string, occurrence int) string {
	var base string
	if tvgID != "" {
		base = tvgID
	} else {
		base = displayName + unitSeparator + streamURL
	}
	base += unitSeparator + streamURL + unitSeparator + groupTitle + unitSeparator + displayName
	if occurrence >= 2 {
		base += unitSeparator + "dup:" + strconv.Itoa(occurrence)
	}
	return base
}

// StableChannelKey derives a ProviderChannel's stable key from its identity
// string. The key is independent of fetch run, snapshot, or time.
func StableChannelKey(identity string) string {
	return hashKey(identity)
}

// StreamKeyIdentity builds the identity string fed into the stream-key hash
// for one emitted channel, per the Snapshot Builder's derivation rule.
// tvgID is the channel's tvg-id attribute; when it is empty, the identity
// falls back to display name plus stream URL plus output group.
func StreamKeyIdentity(tvgID, streamURL, outputGroup, displayName string) string {
	if tvgID != "" {
		return tvgID + unitSeparator + streamURL + unitSeparator + outputGroup + unitSeparator + displayName
	}
	return displayName + unitSeparator + streamURL + unitSeparator + outputGroup
}

// StreamKey derives the opaque client-facing token for one emitted channel.
// It is a pure function of (channel identity, profile id) — independent of
// snapshot id, fetch run id, or time.
func StreamKey(identity, profileID string) string {
	return hashKey(identity, ":", profileID)
}
