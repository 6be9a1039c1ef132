// myclaw - personal AI assistant runtime
// License: MIT

package session

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
)

// A session key canonically identifies one conversation context:
//
//	agent:<agent>:channel:<channel>:account:<account>:peer:<kind>:<peerID>
//
// Segments are normalised before assembly so the same logical conversation
// always maps to the same key and on-disk slug.

// Peer kinds accepted in a session key.
const (
	PeerDirect  = "direct"
	PeerGroup   = "group"
	PeerChannel = "channel"
)

// ErrMalformedKey reports a string that does not parse as a session key.
var ErrMalformedKey = errors.New("malformed session key")

// KeyParams carries the raw identity fields of a conversation.
type KeyParams struct {
	Agent   string
	Channel string
	Account string
	Peer    string // one of PeerDirect/PeerGroup/PeerChannel
	PeerID  string
}

// Key is a parsed canonical session key.
type Key struct {
	Agent   string
	Channel string
	Account string
	Peer    string
	PeerID  string
}

// String reassembles the canonical form.
func (k Key) String() string {
	return fmt.Sprintf("agent:%s:channel:%s:account:%s:peer:%s:%s",
		k.Agent, k.Channel, k.Account, k.Peer, k.PeerID)
}

const maxSegmentRunes = 128

// normalizeSegment trims, lowercases, collapses whitespace runs to "_",
// strips anything outside [a-z0-9_.@+:-], and clamps to 128 code points.
// An empty result takes the given fallback.
func normalizeSegment(raw, fallback string) string {
	s := strings.ToLower(strings.TrimSpace(raw))

	var b strings.Builder
	inSpace := false
	for _, r := range s {
		if unicode.IsSpace(r) {
			if !inSpace {
				b.WriteByte('_')
				inSpace = true
			}
			continue
		}
		inSpace = false
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '_', r == '.', r == '@', r == '+', r == ':', r == '-':
			b.WriteRune(r)
		}
	}

	out := b.String()
	if runes := []rune(out); len(runes) > maxSegmentRunes {
		out = string(runes[:maxSegmentRunes])
	}
	if out == "" {
		return fallback
	}
	return out
}

func normalizePeerKind(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case PeerGroup:
		return PeerGroup
	case PeerChannel:
		return PeerChannel
	default:
		return PeerDirect
	}
}

// BuildKey produces the canonical session key string for the given params.
// BuildKey is idempotent: feeding a built key's fields back yields the same
// key.
func BuildKey(p KeyParams) string {
	return Key{
		Agent:   normalizeSegment(p.Agent, "main"),
		Channel: normalizeSegment(p.Channel, "unknown"),
		Account: normalizeSegment(p.Account, "default"),
		Peer:    normalizePeerKind(p.Peer),
		PeerID:  normalizeSegment(p.PeerID, "unknown"),
	}.String()
}

// ParseKey splits a canonical key back into its five fields. The peer
// identifier may itself contain ':' separators; everything after the
// "peer:<kind>:" prefix belongs to it.
func ParseKey(s string) (Key, error) {
	parts := strings.Split(s, ":")
	if len(parts) < 9 {
		return Key{}, fmt.Errorf("%w: %q", ErrMalformedKey, s)
	}
	if parts[0] != "agent" || parts[2] != "channel" || parts[4] != "account" || parts[6] != "peer" {
		return Key{}, fmt.Errorf("%w: %q", ErrMalformedKey, s)
	}
	kind := parts[7]
	if kind != PeerDirect && kind != PeerGroup && kind != PeerChannel {
		return Key{}, fmt.Errorf("%w: bad peer kind %q", ErrMalformedKey, kind)
	}
	k := Key{
		Agent:   parts[1],
		Channel: parts[3],
		Account: parts[5],
		Peer:    kind,
		PeerID:  strings.Join(parts[8:], ":"),
	}
	if k.Agent == "" || k.Channel == "" || k.Account == "" || k.PeerID == "" {
		return Key{}, fmt.Errorf("%w: empty segment in %q", ErrMalformedKey, s)
	}
	return k, nil
}

// Slug converts a session key into its filesystem-safe form.
func Slug(key string) string {
	return strings.ReplaceAll(key, ":", "__")
}
