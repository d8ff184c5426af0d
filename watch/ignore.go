// Package watch implements auto-* watchers: ignore,
// auto-mode, auto-join, contacts, and connection-scripts. Each watcher is a
// small, independent adaptor over a slice of persisted entries (read
// through the small interfaces describes; this package only
// needs the in-memory entry shapes and the matching logic, not the storage
// side, which belongs to `irc/config`), matching 
// decomposition of "a Connection that is also... an ignore-list-observer"
// into small single-trait adaptor values.
package watch

import (
	"github.com/coldwire/irc/user"
)

// MatchKind is a bitmask of the message kinds an IgnoreEntry applies to.
type MatchKind int

const (
	MatchPrivmsg MatchKind = 1 << iota
	MatchNotice
	MatchCTCP
	MatchInvite
)

// IgnoreEntry is one ignore-list row, : "ignore (server-key,
// user-mask, kinds)".
type IgnoreEntry struct {
	ServerKey string
	Mask string
	Kinds MatchKind
}

// Ignore evaluates incoming traffic against a set of IgnoreEntry rows.
// Per : "Incoming PRIVMSG/NOTICE/CTCP/invites test against
// ignore with wildcard matching; matches never open a new buffer but may
// optionally be echoed to SERVER buffer."
type Ignore struct {
	entries []IgnoreEntry
}

// NewIgnore constructs an Ignore watcher over entries.
func NewIgnore(entries []IgnoreEntry) *Ignore {
	return &Ignore{entries: entries}
}

// Set replaces the entry list wholesale (e.g. after a config reload).
func (g *Ignore) Set(entries []IgnoreEntry) { g.entries = entries }

// Entries returns the current entry list.
func (g *Ignore) Entries() []IgnoreEntry { return g.entries }

// Matches reports whether u's address matches any ignore entry scoped to
// serverKey whose Kinds include kind.
func (g *Ignore) Matches(serverKey string, u *user.User, kind MatchKind) bool {
	for _, e := range g.entries {
		if e.ServerKey != serverKey {
			continue
		}
		if e.Kinds&kind == 0 {
			continue
		}
		if user.MatchMask(e.Mask, u) {
			return true
		}
	}
	return false
}
