package watch

import (
	"github.com/coldwire/irc/user"
)

// AutoJoinEntry is one auto-join row, : "auto-joins
// (server-network-wildcard, nickname, channel)".
type AutoJoinEntry struct {
	NetworkWildcard string
	Nickname string
	Channel string
}

// AutoJoin evaluates a freshly-registered connection's (network, nickname)
// against a set of AutoJoinEntry rows, : "On registered,
// the watcher JOINs all entries matching the (server, nickname)."
type AutoJoin struct {
	entries []AutoJoinEntry
}

// NewAutoJoin constructs an AutoJoin watcher over entries.
func NewAutoJoin(entries []AutoJoinEntry) *AutoJoin {
	return &AutoJoin{entries: entries}
}

func (a *AutoJoin) Set(entries []AutoJoinEntry) { a.entries = entries }

func (a *AutoJoin) Entries() []AutoJoinEntry { return a.entries }

// Channels returns the channels to JOIN for a connection to network under
// nickname, once Registered.
func (a *AutoJoin) Channels(network, nickname string) []string {
	var out []string
	for _, e := range a.entries {
		if !user.MatchGlob(e.NetworkWildcard, network) {
			continue
		}
		if e.Nickname != "" && e.Nickname != nickname {
			continue
		}
		out = append(out, e.Channel)
	}
	return out
}
