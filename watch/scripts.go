package watch

import "sync"

// ConnectionScript is one connection-script row, :
// "connection-scripts (server-key, nickname, lines, enabled?)".
type ConnectionScript struct {
	ServerKey string
	Nickname string
	Lines []string
	Enabled bool
}

// ConnectionScripts holds the per-(server, nickname) command lists that
// fire once after registration, and keeps their Nickname field current
// across identity renames the same way Contacts does, :
// "connection-scripts observe identity renames and adjust their entries
// accordingly; connection-scripts fire their command list once after
// Registered."
type ConnectionScripts struct {
	mu sync.Mutex
	entries []*ConnectionScript
	fired map[*ConnectionScript]bool
}

// NewConnectionScripts constructs a ConnectionScripts watcher over entries.
func NewConnectionScripts(entries []*ConnectionScript) *ConnectionScripts {
	return &ConnectionScripts{entries: entries, fired: make(map[*ConnectionScript]bool)}
}

func (s *ConnectionScripts) Entries() []*ConnectionScript {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*ConnectionScript(nil), s.entries...)
}

// OnRename keeps a script's Nickname field current across an identity
// rename, the same way Contacts.OnRename does.
func (s *ConnectionScripts) OnRename(serverKey, oldNick, newNick string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.entries {
		if e.ServerKey == serverKey && e.Nickname == oldNick {
			e.Nickname = newNick
		}
	}
}

// FireOnRegistered returns the line lists of every enabled, not-yet-fired
// script matching (serverKey, nickname), and marks them fired so a second
// call (e.g. a reconnect on the same *ConnectionScripts instance without a
// fresh one per connection) doesn't refire them. Callers that want fresh
// per-connection firing should construct a new ConnectionScripts per
// connection from the persisted entries instead of reusing one.
func (s *ConnectionScripts) FireOnRegistered(serverKey, nickname string) [][]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out [][]string
	for _, e := range s.entries {
		if !e.Enabled || e.ServerKey != serverKey || e.Nickname != nickname {
			continue
		}
		if s.fired[e] {
			continue
		}
		s.fired[e] = true
		out = append(out, append([]string(nil), e.Lines...))
	}
	return out
}
