package watch

import "sync"

// ContactEntry is one contact-list row, : "contacts (name,
// group, server-key, user)".
type ContactEntry struct {
	Name string
	Group string
	ServerKey string
	User string // nickname, kept current by rename cross-reference
}

// Contacts holds the contact list and keeps each entry's User field current
// as nicknames change, : "Contacts... observe identity
// renames and adjust their entries accordingly."
type Contacts struct {
	mu sync.Mutex
	entries []*ContactEntry
}

// NewContacts constructs a Contacts watcher over entries.
func NewContacts(entries []*ContactEntry) *Contacts {
	return &Contacts{entries: entries}
}

// Entries returns a snapshot of the current contact list.
func (c *Contacts) Entries() []*ContactEntry {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*ContactEntry(nil), c.entries...)
}

// Add appends a new contact entry.
func (c *Contacts) Add(e *ContactEntry) {
	c.mu.Lock()
	c.entries = append(c.entries, e)
	c.mu.Unlock()
}

// Remove deletes the entry matching name exactly.
func (c *Contacts) Remove(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, e := range c.entries {
		if e.Name == name {
			c.entries = append(c.entries[:i], c.entries[i+1:]...)
			return
		}
	}
}

// OnRename updates every contact entry scoped to serverKey whose User
// matches oldNick to newNick, keeping the contact pointed at the same
// person across a nickname change.
func (c *Contacts) OnRename(serverKey, oldNick, newNick string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, e := range c.entries {
		if e.ServerKey == serverKey && e.User == oldNick {
			e.User = newNick
		}
	}
}

// ByUser returns every contact entry scoped to serverKey currently pointed
// at nick, for a UI that wants to annotate a user list with known contacts.
func (c *Contacts) ByUser(serverKey, nick string) []*ContactEntry {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []*ContactEntry
	for _, e := range c.entries {
		if e.ServerKey == serverKey && e.User == nick {
			out = append(out, e)
		}
	}
	return out
}
