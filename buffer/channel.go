package buffer

import (
	"sort"
	"sync"
	"time"

	"github.com/coldwire/irc/user"
)

// ChannelModes holds the ban/except/invite list state a channel buffer tracks
// alongside its simple mode string, per "modes sub-entity
// (ban/except/invite lists + got-X flags)" and §4.4's channel-modes collector.
type ChannelModes struct {
	mu sync.Mutex

	Modes string
	Key string
	Limit int

	bans []ListEntry
	excepts []ListEntry
	invites []ListEntry

	gotBans bool
	gotExcepts bool
	gotInvites bool
}

// ListEntry is one row of a ban/except/invite list (mode +b/+e/+I), with the
// setter/date metadata the server reports alongside the mask.
type ListEntry struct {
	Mask string
	Setter string
	Set time.Time
}

func (m *ChannelModes) Bans() []ListEntry { m.mu.Lock(); defer m.mu.Unlock(); return append([]ListEntry(nil), m.bans...) }
func (m *ChannelModes) Excepts() []ListEntry { m.mu.Lock(); defer m.mu.Unlock(); return append([]ListEntry(nil), m.excepts...) }
func (m *ChannelModes) Invites() []ListEntry { m.mu.Lock(); defer m.mu.Unlock(); return append([]ListEntry(nil), m.invites...) }

// ResetBans clears the ban list and its got-flag, in preparation for a fresh
// MODE +b query.
func (m *ChannelModes) ResetBans() { m.mu.Lock(); m.bans, m.gotBans = nil, false; m.mu.Unlock() }
func (m *ChannelModes) ResetExcepts() { m.mu.Lock(); m.excepts, m.gotExcepts = nil, false; m.mu.Unlock() }
func (m *ChannelModes) ResetInvites() { m.mu.Lock(); m.invites, m.gotInvites = nil, false; m.mu.Unlock() }

func (m *ChannelModes) AddBan(e ListEntry) { m.mu.Lock(); m.bans = append(m.bans, e); m.mu.Unlock() }
func (m *ChannelModes) AddExcept(e ListEntry) { m.mu.Lock(); m.excepts = append(m.excepts, e); m.mu.Unlock() }
func (m *ChannelModes) AddInvite(e ListEntry) { m.mu.Lock(); m.invites = append(m.invites, e); m.mu.Unlock() }

func (m *ChannelModes) SetGotBans(v bool) { m.mu.Lock(); m.gotBans = v; m.mu.Unlock() }
func (m *ChannelModes) SetGotExcepts(v bool) { m.mu.Lock(); m.gotExcepts = v; m.mu.Unlock() }
func (m *ChannelModes) SetGotInvites(v bool) { m.mu.Lock(); m.gotInvites = v; m.mu.Unlock() }

func (m *ChannelModes) GotBans() bool { m.mu.Lock(); defer m.mu.Unlock(); return m.gotBans }
func (m *ChannelModes) GotExcepts() bool { m.mu.Lock(); defer m.mu.Unlock(); return m.gotExcepts }
func (m *ChannelModes) GotInvites() bool { m.mu.Lock(); defer m.mu.Unlock(); return m.gotInvites }

// Channel is the CHANNEL buffer variant: a Buffer plus topic, creation time,
// simple modes, and an ordered user list.
type Channel struct {
	*Buffer

	mu sync.Mutex

	topic string
	topicSetBy string
	topicSetAt time.Time
	created time.Time

	modes *ChannelModes

	users map[string]*user.ChannelUser // keyed by case-folded nick
	order []*user.ChannelUser // kept sorted by CompareValue/nick

	joining bool
	updatingNames bool
	pendingNames map[string]*user.ChannelUser

	prefixes func() user.PrefixTable
}

// NewChannel constructs a Channel buffer. prefixes is a callback resolving the
// *current* PREFIX table from the owning connection, so that re-sorting after
// an ISUPPORT change always uses live data rather than a stale snapshot
// ( "changing prefix table updates orderings lazily").
func NewChannel(id ID, conn ConnectionID, name string, capacity int, prefixes func() user.PrefixTable) *Channel {
	return &Channel{
		Buffer: New(id, conn, KindChannel, name, capacity),
		modes: &ChannelModes{},
		users: make(map[string]*user.ChannelUser),
		prefixes: prefixes,
		created: time.Now(),
	}
}

func (c *Channel) Modes() *ChannelModes { return c.modes }

func (c *Channel) Topic() (text, setBy string, setAt time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.topic, c.topicSetBy, c.topicSetAt
}

func (c *Channel) SetTopic(text, setBy string, setAt time.Time) {
	c.mu.Lock()
	c.topic, c.topicSetBy, c.topicSetAt = text, setBy, setAt
	c.mu.Unlock()
}

func (c *Channel) Created() time.Time { c.mu.Lock(); defer c.mu.Unlock(); return c.created }
func (c *Channel) SetCreated(t time.Time) { c.mu.Lock(); c.created = t; c.mu.Unlock() }

func (c *Channel) Joining() bool { c.mu.Lock(); defer c.mu.Unlock(); return c.joining }
func (c *Channel) SetJoining(v bool) { c.mu.Lock(); c.joining = v; c.mu.Unlock() }

// BeginNames starts a fresh NAMES collection (RPL_NAMREPLY... RPL_ENDOFNAMES),
// : names accumulate into a pending set until ENDOFNAMES swaps
// them in atomically.
func (c *Channel) BeginNames() {
	c.mu.Lock()
	c.updatingNames = true
	c.pendingNames = make(map[string]*user.ChannelUser)
	c.mu.Unlock()
}

// AddPendingName adds one NAMES-reply nickname (with its prefix characters
// already translated to a mode string by the caller) to the pending set.
func (c *Channel) AddPendingName(cu *user.ChannelUser) {
	c.mu.Lock()
	if c.pendingNames == nil {
		c.pendingNames = make(map[string]*user.ChannelUser)
	}
	c.pendingNames[cu.Key()] = cu
	c.mu.Unlock()
}

// EndNames swaps the pending set into the live user list (RPL_ENDOFNAMES) and
// returns the now-current, ordered user list.
func (c *Channel) EndNames() []*user.ChannelUser {
	c.mu.Lock()
	c.users = c.pendingNames
	if c.users == nil {
		c.users = make(map[string]*user.ChannelUser)
	}
	c.pendingNames = nil
	c.updatingNames = false
	c.resort()
	out := append([]*user.ChannelUser(nil), c.order...)
	c.mu.Unlock()
	return out
}

func (c *Channel) UpdatingNames() bool { c.mu.Lock(); defer c.mu.Unlock(); return c.updatingNames }

// User looks up a channel user by nickname (case-folded under the owning
// connection's casemapping, already applied by the caller to key).
func (c *Channel) User(key string) (*user.ChannelUser, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	u, ok := c.users[key]
	return u, ok
}

// Users returns the current user list in display order.
func (c *Channel) Users() []*user.ChannelUser {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*user.ChannelUser(nil), c.order...)
}

// Count returns the number of known users, used for RPL_LIST's visible count.
func (c *Channel) Count() int { c.mu.Lock(); defer c.mu.Unlock(); return len(c.users) }

// AddUser inserts cu (a JOIN), re-sorting the order. Returns false if the user
// was already present.
func (c *Channel) AddUser(cu *user.ChannelUser) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := cu.Key()
	if _, exists := c.users[key]; exists {
		return false
	}
	c.users[key] = cu
	c.resort()
	return true
}

// RemoveUser removes the user keyed by key (a PART/KICK/QUIT), re-sorting.
func (c *Channel) RemoveUser(key string) (*user.ChannelUser, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	cu, ok := c.users[key]
	if !ok {
		return nil, false
	}
	delete(c.users, key)
	c.resort()
	return cu, true
}

// RenameUser moves a user from oldKey to a new nickname (a NICK change),
// re-sorting since nick is part of the ordering key.
func (c *Channel) RenameUser(oldKey, newNick string) (*user.ChannelUser, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	cu, ok := c.users[oldKey]
	if !ok {
		return nil, false
	}
	delete(c.users, oldKey)
	cu.Nick = newNick
	c.users[cu.Key()] = cu
	c.resort()
	return cu, true
}

// Resort re-derives the display order from the current PrefixTable, called
// whenever ISUPPORT PREFIX changes underneath an already-populated channel
// ( "changing prefix table updates orderings lazily").
func (c *Channel) Resort() {
	c.mu.Lock()
	c.resort()
	c.mu.Unlock()
}

func (c *Channel) resort() {
	pt := c.currentPrefixTable()
	order := make([]*user.ChannelUser, 0, len(c.users))
	for _, cu := range c.users {
		order = append(order, cu)
	}
	sort.Slice(order, func(i, j int) bool {
		return user.Less(order[i], order[j], pt)
	})
	c.order = order
}

func (c *Channel) currentPrefixTable() user.PrefixTable {
	if c.prefixes == nil {
		return nil
	}
	return c.prefixes()
}
