package model

import (
	"context"
	"crypto/tls"
	"io"
	"math/rand"
	"net"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/coldwire/irc"
	"github.com/coldwire/irc/buffer"
	"github.com/coldwire/irc/collector"
	"github.com/coldwire/irc/config"
	"github.com/coldwire/irc/dcc"
	"github.com/coldwire/irc/macro"
	"github.com/coldwire/irc/watch"
)

// ConnectionID aliases buffer.ConnectionID: the arena-style index a Manager
// hands out per Connection, per Design Note §9 ("intrusive parent pointers
// become arena-style indices"). Buffers carry this id rather than a pointer
// back to their owning Connection.
type ConnectionID = buffer.ConnectionID

// Manager is the model root: it owns one Connection per dialed server, a
// monotonic id source for buffers and connections, and the shared watcher/
// collector state (ignore list, auto-mode, auto-join, contacts, connection
// scripts, macro engine, DCC registry) every managed connection's dispatcher
// draws on. It is the connection-manager type translating "owns connections,
// broadcasts, active-buffer tracking, retry policy, nickname collision
// callback" into code, grounded on client.go's single-Client ownership model
// generalized to many, and on presbrey-pkg's bot.go which threads one
// shared macro/collector set across several IRC connections.
type Manager struct {
	Config Config
	UI irc.UIHooks

	Macros *macro.Engine
	Ignore *watch.Ignore
	AutoMode *watch.AutoMode
	AutoJoin *watch.AutoJoin
	Contacts *watch.Contacts
	Scripts *watch.ConnectionScripts
	DCC *dcc.Manager
	Favourites *FavouritesBridge

	nextBufferID int64
	nextConnID int64

	mu sync.Mutex
	conns map[ConnectionID]*managedConnection
}

// NewManager constructs a Manager from cfg, with empty watcher sets (callers
// load persisted entries via Ignore.Set/AutoMode.Set/etc. once config has
// loaded them from the config store).
func NewManager(cfg Config, ui irc.UIHooks) *Manager {
	return &Manager{
		Config: cfg,
		UI: ui,
		Macros: macro.NewEngine(),
		Ignore: watch.NewIgnore(nil),
		AutoMode: watch.NewAutoMode(nil),
		AutoJoin: watch.NewAutoJoin(nil),
		Contacts: watch.NewContacts(nil),
		Scripts: watch.NewConnectionScripts(nil),
		DCC: dcc.NewManager(),
		Favourites: NewFavouritesBridge(rand.NewSource(time.Now().UnixNano())),
		conns: make(map[ConnectionID]*managedConnection),
	}
}

// NextBufferID hands out the next monotonic buffer.ID, shared across every
// managed connection so ids stay unique model-wide.
func (m *Manager) NextBufferID() buffer.ID {
	return buffer.ID(atomic.AddInt64(&m.nextBufferID, 1))
}

func (m *Manager) nextConnectionID() ConnectionID {
	return ConnectionID(atomic.AddInt64(&m.nextConnID, 1))
}

// Connections returns a snapshot of every currently managed connection's id.
func (m *Manager) Connections() []ConnectionID {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]ConnectionID, 0, len(m.conns))
	for id := range m.conns {
		ids = append(ids, id)
	}
	return ids
}

// Connection looks up the *irc.Connection for a managed connection id.
func (m *Manager) Connection(id ConnectionID) (*irc.Connection, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	mc, ok := m.conns[id]
	if !ok {
		return nil, false
	}
	return mc.conn, true
}

// Active returns the buffer the given connection currently considers active
// (the server buffer once connected, then each channel we ourselves join).
func (m *Manager) Active(id ConnectionID) (*buffer.Buffer, bool) {
	m.mu.Lock()
	mc, ok := m.conns[id]
	m.mu.Unlock()
	if !ok {
		return nil, false
	}
	mc.mu.Lock()
	defer mc.mu.Unlock()
	return mc.active, mc.active != nil
}

// Broadcast appends text to every managed connection's server buffer, for
// model-wide notices (a config reload, a global disconnect warning).
func (m *Manager) Broadcast(text string) {
	m.mu.Lock()
	mcs := make([]*managedConnection, 0, len(m.conns))
	for _, mc := range m.conns {
		mcs = append(mcs, mc)
	}
	m.mu.Unlock()
	for _, mc := range mcs {
		mc.serverBuf.Append(&buffer.Message{Time: time.Now(), Text: text})
	}
}

// managedConnection pairs one irc.Connection with the buffers and collectors
// its dispatcher routes into. Everything here lives for exactly as long as
// the underlying Connection's Run call does.
type managedConnection struct {
	id ConnectionID
	serverKey string
	network string

	m *Manager
	conn *irc.Connection

	mu sync.Mutex
	serverBuf *buffer.Server
	noticeBuf *buffer.Notice
	channels map[string]*buffer.Channel // keyed case-folded
	users map[string]*buffer.UserBuffer // keyed case-folded
	dccChats map[string]*buffer.DCCChat // keyed by dcc.ID string
	active *buffer.Buffer

	whois *collector.Whois
	who *collector.Who
	list *collector.List
	modes *collector.Modes
}

func (mc *managedConnection) fold(s string) string {
	return mc.conn.Casemapping().Fold(s)
}

// lookupChannel resolves name (any case) to its tracked Channel.
func (mc *managedConnection) lookupChannel(name string) (*buffer.Channel, bool) {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	ch, ok := mc.channels[mc.fold(name)]
	return ch, ok
}

// getOrCreateChannel returns the tracked Channel for name, creating it (a
// JOIN we initiated, or an early NAMES reply racing the JOIN echo) if it
// doesn't exist yet.
func (mc *managedConnection) getOrCreateChannel(name string) *buffer.Channel {
	key := mc.fold(name)
	mc.mu.Lock()
	defer mc.mu.Unlock()
	if ch, ok := mc.channels[key]; ok {
		return ch
	}
	ch := buffer.NewChannel(mc.m.NextBufferID(), mc.id, name, mc.m.Config.Buffer.RingCapacity, mc.conn.Prefixes)
	mc.channels[key] = ch
	return ch
}

func (mc *managedConnection) removeChannel(name string) {
	mc.mu.Lock()
	delete(mc.channels, mc.fold(name))
	mc.modes.Untrack(name)
	mc.mu.Unlock()
}

// getOrCreateUserBuffer returns the USER buffer addressed to nick, creating
// it (get-or-create keyed by sender, per the routing rule for a PRIVMSG
// addressed to our own nick) on first contact.
func (mc *managedConnection) getOrCreateUserBuffer(nick string) *buffer.UserBuffer {
	key := mc.fold(nick)
	mc.mu.Lock()
	defer mc.mu.Unlock()
	if ub, ok := mc.users[key]; ok {
		return ub
	}
	ub := buffer.NewUserBuffer(mc.m.NextBufferID(), mc.id, nick, mc.m.Config.Buffer.RingCapacity)
	mc.users[key] = ub
	return ub
}

func (mc *managedConnection) isOwnNick(target string) bool {
	return mc.conn.Nick().Is(target)
}

func (mc *managedConnection) isChannelName(target string) bool {
	if target == "" {
		return false
	}
	return strings.IndexByte(mc.conn.ChanTypes(), target[0]) >= 0
}

func (mc *managedConnection) setActive(b *buffer.Buffer) {
	mc.mu.Lock()
	mc.active = b
	mc.mu.Unlock()
}

// Connect dials server with identity, building the buffers, collectors and
// dispatcher a live connection routes through, and starts Connection.Run in
// its own goroutine. It is the "owns connections... wires the routing table"
// half of the connection-manager requirement; managerObserver/dispatcher
// (dispatch.go) are the other half.
func (m *Manager) Connect(ctx context.Context, server config.Server, identity config.Identity) *irc.Connection {
	id := m.nextConnectionID()
	serverKey := server.Network
	if serverKey == "" {
		serverKey = server.Address
	}

	conn := &irc.Connection{
		Addr: server.Address,
		Identity: irc.Identity{
			Nickname: identity.Nickname,
			Alternates: identity.Alternates,
			Username: identity.Username,
			Realname: identity.Realname,
			Invisible: identity.Invisible,
		},
		Pass: server.Password,
		UI: m.UI,
		Flood: irc.FloodPolicy{
			BucketSize: m.Config.Flood.BucketSize,
			ReleaseRate: releaseInterval(m.Config.Flood.ReleaseRate),
			MaxQueueSize: m.Config.Flood.MaxQueueSize,
		},
		Reconnect: irc.ReconnectPolicy{
			MaxAttemptsPerCycle: m.Config.Reconnect.MaxAttemptsPerCycle,
			BetweenRetryDelay: m.Config.Reconnect.BetweenRetryDelay,
		},
	}
	conn.DialFn = dialerFor(server)

	mc := &managedConnection{
		id: id,
		serverKey: serverKey,
		network: server.Network,
		m: m,
		conn: conn,
		channels: make(map[string]*buffer.Channel),
		users: make(map[string]*buffer.UserBuffer),
		dccChats: make(map[string]*buffer.DCCChat),
	}
	mc.serverBuf = buffer.NewServer(m.NextBufferID(), id, displayName(server), m.Config.Buffer.RingCapacity)
	mc.noticeBuf = buffer.NewNotice(m.NextBufferID(), id, m.Config.Buffer.RingCapacity)
	mc.whois = collector.NewWhois(mc.fold)
	mc.who = collector.NewWho(mc.fold, func(mask string) {
		conn.WriteMessage(irc.NewMessage(irc.CmdWho, mask))
	})
	mc.list = collector.NewList(func() {
		conn.WriteMessage(irc.NewMessage(irc.CmdList))
	})
	mc.modes = collector.NewModes(mc.fold, func(channel string, kind byte) {
		conn.WriteMessage(irc.Mode(channel, "+"+string(kind), ""))
	})
	mc.active = mc.serverBuf.Buffer

	m.mu.Lock()
	m.conns[id] = mc
	m.mu.Unlock()

	conn.Subscribe(&managerObserver{m: m, mc: mc})

	go conn.Run(ctx, &dispatcher{m: m, mc: mc})

	return conn
}

// dialerFor builds the DialFn a Connection uses: plain TCP for a server
// configured without TLS, tls.Dial otherwise (matching the teacher's
// hardcoded default, made conditional per-server instead of global).
func dialerFor(server config.Server) func() (io.ReadWriteCloser, error) {
	addr := server.Address
	if server.TLS {
		return func() (io.ReadWriteCloser, error) {
			return tls.Dial("tcp", addr, nil)
		}
	}
	return func() (io.ReadWriteCloser, error) {
		return net.Dial("tcp", addr)
	}
}

// releaseInterval turns a "messages per second" rate from Config into the
// between-release time.Duration FloodPolicy wants.
func releaseInterval(perSecond float64) time.Duration {
	if perSecond <= 0 {
		return time.Second
	}
	return time.Duration(float64(time.Second) / perSecond)
}

// displayName picks the label a Server buffer uses: the configured network
// name, falling back to the address when a server has none set.
func displayName(server config.Server) string {
	if server.Network != "" {
		return server.Network
	}
	return server.Address
}

// managerObserver implements irc.ConnectionObserver, translating lifecycle
// events into the auto-join/connection-script firing and channel re-sort
// work a Manager is responsible for, and de-registering a managedConnection
// once its Connection gives up for good.
type managerObserver struct {
	m *Manager
	mc *managedConnection
}

func (o *managerObserver) StateChanged(c *irc.Connection, old, new irc.State) {
	switch new {
	case irc.StateRegistered:
		o.onRegistered(c)
	case irc.StateGivenUp:
		o.m.mu.Lock()
		delete(o.m.conns, o.mc.id)
		o.m.mu.Unlock()
	}
}

func (o *managerObserver) onRegistered(c *irc.Connection) {
	nick := c.Nick().String()
	for _, channel := range o.m.AutoJoin.Channels(o.mc.network, nick) {
		c.WriteMessage(irc.Join(channel))
	}
	for _, lines := range o.m.Scripts.FireOnRegistered(o.mc.serverKey, nick) {
		for _, line := range lines {
			c.WriteMessage(irc.NewMessage(irc.Command(line)))
		}
	}
}

func (o *managerObserver) ISUPPORTChanged(c *irc.Connection) {
	o.mc.mu.Lock()
	channels := make([]*buffer.Channel, 0, len(o.mc.channels))
	for _, ch := range o.mc.channels {
		channels = append(channels, ch)
	}
	o.mc.mu.Unlock()
	for _, ch := range channels {
		ch.Resort()
	}
}

func (o *managerObserver) Latency(c *irc.Connection, d time.Duration) {}
