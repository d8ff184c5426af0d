package irc

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding"
	"errors"
	"fmt"
	"io"
	"log"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/coldwire/irc/casefold"
	"github.com/coldwire/irc/metrics"
	"github.com/coldwire/irc/netio"
	"github.com/coldwire/irc/user"
)

var errPingTimeout = errors.New("ping timeout")

// State is one of the connection lifecycle states enumerates:
// Init -> Resolving -> Connecting -> Registering -> Registered -> Quitting
// -> Disconnected -> (Retrying -> Resolving) | Givenup.
type State int

const (
	StateInit State = iota
	StateResolving
	StateConnecting
	StateRegistering
	StateRegistered
	StateQuitting
	StateDisconnected
	StateRetrying
	StateGivenUp
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "init"
	case StateResolving:
		return "resolving"
	case StateConnecting:
		return "connecting"
	case StateRegistering:
		return "registering"
	case StateRegistered:
		return "registered"
	case StateQuitting:
		return "quitting"
	case StateDisconnected:
		return "disconnected"
	case StateRetrying:
		return "retrying"
	case StateGivenUp:
		return "givenup"
	default:
		return "unknown"
	}
}

// States lists every State value in declaration order, for callers (e.g.
// metrics.SetConnectionState) that need to zero every other series when
// reporting the current one.
func States() []string {
	return []string{
		StateInit.String(), StateResolving.String(), StateConnecting.String(),
		StateRegistering.String(), StateRegistered.String(), StateQuitting.String(),
		StateDisconnected.String(), StateRetrying.String(), StateGivenUp.String(),
	}
}

// Identity is the nickname/alternates/realname/username quadruple
// persisted per identity; Connection consumes alternates in order on a
// nickname collision during Registering.
type Identity struct {
	Nickname string
	Alternates []string
	Username string
	Realname string
	Invisible bool
}

// FloodPolicy tunes the outgoing flood-prevention bucket: outgoing
// messages enter a time-bucketed queue, which empties at a fixed release
// rate; once the bucket is above a configured threshold, sends are
// postponed.
type FloodPolicy struct {
	// BucketSize is how many messages may be written immediately before
	// subsequent writes start queuing.
	BucketSize int
	// ReleaseRate is how often one queued message is released once the
	// bucket is over threshold.
	ReleaseRate time.Duration
	// MaxQueueSize is the point past which further queued messages are
	// dropped rather than delayed further.
	MaxQueueSize int
}

// DefaultFloodPolicy returns reasonable defaults matching model.Config's
// own defaults, for callers constructing a Connection directly without
// going through the model package.
func DefaultFloodPolicy() FloodPolicy {
	return FloodPolicy{BucketSize: 5, ReleaseRate: time.Second, MaxQueueSize: 50}
}

// ReconnectPolicy tunes the auto-reconnect plan: a between-retry delay
// elapses after a cycle of attempts completes without success.
type ReconnectPolicy struct {
	MaxAttemptsPerCycle int
	BetweenRetryDelay time.Duration
}

// DefaultReconnectPolicy returns reasonable defaults.
func DefaultReconnectPolicy() ReconnectPolicy {
	return ReconnectPolicy{MaxAttemptsPerCycle: 3, BetweenRetryDelay: 15 * time.Second}
}

// ConnectionObserver receives lifecycle notifications from a Connection.
// Every method is optional to implement by embedding ConnectionObserverFuncs
// or leaving methods as no-ops.
type ConnectionObserver interface {
	// StateChanged is called whenever the connection's State transitions.
	StateChanged(c *Connection, old, new State)
	// ISUPPORTChanged is called after RPL_ISUPPORT updates the connection's
	// casemapping, prefix table, or channel types, so observers holding
	// case-folded maps (buffers) can re-key them.
	ISUPPORTChanged(c *Connection)
	// Latency is called when a PONG answers one of the connection's own
	// idle-timer PINGs, reporting the measured round-trip.
	Latency(c *Connection, d time.Duration)
}

// A Connection manages one connection to an IRC server, covering the full
// lifecycle from dial through registration, ISUPPORT parsing and re-keying,
// nick-collision fallback, flood prevention, and auto-reconnect.
type Connection struct {
	// Addr is the address ("host:port") of the IRC server. Only used when
	// DialFn is nil, in which case TLS is assumed.
	Addr string

	Identity Identity

	// Pass is the connection password (optional: depends on the network).
	Pass string

	// DialFn returns a fresh connection. Any io.ReadWriteCloser works: TCP,
	// TLS, WebSocket (see the transport package), or a test fixture. When
	// nil, the default behavior dials Addr with tls.Dial.
	DialFn func() (io.ReadWriteCloser, error)

	ErrorLog *log.Logger

	Flood FloodPolicy
	Reconnect ReconnectPolicy

	// ManualConnect marks this connect attempt as user-initiated; it bypasses
	// retry-cycle counting in Run.
	ManualConnect bool

	// UI is the CLI/UI boundary callback surface. Left nil, every hook this
	// Connection would otherwise call is treated as declined.
	UI UIHooks

	mu sync.Mutex
	state State
	casemap casefold.Mapping
	prefixes user.PrefixTable
	chanTypes string
	identityIdx int // -1 = primary nickname, else index into Alternates

	// nick, user, host, and server track the connection's registered
	// identity as seen by the server, used to calculate outgoing message
	// length limits and as the fallback Source for prefix-less lines.
	nick, user, host, server string

	observers []ConnectionObserver

	conn io.ReadWriteCloser
	handler Handler
	wg sync.WaitGroup
	errC chan error

	flood *floodQueue
}

// noop performs no operation.
var noop HandlerFunc = func(mw MessageWriter, m *Message) {}

// Subscribe registers obs to receive lifecycle notifications.
func (c *Connection) Subscribe(obs ConnectionObserver) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.observers = append(c.observers, obs)
}

func (c *Connection) notifyState(old, new State) {
	c.mu.Lock()
	obs := append([]ConnectionObserver(nil), c.observers...)
	c.mu.Unlock()
	for _, o := range obs {
		o.StateChanged(c, old, new)
	}
}

func (c *Connection) notifyISUPPORT() {
	c.mu.Lock()
	obs := append([]ConnectionObserver(nil), c.observers...)
	c.mu.Unlock()
	for _, o := range obs {
		o.ISUPPORTChanged(c)
	}
}

func (c *Connection) notifyLatency(d time.Duration) {
	c.mu.Lock()
	obs := append([]ConnectionObserver(nil), c.observers...)
	c.mu.Unlock()
	for _, o := range obs {
		o.Latency(c, d)
	}
}

// State returns the connection's current lifecycle state.
func (c *Connection) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Connection) setState(s State) {
	c.mu.Lock()
	old := c.state
	c.state = s
	c.mu.Unlock()
	metrics.SetConnectionState(c.serverKey(), States(), s.String())
	if old != s {
		c.notifyState(old, s)
	}
}

// serverKey identifies this connection for metrics labeling: the configured
// address, or the server host learned from RPL_MYINFO once registered.
func (c *Connection) serverKey() string {
	if c.Addr != "" {
		return c.Addr
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.server
}

// Casemapping returns the connection's current casefold.Mapping, updated
// live by RPL_ISUPPORT's CASEMAPPING token.
func (c *Connection) Casemapping() casefold.Mapping {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.casemap
}

// Prefixes returns the connection's current user.PrefixTable, updated live
// by RPL_ISUPPORT's PREFIX token.
func (c *Connection) Prefixes() user.PrefixTable {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.prefixes
}

// ChanTypes returns the channel-name prefix characters RPL_ISUPPORT's
// CHANTYPES token declared (default "#").
func (c *Connection) ChanTypes() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.chanTypes == "" {
		return "#"
	}
	return c.chanTypes
}

// Run connects to the remote IRC server and sends the registration
// sequence for one attempt, wrapped in an auto-reconnect plan: on a non-Quitting
// disconnect, Run makes at most Reconnect.MaxAttemptsPerCycle attempts in
// total, waiting Reconnect.BetweenRetryDelay before each retry, unless
// ManualConnect is set (which resets the attempt count after every
// disconnect), before transitioning to StateGivenUp and returning.
//
// The Handler h is called for every incoming Message parsed from the
// connection. Handlers are called synchronously because the ordering of
// incoming messages matters.
func (c *Connection) Run(ctx context.Context, h Handler) error {
	if c.Flood.BucketSize == 0 && c.Flood.ReleaseRate == 0 {
		c.Flood = DefaultFloodPolicy()
	}
	if c.Reconnect.MaxAttemptsPerCycle == 0 {
		c.Reconnect = DefaultReconnectPolicy()
	}

	attempts := 0
	for {
		c.setState(StateResolving)
		err := c.connectAndRun(ctx, h)
		if ctx.Err() != nil {
			return err
		}
		explicitQuit := c.wasExplicitQuit()
		c.setState(StateDisconnected)
		if explicitQuit {
			return nil
		}

		if c.ManualConnect {
			attempts = 0
		} else {
			attempts++
		}
		if attempts >= c.Reconnect.MaxAttemptsPerCycle {
			c.setState(StateGivenUp)
			return err
		}

		c.setState(StateRetrying)
		select {
		case <-ctx.Done():
			return err
		case <-time.After(c.Reconnect.BetweenRetryDelay):
		}
	}
}

func (c *Connection) wasExplicitQuit() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state == StateQuitting
}

// connectAndRun performs exactly one connection attempt: dial, register,
// process messages until disconnect, driving the State field and
// flood-controlled writes throughout.
func (c *Connection) connectAndRun(ctx context.Context, h Handler) error {
	var (
		err error
		cancel context.CancelFunc
		mainctx context.Context
	)

	if c.Identity.Nickname == "" {
		panic("connection: identity nickname cannot be empty")
	}
	if c.Identity.Username == "" {
		c.Identity.Username = "guest"
	}
	if c.Identity.Realname == "" {
		c.Identity.Realname = "..."
	}
	if c.casemap == 0 {
		c.casemap = casefold.RFC1459
	}
	c.identityIdx = -1

	if c.DialFn == nil {
		if c.Addr == "" {
			panic("connection: Addr cannot be empty when DialFn is nil")
		}
		c.DialFn = func() (io.ReadWriteCloser, error) {
			return tls.Dial("tcp", c.Addr, nil)
		}
	}

	mainctx, cancel = context.WithCancel(context.Background())
	defer cancel()

	if c.conn != nil {
		return errors.New("the connection is already open")
	}

	c.setState(StateConnecting)
	if c.conn, err = c.DialFn(); err != nil {
		return err
	}
	defer func() {
		_ = c.conn.Close()
		c.conn = nil
	}()

	c.flood = newFloodQueue(c.Flood, c.conn, c.log)
	c.flood.serverKey = c.serverKey()
	defer c.flood.Stop()

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer c.conn.Close()
		defer cancel()

		c.errC = make(chan error, 1)
		err = <-c.errC
		c.errC = nil
	}()

	if h == nil {
		h = noop
	}

	pinger := &pingHandler{
		timeout: func() {
			c.exit(errPingTimeout)
		},
		onPong: c.notifyLatency,
	}

	c.handler = wrap(h, ctcpHandler, pingMiddleware, pinger.pongHandler, c.stateMiddleware, capLSHandler)

	c.setState(StateRegistering)

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.mainLoop(mainctx, pinger)
	}()

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		select {
		case <-mainctx.Done():
			return
		case <-ctx.Done():
			c.WriteMessage(Quit("closing link"))
			select {
			case <-mainctx.Done():
			case <-time.After(3 * time.Second):
				c.exit(nil)
			}
		}
	}()

	c.WriteMessage(CapLS("302"))
	if c.Pass != "" {
		c.WriteMessage(Pass(c.Pass))
	}
	c.WriteMessage(Nick(c.currentNickname()))
	c.WriteMessage(User(c.Identity.Username, c.Identity.Realname))

	c.wg.Wait()
	if err == io.EOF && c.state == StateQuitting {
		return nil
	}
	return err
}

func (c *Connection) currentNickname() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.identityIdx < 0 || c.identityIdx >= len(c.Identity.Alternates) {
		return c.Identity.Nickname
	}
	return c.Identity.Alternates[c.identityIdx]
}

func (c *Connection) mainLoop(ctx context.Context, pinger *pingHandler) {
	readLine := c.startReading(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case l, ok := <-readLine:
			if !ok {
				c.exit(errors.New("read channel closed"))
				return
			}
			m := new(Message)
			m.IncludePrefix()
			if err := m.UnmarshalText(l); err != nil {
				c.log(err)
				continue
			}
			if (m.Source == Prefix{}) {
				m.Source.Host = c.serverHost()
			}
			c.handler.SpeakIRC(c, m)
		case <-time.After(2 * time.Minute):
			pinger.ping(ctx, c, "TIMEOUTCHECK")
		}
	}
}

func (c *Connection) startReading(ctx context.Context) <-chan []byte {
	lines := make(chan []byte)
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer close(lines)

		lr := netio.NewLineReader(c.conn)
		for {
			l, err := lr.ReadLine()
			if err != nil {
				if errors.Is(err, io.EOF) {
					c.exit(io.EOF)
				} else {
					c.exit(err)
				}
				return
			}
			if len(l) == 0 {
				continue
			}
			cp := append([]byte(nil), l...)
			select {
			case <-ctx.Done():
				return
			case lines <- cp:
			}
		}
	}()
	return lines
}

func (c *Connection) exit(err error) {
	select {
	case c.errC <- err:
	default:
	}
}

// WriteMessage implements irc.MessageWriter. It enqueues m on the
// connection's flood-prevention bucket, except for registration messages
// (PASS/NICK/USER/CAP/QUIT), which bypass the bucket entirely.
func (c *Connection) WriteMessage(m encoding.TextMarshaler) {
	var (
		err error
		b []byte
	)

	if c.conn == nil {
		c.log(fmt.Errorf("WriteMessage: conn cannot be nil; m: %#v", m))
		return
	}

	if msg, ok := m.(*Message); ok && !msg.includePrefix {
		msg.Source = c.prefix()
	}

	b, err = m.MarshalText()
	if err != nil {
		c.log(fmt.Errorf("marshal text: %w; message: %#v", err, m))
		return
	}
	if !bytes.HasSuffix(b, []byte("\r\n")) {
		b = append(b, []byte("\r\n")...)
	}

	if bytes.HasPrefix(b, []byte("QUIT")) {
		c.setState(StateQuitting)
	}

	bypass := bytes.HasPrefix(b, []byte("PASS")) || bytes.HasPrefix(b, []byte("NICK")) ||
		bytes.HasPrefix(b, []byte("USER")) || bytes.HasPrefix(b, []byte("CAP")) || bytes.HasPrefix(b, []byte("QUIT"))

	if bypass || c.flood == nil {
		if _, err = c.conn.Write(b); err != nil {
			c.exit(err)
		}
		return
	}

	if !c.flood.Enqueue(b) {
		c.log(fmt.Errorf("WriteMessage: flood queue full, dropped message: %#v", m))
	}
}

func (c *Connection) log(e error) {
	if c.ErrorLog == nil {
		log.Println(e)
		return
	}
	c.ErrorLog.Println(e)
}

func (c *Connection) serverHost() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if h := c.server; h != "" {
		return h
	}
	return strings.Split(c.Addr, ":")[0]
}

// Nick returns the connection's current nickname according to internal
// state tracking, used by route matchers (see nickTracker) to determine
// when a message originated from or targeted our client.
func (c *Connection) Nick() Nickname {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Nickname(c.nick)
}

func (c *Connection) prefix() Prefix {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Prefix{Nick: Nickname(c.nick), Host: c.host, User: c.user}
}

var fullAddress = regexp.MustCompile("^([^!@]+)!(.+?)@(.+)?$")

// stateMiddleware intercepts registration and ISUPPORT events to keep the
// connection's internal state (nickname, casemapping, prefix table,
// channel types) up to date, and drives the nickname-collision fallback for
// ERR_NICKNAMEINUSE/ERR_ERRONEUSNICKNAME during Registering.
func (c *Connection) stateMiddleware(next Handler) Handler {
	return HandlerFunc(func(mw MessageWriter, m *Message) {
		switch m.Command {
		case RplWelcome:
			c.setState(StateRegistered)
			fields := strings.Fields(m.Params.Get(2))
			if len(fields) == 0 {
				fields = []string{""}
			}
			if parts := fullAddress.FindStringSubmatch(fields[len(fields)-1]); parts != nil {
				c.mu.Lock()
				c.nick, c.user, c.host = parts[1], parts[2], parts[3]
				c.mu.Unlock()
			} else {
				c.mu.Lock()
				c.nick = c.currentNicknameLocked()
				c.mu.Unlock()
			}
		case RplMyInfo:
			c.mu.Lock()
			if len(m.Params) > 2 {
				c.server = m.Params.Get(2)
			} else {
				c.server = m.Source.Host
			}
			c.mu.Unlock()
		case RplISupport:
			c.applyISupport(m)
		case RplHostHidden:
			if len(m.Params) > 1 {
				c.mu.Lock()
				c.host = m.Params.Get(2)
				c.mu.Unlock()
			}
		case RplErrNicknameInUse, RplErrErroneousNickname:
			if c.State() == StateRegistering {
				c.tryNextNickname(mw)
			}
		case CmdNick:
			if m.Source.Nick.Is(c.nick) {
				c.mu.Lock()
				c.nick = m.Params.Get(1)
				c.mu.Unlock()
			}
		case CmdPong:
			// latency bookkeeping is handled by pingHandler.pongHandler upstream
			// of this middleware; nothing to do here beyond passing it on.
		}

		next.SpeakIRC(mw, m)
	})
}

func (c *Connection) currentNicknameLocked() string {
	if c.identityIdx < 0 || c.identityIdx >= len(c.Identity.Alternates) {
		return c.Identity.Nickname
	}
	return c.Identity.Alternates[c.identityIdx]
}

// tryNextNickname advances to the next identity alternate and resends NICK.
// When the alternates are exhausted it asks UI.AlternateNickname for one more
// and sends a non-empty answer as NICK; otherwise the connection exits with a
// "no nickname" error.
func (c *Connection) tryNextNickname(mw MessageWriter) {
	c.mu.Lock()
	c.identityIdx++
	exhausted := c.identityIdx >= len(c.Identity.Alternates)
	next := ""
	if !exhausted {
		next = c.Identity.Alternates[c.identityIdx]
	}
	c.mu.Unlock()

	if exhausted {
		if c.UI != nil {
			tried := append([]string{c.Identity.Nickname}, c.Identity.Alternates...)
			if alt := c.UI.AlternateNickname(c, tried); alt != "" {
				mw.WriteMessage(Nick(alt))
				return
			}
		}
		c.log(errors.New("no nickname: all alternates exhausted"))
		c.exit(errors.New("no nickname"))
		return
	}
	mw.WriteMessage(Nick(next))
}

// applyISupport parses RPL_ISUPPORT tokens for PREFIX, CHANTYPES, and
// CASEMAPPING. Re-keying channel/user-buffer maps on a casemapping change
// is the responsibility of ISUPPORTChanged's observers (buffers); this
// method only updates the Connection's own tables and notifies them.
func (c *Connection) applyISupport(m *Message) {
	changed := false
	c.mu.Lock()
	for i := 2; i < len(m.Params); i++ {
		tok := m.Params.Get(i)
		switch {
		case strings.HasPrefix(tok, "PREFIX="):
			pt := user.ParsePrefixTable(strings.TrimPrefix(tok, "PREFIX="))
			if pt != nil {
				c.prefixes = pt
				changed = true
			}
		case strings.HasPrefix(tok, "CHANTYPES="):
			c.chanTypes = strings.TrimPrefix(tok, "CHANTYPES=")
			changed = true
		case strings.HasPrefix(tok, "CASEMAPPING="):
			newMap := casefold.ParseMapping(strings.TrimPrefix(tok, "CASEMAPPING="))
			if newMap != c.casemap {
				c.casemap = newMap
				changed = true
			}
		}
	}
	c.mu.Unlock()
	if changed {
		c.notifyISUPPORT()
	}
}
