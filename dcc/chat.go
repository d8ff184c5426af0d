package dcc

import (
	"bufio"
	"fmt"
	"net"
	"sync"
	"time"
)

// ChatState is a DCC CHAT session's lifecycle state.
type ChatState int

const (
	ChatListening ChatState = iota
	ChatConnecting
	ChatOpen
	ChatClosed
)

// ChatObserver receives CHAT session events.
type ChatObserver interface {
	ChatStateChanged(c *Chat, state ChatState)
	ChatLineReceived(c *Chat, line string)
	ChatError(c *Chat, err error)
}

// Chat implements DCC CHAT: a symmetric line stream opened
// either by listening for a peer we offered to (RoleOffer) or by connecting
// out to a peer's offer (RoleAccept), following the own
// bufio.Scanner-based line reading (client.go's startReading) since CHAT
// traffic is plain newline-delimited text, not IRC protocol framing.
type Chat struct {
	ID ID
	Role Role

	mu sync.Mutex
	state ChatState
	conn net.Conn
	listener net.Listener
	timer *time.Timer

	obs ChatObserver
}

// NewChatOffer constructs a Chat that will Listen for an incoming peer.
func NewChatOffer(obs ChatObserver) *Chat {
	return &Chat{ID: NewID(), Role: RoleOffer, obs: obs}
}

// NewChatAccept constructs a Chat that will Connect out to a peer's offer.
func NewChatAccept(obs ChatObserver) *Chat {
	return &Chat{ID: NewID(), Role: RoleAccept, obs: obs}
}

func (c *Chat) State() ChatState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Chat) setState(s ChatState) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
	c.obs.ChatStateChanged(c, s)
}

// Listen opens a listener in r and waits for one peer connection in the
// background, : "on local request (Listen) opens a listener on
// the next available port from a configurable base and emits the CTCP."
// Returns the address/port to advertise in the CTCP offer.
func (c *Chat) Listen(r PortRange, proxyProtocol bool) (addr string, port int, err error) {
	l, p, err := Listen(r, proxyProtocol)
	if err != nil {
		return "", 0, err
	}
	c.mu.Lock()
	c.listener = l
	c.state = ChatListening
	c.mu.Unlock()

	go c.acceptOne()

	host, _, _ := net.SplitHostPort(l.Addr().String())
	return host, p, nil
}

func (c *Chat) acceptOne() {
	c.mu.Lock()
	l := c.listener
	c.mu.Unlock()
	if l == nil {
		return
	}
	conn, err := l.Accept()
	l.Close()
	if err != nil {
		c.obs.ChatError(c, fmt.Errorf("dcc chat: accept: %w", err))
		c.setState(ChatClosed)
		return
	}
	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()
	c.setState(ChatOpen)
	c.readLoop()
}

// Connect dials a peer's advertised address/port (the RoleAccept side of
// "on remote accept connects").
func (c *Chat) Connect(addr string, port int) error {
	c.setState(ChatConnecting)
	conn, err := net.Dial("tcp", net.JoinHostPort(addr, fmt.Sprint(port)))
	if err != nil {
		c.setState(ChatClosed)
		return fmt.Errorf("dcc chat: connect: %w", err)
	}
	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()
	c.setState(ChatOpen)
	go c.readLoop()
	return nil
}

func (c *Chat) readLoop() {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return
	}
	c.resetInactivityTimer()
	scanner := bufio.NewScanner(conn)
	for scanner.Scan() {
		c.resetInactivityTimer()
		c.obs.ChatLineReceived(c, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		c.obs.ChatError(c, fmt.Errorf("dcc chat: read: %w", err))
	}
	c.setState(ChatClosed)
}

func (c *Chat) resetInactivityTimer() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.timer != nil {
		c.timer.Stop()
	}
	c.timer = time.AfterFunc(InactivityTimeout, func() {
		c.Close()
	})
}

// Send writes line (plus CRLF) to the peer.
func (c *Chat) Send(line string) error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return fmt.Errorf("dcc chat: not connected")
	}
	_, err := conn.Write([]byte(line + "\r\n"))
	return err
}

// Close() terminates the session, closing any listener or connection.
func (c *Chat) Close() error {
	c.mu.Lock()
	if c.timer != nil {
		c.timer.Stop()
	}
	l, conn := c.listener, c.conn
	c.listener, c.conn = nil, nil
	already := c.state == ChatClosed
	c.state = ChatClosed
	c.mu.Unlock()

	if l != nil {
		l.Close()
	}
	var err error
	if conn != nil {
		err = conn.Close()
	}
	if !already {
		c.obs.ChatStateChanged(c, ChatClosed)
	}
	return err
}
