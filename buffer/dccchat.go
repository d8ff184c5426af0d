package buffer

import "sync"

// DCCChat is the DCC-CHAT buffer variant: a symmetric line stream with a
// remote peer outside the normal server relay, storing its transcript the
// same bounded-deque way a normal buffer does ( "CHAT buffer
// stores a bounded message deque like a normal buffer").
type DCCChat struct {
	*Buffer

	mu sync.Mutex
	peerNick string
	peerAddr string
	peerPort int
	connected bool
}

// NewDCCChat constructs a DCCChat buffer addressed to peerNick.
func NewDCCChat(id ID, conn ConnectionID, peerNick string, capacity int) *DCCChat {
	return &DCCChat{Buffer: New(id, conn, KindDCCChat, peerNick, capacity), peerNick: peerNick}
}

func (c *DCCChat) PeerNick() string { c.mu.Lock(); defer c.mu.Unlock(); return c.peerNick }

func (c *DCCChat) PeerEndpoint() (addr string, port int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.peerAddr, c.peerPort
}

func (c *DCCChat) SetPeerEndpoint(addr string, port int) {
	c.mu.Lock()
	c.peerAddr, c.peerPort = addr, port
	c.mu.Unlock()
}

func (c *DCCChat) Connected() bool { c.mu.Lock(); defer c.mu.Unlock(); return c.connected }

func (c *DCCChat) SetConnected(v bool) { c.mu.Lock(); c.connected = v; c.mu.Unlock() }
