package buffer

import "sync"

// UserBuffer is the USER (private-message) buffer variant: one query window
// per remote nickname, tracking just enough peer state to render a header
// line and to know whether the peer is still on the network at all
// ( "User: Buffer, plus the peer's last-known address and an
// online/offline flag maintained by WHOIS/WHO churn").
type UserBuffer struct {
	*Buffer

	mu sync.Mutex
	peerAddr string
	online bool
}

// NewUserBuffer constructs a UserBuffer addressed to nick.
func NewUserBuffer(id ID, conn ConnectionID, nick string, capacity int) *UserBuffer {
	return &UserBuffer{Buffer: New(id, conn, KindUser, nick, capacity), online: true}
}

func (u *UserBuffer) PeerAddress() string {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.peerAddr
}

func (u *UserBuffer) SetPeerAddress(addr string) {
	u.mu.Lock()
	u.peerAddr = addr
	u.mu.Unlock()
}

func (u *UserBuffer) Online() bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.online
}

func (u *UserBuffer) SetOnline(online bool) {
	u.mu.Lock()
	u.online = online
	u.mu.Unlock()
}
