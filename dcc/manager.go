package dcc

import "sync"

// Manager is the DCC connection manager assumes exists above
// the individual CHAT/SEND sessions: a registry keyed by ID so that an
// inbound DCC RESUME CTCP (which identifies a session only by the port it
// names) can be matched back to the Upload offer awaiting it. Download-side
// sends are not indexed by port, so an inbound DCC ACCEPT is not matched.
type Manager struct {
	mu sync.Mutex
	chats map[ID]*Chat
	sends map[ID]*Send

	// byPort indexes in-flight Upload sends by their advertised port, since
	// a peer's DCC RESUME names the session by port rather than by our
	// internal ID.
	byPort map[int]ID
}

// NewManager constructs an empty DCC connection manager.
func NewManager() *Manager {
	return &Manager{
		chats: make(map[ID]*Chat),
		sends: make(map[ID]*Send),
		byPort: make(map[int]ID),
	}
}

func (m *Manager) AddChat(c *Chat) {
	m.mu.Lock()
	m.chats[c.ID] = c
	m.mu.Unlock()
}

func (m *Manager) RemoveChat(id ID) {
	m.mu.Lock()
	delete(m.chats, id)
	m.mu.Unlock()
}

func (m *Manager) Chat(id ID) (*Chat, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.chats[id]
	return c, ok
}

// AddSend registers s and, if it's an Upload offer, indexes it by port so a
// later DCC RESUME naming that port can be found.
func (m *Manager) AddSend(s *Send, port int) {
	m.mu.Lock()
	m.sends[s.ID] = s
	if s.Role == RoleOffer {
		m.byPort[port] = s.ID
	}
	m.mu.Unlock()
}

func (m *Manager) RemoveSend(id ID) {
	m.mu.Lock()
	delete(m.sends, id)
	for port, sid := range m.byPort {
		if sid == id {
			delete(m.byPort, port)
		}
	}
	m.mu.Unlock()
}

func (m *Manager) Send(id ID) (*Send, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sends[id]
	return s, ok
}

// SendByPort looks up an in-flight Upload offer by the port it advertised,
// for resolving an inbound DCC RESUME.
func (m *Manager) SendByPort(port int) (*Send, bool) {
	m.mu.Lock()
	id, ok := m.byPort[port]
	m.mu.Unlock()
	if !ok {
		return nil, false
	}
	return m.Send(id)
}

// CloseAll closes every tracked session, e.g. on connection teardown.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	chats := make([]*Chat, 0, len(m.chats))
	for _, c := range m.chats {
		chats = append(chats, c)
	}
	sends := make([]*Send, 0, len(m.sends))
	for _, s := range m.sends {
		sends = append(sends, s)
	}
	m.mu.Unlock()

	for _, c := range chats {
		c.Close()
	}
	for _, s := range sends {
		s.Close()
	}
}
