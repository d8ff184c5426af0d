package collector

import (
	"strings"
	"sync"

	"github.com/coldwire/irc/buffer"
)

// ModesObserver is notified when a channel's mode state changes, either from
// a fresh list query completing or a live MODE change.
type ModesObserver interface {
	ModesUpdated(channel string)
}

type modesQuery struct {
	kind byte // 'b', 'e', or 'I'
}

// Modes implements channel-modes collector: MODE +b/+e/+I
// list queries accumulated against a channel's buffer.ChannelModes, plus
// live MODE-change application, both ending in a ModesUpdated notification.
type Modes struct {
	mu sync.Mutex
	fold func(string) string
	send func(channel string, kind byte)
	channels map[string]*buffer.ChannelModes
	inflight map[string]map[byte]bool
	observers []ModesObserver
}

// NewModes constructs a Modes collector. send transmits "MODE #chan +b" (or
// +e/+I) on the wire.
func NewModes(fold func(string) string, send func(channel string, kind byte)) *Modes {
	return &Modes{
		fold: fold,
		send: send,
		channels: make(map[string]*buffer.ChannelModes),
		inflight: make(map[string]map[byte]bool),
	}
}

// Subscribe registers obs for ModesUpdated notifications across all channels.
func (m *Modes) Subscribe(obs ModesObserver) {
	m.mu.Lock()
	m.observers = append(m.observers, obs)
	m.mu.Unlock()
}

// Track registers cm as the mode state for channel, so list replies scoped
// to channel land on it.
func (m *Modes) Track(channel string, cm *buffer.ChannelModes) {
	m.mu.Lock()
	m.channels[m.fold(channel)] = cm
	m.mu.Unlock()
}

// Untrack removes channel's mode state (e.g. the channel buffer closed),
// per resource-cleanup expectations for closed buffers.
func (m *Modes) Untrack(channel string) {
	key := m.fold(channel)
	m.mu.Lock()
	delete(m.channels, key)
	delete(m.inflight, key)
	m.mu.Unlock()
}

// RequestBans, RequestExcepts, RequestInvites query the corresponding list
// for channel, resetting its got-flag first ( "reset bit per list").
// A query already in flight for that (channel, kind) is a no-op.
func (m *Modes) RequestBans(channel string) { m.request(channel, 'b') }
func (m *Modes) RequestExcepts(channel string) { m.request(channel, 'e') }
func (m *Modes) RequestInvites(channel string) { m.request(channel, 'I') }

func (m *Modes) request(channel string, kind byte) {
	key := m.fold(channel)
	m.mu.Lock()
	cm := m.channels[key]
	if cm == nil {
		m.mu.Unlock()
		return
	}
	set := m.inflight[key]
	if set == nil {
		set = make(map[byte]bool)
		m.inflight[key] = set
	}
	if set[kind] {
		m.mu.Unlock()
		return
	}
	set[kind] = true
	m.mu.Unlock()

	switch kind {
	case 'b':
		cm.ResetBans()
	case 'e':
		cm.ResetExcepts()
	case 'I':
		cm.ResetInvites()
	}
	m.send(channel, kind)
}

// OnBanListEntry handles RPL_BANLIST (367): channel mask setter settime.
func (m *Modes) OnBanListEntry(channel string, e buffer.ListEntry) { m.onEntry(channel, 'b', e) }

// OnExceptListEntry handles RPL_EXCEPTLIST (348).
func (m *Modes) OnExceptListEntry(channel string, e buffer.ListEntry) { m.onEntry(channel, 'e', e) }

// OnInviteListEntry handles RPL_INVITELIST (346).
func (m *Modes) OnInviteListEntry(channel string, e buffer.ListEntry) { m.onEntry(channel, 'I', e) }

func (m *Modes) onEntry(channel string, kind byte, e buffer.ListEntry) {
	key := m.fold(channel)
	m.mu.Lock()
	cm := m.channels[key]
	m.mu.Unlock()
	if cm == nil {
		return
	}
	switch kind {
	case 'b':
		cm.AddBan(e)
	case 'e':
		cm.AddExcept(e)
	case 'I':
		cm.AddInvite(e)
	}
}

// OnEndOfBanList handles RPL_ENDOFBANLIST (368) and the equivalent for
// excepts/invites, completing the in-flight query and notifying observers.
func (m *Modes) OnEndOfBanList(channel string) { m.endList(channel, 'b') }
func (m *Modes) OnEndOfExceptList(channel string) { m.endList(channel, 'e') }
func (m *Modes) OnEndOfInviteList(channel string) { m.endList(channel, 'I') }

func (m *Modes) endList(channel string, kind byte) {
	key := m.fold(channel)
	m.mu.Lock()
	cm := m.channels[key]
	if set := m.inflight[key]; set != nil {
		delete(set, kind)
	}
	obs := append([]ModesObserver(nil), m.observers...)
	m.mu.Unlock()
	if cm == nil {
		return
	}
	switch kind {
	case 'b':
		cm.SetGotBans(true)
	case 'e':
		cm.SetGotExcepts(true)
	case 'I':
		cm.SetGotInvites(true)
	}
	for _, o := range obs {
		o.ModesUpdated(channel)
	}
}

// ApplyChange applies a live MODE change (e.g. "+o-v" with args ["alice",
// "bob"]) to channel's simple mode string and key/limit, then notifies
// observers. Per-user prefix modes (+o/+v/...) are not applied here -- those
// belong to the channel's user list, not ChannelModes -- only channel-level
// flags (+m +n +t +s +p +k +l, etc.) and +k/+l's arguments.
func (m *Modes) ApplyChange(channel, modes string, args []string) {
	key := m.fold(channel)
	m.mu.Lock()
	cm := m.channels[key]
	obs := append([]ModesObserver(nil), m.observers...)
	m.mu.Unlock()
	if cm == nil {
		return
	}

	adding := true
	argIdx := 0
	var newModes strings.Builder
	current := cm.Modes
	for _, c := range modes {
		switch c {
		case '+':
			adding = true
			continue
		case '-':
			adding = false
			continue
		}
		switch c {
		case 'k':
			if adding && argIdx < len(args) {
				cm.Key = args[argIdx]
				argIdx++
			} else {
				cm.Key = ""
			}
		case 'l':
			if adding && argIdx < len(args) {
				cm.Limit = atoiSafe(args[argIdx])
				argIdx++
			} else {
				cm.Limit = 0
			}
		case 'o', 'v', 'h', 'a', 'q', 'b', 'e', 'I':
			// per-user or list modes: consumes an argument but doesn't touch
			// the channel's own flag string.
			if argIdx < len(args) {
				argIdx++
			}
			continue
		default:
		}
		if adding {
			if !strings.ContainsRune(current, c) {
				current += string(c)
			}
		} else {
			current = strings.ReplaceAll(current, string(c), "")
		}
	}
	newModes.WriteString(current)
	cm.Modes = newModes.String()

	for _, o := range obs {
		o.ModesUpdated(channel)
	}
}

func atoiSafe(s string) int {
	n := 0
	for _, c := range s {
		if c < '0' || c > '9' {
			return 0
		}
		n = n*10 + int(c-'0')
	}
	return n
}
