package collector

import "sync"

// ListEntry is one RPL_LIST row.
type ListEntry struct {
	Channel string
	Users int
	Topic string
}

// ListState is the channel-list collector's state machine, per 
// §4.4: "State: Init -> Getting -> Got; repeated list while Getting is a
// no-op."
type ListState int

const (
	ListInit ListState = iota
	ListGetting
	ListGot
)

func (s ListState) String() string {
	switch s {
	case ListGetting:
		return "getting"
	case ListGot:
		return "got"
	default:
		return "init"
	}
}

// ListObserver receives the channel-list collector's start/entry/end events,
// meant to back an incrementally-populated channel-list dialog.
type ListObserver interface {
	ListStarted()
	ListEntry(e ListEntry)
	ListEnded()
}

// List implements channel-list collector: a single in-flight
// LIST command accumulating RPL_LIST rows into a deque, observed by any
// number of dialogs/buffers.
type List struct {
	mu sync.Mutex
	state ListState
	entries []ListEntry
	observers []ListObserver
	send func()
}

// NewList constructs a List collector. send transmits the wire LIST command.
func NewList(send func()) *List {
	return &List{send: send}
}

func (l *List) State() ListState {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// Entries returns a snapshot of the rows accumulated so far (valid to call
// mid-flight, while Getting).
func (l *List) Entries() []ListEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]ListEntry(nil), l.entries...)
}

// Subscribe registers obs for start/entry/end notifications for the run that
// is about to start or already in flight.
func (l *List) Subscribe(obs ListObserver) {
	l.mu.Lock()
	l.observers = append(l.observers, obs)
	l.mu.Unlock()
}

// Request starts a new LIST run. A call while a run is already Getting is a
// no-op,.
func (l *List) Request() {
	l.mu.Lock()
	if l.state == ListGetting {
		l.mu.Unlock()
		return
	}
	l.state = ListGetting
	l.entries = nil
	obs := append([]ListObserver(nil), l.observers...)
	l.mu.Unlock()

	for _, o := range obs {
		o.ListStarted()
	}
	l.send()
}

// OnListEntry handles one RPL_LIST (322) row.
func (l *List) OnListEntry(e ListEntry) {
	l.mu.Lock()
	if l.state != ListGetting {
		l.mu.Unlock()
		return
	}
	l.entries = append(l.entries, e)
	obs := append([]ListObserver(nil), l.observers...)
	l.mu.Unlock()

	for _, o := range obs {
		o.ListEntry(e)
	}
}

// OnListEnd handles RPL_LISTEND (323), transitioning Getting -> Got.
func (l *List) OnListEnd() {
	l.mu.Lock()
	if l.state != ListGetting {
		l.mu.Unlock()
		return
	}
	l.state = ListGot
	obs := append([]ListObserver(nil), l.observers...)
	l.mu.Unlock()

	for _, o := range obs {
		o.ListEnded()
	}
}
