// Package buffer implements /§4.3's Buffer model: the base type
// shared by all buffer kinds, its bounded message ring, and its observer
// fan-out, following the same Handler/middleware shape as the
// router.go but applied per-buffer instead of per-connection.
package buffer

import (
	"sync"
	"time"
)

// ID is a model-assigned, monotonically increasing buffer identifier.
// : "Ids are monotonic and unique across model lifetime."
type ID int64

// ConnectionID is an opaque reference to the owning Connection. Per Design
// Note §9 ("intrusive parent pointers become arena-style indices"), Buffer
// never holds a live pointer back to its Connection -- only this id, which
// callers resolve through whatever connection manager they have on hand.
type ConnectionID int64

// Kind identifies which of the five buffer variants a Buffer is.
type Kind int

const (
	KindServer Kind = iota
	KindChannel
	KindUser
	KindNotice
	KindDCCChat
)

func (k Kind) String() string {
	switch k {
	case KindServer:
		return "server"
	case KindChannel:
		return "channel"
	case KindUser:
		return "user"
	case KindNotice:
		return "notice"
	case KindDCCChat:
		return "dccchat"
	default:
		return "unknown"
	}
}

// Message is the buffer-ring element. It mirrors the subset of the root irc
// package's wire Message that's relevant once a message has been routed to a
// buffer and rendered, plus the bookkeeping assigns to it.
type Message struct {
	ID int64
	Time time.Time
	Outgoing bool
	Command string
	Raw string
	Origin string
	Target string
	Params []string
	FromLog bool
	Text string // rendered nice-form body, set by the connection/buffer pipeline
}

// Observer receives notifications from a Buffer. Every method is optional in
// spirit -- implementations that don't care about a given notification kind
// can no-op it -- but all are part of one interface (rather than N narrow
// ones) because in practice every UI-facing observer wants all of them, and
// splitting further would just mean type-asserting back together downstream.
type Observer interface {
	MessageAdded(b *Buffer, m *Message)
	MessageRemoved(b *Buffer, m *Message)
	Renamed(b *Buffer, oldName string)
	Closing(b *Buffer)
}

// handle is the stable token a Subscribe call returns, used by Unsubscribe.
// : "keyed by a stable handle" rather than by comparing
// interface values, so the same concrete observer can subscribe more than
// once (e.g. once strong, once weak, to two different buffers) without
// ambiguity.
type handle uint64

type registration struct {
	h handle
	obs Observer
	strong bool
}

// Buffer is the shared base behind all five buffer kinds. It is
// safe for concurrent use, though per in practice everything that
// touches it runs on a single io-task goroutine; the mutex exists so that a
// logger or metrics observer running on its own worker goroutine can read
// buffer state without racing the io-task.
type Buffer struct {
	mu sync.Mutex

	id ID
	conn ConnectionID
	kind Kind
	name string
	title string

	capacity int
	ring []*Message

	ready bool
	closing bool

	nextHandle handle
	observers []registration

	pending []PendingCommand
}

// PendingCommand is a delayed `/command` scheduled with `DELAY ms command` or
// a macro TIMER, tracked per-buffer so closing a buffer cancels
// its own timers without reaching into the model's global timer set.
type PendingCommand struct {
	Name string
	Fire time.Time
	Command string
	Cancel func()
}

// New constructs a Buffer. capacity <= 0 means unbounded (callers should
// generally pass the model's configured ring size).
func New(id ID, conn ConnectionID, kind Kind, name string, capacity int) *Buffer {
	return &Buffer{
		id: id,
		conn: conn,
		kind: kind,
		name: name,
		title: name,
		capacity: capacity,
	}
}

func (b *Buffer) ID() ID { b.mu.Lock(); defer b.mu.Unlock(); return b.id }
func (b *Buffer) ConnectionID() ConnectionID { b.mu.Lock(); defer b.mu.Unlock(); return b.conn }
func (b *Buffer) Kind() Kind { b.mu.Lock(); defer b.mu.Unlock(); return b.kind }

func (b *Buffer) Name() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.name
}

func (b *Buffer) Title() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.title
}

func (b *Buffer) SetTitle(title string) {
	b.mu.Lock()
	b.title = title
	b.mu.Unlock()
}

// Rename changes the buffer's display name (e.g. the connection's nickname
// changed and this is a USER buffer addressed to our own nick) and notifies
// observers so a UI can re-key its own lookup table.
func (b *Buffer) Rename(name string) {
	b.mu.Lock()
	old := b.name
	b.name = name
	obs := b.snapshotObservers()
	b.mu.Unlock()

	if old == name {
		return
	}
	for _, r := range obs {
		r.obs.Renamed(b, old)
	}
}

func (b *Buffer) Ready() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.ready
}

func (b *Buffer) SetReady(ready bool) {
	b.mu.Lock()
	b.ready = ready
	b.mu.Unlock()
}

func (b *Buffer) Closing() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closing
}

// Subscribe registers obs to receive notifications. strong controls whether
// this subscription keeps the buffer alive: per "strong/weak
// observer" glossary entry, a buffer with no strong observers left is
// eligible to self-close (see Orphaned).
func (b *Buffer) Subscribe(obs Observer, strong bool) Handle {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextHandle++
	h := b.nextHandle
	b.observers = append(b.observers, registration{h: h, obs: obs, strong: strong})
	return Handle{buf: b, h: h}
}

// Handle identifies one Subscribe call, for Unsubscribe.
type Handle struct {
	buf *Buffer
	h handle
}

// Unsubscribe removes the subscription h refers to. It's safe to call from
// within an observer's own notification callback ( "an observer
// that unsubscribes during its own callback must be handled safely") because
// notification delivery always iterates over a snapshot slice, never the live
// b.observers slice.
func (h Handle) Unsubscribe() {
	b := h.buf
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, r := range b.observers {
		if r.h == h.h {
			b.observers = append(b.observers[:i], b.observers[i+1:]...)
			return
		}
	}
}

func (b *Buffer) snapshotObservers() []registration {
	out := make([]registration, len(b.observers))
	copy(out, b.observers)
	return out
}

// Orphaned reports whether no strong observers remain, meaning the buffer is
// a candidate for automatic closing ( "destroyed when no strong
// observers remain or on explicit close").
func (b *Buffer) Orphaned() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, r := range b.observers {
		if r.strong {
			return false
		}
	}
	return true
}

// Append adds m to the ring, evicting the oldest message if at capacity, and
// notifies observers. Per, "While a buffer is in 'closing', no
// further notifications may be emitted except the final closing notice."
func (b *Buffer) Append(m *Message) {
	b.mu.Lock()
	if b.closing {
		b.mu.Unlock()
		return
	}
	var evicted *Message
	b.ring = append(b.ring, m)
	if b.capacity > 0 && len(b.ring) > b.capacity {
		evicted = b.ring[0]
		b.ring = b.ring[1:]
	}
	obs := b.snapshotObservers()
	b.mu.Unlock()

	if evicted != nil {
		for _, r := range obs {
			r.obs.MessageRemoved(b, evicted)
		}
	}
	for _, r := range obs {
		r.obs.MessageAdded(b, m)
	}
}

// Messages returns a snapshot slice of the current ring contents, oldest first.
func (b *Buffer) Messages() []*Message {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]*Message, len(b.ring))
	copy(out, b.ring)
	return out
}

// Clear empties the ring without closing the buffer (the "CLEAR"/"CLS"
// command from ).
func (b *Buffer) Clear() {
	b.mu.Lock()
	b.ring = nil
	b.mu.Unlock()
}

// Close transitions the buffer into "closing", cancels any pending delayed
// commands, emits the final Closing notification, and detaches all observers.
func (b *Buffer) Close() {
	b.mu.Lock()
	if b.closing {
		b.mu.Unlock()
		return
	}
	b.closing = true
	b.ready = false
	pending := b.pending
	b.pending = nil
	obs := b.snapshotObservers()
	b.observers = nil
	b.mu.Unlock()

	for _, p := range pending {
		if p.Cancel != nil {
			p.Cancel()
		}
	}
	for _, r := range obs {
		r.obs.Closing(b)
	}
}

// AddPending registers a delayed command (DELAY ms command, or a macro TIMER
// instance) against this buffer so Close() can cancel it.
func (b *Buffer) AddPending(p PendingCommand) {
	b.mu.Lock()
	b.pending = append(b.pending, p)
	b.mu.Unlock()
}

// RemovePending removes a pending command by name (used when a TIMER fires
// its last repeat, or is cancelled explicitly).
func (b *Buffer) RemovePending(name string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, p := range b.pending {
		if p.Name == name {
			b.pending = append(b.pending[:i], b.pending[i+1:]...)
			return
		}
	}
}
