package buffer

import (
	"testing"

	"github.com/coldwire/irc/user"
)

type recordingObserver struct {
	added []*Message
	removed []*Message
	closed bool
}

func (r *recordingObserver) MessageAdded(b *Buffer, m *Message) { r.added = append(r.added, m) }
func (r *recordingObserver) MessageRemoved(b *Buffer, m *Message) { r.removed = append(r.removed, m) }
func (r *recordingObserver) Renamed(b *Buffer, oldName string) {}
func (r *recordingObserver) Closing(b *Buffer) { r.closed = true }

func TestBufferRingEviction(t *testing.T) {
	b := New(1, 1, KindChannel, "#test", 2)
	obs := &recordingObserver{}
	b.Subscribe(obs, true)

	b.Append(&Message{ID: 1})
	b.Append(&Message{ID: 2})
	b.Append(&Message{ID: 3})

	msgs := b.Messages()
	if len(msgs) != 2 || msgs[0].ID != 2 || msgs[1].ID != 3 {
		t.Fatalf("unexpected ring contents: %+v", msgs)
	}
	if len(obs.removed) != 1 || obs.removed[0].ID != 1 {
		t.Fatalf("expected eviction notice for id 1, got %+v", obs.removed)
	}
	if len(obs.added) != 3 {
		t.Fatalf("expected 3 add notices, got %d", len(obs.added))
	}
}

func TestBufferOrphanedAndUnsubscribeDuringCallback(t *testing.T) {
	b := New(1, 1, KindUser, "bob", 0)

	var h Handle
	selfUnsub := &struct{ *recordingObserver }{&recordingObserver{}}
	_ = selfUnsub

	called := false
	var cb Observer = observerFunc{
		added: func(buf *Buffer, m *Message) {
			called = true
			h.Unsubscribe()
		},
	}
	h = b.Subscribe(cb, false)

	if !b.Orphaned() {
		t.Fatal("expected buffer with only weak observers to be orphaned")
	}

	b.Append(&Message{ID: 1})
	if !called {
		t.Fatal("expected observer callback to run")
	}

	// second append must not panic or redeliver to the unsubscribed observer
	b.Append(&Message{ID: 2})
}

type observerFunc struct {
	added func(b *Buffer, m *Message)
}

func (o observerFunc) MessageAdded(b *Buffer, m *Message) {
	if o.added != nil {
		o.added(b, m)
	}
}
func (o observerFunc) MessageRemoved(b *Buffer, m *Message) {}
func (o observerFunc) Renamed(b *Buffer, oldName string) {}
func (o observerFunc) Closing(b *Buffer) {}

func TestBufferClosePreventsFurtherAppends(t *testing.T) {
	b := New(1, 1, KindServer, "net", 0)
	obs := &recordingObserver{}
	b.Subscribe(obs, true)

	cancelled := false
	b.AddPending(PendingCommand{Name: "timer1", Cancel: func() { cancelled = true }})

	b.Close()
	if !obs.closed {
		t.Fatal("expected Closing notification")
	}
	if !cancelled {
		t.Fatal("expected pending command cancelled on close")
	}

	b.Append(&Message{ID: 99})
	if len(b.Messages()) != 0 {
		t.Fatal("expected append after close to be a no-op")
	}
}

func TestChannelNamesLifecycleAndOrdering(t *testing.T) {
	pt := user.ParsePrefixTable("(ov)@+")
	ch := NewChannel(1, 1, "#go", 0, func() user.PrefixTable { return pt })

	ch.BeginNames()
	if !ch.UpdatingNames() {
		t.Fatal("expected UpdatingNames true after BeginNames")
	}

	alice := &user.ChannelUser{User: user.New("alice", 0), Modes: "o"}
	bob := &user.ChannelUser{User: user.New("bob", 0), Modes: ""}
	carol := &user.ChannelUser{User: user.New("carol", 0), Modes: "v"}
	ch.AddPendingName(alice)
	ch.AddPendingName(bob)
	ch.AddPendingName(carol)

	order := ch.EndNames()
	if ch.UpdatingNames() {
		t.Fatal("expected UpdatingNames false after EndNames")
	}
	if len(order) != 3 || order[0].Nick != "alice" || order[1].Nick != "carol" || order[2].Nick != "bob" {
		t.Fatalf("unexpected order: %v %v %v", order[0].Nick, order[1].Nick, order[2].Nick)
	}

	if _, ok := ch.User("dave"); ok {
		t.Fatal("unexpected user dave")
	}
	if u, ok := ch.User("alice"); !ok || u.Nick != "alice" {
		t.Fatal("expected to find alice")
	}

	removed, ok := ch.RemoveUser("bob")
	if !ok || removed.Nick != "bob" {
		t.Fatal("expected to remove bob")
	}
	if ch.Count() != 2 {
		t.Fatalf("expected 2 users after removal, got %d", ch.Count())
	}
}

func TestChannelModesLists(t *testing.T) {
	m := &ChannelModes{}
	m.AddBan(ListEntry{Mask: "*!*@evil.example"})
	m.SetGotBans(true)

	if !m.GotBans() {
		t.Fatal("expected GotBans true")
	}
	if len(m.Bans()) != 1 {
		t.Fatalf("expected 1 ban entry, got %d", len(m.Bans()))
	}

	m.ResetBans()
	if m.GotBans() || len(m.Bans()) != 0 {
		t.Fatal("expected ban list reset")
	}
}
