package collector

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/coldwire/irc/buffer"
)

func foldLower(s string) string { return strings.ToLower(s) }

type whoisCapture struct{ got *WhoisResult }

func (c *whoisCapture) WhoisComplete(r WhoisResult) { c.got = &r }

func TestWhoisAggregatesAndDeliversOnce(t *testing.T) {
	w := NewWhois(foldLower)

	sendCount := 0
	reqA := &whoisCapture{}
	reqB := &whoisCapture{}

	if send := w.Request("Alice", reqA); !send {
		t.Fatal("expected first request to require a send")
	} else if send {
		sendCount++
	}
	if send := w.Request("alice", reqB); send {
		t.Fatal("expected second request for same nick to join existing run")
	}

	w.OnWhoisUser("Alice", "alice", "host.example", "Alice Example")
	w.OnWhoisChannels("Alice", []string{"#go"})
	w.OnEndOfWhois("Alice")

	if sendCount != 1 {
		t.Fatalf("expected exactly one wire send, got %d", sendCount)
	}
	if reqA.got == nil || reqB.got == nil {
		t.Fatal("expected both requesters to receive a result")
	}
	if !reqA.got.Found || reqA.got.Info.Hostname != "host.example" {
		t.Fatalf("unexpected result: %+v", reqA.got)
	}
}

func TestWhoisNoSuchNick(t *testing.T) {
	w := NewWhois(foldLower)
	req := &whoisCapture{}
	w.Request("ghost", req)
	w.OnNoSuchNick("ghost")
	if req.got == nil || req.got.Found {
		t.Fatalf("expected not-found result, got %+v", req.got)
	}
}

type fakeResolver struct{ addrs []string }

func (f fakeResolver) LookupHost(ctx context.Context, host string) ([]string, error) {
	return f.addrs, nil
}

type dnsCapture struct {
	done chan DNSResult
}

func (c *dnsCapture) DNSComplete(r DNSResult) { c.done <- r }

func TestDNSChainsOnWhois(t *testing.T) {
	w := NewWhois(foldLower)
	d := NewDNS(w, fakeResolver{addrs: []string{"1.2.3.4"}})

	cap := &dnsCapture{done: make(chan DNSResult, 1)}
	d.Request("bob", cap)

	w.OnWhoisUser("bob", "bob", "bob.example", "Bob")
	w.OnEndOfWhois("bob")

	select {
	case r := <-cap.done:
		if r.Hostname != "bob.example" || len(r.Addrs) != 1 || r.Addrs[0] != "1.2.3.4" {
			t.Fatalf("unexpected dns result: %+v", r)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for DNS chain result")
	}
}

type whoCapture struct{ got *WhoResult }

func (c *whoCapture) WhoComplete(r WhoResult) { c.got = &r }

func TestWhoImmediateRequest(t *testing.T) {
	var sent []string
	w := NewWho(foldLower, func(mask string) { sent = append(sent, mask) })

	req := &whoCapture{}
	w.Request("#go", req)
	if len(sent) != 1 || sent[0] != "#go" {
		t.Fatalf("expected immediate send, got %v", sent)
	}

	w.OnWhoReply("#go", WhoEntry{Nick: "alice"})
	w.OnEndOfWho("#go")
	if req.got == nil || len(req.got.Entries) != 1 {
		t.Fatalf("unexpected result: %+v", req.got)
	}
}

func TestWhoNetSplitCollapsesToChannelWide(t *testing.T) {
	var sent []string
	fired := make(chan struct{}, 1)
	w := NewWho(foldLower, func(mask string) { sent = append(sent, mask) })
	w.after = func(d time.Duration, f func()) *time.Timer {
		t := time.AfterFunc(time.Millisecond, func() {
			f()
			fired <- struct{}{}
		})
		return t
	}

	for i := 0; i < netSplitThreshold+1; i++ {
		w.RequestJoinWho("#go", "nick"+string(rune('a'+i)), &whoCapture{})
	}

	<-fired
	if len(sent) != 1 || sent[0] != "#go" {
		t.Fatalf("expected net-split collapse to one channel-wide WHO, got %v", sent)
	}
}

func TestWhoSmallBatchSendsPerNick(t *testing.T) {
	var sent []string
	fired := make(chan struct{}, 1)
	w := NewWho(foldLower, func(mask string) { sent = append(sent, mask) })
	w.after = func(d time.Duration, f func()) *time.Timer {
		t := time.AfterFunc(time.Millisecond, func() {
			f()
			fired <- struct{}{}
		})
		return t
	}

	w.RequestJoinWho("#go", "alice", &whoCapture{})
	w.RequestJoinWho("#go", "bob", &whoCapture{})

	<-fired
	if len(sent) != 2 {
		t.Fatalf("expected 2 per-nick sends, got %v", sent)
	}
}

type listCapture struct {
	started int
	entries []ListEntry
	ended int
}

func (l *listCapture) ListStarted()                { l.started++ }
func (l *listCapture) ListEntry(e ListEntry) { l.entries = append(l.entries, e) }
func (l *listCapture) ListEnded()                   { l.ended++ }

func TestListStateMachine(t *testing.T) {
	sendCount := 0
	lc := NewList(func() { sendCount++ })
	obs := &listCapture{}
	lc.Subscribe(obs)

	lc.Request()
	if lc.State() != ListGetting {
		t.Fatal("expected Getting after Request")
	}
	lc.Request() // no-op while Getting
	if sendCount != 1 {
		t.Fatalf("expected exactly one send, got %d", sendCount)
	}

	lc.OnListEntry(ListEntry{Channel: "#go", Users: 5})
	lc.OnListEnd()

	if lc.State() != ListGot {
		t.Fatal("expected Got after OnListEnd")
	}
	if obs.started != 1 || len(obs.entries) != 1 || obs.ended != 1 {
		t.Fatalf("unexpected observer counts: %+v", obs)
	}
}

type modesCapture struct{ count int }

func (m *modesCapture) ModesUpdated(channel string) { m.count++ }

func TestModesBanListLifecycle(t *testing.T) {
	var sentKind byte
	m := NewModes(foldLower, func(channel string, kind byte) { sentKind = kind })
	obs := &modesCapture{}
	m.Subscribe(obs)

	cm := &buffer.ChannelModes{}
	m.Track("#go", cm)

	m.RequestBans("#go")
	if sentKind != 'b' {
		t.Fatalf("expected ban list request, got %c", sentKind)
	}

	m.OnBanListEntry("#go", buffer.ListEntry{Mask: "*!*@evil.example"})
	m.OnEndOfBanList("#go")

	if !cm.GotBans() || len(cm.Bans()) != 1 {
		t.Fatal("expected ban list populated")
	}
	if obs.count != 1 {
		t.Fatalf("expected 1 ModesUpdated notification, got %d", obs.count)
	}
}

func TestModesApplyChangeKeyAndLimit(t *testing.T) {
	m := NewModes(foldLower, func(channel string, kind byte) {})
	cm := &buffer.ChannelModes{}
	m.Track("#go", cm)

	m.ApplyChange("#go", "+kl", []string{"secret", "10"})
	if cm.Key != "secret" || cm.Limit != 10 {
		t.Fatalf("unexpected modes: %+v", cm)
	}
	if !strings.Contains(cm.Modes, "l") || !strings.Contains(cm.Modes, "k") {
		t.Fatalf("expected k,l in mode string, got %q", cm.Modes)
	}

	m.ApplyChange("#go", "-l", nil)
	if cm.Limit != 0 || strings.Contains(cm.Modes, "l") {
		t.Fatalf("expected limit mode cleared, got %+v", cm)
	}
}
