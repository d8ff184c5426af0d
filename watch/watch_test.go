package watch

import (
	"testing"

	"github.com/coldwire/irc/casefold"
	"github.com/coldwire/irc/user"
)

func bob() *user.User {
	u := user.New("bob", casefold.ASCII)
	u.Username = "u"
	u.Hostname = "h"
	return u
}

func TestIgnoreMatches(t *testing.T) {
	ig := NewIgnore([]IgnoreEntry{
		{ServerKey: "freenode", Mask: "*!*@h", Kinds: MatchPrivmsg},
	})
	if !ig.Matches("freenode", bob(), MatchPrivmsg) {
		t.Fatal("expected match")
	}
	if ig.Matches("freenode", bob(), MatchNotice) {
		t.Fatal("expected no match for different kind")
	}
	if ig.Matches("efnet", bob(), MatchPrivmsg) {
		t.Fatal("expected no match for different server")
	}
}

func TestAutoModeRequiresOperator(t *testing.T) {
	am := NewAutoMode([]AutoModeEntry{
		{ServerKey: "net", Mask: "*!*@h", ChannelPattern: "#*", Type: AutoModeOp},
	})
	if actions := am.Evaluate("net", "#go", bob(), false); actions != nil {
		t.Fatalf("expected no actions without operator status, got %v", actions)
	}
	actions := am.Evaluate("net", "#go", bob(), true)
	if len(actions) != 1 || actions[0].Mode != "+o" || actions[0].Nick != "bob" {
		t.Fatalf("unexpected actions: %+v", actions)
	}
}

func TestAutoModeBanKick(t *testing.T) {
	am := NewAutoMode([]AutoModeEntry{
		{ServerKey: "net", Mask: "*!*@h", ChannelPattern: "#go", Type: AutoModeBanKick, Data: "begone"},
	})
	actions := am.Evaluate("net", "#go", bob(), true)
	if len(actions) != 1 || !actions[0].Kick || actions[0].Reason != "begone" {
		t.Fatalf("unexpected actions: %+v", actions)
	}
}

func TestAutoJoinChannels(t *testing.T) {
	aj := NewAutoJoin([]AutoJoinEntry{
		{NetworkWildcard: "free*", Nickname: "bob", Channel: "#go"},
		{NetworkWildcard: "free*", Nickname: "", Channel: "#all"},
		{NetworkWildcard: "efnet", Nickname: "bob", Channel: "#efnetonly"},
	})
	chans := aj.Channels("freenode", "bob")
	if len(chans) != 2 {
		t.Fatalf("expected 2 channels, got %v", chans)
	}
}

func TestContactsRenameCrossReference(t *testing.T) {
	c := NewContacts([]*ContactEntry{
		{Name: "Bob W.", ServerKey: "net", User: "bob"},
	})
	c.OnRename("net", "bob", "bob_away")
	entries := c.Entries()
	if entries[0].User != "bob_away" {
		t.Fatalf("expected rename cross-reference, got %q", entries[0].User)
	}
}

func TestConnectionScriptsFireOnceAfterRegistered(t *testing.T) {
	s := NewConnectionScripts([]*ConnectionScript{
		{ServerKey: "net", Nickname: "bob", Lines: []string{"/mode %N% +i"}, Enabled: true},
	})
	lines := s.FireOnRegistered("net", "bob")
	if len(lines) != 1 {
		t.Fatalf("expected one script to fire, got %v", lines)
	}
	again := s.FireOnRegistered("net", "bob")
	if len(again) != 0 {
		t.Fatalf("expected no refire, got %v", again)
	}
}
