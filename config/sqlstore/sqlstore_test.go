package sqlstore

import (
	"testing"

	"github.com/coldwire/irc/watch"
)

func TestContactSaveAndDelete(t *testing.T) {
	s, err := Open(":memory:")
	if err != nil {
		t.Fatal(err)
	}

	e := &watch.ContactEntry{Name: "Bob W.", Group: "friends", ServerKey: "net", User: "bob"}
	if err := s.SaveContact(e); err != nil {
		t.Fatal(err)
	}

	contacts, err := s.Contacts()
	if err != nil || len(contacts) != 1 || contacts[0].User != "bob" {
		t.Fatalf("contacts = %+v, err %v", contacts, err)
	}

	if err := s.DeleteContact("Bob W."); err != nil {
		t.Fatal(err)
	}
	contacts, err = s.Contacts()
	if err != nil || len(contacts) != 0 {
		t.Fatalf("expected contact deleted, got %+v", contacts)
	}
}

func TestConnectionScriptRoundTrip(t *testing.T) {
	s, err := Open(":memory:")
	if err != nil {
		t.Fatal(err)
	}

	sc := &watch.ConnectionScript{ServerKey: "net", Nickname: "bob", Lines: []string{"/mode %N% +i", "/join #go"}, Enabled: true}
	if err := s.SaveConnectionScript(sc); err != nil {
		t.Fatal(err)
	}

	scripts, err := s.ConnectionScripts()
	if err != nil || len(scripts) != 1 || len(scripts[0].Lines) != 2 {
		t.Fatalf("scripts = %+v, err %v", scripts, err)
	}
}
