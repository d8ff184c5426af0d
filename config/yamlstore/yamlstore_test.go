package yamlstore

import (
	"path/filepath"
	"testing"

	"github.com/coldwire/irc/config"
	"github.com/coldwire/irc/macro"
)

func TestIdentityRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	s, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}

	saved, err := s.SaveIdentity(config.Identity{Nickname: "bob", Realname: "Bob W."})
	if err != nil {
		t.Fatal(err)
	}
	if saved.ID == 0 {
		t.Fatal("expected an assigned id")
	}

	s2, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	ids, err := s2.Identities()
	if err != nil {
		t.Fatal(err)
	}
	if len(ids) != 1 || ids[0].Nickname != "bob" {
		t.Fatalf("unexpected identities: %+v", ids)
	}
}

func TestMacroUpsertAndDelete(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	s, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}

	m := macro.Macro{Name: "kb", Script: "/mode %C% +b %1:banmask%\n/kick %C% %1% :bye", Enabled: true}
	if err := s.SaveMacro(m); err != nil {
		t.Fatal(err)
	}
	macros, err := s.Macros()
	if err != nil || len(macros) != 1 {
		t.Fatalf("macros = %+v, err %v", macros, err)
	}

	if err := s.DeleteMacro("kb"); err != nil {
		t.Fatal(err)
	}
	macros, err = s.Macros()
	if err != nil || len(macros) != 0 {
		t.Fatalf("expected macro deleted, got %+v", macros)
	}
}
