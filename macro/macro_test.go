package macro

import "testing"

func TestMacroExpansionScenario(t *testing.T) {
	e := NewEngine()
	e.Set(&Macro{
		Name: "/kb",
		Script: "/mode %C% +b %1:banmask%\r\n/kick %C% %1% :bye",
		Enabled: true,
	})

	ctx := Context{
		Channel: "#c",
		Lookup: func(nick string) (UserInfo, bool) {
			if nick == "bob" {
				return UserInfo{Nick: "bob", Username: "u", Hostname: "h"}, true
			}
			return UserInfo{}, false
		},
	}

	var lines []string
	handled, err := e.TryExpand("/kb", []string{"bob"}, ctx, func(line string) error {
		lines = append(lines, line)
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !handled {
		t.Fatal("expected macro to be handled")
	}
	if len(lines) != 2 || lines[0] != "/mode #c +b *!*@h" || lines[1] != "/kick #c bob :bye" {
		t.Fatalf("unexpected expansion: %v", lines)
	}
}

func TestMacroNotFoundPassesThrough(t *testing.T) {
	e := NewEngine()
	handled, err := e.TryExpand("/nope", nil, Context{}, func(string) error { return nil })
	if handled || err != nil {
		t.Fatalf("expected unhandled, got handled=%v err=%v", handled, err)
	}
}

func TestMacroDisabledPassesThrough(t *testing.T) {
	e := NewEngine()
	e.Set(&Macro{Name: "/x", Script: "/echo hi", Enabled: false})
	handled, err := e.TryExpand("/x", nil, Context{}, func(string) error { return nil })
	if handled || err != nil {
		t.Fatalf("expected unhandled for disabled macro, got handled=%v err=%v", handled, err)
	}
}

func TestMacroRecursionDepthCap(t *testing.T) {
	e := NewEngine()
	e.Set(&Macro{Name: "/loop", Script: "/loop", Enabled: true})

	_, err := e.TryExpand("/loop", nil, Context{}, func(string) error { return nil })
	merr, ok := err.(*Error)
	if !ok || merr.Kind != TooDeep {
		t.Fatalf("expected TooDeep error, got %v", err)
	}
}

func TestMacroInsufficientParameters(t *testing.T) {
	e := NewEngine()
	e.Set(&Macro{Name: "/m", Script: "/echo %2:banmask%", Enabled: true})
	ctx := Context{Lookup: func(nick string) (UserInfo, bool) { return UserInfo{}, false }}

	_, err := e.TryExpand("/m", []string{"onlyone"}, ctx, func(string) error { return nil })
	merr, ok := err.(*Error)
	if !ok || merr.Kind != InsufficientParameters {
		t.Fatalf("expected InsufficientParameters, got %v", err)
	}
}

func TestMacroRangesAndAll(t *testing.T) {
	e := NewEngine()
	e.Set(&Macro{Name: "/r", Script: "/echo [%1..%] [%..2%] [%2..3%] [%..%]", Enabled: true})

	var got string
	_, err := e.TryExpand("/r", []string{"a", "b", "c"}, Context{}, func(line string) error {
		got = line
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "/echo [a b c] [a b] [b c] [a b c]"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestMacroUnknownCodePassesThroughLiterally(t *testing.T) {
	e := NewEngine()
	e.Set(&Macro{Name: "/m", Script: "/echo %WEIRD%", Enabled: true})
	var got string
	e.TryExpand("/m", nil, Context{}, func(line string) error { got = line; return nil })
	if got != "/echo %WEIRD%" {
		t.Fatalf("expected literal pass-through, got %q", got)
	}
}
