package macro

import (
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// TimerSpec is a parsed `TIMER name=... interval=... [repeat=...] /command`
// invocation, one of the commands lists the input line parser
// must support.
type TimerSpec struct {
	// ID is a fresh id minted per TIMER invocation ( the
	// macro package uses github.com/google/uuid for this, the same way the
	// dcc package mints session ids, rather than a second sequential
	// counter that would collide across buffers).
	ID uuid.UUID
	Name string
	Interval time.Duration
	Repeat int // 0 means "forever" per "[repeat=...]" being optional
	Command string
}

// ParseTimer parses the argument tail of a TIMER command, e.g.
// `name=ping interval=30s repeat=5 /ctcp %C% PING`.
func ParseTimer(args string) (TimerSpec, error) {
	spec := TimerSpec{ID: uuid.New()}
	rest := args

	for {
		rest = strings.TrimLeft(rest, " ")
		if rest == "" || strings.HasPrefix(rest, "/") {
			break
		}
		sp := strings.IndexByte(rest, ' ')
		var field string
		if sp < 0 {
			field, rest = rest, ""
		} else {
			field, rest = rest[:sp], rest[sp+1:]
		}
		k, v, ok := strings.Cut(field, "=")
		if !ok {
			return TimerSpec{}, &Error{Kind: SyntaxError, Macro: "TIMER", Msg: "malformed field " + field}
		}
		switch strings.ToLower(k) {
		case "name":
			spec.Name = v
		case "interval":
			d, err := parseIntervalValue(v)
			if err != nil {
				return TimerSpec{}, &Error{Kind: SyntaxError, Macro: "TIMER", Msg: "bad interval: " + v}
			}
			spec.Interval = d
		case "repeat":
			n, err := strconv.Atoi(v)
			if err != nil {
				return TimerSpec{}, &Error{Kind: SyntaxError, Macro: "TIMER", Msg: "bad repeat: " + v}
			}
			spec.Repeat = n
		default:
			return TimerSpec{}, &Error{Kind: SyntaxError, Macro: "TIMER", Msg: "unknown field " + k}
		}
	}

	spec.Command = strings.TrimSpace(rest)
	if spec.Name == "" || spec.Interval <= 0 || spec.Command == "" {
		return TimerSpec{}, &Error{Kind: InsufficientParameters, Macro: "TIMER", Msg: "requires name=, interval=, and a /command"}
	}
	return spec, nil
}

// parseIntervalValue accepts either a bare integer (milliseconds, matching
// "DELAY ms command") or a Go duration string ("30s").
func parseIntervalValue(v string) (time.Duration, error) {
	if ms, err := strconv.Atoi(v); err == nil {
		return time.Duration(ms) * time.Millisecond, nil
	}
	return time.ParseDuration(v)
}
