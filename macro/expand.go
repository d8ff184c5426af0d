package macro

import (
	"strconv"
	"strings"
)

// UserInfo is the subset of a known user's identity the `:function` token
// suffixes resolve against ( scenario: "/kb bob" with "bob!u@h"
// known -> "%1:banmask%" => "*!*@h").
type UserInfo struct {
	Nick string
	Username string
	Hostname string
	ID string
}

// Context supplies the per-invocation values a macro's tokens resolve
// against: the invoking nickname, the active buffer's channel/target (empty
// outside a channel buffer), and a lookup from nickname to UserInfo for
// `:function` suffixes.
type Context struct {
	Nick string
	Channel string
	Lookup func(nick string) (UserInfo, bool)
}

// Emit is called once per expanded line, in macro-script order, recursively
// for nested macro invocations. Implementations feed the line back through
// the owning buffer as new input, : "each line is expanded and
// sent back through the buffer as a new input."
type Emit func(line string) error

// TryExpand looks up name as a macro and, if found and enabled, expands its
// script against args and ctx, emitting each resulting line via emit. It
// reports handled=false (with no error) when name isn't a known, enabled
// macro, so the caller can fall through to treating the input as an
// ordinary command or chat line -- : "Unknown commands pass
// through to wire as-is."
func (e *Engine) TryExpand(name string, args []string, ctx Context, emit Emit) (handled bool, err error) {
	m, ok := e.Get(name)
	if !ok || !m.Enabled {
		return false, nil
	}
	return true, e.run(m, args, ctx, emit, 0)
}

func (e *Engine) run(m *Macro, args []string, ctx Context, emit Emit, depth int) error {
	if depth >= MaxDepth {
		return &Error{Kind: TooDeep, Macro: m.Name, Msg: "recursion depth exceeded"}
	}
	for _, line := range m.Lines() {
		expanded, err := expandLine(line, args, ctx, m.Name)
		if err != nil {
			return err
		}
		name, rest, isCmd := splitCommand(expanded)
		if isCmd {
			if sub, ok := e.Get(name); ok && sub.Enabled {
				if err := e.run(sub, rest, ctx, emit, depth+1); err != nil {
					return err
				}
				continue
			}
		}
		if err := emit(expanded); err != nil {
			return err
		}
	}
	return nil
}

// splitCommand splits a line into a leading "/command" token and its
// remaining whitespace-separated arguments, if the line starts with '/'.
func splitCommand(line string) (name string, args []string, isCommand bool) {
	trimmed := strings.TrimSpace(line)
	if !strings.HasPrefix(trimmed, "/") {
		return "", nil, false
	}
	fields := strings.Fields(trimmed)
	if len(fields) == 0 {
		return "", nil, false
	}
	return fields[0], fields[1:], true
}

// expandLine substitutes every %CODE% token in line against args and ctx.
func expandLine(line string, args []string, ctx Context, macroName string) (string, error) {
	var b strings.Builder
	i := 0
	for i < len(line) {
		if line[i] != '%' {
			b.WriteByte(line[i])
			i++
			continue
		}
		if i+1 < len(line) && line[i+1] == '%' {
			b.WriteByte('%')
			i += 2
			continue
		}
		end := strings.IndexByte(line[i+1:], '%')
		if end < 0 {
			b.WriteByte(line[i])
			i++
			continue
		}
		code := line[i+1 : i+1+end]
		i = i + 1 + end + 1

		val, err := resolveToken(code, args, ctx, macroName)
		if err != nil {
			return "", err
		}
		b.WriteString(val)
	}
	return b.String(), nil
}

// resolveToken resolves one %CODE% token body (without the percent signs).
func resolveToken(code string, args []string, ctx Context, macroName string) (string, error) {
	if code == "N" {
		return ctx.Nick, nil
	}
	if code == "C" {
		return ctx.Channel, nil
	}

	base, fn, hasFn := strings.Cut(code, ":")

	var val string
	switch {
	case base == "..":
		val = strings.Join(args, " ")
	case strings.HasPrefix(base, "..") && isDigits(base[2:]):
		n, _ := strconv.Atoi(base[2:])
		val = joinRange(args, 1, n)
	case strings.HasSuffix(base, "..") && isDigits(base[:len(base)-2]):
		n, _ := strconv.Atoi(base[:len(base)-2])
		val = joinRange(args, n, len(args))
	case isRange(base):
		lo, hi := parseRange(base)
		val = joinRange(args, lo, hi)
	case isDigits(base):
		n, _ := strconv.Atoi(base)
		if n < 1 {
			return "", &Error{Kind: SyntaxError, Macro: macroName, Msg: "bad parameter index %" + code + "%"}
		}
		if n > len(args) {
			if hasFn {
				// a :function suffix on a missing parameter is a hard error,
				// since it has nothing to resolve against.
				return "", &Error{Kind: InsufficientParameters, Macro: macroName, Msg: "missing parameter " + base + " for :" + fn}
			}
			val = ""
		} else {
			val = args[n-1]
		}
	default:
		// unrecognized code: pass through literally rather than drop it,
		// matching how the message-template renderer treats unknown codes.
		return "%" + code + "%", nil
	}

	if !hasFn || val == "" {
		return val, nil
	}
	return applyFunction(fn, val, ctx, macroName)
}

func applyFunction(fn, nick string, ctx Context, macroName string) (string, error) {
	if ctx.Lookup == nil {
		return "", &Error{Kind: NotFound, Macro: macroName, Msg: "no user lookup available for :" + fn}
	}
	info, ok := ctx.Lookup(nick)
	if !ok {
		return "", &Error{Kind: NotFound, Macro: macroName, Msg: "unknown user " + nick + " for :" + fn}
	}
	switch fn {
	case "banmask":
		return "*!*@" + info.Hostname, nil
	case "ip":
		return info.Hostname, nil
	case "id":
		return info.ID, nil
	case "who":
		return info.Nick + "!" + info.Username + "@" + info.Hostname, nil
	default:
		return "", &Error{Kind: SyntaxError, Macro: macroName, Msg: "unknown function :" + fn}
	}
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

func isRange(s string) bool {
	lo, hi, ok := strings.Cut(s, "..")
	return ok && isDigits(lo) && isDigits(hi)
}

func parseRange(s string) (int, int) {
	lo, hi, _ := strings.Cut(s, "..")
	n, _ := strconv.Atoi(lo)
	m, _ := strconv.Atoi(hi)
	return n, m
}

func joinRange(args []string, lo, hi int) string {
	if lo < 1 {
		lo = 1
	}
	if hi > len(args) {
		hi = len(args)
	}
	if lo > hi {
		return ""
	}
	return strings.Join(args[lo-1:hi], " ")
}
