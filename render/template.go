// Package render implements "nice-form" rendering: turning a raw
// protocol Message into human-facing text via a per-message template such as
// "%N% joined %C%", substitution codes, optional blocks, and output spans for
// rich-text display.
//
// The span-shift concern flags ("the source's re-escaping of
// already-substituted spans... is delicate") is sidestepped by construction
// here: Render never mutates already-emitted text. It expands the template in
// two passes -- first resolving %?code% optional blocks to either their
// expansion or nothing, producing a template with no remaining optional-block
// syntax, then streaming that resolved template straight into a strings.Builder
// while recording each substitution's span as it's appended. Because the
// builder only ever appends, a span's (start, end) is correct the moment it's
// recorded and never needs adjusting afterward.
package render

import (
	"strconv"
	"strings"
	"time"

	"github.com/ergochat/irc-go/ircfmt"
)

// SpanKind classifies a substituted span for rich-text rendering, e.g. so a UI
// can color nicknames differently from channel names.
type SpanKind int

const (
	SpanGeneric SpanKind = iota
	SpanNickname
	SpanChannel
	SpanCommand
)

// Span describes one substituted region of rendered output text.
type Span struct {
	Start int
	End int
	Kind SpanKind
}

// Value is a substitution table entry: either a fixed string or a zero-argument
// function evaluated at render time ( "a mapping from %CODE% to {static
// string | 0-arg function}").
type Value struct {
	Static string
	Func func() string
	Kind SpanKind
}

func (v Value) resolve() string {
	if v.Func != nil {
		return v.Func()
	}
	return v.Static
}

// Table maps a %CODE% (without the percent signs) to its substitution Value.
type Table map[string]Value

// Options controls the ambient parts of rendering that aren't per-code
// substitutions: timestamps and column-mode layout.
type Options struct {
	// Timestamp, when non-zero, is prepended to the rendered line.
	Timestamp time.Time
	// ShowTimestamp enables the Timestamp prefix at all.
	ShowTimestamp bool
	// Column puts a TAB between the timestamp and the body instead of a space,
	// so a UI can align a column of message bodies regardless of timestamp width.
	Column bool
	// StripFormatting removes mIRC color/bold/underline control codes from the
	// final body using ircfmt, e.g. for a log file or a plain-text transcript.
	StripFormatting bool
}

// Render expands template against table and returns the plain text plus the
// spans of every substitution, with Options applied around the result.
func Render(template string, table Table, opts Options) (string, []Span) {
	resolved := resolveOptionalBlocks(template, table)

	var b strings.Builder
	var spans []Span

	prefix := ""
	if opts.ShowTimestamp {
		prefix = opts.Timestamp.Format("15:04:05")
		if opts.Column {
			prefix += "\t"
		} else {
			prefix += " "
		}
	}
	b.WriteString(prefix)

	scan(resolved, func(lit string) {
		b.WriteString(lit)
	}, func(code string, v Value) {
		start := b.Len()
		text := v.resolve()
		b.WriteString(text)
		if text != "" {
			spans = append(spans, Span{Start: start, End: start + len(text), Kind: v.Kind})
		}
	}, table)

	out := b.String()
	if opts.StripFormatting {
		stripped := ircfmt.Strip(out)
		if stripped != out {
			// formatting codes were removed; spans recorded against the raw text
			// are no longer valid byte offsets into the stripped string, so we
			// drop them rather than return indices that don't point at what a
			// caller expects. Plain-text consumers (loggers) don't need spans.
			spans = nil
		}
		out = stripped
	}
	return out, spans
}

// resolveOptionalBlocks expands every "%?CODE%... %?%" block in template,
// replacing it with its inner contents when CODE resolves non-empty, or with
// nothing when CODE resolves empty/missing. The result contains only literal
// text and ordinary "%CODE%"/"%%" tokens, safe to hand to scan.
func resolveOptionalBlocks(template string, table Table) string {
	var out strings.Builder
	i := 0
	for i < len(template) {
		if strings.HasPrefix(template[i:], "%?") && !strings.HasPrefix(template[i:], "%??") {
			// find the code name, terminated by '%'
			end := strings.IndexByte(template[i+2:], '%')
			if end < 0 {
				out.WriteString(template[i:])
				break
			}
			code := template[i+2 : i+2+end]
			bodyStart := i + 2 + end + 1
			closeIdx := strings.Index(template[bodyStart:], "%?%")
			if closeIdx < 0 {
				out.WriteString(template[i:])
				break
			}
			body := template[bodyStart : bodyStart+closeIdx]
			if v, ok := table[code]; ok && v.resolve() != "" {
				out.WriteString(resolveOptionalBlocks(body, table))
			}
			i = bodyStart + closeIdx + len("%?%")
			continue
		}
		out.WriteByte(template[i])
		i++
	}
	return out.String()
}

// scan walks template (with optional blocks already resolved) calling lit for
// each run of literal text and sub for each "%CODE%" token, in order. "%%" is
// treated as a literal '%'.
func scan(template string, lit func(string), sub func(string, Value), table Table) {
	var buf strings.Builder
	flush := func() {
		if buf.Len() > 0 {
			lit(buf.String())
			buf.Reset()
		}
	}
	i := 0
	for i < len(template) {
		if template[i] != '%' {
			buf.WriteByte(template[i])
			i++
			continue
		}
		if i+1 < len(template) && template[i+1] == '%' {
			buf.WriteByte('%')
			i += 2
			continue
		}
		end := strings.IndexByte(template[i+1:], '%')
		if end < 0 {
			buf.WriteByte(template[i])
			i++
			continue
		}
		code := template[i+1 : i+1+end]
		if v, ok := table[code]; ok {
			flush()
			sub(code, v)
		} else {
			// unknown code: pass through literally, matching the general
			// habit of never dropping bytes it doesn't understand.
			buf.WriteString(template[i : i+1+end+1])
		}
		i = i + 1 + end + 1
	}
	flush()
}

// ParamSpec builds a Table entry for a numbered message parameter, for use by
// callers assembling a Table from a Message's Params (e.g. "%1%" => Params.Get(1)).
func ParamSpec(n int, get func(int) string, kind SpanKind) Value {
	return Value{Func: func() string { return get(n) }, Kind: kind}
}

// FormatOrdinal renders n with its ordinal suffix ("1st", "2nd", "3rd", "4th",
//...), per note about the source's month-ordinal formatter typo:
// the suffix is concatenated onto the number, never overwriting it.
func FormatOrdinal(n int) string {
	ret := strconv.Itoa(n)
	switch {
	case n%100 >= 11 && n%100 <= 13:
		ret += "th"
	case n%10 == 1:
		ret += "st"
	case n%10 == 2:
		ret += "nd"
	case n%10 == 3:
		ret += "rd"
	default:
		ret += "th"
	}
	return ret
}
