package irc

import (
	"strings"
	"time"
	"unicode/utf8"
)

// maxWireLength is the maximum number of bytes a single IRC line may occupy on the
// wire, including the trailing CR-LF,.
const maxWireLength = 512

// SplitMessage builds one or more Messages of type cmd so that each one, once
// marshaled with prefix, stays within maxLen bytes including "\r\n". Only the
// content-param slot ( content_param) is split; all other
// parameters are repeated verbatim on every line. If cmd has no content-param
// slot, or body already fits, a single Message is returned.
//
// prefixLen is the caller's best estimate of how many bytes the ":nick!user@host "
// prefix will add once the server echoes the line back to other clients (see
// Connection.prefix); it's subtracted from maxLen up front so the split is
// conservative rather than exact, mirroring property 4: concatenating
// the returned messages' content parameters must reconstruct body exactly, and
// no UTF-8 codepoint may be split.
func SplitMessage(cmd Command, args []string, prefixLen int, maxLen int) []*Message {
	idx, ok := contentParamIndex(cmd)
	if !ok || idx > len(args) {
		return []*Message{NewMessage(cmd, args...)}
	}
	body := args[idx-1]

	if maxLen <= 0 {
		maxLen = maxWireLength
	}
	overhead := prefixLen
	for i, a := range args {
		if i+1 == idx {
			continue
		}
		overhead += len(a) + 1 // delimiter
	}
	overhead += len(cmd.String()) + len("\r\n") + 2 // ':' trailing + leading space for command
	budget := maxLen - overhead
	if budget < 1 {
		budget = 1
	}

	var messages []*Message
	for len(body) > 0 {
		n := budget
		if n >= len(body) {
			n = len(body)
		} else {
			// never split a UTF-8 continuation byte: back off until we land on a rune boundary.
			for n > 0 && isUTF8Continuation(body[n]) {
				n--
			}
			if n == 0 {
				n = budget // degenerate case: budget too small to hold even one rune; send it anyway.
			}
		}
		chunk := body[:n]
		body = body[n:]

		chunkArgs := make([]string, len(args))
		copy(chunkArgs, args)
		chunkArgs[idx-1] = chunk
		messages = append(messages, NewMessage(cmd, chunkArgs...))
	}
	if len(messages) == 0 {
		messages = append(messages, NewMessage(cmd, args...))
	}
	return messages
}

func isUTF8Continuation(b byte) bool {
	return utf8.RuneStart(b) == false
}

// ParseLog parses a single line previously produced by a logger observer back into
// a Message, per `parse_log(line)`. Logged lines are written with
// a leading timestamp column followed by a TAB and then the line exactly as
// to_wire would have produced it (see render.Options' Column mode), so
// ParseLog splits on the first TAB and unmarshals the remainder normally. Lines
// with no TAB are assumed to have no timestamp and are parsed as-is.
func ParseLog(line string) (*Message, error) {
	if i := strings.IndexByte(line, '\t'); i >= 0 {
		line = line[i+1:]
	}
	m := new(Message)
	m.IncludePrefix()
	if err := m.UnmarshalText([]byte(line)); err != nil {
		return nil, err
	}
	return m, nil
}

// FormatLogTimestamp renders t in the "2006-01-02 15:04:05" form for a log
// line's leading timestamp column; a line written as that column, a TAB, and
// the wire text round-trips through ParseLog.
func FormatLogTimestamp(t time.Time) string {
	return t.Format("2006-01-02 15:04:05")
}
