// Package netio frames an IRC byte stream into CRLF-delimited lines, the way
// client.go's startReading used bufio.Scanner, but sized and bounded the way
// a production IRC daemon framer is: a maximum line length so one malformed
// or hostile peer can't force unbounded buffer growth, surfaced as a
// distinguishable error rather than a silent truncation.
package netio

import (
	"errors"
	"io"

	"github.com/ergochat/irc-go/ircreader"
)

// MaxLineLength is the largest line this package will buffer before giving
// up on the connection, generous enough for the longest tag-decorated IRCv3
// line a real network sends (512 bytes of legacy protocol plus tag/IRCv3
// headroom), matching the bound ircreader itself recommends for this use.
const MaxLineLength = 8192

// ErrLineTooLong is returned by LineReader.ReadLine when a single line (with
// no terminating CRLF/LF) exceeds MaxLineLength.
var ErrLineTooLong = errors.New("netio: line exceeds maximum length")

// LineReader reads CRLF- or LF-terminated lines from a connection, wrapping
// ergochat/irc-go's ircreader.IRCReader the way DALnet-rnexus's ircmsg/ircfmt
// imports ground this package's choice of library for everything
// wire-format-adjacent: ircreader already handles the CR-then-LF vs bare-LF
// ambiguity real networks exhibit, so this package doesn't reimplement a
// second line scanner the way the bufio.Scanner-based
// startReading does.
type LineReader struct {
	r ircreader.IRCReader
}

// NewLineReader constructs a LineReader over conn, reading at most
// MaxLineLength bytes per line.
func NewLineReader(conn io.Reader) *LineReader {
	lr := &LineReader{}
	lr.r.Initialize(conn, 1024, MaxLineLength)
	return lr
}

// ReadLine returns the next line, without its terminator. The returned slice
// is only valid until the next call to ReadLine. io.EOF is returned when the
// underlying connection is closed cleanly.
func (lr *LineReader) ReadLine() ([]byte, error) {
	line, err := lr.r.ReadLine()
	if err != nil {
		if errors.Is(err, ircreader.ErrLineTooLong) {
			return nil, ErrLineTooLong
		}
		return nil, err
	}
	return line, nil
}
