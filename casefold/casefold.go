// Package casefold implements the three case-folding schemes IRC servers
// advertise via RPL_ISUPPORT's CASEMAPPING token (, §4.2), wrapping
// github.com/ergochat/irc-go/ircmsg's casefolding helpers -- the same package
// DALnet-rnexus depends on for its own nickname comparisons -- rather than
// hand-rolling the `{}|^` <-> `[]\~` upper/lowercase equivalences ourselves.
package casefold

import (
	"strings"

	"github.com/ergochat/irc-go/ircmsg"
)

// Mapping identifies one of the three casemapping schemes a server may declare.
type Mapping int

const (
	// ASCII folds only 'A'-'Z' to 'a'-'z', leaving the rest of the mIRC-legacy
	// punctuation ('[', ']', etc.) untouched. This is the modern default.
	ASCII Mapping = iota
	// RFC1459 additionally folds '{', '}', '|', '^' to '[', ']', '\', '~'.
	RFC1459
	// RFC1459Strict is RFC1459 without the '~' <-> '^' fold, matching the
	// "strict-rfc1459" ISUPPORT token some ircd families (e.g. InspIRCd) send.
	RFC1459Strict
)

// ParseMapping converts an ISUPPORT CASEMAPPING token into a Mapping, defaulting
// to RFC1459 (the historical default for networks that omit the token) when the
// value is unrecognized.
func ParseMapping(token string) Mapping {
	switch strings.ToLower(token) {
	case "ascii":
		return ASCII
	case "strict-rfc1459":
		return RFC1459Strict
	default:
		return RFC1459
	}
}

func (m Mapping) String() string {
	switch m {
	case ASCII:
		return "ascii"
	case RFC1459Strict:
		return "strict-rfc1459"
	default:
		return "rfc1459"
	}
}

// Fold returns s case-folded under m, suitable for use as a map key when comparing
// nicknames or channel names ( invariant: "Channel/user buffers are keyed
// case-folded; lookup never creates duplicates.").
func (m Mapping) Fold(s string) string {
	switch m {
	case ASCII:
		return ircmsg.CasefoldASCII(s)
	case RFC1459Strict:
		return ircmsg.CasefoldRFC1459Strict(s)
	default:
		return ircmsg.CasefoldRFC1459(s)
	}
}

// Equal reports whether a and b are equal once both are folded under m.
func (m Mapping) Equal(a, b string) bool {
	return m.Fold(a) == m.Fold(b)
}
