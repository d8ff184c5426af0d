// Package user implements User entity: parsing "nick!user@host",
// case-folded equality and ordering, and the ban/ignore/notify mask generators.
package user

import (
	"strconv"
	"strings"

	"github.com/coldwire/irc"
	"github.com/coldwire/irc/casefold"
)

// User is a single IRC participant as known to a Connection: a nickname plus
// whatever host information we've learned about them (from a JOIN prefix, a
// WHOIS reply, or a NAMES list before any prefix is known).
type User struct {
	Nick string
	Username string
	Hostname string
	FullName string
	Away bool

	casemap casefold.Mapping
}

// New constructs a User under the given casemapping.
func New(nick string, cm casefold.Mapping) *User {
	return &User{Nick: nick, casemap: cm}
}

// FromPrefix parses a message Prefix ("nick!user@host", or bare "nick", or a
// server name) into a User. Parsing a bare server name produces a User with
// only Hostname set, matching Prefix.IsServer's notion of origin.
func FromPrefix(p irc.Prefix, cm casefold.Mapping) *User {
	if p.IsServer() {
		return &User{Hostname: p.Host, casemap: cm}
	}
	return &User{Nick: p.Nick.String(), Username: p.User, Hostname: p.Host, casemap: cm}
}

// Key returns the case-folded nickname used as a map key by buffer/connection
// lookups, satisfying invariant that "Channel/user buffers are keyed
// case-folded; lookup never creates duplicates."
func (u *User) Key() string {
	return u.casemap.Fold(u.Nick)
}

// Equal reports whether u and other refer to the same nickname under u's
// casemapping.
func (u *User) Equal(other *User) bool {
	if other == nil {
		return false
	}
	return u.casemap.Equal(u.Nick, other.Nick)
}

// Less orders two Users by case-folded nickname, used as the fallback ordering
// key once any mode-prefix ordering (ChannelUser.CompareValue) is equal.
func (u *User) Less(other *User) bool {
	return u.Key() < other.Key()
}

// Address renders the canonical "nick!user@host" form.
func (u *User) Address() string {
	if u.Username == "" && u.Hostname == "" {
		return u.Nick
	}
	return u.Nick + "!" + u.Username + "@" + u.Hostname
}

// MaskKind selects which fields of a mask Mask produces wildcards for.
type MaskKind int

const (
	// BanMask produces "*!*@host", the conventional form for channel bans --
	// it bans by host only, ignoring the (easily-changed) nick and username.
	BanMask MaskKind = iota
	// IgnoreMask produces "nick!*@host", narrower than a ban mask since ignore
	// lists are per-client and don't need to survive a user changing hosts.
	IgnoreMask
	// NotifyMask produces "nick!user@host" with no wildcards at all, an exact
	// match used by notify-list/contact cross-references.
	NotifyMask
)

// Mask builds a wildcard address pattern from u, per "mask
// generators (ban, ignore, notify)".
func (u *User) Mask(kind MaskKind) string {
	switch kind {
	case BanMask:
		return "*!*@" + u.Hostname
	case IgnoreMask:
		return u.Nick + "!*@" + u.Hostname
	default:
		return u.Address()
	}
}

// MatchMask reports whether mask (a "nick!user@host" pattern using '*' and '?'
// wildcards, per the GLOSSARY's "Ignore mask") matches u's address, compared
// case-foldedly as requires for ignore entries.
func MatchMask(mask string, u *User) bool {
	return MatchGlob(mask, u.Address())
}

// MatchGlob reports whether s matches pattern under a case-insensitive
// '*'/'?' wildcard comparison, for the non-address wildcard fields 
// §4.7 also glob-matches: auto-mode's channel-pattern and auto-join's
// server-network wildcard.
func MatchGlob(pattern, s string) bool {
	return matchWildcard(strings.ToLower(pattern), strings.ToLower(s))
}

// matchWildcard is a small '*'/'?' glob matcher (no regex compile cost, since
// ignore/auto-mode lists are checked on every inbound PRIVMSG/NOTICE).
func matchWildcard(pattern, s string) bool {
	return matchWildcardRunes([]rune(pattern), []rune(s))
}

func matchWildcardRunes(pattern, s []rune) bool {
	var p, q int
	starIdx, match := -1, 0
	for q < len(s) {
		if p < len(pattern) && (pattern[p] == '?' || pattern[p] == s[q]) {
			p++
			q++
		} else if p < len(pattern) && pattern[p] == '*' {
			starIdx = p
			match = q
			p++
		} else if starIdx != -1 {
			p = starIdx + 1
			match++
			q = match
		} else {
			return false
		}
	}
	for p < len(pattern) && pattern[p] == '*' {
		p++
	}
	return p == len(pattern)
}

// PrefixTable is the (mode letter, prefix character) ordering parsed from
// RPL_ISUPPORT's PREFIX=(modes)chars token, most-privileged first, e.g.
// PREFIX=(qaohv)~&@%+ per scenario B.
type PrefixTable []PrefixEntry

// PrefixEntry pairs one mode letter with its display prefix character.
type PrefixEntry struct {
	Mode byte
	Prefix byte
}

// ParsePrefixTable parses the "(modes)chars" token from ISUPPORT PREFIX.
func ParsePrefixTable(token string) PrefixTable {
	if len(token) < 2 || token[0] != '(' {
		return nil
	}
	close := strings.IndexByte(token, ')')
	if close < 0 {
		return nil
	}
	modes := token[1:close]
	chars := token[close+1:]
	n := len(modes)
	if len(chars) < n {
		n = len(chars)
	}
	pt := make(PrefixTable, n)
	for i := 0; i < n; i++ {
		pt[i] = PrefixEntry{Mode: modes[i], Prefix: chars[i]}
	}
	return pt
}

// CompareValue returns the ordering rank for modes (the highest-privilege
// prefix character found in modes, translated to a rank where 0 is most
// privileged and len(pt) is "no recognized prefix"), per definition:
// "A Channel user's compare_value is derived solely from the prefix letters
// accepted by the current server's ISUPPORT."
func (pt PrefixTable) CompareValue(modes string) int {
	best := len(pt)
	for _, m := range modes {
		for i, e := range pt {
			if rune(e.Mode) == m && i < best {
				best = i
			}
		}
	}
	return best
}

// PrefixChars returns the prefix characters (in rank order) that modes confers,
// used to render a nickname with its leading "@"/"+" decoration.
func (pt PrefixTable) PrefixChars(modes string) string {
	var b strings.Builder
	for _, e := range pt {
		if strings.IndexByte(modes, e.Mode) >= 0 {
			b.WriteByte(e.Prefix)
		}
	}
	return b.String()
}

// ModeForPrefixChar reverse-looks-up the mode letter for a leading prefix
// character found in a NAMES/WHO reply, e.g. '@' -> 'o'.
func (pt PrefixTable) ModeForPrefixChar(c byte) (byte, bool) {
	for _, e := range pt {
		if e.Prefix == c {
			return e.Mode, true
		}
	}
	return 0, false
}

// ChannelUser decorates a User with the per-channel state assigns to
// it: its mode string in that channel and the id of the last message it sent,
// used to evict idle users from a WHO batch heuristic (see collector package).
type ChannelUser struct {
	*User
	Modes string
	LastMessageID int64
}

// CompareValue computes this ChannelUser's ordering rank given the channel's
// current PrefixTable.
func (cu *ChannelUser) CompareValue(pt PrefixTable) int {
	return pt.CompareValue(cu.Modes)
}

// Less orders ChannelUsers for display: by CompareValue first (prefix rank),
// then by case-folded nickname, per scenario F.
func Less(a, b *ChannelUser, pt PrefixTable) bool {
	ra, rb := pt.CompareValue(a.Modes), pt.CompareValue(b.Modes)
	if ra != rb {
		return ra < rb
	}
	return a.User.Key() < b.User.Key()
}

// AddMode adds mode m to cu.Modes if not already present.
func (cu *ChannelUser) AddMode(m byte) {
	if strings.IndexByte(cu.Modes, m) >= 0 {
		return
	}
	cu.Modes += string(m)
}

// RemoveMode removes mode m from cu.Modes if present.
func (cu *ChannelUser) RemoveMode(m byte) {
	idx := strings.IndexByte(cu.Modes, m)
	if idx < 0 {
		return
	}
	cu.Modes = cu.Modes[:idx] + cu.Modes[idx+1:]
}

// DiffMask computes a bitmask of which fields changed between old and new,
// per "difference bitmask" on the User entity -- used by buffer
// observers to know whether a NICK/host change requires re-rendering a user
// list row or just a tooltip.
type DiffMask int

const (
	DiffNick DiffMask = 1 << iota
	DiffUsername
	DiffHostname
	DiffFullName
	DiffAway
)

// Diff returns the bitmask of fields that differ between a and b.
func Diff(a, b *User) DiffMask {
	var d DiffMask
	if a.Nick != b.Nick {
		d |= DiffNick
	}
	if a.Username != b.Username {
		d |= DiffUsername
	}
	if a.Hostname != b.Hostname {
		d |= DiffHostname
	}
	if a.FullName != b.FullName {
		d |= DiffFullName
	}
	if a.Away != b.Away {
		d |= DiffAway
	}
	return d
}

// IdleString renders a WHOIS idle-seconds count for display, e.g. "3 days, 2:14:05".
func IdleString(seconds int64) string {
	d := seconds / 86400
	seconds %= 86400
	h := seconds / 3600
	seconds %= 3600
	m := seconds / 60
	s := seconds % 60
	var b strings.Builder
	if d > 0 {
		b.WriteString(strconv.FormatInt(d, 10))
		b.WriteString(" days, ")
	}
	b.WriteString(strconv.FormatInt(h, 10))
	b.WriteByte(':')
	if m < 10 {
		b.WriteByte('0')
	}
	b.WriteString(strconv.FormatInt(m, 10))
	b.WriteByte(':')
	if s < 10 {
		b.WriteByte('0')
	}
	b.WriteString(strconv.FormatInt(s, 10))
	return b.String()
}
