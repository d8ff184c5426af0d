package watch

import (
	"github.com/coldwire/irc/user"
)

// AutoModeType is the action an AutoModeEntry triggers.
type AutoModeType int

const (
	AutoModeOp AutoModeType = iota
	AutoModeVoice
	AutoModeBanKick
)

// AutoModeEntry is one auto-mode row, : "auto-mode
// (server-key, user-mask, channel-wildcard, type, data)". Data holds the
// BanKick reason, and is unused for Op/Voice.
type AutoModeEntry struct {
	ServerKey string
	Mask string
	ChannelPattern string
	Type AutoModeType
	Data string
}

// Action is a MODE (and, for BanKick, a following KICK) the AutoMode
// watcher wants applied.
type Action struct {
	Channel string
	Mode string // "+o" / "+v" / "+b"
	Nick string
	Kick bool
	Reason string
}

// AutoMode evaluates channel joins/host-learns against a set of
// AutoModeEntry rows, : "When a user is added or becomes
// host-known in a channel AND we are channel-operator, the watcher emits
// the corresponding MODE and optionally KICK."
type AutoMode struct {
	entries []AutoModeEntry
}

// NewAutoMode constructs an AutoMode watcher over entries.
func NewAutoMode(entries []AutoModeEntry) *AutoMode {
	return &AutoMode{entries: entries}
}

func (a *AutoMode) Set(entries []AutoModeEntry) { a.entries = entries }

func (a *AutoMode) Entries() []AutoModeEntry { return a.entries }

// Evaluate returns the actions to apply for u having just joined (or just
// become host-known in) channel, given weAreOperator reflects our own
// channel-operator status there. Callers should no-op the returned actions
// entirely when weAreOperator is false, but Evaluate itself already does
// that filtering so callers never need to remember the invariant.
func (a *AutoMode) Evaluate(serverKey, channel string, u *user.User, weAreOperator bool) []Action {
	if !weAreOperator {
		return nil
	}
	var actions []Action
	for _, e := range a.entries {
		if e.ServerKey != serverKey {
			continue
		}
		if !user.MatchGlob(e.ChannelPattern, channel) {
			continue
		}
		if !user.MatchMask(e.Mask, u) {
			continue
		}
		switch e.Type {
		case AutoModeOp:
			actions = append(actions, Action{Channel: channel, Mode: "+o", Nick: u.Nick})
		case AutoModeVoice:
			actions = append(actions, Action{Channel: channel, Mode: "+v", Nick: u.Nick})
		case AutoModeBanKick:
			actions = append(actions, Action{Channel: channel, Mode: "+b", Nick: u.Nick, Kick: true, Reason: e.Data})
		}
	}
	return actions
}
