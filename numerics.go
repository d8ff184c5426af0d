package irc

import "strconv"

// CmdUnknown is the Command value assigned to a textual command that doesn't match
// any of the well-known constants in constants.go. The raw command string is never
// lost -- Message.Command still holds it -- this only affects which constant a
// caller's switch statement will match.
const CmdUnknown = "UNKNOWN"

// RplUnknown is the Command value used for a three-digit numeric reply that isn't
// one of the RplXxx constants in constants.go. As with CmdUnknown, the raw numeric is preserved
// on the Message; IsNumeric and Message.Command can still be used to recover it.
const RplUnknown = "RPL_UNKNOWN"

// knownNumerics is the fixed set of numerics classify treats as known. It only needs to
// answer "is this one we named a constant for", not enumerate them, so it lists just
// the small set of codes this package's callers actually branch on.
var knownNumerics = map[Command]bool{
	RplWelcome: true, RplYourHost: true, RplCreated: true, RplMyInfo: true,
	RplISupport: true, RplBounce: true,
	RplWhoIsUser: true, RplWhoIsServer: true, RplWhoIsOperator: true,
	RplWhoIsIdle: true, RplEndOfWhoIs: true, RplWhoIsChannels: true,
	RplList: true, RplListEnd: true, RplNamReply: true, RplEndOfNames: true,
	RplTopic: true, RplNoTopic: true, RplAway: true,
	RplBanList: true, RplEndOfBanList: true,
	RplExceptList: true, RplEndOfExceptList: true,
	RplInviteList: true, RplEndOfInviteList: true,
	RplChannelModeIs: true,
	RplWhoReply: true, RplEndOfWho: true,
	RplLinks: true, RplEndOfLinks: true,
	RplErrNoSuchNick: true, RplErrNicknameInUse: true, RplErrErroneousNickname: true,
}

// IsNumeric reports whether cmd looks like a three-digit numeric reply, regardless
// of whether it's one this package names a constant for.
func IsNumeric(cmd Command) bool {
	s := cmd.String()
	if len(s) != 3 {
		return false
	}
	_, err := strconv.Atoi(s)
	return err == nil
}

// classify folds cmd to CmdUnknown or RplUnknown when it isn't one of the
// well-known constants, following rule that "unknown numerics fold to
// RPL_UNKNOWN; unknown text folds to UNKNOWN while keeping the raw command string."
//
// classify never modifies the Message; callers that need folded dispatch (the
// connection-manager's routing, the nice-form template lookup) call this
// explicitly rather than have it silently applied during parsing, so that
// Message.Command always reflects what was actually on the wire.
func classify(cmd Command) Command {
	if IsNumeric(cmd) {
		if knownNumerics[cmd] {
			return cmd
		}
		return RplUnknown
	}
	if isKnownTextCommand(cmd) {
		return cmd
	}
	return CmdUnknown
}

var textCommands = map[Command]bool{
	CmdPrivmsg: true, CmdNotice: true, CmdNick: true, CmdUser: true, CmdPass: true,
	CmdQuit: true, CmdJoin: true, CmdPart: true, CmdTopic: true, CmdPing: true,
	CmdPong: true, CmdMode: true, CmdWhoIs: true, CmdWho: true, CmdKick: true,
	CmdList: true, CmdInvite: true, CmdAway: true, CmdCap: true, CmdError: true,
	CmdTagMsg: true,
}

func isKnownTextCommand(cmd Command) bool {
	return textCommands[cmd]
}

// contentParamIndex returns the 1-based parameter index that holds a message's
// free-form "body" (the content-param slot from ), and whether cmd
// has one at all. It's used both to decide which trailing parameter gets
// coalesced when marshaling an outgoing message, and by Text to find the
// body of messages the original Text method didn't know about.
func contentParamIndex(cmd Command) (int, bool) {
	if cmd == CTCPAction {
		return 2, true
	}
	switch classify(cmd) {
	case CmdQuit, CmdError:
		return 1, true
	case CmdNotice, CmdPrivmsg, CmdTopic, RplTopic, RplAway, CmdPart, CTCPAction:
		return 2, true
	case CmdKick, RplList:
		return 3, true
	case RplWhoIsUser:
		return 5, true
	default:
		return 0, false
	}
}
