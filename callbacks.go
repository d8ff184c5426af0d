package irc

// UIHooks is the CLI/UI boundary callback surface an embedding application
// implements and assigns to Connection.UI, covering the boundary:
// open buffer, open DCC connection, open channel-list view, enter-password
// prompt, query-disconnect confirmation, alternate-nickname prompt,
// download-file dialog, chat/invite/notify-action hooks, is-unicode?,
// can-activate-buffer?, custom-command, macro-syntax-error. The core calls
// these synchronously and never blocks on them: an implementation that
// itself needs to block on user input should return a zero value here and
// deliver the real answer later through whatever channel its own domain
// method exposes (e.g. resuming a paused command once a password arrives).
//
// A Connection with UI left nil treats every hook as declined/absent rather
// than panicking, so embedding the core without a UI (tests, headless bots)
// needs no stub implementation.
type UIHooks interface {
	// OpenBuffer asks the UI to create or focus a buffer for target on c.
	OpenBuffer(c *Connection, target string)
	// OpenDCCConnection asks the UI to open a view for a DCC session
	// identified by token (a peer nick for CHAT, a file-offer id for SEND).
	OpenDCCConnection(c *Connection, token string)
	// OpenChannelList asks the UI to display a channel-list view backed by
	// an in-flight LIST collector run.
	OpenChannelList(c *Connection)
	// EnterPassword asks the UI to prompt for a password for reason (e.g.
	// "channel key", "server password"), returning "" if declined.
	EnterPassword(c *Connection, reason string) string
	// QueryDisconnect asks the UI to confirm a disconnect that would carry
	// away unsent work (e.g. active DCC transfers); false vetoes it.
	QueryDisconnect(c *Connection, reason string) bool
	// AlternateNickname is called once Identity.Alternates is exhausted
	// during the nick-collision fallback of Registering. tried lists every
	// nickname already rejected this attempt, in order. Returning "" gives
	// up, producing the "no nickname" failure.
	AlternateNickname(c *Connection, tried []string) string
	// DownloadFile asks the UI to choose a destination path for an
	// incoming DCC SEND offer; an empty path declines the offer.
	DownloadFile(c *Connection, filename string, size int64) string
	// NotifyAction surfaces a transient event (invite received, CTCP reply,
	// etc.) described by kind and detail, for display outside any buffer.
	NotifyAction(c *Connection, kind, detail string)
	// IsUnicode reports whether the UI renders outgoing text as UTF-8.
	IsUnicode(c *Connection) bool
	// CanActivateBuffer reports whether the UI currently allows target to
	// become the active buffer (it may be hidden or filtered).
	CanActivateBuffer(c *Connection, target string) bool
	// CustomCommand gives the UI first refusal on an unrecognized
	// /command before the core reports it as unknown.
	CustomCommand(c *Connection, name string, args []string) bool
	// MacroSyntaxError reports a macro expansion failure for display near
	// wherever the macro was invoked.
	MacroSyntaxError(c *Connection, text string, err error)
}
