package model

import (
	"fmt"
	"strings"

	"github.com/coldwire/irc"
	"github.com/coldwire/irc/buffer"
	"github.com/coldwire/irc/macro"
)

// SendInput handles one line of text typed into buf: a leading "/name args"
// is tried against the macro engine first, per macro.Emit's doc ("each line
// is expanded and sent back through the buffer as new input"); a line the
// macro engine doesn't recognize as one of its own names falls through to
// UI.CustomCommand, and anything without a leading slash goes out as chat
// addressed to buf's own target.
func (m *Manager) SendInput(connID ConnectionID, buf *buffer.Buffer, text string) error {
	m.mu.Lock()
	mc, ok := m.conns[connID]
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("model: send input: connection %d not found", connID)
	}
	return mc.sendInput(buf, text, 0)
}

const maxInputRecursion = 8

func (mc *managedConnection) sendInput(buf *buffer.Buffer, text string, depth int) error {
	if depth >= maxInputRecursion {
		return fmt.Errorf("model: input recursion too deep")
	}

	name, args, isCommand := splitInputCommand(text)
	if !isCommand {
		return mc.sendChat(buf, text)
	}

	ctx := mc.macroContext(buf)
	emit := func(line string) error {
		return mc.sendInput(buf, line, depth+1)
	}
	if handled, err := mc.m.Macros.TryExpand(name, args, ctx, emit); handled {
		if err != nil && mc.conn.UI != nil {
			mc.conn.UI.MacroSyntaxError(mc.conn, text, err)
		}
		return err
	}

	if mc.conn.UI != nil && mc.conn.UI.CustomCommand(mc.conn, strings.TrimPrefix(name, "/"), args) {
		return nil
	}
	return nil
}

// sendChat writes text as outgoing PRIVMSG to buf's own target: the channel
// name for a Channel buffer, the peer nick for a USER buffer. Any other
// buffer kind (Server, Notice, DCCChat) has no PRIVMSG target of its own, so
// plain chat text typed there is a no-op.
func (mc *managedConnection) sendChat(buf *buffer.Buffer, text string) error {
	var target string
	switch buf.Kind() {
	case buffer.KindChannel, buffer.KindUser:
		target = buf.Name()
	default:
		return nil
	}
	mc.conn.WriteMessage(irc.Msg(target, text))
	return nil
}

// macroContext builds the Context a macro invoked from buf expands against:
// the connection's own nick, buf's channel name if it has one, and a
// nick->UserInfo lookup drawn from that channel's user list for `:function`
// token suffixes, e.g. "/kb bob" resolving "%1:banmask%".
func (mc *managedConnection) macroContext(buf *buffer.Buffer) macro.Context {
	ctx := macro.Context{Nick: mc.conn.Nick().String()}
	if buf.Kind() != buffer.KindChannel {
		return ctx
	}
	ctx.Channel = buf.Name()
	ch, ok := mc.lookupChannel(buf.Name())
	if !ok {
		return ctx
	}
	ctx.Lookup = func(nick string) (macro.UserInfo, bool) {
		cu, ok := ch.User(mc.fold(nick))
		if !ok {
			return macro.UserInfo{}, false
		}
		return macro.UserInfo{Nick: cu.Nick, Username: cu.Username, Hostname: cu.Hostname}, true
	}
	return ctx
}

// splitInputCommand mirrors macro's own splitCommand: a line starting with
// '/' names a command (its macro name, if any, is the whole leading token
// including the slash, matching how macro.Engine keys entries), everything
// else is chat text.
func splitInputCommand(line string) (name string, args []string, isCommand bool) {
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
