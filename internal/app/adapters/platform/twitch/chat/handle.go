package chat

import (
	"log/slog"
	"strings"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/miwidot/twitchmod/internal/app/adapters/metrics"
	"github.com/miwidot/twitchmod/internal/app/domain/irc"
	"github.com/miwidot/twitchmod/internal/app/ports"
)

// handleLine dispatches one inbound line. Parse and protocol errors are
// absorbed here; the session keeps running. Unknown commands are logged
// and ignored for forward compatibility.
func (c *Chat) handleLine(line string) {
	msg, err := irc.Parse(line)
	if err != nil {
		metrics.MalformedLines.Inc()
		c.log.Warn("Dropping malformed line", slog.String("line", line))
		return
	}

	switch msg.Command {
	case "001":
		if c.State() == ports.StateAuthenticating {
			c.setState(ports.StateReady)
			c.log.Info("Chat session ready")
			c.emit(ports.SessionReady{})
		}
	case "PRIVMSG":
		c.handlePrivmsg(msg)
	case "JOIN", "PART":
		c.handleMembershipChange(msg)
	case "353":
		c.handleNameList(msg)
	case "366":
		c.log.Debug("Name list complete", slog.String("line", line))
	case "CLEARCHAT":
		c.handleClearChat(msg)
	case "CLEARMSG":
		c.handleClearMsg(msg)
	case "NOTICE":
		c.log.Info("Server notice", slog.String("text", msg.Trailing))
	default:
		c.log.Debug("Unhandled command", slog.String("command", msg.Command))
	}
}

func (c *Chat) handlePrivmsg(msg *irc.Message) {
	if len(msg.Params) == 0 {
		c.protocolViolation("PRIVMSG without a room", msg)
		return
	}

	room := canonicalRoom(msg.Params[0])
	metrics.MessagesReceived.With(prometheus.Labels{"room": room}).Inc()

	c.emit(ports.ChatMessage{
		Room:      room,
		Sender:    irc.Nick(msg.Prefix),
		Text:      msg.Trailing,
		MessageID: msg.Tags["id"],
		Tags:      msg.Tags,
	})
}

func (c *Chat) handleMembershipChange(msg *irc.Message) {
	room := ""
	if len(msg.Params) > 0 {
		room = msg.Params[0]
	} else {
		room = msg.Trailing
	}
	user := irc.Nick(msg.Prefix)
	if room == "" || user == "" {
		c.protocolViolation(msg.Command+" without room or sender", msg)
		return
	}

	room = canonicalRoom(room)
	if msg.Command == "JOIN" {
		c.emit(ports.UserJoined{Room: room, User: user})
	} else {
		c.emit(ports.UserParted{Room: room, User: user})
	}
}

// handleNameList processes the 353 bulk name list. The list may repeat
// across lines for a large room; membership adds are idempotent, so
// each name is forwarded as a plain join.
func (c *Chat) handleNameList(msg *irc.Message) {
	room := ""
	for _, p := range msg.Params {
		if strings.HasPrefix(p, "#") {
			room = canonicalRoom(p)
			break
		}
	}
	if room == "" {
		c.protocolViolation("353 without a room marker", msg)
		return
	}

	for _, name := range strings.Fields(msg.Trailing) {
		c.emit(ports.UserJoined{Room: room, User: name})
	}
}

func (c *Chat) handleClearChat(msg *irc.Message) {
	if len(msg.Params) == 0 {
		c.protocolViolation("CLEARCHAT without a room", msg)
		return
	}

	room := canonicalRoom(msg.Params[0])
	if msg.Trailing == "" {
		// no target user: the whole room was cleared
		c.emit(ports.RoomCleared{Room: room})
		return
	}
	c.emit(ports.UserBanned{Room: room, User: msg.Trailing})
}

func (c *Chat) handleClearMsg(msg *irc.Message) {
	if len(msg.Params) == 0 {
		c.protocolViolation("CLEARMSG without a room", msg)
		return
	}

	// target-msg-id is frequently absent; the event carries an empty id
	// in that case.
	c.emit(ports.MessageDeleted{
		Room:      canonicalRoom(msg.Params[0]),
		MessageID: msg.Tags["target-msg-id"],
	})
}

func (c *Chat) protocolViolation(reason string, msg *irc.Message) {
	c.log.Warn("Protocol violation, skipping line",
		slog.String("reason", reason),
		slog.String("command", msg.Command),
	)
}
