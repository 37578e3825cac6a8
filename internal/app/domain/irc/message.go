package irc

import (
	"errors"
	"strings"
)

// ErrMalformedMessage reports a line that yields no command token.
var ErrMalformedMessage = errors.New("malformed irc message")

// Message is one parsed protocol line. Immutable once parsed.
type Message struct {
	Tags     map[string]string
	Prefix   string
	Command  string
	Params   []string
	Trailing string
}

// Parse splits a raw line into tags, prefix, command, params and
// trailing. Order is fixed: tag segment, prefix, trailing marker, then
// the command+params segment on single spaces.
func Parse(line string) (*Message, error) {
	msg := &Message{}
	rest := line

	if strings.HasPrefix(rest, "@") {
		sp := strings.IndexByte(rest, ' ')
		if sp == -1 {
			return nil, ErrMalformedMessage
		}
		msg.Tags = parseTags(rest[1:sp])
		rest = rest[sp+1:]
	}

	if strings.HasPrefix(rest, ":") {
		sp := strings.IndexByte(rest, ' ')
		if sp == -1 {
			return nil, ErrMalformedMessage
		}
		msg.Prefix = rest[1:sp]
		rest = rest[sp+1:]
	}

	// Everything after the first " :" is trailing, verbatim.
	if idx := strings.Index(rest, " :"); idx != -1 {
		msg.Trailing = rest[idx+2:]
		rest = rest[:idx]
	}

	tokens := strings.Fields(rest)
	if len(tokens) == 0 {
		return nil, ErrMalformedMessage
	}
	msg.Command = tokens[0]
	msg.Params = tokens[1:]

	return msg, nil
}

func parseTags(rawTags string) map[string]string {
	tags := make(map[string]string)

	start := 0
	for i := 0; i <= len(rawTags); i++ {
		if i == len(rawTags) || rawTags[i] == ';' {
			tag := rawTags[start:i]
			if tag != "" {
				if eq := strings.IndexByte(tag, '='); eq != -1 {
					tags[tag[:eq]] = tag[eq+1:]
				} else {
					tags[tag] = ""
				}
			}
			start = i + 1
		}
	}

	return tags
}

// Serialize builds an outbound line. The trailing marker is emitted only
// when trailing is non-empty; the client never sends tags or a prefix.
func Serialize(command string, params []string, trailing string) string {
	return serialize(command, params, trailing, false)
}

// SerializeForced always emits the trailing marker, for commands that
// require an explicit empty trailing parameter.
func SerializeForced(command string, params []string, trailing string) string {
	return serialize(command, params, trailing, true)
}

func serialize(command string, params []string, trailing string, force bool) string {
	var b strings.Builder
	b.WriteString(command)
	for _, p := range params {
		b.WriteByte(' ')
		b.WriteString(p)
	}
	if trailing != "" || force {
		b.WriteString(" :")
		b.WriteString(trailing)
	}
	return b.String()
}

// Nick extracts the sender from a user!user@host prefix. A prefix with
// no '!' is returned as-is (server prefixes).
func Nick(prefix string) string {
	if excl := strings.IndexByte(prefix, '!'); excl != -1 {
		return prefix[:excl]
	}
	return prefix
}
