package ports

// Event is the single ordered stream the chat session and the auth flow
// publish to. Consumers switch on the concrete type.
type Event interface {
	isEvent()
}

type ConnectFailed struct {
	Err error
}

type AuthenticationSucceeded struct {
	Username string
}

type AuthenticationFailed struct {
	Reason string
}

type DeviceCodeReady struct {
	UserCode        string
	VerificationURI string
}

type SessionReady struct{}

type SessionClosed struct{}

type ChatMessage struct {
	Room      string
	Sender    string
	Text      string
	MessageID string
	Tags      map[string]string
}

type UserJoined struct {
	Room string
	User string
}

type UserParted struct {
	Room string
	User string
}

type UserBanned struct {
	Room string
	User string
}

type RoomCleared struct {
	Room string
}

// MessageDeleted carries the deleted message id when the wire provides
// one (target-msg-id tag); it is often empty.
type MessageDeleted struct {
	Room      string
	MessageID string
}

func (ConnectFailed) isEvent()           {}
func (AuthenticationSucceeded) isEvent() {}
func (AuthenticationFailed) isEvent()    {}
func (DeviceCodeReady) isEvent()         {}
func (SessionReady) isEvent()            {}
func (SessionClosed) isEvent()           {}
func (ChatMessage) isEvent()             {}
func (UserJoined) isEvent()              {}
func (UserParted) isEvent()              {}
func (UserBanned) isEvent()              {}
func (RoomCleared) isEvent()             {}
func (MessageDeleted) isEvent()          {}

// Name returns a stable label for metrics and logs.
func Name(ev Event) string {
	switch ev.(type) {
	case ConnectFailed:
		return "connect_failed"
	case AuthenticationSucceeded:
		return "authentication_succeeded"
	case AuthenticationFailed:
		return "authentication_failed"
	case DeviceCodeReady:
		return "device_code_ready"
	case SessionReady:
		return "session_ready"
	case SessionClosed:
		return "session_closed"
	case ChatMessage:
		return "chat_message"
	case UserJoined:
		return "user_joined"
	case UserParted:
		return "user_parted"
	case UserBanned:
		return "user_banned"
	case RoomCleared:
		return "room_cleared"
	case MessageDeleted:
		return "message_deleted"
	}
	return "unknown"
}
