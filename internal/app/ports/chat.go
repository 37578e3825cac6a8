package ports

type SessionState int32

const (
	StateDisconnected SessionState = iota
	StateConnecting
	StateAuthenticating
	StateReady
	StateReconnecting
	StateClosed
)

func (s SessionState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateAuthenticating:
		return "authenticating"
	case StateReady:
		return "ready"
	case StateReconnecting:
		return "reconnecting"
	case StateClosed:
		return "closed"
	}
	return "unknown"
}

// ChatPort is the command surface of the session state machine. Commands
// other than Open and Close reject with a not-ready error until the
// welcome reply has been received.
type ChatPort interface {
	Open(cred Credential) error
	JoinRoom(room string) error
	LeaveRoom(room string) error
	SendChat(room, text string) error
	BeginReconnect()
	State() SessionState
	Close() error
}
