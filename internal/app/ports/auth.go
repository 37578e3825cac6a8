package ports

import "context"

// Credential is handed off by value once the device flow completes.
// Consumers treat it as opaque; expiry tracking is left to the caller.
type Credential struct {
	AccessToken  string
	RefreshToken string
	UserID       string
	Username     string
	Scopes       []string
}

type DeviceFlowState int

const (
	FlowIdle DeviceFlowState = iota
	FlowCodeRequested
	FlowAwaitingAuthorization
	FlowValidating
	FlowAuthenticated
	FlowFailed
)

func (s DeviceFlowState) String() string {
	switch s {
	case FlowIdle:
		return "idle"
	case FlowCodeRequested:
		return "code_requested"
	case FlowAwaitingAuthorization:
		return "awaiting_authorization"
	case FlowValidating:
		return "validating"
	case FlowAuthenticated:
		return "authenticated"
	case FlowFailed:
		return "failed"
	}
	return "unknown"
}

type AuthPort interface {
	Start(ctx context.Context, scopes []string) error
	Cancel()
	State() DeviceFlowState
	FailureReason() string
	Credential() (Credential, bool)
}
