package ports

import "context"

// APIPort wraps the Helix moderation endpoints invoked with the acquired
// credential. Calls are single-attempt; retry policy belongs to callers.
type APIPort interface {
	SetCredential(cred Credential)
	GetChannelID(ctx context.Context, login string) (string, error)
	BanUser(ctx context.Context, broadcasterID, userID, reason string) error
	TimeoutUser(ctx context.Context, broadcasterID, userID string, durationSecs int, reason string) error
	UnbanUser(ctx context.Context, broadcasterID, userID string) error
	DeleteChatMessage(ctx context.Context, broadcasterID, messageID string) error
}
