package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
)

// BanUser permanently bans userID in the broadcaster's channel. The
// acquired credential acts as the moderator.
func (h *Helix) BanUser(ctx context.Context, broadcasterID, userID, reason string) error {
	return h.banRequest(ctx, broadcasterID, banUserData{UserID: userID, Reason: reason})
}

// TimeoutUser bans userID for durationSecs seconds.
func (h *Helix) TimeoutUser(ctx context.Context, broadcasterID, userID string, durationSecs int, reason string) error {
	if durationSecs <= 0 {
		return fmt.Errorf("%w: timeout duration must be positive", ErrBadRequest)
	}
	return h.banRequest(ctx, broadcasterID, banUserData{UserID: userID, Duration: durationSecs, Reason: reason})
}

func (h *Helix) banRequest(ctx context.Context, broadcasterID string, data banUserData) error {
	cred, err := h.credential()
	if err != nil {
		return err
	}
	if broadcasterID == "" || data.UserID == "" {
		return fmt.Errorf("%w: broadcasterID and userID are required", ErrBadRequest)
	}

	params := url.Values{}
	params.Set("broadcaster_id", broadcasterID)
	params.Set("moderator_id", cred.UserID)

	bodyBytes, err := json.Marshal(banUserRequest{Data: data})
	if err != nil {
		return err
	}

	return h.doRequest(ctx, helixRequest{
		Method: "POST",
		URL:    h.cfg.Helix.BaseURL + "/moderation/bans?" + params.Encode(),
		Body:   bytes.NewReader(bodyBytes),
	}, nil)
}

func (h *Helix) UnbanUser(ctx context.Context, broadcasterID, userID string) error {
	cred, err := h.credential()
	if err != nil {
		return err
	}
	if broadcasterID == "" || userID == "" {
		return fmt.Errorf("%w: broadcasterID and userID are required", ErrBadRequest)
	}

	params := url.Values{}
	params.Set("broadcaster_id", broadcasterID)
	params.Set("moderator_id", cred.UserID)
	params.Set("user_id", userID)

	return h.doRequest(ctx, helixRequest{
		Method: "DELETE",
		URL:    h.cfg.Helix.BaseURL + "/moderation/bans?" + params.Encode(),
	}, nil)
}

func (h *Helix) DeleteChatMessage(ctx context.Context, broadcasterID, messageID string) error {
	cred, err := h.credential()
	if err != nil {
		return err
	}
	if broadcasterID == "" || messageID == "" {
		return fmt.Errorf("%w: broadcasterID and messageID are required", ErrBadRequest)
	}

	params := url.Values{}
	params.Set("broadcaster_id", broadcasterID)
	params.Set("moderator_id", cred.UserID)
	params.Set("message_id", messageID)

	return h.doRequest(ctx, helixRequest{
		Method: "DELETE",
		URL:    h.cfg.Helix.BaseURL + "/moderation/chat?" + params.Encode(),
	}, nil)
}
