package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
)

// GetChannelID resolves a channel login to its numeric broadcaster ID.
// Results are cached with an access-based TTL; a cold lookup costs one
// /users call.
func (h *Helix) GetChannelID(ctx context.Context, login string) (string, error) {
	login = strings.ToLower(strings.TrimPrefix(login, "#"))
	if login == "" {
		return "", fmt.Errorf("%w: empty login", ErrBadRequest)
	}

	if id, ok := h.channelIDs.Get(login); ok {
		h.log.Trace("Channel ID cache hit", slog.String("login", login), slog.String("id", id))
		return id, nil
	}

	params := url.Values{}
	params.Set("login", login)

	var usersResp UsersResponse
	err := h.doRequest(ctx, helixRequest{
		Method: "GET",
		URL:    h.cfg.Helix.BaseURL + "/users?" + params.Encode(),
	}, &usersResp)
	if err != nil {
		return "", err
	}

	if len(usersResp.Data) == 0 {
		return "", fmt.Errorf("%w: user %s", ErrNotFound, login)
	}

	id := usersResp.Data[0].ID
	h.channelIDs.Set(login, id)

	h.log.Debug("Resolved channel ID", slog.String("login", login), slog.String("id", id))
	return id, nil
}
