package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"

	"github.com/miwidot/twitchmod/internal/app/infrastructure/config"
	"github.com/miwidot/twitchmod/internal/app/infrastructure/storage"
	"github.com/miwidot/twitchmod/internal/app/ports"
	"github.com/miwidot/twitchmod/pkg/logger"
)

type Helix struct {
	log    logger.Logger
	cfg    *config.Config
	client *http.Client

	mu   sync.RWMutex
	cred ports.Credential
	set  bool

	channelIDs *storage.Cache[string]
}

func New(log logger.Logger, manager *config.Manager, client *http.Client) *Helix {
	cfg := manager.Get()

	return &Helix{
		log:    log,
		cfg:    cfg,
		client: client,
		channelIDs: storage.NewCache[string](
			64,
			cfg.Helix.ChannelIDTTL,
			cfg.Helix.CacheFilePath,
			cfg.Helix.ChannelIDTTL/2,
		),
	}
}

func (h *Helix) SetCredential(cred ports.Credential) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.cred = cred
	h.set = true
}

func (h *Helix) credential() (ports.Credential, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if !h.set {
		return ports.Credential{}, ErrNoCredential
	}
	return h.cred, nil
}

func (h *Helix) Close() {
	h.channelIDs.Close()
}

type helixRequest struct {
	Method string
	URL    string
	Body   io.Reader
}

// doRequest performs a single attempt against the Helix API. Callers decide
// whether a failed moderation call is worth repeating.
func (h *Helix) doRequest(ctx context.Context, reqData helixRequest, target interface{}) error {
	cred, err := h.credential()
	if err != nil {
		return err
	}

	h.log.Trace("Preparing Helix request",
		slog.String("method", reqData.Method),
		slog.String("url", reqData.URL),
	)

	req, err := http.NewRequestWithContext(ctx, reqData.Method, reqData.URL, reqData.Body)
	if err != nil {
		h.log.Error("Failed to create HTTP request", err, slog.String("method", reqData.Method), slog.String("url", reqData.URL))
		return err
	}

	req.Header.Set("Authorization", "Bearer "+cred.AccessToken)
	req.Header.Set("Client-Id", h.cfg.OAuth.ClientID)
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.client.Do(req)
	if err != nil {
		h.log.Error("HTTP request failed", err, slog.String("url", reqData.URL))
		return err
	}

	raw, err := io.ReadAll(resp.Body)
	if cerr := resp.Body.Close(); cerr != nil {
		h.log.Error("Failed to close response body", cerr)
	}
	if err != nil {
		h.log.Error("Failed to read response body", err, slog.Int("status", resp.StatusCode), slog.String("url", reqData.URL))
		return err
	}

	switch resp.StatusCode {
	case http.StatusOK, http.StatusNoContent:
		if target == nil {
			return nil
		}
		if err := json.Unmarshal(raw, target); err != nil {
			h.log.Error("Failed to decode response JSON", err, slog.Int("status", resp.StatusCode), slog.String("body", string(raw)))
			return err
		}
		return nil
	default:
		err := statusError(resp.StatusCode, raw)
		h.log.Error("Helix API returned an error", err, slog.Int("status", resp.StatusCode), slog.String("url", reqData.URL))
		return err
	}
}

func statusError(status int, raw []byte) error {
	var apiErr helixAPIError
	msg := string(raw)
	if err := json.Unmarshal(raw, &apiErr); err == nil && apiErr.Message != "" {
		msg = apiErr.Message
	}

	switch status {
	case http.StatusBadRequest:
		return fmt.Errorf("%w: %s", ErrBadRequest, msg)
	case http.StatusUnauthorized:
		return fmt.Errorf("%w: %s", ErrUnauthorized, msg)
	case http.StatusForbidden:
		return fmt.Errorf("%w: %s", ErrForbidden, msg)
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", ErrNotFound, msg)
	case http.StatusTooManyRequests:
		return fmt.Errorf("%w: %s", ErrRateLimited, msg)
	default:
		return fmt.Errorf("helix status %d: %s", status, msg)
	}
}
