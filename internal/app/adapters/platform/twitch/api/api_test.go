package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/miwidot/twitchmod/internal/app/infrastructure/config"
	"github.com/miwidot/twitchmod/internal/app/ports"
	"github.com/miwidot/twitchmod/pkg/logger"
)

type fakeHelix struct {
	mu       sync.Mutex
	requests []*http.Request
	bodies   []map[string]any

	usersStatus int
	usersBody   string
	modStatus   int
	modBody     string
}

func (f *fakeHelix) handler(t *testing.T) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		if r.Body != nil {
			_ = json.NewDecoder(r.Body).Decode(&body)
		}

		f.mu.Lock()
		f.requests = append(f.requests, r.Clone(context.Background()))
		f.bodies = append(f.bodies, body)
		f.mu.Unlock()

		require.Equal(t, "Bearer tok123", r.Header.Get("Authorization"))
		require.Equal(t, "client123", r.Header.Get("Client-Id"))

		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/users":
			if f.usersStatus != 0 {
				w.WriteHeader(f.usersStatus)
			}
			_, _ = w.Write([]byte(f.usersBody))
		default:
			if f.modStatus != 0 {
				w.WriteHeader(f.modStatus)
			}
			_, _ = w.Write([]byte(f.modBody))
		}
	})
}

func (f *fakeHelix) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

func (f *fakeHelix) last() (*http.Request, map[string]any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[len(f.requests)-1], f.bodies[len(f.bodies)-1]
}

func newTestHelix(t *testing.T, f *fakeHelix) *Helix {
	t.Helper()

	srv := httptest.NewServer(f.handler(t))
	t.Cleanup(srv.Close)

	manager, err := config.New(filepath.Join(t.TempDir(), "config.json"))
	require.NoError(t, err)
	require.NoError(t, manager.Update(func(cfg *config.Config) {
		cfg.OAuth.ClientID = "client123"
		cfg.Helix.BaseURL = srv.URL
		cfg.Helix.CacheFilePath = ""
	}))

	log := logger.New(filepath.Join(t.TempDir(), "test.log"))

	h := New(log, manager, srv.Client())
	t.Cleanup(h.Close)

	h.SetCredential(ports.Credential{
		AccessToken: "tok123",
		UserID:      "100",
		Username:    "modbot",
	})
	return h
}

func TestGetChannelIDCachesLookups(t *testing.T) {
	f := &fakeHelix{usersBody: `{"data":[{"id":"42","login":"bob","display_name":"Bob"}]}`}
	h := newTestHelix(t, f)

	id, err := h.GetChannelID(context.Background(), "Bob")
	require.NoError(t, err)
	assert.Equal(t, "42", id)

	req, _ := f.last()
	assert.Equal(t, "bob", req.URL.Query().Get("login"))

	// second lookup, hash-prefixed and mixed case, comes from the cache
	id, err = h.GetChannelID(context.Background(), "#BOB")
	require.NoError(t, err)
	assert.Equal(t, "42", id)
	assert.Equal(t, 1, f.count())
}

func TestGetChannelIDUnknownUser(t *testing.T) {
	f := &fakeHelix{usersBody: `{"data":[]}`}
	h := newTestHelix(t, f)

	_, err := h.GetChannelID(context.Background(), "nobody")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestBanUser(t *testing.T) {
	f := &fakeHelix{modStatus: http.StatusOK, modBody: `{"data":[]}`}
	h := newTestHelix(t, f)

	require.NoError(t, h.BanUser(context.Background(), "42", "7", "spamming"))

	req, body := f.last()
	assert.Equal(t, http.MethodPost, req.Method)
	assert.Equal(t, "/moderation/bans", req.URL.Path)
	assert.Equal(t, "42", req.URL.Query().Get("broadcaster_id"))
	assert.Equal(t, "100", req.URL.Query().Get("moderator_id"))

	data := body["data"].(map[string]any)
	assert.Equal(t, "7", data["user_id"])
	assert.Equal(t, "spamming", data["reason"])
	assert.NotContains(t, data, "duration")
}

func TestTimeoutUser(t *testing.T) {
	f := &fakeHelix{modStatus: http.StatusOK, modBody: `{"data":[]}`}
	h := newTestHelix(t, f)

	require.NoError(t, h.TimeoutUser(context.Background(), "42", "7", 600, "calm down"))

	_, body := f.last()
	data := body["data"].(map[string]any)
	assert.Equal(t, float64(600), data["duration"])

	assert.ErrorIs(t, h.TimeoutUser(context.Background(), "42", "7", 0, ""), ErrBadRequest)
}

func TestUnbanUser(t *testing.T) {
	f := &fakeHelix{modStatus: http.StatusNoContent}
	h := newTestHelix(t, f)

	require.NoError(t, h.UnbanUser(context.Background(), "42", "7"))

	req, _ := f.last()
	assert.Equal(t, http.MethodDelete, req.Method)
	assert.Equal(t, "/moderation/bans", req.URL.Path)
	assert.Equal(t, "7", req.URL.Query().Get("user_id"))
}

func TestDeleteChatMessage(t *testing.T) {
	f := &fakeHelix{modStatus: http.StatusNoContent}
	h := newTestHelix(t, f)

	require.NoError(t, h.DeleteChatMessage(context.Background(), "42", "msg-1"))

	req, _ := f.last()
	assert.Equal(t, http.MethodDelete, req.Method)
	assert.Equal(t, "/moderation/chat", req.URL.Path)
	assert.Equal(t, "msg-1", req.URL.Query().Get("message_id"))
}

func TestStatusMapping(t *testing.T) {
	f := &fakeHelix{modStatus: http.StatusForbidden, modBody: `{"error":"Forbidden","status":403,"message":"missing scope"}`}
	h := newTestHelix(t, f)

	err := h.BanUser(context.Background(), "42", "7", "")
	assert.ErrorIs(t, err, ErrForbidden)
	assert.Contains(t, err.Error(), "missing scope")
}

func TestNoCredential(t *testing.T) {
	f := &fakeHelix{usersBody: `{"data":[]}`}

	srv := httptest.NewServer(f.handler(t))
	t.Cleanup(srv.Close)

	manager, err := config.New(filepath.Join(t.TempDir(), "config.json"))
	require.NoError(t, err)
	require.NoError(t, manager.Update(func(cfg *config.Config) {
		cfg.OAuth.ClientID = "client123"
		cfg.Helix.BaseURL = srv.URL
		cfg.Helix.CacheFilePath = ""
	}))

	h := New(logger.New(filepath.Join(t.TempDir(), "test.log")), manager, srv.Client())
	t.Cleanup(h.Close)

	_, err = h.GetChannelID(context.Background(), "bob")
	assert.ErrorIs(t, err, ErrNoCredential)
	assert.Equal(t, 0, f.count(), "no request without a credential")
}
