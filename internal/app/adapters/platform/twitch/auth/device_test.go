package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/miwidot/twitchmod/internal/app/infrastructure/config"
	"github.com/miwidot/twitchmod/internal/app/ports"
	"github.com/miwidot/twitchmod/pkg/logger"
)

// fakeIDServer scripts the token endpoint poll responses in order.
type fakeIDServer struct {
	mu          sync.Mutex
	pollBodies  []string // JSON per poll, "OK" means issue the token
	polls       int
	validations int
}

func (f *fakeIDServer) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/device", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, r.ParseForm())
		require.NotEmpty(t, r.Form.Get("client_id"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"device_code":"dev123","user_code":"ABCD1234","verification_uri":"https://www.twitch.tv/activate","expires_in":1800,"interval":0}`))
	})

	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		require.Equal(t, "dev123", r.Form.Get("device_code"))
		require.Equal(t, deviceGrantType, r.Form.Get("grant_type"))

		f.mu.Lock()
		idx := f.polls
		f.polls++
		f.mu.Unlock()

		require.Less(t, idx, len(f.pollBodies), "more polls than scripted")
		body := f.pollBodies[idx]

		w.Header().Set("Content-Type", "application/json")
		if body == "OK" {
			_, _ = w.Write([]byte(`{"access_token":"tok123","refresh_token":"ref123","expires_in":14400}`))
			return
		}
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(body))
	})

	mux.HandleFunc("/validate", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "OAuth tok123", r.Header.Get("Authorization"))

		f.mu.Lock()
		f.validations++
		f.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"client_id":"client123","login":"alice","scopes":["chat:read","chat:edit"],"user_id":"42","expires_in":14400}`))
	})

	return mux
}

func (f *fakeIDServer) pollCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.polls
}

func (f *fakeIDServer) validationCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.validations
}

func newTestAuth(t *testing.T, f *fakeIDServer) (*Auth, chan ports.Event) {
	t.Helper()

	srv := httptest.NewServer(f.handler(t))
	t.Cleanup(srv.Close)

	manager, err := config.New(filepath.Join(t.TempDir(), "config.json"))
	require.NoError(t, err)
	require.NoError(t, manager.Update(func(cfg *config.Config) {
		cfg.OAuth.ClientID = "client123"
		cfg.OAuth.DeviceCodeURL = srv.URL + "/device"
		cfg.OAuth.TokenURL = srv.URL + "/token"
		cfg.OAuth.ValidateURL = srv.URL + "/validate"
	}))

	log := logger.New(filepath.Join(t.TempDir(), "test.log"))
	events := make(chan ports.Event, 64)

	a := New(log, manager, srv.Client(), events)
	a.minInterval = 0 // poll immediately so the scripted sequences run fast
	return a, events
}

func expectEvent(t *testing.T, events chan ports.Event) ports.Event {
	t.Helper()
	select {
	case ev := <-events:
		return ev
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for an event")
		return nil
	}
}

func TestDeviceFlowHappyPathWithSlowDown(t *testing.T) {
	f := &fakeIDServer{pollBodies: []string{
		`{"status":400,"message":"authorization_pending"}`,
		`{"status":400,"message":"authorization_pending"}`,
		`{"status":400,"message":"slow_down"}`,
		"OK",
	}}
	a, events := newTestAuth(t, f)

	require.NoError(t, a.Start(context.Background(), []string{"chat:read", "chat:edit"}))

	ready, ok := expectEvent(t, events).(ports.DeviceCodeReady)
	require.True(t, ok)
	assert.Equal(t, "ABCD1234", ready.UserCode)
	assert.Equal(t, "https://www.twitch.tv/activate", ready.VerificationURI)

	succeeded, ok := expectEvent(t, events).(ports.AuthenticationSucceeded)
	require.True(t, ok)
	assert.Equal(t, "alice", succeeded.Username)

	assert.Equal(t, 4, f.pollCount(), "exactly one poll per scripted response")
	assert.Equal(t, 1, f.validationCount(), "success only after the validation call")

	a.mu.Lock()
	interval := a.interval
	a.mu.Unlock()
	assert.Equal(t, slowDownStep, interval, "slow_down grew the interval by one step")

	assert.Equal(t, ports.FlowAuthenticated, a.State())
	cred, ok := a.Credential()
	require.True(t, ok)
	assert.Equal(t, "tok123", cred.AccessToken)
	assert.Equal(t, "ref123", cred.RefreshToken)
	assert.Equal(t, "42", cred.UserID)
	assert.Equal(t, "alice", cred.Username)
	assert.Equal(t, []string{"chat:read", "chat:edit"}, cred.Scopes)
}

func TestDeviceFlowDenied(t *testing.T) {
	f := &fakeIDServer{pollBodies: []string{
		`{"status":400,"message":"authorization_pending"}`,
		`{"status":400,"message":"access_denied"}`,
	}}
	a, events := newTestAuth(t, f)

	require.NoError(t, a.Start(context.Background(), nil))
	expectEvent(t, events) // DeviceCodeReady

	failed, ok := expectEvent(t, events).(ports.AuthenticationFailed)
	require.True(t, ok)
	assert.Equal(t, ReasonDenied, failed.Reason)

	assert.Equal(t, ports.FlowFailed, a.State())
	assert.Equal(t, ReasonDenied, a.FailureReason())
	assert.Equal(t, 2, f.pollCount(), "polling stops after the denial")

	_, ok = a.Credential()
	assert.False(t, ok)
}

func TestDeviceFlowExpired(t *testing.T) {
	f := &fakeIDServer{pollBodies: []string{
		`{"status":400,"message":"expired_token"}`,
	}}
	a, events := newTestAuth(t, f)

	require.NoError(t, a.Start(context.Background(), nil))
	expectEvent(t, events) // DeviceCodeReady

	failed := expectEvent(t, events).(ports.AuthenticationFailed)
	assert.Equal(t, ReasonExpired, failed.Reason)
	assert.Equal(t, 1, f.pollCount())
}

func TestDeviceFlowUnexpectedError(t *testing.T) {
	f := &fakeIDServer{pollBodies: []string{
		`{"status":400,"message":"invalid device code"}`,
	}}
	a, events := newTestAuth(t, f)

	require.NoError(t, a.Start(context.Background(), nil))
	expectEvent(t, events) // DeviceCodeReady

	failed := expectEvent(t, events).(ports.AuthenticationFailed)
	assert.Equal(t, ReasonUnexpectedResponse, failed.Reason)
}

func TestDeviceFlowCancel(t *testing.T) {
	// a long server interval keeps the first poll pending forever
	f := &fakeIDServer{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"device_code":"dev123","user_code":"ABCD1234","verification_uri":"https://www.twitch.tv/activate","expires_in":1800,"interval":3600}`))
	}))
	t.Cleanup(srv.Close)

	manager, err := config.New(filepath.Join(t.TempDir(), "config.json"))
	require.NoError(t, err)
	require.NoError(t, manager.Update(func(cfg *config.Config) {
		cfg.OAuth.ClientID = "client123"
		cfg.OAuth.DeviceCodeURL = srv.URL
		cfg.OAuth.TokenURL = srv.URL + "/token"
		cfg.OAuth.ValidateURL = srv.URL + "/validate"
	}))

	log := logger.New(filepath.Join(t.TempDir(), "test.log"))
	events := make(chan ports.Event, 64)
	a := New(log, manager, srv.Client(), events)

	require.NoError(t, a.Start(context.Background(), nil))
	expectEvent(t, events) // DeviceCodeReady

	a.Cancel()

	failed := expectEvent(t, events).(ports.AuthenticationFailed)
	assert.Equal(t, ReasonCancelled, failed.Reason)
	assert.Equal(t, ports.FlowFailed, a.State())
	assert.Equal(t, 0, f.pollCount(), "pending timer cancelled before any poll")
}

func TestZeroServerIntervalIsFloored(t *testing.T) {
	f := &fakeIDServer{}
	a, events := newTestAuth(t, f)
	a.minInterval = defaultPollInterval

	require.NoError(t, a.Start(context.Background(), nil))
	expectEvent(t, events) // DeviceCodeReady

	a.mu.Lock()
	interval := a.interval
	a.mu.Unlock()
	assert.Equal(t, defaultPollInterval, interval, "interval:0 from the server must not mean hot polling")

	a.Cancel()
	expectEvent(t, events) // AuthenticationFailed
	assert.Equal(t, 0, f.pollCount(), "first poll waits out the floored interval")
}

func TestCancelDuringValidateStaysFailed(t *testing.T) {
	validateStarted := make(chan struct{})
	releaseValidate := make(chan struct{})
	validateDone := make(chan struct{})
	var startedOnce sync.Once

	mux := http.NewServeMux()
	mux.HandleFunc("/device", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"device_code":"dev123","user_code":"ABCD1234","verification_uri":"https://www.twitch.tv/activate","expires_in":1800,"interval":0}`))
	})
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"tok123","refresh_token":"ref123","expires_in":14400}`))
	})
	mux.HandleFunc("/validate", func(w http.ResponseWriter, r *http.Request) {
		startedOnce.Do(func() { close(validateStarted) })
		<-releaseValidate
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"client_id":"client123","login":"alice","scopes":[],"user_id":"42","expires_in":14400}`))
		close(validateDone)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	manager, err := config.New(filepath.Join(t.TempDir(), "config.json"))
	require.NoError(t, err)
	require.NoError(t, manager.Update(func(cfg *config.Config) {
		cfg.OAuth.ClientID = "client123"
		cfg.OAuth.DeviceCodeURL = srv.URL + "/device"
		cfg.OAuth.TokenURL = srv.URL + "/token"
		cfg.OAuth.ValidateURL = srv.URL + "/validate"
	}))

	log := logger.New(filepath.Join(t.TempDir(), "test.log"))
	events := make(chan ports.Event, 64)
	a := New(log, manager, srv.Client(), events)
	a.minInterval = 0

	require.NoError(t, a.Start(context.Background(), nil))
	expectEvent(t, events) // DeviceCodeReady

	select {
	case <-validateStarted:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for the validate call")
	}

	a.Cancel()
	failed := expectEvent(t, events).(ports.AuthenticationFailed)
	assert.Equal(t, ReasonCancelled, failed.Reason)

	// let the in-flight validate finish; it must not resurrect the attempt
	close(releaseValidate)
	select {
	case <-validateDone:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for the validate response")
	}

	assert.Equal(t, ports.FlowFailed, a.State())
	_, ok := a.Credential()
	assert.False(t, ok, "a cancelled attempt must not hand off a credential")
}

func TestStartRejectedWhileRunning(t *testing.T) {
	f := &fakeIDServer{pollBodies: []string{
		`{"status":400,"message":"authorization_pending"}`,
		`{"status":400,"message":"slow_down"}`,
		`{"status":400,"message":"authorization_pending"}`,
		"OK",
	}}
	a, events := newTestAuth(t, f)

	require.NoError(t, a.Start(context.Background(), nil))
	assert.ErrorIs(t, a.Start(context.Background(), nil), ErrFlowInProgress)

	expectEvent(t, events) // DeviceCodeReady
	expectEvent(t, events) // AuthenticationSucceeded

	// a finished flow can be restarted only after Failed; Authenticated
	// also refuses another attempt
	assert.ErrorIs(t, a.Start(context.Background(), nil), ErrFlowInProgress)
}

func TestDeviceCodeRequestFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	t.Cleanup(srv.Close)

	manager, err := config.New(filepath.Join(t.TempDir(), "config.json"))
	require.NoError(t, err)
	require.NoError(t, manager.Update(func(cfg *config.Config) {
		cfg.OAuth.ClientID = "client123"
		cfg.OAuth.DeviceCodeURL = srv.URL
	}))

	log := logger.New(filepath.Join(t.TempDir(), "test.log"))
	events := make(chan ports.Event, 64)
	a := New(log, manager, srv.Client(), events)

	require.Error(t, a.Start(context.Background(), nil))

	failed := expectEvent(t, events).(ports.AuthenticationFailed)
	assert.Equal(t, ReasonDeviceCodeRequestFailed, failed.Reason)
	assert.Equal(t, ports.FlowFailed, a.State())
}
