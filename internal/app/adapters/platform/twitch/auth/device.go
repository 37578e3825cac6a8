package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/miwidot/twitchmod/internal/app/adapters/metrics"
	"github.com/miwidot/twitchmod/internal/app/infrastructure/config"
	"github.com/miwidot/twitchmod/internal/app/ports"
	"github.com/miwidot/twitchmod/pkg/logger"
)

const (
	deviceGrantType = "urn:ietf:params:oauth:grant-type:device_code"

	// slowDownStep is how much the poll interval grows on slow_down.
	// The interval never decreases; backoff is server-directed.
	slowDownStep = time.Second

	// defaultPollInterval floors the poll cadence when the device code
	// response omits or zeroes the interval field.
	defaultPollInterval = 5 * time.Second
)

// Terminal failure reasons for one flow attempt.
const (
	ReasonDeviceCodeRequestFailed = "device_code_request_failed"
	ReasonExpired                 = "expired"
	ReasonDenied                  = "denied"
	ReasonUnexpectedResponse      = "unexpected_response"
	ReasonValidationFailed        = "validation_failed"
	ReasonCancelled               = "cancelled"
)

var ErrFlowInProgress = errors.New("device flow already in progress")

// Auth runs the device authorization grant: request a device code, poll
// the token endpoint on a cancellable timer, validate the token, hand
// off the credential. Failed is terminal per attempt; the caller starts
// a new attempt.
type Auth struct {
	log    logger.Logger
	cfg    *config.Config
	client *http.Client
	events chan<- ports.Event

	minInterval time.Duration

	mu         sync.Mutex
	state      ports.DeviceFlowState
	reason     string
	deviceCode string
	interval   time.Duration
	stop       chan struct{}
	cred       ports.Credential
}

func New(log logger.Logger, manager *config.Manager, client *http.Client, events chan<- ports.Event) *Auth {
	return &Auth{
		log:         log,
		cfg:         manager.Get(),
		client:      client,
		events:      events,
		state:       ports.FlowIdle,
		minInterval: defaultPollInterval,
	}
}

func (a *Auth) State() ports.DeviceFlowState {
	a.mu.Lock()
	defer a.mu.Unlock()

	return a.state
}

func (a *Auth) FailureReason() string {
	a.mu.Lock()
	defer a.mu.Unlock()

	return a.reason
}

// Credential returns the acquired credential by value once the flow has
// authenticated.
func (a *Auth) Credential() (ports.Credential, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.state != ports.FlowAuthenticated {
		return ports.Credential{}, false
	}
	return a.cred, true
}

// Start begins one flow attempt. It issues the device code request
// synchronously, emits DeviceCodeReady and launches the poll loop.
func (a *Auth) Start(ctx context.Context, scopes []string) error {
	a.mu.Lock()
	if a.state != ports.FlowIdle && a.state != ports.FlowFailed {
		a.mu.Unlock()
		return ErrFlowInProgress
	}
	a.state = ports.FlowCodeRequested
	a.reason = ""
	a.stop = make(chan struct{})
	stop := a.stop
	a.mu.Unlock()

	code, err := a.requestDeviceCode(ctx, scopes)
	if err != nil {
		a.fail(ReasonDeviceCodeRequestFailed, err)
		return err
	}

	interval := time.Duration(code.Interval) * time.Second
	if interval < a.minInterval {
		interval = a.minInterval
	}

	a.mu.Lock()
	a.deviceCode = code.DeviceCode
	a.interval = interval
	a.state = ports.FlowAwaitingAuthorization
	a.mu.Unlock()

	a.log.Info("Device code ready",
		slog.String("user_code", code.UserCode),
		slog.String("verification_uri", code.VerificationURI),
	)
	a.emit(ports.DeviceCodeReady{UserCode: code.UserCode, VerificationURI: code.VerificationURI})

	go a.pollLoop(ctx, stop)
	return nil
}

// Cancel stops a pending poll timer and fails the attempt.
func (a *Auth) Cancel() {
	a.mu.Lock()
	switch a.state {
	case ports.FlowCodeRequested, ports.FlowAwaitingAuthorization, ports.FlowValidating:
	default:
		a.mu.Unlock()
		return
	}
	if a.stop != nil {
		close(a.stop)
		a.stop = nil
	}
	a.mu.Unlock()

	a.fail(ReasonCancelled, nil)
}

// pollLoop schedules one poll at a time: the next timer is armed only
// after the previous response has been handled, so polls never overlap.
func (a *Auth) pollLoop(ctx context.Context, stop chan struct{}) {
	for {
		a.mu.Lock()
		interval := a.interval
		a.mu.Unlock()

		timer := time.NewTimer(interval)
		select {
		case <-stop:
			timer.Stop()
			return
		case <-ctx.Done():
			timer.Stop()
			a.fail(ReasonCancelled, ctx.Err())
			return
		case <-timer.C:
		}

		if done := a.poll(ctx); done {
			return
		}
	}
}

// poll issues one token request. It returns true when the flow reached
// a terminal state (authenticated or failed).
func (a *Auth) poll(ctx context.Context) bool {
	metrics.DeviceFlowPolls.Inc()

	a.mu.Lock()
	deviceCode := a.deviceCode
	a.mu.Unlock()

	data := url.Values{}
	data.Set("client_id", a.cfg.OAuth.ClientID)
	data.Set("device_code", deviceCode)
	data.Set("grant_type", deviceGrantType)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.cfg.OAuth.TokenURL, strings.NewReader(data.Encode()))
	if err != nil {
		a.fail(ReasonUnexpectedResponse, err)
		return true
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := a.client.Do(req)
	if err != nil {
		a.fail(ReasonUnexpectedResponse, err)
		return true
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		var token tokenResponse
		if err := json.NewDecoder(resp.Body).Decode(&token); err != nil || token.AccessToken == "" {
			a.fail(ReasonUnexpectedResponse, err)
			return true
		}
		a.validate(ctx, token)
		return true
	case http.StatusBadRequest:
		return a.handlePollError(resp.Body)
	default:
		raw, _ := io.ReadAll(resp.Body)
		a.fail(ReasonUnexpectedResponse, fmt.Errorf("token poll status %d: %s", resp.StatusCode, string(raw)))
		return true
	}
}

func (a *Auth) handlePollError(body io.Reader) bool {
	var pollErr pollErrorResponse
	if err := json.NewDecoder(body).Decode(&pollErr); err != nil {
		a.fail(ReasonUnexpectedResponse, err)
		return true
	}

	switch pollErr.reason() {
	case "authorization_pending":
		// user has not approved yet; keep the current interval
		return false
	case "slow_down":
		a.mu.Lock()
		a.interval += slowDownStep
		a.mu.Unlock()
		a.log.Debug("Authorization server asked to slow down")
		return false
	case "expired_token":
		a.fail(ReasonExpired, nil)
		return true
	case "access_denied":
		a.fail(ReasonDenied, nil)
		return true
	default:
		a.fail(ReasonUnexpectedResponse, fmt.Errorf("token poll error %q", pollErr.reason()))
		return true
	}
}

func (a *Auth) validate(ctx context.Context, token tokenResponse) {
	a.mu.Lock()
	if a.state != ports.FlowAwaitingAuthorization {
		// Cancel already ended the attempt.
		a.mu.Unlock()
		return
	}
	a.state = ports.FlowValidating
	a.mu.Unlock()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.cfg.OAuth.ValidateURL, nil)
	if err != nil {
		a.fail(ReasonValidationFailed, err)
		return
	}
	req.Header.Set("Authorization", "OAuth "+token.AccessToken)

	resp, err := a.client.Do(req)
	if err != nil {
		a.fail(ReasonValidationFailed, err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		a.fail(ReasonValidationFailed, fmt.Errorf("validate status %d: %s", resp.StatusCode, string(raw)))
		return
	}

	var v validateResponse
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		a.fail(ReasonValidationFailed, err)
		return
	}

	a.mu.Lock()
	if a.state != ports.FlowValidating {
		// Cancel won the race while the validate call was in flight;
		// the attempt stays failed and the credential is discarded.
		a.mu.Unlock()
		return
	}
	a.cred = ports.Credential{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		UserID:       v.UserID,
		Username:     v.Login,
		Scopes:       v.Scopes,
	}
	a.state = ports.FlowAuthenticated
	a.mu.Unlock()

	a.log.Info("Authenticated", slog.String("username", v.Login))
	a.emit(ports.AuthenticationSucceeded{Username: v.Login})
}

func (a *Auth) requestDeviceCode(ctx context.Context, scopes []string) (*deviceCodeResponse, error) {
	data := url.Values{}
	data.Set("client_id", a.cfg.OAuth.ClientID)
	data.Set("scopes", strings.Join(scopes, " "))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.cfg.OAuth.DeviceCodeURL, strings.NewReader(data.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("device code request status %d: %s", resp.StatusCode, string(raw))
	}

	var code deviceCodeResponse
	if err := json.NewDecoder(resp.Body).Decode(&code); err != nil {
		return nil, err
	}
	if code.DeviceCode == "" {
		return nil, errors.New("device code response without a device_code")
	}

	return &code, nil
}

func (a *Auth) fail(reason string, err error) {
	a.mu.Lock()
	if a.state == ports.FlowFailed || a.state == ports.FlowAuthenticated {
		// the attempt already reached a terminal state; first one wins
		a.mu.Unlock()
		return
	}
	a.state = ports.FlowFailed
	a.reason = reason
	a.mu.Unlock()

	metrics.AuthFailures.With(prometheus.Labels{"reason": reason}).Inc()
	a.log.Error("Device flow failed", err, slog.String("reason", reason))
	a.emit(ports.AuthenticationFailed{Reason: reason})
}

func (a *Auth) emit(ev ports.Event) {
	metrics.EventsEmitted.WithLabelValues(ports.Name(ev)).Inc()
	a.events <- ev
}
