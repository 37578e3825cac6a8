package chat

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/miwidot/twitchmod/internal/app/adapters/metrics"
	"github.com/miwidot/twitchmod/internal/app/domain/irc"
	"github.com/miwidot/twitchmod/internal/app/infrastructure/config"
	"github.com/miwidot/twitchmod/internal/app/ports"
	"github.com/miwidot/twitchmod/pkg/logger"
)

var (
	ErrNotReady      = errors.New("session is not ready")
	ErrClosed        = errors.New("session is closed")
	ErrAlreadyOpen   = errors.New("session is already open")
	ErrSendQueueFull = errors.New("send queue is full")
)

// conn bundles everything scoped to one transport connection.
type conn struct {
	tr     Transport
	out    chan string
	done   chan struct{}
	ctx    context.Context
	cancel context.CancelFunc
	once   sync.Once
}

// Chat owns the one protocol session per process: the transport handle,
// the outbound write queue and the session state. Inbound lines are
// handled one at a time by a single reader goroutine; outbound writes
// are funneled through a single writer draining the queue, except the
// keep-alive reply which is written inline from the reader path.
type Chat struct {
	log    logger.Logger
	cfg    *config.Config
	events chan<- ports.Event

	dial    func() Transport
	limiter *rate.Limiter

	mu    sync.Mutex // guards cn and state transitions
	cn    *conn
	state atomic.Int32

	wmu sync.Mutex // single-writer discipline on the transport
}

func New(log logger.Logger, manager *config.Manager, events chan<- ports.Event) *Chat {
	cfg := manager.Get()

	c := &Chat{
		log:    log,
		cfg:    cfg,
		events: events,
	}
	c.dial = func() Transport { return newTransport(cfg) }

	if cfg.IRC.Limiter.Requests > 0 {
		c.limiter = rate.NewLimiter(
			rate.Every(cfg.IRC.Limiter.Per/time.Duration(cfg.IRC.Limiter.Requests)),
			cfg.IRC.Limiter.Requests,
		)
	} else {
		c.limiter = rate.NewLimiter(rate.Inf, 1)
	}

	c.state.Store(int32(ports.StateDisconnected))
	return c
}

func (c *Chat) State() ports.SessionState {
	return ports.SessionState(c.state.Load())
}

func (c *Chat) setState(s ports.SessionState) {
	c.state.Store(int32(s))
	metrics.SessionState.Set(float64(s))
}

// Open dials the transport and runs the authentication handshake. On
// dial failure the session stays disconnected and ConnectFailed is
// emitted. The session does not reconnect on its own; the orchestrator
// calls Open again after a disconnect.
func (c *Chat) Open(cred ports.Credential) error {
	c.mu.Lock()
	switch c.State() {
	case ports.StateClosed:
		c.mu.Unlock()
		return ErrClosed
	case ports.StateDisconnected, ports.StateReconnecting:
	default:
		c.mu.Unlock()
		return ErrAlreadyOpen
	}
	c.setState(ports.StateConnecting)
	c.mu.Unlock()

	tr := c.dial()
	if err := tr.Dial(); err != nil {
		c.mu.Lock()
		if c.State() == ports.StateConnecting {
			c.setState(ports.StateDisconnected)
		}
		c.mu.Unlock()

		c.log.Error("Failed to connect to chat", err)
		c.emit(ports.ConnectFailed{Err: err})
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	cn := &conn{
		tr:     tr,
		out:    make(chan string, 128),
		done:   make(chan struct{}),
		ctx:    ctx,
		cancel: cancel,
	}

	c.mu.Lock()
	// Close or BeginReconnect may have landed while the dial was in
	// flight; they own the state now, so the fresh transport is dropped.
	if st := c.State(); st != ports.StateConnecting {
		c.mu.Unlock()
		cancel()
		_ = tr.Close()
		if st == ports.StateClosed {
			return ErrClosed
		}
		return ErrAlreadyOpen
	}
	c.cn = cn
	c.setState(ports.StateAuthenticating)
	c.mu.Unlock()

	// Handshake in strict order, ahead of anything the writer drains.
	c.write(cn, "PASS oauth:"+cred.AccessToken)
	c.write(cn, "NICK "+strings.ToLower(cred.Username))
	c.write(cn, "CAP REQ :"+strings.Join(c.cfg.IRC.Capabilities, " "))

	go c.readLoop(cn)
	go c.writeLoop(cn)

	return nil
}

func (c *Chat) readLoop(cn *conn) {
	for {
		line, err := cn.tr.ReadLine()
		if err != nil {
			c.teardown(cn)
			c.mu.Lock()
			if c.cn != cn {
				// Close or BeginReconnect already took over this
				// connection and owns the resulting state.
				c.mu.Unlock()
				return
			}
			c.cn = nil
			c.setState(ports.StateDisconnected)
			c.mu.Unlock()

			c.log.Warn("Chat connection lost", slog.String("error", err.Error()))
			c.emit(ports.SessionClosed{})
			return
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		// keep-alive: answered inline, never queued behind chat sends
		if strings.HasPrefix(line, "PING") {
			c.pong(cn, line)
			continue
		}

		c.handleLine(line)
	}
}

func (c *Chat) writeLoop(cn *conn) {
	for {
		select {
		case <-cn.done:
			return
		case line := <-cn.out:
			if err := c.limiter.Wait(cn.ctx); err != nil {
				return
			}
			c.write(cn, line)
		}
	}
}

func (c *Chat) pong(cn *conn, line string) {
	token := strings.TrimSpace(strings.TrimPrefix(line, "PING"))
	reply := "PONG"
	if token != "" {
		reply = "PONG " + token
	}
	c.write(cn, reply)
}

func (c *Chat) write(cn *conn, line string) {
	c.wmu.Lock()
	err := cn.tr.WriteLine(line)
	c.wmu.Unlock()

	if err != nil {
		c.log.Error("Failed to write line to chat", err)
		c.teardown(cn)
	}
}

func (c *Chat) enqueue(line string) error {
	c.mu.Lock()
	cn := c.cn
	c.mu.Unlock()

	if cn == nil {
		return ErrNotReady
	}

	select {
	case cn.out <- line:
		metrics.OutboundCommands.With(commandLabel(line)).Inc()
		return nil
	default:
		return ErrSendQueueFull
	}
}

func (c *Chat) JoinRoom(room string) error {
	if c.State() != ports.StateReady {
		return ErrNotReady
	}
	return c.enqueue(irc.Serialize("JOIN", []string{wireRoom(room)}, ""))
}

func (c *Chat) LeaveRoom(room string) error {
	if c.State() != ports.StateReady {
		return ErrNotReady
	}
	return c.enqueue(irc.Serialize("PART", []string{wireRoom(room)}, ""))
}

func (c *Chat) SendChat(room, text string) error {
	if c.State() != ports.StateReady {
		return ErrNotReady
	}
	return c.enqueue(irc.Serialize("PRIVMSG", []string{wireRoom(room)}, text))
}

// BeginReconnect tears down any live connection and marks the session
// as reconnecting. The orchestrator follows up with Open.
func (c *Chat) BeginReconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.State() == ports.StateClosed {
		return
	}
	if c.cn != nil {
		c.teardown(c.cn)
		c.cn = nil
	}
	c.setState(ports.StateReconnecting)
}

// Close is terminal; no further transitions happen after it.
func (c *Chat) Close() error {
	c.mu.Lock()
	if c.State() == ports.StateClosed {
		c.mu.Unlock()
		return nil
	}
	c.setState(ports.StateClosed)
	cn := c.cn
	c.cn = nil
	c.mu.Unlock()

	if cn != nil {
		c.teardown(cn)
	}
	c.emit(ports.SessionClosed{})
	return nil
}

func (c *Chat) teardown(cn *conn) {
	cn.once.Do(func() {
		cn.cancel()
		close(cn.done)
		_ = cn.tr.Close()
	})
}

func (c *Chat) emit(ev ports.Event) {
	metrics.EventsEmitted.WithLabelValues(ports.Name(ev)).Inc()
	c.events <- ev
}

// canonicalRoom is the membership/event key form: lower-case, marker
// stripped. wireRoom is the outbound form with the marker. Both sides
// use the same normalization so tracker keys always match.
func canonicalRoom(name string) string {
	return strings.TrimPrefix(strings.ToLower(name), "#")
}

func wireRoom(name string) string {
	name = strings.ToLower(name)
	if !strings.HasPrefix(name, "#") {
		name = "#" + name
	}
	return name
}

func commandLabel(line string) map[string]string {
	cmd := line
	if sp := strings.IndexByte(line, ' '); sp != -1 {
		cmd = line[:sp]
	}
	return map[string]string{"command": cmd}
}
