package app

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/net/proxy"

	router "github.com/miwidot/twitchmod/internal/app/adapters/http"
	"github.com/miwidot/twitchmod/internal/app/adapters/metrics"
	"github.com/miwidot/twitchmod/internal/app/adapters/platform/twitch/api"
	"github.com/miwidot/twitchmod/internal/app/adapters/platform/twitch/auth"
	"github.com/miwidot/twitchmod/internal/app/adapters/platform/twitch/chat"
	"github.com/miwidot/twitchmod/internal/app/domain/membership"
	"github.com/miwidot/twitchmod/internal/app/infrastructure/config"
	"github.com/miwidot/twitchmod/internal/app/ports"
	"github.com/miwidot/twitchmod/pkg/logger"
)

const configPath = "config.json"

func New() error {
	client := &http.Client{
		Timeout:   10 * time.Second,
		Transport: http.DefaultTransport,
	}
	log := logger.New("logs/twitchmod.log")

	manager, err := config.New(configPath)
	if err != nil {
		log.Fatal("Error loading config", err)
	}

	cfg := manager.Get()
	if cfg.Proxy != nil && cfg.Proxy.Address != "" && cfg.Proxy.Port != 0 {
		dialer, err := proxy.SOCKS5("tcp", fmt.Sprintf("%s:%d", cfg.Proxy.Address, cfg.Proxy.Port), nil, proxy.Direct)
		if err != nil {
			return err
		}

		client.Transport = &http.Transport{
			DialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
				return dialer.Dial(network, addr)
			},
		}
	}

	log.SetLogLevel(cfg.App.LogLevel)
	gin.SetMode(cfg.App.GinMode)

	events := make(chan ports.Event, 256)

	tracker := membership.New()
	session := chat.New(log, manager, events)
	helix := api.New(log, manager, client)
	flow := auth.New(log, manager, client, events)

	go runEventPump(log, manager, events, tracker, session, helix, flow)

	if err := flow.Start(context.Background(), cfg.OAuth.Scopes); err != nil {
		log.Fatal("Error starting device authorization", err)
	}

	r := router.NewRouter(log, manager, session, tracker, helix)
	go func() {
		if err := r.Run(); err != nil {
			log.Fatal("Error running HTTP server", err)
		}
	}()

	return nil
}

func runEventPump(log logger.Logger, manager *config.Manager, events <-chan ports.Event, tracker *membership.Tracker, session ports.ChatPort, helix ports.APIPort, flow ports.AuthPort) {
	cfg := manager.Get()

	roomLogs := make(map[string]logger.Logger)
	roomLog := func(room string) logger.Logger {
		if l, ok := roomLogs[room]; ok {
			return l
		}
		l := logger.NewPrefixedLogger(log, room)
		roomLogs[room] = l
		return l
	}

	for ev := range events {
		switch e := ev.(type) {
		case ports.DeviceCodeReady:
			log.Info("Authorize this client in a browser",
				slog.String("url", e.VerificationURI),
				slog.String("code", e.UserCode),
			)

		case ports.AuthenticationSucceeded:
			cred, ok := flow.Credential()
			if !ok {
				log.Error("Authentication succeeded without a credential", nil)
				continue
			}
			helix.SetCredential(cred)

			log.Info("Authenticated", slog.String("username", e.Username))
			if err := session.Open(cred); err != nil {
				log.Error("Error opening chat session", err)
			}

		case ports.AuthenticationFailed:
			log.Error("Device authorization failed", nil, slog.String("reason", e.Reason))

		case ports.ConnectFailed:
			log.Error("Error connecting to chat", e.Err)

		case ports.SessionReady:
			log.Info("Chat session ready", slog.Int("channels", len(cfg.App.Channels)))
			for _, channel := range cfg.App.Channels {
				if err := session.JoinRoom(channel); err != nil {
					log.Error("Error joining channel", err, slog.String("channel", channel))
				}
			}

		case ports.SessionClosed:
			log.Info("Chat session closed")

		case ports.ChatMessage:
			roomLog(e.Room).Debug("Chat message",
				slog.String("sender", e.Sender),
				slog.String("text", e.Text),
			)

		case ports.UserJoined:
			tracker.Apply(e)
			metrics.RoomMembers.With(prometheus.Labels{"room": e.Room}).Set(float64(tracker.Count(e.Room)))

		case ports.UserParted:
			tracker.Apply(e)
			metrics.RoomMembers.With(prometheus.Labels{"room": e.Room}).Set(float64(tracker.Count(e.Room)))

		case ports.RoomCleared:
			tracker.Apply(e)
			metrics.RoomMembers.With(prometheus.Labels{"room": e.Room}).Set(float64(tracker.Count(e.Room)))
			roomLog(e.Room).Info("Room chat cleared")

		case ports.UserBanned:
			roomLog(e.Room).Info("User banned or timed out", slog.String("user", e.User))

		case ports.MessageDeleted:
			roomLog(e.Room).Info("Message deleted", slog.String("messageID", e.MessageID))
		}
	}
}
