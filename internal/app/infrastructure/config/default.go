package config

import "time"

func (m *Manager) GetDefault() *Config {
	return &Config{
		App: App{
			LogLevel:   "info",
			GinMode:    "release",
			ListenAddr: ":8080",
		},
		IRC: IRC{
			Transport:    "tcp",
			Address:      "irc.chat.twitch.tv:443",
			WebsocketURL: "wss://irc-ws.chat.twitch.tv:443",
			Capabilities: []string{
				"twitch.tv/membership",
				"twitch.tv/tags",
				"twitch.tv/commands",
			},
			Limiter: Limiter{
				Requests: 20,
				Per:      30 * time.Second,
			},
		},
		OAuth: OAuth{
			Scopes: []string{
				"chat:read",
				"chat:edit",
				"moderator:manage:banned_users",
				"moderator:manage:chat_messages",
			},
			DeviceCodeURL: "https://id.twitch.tv/oauth2/device",
			TokenURL:      "https://id.twitch.tv/oauth2/token",
			ValidateURL:   "https://id.twitch.tv/oauth2/validate",
		},
		Helix: Helix{
			BaseURL:       "https://api.twitch.tv/helix",
			ChannelIDTTL:  time.Hour,
			CacheFilePath: "cache/channels.json",
		},
	}
}
