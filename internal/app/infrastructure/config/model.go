package config

import "time"

type Config struct {
	App   App    `json:"app"`
	Proxy *Proxy `json:"proxy"`
	IRC   IRC    `json:"irc"`
	OAuth OAuth  `json:"oauth"`
	Helix Helix  `json:"helix"`
}

type App struct {
	LogLevel   string   `json:"log_level"`
	GinMode    string   `json:"gin_mode"`
	ListenAddr string   `json:"listen_addr"`
	AuthToken  string   `json:"auth_token"`
	Channels   []string `json:"channels"`
}

type Proxy struct {
	Address string `json:"address"`
	Port    int    `json:"port"`
}

type IRC struct {
	// Transport selects how the session reaches the chat endpoint:
	// "tcp" (TLS socket) or "websocket".
	Transport    string   `json:"transport"`
	Address      string   `json:"address"`
	WebsocketURL string   `json:"websocket_url"`
	Capabilities []string `json:"capabilities"`
	Limiter      Limiter  `json:"limiter"`
}

type Limiter struct {
	Requests int           `json:"requests"`
	Per      time.Duration `json:"per"`
}

type OAuth struct {
	ClientID      string   `json:"client_id"`
	Scopes        []string `json:"scopes"`
	DeviceCodeURL string   `json:"device_code_url"`
	TokenURL      string   `json:"token_url"`
	ValidateURL   string   `json:"validate_url"`
}

type Helix struct {
	BaseURL       string        `json:"base_url"`
	ChannelIDTTL  time.Duration `json:"channel_id_ttl"`
	CacheFilePath string        `json:"cache_file_path"`
}
