package config

import (
	"errors"
	"fmt"
)

func (m *Manager) validate(cfg *Config) error {
	// app
	validLevels := map[string]bool{"trace": true, "debug": true, "info": true, "warn": true, "error": true}
	if cfg.App.LogLevel != "" && !validLevels[cfg.App.LogLevel] {
		return fmt.Errorf("app.log_level must be one of trace, debug, info, warn, error; got %s", cfg.App.LogLevel)
	}
	if cfg.App.ListenAddr == "" {
		return errors.New("app.listen_addr is required")
	}

	// irc
	if cfg.IRC.Transport != "tcp" && cfg.IRC.Transport != "websocket" {
		return fmt.Errorf("irc.transport must be 'tcp' or 'websocket'; got %s", cfg.IRC.Transport)
	}
	if cfg.IRC.Transport == "tcp" && cfg.IRC.Address == "" {
		return errors.New("irc.address is required for the tcp transport")
	}
	if cfg.IRC.Transport == "websocket" && cfg.IRC.WebsocketURL == "" {
		return errors.New("irc.websocket_url is required for the websocket transport")
	}
	if len(cfg.IRC.Capabilities) == 0 {
		return errors.New("irc.capabilities is required")
	}
	if (cfg.IRC.Limiter.Requests != 0 && cfg.IRC.Limiter.Per == 0) || (cfg.IRC.Limiter.Requests == 0 && cfg.IRC.Limiter.Per != 0) {
		return errors.New("irc.limiter.requests and irc.limiter.per must both be set or both be zero")
	}

	// oauth
	if cfg.OAuth.ClientID == "" {
		return errors.New("oauth.client_id is required")
	}
	if len(cfg.OAuth.Scopes) == 0 {
		return errors.New("oauth.scopes is required")
	}
	if cfg.OAuth.DeviceCodeURL == "" || cfg.OAuth.TokenURL == "" || cfg.OAuth.ValidateURL == "" {
		return errors.New("oauth endpoints are required")
	}

	// helix
	if cfg.Helix.BaseURL == "" {
		return errors.New("helix.base_url is required")
	}

	return nil
}
