// If you are AI: This file validates configuration values and returns descriptive errors.

package config

import (
	"fmt"

	"mmsgo/internal/core/protocol/mms"
)

// Validate checks that all configuration values are within acceptable ranges.
// Returns an error describing the first validation failure found.
func (c *Config) Validate() error {
	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("server config: %w", err)
	}
	if err := c.Log.Validate(); err != nil {
		return fmt.Errorf("log config: %w", err)
	}
	if err := c.Session.Validate(); err != nil {
		return fmt.Errorf("session config: %w", err)
	}
	seen := make(map[string]bool)
	for i := range c.Relays {
		r := &c.Relays[i]
		if err := r.Validate(); err != nil {
			return fmt.Errorf("relay %d: %w", i, err)
		}
		key := r.App + "/" + r.Name
		if seen[key] {
			return fmt.Errorf("relay %d: duplicate stream %s", i, key)
		}
		seen[key] = true
	}
	return nil
}

// Validate checks server configuration values.
func (s *ServerConfig) Validate() error {
	if s.HealthPort <= 0 || s.HealthPort > 65535 {
		return fmt.Errorf("health_port must be between 1 and 65535, got %d", s.HealthPort)
	}
	if s.HTTPPort <= 0 || s.HTTPPort > 65535 {
		return fmt.Errorf("http_port must be between 1 and 65535, got %d", s.HTTPPort)
	}
	if s.HealthPort == s.HTTPPort {
		return fmt.Errorf("health_port and http_port must be different, both are %d", s.HealthPort)
	}
	return nil
}

// Validate checks the log settings.
func (l *LogConfig) Validate() error {
	switch l.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("level must be debug, info, warn or error, got %q", l.Level)
	}
	if l.Format != "json" && l.Format != "console" {
		return fmt.Errorf("format must be json or console, got %q", l.Format)
	}
	return nil
}

// Validate checks the MMS client defaults.
func (s *SessionConfig) Validate() error {
	if _, err := mms.ParseProtocol(s.Protocol); err != nil {
		return err
	}
	if s.ConnectTimeout.Duration < 0 {
		return fmt.Errorf("connect_timeout must not be negative, got %s", s.ConnectTimeout)
	}
	if s.KeepAliveTimeout.Duration < 0 {
		return fmt.Errorf("keepalive_timeout must not be negative, got %s", s.KeepAliveTimeout)
	}
	if s.MaxBitrate < 0 {
		return fmt.Errorf("max_bitrate must not be negative, got %d", s.MaxBitrate)
	}
	if s.UDPPort < 0 || s.UDPPort > 65535 {
		return fmt.Errorf("udp_port must be between 0 and 65535, got %d", s.UDPPort)
	}
	if s.NoAudio && s.NoVideo {
		return fmt.Errorf("no_audio and no_video together leave nothing to play")
	}
	for _, id := range s.Streams {
		if id <= 0 || id >= 128 {
			return fmt.Errorf("stream id must be between 1 and 127, got %d", id)
		}
	}
	return nil
}

// Validate checks one relay entry.
func (r *RelayConfig) Validate() error {
	if r.App == "" || r.Name == "" {
		return fmt.Errorf("app and name are required")
	}
	if _, err := mms.ParseURL(r.URL); err != nil {
		return fmt.Errorf("url: %w", err)
	}
	if r.ReconnectDelay.Duration < 0 {
		return fmt.Errorf("reconnect_delay must not be negative, got %s", r.ReconnectDelay)
	}
	return nil
}
