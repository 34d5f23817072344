// If you are AI: This file defines the configuration structure for mmsgo.
// It uses strict YAML decoding and explicit defaults.

package config

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the complete configuration.
// All fields must have explicit defaults or be required.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Log     LogConfig     `yaml:"log"`
	Session SessionConfig `yaml:"session"`
	Relays  []RelayConfig `yaml:"relays,omitempty"`
	Capture CaptureConfig `yaml:"capture"`
}

// ServerConfig defines HTTP server settings.
type ServerConfig struct {
	HealthPort int `yaml:"health_port"` // Port for health endpoint
	HTTPPort   int `yaml:"http_port"`   // Port for ASF, WebSocket and API endpoints
}

// LogConfig selects the log level and encoding.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json or console
}

// SessionConfig holds MMS client defaults shared by relays and the CLI.
type SessionConfig struct {
	Protocol         string   `yaml:"protocol"` // auto, tcp or udp
	ConnectTimeout   Duration `yaml:"connect_timeout"`
	KeepAliveTimeout Duration `yaml:"keepalive_timeout"`
	MaxBitrate       int      `yaml:"max_bitrate"`
	AllStreams       bool     `yaml:"all_streams"`
	NoAudio          bool     `yaml:"no_audio"`
	NoVideo          bool     `yaml:"no_video"`
	Streams          []int    `yaml:"streams,omitempty"`
	UDPPort          int      `yaml:"udp_port"`
}

// RelayConfig defines a relay task configuration.
type RelayConfig struct {
	App            string   `yaml:"app"`                 // Application name
	Name           string   `yaml:"name"`                // Stream name
	URL            string   `yaml:"url"`                 // Source mms:// URL
	Reconnect      bool     `yaml:"reconnect,omitempty"` // Reopen the session after it ends
	ReconnectDelay Duration `yaml:"reconnect_delay,omitempty"`
}

// CaptureConfig defines where packet captures are written.
type CaptureConfig struct {
	Dir string `yaml:"dir,omitempty"`
}

// Duration wraps time.Duration for YAML string parsing (e.g. "10s", "5m").
type Duration struct {
	time.Duration
}

// UnmarshalYAML parses a duration string like "10s" or "5m30s".
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	if s == "" {
		return nil
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	d.Duration = parsed
	return nil
}

// MarshalYAML writes the duration in its string form.
func (d Duration) MarshalYAML() (any, error) {
	return d.String(), nil
}

// Load reads configuration from a YAML file.
// Returns an error if the file cannot be read or decoded.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes configuration from YAML bytes and applies defaults.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields

	if err := decoder.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	cfg.setDefaults()
	return &cfg, nil
}

// Default returns a configuration with every default applied.
func Default() *Config {
	var cfg Config
	cfg.setDefaults()
	return &cfg
}

// setDefaults applies explicit default values to unset fields.
func (c *Config) setDefaults() {
	if c.Server.HealthPort == 0 {
		c.Server.HealthPort = 8080
	}
	if c.Server.HTTPPort == 0 {
		c.Server.HTTPPort = 8081
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "json"
	}
	if c.Session.Protocol == "" {
		c.Session.Protocol = "auto"
	}
	if c.Session.ConnectTimeout.Duration == 0 {
		c.Session.ConnectTimeout.Duration = 10 * time.Second
	}
	if c.Session.KeepAliveTimeout.Duration == 0 {
		c.Session.KeepAliveTimeout.Duration = 5 * time.Second
	}
	if c.Session.UDPPort == 0 {
		c.Session.UDPPort = 7000
	}
	for i := range c.Relays {
		if c.Relays[i].ReconnectDelay.Duration == 0 {
			c.Relays[i].ReconnectDelay.Duration = 5 * time.Second
		}
	}
}
