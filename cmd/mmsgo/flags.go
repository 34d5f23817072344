// If you are AI: This file defines the shared CLI flags and turns them into
// configuration, with flags overriding values from the config file.

package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"mmsgo/internal/config"
	"mmsgo/internal/log"
)

func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "Path to a YAML configuration file",
			EnvVars: []string{"MMSGO_CONFIG"},
		},
		&cli.StringFlag{
			Name:  "log-level",
			Usage: "Log level: debug, info, warn, error",
		},
		&cli.StringFlag{
			Name:  "log-format",
			Usage: "Log format: json, console",
		},
	}
}

// sessionFlags are the MMS client settings shared by play and probe.
func sessionFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "proto",
			Usage: "Transport: auto, tcp, udp",
		},
		&cli.IntFlag{
			Name:  "max-bitrate",
			Usage: "Bandwidth budget in bits/s for stream selection (0 picks the best streams)",
		},
		&cli.BoolFlag{
			Name:  "all",
			Usage: "Select every stream regardless of bitrate",
		},
		&cli.BoolFlag{
			Name:  "no-audio",
			Usage: "Do not select audio streams",
		},
		&cli.BoolFlag{
			Name:  "no-video",
			Usage: "Do not select video streams",
		},
		&cli.IntSliceFlag{
			Name:  "stream",
			Usage: "Select explicit stream ids (repeatable)",
		},
		&cli.DurationFlag{
			Name:  "timeout",
			Usage: "Connect timeout",
		},
		&cli.IntFlag{
			Name:  "udp-port",
			Usage: "Local UDP data port (0 for ephemeral)",
		},
	}
}

// loadConfig reads the --config file, or the defaults when none is given,
// applies flag overrides and validates the result.
func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg := config.Default()
	if path := c.String("config"); path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if c.IsSet("log-level") {
		cfg.Log.Level = c.String("log-level")
	}
	if c.IsSet("log-format") {
		cfg.Log.Format = c.String("log-format")
	}
	applySessionFlags(c, &cfg.Session)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func applySessionFlags(c *cli.Context, s *config.SessionConfig) {
	if c.IsSet("proto") {
		s.Protocol = c.String("proto")
	}
	if c.IsSet("max-bitrate") {
		s.MaxBitrate = c.Int("max-bitrate")
	}
	if c.IsSet("all") {
		s.AllStreams = c.Bool("all")
	}
	if c.IsSet("no-audio") {
		s.NoAudio = c.Bool("no-audio")
	}
	if c.IsSet("no-video") {
		s.NoVideo = c.Bool("no-video")
	}
	if c.IsSet("stream") {
		s.Streams = c.IntSlice("stream")
	}
	if c.IsSet("timeout") {
		s.ConnectTimeout = config.Duration{Duration: c.Duration("timeout")}
	}
	if c.IsSet("udp-port") {
		s.UDPPort = c.Int("udp-port")
	}
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	return log.New(log.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
}

// parseOffset accepts a byte offset with an optional k/m/g suffix.
func parseOffset(s string) (int64, error) {
	if s == "" {
		return 0, nil
	}
	mult := int64(1)
	switch s[len(s)-1] {
	case 'k', 'K':
		mult = 1 << 10
	case 'm', 'M':
		mult = 1 << 20
	case 'g', 'G':
		mult = 1 << 30
	}
	digits := s
	if mult != 1 {
		digits = s[:len(s)-1]
	}
	n, err := strconv.ParseInt(digits, 10, 64)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("bad offset %q", s)
	}
	return n * mult, nil
}

// sinceStart formats elapsed time for summaries.
func sinceStart(start time.Time) string {
	return time.Since(start).Round(time.Millisecond).String()
}
