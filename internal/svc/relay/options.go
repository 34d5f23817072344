// If you are AI: This file converts session configuration into player options.

package relay

import (
	"go.uber.org/zap"

	"mmsgo/internal/config"
	"mmsgo/internal/core/protocol/mms"
	"mmsgo/internal/metrics"
	"mmsgo/internal/svc/player"
)

// SessionOptions builds player options from the session section of the config.
func SessionOptions(cfg config.SessionConfig, logger *zap.Logger, m *metrics.Collector) (player.Options, error) {
	proto, err := mms.ParseProtocol(cfg.Protocol)
	if err != nil {
		return player.Options{}, err
	}
	return player.Options{
		Protocol:         proto,
		ConnectTimeout:   cfg.ConnectTimeout.Duration,
		KeepAliveTimeout: cfg.KeepAliveTimeout.Duration,
		MaxBitrate:       cfg.MaxBitrate,
		AllStreams:       cfg.AllStreams,
		DisableAudio:     cfg.NoAudio,
		DisableVideo:     cfg.NoVideo,
		Streams:          cfg.Streams,
		UDPPort:          cfg.UDPPort,
		Logger:           logger,
		Metrics:          m,
	}, nil
}
