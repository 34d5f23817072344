// If you are AI: This file implements the serve command: run the relay server
// from a configuration file until SIGINT or SIGTERM.

package main

import (
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"mmsgo/internal/server"
)

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:   "serve",
		Usage:  "Relay configured MMS streams over HTTP and WebSocket",
		Action: serveAction,
	}
}

func serveAction(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return cli.Exit(err.Error(), 2)
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return cli.Exit(err.Error(), 2)
	}
	defer logger.Sync()

	srv := server.New(cfg, logger, nil)
	if err := srv.Start(); err != nil {
		return cli.Exit(err.Error(), 1)
	}

	if err := server.NewShutdownHandler(c.Context, srv).Wait(); err != nil {
		logger.Error("shutdown", zap.Error(err))
		return cli.Exit("", 1)
	}
	logger.Info("server shut down cleanly")
	return nil
}
