// If you are AI: This file implements the probe command: connect, describe and
// print the session metadata without starting playback.

package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"mmsgo/internal/svc/player"
	"mmsgo/internal/svc/relay"
)

func probeCommand() *cli.Command {
	return &cli.Command{
		Name:      "probe",
		Usage:     "Describe an MMS URL and print its streams",
		ArgsUsage: "<mms-url>",
		Flags:     append(sessionFlags(), formatFlag),
		Action:    probeAction,
	}
}

func probeAction(c *cli.Context) error {
	if c.NArg() < 1 {
		return cli.Exit("mms url required", 2)
	}
	cfg, err := loadConfig(c)
	if err != nil {
		return cli.Exit(err.Error(), 2)
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return cli.Exit(err.Error(), 2)
	}
	defer logger.Sync()

	opts, err := relay.SessionOptions(cfg.Session, logger, nil)
	if err != nil {
		return cli.Exit(err.Error(), 2)
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	session := player.NewSession(opts)
	defer session.Close()
	if err := session.Connect(ctx, c.Args().First()); err != nil {
		return cli.Exit(fmt.Sprintf("connect: %v", err), 1)
	}
	if err := session.Describe(ctx, ""); err != nil {
		return cli.Exit(fmt.Sprintf("describe: %v", err), 1)
	}
	return render(c.App.Writer, c.String("format"), session.Metadata())
}
