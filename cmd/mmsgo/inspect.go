// If you are AI: This file implements the inspect command, which summarizes a
// packet capture written by play --capture.

package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"mmsgo/internal/capture"
)

func inspectCommand() *cli.Command {
	return &cli.Command{
		Name:      "inspect",
		Usage:     "Summarize a capture file",
		ArgsUsage: "<file>",
		Flags:     []cli.Flag{formatFlag},
		Action:    inspectAction,
	}
}

func inspectAction(c *cli.Context) error {
	if c.NArg() < 1 {
		return cli.Exit("capture file required", 2)
	}
	f, err := os.Open(c.Args().First())
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	defer f.Close()

	summary, err := capture.Summarize(capture.NewReader(f))
	if err != nil {
		return cli.Exit(fmt.Sprintf("read capture: %v", err), 1)
	}
	return render(c.App.Writer, c.String("format"), summary)
}
