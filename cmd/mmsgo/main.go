// If you are AI: This is the main entrypoint for the mmsgo command.
// It wires the subcommands and maps errors to exit codes.

package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"mmsgo/internal/svc/api"
)

// Set via ldflags at build time.
var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	api.Version = version
	app := &cli.App{
		Name:           "mmsgo",
		Usage:          "MMS streaming client and ASF relay",
		Version:        fmt.Sprintf("%s (commit: %s)", version, commit),
		Flags:          globalFlags(),
		ExitErrHandler: exitErrHandler,
		Commands: []*cli.Command{
			serveCommand(),
			playCommand(),
			probeCommand(),
			inspectCommand(),
			versionCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		os.Exit(1)
	}
}

// exitErrHandler preserves exit codes from cli.Exit and prints other errors.
func exitErrHandler(_ *cli.Context, err error) {
	if err == nil {
		return
	}

	var exitCoder cli.ExitCoder
	if errors.As(err, &exitCoder) {
		code := exitCoder.ExitCode()
		msg := exitCoder.Error()
		if msg != "" && msg != fmt.Sprintf("exit status %d", code) {
			fmt.Fprintln(os.Stderr, msg)
		}
		os.Exit(code)
	}

	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}
