// If you are AI: This file implements the version command.

package main

import (
	"runtime"

	"github.com/urfave/cli/v2"
)

// VersionResponse is the output of the version command.
type VersionResponse struct {
	Version   string `json:"version" yaml:"version"`
	Commit    string `json:"commit" yaml:"commit"`
	GoVersion string `json:"go_version" yaml:"go_version"`
}

func versionCommand() *cli.Command {
	return &cli.Command{
		Name:  "version",
		Usage: "Show version information",
		Flags: []cli.Flag{formatFlag},
		Action: func(c *cli.Context) error {
			return render(c.App.Writer, c.String("format"), VersionResponse{
				Version:   version,
				Commit:    commit,
				GoVersion: runtime.Version(),
			})
		},
	}
}
