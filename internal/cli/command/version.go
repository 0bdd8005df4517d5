package command

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/imrelay/internal/cli/output"
	"github.com/yndnr/imrelay/internal/infra/buildinfo"
)

// VersionCommand returns the version command.
func VersionCommand() *cli.Command {
	return &cli.Command{
		Name:  "version",
		Usage: "Print build information",
		Action: func(c *cli.Context) error {
			format, f := formatter(c)
			if format != output.FormatTable {
				return f.Format(stdout(c), buildinfo.Get())
			}
			info := buildinfo.Get()
			fmt.Fprintln(stdout(c), buildinfo.Banner("imrelay-cli"))
			fmt.Fprintf(stdout(c), "go: %s\n", info.GoVersion)
			return nil
		},
	}
}
