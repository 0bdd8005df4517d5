package command

import (
	"errors"
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/imrelay/internal/cli/output"
	"github.com/yndnr/imrelay/internal/infra/confloader"
	serverconfig "github.com/yndnr/imrelay/internal/server/config"
)

// ConfigCommand returns the config subcommand group.
func ConfigCommand() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Configuration helpers",
		Subcommands: []*cli.Command{
			{
				Name:   "show",
				Usage:  "Show the effective CLI configuration",
				Action: configShow,
			},
			{
				Name:      "check",
				Usage:     "Validate an imrelay-server configuration file",
				ArgsUsage: "FILE",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "print",
						Usage: "Print the merged configuration with secrets masked",
					},
				},
				Action: configCheck,
			},
		},
	}
}

func configShow(c *cli.Context) error {
	cfg := Settings(c)

	format, f := formatter(c)
	if format != output.FormatTable {
		return f.Format(stdout(c), cfg)
	}

	fmt.Fprintf(stdout(c), "Config file: %s\n\n", c.String("config"))
	table := &output.Table{Headers: []string{"KEY", "VALUE"}}
	table.AddRow("relay.addr", orDash(cfg.Relay.Addr))
	table.AddRow("relay.username", orDash(cfg.Relay.Username))
	table.AddRow("relay.ca_file", orDash(cfg.Relay.CAFile))
	table.AddRow("relay.server_name", orDash(cfg.Relay.ServerName))
	table.AddRow("relay.insecure", yesNo(cfg.Relay.Insecure))
	table.AddRow("admin_socket", orDash(cfg.AdminSocket))
	table.AddRow("metrics_url", orDash(cfg.MetricsURL))
	table.AddRow("output", cfg.Output)
	return table.Render(stdout(c))
}

// configCheck loads FILE the way imrelay-server does: defaults, then the
// file, then IMRELAY_* variables.
func configCheck(c *cli.Context) error {
	path := c.Args().First()
	if path == "" {
		return errors.New("configuration file path required")
	}

	cfg := serverconfig.Default()
	loader := confloader.NewLoader(confloader.WithConfigFile(path))
	if err := loader.Load(cfg); err != nil {
		return err
	}
	serverconfig.Normalize(cfg)

	if err := serverconfig.Verify(cfg); err != nil {
		fmt.Fprintf(stdout(c), "✗ %s is invalid\n", path)
		return err
	}

	if !c.Bool("print") {
		fmt.Fprintf(stdout(c), "✓ %s is valid\n", path)
		return nil
	}

	format, f := formatter(c)
	if format == output.FormatTable {
		f = output.NewFormatter(output.FormatYAML)
	}
	return f.Format(stdout(c), serverconfig.Sanitize(cfg))
}
