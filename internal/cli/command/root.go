package command

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/urfave/cli/v2"
	"golang.org/x/term"

	"github.com/yndnr/imrelay/internal/cli/config"
	"github.com/yndnr/imrelay/internal/cli/output"
	"github.com/yndnr/imrelay/internal/infra/buildinfo"
)

const metadataConfig = "config"

// stdinIsTerminal reports whether prompts and the spinner can be shown.
var stdinIsTerminal = func() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// App creates the CLI application.
func App() *cli.App {
	return &cli.App{
		Name:                 "imrelay-cli",
		Usage:                "imrelay operator tool",
		Version:              buildinfo.String(),
		Flags:                globalFlags(),
		EnableBashCompletion: true,
		Commands: []*cli.Command{
			ConnectCommand(),
			StatusCommand(),
			DropCommand(),
			HealthCommand(),
			HashCommand(),
			ConfigCommand(),
			VersionCommand(),
		},
		Before: loadSettings,
	}
}

// globalFlags returns the global CLI flags.
func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Usage:   "CLI configuration file",
			EnvVars: []string{"IMRELAY_CLI_CONFIG"},
			Value:   config.DefaultConfigPath(),
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Output format: table, json, yaml",
		},
		&cli.StringFlag{
			Name:    "socket",
			Aliases: []string{"S"},
			Usage:   "Relay admin socket",
			EnvVars: []string{"IMRELAY_ADMIN_SOCKET"},
		},
		&cli.StringFlag{
			Name:    "metrics-url",
			Usage:   "Relay HTTP endpoint (e.g., http://127.0.0.1:9127)",
			EnvVars: []string{"IMRELAY_METRICS_URL"},
		},
		&cli.DurationFlag{
			Name:  "timeout",
			Usage: "Timeout for requests to the relay",
			Value: 10 * time.Second,
		},
	}
}

// loadSettings reads the CLI config file and applies the global flags.
func loadSettings(c *cli.Context) error {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return err
	}

	cfg, err = config.Merge(cfg, map[string]string{
		"admin_socket": c.String("socket"),
		"metrics_url":  c.String("metrics-url"),
		"output":       c.String("output"),
	})
	if err != nil {
		return err
	}

	if _, err := output.ParseFormat(cfg.Output); err != nil {
		return err
	}

	if c.App.Metadata == nil {
		c.App.Metadata = make(map[string]any)
	}
	c.App.Metadata[metadataConfig] = cfg
	return nil
}

// Settings returns the effective CLI configuration.
func Settings(c *cli.Context) *config.CLIConfig {
	if cfg, ok := c.App.Metadata[metadataConfig].(*config.CLIConfig); ok {
		return cfg
	}
	return config.Default()
}

// formatter returns the formatter selected by --output or the config.
func formatter(c *cli.Context) (output.Format, output.Formatter) {
	format, err := output.ParseFormat(Settings(c).Output)
	if err != nil {
		format = output.FormatTable
	}
	return format, output.NewFormatter(format)
}

// requestContext bounds a single request by --timeout.
func requestContext(c *cli.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Context, c.Duration("timeout"))
}

func stdout(c *cli.Context) io.Writer {
	return c.App.Writer
}

func stderr(c *cli.Context) io.Writer {
	return c.App.ErrWriter
}

// PrintError prints an error message to stderr.
func PrintError(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "error: "+format+"\n", args...)
}
