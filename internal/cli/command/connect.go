package command

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/imrelay/internal/cli/config"
	"github.com/yndnr/imrelay/internal/cli/connection"
	"github.com/yndnr/imrelay/internal/cli/output"
	"github.com/yndnr/imrelay/internal/cli/repl"
	"github.com/yndnr/imrelay/internal/infra/tlsroots"
)

// ConnectCommand returns the connect command.
func ConnectCommand() *cli.Command {
	return &cli.Command{
		Name:      "connect",
		Usage:     "Log in to a relay and exchange lines interactively",
		ArgsUsage: "[ADDR]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "user",
				Aliases: []string{"u"},
				Usage:   "Relay username",
			},
			&cli.StringFlag{
				Name:    "password",
				Usage:   "Relay password (prefer the environment variable)",
				EnvVars: []string{"IMRELAY_PASSWORD"},
			},
			&cli.StringFlag{
				Name:  "ca",
				Usage: "CA certificate file or directory for verifying the relay",
			},
			&cli.StringFlag{
				Name:  "server-name",
				Usage: "Expected certificate name when it differs from ADDR",
			},
			&cli.BoolFlag{
				Name:  "insecure",
				Usage: "Skip certificate verification",
			},
			&cli.DurationFlag{
				Name:  "linger",
				Usage: "Keep printing relay output this long after input ends",
				Value: time.Second,
			},
			&cli.BoolFlag{
				Name:  "no-history",
				Usage: "Do not record sent commands",
			},
		},
		Action: connectAction,
	}
}

func connectAction(c *cli.Context) error {
	cfg, err := config.Merge(Settings(c), map[string]string{
		"relay.addr":        c.Args().First(),
		"relay.username":    c.String("user"),
		"relay.ca_file":     c.String("ca"),
		"relay.server_name": c.String("server-name"),
	})
	if err != nil {
		return err
	}
	if c.Bool("insecure") {
		cfg.Relay.Insecure = true
	}
	if cfg.Relay.Username == "" {
		return errors.New("username required (--user or relay.username in the CLI config)")
	}

	password := c.String("password")
	if password == "" {
		if !stdinIsTerminal() {
			return errors.New("no terminal for the password prompt; set IMRELAY_PASSWORD")
		}
		if password, err = readPassword(c, "Password: ", false); err != nil {
			return err
		}
	}

	tlsConfig, err := tlsroots.ClientTLSConfig(cfg.Relay.ServerName, cfg.Relay.CAFile, cfg.Relay.Insecure)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, err := login(ctx, c, cfg, tlsConfig, password)
	if err != nil {
		return err
	}
	defer client.Close()

	historyPath := repl.DefaultHistoryPath()
	if c.Bool("no-history") {
		historyPath = ""
	}
	history := repl.NewHistory(historyPath)
	if err := history.Load(); err != nil {
		PrintError(stderr(c), "load history: %v", err)
	}

	opts := []repl.Option{
		repl.WithHistory(history),
		repl.WithLinger(c.Duration("linger")),
	}
	if stdinIsTerminal() {
		opts = append(opts, repl.WithPrompt("imrelay> "))
	}

	runErr := repl.New(c.App.Reader, stdout(c), opts...).Run(ctx, client)
	if err := history.Save(); err != nil {
		PrintError(stderr(c), "save history: %v", err)
	}
	return runErr
}

// login dials the relay and performs the USERNAME/PASSWORD exchange
// within --timeout.
func login(ctx context.Context, c *cli.Context, cfg *config.CLIConfig, tlsConfig *tls.Config, password string) (*connection.RelayClient, error) {
	spinner := output.NewSpinner(stderr(c), "Connecting to "+cfg.Relay.Addr)
	if stdinIsTerminal() {
		spinner.Start()
	}

	dialCtx, cancel := context.WithTimeout(ctx, c.Duration("timeout"))
	defer cancel()

	client, err := connection.DialRelay(dialCtx, cfg.Relay.Addr, tlsConfig)
	if err != nil {
		spinner.Fail("connect failed")
		return nil, fmt.Errorf("connect to %s: %w", cfg.Relay.Addr, err)
	}

	if err := client.Login(dialCtx, cfg.Relay.Username, password); err != nil {
		client.Close()
		spinner.Fail("login failed")
		return nil, err
	}

	spinner.Success(fmt.Sprintf("Connected to %s as %s", cfg.Relay.Addr, cfg.Relay.Username))
	return client, nil
}
