package command

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/imrelay/internal/cli/connection"
	"github.com/yndnr/imrelay/internal/cli/output"
	"github.com/yndnr/imrelay/internal/server/localserver"
)

// errUnhealthy makes health exit non-zero for scripts.
var errUnhealthy = errors.New("relay is unhealthy")

// StatusCommand returns the status command.
func StatusCommand() *cli.Command {
	return &cli.Command{
		Name:   "status",
		Usage:  "Show relay sessions and watchdog state (admin socket)",
		Action: statusAction,
	}
}

// DropCommand returns the drop command.
func DropCommand() *cli.Command {
	return &cli.Command{
		Name:   "drop",
		Usage:  "Disconnect the client currently receiving output (admin socket)",
		Action: dropAction,
	}
}

// HealthCommand returns the health command.
func HealthCommand() *cli.Command {
	return &cli.Command{
		Name:   "health",
		Usage:  "Check the relay's health endpoint",
		Action: healthAction,
	}
}

func callAdmin(c *cli.Context, cmd string, target any) error {
	client := connection.NewSocketClient(Settings(c).AdminSocket)
	defer client.Close()

	ctx, cancel := requestContext(c)
	defer cancel()

	if err := client.Call(ctx, cmd, target); err != nil {
		return fmt.Errorf("%s: %w", cmd, err)
	}
	return nil
}

func statusAction(c *cli.Context) error {
	var st localserver.StatusData
	if err := callAdmin(c, "status", &st); err != nil {
		return err
	}

	format, f := formatter(c)
	if format != output.FormatTable {
		return f.Format(stdout(c), st)
	}

	w := stdout(c)
	wd := st.Watchdog
	summary := &output.Table{Headers: []string{"FIELD", "VALUE"}}
	summary.AddRow("version", st.Version.Version)
	summary.AddRow("started", formatTime(st.StartedAt))
	summary.AddRow("active session", orDash(st.ActiveSession))
	summary.AddRow("gateway healthy", yesNo(wd.Healthy))
	summary.AddRow("last ping", formatTime(wd.LastPingAt))
	summary.AddRow("last failure", formatTime(wd.LastFailureAt))
	summary.AddRow("cooldown", wd.Cooldown.String())
	summary.AddRow("consecutive failures", strconv.Itoa(wd.ConsecutiveFailures))
	if err := summary.Render(w); err != nil {
		return err
	}

	fmt.Fprintln(w)
	if len(st.Sessions) == 0 {
		fmt.Fprintln(w, "No authenticated clients.")
		return nil
	}
	return f.Format(w, st.Sessions)
}

func dropAction(c *cli.Context) error {
	var drop localserver.DropData
	if err := callAdmin(c, "drop", &drop); err != nil {
		return err
	}

	format, f := formatter(c)
	if format != output.FormatTable {
		return f.Format(stdout(c), drop)
	}
	fmt.Fprintf(stdout(c), "Dropped session %s\n", drop.SessionID)
	return nil
}

func healthAction(c *cli.Context) error {
	client := connection.NewHTTPClient(Settings(c).MetricsURL)

	ctx, cancel := requestContext(c)
	defer cancel()

	health, err := client.Health(ctx)
	if err != nil {
		return fmt.Errorf("health: %w", err)
	}

	format, f := formatter(c)
	if format != output.FormatTable {
		if err := f.Format(stdout(c), health); err != nil {
			return err
		}
	} else if health.Healthy {
		fmt.Fprintf(stdout(c), "✓ Relay is healthy\n  Target: %s\n", client.BaseURL())
	} else {
		fmt.Fprintf(stdout(c), "✗ Relay is unhealthy\n  Target: %s\n", client.BaseURL())
	}

	if !health.Healthy {
		return errUnhealthy
	}
	return nil
}
