package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/imrelay/internal/core/service"
	"github.com/yndnr/imrelay/internal/gateway"
	"github.com/yndnr/imrelay/internal/infra/buildinfo"
	"github.com/yndnr/imrelay/internal/infra/confloader"
	"github.com/yndnr/imrelay/internal/infra/shutdown"
	"github.com/yndnr/imrelay/internal/infra/tlsroots"
	"github.com/yndnr/imrelay/internal/server/config"
	"github.com/yndnr/imrelay/internal/server/httpserver"
	"github.com/yndnr/imrelay/internal/server/localserver"
	"github.com/yndnr/imrelay/internal/server/relayserver"
	"github.com/yndnr/imrelay/internal/telemetry/logger"
	"github.com/yndnr/imrelay/internal/telemetry/metric"
)

const (
	shutdownTimeout = 30 * time.Second
	startTimeout    = 30 * time.Second
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	cli.VersionPrinter = func(c *cli.Context) {
		fmt.Fprintln(c.App.Writer, buildinfo.Banner(c.App.Name))
	}

	return &cli.App{
		Name:            "imrelay-server",
		Usage:           "TLS line relay for an instant-messaging client API",
		Version:         buildinfo.String(),
		HideHelpCommand: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Configuration file",
				Value:   config.DefaultConfigPath,
			},
			&cli.BoolFlag{
				Name:    "debug",
				Aliases: []string{"d"},
				Usage:   "Log every command and delivered line",
			},
			&cli.StringFlag{
				Name:    "host",
				Aliases: []string{"H"},
				Usage:   "Address to bind",
				Value:   config.DefaultHost,
			},
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port to listen on",
				Value:   config.DefaultPort,
			},
			&cli.BoolFlag{
				Name:    "nofork",
				Aliases: []string{"n"},
				Usage:   "Stay in the foreground",
			},
		},
		Action: serve,
	}
}

// flagOverrides maps the flags the user set onto configuration keys.
func flagOverrides(c *cli.Context) map[string]any {
	flags := make(map[string]any)
	if c.IsSet("host") {
		flags["relay.host"] = c.String("host")
	}
	if c.IsSet("port") {
		flags["relay.port"] = c.Int("port")
	}
	if c.Bool("debug") {
		flags["log.level"] = "debug"
	}
	return flags
}

// loadConfig reads path, applies IMRELAY_* variables and flags, and
// validates the result.
func loadConfig(path string, flags map[string]any) (*config.ServerConfig, error) {
	cfg := config.Default()

	loader := confloader.NewLoader(
		confloader.WithConfigFile(path),
		confloader.WithFlags(flags),
	)
	if err := loader.Load(cfg); err != nil {
		return nil, err
	}
	config.Normalize(cfg)

	if err := config.Verify(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func serve(c *cli.Context) error {
	path := c.String("config")
	flags := flagOverrides(c)

	cfg, err := loadConfig(path, flags)
	if errors.Is(err, confloader.ErrConfigNotFound) {
		return cli.Exit(fmt.Sprintf("Can't find configuration file at '%s'.\n"+
			"Use -c to point to a configuration file.", path), 1)
	}
	if err != nil {
		return err
	}

	if !c.Bool("nofork") && !isDaemonChild() {
		pid, err := daemonize()
		if err != nil {
			return fmt.Errorf("daemonize: %w", err)
		}
		fmt.Fprintf(c.App.Writer, "imrelay-server is started on port %d, pid: %d\n", cfg.Relay.Port, pid)
		return nil
	}

	log, err := logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: os.Stderr,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	logger.SetDefault(log)

	bi := buildinfo.Get()
	log.Info("starting imrelay-server",
		"version", bi.Version,
		"commit", bi.Commit,
		"config", path,
		"settings", config.Sanitize(cfg))

	return run(cfg, path, flags, log)
}

// run wires the relay and blocks until a signal or a fatal error.
func run(cfg *config.ServerConfig, path string, flags map[string]any, log logger.Logger) error {
	creds, err := config.ToCredentials(cfg)
	if err != nil {
		return err
	}
	auth := service.NewAuthService(creds, config.ToAuthConfig(cfg))

	certs, err := tlsroots.LoadKeyPair(cfg.Relay.Cert, cfg.Relay.Key, tlsroots.WithLogger(log))
	if err != nil {
		return err
	}

	dialer, err := gateway.NewDialer(cfg.Gateway.Network, cfg.Gateway.Address)
	if err != nil {
		return err
	}
	gw := gateway.NewAPIClient(dialer, config.ToGatewayConfig(cfg), log)

	startCtx, cancel := context.WithTimeout(context.Background(), startTimeout)
	err = gw.Start(startCtx)
	cancel()
	if err != nil {
		_ = gw.Close()
		return cli.Exit(fmt.Sprintf("%v. Are you sure the messaging client is running?", err), 1)
	}
	log.Info("attached to messaging client", "protocol", gw.Protocol())

	ln, err := relayserver.Listen(cfg.Relay.Host, cfg.Relay.Port, relayserver.NewTLSConfig(certs.GetCertificate))
	if err != nil {
		_ = gw.Close()
		return fmt.Errorf("listen: %w", err)
	}

	metrics := metric.Global()
	engine := relayserver.NewEngine(config.ToRelayConfig(cfg), gw, auth, metrics, log)
	metrics.MustRegister(metric.NewCollector(engine.WatchdogSnapshot))

	sh := shutdown.NewHandler(shutdownTimeout)

	// Hooks run in reverse order: listeners first, the gateway last.
	sh.OnShutdown(func(context.Context) error {
		log.Info("closing messaging client")
		return gw.Close()
	})

	if err := certs.Watch(); err != nil {
		log.Warn("certificate reload disabled", "error", err)
	}
	sh.OnShutdown(func(context.Context) error {
		certs.Close()
		return nil
	})

	engineDone := make(chan struct{})
	go func() {
		defer close(engineDone)
		if err := engine.Run(sh.Context(), ln); err != nil {
			log.Error("relay stopped", "error", err)
			sh.Fatal(err)
		}
	}()
	sh.OnShutdown(func(ctx context.Context) error {
		select {
		case <-engineDone:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})

	if cfg.Metrics.Addr != "" {
		if err := startHTTP(sh, cfg.Metrics.Addr, metrics, engine, log); err != nil {
			sh.Fatal(err)
		}
	}
	if cfg.Admin.Socket != "" {
		if err := startAdmin(sh, cfg.Admin.Socket, engine, log); err != nil {
			sh.Fatal(err)
		}
	}

	if err := watchConfig(sh, cfg, path, flags, auth, log); err != nil {
		log.Warn("configuration reload disabled", "error", err)
	}

	err = sh.Wait()
	if err != nil {
		log.Error("shutdown", "error", err)
		return err
	}
	log.Info("server stopped gracefully")
	return nil
}

func startHTTP(sh *shutdown.Handler, addr string, metrics *metric.Registry, engine *relayserver.Engine, log logger.Logger) error {
	srv := httpserver.New(addr, httpserver.NewRouter(&httpserver.RouterConfig{
		Metrics: metrics,
		Health:  engine.Healthy,
		Logger:  log,
	}), log)
	if err := srv.Listen(); err != nil {
		return fmt.Errorf("metrics listener: %w", err)
	}
	log.Info("HTTP server listening", "addr", srv.Addr().String())

	go func() {
		if err := srv.Serve(); err != nil {
			sh.Fatal(fmt.Errorf("metrics listener: %w", err))
		}
	}()
	sh.OnShutdown(func(ctx context.Context) error {
		log.Info("shutting down HTTP server")
		return srv.Shutdown(ctx)
	})
	return nil
}

func startAdmin(sh *shutdown.Handler, socket string, engine *relayserver.Engine, log logger.Logger) error {
	srv := localserver.New(socket, localserver.NewHandler(engine), log)
	if err := srv.Listen(); err != nil {
		return fmt.Errorf("admin socket: %w", err)
	}

	go func() {
		if err := srv.Serve(); err != nil {
			sh.Fatal(fmt.Errorf("admin socket: %w", err))
		}
	}()
	sh.OnShutdown(func(ctx context.Context) error {
		log.Info("shutting down admin socket")
		return srv.Shutdown(ctx)
	})
	return nil
}

// watchConfig re-reads the configuration file when it changes.
func watchConfig(sh *shutdown.Handler, cfg *config.ServerConfig, path string, flags map[string]any, auth *service.AuthService, log logger.Logger) error {
	reload := newReloader(path, flags, auth, cfg.Relay.ReloadCredentials, log)

	w, err := confloader.NewWatcher(path, reload, confloader.WithWatcherLogger(log))
	if err != nil {
		return err
	}
	w.Start()

	sh.OnShutdown(func(context.Context) error {
		return w.Stop()
	})
	return nil
}

// newReloader applies log.level from a changed configuration file, and the
// relay credentials when withCredentials is set. Other settings need a
// restart. An invalid file leaves everything as it was.
func newReloader(path string, flags map[string]any, auth *service.AuthService, withCredentials bool, log logger.Logger) func() {
	return func() {
		cfg, err := loadConfig(path, flags)
		if err != nil {
			log.Warn("configuration reload rejected", "error", err)
			return
		}

		if withCredentials {
			creds, err := config.ToCredentials(cfg)
			if err != nil {
				log.Warn("configuration reload rejected", "error", err)
				return
			}
			auth.SetCredentials(creds)
		}
		logger.SetLevel(cfg.Log.Level)
		log.Info("configuration reloaded",
			"log_level", logger.GetLevel(),
			"credentials_reloaded", withCredentials)
	}
}
