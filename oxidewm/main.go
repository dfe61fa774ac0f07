package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/oxidewm/oxidewm/internal/config"
	"github.com/oxidewm/oxidewm/internal/dispatch"
	"github.com/oxidewm/oxidewm/internal/ipc"
	"github.com/oxidewm/oxidewm/internal/keybind"
	"github.com/oxidewm/oxidewm/internal/logging"
	"github.com/oxidewm/oxidewm/internal/metrics"
	"github.com/oxidewm/oxidewm/internal/spawn"
	"github.com/oxidewm/oxidewm/internal/wm"
	"github.com/oxidewm/oxidewm/internal/x11"
)

var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// globals are the settings shared by every subcommand: the environment,
// overridden by flags.
type globals struct {
	env *config.Env
}

func newRootCmd() *cobra.Command {
	g := &globals{env: &config.Env{}}
	var socket, configPath, logLevel string

	root := &cobra.Command{
		Use:   "oxidewm",
		Short: "A tiling window manager for X11",
		Long: "oxidewm tiles the windows of each workspace side by side. Run with no " +
			"subcommand from your X session to start the window manager; the " +
			"subcommands talk to a running instance over its control socket.",
		Version:      version,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			env, err := config.LoadEnv()
			if err != nil {
				return err
			}
			flags := cmd.Flags()
			if flags.Changed("socket") {
				env.Socket = socket
			}
			if flags.Changed("config") {
				env.Config = configPath
			}
			if flags.Changed("log-level") {
				env.LogLevel = logLevel
			}
			*g.env = *env
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWM(cmd.Context(), g.env)
		},
	}
	pf := root.PersistentFlags()
	pf.StringVar(&socket, "socket", "", "control socket path (default $OXIDEWM_SOCKET or $XDG_RUNTIME_DIR/oxidewm.sock)")
	pf.StringVar(&configPath, "config", "", "config file (default $OXIDEWM_CONFIG or the first oxidewm/config.yml on the search path)")
	pf.StringVar(&logLevel, "log-level", "", "debug, info, warn or error (default $OXIDEWM_LOG_LEVEL or info)")

	root.AddCommand(newMsgCmd(g), newStateCmd(g), newBarCmd(g))
	return root
}

// runWM manages the display until Quit, a fatal X error or a signal.
func runWM(ctx context.Context, env *config.Env) error {
	lc := logging.DefaultConfig()
	if env.LogLevel != "" {
		lc.Level = env.LogLevel
	}
	lc.Development = env.LogDev
	logger, err := logging.New(lc)
	if err != nil {
		return fmt.Errorf("log level %q: %w", lc.Level, err)
	}
	defer logger.Sync()
	log := logger.Logger

	cfg, err := config.Load(env.Config)
	if err != nil {
		log.Error("could not load config", zap.Error(err))
		return err
	}
	style, err := wm.NewStyle(cfg)
	if err != nil {
		return err
	}

	conn, err := x11.Dial(log)
	if err != nil {
		log.Error("could not open display", zap.Error(err))
		return err
	}
	defer conn.Close()

	bindings, err := keybind.Resolve(cfg.Cmds, conn)
	if err != nil {
		log.Warn("some key bindings were skipped", zap.Error(err))
	}
	m, err := wm.New(conn, style, bindings, log.Named("wm"))
	if err != nil {
		if errors.Is(err, wm.ErrAnotherWM) {
			log.Error("another window manager is already running")
		}
		return err
	}
	log.Info("managing display",
		zap.String("config", cfg.Path),
		zap.Int("screens", len(m.Screens())),
		zap.Int("bindings", len(bindings)))

	met := metrics.New()
	d := dispatch.New(dispatch.Options{
		Conn:       conn,
		Manager:    m,
		Config:     cfg,
		ConfigPath: env.Config,
		Log:        log.Named("dispatch"),
		Metrics:    met,
		Spawner:    spawn.New(log.Named("spawn")),
	})
	srv := ipc.NewServer(env.Socket, log.Named("ipc"))
	d.RegisterIPC(srv, cfg.IPC.WaitTimeout)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		// Closing the connection ends ProxyEvents.
		defer conn.Close()
		defer cancel()
		err := d.Run(ctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	eg.Go(func() error { return d.ProxyEvents(ctx) })
	eg.Go(func() error { return srv.Serve(ctx) })
	eg.Go(func() error { return d.Tick(ctx, cfg.TickInterval) })
	if env.MetricsAddr != "" {
		eg.Go(func() error { return met.Serve(ctx, env.MetricsAddr, log.Named("metrics")) })
	}

	if err := eg.Wait(); err != nil {
		log.Error("window manager stopped", zap.Error(err))
		return fmt.Errorf("window manager stopped: %w", err)
	}
	log.Info("window manager stopped")
	return nil
}
