// Command inbox is a terminal viewer for an inbox of files, read from the
// inbox daemon or straight from its SQLite database.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/nickpending/inbox/internal/api"
	"github.com/nickpending/inbox/internal/config"
	"github.com/nickpending/inbox/internal/db"
	"github.com/nickpending/inbox/internal/feed"
	"github.com/nickpending/inbox/internal/logging"
	"github.com/nickpending/inbox/internal/ui"
)

// defaultDBFlag is what a bare --local resolves from
const defaultDBFlag = "default"

type rootOptions struct {
	configPath  string
	remote      string
	local       string
	jump        string
	metricsAddr string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	rootCmd := &cobra.Command{
		Use:   "inbox",
		Short: "Browse your inbox in the terminal",
		Long: `Browse your inbox in the terminal.

Items are shown newest at the bottom. Scroll up to load older items; the
view follows new arrivals while you are at the bottom. Use --jump with an
item cursor (copied with y) to open at that item.`,
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(cmd.Context(), opts)
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&opts.configPath, "config", "c", "", "Configuration file path (default $XDG_CONFIG_HOME/inbox/config.toml)")
	flags.StringVar(&opts.remote, "remote", "", "Daemon URL (overrides [api] url)")
	flags.StringVar(&opts.local, "local", "", "Read a local database instead of the daemon (--local=PATH; bare --local uses the default path)")
	flags.Lookup("local").NoOptDefVal = defaultDBFlag
	rootCmd.Flags().StringVar(&opts.jump, "jump", "", "Open at the item with this cursor")
	rootCmd.Flags().StringVar(&opts.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address (e.g. :9464)")
	rootCmd.MarkFlagsMutuallyExclusive("remote", "local")

	rootCmd.AddCommand(newPinsCmd(opts))
	rootCmd.AddCommand(newSeedCmd(opts))
	return rootCmd
}

// loadConfig reads the config file and applies the source flags
func loadConfig(opts *rootOptions) (*config.Config, error) {
	var cfg *config.Config
	var err error
	if opts.configPath != "" {
		cfg, err = config.Load(opts.configPath)
	} else {
		cfg, err = config.LoadConfig()
	}
	if err != nil {
		return nil, err
	}

	switch {
	case opts.remote != "":
		cfg.API.URL = opts.remote
		cfg.Local.DBPath = ""
	case opts.local == defaultDBFlag:
		path, err := db.DefaultPath()
		if err != nil {
			return nil, err
		}
		cfg.Local.DBPath = path
	case opts.local != "":
		cfg.Local.DBPath = opts.local
	}
	if opts.metricsAddr != "" {
		cfg.Metrics.Addr = opts.metricsAddr
	}
	return cfg, nil
}

// sources are the feed and pin backends of one run
type sources struct {
	feed   feed.Source
	pins   feed.PinSource
	client *api.Client // nil in local mode
	store  *db.Store   // nil in remote mode
	label  string
	close  func() error
}

// openSources connects to the daemon or opens the local database
func openSources(ctx context.Context, cfg *config.Config, log *zerolog.Logger) (*sources, error) {
	if cfg.IsLocal() {
		if err := os.MkdirAll(filepath.Dir(cfg.Local.DBPath), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
		db.SetPath(cfg.Local.DBPath)
		conn, err := db.GetDB()
		if err != nil {
			return nil, err
		}
		if err := db.EnsureSchema(ctx, conn); err != nil {
			db.CloseDB()
			return nil, err
		}
		store := db.NewStore(conn)
		log.Info().Str("db", cfg.Local.DBPath).Msg("reading local database")
		return &sources{feed: store, pins: store, store: store, label: cfg.Local.DBPath, close: db.CloseDB}, nil
	}

	client, err := api.NewClientFromConfig(cfg, log)
	if err != nil {
		return nil, err
	}
	log.Info().Str("url", client.BaseURL()).Msg("using daemon")
	return &sources{feed: client, pins: client, client: client, label: client.BaseURL(), close: func() error { return nil }}, nil
}

func runTUI(ctx context.Context, opts *rootOptions) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}

	logPath := cfg.Log.Path
	if logPath == "" {
		logPath = logging.DefaultPath()
	}
	log, logFile, err := logging.Open(logPath, cfg.Log.Level)
	if err != nil {
		return err
	}
	defer logFile.Close()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	src, err := openSources(ctx, cfg, &log)
	if err != nil {
		return err
	}
	defer src.close()

	var metrics *feed.Metrics
	if cfg.Metrics.Addr != "" {
		reg := prometheus.NewRegistry()
		metrics = feed.NewMetrics(reg)
		shutdown := serveMetrics(cfg.Metrics.Addr, reg, log)
		defer shutdown()
	}

	var events chan api.Event
	if src.client != nil && cfg.TUI.Live {
		events = make(chan api.Event, 16)
		go func() {
			if err := src.client.Watch(ctx, events); err != nil && !errors.Is(err, context.Canceled) {
				log.Error().Err(err).Msg("live updates stopped")
			}
		}()
	}

	model := ui.NewModel(ctx, ui.Options{
		Source:  src.feed,
		Pins:    src.pins,
		Events:  events,
		Config:  cfg,
		Logger:  &log,
		Metrics: metrics,
		Jump:    opts.jump,
		Label:   src.label,
	})

	program := tea.NewProgram(model,
		tea.WithAltScreen(),       // Use alternate screen buffer
		tea.WithMouseCellMotion(), // Enable mouse support
		tea.WithContext(ctx),
	)
	if _, err := program.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		log.Error().Err(err).Msg("tui exited with error")
		return fmt.Errorf("failed to run TUI: %w", err)
	}
	log.Info().Msg("exit")
	return nil
}

// serveMetrics serves reg on addr until the returned shutdown is called
func serveMetrics(addr string, reg *prometheus.Registry, log zerolog.Logger) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Str("addr", addr).Msg("metrics server failed")
		}
	}()
	log.Info().Str("addr", addr).Msg("serving metrics")

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}
