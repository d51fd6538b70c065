package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/telemetryd/internal/api"
	"github.com/roach88/telemetryd/internal/config"
	"github.com/roach88/telemetryd/internal/ingest"
	"github.com/roach88/telemetryd/internal/metrics"
	"github.com/roach88/telemetryd/internal/registry"
	"github.com/roach88/telemetryd/internal/sequencer"
	"github.com/roach88/telemetryd/internal/store"
)

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
	Addr    string
	Journal string
	Rate    float64
	Burst   int

	// Ready is called with the bound address once the listener is open
	// (for testing). Nil means no callback.
	Ready func(addr string)
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	return newServeCommand(&ServeOptions{RootOptions: rootOpts})
}

func newServeCommand(opts *ServeOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP ingest server",
		Long: `Run the HTTP ingest server until SIGINT or SIGTERM.

Configuration is read from TELEMETRYD_* environment variables; flags
override them. With --journal, every accepted event is appended to a
SQLite arrival journal that the replay and trace commands read.

Routes:
  POST /messages         submit one telemetry message
  GET  /rockets          list entities (?type=&sortBy=&orderBy=)
  GET  /rockets/types    distinct entity types
  GET  /rockets/{id}     one entity

Examples:
  telemetryd serve
  telemetryd serve --addr :9000 --journal ./arrivals.db
  telemetryd serve --rate 500 --burst 50 --verbose`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Addr, "addr", "", "listen address (default $TELEMETRYD_ADDR or :8088)")
	cmd.Flags().StringVar(&opts.Journal, "journal", "", "path to SQLite arrival journal (default $TELEMETRYD_JOURNAL, empty disables)")
	cmd.Flags().Float64Var(&opts.Rate, "rate", 0, "POST /messages rate limit per second, 0 disables")
	cmd.Flags().IntVar(&opts.Burst, "burst", 0, "rate limit burst")

	return cmd
}

// serveConfig merges the environment with explicitly set flags.
func serveConfig(opts *ServeOptions, cmd *cobra.Command) (config.Config, error) {
	var cfg config.Config
	if err := config.ParseEnv(&cfg); err != nil {
		return config.Config{}, err
	}

	flags := cmd.Flags()
	if flags.Changed("addr") {
		cfg.Addr = opts.Addr
	}
	if flags.Changed("journal") {
		cfg.Journal = opts.Journal
	}
	if flags.Changed("rate") {
		cfg.Rate = opts.Rate
	}
	if flags.Changed("burst") {
		cfg.Burst = opts.Burst
	}

	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func runServe(opts *ServeOptions, cmd *cobra.Command) error {
	cfg, err := serveConfig(opts, cmd)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid configuration", err)
	}

	level, _ := cfg.Level()
	logger := newLogger(cmd.ErrOrStderr(), level, cfg.LogFormat, opts.Verbose)
	slog.SetDefault(logger)

	// Use command's context if available (for testing), otherwise create one
	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(parentCtx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case sig := <-sigChan:
			logger.Info("received signal, shutting down", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	provider, err := metrics.NewProvider(ctx, metrics.Config{
		OTLPEndpoint: cfg.OTLPEndpoint,
		Insecure:     cfg.OTLPInsecure,
		Interval:     cfg.MetricInterval,
	}, logger)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to start metrics", err)
	}
	defer func() {
		shutdownCtx, done := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer done()
		if err := provider.Shutdown(shutdownCtx); err != nil {
			logger.Error("error shutting down metrics", "error", err)
		}
	}()

	recorder, err := metrics.NewRecorder(provider.Meter())
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to create instruments", err)
	}

	clock := registry.NewClock()
	var journal *store.Store
	if cfg.Journal != "" {
		logger.Info("opening journal", "path", cfg.Journal)
		journal, err = store.Open(cfg.Journal)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to open journal", err)
		}
		defer func() {
			if closeErr := journal.Close(); closeErr != nil {
				logger.Error("error closing journal", "error", closeErr)
			}
		}()

		// Arrival numbers are the journal's primary key, so a restarted
		// server continues after the last recorded one.
		last, err := journal.MaxArrival(ctx)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to read journal", err)
		}
		clock = registry.NewClockAt(last)
		logger.Info("journal ready", "last_arrival", last)
	}

	reg := registry.New(
		registry.WithClock(clock),
		registry.WithObserver(sequencer.Observers{recorder, ingest.NewLogObserver(logger)}),
	)
	registration, err := recorder.ObserveRegistry(provider.Meter(), reg)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to register gauges", err)
	}
	defer registration.Unregister()

	svcOpts := []ingest.Option{
		ingest.WithLogger(logger),
		ingest.WithCounters(recorder),
	}
	if journal != nil {
		svcOpts = append(svcOpts, ingest.WithJournal(journal))
	}
	svc := ingest.NewService(reg, svcOpts...)

	server := api.NewServer(svc,
		api.WithLogger(logger),
		api.WithRateLimit(cfg.Rate, cfg.Burst),
	)

	ln, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to listen", err)
	}
	httpServer := &http.Server{
		Handler:           server.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ErrorLog:          slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.Serve(ln)
	}()

	logger.Info("server starting", "addr", ln.Addr().String(), "journal", cfg.Journal, "rate", cfg.Rate)
	fmt.Fprintf(cmd.OutOrStdout(), "Listening on %s\n", ln.Addr())
	fmt.Fprintln(cmd.OutOrStdout(), "Press Ctrl-C to stop.")
	if opts.Ready != nil {
		opts.Ready(ln.Addr().String())
	}

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return WrapExitError(ExitFailure, "server error", err)
		}
	}

	shutdownCtx, done := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer done()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return WrapExitError(ExitFailure, "graceful shutdown failed", err)
	}

	st := reg.Stats()
	logger.Info("server stopped gracefully",
		"entities", st.Entities,
		"pending", st.Pending,
		"arrivals", st.Arrivals,
	)
	return nil
}
