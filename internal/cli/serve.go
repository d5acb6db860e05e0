package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/rishabhrd09/vitaltrack-sub000/internal/api"
	"github.com/rishabhrd09/vitaltrack-sub000/internal/config"
	"github.com/rishabhrd09/vitaltrack-sub000/internal/engine"
	"github.com/rishabhrd09/vitaltrack-sub000/internal/monitor"
	"github.com/rishabhrd09/vitaltrack-sub000/internal/notify"
	"github.com/rishabhrd09/vitaltrack-sub000/internal/store"
)

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
	Addr           string
	ReportInterval time.Duration
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the sync HTTP server",
		Long: `Run the sync server until interrupted.

Endpoints:
  POST /v1/sync/push     apply queued operations
  POST /v1/sync/pull     changes after a cursor
  POST /v1/sync/full     push then pull in one request
  GET  /v1/sync/changes  websocket change notifications
  GET  /v1/stats         account record counts
  GET  /healthz          liveness

Edits to the config file are picked up without a restart for the log
level, rate limits and tokens. Other settings need a restart.

Examples:
  vitalsync serve --config vitalsync.yaml
  vitalsync serve --db ./data/vitalsync.db --addr :9090`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Addr, "addr", "", "listen address (overrides http.addr)")
	cmd.Flags().DurationVar(&opts.ReportInterval, "report-interval", time.Minute, "interval between throughput log reports (0 disables)")

	return cmd
}

func runServe(opts *ServeOptions, cmd *cobra.Command) error {
	cfg, v, err := loadConfig(opts.RootOptions)
	if err != nil {
		return err
	}
	if opts.Addr != "" {
		cfg.HTTP.Addr = opts.Addr
	}
	logger, err := setupLogging(cfg, opts.Verbose, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer logger.Close()

	if len(cfg.Auth.Tokens) == 0 {
		slog.Warn("no auth tokens configured; every sync request will be rejected")
	}

	st, err := store.Open(cfg.DB.Path)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer func() {
		if err := st.Close(); err != nil {
			slog.Error("error closing database", "error", err)
		}
	}()

	hub := notify.NewHub(0)
	eng := engine.New(st,
		engine.WithSink(engine.MultiSink{hub, engine.LogSink{}}),
		engine.WithPageSize(cfg.Sync.PullPageSize),
		engine.WithMaxBatch(cfg.Sync.MaxBatch),
	)

	mon := monitor.New(opts.ReportInterval)
	mon.Start()
	defer mon.Stop()

	auth := api.NewTokenAuthenticator(cfg.TokenMap())
	serverOpts := []api.Option{api.WithHub(hub), api.WithMonitor(mon)}
	var limiter *api.RateLimiter
	if cfg.RateLimit.Enabled {
		limiter = api.NewRateLimiter(cfg.RateLimit.PerMinute, cfg.RateLimit.Burst)
		serverOpts = append(serverOpts, api.WithRateLimiter(limiter))
	}

	srv := api.NewServer(eng, auth, api.Config{
		Addr:         cfg.HTTP.Addr,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		CORSOrigins:  cfg.HTTP.CORSOrigins,
		MaxBodyBytes: cfg.HTTP.MaxBodyBytes,
	}, serverOpts...)

	config.Watch(v, func(next *config.Config) {
		if err := logger.SetLevel(next.Log.Level); err != nil {
			slog.Warn("ignoring log level change", "error", err)
		}
		auth.SetTokens(next.TokenMap())
		if limiter != nil {
			limiter.SetLimit(next.RateLimit.PerMinute, next.RateLimit.Burst)
		}
	})

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
			slog.Info("received signal, shutting down", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	go collectGarbage(ctx, eng, cfg.Sync.GCInterval, cfg.Sync.TombstoneRetention)
	if limiter != nil {
		go pruneLimiter(ctx, limiter, limiterPruneInterval)
	}

	slog.Info("server starting", "db", cfg.DB.Path, "addr", cfg.HTTP.Addr)
	fmt.Fprintf(cmd.OutOrStdout(), "Sync server listening on %s\n", cfg.HTTP.Addr)
	fmt.Fprintln(cmd.OutOrStdout(), "Press Ctrl-C to stop.")

	if err := srv.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return WrapExitError(ExitFailure, "server error", err)
	}

	slog.Info("server stopped gracefully")
	return nil
}

// limiterPruneInterval is how often idle rate limit buckets are dropped.
const limiterPruneInterval = time.Minute

// pruneLimiter drops refilled rate limit buckets every interval until ctx
// is done.
func pruneLimiter(ctx context.Context, limiter *api.RateLimiter, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if n := limiter.Prune(now); n > 0 {
				slog.Debug("rate limit buckets pruned", "count", n, "remaining", limiter.Len())
			}
		}
	}
}

// collectGarbage purges expired tombstones every interval until ctx is done.
func collectGarbage(ctx context.Context, eng *engine.Engine, interval, retention time.Duration) {
	if interval <= 0 || retention <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := eng.GarbageCollect(ctx, retention); err != nil && ctx.Err() == nil {
				slog.Error("tombstone purge failed", "error", err)
			}
		}
	}
}
