package cli

import (
	"io"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/rishabhrd09/vitaltrack-sub000/internal/config"
	"github.com/rishabhrd09/vitaltrack-sub000/internal/engine"
	"github.com/rishabhrd09/vitaltrack-sub000/internal/logging"
	"github.com/rishabhrd09/vitaltrack-sub000/internal/store"
)

// loadConfig reads the configuration and applies flag overrides.
func loadConfig(opts *RootOptions) (*config.Config, *viper.Viper, error) {
	cfg, v, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, nil, WrapExitError(ExitCommandError, "failed to load config", err)
	}
	if opts.Database != "" {
		cfg.DB.Path = opts.Database
	}
	return cfg, v, nil
}

// setupLogging installs the configured logger as the slog default.
// --verbose forces debug level.
func setupLogging(cfg *config.Config, verbose bool, w io.Writer) (*logging.Logger, error) {
	level := cfg.Log.Level
	if verbose {
		level = "debug"
	}
	logger, err := logging.Setup(logging.Options{
		Level:      level,
		Format:     cfg.Log.Format,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
		Writer:     w,
	})
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to set up logging", err)
	}
	slog.SetDefault(logger.Logger)
	return logger, nil
}

// session is the state shared by commands that work on the database.
type session struct {
	cfg    *config.Config
	logger *logging.Logger
	store  *store.Store
	engine *engine.Engine
	out    *OutputFormatter
}

// openSession loads config, sets up logging and opens the store. Extra
// engine options are applied after the configured ones.
func openSession(opts *RootOptions, cmd *cobra.Command, engOpts ...engine.Option) (*session, error) {
	cfg, _, err := loadConfig(opts)
	if err != nil {
		return nil, err
	}
	logger, err := setupLogging(cfg, opts.Verbose, cmd.ErrOrStderr())
	if err != nil {
		return nil, err
	}

	slog.Debug("opening database", "path", cfg.DB.Path)
	st, err := store.Open(cfg.DB.Path)
	if err != nil {
		logger.Close()
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}

	base := []engine.Option{
		engine.WithPageSize(cfg.Sync.PullPageSize),
		engine.WithMaxBatch(cfg.Sync.MaxBatch),
	}
	return &session{
		cfg:    cfg,
		logger: logger,
		store:  st,
		engine: engine.New(st, append(base, engOpts...)...),
		out:    newFormatter(opts, cmd),
	}, nil
}

// Close releases the store and the log file.
func (s *session) Close() {
	if err := s.store.Close(); err != nil {
		slog.Error("error closing database", "error", err)
	}
	s.logger.Close()
}

func newFormatter(opts *RootOptions, cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
}
