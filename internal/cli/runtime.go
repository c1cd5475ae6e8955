package cli

import (
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/roach88/caseflow/internal/config"
	"github.com/roach88/caseflow/internal/engine"
	"github.com/roach88/caseflow/internal/guard"
	cflog "github.com/roach88/caseflow/internal/log"
	"github.com/roach88/caseflow/internal/policy"
	"github.com/roach88/caseflow/internal/store"
	"github.com/roach88/caseflow/internal/transition"
)

// runtime is everything a command needs after global flags are resolved.
type runtime struct {
	cfg    config.Config
	logger zerolog.Logger
	out    *OutputFormatter
	table  *transition.Table
	guards *guard.Registry

	// store and engine are nil until openStore.
	store  *store.Store
	engine *engine.Engine
}

// newRuntime loads configuration, builds the logger and resolves the guard
// policy. It does not touch the database.
func newRuntime(opts *RootOptions, cmd *cobra.Command) (*runtime, error) {
	cfg, err := config.Loader{Fs: opts.fs(), Environ: opts.Environ}.Load(opts.ConfigPath)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load config", err)
	}
	if opts.Database != "" {
		cfg.Database.Path = opts.Database
	}

	logCfg := cflog.Config{
		Level:   cfg.Log.Level,
		Output:  cmd.ErrOrStderr(),
		Console: cfg.Log.Format == config.LogFormatConsole,
	}
	if opts.Verbose {
		logCfg.Level = "debug"
	}
	logger, err := cflog.New(logCfg)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to configure logging", err)
	}

	table := transition.Default()
	guards := guard.Default()
	if cfg.Policy.Path != "" {
		guards, err = policy.LoadFile(opts.fs(), cfg.Policy.Path, table)
		if err != nil {
			return nil, WrapExitError(ExitCommandError, "failed to load guard policy", err)
		}
		logger.Debug().Str(cflog.FieldPath, cfg.Policy.Path).Msg("guard policy loaded")
	}

	return &runtime{
		cfg:    cfg,
		logger: logger,
		out: &OutputFormatter{
			Format:    opts.Format,
			Writer:    cmd.OutOrStdout(),
			ErrWriter: cmd.ErrOrStderr(),
			Verbose:   opts.Verbose,
		},
		table:  table,
		guards: guards,
	}, nil
}

// openStore opens the configured database and builds the engine on it.
// Callers must Close the runtime.
func (rt *runtime) openStore() error {
	st, err := store.Open(rt.cfg.Database.Path, store.WithDriver(rt.cfg.Database.Driver))
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	rt.logger.Debug().
		Str(cflog.FieldPath, rt.cfg.Database.Path).
		Str(cflog.FieldDriver, rt.cfg.Database.Driver).
		Msg("database opened")

	rt.store = st
	rt.engine = rt.newEngine()
	return nil
}

// newEngine builds an engine over the open store with the runtime's table,
// guards and logger. opts are applied after those defaults.
func (rt *runtime) newEngine(opts ...engine.Option) *engine.Engine {
	opts = append([]engine.Option{
		engine.WithLogger(cflog.WithComponent(rt.logger, "engine")),
	}, opts...)
	return engine.New(rt.store, rt.table, rt.guards, opts...)
}

// Close releases the database, if open.
func (rt *runtime) Close() error {
	if rt.store == nil {
		return nil
	}
	return rt.store.Close()
}

// openRuntime is newRuntime followed by openStore.
func openRuntime(opts *RootOptions, cmd *cobra.Command) (*runtime, error) {
	rt, err := newRuntime(opts, cmd)
	if err != nil {
		return nil, err
	}
	if err := rt.openStore(); err != nil {
		return nil, err
	}
	return rt, nil
}
