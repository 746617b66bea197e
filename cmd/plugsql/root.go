package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/plugsql/plugsql/bridge"
	"github.com/plugsql/plugsql/catalog"
	"github.com/plugsql/plugsql/config"
	"github.com/plugsql/plugsql/sandbox"
	"github.com/plugsql/plugsql/secrets"
)

var (
	cfgFile string
	verbose bool
)

// rootCmd is the application entry point.
var rootCmd = &cobra.Command{
	Use:   "plugsql",
	Short: "Register sandboxed WASM plugins as SQL functions",
	Long: `plugsql bridges WASM plugins into a SQL function catalog. A plugin
declares its calling contract (entry point, parameter types, return type);
plugsql synthesizes a typed SQL function from that contract and runs every
call inside a sandbox with a memory ceiling, network and filesystem
allow-lists, a timeout, and injected secrets.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is built-in defaults plus PLUGSQL_* env)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

func newLogger() (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	return cfg.Build()
}

// runtime bundles everything a subcommand needs. Close releases the
// engine.
type runtime struct {
	cfg    *config.Config
	logger *zap.Logger
	bridge *bridge.Bridge
	engine catalog.Engine
	store  secrets.Store
	sqlite *catalog.SQLiteEngine // nil when the memory engine is selected
	memory *catalog.MemoryEngine // nil when the sqlite engine is selected
}

func (r *runtime) Close() {
	if r.sqlite != nil {
		_ = r.sqlite.Close()
	}
	_ = r.logger.Sync()
}

// newRuntime loads configuration and builds the engine, secret store and
// bridge.
func newRuntime(_ *cobra.Command) (*runtime, error) {
	logger, err := newLogger()
	if err != nil {
		return nil, err
	}

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}

	var (
		engine catalog.Engine
		sqlite *catalog.SQLiteEngine
		memory *catalog.MemoryEngine
	)
	switch cfg.Engine.Driver {
	case "sqlite":
		sqlite, err = catalog.NewSQLiteEngine(cfg.Engine.DSN, logger)
		if err != nil {
			return nil, err
		}
		engine = sqlite
	case "memory":
		memory = catalog.NewMemoryEngine(logger)
		engine = memory
	default:
		return nil, fmt.Errorf("unknown engine driver %q", cfg.Engine.Driver)
	}

	store, err := secrets.NewStore(cfg.Secrets.Backend)
	if err != nil {
		return nil, err
	}

	b, err := bridge.New(bridge.Options{
		Launcher:         bridge.WrapLauncher(sandbox.NewLauncher(logger)),
		Engine:           engine,
		Secrets:          store,
		SandboxDefaults:  cfg.SandboxDefaults(),
		SandboxOverrides: cfg.SandboxOverrides(),
		Logger:           logger,
	})
	if err != nil {
		return nil, err
	}

	return &runtime{
		cfg:    cfg,
		logger: logger,
		bridge: b,
		engine: engine,
		store:  store,
		sqlite: sqlite,
		memory: memory,
	}, nil
}

// bootstrap defines every plugin listed in the configuration. Scalar
// functions live in the process, not the database file, so configured
// plugins are re-defined on every start that runs statements.
func (r *runtime) bootstrap(ctx context.Context) error {
	for name, plugin := range r.cfg.Plugins {
		if err := r.bridge.Define(ctx, plugin.Locator, name); err != nil {
			return fmt.Errorf("defining configured plugin %s: %w", name, err)
		}
	}
	return nil
}
