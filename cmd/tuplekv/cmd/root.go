/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ssargent/tuplekv/pkg/config"
	"github.com/ssargent/tuplekv/pkg/index"
	"github.com/ssargent/tuplekv/pkg/observability"
	"github.com/ssargent/tuplekv/pkg/storage"
)

type envKey struct{}

// env is what PersistentPreRunE hands to subcommands.
type env struct {
	cfg        *config.Config
	configPath string
	logger     *zap.Logger
}

func envFrom(cmd *cobra.Command) *env {
	if e, ok := cmd.Context().Value(envKey{}).(*env); ok {
		return e
	}
	return &env{cfg: config.DefaultConfig(), logger: zap.NewNop()}
}

// openStore opens the configured store. Callers close it.
func (e *env) openStore() (*storage.Store, error) {
	if err := os.MkdirAll(e.cfg.DataDir, 0750); err != nil {
		return nil, errors.Wrap(err, "failed to create data dir")
	}
	return storage.Open(storage.Options{
		Engine:    e.cfg.Engine,
		DataDir:   e.cfg.DataDir,
		Sync:      e.cfg.Sync,
		Namespace: e.cfg.Namespace,
		Logger:    e.logger,
	})
}

// indexes returns a manager with the configured fields registered, or nil
// when no fields are configured.
func (e *env) indexes(store *storage.Store) *index.Manager {
	if len(e.cfg.Indexes) == 0 {
		return nil
	}
	m := index.NewManager(store, e.logger)
	for _, f := range e.cfg.Indexes {
		m.GetOrCreateIndex(f)
	}
	return m
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "tuplekv",
		Short: "tuplekv - ordered tuple key-value store",
		Long: `tuplekv stores values under typed tuple keys. Keys are encoded with an
order-preserving binary codec, so range scans over a tuple prefix return
entries in the natural order of their elements.

Tuples are written in text form, for example:
  ("users", 42)
  ("events", 2024, uuid(6ba7b810-9dad-11d1-80b4-00c04fd430c8))
  (b"\x00\xff", f32(1.5), nil, true)`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEnv(cmd)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			cmd.SetContext(context.WithValue(ctx, envKey{}, e))
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = envFrom(cmd).logger.Sync()
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.String("config", "", "Path to config file (default: OS-specific location)")
	flags.StringP("data-dir", "d", "./data", "Data directory for the store")
	flags.String("engine", "pebble", "Storage engine: pebble, badger or bitcask")
	flags.String("log-level", "", "Log level: debug, info, warn, error")

	rootCmd.AddCommand(
		newEncodeCmd(),
		newDecodeCmd(),
		newPutCmd(),
		newGetCmd(),
		newDeleteCmd(),
		newScanCmd(),
		newCreateCmd(),
		newQueryCmd(),
		newServeCmd(),
		newInitCmd(),
	)
	return rootCmd
}

func loadEnv(cmd *cobra.Command) (*env, error) {
	flags := cmd.Flags()
	configPath, _ := flags.GetString("config")
	if configPath == "" {
		configPath = config.GetDefaultConfigPath()
	}

	cfg := config.DefaultConfig()
	if config.ConfigExists(configPath) {
		loaded, err := config.LoadConfig(configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	// Flags override the config file only when set explicitly.
	if flags.Changed("data-dir") {
		cfg.DataDir, _ = flags.GetString("data-dir")
	}
	if flags.Changed("engine") {
		cfg.Engine, _ = flags.GetString("engine")
	}
	if flags.Changed("log-level") {
		cfg.Logging.Level, _ = flags.GetString("log-level")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger, err := observability.SetupLogger(cfg.Logging)
	if err != nil {
		return nil, errors.Wrap(err, "failed to set up logging")
	}
	return &env{cfg: cfg, configPath: configPath, logger: logger}, nil
}

// Execute runs the root command. This is called by main.main().
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
