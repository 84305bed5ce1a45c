/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"os/signal"
	"syscall"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ssargent/tuplekv/pkg/api"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the REST API server",
		Long: `Start the tuplekv REST API server. The API key comes from --api-key or
the config file written by 'tuplekv init'.

Examples:
  tuplekv serve
  tuplekv serve --api-key=mysecretkey --port=9000`,
		RunE: func(cmd *cobra.Command, args []string) error {
			e := envFrom(cmd)
			cfg := e.cfg

			flags := cmd.Flags()
			if flags.Changed("port") {
				cfg.Port, _ = flags.GetInt("port")
			}
			if flags.Changed("bind") {
				cfg.Bind, _ = flags.GetString("bind")
			}
			if flags.Changed("api-key") {
				cfg.Security.APIKey, _ = flags.GetString("api-key")
			}
			if cfg.Security.APIKey == "" || cfg.Security.APIKey == "auto" {
				return errors.New("an API key is required: pass --api-key or run 'tuplekv init'")
			}

			kv, err := e.openStore()
			if err != nil {
				return err
			}
			defer kv.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			e.logger.Info("serving",
				zap.String("data_dir", cfg.DataDir),
				zap.String("engine", cfg.Engine),
				zap.Strings("indexes", cfg.Indexes))

			return api.StartServer(ctx, kv, e.indexes(kv), api.ServerConfig{
				Port:           cfg.Port,
				Bind:           cfg.Bind,
				APIKey:         cfg.Security.APIKey,
				AllowedOrigins: cfg.Security.AllowedOrigins,
				MaxValueSize:   int64(cfg.Security.MaxValueSize),
			}, e.logger)
		},
	}

	cmd.Flags().IntP("port", "p", 8080, "Port to listen on")
	cmd.Flags().String("bind", "127.0.0.1", "Address to bind server to")
	cmd.Flags().String("api-key", "", "API key required in the X-API-Key header")
	return cmd
}
