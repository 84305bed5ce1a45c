/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ssargent/tuplekv/pkg/config"
)

func newInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a config file with a generated API key",
		Long: `Create a configuration file with a freshly generated API key and make
sure the data directory exists.

Examples:
  tuplekv init
  tuplekv init --config ./tuplekv.yaml --data-dir ./data --print-key`,
		RunE: func(cmd *cobra.Command, args []string) error {
			e := envFrom(cmd)
			force, _ := cmd.Flags().GetBool("force")
			printKey, _ := cmd.Flags().GetBool("print-key")
			out := cmd.OutOrStdout()

			if config.ConfigExists(e.configPath) && !force {
				fmt.Fprintf(out, "Config already exists at %s. Use --force to overwrite.\n", e.configPath)
				return nil
			}

			cfg, err := config.BootstrapConfig(e.configPath, e.cfg.DataDir)
			if err != nil {
				return err
			}
			cfg.Engine = e.cfg.Engine
			if err := config.SaveConfig(cfg, e.configPath); err != nil {
				return err
			}
			if err := os.MkdirAll(cfg.DataDir, 0750); err != nil {
				return err
			}

			fmt.Fprintf(out, "Configuration created at %s\n", e.configPath)
			fmt.Fprintf(out, "Data directory: %s\n", cfg.DataDir)
			if printKey {
				fmt.Fprintf(out, "API key: %s\n", cfg.Security.APIKey)
			}
			return nil
		},
	}
	cmd.Flags().Bool("force", false, "Overwrite an existing config file")
	cmd.Flags().Bool("print-key", false, "Print the generated API key")
	return cmd
}
