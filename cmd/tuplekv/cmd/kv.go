package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ssargent/tuplekv/pkg/tuple"
	"github.com/ssargent/tuplekv/pkg/tuple/textrep"
)

func newPutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "put <tuple> <value>",
		Short: "Put a value under a tuple key",
		Long: `Put a value under a tuple key. JSON values are added to the configured
secondary indexes.

Example:
  tuplekv put '("users", 42)' '{"name":"alice","age":31}'`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := textrep.Parse(args[0])
			if err != nil {
				return err
			}
			value := []byte(args[1])

			e := envFrom(cmd)
			kv, err := e.openStore()
			if err != nil {
				return err
			}
			defer kv.Close()

			indexes := e.indexes(kv)
			var old []byte
			if indexes != nil {
				old, _ = kv.Get(key)
			}

			if err := kv.Put(key, value); err != nil {
				return err
			}

			if old != nil {
				_ = indexes.RemoveDocument(key, old)
			}
			if indexes != nil && json.Valid(value) {
				if err := indexes.IndexDocument(key, value); err != nil {
					e.logger.Warn("index document failed", zap.Stringer("key", key), zap.Error(err))
				}
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Successfully put key %s\n", key)
			return nil
		},
	}
}

func newGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <tuple>",
		Short: "Get the value for a tuple key",
		Long: `Get the value stored under a tuple key.

Example:
  tuplekv get '("users", 42)'`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := textrep.Parse(args[0])
			if err != nil {
				return err
			}

			kv, err := envFrom(cmd).openStore()
			if err != nil {
				return err
			}
			defer kv.Close()

			value, err := kv.Get(key)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\n", value)
			return nil
		},
	}
}

func newDeleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <tuple>",
		Short: "Delete a tuple key",
		Long: `Delete a tuple key, or with --prefix every key inside the tuple prefix.

Examples:
  tuplekv delete '("users", 42)'
  tuplekv delete --prefix '("sessions")'`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := textrep.Parse(args[0])
			if err != nil {
				return err
			}

			e := envFrom(cmd)
			kv, err := e.openStore()
			if err != nil {
				return err
			}
			defer kv.Close()

			if prefix, _ := cmd.Flags().GetBool("prefix"); prefix {
				if err := kv.ClearPrefix(key); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Successfully cleared prefix %s\n", key)
				return nil
			}

			indexes := e.indexes(kv)
			var old []byte
			if indexes != nil {
				old, _ = kv.Get(key)
			}
			if err := kv.Delete(key); err != nil {
				return err
			}
			if old != nil {
				_ = indexes.RemoveDocument(key, old)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Successfully deleted key %s\n", key)
			return nil
		},
	}
	cmd.Flags().Bool("prefix", false, "Delete every key inside the tuple prefix")
	return cmd
}

func newScanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan [prefix]",
		Short: "List keys inside a tuple prefix in order",
		Long: `List the entries inside a tuple prefix in key order. Without a prefix
every entry is listed.

Example:
  tuplekv scan '("users")' --limit 10`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			prefix := tuple.New()
			if len(args) == 1 {
				var err error
				if prefix, err = textrep.Parse(args[0]); err != nil {
					return err
				}
			}
			limit, _ := cmd.Flags().GetInt("limit")
			keysOnly, _ := cmd.Flags().GetBool("keys-only")

			kv, err := envFrom(cmd).openStore()
			if err != nil {
				return err
			}
			defer kv.Close()

			kvs, err := kv.Scan(prefix, limit)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, entry := range kvs {
				if keysOnly {
					fmt.Fprintln(out, entry.Key)
					continue
				}
				fmt.Fprintf(out, "%s\t%s\n", entry.Key, entry.Value)
			}
			return nil
		},
	}
	cmd.Flags().Int("limit", 0, "Maximum number of entries (0 for all)")
	cmd.Flags().Bool("keys-only", false, "Print keys without values")
	return cmd
}

func newCreateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "create <prefix> <value>",
		Short: "Store a value under a prefix with a generated id",
		Long: `Store a value under the prefix extended with a new KSUID. KSUIDs sort by
creation time, so scans over the prefix are roughly chronological.

Example:
  tuplekv create '("events")' 'user signed in'`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			prefix, err := textrep.Parse(args[0])
			if err != nil {
				return err
			}

			kv, err := envFrom(cmd).openStore()
			if err != nil {
				return err
			}
			defer kv.Close()

			id, err := kv.Create(prefix, []byte(args[1]))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), id.String())
			return nil
		},
	}
}
