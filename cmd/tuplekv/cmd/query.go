package cmd

import (
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/ssargent/tuplekv/pkg/index"
	"github.com/ssargent/tuplekv/pkg/tuple/textrep"
)

func newQueryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "query <field> <op> <value>",
		Short: "Find keys by an indexed JSON field",
		Long: `Find the keys whose JSON value has a field matching the condition. The
field must be listed under indexes in the config file. op is one of
=, >, <, >=, <= and value is a single element in text form.

Example:
  tuplekv query age '>=' 30`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			value, err := textrep.Parse("(" + args[2] + ")")
			if err != nil {
				return err
			}
			if value.Len() != 1 {
				return errors.Newf("value must be a single element, got %d", value.Len())
			}
			v, _ := value.At(0)

			e := envFrom(cmd)
			kv, err := e.openStore()
			if err != nil {
				return err
			}
			defer kv.Close()

			indexes := e.indexes(kv)
			if indexes == nil {
				return errors.New("no indexes configured")
			}
			keys, err := indexes.Query(index.FieldQuery{Field: args[0], Operator: args[1], Value: v})
			if err != nil {
				return err
			}
			for _, k := range keys {
				fmt.Fprintln(cmd.OutOrStdout(), k)
			}
			return nil
		},
	}
}
