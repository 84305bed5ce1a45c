package cmd

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/ssargent/tuplekv/pkg/tuple"
	"github.com/ssargent/tuplekv/pkg/tuple/textrep"
)

func newEncodeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "encode <tuple>",
		Short: "Encode a tuple and print its bytes as hex",
		Long: `Encode a tuple given in text form and print the encoding as hex.

Example:
  tuplekv encode '("users", 42)'`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := textrep.Parse(args[0])
			if err != nil {
				return err
			}
			enc := t.Encode()
			if spaced, _ := cmd.Flags().GetBool("spaced"); spaced {
				parts := make([]string, len(enc))
				for i, b := range enc {
					parts[i] = fmt.Sprintf("%02x", b)
				}
				fmt.Fprintln(cmd.OutOrStdout(), strings.Join(parts, " "))
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), hex.EncodeToString(enc))
			return nil
		},
	}
	cmd.Flags().Bool("spaced", false, "Separate bytes with spaces")
	return cmd
}

func newDecodeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "decode <hex>",
		Short: "Decode hex bytes into a tuple",
		Long: `Decode a hex encoded tuple and print its text form.

Examples:
  tuplekv decode 02757365727300152a
  tuplekv decode --verbose "02 75 73 65 72 73 00 15 2a"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			h := strings.TrimPrefix(strings.Join(strings.Fields(strings.Join(args, " ")), ""), "0x")
			raw, err := hex.DecodeString(h)
			if err != nil {
				return errors.Wrap(err, "invalid hex")
			}
			t, err := tuple.Decode(raw)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, t.String())
			if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
				printElements(cmd, t, "  ")
			}
			return nil
		},
	}
	cmd.Flags().BoolP("verbose", "v", false, "Print each element with its kind")
	return cmd
}

func printElements(cmd *cobra.Command, t tuple.Tuple, indent string) {
	for i, e := range t.Elements() {
		fmt.Fprintf(cmd.OutOrStdout(), "%s[%d] %-7s %s\n", indent, i, e.Kind(), e)
		if nested, ok := e.(tuple.Tuple); ok {
			printElements(cmd, nested, indent+"  ")
		}
	}
}
