package configcmder

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

const listLongDesc string = `List every configuration key with its effective value.

Examples:
  engram config list
  engram config list --json`

func newListCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List all configuration values",
		Long:  listLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfger, err := open(cmd, "")
			if err != nil {
				return err
			}

			values, err := cfger.ConfigValues()
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(w)
				enc.SetIndent("", "  ")
				return enc.Encode(values)
			}

			pad := 0
			for _, kv := range values {
				pad = max(pad, len(kv.Key))
			}

			printSource(w, cfger)
			for _, kv := range values {
				printValue(w, kv.Key, kv.Value, pad)
			}
			fmt.Fprintln(w)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the values as a JSON array")

	return cmd
}
