package configcmder

import (
	"fmt"

	"github.com/spf13/cobra"
)

const getLongDesc string = `Print the effective value of one key.

Defaults are filled in for keys missing from config.toml. Use --raw to
print only the value, for scripts.

Examples:
  engram config get user.name
  engram config get --raw embedding.model`

func newGetCmd() *cobra.Command {
	var raw bool

	cmd := &cobra.Command{
		Use:               "get <key>",
		Short:             "Get a configuration value",
		Long:              getLongDesc,
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: completeKey,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfger, err := open(cmd, args[0])
			if err != nil {
				return err
			}

			value, err := cfger.GetConfigValue(args[0])
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if raw {
				fmt.Fprintln(w, value)
				return nil
			}

			printSource(w, cfger)
			printValue(w, args[0], value, 0)
			fmt.Fprintln(w)
			return nil
		},
	}

	cmd.Flags().BoolVar(&raw, "raw", false, "Print only the value")

	return cmd
}
