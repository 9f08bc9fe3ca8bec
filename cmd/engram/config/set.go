package configcmder

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/engram/pkg/cliui"
)

const setLongDesc string = `Set a configuration value.

The whole config is validated before it is written, so an out-of-range
value is rejected and config.toml stays as it was.

Examples:
  engram config set user.name Brianna
  engram config set vector_store.provider chroma
  engram config set embedding.dimensions 768
  engram config set recall.min_similarity 0.3`

const unsetLongDesc string = `Reset a configuration value to its default.

Examples:
  engram config unset recall.min_similarity
  engram config unset events.target`

func newSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:               "set <key> <value>",
		Short:             "Set a configuration value",
		Long:              setLongDesc,
		Args:              cobra.ExactArgs(2),
		ValidArgsFunction: completeKey,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfger, err := open(cmd, args[0])
			if err != nil {
				return err
			}
			if err := cfger.SetConfigValue(args[0], args[1]); err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			printSource(w, cfger)
			fmt.Fprintf(w, "  %s Set %s = %s\n\n",
				cliui.SuccessMark, cliui.KeyStyle.Render(args[0]), cliui.ValueStyle.Render(args[1]))
			return nil
		},
	}
}

func newUnsetCmd() *cobra.Command {
	return &cobra.Command{
		Use:               "unset <key>",
		Short:             "Reset a configuration value to its default",
		Long:              unsetLongDesc,
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: completeKey,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfger, err := open(cmd, args[0])
			if err != nil {
				return err
			}
			if err := cfger.UnsetConfigValue(args[0]); err != nil {
				return err
			}

			value, err := cfger.GetConfigValue(args[0])
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			printSource(w, cfger)
			fmt.Fprintf(w, "  %s Reset %s\n", cliui.SuccessMark, cliui.KeyStyle.Render(args[0]))
			printValue(w, args[0], value, 0)
			fmt.Fprintln(w)
			return nil
		},
	}
}
