// Package configcmder provides the config command for managing persistent
// engram configuration stored in the .engram/ directory.
package configcmder

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/engram/pkg/cliui"
	"github.com/papercomputeco/engram/pkg/config"
)

const configLongDesc string = `Manage persistent engram configuration.

Configuration lives in .engram/config.toml and supplies the defaults for
command flags. Flags and ENGRAM_* environment variables win over it.

Keys use dotted notation matching the TOML sections. Run
"engram config list" to see all of them with their current values.

Examples:
  engram config set user.name Brianna
  engram config set recall.max_results 5
  engram config unset recall.max_results
  engram config get embedding.provider
  engram config list --json`

const configShortDesc string = "Manage persistent engram configuration"

func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: configShortDesc,
		Long:  configLongDesc,
	}

	cmd.AddCommand(newSetCmd(), newUnsetCmd(), newGetCmd(), newListCmd())

	return cmd
}

// open resolves the Configer for the --config-dir inherited from the root
// command, if any.
func open(cmd *cobra.Command, key string) (*config.Configer, error) {
	if key != "" && !config.IsValidConfigKey(key) {
		return nil, fmt.Errorf("unknown config key: %q\n\nValid keys: %s",
			key, strings.Join(config.ValidConfigKeys(), ", "))
	}

	dir, _ := cmd.Flags().GetString("config-dir")
	cfger, err := config.NewConfiger(dir)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return cfger, nil
}

func completeKey(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
	if len(args) > 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	return config.ValidConfigKeys(), cobra.ShellCompDirectiveNoFileComp
}

func printSource(w io.Writer, cfger *config.Configer) {
	path := cfger.Path()
	if path == "" {
		fmt.Fprintf(w, "\n  %s\n\n", cliui.DimStyle.Render("No config file found. Using defaults."))
		return
	}
	fmt.Fprintf(w, "\n  %s %s\n\n", cliui.KeyStyle.Render("Config file:"), cliui.DimStyle.Render(path))
}

func printValue(w io.Writer, key, value string, pad int) {
	rendered := cliui.ValueStyle.Render(value)
	if value == "" {
		rendered = cliui.DimStyle.Render("<not set>")
	}
	fmt.Fprintf(w, "  %s  %s\n", cliui.KeyStyle.Render(fmt.Sprintf("%-*s", pad, key)), rendered)
}
