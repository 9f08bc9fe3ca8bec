// Package engramcmder
package engramcmder

import (
	"github.com/spf13/cobra"

	configcmder "github.com/papercomputeco/engram/cmd/engram/config"
	enhancecmder "github.com/papercomputeco/engram/cmd/engram/enhance"
	initcmder "github.com/papercomputeco/engram/cmd/engram/init"
	recallcmder "github.com/papercomputeco/engram/cmd/engram/recall"
	remembercmder "github.com/papercomputeco/engram/cmd/engram/remember"
	servecmder "github.com/papercomputeco/engram/cmd/engram/serve"
	sessioncmder "github.com/papercomputeco/engram/cmd/engram/session"
	truncatecmder "github.com/papercomputeco/engram/cmd/engram/truncate"
	versioncmder "github.com/papercomputeco/engram/cmd/engram/version"
)

const engramLongDesc string = `Engram is semantic conversational memory.

Every completed exchange is split into overlapping sentence windows, embedded
and stored in a vector database. Later prompts recall the closest windows and
are rewritten with that context before they reach the model.

Common commands:
  engram init                     Create a local .engram/ directory
  engram remember <p> <r>         Store one prompt/response turn
  engram recall <query>           Search stored memory
  engram enhance <prompt>         Print a prompt enriched with recalled context
  engram session prepare <p>      Start a turn in the persisted conversation
  engram session complete <r>     Finish the turn and store it
  engram truncate                 Fit a JSON message history into a token budget
  engram serve                    Run the HTTP and MCP server`

const engramShortDesc string = "Engram - Semantic Conversational Memory"

func NewEngramCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "engram",
		Short:        engramShortDesc,
		Long:         engramLongDesc,
		SilenceUsage: true,
	}

	// Global flags
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("config-dir", "", "Override path to .engram/ config directory")

	cmd.AddCommand(initcmder.NewInitCmd())
	cmd.AddCommand(configcmder.NewConfigCmd())
	cmd.AddCommand(servecmder.NewServeCmd())
	cmd.AddCommand(remembercmder.NewRememberCmd())
	cmd.AddCommand(recallcmder.NewRecallCmd())
	cmd.AddCommand(enhancecmder.NewEnhanceCmd())
	cmd.AddCommand(truncatecmder.NewTruncateCmd())
	cmd.AddCommand(sessioncmder.NewSessionCmd())
	cmd.AddCommand(versioncmder.NewVersionCmd())

	return cmd
}
