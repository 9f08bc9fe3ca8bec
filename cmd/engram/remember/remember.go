// Package remembercmder provides the remember command storing one
// conversation turn in engram memory.
package remembercmder

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/engram/cmd/engram/backend"
	"github.com/papercomputeco/engram/pkg/cliui"
	"github.com/papercomputeco/engram/pkg/config"
	"github.com/papercomputeco/engram/pkg/logger"
	"github.com/papercomputeco/engram/pkg/memory"
)

type rememberCommander struct {
	prompt    string
	response  string
	configDir string
	debug     bool

	cfg    *config.Config
	out    io.Writer
	errOut io.Writer
	logger *slog.Logger
}

var rememberFlagKeys = append([]string{
	config.FlagUser,
	config.FlagAssistant,
}, config.BackendFlags...)

const rememberLongDesc string = `Store one conversation turn in engram memory.

The prompt and response are split into overlapping sentence windows,
embedded and written to the configured vector store. Either side may be
empty, but not both.

Examples:
  engram remember "My dog is called Rex." "Rex is a great name for a dog."
  engram remember "Remind me I parked on level 3." "" --user Brianna`

const rememberShortDesc string = "Store a conversation turn in memory"

func NewRememberCmd() *cobra.Command {
	cmder := &rememberCommander{}

	cmd := &cobra.Command{
		Use:   "remember <prompt> <response>",
		Short: rememberShortDesc,
		Long:  rememberLongDesc,
		Args:  cobra.ExactArgs(2),
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.cfg, err = config.FromCommand(cmd, rememberFlagKeys)
			if err != nil {
				return err
			}
			cmder.configDir, _ = cmd.Flags().GetString("config-dir")
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cmder.prompt = args[0]
			cmder.response = args[1]
			cmder.debug, _ = cmd.Flags().GetBool("debug")
			cmder.out = cmd.OutOrStdout()
			cmder.errOut = cmd.ErrOrStderr()

			return cmder.run(cmd.Context())
		},
	}

	config.AddRegisteredFlags(cmd, config.Flags, rememberFlagKeys)

	return cmd
}

func (c *rememberCommander) run(ctx context.Context) error {
	c.logger = logger.NewCLI(c.errOut, c.debug)

	b, err := backend.Open(ctx, backend.Options{
		Config:    c.cfg,
		ConfigDir: c.configDir,
		Logger:    c.logger,
	})
	if err != nil {
		return err
	}
	defer b.Close()

	var result memory.StoreResult
	err = cliui.Step(c.out, "Storing turn", func() error {
		result = b.Store.StoreResponse(ctx, c.cfg.User.Name, c.cfg.Assistant.Name, c.prompt, c.response)
		return result.Err
	})
	if err != nil {
		return err
	}

	switch result.Status {
	case memory.StatusSkipped:
		fmt.Fprintf(c.out, "\n  %s\n\n", cliui.DimStyle.Render("Nothing to store: prompt and response are both empty."))
	default:
		fmt.Fprintf(c.out, "\n  %s %s\n  %s\n\n",
			cliui.KeyStyle.Render("Stored turn"),
			cliui.ValueStyle.Render(result.Timestamp),
			cliui.DimStyle.Render(fmt.Sprintf("%d prompt chunks, %d response chunks",
				len(result.PromptChunkIDs), len(result.ResponseChunkIDs))),
		)
	}

	return nil
}
