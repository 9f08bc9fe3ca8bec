// Package enhancecmder provides the enhance command printing the
// context-augmented version of a prompt.
package enhancecmder

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
)

type enhanceCommander struct {
	prompt    string
	render    bool
	configDir string
	debug     bool

	cfg    *config.Config
	out    io.Writer
	errOut io.Writer
	logger *slog.Logger
}

var enhanceFlagKeys = append([]string{
	config.FlagMaxResults,
	config.FlagMinSimilarity,
	config.FlagSourceDir,
}, config.BackendFlags...)

const enhanceLongDesc string = `Print the context-augmented version of a prompt.

Referenced .py files are read from the source directory and appended to the
prompt, and relevant past conversation is recalled and prepended as context.
The result is exactly what would be sent to the model as the user message.

Use --render to pretty print the result as markdown.

Examples:
  engram enhance "Why does utils.py fail on empty input?"
  engram enhance "What did I say about Rex?" --render
  engram enhance "Review main.py" --source-dir ./src`

const enhanceShortDesc string = "Build a context-augmented prompt"

func NewEnhanceCmd() *cobra.Command {
	cmder := &enhanceCommander{}

	cmd := &cobra.Command{
		Use:   "enhance <prompt>",
		Short: enhanceShortDesc,
		Long:  enhanceLongDesc,
		Args:  cobra.ExactArgs(1),
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.cfg, err = config.FromCommand(cmd, enhanceFlagKeys)
			if err != nil {
				return err
			}
			cmder.configDir, _ = cmd.Flags().GetString("config-dir")
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cmder.prompt = args[0]
			cmder.debug, _ = cmd.Flags().GetBool("debug")
			cmder.out = cmd.OutOrStdout()
			cmder.errOut = cmd.ErrOrStderr()

			return cmder.run(cmd.Context())
		},
	}

	config.AddRegisteredFlags(cmd, config.Flags, enhanceFlagKeys)
	cmd.Flags().BoolVarP(&cmder.render, "render", "r", false, "Render the prompt as markdown")

	return cmd
}

func (c *enhanceCommander) run(ctx context.Context) error {
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

	enhanced := b.Assembler.EnhancePrompt(ctx, c.prompt)
	if !c.render {
		fmt.Fprintln(c.out, enhanced)
		return nil
	}

	rendered, err := cliui.RenderMarkdown(enhanced)
	if err != nil {
		c.logger.Debug("markdown rendering failed, printing raw prompt", "error", err)
	}
	fmt.Fprint(c.out, rendered)
	return nil
}
