// Package truncatecmder provides the truncate command fitting a conversation
// history into a token budget.
package truncatecmder

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/engram/pkg/config"
	"github.com/papercomputeco/engram/pkg/history"
	"github.com/papercomputeco/engram/pkg/llm"
	"github.com/papercomputeco/engram/pkg/logger"
)

type truncateCommander struct {
	file     string
	debug    bool
	encoding string

	cfg     *config.Config
	in      io.Reader
	out     io.Writer
	errOut  io.Writer
	encoder history.Encoder
}

// Output is what truncate prints.
type Output struct {
	Messages []llm.Message `json:"messages"`
	Tokens   int           `json:"tokens"`
	Removed  int           `json:"removed"`
	Stalled  bool          `json:"stalled"`
}

var truncateFlagKeys = []string{
	config.FlagMaxTokens,
}

const truncateLongDesc string = `Fit a conversation history into a token budget.

Reads a JSON array of {"role", "content"} messages from stdin (or --file) and
prints the trimmed history as JSON. The oldest messages after the system
message are dropped two at a time until the history fits. A history that
cannot be brought under budget is printed with "stalled": true.

Examples:
  cat history.json | engram truncate --max-tokens 2000
  engram truncate --file history.json`

const truncateShortDesc string = "Fit a conversation history into a token budget"

func NewTruncateCmd() *cobra.Command {
	return newTruncateCmd(nil)
}

// newTruncateCmd builds the command with a fixed encoder; nil loads the
// configured tiktoken encoding.
func newTruncateCmd(encoder history.Encoder) *cobra.Command {
	cmder := &truncateCommander{encoder: encoder}

	cmd := &cobra.Command{
		Use:   "truncate",
		Short: truncateShortDesc,
		Long:  truncateLongDesc,
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.cfg, err = config.FromCommand(cmd, truncateFlagKeys)
			return err
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmder.debug, _ = cmd.Flags().GetBool("debug")
			cmder.in = cmd.InOrStdin()
			cmder.out = cmd.OutOrStdout()
			cmder.errOut = cmd.ErrOrStderr()

			return cmder.run()
		},
	}

	config.AddRegisteredFlags(cmd, config.Flags, truncateFlagKeys)
	cmd.Flags().StringVarP(&cmder.file, "file", "f", "", "Read the history from a file instead of stdin")
	cmd.Flags().StringVar(&cmder.encoding, "encoding", "", "Tiktoken encoding (default: history.encoding from config)")

	return cmd
}

func (c *truncateCommander) run() error {
	log := logger.NewCLI(c.errOut, c.debug)

	in := c.in
	if c.file != "" {
		f, err := os.Open(c.file)
		if err != nil {
			return fmt.Errorf("opening history: %w", err)
		}
		defer f.Close()
		in = f
	}

	var msgs []llm.Message
	if err := json.NewDecoder(in).Decode(&msgs); err != nil {
		return fmt.Errorf("decoding history: %w", err)
	}

	encoder := c.encoder
	if encoder == nil {
		encoding := c.encoding
		if encoding == "" {
			encoding = c.cfg.History.Encoding
		}
		var err error
		encoder, err = history.NewTiktokenEncoder(encoding)
		if err != nil {
			return err
		}
	}

	truncator, err := history.NewTruncator(history.Config{Encoder: encoder, Logger: log})
	if err != nil {
		return err
	}

	out, tokens, err := truncator.Truncate(msgs, c.cfg.History.MaxTokens)
	stalled := errors.Is(err, history.ErrTruncationStalled)
	if err != nil && !stalled {
		return err
	}
	if out == nil {
		out = []llm.Message{}
	}

	enc := json.NewEncoder(c.out)
	enc.SetIndent("", "  ")
	return enc.Encode(Output{
		Messages: out,
		Tokens:   tokens,
		Removed:  len(msgs) - len(out),
		Stalled:  stalled,
	})
}
