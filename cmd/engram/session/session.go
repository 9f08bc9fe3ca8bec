// Package sessioncmder provides the session commands driving a persisted
// conversation turn by turn. engram does not call the model itself: prepare
// prints the messages to send, complete records the model's reply.
package sessioncmder

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/engram/cmd/engram/backend"
	"github.com/papercomputeco/engram/pkg/cliui"
	"github.com/papercomputeco/engram/pkg/config"
	"github.com/papercomputeco/engram/pkg/dotdir"
	"github.com/papercomputeco/engram/pkg/logger"
	"github.com/papercomputeco/engram/pkg/memory"
	"github.com/papercomputeco/engram/pkg/prompt"
	"github.com/papercomputeco/engram/pkg/session"
)

// Components are what a session needs from the memory backend.
type Components struct {
	Store     session.Storer
	Truncator session.Truncator
	Enhancer  prompt.Enhancer
	Close     func() error
}

// Opener builds the Components for a resolved config.
type Opener func(ctx context.Context, cfg *config.Config, configDir string, log *slog.Logger) (*Components, error)

type sessionCommander struct {
	open      Opener
	configDir string
	debug     bool

	cfg    *config.Config
	ddm    *dotdir.Manager
	in     io.Reader
	out    io.Writer
	logger *slog.Logger
}

var sessionFlagKeys = append([]string{
	config.FlagUser,
	config.FlagAssistant,
	config.FlagMaxResults,
	config.FlagMinSimilarity,
	config.FlagMaxTokens,
	config.FlagSourceDir,
}, config.BackendFlags...)

const sessionLongDesc string = `Drive a memory-backed conversation one turn at a time.

The conversation history is kept in .engram/session.json. A turn has two
steps:

  engram session prepare <prompt>    Enhance the prompt with memory, append it,
                                     trim the history to the token budget and
                                     print the messages to send to the model.
  engram session complete <reply>    Record the model's reply and store the
                                     turn in memory. Use "-" to read the reply
                                     from stdin.

If the model call fails, "engram session abort" drops the prepared prompt so
it can be retried. "engram session reset" starts over.

Examples:
  engram session prepare "What is my dog called?" | jq .messages
  my-llm-client < request.json | engram session complete -
  engram session show`

const sessionShortDesc string = "Drive a memory-backed conversation"

func NewSessionCmd() *cobra.Command {
	return newSessionCmd(openBackend)
}

func newSessionCmd(open Opener) *cobra.Command {
	cmder := &sessionCommander{
		open: open,
		ddm:  dotdir.NewManager(),
	}

	cmd := &cobra.Command{
		Use:   "session",
		Short: sessionShortDesc,
		Long:  sessionLongDesc,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.cfg, err = config.FromCommand(cmd, sessionFlagKeys)
			if err != nil {
				return err
			}
			cmder.configDir, _ = cmd.Flags().GetString("config-dir")
			cmder.debug, _ = cmd.Flags().GetBool("debug")
			cmder.in = cmd.InOrStdin()
			cmder.out = cmd.OutOrStdout()
			cmder.logger = logger.NewCLI(cmd.ErrOrStderr(), cmder.debug)
			return nil
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "prepare <prompt>",
		Short: "Add a user prompt and print the messages to send",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmder.prepare(cmd.Context(), args[0])
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "complete <reply|->",
		Short: "Record the model reply and store the turn",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmder.complete(cmd.Context(), args[0])
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "abort",
		Short: "Drop the prepared prompt after a failed model call",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmder.abort(cmd.Context())
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "reset",
		Short: "Clear the conversation history",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return cmder.reset()
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the conversation history",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return cmder.show()
		},
	})

	for _, sub := range cmd.Commands() {
		config.AddRegisteredFlags(sub, config.Flags, sessionFlagKeys)
	}

	return cmd
}

func (c *sessionCommander) prepare(ctx context.Context, userText string) error {
	return c.withSession(ctx, func(s *session.Session) error {
		turn, err := s.Prepare(ctx, userText)
		if err != nil {
			return err
		}
		return c.printJSON(turn)
	})
}

func (c *sessionCommander) complete(ctx context.Context, reply string) error {
	if reply == "-" {
		data, err := io.ReadAll(c.in)
		if err != nil {
			return fmt.Errorf("reading reply: %w", err)
		}
		reply = strings.TrimRight(string(data), "\n")
	}

	return c.withSession(ctx, func(s *session.Session) error {
		result, err := s.Complete(ctx, reply)
		if err != nil {
			return err
		}

		switch result.Status {
		case memory.StatusFailed:
			// the history is still saved; only the memory write failed
			fmt.Fprintf(c.out, "  %s %s\n", cliui.FailMark, cliui.DimStyle.Render("turn not stored: "+result.Err.Error()))
		case memory.StatusSkipped:
			fmt.Fprintf(c.out, "  %s\n", cliui.DimStyle.Render("reply not recorded"))
		default:
			fmt.Fprintf(c.out, "  %s %s %s\n", cliui.SuccessMark,
				cliui.KeyStyle.Render("stored turn"),
				cliui.ValueStyle.Render(result.Timestamp),
			)
		}
		return nil
	})
}

func (c *sessionCommander) abort(ctx context.Context) error {
	return c.withSession(ctx, func(s *session.Session) error {
		if !s.Abort() {
			fmt.Fprintf(c.out, "  %s\n", cliui.DimStyle.Render("no turn pending"))
			return nil
		}
		fmt.Fprintf(c.out, "  %s %s\n", cliui.SuccessMark, "dropped the pending prompt")
		return nil
	})
}

func (c *sessionCommander) reset() error {
	if err := c.ddm.ClearSessionState(c.configDir); err != nil {
		return err
	}
	fmt.Fprintf(c.out, "  %s %s\n", cliui.SuccessMark, "session cleared")
	return nil
}

func (c *sessionCommander) show() error {
	state, err := c.ddm.LoadSessionState(c.configDir)
	if err != nil {
		return err
	}
	if state == nil {
		state = &dotdir.SessionState{}
	}
	return c.printJSON(state)
}

// withSession restores the persisted session, runs fn and saves the result.
// Nothing is saved when fn fails.
func (c *sessionCommander) withSession(ctx context.Context, fn func(*session.Session) error) error {
	state, err := c.ddm.LoadSessionState(c.configDir)
	if err != nil {
		return err
	}
	if state == nil {
		state = &dotdir.SessionState{}
	}

	comps, err := c.open(ctx, c.cfg, c.configDir, c.logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := comps.Close(); err != nil {
			c.logger.Error("closing backend", "error", err)
		}
	}()

	s, err := session.New(session.Config{
		UserName:      c.cfg.User.Name,
		AssistantName: c.cfg.Assistant.Name,
		SystemPrompt:  c.cfg.Assistant.SystemPrompt,
		MaxTokens:     c.cfg.History.MaxTokens,
		Enhancer:      comps.Enhancer,
		Store:         comps.Store,
		Truncator:     comps.Truncator,
		History:       state.Messages,
		PendingPrompt: state.PendingPrompt,
		Logger:        c.logger,
	})
	if err != nil {
		return err
	}

	if err := fn(s); err != nil {
		return err
	}

	return c.ddm.SaveSessionState(&dotdir.SessionState{
		Messages:      s.History(),
		PendingPrompt: s.Pending(),
	}, c.configDir)
}

func (c *sessionCommander) printJSON(v any) error {
	enc := json.NewEncoder(c.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func openBackend(ctx context.Context, cfg *config.Config, configDir string, log *slog.Logger) (*Components, error) {
	b, err := backend.Open(ctx, backend.Options{
		Config:    cfg,
		ConfigDir: configDir,
		Logger:    log,
		History:   true,
	})
	if err != nil {
		return nil, err
	}
	return &Components{
		Store:     b.Store,
		Truncator: b.Truncator,
		Enhancer:  b.Assembler,
		Close:     b.Close,
	}, nil
}
