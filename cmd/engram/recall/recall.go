// Package recallcmder provides the recall command for semantic lookups over
// stored conversation turns.
package recallcmder

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
	"github.com/papercomputeco/engram/pkg/logger"
	"github.com/papercomputeco/engram/pkg/memory"
	"github.com/papercomputeco/engram/pkg/utils"
)

type recallCommander struct {
	query     string
	jsonOut   bool
	quiet     bool
	configDir string
	debug     bool

	cfg    *config.Config
	out    io.Writer
	errOut io.Writer
	logger *slog.Logger
}

var recallFlagKeys = append([]string{
	config.FlagMaxResults,
	config.FlagMinSimilarity,
}, config.BackendFlags...)

const recallLongDesc string = `Recall past conversation turns relevant to a query.

Results are ordered by similarity, highest first. Records below the
similarity threshold and near-duplicates of better matches are dropped.

Use --quiet to print only the formatted records, one per line, or --json
for machine readable output.

Examples:
  engram recall "what is my dog called"
  engram recall "parking" -k 5 --min-similarity 0.1
  engram recall "parking" --json`

const recallShortDesc string = "Recall relevant past conversation"

func NewRecallCmd() *cobra.Command {
	cmder := &recallCommander{}

	cmd := &cobra.Command{
		Use:   "recall <query>",
		Short: recallShortDesc,
		Long:  recallLongDesc,
		Args:  cobra.ExactArgs(1),
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.cfg, err = config.FromCommand(cmd, recallFlagKeys)
			if err != nil {
				return err
			}
			cmder.configDir, _ = cmd.Flags().GetString("config-dir")
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cmder.query = args[0]
			cmder.debug, _ = cmd.Flags().GetBool("debug")
			cmder.out = cmd.OutOrStdout()
			cmder.errOut = cmd.ErrOrStderr()

			return cmder.run(cmd.Context())
		},
	}

	config.AddRegisteredFlags(cmd, config.Flags, recallFlagKeys)
	cmd.Flags().BoolVarP(&cmder.quiet, "quiet", "q", false, "Print only the formatted records")
	cmd.Flags().BoolVar(&cmder.jsonOut, "json", false, "Print results as JSON")

	return cmd
}

func (c *recallCommander) run(ctx context.Context) error {
	if strings.TrimSpace(c.query) == "" {
		return fmt.Errorf("query must not be empty")
	}

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

	records := b.Recaller.Recall(ctx, c.query, backend.RecallOptions(c.cfg))

	switch {
	case c.jsonOut:
		if records == nil {
			records = []memory.Record{}
		}
		enc := json.NewEncoder(c.out)
		enc.SetIndent("", "  ")
		return enc.Encode(records)

	case c.quiet:
		for _, r := range records {
			fmt.Fprintln(c.out, r.FormattedContent)
		}
		return nil
	}

	if len(records) == 0 {
		fmt.Fprintln(c.out, "No relevant memory found.")
		return nil
	}

	fmt.Fprintf(c.out, "\n%s %s\n\n",
		cliui.HeaderStyle.Render("Memory for:"),
		cliui.KeyStyle.Render(fmt.Sprintf("%q", c.query)),
	)
	for i, r := range records {
		c.printRecord(i+1, r)
	}

	return nil
}

func (c *recallCommander) printRecord(rank int, r memory.Record) {
	fmt.Fprintf(c.out, "  %s  %s  %s\n",
		cliui.RankStyle.Render(fmt.Sprintf("#%d", rank)),
		cliui.ScoreStyle.Render(fmt.Sprintf("similarity: %.2f", r.Score)),
		cliui.DimStyle.Render(fmt.Sprintf("%s %d/%d", r.Metadata.ContentType, r.Metadata.ChunkIndex+1, r.Metadata.TotalChunks)),
	)
	fmt.Fprintln(c.out, cliui.Wrap(cliui.ValueStyle.Render(r.FormattedContent), cliui.Width(c.out), "  "))

	if r.Metadata.ContentType == memory.ContentTypeResponse && r.Metadata.OriginalPrompt != "" {
		preview := strings.ReplaceAll(r.Metadata.OriginalPrompt, "\n", " ")
		fmt.Fprintf(c.out, "  %s\n", cliui.DimStyle.Render("in reply to: "+utils.Truncate(preview, 60)))
	}

	fmt.Fprintln(c.out)
}
