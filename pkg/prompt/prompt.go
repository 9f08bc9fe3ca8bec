// Package prompt augments user prompts with recalled memory and referenced
// source files before they are sent to the model.
package prompt

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"github.com/papercomputeco/engram/pkg/logger"
	"github.com/papercomputeco/engram/pkg/memory"
)

// DefaultSourceDir is the directory referenced .py files are read from.
const DefaultSourceDir = "expansive"

// Enhancer turns a raw user prompt into the prompt sent to the model.
type Enhancer interface {
	EnhancePrompt(ctx context.Context, raw string) string
}

// Recaller is the memory capability the Assembler needs. *memory.Recaller
// satisfies it.
type Recaller interface {
	Recall(ctx context.Context, query string, opts memory.Options) []memory.Record
}

// Config configures an Assembler.
type Config struct {
	Recaller Recaller

	// SourceDir is where referenced files are looked up. Ignored when
	// SourceFS is set. Defaults to DefaultSourceDir.
	SourceDir string

	// SourceFS overrides the filesystem referenced files are read from.
	SourceFS fs.FS

	// Recall tunes memory lookups. MaxResults defaults to 3.
	Recall memory.Options

	Logger *slog.Logger
}

// Assembler is the default Enhancer: it inlines referenced files and
// prepends recalled memory.
type Assembler struct {
	recaller  Recaller
	sourceDir string
	source    fs.FS
	opts      memory.Options
	logger    *slog.Logger
}

// Enhancement is the full output of an Assembler run.
type Enhancement struct {
	// Prompt is the final prompt text.
	Prompt string

	// Files lists referenced file names in order of appearance.
	Files []string

	// Records are the memory records included as context.
	Records []memory.Record
}

// NewAssembler creates an Assembler.
func NewAssembler(c Config) (*Assembler, error) {
	if c.Recaller == nil {
		return nil, fmt.Errorf("prompt assembler requires a recaller")
	}

	dir := c.SourceDir
	if dir == "" {
		dir = DefaultSourceDir
	}
	source := c.SourceFS
	if source == nil {
		source = os.DirFS(dir)
	}

	opts := c.Recall
	if opts.MaxResults <= 0 {
		opts = memory.DefaultOptions()
	}

	return &Assembler{
		recaller:  c.Recaller,
		sourceDir: dir,
		source:    source,
		opts:      opts,
		logger:    logger.OrNop(c.Logger),
	}, nil
}

// EnhancePrompt implements Enhancer.
func (a *Assembler) EnhancePrompt(ctx context.Context, raw string) string {
	return a.Assemble(ctx, raw).Prompt
}

// Assemble builds the enhanced prompt. Memory is recalled with the raw
// prompt, not the file-expanded one.
func (a *Assembler) Assemble(ctx context.Context, raw string) Enhancement {
	withFiles, files := a.inlineFiles(raw)
	if len(files) > 0 {
		a.logger.Info("included referenced files", "files", files, "dir", a.sourceDir)
	}

	records := a.recaller.Recall(ctx, raw, a.opts)
	if len(records) > 0 {
		a.logger.Info("found relevant past conversations", "count", len(records))
	}

	return Enhancement{
		Prompt:  Render(FormatContext(records), withFiles),
		Files:   files,
		Records: records,
	}
}

// Render fills the final prompt template.
func Render(context, prompt string) string {
	return "If applicable, use the following to assist in answering the user instruction:" +
		context + " \n[INSTRUCTION]:\n " + prompt
}

// FormatContext renders recalled records as a context block. No records
// yields an empty string.
func FormatContext(records []memory.Record) string {
	if len(records) == 0 {
		return ""
	}

	lines := []string{"\n[CONTEXT]\n[Relevant history & memory results as [User][Timestamp][ChatHistory]:"}
	for _, r := range records {
		lines = append(lines,
			fmt.Sprintf("\n=== Similarity: %.2f ===", r.Score),
			r.FormattedContent,
		)
		if r.Metadata.ContentType == memory.ContentTypeResponse && r.Metadata.OriginalPrompt != "" {
			lines = append(lines, fmt.Sprintf("  (Context: In response to prompt starting with '%s')", r.Metadata.OriginalPrompt))
		}
	}
	return strings.Join(lines, "\n")
}
