package prompt_test

import (
	"context"
	"io/fs"
	"testing/fstest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/engram/pkg/memory"
	"github.com/papercomputeco/engram/pkg/prompt"
)

type stubRecaller struct {
	records   []memory.Record
	lastQuery string
	lastOpts  memory.Options
}

func (s *stubRecaller) Recall(_ context.Context, query string, opts memory.Options) []memory.Record {
	s.lastQuery = query
	s.lastOpts = opts
	return s.records
}

var _ = Describe("Assembler", func() {
	var (
		ctx      context.Context
		recaller *stubRecaller
		files    fstest.MapFS
		a        *prompt.Assembler
	)

	BeforeEach(func() {
		ctx = context.Background()
		recaller = &stubRecaller{}
		files = fstest.MapFS{
			"utils.py": {Data: []byte("def add(a, b):\n    return a + b")},
		}

		var err error
		a, err = prompt.NewAssembler(prompt.Config{
			Recaller: recaller,
			SourceFS: files,
		})
		Expect(err).NotTo(HaveOccurred())
	})

	It("requires a recaller", func() {
		_, err := prompt.NewAssembler(prompt.Config{})
		Expect(err).To(HaveOccurred())
	})

	It("renders the template with an empty context when nothing is recalled", func() {
		out := a.EnhancePrompt(ctx, "What time is it?")
		Expect(out).To(Equal("If applicable, use the following to assist in answering the user instruction: \n[INSTRUCTION]:\n What time is it?"))
	})

	It("recalls with the raw prompt and default options", func() {
		a.EnhancePrompt(ctx, "Explain utils.py")
		Expect(recaller.lastQuery).To(Equal("Explain utils.py"))
		Expect(recaller.lastOpts).To(Equal(memory.DefaultOptions()))
	})

	It("renders recalled records as context blocks", func() {
		recaller.records = []memory.Record{
			{
				FormattedContent: "Sam[2025-01-01T00:00:00.000000]: I like tea.",
				Metadata:         memory.ChunkMetadata{ContentType: memory.ContentTypePrompt},
				Score:            0.874,
			},
			{
				FormattedContent: "Engram[2025-01-01T00:00:00.000000]: Tea is great.",
				Metadata: memory.ChunkMetadata{
					ContentType:    memory.ContentTypeResponse,
					OriginalPrompt: "I like tea.",
				},
				Score: 0.5,
			},
		}

		res := a.Assemble(ctx, "What do I drink?")
		Expect(res.Records).To(HaveLen(2))
		Expect(res.Prompt).To(HavePrefix("If applicable, use the following to assist in answering the user instruction:\n[CONTEXT]\n"))
		Expect(res.Prompt).To(ContainSubstring("\n=== Similarity: 0.87 ===\nSam[2025-01-01T00:00:00.000000]: I like tea."))
		Expect(res.Prompt).To(ContainSubstring("=== Similarity: 0.50 ===\nEngram[2025-01-01T00:00:00.000000]: Tea is great.\n  (Context: In response to prompt starting with 'I like tea.')"))
		Expect(res.Prompt).To(HaveSuffix(" \n[INSTRUCTION]:\n What do I drink?"))
	})

	It("omits the response note when the original prompt is empty", func() {
		recaller.records = []memory.Record{{
			FormattedContent: "Engram[t]: Sure.",
			Metadata:         memory.ChunkMetadata{ContentType: memory.ContentTypeResponse},
			Score:            0.3,
		}}
		Expect(a.EnhancePrompt(ctx, "q")).NotTo(ContainSubstring("(Context:"))
	})

	Describe("referenced files", func() {
		It("inlines files found in the source directory", func() {
			res := a.Assemble(ctx, "Review utils.py please")
			Expect(res.Files).To(Equal([]string{"utils.py"}))
			Expect(res.Prompt).To(HaveSuffix("Review utils.py please\n\n[The following Python files were detected in 'expansive' directory:]\nContent of utils.py:\n```python\ndef add(a, b):\n    return a + b\n```"))
		})

		It("notes missing files inline", func() {
			res := a.Assemble(ctx, "Compare utils.py and missing.py")
			Expect(res.Files).To(Equal([]string{"utils.py", "missing.py"}))
			Expect(res.Prompt).To(ContainSubstring("File missing.py not found in expansive directory"))
		})

		It("notes unreadable files inline", func() {
			files["broken.py"] = &fstest.MapFile{Mode: fs.ModeDir | 0o755}
			res := a.Assemble(ctx, "Open broken.py")
			Expect(res.Prompt).To(ContainSubstring("Error reading broken.py:"))
		})

		It("leaves prompts without references alone", func() {
			res := a.Assemble(ctx, "No files here.")
			Expect(res.Files).To(BeEmpty())
			Expect(res.Prompt).To(HaveSuffix("\n[INSTRUCTION]:\n No files here."))
		})
	})
})

var _ = Describe("FormatContext", func() {
	It("is empty without records", func() {
		Expect(prompt.FormatContext(nil)).To(BeEmpty())
	})
})
