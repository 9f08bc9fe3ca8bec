package mcp_test

import (
	"context"
	"encoding/json"
	"testing/fstest"

	gomcp "github.com/modelcontextprotocol/go-sdk/mcp"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/engram/api/mcp"
	"github.com/papercomputeco/engram/pkg/embeddings/hashing"
	"github.com/papercomputeco/engram/pkg/logger"
	"github.com/papercomputeco/engram/pkg/memory"
	"github.com/papercomputeco/engram/pkg/prompt"
	testutils "github.com/papercomputeco/engram/pkg/utils/test"
	"github.com/papercomputeco/engram/pkg/vector/inmemory"
)

const (
	catPrompt = "My cat Mochi sleeps all day. She is a grey tabby. She hates the vacuum."
	catReply  = "Mochi sounds like a typical cat. Tabbies are often very vocal. Try running the vacuum while she is in another room."
)

var _ = Describe("MCP Server", func() {
	var (
		ctx       context.Context
		server    *mcp.Server
		cfg       mcp.Config
		session   *gomcp.ClientSession
		backend   memory.Backend
		assembler *prompt.Assembler
	)

	connect := func(s *mcp.Server) *gomcp.ClientSession {
		st, ct := gomcp.NewInMemoryTransports()

		ss, err := s.MCPServer().Connect(ctx, st, nil)
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(ss.Close)

		client := gomcp.NewClient(&gomcp.Implementation{Name: "engram-test", Version: "v0.0.0"}, nil)
		cs, err := client.Connect(ctx, ct, nil)
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(cs.Close)
		return cs
	}

	call := func(name string, args map[string]any) *gomcp.CallToolResult {
		res, err := session.CallTool(ctx, &gomcp.CallToolParams{Name: name, Arguments: args})
		Expect(err).NotTo(HaveOccurred())
		return res
	}

	text := func(res *gomcp.CallToolResult) string {
		Expect(res.Content).To(HaveLen(1))
		tc, ok := res.Content[0].(*gomcp.TextContent)
		Expect(ok).To(BeTrue())
		return tc.Text
	}

	BeforeEach(func() {
		ctx = context.Background()

		embedder, err := hashing.NewEmbedder(hashing.EmbedderConfig{Dimensions: 512})
		Expect(err).NotTo(HaveOccurred())
		backend = memory.Backend{Driver: inmemory.NewDriver(), Embedder: embedder}

		store, err := memory.NewStore(memory.StoreConfig{Backend: backend})
		Expect(err).NotTo(HaveOccurred())
		recaller, err := memory.NewRecaller(memory.RecallConfig{Backend: backend})
		Expect(err).NotTo(HaveOccurred())
		assembler, err = prompt.NewAssembler(prompt.Config{
			Recaller: recaller,
			SourceFS: fstest.MapFS{"cat.py": {Data: []byte("print('meow')")}},
		})
		Expect(err).NotTo(HaveOccurred())

		cfg = mcp.Config{
			Store:         store,
			Recaller:      recaller,
			Enhancer:      assembler,
			UserName:      "Sam",
			AssistantName: "Engram",
			Logger:        logger.Nop(),
		}
		server, err = mcp.NewServer(cfg)
		Expect(err).NotTo(HaveOccurred())
		session = connect(server)
	})

	Describe("NewServer", func() {
		DescribeTable("rejects a missing dependency",
			func(mutate func(*mcp.Config), msg string) {
				c := cfg
				mutate(&c)
				_, err := mcp.NewServer(c)
				Expect(err).To(MatchError(ContainSubstring(msg)))
			},
			Entry("store", func(c *mcp.Config) { c.Store = nil }, "store is required"),
			Entry("recaller", func(c *mcp.Config) { c.Recaller = nil }, "recaller is required"),
			Entry("enhancer", func(c *mcp.Config) { c.Enhancer = nil }, "enhancer is required"),
			Entry("logger", func(c *mcp.Config) { c.Logger = nil }, "logger is required"),
		)

		It("builds an empty server in noop mode", func() {
			s, err := mcp.NewServer(mcp.Config{Noop: true})
			Expect(err).NotTo(HaveOccurred())
			Expect(s.Handler()).NotTo(BeNil())

			cs := connect(s)
			res, err := cs.ListTools(ctx, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Tools).To(BeEmpty())
		})

		It("registers the memory tools", func() {
			res, err := session.ListTools(ctx, nil)
			Expect(err).NotTo(HaveOccurred())

			names := make([]string, 0, len(res.Tools))
			for _, t := range res.Tools {
				names = append(names, t.Name)
			}
			Expect(names).To(ConsistOf("memory_recall", "memory_store", "prompt_enhance"))
		})
	})

	Describe("memory_store", func() {
		It("stores a turn under the default speakers", func() {
			res := call("memory_store", map[string]any{"prompt": catPrompt, "response": catReply})
			Expect(res.IsError).To(BeFalse())

			var out mcp.MemoryStoreOutput
			Expect(json.Unmarshal([]byte(text(res)), &out)).To(Succeed())
			Expect(out.Status).To(Equal("stored"))
			Expect(out.PromptChunkIDs).To(HaveLen(1))
			Expect(out.ResponseChunkIDs).To(HaveLen(1))

			docs, err := backend.Driver.Get(ctx, []string{out.PromptChunkIDs[0]})
			Expect(err).NotTo(HaveOccurred())
			Expect(docs).To(HaveLen(1))
			Expect(docs[0].Metadata).To(HaveKeyWithValue("speaker", "Sam"))
		})

		It("reports a skipped turn", func() {
			res := call("memory_store", map[string]any{"prompt": "", "response": "  "})
			Expect(res.IsError).To(BeFalse())
			Expect(text(res)).To(ContainSubstring(`"status":"skipped"`))
		})

		It("returns a tool error when the write fails", func() {
			driver := testutils.NewMockVectorDriver()
			driver.FailAdd = true
			failing := memory.Backend{Driver: driver, Embedder: testutils.NewMockEmbedder()}
			store, err := memory.NewStore(memory.StoreConfig{Backend: failing})
			Expect(err).NotTo(HaveOccurred())

			c := cfg
			c.Store = store
			s, err := mcp.NewServer(c)
			Expect(err).NotTo(HaveOccurred())
			session = connect(s)

			res := call("memory_store", map[string]any{"prompt": catPrompt, "response": catReply})
			Expect(res.IsError).To(BeTrue())
			Expect(text(res)).To(ContainSubstring("Memory store failed"))
		})
	})

	Describe("memory_recall", func() {
		BeforeEach(func() {
			res := call("memory_store", map[string]any{"prompt": catPrompt, "response": catReply, "user_name": "Brianna"})
			Expect(res.IsError).To(BeFalse())
		})

		It("recalls the stored turn", func() {
			res := call("memory_recall", map[string]any{"query": catPrompt})
			Expect(res.IsError).To(BeFalse())

			var out mcp.MemoryRecallOutput
			Expect(json.Unmarshal([]byte(text(res)), &out)).To(Succeed())
			Expect(out.Count).To(BeNumerically(">=", 1))
			Expect(out.Records[0].Metadata.Speaker).To(Equal("Brianna"))
			Expect(out.Records[0].Score).To(BeNumerically(">", 0.99))
		})

		It("limits the number of records", func() {
			res := call("memory_recall", map[string]any{"query": catPrompt, "max_results": 1})
			var out mcp.MemoryRecallOutput
			Expect(json.Unmarshal([]byte(text(res)), &out)).To(Succeed())
			Expect(out.Records).To(HaveLen(1))
		})

		It("rejects an oversized max_results", func() {
			res := call("memory_recall", map[string]any{"query": catPrompt, "max_results": 1 << 40})
			Expect(res.IsError).To(BeTrue())
			Expect(text(res)).To(ContainSubstring("at most 100"))
		})

		It("rejects a min_similarity outside [0, 1]", func() {
			res := call("memory_recall", map[string]any{"query": catPrompt, "min_similarity": 1.5})
			Expect(res.IsError).To(BeTrue())
		})

		It("accepts an explicit zero min_similarity", func() {
			strict := cfg
			strict.Recall = memory.Options{MaxResults: 3, MinSimilarity: 0.99}
			s, err := mcp.NewServer(strict)
			Expect(err).NotTo(HaveOccurred())
			session = connect(s)

			var out mcp.MemoryRecallOutput
			res := call("memory_recall", map[string]any{"query": "Mochi"})
			Expect(json.Unmarshal([]byte(text(res)), &out)).To(Succeed())
			Expect(out.Records).To(BeEmpty())

			res = call("memory_recall", map[string]any{"query": "Mochi", "min_similarity": 0})
			Expect(json.Unmarshal([]byte(text(res)), &out)).To(Succeed())
			Expect(out.Records).NotTo(BeEmpty())
		})

		It("requires a query", func() {
			res := call("memory_recall", map[string]any{"query": "  "})
			Expect(res.IsError).To(BeTrue())
			Expect(text(res)).To(Equal("query is required"))
		})
	})

	Describe("prompt_enhance", func() {
		It("returns the assembled prompt", func() {
			res := call("prompt_enhance", map[string]any{"prompt": "What does cat.py print?"})
			Expect(res.IsError).To(BeFalse())
			Expect(text(res)).To(Equal(assembler.EnhancePrompt(ctx, "What does cat.py print?")))
			Expect(text(res)).To(ContainSubstring("Content of cat.py:"))
		})

		It("requires a prompt", func() {
			res := call("prompt_enhance", map[string]any{"prompt": ""})
			Expect(res.IsError).To(BeTrue())
		})
	})
})
