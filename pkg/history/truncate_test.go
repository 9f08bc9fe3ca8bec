package history_test

import (
	"bytes"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/papercomputeco/engram/pkg/history"
	"github.com/papercomputeco/engram/pkg/llm"
	"github.com/papercomputeco/engram/pkg/logger"
	"github.com/papercomputeco/engram/pkg/metrics"
	testutils "github.com/papercomputeco/engram/pkg/utils/test"
)

func words(n int) string {
	return strings.TrimSpace(strings.Repeat("tok ", n))
}

var _ = Describe("Truncator", func() {
	var (
		t *history.Truncator
		m *metrics.Metrics
	)

	BeforeEach(func() {
		m = metrics.New("history_test")
		var err error
		t, err = history.NewTruncator(history.Config{
			Encoder: testutils.WordEncoder{},
			Metrics: m,
		})
		Expect(err).NotTo(HaveOccurred())
	})

	It("should require an encoder", func() {
		_, err := history.NewTruncator(history.Config{})
		Expect(err).To(HaveOccurred())
	})

	Describe("Count", func() {
		It("should charge framing per message and for the reply", func() {
			msgs := []llm.Message{
				llm.NewTextMessage(llm.RoleSystem, "be brief"),
				llm.NewTextMessage(llm.RoleUser, "hello there friend"),
			}
			// (4+1+2) + (4+1+3) + 3
			Expect(t.Count(msgs)).To(Equal(18))
		})

		It("should count an empty history as the reply primer", func() {
			Expect(t.Count(nil)).To(Equal(3))
		})

		It("should skip a field that fails to encode", func() {
			var buf bytes.Buffer
			failing, err := history.NewTruncator(history.Config{
				Encoder: testutils.WordEncoder{FailOn: "bad field"},
				Logger:  logger.New(logger.WithWriter(&buf)),
			})
			Expect(err).NotTo(HaveOccurred())

			msgs := []llm.Message{llm.NewTextMessage(llm.RoleUser, "bad field")}
			Expect(failing.Count(msgs)).To(Equal(4 + 1 + 0 + 3))
			Expect(buf.String()).To(ContainSubstring("skipping field in token count"))
			Expect(buf.String()).To(ContainSubstring("token encoding failed"))
		})
	})

	Describe("Truncate", func() {
		var full []llm.Message

		BeforeEach(func() {
			full = []llm.Message{
				llm.NewTextMessage(llm.RoleSystem, "You are helpful"),
				llm.NewTextMessage(llm.RoleUser, words(1000)),
				llm.NewTextMessage(llm.RoleAssistant, words(1000)),
				llm.NewTextMessage(llm.RoleUser, words(1000)),
				llm.NewTextMessage(llm.RoleAssistant, words(1000)),
			}
			full[1].Content = "A " + words(999)
			full[2].Content = "A " + words(999)
		})

		It("should remove the oldest user/assistant pair to fit the budget", func() {
			out, tokens, err := t.Truncate(full, 2500)
			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(HaveLen(3))
			Expect(out[0].Role).To(Equal(llm.RoleSystem))
			Expect(out[1].Content).NotTo(HavePrefix("A "))
			Expect(out[2].Content).NotTo(HavePrefix("A "))
			Expect(tokens).To(BeNumerically("<=", 2500))
			Expect(tokens).To(Equal(t.Count(out)))
			Expect(testutil.ToFloat64(m.TruncatedMessages)).To(Equal(2.0))
		})

		It("should not modify the caller's history", func() {
			_, _, err := t.Truncate(full, 2500)
			Expect(err).NotTo(HaveOccurred())
			Expect(full).To(HaveLen(5))
			Expect(full[1].Content).To(HavePrefix("A "))
		})

		It("should be idempotent", func() {
			once, onceTokens, err := t.Truncate(full, 2500)
			Expect(err).NotTo(HaveOccurred())

			twice, twiceTokens, err := t.Truncate(once, 2500)
			Expect(err).NotTo(HaveOccurred())
			Expect(twice).To(Equal(once))
			Expect(twiceTokens).To(Equal(onceTokens))
		})

		It("should leave a history under budget alone", func() {
			out, tokens, err := t.Truncate(full, 100000)
			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(Equal(full))
			Expect(tokens).To(Equal(t.Count(full)))
		})

		It("should report a stall when fewer than two removable messages remain", func() {
			out, tokens, err := t.Truncate(full, 5)
			Expect(err).To(MatchError(history.ErrTruncationStalled))
			Expect(out).To(HaveLen(1))
			Expect(out[0].Role).To(Equal(llm.RoleSystem))
			Expect(tokens).To(Equal(t.Count(out)))
			Expect(testutil.ToFloat64(m.TruncatedMessages)).To(Equal(4.0))
			Expect(testutil.ToFloat64(m.TruncationStalls)).To(Equal(1.0))
		})

		It("should stall with the last odd message kept", func() {
			odd := append(llm.Clone(full), llm.NewTextMessage(llm.RoleUser, words(1000)))
			out, _, err := t.Truncate(odd, 1000)
			Expect(err).To(MatchError(history.ErrTruncationStalled))
			Expect(out).To(HaveLen(2))
			Expect(out[1].Role).To(Equal(llm.RoleUser))
		})

		It("should treat every message as removable without a system message", func() {
			noSystem := full[1:]
			out, _, err := t.Truncate(noSystem, 2100)
			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(HaveLen(2))
			Expect(out[0].Role).To(Equal(llm.RoleUser))
		})

		// Pairs are removed by position, not role. When the history has two
		// user messages in a row the remaining history starts on an
		// assistant message.
		It("should remove positionally even when roles are out of step", func() {
			desync := []llm.Message{
				llm.NewTextMessage(llm.RoleSystem, "sys"),
				llm.NewTextMessage(llm.RoleUser, words(1000)),
				llm.NewTextMessage(llm.RoleUser, words(1000)),
				llm.NewTextMessage(llm.RoleAssistant, words(1000)),
				llm.NewTextMessage(llm.RoleUser, words(10)),
			}
			out, _, err := t.Truncate(desync, 1500)
			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(HaveLen(3))
			Expect(out[1].Role).To(Equal(llm.RoleAssistant))
			Expect(out[2].Role).To(Equal(llm.RoleUser))
		})
	})
})

var _ = Describe("TiktokenEncoder", func() {
	It("should count tokens with cl100k_base", func() {
		enc, err := history.NewTiktokenEncoder("")
		if err != nil {
			Skip("cl100k_base unavailable: " + err.Error())
		}

		ids, err := enc.Encode("hello world")
		Expect(err).NotTo(HaveOccurred())
		Expect(ids).To(HaveLen(2))
	})

	It("should reject unknown encodings", func() {
		_, err := history.NewTiktokenEncoder("no_such_encoding")
		Expect(err).To(HaveOccurred())
	})
})
