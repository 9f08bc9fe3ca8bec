package truncatecmder

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/engram/pkg/llm"
	testutils "github.com/papercomputeco/engram/pkg/utils/test"
)

var _ = Describe("truncate command", func() {
	var (
		configDir string
		stdout    *bytes.Buffer
	)

	history := `[
  {"role": "system", "content": "sys"},
  {"role": "user", "content": "q1"},
  {"role": "assistant", "content": "a1"},
  {"role": "user", "content": "q2"}
]`

	execute := func(stdin string, args ...string) (Output, error) {
		cmd := newTruncateCmd(testutils.WordEncoder{})
		cmd.Flags().String("config-dir", "", "")
		cmd.Flags().Bool("debug", false, "")
		cmd.SetIn(strings.NewReader(stdin))
		cmd.SetOut(stdout)
		cmd.SetArgs(append([]string{"--config-dir", configDir}, args...))

		var out Output
		if err := cmd.Execute(); err != nil {
			return out, err
		}
		Expect(json.Unmarshal(stdout.Bytes(), &out)).To(Succeed())
		return out, nil
	}

	BeforeEach(func() {
		configDir = GinkgoT().TempDir()
		stdout = &bytes.Buffer{}
	})

	It("has the correct use string", func() {
		Expect(NewTruncateCmd().Use).To(Equal("truncate"))
	})

	It("leaves a history within budget untouched", func() {
		out, err := execute(history)
		Expect(err).NotTo(HaveOccurred())
		Expect(out.Removed).To(Equal(0))
		Expect(out.Tokens).To(Equal(27))
		Expect(out.Messages).To(HaveLen(4))
	})

	It("drops the oldest pair to fit --max-tokens", func() {
		out, err := execute(history, "--max-tokens", "20")
		Expect(err).NotTo(HaveOccurred())
		Expect(out.Removed).To(Equal(2))
		Expect(out.Tokens).To(Equal(15))
		Expect(out.Messages).To(Equal([]llm.Message{
			llm.NewTextMessage(llm.RoleSystem, "sys"),
			llm.NewTextMessage(llm.RoleUser, "q2"),
		}))
	})

	It("reports a stall instead of failing", func() {
		out, err := execute(history, "--max-tokens", "1")
		Expect(err).NotTo(HaveOccurred())
		Expect(out.Stalled).To(BeTrue())
	})

	It("reads the history from --file", func() {
		path := filepath.Join(GinkgoT().TempDir(), "history.json")
		Expect(os.WriteFile(path, []byte(history), 0o600)).To(Succeed())

		out, err := execute("", "--file", path, "--max-tokens", "20")
		Expect(err).NotTo(HaveOccurred())
		Expect(out.Messages).To(HaveLen(2))
	})

	It("rejects malformed input", func() {
		_, err := execute("not json")
		Expect(err).To(MatchError(ContainSubstring("decoding history")))
	})
})
