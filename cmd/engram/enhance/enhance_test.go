package enhancecmder_test

import (
	"bytes"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	enhancecmder "github.com/papercomputeco/engram/cmd/engram/enhance"
	remembercmder "github.com/papercomputeco/engram/cmd/engram/remember"
)

var _ = Describe("enhance command", func() {
	var (
		configDir string
		sourceDir string
	)

	execute := func(cmd *cobra.Command, args ...string) (string, error) {
		var out bytes.Buffer
		cmd.Flags().String("config-dir", "", "")
		cmd.Flags().Bool("debug", false, "")
		cmd.SetOut(&out)
		cmd.SetErr(GinkgoWriter)
		cmd.SetArgs(append([]string{"--config-dir", configDir}, args...))
		err := cmd.Execute()
		return out.String(), err
	}

	BeforeEach(func() {
		configDir = GinkgoT().TempDir()
		sourceDir = GinkgoT().TempDir()
		Expect(os.WriteFile(filepath.Join(sourceDir, "main.py"), []byte("print('rex')\n"), 0o600)).To(Succeed())

		_, err := execute(remembercmder.NewRememberCmd(), "My dog is called Rex.", "Rex is a great name for a dog.")
		Expect(err).NotTo(HaveOccurred())
	})

	It("prefixes recalled context and inlines referenced files", func() {
		out, err := execute(enhancecmder.NewEnhanceCmd(), "Tell me about Rex. See main.py", "--source-dir", sourceDir)
		Expect(err).NotTo(HaveOccurred())

		Expect(out).To(HavePrefix("If applicable, use the following to assist in answering the user instruction:"))
		Expect(out).To(ContainSubstring("My dog is called Rex."))
		Expect(out).To(ContainSubstring("[INSTRUCTION]:\n Tell me about Rex. See main.py"))
		Expect(out).To(ContainSubstring("print('rex')"))
	})

	It("keeps the template without a context block when nothing is recalled", func() {
		out, err := execute(enhancecmder.NewEnhanceCmd(), "quantum chromodynamics", "--min-similarity", "1", "--source-dir", sourceDir)
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(Equal("If applicable, use the following to assist in answering the user instruction: \n[INSTRUCTION]:\n quantum chromodynamics\n"))
	})
})
