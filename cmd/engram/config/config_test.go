package configcmder_test

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	configcmder "github.com/papercomputeco/engram/cmd/engram/config"
	"github.com/papercomputeco/engram/pkg/config"
)

var _ = Describe("NewConfigCmd", func() {
	It("creates a command with the correct use string", func() {
		cmd := configcmder.NewConfigCmd()
		Expect(cmd.Use).To(Equal("config"))
	})

	It("has set, unset, get and list subcommands", func() {
		cmd := configcmder.NewConfigCmd()
		cmds := cmd.Commands()
		subcommands := make([]string, 0, len(cmds))
		for _, sub := range cmds {
			subcommands = append(subcommands, sub.Name())
		}
		Expect(subcommands).To(ContainElements("set", "unset", "get", "list"))
	})
})

var _ = Describe("Config command execution", func() {
	var (
		tmpDir  string
		origDir string
		out     *bytes.Buffer
	)

	execute := func(args ...string) error {
		cmd := configcmder.NewConfigCmd()
		cmd.SetOut(out)
		cmd.SetArgs(args)
		return cmd.Execute()
	}

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "engram-config-test-*")
		Expect(err).NotTo(HaveOccurred())

		origDir, err = os.Getwd()
		Expect(err).NotTo(HaveOccurred())

		// Create a local .engram dir so the manager picks it up
		err = os.MkdirAll(filepath.Join(tmpDir, ".engram"), 0o755)
		Expect(err).NotTo(HaveOccurred())

		err = os.Chdir(tmpDir)
		Expect(err).NotTo(HaveOccurred())

		out = &bytes.Buffer{}
	})

	AfterEach(func() {
		err := os.Chdir(origDir)
		Expect(err).NotTo(HaveOccurred())
		os.RemoveAll(tmpDir)
	})

	loadConfig := func() *config.Config {
		cfger, err := config.NewConfiger("")
		Expect(err).NotTo(HaveOccurred())
		cfg, err := cfger.LoadConfig()
		Expect(err).NotTo(HaveOccurred())
		return cfg
	}

	Describe("set subcommand", func() {
		It("sets a config value successfully", func() {
			Expect(execute("set", "user.name", "Brianna")).To(Succeed())

			_, err := os.Stat(filepath.Join(tmpDir, ".engram", "config.toml"))
			Expect(err).NotTo(HaveOccurred())
			Expect(loadConfig().User.Name).To(Equal("Brianna"))
			Expect(out.String()).To(ContainSubstring("Set"))
		})

		It("rejects unknown keys", func() {
			err := execute("set", "invalid_key", "value")
			Expect(err).To(MatchError(ContainSubstring("unknown config key")))
		})

		It("requires exactly two arguments", func() {
			Expect(execute("set", "user.name")).NotTo(Succeed())
			Expect(execute("set")).NotTo(Succeed())
		})

		It("rejects invalid numeric values", func() {
			Expect(execute("set", "embedding.dimensions", "not-a-number")).NotTo(Succeed())
		})

		It("rejects values that fail validation", func() {
			err := execute("set", "chunking.overlap", "3")
			Expect(err).To(MatchError(config.ErrInvalidConfig))
			Expect(loadConfig().Chunking.Overlap).To(Equal(1))
		})
	})

	Describe("get subcommand", func() {
		It("gets a previously set value", func() {
			Expect(execute("set", "recall.max_results", "5")).To(Succeed())
			out.Reset()

			Expect(execute("get", "recall.max_results")).To(Succeed())
			Expect(out.String()).To(ContainSubstring("recall.max_results"))
			Expect(out.String()).To(ContainSubstring("5"))
		})

		It("reports unset keys", func() {
			Expect(execute("get", "vector_store.target")).To(Succeed())
			Expect(out.String()).To(ContainSubstring("<not set>"))
		})

		It("rejects unknown keys", func() {
			Expect(execute("get", "invalid_key")).NotTo(Succeed())
		})

		It("requires exactly one argument", func() {
			Expect(execute("get")).NotTo(Succeed())
		})

		It("prints only the value with --raw", func() {
			Expect(execute("set", "user.name", "Brianna")).To(Succeed())
			out.Reset()

			Expect(execute("get", "--raw", "user.name")).To(Succeed())
			Expect(out.String()).To(Equal("Brianna\n"))
		})
	})

	Describe("unset subcommand", func() {
		It("restores the default value", func() {
			Expect(execute("set", "recall.max_results", "8")).To(Succeed())
			Expect(execute("unset", "recall.max_results")).To(Succeed())

			Expect(loadConfig().Recall.MaxResults).To(Equal(3))
			Expect(out.String()).To(ContainSubstring("Reset"))
		})

		It("rejects unknown keys", func() {
			Expect(execute("unset", "invalid_key")).To(MatchError(ContainSubstring("unknown config key")))
		})
	})

	Describe("list subcommand", func() {
		It("lists every key", func() {
			Expect(execute("list")).To(Succeed())
			for _, key := range config.ValidConfigKeys() {
				Expect(out.String()).To(ContainSubstring(key))
			}
		})

		It("prints JSON with --json", func() {
			Expect(execute("set", "user.name", "Brianna")).To(Succeed())
			out.Reset()

			Expect(execute("list", "--json")).To(Succeed())

			var values []config.KeyValue
			Expect(json.Unmarshal(out.Bytes(), &values)).To(Succeed())
			Expect(values).To(HaveLen(len(config.ValidConfigKeys())))
			Expect(values).To(ContainElement(config.KeyValue{Key: "user.name", Value: "Brianna"}))
		})

		It("rejects any arguments", func() {
			Expect(execute("list", "extra")).NotTo(Succeed())
		})
	})
})
