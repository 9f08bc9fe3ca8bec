package engramcmder_test

import (
	"bytes"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	engramcmder "github.com/papercomputeco/engram/cmd/engram"
)

var _ = Describe("NewEngramCmd", func() {
	It("registers every subcommand", func() {
		cmd := engramcmder.NewEngramCmd()

		names := []string{}
		for _, c := range cmd.Commands() {
			names = append(names, c.Name())
		}
		Expect(names).To(ContainElements(
			"init", "config", "serve", "remember", "recall",
			"enhance", "truncate", "session", "version",
		))
	})

	It("exposes global flags to subcommands", func() {
		cmd := engramcmder.NewEngramCmd()
		Expect(cmd.PersistentFlags().Lookup("debug")).NotTo(BeNil())
		Expect(cmd.PersistentFlags().ShorthandLookup("d")).NotTo(BeNil())
		Expect(cmd.PersistentFlags().Lookup("config-dir")).NotTo(BeNil())
	})

	It("runs the version subcommand", func() {
		var out bytes.Buffer
		cmd := engramcmder.NewEngramCmd()
		cmd.SetOut(&out)
		cmd.SetArgs([]string{"version"})

		Expect(cmd.Execute()).To(Succeed())
		Expect(out.String()).To(HavePrefix("Version: "))
	})

	It("fails on unknown subcommands", func() {
		var out bytes.Buffer
		cmd := engramcmder.NewEngramCmd()
		cmd.SetOut(&out)
		cmd.SetErr(&out)
		cmd.SetArgs([]string{"forget"})

		Expect(cmd.Execute()).NotTo(Succeed())
	})
})
