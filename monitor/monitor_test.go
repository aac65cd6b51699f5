package monitor_test

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/joskern/kern"
	"github.com/sarchlab/joskern/kern/env"
	"github.com/sarchlab/joskern/mem/vm"
	"github.com/sarchlab/joskern/monitor"
)

var _ = Describe("Monitor", func() {
	var (
		k     *kern.Kernel
		out   *bytes.Buffer
		mon   *monitor.Monitor
		id    env.EnvID
		stack = vm.USTACKTOP - vm.PageSize
	)

	BeforeEach(func() {
		var err error
		k, err = kern.MakeBuilder().
			WithNumEnvs(4).
			WithNumFrames(64).
			WithLogger(slog.New(slog.NewTextHandler(GinkgoWriter, nil))).
			Build()
		Expect(err).ToNot(HaveOccurred())

		id, err = k.Spawn(func(env.Machine, env.UserState) {}, nil, 9)
		Expect(err).ToNot(HaveOccurred())

		out = new(bytes.Buffer)
		mon = monitor.New(k, strings.NewReader(""), out)
	})

	exec := func(line string) string {
		out.Reset()
		Expect(mon.Exec(line)).To(BeTrue())

		return out.String()
	}

	It("should list the commands", func() {
		Expect(exec("help")).To(ContainSubstring(
			"showmappings - Display the physical page mappings"))
	})

	It("should reject unknown commands", func() {
		Expect(exec("backtrace")).To(Equal("Unknown command 'backtrace'\n"))
	})

	It("should exit", func() {
		Expect(mon.Exec("exit")).To(BeFalse())
	})

	It("should list environments", func() {
		text := exec("envs")
		Expect(text).To(ContainSubstring("00001000  00000000  RUNNABLE"))
	})

	It("should describe the kernel", func() {
		text := exec("kerninfo")
		Expect(text).To(ContainSubstring("Architecture: x86"))
		Expect(text).To(ContainSubstring("cpu 0"))
	})

	It("should show the mappings of an environment", func() {
		Expect(exec(fmt.Sprintf("space %#x", uint32(id)))).
			To(ContainSubstring("Inspecting address space 00001000"))

		text := exec(fmt.Sprintf("showmappings %#x", uint32(stack)))
		Expect(text).To(MatchRegexp(
			`^0x[0-9a-f]{8} - 0x[0-9a-f]{8}: user: read/write\.\n$`))

		text = exec(fmt.Sprintf("showmappings %#x %#x",
			uint32(stack)-vm.PageSize, uint32(stack)))
		Expect(text).To(HavePrefix("The page doesn't exist!\n0x"))
	})

	It("should refuse unknown address spaces", func() {
		Expect(exec("space 0x5003")).To(ContainSubstring("0x5003:"))
		Expect(exec("space nope")).To(ContainSubstring("bad environment id"))
	})

	It("should change permissions in place", func() {
		exec(fmt.Sprintf("space %#x", uint32(id)))

		text := exec(fmt.Sprintf("setperms %#x U", uint32(stack)))
		Expect(text).To(ContainSubstring("Before: "))
		Expect(text).To(ContainSubstring("user: read/write."))
		Expect(text).To(ContainSubstring("After:  "))
		Expect(text).To(ContainSubstring("user: read only."))

		admin, err := k.Admin(id)
		Expect(err).ToNot(HaveOccurred())
		page, ok := admin.Inspect(stack)
		Expect(ok).To(BeTrue())
		Expect(page.Perm.Has(vm.PermWritable)).To(BeFalse())
		Expect(page.Perm.Has(vm.PermUser)).To(BeTrue())
	})

	It("should validate setperms arguments", func() {
		Expect(exec("setperms 0x1000 X")).To(Equal("unknown perm!\n"))
		Expect(exec("setperms")).To(HavePrefix("usage[1]"))
		Expect(exec("setperms 0x1000 UW")).
			To(Equal("The page doesn't exist!\n"))
	})

	It("should read commands until exit", func() {
		mon = monitor.New(k, strings.NewReader("envs\nexit\nenvs\n"), out)

		mon.Prompt(context.Background())

		Expect(out.String()).To(HavePrefix(
			"Welcome to the JOS kernel monitor!\n"))
		Expect(strings.Count(out.String(), "K> ")).To(Equal(2))
		Expect(strings.Count(out.String(), "RUNNABLE")).To(Equal(1))
	})
})
