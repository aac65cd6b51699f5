package syscall_test

import (
	"bytes"
	"errors"
	"log/slog"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/joskern/kern/env"
	"github.com/sarchlab/joskern/kern/syscall"
	"github.com/sarchlab/joskern/mem/phys"
	"github.com/sarchlab/joskern/mem/vm"
)

type counter struct {
	n int
}

func (c *counter) Clone() env.UserState {
	cp := *c
	return &cp
}

const (
	pu  = vm.PermPresent | vm.PermUser
	puw = pu | vm.PermWritable
)

var _ = Describe("Handler", func() {
	var (
		frames  *phys.Allocator
		table   *env.Table
		console *bytes.Buffer
		h       *syscall.Handler
		parent  *env.Env
	)

	BeforeEach(func() {
		frames = phys.NewAllocator(32)
		table = env.NewTable(4, vm.X86, frames)
		console = new(bytes.Buffer)
		h = syscall.NewHandler(table, frames, console,
			slog.New(slog.NewTextHandler(GinkgoWriter, nil)))

		var err error
		parent, err = table.Alloc(0)
		Expect(err).ToNot(HaveOccurred())
		parent.Status = env.Running
		parent.CPU = 0
		parent.Priority = 3
		parent.User = &counter{n: 5}
		parent.Trapframe.Regs.EAX = 42
	})

	It("should format error codes", func() {
		Expect(syscall.EInval.Error()).To(Equal("invalid parameter (-3)"))
		Expect(syscall.ENoMem.Code()).To(Equal(-4))
		Expect(syscall.Errno(-99).Error()).To(Equal("unknown error (-99)"))
	})

	It("should print to the console", func() {
		h.Cputs(parent, "hello")
		Expect(console.String()).To(Equal("hello"))
	})

	It("should report the caller's id and priority", func() {
		Expect(h.GetEnvID(parent)).To(Equal(parent.ID))
		Expect(h.GetEnvPriority(parent)).To(Equal(uint8(3)))
	})

	Context("exofork", func() {
		It("should create a blank copy of the caller", func() {
			id, err := h.Exofork(parent)
			Expect(err).ToNot(HaveOccurred())

			child, err := table.Lookup(id, parent, true)
			Expect(err).ToNot(HaveOccurred())
			Expect(child.Status).To(Equal(env.NotRunnable))
			Expect(child.ParentID).To(Equal(parent.ID))
			Expect(child.Priority).To(Equal(uint8(3)))
			Expect(child.Trapframe.Regs.EAX).To(Equal(uint32(0)))
			Expect(child.Pgdir.Pages(vm.UTOP)).To(BeEmpty())

			user := child.User.(*counter)
			Expect(user.n).To(Equal(5))
			user.n = 6
			Expect(parent.User.(*counter).n).To(Equal(5))
		})

		It("should fail when the table is full", func() {
			for i := 0; i < 3; i++ {
				_, err := h.Exofork(parent)
				Expect(err).ToNot(HaveOccurred())
			}

			_, err := h.Exofork(parent)
			Expect(err).To(Equal(syscall.ENoFreeEnv))
		})
	})

	Context("environment control", func() {
		var childID env.EnvID

		BeforeEach(func() {
			var err error
			childID, err = h.Exofork(parent)
			Expect(err).ToNot(HaveOccurred())
		})

		It("should only accept runnable and not runnable", func() {
			Expect(h.EnvSetStatus(parent, childID, env.Running)).
				To(Equal(syscall.EInval))
			Expect(h.EnvSetStatus(parent, childID, env.Runnable)).
				To(Succeed())

			child, _ := table.Lookup(childID, nil, false)
			Expect(child.Status).To(Equal(env.Runnable))
		})

		It("should reject environments that are not children", func() {
			child, _ := table.Lookup(childID, nil, false)
			stranger, err := table.Alloc(0)
			Expect(err).ToNot(HaveOccurred())

			Expect(h.EnvSetPriority(child, stranger.ID, 1)).
				To(Equal(syscall.EBadEnv))
			Expect(h.EnvSetPriority(child, parent.ID, 1)).
				To(Equal(syscall.EBadEnv))
		})

		It("should set priority, trapframe and upcall", func() {
			upcall := func(env.Machine, env.UserState, env.UTrapframe) error {
				return nil
			}

			Expect(h.EnvSetPriority(parent, childID, 9)).To(Succeed())
			Expect(h.EnvSetTrapframe(parent, childID,
				env.Trapframe{EIP: 0x800020})).To(Succeed())
			Expect(h.EnvSetPgfaultUpcall(parent, childID, upcall)).
				To(Succeed())

			child, _ := table.Lookup(childID, nil, false)
			Expect(child.Priority).To(Equal(uint8(9)))
			Expect(child.Trapframe.EIP).To(Equal(uint32(0x800020)))
			Expect(child.Trapframe.EFlags & 0x200).ToNot(BeZero())
			Expect(child.PgfaultUpcall).ToNot(BeNil())
		})

		It("should free a destroyed child", func() {
			Expect(h.EnvDestroy(parent, childID)).To(Succeed())

			_, err := table.Lookup(childID, nil, false)
			Expect(err).To(MatchError(env.ErrBadEnv))
		})

		It("should mark a running caller dying", func() {
			Expect(h.EnvDestroy(parent, 0)).To(Succeed())
			Expect(parent.Status).To(Equal(env.Dying))
		})
	})

	Context("memory", func() {
		It("should validate page_alloc arguments", func() {
			Expect(h.PageAlloc(parent, 0, vm.UTOP, puw)).
				To(Equal(syscall.EInval))
			Expect(h.PageAlloc(parent, 0, vm.UTEXT+1, puw)).
				To(Equal(syscall.EInval))
			Expect(h.PageAlloc(parent, 0, vm.UTEXT, vm.PermPresent)).
				To(Equal(syscall.EInval))
			Expect(h.PageAlloc(parent, 0, vm.UTEXT, puw|vm.PermDirty)).
				To(Equal(syscall.EInval))
			Expect(h.PageAlloc(parent, env.EnvID(0x7003), vm.UTEXT, puw)).
				To(Equal(syscall.EBadEnv))
		})

		It("should map a zeroed page", func() {
			Expect(h.PageAlloc(parent, 0, vm.UTEXT, puw)).To(Succeed())

			page, ok := parent.Pgdir.Find(vm.UTEXT)
			Expect(ok).To(BeTrue())
			Expect(page.Perm.Has(puw)).To(BeTrue())

			data, err := frames.Storage().Read(page.PAddr(), vm.PageSize)
			Expect(err).ToNot(HaveOccurred())
			Expect(data).To(Equal(make([]byte, vm.PageSize)))
		})

		It("should report exhausted memory without leaking", func() {
			var err error
			for i := 0; err == nil; i++ {
				err = h.PageAlloc(parent, 0, vm.UTEXT+vm.VA(i)*vm.PageSize, puw)
			}

			Expect(err).To(Equal(syscall.ENoMem))
			Expect(frames.NumFree()).To(BeZero())

			Expect(h.PageUnmap(parent, 0, vm.UTEXT)).To(Succeed())
			Expect(frames.NumFree()).To(Equal(1))
		})

		It("should share pages between environments", func() {
			childID, err := h.Exofork(parent)
			Expect(err).ToNot(HaveOccurred())
			Expect(h.PageAlloc(parent, 0, vm.UTEXT, puw)).To(Succeed())

			Expect(h.PageMap(parent, 0, vm.UTEXT, childID, vm.UTEXT,
				pu|vm.PermCOW)).To(Succeed())

			src, _ := parent.Pgdir.Find(vm.UTEXT)
			child, _ := table.Lookup(childID, nil, false)
			dst, ok := child.Pgdir.Find(vm.UTEXT)
			Expect(ok).To(BeTrue())
			Expect(dst.Frame).To(Equal(src.Frame))
			Expect(dst.Perm.Has(vm.PermCOW)).To(BeTrue())
			Expect(frames.RefCount(src.Frame)).To(Equal(2))
		})

		It("should not upgrade a read-only page", func() {
			Expect(h.PageAlloc(parent, 0, vm.UTEXT, pu)).To(Succeed())

			err := h.PageMap(parent, 0, vm.UTEXT, 0, vm.UTEMP, puw)
			Expect(errors.Is(err, syscall.EInval)).To(BeTrue())
		})

		It("should reject mapping an absent page", func() {
			Expect(h.PageMap(parent, 0, vm.UTEXT, 0, vm.UTEMP, pu)).
				To(Equal(syscall.EInval))
		})

		It("should unmap pages", func() {
			Expect(h.PageAlloc(parent, 0, vm.UTEXT, puw)).To(Succeed())
			free := frames.NumFree()

			Expect(h.PageUnmap(parent, 0, vm.UTEXT)).To(Succeed())
			Expect(h.PageUnmap(parent, 0, vm.UTEXT)).To(Succeed())
			Expect(h.PageUnmap(parent, 0, vm.UTOP)).To(Equal(syscall.EInval))

			_, ok := parent.Pgdir.Find(vm.UTEXT)
			Expect(ok).To(BeFalse())
			Expect(frames.NumFree()).To(Equal(free + 1))
		})
	})
})
