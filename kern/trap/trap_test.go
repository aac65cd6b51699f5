package trap_test

import (
	"errors"
	"log/slog"
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/joskern/kern/env"
	"github.com/sarchlab/joskern/kern/trap"
	"github.com/sarchlab/joskern/mem/phys"
	"github.com/sarchlab/joskern/mem/vm"
	"github.com/sarchlab/joskern/sim"
)

var _ = Describe("UTrapframe", func() {
	It("should use the user-visible layout", func() {
		utf := env.UTrapframe{
			FaultVA: 0x801234,
			Err:     vm.FaultWrite | vm.FaultUser | vm.FaultProtection,
			Regs:    env.PushRegs{EAX: 7},
			EIP:     0x800020,
			EFlags:  0x200,
			ESP:     uint32(vm.USTACKTOP),
		}

		data := trap.EncodeUTrapframe(utf)
		Expect(data).To(HaveLen(trap.UTrapframeSize))
		Expect(data[:4]).To(Equal([]byte{0x34, 0x12, 0x80, 0x00}))
		Expect(data[4:8]).To(Equal([]byte{7, 0, 0, 0}))

		back, err := trap.DecodeUTrapframe(data)
		Expect(err).ToNot(HaveOccurred())
		Expect(back).To(Equal(utf))
	})
})

var _ = Describe("Handler", func() {
	var (
		frames *phys.Allocator
		table  *env.Table
		h      *trap.Handler
		e      *env.Env
		events []string
	)

	const faultVA = vm.UTEXT + 0x10

	mapExceptionStack := func() {
		f, err := frames.Alloc(true)
		Expect(err).ToNot(HaveOccurred())
		Expect(e.Pgdir.Insert(f, vm.UXSTACKTOP-vm.PageSize,
			vm.PermUser|vm.PermWritable)).To(Succeed())
	}

	BeforeEach(func() {
		frames = phys.NewAllocator(16)
		table = env.NewTable(2, vm.X86, frames)
		h = trap.NewHandler(&sync.Mutex{}, table, frames,
			slog.New(slog.NewTextHandler(GinkgoWriter, nil)))

		events = nil
		h.AcceptHook(sim.HookFunc(func(ctx sim.HookCtx) {
			events = append(events, ctx.Pos.Name)
		}))

		var err error
		e, err = table.Alloc(0)
		Expect(err).ToNot(HaveOccurred())
		e.Status = env.Running
		e.CPU = 0
		e.Trapframe.ESP = uint32(vm.USTACKTOP)
		e.Trapframe.EIP = 0x800020
	})

	It("should destroy an environment without an upcall", func() {
		mapExceptionStack()

		err := h.PageFault(nil, e, faultVA, vm.FaultWrite|vm.FaultUser)

		Expect(err).To(MatchError(trap.ErrEnvDestroyed))
		Expect(e.Status).To(Equal(env.Dying))
		Expect(events).To(Equal([]string{"PageFault", "UserFaultKill"}))
	})

	It("should destroy an environment without an exception stack", func() {
		called := false
		e.PgfaultUpcall = func(
			env.Machine, env.UserState, env.UTrapframe,
		) error {
			called = true
			return nil
		}

		err := h.PageFault(nil, e, faultVA, vm.FaultWrite|vm.FaultUser)

		Expect(err).To(MatchError(trap.ErrEnvDestroyed))
		Expect(called).To(BeFalse())
		Expect(e.Status).To(Equal(env.Dying))
	})

	It("should run the upcall on the exception stack", func() {
		mapExceptionStack()

		var got env.UTrapframe
		var espInUpcall uint32
		e.PgfaultUpcall = func(
			_ env.Machine, _ env.UserState, utf env.UTrapframe,
		) error {
			got = utf
			espInUpcall = e.Trapframe.ESP
			return nil
		}

		err := h.PageFault(nil, e, faultVA, vm.FaultWrite|vm.FaultUser)

		Expect(err).ToNot(HaveOccurred())
		Expect(got.FaultVA).To(Equal(faultVA))
		Expect(got.Err.IsWrite()).To(BeTrue())
		Expect(got.EIP).To(Equal(uint32(0x800020)))
		Expect(got.ESP).To(Equal(uint32(vm.USTACKTOP)))
		Expect(espInUpcall).
			To(Equal(uint32(vm.UXSTACKTOP) - trap.UTrapframeSize))
		Expect(e.Trapframe.ESP).To(Equal(uint32(vm.USTACKTOP)))
		Expect(e.Status).To(Equal(env.Running))
	})

	It("should push nested faults below the current frame", func() {
		mapExceptionStack()

		var stack []uint32
		depth := 0
		e.PgfaultUpcall = func(
			m env.Machine, _ env.UserState, utf env.UTrapframe,
		) error {
			stack = append(stack, e.Trapframe.ESP)
			depth++
			if depth == 1 {
				return h.PageFault(m, e, utf.FaultVA+vm.PageSize, utf.Err)
			}

			return nil
		}

		Expect(h.PageFault(nil, e, faultVA, vm.FaultWrite)).To(Succeed())

		outer := uint32(vm.UXSTACKTOP) - trap.UTrapframeSize
		Expect(stack).To(Equal([]uint32{
			outer,
			outer - 4 - trap.UTrapframeSize,
		}))
		Expect(e.Trapframe.ESP).To(Equal(uint32(vm.USTACKTOP)))
	})

	It("should destroy the environment when the upcall fails", func() {
		mapExceptionStack()

		failure := errors.New("not a copy-on-write fault")
		e.PgfaultUpcall = func(
			env.Machine, env.UserState, env.UTrapframe,
		) error {
			return failure
		}

		err := h.PageFault(nil, e, faultVA, vm.FaultUser)

		Expect(errors.Is(err, trap.ErrEnvDestroyed)).To(BeTrue())
		Expect(errors.Is(err, failure)).To(BeTrue())
		Expect(e.Status).To(Equal(env.Dying))
	})

	It("should not deliver faults to a dying environment", func() {
		mapExceptionStack()
		e.Status = env.Dying

		err := h.PageFault(nil, e, faultVA, vm.FaultWrite)
		Expect(err).To(MatchError(trap.ErrEnvDestroyed))
		Expect(events).To(BeEmpty())
	})
})
