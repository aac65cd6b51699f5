// Package trap delivers user page faults to the faulting environment's
// upcall on its exception stack.
package trap

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/sarchlab/joskern/kern/env"
	"github.com/sarchlab/joskern/mem/phys"
	"github.com/sarchlab/joskern/mem/vm"
	"github.com/sarchlab/joskern/sim"
)

// ErrEnvDestroyed is returned when the fault could not be handled and the
// environment has been destroyed. The faulting code must not continue.
var ErrEnvDestroyed = errors.New("environment destroyed")

// Hook positions of the fault path.
var (
	HookPosPageFault = &sim.HookPos{Name: "PageFault"}
	HookPosUserKill  = &sim.HookPos{Name: "UserFaultKill"}
)

// Handler dispatches page faults raised by user memory accesses.
type Handler struct {
	*sim.HookableBase

	lock   sync.Locker
	envs   *env.Table
	frames *phys.Allocator
	logger *slog.Logger
}

// NewHandler creates a fault handler. lock is the big kernel lock, which
// must not be held when PageFault is called.
func NewHandler(
	lock sync.Locker,
	envs *env.Table,
	frames *phys.Allocator,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		HookableBase: sim.NewHookableBase(),
		lock:         lock,
		envs:         envs,
		frames:       frames,
		logger:       logger,
	}
}

func (h *Handler) invoke(pos *sim.HookPos, e *env.Env, item, detail any) {
	if h.NumHooks() == 0 {
		return
	}

	h.InvokeHook(sim.HookCtx{
		Domain: h,
		Pos:    pos,
		CPU:    e.CPU,
		Env:    int32(e.ID),
		Item:   item,
		Detail: detail,
	})
}

// PageFault handles a fault at va raised by e while running on m. It
// returns nil once the upcall has handled the fault and the access may be
// retried.
func (h *Handler) PageFault(
	m env.Machine,
	e *env.Env,
	va vm.VA,
	code vm.FaultCode,
) error {
	h.lock.Lock()

	if e.Status == env.Dying {
		h.lock.Unlock()
		return ErrEnvDestroyed
	}

	h.invoke(HookPosPageFault, e, va, code)

	upcall := e.PgfaultUpcall
	if upcall == nil {
		h.kill(e, va, "no page fault upcall")
		h.lock.Unlock()

		return ErrEnvDestroyed
	}

	utf := env.UTrapframe{
		FaultVA: va,
		Err:     code,
		Regs:    e.Trapframe.Regs,
		EIP:     e.Trapframe.EIP,
		EFlags:  e.Trapframe.EFlags,
		ESP:     e.Trapframe.ESP,
	}

	pos, err := h.push(e, utf)
	if err != nil {
		h.kill(e, va, err.Error())
		h.lock.Unlock()

		return ErrEnvDestroyed
	}

	e.Trapframe.ESP = uint32(pos)
	h.lock.Unlock()

	upcallErr := upcall(m, e.User, utf)

	h.lock.Lock()
	defer h.lock.Unlock()

	if upcallErr != nil {
		h.logger.Error("user fault handler failed",
			"env", e.ID, "va", fmt.Sprintf("%08x", uint32(va)),
			"err", upcallErr)
		h.kill(e, va, upcallErr.Error())

		return fmt.Errorf("%w: %w", ErrEnvDestroyed, upcallErr)
	}

	if e.Status == env.Dying {
		return ErrEnvDestroyed
	}

	return h.pop(e, pos)
}

// push writes utf onto e's exception stack and returns its address.
func (h *Handler) push(e *env.Env, utf env.UTrapframe) (vm.VA, error) {
	pos, ok := framePosition(utf.ESP)
	if !ok {
		return 0, errors.New("exception stack overflow")
	}

	paddr, _, ok := e.Pgdir.Access(pos, true, true)
	if !ok {
		return 0, errors.New("exception stack not writable")
	}

	err := h.frames.Storage().Write(paddr, EncodeUTrapframe(utf))
	if err != nil {
		return 0, err
	}

	return pos, nil
}

// pop resumes e with the trap-time registers saved at pos.
func (h *Handler) pop(e *env.Env, pos vm.VA) error {
	paddr, _, ok := e.Pgdir.Access(pos, false, true)
	if !ok {
		h.kill(e, pos, "exception stack unmapped by upcall")
		return ErrEnvDestroyed
	}

	data, err := h.frames.Storage().Read(paddr, UTrapframeSize)
	if err != nil {
		return err
	}

	utf, err := DecodeUTrapframe(data)
	if err != nil {
		return err
	}

	e.Trapframe.Regs = utf.Regs
	e.Trapframe.EIP = utf.EIP
	e.Trapframe.EFlags = utf.EFlags
	e.Trapframe.ESP = utf.ESP

	return nil
}

func (h *Handler) kill(e *env.Env, va vm.VA, reason string) {
	h.logger.Warn("user fault",
		"env", e.ID,
		"va", fmt.Sprintf("%08x", uint32(va)),
		"ip", fmt.Sprintf("%08x", e.Trapframe.EIP),
		"reason", reason)
	h.invoke(HookPosUserKill, e, va, reason)
	h.envs.Destroy(e)
}
