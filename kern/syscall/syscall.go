// Package syscall implements the kernel side of the system calls user
// environments use to manage environments and memory.
package syscall

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/sarchlab/joskern/kern/env"
	"github.com/sarchlab/joskern/mem/phys"
	"github.com/sarchlab/joskern/mem/vm"
	"github.com/sarchlab/joskern/sim"
)

// Hook positions of the system call handler.
var (
	HookPosExofork   = &sim.HookPos{Name: "Exofork"}
	HookPosEnvStatus = &sim.HookPos{Name: "EnvSetStatus"}
	HookPosDestroy   = &sim.HookPos{Name: "EnvDestroy"}
)

// flagIF is the interrupt-enable bit of EFLAGS.
const flagIF = 0x200

// Handler executes system calls. Callers must hold the big kernel lock.
type Handler struct {
	*sim.HookableBase

	envs    *env.Table
	frames  *phys.Allocator
	console io.Writer
	logger  *slog.Logger
}

// NewHandler creates a handler over the environment table and the frame
// allocator. Console output goes to console.
func NewHandler(
	envs *env.Table,
	frames *phys.Allocator,
	console io.Writer,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		HookableBase: sim.NewHookableBase(),
		envs:         envs,
		frames:       frames,
		console:      console,
		logger:       logger,
	}
}

func (h *Handler) invoke(pos *sim.HookPos, caller *env.Env, detail any) {
	if h.NumHooks() == 0 {
		return
	}

	h.InvokeHook(sim.HookCtx{
		Domain: h,
		Pos:    pos,
		CPU:    caller.CPU,
		Env:    int32(caller.ID),
		Detail: detail,
	})
}

// GetEnvID returns the caller's identifier.
func (h *Handler) GetEnvID(caller *env.Env) env.EnvID {
	return caller.ID
}

// GetEnvPriority returns the caller's scheduling priority.
func (h *Handler) GetEnvPriority(caller *env.Env) uint8 {
	return caller.Priority
}

// Cputs prints a string to the console.
func (h *Handler) Cputs(_ *env.Env, s string) {
	_, _ = io.WriteString(h.console, s)
}

// Exofork creates a child environment with an empty address space and a
// copy of the caller's registers. The child is not runnable and will see
// zero as the return value of the call.
func (h *Handler) Exofork(caller *env.Env) (env.EnvID, error) {
	child, err := h.envs.Alloc(caller.ID)
	if err != nil {
		return 0, errnoOf(err)
	}

	child.Trapframe = caller.Trapframe
	child.Trapframe.Regs.EAX = 0
	child.Priority = caller.Priority

	if caller.User != nil {
		child.User = caller.User.Clone()
	}

	h.logger.Info("new env", "parent", caller.ID, "env", child.ID)
	h.invoke(HookPosExofork, caller, child.ID)

	return child.ID, nil
}

// EnvDestroy destroys the caller or one of its children.
func (h *Handler) EnvDestroy(caller *env.Env, id env.EnvID) error {
	e, err := h.envs.Lookup(id, caller, true)
	if err != nil {
		return errnoOf(err)
	}

	if e == caller {
		h.logger.Info("exiting gracefully", "env", e.ID)
	} else {
		h.logger.Info("destroying", "env", caller.ID, "target", e.ID)
	}

	h.invoke(HookPosDestroy, caller, e.ID)
	h.envs.Destroy(e)

	return nil
}

// EnvSetStatus sets the status of the caller or a child to RUNNABLE or
// NOT_RUNNABLE.
func (h *Handler) EnvSetStatus(
	caller *env.Env,
	id env.EnvID,
	status env.Status,
) error {
	if status != env.Runnable && status != env.NotRunnable {
		return EInval
	}

	e, err := h.envs.Lookup(id, caller, true)
	if err != nil {
		return errnoOf(err)
	}

	e.Status = status
	h.invoke(HookPosEnvStatus, caller, fmt.Sprintf("%s %s", e.ID, status))

	return nil
}

// EnvSetTrapframe replaces the saved registers of the caller or a child.
// The environment always resumes with interrupts enabled.
func (h *Handler) EnvSetTrapframe(
	caller *env.Env,
	id env.EnvID,
	tf env.Trapframe,
) error {
	e, err := h.envs.Lookup(id, caller, true)
	if err != nil {
		return errnoOf(err)
	}

	tf.EFlags |= flagIF
	e.Trapframe = tf

	return nil
}

// EnvSetPgfaultUpcall registers the page fault entry point of the caller or
// a child.
func (h *Handler) EnvSetPgfaultUpcall(
	caller *env.Env,
	id env.EnvID,
	upcall env.Upcall,
) error {
	e, err := h.envs.Lookup(id, caller, true)
	if err != nil {
		return errnoOf(err)
	}

	e.PgfaultUpcall = upcall

	return nil
}

// EnvSetPriority changes the scheduling priority of the caller or a child.
func (h *Handler) EnvSetPriority(
	caller *env.Env,
	id env.EnvID,
	priority uint8,
) error {
	e, err := h.envs.Lookup(id, caller, true)
	if err != nil {
		return errnoOf(err)
	}

	e.Priority = priority

	return nil
}

func checkUserVA(va vm.VA) error {
	if va >= vm.UTOP || !va.Aligned() {
		return EInval
	}

	return nil
}

// PageAlloc maps a fresh zeroed page at va in the caller or a child.
func (h *Handler) PageAlloc(
	caller *env.Env,
	id env.EnvID,
	va vm.VA,
	perm vm.Perm,
) error {
	e, err := h.envs.Lookup(id, caller, true)
	if err != nil {
		return errnoOf(err)
	}

	if err := checkUserVA(va); err != nil {
		return err
	}

	if !vm.ValidSyscallPerm(perm) {
		return EInval
	}

	f, err := h.frames.Alloc(true)
	if err != nil {
		return errnoOf(err)
	}

	if err := e.Pgdir.Insert(f, va, perm); err != nil {
		h.frames.Free(f)
		return errnoOf(err)
	}

	return nil
}

// PageMap maps the page at srcVA in one environment at dstVA in another.
// Both must be the caller or its children. A read-only page cannot be
// mapped writable.
func (h *Handler) PageMap(
	caller *env.Env,
	srcID env.EnvID, srcVA vm.VA,
	dstID env.EnvID, dstVA vm.VA,
	perm vm.Perm,
) error {
	src, err := h.envs.Lookup(srcID, caller, true)
	if err != nil {
		return errnoOf(err)
	}

	dst, err := h.envs.Lookup(dstID, caller, true)
	if err != nil {
		return errnoOf(err)
	}

	if err := checkUserVA(srcVA); err != nil {
		return err
	}

	if err := checkUserVA(dstVA); err != nil {
		return err
	}

	if !vm.ValidSyscallPerm(perm) {
		return EInval
	}

	page, found := src.Pgdir.Find(srcVA)
	if !found {
		return EInval
	}

	if perm.Has(vm.PermWritable) && !page.Perm.Has(vm.PermWritable) {
		return EInval
	}

	if err := dst.Pgdir.Insert(page.Frame, dstVA, perm); err != nil {
		return errnoOf(err)
	}

	return nil
}

// PageUnmap removes the mapping at va in the caller or a child. Unmapping
// an unmapped address succeeds.
func (h *Handler) PageUnmap(caller *env.Env, id env.EnvID, va vm.VA) error {
	e, err := h.envs.Lookup(id, caller, true)
	if err != nil {
		return errnoOf(err)
	}

	if err := checkUserVA(va); err != nil {
		return err
	}

	e.Pgdir.Remove(va)

	return nil
}
