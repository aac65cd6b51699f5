// Package kern assembles the environment table, the scheduler, the fault
// path and the system calls into a kernel with one or more CPUs.
package kern

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/sarchlab/joskern/kern/env"
	"github.com/sarchlab/joskern/kern/sched"
	"github.com/sarchlab/joskern/kern/syscall"
	"github.com/sarchlab/joskern/kern/trap"
	"github.com/sarchlab/joskern/mem/phys"
	"github.com/sarchlab/joskern/mem/vm"
	"github.com/sarchlab/joskern/sim"
)

// Hook positions of the kernel.
var (
	HookPosEnvCreate = &sim.HookPos{Name: "EnvCreate"}
	HookPosEnvFree   = &sim.HookPos{Name: "EnvFree"}
)

// flagIF is the interrupt-enable bit of EFLAGS.
const flagIF = 0x200

// Kernel is a booted kernel.
type Kernel struct {
	sim.HookableBase

	// lock is the big kernel lock.
	lock sync.Mutex

	arch          vm.Arch
	frames        *phys.Allocator
	kernPgdir     *vm.PageDirectory
	envs          *env.Table
	syscalls      *syscall.Handler
	traps         *trap.Handler
	sched         *sched.Scheduler
	cpus          []*CPU
	logger        *slog.Logger
	timerInterval time.Duration
}

// AcceptHook registers a hook with the kernel and all its parts.
func (k *Kernel) AcceptHook(hook sim.Hook) {
	k.HookableBase.AcceptHook(hook)
	k.syscalls.AcceptHook(hook)
	k.traps.AcceptHook(hook)
	k.sched.AcceptHook(hook)
}

// SetMonitor replaces the prompt entered when the system runs out of work.
func (k *Kernel) SetMonitor(m sched.Monitor) {
	k.lock.Lock()
	defer k.lock.Unlock()

	k.sched.SetMonitor(m)
}

// Arch returns the paging layout.
func (k *Kernel) Arch() vm.Arch {
	return k.arch
}

// Frames returns the physical frame allocator.
func (k *Kernel) Frames() *phys.Allocator {
	return k.frames
}

// CPUs returns the kernel's processors.
func (k *Kernel) CPUs() []*CPU {
	return k.cpus
}

func (k *Kernel) invoke(pos *sim.HookPos, e *env.Env, detail any) {
	if k.NumHooks() == 0 {
		return
	}

	k.InvokeHook(sim.HookCtx{
		Domain: k,
		Pos:    pos,
		CPU:    e.CPU,
		Env:    int32(e.ID),
		Item:   e,
		Detail: detail,
	})
}

// Spawn creates a runnable environment with no parent that starts in entry
// with the given process state. It gets a user stack page below USTACKTOP.
func (k *Kernel) Spawn(
	entry env.Entry,
	user env.UserState,
	priority uint8,
) (env.EnvID, error) {
	k.lock.Lock()
	defer k.lock.Unlock()

	e, err := k.envs.Alloc(0)
	if err != nil {
		return 0, err
	}

	f, err := k.frames.Alloc(true)
	if err != nil {
		k.envs.Free(e)
		return 0, err
	}

	err = e.Pgdir.Insert(f, vm.USTACKTOP-vm.PageSize,
		vm.PermUser|vm.PermWritable)
	if err != nil {
		k.frames.Free(f)
		k.envs.Free(e)

		return 0, err
	}

	e.Trapframe = env.Trapframe{
		EIP:    uint32(vm.UTEXT),
		EFlags: flagIF,
		ESP:    uint32(vm.USTACKTOP),
		Entry:  entry,
	}
	e.User = user
	e.Priority = priority
	e.Status = env.Runnable

	k.logger.Info("new env", "parent", env.EnvID(0), "env", e.ID)
	k.invoke(HookPosEnvCreate, e, priority)
	k.kick()

	return e.ID, nil
}

// kick wakes every halted CPU.
func (k *Kernel) kick() {
	for _, c := range k.cpus {
		if c.Status() == sched.CPUHalted {
			c.Interrupt()
		}
	}
}

// Run drives every CPU in its own goroutine and raises a timer interrupt
// on all of them periodically. It returns when the system runs out of work
// or the context ends.
func (k *Kernel) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup

	errs := make([]error, len(k.cpus))
	for i, c := range k.cpus {
		wg.Add(1)

		go func() {
			defer wg.Done()
			errs[i] = c.Run(ctx)
		}()
	}

	go k.timer(ctx)

	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return err
		}
	}

	return nil
}

func (k *Kernel) timer(ctx context.Context) {
	ticker := time.NewTicker(k.timerInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, c := range k.cpus {
				c.Interrupt()
			}
		}
	}
}

// reap frees an environment whose user code has returned or that has been
// destroyed. The caller must hold the big kernel lock.
func (k *Kernel) reap(c *CPU, e *env.Env) {
	if e.Status == env.Free {
		return
	}

	if e.Status == env.Running {
		k.logger.Info("exiting gracefully", "env", e.ID)
	}

	k.logger.Info("free env", "env", e.ID, "runs", e.Runs)
	k.invoke(HookPosEnvFree, e, e.Runs)
	k.envs.Free(e)

	if c.CurEnv == e {
		c.CurEnv = nil
		c.CR3 = k.kernPgdir.Frame()
	}

	k.kick()
}

// errUserPanic marks an environment killed for panicking in user code.
var errUserPanic = errors.New("user environment panicked")
