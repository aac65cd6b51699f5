// Package sched implements the priority round-robin scheduler and the idle
// path of the CPUs.
package sched

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/sarchlab/joskern/kern/env"
	"github.com/sarchlab/joskern/mem/phys"
	"github.com/sarchlab/joskern/sim"
)

// ErrNoWork is returned when no environment in the system can ever run
// again. It is an idle condition, not a failure.
var ErrNoWork = errors.New("no runnable environments in the system")

// Hook positions of the scheduler.
var (
	HookPosEnvRun  = &sim.HookPos{Name: "EnvRun"}
	HookPosCPUHalt = &sim.HookPos{Name: "CPUHalt"}
	HookPosCPUWake = &sim.HookPos{Name: "CPUWake"}
	HookPosNoWork  = &sim.HookPos{Name: "NoWork"}
)

// Monitor is the diagnostic prompt entered when the system runs out of
// work. It is called without the big kernel lock.
type Monitor interface {
	Prompt(ctx context.Context)
}

// Scheduler picks environments for CPUs.
type Scheduler struct {
	*sim.HookableBase

	lock      sync.Locker
	envs      *env.Table
	kernPgdir phys.Frame
	monitor   Monitor
	logger    *slog.Logger
	drained   bool
}

// NewScheduler creates a scheduler over the environment table. lock is the
// big kernel lock and kernPgdir the page directory idle CPUs switch to.
// monitor may be nil.
func NewScheduler(
	lock sync.Locker,
	envs *env.Table,
	kernPgdir phys.Frame,
	monitor Monitor,
	logger *slog.Logger,
) *Scheduler {
	return &Scheduler{
		HookableBase: sim.NewHookableBase(),
		lock:         lock,
		envs:         envs,
		kernPgdir:    kernPgdir,
		monitor:      monitor,
		logger:       logger,
	}
}

// SetMonitor replaces the diagnostic prompt. The caller must hold the big
// kernel lock.
func (s *Scheduler) SetMonitor(m Monitor) {
	s.monitor = m
}

func (s *Scheduler) invoke(pos *sim.HookPos, c *CPU, e *env.Env, detail any) {
	if s.NumHooks() == 0 {
		return
	}

	ctx := sim.HookCtx{
		Domain: s,
		Pos:    pos,
		CPU:    c.ID,
		Detail: detail,
	}

	if e != nil {
		ctx.Env = int32(e.ID)
		ctx.Item = e
	}

	s.InvokeHook(ctx)
}

// Yield chooses the next environment for c and marks it running there. The
// caller must hold the big kernel lock.
//
// The table is scanned once, starting just after the slot c ran last, and
// the runnable environment with the lowest priority value wins. Ties go to
// the one found first. If nothing is runnable, c keeps running its current
// environment. Otherwise c halts until interrupted and Yield returns a nil
// environment, or ErrNoWork if nothing in the system can run anymore.
func (s *Scheduler) Yield(ctx context.Context, c *CPU) (*env.Env, error) {
	n := s.envs.Len()

	var (
		best     *env.Env
		bestSlot int
	)

	for i := 0; i < n; i++ {
		slot := (c.lastSlot + 1 + i) % n

		e := s.envs.At(slot)
		if e.Status != env.Runnable {
			continue
		}

		if best == nil || e.Priority < best.Priority {
			best = e
			bestSlot = slot
		}
	}

	if best != nil {
		s.run(c, best, bestSlot)
		return best, nil
	}

	if c.CurEnv != nil && c.CurEnv.RunningOn(c.ID) {
		s.run(c, c.CurEnv, c.lastSlot)
		return c.CurEnv, nil
	}

	return nil, s.halt(ctx, c)
}

func (s *Scheduler) run(c *CPU, e *env.Env, slot int) {
	if c.CurEnv != nil && c.CurEnv != e && c.CurEnv.RunningOn(c.ID) {
		c.CurEnv.Status = env.Runnable
	}

	e.Status = env.Running
	e.CPU = c.ID
	e.Runs++

	c.CurEnv = e
	c.CR3 = e.Pgdir.Frame()
	c.lastSlot = slot
	s.drained = false

	s.invoke(HookPosEnvRun, c, e, e.Priority)
}

func (s *Scheduler) hasWork() bool {
	for i := 0; i < s.envs.Len(); i++ {
		switch s.envs.At(i).Status {
		case env.Runnable, env.Running, env.Dying:
			return true
		}
	}

	return false
}

func (s *Scheduler) halt(ctx context.Context, c *CPU) error {
	if !s.hasWork() {
		if !s.drained {
			s.drained = true
			s.logger.Info("No runnable environments in the system!")
			s.invoke(HookPosNoWork, c, nil, nil)

			if s.monitor != nil {
				s.lock.Unlock()
				s.monitor.Prompt(ctx)
				s.lock.Lock()
			}
		}

		return ErrNoWork
	}

	c.CurEnv = nil
	c.CR3 = s.kernPgdir
	c.setStatus(CPUHalted)
	s.invoke(HookPosCPUHalt, c, nil, nil)

	s.lock.Unlock()

	var err error
	select {
	case <-c.interrupts:
	case <-ctx.Done():
		err = ctx.Err()
	}

	s.lock.Lock()

	c.setStatus(CPUStarted)
	s.invoke(HookPosCPUWake, c, nil, nil)

	return err
}
