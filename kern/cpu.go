package kern

import (
	"context"
	"errors"
	"fmt"

	"github.com/sarchlab/joskern/kern/env"
	"github.com/sarchlab/joskern/kern/sched"
)

// CPU is one processor of the kernel.
type CPU struct {
	*sched.CPU

	k *Kernel
}

// Step schedules one environment on the CPU and runs its user code until
// the environment exits or is destroyed. If no environment can run yet, the
// CPU halts until interrupted and Step returns nil without running
// anything. sched.ErrNoWork is returned once nothing can ever run again.
func (c *CPU) Step(ctx context.Context) error {
	k := c.k

	k.lock.Lock()

	e, err := k.sched.Yield(ctx, c.CPU)
	if err != nil || e == nil {
		k.lock.Unlock()
		return err
	}

	entry := e.Trapframe.Entry
	user := e.User

	k.lock.Unlock()

	if entry != nil {
		c.runEntry(e, entry, user)
	}

	k.lock.Lock()
	k.reap(c, e)
	k.lock.Unlock()

	return nil
}

// runEntry runs user code on its own goroutine so that a destroyed
// environment can be stopped wherever it is.
func (c *CPU) runEntry(e *env.Env, entry env.Entry, user env.UserState) {
	m := &machine{k: c.k, cpu: c, e: e}
	done := make(chan struct{})

	go func() {
		defer close(done)
		defer func() {
			if r := recover(); r != nil {
				c.k.logger.Error("user fault",
					"env", e.ID,
					"err", fmt.Errorf("%w: %v", errUserPanic, r))
			}
		}()

		entry(m, user)
	}()

	<-done
}

// Run steps the CPU until the system runs out of work or the context ends.
func (c *CPU) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := c.Step(ctx)
		if errors.Is(err, sched.ErrNoWork) {
			return nil
		}

		if err != nil {
			return err
		}
	}
}
