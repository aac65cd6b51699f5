package kern

import (
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/sarchlab/joskern/kern/env"
	"github.com/sarchlab/joskern/kern/sched"
	"github.com/sarchlab/joskern/kern/syscall"
	"github.com/sarchlab/joskern/kern/trap"
	"github.com/sarchlab/joskern/mem/phys"
	"github.com/sarchlab/joskern/mem/vm"
)

// A Builder can build a kernel.
type Builder struct {
	numEnvs       int
	numCPUs       int
	numFrames     int
	arch          vm.Arch
	timerInterval time.Duration
	console       io.Writer
	logger        *slog.Logger
	monitor       sched.Monitor
}

// MakeBuilder creates a builder with the default machine: one CPU, 1024
// environment slots, 4096 frames of physical memory, x86 paging.
func MakeBuilder() Builder {
	return Builder{
		numEnvs:       env.MaxEnvs,
		numCPUs:       1,
		numFrames:     4096,
		arch:          vm.X86,
		timerInterval: 10 * time.Millisecond,
		console:       os.Stdout,
	}
}

// WithNumEnvs sets the number of environment slots.
func (b Builder) WithNumEnvs(n int) Builder {
	b.numEnvs = n
	return b
}

// WithNumCPUs sets the number of CPUs.
func (b Builder) WithNumCPUs(n int) Builder {
	b.numCPUs = n
	return b
}

// WithNumFrames sets the number of physical page frames.
func (b Builder) WithNumFrames(n int) Builder {
	b.numFrames = n
	return b
}

// WithArch sets the paging layout.
func (b Builder) WithArch(arch vm.Arch) Builder {
	b.arch = arch
	return b
}

// WithTimerInterval sets the period of the timer interrupt.
func (b Builder) WithTimerInterval(d time.Duration) Builder {
	b.timerInterval = d
	return b
}

// WithConsole sets where cputs output goes.
func (b Builder) WithConsole(w io.Writer) Builder {
	b.console = w
	return b
}

// WithLogger sets the kernel logger.
func (b Builder) WithLogger(logger *slog.Logger) Builder {
	b.logger = logger
	return b
}

// WithMonitor sets the prompt entered when the system runs out of work.
func (b Builder) WithMonitor(m sched.Monitor) Builder {
	b.monitor = m
	return b
}

// Build boots a kernel.
func (b Builder) Build() (*Kernel, error) {
	logger := b.logger
	if logger == nil {
		logger = slog.Default()
	}

	frames := phys.NewAllocator(b.numFrames)

	kernPgdir, err := vm.NewPageDirectory(b.arch, frames)
	if err != nil {
		return nil, err
	}

	envs := env.NewTable(b.numEnvs, b.arch, frames)

	k := &Kernel{
		arch:          b.arch,
		frames:        frames,
		kernPgdir:     kernPgdir,
		envs:          envs,
		logger:        logger,
		timerInterval: b.timerInterval,
	}

	k.syscalls = syscall.NewHandler(envs, frames, b.console, logger)
	k.traps = trap.NewHandler(&k.lock, envs, frames, logger)
	k.sched = sched.NewScheduler(
		&k.lock, envs, kernPgdir.Frame(), b.monitor, logger)

	for i := 0; i < b.numCPUs; i++ {
		k.cpus = append(k.cpus, &CPU{
			CPU: sched.NewCPU(i, kernPgdir.Frame()),
			k:   k,
		})
	}

	logger.Info("kernel booted",
		"arch", b.arch.Name(),
		"cpus", b.numCPUs,
		"envs", b.numEnvs,
		"frames", b.numFrames)

	return k, nil
}
