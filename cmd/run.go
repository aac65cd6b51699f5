package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"sync"

	"github.com/pkg/browser"
	"github.com/spf13/cobra"

	"github.com/sarchlab/joskern/config"
	"github.com/sarchlab/joskern/datarecording"
	"github.com/sarchlab/joskern/kern"
	"github.com/sarchlab/joskern/kern/syscall"
	"github.com/sarchlab/joskern/monitoring"
	"github.com/sarchlab/joskern/sim"
	"github.com/sarchlab/joskern/tracing"
)

type runFlags struct {
	trace string
	serve bool
	port  int
	open  bool
	wait  bool
}

func newRunCmd(opts *options) *cobra.Command {
	f := &runFlags{}

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Boot the kernel and run the forktree workload.",
		Long: "Boot the kernel, run the forktree workload until no " +
			"environment is left, optionally tracing kernel events into " +
			"a database and serving the kernel state over HTTP.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := opts.cfg
			applyMachineFlags(cmd.Flags(), &cfg)
			applyRunFlags(cmd, f, &cfg)

			return run(cmd, cfg, f)
		},
	}

	addMachineFlags(runCmd.Flags())
	runCmd.Flags().StringVar(&f.trace, "trace", "",
		"Record kernel events to sqlite, sqlite:<path> or clickhouse:<host:port>")
	runCmd.Flags().BoolVar(&f.serve, "serve", false,
		"Serve the kernel state over HTTP while running")
	runCmd.Flags().IntVar(&f.port, "port", 0,
		"Port of the monitoring server, 0 for any")
	runCmd.Flags().BoolVar(&f.open, "open", false,
		"Open the monitoring page in a browser, implies --serve")
	runCmd.Flags().BoolVar(&f.wait, "wait", false,
		"Keep serving after the workload ends, until interrupted")

	return runCmd
}

func applyRunFlags(cmd *cobra.Command, f *runFlags, cfg *config.Config) {
	if cmd.Flags().Changed("trace") {
		cfg.Trace = f.trace
	}

	if cmd.Flags().Changed("port") {
		cfg.MonitorPort = f.port
	}

	if f.open {
		f.serve = true
	}
}

func run(cmd *cobra.Command, cfg config.Config, f *runFlags) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	m, err := boot(cmd, cfg)
	if err != nil {
		return err
	}
	defer m.closer.Close()

	chooseIDGenerator(cfg.NumCPUs)

	counter := tracing.NewCounter(nil)
	m.k.AcceptHook(counter)

	backend, err := openRecorder(cfg)
	if err != nil {
		return err
	}

	if backend != nil {
		defer backend.Close()

		exec := datarecording.NewExecRecorder(backend)
		exec.Start()
		exec.Set("Arch", cfg.Arch)
		exec.Set("CPUs", strconv.Itoa(cfg.NumCPUs))
		exec.Set("Frames", strconv.Itoa(cfg.NumFrames))
		exec.Set("Depth", strconv.Itoa(cfg.Depth))
		defer exec.End()

		recorder := tracing.NewRecorder(backend, tracing.All)
		m.k.AcceptHook(recorder)
		defer recorder.Terminate()
	}

	if f.serve {
		serve(m.k, counter, cfg, f)
	}

	if err := m.spawn(cfg.Depth); err != nil {
		return err
	}

	err = m.k.Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	mem := m.k.Memory()
	fmt.Fprintf(cmd.ErrOrStderr(),
		"Workload finished: %d of %d frames free, %d kernel events.\n",
		mem.FreeFrames, mem.Frames, totalEvents(counter))

	if f.serve && f.wait {
		fmt.Fprintln(cmd.ErrOrStderr(), "Press Ctrl-C to stop serving.")
		<-ctx.Done()
	}

	return nil
}

func serve(k *kern.Kernel, counter *tracing.Counter, cfg config.Config, f *runFlags) {
	mon := monitoring.NewMonitor(k).WithPortNumber(cfg.MonitorPort)
	mon.RegisterCounter(counter)

	bar := mon.CreateProgressBar("Environments", forktreeSize(cfg.Depth))
	k.AcceptHook(sim.HookFunc(func(ctx sim.HookCtx) {
		switch ctx.Pos {
		case kern.HookPosEnvCreate, syscall.HookPosExofork:
			bar.IncrementInProgress(1)
		case kern.HookPosEnvFree:
			bar.MoveInProgressToFinished(1)
		}
	}))

	url := mon.StartServer()

	if f.open {
		if err := browser.OpenURL(url); err != nil {
			fmt.Fprintf(os.Stderr, "Cannot open browser: %v\n", err)
		}
	}
}

func totalEvents(c *tracing.Counter) uint64 {
	var n uint64
	for _, kc := range c.Snapshot() {
		n += kc.Count
	}

	return n
}

var idGeneratorOnce sync.Once

// chooseIDGenerator keeps trace IDs deterministic on one CPU and switches
// to uncoordinated unique IDs when several CPUs record concurrently. The
// choice is made once per process.
func chooseIDGenerator(numCPUs int) {
	idGeneratorOnce.Do(func() {
		if numCPUs > 1 {
			sim.UseParallelIDGenerator()
		} else {
			sim.UseSequentialIDGenerator()
		}
	})
}
