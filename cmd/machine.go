package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/sarchlab/joskern/config"
	"github.com/sarchlab/joskern/datarecording"
	"github.com/sarchlab/joskern/kern"
	"github.com/sarchlab/joskern/kern/env"
	"github.com/sarchlab/joskern/lib"
	"github.com/sarchlab/joskern/sim"
	"github.com/sarchlab/joskern/user"
)

// addMachineFlags registers the flags that describe the machine to boot.
func addMachineFlags(flags *pflag.FlagSet) {
	d := config.Default()

	flags.Int("cpus", d.NumCPUs, "Number of CPUs")
	flags.Int("envs", d.NumEnvs, "Number of environment slots")
	flags.Int("frames", d.NumFrames, "Number of physical page frames")
	flags.String("arch", d.Arch, "Paging layout, x86 or arm")
	flags.Int("depth", d.Depth, "Depth of the forktree workload")
	flags.Duration("timer", d.TimerInterval, "Period of the timer interrupt")
	flags.String("log-level", d.LogLevel, "DEBUG, INFO, WARN or ERROR")
	flags.String("log-file", d.LogFile, "Also write the log to this file")
}

// applyMachineFlags overrides cfg with the flags given on the command line.
func applyMachineFlags(flags *pflag.FlagSet, cfg *config.Config) {
	if flags.Changed("cpus") {
		cfg.NumCPUs, _ = flags.GetInt("cpus")
	}

	if flags.Changed("envs") {
		cfg.NumEnvs, _ = flags.GetInt("envs")
	}

	if flags.Changed("frames") {
		cfg.NumFrames, _ = flags.GetInt("frames")
	}

	if flags.Changed("arch") {
		cfg.Arch, _ = flags.GetString("arch")
	}

	if flags.Changed("depth") {
		cfg.Depth, _ = flags.GetInt("depth")
	}

	if flags.Changed("timer") {
		cfg.TimerInterval, _ = flags.GetDuration("timer")
	}

	if flags.Changed("log-level") {
		cfg.LogLevel, _ = flags.GetString("log-level")
	}

	if flags.Changed("log-file") {
		cfg.LogFile, _ = flags.GetString("log-file")
	}
}

// machine is a booted kernel with the forktree workload spawned.
type machine struct {
	k      *kern.Kernel
	logger *slog.Logger
	closer io.Closer
}

// boot validates the configuration, builds the kernel and spawns the
// forktree workload.
func boot(cmd *cobra.Command, cfg config.Config) (*machine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	arch, _ := cfg.PagingArch()

	logger, closer, err := cfg.NewLogger(cmd.ErrOrStderr())
	if err != nil {
		return nil, err
	}

	k, err := kern.MakeBuilder().
		WithNumCPUs(cfg.NumCPUs).
		WithNumEnvs(cfg.NumEnvs).
		WithNumFrames(cfg.NumFrames).
		WithArch(arch).
		WithTimerInterval(cfg.TimerInterval).
		WithConsole(cmd.OutOrStdout()).
		WithLogger(logger).
		Build()
	if err != nil {
		closer.Close()
		return nil, err
	}

	k.AcceptHook(sim.NewLogHook(logger, slog.LevelDebug))

	return &machine{k: k, logger: logger, closer: closer}, nil
}

// spawn starts the forktree workload.
func (m *machine) spawn(depth int) error {
	_, err := m.k.Spawn(
		lib.Start(user.Forktree(depth)),
		lib.NewProcess(),
		env.DefaultPriority)

	return err
}

// forktreeSize is the number of environments a forktree of the given depth
// creates.
func forktreeSize(depth int) uint64 {
	return 1<<(depth+1) - 1
}

// openRecorder opens the trace backend named by target. An empty target
// gives no recorder.
func openRecorder(cfg config.Config) (datarecording.DataRecorder, error) {
	target := cfg.Trace

	switch {
	case target == "":
		return nil, nil
	case target == "sqlite":
		return datarecording.New(""), nil
	case strings.HasPrefix(target, "sqlite:"):
		return datarecording.New(strings.TrimPrefix(target, "sqlite:")), nil
	case strings.HasPrefix(target, "clickhouse:"):
		return datarecording.NewClickHouse(datarecording.ClickHouseConfig{
			Addr:     strings.TrimPrefix(target, "clickhouse:"),
			Database: cfg.ClickHouseDatabase,
			Username: cfg.ClickHouseUser,
			Password: cfg.ClickHousePassword,
		})
	default:
		return nil, fmt.Errorf("unknown trace target %q", target)
	}
}
