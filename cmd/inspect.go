package cmd

import (
	"context"
	"errors"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/sarchlab/joskern/monitor"
)

func newInspectCmd(opts *options) *cobra.Command {
	inspectCmd := &cobra.Command{
		Use:   "inspect",
		Short: "Run the forktree workload, then enter the kernel monitor.",
		Long: "Boot the kernel and run the forktree workload. When no " +
			"environment is left, the kernel monitor reads commands from " +
			"standard input. Type 'help' for the list of commands.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := opts.cfg
			applyMachineFlags(cmd.Flags(), &cfg)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			m, err := boot(cmd, cfg)
			if err != nil {
				return err
			}
			defer m.closer.Close()

			m.k.SetMonitor(monitor.New(m.k, cmd.InOrStdin(), cmd.OutOrStdout()))

			if err := m.spawn(cfg.Depth); err != nil {
				return err
			}

			err = m.k.Run(ctx)
			if err != nil && !errors.Is(err, context.Canceled) {
				return err
			}

			return nil
		},
	}

	addMachineFlags(inspectCmd.Flags())

	return inspectCmd
}
