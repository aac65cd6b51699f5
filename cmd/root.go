// Package cmd provides the command-line interface of joskern.
package cmd

import (
	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"

	"github.com/sarchlab/joskern/config"
)

// options are the settings shared by the subcommands of one invocation.
type options struct {
	envFile string
	cfg     config.Config
}

// NewRootCmd creates the joskern command tree.
func NewRootCmd() *cobra.Command {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:   "joskern",
		Short: "joskern boots a simulated JOS kernel and runs user programs on it.",
		Long: `joskern boots a simulated JOS kernel with copy-on-write fork, ` +
			`a priority scheduler and per-architecture page tables, runs ` +
			`user workloads on it and lets you inspect and trace the result.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(opts.envFile)
			if err != nil {
				return err
			}

			opts.cfg = cfg

			return nil
		},
	}

	rootCmd.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env",
		"File with JOSKERN_* settings")

	rootCmd.AddCommand(
		newRunCmd(opts),
		newInspectCmd(opts),
		newTraceCmd(),
	)

	return rootCmd
}

// Execute runs the command line and exits the process.
func Execute() {
	err := NewRootCmd().Execute()
	if err != nil {
		atexit.Exit(1)
	}

	atexit.Exit(0)
}
