package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sarchlab/joskern/datarecording"
	"github.com/sarchlab/joskern/tracing"
)

func newTraceCmd() *cobra.Command {
	var (
		kind  string
		limit int
	)

	traceCmd := &cobra.Command{
		Use:   "trace <file.sqlite3>",
		Short: "Print the kernel events recorded by run --trace.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := os.Stat(args[0]); err != nil {
				return err
			}

			db := datarecording.NewReader(args[0])
			defer db.Close()

			r := tracing.NewReader(db)

			sessions, err := r.Sessions(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, s := range sessions {
				fmt.Fprintf(out, "session %s: %s to %s, %d events\n",
					s.ID, s.Started, s.Ended, s.Events)
			}

			events, total, err := r.Events(cmd.Context(), kind, limit)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "SEQ\tTIME\tCPU\tENV\tKIND\tDETAIL")

			for _, e := range events {
				fmt.Fprintf(w, "%d\t%.6f\t%d\t%s\t%s\t%s\n",
					e.Seq, e.Time, e.CPU, e.Env, e.Kind, e.Detail)
			}

			if err := w.Flush(); err != nil {
				return err
			}

			fmt.Fprintf(out, "%d of %d events shown\n", len(events), total)

			return nil
		},
	}

	traceCmd.Flags().StringVar(&kind, "kind", "",
		"Only show events of this kind, such as EnvRun or PageFault")
	traceCmd.Flags().IntVar(&limit, "limit", 0,
		"Show at most this many events, 0 for all")

	return traceCmd
}
