package main

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/quakelab/ddlocate/internal/model"
	"github.com/quakelab/ddlocate/internal/store"
)

var (
	runsStatus string
	runsLabel  string
	runsLimit  int
	runsOffset int
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List relocation runs from the catalog",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		runs, err := st.ListRuns(ctx, store.RunFilter{
			Status: model.RunStatus(runsStatus),
			Label:  runsLabel,
			Limit:  runsLimit,
			Offset: runsOffset,
		})
		if err != nil {
			return err
		}

		tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "id\tlabel\tmaster\tstatus\trms\toffset\tupdated")
		for _, r := range runs {
			rms, offset := "-", "-"
			if r.Solution != nil {
				rms = fmt.Sprintf("%.4f", r.Solution.RMS)
				offset = r.Solution.Offset.String()
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
				r.ID, r.Doublet.Label, r.Doublet.Master.ID(), r.Status,
				rms, offset, r.UpdatedAt.Format("2006-01-02 15:04:05"))
		}
		return tw.Flush()
	},
}

var runsShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Print one run as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		run, err := st.GetRun(ctx, args[0])
		if err != nil {
			return err
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(run)
	},
}

func init() {
	f := runsCmd.Flags()
	f.StringVar(&runsStatus, "status", "", "filter by status (queued, running, complete, failed)")
	f.StringVar(&runsLabel, "label", "", "filter by label")
	f.IntVar(&runsLimit, "limit", 50, "maximum rows")
	f.IntVar(&runsOffset, "offset", 0, "rows to skip")
	runsCmd.AddCommand(runsShowCmd)
	rootCmd.AddCommand(runsCmd)
}
