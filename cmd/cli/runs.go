package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/dnv-opensource/WindFarmer-automation/internal/store"
)

var runsCmd = &cobra.Command{
	Use:   "runs [run-id]",
	Short: "List recorded runs, or the jobs of one run",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runRuns,
}

func init() {
	rootCmd.AddCommand(runsCmd)
}

func runRuns(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	st, err := store.New(ctx, cfg.Database.Path)
	if err != nil {
		return err
	}
	defer st.Close()

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	defer w.Flush()

	if len(args) == 0 {
		runs, err := st.ListRuns(ctx, 20)
		if err != nil {
			return err
		}
		fmt.Fprintln(w, "id\tkind\tstatus\tscenarios\tfailed\tstarted\t")
		for _, r := range runs {
			fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%s\t\n", r.ID, r.Kind, r.Status, r.Total, r.Failed, r.StartedAt.Local().Format(time.DateTime))
		}
		return nil
	}

	jobs, err := st.ListJobs(ctx, store.JobFilter{RunID: args[0]})
	if err != nil {
		return err
	}
	fmt.Fprintln(w, "scenario\trole\tstatus\tremote job\terror\t")
	for _, j := range jobs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t\n", j.Scenario, j.Role, j.Status, j.RemoteJobID, j.Error)
	}
	return nil
}
