package cmd

import (
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List recent scan passes from the run history",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logg, err := setup()
		if err != nil {
			return err
		}
		defer logg.Sync()

		_, runs := connectHistory(cfg, logg)
		if runs == nil {
			return errors.New("run history is not available (set DATABASE_ENABLED=true)")
		}

		limit, _ := cmd.Flags().GetInt("limit")
		list, err := runs.Recent(cmd.Context(), limit)
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "RUN\tSOURCE\tSTARTED\tWINDOW\tVISITED\tADDED\tREMOVED\tCHANGED\tRESURRECTED\tCANCELLED")
		for _, r := range list {
			fmt.Fprintf(w, "%s\t%s\t%s\t%d-%d\t%d\t%d\t%d\t%d\t%d\t%t\n",
				r.ID, r.Source, r.StartedAt.UTC().Format("2006-01-02 15:04:05"),
				r.WindowMin, r.WindowMax, r.Visited,
				r.Added, r.Removed, r.Changed, r.Resurrected, r.Cancelled)
		}
		return w.Flush()
	},
}

func init() {
	runsCmd.Flags().Int("limit", 20, "Number of runs to list")
	RootCmd.AddCommand(runsCmd)
}
