package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/blewis-maker/Katapult-Automation/pkg/katapult"
)

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "List the jobs visible to the API key",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		if err := cfg.Validate("fetch"); err != nil {
			return err
		}

		jobs, err := initClient().ListJobs(ctx)
		if err != nil {
			return eris.Wrap(err, "jobs")
		}
		if len(jobs) == 0 {
			fmt.Fprintln(os.Stderr, "No jobs found.")
			return nil
		}

		formatJobsList(os.Stdout, jobs)
		return nil
	},
}

// formatJobsList writes a tabular list of jobs to w.
func formatJobsList(out io.Writer, jobs []katapult.Job) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tNAME\tSTATUS")
	_, _ = fmt.Fprintln(w, "--\t----\t------")
	for _, j := range jobs {
		name := j.Name
		if len(name) > 40 {
			name = name[:37] + "..."
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\n", j.ID, name, j.Status)
	}
	_ = w.Flush()
}

func init() {
	rootCmd.AddCommand(jobsCmd)
}
