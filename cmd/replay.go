package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/blewis-maker/Katapult-Automation/internal/pipeline"
)

var replayCmd = &cobra.Command{
	Use:   "replay <run-id>",
	Short: "Re-extract the payloads archived by an earlier run",
	Long:  "Runs extraction and export again over the job payloads stored for a run, without calling the API.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		applyExtractFlags(cmd)
		if err := cfg.Validate("offline"); err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		res, err := pipeline.New(cfg, nil, st).Replay(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "replay")
		}
		printResult(res)
		return nil
	},
}

func init() {
	addOutputFlags(replayCmd)
	rootCmd.AddCommand(replayCmd)
}
