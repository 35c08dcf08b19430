package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"noctua/pkg/config"
	"noctua/pkg/pipeline"
)

// newResumeCmd builds `noctua resume <project-name>`, which loads
// state.json and reports where a prior run left off. Per spec.md's
// Non-goals, this does not resume mid-run execution beyond what
// state.json affords — it is a status report, not a continuation.
func newResumeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "resume <project-name>",
		Short: "Report where a prior pipeline run left off",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			configDir, _ := cmd.Flags().GetString("config")
			cfg, err := config.Load(configDir)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			workDir := filepath.Join(cfg.BaseDir, ".noctua", "pipelines", args[0])
			state, err := pipeline.LoadState(workDir)
			if err != nil {
				return fmt.Errorf("load state for %q: %w", args[0], err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "project:  %s\n", state.ProjectName)
			fmt.Fprintf(out, "stage:    %s\n", state.CurrentStage)
			fmt.Fprintf(out, "repairs:  %d/%d\n", state.RepairAttempts, state.MaxRepairAttempts)
			fmt.Fprintf(out, "tests:    %d run\n", len(state.TestResults))
			if state.Error != "" {
				fmt.Fprintf(out, "error:    %s\n", state.Error)
			}
			fmt.Fprintf(out, "workdir:  %s\n", state.WorkDir)

			switch state.CurrentStage {
			case pipeline.StageDone:
				fmt.Fprintln(out, "\nThis run completed. Re-run `noctua run` with a new intent to start fresh.")
			case pipeline.StageFailed:
				fmt.Fprintln(out, "\nThis run failed. Inspect the workspace artifacts before retrying.")
			default:
				fmt.Fprintf(out, "\nThis run stopped mid-pipeline at stage %s; there is no automatic continuation — re-run `noctua run` to start over.\n", state.CurrentStage)
			}
			return nil
		},
	}
	return cmd
}
