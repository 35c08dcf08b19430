package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"noctua/pkg/config"
	"noctua/pkg/runindex"
)

// newRunsCmd builds `noctua runs list`, which reports every indexed run
// across all projects under baseDir — the one thing `resume`/`inspect`
// can't answer, since both require already knowing a project's slug.
func newRunsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Inspect the cross-project run index",
	}
	cmd.AddCommand(newRunsListCmd())
	return cmd
}

func newRunsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List every indexed pipeline run, most recent first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			configDir, _ := cmd.Flags().GetString("config")
			cfg, err := config.Load(configDir)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			idx, err := runindex.Open(cfg.BaseDir)
			if err != nil {
				return fmt.Errorf("open run index: %w", err)
			}
			defer idx.Close()

			runs, err := idx.List()
			if err != nil {
				return fmt.Errorf("list runs: %w", err)
			}

			out := cmd.OutOrStdout()
			if len(runs) == 0 {
				fmt.Fprintln(out, "no runs recorded yet")
				return nil
			}
			for _, r := range runs {
				line := fmt.Sprintf("%s  %-12s  %-20s  %s  %s", r.StartedAt.Format("2006-01-02 15:04"), r.CurrentStage, r.ProjectName, r.ModelHandle, r.TargetURL)
				if r.Error != "" {
					line += fmt.Sprintf("  (%s)", r.Error)
				}
				fmt.Fprintln(out, line)
			}
			return nil
		},
	}
}
