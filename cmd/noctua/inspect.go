package main

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"noctua/pkg/config"
	"noctua/pkg/pipeline"
)

// newInspectCmd builds `noctua inspect <project-name>`, which dumps the
// persisted state and test history as JSON for scripting/debugging.
func newInspectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect <project-name>",
		Short: "Dump a pipeline run's persisted state and test history",
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

			raw, err := json.MarshalIndent(state, "", "  ")
			if err != nil {
				return fmt.Errorf("marshal state: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(raw))
			return nil
		},
	}
	return cmd
}
