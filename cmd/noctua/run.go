package main

import (
	"fmt"
	"io"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"noctua/pkg/config"
	"noctua/pkg/llmrt"
	"noctua/pkg/logx"
	"noctua/pkg/metrics"
	"noctua/pkg/pipeline"
	"noctua/pkg/runindex"
)

// newRunCmd builds `noctua run <url> <intent>`, which runs the pipeline to
// completion, printing PipelineEvents as they arrive (spec.md §13).
func newRunCmd() *cobra.Command {
	var maxRepair int
	var provider, model string

	cmd := &cobra.Command{
		Use:   "run <url> <intent>",
		Short: "Run the pipeline to completion for a target URL and intent",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			configDir, _ := cmd.Flags().GetString("config")
			cfg, err := config.Load(configDir)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if provider != "" {
				cfg.Provider = provider
			}
			if model != "" {
				cfg.Model = model
			}
			if maxRepair > 0 {
				cfg.MaxRepairAttempts = maxRepair
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			out := cmd.OutOrStdout()
			opts := pipeline.Options{
				BaseDir:           cfg.BaseDir,
				Provider:          cfg.Provider,
				Model:             cfg.Model,
				MaxRepairAttempts: cfg.MaxRepairAttempts,
				Headless:          cfg.Headless,
				Budgets:           cfg.Budgets,
				Logger:            logx.NewLogger("noctua-run"),
				Metrics:           metrics.New(),
				Breaker:           llmrt.NewCircuitBreaker(llmrt.DefaultCircuitBreakerConfig),
				RateLimiter:       llmrt.DefaultRateLimiter(),
				Observer: func(ev pipeline.PipelineEvent) {
					printEvent(out, ev)
				},
			}

			state, _, err := pipeline.RunPipeline(ctx, args[0], args[1], opts)
			if err != nil {
				return fmt.Errorf("run pipeline: %w", err)
			}

			if idx, idxErr := runindex.Open(cfg.BaseDir); idxErr == nil {
				if upsertErr := idx.Upsert(state); upsertErr != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "warning: record run in index: %v\n", upsertErr)
				}
				_ = idx.Close()
			} else {
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: open run index: %v\n", idxErr)
			}

			if state.CurrentStage == pipeline.StageFailed {
				return fmt.Errorf("pipeline failed: %s", state.Error)
			}
			fmt.Fprintf(out, "done: %s\n", state.ScraperDir)
			return nil
		},
	}

	cmd.Flags().IntVar(&maxRepair, "max-repair-attempts", 0, "override the configured repair cap")
	cmd.Flags().StringVar(&provider, "provider", "", "override the configured LLM provider")
	cmd.Flags().StringVar(&model, "model", "", "override the configured LLM model handle")
	return cmd
}

// printEvent renders one PipelineEvent as a single log-style line, per
// spec.md §4.7's "observer is expected to be non-blocking" — this just
// writes and returns.
func printEvent(out io.Writer, ev pipeline.PipelineEvent) {
	switch ev.Kind {
	case pipeline.EventStageStart:
		fmt.Fprintf(out, "[%s] start\n", ev.Stage)
	case pipeline.EventStageComplete:
		fmt.Fprintf(out, "[%s] done (%dms) %s\n", ev.Stage, ev.DurationMs, ev.Summary)
	case pipeline.EventStageError:
		fmt.Fprintf(out, "[%s] error: %s\n", ev.Stage, ev.Error)
	case pipeline.EventStageToolStart:
		fmt.Fprintf(out, "[%s]   tool %s...\n", ev.Stage, ev.Tool)
	case pipeline.EventTestResult:
		fmt.Fprintf(out, "[test] attempt %d: success=%v records=%d\n", ev.Attempt, ev.TestReport.Success, ev.TestReport.RecordCount)
	case pipeline.EventRepairAttempt:
		fmt.Fprintf(out, "[repair] attempt %d/%d\n", ev.Attempt, ev.MaxAttempts)
	case pipeline.EventPipelineDone:
		fmt.Fprintf(out, "pipeline complete: %s (%d records)\n", ev.ScraperDir, ev.RecordCount)
	case pipeline.EventPipelineFailed:
		fmt.Fprintf(out, "pipeline failed at %s: %s\n", ev.Stage, ev.Reason)
	}
}
