package pipeline

import (
	"context"
	"fmt"
	"time"

	"noctua/pkg/llmrt"
	"noctua/pkg/tools"
)

// harden drives the HARDEN stage (spec.md §4.1.5): targeted edits for
// production readiness, no file-presence retry (the files already exist
// from CODEGEN; HARDEN only needs to successfully edit them).
func (d *driver) harden(ctx context.Context) bool {
	start := time.Now()
	d.state.CurrentStage = StageHarden
	d.persist()
	d.emitter.stageStart(StageHarden)

	cfg := d.invokeConfig(StageHarden, tools.CodeToolSet, llmrt.EffortMedium, codeStageMaxTurns, stageBudgetUSD(d.opts.Budgets, StageHarden), nil)
	prompt := hardenPrompt(d.state)

	result, err := llmrt.Invoke(ctx, prompt, cfg)
	if be, ok := llmrt.IsBudgetExceeded(err); ok {
		d.fail(StageHarden, budgetErrorMessage(be))
		return false
	}
	if err != nil {
		d.fail(StageHarden, fmt.Errorf("harden invocation: %w", err))
		return false
	}

	d.observeStage(StageHarden, time.Since(start), result.TotalCostUSD)
	d.emitter.stageComplete(StageHarden, time.Since(start).Milliseconds(), "hardening edits applied")
	return true
}
