package pipeline

import (
	"context"
	"path/filepath"
	"time"

	"noctua/pkg/llmrt"
	"noctua/pkg/tools"
)

// codegen drives the CODEGEN stage (spec.md §4.1.3): write scraper.ts and
// index.ts from the recon report, schema path, and scaffold import path,
// under the file-presence retry.
func (d *driver) codegen(ctx context.Context) bool {
	start := time.Now()
	d.emitter.stageStart(StageCodegen)

	scraperPath := filepath.Join(d.state.ScraperDir, "scraper.ts")
	indexPath := filepath.Join(d.state.ScraperDir, "index.ts")
	expected := []string{scraperPath, indexPath}

	cfg := d.invokeConfig(StageCodegen, tools.CodeToolSet, llmrt.EffortHigh, codeStageMaxTurns, stageBudgetUSD(d.opts.Budgets, StageCodegen), nil)
	prompt := codegenPrompt(d.state)

	result, err := runWithRetry(ctx, prompt, cfg, expected, "Write both scraper.ts and index.ts at the exact paths given. scraper.ts must import the schema and the scaffold; index.ts must export the scraper as its default.")
	if be, ok := llmrt.IsBudgetExceeded(err); ok {
		d.fail(StageCodegen, budgetErrorMessage(be))
		return false
	}
	if err != nil {
		d.fail(StageCodegen, err)
		return false
	}

	if missing := missingFiles(expected); len(missing) > 0 {
		d.fail(StageCodegen, &MissingArtifactError{Stage: StageCodegen, Paths: missing})
		return false
	}

	d.state.CurrentStage = StageTest
	d.persist()
	d.observeStage(StageCodegen, time.Since(start), result.TotalCostUSD)
	d.emitter.stageComplete(StageCodegen, time.Since(start).Milliseconds(), "wrote scraper.ts and index.ts")
	return true
}
