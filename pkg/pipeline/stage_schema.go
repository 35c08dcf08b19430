package pipeline

import (
	"context"
	"path/filepath"
	"time"

	"noctua/pkg/llmrt"
	"noctua/pkg/tools"
)

// schema drives the SCHEMA stage (spec.md §4.1.2): write scraperDir/schema.ts
// from the recon report, under the file-presence retry.
func (d *driver) schema(ctx context.Context) bool {
	start := time.Now()
	d.emitter.stageStart(StageSchema)

	schemaPath := filepath.Join(d.state.ScraperDir, "schema.ts")
	cfg := d.invokeConfig(StageSchema, tools.CodeToolSet, llmrt.EffortLow, codeStageMaxTurns, stageBudgetUSD(d.opts.Budgets, StageSchema), nil)
	prompt := schemaPrompt(d.state)

	result, err := runWithRetry(ctx, prompt, cfg, []string{schemaPath}, "Write the schema.ts file exactly at the path given, using the zod import and export shown.")
	if be, ok := llmrt.IsBudgetExceeded(err); ok {
		d.fail(StageSchema, budgetErrorMessage(be))
		return false
	}
	if err != nil {
		d.fail(StageSchema, err)
		return false
	}

	if missing := missingFiles([]string{schemaPath}); len(missing) > 0 {
		d.fail(StageSchema, &MissingArtifactError{Stage: StageSchema, Paths: missing})
		return false
	}

	d.state.SchemaPath = schemaPath
	d.state.CurrentStage = StageCodegen
	d.persist()
	d.observeStage(StageSchema, time.Since(start), result.TotalCostUSD)
	d.emitter.stageComplete(StageSchema, time.Since(start).Milliseconds(), "wrote "+schemaPath)
	return true
}

// codeStageMaxTurns is the "high turn cap" spec.md §4.1.2 and §4.1.3
// specify for SCHEMA/CODEGEN/HARDEN's code-editing tool loops.
const codeStageMaxTurns = 50
