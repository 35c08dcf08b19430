package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"noctua/pkg/llmrt"
	"noctua/pkg/schemas"
	"noctua/pkg/tools"
)

// testStageMaxTurns and repairStageMaxTurns are the turn caps for the
// test/repair loop's two invocations, each generous enough to cover a
// shell run plus a handful of diagnostic reads/edits.
const (
	testStageMaxTurns   = 30
	repairStageMaxTurns = 50
)

// test drives one TEST invocation (spec.md §4.1.4): runs the scraper with
// --limit 5 and surfaces the outcome as a validated TestReport, appended
// to state.TestResults at index len-1 so indices never skip (spec.md §5).
// Its bool result reports whether the stage itself succeeded (produced a
// report at all) — report.Success is the scraper's pass/fail outcome,
// checked separately by the caller.
func (d *driver) test(ctx context.Context) (schemas.TestReport, bool) {
	start := time.Now()
	d.state.CurrentStage = StageTest
	d.persist()
	d.emitter.stageStart(StageTest)

	schema := &llmrt.OutputSchema{Schema: schemas.TestReportSchema()}
	cfg := d.invokeConfig(StageTest, tools.TestToolSet, llmrt.EffortLow, testStageMaxTurns, stageBudgetUSD(d.opts.Budgets, StageTest), schema)
	prompt := testPrompt(d.state)

	result, err := llmrt.Invoke(ctx, prompt, cfg)
	if be, ok := llmrt.IsBudgetExceeded(err); ok {
		d.fail(StageTest, budgetErrorMessage(be))
		return schemas.TestReport{}, false
	}
	if err != nil {
		d.fail(StageTest, fmt.Errorf("test invocation: %w", err))
		return schemas.TestReport{}, false
	}

	wire, perr := d.parseTestReport(result)
	if perr != nil {
		d.fail(StageTest, perr)
		return schemas.TestReport{}, false
	}

	report := wire.ToInternal()
	d.state.TestResults = append(d.state.TestResults, report)
	attempt := len(d.state.TestResults)

	if err := writeJSON(d.testReportPath(), wire); err != nil {
		d.log.Warn("persist test-report.json: %v", err)
	}

	d.persist()
	d.emitter.testResult(report, attempt)
	d.observeStage(StageTest, time.Since(start), result.TotalCostUSD)

	summary := fmt.Sprintf("attempt %d: FAIL (%d record(s), %d error(s))", attempt, report.RecordCount, len(report.SchemaErrors))
	if report.Success {
		summary = fmt.Sprintf("attempt %d: PASS (%d record(s))", attempt, report.RecordCount)
	}
	d.emitter.stageComplete(StageTest, time.Since(start).Milliseconds(), summary)
	return report, true
}

func (d *driver) testReportPath() string {
	return filepath.Join(d.state.WorkDir, "test-report.json")
}

// parseTestReport prefers FinalOutput, falling back to parsing Output as
// raw JSON text, per spec.md §4.8's fallback contract.
func (d *driver) parseTestReport(result llmrt.Result) (schemas.TestReportWire, error) {
	if result.FinalOutput != nil {
		w, err := schemas.ParseTestReport(result.FinalOutput)
		if err == nil {
			return w, nil
		}
	}
	if strings.TrimSpace(result.Output) != "" {
		w, err := schemas.ParseTestReportText(result.Output)
		if err == nil {
			return w, nil
		}
	}
	return schemas.TestReportWire{}, fmt.Errorf(
		"test stage: no valid structured test report (turns=%d, finishReason=%s)", result.NumTurns, result.FinishReason,
	)
}

// repair drives one REPAIR invocation (spec.md §4.1.4): increments
// RepairAttempts, emits repair_attempt before the matching stage_start per
// spec.md §5's ordering guarantee, then invokes the repair tool set with
// the classified diagnosis in the prompt.
func (d *driver) repair(ctx context.Context) bool {
	d.state.RepairAttempts++
	attempt := d.state.RepairAttempts
	d.persist()
	d.emitter.repairAttempt(attempt, d.state.MaxRepairAttempts)
	if d.opts.Metrics != nil {
		d.opts.Metrics.IncRepairAttempt(d.state.RunID)
	}

	start := time.Now()
	d.state.CurrentStage = StageRepair
	d.persist()
	d.emitter.stageStart(StageRepair)

	cfg := d.invokeConfig(StageRepair, tools.RepairToolSet, llmrt.EffortHigh, repairStageMaxTurns, stageBudgetUSD(d.opts.Budgets, StageRepair), nil)
	prompt := repairPrompt(d.state)

	result, err := llmrt.Invoke(ctx, prompt, cfg)
	if be, ok := llmrt.IsBudgetExceeded(err); ok {
		d.fail(StageRepair, budgetErrorMessage(be))
		return false
	}
	if err != nil {
		d.fail(StageRepair, fmt.Errorf("repair attempt %d: %w", attempt, err))
		return false
	}

	d.state.CurrentStage = StageTest
	d.persist()
	d.observeStage(StageRepair, time.Since(start), result.TotalCostUSD)
	d.emitter.stageComplete(StageRepair, time.Since(start).Milliseconds(), fmt.Sprintf("repair attempt %d applied", attempt))
	return true
}
