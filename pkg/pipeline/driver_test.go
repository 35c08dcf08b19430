package pipeline

import (
	"context"
	"strings"
	"testing"
	"time"

	"noctua/pkg/config"
	"noctua/pkg/llmrt"
	"noctua/pkg/llmrt/llmtypes"
	"noctua/pkg/tools"
)

// queuedBackend replays a fixed sequence of turns for one Invoke call's
// worth of Send calls, grounded on pkg/llmrt's own invoke_test.go
// fakeBackend, generalized to live outside the llmrt package via the
// exported SetBackendFactory seam.
type queuedBackend struct {
	turns []llmtypes.BackendTurn
	calls int
}

func (b *queuedBackend) Model() string { return "fake-model" }

func (b *queuedBackend) Send(_ context.Context, _ []llmtypes.Message, _ []tools.ToolDefinition, _ *llmtypes.OutputSchema) (llmtypes.BackendTurn, error) {
	i := b.calls
	b.calls++
	if i < len(b.turns) {
		return b.turns[i], nil
	}
	return llmtypes.BackendTurn{FinishReason: "end_turn"}, nil
}

func contentTurn(content string) llmtypes.BackendTurn {
	return llmtypes.BackendTurn{Content: content, FinishReason: "end_turn"}
}

func structuredTurn(output map[string]any) llmtypes.BackendTurn {
	return llmtypes.BackendTurn{StructuredOutput: output, FinishReason: "end_turn"}
}

func writeFileTurn(path, content string) llmtypes.BackendTurn {
	return llmtypes.BackendTurn{
		ToolCalls: []llmtypes.ToolCall{
			{ID: "1", Name: "file_write", Args: map[string]any{"path": path, "content": content}},
		},
	}
}

// queueBackends installs a factory that hands out backends from queue in
// order, one per Invoke call (i.e. per NewBackend construction), and
// returns a restore func to defer.
func queueBackends(t *testing.T, queue []*queuedBackend) {
	t.Helper()
	idx := 0
	restore := llmrt.SetBackendFactory(func(llmrt.Config) (llmrt.Backend, error) {
		if idx >= len(queue) {
			t.Fatalf("ran out of queued backends at call %d", idx+1)
		}
		b := queue[idx]
		idx++
		return b, nil
	})
	t.Cleanup(restore)
}

func validReconStructuredOutput() map[string]any {
	return map[string]any{
		"url":      "https://example.com",
		"siteType": "static_html",
		"pages": []any{
			map[string]any{"url": "https://example.com/search", "purpose": "search"},
		},
		"antiBot":           map[string]any{"captcha": false, "cloudflare": false, "rateLimit": false, "requiresAuth": false},
		"suggestedStrategy": "listing",
	}
}

func validTestReportOutput(success bool, recordCount int) map[string]any {
	return map[string]any{
		"success":     success,
		"exitCode":    0,
		"timedOut":    false,
		"recordCount": recordCount,
		"durationMs":  1200,
	}
}

func failingTestReportOutput() map[string]any {
	out := validTestReportOutput(false, 0)
	out["exitCode"] = 1
	out["schemaErrors"] = []any{
		map[string]any{"message": "Timeout 15000ms exceeded waiting for selector '.row'"},
	}
	return out
}

// shortenCooldown overrides the Explore->Synthesize cool-down for the
// duration of one test so it doesn't actually sleep 15s.
func shortenCooldown(t *testing.T) {
	t.Helper()
	prev := exploreCooldown
	exploreCooldown = time.Millisecond
	t.Cleanup(func() { exploreCooldown = prev })
}

func testOptions(t *testing.T) Options {
	t.Helper()
	return Options{
		BaseDir:           t.TempDir(),
		Provider:          "anthropic",
		Model:             "claude-sonnet-4",
		MaxRepairAttempts: 5,
		Headless:          true,
		Budgets:           config.DefaultStageBudgets(),
	}
}

// TestRunPipeline_HappyPathReachesDoneWithRecordCount covers spec.md §8
// scenario 5: a first-try TEST success followed by HARDEN completion.
func TestRunPipeline_HappyPathReachesDoneWithRecordCount(t *testing.T) {
	shortenCooldown(t)

	findings := strings.Repeat("the site is a static HTML listing with a search form. ", 3)
	queueBackends(t, []*queuedBackend{
		{turns: []llmtypes.BackendTurn{contentTurn(findings)}},                 // explore
		{turns: []llmtypes.BackendTurn{structuredTurn(validReconStructuredOutput())}}, // synthesize
		{turns: []llmtypes.BackendTurn{writeFileTurn("scraper/schema.ts", "export const x = 1;"), contentTurn("done")}}, // schema
		{turns: []llmtypes.BackendTurn{
			writeFileTurn("scraper/scraper.ts", "export default {};"),
			writeFileTurn("scraper/index.ts", "export {};"),
			contentTurn("done"),
		}}, // codegen
		{turns: []llmtypes.BackendTurn{structuredTurn(validTestReportOutput(true, 7))}}, // test
		{turns: []llmtypes.BackendTurn{contentTurn("hardened")}},                        // harden
	})

	var events []PipelineEvent
	opts := testOptions(t)
	opts.Observer = func(ev PipelineEvent) { events = append(events, ev) }

	state, trace, err := RunPipeline(context.Background(), "https://example.com", "Example listing", opts)
	if err != nil {
		t.Fatalf("unexpected setup error: %v", err)
	}

	if state.CurrentStage != StageDone {
		t.Fatalf("got stage %s, want done (error=%q)", state.CurrentStage, state.Error)
	}
	if !state.IsDone() {
		t.Error("expected IsDone() true")
	}
	if len(state.TestResults) != 1 || !state.TestResults[0].Success {
		t.Errorf("expected exactly one successful test result, got %+v", state.TestResults)
	}

	assertStageStartCompleteBalance(t, trace)
	assertEventSequence(t, events, []EventKind{
		EventStageStart, EventStageComplete, // recon (Explore+Synthesize use no tools)
		EventStageStart, EventStageToolStart, EventStageToolEnd, EventStageComplete, // schema (one file_write)
		EventStageStart, EventStageToolStart, EventStageToolEnd, EventStageToolStart, EventStageToolEnd, EventStageComplete, // codegen (two file_writes)
		EventStageStart, EventTestResult, EventStageComplete, // test
		EventStageStart, EventStageComplete, // harden
		EventPipelineDone,
	})

	last := events[len(events)-1]
	if last.Kind != EventPipelineDone || last.RecordCount != 7 {
		t.Errorf("got final event %+v, want pipeline_complete with recordCount=7", last)
	}
}

// TestRunPipeline_RepairExhaustionFailsAtRepair covers spec.md §8 scenario
// 6: maxRepairAttempts=2 and three consecutive TEST failures must emit
// exactly two repair_attempt events, three test_result events, and a
// pipeline_failed at stage=repair.
func TestRunPipeline_RepairExhaustionFailsAtRepair(t *testing.T) {
	shortenCooldown(t)

	findings := strings.Repeat("the site is a static HTML listing with a search form. ", 3)
	queueBackends(t, []*queuedBackend{
		{turns: []llmtypes.BackendTurn{contentTurn(findings)}},
		{turns: []llmtypes.BackendTurn{structuredTurn(validReconStructuredOutput())}},
		{turns: []llmtypes.BackendTurn{writeFileTurn("scraper/schema.ts", "x")}, calls: 0},
		{turns: []llmtypes.BackendTurn{writeFileTurn("scraper/scraper.ts", "x"), writeFileTurn("scraper/index.ts", "x")}},
		// test attempt 1: fail
		{turns: []llmtypes.BackendTurn{structuredTurn(failingTestReportOutput())}},
		// repair attempt 1
		{turns: []llmtypes.BackendTurn{contentTurn("repaired once")}},
		// test attempt 2: fail
		{turns: []llmtypes.BackendTurn{structuredTurn(failingTestReportOutput())}},
		// repair attempt 2
		{turns: []llmtypes.BackendTurn{contentTurn("repaired twice")}},
		// test attempt 3: fail
		{turns: []llmtypes.BackendTurn{structuredTurn(failingTestReportOutput())}},
	})

	var events []PipelineEvent
	opts := testOptions(t)
	opts.MaxRepairAttempts = 2
	opts.Observer = func(ev PipelineEvent) { events = append(events, ev) }

	state, trace, err := RunPipeline(context.Background(), "https://example.com", "Example listing", opts)
	if err != nil {
		t.Fatalf("unexpected setup error: %v", err)
	}

	if state.CurrentStage != StageFailed {
		t.Fatalf("got stage %s, want failed", state.CurrentStage)
	}
	if state.Error == "" {
		t.Error("expected a non-empty Error on failure")
	}
	if state.RepairAttempts != 2 {
		t.Errorf("got RepairAttempts %d, want 2", state.RepairAttempts)
	}

	assertStageStartCompleteBalance(t, trace)

	var repairAttempts, testResults, pipelineFailed int
	var failedStage Stage
	for _, ev := range events {
		switch ev.Kind {
		case EventRepairAttempt:
			repairAttempts++
		case EventTestResult:
			testResults++
		case EventPipelineFailed:
			pipelineFailed++
			failedStage = ev.Stage
		}
	}
	if repairAttempts != 2 {
		t.Errorf("got %d repair_attempt events, want 2", repairAttempts)
	}
	if testResults != 3 {
		t.Errorf("got %d test_result events, want 3", testResults)
	}
	if pipelineFailed != 1 {
		t.Errorf("got %d pipeline_failed events, want exactly 1", pipelineFailed)
	}
	if failedStage != StageRepair {
		t.Errorf("got pipeline_failed stage %s, want %s", failedStage, StageRepair)
	}
}

// assertStageStartCompleteBalance checks spec.md §8's invariant: count of
// stage_start equals count of stage_complete + stage_error.
func assertStageStartCompleteBalance(t *testing.T, trace []PipelineEvent) {
	t.Helper()
	var starts, completes int
	for _, ev := range trace {
		switch ev.Kind {
		case EventStageStart:
			starts++
		case EventStageComplete, EventStageError:
			completes++
		}
	}
	if starts != completes {
		t.Errorf("got %d stage_start events but %d stage_complete/stage_error events", starts, completes)
	}
}

func assertEventSequence(t *testing.T, events []PipelineEvent, want []EventKind) {
	t.Helper()
	if len(events) != len(want) {
		kinds := make([]EventKind, len(events))
		for i, e := range events {
			kinds[i] = e.Kind
		}
		t.Fatalf("got %d events %v, want %d events %v", len(events), kinds, len(want), want)
	}
	for i, k := range want {
		if events[i].Kind != k {
			t.Errorf("event %d: got kind %s, want %s", i, events[i].Kind, k)
		}
	}
}
