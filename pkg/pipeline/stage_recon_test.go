package pipeline

import (
	"context"
	"testing"
	"time"

	"noctua/pkg/config"
	"noctua/pkg/llmrt/llmtypes"
	"noctua/pkg/logx"
)

func newSynthesizeTestDriver(t *testing.T) *driver {
	t.Helper()
	return &driver{
		opts:    Options{Provider: "anthropic", Model: "claude-sonnet-4", Budgets: config.DefaultStageBudgets()},
		state:   NewState("run-1", "https://example.com", "Example listing", t.TempDir(), 5),
		emitter: NewEmitter(nil),
		log:     logx.NewLogger("test"),
	}
}

// TestSynthesizeReport_RetriesOnMalformedOutputThenSucceeds covers spec.md
// §4.1.1/§7's "caught and retried up to three times with the fallback
// parse path": Synthesize's first attempt produces structured output
// missing required fields (an OutputParseError from llmrt.Invoke's own
// schema check), and the retry loop must try again rather than failing
// the stage outright on a validation failure alone.
func TestSynthesizeReport_RetriesOnMalformedOutputThenSucceeds(t *testing.T) {
	prevBase := synthesizeRetry.BaseDelay
	synthesizeRetry.BaseDelay = time.Millisecond
	t.Cleanup(func() { synthesizeRetry.BaseDelay = prevBase })

	queueBackends(t, []*queuedBackend{
		{turns: []llmtypes.BackendTurn{structuredTurn(map[string]any{"url": "https://example.com"})}}, // missing required fields
		{turns: []llmtypes.BackendTurn{structuredTurn(validReconStructuredOutput())}},                  // valid
	})

	d := newSynthesizeTestDriver(t)
	report, err := d.synthesizeReport(context.Background(), "the site is a static HTML listing with a search form.")
	if err != nil {
		t.Fatalf("expected synthesize to recover on retry, got error: %v", err)
	}
	if report.URL != "https://example.com" {
		t.Errorf("got URL %q, want https://example.com", report.URL)
	}
}

// TestSynthesizeReport_ExhaustsRetriesOnRepeatedMalformedOutput covers the
// other half of the same invariant: three consecutive malformed attempts
// must exhaust the retry budget and return an error, not hang or succeed
// spuriously.
func TestSynthesizeReport_ExhaustsRetriesOnRepeatedMalformedOutput(t *testing.T) {
	prevBase := synthesizeRetry.BaseDelay
	synthesizeRetry.BaseDelay = time.Millisecond
	t.Cleanup(func() { synthesizeRetry.BaseDelay = prevBase })

	malformed := structuredTurn(map[string]any{"url": "https://example.com"})
	queueBackends(t, []*queuedBackend{
		{turns: []llmtypes.BackendTurn{malformed}},
		{turns: []llmtypes.BackendTurn{malformed}},
		{turns: []llmtypes.BackendTurn{malformed}},
	})

	d := newSynthesizeTestDriver(t)
	_, err := d.synthesizeReport(context.Background(), "the site is a static HTML listing with a search form.")
	if err == nil {
		t.Fatal("expected synthesize to fail after exhausting retries on repeated malformed output")
	}
}
