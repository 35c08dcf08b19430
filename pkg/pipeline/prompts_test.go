package pipeline

import (
	"strings"
	"testing"

	"noctua/pkg/schemas"
)

func samplePipelineState() PipelineState {
	return PipelineState{
		TargetURL:  "https://example.com/search",
		UserIntent: "court records",
		ScraperDir: "/tmp/run/.noctua/pipelines/court-records/scraper",
		SchemaPath: "/tmp/run/.noctua/pipelines/court-records/scraper/schema.ts",
		ReconReport: &schemas.ReconReport{
			URL:               "https://example.com",
			SiteType:          schemas.SiteTypeStaticHTML,
			SuggestedStrategy: schemas.StrategyFormSearch,
			Pages: []schemas.Page{
				{
					URL:     "https://example.com/search",
					Purpose: schemas.PagePurposeSearch,
					FormFields: []schemas.FormField{
						{Name: "lastName", Selector: "#lastName", Type: "text", Required: true},
					},
				},
				{URL: "https://example.com/list", Purpose: schemas.PagePurposeListing},
			},
		},
	}
}

func TestExplorePrompt_IncludesTargetAndIntent(t *testing.T) {
	state := samplePipelineState()
	got := explorePrompt(state)
	if !strings.Contains(got, state.TargetURL) {
		t.Errorf("expected prompt to contain target URL, got: %s", got)
	}
	if !strings.Contains(got, state.UserIntent) {
		t.Errorf("expected prompt to contain user intent, got: %s", got)
	}
}

func TestSynthesizePrompt_IncludesFindings(t *testing.T) {
	state := samplePipelineState()
	got := synthesizePrompt(state, "the site uses a search form at /search")
	if !strings.Contains(got, "the site uses a search form at /search") {
		t.Errorf("expected prompt to embed findings, got: %s", got)
	}
}

func TestSchemaPrompt_UsesNullableExampleAndSchemaPath(t *testing.T) {
	state := samplePipelineState()
	got := schemaPrompt(state)
	if !strings.Contains(got, "schema.ts") {
		t.Errorf("expected prompt to name schema.ts, got: %s", got)
	}
	if !strings.Contains(got, "z.number().nullable()") {
		t.Errorf("expected prompt to demonstrate nullable-not-optional, got: %s", got)
	}
}

func TestCodegenPrompt_ReferencesScaperAndScaffoldPath(t *testing.T) {
	state := samplePipelineState()
	got := codegenPrompt(state)
	if !strings.Contains(got, "scraper.ts") || !strings.Contains(got, "index.ts") {
		t.Errorf("expected prompt to name both output files, got: %s", got)
	}
	if !strings.Contains(got, "scaffold/scraper") {
		t.Errorf("expected prompt to reference the scaffold import, got: %s", got)
	}
}

func TestRelativeScaffoldPath_CountsDirectoryDepth(t *testing.T) {
	got := relativeScaffoldPath("/tmp/run/.noctua/pipelines/x/scraper")
	want := "../../../../../../scaffold/scraper"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestTestPrompt_NamesRunCommandAndSchema(t *testing.T) {
	state := samplePipelineState()
	got := testPrompt(state)
	if !strings.Contains(got, "npm run start -- --limit 5") {
		t.Errorf("expected prompt to name the run command, got: %s", got)
	}
	if !strings.Contains(got, state.SchemaPath) {
		t.Errorf("expected prompt to reference the schema path, got: %s", got)
	}
}

func TestRepairPrompt_IncludesHistoryDiagnosisAndPageHints(t *testing.T) {
	state := samplePipelineState()
	state.TestResults = []schemas.TestReport{
		{
			Success: false,
			SchemaErrors: []schemas.SchemaError{
				{Message: "Timeout 15000ms exceeded waiting for selector '.row'"},
			},
		},
	}
	got := repairPrompt(state)
	if !strings.Contains(got, "attempt 1: FAIL") {
		t.Errorf("expected prompt to list test history, got: %s", got)
	}
	if !strings.Contains(got, "selector") {
		t.Errorf("expected prompt to include a diagnosis mentioning the selector failure, got: %s", got)
	}
	if !strings.Contains(got, "https://example.com/search") || !strings.Contains(got, "https://example.com/list") {
		t.Errorf("expected prompt to include recon-derived search/listing page hints, got: %s", got)
	}
}

func TestHardenPrompt_ListsHardeningRequirements(t *testing.T) {
	state := samplePipelineState()
	got := hardenPrompt(state)
	for _, phrase := range []string{"backoff", "rate limiting", "log and skip", "progress logging", "--limit"} {
		if !strings.Contains(got, phrase) {
			t.Errorf("expected harden prompt to mention %q, got: %s", phrase, got)
		}
	}
}

func TestSummarizeReconReport_NilReportNotesAbsence(t *testing.T) {
	got := summarizeReconReport(nil)
	if !strings.Contains(got, "no recon report") {
		t.Errorf("expected a note about the missing report, got: %s", got)
	}
}

func TestSummarizeReconReport_IncludesPagesAndFields(t *testing.T) {
	state := samplePipelineState()
	got := summarizeReconReport(state.ReconReport)
	if !strings.Contains(got, "https://example.com/search") {
		t.Errorf("expected summary to list the search page, got: %s", got)
	}
	if !strings.Contains(got, "lastName") {
		t.Errorf("expected summary to list the form field, got: %s", got)
	}
}

func TestTruncate_LeavesShortStringsUnchanged(t *testing.T) {
	if got := truncate("short", 100); got != "short" {
		t.Errorf("got %q, want %q", got, "short")
	}
}

func TestTruncate_ClipsLongStrings(t *testing.T) {
	got := truncate(strings.Repeat("x", 50), 10)
	if len(got) <= 10 {
		t.Errorf("expected truncated output to be longer than max due to suffix, got length %d", len(got))
	}
	if !strings.HasPrefix(got, strings.Repeat("x", 10)) {
		t.Errorf("expected output to start with the first 10 chars, got: %s", got)
	}
}
