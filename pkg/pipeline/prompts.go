package pipeline

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"noctua/pkg/schemas"
)

// explorePrompt frames the target URL and intent as a reconnaissance task
// for Phase A, per spec.md §4.5.
func explorePrompt(state PipelineState) string {
	return fmt.Sprintf(`You are reconnoitering a website before writing a scraper for it.

Target URL: %s
What to extract: %s

Explore the site using your tools and build a detailed understanding. Work through these steps:
1. Probe the target URL and note its overall structure (static HTML, SPA, API-first).
2. Find and map any search or data-browsing page: form fields, their selectors, and required values.
3. Intercept any API calls the page makes while loading data; note their URL, method, and response shape.
4. Check for anti-bot measures: CAPTCHA, Cloudflare challenge, aggressive rate limiting, login walls.
5. Extract a few sample records of the data so the shape of each field is clear.

End with a detailed written summary covering everything above. Be specific about selectors, URLs, and field names — the next stage will extract a structured report from your summary alone.`,
		state.TargetURL, state.UserIntent)
}

// synthesizePrompt pastes the Explore phase's findings and demands the
// wire-form ReconReport JSON object, per spec.md §4.5.
func synthesizePrompt(state PipelineState, findings string) string {
	return fmt.Sprintf(`Based on the reconnaissance findings below, produce a structured site analysis.

Target URL: %s
What to extract: %s

Findings from exploration:
%s

Return a JSON object describing the site precisely: its type, every relevant page (with form fields, pagination, and any scrapable data elements you saw), any API endpoints you intercepted, anti-bot signals, a few sample records if you found any, and the scraping strategy you'd recommend.`,
		state.TargetURL, state.UserIntent, findings)
}

// schemaPrompt passes the recon report and demands schema.ts, with an
// example of the nullable-field style spec.md §4.5 requires.
func schemaPrompt(state PipelineState) string {
	reconSummary := summarizeReconReport(state.ReconReport)
	return fmt.Sprintf(`Read the recon report below and write %s: a validation schema (using zod) for the record shape this scraper will extract.

Recon report:
%s

Use nullable, not optional, for any field that may legitimately be absent from a given record — e.g.:

  const RecordSchema = z.object({
    title: z.string(),
    price: z.number().nullable(),
    url: z.string(),
  });

Write the file and nothing else needs to exist yet; later stages will reference it.`,
		filepath.Join(state.ScraperDir, "schema.ts"), reconSummary)
}

// codegenExamples are the worked scraper-config examples spec.md §4.5 asks
// the codegen prompt to embed to anchor the model on the scaffold's shape.
const codegenExamples = `Example scraper.ts shape:

  import { defineScraper } from '../../../scaffold/scraper';
  import { RecordSchema } from './schema';

  export default defineScraper({
    name: 'example-scraper',
    schema: RecordSchema,
    async run(ctx) {
      const page = await ctx.browser.newPage();
      await page.goto(ctx.targetUrl);
      // ... extraction logic using ctx.browser, returning validated records
      return records;
    },
  });

Example index.ts shape:

  import scraper from './scraper';
  export default scraper;`

// codegenPrompt computes the relative scaffold import path by counting
// directory levels from scraperDir to the project root, per spec.md §4.5.
func codegenPrompt(state PipelineState) string {
	relScaffold := relativeScaffoldPath(state.ScraperDir)
	reconSummary := summarizeReconReport(state.ReconReport)
	return fmt.Sprintf(`Using the recon report and the schema at %s, write a working scraper.

Recon report:
%s

Write two files:
  - %s — the scraper implementation, importing the scaffold from %q
  - %s — the entry point that exports the scraper for the harness to run

%s`,
		state.SchemaPath, reconSummary,
		filepath.Join(state.ScraperDir, "scraper.ts"), relScaffold,
		filepath.Join(state.ScraperDir, "index.ts"),
		codegenExamples)
}

// relativeScaffoldPath counts the directory levels in scraperDir (its path
// separators: up to the directory a relative path starts from, or up to
// the filesystem root for an absolute path) and returns the relative
// import string a generated scraper.ts would use to reach a "scaffold"
// directory at that level, per spec.md §4.5's "pre-computed relative
// scaffold import path."
func relativeScaffoldPath(scraperDir string) string {
	depth := strings.Count(filepath.Clean(scraperDir), string(filepath.Separator))
	if depth < 1 {
		depth = 1
	}
	return strings.Repeat("../", depth) + "scaffold/scraper"
}

// testPrompt emits the exact scraper run command and restates the
// structured-output schema, per spec.md §4.5.
func testPrompt(state PipelineState) string {
	return fmt.Sprintf(`Run the scraper at %s with a small record limit and report the outcome as structured JSON.

Run it with:
  cd %s && npm run start -- --limit 5

Validate the output against the schema at %s. Report success, exit code, whether it timed out, record count, duration, any schema validation errors (with path and message), up to three sample records, a per-field coverage percentage map, and the captured stdout/stderr.`,
		state.ScraperDir, state.ScraperDir, state.SchemaPath)
}

// repairPrompt includes the full test history and a classified diagnosis
// block with recon-derived page hints, per spec.md §4.5.
func repairPrompt(state PipelineState) string {
	var b strings.Builder
	fmt.Fprintf(&b, "The scraper at %s is failing its tests. Fix it.\n\n", state.ScraperDir)

	b.WriteString("Test history:\n")
	for i, r := range state.TestResults {
		status := "FAIL"
		if r.Success {
			status = "PASS"
		}
		fmt.Fprintf(&b, "  attempt %d: %s, recordCount=%d, %d schema error(s)\n", i+1, status, r.RecordCount, len(r.SchemaErrors))
		for _, e := range r.SchemaErrors {
			fmt.Fprintf(&b, "    - %s\n", e.Message)
		}
	}

	last := state.TestResults[len(state.TestResults)-1]
	kind := classifyFailure(last)
	b.WriteString("\n" + diagnosisMessage(kind, last) + "\n")

	if last.Stderr != "" {
		b.WriteString("\nCaptured stderr:\n" + truncate(last.Stderr, 4000) + "\n")
	}

	if state.ReconReport != nil {
		if hints := pageHints(*state.ReconReport); hints != "" {
			b.WriteString("\nRecon-derived page hints:\n" + hints)
		}
	}

	return b.String()
}

// pageHints lists search/listing page URLs from the recon report, which
// spec.md §4.1.4 calls out as useful repair-prompt context.
func pageHints(report schemas.ReconReport) string {
	var lines []string
	for _, p := range report.Pages {
		if p.Purpose == schemas.PagePurposeSearch || p.Purpose == schemas.PagePurposeListing {
			lines = append(lines, fmt.Sprintf("  - %s (%s)", p.URL, p.Purpose))
		}
	}
	return strings.Join(lines, "\n")
}

// hardenPrompt enumerates the hardening features spec.md §4.1.5 requires
// and instructs targeted edits rather than a rewrite.
func hardenPrompt(state PipelineState) string {
	return fmt.Sprintf(`The scraper at %s passes its tests. Harden it for production use with targeted edits — do not rewrite it from scratch:

- Retry transient failures (network errors, timeouts) with exponential backoff.
- Add conservative rate limiting between requests so the site isn't hammered.
- Handle per-record extraction errors without aborting the whole run — log and skip.
- Add progress logging so a long run is observable.
- Validate CLI arguments (e.g. --limit) and fail with a clear message on bad input.`,
		state.ScraperDir)
}

// summarizeReconReport renders a compact textual summary of a ReconReport
// for embedding in the SCHEMA and CODEGEN prompts, rather than dumping the
// full JSON structure verbatim.
func summarizeReconReport(report *schemas.ReconReport) string {
	if report == nil {
		return "(no recon report available)"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Site: %s (%s)\nSuggested strategy: %s\n", report.URL, report.SiteType, report.SuggestedStrategy)
	for _, p := range report.Pages {
		fmt.Fprintf(&b, "- Page %s [%s]\n", p.URL, p.Purpose)
		for _, f := range p.FormFields {
			fmt.Fprintf(&b, "    field %q selector=%q type=%q required=%v\n", f.Name, f.Selector, f.Type, f.Required)
		}
	}
	if len(report.SampleData) > 0 {
		raw, err := json.Marshal(report.SampleData[0])
		if err == nil {
			fmt.Fprintf(&b, "Sample record: %s\n", raw)
		}
	}
	return b.String()
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "...(truncated)"
}
