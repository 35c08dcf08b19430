package pipeline

import (
	"strings"

	"noctua/pkg/schemas"
)

// FailureKind classifies a failed TestReport's primary error, per spec.md
// §4.1.4's repair routing: {module, navigation, selector/timeout, general}.
type FailureKind string

const (
	FailureModuleError     FailureKind = "module_error"
	FailureNavigationError FailureKind = "navigation_error"
	FailureSelectorError   FailureKind = "selector_error"
	FailureGeneralError    FailureKind = "general"
)

// classifyFailure inspects report's schema errors and stderr for the
// markers spec.md §8's concrete scenarios name: a missing local module
// (module_error), a navigation/connection failure (navigation_error), a
// selector timeout (selector_error), defaulting to general otherwise.
func classifyFailure(report schemas.TestReport) FailureKind {
	haystack := strings.ToLower(report.Stderr)
	for _, e := range report.SchemaErrors {
		haystack += " " + strings.ToLower(e.Message)
	}

	switch {
	case strings.Contains(haystack, "cannot find module") || strings.Contains(haystack, "module not found"):
		return FailureModuleError
	case strings.Contains(haystack, "timeout") && strings.Contains(haystack, "selector"):
		return FailureSelectorError
	case strings.Contains(haystack, "net::err_") || strings.Contains(haystack, "navigation") || strings.Contains(haystack, "econnrefused"):
		return FailureNavigationError
	default:
		return FailureGeneralError
	}
}

// diagnosisMessage renders a human/model-readable diagnosis block for the
// repair prompt, per spec.md §4.5's repair-prompt contract: the
// classification plus a kind-specific hint.
func diagnosisMessage(kind FailureKind, report schemas.TestReport) string {
	switch kind {
	case FailureModuleError:
		return "Diagnosis: module_error — the scraper references a module or local import that doesn't exist or has a wrong relative path. Check every require/import path against the actual files on disk."
	case FailureNavigationError:
		return "Diagnosis: navigation_error — the scraper failed to load or reach the target page (connection refused, DNS failure, or a redirect it didn't follow). Check the URL and any required headers/cookies."
	case FailureSelectorError:
		return "Diagnosis: selector_error — a CSS selector timed out waiting for an element that never appeared. The site's markup may differ from what recon observed, or the element loads asynchronously and needs an explicit wait."
	default:
		if report.Stderr != "" {
			return "Diagnosis: general — no specific pattern matched. Review the stderr output below for the root cause."
		}
		return "Diagnosis: general — the scraper exited non-zero with no diagnostic stderr; recheck its exit path and error handling."
	}
}
