package pipeline

import (
	"context"
	"fmt"
	"os"

	"noctua/pkg/llmrt"
)

// runWithRetry implements the file-presence wrapper (C4, spec.md §4.3):
// invoke once, check expectedFiles for existence, and if any are missing,
// retry exactly once with a reinforced prompt built from retryHint. It
// never attempts a third call — the caller inspects the returned files'
// presence itself and is responsible for deciding whether a still-missing
// file is fatal.
func runWithRetry(ctx context.Context, prompt string, cfg llmrt.Config, expectedFiles []string, retryHint string) (llmrt.Result, error) {
	result, err := llmrt.Invoke(ctx, prompt, cfg)
	if err != nil {
		return result, err
	}

	missing := missingFiles(expectedFiles)
	if len(missing) == 0 {
		return result, nil
	}

	reinforced := prompt + "\n\n" + retryContext(missing, retryHint)
	return llmrt.Invoke(ctx, reinforced, cfg)
}

// missingFiles returns the subset of paths that do not exist.
func missingFiles(paths []string) []string {
	var missing []string
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			missing = append(missing, p)
		}
	}
	return missing
}

// retryContext composes the reinforced-prompt suffix naming exactly what's
// missing and restating the caller-supplied hint.
func retryContext(missing []string, hint string) string {
	msg := "The following expected file(s) were not found after your previous attempt:\n"
	for _, p := range missing {
		msg += fmt.Sprintf("  - %s\n", p)
	}
	msg += "\n" + hint
	return msg
}
