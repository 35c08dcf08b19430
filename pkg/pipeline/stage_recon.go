package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"noctua/pkg/llmrt"
	"noctua/pkg/retry"
	"noctua/pkg/schemas"
	"noctua/pkg/tools"
)

// recon drives both RECON phases (spec.md §4.1.1): Explore with tools,
// a cool-down, then Synthesize into a validated ReconReport. It returns
// false if the stage failed (the caller should stop sequencing).
func (d *driver) recon(ctx context.Context) bool {
	start := time.Now()
	d.emitter.stageStart(StageRecon)

	findings, err := d.exploreSite(ctx)
	if err != nil {
		d.fail(StageRecon, err)
		return false
	}

	if len(findings) < minFindingsLen {
		d.fail(StageRecon, &ReconFindingsTooShortError{Length: len(findings)})
		return false
	}

	if err := d.writeFindings(findings); err != nil {
		d.log.Warn("write findings.txt: %v", err)
	}

	select {
	case <-time.After(exploreCooldown):
	case <-ctx.Done():
		return false
	}

	report, err := d.synthesizeReport(ctx, findings)
	if err != nil {
		d.fail(StageRecon, err)
		return false
	}

	internal := report.ToInternal()
	d.state.ReconReport = &internal

	if err := d.persistReconReport(report); err != nil {
		d.log.Warn("persist recon-report.json: %v", err)
	}

	d.state.CurrentStage = StageSchema
	d.persist()
	d.observeStage(StageRecon, time.Since(start), 0)
	d.emitter.stageComplete(StageRecon, time.Since(start).Milliseconds(), summarizeReconForEvent(internal))
	return true
}

// exploreSite runs Phase A under the exploreRetry policy (30s/60s, three
// attempts), extracting findings per spec.md §4.1.1's preference order:
// result.Output first, else assistant+tool text from the message trail.
func (d *driver) exploreSite(ctx context.Context) (string, error) {
	cfg := d.invokeConfig(StageRecon, tools.ReconToolSet, llmrt.EffortMedium, exploreMaxTurns, reconExploreBudget(d.opts.Budgets), nil)
	cfg.RateLimiter = d.opts.RateLimiter
	cfg.RateLimitKey = "explore"
	prompt := explorePrompt(d.state)

	var result llmrt.Result
	err := retry.Do(ctx, exploreRetry, func(a retry.Attempt) {
		d.log.Warn("explore attempt %d failed: %v", a.Number, a.Err)
	}, func(ctx context.Context) error {
		r, err := llmrt.Invoke(ctx, prompt, cfg)
		if be, ok := llmrt.IsBudgetExceeded(err); ok {
			return budgetErrorMessage(be)
		}
		if err != nil {
			return err
		}
		result = r
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("explore phase: %w", err)
	}

	return extractFindings(result), nil
}

// exploreMaxTurns is the safety-net turn cap spec.md §4.1.1 and §9 call
// out: "a safety net, not an expected value" — the budget ceiling is what
// fires in practice.
const exploreMaxTurns = 1000

// extractFindings implements spec.md §4.1.1's extraction rule: prefer
// result.Output if present, otherwise concatenate assistant text and
// tool-result text from the message trail, then truncate to 15,000 chars.
func extractFindings(result llmrt.Result) string {
	var findings string
	if strings.TrimSpace(result.Output) != "" {
		findings = result.Output
	} else {
		var b strings.Builder
		for _, m := range result.Messages {
			if m.Role == llmrt.RoleAssistant || m.Role == llmrt.RoleTool {
				b.WriteString(m.Content)
				b.WriteString("\n")
			}
		}
		findings = b.String()
	}
	if len(findings) > maxFindingsLen {
		findings = findings[:maxFindingsLen]
	}
	return findings
}

func (d *driver) writeFindings(findings string) error {
	return os.WriteFile(filepath.Join(d.state.WorkDir, "findings.txt"), []byte(findings), 0o644)
}

// synthesizeValidationError marks a Synthesize-phase failure that stems from
// the model's output, not the transport: a missing/unparseable/invalid
// structured output. It's retried under the same policy as a transient
// transport error, per spec.md §4.1.1/§7's "caught and retried up to three
// times with the fallback parse path" — retry.IsTransient alone would never
// see these, since they carry no rate-limit/timeout marker.
type synthesizeValidationError struct{ err error }

func (e *synthesizeValidationError) Error() string { return e.err.Error() }
func (e *synthesizeValidationError) Unwrap() error  { return e.err }

func isSynthesizeRetryable(err error) bool {
	var ve *synthesizeValidationError
	return retry.IsTransient(err) || errors.As(err, &ve)
}

// synthesizeReport runs Phase B under synthesizeRetry (15s/30s, three
// attempts), falling back to parsing raw text when FinalOutput is absent,
// per spec.md §4.1.1 and §4.8's "the caller may attempt its own
// parse+validate as fallback."
func (d *driver) synthesizeReport(ctx context.Context, findings string) (schemas.ReconReportWire, error) {
	schema := &llmrt.OutputSchema{Schema: schemas.ReconReportSchema()}
	cfg := d.invokeConfig(StageRecon, nil, llmrt.EffortMedium, 1, reconSynthesizeBudget(d.opts.Budgets), schema)
	prompt := synthesizePrompt(d.state, findings)

	var report schemas.ReconReportWire
	var lastValidationErr error
	attemptN := 0
	lastTurns, lastFinishReason := 0, ""

	err := retry.DoWithClassifier(ctx, synthesizeRetry, isSynthesizeRetryable, func(a retry.Attempt) {
		attemptN = a.Number
		lastValidationErr = a.Err
		d.log.Warn("synthesize attempt %d failed: %v", a.Number, a.Err)
	}, func(ctx context.Context) error {
		result, err := llmrt.Invoke(ctx, prompt, cfg)
		lastTurns, lastFinishReason = result.NumTurns, result.FinishReason
		if be, ok := llmrt.IsBudgetExceeded(err); ok {
			return budgetErrorMessage(be)
		}
		if err != nil {
			if _, isParse := llmrt.IsOutputParseError(err); !isParse {
				return err
			}
		}

		_ = d.writeSynthAttempt(attemptN+1, result.Output)

		if result.FinalOutput != nil {
			w, perr := schemas.ParseReconReport(result.FinalOutput)
			if perr == nil {
				report = w
				return nil
			}
			return &synthesizeValidationError{fmt.Errorf("parse recon report from final output: %w", perr)}
		}
		if strings.TrimSpace(result.Output) != "" {
			w, perr := schemas.ParseReconReportText(result.Output)
			if perr == nil {
				report = w
				return nil
			}
			return &synthesizeValidationError{fmt.Errorf("parse recon report from raw text: %w", perr)}
		}
		return &synthesizeValidationError{fmt.Errorf("model produced neither structured output nor raw text (turns=%d, finishReason=%s)", result.NumTurns, result.FinishReason)}
	})
	if err != nil {
		return schemas.ReconReportWire{}, fmt.Errorf(
			"synthesize phase: findings=%dch attempts=%d turns=%d finishReason=%s lastValidationErr=%v: %w",
			len(findings), attemptN, lastTurns, lastFinishReason, lastValidationErr, err,
		)
	}
	return report, nil
}

func (d *driver) writeSynthAttempt(n int, raw string) error {
	if raw == "" {
		return nil
	}
	path := filepath.Join(d.state.WorkDir, fmt.Sprintf("synth-attempt-%d.txt", n))
	return os.WriteFile(path, []byte(raw), 0o644)
}

func (d *driver) persistReconReport(report schemas.ReconReportWire) error {
	return writeJSON(filepath.Join(d.state.WorkDir, "recon-report.json"), report)
}

func summarizeReconForEvent(r schemas.ReconReport) string {
	return fmt.Sprintf("%s (%s), %d page(s), strategy=%s", r.URL, r.SiteType, len(r.Pages), r.SuggestedStrategy)
}
