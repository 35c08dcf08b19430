// Package pipeline implements the pipeline driver (C9), its state and
// persistence (C7), event emission (C8), stage prompt builders (C6), the
// file-presence retry wrapper (C4), budget accounting, and failure
// diagnosis for the test/repair loop. Grounded on the teacher's top-level
// orchestrator (pkg/orchestrator) for the driver's stage-sequencing shape,
// generalized from maestro's multi-story DAG scheduler down to the single
// linear six-stage FSM this pipeline specifies.
package pipeline

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"noctua/pkg/schemas"
)

// Stage names one of the pipeline's six phases or its two terminal states.
type Stage string

const (
	StageRecon   Stage = "recon"
	StageSchema  Stage = "schema"
	StageCodegen Stage = "codegen"
	StageTest    Stage = "test"
	StageRepair  Stage = "repair"
	StageHarden  Stage = "harden"
	StageDone    Stage = "done"
	StageFailed  Stage = "failed"
)

// PipelineState is the single live record of a run, persisted to
// workDir/state.json after every state-affecting mutation (spec.md §3).
type PipelineState struct {
	RunID       string `json:"runId"`
	ProjectName string `json:"projectName"`
	TargetURL   string `json:"targetUrl"`
	UserIntent  string `json:"userIntent"`
	WorkDir     string `json:"workDir"`
	ScraperDir  string `json:"scraperDir"`
	ModelHandle string `json:"modelHandle"`

	CurrentStage Stage `json:"currentStage"`

	ReconReport *schemas.ReconReport `json:"reconReport,omitempty"`
	SchemaPath  string               `json:"schemaPath,omitempty"`

	TestResults       []schemas.TestReport `json:"testResults"`
	RepairAttempts    int                  `json:"repairAttempts"`
	MaxRepairAttempts int                  `json:"maxRepairAttempts"`

	Error string `json:"error,omitempty"`

	StartedAt   time.Time  `json:"startedAt"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}

// NewState initializes a fresh run record under baseDir, deriving
// ProjectName from userIntent and WorkDir/ScraperDir from it, per spec.md
// §8 scenario 2 (baseDir=/tmp/run, userIntent="X" -> workDir
// /tmp/run/.noctua/pipelines/x).
func NewState(runID, targetURL, userIntent, baseDir string, maxRepairAttempts int) PipelineState {
	projectName := slugify(userIntent)
	workDir := filepath.Join(baseDir, ".noctua", "pipelines", projectName)
	return PipelineState{
		RunID:             runID,
		ProjectName:       projectName,
		TargetURL:         targetURL,
		UserIntent:        userIntent,
		WorkDir:           workDir,
		ScraperDir:        filepath.Join(workDir, "scraper"),
		CurrentStage:      StageRecon,
		TestResults:       []schemas.TestReport{},
		MaxRepairAttempts: maxRepairAttempts,
		StartedAt:         time.Now().UTC(),
	}
}

// IsDone reports whether the run succeeded, per spec.md §8: done implies a
// non-empty, last-successful test history.
func (s PipelineState) IsDone() bool {
	if s.CurrentStage != StageDone {
		return false
	}
	if len(s.TestResults) == 0 {
		return false
	}
	return s.TestResults[len(s.TestResults)-1].Success
}

var nonAlphanumeric = regexp.MustCompile(`[^a-z0-9]+`)

// slugify lowercases text, collapses runs of non-alphanumerics to a single
// hyphen, trims leading/trailing hyphens, and truncates to 50 chars
// (spec.md §4.6). It is idempotent: slugify(slugify(s)) == slugify(s).
func slugify(text string) string {
	s := strings.ToLower(text)
	s = nonAlphanumeric.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")
	if len(s) > 50 {
		s = s[:50]
		s = strings.TrimRight(s, "-")
	}
	return s
}

// saveState writes state to workDir/state.json, overwriting any previous
// snapshot. Called after every state-affecting mutation per spec.md §3's
// "every transition out of a non-terminal stage writes state.json before
// emitting the terminal event for that transition."
func saveState(state PipelineState) error {
	if err := os.MkdirAll(state.WorkDir, 0o755); err != nil {
		return fmt.Errorf("create workdir %s: %w", state.WorkDir, err)
	}
	raw, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal pipeline state: %w", err)
	}
	path := filepath.Join(state.WorkDir, "state.json")
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// loadState reads and parses workDir/state.json, for `noctua resume` and
// `noctua inspect`. It returns an error wrapping os.ErrNotExist if no prior
// run exists at workDir.
func loadState(workDir string) (PipelineState, error) {
	path := filepath.Join(workDir, "state.json")
	raw, err := os.ReadFile(path)
	if err != nil {
		return PipelineState{}, fmt.Errorf("read %s: %w", path, err)
	}
	var state PipelineState
	if err := json.Unmarshal(raw, &state); err != nil {
		return PipelineState{}, fmt.Errorf("parse %s: %w", path, err)
	}
	return state, nil
}

// LoadState is loadState's exported form, used by cmd/noctua's resume and
// inspect subcommands.
func LoadState(workDir string) (PipelineState, error) {
	return loadState(workDir)
}
