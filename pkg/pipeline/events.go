package pipeline

import "noctua/pkg/schemas"

// EventKind tags the variant of a PipelineEvent (spec.md §3).
type EventKind string

const (
	EventStageStart     EventKind = "stage_start"
	EventStageComplete  EventKind = "stage_complete"
	EventStageError     EventKind = "stage_error"
	EventStageToolStart EventKind = "stage_tool_start"
	EventStageToolEnd   EventKind = "stage_tool_end"
	EventTestResult     EventKind = "test_result"
	EventRepairAttempt  EventKind = "repair_attempt"
	EventPipelineDone   EventKind = "pipeline_complete"
	EventPipelineFailed EventKind = "pipeline_failed"
)

// PipelineEvent is the tagged sum type observers receive. Only the fields
// relevant to Kind are populated; the rest are zero values, matching the
// teacher's flat discriminated-event-struct convention over a Go type
// union (which would force a type switch onto callers outside this
// module).
type PipelineEvent struct {
	Kind EventKind

	Stage      Stage
	DurationMs int64
	Summary    string
	Error      string

	Tool string

	TestReport schemas.TestReport
	Attempt    int
	MaxAttempts int

	ScraperDir  string
	RecordCount int

	Reason string
}

// Observer receives PipelineEvents synchronously from the driver. It must
// not block for long and must not panic; the driver recovers from an
// observer panic so a misbehaving UI can never corrupt pipeline state
// (spec.md §4.7: "the driver never fails because of observer errors").
type Observer func(PipelineEvent)

// Emitter is the single-observer event stream (C8). A nil Observer is
// valid and simply discards events. Every emitted event is additionally
// retained in order so runPipeline's caller can inspect the full trace
// even without wiring an Observer.
type Emitter struct {
	observer Observer
	history  []PipelineEvent
}

// NewEmitter wraps observer (which may be nil) as an Emitter.
func NewEmitter(observer Observer) *Emitter {
	return &Emitter{observer: observer}
}

// Emit records event in the trace and delivers it to the observer, if any,
// swallowing any panic the observer raises so the driver's own control
// flow is never disrupted (spec.md §4.7).
func (e *Emitter) Emit(event PipelineEvent) {
	if e == nil {
		return
	}
	e.history = append(e.history, event)
	if e.observer == nil {
		return
	}
	defer func() { _ = recover() }()
	e.observer(event)
}

// History returns every event emitted so far, in order.
func (e *Emitter) History() []PipelineEvent {
	if e == nil {
		return nil
	}
	return e.history
}

func (e *Emitter) stageStart(stage Stage) {
	e.Emit(PipelineEvent{Kind: EventStageStart, Stage: stage})
}

func (e *Emitter) stageComplete(stage Stage, durationMs int64, summary string) {
	e.Emit(PipelineEvent{Kind: EventStageComplete, Stage: stage, DurationMs: durationMs, Summary: summary})
}

func (e *Emitter) stageError(stage Stage, err error) {
	e.Emit(PipelineEvent{Kind: EventStageError, Stage: stage, Error: err.Error()})
}

func (e *Emitter) stageToolStart(stage Stage, tool string) {
	e.Emit(PipelineEvent{Kind: EventStageToolStart, Stage: stage, Tool: tool})
}

func (e *Emitter) stageToolEnd(stage Stage, tool string, durationMs int64) {
	e.Emit(PipelineEvent{Kind: EventStageToolEnd, Stage: stage, Tool: tool, DurationMs: durationMs})
}

func (e *Emitter) testResult(report schemas.TestReport, attempt int) {
	e.Emit(PipelineEvent{Kind: EventTestResult, TestReport: report, Attempt: attempt})
}

func (e *Emitter) repairAttempt(attempt, maxAttempts int) {
	e.Emit(PipelineEvent{Kind: EventRepairAttempt, Attempt: attempt, MaxAttempts: maxAttempts})
}

func (e *Emitter) pipelineComplete(scraperDir string, recordCount int) {
	e.Emit(PipelineEvent{Kind: EventPipelineDone, ScraperDir: scraperDir, RecordCount: recordCount})
}

func (e *Emitter) pipelineFailed(reason string, stage Stage) {
	e.Emit(PipelineEvent{Kind: EventPipelineFailed, Reason: reason, Stage: stage})
}
