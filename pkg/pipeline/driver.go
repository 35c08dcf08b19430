package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"noctua/pkg/config"
	"noctua/pkg/llmrt"
	"noctua/pkg/logx"
	"noctua/pkg/metrics"
	"noctua/pkg/retry"
	"noctua/pkg/tools"
)

// exploreRetry and synthesizeRetry are RECON's two backoff policies, per
// spec.md §4.2: 30s/60s for Explore, 15s/30s for Synthesize, three
// attempts each.
var (
	exploreRetry    = retry.Config{MaxAttempts: 3, BaseDelay: 30 * time.Second} //nolint:gochecknoglobals
	synthesizeRetry = retry.Config{MaxAttempts: 3, BaseDelay: 15 * time.Second} //nolint:gochecknoglobals
)

// exploreCooldown is the pause between Explore and Synthesize, per
// spec.md §4.1.1, to avoid rate-limit bursts. A package-level var, not a
// const, so tests can shrink it rather than sleeping 15s per run.
var exploreCooldown = 15 * time.Second //nolint:gochecknoglobals

// minFindingsLen is the shortest Explore-phase findings string Synthesize
// is allowed to run against (spec.md §4.1.1).
const minFindingsLen = 50

// maxFindingsLen truncates Explore-phase findings before they're persisted
// and passed to Synthesize (spec.md §4.1.1).
const maxFindingsLen = 15000

// Options configures one runPipeline invocation: the caller's workspace
// root, model selection, repair cap, cancellation, and the optional
// observability hooks (spec.md §4.1, §9's "pass the observer and model
// handle explicitly").
type Options struct {
	BaseDir           string
	Provider          string
	Model             string
	MaxRepairAttempts int
	Headless          bool
	Budgets           config.StageBudgets

	Observer    Observer
	Logger      *logx.Logger
	Metrics     *metrics.Recorder
	Breaker     *llmrt.CircuitBreaker
	RateLimiter *llmrt.RateLimiter
}

// withDefaults fills any zero-valued field with the package default, so a
// caller that only cares about BaseDir/Provider/Model doesn't have to
// construct a full config.Config first. Breaker and RateLimiter default to
// live instances rather than nil: every stage invocation routes through a
// circuit breaker (spec.md §14: "trip a circuit breaker that short-circuits
// further calls") and RECON's Explore phase routes its model calls through
// a rate limiter (§14), unless a caller supplies its
// own (e.g. one shared across multiple RunPipeline calls in the same
// process, so their breakers/limiters see each other's failures).
func (o Options) withDefaults() Options {
	if o.MaxRepairAttempts <= 0 {
		o.MaxRepairAttempts = 5
	}
	if o.Provider == "" {
		o.Provider = "anthropic"
	}
	zero := config.StageBudgets{}
	if o.Budgets == zero {
		o.Budgets = config.DefaultStageBudgets()
	}
	if o.Breaker == nil {
		o.Breaker = llmrt.NewCircuitBreaker(llmrt.DefaultCircuitBreakerConfig)
	}
	if o.RateLimiter == nil {
		o.RateLimiter = llmrt.DefaultRateLimiter()
	}
	return o
}

// driver holds the per-run collaborators the stage methods share: state,
// emitter, tool registry, logger, and the caller's options. It exists so
// the stage methods (explore, synthesize, schema, codegen, test, repair,
// harden) read like a narrative without threading eight parameters through
// each call, matching the teacher's orchestrator-as-receiver shape.
type driver struct {
	opts    Options
	state   PipelineState
	emitter *Emitter
	log     *logx.Logger
	tools   *tools.Registry
}

// RunPipeline drives the six-stage FSM to completion (spec.md §4.1): it
// builds the workspace, constructs the tool registry, and sequences RECON
// -> SCHEMA -> CODEGEN -> TEST/REPAIR -> HARDEN -> DONE, persisting state
// and emitting events at every transition. It never returns an error for
// an internal pipeline failure — those are folded into the returned
// state's CurrentStage=failed and Error fields (spec.md §7's "the function
// never throws across its public boundary"); the error return is reserved
// for setup failures (workspace creation, tool registry construction) that
// precede there being any state worth returning.
func RunPipeline(ctx context.Context, targetURL, userIntent string, opts Options) (PipelineState, []PipelineEvent, error) {
	opts = opts.withDefaults()
	runID := uuid.NewString()

	state := NewState(runID, targetURL, userIntent, opts.BaseDir, opts.MaxRepairAttempts)
	state.ModelHandle = opts.Provider + "/" + opts.Model

	if err := os.MkdirAll(state.ScraperDir, 0o755); err != nil {
		return state, nil, fmt.Errorf("create scraper dir: %w", err)
	}

	log := opts.Logger
	if log == nil {
		log = logx.NewLogger(runID)
	}
	if tl, err := log.WithFile(filepath.Join(state.WorkDir, "debug.log")); err == nil {
		log = tl
		defer func() { _ = log.Close() }()
	}

	reg, err := tools.NewStandardRegistry(state.WorkDir, opts.Headless)
	if err != nil {
		return state, nil, fmt.Errorf("build tool registry: %w", err)
	}

	d := &driver{
		opts:    opts,
		state:   state,
		emitter: NewEmitter(opts.Observer),
		log:     log,
		tools:   reg,
	}

	d.run(ctx)
	return d.state, d.emitter.History(), nil
}

// run sequences the FSM. Every stage method mutates d.state in place,
// persists it, and emits its own stage_start/stage_complete/stage_error
// triad; run's job is just to decide what runs next.
func (d *driver) run(ctx context.Context) {
	if d.aborted(ctx) {
		return
	}
	if !d.recon(ctx) {
		return
	}

	if d.aborted(ctx) {
		return
	}
	if !d.schema(ctx) {
		return
	}

	if d.aborted(ctx) {
		return
	}
	if !d.codegen(ctx) {
		return
	}

	for {
		if d.aborted(ctx) {
			return
		}
		report, ok := d.test(ctx)
		if !ok {
			return
		}
		if report.Success {
			break
		}

		if d.state.RepairAttempts >= d.state.MaxRepairAttempts {
			d.failNoStageError(StageRepair, fmt.Errorf("exhausted %d repair attempts without a passing test", d.state.MaxRepairAttempts))
			return
		}

		if d.aborted(ctx) {
			return
		}
		if !d.repair(ctx) {
			return
		}
	}

	if d.aborted(ctx) {
		return
	}
	if !d.harden(ctx) {
		return
	}

	d.complete()
}

// aborted checks the cancellation token at a stage boundary, per spec.md
// §5: "the driver checks it at every stage boundary." A cancelled run is
// not a failure — the state is returned as-is, mid-stage, for the caller
// to inspect or resume.
func (d *driver) aborted(ctx context.Context) bool {
	return ctx.Err() != nil
}

// persist writes state.json, logging but not failing the run if the write
// itself errors — a disk failure here is surfaced via the log, not folded
// into the pipeline's own success/failure semantics.
func (d *driver) persist() {
	if err := saveState(d.state); err != nil {
		d.log.Error("persist state: %v", err)
	}
}

// fail transitions the run to FAILED, persists, and emits a stage_error
// paired with the stage's already-emitted stage_start, followed by
// pipeline_failed, per spec.md §7's propagation policy. Call this from
// within a stage method that has already called emitter.stageStart for
// stage; for a failure with no corresponding stage_start (the repair-cap
// exhaustion check in run(), which fails between stages rather than inside
// one), use failNoStageError instead so spec.md §8's "count of stage_start
// equals count of stage_complete + stage_error" invariant holds.
func (d *driver) fail(stage Stage, err error) {
	d.finishFailed(err)
	d.emitter.stageError(stage, err)
	d.emitter.pipelineFailed(err.Error(), stage)
	d.log.Error("pipeline failed at stage %s: %v", stage, err)
}

// failNoStageError is fail without the stage_error emission, for a failure
// that never corresponds to an open stage_start.
func (d *driver) failNoStageError(stage Stage, err error) {
	d.finishFailed(err)
	d.emitter.pipelineFailed(err.Error(), stage)
	d.log.Error("pipeline failed at stage %s: %v", stage, err)
}

func (d *driver) finishFailed(err error) {
	d.state.CurrentStage = StageFailed
	d.state.Error = err.Error()
	now := time.Now().UTC()
	d.state.CompletedAt = &now
	d.persist()
	if d.opts.Metrics != nil {
		d.opts.Metrics.IncResult("failed")
	}
}

// complete transitions the run to DONE, stamps CompletedAt, persists, and
// emits pipeline_complete, per spec.md §4.1.5.
func (d *driver) complete() {
	d.state.CurrentStage = StageDone
	now := time.Now().UTC()
	d.state.CompletedAt = &now
	d.persist()

	recordCount := 0
	if n := len(d.state.TestResults); n > 0 {
		recordCount = d.state.TestResults[n-1].RecordCount
	}
	d.emitter.pipelineComplete(d.state.ScraperDir, recordCount)
	d.log.Info("pipeline complete: %s (%d records)", d.state.ScraperDir, recordCount)
	if d.opts.Metrics != nil {
		d.opts.Metrics.IncResult("done")
	}
}

// observeStage reports one stage's wall-clock duration and cost to the
// metrics recorder, a no-op if none is configured.
func (d *driver) observeStage(stage Stage, duration time.Duration, costUSD float64) {
	if d.opts.Metrics != nil {
		d.opts.Metrics.ObserveStage(d.state.RunID, string(stage), duration, costUSD)
	}
}

// invoke builds the llmrt.Config common to every stage — the breaker and
// hooks that route tool-call boundaries into stage_tool_start/end events —
// so each stage method only has to specify what differs: tool set,
// reasoning effort, turn cap, budget, and optional output schema.
func (d *driver) invokeConfig(stage Stage, toolNames []string, effort llmrt.ReasoningEffort, maxTurns int, budgetUSD float64, schema *llmrt.OutputSchema) llmrt.Config {
	return llmrt.Config{
		Provider:        d.opts.Provider,
		Model:           d.opts.Model,
		Tools:           d.tools,
		ToolNames:       toolNames,
		MaxTurns:        maxTurns,
		OutputSchema:    schema,
		ReasoningEffort: effort,
		BudgetUSD:       budgetUSD,
		Breaker:         d.opts.Breaker,
		Hooks: llmrt.Hooks{
			OnToolStart: func(name string, _ map[string]any) {
				d.emitter.stageToolStart(stage, name)
			},
			OnToolEnd: func(name string, _ *tools.ExecResult, _ error) {
				d.emitter.stageToolEnd(stage, name, 0)
			},
		},
	}
}

// budgetErrorMessage renders a budget_exceeded error with both figures
// formatted to two decimals, per spec.md §8's concrete scenario.
func budgetErrorMessage(be *llmrt.BudgetExceededError) error {
	return fmt.Errorf("budget exceeded: spent $%.2f of $%.2f budget", be.SpentUSD, be.BudgetUSD)
}
