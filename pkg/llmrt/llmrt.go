// Package llmrt provides the LLM invocation primitive (component C2): a
// provider-agnostic contract — prompt and config in, a validated result or
// a distinguished error kind out — implemented by swappable backends
// selected at construction time. Grounded on the teacher's pkg/agent/llm
// (CompletionRequest/CompletionResponse/LLMClient) generalized from a
// single-provider abstraction to the four concrete adapters this pipeline
// ships (anthropic, openai, ollama, genai).
package llmrt

import (
	"time"

	"noctua/pkg/llmrt/llmtypes"
	"noctua/pkg/tools"
)

// Re-exported so callers of this package never need to import llmtypes
// directly; the split only exists to let the backend subpackages import
// these shapes without an import cycle back through llmrt.
type (
	Role         = llmtypes.Role
	Message      = llmtypes.Message
	Usage        = llmtypes.Usage
	OutputSchema = llmtypes.OutputSchema
	ToolCall     = llmtypes.ToolCall
	BackendTurn  = llmtypes.BackendTurn
	Backend      = llmtypes.Backend
)

const (
	RoleUser      = llmtypes.RoleUser
	RoleAssistant = llmtypes.RoleAssistant
	RoleTool      = llmtypes.RoleTool
)

// ReasoningEffort maps to the teacher's TemperatureDefault/Deterministic
// split, generalized to the qualitative levels spec.md's stages select by
// name: "low" for mechanical stages (SCHEMA, TEST), "medium" for
// exploratory/summarizing ones (RECON, HARDEN), "high" for the stages that
// need to reason hardest about unfamiliar code (CODEGEN, REPAIR).
type ReasoningEffort string

const (
	EffortLow    ReasoningEffort = "low"
	EffortMedium ReasoningEffort = "medium"
	EffortHigh   ReasoningEffort = "high"
)

// Hooks lets the caller observe tool-call boundaries inside one invocation,
// mirroring spec.md §4.7's stage_tool_start/stage_tool_end events without
// llmrt depending on the pipeline's event type.
type Hooks struct {
	OnToolStart func(name string, args map[string]any)
	OnToolEnd   func(name string, result *tools.ExecResult, err error)
}

// Config controls one Invoke call. Provider selects the concrete backend;
// everything else is provider-agnostic.
type Config struct {
	Provider          string // "anthropic", "openai", "ollama", "genai"
	Model             string
	Tools             *tools.Registry
	ToolNames         []string
	MaxTurns          int
	OutputSchema      *OutputSchema
	ReasoningEffort   ReasoningEffort
	InstructionPrefix string
	BudgetUSD         float64
	Hooks             Hooks

	// Breaker, if set, gates every backend.Send call through the caller's
	// shared circuit breaker for this provider/model and records each
	// call's outcome back into it. The pipeline driver passes the same
	// breaker (Options.Breaker) to every stage of a run, across retries and
	// stage repeats; it is not keyed by provider or model.
	Breaker *CircuitBreaker

	// RateLimiter and RateLimitKey, if both set, throttle each backend.Send
	// call through the named bucket before it is attempted.
	RateLimiter  *RateLimiter
	RateLimitKey string
}

// Result is the invocation's outcome, matching spec.md §4.8's record shape.
type Result struct {
	Output       string
	FinalOutput  map[string]any
	Messages     []Message
	NumTurns     int
	FinishReason string
	TotalCostUSD float64
	Usage        Usage
}

// NewBackend constructs the concrete Backend named by cfg.Provider.
// backendFactory is a package-level seam so tests can substitute a fake
// Backend without constructing a real provider client; production code
// never reassigns it.
var backendFactory = newBackend //nolint:gochecknoglobals

func NewBackend(cfg Config) (Backend, error) {
	return backendFactory(cfg)
}

// DefaultInvokeTimeout bounds a single model round trip (each backend.Send
// call in sendTurn), per spec.md §5:
// "per-invocation timeout is the responsibility of the LLM primitive."
const DefaultInvokeTimeout = 120 * time.Second
