package llmrt

import (
	"context"
	"fmt"

	"noctua/pkg/tools"
)

// Invoke drives one stage's model conversation to completion: it resolves
// the configured backend, builds the tool set named by cfg.ToolNames,
// then loops sending transcript turns and folding tool results back in
// until the model produces a final answer (or, with an OutputSchema, a
// validated structured result), the turn cap is hit, or the budget ceiling
// is crossed. Grounded on the teacher's pkg/agent/toolloop, collapsed from
// its full streaming/compaction machinery to the single synchronous
// request/response cycle spec.md §4.8 specifies.
func Invoke(ctx context.Context, prompt string, cfg Config) (Result, error) {
	backend, err := NewBackend(cfg)
	if err != nil {
		return Result{}, fmt.Errorf("construct backend: %w", err)
	}

	var toolDefs []tools.ToolDefinition
	if cfg.Tools != nil && len(cfg.ToolNames) > 0 {
		toolDefs, err = cfg.Tools.Definitions(cfg.ToolNames)
		if err != nil {
			return Result{}, fmt.Errorf("resolve tool set: %w", err)
		}
	}

	maxTurns := cfg.MaxTurns
	if maxTurns <= 0 {
		maxTurns = 1
	}

	firstContent := prompt
	if cfg.InstructionPrefix != "" {
		firstContent = cfg.InstructionPrefix + "\n\n" + prompt
	}
	if hint := effortHint(cfg.ReasoningEffort); hint != "" {
		firstContent = hint + "\n\n" + firstContent
	}
	messages := []Message{{Role: RoleUser, Content: firstContent}}

	var totalCostUSD float64
	var totalUsage Usage

	for turnNum := 1; turnNum <= maxTurns; turnNum++ {
		if err := ctx.Err(); err != nil {
			return buildResult(messages, turnNum-1, "cancelled", totalCostUSD, totalUsage, "", nil), err
		}

		turn, sendErr := sendTurn(ctx, backend, cfg, messages, toolDefs)
		if sendErr != nil {
			return Result{}, sendErr
		}

		turnCost := estimateCostUSD(normalizeModel(backend.Model()), turn.Usage)
		totalCostUSD += turnCost
		totalUsage.PromptTokens += turn.Usage.PromptTokens
		totalUsage.CompletionTokens += turn.Usage.CompletionTokens

		if cfg.BudgetUSD > 0 && totalCostUSD > cfg.BudgetUSD {
			return buildResult(messages, turnNum, turn.FinishReason, totalCostUSD, totalUsage, "", nil),
				&BudgetExceededError{SpentUSD: totalCostUSD, BudgetUSD: cfg.BudgetUSD}
		}

		if turn.Content != "" {
			messages = append(messages, Message{Role: RoleAssistant, Content: turn.Content})
		}

		if cfg.OutputSchema != nil && turn.StructuredOutput != nil {
			if err := validateRequired(turn.StructuredOutput, cfg.OutputSchema.Schema); err != nil {
				return buildResult(messages, turnNum, turn.FinishReason, totalCostUSD, totalUsage, "", nil),
					&OutputParseError{Message: err.Error()}
			}
			return buildResult(messages, turnNum, turn.FinishReason, totalCostUSD, totalUsage, turn.Content, turn.StructuredOutput), nil
		}

		if len(turn.ToolCalls) == 0 {
			return buildResult(messages, turnNum, turn.FinishReason, totalCostUSD, totalUsage, turn.Content, nil), nil
		}

		for _, call := range turn.ToolCalls {
			if cfg.Hooks.OnToolStart != nil {
				cfg.Hooks.OnToolStart(call.Name, call.Args)
			}
			result, execErr := execTool(ctx, cfg, call)
			if cfg.Hooks.OnToolEnd != nil {
				cfg.Hooks.OnToolEnd(call.Name, result, execErr)
			}
			messages = append(messages, Message{Role: RoleTool, Content: toolResultContent(result, execErr)})
		}
	}

	return buildResult(messages, maxTurns, "max_turns", totalCostUSD, totalUsage, "", nil), nil
}

// sendTurn wraps one backend.Send call with the optional circuit breaker
// and rate limiter, in that order: a call the breaker refuses never
// consumes a rate-limit token.
func sendTurn(ctx context.Context, backend Backend, cfg Config, messages []Message, toolDefs []tools.ToolDefinition) (BackendTurn, error) {
	if cfg.Breaker != nil {
		if err := cfg.Breaker.Allow(); err != nil {
			return BackendTurn{}, err
		}
	}
	if cfg.RateLimiter != nil && cfg.RateLimitKey != "" {
		if err := cfg.RateLimiter.Wait(ctx, cfg.RateLimitKey); err != nil {
			return BackendTurn{}, fmt.Errorf("rate limit wait: %w", err)
		}
	}

	sendCtx, cancel := context.WithTimeout(ctx, DefaultInvokeTimeout)
	turn, err := backend.Send(sendCtx, messages, toolDefs, cfg.OutputSchema)
	cancel()

	if cfg.Breaker != nil {
		cfg.Breaker.Record(err == nil)
	}
	return turn, err
}

// effortHint renders cfg.ReasoningEffort as a short directive prepended to
// the first user turn, since none of the four backends' APIs expose a
// first-class reasoning-effort knob uniform across providers — unlike
// temperature or max tokens, "effort" here is a qualitative instruction
// the model itself reasons about, not a request parameter.
func effortHint(effort ReasoningEffort) string {
	switch effort {
	case EffortLow:
		return "Work efficiently; this is a mechanical task that doesn't need extended deliberation."
	case EffortMedium:
		return "Think through this carefully before acting, but don't over-engineer it."
	case EffortHigh:
		return "Reason carefully and thoroughly before acting; this task rewards deep deliberation over speed."
	default:
		return ""
	}
}

func execTool(ctx context.Context, cfg Config, call ToolCall) (*tools.ExecResult, error) {
	if cfg.Tools == nil {
		return nil, fmt.Errorf("tool %q requested but no tool registry configured", call.Name)
	}
	tool, err := cfg.Tools.Get(call.Name)
	if err != nil {
		return nil, err
	}
	return tool.Exec(ctx, call.Args)
}

func toolResultContent(result *tools.ExecResult, err error) string {
	if err != nil {
		return fmt.Sprintf(`{"success":false,"error":%q}`, err.Error())
	}
	return result.Content
}

// validateRequired checks that every key schema.Required names is present
// in data — the shallow structural check spec.md §4.8 calls "validation
// failure" for; deeper type/shape validation is the caller's
// (pkg/schemas') job once FinalOutput is unmarshaled into a concrete type.
func validateRequired(data map[string]any, schema tools.InputSchema) error {
	for _, key := range schema.Required {
		if _, ok := data[key]; !ok {
			return fmt.Errorf("missing required field %q in structured output", key)
		}
	}
	return nil
}

func buildResult(messages []Message, numTurns int, finishReason string, costUSD float64, usage Usage, output string, finalOutput map[string]any) Result {
	return Result{
		Output:       output,
		FinalOutput:  finalOutput,
		Messages:     messages,
		NumTurns:     numTurns,
		FinishReason: finishReason,
		TotalCostUSD: costUSD,
		Usage:        usage,
	}
}
