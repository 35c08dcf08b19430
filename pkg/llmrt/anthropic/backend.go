// Package anthropic implements llmrt's default Backend using
// github.com/anthropics/anthropic-sdk-go. Grounded on the teacher's
// pkg/agent/internal/llmimpl/anthropic client: the message-alternation
// merge step, the tool-definition conversion, and the tool_use/text content
// block extraction are all carried over, generalized from the teacher's
// llm.CompletionRequest/Response shapes to llmtypes.
package anthropic

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	anthropicsdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"noctua/pkg/config"
	"noctua/pkg/llmrt/llmtypes"
	"noctua/pkg/tools"
)

const defaultModel = "claude-sonnet-4-20250514"
const defaultMaxTokens = 4096

// Backend wraps an anthropic.Client to satisfy llmtypes.Backend.
type Backend struct {
	client anthropicsdk.Client
	model  string
}

// NewBackend builds an Anthropic-backed Backend for model (or the package
// default if empty), resolving the API key via pkg/config.GetSecret.
func NewBackend(model string) (*Backend, error) {
	apiKey, err := config.GetSecret("ANTHROPIC_API_KEY")
	if err != nil {
		return nil, fmt.Errorf("anthropic backend: %w", err)
	}
	if model == "" {
		model = defaultModel
	}
	return &Backend{
		client: anthropicsdk.NewClient(option.WithAPIKey(apiKey)),
		model:  model,
	}, nil
}

func (b *Backend) Model() string { return b.model }

// Send issues one Messages.New round trip. Grounded on the teacher's
// ensureAlternation: the transcript's tool-role turns are folded into
// "user" turns (Anthropic has no third role), and consecutive same-role
// turns are merged so the strict user/assistant alternation the API
// requires always holds, regardless of how many tool calls preceded it.
func (b *Backend) Send(ctx context.Context, messages []llmtypes.Message, toolDefs []tools.ToolDefinition, schema *llmtypes.OutputSchema) (llmtypes.BackendTurn, error) {
	alternating, err := ensureAlternation(messages)
	if err != nil {
		return llmtypes.BackendTurn{}, fmt.Errorf("message alternation error: %w", err)
	}

	params := anthropicsdk.MessageNewParams{
		Model:     anthropicsdk.Model(b.model),
		MaxTokens: int64(defaultMaxTokens),
		Messages:  toAnthropicMessages(alternating),
	}

	if len(toolDefs) > 0 {
		params.Tools = toAnthropicTools(toolDefs)
		params.ToolChoice = anthropicsdk.ToolChoiceUnionParam{OfAuto: &anthropicsdk.ToolChoiceAutoParam{}}
	}
	if schema != nil {
		schemaTool := tools.ToolDefinition{Name: schema.Name, Description: schema.Description, InputSchema: schema.Schema}
		params.Tools = append(params.Tools, toAnthropicTools([]tools.ToolDefinition{schemaTool})...)
		params.ToolChoice = anthropicsdk.ToolChoiceUnionParam{
			OfTool: &anthropicsdk.ToolChoiceToolParam{Name: schema.Name},
		}
	}

	resp, err := b.client.Messages.New(ctx, params)
	if err != nil {
		return llmtypes.BackendTurn{}, classifyError(err)
	}
	if resp == nil || len(resp.Content) == 0 {
		return llmtypes.BackendTurn{}, fmt.Errorf("anthropic: empty response")
	}

	turn := llmtypes.BackendTurn{
		FinishReason: string(resp.StopReason),
		Usage: llmtypes.Usage{
			PromptTokens:     int(resp.Usage.InputTokens),
			CompletionTokens: int(resp.Usage.OutputTokens),
		},
	}

	for i := range resp.Content {
		block := &resp.Content[i]
		switch block.Type {
		case "text":
			turn.Content += block.AsText().Text
		case "tool_use":
			toolUse := block.AsToolUse()
			var args map[string]any
			if err := json.Unmarshal(toolUse.Input, &args); err != nil {
				return llmtypes.BackendTurn{}, fmt.Errorf("parse tool_use input: %w", err)
			}
			if schema != nil && toolUse.Name == schema.Name {
				turn.StructuredOutput = args
				continue
			}
			turn.ToolCalls = append(turn.ToolCalls, llmtypes.ToolCall{ID: toolUse.ID, Name: toolUse.Name, Args: args})
		}
	}

	return turn, nil
}

func toAnthropicMessages(messages []llmtypes.Message) []anthropicsdk.MessageParam {
	out := make([]anthropicsdk.MessageParam, 0, len(messages))
	for _, m := range messages {
		role := anthropicsdk.MessageParamRoleUser
		if m.Role == llmtypes.RoleAssistant {
			role = anthropicsdk.MessageParamRoleAssistant
		}
		out = append(out, anthropicsdk.MessageParam{
			Role:    role,
			Content: []anthropicsdk.ContentBlockParamUnion{anthropicsdk.NewTextBlock(m.Content)},
		})
	}
	return out
}

func toAnthropicTools(defs []tools.ToolDefinition) []anthropicsdk.ToolUnionParam {
	out := make([]anthropicsdk.ToolUnionParam, 0, len(defs))
	for _, def := range defs {
		props := make(map[string]any, len(def.InputSchema.Properties))
		for name, p := range def.InputSchema.Properties {
			propMap := map[string]any{"type": p.Type}
			if p.Description != "" {
				propMap["description"] = p.Description
			}
			if len(p.Enum) > 0 {
				propMap["enum"] = p.Enum
			}
			props[name] = propMap
		}
		schema := anthropicsdk.ToolInputSchemaParam{
			Type:       "object",
			Properties: props,
			Required:   def.InputSchema.Required,
		}
		out = append(out, anthropicsdk.ToolUnionParamOfTool(schema, def.Name))
	}
	return out
}

// ensureAlternation collapses tool-role turns into user turns and merges
// consecutive same-role turns, guaranteeing the result strictly alternates
// starting and ending on a user turn — Anthropic's hard requirement.
func ensureAlternation(messages []llmtypes.Message) ([]llmtypes.Message, error) {
	if len(messages) == 0 {
		return nil, fmt.Errorf("message list cannot be empty")
	}

	var merged []llmtypes.Message
	for _, m := range messages {
		role := m.Role
		if role == llmtypes.RoleTool {
			role = llmtypes.RoleUser
		}
		if len(merged) > 0 && merged[len(merged)-1].Role == role {
			merged[len(merged)-1].Content = strings.Join([]string{merged[len(merged)-1].Content, m.Content}, "\n\n")
			continue
		}
		merged = append(merged, llmtypes.Message{Role: role, Content: m.Content})
	}

	if merged[0].Role != llmtypes.RoleUser {
		merged = append([]llmtypes.Message{{Role: llmtypes.RoleUser, Content: "(continue)"}}, merged...)
	}
	if merged[len(merged)-1].Role != llmtypes.RoleUser {
		merged = append(merged, llmtypes.Message{Role: llmtypes.RoleUser, Content: "Continue."})
	}
	return merged, nil
}

// classifyError extracts an HTTP status code from the SDK error text, the
// way the teacher's client.go does, and wraps it in llmtypes.ModelError so
// pkg/retry's StatusCoder check can tell a 429 apart from a 400.
func classifyError(err error) error {
	return &llmtypes.ModelError{Status: llmtypes.ExtractStatusCode(err.Error()), Message: err.Error()}
}
