// Package openai implements llmrt's Backend using the official
// github.com/openai/openai-go client's Responses API. Grounded on the
// teacher's pkg/agent/internal/llmimpl/openaiofficial client: messages are
// flattened into one input string with role prefixes, tool definitions
// convert into responses.FunctionToolParam, and function_call output items
// become llmtypes.ToolCall. Structured output is requested via the
// Responses API's text.format JSON schema, which the teacher's client
// never wires up but the SDK supports directly.
package openai

import (
	"context"
	"encoding/json"
	"fmt"

	openaisdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/responses"

	"noctua/pkg/config"
	"noctua/pkg/llmrt/llmtypes"
	"noctua/pkg/tools"
)

const defaultModel = "gpt-4o"
const defaultMaxOutputTokens = 4096

// Backend wraps an openai.Client to satisfy llmtypes.Backend.
type Backend struct {
	client openaisdk.Client
	model  string
}

// NewBackend builds an OpenAI-backed Backend for model (or the package
// default if empty), resolving the API key via pkg/config.GetSecret.
func NewBackend(model string) (*Backend, error) {
	apiKey, err := config.GetSecret("OPENAI_API_KEY")
	if err != nil {
		return nil, fmt.Errorf("openai backend: %w", err)
	}
	if model == "" {
		model = defaultModel
	}
	return &Backend{
		client: openaisdk.NewClient(option.WithAPIKey(apiKey)),
		model:  model,
	}, nil
}

func (b *Backend) Model() string { return b.model }

func (b *Backend) Send(ctx context.Context, messages []llmtypes.Message, toolDefs []tools.ToolDefinition, schema *llmtypes.OutputSchema) (llmtypes.BackendTurn, error) {
	params := responses.ResponseNewParams{
		Model:           b.model,
		MaxOutputTokens: openaisdk.Int(int64(defaultMaxOutputTokens)),
		Input:           responses.ResponseNewParamsInputUnion{OfString: openaisdk.String(flattenMessages(messages))},
	}

	if len(toolDefs) > 0 {
		params.Tools = toResponsesTools(toolDefs)
	}

	if schema != nil {
		params.Text = responses.ResponseTextConfigParam{
			Format: responses.ResponseFormatTextConfigUnionParam{
				OfJSONSchema: &responses.ResponseFormatTextJSONSchemaConfigParam{
					Name:   schema.Name,
					Schema: schemaToMap(schema.Schema),
				},
			},
		}
	}

	resp, err := b.client.Responses.New(ctx, params)
	if err != nil {
		return llmtypes.BackendTurn{}, &llmtypes.ModelError{Status: llmtypes.ExtractStatusCode(err.Error()), Message: err.Error()}
	}
	if resp == nil {
		return llmtypes.BackendTurn{}, fmt.Errorf("openai: empty response")
	}

	turn := llmtypes.BackendTurn{
		Usage: llmtypes.Usage{
			PromptTokens:     int(resp.Usage.InputTokens),
			CompletionTokens: int(resp.Usage.OutputTokens),
		},
	}

	for i := range resp.Output {
		item := &resp.Output[i]
		switch item.Type {
		case "function_call":
			funcItem := item.AsFunctionCall()
			var args map[string]any
			if funcItem.Arguments != "" {
				if err := json.Unmarshal([]byte(funcItem.Arguments), &args); err != nil {
					return llmtypes.BackendTurn{}, fmt.Errorf("parse function_call arguments: %w", err)
				}
			}
			turn.ToolCalls = append(turn.ToolCalls, llmtypes.ToolCall{ID: funcItem.CallID, Name: funcItem.Name, Args: args})
		default:
			continue
		}
	}

	turn.Content = resp.OutputText()
	if schema != nil && turn.Content != "" {
		var parsed map[string]any
		if err := json.Unmarshal([]byte(turn.Content), &parsed); err == nil {
			turn.StructuredOutput = parsed
		}
	}

	return turn, nil
}

func flattenMessages(messages []llmtypes.Message) string {
	var out string
	for _, m := range messages {
		switch m.Role {
		case llmtypes.RoleAssistant:
			out += fmt.Sprintf("Assistant: %s\n\n", m.Content)
		case llmtypes.RoleTool:
			out += fmt.Sprintf("Tool result: %s\n\n", m.Content)
		default:
			out += m.Content + "\n\n"
		}
	}
	return out
}

func toResponsesTools(defs []tools.ToolDefinition) []responses.ToolUnionParam {
	out := make([]responses.ToolUnionParam, 0, len(defs))
	for _, def := range defs {
		properties := make(map[string]any, len(def.InputSchema.Properties))
		for name, p := range def.InputSchema.Properties {
			properties[name] = propertyToMap(p)
		}
		out = append(out, responses.ToolUnionParam{
			OfFunction: &responses.FunctionToolParam{
				Name:        def.Name,
				Description: openaisdk.String(def.Description),
				Parameters: openaisdk.FunctionParameters(map[string]any{
					"type":       "object",
					"properties": properties,
					"required":   def.InputSchema.Required,
				}),
			},
		})
	}
	return out
}

func propertyToMap(p tools.Property) map[string]any {
	m := map[string]any{"type": p.Type}
	if p.Description != "" {
		m["description"] = p.Description
	}
	if len(p.Enum) > 0 {
		m["enum"] = p.Enum
	}
	if p.Type == "array" && p.Items != nil {
		m["items"] = propertyToMap(*p.Items)
	}
	if p.Type == "object" && p.Properties != nil {
		nested := make(map[string]any, len(p.Properties))
		for name, child := range p.Properties {
			nested[name] = propertyToMap(child)
		}
		m["properties"] = nested
	}
	return m
}

func schemaToMap(schema tools.InputSchema) map[string]any {
	properties := make(map[string]any, len(schema.Properties))
	for name, p := range schema.Properties {
		properties[name] = propertyToMap(p)
	}
	return map[string]any{
		"type":       "object",
		"properties": properties,
		"required":   schema.Required,
	}
}
