// Package genai implements llmrt's Backend against Google's Gemini models
// using google.golang.org/genai. Grounded on the teacher's
// pkg/agent/internal/llmimpl/google client: content/role conversion,
// function-declaration schema conversion, and the "force tool use when
// tools are present" ToolConfig all carry over. The teacher's
// thought-signature response cache is dropped — it exists to let Gemini
// replay its own prior turns verbatim, which this package's flatter
// Message/ToolCall shapes don't preserve across calls.
package genai

import (
	"context"
	"encoding/json"
	"fmt"

	genaisdk "google.golang.org/genai"

	"noctua/pkg/config"
	"noctua/pkg/llmrt/llmtypes"
	"noctua/pkg/tools"
)

const defaultModel = "gemini-1.5-pro"
const defaultMaxOutputTokens = 4096

// Backend wraps a genai.Client to satisfy llmtypes.Backend. The client is
// connected lazily on first Send, mirroring the teacher's
// defer-until-Complete construction (genai.NewClient needs a context,
// which NewBackend doesn't have).
type Backend struct {
	client *genaisdk.Client
	apiKey string
	model  string
}

// NewBackend builds a Gemini-backed Backend for model (or the package
// default if empty), resolving the API key via pkg/config.GetSecret.
func NewBackend(model string) (*Backend, error) {
	apiKey, err := config.GetSecret("GOOGLE_API_KEY")
	if err != nil {
		return nil, fmt.Errorf("genai backend: %w", err)
	}
	if model == "" {
		model = defaultModel
	}
	return &Backend{model: model, apiKey: apiKey}, nil
}

func (b *Backend) Model() string { return b.model }

func (b *Backend) ensureClient(ctx context.Context) error {
	if b.client != nil {
		return nil
	}
	client, err := genaisdk.NewClient(ctx, &genaisdk.ClientConfig{
		APIKey:  b.apiKey,
		Backend: genaisdk.BackendGeminiAPI,
	})
	if err != nil {
		return fmt.Errorf("create gemini client: %w", err)
	}
	b.client = client
	return nil
}

func (b *Backend) Send(ctx context.Context, messages []llmtypes.Message, toolDefs []tools.ToolDefinition, schema *llmtypes.OutputSchema) (llmtypes.BackendTurn, error) {
	if err := b.ensureClient(ctx); err != nil {
		return llmtypes.BackendTurn{}, err
	}

	contents, err := convertMessages(messages)
	if err != nil {
		return llmtypes.BackendTurn{}, fmt.Errorf("message conversion error: %w", err)
	}

	maxTokens := int32(defaultMaxOutputTokens)
	genConfig := &genaisdk.GenerateContentConfig{MaxOutputTokens: maxTokens}

	if len(toolDefs) > 0 {
		genConfig.Tools = []*genaisdk.Tool{{FunctionDeclarations: convertTools(toolDefs)}}
		genConfig.ToolConfig = &genaisdk.ToolConfig{
			FunctionCallingConfig: &genaisdk.FunctionCallingConfig{Mode: genaisdk.FunctionCallingConfigModeAny},
		}
	}
	if schema != nil {
		genConfig.ResponseMIMEType = "application/json"
		genConfig.ResponseSchema = schemaToGeminiSchema(schema.Schema)
	}

	result, err := b.client.Models.GenerateContent(ctx, b.model, contents, genConfig)
	if err != nil {
		return llmtypes.BackendTurn{}, &llmtypes.ModelError{Status: llmtypes.ExtractStatusCode(err.Error()), Message: err.Error()}
	}
	if result == nil {
		return llmtypes.BackendTurn{}, fmt.Errorf("genai: empty response")
	}

	turn := llmtypes.BackendTurn{Content: result.Text(), FinishReason: "end_turn"}
	if result.UsageMetadata != nil {
		turn.Usage = llmtypes.Usage{
			PromptTokens:     int(result.UsageMetadata.PromptTokenCount),
			CompletionTokens: int(result.UsageMetadata.CandidatesTokenCount),
		}
	}

	if calls := result.FunctionCalls(); len(calls) > 0 {
		for _, call := range calls {
			id := call.ID
			if id == "" {
				id = call.Name
			}
			turn.ToolCalls = append(turn.ToolCalls, llmtypes.ToolCall{ID: id, Name: call.Name, Args: call.Args})
		}
	}

	if schema != nil && turn.Content != "" {
		var parsed map[string]any
		if err := json.Unmarshal([]byte(turn.Content), &parsed); err == nil {
			turn.StructuredOutput = parsed
		}
	}

	return turn, nil
}

func convertMessages(messages []llmtypes.Message) ([]*genaisdk.Content, error) {
	if len(messages) == 0 {
		return nil, fmt.Errorf("message list cannot be empty")
	}
	var contents []*genaisdk.Content
	for _, m := range messages {
		role := "user"
		switch m.Role {
		case llmtypes.RoleAssistant:
			role = "model"
		case llmtypes.RoleTool:
			contents = append(contents, &genaisdk.Content{
				Role: "user",
				Parts: []*genaisdk.Part{{
					FunctionResponse: &genaisdk.FunctionResponse{
						Name:     "tool_result",
						Response: map[string]any{"content": m.Content},
					},
				}},
			})
			continue
		}
		if m.Content == "" {
			continue
		}
		contents = append(contents, &genaisdk.Content{Role: role, Parts: []*genaisdk.Part{{Text: m.Content}}})
	}
	return contents, nil
}

func convertTools(defs []tools.ToolDefinition) []*genaisdk.FunctionDeclaration {
	out := make([]*genaisdk.FunctionDeclaration, len(defs))
	for i, def := range defs {
		properties := make(map[string]*genaisdk.Schema, len(def.InputSchema.Properties))
		for name, p := range def.InputSchema.Properties {
			properties[name] = propertyToGeminiSchema(p)
		}
		out[i] = &genaisdk.FunctionDeclaration{
			Name:        def.Name,
			Description: def.Description,
			Parameters: &genaisdk.Schema{
				Type:       genaisdk.TypeObject,
				Properties: properties,
				Required:   def.InputSchema.Required,
			},
		}
	}
	return out
}

func schemaToGeminiSchema(schema tools.InputSchema) *genaisdk.Schema {
	properties := make(map[string]*genaisdk.Schema, len(schema.Properties))
	for name, p := range schema.Properties {
		properties[name] = propertyToGeminiSchema(p)
	}
	return &genaisdk.Schema{Type: genaisdk.TypeObject, Properties: properties, Required: schema.Required}
}

func propertyToGeminiSchema(p tools.Property) *genaisdk.Schema {
	schema := &genaisdk.Schema{Description: p.Description}
	switch p.Type {
	case "string":
		schema.Type = genaisdk.TypeString
	case "number":
		schema.Type = genaisdk.TypeNumber
	case "integer":
		schema.Type = genaisdk.TypeInteger
	case "boolean":
		schema.Type = genaisdk.TypeBoolean
	case "array":
		schema.Type = genaisdk.TypeArray
		if p.Items != nil {
			schema.Items = propertyToGeminiSchema(*p.Items)
		}
	case "object":
		schema.Type = genaisdk.TypeObject
		if p.Properties != nil {
			properties := make(map[string]*genaisdk.Schema, len(p.Properties))
			for name, child := range p.Properties {
				properties[name] = propertyToGeminiSchema(child)
			}
			schema.Properties = properties
		}
	default:
		schema.Type = genaisdk.TypeString
	}
	if len(p.Enum) > 0 {
		schema.Enum = p.Enum
	}
	return schema
}
