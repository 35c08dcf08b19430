// Package ollama implements llmrt's Backend against a local Ollama server,
// for offline/no-API-key pipeline runs. Grounded directly on the teacher's
// pkg/agent/internal/llmimpl/ollama client: the api.Client/api.ChatRequest
// wiring, tool/property conversion, and error classification by substring
// match all carry over, narrowed to the ModelError kind llmrt exposes.
package ollama

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"

	"github.com/ollama/ollama/api"

	"noctua/pkg/llmrt/llmtypes"
	"noctua/pkg/tools"
)

const defaultModel = "llama3.1"
const defaultHostURL = "http://localhost:11434"

// Backend wraps an Ollama api.Client to satisfy llmtypes.Backend.
type Backend struct {
	client *api.Client
	model  string
}

// NewBackend builds an Ollama-backed Backend for model (or the package
// default if empty), reading the server URL from OLLAMA_HOST if set.
func NewBackend(model string) (*Backend, error) {
	hostURL := os.Getenv("OLLAMA_HOST")
	if hostURL == "" {
		hostURL = defaultHostURL
	}
	parsedURL, err := url.Parse(hostURL)
	if err != nil {
		return nil, fmt.Errorf("invalid OLLAMA_HOST %q: %w", hostURL, err)
	}
	if model == "" {
		model = defaultModel
	}
	return &Backend{
		client: api.NewClient(parsedURL, http.DefaultClient),
		model:  model,
	}, nil
}

func (b *Backend) Model() string { return b.model }

func (b *Backend) Send(ctx context.Context, messages []llmtypes.Message, toolDefs []tools.ToolDefinition, schema *llmtypes.OutputSchema) (llmtypes.BackendTurn, error) {
	ollamaMessages, err := convertMessages(messages)
	if err != nil {
		return llmtypes.BackendTurn{}, fmt.Errorf("message conversion error: %w", err)
	}

	stream := false
	req := &api.ChatRequest{
		Model:    b.model,
		Messages: ollamaMessages,
		Stream:   &stream,
	}
	if len(toolDefs) > 0 {
		req.Tools = convertTools(toolDefs)
	}
	if schema != nil {
		req.Format = schemaToFormat(schema)
	}

	var resp api.ChatResponse
	err = b.client.Chat(ctx, req, func(r api.ChatResponse) error {
		resp = r
		return nil
	})
	if err != nil {
		return llmtypes.BackendTurn{}, classifyError(err)
	}

	turn := llmtypes.BackendTurn{
		Content:      resp.Message.Content,
		FinishReason: stopReason(&resp),
		Usage: llmtypes.Usage{
			PromptTokens:     resp.PromptEvalCount,
			CompletionTokens: resp.EvalCount,
		},
	}

	if len(resp.Message.ToolCalls) > 0 {
		turn.ToolCalls = convertToolCallsFromOllama(resp.Message.ToolCalls)
	}

	if schema != nil && turn.Content != "" {
		var parsed map[string]any
		if jsonErr := json.Unmarshal([]byte(turn.Content), &parsed); jsonErr == nil {
			turn.StructuredOutput = parsed
		}
	}

	return turn, nil
}

func convertMessages(messages []llmtypes.Message) ([]api.Message, error) {
	if len(messages) == 0 {
		return nil, fmt.Errorf("message list cannot be empty")
	}
	out := make([]api.Message, 0, len(messages))
	for _, m := range messages {
		role := string(m.Role)
		if m.Role == llmtypes.RoleTool {
			role = "tool"
		}
		out = append(out, api.Message{Role: role, Content: m.Content})
	}
	return out, nil
}

func convertTools(defs []tools.ToolDefinition) api.Tools {
	out := make(api.Tools, len(defs))
	for i, def := range defs {
		properties := api.NewToolPropertiesMap()
		for name, p := range def.InputSchema.Properties {
			properties.Set(name, convertProperty(p))
		}
		out[i] = api.Tool{
			Type: "function",
			Function: api.ToolFunction{
				Name:        def.Name,
				Description: def.Description,
				Parameters: api.ToolFunctionParameters{
					Type:       def.InputSchema.Type,
					Properties: properties,
					Required:   def.InputSchema.Required,
				},
			},
		}
	}
	return out
}

func convertProperty(p tools.Property) api.ToolProperty {
	prop := api.ToolProperty{
		Type:        api.PropertyType{p.Type},
		Description: p.Description,
	}
	if len(p.Enum) > 0 {
		enumVals := make([]any, len(p.Enum))
		for i, v := range p.Enum {
			enumVals[i] = v
		}
		prop.Enum = enumVals
	}
	if p.Items != nil {
		child := convertProperty(*p.Items)
		prop.Items = map[string]any{"type": child.Type, "description": child.Description}
	}
	return prop
}

func convertToolCallsFromOllama(calls []api.ToolCall) []llmtypes.ToolCall {
	out := make([]llmtypes.ToolCall, len(calls))
	for i, call := range calls {
		id := call.ID
		if id == "" {
			id = fmt.Sprintf("call_%d", i)
		}
		out[i] = llmtypes.ToolCall{ID: id, Name: call.Function.Name, Args: call.Function.Arguments.ToMap()}
	}
	return out
}

func schemaToFormat(schema *llmtypes.OutputSchema) json.RawMessage {
	properties := make(map[string]any, len(schema.Schema.Properties))
	for name, p := range schema.Schema.Properties {
		properties[name] = map[string]any{"type": p.Type, "description": p.Description}
	}
	doc := map[string]any{
		"type":       "object",
		"properties": properties,
		"required":   schema.Schema.Required,
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil
	}
	return json.RawMessage(raw)
}

func stopReason(resp *api.ChatResponse) string {
	if !resp.Done {
		return "incomplete"
	}
	switch resp.DoneReason {
	case "stop":
		return "end_turn"
	case "length":
		return "max_tokens"
	case "":
		return "end_turn"
	default:
		return resp.DoneReason
	}
}

// classifyError mirrors the teacher's substring-based ollama error
// classification, mapped onto a synthetic HTTP status so the same
// llmtypes.ModelError/retry.StatusCoder path the hosted backends use also
// covers a local server that's unreachable or out of models.
func classifyError(err error) error {
	errStr := err.Error()
	status := llmtypes.ExtractStatusCode(errStr)
	message := "ollama api error: " + errStr
	switch {
	case strings.Contains(errStr, "connection refused"):
		status, message = 503, "ollama server not reachable at configured host: "+errStr
	case strings.Contains(errStr, "model") && strings.Contains(errStr, "not found"):
		status, message = 404, "ollama model not found: "+errStr
	case strings.Contains(errStr, "context canceled"):
		status, message = 499, "ollama request canceled: "+errStr
	case strings.Contains(errStr, "timeout"):
		status, message = 504, "ollama request timed out: "+errStr
	}
	return &llmtypes.ModelError{Status: status, Message: message}
}
