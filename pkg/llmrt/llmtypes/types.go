// Package llmtypes holds the types shared between pkg/llmrt's core Invoke
// loop and its concrete provider backends (pkg/llmrt/anthropic and
// siblings). Split out from pkg/llmrt itself so the backends can import
// these shapes without importing the package that imports them back.
package llmtypes

import (
	"context"
	"fmt"
	"strings"

	"noctua/pkg/tools"
)

// Role identifies who produced one message in the invocation transcript.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Message is one turn of the invocation transcript.
type Message struct {
	Role    Role
	Content string
}

// Usage reports token counts for cost estimation and observability.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
}

// OutputSchema requests forced structured output from a backend.
type OutputSchema struct {
	Name        string
	Description string
	Schema      tools.InputSchema
}

// ToolCall is one tool invocation the model requested.
type ToolCall struct {
	ID   string
	Name string
	Args map[string]any
}

// BackendTurn is one backend round trip's raw result.
type BackendTurn struct {
	Content          string
	ToolCalls        []ToolCall
	FinishReason     string
	Usage            Usage
	StructuredOutput map[string]any
}

// Backend is satisfied by each concrete provider adapter.
type Backend interface {
	Model() string
	Send(ctx context.Context, messages []Message, toolDefs []tools.ToolDefinition, schema *OutputSchema) (BackendTurn, error)
}

// ModelError wraps a provider-reported failure (HTTP status plus message).
// It lives here, not in llmrt, so every backend can construct one directly
// without importing the package that imports them. It satisfies
// retry.StatusCoder so pkg/retry classifies 429s as transient without
// either package depending on the other.
type ModelError struct {
	Status  int
	Message string
}

func (e *ModelError) Error() string {
	return fmt.Sprintf("model error (status %d): %s", e.Status, e.Message)
}

func (e *ModelError) StatusCode() int { return e.Status }

// ExtractStatusCode pulls an HTTP status code out of an SDK error string.
// Each provider backend's Go client formats errors differently and none
// exposes a clean status accessor here, so every backend falls back to the
// same substring scan the teacher's anthropic client.go uses.
func ExtractStatusCode(errStr string) int {
	lower := strings.ToLower(errStr)
	for _, pattern := range []string{"status code: ", "status: ", "http ", "code "} {
		idx := strings.Index(lower, pattern)
		if idx == -1 {
			continue
		}
		start := idx + len(pattern)
		end := start
		for end < len(errStr) && errStr[end] >= '0' && errStr[end] <= '9' {
			end++
		}
		if end > start {
			var code int
			for _, c := range errStr[start:end] {
				code = code*10 + int(c-'0')
			}
			return code
		}
	}
	return 0
}
