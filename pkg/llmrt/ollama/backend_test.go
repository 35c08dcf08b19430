package ollama

import (
	"errors"
	"testing"

	"github.com/ollama/ollama/api"

	"noctua/pkg/llmrt/llmtypes"
	"noctua/pkg/tools"
)

func TestConvertMessages_MapsToolRoleAndRejectsEmpty(t *testing.T) {
	out, err := convertMessages([]llmtypes.Message{
		{Role: llmtypes.RoleUser, Content: "go"},
		{Role: llmtypes.RoleTool, Content: `{"ok":true}`},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out[1].Role != "tool" {
		t.Errorf("got role %q, want %q", out[1].Role, "tool")
	}

	if _, err := convertMessages(nil); err == nil {
		t.Error("expected an error for an empty message list")
	}
}

func TestConvertTools_CarriesRequiredAndProperties(t *testing.T) {
	defs := []tools.ToolDefinition{{
		Name:        "click_element",
		Description: "click a CSS selector",
		InputSchema: tools.InputSchema{
			Type:       "object",
			Properties: map[string]tools.Property{"selector": {Type: "string", Description: "CSS selector"}},
			Required:   []string{"selector"},
		},
	}}

	out := convertTools(defs)
	if len(out) != 1 {
		t.Fatalf("got %d tools, want 1", len(out))
	}
	if out[0].Function.Name != "click_element" {
		t.Errorf("got name %q, want %q", out[0].Function.Name, "click_element")
	}
	if len(out[0].Function.Parameters.Required) != 1 || out[0].Function.Parameters.Required[0] != "selector" {
		t.Errorf("expected required=[selector], got %v", out[0].Function.Parameters.Required)
	}
}

func TestConvertProperty_CarriesEnumAndNestedItems(t *testing.T) {
	p := tools.Property{
		Type: "array",
		Items: &tools.Property{
			Type: "string",
			Enum: []string{"css", "xpath"},
		},
	}

	out := convertProperty(p)
	if out.Items == nil {
		t.Fatal("expected non-nil Items for an array property")
	}
}

func TestClassifyError_MapsKnownSubstringsToStatus(t *testing.T) {
	cases := []struct {
		errStr     string
		wantStatus int
	}{
		{"dial tcp: connection refused", 503},
		{`model "llama3.1" not found`, 404},
		{"context canceled", 499},
		{"request timeout exceeded", 504},
	}

	for _, tc := range cases {
		got := classifyError(errors.New(tc.errStr))
		var modelErr *llmtypes.ModelError
		if !errors.As(got, &modelErr) {
			t.Fatalf("classifyError(%q): expected *llmtypes.ModelError, got %T", tc.errStr, got)
		}
		if modelErr.StatusCode() != tc.wantStatus {
			t.Errorf("classifyError(%q): got status %d, want %d", tc.errStr, modelErr.StatusCode(), tc.wantStatus)
		}
	}
}

func TestStopReason_MapsDoneReasons(t *testing.T) {
	cases := []struct {
		resp *api.ChatResponse
		want string
	}{
		{&api.ChatResponse{Done: false}, "incomplete"},
		{&api.ChatResponse{Done: true, DoneReason: "stop"}, "end_turn"},
		{&api.ChatResponse{Done: true, DoneReason: "length"}, "max_tokens"},
		{&api.ChatResponse{Done: true, DoneReason: "unusual"}, "unusual"},
	}

	for _, tc := range cases {
		if got := stopReason(tc.resp); got != tc.want {
			t.Errorf("stopReason(%+v): got %q, want %q", tc.resp, got, tc.want)
		}
	}
}
