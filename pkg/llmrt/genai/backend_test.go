package genai

import (
	"testing"

	genaisdk "google.golang.org/genai"

	"noctua/pkg/llmrt/llmtypes"
	"noctua/pkg/tools"
)

func TestConvertMessages_FoldsToolResultsIntoFunctionResponse(t *testing.T) {
	contents, err := convertMessages([]llmtypes.Message{
		{Role: llmtypes.RoleUser, Content: "go to page"},
		{Role: llmtypes.RoleAssistant, Content: "ok"},
		{Role: llmtypes.RoleTool, Content: `{"success":true}`},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(contents) != 3 {
		t.Fatalf("got %d contents, want 3", len(contents))
	}
	if contents[1].Role != "model" {
		t.Errorf("got assistant role %q, want %q", contents[1].Role, "model")
	}
	if contents[2].Parts[0].FunctionResponse == nil {
		t.Fatal("expected the tool message to become a FunctionResponse part")
	}
}

func TestConvertMessages_RejectsEmptyTranscript(t *testing.T) {
	if _, err := convertMessages(nil); err == nil {
		t.Error("expected an error for an empty message list")
	}
}

func TestPropertyToGeminiSchema_MapsPrimitiveTypesAndEnum(t *testing.T) {
	p := tools.Property{Type: "string", Enum: []string{"css", "xpath"}, Description: "selector kind"}
	schema := propertyToGeminiSchema(p)
	if schema.Type != genaisdk.TypeString {
		t.Errorf("got type %v, want TypeString", schema.Type)
	}
	if len(schema.Enum) != 2 {
		t.Errorf("got %d enum values, want 2", len(schema.Enum))
	}
}

func TestPropertyToGeminiSchema_RecursesIntoArrayItems(t *testing.T) {
	p := tools.Property{Type: "array", Items: &tools.Property{Type: "integer"}}
	schema := propertyToGeminiSchema(p)
	if schema.Type != genaisdk.TypeArray {
		t.Fatalf("got type %v, want TypeArray", schema.Type)
	}
	if schema.Items == nil || schema.Items.Type != genaisdk.TypeInteger {
		t.Errorf("expected items.type=TypeInteger, got %v", schema.Items)
	}
}

func TestSchemaToGeminiSchema_CarriesRequired(t *testing.T) {
	schema := schemaToGeminiSchema(tools.InputSchema{
		Type:       "object",
		Properties: map[string]tools.Property{"summary": {Type: "string"}},
		Required:   []string{"summary"},
	})
	if len(schema.Required) != 1 || schema.Required[0] != "summary" {
		t.Errorf("got required %v, want [summary]", schema.Required)
	}
}
