//go:build integration

package tools

import (
	"context"
	"testing"
)

// TestWebProbeIntegration_LoadsRealPage requires a real Chrome/Chromium
// binary on PATH and network egress. Run with `go test -tags integration`.
func TestWebProbeIntegration_LoadsRealPage(t *testing.T) {
	tool := NewWebProbeTool(true)
	result, err := tool.Exec(context.Background(), map[string]any{"url": "https://example.com"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	resp := parseResponse(t, result)
	if resp["success"] != true {
		t.Fatalf("expected success=true, got %v", resp)
	}
	if title, _ := resp["title"].(string); title == "" {
		t.Error("expected a non-empty page title")
	}
}

func TestWebInterceptAPIIntegration_RecordsJSONResponses(t *testing.T) {
	tool := NewWebInterceptAPITool(true)
	result, err := tool.Exec(context.Background(), map[string]any{"url": "https://example.com", "wait_ms": float64(500)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	resp := parseResponse(t, result)
	if resp["success"] != true {
		t.Fatalf("expected success=true, got %v", resp)
	}
}
