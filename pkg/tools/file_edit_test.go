package tools

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func parseResponse(t *testing.T, result *ExecResult) map[string]any {
	t.Helper()
	var resp map[string]any
	if err := json.Unmarshal([]byte(result.Content), &resp); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	return resp
}

func TestFileEditTool_BasicEdit(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "main.go")
	if err := os.WriteFile(path, []byte("package main\n\nfunc hello() string {\n\treturn \"hello\"\n}\n"), 0o644); err != nil {
		t.Fatalf("write test file: %v", err)
	}

	tool := NewFileEditTool(tmpDir)
	result, err := tool.Exec(context.Background(), map[string]any{
		"path":       "main.go",
		"old_string": `return "hello"`,
		"new_string": `return "world"`,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	resp := parseResponse(t, result)
	if resp["success"] != true {
		t.Fatalf("expected success=true, got %v", resp)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read modified file: %v", err)
	}
	if !strings.Contains(string(content), `return "world"`) {
		t.Errorf("expected file to contain replacement, got: %s", content)
	}
}

func TestFileEditTool_RejectsMultipleMatches(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "dup.txt")
	if err := os.WriteFile(path, []byte("foo\nfoo\n"), 0o644); err != nil {
		t.Fatalf("write test file: %v", err)
	}

	tool := NewFileEditTool(tmpDir)
	result, err := tool.Exec(context.Background(), map[string]any{
		"path":       "dup.txt",
		"old_string": "foo",
		"new_string": "bar",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	resp := parseResponse(t, result)
	if resp["success"] != false {
		t.Fatalf("expected success=false for ambiguous match, got %v", resp)
	}
}

func TestFileEditTool_RejectsPathEscape(t *testing.T) {
	tmpDir := t.TempDir()
	tool := NewFileEditTool(tmpDir)
	result, err := tool.Exec(context.Background(), map[string]any{
		"path":       "../outside.txt",
		"old_string": "a",
		"new_string": "b",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	resp := parseResponse(t, result)
	if resp["success"] != false {
		t.Fatalf("expected success=false for path escape, got %v", resp)
	}
}
