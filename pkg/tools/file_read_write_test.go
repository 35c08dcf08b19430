package tools

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
)

func TestFileWriteTool_CreatesParentDirs(t *testing.T) {
	tmpDir := t.TempDir()
	tool := NewFileWriteTool(tmpDir)

	result, err := tool.Exec(context.Background(), map[string]any{
		"path":    "nested/dir/out.txt",
		"content": "hello\n",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	resp := parseResponse(t, result)
	if resp["success"] != true {
		t.Fatalf("expected success=true, got %v", resp)
	}

	content, err := os.ReadFile(filepath.Join(tmpDir, "nested", "dir", "out.txt"))
	if err != nil {
		t.Fatalf("read written file: %v", err)
	}
	if string(content) != "hello\n" {
		t.Errorf("unexpected content: %q", content)
	}
}

func TestFileReadTool_NumberedLinesAndTruncation(t *testing.T) {
	tmpDir := t.TempDir()
	var lines []string
	for i := 1; i <= 5; i++ {
		lines = append(lines, "line"+strconv.Itoa(i))
	}
	path := filepath.Join(tmpDir, "f.txt")
	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o644); err != nil {
		t.Fatalf("write test file: %v", err)
	}

	tool := NewFileReadTool(tmpDir)
	result, err := tool.Exec(context.Background(), map[string]any{
		"path":   "f.txt",
		"offset": float64(2),
		"limit":  float64(2),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	resp := parseResponse(t, result)
	content, _ := resp["content"].(string)
	if !strings.Contains(content, "line2") || !strings.Contains(content, "line3") {
		t.Errorf("expected lines 2-3 in output, got: %q", content)
	}
	if strings.Contains(content, "line1") || strings.Contains(content, "line4") {
		t.Errorf("expected only lines 2-3, got: %q", content)
	}
	if resp["truncated"] != true {
		t.Errorf("expected truncated=true when more lines remain, got %v", resp["truncated"])
	}
}

func TestFileReadTool_MissingFile(t *testing.T) {
	tmpDir := t.TempDir()
	tool := NewFileReadTool(tmpDir)
	result, err := tool.Exec(context.Background(), map[string]any{"path": "nope.txt"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	resp := parseResponse(t, result)
	if resp["success"] != false {
		t.Fatalf("expected success=false for missing file, got %v", resp)
	}
}

func TestResolveWithin_RejectsAbsoluteAndTraversal(t *testing.T) {
	root := t.TempDir()
	if _, err := resolveWithin(root, "/etc/passwd"); err == nil {
		t.Error("expected error for absolute path")
	}
	if _, err := resolveWithin(root, "../../etc/passwd"); err == nil {
		t.Error("expected error for traversal")
	}
	if _, err := resolveWithin(root, "sub/file.txt"); err != nil {
		t.Errorf("expected relative path to be allowed, got %v", err)
	}
}
