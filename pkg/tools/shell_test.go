package tools

import (
	"context"
	"testing"
)

func TestShellTool_RunsSimpleCommand(t *testing.T) {
	tmpDir := t.TempDir()
	tool := NewShellTool(tmpDir)

	result, err := tool.Exec(context.Background(), map[string]any{"command": "echo hi"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	resp := parseResponse(t, result)
	if resp["success"] != true {
		t.Fatalf("expected success=true, got %v", resp)
	}
	if stdout, _ := resp["stdout"].(string); stdout != "hi\n" {
		t.Errorf("unexpected stdout: %q", stdout)
	}
}

func TestShellTool_NonZeroExit(t *testing.T) {
	tmpDir := t.TempDir()
	tool := NewShellTool(tmpDir)

	result, err := tool.Exec(context.Background(), map[string]any{"command": "exit 3"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	resp := parseResponse(t, result)
	if resp["success"] != false {
		t.Fatalf("expected success=false for nonzero exit, got %v", resp)
	}
	if code, _ := resp["exitCode"].(float64); int(code) != 3 {
		t.Errorf("expected exitCode=3, got %v", resp["exitCode"])
	}
}

func TestShellTool_GuardrailBlocksDangerousCommand(t *testing.T) {
	tmpDir := t.TempDir()
	tool := NewShellTool(tmpDir)

	result, err := tool.Exec(context.Background(), map[string]any{"command": "rm -rf /"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	resp := parseResponse(t, result)
	if resp["success"] != false || resp["blocked"] != true {
		t.Fatalf("expected a blocked, unsuccessful result, got %v", resp)
	}
}

func TestShellTool_Timeout(t *testing.T) {
	tmpDir := t.TempDir()
	tool := NewShellTool(tmpDir)

	result, err := tool.Exec(context.Background(), map[string]any{
		"command":         "sleep 2",
		"timeout_seconds": float64(1),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	resp := parseResponse(t, result)
	if resp["timedOut"] != true {
		t.Fatalf("expected timedOut=true, got %v", resp)
	}
	if code, _ := resp["exitCode"].(float64); int(code) != 124 {
		t.Errorf("expected exitCode=124 on timeout, got %v", resp["exitCode"])
	}
}
