package tools

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	toolFileRead = "file_read"

	defaultReadLines = 2000
	maxLineLength    = 2000
	defaultOffset    = 1
)

// FileReadTool reads numbered-line slices of a file under workDir. Grounded
// on the teacher's ReadFileTool, adapted to call os directly instead of
// shelling out through an Executor — this domain has no container layer to
// route through.
type FileReadTool struct {
	workDir string
}

// NewFileReadTool scopes reads to workDir.
func NewFileReadTool(workDir string) *FileReadTool {
	return &FileReadTool{workDir: workDir}
}

func (t *FileReadTool) Name() string { return toolFileRead }

func (t *FileReadTool) PromptDocumentation() string {
	return `- **file_read** - Read a file from the working directory
  - Parameters: path (string, REQUIRED), offset (integer, optional, default 1), limit (integer, optional, default 2000)
  - Output uses numbered lines. Lines longer than 2000 characters are truncated.`
}

func (t *FileReadTool) Definition() ToolDefinition {
	return ToolDefinition{
		Name:        toolFileRead,
		Description: "Read a file from the working directory. Output uses numbered lines (cat -n style).",
		InputSchema: InputSchema{
			Type: "object",
			Properties: map[string]Property{
				"path":   {Type: "string", Description: "Path relative to the working directory"},
				"offset": {Type: "integer", Description: "1-based line number to start from. Defaults to 1."},
				"limit":  {Type: "integer", Description: "Number of lines to read. Defaults to 2000."},
			},
			Required: []string{"path"},
		},
	}
}

func (t *FileReadTool) Exec(_ context.Context, args map[string]any) (*ExecResult, error) {
	path, ok := args["path"].(string)
	if !ok || path == "" {
		return errorResult("path is required and must be a string")
	}

	offset := intArgOrDefault(args, "offset", defaultOffset)
	limit := intArgOrDefault(args, "limit", defaultReadLines)

	fullPath, err := resolveWithin(t.workDir, path)
	if err != nil {
		return errorResult(err.Error())
	}

	f, err := os.Open(fullPath)
	if err != nil {
		return errorResult(fmt.Sprintf("file not found or not readable: %s (%v)", path, err))
	}
	defer f.Close()

	var b strings.Builder
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNum := 0
	endLine := offset + limit - 1
	totalLines := 0
	truncated := false
	for scanner.Scan() {
		lineNum++
		totalLines = lineNum
		if lineNum < offset || lineNum > endLine {
			continue
		}
		line := scanner.Text()
		if len(line) > maxLineLength {
			line = line[:maxLineLength]
		}
		fmt.Fprintf(&b, "%6d\t%s\n", lineNum, line)
	}
	if err := scanner.Err(); err != nil {
		return errorResult(fmt.Sprintf("error reading %s: %v", path, err))
	}
	truncated = totalLines > endLine

	return okResult(map[string]any{
		"content":     b.String(),
		"path":        path,
		"truncated":   truncated,
		"offset":      offset,
		"limit":       limit,
		"total_lines": totalLines,
	})
}

func intArgOrDefault(args map[string]any, key string, defaultVal int) int {
	v, exists := args[key]
	if !exists {
		return defaultVal
	}
	var n int
	switch val := v.(type) {
	case float64:
		n = int(val)
	case int:
		n = val
	case int64:
		n = int(val)
	default:
		return defaultVal
	}
	if n < 1 {
		return defaultVal
	}
	return n
}

// resolveWithin joins rel onto root and rejects any path that escapes root,
// including via absolute paths or ".." traversal.
func resolveWithin(root, rel string) (string, error) {
	clean := filepath.Clean(rel)
	if filepath.IsAbs(clean) {
		return "", fmt.Errorf("path must be relative to the working directory, got %q", rel)
	}
	full := filepath.Join(root, clean)
	relToRoot, err := filepath.Rel(root, full)
	if err != nil || strings.HasPrefix(relToRoot, "..") {
		return "", fmt.Errorf("path escapes the working directory: %q", rel)
	}
	return full, nil
}

func okResult(fields map[string]any) (*ExecResult, error) {
	if _, ok := fields["success"]; !ok {
		fields["success"] = true
	}
	content, err := json.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("marshal tool result: %w", err)
	}
	return &ExecResult{Content: string(content)}, nil
}

func errorResult(msg string) (*ExecResult, error) {
	content, err := json.Marshal(map[string]any{"success": false, "error": msg})
	if err != nil {
		return nil, fmt.Errorf("marshal tool error: %w", err)
	}
	return &ExecResult{Content: string(content), IsError: true}, nil
}
