package tools

import (
	"context"
	"os"
	"strings"
)

const toolFileEdit = "file_edit"

// FileEditTool replaces one exact string match in a file. Grounded directly
// on the teacher's FileEditTool — same contract, same "must match exactly
// once" invariant — with the executor indirection dropped in favor of a
// direct os.ReadFile/os.WriteFile round trip.
type FileEditTool struct {
	workDir string
}

func NewFileEditTool(workDir string) *FileEditTool { return &FileEditTool{workDir: workDir} }

func (t *FileEditTool) Name() string { return toolFileEdit }

func (t *FileEditTool) PromptDocumentation() string {
	return `- **file_edit** - Replace a specific string in a file with new content
  - Parameters: path (string, REQUIRED), old_string (string, REQUIRED), new_string (string, REQUIRED)
  - old_string must match exactly one location in the file
  - Use to make targeted edits without rewriting the entire file`
}

func (t *FileEditTool) Definition() ToolDefinition {
	return ToolDefinition{
		Name:        toolFileEdit,
		Description: "Replace an exact string match in a file with new content. old_string must appear exactly once in the file.",
		InputSchema: InputSchema{
			Type: "object",
			Properties: map[string]Property{
				"path":       {Type: "string", Description: "Path relative to the working directory"},
				"old_string": {Type: "string", Description: "Exact string to find; must match exactly once"},
				"new_string": {Type: "string", Description: "Replacement string; empty string deletes the match"},
			},
			Required: []string{"path", "old_string", "new_string"},
		},
	}
}

func (t *FileEditTool) Exec(_ context.Context, args map[string]any) (*ExecResult, error) {
	path, ok := args["path"].(string)
	if !ok || path == "" {
		return errorResult("path is required and must be a string")
	}
	oldString, ok := args["old_string"].(string)
	if !ok || oldString == "" {
		return errorResult("old_string is required and must be a non-empty string")
	}
	newString, ok := args["new_string"].(string)
	if !ok {
		return errorResult("new_string is required and must be a string")
	}

	fullPath, err := resolveWithin(t.workDir, path)
	if err != nil {
		return errorResult(err.Error())
	}

	raw, err := os.ReadFile(fullPath)
	if err != nil {
		return errorResult("failed to read file: " + err.Error())
	}
	content := string(raw)

	count := strings.Count(content, oldString)
	switch count {
	case 0:
		return errorResult("old_string not found in file")
	case 1:
		// exactly one match, proceed
	default:
		return errorResult("old_string matches multiple locations; provide more context to disambiguate")
	}

	updated := strings.Replace(content, oldString, newString, 1)
	if err := os.WriteFile(fullPath, []byte(updated), 0o644); err != nil {
		return errorResult("failed to write file: " + err.Error())
	}

	return okResult(map[string]any{"path": path})
}
