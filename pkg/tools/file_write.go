package tools

import (
	"context"
	"os"
	"path/filepath"
)

const toolFileWrite = "file_write"

// FileWriteTool writes a file's full contents under workDir, creating parent
// directories as needed. Grounded on the teacher's file_edit.go companion
// write path, split into its own tool since the pipeline's CODEGEN/SCHEMA
// stages write whole files rather than patch them.
type FileWriteTool struct {
	workDir string
}

func NewFileWriteTool(workDir string) *FileWriteTool { return &FileWriteTool{workDir: workDir} }

func (t *FileWriteTool) Name() string { return toolFileWrite }

func (t *FileWriteTool) PromptDocumentation() string {
	return `- **file_write** - Write the full contents of a file, creating it or overwriting it
  - Parameters: path (string, REQUIRED), content (string, REQUIRED)`
}

func (t *FileWriteTool) Definition() ToolDefinition {
	return ToolDefinition{
		Name:        toolFileWrite,
		Description: "Write the full contents of a file under the working directory, creating parent directories as needed.",
		InputSchema: InputSchema{
			Type: "object",
			Properties: map[string]Property{
				"path":    {Type: "string", Description: "Path relative to the working directory"},
				"content": {Type: "string", Description: "Full file contents"},
			},
			Required: []string{"path", "content"},
		},
	}
}

func (t *FileWriteTool) Exec(_ context.Context, args map[string]any) (*ExecResult, error) {
	path, ok := args["path"].(string)
	if !ok || path == "" {
		return errorResult("path is required and must be a string")
	}
	content, ok := args["content"].(string)
	if !ok {
		return errorResult("content is required and must be a string")
	}

	fullPath, err := resolveWithin(t.workDir, path)
	if err != nil {
		return errorResult(err.Error())
	}

	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		return errorResult("failed to create parent directories: " + err.Error())
	}
	if err := os.WriteFile(fullPath, []byte(content), 0o644); err != nil {
		return errorResult("failed to write file: " + err.Error())
	}

	return okResult(map[string]any{"path": path, "bytes_written": len(content)})
}
