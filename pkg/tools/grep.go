package tools

import (
	"bufio"
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
)

const (
	toolGrep         = "grep"
	maxGrepMatches   = 200
	maxGrepFileBytes = 5 * 1024 * 1024
)

// GrepTool searches file contents under workDir for a regular expression.
// Plain regexp + bufio.Scanner, same reasoning as glob.go: nothing in the
// corpus wraps line search in a third-party library, and RE2 via regexp is
// the idiomatic choice any of the example repos would reach for.
type GrepTool struct {
	workDir string
}

func NewGrepTool(workDir string) *GrepTool { return &GrepTool{workDir: workDir} }

func (t *GrepTool) Name() string { return toolGrep }

func (t *GrepTool) PromptDocumentation() string {
	return `- **grep** - Search file contents under the working directory for a regular expression
  - Parameters: pattern (string, REQUIRED), path (string, optional — restrict to one file or subdirectory)
  - Returns up to 200 matches as {path, line, text}`
}

func (t *GrepTool) Definition() ToolDefinition {
	return ToolDefinition{
		Name:        toolGrep,
		Description: "Search file contents under the working directory for a regular expression (RE2 syntax).",
		InputSchema: InputSchema{
			Type: "object",
			Properties: map[string]Property{
				"pattern": {Type: "string", Description: "RE2 regular expression"},
				"path":    {Type: "string", Description: "Restrict the search to this file or subdirectory, relative to the working directory"},
			},
			Required: []string{"pattern"},
		},
	}
}

type grepMatch struct {
	Path string `json:"path"`
	Line int    `json:"line"`
	Text string `json:"text"`
}

func (t *GrepTool) Exec(_ context.Context, args map[string]any) (*ExecResult, error) {
	pattern, ok := args["pattern"].(string)
	if !ok || pattern == "" {
		return errorResult("pattern is required and must be a string")
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return errorResult("invalid regular expression: " + err.Error())
	}

	root := t.workDir
	if sub, ok := args["path"].(string); ok && sub != "" {
		full, resolveErr := resolveWithin(t.workDir, sub)
		if resolveErr != nil {
			return errorResult(resolveErr.Error())
		}
		root = full
	}

	var matches []grepMatch
	truncated := false
	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if len(matches) >= maxGrepMatches {
			truncated = true
			return filepath.SkipAll
		}
		info, statErr := d.Info()
		if statErr != nil || info.Size() > maxGrepFileBytes {
			return nil
		}
		f, openErr := os.Open(path)
		if openErr != nil {
			return nil
		}
		defer f.Close()

		rel, relErr := filepath.Rel(t.workDir, path)
		if relErr != nil {
			rel = path
		}

		scanner := bufio.NewScanner(f)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		lineNum := 0
		for scanner.Scan() {
			lineNum++
			if re.MatchString(scanner.Text()) {
				matches = append(matches, grepMatch{Path: rel, Line: lineNum, Text: scanner.Text()})
				if len(matches) >= maxGrepMatches {
					truncated = true
					break
				}
			}
		}
		return nil
	})
	if walkErr != nil {
		return errorResult("search failed: " + walkErr.Error())
	}

	return okResult(map[string]any{"matches": matches, "count": len(matches), "truncated": truncated})
}
