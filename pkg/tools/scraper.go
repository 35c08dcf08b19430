package tools

import (
	"bytes"
	"context"
	"os/exec"
	"time"
)

// defaultScraperTimeout is the 120s default for scraper_test/scraper_lint,
// distinct from the shell tool's 60s default — generated scraper runs
// legitimately take longer than a one-off shell command.
const defaultScraperTimeout = 120 * time.Second

// runScraperCommand executes command in workDir with a bounded timeout,
// reporting exitCode = 124 and timedOut = true on expiry. Shared by
// ScraperTestTool and ScraperLintTool, grounded on the teacher's
// executeBuildOperation helper (build_tools.go), collapsed to the one
// backend this domain has: whatever command the generated scraper itself
// exposes for running or linting, rather than the teacher's multi-backend
// auto-detection.
func runScraperCommand(ctx context.Context, workDir, command string, timeout time.Duration) (*ExecResult, error) {
	if timeout <= 0 {
		timeout = defaultScraperTimeout
	}
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	cmd := exec.CommandContext(runCtx, "sh", "-c", command)
	cmd.Dir = workDir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()
	duration := time.Since(start)

	if runCtx.Err() == context.DeadlineExceeded {
		return okResult(map[string]any{
			"success":    false,
			"exitCode":   124,
			"timedOut":   true,
			"durationMs": duration.Milliseconds(),
			"stdout":     stdout.String(),
			"stderr":     stderr.String(),
		})
	}

	exitCode := 0
	if runErr != nil {
		if exitErr, ok := runErr.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		} else {
			return errorResult("command execution failed: " + runErr.Error())
		}
	}

	return okResult(map[string]any{
		"success":    exitCode == 0,
		"exitCode":   exitCode,
		"timedOut":   false,
		"durationMs": duration.Milliseconds(),
		"stdout":     stdout.String(),
		"stderr":     stderr.String(),
	})
}

const toolScraperTest = "scraper_test"

// ScraperTestTool runs the generated scraper's own test/run command.
type ScraperTestTool struct {
	workDir string
}

func NewScraperTestTool(workDir string) *ScraperTestTool { return &ScraperTestTool{workDir: workDir} }

func (t *ScraperTestTool) Name() string { return toolScraperTest }

func (t *ScraperTestTool) PromptDocumentation() string {
	return `- **scraper_test** - Run the generated scraper's own run command
  - Parameters: command (string, REQUIRED), timeout_seconds (integer, optional, default 120)
  - On timeout, returns exitCode 124 and timedOut=true`
}

func (t *ScraperTestTool) Definition() ToolDefinition {
	return ToolDefinition{
		Name:        toolScraperTest,
		Description: "Run the generated scraper with the given command (e.g. its own CLI invocation with --limit 5) and report exit code, stdout, and stderr.",
		InputSchema: InputSchema{
			Type: "object",
			Properties: map[string]Property{
				"command":         {Type: "string", Description: "Command to run the scraper, e.g. 'npm run start -- --limit 5'"},
				"timeout_seconds": {Type: "integer", Description: "Timeout in seconds. Defaults to 120."},
			},
			Required: []string{"command"},
		},
	}
}

func (t *ScraperTestTool) Exec(ctx context.Context, args map[string]any) (*ExecResult, error) {
	command, ok := args["command"].(string)
	if !ok || command == "" {
		return errorResult("command is required and must be a string")
	}
	timeout := time.Duration(intArgOrDefault(args, "timeout_seconds", 0)) * time.Second
	return runScraperCommand(ctx, t.workDir, command, timeout)
}

const toolScraperLint = "scraper_lint"

// ScraperLintTool runs the generated scraper's own lint/typecheck command.
type ScraperLintTool struct {
	workDir string
}

func NewScraperLintTool(workDir string) *ScraperLintTool { return &ScraperLintTool{workDir: workDir} }

func (t *ScraperLintTool) Name() string { return toolScraperLint }

func (t *ScraperLintTool) PromptDocumentation() string {
	return `- **scraper_lint** - Run the generated scraper's own lint or typecheck command
  - Parameters: command (string, REQUIRED), timeout_seconds (integer, optional, default 120)
  - On timeout, returns exitCode 124 and timedOut=true`
}

func (t *ScraperLintTool) Definition() ToolDefinition {
	return ToolDefinition{
		Name:        toolScraperLint,
		Description: "Run the generated scraper's lint or typecheck command and report exit code, stdout, and stderr.",
		InputSchema: InputSchema{
			Type: "object",
			Properties: map[string]Property{
				"command":         {Type: "string", Description: "Command to lint or typecheck the scraper, e.g. 'npx tsc --noEmit'"},
				"timeout_seconds": {Type: "integer", Description: "Timeout in seconds. Defaults to 120."},
			},
			Required: []string{"command"},
		},
	}
}

func (t *ScraperLintTool) Exec(ctx context.Context, args map[string]any) (*ExecResult, error) {
	command, ok := args["command"].(string)
	if !ok || command == "" {
		return errorResult("command is required and must be a string")
	}
	timeout := time.Duration(intArgOrDefault(args, "timeout_seconds", 0)) * time.Second
	return runScraperCommand(ctx, t.workDir, command, timeout)
}
