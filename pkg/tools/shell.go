package tools

import (
	"bytes"
	"context"
	"os/exec"
	"time"

	"noctua/pkg/guardrail"
)

const (
	toolShell          = "shell"
	defaultShellTimeout = 60 * time.Second
)

// ShellTool runs a command via os/exec, scoped to workDir and vetted by the
// guardrail (C5) before every invocation. Grounded on the teacher's mcp.go
// ShellTool, generalized from its fixed "cmd"/"cwd" argument pair to also
// carry an optional timeout and to route every call through guardrail.Check
// first, which the teacher's shell tool never needed (its coder containers
// are themselves the sandbox).
type ShellTool struct {
	workDir string
}

func NewShellTool(workDir string) *ShellTool { return &ShellTool{workDir: workDir} }

func (t *ShellTool) Name() string { return toolShell }

func (t *ShellTool) PromptDocumentation() string {
	return `- **shell** - Run a shell command in the working directory
  - Parameters: command (string, REQUIRED), timeout_seconds (integer, optional, default 60)
  - Commands are checked against a guardrail policy before execution; disallowed commands return success=false`
}

func (t *ShellTool) Definition() ToolDefinition {
	return ToolDefinition{
		Name:        toolShell,
		Description: "Run a shell command in the working directory. Dangerous commands and paths outside the workspace are rejected by a guardrail.",
		InputSchema: InputSchema{
			Type: "object",
			Properties: map[string]Property{
				"command":         {Type: "string", Description: "Shell command to run via sh -c"},
				"timeout_seconds": {Type: "integer", Description: "Timeout in seconds. Defaults to 60."},
			},
			Required: []string{"command"},
		},
	}
}

func (t *ShellTool) Exec(ctx context.Context, args map[string]any) (*ExecResult, error) {
	command, ok := args["command"].(string)
	if !ok || command == "" {
		return errorResult("command is required and must be a string")
	}

	if verdict := guardrail.Check(toolShell, args, t.workDir); verdict.TripwireTriggered {
		return okResult(map[string]any{
			"success":  false,
			"blocked":  true,
			"reason":   verdict.OutputInfo,
			"exitCode": -1,
		})
	}

	timeout := defaultShellTimeout
	if secs := intArgOrDefault(args, "timeout_seconds", 0); secs > 0 {
		timeout = time.Duration(secs) * time.Second
	}

	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, "sh", "-c", command)
	cmd.Dir = t.workDir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()
	exitCode := 0
	timedOut := false
	if runCtx.Err() == context.DeadlineExceeded {
		exitCode = 124
		timedOut = true
	} else if runErr != nil {
		if exitErr, ok := runErr.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		} else {
			return errorResult("command execution failed: " + runErr.Error())
		}
	}

	return okResult(map[string]any{
		"success":  exitCode == 0 && !timedOut,
		"exitCode": exitCode,
		"timedOut": timedOut,
		"stdout":   stdout.String(),
		"stderr":   stderr.String(),
	})
}
