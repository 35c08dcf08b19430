// Package guardrail implements the tool-input veto policy (component C5):
// a check over (toolName, toolArgs) active only for the "shell" tool, which
// trips on dangerous command patterns or paths outside the workspace.
// Grounded on the teacher's tool-argument extraction idiom (map[string]any
// args, type-asserted fields) used throughout pkg/tools.
package guardrail

import (
	"fmt"
	"regexp"
	"strings"
)

// blockedPatterns are case-sensitive, word-boundary matches per spec.md §4.4.
var blockedPatterns = []*regexp.Regexp{ //nolint:gochecknoglobals
	// The path must terminate at "/", "~", or "$HOME" — "rm -rf /tmp/foo" is
	// a different, narrower deletion and must not trip this.
	regexp.MustCompile(`\brm\s+-rf\s+/(?:\s|$)`),
	regexp.MustCompile(`\brm\s+-rf\s+~(?:\s|$)`),
	regexp.MustCompile(`\brm\s+-rf\s+\$HOME(?:\s|$)`),
	regexp.MustCompile(`\bgit\s+push\s+--force\b`),
	regexp.MustCompile(`\bgit\s+push\s+-f\b`),
}

// absolutePathPattern matches any token that looks like an absolute path.
// Deliberately coarse — per spec.md §9, a token inside a quoted argument can
// trip this. That over-rejection is a known, accepted tradeoff, not a bug.
var absolutePathPattern = regexp.MustCompile(`(^|\s)(/[^\s]+)`)

// Result is the guardrail's verdict for one tool call.
type Result struct {
	TripwireTriggered bool
	OutputInfo        string
}

const maxOutputInfoLen = 80

// Check evaluates one tool invocation. Only toolName == "shell" is policed;
// every other tool name returns a non-tripped Result immediately.
func Check(toolName string, toolArgs map[string]any, workspaceDir string) Result {
	if toolName != "shell" {
		return Result{TripwireTriggered: false}
	}

	command, _ := toolArgs["command"].(string)
	if command == "" {
		return Result{TripwireTriggered: false}
	}

	if reason := blockedCommandReason(command); reason != "" {
		return trip(reason)
	}

	if reason := disallowedPathReason(command, workspaceDir); reason != "" {
		return trip(reason)
	}

	return Result{TripwireTriggered: false}
}

func blockedCommandReason(command string) string {
	for _, p := range blockedPatterns {
		if p.MatchString(command) {
			return fmt.Sprintf("command matches blocked pattern: %s", p.String())
		}
	}
	return ""
}

func disallowedPathReason(command, workspaceDir string) string {
	for _, m := range absolutePathPattern.FindAllStringSubmatch(command, -1) {
		path := m[2]
		if isAllowedAbsolutePath(path, workspaceDir) {
			continue
		}
		return fmt.Sprintf("command references disallowed absolute path: %s", path)
	}
	return ""
}

func isAllowedAbsolutePath(path, workspaceDir string) bool {
	if path == "/" || path == "/dev/null" {
		return true
	}
	if strings.HasPrefix(path, "/tmp") {
		return true
	}
	if workspaceDir != "" && strings.HasPrefix(path, workspaceDir) {
		return true
	}
	return false
}

func trip(reason string) Result {
	info := reason
	if len(info) > maxOutputInfoLen {
		info = info[:maxOutputInfoLen]
	}
	return Result{TripwireTriggered: true, OutputInfo: info}
}
