// Package permission implements the workstation core's tool-use
// permission decision: a total, side-effect-free function
// from (toolName, input, mode) to allow/deny/ask.
package permission

import (
	"regexp"

	"github.com/relaymesh/relaymesh/internal/wire"
)

// Decision is the three-valued outcome of a permission check.
type Decision string

const (
	Allow Decision = "allow"
	Deny  Decision = "deny"
	Ask   Decision = "ask"
)

// AutoAllowTools are always allowed regardless of permission mode:
// non-mutating tools that never need user confirmation.
var AutoAllowTools = map[string]bool{
	"Read":      true,
	"Glob":      true,
	"Grep":      true,
	"WebSearch": true,
	"WebFetch":  true,
	"TodoWrite": true,
}

// acceptEditsTools are auto-allowed once a conversation's permission
// mode is acceptEdits.
var acceptEditsTools = map[string]bool{
	"Edit":         true,
	"Write":        true,
	"Bash":         true,
	"NotebookEdit": true,
}

var (
	secretPathPattern      = regexp.MustCompile(`\.(env|secret|credentials|password)\b`)
	destructiveBashPattern = regexp.MustCompile(`rm -rf /|format|shutdown|reboot|mkfs`)
)

// Check evaluates the decision tables of the in order: auto-allow,
// then auto-deny (final — no mode can override it), then the
// mode-specific overrides, falling through to ask.
func Check(toolName string, input map[string]any, mode wire.PermissionMode) Decision {
	if AutoAllowTools[toolName] {
		return Allow
	}
	if autoDenied(toolName, input) {
		return Deny
	}

	switch mode {
	case wire.ModeAcceptEdits:
		if acceptEditsTools[toolName] {
			return Allow
		}
	case wire.ModeBypassPermissions:
		if toolName != "AskUserQuestion" {
			return Allow
		}
	}

	return Ask
}

func autoDenied(toolName string, input map[string]any) bool {
	switch toolName {
	case "Edit", "Write":
		return secretPathPattern.MatchString(pathFrom(input))
	case "Bash":
		return destructiveBashPattern.MatchString(commandFrom(input))
	default:
		return false
	}
}

func pathFrom(input map[string]any) string {
	for _, key := range []string{"file_path", "path", "filePath"} {
		if v, ok := input[key].(string); ok {
			return v
		}
	}
	return ""
}

func commandFrom(input map[string]any) string {
	if v, ok := input["command"].(string); ok {
		return v
	}
	return ""
}
