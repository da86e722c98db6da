// Package permission implements the gate between "the agent decided to call a
// tool" and "the tool actually runs". Every tool call passes through
// RequestPermission, which classifies the tool by its static risk level,
// consults the auto-confirm policy, prompts the user when required, and
// records an audit trail of every decision.
package permission

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/floyd-ai/floyd/internal/consts"
	"github.com/floyd-ai/floyd/internal/logger"
)

// PromptFunc asks the user to approve or reject a tool call. It receives the
// formatted prompt text and the tool's risk level, and returns the user's
// decision. It may block until the user responds; implementations should honor
// ctx cancellation.
type PromptFunc func(ctx context.Context, promptText string, level Level) (bool, error)

// NotInitializedError is returned when a prompt is required but no prompt
// callback has been registered. It is a distinct type so callers can tell a
// missing callback apart from a user's explicit denial.
type NotInitializedError struct {
	ToolName string
}

func (e *NotInitializedError) Error() string {
	return fmt.Sprintf(
		"permission system not initialized: tool %q requires confirmation but no prompt callback is registered; "+
			"call SetPromptCallback before executing tools, or enable auto-confirm for non-interactive use",
		e.ToolName)
}

// targetKeys is the ordered list of input fields checked when extracting an
// audit target. This is a UX heuristic for the audit log, not a type contract.
var targetKeys = []string{"file_path", "path", "filePath", "url", "command", "query", "pattern"}

// noTarget is recorded when no recognized field is present in the input.
const noTarget = "(no target)"

// Options configure gate policy.
type Options struct {
	// AutoConfirm approves moderate tools without prompting. Dangerous tools
	// still prompt.
	AutoConfirm bool
	// LegacyDenyUninitialized silently denies instead of returning
	// NotInitializedError when no callback is registered. Kept for backward
	// compatibility; silent denial is indistinguishable from a real rejection
	// downstream, so leave this off unless you know you need it.
	LegacyDenyUninitialized bool
}

// Gate decides, synchronously per call, whether a tool execution may proceed.
type Gate struct {
	mu       sync.Mutex
	registry *Registry
	prompt   PromptFunc
	opts     Options
	audit    []AuditEntry
}

// NewGate creates a gate over the given tool registry.
func NewGate(registry *Registry, opts Options) *Gate {
	return &Gate{
		registry: registry,
		opts:     opts,
	}
}

// SetPromptCallback registers the function used to ask the user for approval.
// The embedding CLI or UI registers this once at startup.
func (g *Gate) SetPromptCallback(fn PromptFunc) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.prompt = fn
}

// SetAutoConfirm toggles the auto-confirm policy at runtime.
func (g *Gate) SetAutoConfirm(enabled bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.opts.AutoConfirm = enabled
}

// RequestPermission decides whether toolName may execute with the given input.
// A false return with nil error is an ordinary denial (fail-closed unknown
// tool, auto-deny, or the user said no). A non-nil error is a configuration
// problem, never a user decision.
func (g *Gate) RequestPermission(ctx context.Context, toolName string, input map[string]interface{}) (bool, error) {
	g.mu.Lock()
	info, known := g.registry.Lookup(toolName)
	if !known {
		// Fail closed: an unknown tool is denied without consulting policy.
		logger.Warn("permission denied for unknown tool %q", toolName)
		g.audit = append(g.audit, newAuditEntry(toolName, levelUnknown, extractTarget(input), DecisionDenied))
		g.mu.Unlock()
		return false, nil
	}

	if info.Level == LevelNone {
		g.mu.Unlock()
		return true, nil
	}

	if g.opts.AutoConfirm && info.Level != LevelDangerous {
		g.audit = append(g.audit, newAuditEntry(toolName, info.Level, extractTarget(input), DecisionGranted))
		g.mu.Unlock()
		logger.Debug("auto-confirmed tool %q (level %s)", toolName, info.Level)
		return true, nil
	}

	prompt := g.prompt
	if prompt == nil {
		if g.opts.LegacyDenyUninitialized {
			logger.Warn("no prompt callback registered, denying tool %q (legacy mode)", toolName)
			g.audit = append(g.audit, newAuditEntry(toolName, info.Level, extractTarget(input), DecisionDenied))
			g.mu.Unlock()
			return false, nil
		}
		g.mu.Unlock()
		return false, &NotInitializedError{ToolName: toolName}
	}
	g.mu.Unlock()

	// Prompt outside the lock; the callback can block on user input.
	granted, err := prompt(ctx, formatPrompt(info, input), info.Level)
	if err != nil {
		return false, fmt.Errorf("permission prompt failed: %w", err)
	}

	decision := DecisionDenied
	if granted {
		decision = DecisionGranted
	}
	g.mu.Lock()
	g.audit = append(g.audit, newAuditEntry(toolName, info.Level, extractTarget(input), decision))
	g.mu.Unlock()

	logger.Info("permission %s for tool %q (level %s)", decision, toolName, info.Level)
	return granted, nil
}

// formatPrompt builds the human-readable confirmation text shown to the user.
func formatPrompt(info ToolInfo, input map[string]interface{}) string {
	serialized, err := json.MarshalIndent(input, "", "  ")
	if err != nil {
		serialized = []byte(fmt.Sprintf("%v", input))
	}

	text := fmt.Sprintf("Tool: %s\nDescription: %s\nRisk level: %s\nInput:\n%s\n",
		info.Name, info.Description, info.Level, serialized)
	if info.Level == LevelDangerous {
		text = "WARNING: this operation is classified as dangerous and may be irreversible.\n\n" + text
	}
	return text + "\nAllow this operation?"
}

// extractTarget pulls a short identifying string out of the tool input for the
// audit log. It checks a fixed, ordered list of common field names and
// truncates long values.
func extractTarget(input map[string]interface{}) string {
	for _, key := range targetKeys {
		value, ok := input[key]
		if !ok {
			continue
		}
		s, ok := value.(string)
		if !ok || s == "" {
			continue
		}
		if len(s) > consts.MaxAuditTargetLength {
			return s[:consts.MaxAuditTargetLength] + "..."
		}
		return s
	}
	return noTarget
}
