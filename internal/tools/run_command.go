package tools

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"time"

	"github.com/floyd-ai/floyd/internal/permission"
)

// RunCommandTool executes a shell command. Shell access can do anything, so
// the tool is classified dangerous. Cancellation is cooperative: the context
// kills the process via exec.CommandContext, and callers should pass the
// operation context issued by the interrupt controller.
type RunCommandTool struct {
	workingDir string
	timeout    time.Duration
}

// NewRunCommandTool creates the shell tool. A zero timeout means no
// tool-level limit beyond the operation context.
func NewRunCommandTool(workingDir string, timeout time.Duration) *RunCommandTool {
	return &RunCommandTool{
		workingDir: workingDir,
		timeout:    timeout,
	}
}

func (t *RunCommandTool) Name() string        { return "run_command" }
func (t *RunCommandTool) Description() string { return "Run a shell command and capture its output" }

func (t *RunCommandTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"command": map[string]interface{}{
				"type":        "string",
				"description": "The shell command to execute",
			},
		},
		"required": []string{"command"},
	}
}

func (t *RunCommandTool) PermissionLevel() permission.Level { return permission.LevelDangerous }

func (t *RunCommandTool) Execute(ctx context.Context, params map[string]interface{}) *Result {
	command, err := stringParam(params, "command")
	if err != nil {
		return Errorf("%v", err)
	}

	if t.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, "sh", "-c", command)
	cmd.Dir = t.workingDir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	runErr := cmd.Run()
	duration := time.Since(start)

	result := map[string]interface{}{
		"stdout":      stdout.String(),
		"stderr":      stderr.String(),
		"duration_ms": duration.Milliseconds(),
	}

	if runErr != nil {
		if cause := context.Cause(ctx); cause != nil && ctx.Err() != nil {
			return &Result{Result: result, Error: "command cancelled: " + cause.Error()}
		}
		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) {
			result["exit_code"] = exitErr.ExitCode()
			return &Result{Result: result, Error: runErr.Error()}
		}
		return Errorf("failed to run command: %v", runErr)
	}

	result["exit_code"] = 0
	return &Result{Result: result}
}
