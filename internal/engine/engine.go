// Package engine drives individual tool calls through the safety core: ask
// the permission gate, publish the execution phase and obtain a fresh
// operation context, resolve paths through the sandbox when one is active,
// execute, and account for the mutation afterwards. The surrounding
// turn-taking loop is a consumer of this package, not part of it.
package engine

import (
	"context"
	"errors"
	"os"

	"github.com/floyd-ai/floyd/internal/checkpoint"
	"github.com/floyd-ai/floyd/internal/interrupt"
	"github.com/floyd-ai/floyd/internal/logger"
	"github.com/floyd-ai/floyd/internal/permission"
	"github.com/floyd-ai/floyd/internal/sandbox"
	"github.com/floyd-ai/floyd/internal/tools"
)

// ErrPermissionDenied is returned when the gate (or the user) refused the
// call. It is an ordinary outcome, distinct from configuration errors, which
// are returned as-is from the gate.
var ErrPermissionDenied = errors.New("permission denied")

// ErrUnknownTool is returned when the requested tool is not registered.
var ErrUnknownTool = errors.New("unknown tool")

// pathParamKeys are the tool parameters treated as file paths for sandbox
// translation and checkpointing.
var pathParamKeys = []string{"file_path", "path", "filePath"}

// Runner executes tool calls while honoring the safety-core contracts.
type Runner struct {
	gate        *permission.Gate
	interrupts  *interrupt.Controller
	sandbox     *sandbox.Manager
	tools       *tools.Registry
	checkpoints checkpoint.Store
	yolo        bool
}

// Options wire the runner's collaborators. Sandbox and Checkpoints may be nil
// when those subsystems are disabled.
type Options struct {
	Gate        *permission.Gate
	Interrupts  *interrupt.Controller
	Sandbox     *sandbox.Manager
	Tools       *tools.Registry
	Checkpoints checkpoint.Store
	// Yolo skips per-call prompts while a sandbox session is active, relying
	// on the sandbox and checkpoint system for safety instead. With no active
	// sandbox the gate is always consulted.
	Yolo bool
}

// NewRunner creates a tool runner.
func NewRunner(opts Options) *Runner {
	return &Runner{
		gate:        opts.Gate,
		interrupts:  opts.Interrupts,
		sandbox:     opts.Sandbox,
		tools:       opts.Tools,
		checkpoints: opts.Checkpoints,
		yolo:        opts.Yolo,
	}
}

// RunTool executes one tool call end to end. A nil error with a Result whose
// Error field is set means the tool itself failed; ErrPermissionDenied means
// the call was refused before execution.
func (r *Runner) RunTool(ctx context.Context, name string, params map[string]interface{}) (*tools.Result, error) {
	tool, ok := r.tools.Get(name)
	if !ok {
		return nil, ErrUnknownTool
	}

	sandboxed := r.sandbox != nil && r.sandbox.IsActive()

	if r.yolo && sandboxed {
		logger.Debug("yolo mode: skipping prompt for %s inside sandbox", name)
	} else {
		granted, err := r.gate.RequestPermission(ctx, name, params)
		if err != nil {
			return nil, err
		}
		if !granted {
			return nil, ErrPermissionDenied
		}
	}

	r.interrupts.SetState(interrupt.StateToolExecuting)
	opCtx := r.interrupts.NewOperationContext(ctx)
	defer func() {
		r.interrupts.ClearOperation()
		r.interrupts.SetState(interrupt.StateIdle)
	}()

	execParams := params
	if sandboxed {
		execParams = r.translateParams(params)
	} else if r.checkpoints != nil && tool.PermissionLevel() != permission.LevelNone {
		// Outside a sandbox the checkpoint store is the only rollback path.
		r.snapshotTargets(ctx, name, params)
	}

	var preexisting bool
	if target, ok := firstPathParam(execParams); ok {
		_, statErr := os.Stat(target)
		preexisting = statErr == nil
	}

	result := tool.Execute(opCtx, execParams)

	if sandboxed && tool.PermissionLevel() != permission.LevelNone && result.Error == "" {
		r.trackMutation(name, execParams, preexisting)
	}
	return result, nil
}

// translateParams rewrites path parameters into sandbox coordinates. Other
// parameters pass through untouched.
func (r *Runner) translateParams(params map[string]interface{}) map[string]interface{} {
	translated := make(map[string]interface{}, len(params))
	for key, value := range params {
		translated[key] = value
	}
	for _, key := range pathParamKeys {
		if s, ok := translated[key].(string); ok && s != "" {
			translated[key] = r.sandbox.TranslatePath(s)
		}
	}
	return translated
}

// snapshotTargets checkpoints the current content of every path parameter
// before a mutating tool runs outside a sandbox.
func (r *Runner) snapshotTargets(ctx context.Context, toolName string, params map[string]interface{}) {
	for _, key := range pathParamKeys {
		path, ok := params[key].(string)
		if !ok || path == "" {
			continue
		}
		data, err := os.ReadFile(path)
		if err != nil {
			continue // nothing to snapshot for new or unreadable files
		}
		id, err := r.checkpoints.CreateCheckpoint(ctx, path, string(data), "before "+toolName, "tool:"+toolName)
		if err != nil {
			logger.Warn("checkpoint failed for %s: %v", path, err)
			continue
		}
		logger.Debug("checkpoint %s taken for %s", id, path)
	}
}

// trackMutation records the sandbox change for a successful mutating tool.
func (r *Runner) trackMutation(toolName string, execParams map[string]interface{}, preexisting bool) {
	target, ok := firstPathParam(execParams)
	if !ok {
		return
	}

	switch toolName {
	case "delete_file":
		r.sandbox.TrackChange(target, sandbox.ChangeDeleted)
	default:
		if preexisting {
			r.sandbox.TrackChange(target, sandbox.ChangeModified)
		} else {
			r.sandbox.TrackChange(target, sandbox.ChangeCreated)
		}
	}
}

func firstPathParam(params map[string]interface{}) (string, bool) {
	for _, key := range pathParamKeys {
		if s, ok := params[key].(string); ok && s != "" {
			return s, true
		}
	}
	return "", false
}
