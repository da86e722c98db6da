package tools

import (
	"context"
	"os"
	"path/filepath"
	"sort"

	"github.com/floyd-ai/floyd/internal/permission"
)

// ReadFileTool reads a file's content. Read-only, so it never prompts.
type ReadFileTool struct{}

func (t *ReadFileTool) Name() string        { return "read_file" }
func (t *ReadFileTool) Description() string { return "Read the contents of a file" }

func (t *ReadFileTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"file_path": map[string]interface{}{
				"type":        "string",
				"description": "Path to the file to read",
			},
		},
		"required": []string{"file_path"},
	}
}

func (t *ReadFileTool) PermissionLevel() permission.Level { return permission.LevelNone }

func (t *ReadFileTool) Execute(ctx context.Context, params map[string]interface{}) *Result {
	path, err := stringParam(params, "file_path")
	if err != nil {
		return Errorf("%v", err)
	}
	if err := ctx.Err(); err != nil {
		return Errorf("cancelled: %v", context.Cause(ctx))
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Errorf("failed to read %s: %v", path, err)
	}
	return &Result{Result: string(data)}
}

// ListDirTool lists a directory. Read-only.
type ListDirTool struct{}

func (t *ListDirTool) Name() string        { return "list_dir" }
func (t *ListDirTool) Description() string { return "List the entries of a directory" }

func (t *ListDirTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"path": map[string]interface{}{
				"type":        "string",
				"description": "Path to the directory to list",
			},
		},
		"required": []string{"path"},
	}
}

func (t *ListDirTool) PermissionLevel() permission.Level { return permission.LevelNone }

func (t *ListDirTool) Execute(ctx context.Context, params map[string]interface{}) *Result {
	path, err := stringParam(params, "path")
	if err != nil {
		return Errorf("%v", err)
	}
	if err := ctx.Err(); err != nil {
		return Errorf("cancelled: %v", context.Cause(ctx))
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return Errorf("failed to list %s: %v", path, err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() {
			name += string(filepath.Separator)
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return &Result{Result: names}
}

// WriteFileTool creates or overwrites a file.
type WriteFileTool struct{}

func (t *WriteFileTool) Name() string        { return "write_file" }
func (t *WriteFileTool) Description() string { return "Create or overwrite a file with new content" }

func (t *WriteFileTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"file_path": map[string]interface{}{
				"type":        "string",
				"description": "Path to the file to write",
			},
			"content": map[string]interface{}{
				"type":        "string",
				"description": "Full content to write",
			},
		},
		"required": []string{"file_path", "content"},
	}
}

func (t *WriteFileTool) PermissionLevel() permission.Level { return permission.LevelModerate }

func (t *WriteFileTool) Execute(ctx context.Context, params map[string]interface{}) *Result {
	path, err := stringParam(params, "file_path")
	if err != nil {
		return Errorf("%v", err)
	}
	content, ok := params["content"].(string)
	if !ok {
		return Errorf("parameter %q must be a string", "content")
	}
	if err := ctx.Err(); err != nil {
		return Errorf("cancelled: %v", context.Cause(ctx))
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return Errorf("failed to create parent directory for %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return Errorf("failed to write %s: %v", path, err)
	}
	return &Result{Result: map[string]interface{}{"file_path": path, "bytes": len(content)}}
}

// DeleteFileTool removes a file. Irreversible outside a sandbox, so it is
// classified dangerous and always prompts.
type DeleteFileTool struct{}

func (t *DeleteFileTool) Name() string        { return "delete_file" }
func (t *DeleteFileTool) Description() string { return "Delete a file" }

func (t *DeleteFileTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"file_path": map[string]interface{}{
				"type":        "string",
				"description": "Path to the file to delete",
			},
		},
		"required": []string{"file_path"},
	}
}

func (t *DeleteFileTool) PermissionLevel() permission.Level { return permission.LevelDangerous }

func (t *DeleteFileTool) Execute(ctx context.Context, params map[string]interface{}) *Result {
	path, err := stringParam(params, "file_path")
	if err != nil {
		return Errorf("%v", err)
	}
	if err := ctx.Err(); err != nil {
		return Errorf("cancelled: %v", context.Cause(ctx))
	}

	if err := os.Remove(path); err != nil {
		return Errorf("failed to delete %s: %v", path, err)
	}
	return &Result{Result: map[string]interface{}{"deleted": path}}
}
