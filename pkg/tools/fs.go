// myclaw - personal AI assistant runtime
// License: MIT

package tools

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// File tools are bound to a workspace directory. Relative paths resolve
// inside it; absolute paths and ".." escapes are rejected so a model cannot
// wander outside its sandbox.

func resolveWorkspacePath(workspace, raw string) (string, error) {
	if strings.TrimSpace(raw) == "" {
		return "", fmt.Errorf("path is required")
	}
	if filepath.IsAbs(raw) {
		return "", fmt.Errorf("absolute paths are not allowed: %s", raw)
	}
	joined := filepath.Join(workspace, raw)
	abs, err := filepath.Abs(joined)
	if err != nil {
		return "", err
	}
	wsAbs, err := filepath.Abs(workspace)
	if err != nil {
		return "", err
	}
	if abs != wsAbs && !strings.HasPrefix(abs, wsAbs+string(filepath.Separator)) {
		return "", fmt.Errorf("path escapes workspace: %s", raw)
	}
	return abs, nil
}

func stringArg(args map[string]interface{}, key string) (string, error) {
	v, ok := args[key].(string)
	if !ok || v == "" {
		return "", fmt.Errorf("'%s' argument is required and must be a string", key)
	}
	return v, nil
}

type ReadFileTool struct{ workspace string }

func NewReadFileTool(workspace string) *ReadFileTool { return &ReadFileTool{workspace: workspace} }

func (t *ReadFileTool) Name() string        { return "read_file" }
func (t *ReadFileTool) Label() string       { return "Read file" }
func (t *ReadFileTool) Description() string { return "Read a file from the workspace." }
func (t *ReadFileTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"path": map[string]interface{}{"type": "string", "description": "Workspace-relative file path"},
		},
		"required": []string{"path"},
	}
}

func (t *ReadFileTool) Invoke(ctx context.Context, id string, args map[string]interface{}) (string, error) {
	rel, err := stringArg(args, "path")
	if err != nil {
		return "", err
	}
	path, err := resolveWorkspacePath(t.workspace, rel)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", rel, err)
	}
	return string(data), nil
}

type WriteFileTool struct{ workspace string }

func NewWriteFileTool(workspace string) *WriteFileTool { return &WriteFileTool{workspace: workspace} }

func (t *WriteFileTool) Name() string  { return "write_file" }
func (t *WriteFileTool) Label() string { return "Write file" }
func (t *WriteFileTool) Description() string {
	return "Write content to a workspace file, creating parent directories as needed."
}
func (t *WriteFileTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"path":    map[string]interface{}{"type": "string", "description": "Workspace-relative file path"},
			"content": map[string]interface{}{"type": "string", "description": "Full file content"},
		},
		"required": []string{"path", "content"},
	}
}

func (t *WriteFileTool) Invoke(ctx context.Context, id string, args map[string]interface{}) (string, error) {
	rel, err := stringArg(args, "path")
	if err != nil {
		return "", err
	}
	content, ok := args["content"].(string)
	if !ok {
		return "", fmt.Errorf("'content' argument is required and must be a string")
	}
	path, err := resolveWorkspacePath(t.workspace, rel)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", err
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("writing %s: %w", rel, err)
	}
	return fmt.Sprintf("Wrote %d bytes to %s", len(content), rel), nil
}

type EditFileTool struct{ workspace string }

func NewEditFileTool(workspace string) *EditFileTool { return &EditFileTool{workspace: workspace} }

func (t *EditFileTool) Name() string  { return "edit_file" }
func (t *EditFileTool) Label() string { return "Edit file" }
func (t *EditFileTool) Description() string {
	return "Replace an exact text fragment in a workspace file. The old text must occur exactly once."
}
func (t *EditFileTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"path":     map[string]interface{}{"type": "string", "description": "Workspace-relative file path"},
			"old_text": map[string]interface{}{"type": "string", "description": "Text to replace"},
			"new_text": map[string]interface{}{"type": "string", "description": "Replacement text"},
		},
		"required": []string{"path", "old_text", "new_text"},
	}
}

func (t *EditFileTool) Invoke(ctx context.Context, id string, args map[string]interface{}) (string, error) {
	rel, err := stringArg(args, "path")
	if err != nil {
		return "", err
	}
	oldText, err := stringArg(args, "old_text")
	if err != nil {
		return "", err
	}
	newText, _ := args["new_text"].(string)

	path, err := resolveWorkspacePath(t.workspace, rel)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", rel, err)
	}
	content := string(data)
	switch strings.Count(content, oldText) {
	case 0:
		return "", fmt.Errorf("old_text not found in %s", rel)
	case 1:
	default:
		return "", fmt.Errorf("old_text occurs more than once in %s; provide more context", rel)
	}
	content = strings.Replace(content, oldText, newText, 1)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("writing %s: %w", rel, err)
	}
	return fmt.Sprintf("Edited %s", rel), nil
}

type AppendFileTool struct{ workspace string }

func NewAppendFileTool(workspace string) *AppendFileTool { return &AppendFileTool{workspace: workspace} }

func (t *AppendFileTool) Name() string        { return "append_file" }
func (t *AppendFileTool) Label() string       { return "Append to file" }
func (t *AppendFileTool) Description() string { return "Append content to a workspace file." }
func (t *AppendFileTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"path":    map[string]interface{}{"type": "string", "description": "Workspace-relative file path"},
			"content": map[string]interface{}{"type": "string", "description": "Content to append"},
		},
		"required": []string{"path", "content"},
	}
}

func (t *AppendFileTool) Invoke(ctx context.Context, id string, args map[string]interface{}) (string, error) {
	rel, err := stringArg(args, "path")
	if err != nil {
		return "", err
	}
	content, ok := args["content"].(string)
	if !ok {
		return "", fmt.Errorf("'content' argument is required and must be a string")
	}
	path, err := resolveWorkspacePath(t.workspace, rel)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", err
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return "", err
	}
	defer f.Close()
	if _, err := f.WriteString(content); err != nil {
		return "", fmt.Errorf("appending to %s: %w", rel, err)
	}
	return fmt.Sprintf("Appended %d bytes to %s", len(content), rel), nil
}

type ListDirTool struct{ workspace string }

func NewListDirTool(workspace string) *ListDirTool { return &ListDirTool{workspace: workspace} }

func (t *ListDirTool) Name() string        { return "list_dir" }
func (t *ListDirTool) Label() string       { return "List directory" }
func (t *ListDirTool) Description() string { return "List entries of a workspace directory." }
func (t *ListDirTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"path": map[string]interface{}{"type": "string", "description": "Workspace-relative directory, '.' for the root"},
		},
		"required": []string{"path"},
	}
}

const maxDirEntries = 1000

func (t *ListDirTool) Invoke(ctx context.Context, id string, args map[string]interface{}) (string, error) {
	rel, err := stringArg(args, "path")
	if err != nil {
		return "", err
	}
	path, err := resolveWorkspacePath(t.workspace, rel)
	if err != nil {
		return "", err
	}
	entries, err := os.ReadDir(path)
	if err != nil {
		return "", fmt.Errorf("listing %s: %w", rel, err)
	}
	var b strings.Builder
	for i, entry := range entries {
		if i >= maxDirEntries {
			b.WriteString("... (truncated, too many entries)\n")
			break
		}
		if entry.IsDir() {
			fmt.Fprintf(&b, "%s/\n", entry.Name())
		} else {
			fmt.Fprintf(&b, "%s\n", entry.Name())
		}
	}
	if b.Len() == 0 {
		return "(empty)", nil
	}
	return b.String(), nil
}
