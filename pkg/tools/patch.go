// myclaw - personal AI assistant runtime
// License: MIT

package tools

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

// ApplyPatchTool applies a multi-file patch to the workspace. A patch is a
// sequence of fenced code blocks:
//
//	```<lang>:<path>
//	<full file content>
//	```
//
// Each block replaces (or creates) the named file. Blocks apply in order of
// appearance; the first failure stops the patch.
type ApplyPatchTool struct {
	workspace string
}

func NewApplyPatchTool(workspace string) *ApplyPatchTool {
	return &ApplyPatchTool{workspace: workspace}
}

func (t *ApplyPatchTool) Name() string  { return "apply_patch" }
func (t *ApplyPatchTool) Label() string { return "Apply patch" }
func (t *ApplyPatchTool) Description() string {
	return "Apply a patch of fenced code blocks (```lang:path ... ```) to workspace files."
}
func (t *ApplyPatchTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"patch": map[string]interface{}{"type": "string", "description": "Patch content with one fenced block per file"},
		},
		"required": []string{"patch"},
	}
}

type patchFile struct {
	pos     int
	path    string
	content string
}

var patchBlockPattern = regexp.MustCompile("(?s)```[a-z]+:([^\n]+)\n(.*?)```")

func parsePatch(patch string) ([]patchFile, error) {
	matches := patchBlockPattern.FindAllStringSubmatchIndex(patch, -1)
	if len(matches) == 0 {
		return nil, fmt.Errorf("no file blocks found; expected ```lang:path fenced blocks")
	}
	files := make([]patchFile, 0, len(matches))
	for _, m := range matches {
		files = append(files, patchFile{
			pos:     m[0],
			path:    strings.TrimSpace(patch[m[2]:m[3]]),
			content: patch[m[4]:m[5]],
		})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].pos < files[j].pos })
	return files, nil
}

func (t *ApplyPatchTool) Invoke(ctx context.Context, id string, args map[string]interface{}) (string, error) {
	patch, err := stringArg(args, "patch")
	if err != nil {
		return "", err
	}
	files, err := parsePatch(patch)
	if err != nil {
		return "", err
	}

	var applied []string
	for _, f := range files {
		path, err := resolveWorkspacePath(t.workspace, f.path)
		if err != nil {
			return "", fmt.Errorf("patch target %s: %w", f.path, err)
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return "", err
		}
		if err := os.WriteFile(path, []byte(f.content), 0o644); err != nil {
			return "", fmt.Errorf("writing %s: %w", f.path, err)
		}
		applied = append(applied, f.path)
	}
	return fmt.Sprintf("Applied patch to %d file(s): %s", len(applied), strings.Join(applied, ", ")), nil
}
