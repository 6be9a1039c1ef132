package tools

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyPatch_MultipleFiles(t *testing.T) {
	ws := t.TempDir()
	ctx := context.Background()
	patch := "Here is the change:\n\n" +
		"```go:src/main.go\npackage main\n```\n\n" +
		"```text:docs/note.txt\nremember this\n```\n"

	tool := NewApplyPatchTool(ws)
	out, err := tool.Invoke(ctx, "tc", map[string]interface{}{"patch": patch})
	require.NoError(t, err)
	assert.Contains(t, out, "2 file(s)")

	data, err := os.ReadFile(filepath.Join(ws, "src", "main.go"))
	require.NoError(t, err)
	assert.Equal(t, "package main\n", string(data))

	data, err = os.ReadFile(filepath.Join(ws, "docs", "note.txt"))
	require.NoError(t, err)
	assert.Equal(t, "remember this\n", string(data))
}

func TestApplyPatch_NoBlocks(t *testing.T) {
	tool := NewApplyPatchTool(t.TempDir())
	_, err := tool.Invoke(context.Background(), "tc", map[string]interface{}{"patch": "no blocks here"})
	assert.Error(t, err)
}

func TestApplyPatch_EscapeRejected(t *testing.T) {
	tool := NewApplyPatchTool(t.TempDir())
	patch := "```go:../evil.go\npackage evil\n```"
	_, err := tool.Invoke(context.Background(), "tc", map[string]interface{}{"patch": patch})
	assert.Error(t, err)
}
