package tools

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/myclaw/myclaw/pkg/providers"
)

type stubTool struct {
	name   string
	output string
	err    error
}

func (t *stubTool) Name() string                        { return t.name }
func (t *stubTool) Label() string                       { return t.name }
func (t *stubTool) Description() string                 { return "stub" }
func (t *stubTool) Parameters() map[string]interface{}  { return map[string]interface{}{"type": "object"} }
func (t *stubTool) Invoke(ctx context.Context, id string, args map[string]interface{}) (string, error) {
	return t.output, t.err
}

func TestInvoke_Success(t *testing.T) {
	r := NewRegistry()
	r.Register(&stubTool{name: "greet", output: "hello"})

	result := r.Invoke(context.Background(), providers.ToolCallBlock{ID: "tc1", Name: "greet"}, 100)
	assert.Equal(t, "tc1", result.ToolCallID)
	assert.Equal(t, "greet", result.ToolName)
	assert.False(t, result.IsError)
	assert.Equal(t, "hello", result.TextContent())
}

func TestInvoke_UnknownTool(t *testing.T) {
	r := NewRegistry()
	result := r.Invoke(context.Background(), providers.ToolCallBlock{ID: "tc1", Name: "ghost"}, 100)
	assert.True(t, result.IsError)
	assert.Equal(t, "unknown tool: ghost", result.TextContent())
}

func TestInvoke_ToolError(t *testing.T) {
	r := NewRegistry()
	r.Register(&stubTool{name: "flaky", err: errors.New("disk on fire")})

	result := r.Invoke(context.Background(), providers.ToolCallBlock{ID: "tc2", Name: "flaky"}, 100)
	assert.True(t, result.IsError)
	assert.Contains(t, result.TextContent(), "disk on fire")
}

func TestInvoke_BoundsOutput(t *testing.T) {
	r := NewRegistry()
	r.Register(&stubTool{name: "big", output: strings.Repeat("x", 500)})

	result := r.Invoke(context.Background(), providers.ToolCallBlock{ID: "tc3", Name: "big"}, 100)
	text := result.TextContent()
	assert.True(t, strings.HasPrefix(text, strings.Repeat("x", 100)))
	assert.Contains(t, text, "[truncated 400 chars]")
}

func TestBoundOutput_UnderCapUntouched(t *testing.T) {
	assert.Equal(t, "short", BoundOutput("short", 100))
	assert.Equal(t, "exact", BoundOutput("exact", 5))
}

func TestDefinitions_StableOrder(t *testing.T) {
	r := NewRegistry()
	r.Register(&stubTool{name: "b"})
	r.Register(&stubTool{name: "a"})

	defs := r.Definitions()
	require.Len(t, defs, 2)
	assert.Equal(t, "b", defs[0].Name)
	assert.Equal(t, "a", defs[1].Name)
}
