// myclaw - personal AI assistant runtime
// License: MIT

package tools

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/myclaw/myclaw/pkg/logger"
	"github.com/myclaw/myclaw/pkg/providers"
)

// Tool is one callable capability exposed to the model. Names are unique
// within a registry.
type Tool interface {
	Name() string
	Label() string
	Description() string
	Parameters() map[string]interface{}
	Invoke(ctx context.Context, id string, args map[string]interface{}) (string, error)
}

// Registry holds the tool set for one run.
type Registry struct {
	tools map[string]Tool
	order []string
}

func NewRegistry() *Registry {
	return &Registry{tools: map[string]Tool{}}
}

// Register adds a tool, replacing any previous tool of the same name.
func (r *Registry) Register(t Tool) {
	if _, exists := r.tools[t.Name()]; !exists {
		r.order = append(r.order, t.Name())
	}
	r.tools[t.Name()] = t
}

// Get returns the tool bound to name.
func (r *Registry) Get(name string) (Tool, bool) {
	t, ok := r.tools[name]
	return t, ok
}

// Names lists tool names in registration order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Definitions builds the provider-facing descriptors in a stable order.
func (r *Registry) Definitions() []providers.ToolDefinition {
	defs := make([]providers.ToolDefinition, 0, len(r.order))
	for _, name := range r.order {
		t := r.tools[name]
		defs = append(defs, providers.ToolDefinition{
			Name:        t.Name(),
			Description: t.Description(),
			Parameters:  t.Parameters(),
		})
	}
	return defs
}

// Invoke dispatches one tool call and always produces a tool-result message:
// unknown tools and tool panics become error results rather than run
// failures. Output text is bounded to maxChars before it enters the
// conversation.
func (r *Registry) Invoke(ctx context.Context, call providers.ToolCallBlock, maxChars int) *providers.ToolResultMessage {
	now := time.Now().UnixMilli()
	tool, ok := r.tools[call.Name]
	if !ok {
		return &providers.ToolResultMessage{
			ToolCallID: call.ID,
			ToolName:   call.Name,
			Content:    []providers.ContentBlock{providers.TextBlock(fmt.Sprintf("unknown tool: %s", call.Name))},
			IsError:    true,
			Timestamp:  now,
		}
	}

	output, err := func() (out string, err error) {
		defer func() {
			if p := recover(); p != nil {
				err = fmt.Errorf("panic: %v", p)
			}
		}()
		return tool.Invoke(ctx, call.ID, call.Args)
	}()
	if err != nil {
		logger.WarnCF("tools", "tool invocation failed", map[string]interface{}{
			"tool":  call.Name,
			"error": err.Error(),
		})
		return &providers.ToolResultMessage{
			ToolCallID: call.ID,
			ToolName:   call.Name,
			Content:    []providers.ContentBlock{providers.TextBlock(fmt.Sprintf("tool %s failed: %v", call.Name, err))},
			IsError:    true,
			Timestamp:  time.Now().UnixMilli(),
		}
	}

	return &providers.ToolResultMessage{
		ToolCallID: call.ID,
		ToolName:   call.Name,
		Content:    []providers.ContentBlock{providers.TextBlock(BoundOutput(output, maxChars))},
		Timestamp:  time.Now().UnixMilli(),
	}
}

// BoundOutput clamps tool output to maxChars, marking how much was dropped.
func BoundOutput(s string, maxChars int) string {
	if maxChars <= 0 || len(s) <= maxChars {
		return s
	}
	omitted := len(s) - maxChars
	return s[:maxChars] + fmt.Sprintf("\n[truncated %d chars]", omitted)
}

// SortedNames returns tool names alphabetically.
func (r *Registry) SortedNames() []string {
	names := r.Names()
	sort.Strings(names)
	return names
}
