// myclaw - personal AI assistant runtime
// License: MIT

package agent

import (
	"github.com/myclaw/myclaw/pkg/providers"
)

// Agent-level event kinds, emitted in causal order:
// llm_start, (llm_stream)*, llm_end, (tool_start, tool_end)*,
// [retry* | compaction], ..., done.
const (
	EventLLMStart   = "llm_start"
	EventLLMStream  = "llm_stream"
	EventLLMEnd     = "llm_end"
	EventToolStart  = "tool_start"
	EventToolEnd    = "tool_end"
	EventRetry      = "retry"
	EventCompaction = "compaction"
	EventDone       = "done"
)

// Event is the discriminated union delivered to the run's event callback.
// Only the fields of the matching variant are set.
type Event struct {
	Type string

	// llm_start
	Iteration int

	// llm_stream
	Stream *providers.StreamEvent

	// llm_end
	Message *providers.AssistantMessage

	// tool_start / tool_end
	ToolName   string
	ToolCallID string
	DurationMs int64
	IsError    bool

	// retry
	Attempt   int
	Reason    string
	ProfileID string

	// compaction
	OldCount int
	NewCount int

	// done
	Result *RunResult
}
