// myclaw - personal AI assistant runtime
// License: MIT

package providers

import (
	"context"
	"fmt"
	"strings"
)

// Content block tags. Assistant content is an ordered sequence of text,
// thinking, and tool-call blocks; tool results carry text blocks.
const (
	BlockText     = "text"
	BlockThinking = "thinking"
	BlockToolCall = "tool_call"
)

// ToolCallBlock is a single tool invocation requested by the model.
type ToolCallBlock struct {
	ID   string                 `json:"id"`
	Name string                 `json:"name"`
	Args map[string]interface{} `json:"args,omitempty"`
}

// ContentBlock is one tagged content part.
type ContentBlock struct {
	Type     string         `json:"type"`
	Text     string         `json:"text,omitempty"`
	Thinking string         `json:"thinking,omitempty"`
	ToolCall *ToolCallBlock `json:"toolCall,omitempty"`
}

// TextBlock builds a text content block.
func TextBlock(s string) ContentBlock { return ContentBlock{Type: BlockText, Text: s} }

// ThinkingBlock builds a reasoning block hidden from end-user output.
func ThinkingBlock(s string) ContentBlock { return ContentBlock{Type: BlockThinking, Thinking: s} }

// ToolCallOf builds a tool-call content block.
func ToolCallOf(id, name string, args map[string]interface{}) ContentBlock {
	return ContentBlock{Type: BlockToolCall, ToolCall: &ToolCallBlock{ID: id, Name: name, Args: args}}
}

// Message is the in-memory conversation message: one of UserMessage,
// AssistantMessage, or ToolResultMessage. System prompts are not messages;
// they travel alongside the sequence in ChatContext.
type Message interface {
	Role() string
	Time() int64
}

type UserMessage struct {
	Content   []ContentBlock
	Timestamp int64
}

func (m *UserMessage) Role() string { return "user" }
func (m *UserMessage) Time() int64  { return m.Timestamp }

// TextContent concatenates the text blocks.
func (m *UserMessage) TextContent() string { return joinText(m.Content) }

type AssistantMessage struct {
	Content    []ContentBlock
	Provider   string
	Model      string
	Usage      Usage
	StopReason string
	Timestamp  int64
}

func (m *AssistantMessage) Role() string { return "assistant" }
func (m *AssistantMessage) Time() int64  { return m.Timestamp }

// TextContent concatenates the text blocks, skipping thinking and tool calls.
func (m *AssistantMessage) TextContent() string { return joinText(m.Content) }

// ToolCalls filters the tool-call blocks in content order.
func (m *AssistantMessage) ToolCalls() []ToolCallBlock {
	var calls []ToolCallBlock
	for _, b := range m.Content {
		if b.Type == BlockToolCall && b.ToolCall != nil {
			calls = append(calls, *b.ToolCall)
		}
	}
	return calls
}

type ToolResultMessage struct {
	ToolCallID string
	ToolName   string
	Content    []ContentBlock
	IsError    bool
	Timestamp  int64
}

func (m *ToolResultMessage) Role() string { return "tool" }
func (m *ToolResultMessage) Time() int64  { return m.Timestamp }

func (m *ToolResultMessage) TextContent() string { return joinText(m.Content) }

func joinText(blocks []ContentBlock) string {
	var parts []string
	for _, b := range blocks {
		if b.Type == BlockText && b.Text != "" {
			parts = append(parts, b.Text)
		}
	}
	return strings.Join(parts, "\n")
}

// Cost mirrors the token counters in configured currency units.
type Cost struct {
	Input      float64 `json:"input,omitempty"`
	Output     float64 `json:"output,omitempty"`
	CacheRead  float64 `json:"cacheRead,omitempty"`
	CacheWrite float64 `json:"cacheWrite,omitempty"`
	Total      float64 `json:"total,omitempty"`
}

// Usage holds the six token counters of one or more provider calls.
type Usage struct {
	InputTokens      int64 `json:"inputTokens"`
	OutputTokens     int64 `json:"outputTokens"`
	CacheReadTokens  int64 `json:"cacheReadTokens,omitempty"`
	CacheWriteTokens int64 `json:"cacheWriteTokens,omitempty"`
	TotalTokens      int64 `json:"totalTokens"`
	Cost             Cost  `json:"cost,omitempty"`
}

// Accumulate folds one call's usage into the running total. Input, output,
// and total counters (and their costs) sum; cache counters are replaced
// because providers report cumulative cache hits per request.
func (u *Usage) Accumulate(call Usage) {
	u.InputTokens += call.InputTokens
	u.OutputTokens += call.OutputTokens
	u.TotalTokens += call.TotalTokens
	u.CacheReadTokens = call.CacheReadTokens
	u.CacheWriteTokens = call.CacheWriteTokens
	u.Cost.Input += call.Cost.Input
	u.Cost.Output += call.Cost.Output
	u.Cost.Total += call.Cost.Total
	u.Cost.CacheRead = call.Cost.CacheRead
	u.Cost.CacheWrite = call.Cost.CacheWrite
}

// Stream event kinds forwarded to the caller during a streaming call.
const (
	StreamTextDelta     = "text_delta"
	StreamThinkingDelta = "thinking_delta"
	StreamToolCallStart = "tool_call_start"
	StreamToolCallEnd   = "tool_call_end"
	StreamError         = "error"
	StreamDone          = "done"
)

// StreamEvent is one fine-grained provider streaming event.
type StreamEvent struct {
	Type     string
	Text     string
	ToolCall *ToolCallBlock
	Err      error
}

// ToolDefinition describes a callable tool to the provider.
type ToolDefinition struct {
	Name        string
	Description string
	Parameters  map[string]interface{}
}

// ChatContext is one provider call's input.
type ChatContext struct {
	SystemPrompt string
	Messages     []Message
	Tools        []ToolDefinition
}

// CallOptions carries the per-call credential and streaming callback. When
// OnEvent is nil the call behaves as a buffered completion.
type CallOptions struct {
	APIKey    string
	MaxTokens int
	OnEvent   func(StreamEvent)
}

// ModelDescriptor names the provider endpoint a call is addressed to.
type ModelDescriptor struct {
	Provider string
	Model    string
	BaseURL  string
}

// String renders the descriptor for log lines.
func (d ModelDescriptor) String() string {
	return fmt.Sprintf("%s/%s", d.Provider, d.Model)
}

// Provider performs model calls. Stream and Complete both resolve to the
// final assistant message; Stream additionally forwards fine-grained events
// through opts.OnEvent.
type Provider interface {
	Stream(ctx context.Context, desc ModelDescriptor, chat ChatContext, opts CallOptions) (*AssistantMessage, error)
	Complete(ctx context.Context, desc ModelDescriptor, chat ChatContext, opts CallOptions) (*AssistantMessage, error)
}

// RequestError is a provider failure with the HTTP status preserved so the
// failover classifier can rank it before falling back to message patterns.
type RequestError struct {
	StatusCode int
	Message    string
	Err        error
}

func (e *RequestError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("provider request failed: status=%d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("provider request failed: %s", e.Message)
}

func (e *RequestError) Unwrap() error { return e.Err }
