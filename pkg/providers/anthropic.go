// myclaw - personal AI assistant runtime
// License: MIT

package providers

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/myclaw/myclaw/pkg/logger"
)

const anthropicDefaultMaxTokens = 8192

// AnthropicProvider calls the Anthropic Messages API. Clients are built per
// call because the credential rotates across profiles within a run.
type AnthropicProvider struct{}

func NewAnthropicProvider() *AnthropicProvider { return &AnthropicProvider{} }

func (p *AnthropicProvider) client(desc ModelDescriptor, opts CallOptions) anthropic.Client {
	reqOpts := []option.RequestOption{option.WithAPIKey(opts.APIKey)}
	if desc.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(desc.BaseURL))
	}
	return anthropic.NewClient(reqOpts...)
}

func (p *AnthropicProvider) params(desc ModelDescriptor, chat ChatContext, opts CallOptions) anthropic.MessageNewParams {
	maxTokens := opts.MaxTokens
	if maxTokens <= 0 {
		maxTokens = anthropicDefaultMaxTokens
	}
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(desc.Model),
		MaxTokens: int64(maxTokens),
		Messages:  buildAnthropicMessages(chat.Messages),
	}
	if strings.TrimSpace(chat.SystemPrompt) != "" {
		params.System = []anthropic.TextBlockParam{{Text: chat.SystemPrompt}}
	}
	if len(chat.Tools) > 0 {
		params.Tools = buildAnthropicTools(chat.Tools)
	}
	return params
}

// Complete performs a buffered call and returns the final assistant message.
func (p *AnthropicProvider) Complete(ctx context.Context, desc ModelDescriptor, chat ChatContext, opts CallOptions) (*AssistantMessage, error) {
	client := p.client(desc, opts)
	msg, err := client.Messages.New(ctx, p.params(desc, chat, opts))
	if err != nil {
		return nil, wrapAnthropicError(err)
	}
	return anthropicToAssistant(desc, *msg), nil
}

// Stream performs a streaming call, forwarding fine-grained events through
// opts.OnEvent, and resolves to the final assistant message.
func (p *AnthropicProvider) Stream(ctx context.Context, desc ModelDescriptor, chat ChatContext, opts CallOptions) (*AssistantMessage, error) {
	if opts.OnEvent == nil {
		return p.Complete(ctx, desc, chat, opts)
	}

	client := p.client(desc, opts)
	stream := client.Messages.NewStreaming(ctx, p.params(desc, chat, opts))

	msg := anthropic.Message{}
	started := map[int64]*ToolCallBlock{}

	for stream.Next() {
		event := stream.Current()
		if err := msg.Accumulate(event); err != nil {
			opts.OnEvent(StreamEvent{Type: StreamError, Err: err})
			return nil, wrapAnthropicError(err)
		}
		switch variant := event.AsAny().(type) {
		case anthropic.ContentBlockStartEvent:
			if variant.ContentBlock.Type != "tool_use" {
				continue
			}
			call := &ToolCallBlock{ID: variant.ContentBlock.ID, Name: variant.ContentBlock.Name}
			started[variant.Index] = call
			opts.OnEvent(StreamEvent{Type: StreamToolCallStart, ToolCall: call})
		case anthropic.ContentBlockDeltaEvent:
			switch delta := variant.Delta.AsAny().(type) {
			case anthropic.TextDelta:
				if delta.Text != "" {
					opts.OnEvent(StreamEvent{Type: StreamTextDelta, Text: delta.Text})
				}
			case anthropic.ThinkingDelta:
				if delta.Thinking != "" {
					opts.OnEvent(StreamEvent{Type: StreamThinkingDelta, Text: delta.Thinking})
				}
			}
		case anthropic.ContentBlockStopEvent:
			call, ok := started[variant.Index]
			if !ok {
				continue
			}
			idx := int(variant.Index)
			if idx >= 0 && idx < len(msg.Content) {
				if tu, ok := msg.Content[idx].AsAny().(anthropic.ToolUseBlock); ok && len(tu.Input) > 0 {
					args := map[string]interface{}{}
					_ = json.Unmarshal(tu.Input, &args)
					call.Args = args
				}
			}
			opts.OnEvent(StreamEvent{Type: StreamToolCallEnd, ToolCall: call})
		}
	}
	if err := stream.Err(); err != nil {
		opts.OnEvent(StreamEvent{Type: StreamError, Err: err})
		return nil, wrapAnthropicError(err)
	}

	opts.OnEvent(StreamEvent{Type: StreamDone})
	return anthropicToAssistant(desc, msg), nil
}

func wrapAnthropicError(err error) error {
	var apierr *anthropic.Error
	if errors.As(err, &apierr) {
		return &RequestError{StatusCode: apierr.StatusCode, Message: err.Error(), Err: err}
	}
	return err
}

func anthropicToAssistant(desc ModelDescriptor, msg anthropic.Message) *AssistantMessage {
	out := &AssistantMessage{
		Provider:   "anthropic",
		Model:      desc.Model,
		StopReason: string(msg.StopReason),
		Timestamp:  time.Now().UnixMilli(),
		Usage: Usage{
			InputTokens:      msg.Usage.InputTokens,
			OutputTokens:     msg.Usage.OutputTokens,
			CacheReadTokens:  msg.Usage.CacheReadInputTokens,
			CacheWriteTokens: msg.Usage.CacheCreationInputTokens,
			TotalTokens:      msg.Usage.InputTokens + msg.Usage.OutputTokens,
		},
	}
	for _, block := range msg.Content {
		switch variant := block.AsAny().(type) {
		case anthropic.TextBlock:
			out.Content = append(out.Content, TextBlock(variant.Text))
		case anthropic.ThinkingBlock:
			out.Content = append(out.Content, ThinkingBlock(variant.Thinking))
		case anthropic.ToolUseBlock:
			args := map[string]interface{}{}
			if len(variant.Input) > 0 {
				_ = json.Unmarshal(variant.Input, &args)
			}
			out.Content = append(out.Content, ToolCallOf(variant.ID, variant.Name, args))
		}
	}
	if len(out.Content) == 0 {
		logger.WarnCF("provider.anthropic", "empty assistant content", map[string]interface{}{
			"model":       desc.Model,
			"stop_reason": out.StopReason,
		})
	}
	return out
}

func buildAnthropicTools(defs []ToolDefinition) []anthropic.ToolUnionParam {
	out := make([]anthropic.ToolUnionParam, 0, len(defs))
	for _, def := range defs {
		properties := def.Parameters["properties"]
		var required []string
		if raw, ok := def.Parameters["required"].([]string); ok {
			required = raw
		} else if raw, ok := def.Parameters["required"].([]interface{}); ok {
			for _, r := range raw {
				if s, ok := r.(string); ok {
					required = append(required, s)
				}
			}
		}
		param := anthropic.ToolParam{
			Name:        def.Name,
			Description: anthropic.String(def.Description),
			InputSchema: anthropic.ToolInputSchemaParam{
				Type:       "object",
				Properties: properties,
				Required:   required,
			},
		}
		out = append(out, anthropic.ToolUnionParam{OfTool: &param})
	}
	return out
}

func buildAnthropicMessages(messages []Message) []anthropic.MessageParam {
	out := make([]anthropic.MessageParam, 0, len(messages))
	for _, m := range messages {
		switch msg := m.(type) {
		case *UserMessage:
			blocks := make([]anthropic.ContentBlockParamUnion, 0, len(msg.Content))
			for _, b := range msg.Content {
				if b.Type == BlockText && b.Text != "" {
					blocks = append(blocks, anthropic.NewTextBlock(b.Text))
				}
			}
			if len(blocks) == 0 {
				continue
			}
			out = append(out, anthropic.NewUserMessage(blocks...))
		case *AssistantMessage:
			blocks := make([]anthropic.ContentBlockParamUnion, 0, len(msg.Content))
			for _, b := range msg.Content {
				switch b.Type {
				case BlockText:
					if b.Text != "" {
						blocks = append(blocks, anthropic.NewTextBlock(b.Text))
					}
				case BlockToolCall:
					if b.ToolCall == nil {
						continue
					}
					blocks = append(blocks, anthropic.ContentBlockParamUnion{
						OfToolUse: &anthropic.ToolUseBlockParam{
							ID:    b.ToolCall.ID,
							Name:  b.ToolCall.Name,
							Input: b.ToolCall.Args,
						},
					})
				}
			}
			if len(blocks) == 0 {
				continue
			}
			out = append(out, anthropic.NewAssistantMessage(blocks...))
		case *ToolResultMessage:
			content := msg.TextContent()
			out = append(out, anthropic.NewUserMessage(
				anthropic.NewToolResultBlock(msg.ToolCallID, content, msg.IsError)))
		default:
			// unreachable given the closed message set
		}
	}
	if len(out) == 0 {
		out = append(out, anthropic.NewUserMessage(anthropic.NewTextBlock("Continue.")))
	}
	return out
}
