// myclaw - personal AI assistant runtime
// License: MIT

package providers

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"

	"github.com/myclaw/myclaw/pkg/logger"
)

// OpenAIProvider speaks the chat-completions API. It also serves any
// OpenAI-compatible endpoint selected through a custom base URL.
type OpenAIProvider struct{}

func NewOpenAIProvider() *OpenAIProvider { return &OpenAIProvider{} }

func (p *OpenAIProvider) client(desc ModelDescriptor, opts CallOptions) openai.Client {
	reqOpts := []option.RequestOption{option.WithAPIKey(opts.APIKey)}
	if desc.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(desc.BaseURL))
	}
	return openai.NewClient(reqOpts...)
}

func (p *OpenAIProvider) params(desc ModelDescriptor, chat ChatContext, opts CallOptions) openai.ChatCompletionNewParams {
	params := openai.ChatCompletionNewParams{
		Model:    shared.ChatModel(desc.Model),
		Messages: buildOpenAIMessages(chat),
	}
	if opts.MaxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(int64(opts.MaxTokens))
	}
	if len(chat.Tools) > 0 {
		params.Tools = buildOpenAITools(chat.Tools)
	}
	return params
}

// Complete performs a buffered call.
func (p *OpenAIProvider) Complete(ctx context.Context, desc ModelDescriptor, chat ChatContext, opts CallOptions) (*AssistantMessage, error) {
	client := p.client(desc, opts)
	completion, err := client.Chat.Completions.New(ctx, p.params(desc, chat, opts))
	if err != nil {
		return nil, wrapOpenAIError(err)
	}
	return openaiToAssistant(desc, completion)
}

// Stream performs a streaming call, forwarding text deltas as they arrive and
// tool-call events once the accumulated call is complete.
func (p *OpenAIProvider) Stream(ctx context.Context, desc ModelDescriptor, chat ChatContext, opts CallOptions) (*AssistantMessage, error) {
	if opts.OnEvent == nil {
		return p.Complete(ctx, desc, chat, opts)
	}

	client := p.client(desc, opts)
	params := p.params(desc, chat, opts)
	params.StreamOptions = openai.ChatCompletionStreamOptionsParam{IncludeUsage: openai.Bool(true)}

	stream := client.Chat.Completions.NewStreaming(ctx, params)
	acc := openai.ChatCompletionAccumulator{}
	for stream.Next() {
		chunk := stream.Current()
		acc.AddChunk(chunk)
		if len(chunk.Choices) == 0 {
			continue
		}
		if delta := chunk.Choices[0].Delta.Content; delta != "" {
			opts.OnEvent(StreamEvent{Type: StreamTextDelta, Text: delta})
		}
	}
	if err := stream.Err(); err != nil {
		opts.OnEvent(StreamEvent{Type: StreamError, Err: err})
		return nil, wrapOpenAIError(err)
	}

	msg, err := openaiToAssistant(desc, &acc.ChatCompletion)
	if err != nil {
		opts.OnEvent(StreamEvent{Type: StreamError, Err: err})
		return nil, err
	}
	for _, call := range msg.ToolCalls() {
		call := call
		opts.OnEvent(StreamEvent{Type: StreamToolCallStart, ToolCall: &call})
		opts.OnEvent(StreamEvent{Type: StreamToolCallEnd, ToolCall: &call})
	}
	opts.OnEvent(StreamEvent{Type: StreamDone})
	return msg, nil
}

func wrapOpenAIError(err error) error {
	var apierr *openai.Error
	if errors.As(err, &apierr) {
		return &RequestError{StatusCode: apierr.StatusCode, Message: err.Error(), Err: err}
	}
	return err
}

func openaiToAssistant(desc ModelDescriptor, completion *openai.ChatCompletion) (*AssistantMessage, error) {
	out := &AssistantMessage{
		Provider:  "openai",
		Model:     desc.Model,
		Timestamp: time.Now().UnixMilli(),
		Usage: Usage{
			InputTokens:     completion.Usage.PromptTokens,
			OutputTokens:    completion.Usage.CompletionTokens,
			TotalTokens:     completion.Usage.TotalTokens,
			CacheReadTokens: completion.Usage.PromptTokensDetails.CachedTokens,
		},
	}
	if len(completion.Choices) == 0 {
		logger.WarnCF("provider.openai", "completion has no choices", map[string]interface{}{
			"model": desc.Model,
		})
		out.StopReason = "stop"
		return out, nil
	}

	choice := completion.Choices[0]
	out.StopReason = choice.FinishReason
	if choice.Message.Content != "" {
		out.Content = append(out.Content, TextBlock(choice.Message.Content))
	}
	for _, tc := range choice.Message.ToolCalls {
		args := map[string]interface{}{}
		if tc.Function.Arguments != "" {
			if err := json.Unmarshal([]byte(tc.Function.Arguments), &args); err != nil {
				args = map[string]interface{}{"raw": tc.Function.Arguments}
			}
		}
		out.Content = append(out.Content, ToolCallOf(tc.ID, tc.Function.Name, args))
	}
	return out, nil
}

func buildOpenAITools(defs []ToolDefinition) []openai.ChatCompletionToolUnionParam {
	out := make([]openai.ChatCompletionToolUnionParam, 0, len(defs))
	for _, def := range defs {
		out = append(out, openai.ChatCompletionToolUnionParam{
			OfFunction: &openai.ChatCompletionFunctionToolParam{
				Function: shared.FunctionDefinitionParam{
					Name:        def.Name,
					Description: openai.String(def.Description),
					Parameters:  shared.FunctionParameters(def.Parameters),
				},
			},
		})
	}
	return out
}

func buildOpenAIMessages(chat ChatContext) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(chat.Messages)+1)
	if chat.SystemPrompt != "" {
		out = append(out, openai.SystemMessage(chat.SystemPrompt))
	}
	for _, m := range chat.Messages {
		switch msg := m.(type) {
		case *UserMessage:
			text := msg.TextContent()
			if text == "" {
				continue
			}
			out = append(out, openai.UserMessage(text))
		case *AssistantMessage:
			param := openai.ChatCompletionAssistantMessageParam{}
			if text := msg.TextContent(); text != "" {
				param.Content.OfString = openai.String(text)
			}
			for _, call := range msg.ToolCalls() {
				argsJSON, _ := json.Marshal(call.Args)
				param.ToolCalls = append(param.ToolCalls, openai.ChatCompletionMessageToolCallUnionParam{
					OfFunction: &openai.ChatCompletionMessageFunctionToolCallParam{
						ID: call.ID,
						Function: openai.ChatCompletionMessageFunctionToolCallFunctionParam{
							Name:      call.Name,
							Arguments: string(argsJSON),
						},
					},
				})
			}
			if param.Content.OfString.Valid() || len(param.ToolCalls) > 0 {
				out = append(out, openai.ChatCompletionMessageParamUnion{OfAssistant: &param})
			}
		case *ToolResultMessage:
			out = append(out, openai.ToolMessage(msg.TextContent(), msg.ToolCallID))
		}
	}
	return out
}
