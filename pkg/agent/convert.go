// myclaw - personal AI assistant runtime
// License: MIT

package agent

import (
	"encoding/json"

	"github.com/myclaw/myclaw/pkg/providers"
	"github.com/myclaw/myclaw/pkg/session"
)

// Conversion between the persisted transcript form and the in-memory message
// form. The assistant's full content-block sequence rides in record metadata
// so the round trip is lossless; the record's content field stays a plain
// text projection for humans reading the JSONL.

const (
	metaContentBlocks = "contentBlocks"
	metaProvider      = "provider"
	metaModel         = "model"
	metaUsage         = "usage"
	metaStopReason    = "stopReason"
	metaToolName      = "toolName"
	metaIsError       = "isError"
)

// MissingToolResultText is injected for tool calls that were never answered,
// typically because the process died mid-call.
const MissingToolResultText = "[Tool result missing — session was interrupted]"

// TranscriptToMessages maps persisted records to in-memory messages.
// System-role records are discarded: system prompts are composed per turn,
// not replayed from the log.
func TranscriptToMessages(records []session.TranscriptMessage) []providers.Message {
	out := make([]providers.Message, 0, len(records))
	for _, rec := range records {
		switch rec.Role {
		case "user":
			out = append(out, &providers.UserMessage{
				Content:   []providers.ContentBlock{providers.TextBlock(rec.Content)},
				Timestamp: rec.Timestamp,
			})
		case "assistant":
			out = append(out, assistantFromRecord(rec))
		case "tool":
			msg := &providers.ToolResultMessage{
				ToolCallID: rec.ToolCallID,
				Content:    []providers.ContentBlock{providers.TextBlock(rec.Content)},
				Timestamp:  rec.Timestamp,
			}
			if name, ok := rec.Meta[metaToolName].(string); ok {
				msg.ToolName = name
			}
			if isErr, ok := rec.Meta[metaIsError].(bool); ok {
				msg.IsError = isErr
			}
			out = append(out, msg)
		case "system":
			// dropped
		}
	}
	return out
}

func assistantFromRecord(rec session.TranscriptMessage) *providers.AssistantMessage {
	msg := &providers.AssistantMessage{
		StopReason: "stop",
		Timestamp:  rec.Timestamp,
	}
	if blocks, ok := decodeContentBlocks(rec.Meta[metaContentBlocks]); ok {
		msg.Content = blocks
	} else {
		msg.Content = []providers.ContentBlock{providers.TextBlock(rec.Content)}
	}
	if p, ok := rec.Meta[metaProvider].(string); ok {
		msg.Provider = p
	}
	if m, ok := rec.Meta[metaModel].(string); ok {
		msg.Model = m
	}
	if sr, ok := rec.Meta[metaStopReason].(string); ok {
		msg.StopReason = sr
	}
	if usage, ok := decodeUsage(rec.Meta[metaUsage]); ok {
		msg.Usage = usage
	}
	return msg
}

// decodeContentBlocks accepts both the in-memory []ContentBlock and the
// []interface{} shape the value takes after a disk round trip.
func decodeContentBlocks(v interface{}) ([]providers.ContentBlock, bool) {
	switch blocks := v.(type) {
	case nil:
		return nil, false
	case []providers.ContentBlock:
		return blocks, len(blocks) > 0
	default:
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, false
		}
		var out []providers.ContentBlock
		if err := json.Unmarshal(raw, &out); err != nil {
			return nil, false
		}
		return out, len(out) > 0
	}
}

func decodeUsage(v interface{}) (providers.Usage, bool) {
	switch usage := v.(type) {
	case nil:
		return providers.Usage{}, false
	case providers.Usage:
		return usage, true
	default:
		raw, err := json.Marshal(v)
		if err != nil {
			return providers.Usage{}, false
		}
		var out providers.Usage
		if err := json.Unmarshal(raw, &out); err != nil {
			return providers.Usage{}, false
		}
		return out, true
	}
}

// MessagesToTranscript is the inverse mapping. It preserves the assistant's
// block sequence, provider/model/usage/stopReason, and tool-result fields in
// record metadata.
func MessagesToTranscript(messages []providers.Message) []session.TranscriptMessage {
	out := make([]session.TranscriptMessage, 0, len(messages))
	for _, m := range messages {
		switch msg := m.(type) {
		case *providers.UserMessage:
			out = append(out, session.TranscriptMessage{
				Role:      "user",
				Content:   msg.TextContent(),
				Timestamp: msg.Timestamp,
			})
		case *providers.AssistantMessage:
			out = append(out, session.TranscriptMessage{
				Role:      "assistant",
				Content:   msg.TextContent(),
				Timestamp: msg.Timestamp,
				Meta: map[string]interface{}{
					metaContentBlocks: msg.Content,
					metaProvider:      msg.Provider,
					metaModel:         msg.Model,
					metaUsage:         msg.Usage,
					metaStopReason:    msg.StopReason,
				},
			})
		case *providers.ToolResultMessage:
			out = append(out, session.TranscriptMessage{
				Role:       "tool",
				Content:    msg.TextContent(),
				Timestamp:  msg.Timestamp,
				ToolCallID: msg.ToolCallID,
				Meta: map[string]interface{}{
					metaToolName: msg.ToolName,
					metaIsError:  msg.IsError,
				},
			})
		}
	}
	return out
}

// RepairOrphanedToolCalls injects synthetic error tool-results for assistant
// tool calls that are not answered before the next assistant message (or the
// end of the list). Providers reject conversations with unanswered tool
// calls, so an interrupted session must be repaired before its next turn.
// The repair is idempotent and never removes or reorders input messages.
func RepairOrphanedToolCalls(messages []providers.Message) []providers.Message {
	out := make([]providers.Message, 0, len(messages))

	for i := 0; i < len(messages); i++ {
		out = append(out, messages[i])

		assistant, ok := messages[i].(*providers.AssistantMessage)
		if !ok {
			continue
		}
		calls := assistant.ToolCalls()
		if len(calls) == 0 {
			continue
		}

		answered := map[string]bool{}
		for j := i + 1; j < len(messages); j++ {
			if _, isAssistant := messages[j].(*providers.AssistantMessage); isAssistant {
				break
			}
			if result, isResult := messages[j].(*providers.ToolResultMessage); isResult {
				answered[result.ToolCallID] = true
			}
		}

		for _, call := range calls {
			if answered[call.ID] {
				continue
			}
			out = append(out, &providers.ToolResultMessage{
				ToolCallID: call.ID,
				ToolName:   call.Name,
				Content:    []providers.ContentBlock{providers.TextBlock(MissingToolResultText)},
				IsError:    true,
				Timestamp:  assistant.Timestamp,
			})
		}
	}
	return out
}
