// myclaw - personal AI assistant runtime
// License: MIT

package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/myclaw/myclaw/pkg/providers"
)

// Summarizer produces a summary for a rendered history prompt. The run loop
// injects a closure over the active provider here, which keeps this package
// from calling providers directly.
type Summarizer func(ctx context.Context, prompt string) (string, error)

// SummaryMarker prefixes the synthetic user message that replaces compacted
// history.
const SummaryMarker = "[Conversation summary]"

const summaryDirective = "Summarize the conversation below concisely. " +
	"Preserve key facts, decisions, file paths, open tasks, and anything the " +
	"assistant promised to do. Reply with the summary only."

const compactRenderToolResultMax = 500

// OverflowGuard recovers from context-window overflow in two stages:
// compaction of older history into an LLM-produced summary, then truncation
// of oversized tool results. Zero fields take the defaults.
type OverflowGuard struct {
	KeepRecent         int // messages preserved verbatim by compaction
	ToolResultMaxChars int // per-text-part cap for the truncation stage
}

func (g OverflowGuard) keepRecent() int {
	if g.KeepRecent > 0 {
		return g.KeepRecent
	}
	return 10
}

func (g OverflowGuard) toolResultCap() int {
	if g.ToolResultMaxChars > 0 {
		return g.ToolResultMaxChars
	}
	return 20000
}

// Compact replaces all but the most recent KeepRecent messages with a single
// summary message. Returns the new list and whether anything changed; a list
// no longer than KeepRecent is returned unchanged.
func (g OverflowGuard) Compact(ctx context.Context, messages []providers.Message, summarize Summarizer) ([]providers.Message, bool, error) {
	keep := g.keepRecent()
	if len(messages) <= keep {
		return messages, false, nil
	}

	old := messages[:len(messages)-keep]
	recent := messages[len(messages)-keep:]

	summary, err := summarize(ctx, g.renderSummaryPrompt(old))
	if err != nil {
		return messages, false, fmt.Errorf("summarizing history: %w", err)
	}

	summaryMsg := &providers.UserMessage{
		Content: []providers.ContentBlock{
			providers.TextBlock(SummaryMarker + "\n" + strings.TrimSpace(summary)),
		},
		Timestamp: old[len(old)-1].Time(),
	}

	out := make([]providers.Message, 0, len(recent)+1)
	out = append(out, summaryMsg)
	out = append(out, recent...)
	return out, true, nil
}

func (g OverflowGuard) renderSummaryPrompt(old []providers.Message) string {
	var b strings.Builder
	b.WriteString(summaryDirective)
	b.WriteString("\n\n")
	for _, m := range old {
		switch msg := m.(type) {
		case *providers.UserMessage:
			fmt.Fprintf(&b, "User: %s\n", msg.TextContent())
		case *providers.AssistantMessage:
			fmt.Fprintf(&b, "Assistant: %s\n", msg.TextContent())
		case *providers.ToolResultMessage:
			text := msg.TextContent()
			if len(text) > compactRenderToolResultMax {
				text = text[:compactRenderToolResultMax]
			}
			fmt.Fprintf(&b, "Tool (%s): %s\n", msg.ToolName, text)
		}
	}
	return b.String()
}

// TruncateToolResults clamps oversized tool-result text parts to the
// configured cap, marking the omitted length. Under-cap parts and non-text
// parts keep their identity; messages without oversized parts are returned
// as-is.
func (g OverflowGuard) TruncateToolResults(messages []providers.Message) ([]providers.Message, bool) {
	maxChars := g.toolResultCap()
	changed := false

	out := make([]providers.Message, len(messages))
	for i, m := range messages {
		out[i] = m
		result, ok := m.(*providers.ToolResultMessage)
		if !ok {
			continue
		}

		oversized := false
		for _, b := range result.Content {
			if b.Type == providers.BlockText && len(b.Text) > maxChars {
				oversized = true
				break
			}
		}
		if !oversized {
			continue
		}

		clamped := &providers.ToolResultMessage{
			ToolCallID: result.ToolCallID,
			ToolName:   result.ToolName,
			IsError:    result.IsError,
			Timestamp:  result.Timestamp,
			Content:    make([]providers.ContentBlock, len(result.Content)),
		}
		for j, b := range result.Content {
			if b.Type == providers.BlockText && len(b.Text) > maxChars {
				omitted := len(b.Text) - maxChars
				clamped.Content[j] = providers.TextBlock(
					b.Text[:maxChars] + fmt.Sprintf("\n[truncated %d chars]", omitted))
			} else {
				clamped.Content[j] = b
			}
		}
		out[i] = clamped
		changed = true
	}
	return out, changed
}
