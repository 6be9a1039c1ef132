package agent

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/myclaw/myclaw/pkg/providers"
)

func userMsg(text string, ts int64) *providers.UserMessage {
	return &providers.UserMessage{Content: []providers.ContentBlock{providers.TextBlock(text)}, Timestamp: ts}
}

func assistantMsg(text string, ts int64) *providers.AssistantMessage {
	return &providers.AssistantMessage{Content: []providers.ContentBlock{providers.TextBlock(text)}, Timestamp: ts}
}

func TestCompact_ShortListUnchanged(t *testing.T) {
	guard := OverflowGuard{KeepRecent: 10}
	msgs := []providers.Message{userMsg("a", 1), assistantMsg("b", 2)}

	out, changed, err := guard.Compact(context.Background(), msgs, func(ctx context.Context, prompt string) (string, error) {
		t.Fatal("summarizer must not run for short lists")
		return "", nil
	})
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, msgs, out)
}

func TestCompact_ReplacesOldWithSummary(t *testing.T) {
	guard := OverflowGuard{KeepRecent: 2}
	msgs := []providers.Message{
		userMsg("first question", 1),
		assistantMsg("first answer", 2),
		&providers.ToolResultMessage{
			ToolName:  "exec",
			Content:   []providers.ContentBlock{providers.TextBlock(strings.Repeat("x", 800))},
			Timestamp: 3,
		},
		userMsg("recent question", 4),
		assistantMsg("recent answer", 5),
	}

	var seenPrompt string
	out, changed, err := guard.Compact(context.Background(), msgs, func(ctx context.Context, prompt string) (string, error) {
		seenPrompt = prompt
		return "they discussed things", nil
	})
	require.NoError(t, err)
	assert.True(t, changed)
	require.Len(t, out, 3)

	summary, ok := out[0].(*providers.UserMessage)
	require.True(t, ok)
	assert.True(t, strings.HasPrefix(summary.TextContent(), SummaryMarker))
	assert.Contains(t, summary.TextContent(), "they discussed things")
	assert.Same(t, msgs[3], out[1])
	assert.Same(t, msgs[4], out[2])

	assert.Contains(t, seenPrompt, "User: first question")
	assert.Contains(t, seenPrompt, "Assistant: first answer")
	assert.Contains(t, seenPrompt, "Tool (exec):")
	// tool text in the rendered prompt is clamped to 500 chars per record
	assert.NotContains(t, seenPrompt, strings.Repeat("x", 501))
}

func TestCompact_SummarizerError(t *testing.T) {
	guard := OverflowGuard{KeepRecent: 1}
	msgs := []providers.Message{userMsg("a", 1), assistantMsg("b", 2)}
	_, changed, err := guard.Compact(context.Background(), msgs, func(ctx context.Context, prompt string) (string, error) {
		return "", errors.New("provider down")
	})
	assert.Error(t, err)
	assert.False(t, changed)
}

func TestTruncateToolResults(t *testing.T) {
	guard := OverflowGuard{ToolResultMaxChars: 100}
	small := &providers.ToolResultMessage{
		ToolName: "read_file",
		Content:  []providers.ContentBlock{providers.TextBlock("small")},
	}
	big := &providers.ToolResultMessage{
		ToolName: "exec",
		Content: []providers.ContentBlock{
			providers.TextBlock(strings.Repeat("y", 250)),
			providers.TextBlock("fine"),
		},
	}
	user := userMsg("hi", 1)

	out, changed := guard.TruncateToolResults([]providers.Message{user, small, big})
	assert.True(t, changed)
	assert.Same(t, providers.Message(user), out[0])
	assert.Same(t, providers.Message(small), out[1], "under-cap results keep their identity")

	clamped := out[2].(*providers.ToolResultMessage)
	assert.NotSame(t, big, clamped)
	text := clamped.Content[0].Text
	assert.True(t, strings.HasPrefix(text, strings.Repeat("y", 100)))
	assert.Contains(t, text, "[truncated 150 chars]")
	assert.Equal(t, "fine", clamped.Content[1].Text, "under-cap parts untouched")
}

func TestTruncateToolResults_NoChange(t *testing.T) {
	guard := OverflowGuard{ToolResultMaxChars: 100}
	msgs := []providers.Message{userMsg("a", 1)}
	out, changed := guard.TruncateToolResults(msgs)
	assert.False(t, changed)
	assert.Equal(t, msgs, out)
}
