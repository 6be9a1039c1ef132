package agent

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComposeSystemPrompt_SectionOrder(t *testing.T) {
	prompt := ComposeSystemPrompt(PromptSpec{
		Bootstrap:  []BootstrapFile{{Name: "AGENTS.md", Content: "be useful"}},
		ToolNames:  []string{"read_file", "exec"},
		Model:      "claude-sonnet-4-5",
		WorkingDir: "/tmp/ws",
		Now:        time.Date(2026, 8, 6, 12, 0, 0, 0, time.UTC),
	})

	identityIdx := strings.Index(prompt, "You are myclaw")
	bootstrapIdx := strings.Index(prompt, "<bootstrap-files>")
	toolsIdx := strings.Index(prompt, "# Tools")
	safetyIdx := strings.Index(prompt, "# Safety")
	runtimeIdx := strings.Index(prompt, "# Runtime")

	for name, idx := range map[string]int{
		"identity": identityIdx, "bootstrap": bootstrapIdx,
		"tools": toolsIdx, "safety": safetyIdx, "runtime": runtimeIdx,
	} {
		require.GreaterOrEqual(t, idx, 0, "section %s missing", name)
	}
	assert.Less(t, identityIdx, bootstrapIdx)
	assert.Less(t, bootstrapIdx, toolsIdx)
	assert.Less(t, toolsIdx, safetyIdx)
	assert.Less(t, safetyIdx, runtimeIdx)

	assert.Contains(t, prompt, `<file path="AGENTS.md">`)
	assert.Contains(t, prompt, "- read_file")
	assert.Contains(t, prompt, "2026-08-06T12:00:00Z")
	assert.Contains(t, prompt, "Model: claude-sonnet-4-5")
	assert.Contains(t, prompt, "Working directory: /tmp/ws")
}

func TestComposeSystemPrompt_OmitsEmptySections(t *testing.T) {
	prompt := ComposeSystemPrompt(PromptSpec{WorkingDir: "/w"})
	assert.NotContains(t, prompt, "<bootstrap-files>")
	assert.NotContains(t, prompt, "# Tools")
	assert.Contains(t, prompt, "# Safety")
	assert.Contains(t, prompt, "# Runtime")
}

func TestComposeSystemPrompt_IdentityOverride(t *testing.T) {
	prompt := ComposeSystemPrompt(PromptSpec{Identity: "You are a test harness."})
	assert.True(t, strings.HasPrefix(prompt, "You are a test harness."))
	assert.NotContains(t, prompt, "You are myclaw")
}
