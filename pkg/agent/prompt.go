// myclaw - personal AI assistant runtime
// License: MIT

package agent

import (
	"fmt"
	"runtime"
	"strings"
	"time"
)

const defaultIdentity = `You are myclaw, a personal AI assistant.
You are helpful, precise, and honest. You have access to the workspace and
its tools; prefer taking action through tools over describing actions.`

const safetySection = `# Safety

- Never fabricate tool results or pretend an action was executed.
- Never attempt to bypass workspace or permission restrictions.
- When a tool fails, report the failure honestly and adapt.`

// PromptSpec is the input to system-prompt composition. Section order in the
// output is fixed: identity, bootstrap files, tools, safety, runtime.
type PromptSpec struct {
	Identity   string // overrides the default identity text when non-empty
	Bootstrap  []BootstrapFile
	ToolNames  []string
	Model      string
	WorkingDir string
	Now        time.Time
}

// ComposeSystemPrompt concatenates the prompt sections joined by blank
// lines. The bootstrap and tools sections are omitted when empty.
func ComposeSystemPrompt(spec PromptSpec) string {
	sections := make([]string, 0, 5)

	identity := spec.Identity
	if identity == "" {
		identity = defaultIdentity
	}
	sections = append(sections, identity)

	if len(spec.Bootstrap) > 0 {
		var b strings.Builder
		b.WriteString("<bootstrap-files>\n")
		for _, f := range spec.Bootstrap {
			fmt.Fprintf(&b, "<file path=%q>\n%s\n</file>\n", f.Name, f.Content)
		}
		b.WriteString("</bootstrap-files>")
		sections = append(sections, b.String())
	}

	if len(spec.ToolNames) > 0 {
		var b strings.Builder
		b.WriteString("# Tools\n\n")
		b.WriteString("You can call the following tools:\n")
		for _, name := range spec.ToolNames {
			fmt.Fprintf(&b, "- %s\n", name)
		}
		b.WriteString("\nCall a tool whenever it helps; do not describe a tool call instead of making it.")
		sections = append(sections, b.String())
	}

	sections = append(sections, safetySection)

	now := spec.Now
	if now.IsZero() {
		now = time.Now()
	}
	var rt strings.Builder
	rt.WriteString("# Runtime\n\n")
	fmt.Fprintf(&rt, "Current time: %s\n", now.Format(time.RFC3339))
	fmt.Fprintf(&rt, "Platform: %s\n", runtime.GOOS)
	fmt.Fprintf(&rt, "Working directory: %s", spec.WorkingDir)
	if spec.Model != "" {
		fmt.Fprintf(&rt, "\nModel: %s", spec.Model)
	}
	sections = append(sections, rt.String())

	return strings.Join(sections, "\n\n")
}
