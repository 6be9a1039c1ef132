// myclaw - personal AI assistant runtime
// License: MIT

package tools

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// ExecTool runs a shell command inside the workspace. Output combines stdout
// and stderr the way a terminal would show it; a non-zero exit is reported in
// the output rather than failing the tool, so the model can react to it.
type ExecTool struct {
	workspace string
	timeout   time.Duration
}

const defaultExecTimeout = 2 * time.Minute

func NewExecTool(workspace string) *ExecTool {
	return &ExecTool{workspace: workspace, timeout: defaultExecTimeout}
}

func (t *ExecTool) Name() string        { return "exec" }
func (t *ExecTool) Label() string       { return "Run command" }
func (t *ExecTool) Description() string { return "Run a shell command in the workspace directory." }
func (t *ExecTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"command": map[string]interface{}{"type": "string", "description": "Shell command to run"},
		},
		"required": []string{"command"},
	}
}

func (t *ExecTool) Invoke(ctx context.Context, id string, args map[string]interface{}) (string, error) {
	command, err := stringArg(args, "command")
	if err != nil {
		return "", err
	}

	runCtx := ctx
	if t.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(runCtx, "sh", "-c", command)
	cmd.Dir = t.workspace
	output, err := cmd.CombinedOutput()

	var b strings.Builder
	b.Write(output)
	if err != nil {
		if runCtx.Err() == context.DeadlineExceeded {
			fmt.Fprintf(&b, "\n[command timed out after %s]", t.timeout)
		} else if exitErr, ok := err.(*exec.ExitError); ok {
			fmt.Fprintf(&b, "\n[exit code %d]", exitErr.ExitCode())
		} else {
			return "", fmt.Errorf("running command: %w", err)
		}
	}
	if b.Len() == 0 {
		return "(no output)", nil
	}
	return b.String(), nil
}
