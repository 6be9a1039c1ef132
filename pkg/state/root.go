// myclaw - personal AI assistant runtime
// License: MIT

package state

import (
	"os"
	"path/filepath"
)

// EnvStateDir overrides the default state root when set.
const EnvStateDir = "MYCLAW_STATE_DIR"

const defaultDirName = ".myclaw"

// Root resolves the state root directory: $MYCLAW_STATE_DIR if set, otherwise
// <home>/.myclaw. Falls back to a relative .myclaw when the home directory
// cannot be determined.
func Root() string {
	if dir := os.Getenv(EnvStateDir); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return defaultDirName
	}
	return filepath.Join(home, defaultDirName)
}

// SessionsDir returns <root>/sessions.
func SessionsDir(root string) string { return filepath.Join(root, "sessions") }

// WorkspaceDir returns <root>/workspace.
func WorkspaceDir(root string) string { return filepath.Join(root, "workspace") }

// LogsDir returns <root>/logs.
func LogsDir(root string) string { return filepath.Join(root, "logs") }

// EnsureLayout creates the standard directories under root.
func EnsureLayout(root string) error {
	for _, dir := range []string{root, SessionsDir(root), WorkspaceDir(root), LogsDir(root)} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return nil
}

const defaultAgentsMD = `# AGENTS.md

You are myclaw, a personal AI assistant with access to this workspace.

- Keep answers concise unless asked otherwise.
- When you change files, say what you changed.
- Never claim an action was performed unless a tool call actually ran.
`

// ScaffoldWorkspace ensures the workspace exists and seeds a default
// AGENTS.md on first run. An existing file is never overwritten.
func ScaffoldWorkspace(workspace string) error {
	if err := os.MkdirAll(workspace, 0o755); err != nil {
		return err
	}
	agentsPath := filepath.Join(workspace, "AGENTS.md")
	if _, err := os.Stat(agentsPath); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return err
	}
	return os.WriteFile(agentsPath, []byte(defaultAgentsMD), 0o644)
}
