// myclaw - personal AI assistant runtime
// License: MIT

package agent

import (
	"os"
	"path/filepath"
	"strings"
)

// Bootstrap markdown files are injected into the system prompt in this fixed
// order. Missing, unreadable, and whitespace-only files are skipped.
var bootstrapFileNames = []string{
	"AGENTS.md",
	"SOUL.md",
	"USER.md",
	"TOOLS.md",
	"IDENTITY.md",
	"MEMORY.md",
	"HEARTBEAT.md",
	"BOOTSTRAP.md",
}

const (
	defaultBootstrapFileMaxChars  = 50000
	defaultBootstrapTotalMaxChars = 200000
)

// BootstrapFile is one loaded workspace document.
type BootstrapFile struct {
	Name    string
	Content string
}

// BootstrapLoader reads the ordered candidate files with per-file and total
// size caps. Zero cap fields take the defaults.
type BootstrapLoader struct {
	PerFileMaxChars int
	TotalMaxChars   int
}

func (l BootstrapLoader) perFileCap() int {
	if l.PerFileMaxChars > 0 {
		return l.PerFileMaxChars
	}
	return defaultBootstrapFileMaxChars
}

func (l BootstrapLoader) totalCap() int {
	if l.TotalMaxChars > 0 {
		return l.TotalMaxChars
	}
	return defaultBootstrapTotalMaxChars
}

// Load returns the ordered list of (name, content) pairs actually loaded
// from the workspace. When the running total would exceed the total cap, the
// file that crosses it is included as the prefix that still fits and loading
// stops.
func (l BootstrapLoader) Load(workspace string) []BootstrapFile {
	perFile := l.perFileCap()
	budget := l.totalCap()

	var out []BootstrapFile
	for _, name := range bootstrapFileNames {
		if budget <= 0 {
			break
		}
		data, err := os.ReadFile(filepath.Join(workspace, name))
		if err != nil {
			continue
		}
		content := string(data)
		if strings.TrimSpace(content) == "" {
			continue
		}
		if len(content) > perFile {
			content = content[:perFile]
		}
		if len(content) > budget {
			content = content[:budget]
		}
		budget -= len(content)
		out = append(out, BootstrapFile{Name: name, Content: content})
	}
	return out
}
