package session

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strp(s string) *string { return &s }
func i64p(n int64) *int64   { return &n }

func TestIndex_LoadMissing(t *testing.T) {
	ix := NewIndex(t.TempDir())
	entries, err := ix.Load()
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestUpsertMeta_CreateThenMerge(t *testing.T) {
	ix := NewIndex(t.TempDir())

	created, err := ix.UpsertMeta(testKey, EntryPatch{Model: strp("claude-sonnet-4-5")})
	require.NoError(t, err)
	assert.NotEmpty(t, created.SessionID)
	assert.Equal(t, Slug(testKey)+".jsonl", created.SessionFile)
	assert.Equal(t, "claude-sonnet-4-5", created.Model)
	assert.NotZero(t, created.UpdatedAt)

	time.Sleep(2 * time.Millisecond)
	updated, err := ix.UpsertMeta(testKey, EntryPatch{TotalTokens: i64p(150), LastChannel: strp("cli")})
	require.NoError(t, err)
	assert.Equal(t, created.SessionID, updated.SessionID, "identifier is immutable")
	assert.Equal(t, created.SessionFile, updated.SessionFile, "filename is immutable")
	assert.Equal(t, "claude-sonnet-4-5", updated.Model, "unpatched fields survive")
	assert.Equal(t, int64(150), updated.TotalTokens)
	assert.GreaterOrEqual(t, updated.UpdatedAt, created.UpdatedAt)
}

func TestLoad_ReturnsDefensiveCopy(t *testing.T) {
	ix := NewIndex(t.TempDir())
	_, err := ix.UpsertMeta(testKey, EntryPatch{Extra: map[string]interface{}{"k": "v"}})
	require.NoError(t, err)

	first, err := ix.Load()
	require.NoError(t, err)
	second, err := ix.Load()
	require.NoError(t, err)

	assert.Equal(t, first, second)

	// mutating one copy must not leak into the next load
	e := first[testKey]
	e.Model = "tampered"
	e.Extra["k"] = "tampered"
	first[testKey] = e

	third, err := ix.Load()
	require.NoError(t, err)
	assert.Empty(t, third[testKey].Model)
	assert.Equal(t, "v", third[testKey].Extra["k"])
}

func TestLoad_CorruptFilePreservedAsBackup(t *testing.T) {
	dir := t.TempDir()
	ix := NewIndex(dir)
	require.NoError(t, os.WriteFile(ix.Path(), []byte("{corrupt"), 0o644))

	entries, err := ix.Load()
	require.NoError(t, err)
	assert.Empty(t, entries)

	matches, err := filepath.Glob(ix.Path() + ".bak.*")
	require.NoError(t, err)
	require.Len(t, matches, 1)
	data, _ := os.ReadFile(matches[0])
	assert.Equal(t, "{corrupt", string(data))
}

func TestSave_PrettyPrinted(t *testing.T) {
	ix := NewIndex(t.TempDir())
	_, err := ix.UpsertMeta(testKey, EntryPatch{})
	require.NoError(t, err)
	data, err := os.ReadFile(ix.Path())
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), "\n  "), "index should be pretty-printed")
}

func TestDelete(t *testing.T) {
	ix := NewIndex(t.TempDir())
	_, err := ix.UpsertMeta(testKey, EntryPatch{})
	require.NoError(t, err)

	present, err := ix.Delete(testKey)
	require.NoError(t, err)
	assert.True(t, present)

	present, err = ix.Delete(testKey)
	require.NoError(t, err)
	assert.False(t, present)
}

func TestPrune(t *testing.T) {
	ix := NewIndex(t.TempDir())
	require.NoError(t, ix.Update(func(entries map[string]SessionEntry) {
		entries["old"] = SessionEntry{SessionID: "1", UpdatedAt: time.Now().Add(-48 * time.Hour).UnixMilli()}
		entries["new"] = SessionEntry{SessionID: "2", UpdatedAt: time.Now().UnixMilli()}
	}))

	pruned, err := ix.Prune(24 * time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, pruned)

	keys, err := ix.List()
	require.NoError(t, err)
	assert.Equal(t, []string{"new"}, keys)
}
