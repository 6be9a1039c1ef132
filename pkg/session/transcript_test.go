package session

import (
	"encoding/json"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKey = "agent:main:channel:cli:account:default:peer:direct:local"

func TestAppend_CreatesFileWithHeader(t *testing.T) {
	store := NewTranscriptStore(t.TempDir())
	require.NoError(t, store.Append(testKey, TranscriptMessage{Role: "user", Content: "hi", Timestamp: 1}))

	data, err := os.ReadFile(store.Path(testKey))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	require.Len(t, lines, 2)

	var header map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &header))
	assert.Equal(t, "session", header["type"])
	assert.Equal(t, testKey, header["sessionKey"])
	assert.NotZero(t, header["createdAt"])
}

func TestAppend_SecondAppendDoesNotDuplicateHeader(t *testing.T) {
	store := NewTranscriptStore(t.TempDir())
	require.NoError(t, store.Append(testKey, TranscriptMessage{Role: "user", Content: "one", Timestamp: 1}))
	require.NoError(t, store.Append(testKey, TranscriptMessage{Role: "assistant", Content: "two", Timestamp: 2}))

	data, _ := os.ReadFile(store.Path(testKey))
	assert.Equal(t, 1, strings.Count(string(data), `"type":"session"`))

	msgs, err := store.Load(testKey)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "one", msgs[0].Content)
	assert.Equal(t, "two", msgs[1].Content)
}

func TestLoad_SkipsBlankAndMalformedLines(t *testing.T) {
	store := NewTranscriptStore(t.TempDir())
	require.NoError(t, store.AppendBatch(testKey, []TranscriptMessage{
		{Role: "user", Content: "a", Timestamp: 1},
		{Role: "assistant", Content: "b", Timestamp: 2},
	}))

	// interleave garbage the way a crashed writer would leave it
	f, err := os.OpenFile(store.Path(testKey), os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, err = f.WriteString("\n{broken json\n\n")
	require.NoError(t, err)
	require.NoError(t, store.Append(testKey, TranscriptMessage{Role: "user", Content: "c", Timestamp: 3}))
	f.Close()

	msgs, err := store.Load(testKey)
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	assert.Equal(t, []string{"a", "b", "c"}, []string{msgs[0].Content, msgs[1].Content, msgs[2].Content})

	n, err := store.Count(testKey)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestLoad_RoundTripsMetaAndToolCallID(t *testing.T) {
	store := NewTranscriptStore(t.TempDir())
	msg := TranscriptMessage{
		Role:       "tool",
		Content:    "ok",
		Timestamp:  42,
		ToolCallID: "tc1",
		Meta: map[string]interface{}{
			"toolName": "exec",
			"isError":  false,
		},
	}
	require.NoError(t, store.Append(testKey, msg))

	msgs, err := store.Load(testKey)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "tc1", msgs[0].ToolCallID)
	assert.Equal(t, "exec", msgs[0].Meta["toolName"])
}

func TestLoad_ToleratesUnknownFields(t *testing.T) {
	dir := t.TempDir()
	store := NewTranscriptStore(dir)
	require.NoError(t, store.Append(testKey, TranscriptMessage{Role: "user", Content: "x", Timestamp: 1}))

	f, err := os.OpenFile(store.Path(testKey), os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, err = f.WriteString(`{"role":"assistant","content":"y","ts":2,"futureField":{"a":1}}` + "\n")
	require.NoError(t, err)
	f.Close()

	msgs, err := store.Load(testKey)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "y", msgs[1].Content)
}

func TestDelete_Idempotent(t *testing.T) {
	store := NewTranscriptStore(t.TempDir())
	require.NoError(t, store.Append(testKey, TranscriptMessage{Role: "user", Content: "x", Timestamp: 1}))

	removed, err := store.Delete(testKey)
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = store.Delete(testKey)
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestLoad_MissingFile(t *testing.T) {
	store := NewTranscriptStore(t.TempDir())
	msgs, err := store.Load(testKey)
	require.NoError(t, err)
	assert.Empty(t, msgs)
}
