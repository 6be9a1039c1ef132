// myclaw - personal AI assistant runtime
// License: MIT

package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

// SessionEntry is one row of the metadata index. SessionID and SessionFile
// are immutable after creation; UpdatedAt refreshes on every write.
type SessionEntry struct {
	SessionID   string                 `json:"sessionId"`
	UpdatedAt   int64                  `json:"updatedAt"`
	SessionFile string                 `json:"sessionFile"`
	LastChannel string                 `json:"lastChannel,omitempty"`
	LastTo      string                 `json:"lastTo,omitempty"`
	ChatType    string                 `json:"chatType,omitempty"`
	Model       string                 `json:"model,omitempty"`
	TotalTokens int64                  `json:"totalTokens,omitempty"`
	Extra       map[string]interface{} `json:"extra,omitempty"`
}

// EntryPatch carries the mutable annotations of an upsert. Nil fields leave
// the existing value in place.
type EntryPatch struct {
	LastChannel *string
	LastTo      *string
	ChatType    *string
	Model       *string
	TotalTokens *int64
	Extra       map[string]interface{}
}

// Index is the single-file session metadata map at
// <sessionsDir>/sessions.json. An in-memory cache keyed by the file's
// last-modified time avoids re-parsing; cached loads hand out deep copies so
// callers cannot mutate shared state.
type Index struct {
	mu         sync.Mutex
	path       string
	cache      map[string]SessionEntry
	cachedMod  time.Time
	cacheValid bool
}

func NewIndex(sessionsDir string) *Index {
	return &Index{path: filepath.Join(sessionsDir, "sessions.json")}
}

// Path returns the index file location.
func (ix *Index) Path() string { return ix.path }

func copyEntries(m map[string]SessionEntry) map[string]SessionEntry {
	out := make(map[string]SessionEntry, len(m))
	for k, e := range m {
		if e.Extra != nil {
			extra := make(map[string]interface{}, len(e.Extra))
			for ek, ev := range e.Extra {
				extra[ek] = ev
			}
			e.Extra = extra
		}
		out[k] = e
	}
	return out
}

// Load returns the index contents. A missing file yields an empty map. A
// corrupt file is preserved as sessions.json.bak.<ts> and an empty map is
// returned.
func (ix *Index) Load() (map[string]SessionEntry, error) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	return ix.loadLocked(false)
}

func (ix *Index) loadLocked(bypassCache bool) (map[string]SessionEntry, error) {
	st, err := os.Stat(ix.path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]SessionEntry{}, nil
		}
		return nil, err
	}

	if !bypassCache && ix.cacheValid && st.ModTime().Equal(ix.cachedMod) {
		return copyEntries(ix.cache), nil
	}

	data, err := os.ReadFile(ix.path)
	if err != nil {
		return nil, err
	}

	var entries map[string]SessionEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		backup := fmt.Sprintf("%s.bak.%d", ix.path, time.Now().UnixMilli())
		_ = os.Rename(ix.path, backup)
		ix.cacheValid = false
		return map[string]SessionEntry{}, nil
	}
	if entries == nil {
		entries = map[string]SessionEntry{}
	}

	ix.cache = copyEntries(entries)
	ix.cachedMod = st.ModTime()
	ix.cacheValid = true
	return entries, nil
}

// Save writes the whole map pretty-printed and refreshes the cache.
func (ix *Index) Save(entries map[string]SessionEntry) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	return ix.saveLocked(entries)
}

func (ix *Index) saveLocked(entries map[string]SessionEntry) error {
	if err := os.MkdirAll(filepath.Dir(ix.path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(ix.path, append(data, '\n'), 0o644); err != nil {
		return err
	}
	st, err := os.Stat(ix.path)
	if err != nil {
		ix.cacheValid = false
		return nil
	}
	ix.cache = copyEntries(entries)
	ix.cachedMod = st.ModTime()
	ix.cacheValid = true
	return nil
}

// Update loads with the cache bypassed, applies the mutator to a mutable
// copy, and saves the result.
func (ix *Index) Update(mutate func(entries map[string]SessionEntry)) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	entries, err := ix.loadLocked(true)
	if err != nil {
		return err
	}
	mutate(entries)
	return ix.saveLocked(entries)
}

// UpsertMeta merges a patch into the entry for key, creating the entry with a
// fresh identifier and derived filename when absent. UpdatedAt is refreshed
// either way. Returns the resulting entry.
func (ix *Index) UpsertMeta(key string, patch EntryPatch) (SessionEntry, error) {
	var result SessionEntry
	err := ix.Update(func(entries map[string]SessionEntry) {
		entry, ok := entries[key]
		if !ok {
			entry = SessionEntry{
				SessionID:   uuid.NewString(),
				SessionFile: FileName(key),
			}
		}
		if patch.LastChannel != nil {
			entry.LastChannel = *patch.LastChannel
		}
		if patch.LastTo != nil {
			entry.LastTo = *patch.LastTo
		}
		if patch.ChatType != nil {
			entry.ChatType = *patch.ChatType
		}
		if patch.Model != nil {
			entry.Model = *patch.Model
		}
		if patch.TotalTokens != nil {
			entry.TotalTokens = *patch.TotalTokens
		}
		if len(patch.Extra) > 0 {
			if entry.Extra == nil {
				entry.Extra = map[string]interface{}{}
			}
			for k, v := range patch.Extra {
				entry.Extra[k] = v
			}
		}
		entry.UpdatedAt = time.Now().UnixMilli()
		entries[key] = entry
		result = entry
	})
	return result, err
}

// Delete removes the entry for key and reports whether it was present.
func (ix *Index) Delete(key string) (bool, error) {
	present := false
	err := ix.Update(func(entries map[string]SessionEntry) {
		_, present = entries[key]
		delete(entries, key)
	})
	return present, err
}

// List returns all session keys in the index.
func (ix *Index) List() ([]string, error) {
	entries, err := ix.Load()
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(entries))
	for k := range entries {
		keys = append(keys, k)
	}
	return keys, nil
}

// Prune removes entries not updated within maxAge and returns how many were
// dropped.
func (ix *Index) Prune(maxAge time.Duration) (int, error) {
	cutoff := time.Now().Add(-maxAge).UnixMilli()
	pruned := 0
	err := ix.Update(func(entries map[string]SessionEntry) {
		for k, e := range entries {
			if e.UpdatedAt < cutoff {
				delete(entries, k)
				pruned++
			}
		}
	})
	return pruned, err
}
