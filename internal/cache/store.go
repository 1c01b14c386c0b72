package cache

import (
	"encoding/json"
	"os"
	"sort"

	"ScamRadar/internal/domain"
)

// Load hydrates the cache from its backing JSON document. A missing or
// malformed file degrades to an empty cache rather than failing startup.
func (c *FingerprintCache) Load() {
	c.mu.Lock()
	defer c.mu.Unlock()

	raw, err := os.ReadFile(c.path)
	if err != nil {
		if !os.IsNotExist(err) {
			c.warn("cache read failed, starting empty", "path", c.path, "error", err)
		}
		return
	}

	var entries []domain.HistoryEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		c.warn("cache document malformed, starting empty", "path", c.path, "error", err)
		return
	}

	for _, entry := range entries {
		if entry.Fingerprint == "" {
			continue
		}
		c.entries[entry.Fingerprint] = entry
	}

	c.debug("cache loaded", "entries", len(c.entries))
}

// Persist rewrites the full entry set to disk.
func (c *FingerprintCache) Persist() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.persistLocked()
}

// persistLocked writes the whole document; a failure is logged and the
// in-memory state stays authoritative for the running process. Caller
// holds the mutex.
func (c *FingerprintCache) persistLocked() {
	ordered := make([]domain.HistoryEntry, 0, len(c.entries))
	for _, entry := range c.entries {
		ordered = append(ordered, entry)
	}
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].Timestamp.Before(ordered[j].Timestamp)
	})

	raw, err := json.MarshalIndent(ordered, "", "  ")
	if err != nil {
		c.warn("cache marshal failed", "error", err)
		return
	}

	if err := os.WriteFile(c.path, raw, 0o644); err != nil {
		c.warn("cache write failed, keeping in-memory state", "path", c.path, "error", err)
	}
}
