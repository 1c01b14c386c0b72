package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"math"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"ScamRadar/internal/domain"
)

// Fingerprint derives the stable cache identity of a URL: a SHA-256 hex
// digest over scheme, lowercased host, and path. Query string and
// fragment are discarded so repeated visits to the same page with
// different tracking parameters share an identity.
func Fingerprint(raw string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("%w: %q", domain.ErrInvalidCandidate, raw)
	}

	normalized := u.Scheme + "://" + strings.ToLower(u.Host) + u.Path
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:]), nil
}

// FingerprintCache gates every candidate: it remembers prior scan
// outcomes per URL fingerprint with a retention window and a hard size
// cap. The in-memory map is authoritative; the backing JSON document is
// rewritten wholesale after every mutation. Single-writer: concurrent
// process instances sharing one file are unsupported.
type FingerprintCache struct {
	path       string
	retention  time.Duration
	maxEntries int
	logger     *slog.Logger
	now        func() time.Time

	mu      sync.Mutex
	entries map[string]domain.HistoryEntry
}

// Option tweaks cache construction.
type Option func(*FingerprintCache)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(c *FingerprintCache) { c.now = now }
}

// New builds an empty cache; call Load to hydrate it from disk.
func New(path string, retention time.Duration, maxEntries int, logger *slog.Logger, opts ...Option) *FingerprintCache {
	c := &FingerprintCache{
		path:       path,
		retention:  retention,
		maxEntries: maxEntries,
		logger:     logger,
		now:        time.Now,
		entries:    map[string]domain.HistoryEntry{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// HasBeenScanned reports whether a non-expired entry exists for the URL.
// An expired entry found during the check is evicted as a side effect.
func (c *FingerprintCache) HasBeenScanned(raw string) bool {
	fp, err := Fingerprint(raw)
	if err != nil {
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[fp]
	if !ok {
		return false
	}

	if c.now().Sub(entry.Timestamp) > c.retention {
		delete(c.entries, fp)
		c.persistLocked()
		return false
	}

	return true
}

// Lookup returns the non-expired entry for the URL, if any. Unlike
// HasBeenScanned it does not mutate the cache.
func (c *FingerprintCache) Lookup(raw string) (domain.HistoryEntry, bool) {
	fp, err := Fingerprint(raw)
	if err != nil {
		return domain.HistoryEntry{}, false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[fp]
	if !ok || c.now().Sub(entry.Timestamp) > c.retention {
		return domain.HistoryEntry{}, false
	}
	return entry, true
}

// RecordScan upserts the history entry for the assessed URL, prunes the
// oldest tenth when the size cap is exceeded, and persists.
func (c *FingerprintCache) RecordScan(raw string, assessment *domain.Assessment) error {
	fp, err := Fingerprint(raw)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[fp] = domain.HistoryEntry{
		Fingerprint: fp,
		URL:         raw,
		Timestamp:   c.now(),
		RiskScore:   assessment.RiskScore,
		RiskLevel:   assessment.RiskLevel,
		Summary:     assessment.Summary,
	}

	if len(c.entries) > c.maxEntries {
		c.pruneLocked()
	}

	c.persistLocked()
	return nil
}

// Len reports the current entry count.
func (c *FingerprintCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// pruneLocked removes ceil(maxEntries*0.1) entries with the oldest
// timestamps. Caller holds the mutex.
func (c *FingerprintCache) pruneLocked() {
	victims := int(math.Ceil(float64(c.maxEntries) * 0.1))
	if victims <= 0 {
		return
	}

	ordered := make([]domain.HistoryEntry, 0, len(c.entries))
	for _, entry := range c.entries {
		ordered = append(ordered, entry)
	}
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].Timestamp.Before(ordered[j].Timestamp)
	})

	if victims > len(ordered) {
		victims = len(ordered)
	}
	for _, entry := range ordered[:victims] {
		delete(c.entries, entry.Fingerprint)
	}

	c.debug("pruned cache", "removed", victims, "remaining", len(c.entries))
}

func (c *FingerprintCache) debug(msg string, args ...any) {
	if c.logger != nil {
		c.logger.Debug(msg, args...)
	}
}

func (c *FingerprintCache) warn(msg string, args ...any) {
	if c.logger != nil {
		c.logger.Warn(msg, args...)
	}
}
