package cache

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"ScamRadar/internal/domain"
)

func testAssessment(level domain.RiskLevel, score int) *domain.Assessment {
	return &domain.Assessment{
		RiskScore: score,
		RiskLevel: level,
		Summary:   "summary",
	}
}

func TestFingerprintIgnoresQueryAndFragment(t *testing.T) {
	t.Parallel()

	a, err := Fingerprint("https://example.com/login?utm_source=mail&id=42#top")
	require.NoError(t, err)
	b, err := Fingerprint("https://example.com/login?session=9")
	require.NoError(t, err)
	require.Equal(t, a, b)

	c, err := Fingerprint("https://example.com/checkout")
	require.NoError(t, err)
	require.NotEqual(t, a, c)

	d, err := Fingerprint("https://other.example.com/login")
	require.NoError(t, err)
	require.NotEqual(t, a, d)
}

func TestFingerprintRejectsInvalidURL(t *testing.T) {
	t.Parallel()

	for _, raw := range []string{"", "not a url", "/relative/path", "example.com/no-scheme"} {
		_, err := Fingerprint(raw)
		require.ErrorIs(t, err, domain.ErrInvalidCandidate, "input %q", raw)
	}
}

func TestHasBeenScannedEvictsExpired(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	c := New(filepath.Join(t.TempDir(), "history.json"), 30*24*time.Hour, 100, nil, WithClock(clock))

	require.NoError(t, c.RecordScan("https://example.com/page", testAssessment(domain.RiskLow, 20)))
	require.True(t, c.HasBeenScanned("https://example.com/page"))
	require.True(t, c.HasBeenScanned("https://example.com/page?utm=1"))

	now = now.Add(31 * 24 * time.Hour)
	require.False(t, c.HasBeenScanned("https://example.com/page"))
	require.Equal(t, 0, c.Len(), "expired entry must be evicted by the check itself")
}

func TestRecordScanOverwritesSameFingerprint(t *testing.T) {
	t.Parallel()

	c := New(filepath.Join(t.TempDir(), "history.json"), time.Hour, 100, nil)

	require.NoError(t, c.RecordScan("https://example.com/p?a=1", testAssessment(domain.RiskLow, 20)))
	require.NoError(t, c.RecordScan("https://example.com/p?b=2", testAssessment(domain.RiskHigh, 90)))

	require.Equal(t, 1, c.Len())
	entry, ok := c.Lookup("https://example.com/p")
	require.True(t, ok)
	require.Equal(t, 90, entry.RiskScore)
	require.Equal(t, domain.RiskHigh, entry.RiskLevel)
}

func TestRecordScanPrunesOldestTenth(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	const maxEntries = 20
	c := New(filepath.Join(t.TempDir(), "history.json"), 365*24*time.Hour, maxEntries, nil, WithClock(clock))

	urls := make([]string, 0, maxEntries+1)
	for i := 0; i <= maxEntries; i++ {
		u := fmt.Sprintf("https://example.com/page/%d", i)
		urls = append(urls, u)
		require.NoError(t, c.RecordScan(u, testAssessment(domain.RiskLow, 20)))
		now = now.Add(time.Minute)
	}

	// ceil(20 * 0.1) = 2 oldest entries removed once the cap is crossed.
	require.Equal(t, maxEntries+1-2, c.Len())
	for _, u := range urls[:2] {
		_, ok := c.Lookup(u)
		require.False(t, ok, "oldest entry %s should have been pruned", u)
	}
	_, ok := c.Lookup(urls[2])
	require.True(t, ok)
}

func TestLoadMissingAndMalformedDegradeToEmpty(t *testing.T) {
	t.Parallel()

	missing := New(filepath.Join(t.TempDir(), "absent.json"), time.Hour, 10, nil)
	missing.Load()
	require.Equal(t, 0, missing.Len())

	path := filepath.Join(t.TempDir(), "broken.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	malformed := New(path, time.Hour, 10, nil)
	malformed.Load()
	require.Equal(t, 0, malformed.Len())
}

func TestPersistRoundTrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "history.json")

	first := New(path, 24*time.Hour, 10, nil)
	require.NoError(t, first.RecordScan("https://example.com/a", testAssessment(domain.RiskMedium, 50)))

	second := New(path, 24*time.Hour, 10, nil)
	second.Load()

	entry, ok := second.Lookup("https://example.com/a")
	require.True(t, ok)
	require.Equal(t, 50, entry.RiskScore)
	require.Equal(t, "https://example.com/a", entry.URL)
}
