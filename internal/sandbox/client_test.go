package sandbox

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"ScamRadar/internal/domain"
	"ScamRadar/internal/ports"
)

// stubAPI scripts poll responses by attempt number.
type stubAPI struct {
	mu        sync.Mutex
	polls     int
	submitID  string
	submitErr error
	script    func(attempt int) (ports.PollResult, error)
}

func (s *stubAPI) Submit(context.Context, string) (string, error) {
	if s.submitErr != nil {
		return "", s.submitErr
	}
	if s.submitID == "" {
		return "sub-1", nil
	}
	return s.submitID, nil
}

func (s *stubAPI) Poll(context.Context, string) (ports.PollResult, error) {
	s.mu.Lock()
	s.polls++
	attempt := s.polls
	s.mu.Unlock()
	return s.script(attempt)
}

func readyReport() *ports.ScanReport {
	age := 7.5
	return &ports.ScanReport{
		Page:      ports.ReportPage{Domain: "login.example.net", URL: "https://login.example.net/"},
		Redirects: []string{"https://short.example/x", "https://login.example.net/"},
		Stats:     ports.ReportStats{Requests: 42, ThirdPartyDomains: 9},
		Flags:     []string{"credential-harvesting form"},
		Verdicts:  ports.ReportVerdicts{Malicious: true, Phishing: true, Score: 80},
		Whois:     &ports.ReportWhois{DomainAgeDays: &age},
	}
}

func TestScanReadyAfterPendingPolls(t *testing.T) {
	t.Parallel()

	api := &stubAPI{script: func(attempt int) (ports.PollResult, error) {
		if attempt < 5 {
			return ports.PollResult{Status: ports.PollPending}, nil
		}
		return ports.PollResult{Status: ports.PollReady, Report: readyReport()}, nil
	}}

	client := New(api, time.Millisecond, 15, nil)
	result, err := client.Scan(context.Background(), "https://login.example.net/")
	require.NoError(t, err)
	require.Equal(t, domain.StateReady, result.State)
	require.Equal(t, 5, api.polls, "ready on the fifth poll exactly")
	require.Equal(t, "sub-1", result.SubmissionID)

	meta := result.Metadata
	require.NotNil(t, meta)
	require.Equal(t, "login.example.net", meta.Hostname)
	require.Len(t, meta.RedirectChain, 2)
	require.Equal(t, 42, meta.RequestCount)
	require.Equal(t, 9, meta.ThirdPartyDomains)
	require.Equal(t, []string{"credential-harvesting form"}, meta.DOMFlags)
	require.True(t, meta.Verdicts.Malicious)
	require.True(t, meta.Verdicts.Phishing)
	require.False(t, meta.Verdicts.Malware)
	require.Equal(t, 80, meta.Verdicts.Score)
	require.NotNil(t, meta.DomainAgeDays)
	require.InDelta(t, 7.5, *meta.DomainAgeDays, 0.001)
}

func TestScanTimesOutAfterAttemptBudget(t *testing.T) {
	t.Parallel()

	api := &stubAPI{script: func(int) (ports.PollResult, error) {
		return ports.PollResult{Status: ports.PollPending}, nil
	}}

	client := New(api, time.Millisecond, 15, nil)
	result, err := client.Scan(context.Background(), "https://slow.example/")
	require.NoError(t, err, "timeout degrades, it does not throw")
	require.Equal(t, domain.StateTimedOut, result.State)
	require.Equal(t, 15, api.polls)
	require.NotEmpty(t, result.Error)
	require.Nil(t, result.Metadata)
}

func TestScanSubmitRejectionIsSynchronousFailure(t *testing.T) {
	t.Parallel()

	api := &stubAPI{submitErr: errors.New("quota exceeded")}
	client := New(api, time.Millisecond, 15, nil)

	_, err := client.Scan(context.Background(), "https://rejected.example/")
	require.ErrorIs(t, err, domain.ErrProviderUnavailable)
	require.Equal(t, 0, api.polls, "state never enters pending")
}

func TestScanFailedStatusIsTerminal(t *testing.T) {
	t.Parallel()

	api := &stubAPI{script: func(attempt int) (ports.PollResult, error) {
		if attempt == 1 {
			return ports.PollResult{Status: ports.PollPending}, nil
		}
		return ports.PollResult{Status: ports.PollFailed}, nil
	}}

	client := New(api, time.Millisecond, 15, nil)
	result, err := client.Scan(context.Background(), "https://broken.example/")
	require.NoError(t, err)
	require.Equal(t, domain.StateFailed, result.State)
	require.Equal(t, 2, api.polls)
	require.NotEmpty(t, result.Error)
}

func TestScanPollTransportErrorIsTerminal(t *testing.T) {
	t.Parallel()

	api := &stubAPI{script: func(int) (ports.PollResult, error) {
		return ports.PollResult{}, errors.New("connection reset")
	}}

	client := New(api, time.Millisecond, 15, nil)
	result, err := client.Scan(context.Background(), "https://flaky.example/")
	require.NoError(t, err)
	require.Equal(t, domain.StateFailed, result.State)
	require.Equal(t, 1, api.polls)
	require.Contains(t, result.Error, "connection reset")
}
