package sandbox

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"ScamRadar/internal/domain"
	"ScamRadar/internal/ports"
)

const (
	// DefaultPollInterval is the fixed wait between result polls.
	DefaultPollInterval = 2 * time.Second
	// DefaultMaxAttempts bounds the poll budget (~30s wall clock).
	DefaultMaxAttempts = 15
)

// Client drives one submission through the provider's asynchronous
// protocol: Submitting -> Pending -> poll cycle -> Ready/Failed/TimedOut.
// Bounding both interval and attempts keeps a slow external scan from
// stalling the submission queue, which awaits Scan synchronously.
type Client struct {
	api         ports.SandboxAPI
	interval    time.Duration
	maxAttempts int
	logger      *slog.Logger
}

// New wires the raw provider API; zero interval/attempts fall back to
// the defaults.
func New(api ports.SandboxAPI, interval time.Duration, maxAttempts int, logger *slog.Logger) *Client {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	return &Client{api: api, interval: interval, maxAttempts: maxAttempts, logger: logger}
}

// Scan submits the URL and polls until a terminal state. A rejected
// submission is a synchronous error (the request itself was refused, so
// retrying is pointless). Failed and TimedOut are not errors: the
// returned result is degraded but valid, with Error populated, so
// downstream scoring treats missing sandbox data as "no signal".
func (c *Client) Scan(ctx context.Context, target string) (*domain.SandboxResult, error) {
	id, err := c.api.Submit(ctx, target)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrProviderUnavailable, err)
	}

	result := &domain.SandboxResult{SubmissionID: id, URL: target, State: domain.StatePending}
	c.debug("submitted", "url", target, "submission_id", id)

	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		timer := time.NewTimer(c.interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}

		poll, err := c.api.Poll(ctx, id)
		if err != nil {
			// Transport errors while polling are terminal, matching the
			// provider's "anything but not-found is final" contract.
			result.State = domain.StateFailed
			result.Error = err.Error()
			return result, nil
		}

		switch poll.Status {
		case ports.PollPending:
			c.debug("still pending", "submission_id", id, "attempt", attempt)
		case ports.PollReady:
			result.State = domain.StateReady
			result.Metadata = normalize(target, poll.Report)
			return result, nil
		default:
			result.State = domain.StateFailed
			result.Error = fmt.Sprintf("scan failed with status %q", poll.Status)
			return result, nil
		}
	}

	result.State = domain.StateTimedOut
	result.Error = fmt.Sprintf("scan not ready after %d polls", c.maxAttempts)
	return result, nil
}

// normalize maps the raw provider report onto the vendor-neutral
// metadata the scorer consumes.
func normalize(target string, report *ports.ScanReport) *domain.SandboxMetadata {
	meta := &domain.SandboxMetadata{Hostname: hostnameOf(target)}
	if report == nil {
		return meta
	}

	if report.Page.Domain != "" {
		meta.Hostname = report.Page.Domain
	}
	meta.RedirectChain = append(meta.RedirectChain, report.Redirects...)
	meta.RequestCount = report.Stats.Requests
	meta.ThirdPartyDomains = report.Stats.ThirdPartyDomains
	meta.DOMFlags = append(meta.DOMFlags, report.Flags...)
	meta.Verdicts = domain.Verdicts{
		Malicious: report.Verdicts.Malicious,
		Phishing:  report.Verdicts.Phishing,
		Malware:   report.Verdicts.Malware,
		Score:     report.Verdicts.Score,
	}
	if report.Whois != nil {
		meta.DomainAgeDays = report.Whois.DomainAgeDays
	}
	return meta
}

func hostnameOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}

func (c *Client) debug(msg string, args ...any) {
	if c.logger != nil {
		c.logger.Debug(msg, args...)
	}
}
