package brightdata

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/cenkalti/backoff"
	"golang.org/x/net/publicsuffix"
	"golang.org/x/time/rate"

	"ScamRadar/internal/domain"
	"ScamRadar/internal/ports"
)

// Client is the secondary reputation/scrape provider: a whois lookup
// for domain age plus an unlocked page fetch whose text is matched
// against the high-risk phrase list. Every field of the result is
// best-effort; Enrich errors only when nothing could be gathered.
type Client struct {
	endpoint string
	apiKey   string
	http     *http.Client
	limiter  *rate.Limiter
	logger   *slog.Logger
}

var _ ports.ReputationProvider = (*Client)(nil)

// NewClient wires the enrichment endpoint. rps throttles outbound calls
// to stay inside the provider's quota.
func NewClient(endpoint, apiKey string, rps float64, logger *slog.Logger) *Client {
	if rps <= 0 {
		rps = 1
	}
	return &Client{
		endpoint: strings.TrimRight(endpoint, "/"),
		apiKey:   apiKey,
		http:     &http.Client{Timeout: 20 * time.Second},
		limiter:  rate.NewLimiter(rate.Limit(rps), 1),
		logger:   logger,
	}
}

// Enrich gathers whois and page signals for the URL.
func (c *Client) Enrich(ctx context.Context, target string) (*domain.ReputationSignals, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	signals := &domain.ReputationSignals{}

	whois, whoisErr := c.lookupWhois(ctx, target)
	if whoisErr != nil {
		c.warn("whois lookup failed", "url", target, "error", whoisErr)
	} else {
		signals.Whois = whois
	}

	page, pageErr := c.fetchPage(ctx, target)
	if pageErr != nil {
		c.warn("page fetch failed", "url", target, "error", pageErr)
	} else {
		signals.Redirects = page.Redirects
		signals.KeywordMatches = matchKeywords(page.HTML)
	}

	if whoisErr != nil && pageErr != nil {
		return nil, fmt.Errorf("enrich %s: whois: %v; page: %v", target, whoisErr, pageErr)
	}

	return signals, nil
}

// lookupWhois resolves the registrable domain and asks the provider for
// registration age.
func (c *Client) lookupWhois(ctx context.Context, target string) (*domain.WhoisInfo, error) {
	u, err := url.Parse(target)
	if err != nil || u.Hostname() == "" {
		return nil, fmt.Errorf("parse target: %w", err)
	}

	host := strings.ToLower(u.Hostname())
	registrable, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		registrable = host
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.endpoint+"/whois?domain="+url.QueryEscape(registrable), nil)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	c.authorize(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("whois request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("whois status %s", resp.Status)
	}

	var parsed struct {
		DomainAgeDays *float64 `json:"domainAgeDays"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode whois: %w", err)
	}

	return &domain.WhoisInfo{DomainAgeDays: parsed.DomainAgeDays}, nil
}

type unlockedPage struct {
	HTML      string   `json:"html"`
	Redirects []string `json:"redirects"`
}

// fetchPage retrieves the rendered page through the unlocker endpoint.
// Transient failures (transport errors, 5xx) are retried with
// exponential backoff; client errors are permanent.
func (c *Client) fetchPage(ctx context.Context, target string) (*unlockedPage, error) {
	var page unlockedPage

	operation := func() error {
		body, err := json.Marshal(map[string]string{"url": target, "format": "raw"})
		if err != nil {
			return backoff.Permanent(fmt.Errorf("marshal request: %w", err))
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/unlock", bytes.NewReader(body))
		if err != nil {
			return backoff.Permanent(fmt.Errorf("new request: %w", err))
		}
		req.Header.Set("Content-Type", "application/json")
		c.authorize(req)

		resp, err := c.http.Do(req)
		if err != nil {
			return fmt.Errorf("unlock request: %w", err)
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode >= http.StatusInternalServerError:
			return fmt.Errorf("unlock status %s", resp.Status)
		case resp.StatusCode != http.StatusOK:
			return backoff.Permanent(fmt.Errorf("unlock status %s", resp.Status))
		}

		if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
			return backoff.Permanent(fmt.Errorf("decode unlock: %w", err))
		}
		return nil
	}

	expBackoff := backoff.NewExponentialBackOff()
	expBackoff.InitialInterval = 500 * time.Millisecond
	expBackoff.MaxElapsedTime = 15 * time.Second

	if err := backoff.Retry(operation, backoff.WithContext(expBackoff, ctx)); err != nil {
		return nil, err
	}
	return &page, nil
}

func (c *Client) authorize(req *http.Request) {
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
}

// matchKeywords extracts visible page text and returns the high-risk
// phrases it contains, in phrase-list order.
func matchKeywords(html string) []string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}
	doc.Find("script, style, noscript").Remove()

	text := strings.ToLower(doc.Text())
	var matches []string
	for _, phrase := range domain.HighRiskPhrases {
		if strings.Contains(text, phrase) {
			matches = append(matches, phrase)
		}
	}
	return matches
}

func (c *Client) warn(msg string, args ...any) {
	if c.logger != nil {
		c.logger.Warn(msg, args...)
	}
}
