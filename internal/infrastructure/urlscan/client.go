package urlscan

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"ScamRadar/internal/ports"
)

// Client implements ports.SandboxAPI against a urlscan.io-style HTTP
// API: one POST to submit, then GETs against the result endpoint until
// the report materializes.
type Client struct {
	endpoint string
	apiKey   string
	http     *http.Client
}

var _ ports.SandboxAPI = (*Client)(nil)

// NewClient creates a reusable HTTP client.
func NewClient(endpoint, apiKey string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &Client{
		endpoint: strings.TrimRight(endpoint, "/"),
		apiKey:   apiKey,
		http:     httpClient,
	}
}

// Submit posts the URL for scanning and returns the submission id. Any
// non-2xx answer is a rejection of the request itself.
func (c *Client) Submit(ctx context.Context, target string) (string, error) {
	body, err := json.Marshal(map[string]string{"url": target, "visibility": "private"})
	if err != nil {
		return "", fmt.Errorf("marshal submission: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/api/v1/scan/", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("API-Key", c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("submit scan: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("submission rejected %s: %s", resp.Status, strings.TrimSpace(string(payload)))
	}

	var parsed struct {
		UUID string `json:"uuid"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("decode submission: %w", err)
	}
	if parsed.UUID == "" {
		return "", fmt.Errorf("submission accepted without an id")
	}

	return parsed.UUID, nil
}

// Poll fetches the scan result. The provider answers 404 while the scan
// is still processing; that maps to pending. Any other non-2xx status
// is a terminal failure.
func (c *Client) Poll(ctx context.Context, submissionID string) (ports.PollResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"/api/v1/result/"+submissionID, nil)
	if err != nil {
		return ports.PollResult{}, fmt.Errorf("new request: %w", err)
	}
	if c.apiKey != "" {
		req.Header.Set("API-Key", c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return ports.PollResult{}, fmt.Errorf("poll result: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return ports.PollResult{Status: ports.PollPending}, nil
	case resp.StatusCode >= http.StatusOK && resp.StatusCode < http.StatusMultipleChoices:
		var report ports.ScanReport
		if err := json.NewDecoder(resp.Body).Decode(&report); err != nil {
			return ports.PollResult{Status: ports.PollFailed}, nil
		}
		return ports.PollResult{Status: ports.PollReady, Report: &report}, nil
	default:
		return ports.PollResult{Status: ports.PollFailed}, nil
	}
}
