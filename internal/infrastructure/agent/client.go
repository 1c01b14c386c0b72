package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"ScamRadar/internal/config"
	"ScamRadar/internal/domain"
	"ScamRadar/internal/ports"
)

// Client implements the heuristic-agent provider backed by an
// OpenAI-compatible chat API: the model is asked for a strict JSON
// verdict on one URL.
type Client struct {
	endpoint     string
	model        string
	apiKey       string
	systemPrompt string
	httpClient   *http.Client
}

var _ ports.AgentProvider = (*Client)(nil)

// NewClient builds a client from configuration.
func NewClient(cfg config.AgentConfig) *Client {
	return &Client{
		endpoint:     cfg.Endpoint,
		model:        cfg.Model,
		apiKey:       cfg.APIKey,
		systemPrompt: cfg.SystemPrompt,
		httpClient: &http.Client{
			Timeout: 20 * time.Second,
		},
	}
}

// Query asks the agent to classify the URL and parses its JSON answer.
func (c *Client) Query(ctx context.Context, target string) (*domain.AgentFindings, error) {
	if c == nil {
		return nil, fmt.Errorf("agent client is nil")
	}
	if c.apiKey == "" || c.endpoint == "" || c.model == "" {
		return nil, fmt.Errorf("agent client misconfigured")
	}

	body, err := json.Marshal(map[string]any{
		"model": c.model,
		"messages": []map[string]string{
			{"role": "system", "content": safePrompt(c.systemPrompt)},
			{"role": "user", "content": target},
		},
		"response_format": map[string]string{"type": "json_object"},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal agent payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("query agent: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("agent error %s: %s", resp.Status, strings.TrimSpace(string(payload)))
	}

	var parsed struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode agent response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return nil, fmt.Errorf("agent returned no choices")
	}

	return ParseFindings(parsed.Choices[0].Message.Content)
}

// ParseFindings decodes the agent's JSON verdict. Unknown verdict
// strings pass through unchanged; the scorer treats them as "other".
func ParseFindings(content string) (*domain.AgentFindings, error) {
	var findings domain.AgentFindings
	if err := json.Unmarshal([]byte(strings.TrimSpace(content)), &findings); err != nil {
		return nil, fmt.Errorf("parse agent verdict: %w", err)
	}
	findings.Verdict = strings.ToLower(strings.TrimSpace(findings.Verdict))
	return &findings, nil
}

func safePrompt(prompt string) string {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "Classify the given URL for scam likelihood. Answer with JSON: " +
			`{"verdict":"high-risk|needs-review|benign","confidence":0..1,"highlights":[...]}`
	}
	return prompt
}
