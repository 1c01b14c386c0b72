package whisper

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"ScamRadar/internal/domain"
	"ScamRadar/internal/ports"
)

// Client talks to an external speech-to-text service for audio
// candidates (voicemail clips, call recordings).
type Client struct {
	endpoint string
	apiKey   string
	http     *http.Client
}

var _ ports.Transcriber = (*Client)(nil)

// NewClient creates a reusable HTTP client.
func NewClient(endpoint, apiKey string) *Client {
	return &Client{
		endpoint: endpoint,
		apiKey:   apiKey,
		http:     &http.Client{Timeout: 60 * time.Second},
	}
}

// Transcribe sends the audio reference for transcription.
func (c *Client) Transcribe(ctx context.Context, audioRef string) (*domain.Transcript, error) {
	payload := map[string]any{
		"audio_url": audioRef,
		"model":     "whisper-1",
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %s", resp.Status)
	}

	var parsed struct {
		Text       string  `json:"text"`
		Confidence float64 `json:"confidence"`
		Language   string  `json:"language"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	return &domain.Transcript{
		Text:             parsed.Text,
		Confidence:       parsed.Confidence,
		DetectedLanguage: parsed.Language,
	}, nil
}
