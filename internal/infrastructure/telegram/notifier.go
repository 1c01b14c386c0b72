package telegram

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"ScamRadar/internal/domain"
	"ScamRadar/internal/ports"
)

// Notifier forwards medium- and high-risk assessments to a Telegram
// chat via the bot API. Low-risk results are dropped silently.
type Notifier struct {
	botToken string
	chatID   string
	client   *http.Client
}

var _ ports.AssessmentSink = (*Notifier)(nil)

// NewNotifier registers bot token and chat identifier.
func NewNotifier(botToken, chatID string) *Notifier {
	return &Notifier{
		botToken: botToken,
		chatID:   chatID,
		client:   &http.Client{Timeout: 5 * time.Second},
	}
}

// Publish posts a Markdown alert for risky assessments.
func (n *Notifier) Publish(ctx context.Context, assessment *domain.Assessment) error {
	if n.botToken == "" || n.chatID == "" || n.client == nil {
		return fmt.Errorf("telegram notifier misconfigured")
	}
	if assessment.RiskLevel == domain.RiskLow {
		return nil
	}

	endpoint := fmt.Sprintf("https://api.telegram.org/bot%s/sendMessage", n.botToken)
	form := url.Values{}
	form.Set("chat_id", n.chatID)
	form.Set("text", buildAlert(assessment))
	form.Set("parse_mode", "Markdown")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("telegram error: %s", resp.Status)
	}

	return nil
}

func buildAlert(assessment *domain.Assessment) string {
	var b strings.Builder
	fmt.Fprintf(&b, "*%s risk* (%d/100)\n%s\n%s\n", strings.ToUpper(string(assessment.RiskLevel)),
		assessment.RiskScore, assessment.Summary, assessment.URL)
	for _, reason := range assessment.Explanations {
		fmt.Fprintf(&b, "- %s\n", reason)
	}
	return b.String()
}
