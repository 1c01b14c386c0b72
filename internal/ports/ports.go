package ports

import (
	"context"

	"ScamRadar/internal/domain"
)

// PollStatus is the three-state answer of the sandbox result endpoint.
type PollStatus string

const (
	PollPending PollStatus = "pending"
	PollReady   PollStatus = "ready"
	PollFailed  PollStatus = "failed"
)

// PollResult carries the poll status plus, when ready, the raw report.
type PollResult struct {
	Status PollStatus
	Report *ScanReport
}

// SandboxAPI is the raw submit/poll contract of the sandbox scanning
// provider. The core depends only on these two calls, not on any
// vendor-specific transport.
type SandboxAPI interface {
	Submit(ctx context.Context, url string) (string, error)
	Poll(ctx context.Context, submissionID string) (PollResult, error)
}

// ScanReport is the raw provider payload for a completed sandbox scan,
// normalized downstream into domain.SandboxMetadata.
type ScanReport struct {
	Page      ReportPage     `json:"page"`
	Redirects []string       `json:"redirects,omitempty"`
	Stats     ReportStats    `json:"stats"`
	Flags     []string       `json:"flags,omitempty"`
	Verdicts  ReportVerdicts `json:"verdicts"`
	Whois     *ReportWhois   `json:"whois,omitempty"`
}

// ReportPage describes the landing page the sandbox ended up on.
type ReportPage struct {
	Domain string `json:"domain"`
	URL    string `json:"url"`
}

// ReportStats counts network activity observed during the scan.
type ReportStats struct {
	Requests          int `json:"requests"`
	ThirdPartyDomains int `json:"thirdPartyDomains"`
}

// ReportVerdicts is the provider's security verdict block.
type ReportVerdicts struct {
	Malicious bool `json:"malicious"`
	Phishing  bool `json:"phishing"`
	Malware   bool `json:"malware"`
	Score     int  `json:"score"`
}

// ReportWhois is best-effort registration metadata, present only when
// the provider supplies it.
type ReportWhois struct {
	DomainAgeDays *float64 `json:"domainAgeDays,omitempty"`
}

// ReputationProvider is the secondary scrape/whois enrichment service.
// Every field of the returned signals is best-effort.
type ReputationProvider interface {
	Enrich(ctx context.Context, url string) (*domain.ReputationSignals, error)
}

// AgentProvider queries a heuristic agent for a verdict on a URL.
type AgentProvider interface {
	Query(ctx context.Context, url string) (*domain.AgentFindings, error)
}

// Transcriber converts an audio clip reference into a transcript.
type Transcriber interface {
	Transcribe(ctx context.Context, audioRef string) (*domain.Transcript, error)
}

// AssessmentSink receives emitted assessments. Collaborators (history
// log, notifiers) subscribe through this; a failing sink is logged and
// never aborts the pipeline.
type AssessmentSink interface {
	Publish(ctx context.Context, assessment *domain.Assessment) error
}
