package domain

import "time"

// Candidate is a URL (optionally paired with an audio clip reference)
// proposed for analysis. Ephemeral; never persisted.
type Candidate struct {
	URL      string
	AudioRef string
}

// RiskLevel is the three-way classification derived from the numeric score.
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// HistoryEntry records the outcome of one completed scan, keyed by URL
// fingerprint. Re-scanning the same fingerprint overwrites the entry.
type HistoryEntry struct {
	Fingerprint string    `json:"fingerprint"`
	URL         string    `json:"url"`
	Timestamp   time.Time `json:"timestamp"`
	RiskScore   int       `json:"riskScore"`
	RiskLevel   RiskLevel `json:"riskLevel"`
	Summary     string    `json:"summary"`
}

// ScanState tracks a sandbox submission through its lifecycle.
type ScanState string

const (
	StateSubmitting ScanState = "submitting"
	StatePending    ScanState = "pending"
	StateReady      ScanState = "ready"
	StateFailed     ScanState = "failed"
	StateTimedOut   ScanState = "timed_out"
)

// Verdicts is the sandbox provider's security verdict block.
type Verdicts struct {
	Malicious bool `json:"malicious"`
	Phishing  bool `json:"phishing"`
	Malware   bool `json:"malware"`
	Score     int  `json:"score"`
}

// SandboxMetadata is the normalized view of a completed sandbox scan.
type SandboxMetadata struct {
	Hostname          string   `json:"hostname"`
	RedirectChain     []string `json:"redirectChain,omitempty"`
	RequestCount      int      `json:"requestCount"`
	ThirdPartyDomains int      `json:"thirdPartyDomains"`
	// DOMFlags lists page-structure suspicion markers reported by the
	// sandbox, e.g. a credential-harvesting form.
	DOMFlags      []string `json:"domFlags,omitempty"`
	Verdicts      Verdicts `json:"verdicts"`
	DomainAgeDays *float64 `json:"domainAgeDays,omitempty"`
}

// SandboxResult is the terminal outcome of one sandbox submission. On
// Failed/TimedOut it is degraded but valid: Metadata is nil and Error
// carries the reason, so the scorer treats it as "no signal".
type SandboxResult struct {
	SubmissionID string           `json:"submissionId,omitempty"`
	URL          string           `json:"url"`
	State        ScanState        `json:"state"`
	Metadata     *SandboxMetadata `json:"metadata,omitempty"`
	Error        string           `json:"error,omitempty"`
}

// WhoisInfo carries best-effort registration metadata.
type WhoisInfo struct {
	DomainAgeDays *float64 `json:"domainAgeDays,omitempty"`
}

// ReputationSignals is the output of the secondary scrape/reputation
// provider. Every field is optional.
type ReputationSignals struct {
	Whois          *WhoisInfo `json:"whois,omitempty"`
	Redirects      []string   `json:"redirects,omitempty"`
	KeywordMatches []string   `json:"keywordMatches,omitempty"`
}

// Agent verdict values the scorer recognizes; anything else scores zero.
const (
	AgentVerdictHighRisk    = "high-risk"
	AgentVerdictNeedsReview = "needs-review"
)

// AgentFindings is the heuristic agent's answer for one URL.
type AgentFindings struct {
	Verdict    string   `json:"verdict"`
	Confidence float64  `json:"confidence"`
	Highlights []string `json:"highlights,omitempty"`
}

// Transcript is the transcription provider's output for an audio clip.
type Transcript struct {
	Text             string  `json:"transcript"`
	Confidence       float64 `json:"confidence"`
	DetectedLanguage string  `json:"detectedLanguage,omitempty"`
}

// SignalBundle aggregates the independent provider outputs for one
// candidate. Any field may be nil (provider not invoked or failed);
// absence must never abort scoring.
type SignalBundle struct {
	AgentFindings *AgentFindings     `json:"agentFindings,omitempty"`
	Sandbox       *SandboxResult     `json:"sandboxMetadata,omitempty"`
	BrightData    *ReputationSignals `json:"brightData,omitempty"`
	Transcript    *Transcript        `json:"transcript,omitempty"`
}

// Assessment is the scorer's immutable output and the sole externally
// consumed event of the pipeline.
type Assessment struct {
	URL          string        `json:"url"`
	RiskScore    int           `json:"risk_score"`
	RiskLevel    RiskLevel     `json:"risk_level"`
	Summary      string        `json:"summary"`
	Explanations []string      `json:"explanations"`
	RawSignals   *SignalBundle `json:"rawSignals,omitempty"`
	GeneratedAt  time.Time     `json:"generatedAt"`
}

// HighRiskPhrases is the fixed phrase list matched against both scraped
// page text and audio transcripts. Matching is case-insensitive.
var HighRiskPhrases = []string{
	"urgent payment",
	"gift card",
	"wire transfer",
	"verify your account",
	"account suspended",
	"act immediately",
	"crypto investment",
	"password expired",
	"remote access",
	"irs",
}
