package score

import (
	"fmt"
	"math"
	"strings"
	"time"

	"ScamRadar/internal/domain"
)

const baselineScore = 20

// Thresholds for the discrete risk levels.
const (
	highThreshold   = 75
	mediumThreshold = 45
)

var summaries = map[domain.RiskLevel]string{
	domain.RiskHigh:   "High scam risk. Avoid interacting with this link.",
	domain.RiskMedium: "Suspicious indicators detected. Proceed with caution.",
	domain.RiskLow:    "No strong scam indicators detected.",
}

// Scorer turns a merged signal bundle into a bounded, explainable risk
// assessment. Score is deterministic and performs no I/O; given an
// identical bundle it reproduces the same score, level, explanation
// order, and summary on every run.
type Scorer struct{}

// New returns the scorer.
func New() *Scorer { return &Scorer{} }

// Score aggregates independent weighted contributions on top of a
// baseline caution score. Every field of the bundle is optional; an
// absent signal contributes nothing. Only the final sum is clamped.
func (s *Scorer) Score(target string, bundle *domain.SignalBundle) *domain.Assessment {
	if bundle == nil {
		bundle = &domain.SignalBundle{}
	}

	total := baselineScore
	explanations := []string{}

	add := func(points int, reason string) {
		total += points
		if reason != "" {
			explanations = append(explanations, reason)
		}
	}

	if meta := sandboxMetadata(bundle); meta != nil {
		if meta.Verdicts.Malicious {
			add(40, "Sandbox flagged the page as malicious")
		}
		if meta.Verdicts.Phishing {
			add(35, "Sandbox categorized the page as phishing")
		}
		if meta.Verdicts.Malware {
			add(35, "Sandbox categorized the page as malware")
		}
		if meta.Verdicts.Score > 0 {
			points := int(math.Round(float64(meta.Verdicts.Score) / 4))
			if points > 25 {
				points = 25
			}
			reason := ""
			if meta.Verdicts.Score > 50 {
				reason = fmt.Sprintf("Sandbox vendor score %d/100", meta.Verdicts.Score)
			}
			add(points, reason)
		}

		if n := len(meta.DOMFlags); n > 0 {
			points := n * 7
			if points > 20 {
				points = 20
			}
			add(points, fmt.Sprintf("%d suspicious page patterns: %s", n, strings.Join(meta.DOMFlags, ", ")))
		}
	}

	if hops := len(redirectChain(bundle)); hops >= 4 {
		add(18, fmt.Sprintf("Long redirect chain (%d hops)", hops))
	} else if hops >= 2 {
		add(12, fmt.Sprintf("Redirect chain of %d hops", hops))
	}

	if age, ok := domainAge(bundle); ok {
		if age < 14 {
			add(35, fmt.Sprintf("Domain registered only %.0f days ago", age))
		} else if age < 45 {
			add(20, fmt.Sprintf("Domain registered %.0f days ago", age))
		}
	}

	if bundle.BrightData != nil {
		if hits := len(bundle.BrightData.KeywordMatches); hits > 0 {
			points := hits * 8
			if points > 24 {
				points = 24
			}
			add(points, fmt.Sprintf("High-risk phrases on page: %s", strings.Join(bundle.BrightData.KeywordMatches, ", ")))
		}
	}

	if bundle.AgentFindings != nil {
		switch bundle.AgentFindings.Verdict {
		case domain.AgentVerdictHighRisk:
			add(25, "Heuristic agent verdict: high-risk")
		case domain.AgentVerdictNeedsReview:
			add(12, "Heuristic agent verdict: needs-review")
		}
	}

	if bundle.Transcript != nil && bundle.Transcript.Text != "" {
		matches := matchPhrases(bundle.Transcript.Text)
		if len(matches) > 0 {
			points := len(matches) * 10
			if points > 30 {
				points = 30
			}
			add(points, fmt.Sprintf("High-risk phrases in audio transcript: %s", strings.Join(matches, ", ")))
		} else {
			add(6, "Audio transcript present without known scam phrases")
		}
	}

	if total > 100 {
		total = 100
	}
	if total < 0 {
		total = 0
	}

	level := domain.RiskLow
	switch {
	case total >= highThreshold:
		level = domain.RiskHigh
	case total >= mediumThreshold:
		level = domain.RiskMedium
	}

	return &domain.Assessment{
		URL:          target,
		RiskScore:    total,
		RiskLevel:    level,
		Summary:      summaries[level],
		Explanations: explanations,
		RawSignals:   bundle,
		GeneratedAt:  time.Now().UTC(),
	}
}

// sandboxMetadata extracts usable metadata; failed or timed-out scans
// carry none and therefore contribute no signal.
func sandboxMetadata(bundle *domain.SignalBundle) *domain.SandboxMetadata {
	if bundle.Sandbox == nil {
		return nil
	}
	return bundle.Sandbox.Metadata
}

// redirectChain prefers the sandbox's observed chain and falls back to
// the scrape provider's.
func redirectChain(bundle *domain.SignalBundle) []string {
	if meta := sandboxMetadata(bundle); meta != nil && len(meta.RedirectChain) > 0 {
		return meta.RedirectChain
	}
	if bundle.BrightData != nil {
		return bundle.BrightData.Redirects
	}
	return nil
}

// domainAge prefers the scrape provider's whois age and falls back to
// the sandbox report. A missing or non-finite age yields no signal; it
// must never be read as "zero days old".
func domainAge(bundle *domain.SignalBundle) (float64, bool) {
	var age *float64
	if bundle.BrightData != nil && bundle.BrightData.Whois != nil {
		age = bundle.BrightData.Whois.DomainAgeDays
	}
	if age == nil {
		if meta := sandboxMetadata(bundle); meta != nil {
			age = meta.DomainAgeDays
		}
	}
	if age == nil || math.IsNaN(*age) || math.IsInf(*age, 0) {
		return 0, false
	}
	return *age, true
}

// matchPhrases returns the high-risk phrases found in the text, in
// phrase-list order so explanations stay reproducible.
func matchPhrases(text string) []string {
	lowered := strings.ToLower(text)
	var matches []string
	for _, phrase := range domain.HighRiskPhrases {
		if strings.Contains(lowered, phrase) {
			matches = append(matches, phrase)
		}
	}
	return matches
}
