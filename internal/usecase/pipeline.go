package usecase

import (
	"context"
	"log/slog"
	"sync"

	"ScamRadar/internal/cache"
	"ScamRadar/internal/domain"
	"ScamRadar/internal/ports"
)

// ScanTicket is the completion handle the submission queue hands back.
type ScanTicket interface {
	Wait(ctx context.Context) (*domain.SandboxResult, error)
}

// Submitter enqueues sandbox submissions without blocking.
type Submitter interface {
	Enqueue(url string, priority int) ScanTicket
}

// History is the fingerprint-cache gate in front of the pipeline.
type History interface {
	HasBeenScanned(url string) bool
	Lookup(url string) (domain.HistoryEntry, bool)
	RecordScan(url string, assessment *domain.Assessment) error
}

// Scorer folds a signal bundle into an assessment.
type Scorer interface {
	Score(url string, bundle *domain.SignalBundle) *domain.Assessment
}

// PipelineDeps wires all collaborators into the analysis pipeline. Only
// History, Submitter, and Scorer are required; absent providers simply
// contribute no signal.
type PipelineDeps struct {
	History     History
	Submitter   Submitter
	Reputation  ports.ReputationProvider
	Agent       ports.AgentProvider
	Transcriber ports.Transcriber
	Scorer      Scorer
	Sinks       []ports.AssessmentSink
	Logger      *slog.Logger
}

// Pipeline implements the candidate analysis workflow: fingerprint gate,
// concurrent enrichment fan-out, scoring, recording, and emission.
type Pipeline struct {
	history     History
	submitter   Submitter
	reputation  ports.ReputationProvider
	agent       ports.AgentProvider
	transcriber ports.Transcriber
	scorer      Scorer
	sinks       []ports.AssessmentSink
	logger      *slog.Logger
}

// NewPipeline constructs the orchestration component.
func NewPipeline(deps PipelineDeps) *Pipeline {
	return &Pipeline{
		history:     deps.History,
		submitter:   deps.Submitter,
		reputation:  deps.Reputation,
		agent:       deps.Agent,
		transcriber: deps.Transcriber,
		scorer:      deps.Scorer,
		sinks:       deps.Sinks,
		logger:      deps.Logger,
	}
}

// Analyze runs one candidate through the pipeline. An unparseable URL
// is the only hard failure; every provider error degrades to an absent
// signal, so a candidate that fails all providers still yields a
// baseline assessment.
func (p *Pipeline) Analyze(ctx context.Context, candidate domain.Candidate) (*domain.Assessment, error) {
	if p.history != nil && p.history.HasBeenScanned(candidate.URL) {
		if entry, ok := p.history.Lookup(candidate.URL); ok {
			p.debug("skipping recently scanned url", "url", candidate.URL)
			return assessmentFromHistory(entry), nil
		}
	}

	bundle, err := p.gather(ctx, candidate)
	if err != nil {
		return nil, err
	}

	assessment := p.scorer.Score(candidate.URL, bundle)

	if p.history != nil {
		if err := p.history.RecordScan(candidate.URL, assessment); err != nil {
			p.warn("record scan failed", "url", candidate.URL, "error", err)
		}
	}

	for _, sink := range p.sinks {
		if err := sink.Publish(ctx, assessment); err != nil {
			p.warn("assessment sink failed", "url", candidate.URL, "error", err)
		}
	}

	return assessment, nil
}

// gather fans the candidate out to all configured providers and waits
// for every launched task to settle. Each goroutine owns exactly one
// bundle field, so no lock is needed around the writes.
func (p *Pipeline) gather(ctx context.Context, candidate domain.Candidate) (*domain.SignalBundle, error) {
	// Same normalization rules as the cache key; fails fast before any
	// work is queued.
	if _, err := cache.Fingerprint(candidate.URL); err != nil {
		return nil, err
	}

	bundle := &domain.SignalBundle{}
	var wg sync.WaitGroup

	if p.submitter != nil {
		ticket := p.submitter.Enqueue(candidate.URL, 0)
		wg.Add(1)
		go func() {
			defer wg.Done()
			result, err := ticket.Wait(ctx)
			if err != nil {
				p.warn("sandbox scan failed", "url", candidate.URL, "error", err)
				return
			}
			bundle.Sandbox = result
		}()
	}

	if p.reputation != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			signals, err := p.reputation.Enrich(ctx, candidate.URL)
			if err != nil {
				p.warn("reputation enrichment failed", "url", candidate.URL, "error", err)
				return
			}
			bundle.BrightData = signals
		}()
	}

	if p.agent != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			findings, err := p.agent.Query(ctx, candidate.URL)
			if err != nil {
				p.warn("agent query failed", "url", candidate.URL, "error", err)
				return
			}
			bundle.AgentFindings = findings
		}()
	}

	if p.transcriber != nil && candidate.AudioRef != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			transcript, err := p.transcriber.Transcribe(ctx, candidate.AudioRef)
			if err != nil {
				p.warn("transcription failed", "audio", candidate.AudioRef, "error", err)
				return
			}
			bundle.Transcript = transcript
		}()
	}

	wg.Wait()
	return bundle, nil
}

func (p *Pipeline) debug(msg string, args ...any) {
	if p.logger != nil {
		p.logger.Debug(msg, args...)
	}
}

func (p *Pipeline) warn(msg string, args ...any) {
	if p.logger != nil {
		p.logger.Warn(msg, args...)
	}
}

// assessmentFromHistory rebuilds a presentable assessment from a cache
// hit; explanations and raw signals are not retained across runs.
func assessmentFromHistory(entry domain.HistoryEntry) *domain.Assessment {
	return &domain.Assessment{
		URL:          entry.URL,
		RiskScore:    entry.RiskScore,
		RiskLevel:    entry.RiskLevel,
		Summary:      entry.Summary,
		Explanations: []string{},
		GeneratedAt:  entry.Timestamp,
	}
}
