package usecase

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"ScamRadar/internal/domain"
	"ScamRadar/internal/ports"
	"ScamRadar/internal/score"
)

type fakeTicket struct {
	result *domain.SandboxResult
	err    error
}

func (f fakeTicket) Wait(context.Context) (*domain.SandboxResult, error) {
	return f.result, f.err
}

type fakeSubmitter struct {
	calls  atomic.Int64
	result *domain.SandboxResult
	err    error
}

func (f *fakeSubmitter) Enqueue(string, int) ScanTicket {
	f.calls.Add(1)
	return fakeTicket{result: f.result, err: f.err}
}

type fakeHistory struct {
	entry    *domain.HistoryEntry
	recorded []*domain.Assessment
}

func (f *fakeHistory) HasBeenScanned(string) bool { return f.entry != nil }

func (f *fakeHistory) Lookup(string) (domain.HistoryEntry, bool) {
	if f.entry == nil {
		return domain.HistoryEntry{}, false
	}
	return *f.entry, true
}

func (f *fakeHistory) RecordScan(_ string, a *domain.Assessment) error {
	f.recorded = append(f.recorded, a)
	return nil
}

type fakeReputation struct {
	signals *domain.ReputationSignals
	err     error
}

func (f fakeReputation) Enrich(context.Context, string) (*domain.ReputationSignals, error) {
	return f.signals, f.err
}

type fakeAgent struct {
	findings *domain.AgentFindings
	err      error
}

func (f fakeAgent) Query(context.Context, string) (*domain.AgentFindings, error) {
	return f.findings, f.err
}

type fakeTranscriber struct {
	calls      atomic.Int64
	transcript *domain.Transcript
}

func (f *fakeTranscriber) Transcribe(context.Context, string) (*domain.Transcript, error) {
	f.calls.Add(1)
	return f.transcript, nil
}

type fakeSink struct {
	published []*domain.Assessment
	err       error
}

func (f *fakeSink) Publish(_ context.Context, a *domain.Assessment) error {
	f.published = append(f.published, a)
	return f.err
}

func TestAnalyzeAllProvidersFailingStillAssesses(t *testing.T) {
	t.Parallel()

	history := &fakeHistory{}
	sink := &fakeSink{}
	p := NewPipeline(PipelineDeps{
		History:    history,
		Submitter:  &fakeSubmitter{err: errors.New("sandbox down")},
		Reputation: fakeReputation{err: errors.New("scrape down")},
		Agent:      fakeAgent{err: errors.New("agent down")},
		Scorer:     score.New(),
		Sinks:      []ports.AssessmentSink{sink},
	})

	a, err := p.Analyze(context.Background(), domain.Candidate{URL: "https://example.com/page"})
	require.NoError(t, err)
	require.Equal(t, 20, a.RiskScore)
	require.Equal(t, domain.RiskLow, a.RiskLevel)
	require.Empty(t, a.Explanations)
	require.Len(t, history.recorded, 1)
	require.Len(t, sink.published, 1)
}

func TestAnalyzeInvalidURLFailsFast(t *testing.T) {
	t.Parallel()

	submitter := &fakeSubmitter{}
	p := NewPipeline(PipelineDeps{
		History:   &fakeHistory{},
		Submitter: submitter,
		Scorer:    score.New(),
	})

	_, err := p.Analyze(context.Background(), domain.Candidate{URL: "not a url"})
	require.ErrorIs(t, err, domain.ErrInvalidCandidate)
	require.Equal(t, int64(0), submitter.calls.Load(), "invalid candidates are never enqueued")
}

func TestAnalyzeCacheHitSkipsProviders(t *testing.T) {
	t.Parallel()

	entry := &domain.HistoryEntry{
		URL:       "https://example.com/seen",
		Timestamp: time.Date(2026, time.February, 10, 0, 0, 0, 0, time.UTC),
		RiskScore: 62,
		RiskLevel: domain.RiskMedium,
		Summary:   "Suspicious indicators detected. Proceed with caution.",
	}
	submitter := &fakeSubmitter{}
	p := NewPipeline(PipelineDeps{
		History:   &fakeHistory{entry: entry},
		Submitter: submitter,
		Scorer:    score.New(),
	})

	a, err := p.Analyze(context.Background(), domain.Candidate{URL: "https://example.com/seen?utm=x"})
	require.NoError(t, err)
	require.Equal(t, 62, a.RiskScore)
	require.Equal(t, domain.RiskMedium, a.RiskLevel)
	require.Equal(t, int64(0), submitter.calls.Load())
}

func TestAnalyzeMergesAllSignals(t *testing.T) {
	t.Parallel()

	transcriber := &fakeTranscriber{transcript: &domain.Transcript{Text: "urgent payment now"}}
	p := NewPipeline(PipelineDeps{
		History: &fakeHistory{},
		Submitter: &fakeSubmitter{result: &domain.SandboxResult{
			State:    domain.StateReady,
			Metadata: &domain.SandboxMetadata{Verdicts: domain.Verdicts{Phishing: true}},
		}},
		Reputation:  fakeReputation{signals: &domain.ReputationSignals{KeywordMatches: []string{"gift card"}}},
		Agent:       fakeAgent{findings: &domain.AgentFindings{Verdict: domain.AgentVerdictHighRisk}},
		Transcriber: transcriber,
		Scorer:      score.New(),
	})

	a, err := p.Analyze(context.Background(), domain.Candidate{
		URL:      "https://example.com/offer",
		AudioRef: "voicemail-17.ogg",
	})
	require.NoError(t, err)

	// 20 + 35 (phishing) + 8 (keyword) + 25 (agent) + 10 (transcript) = 98
	require.Equal(t, 98, a.RiskScore)
	require.Equal(t, domain.RiskHigh, a.RiskLevel)
	require.Equal(t, int64(1), transcriber.calls.Load())
	require.NotNil(t, a.RawSignals)
	require.NotNil(t, a.RawSignals.Sandbox)
	require.NotNil(t, a.RawSignals.BrightData)
	require.NotNil(t, a.RawSignals.AgentFindings)
	require.NotNil(t, a.RawSignals.Transcript)
}

func TestAnalyzeSkipsTranscriberWithoutAudio(t *testing.T) {
	t.Parallel()

	transcriber := &fakeTranscriber{transcript: &domain.Transcript{Text: "hello"}}
	p := NewPipeline(PipelineDeps{
		History:     &fakeHistory{},
		Submitter:   &fakeSubmitter{err: errors.New("down")},
		Transcriber: transcriber,
		Scorer:      score.New(),
	})

	_, err := p.Analyze(context.Background(), domain.Candidate{URL: "https://example.com/"})
	require.NoError(t, err)
	require.Equal(t, int64(0), transcriber.calls.Load())
}

func TestAnalyzeSinkFailureDoesNotAbort(t *testing.T) {
	t.Parallel()

	sink := &fakeSink{err: errors.New("db down")}
	p := NewPipeline(PipelineDeps{
		History:   &fakeHistory{},
		Submitter: &fakeSubmitter{err: errors.New("down")},
		Scorer:    score.New(),
		Sinks:     []ports.AssessmentSink{sink},
	})

	a, err := p.Analyze(context.Background(), domain.Candidate{URL: "https://example.com/"})
	require.NoError(t, err)
	require.NotNil(t, a)
	require.Len(t, sink.published, 1)
}
