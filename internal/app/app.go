package app

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"ScamRadar/internal/cache"
	"ScamRadar/internal/config"
	"ScamRadar/internal/domain"
	"ScamRadar/internal/infrastructure/agent"
	"ScamRadar/internal/infrastructure/brightdata"
	"ScamRadar/internal/infrastructure/storage"
	"ScamRadar/internal/infrastructure/telegram"
	"ScamRadar/internal/infrastructure/urlscan"
	"ScamRadar/internal/infrastructure/whisper"
	"ScamRadar/internal/logging"
	"ScamRadar/internal/ports"
	"ScamRadar/internal/queue"
	"ScamRadar/internal/sandbox"
	"ScamRadar/internal/score"
	"ScamRadar/internal/usecase"
)

// Application wires configs to the analysis pipeline. One cache and one
// submission queue exist per running process.
type Application struct {
	cfg      config.Config
	logger   *slog.Logger
	pipeline *usecase.Pipeline
	store    *cache.FingerprintCache
	queue    *queue.SubmissionQueue
	db       *sql.DB
}

// queueSubmitter adapts the concrete queue to the pipeline's port.
type queueSubmitter struct{ q *queue.SubmissionQueue }

func (s queueSubmitter) Enqueue(url string, priority int) usecase.ScanTicket {
	return s.q.Enqueue(url, priority)
}

// New builds a runnable application instance. ctx bounds all external
// submissions issued by the queue.
func New(ctx context.Context, cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level)
	}

	store := cache.New(
		cfg.Cache.Path,
		cfg.Cache.Retention(),
		cfg.Cache.MaxEntries,
		baseLogger.With("component", "cache"),
	)
	store.Load()

	sandboxAPI := urlscan.NewClient(cfg.Sandbox.Endpoint, cfg.Sandbox.APIKey, nil)
	scanClient := sandbox.New(
		sandboxAPI,
		cfg.Sandbox.PollInterval(),
		cfg.Sandbox.MaxPollAttempts,
		baseLogger.With("component", "sandbox"),
	)
	submissions := queue.New(ctx, scanClient, cfg.Queue.MinDelay(), baseLogger.With("component", "queue"))

	var reputation ports.ReputationProvider
	if cfg.BrightData.APIKey != "" {
		reputation = brightdata.NewClient(
			cfg.BrightData.Endpoint,
			cfg.BrightData.APIKey,
			cfg.BrightData.RequestsPerSecond,
			baseLogger.With("component", "brightdata"),
		)
	}

	var heuristic ports.AgentProvider
	if cfg.Agent.APIKey != "" {
		heuristic = agent.NewClient(cfg.Agent)
	}

	var transcriber ports.Transcriber
	if cfg.Transcriber.APIKey != "" {
		transcriber = whisper.NewClient(cfg.Transcriber.Endpoint, cfg.Transcriber.APIKey)
	}

	var sinks []ports.AssessmentSink
	var db *sql.DB
	if cfg.Database.DSN != "" {
		var err error
		db, err = sql.Open("postgres", cfg.Database.DSN)
		if err != nil {
			return nil, fmt.Errorf("open database: %w", err)
		}
		sinks = append(sinks, storage.NewPostgresRepository(db))
	}
	if cfg.Notifications.Telegram.BotToken != "" && cfg.Notifications.Telegram.ChatID != "" {
		sinks = append(sinks, telegram.NewNotifier(
			cfg.Notifications.Telegram.BotToken,
			cfg.Notifications.Telegram.ChatID,
		))
	}

	pipeline := usecase.NewPipeline(usecase.PipelineDeps{
		History:     store,
		Submitter:   queueSubmitter{q: submissions},
		Reputation:  reputation,
		Agent:       heuristic,
		Transcriber: transcriber,
		Scorer:      score.New(),
		Sinks:       sinks,
		Logger:      baseLogger.With("component", "pipeline"),
	})

	return &Application{
		cfg:      cfg,
		logger:   baseLogger,
		pipeline: pipeline,
		store:    store,
		queue:    submissions,
		db:       db,
	}, nil
}

// Run analyzes each candidate in order and prints the assessment JSON
// to stdout. Provider failures degrade; only invalid URLs abort the
// individual candidate.
func (a *Application) Run(ctx context.Context, candidates []domain.Candidate) error {
	var firstErr error
	for _, c := range candidates {
		assessment, err := a.pipeline.Analyze(ctx, c)
		if err != nil {
			a.logger.Error("analysis failed", "url", c.URL, "error", err)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}

		raw, err := json.MarshalIndent(assessment, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal assessment: %w", err)
		}
		fmt.Fprintln(os.Stdout, string(raw))
	}

	stats := a.queue.Stats()
	a.logger.Info("queue stats",
		"queued", stats.TotalQueued,
		"processed", stats.TotalProcessed,
		"failed", stats.TotalFailed,
		"avg_scan", stats.AverageScanTime,
	)

	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Warn("close database", "error", err)
		}
	}
	return firstErr
}
