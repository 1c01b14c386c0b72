package storage

import (
	"context"
	"database/sql"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/lib/pq"

	"ScamRadar/internal/cache"
	"ScamRadar/internal/domain"
	"ScamRadar/internal/ports"
)

// PostgresRepository persists emitted assessments into Postgres, one
// row per URL fingerprint (re-scans overwrite).
type PostgresRepository struct {
	db      *sql.DB
	builder sq.StatementBuilderType
}

var _ ports.AssessmentSink = (*PostgresRepository)(nil)

// NewPostgresRepository wires a sql.DB implementation.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{
		db:      db,
		builder: sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

// Publish upserts the assessment snapshot.
func (r *PostgresRepository) Publish(ctx context.Context, assessment *domain.Assessment) error {
	if r.db == nil {
		return nil
	}

	fingerprint, err := cache.Fingerprint(assessment.URL)
	if err != nil {
		return fmt.Errorf("fingerprint url: %w", err)
	}

	query, args, err := r.builder.
		Insert("assessments").
		Columns("fingerprint", "url", "risk_score", "risk_level", "summary", "explanations", "generated_at").
		Values(
			fingerprint,
			assessment.URL,
			assessment.RiskScore,
			string(assessment.RiskLevel),
			assessment.Summary,
			pq.Array(assessment.Explanations),
			assessment.GeneratedAt,
		).
		Suffix(`ON CONFLICT (fingerprint) DO UPDATE
                SET url = EXCLUDED.url,
                    risk_score = EXCLUDED.risk_score,
                    risk_level = EXCLUDED.risk_level,
                    summary = EXCLUDED.summary,
                    explanations = EXCLUDED.explanations,
                    generated_at = EXCLUDED.generated_at`).
		ToSql()
	if err != nil {
		return fmt.Errorf("build upsert: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert assessment: %w", err)
	}

	return nil
}
