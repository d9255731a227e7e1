package repository

import (
	"context"
	"time"

	"MarketPhase/internal/domain/models"
)

// ReportStore persists phase reports for the history endpoint.
type ReportStore interface {
	Init(ctx context.Context) error // ensure tables
	Save(ctx context.Context, r *models.PhaseReport) error
	// Range returns reports with from <= ts <= to, newest first, at most limit.
	Range(ctx context.Context, from, to time.Time, limit int) ([]*models.PhaseReport, error)
	Health(ctx context.Context) error
	Close() error
}

// ReportPublisher fans a report out to downstream consumers.
type ReportPublisher interface {
	Publish(ctx context.Context, r *models.PhaseReport) error
	Close() error
}

type Metrics interface {
	RecordVerdict(verdict, origin string)
	RecordSourceFetch(source string, seconds float64, err error)
	RecordIndicator(indicator string, value float64)
	RecordError(kind string)
	RecordLatency(op string, seconds float64)
}
