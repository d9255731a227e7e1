package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"MarketPhase/internal/domain/models"
	drepo "MarketPhase/internal/domain/repository"
	pkgch "MarketPhase/pkg/clickhouse"
	applogger "MarketPhase/pkg/logger"
)

// CHReportStore implements ReportStore backed by ClickHouse.
type CHReportStore struct {
	ch    *pkgch.Client
	db    *sql.DB
	table string
	l     *applogger.Logger
}

var _ drepo.ReportStore = (*CHReportStore)(nil)

func NewCHReportStore(ch *pkgch.Client, database string, l *applogger.Logger) *CHReportStore {
	if l == nil {
		l = applogger.Nop()
	}
	return &CHReportStore{
		ch:    ch,
		db:    ch.DB(),
		table: "`" + database + "`.phase_reports",
		l:     l.With(applogger.String("component", "report_store")),
	}
}

func (s *CHReportStore) Init(ctx context.Context) error {
	return s.ch.InitSchema(ctx, []string{fmt.Sprintf(`
        CREATE TABLE IF NOT EXISTS %s (
            id            String,
            ts            DateTime64(3),
            origin        LowCardinality(String),
            verdict       LowCardinality(String),
            indicators    String,
            signals       String,
            readings      String,
            source_errors String
        ) ENGINE = MergeTree
        ORDER BY ts`, s.table)})
}

func (s *CHReportStore) Save(ctx context.Context, r *models.PhaseReport) error {
	ind, err := json.Marshal(r.Indicators)
	if err != nil {
		return fmt.Errorf("marshal indicators: %w", err)
	}
	sig, err := json.Marshal(r.Signals)
	if err != nil {
		return fmt.Errorf("marshal signals: %w", err)
	}
	rd, err := json.Marshal(r.Readings)
	if err != nil {
		return fmt.Errorf("marshal readings: %w", err)
	}
	se, err := json.Marshal(r.SourceErrors)
	if err != nil {
		return fmt.Errorf("marshal source errors: %w", err)
	}

	q := fmt.Sprintf("INSERT INTO %s (id, ts, origin, verdict, indicators, signals, readings, source_errors) VALUES (?, ?, ?, ?, ?, ?, ?, ?)", s.table)
	if _, err := s.db.ExecContext(ctx, q,
		r.ID,
		r.Timestamp,
		string(r.Origin),
		r.Verdict.String(),
		string(ind),
		string(sig),
		string(rd),
		string(se),
	); err != nil {
		s.l.Error("clickhouse save_report error", applogger.String("id", r.ID), applogger.Error(err))
		return fmt.Errorf("save report: %w", err)
	}
	return nil
}

func (s *CHReportStore) Range(ctx context.Context, from, to time.Time, limit int) ([]*models.PhaseReport, error) {
	start := time.Now()
	const qtpl = `
        SELECT id, ts, origin, verdict, indicators, signals, readings, source_errors
        FROM %s
        WHERE ts >= ? AND ts <= ?
        ORDER BY ts DESC
        LIMIT ?
    `
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(qtpl, s.table), from, to, limit)
	if err != nil {
		s.l.Error("clickhouse range_reports query error", applogger.Error(err))
		return nil, fmt.Errorf("range reports: %w", err)
	}
	defer rows.Close()

	out := make([]*models.PhaseReport, 0, limit)
	for rows.Next() {
		r, err := scanReport(rows)
		if err != nil {
			s.l.Error("clickhouse range_reports scan error", applogger.Error(err))
			return nil, err
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	s.l.Debug("clickhouse range_reports ok",
		applogger.Int("rows", len(out)),
		applogger.Duration("duration_ms", time.Since(start)),
	)
	return out, nil
}

func scanReport(rows *sql.Rows) (*models.PhaseReport, error) {
	var (
		r                        models.PhaseReport
		origin, verdict          string
		ind, sig, rd, sourceErrs string
	)
	if err := rows.Scan(&r.ID, &r.Timestamp, &origin, &verdict, &ind, &sig, &rd, &sourceErrs); err != nil {
		return nil, fmt.Errorf("scan report: %w", err)
	}
	r.Origin = models.Origin(origin)
	v, err := models.ParseVerdict(verdict)
	if err != nil {
		return nil, err
	}
	r.Verdict = v
	if err := json.Unmarshal([]byte(ind), &r.Indicators); err != nil {
		return nil, fmt.Errorf("decode indicators of %s: %w", r.ID, err)
	}
	if err := json.Unmarshal([]byte(sig), &r.Signals); err != nil {
		return nil, fmt.Errorf("decode signals of %s: %w", r.ID, err)
	}
	if err := json.Unmarshal([]byte(rd), &r.Readings); err != nil {
		return nil, fmt.Errorf("decode readings of %s: %w", r.ID, err)
	}
	if err := json.Unmarshal([]byte(sourceErrs), &r.SourceErrors); err != nil {
		return nil, fmt.Errorf("decode source errors of %s: %w", r.ID, err)
	}
	r.Timestamp = r.Timestamp.UTC()
	return &r, nil
}

func (s *CHReportStore) Health(ctx context.Context) error { return s.ch.Health(ctx) }

func (s *CHReportStore) Close() error { return s.ch.Close() }
