package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"MarketPhase/internal/domain/models"
	drepo "MarketPhase/internal/domain/repository"
	dservice "MarketPhase/internal/domain/service"
	"MarketPhase/internal/services/phase"
	"MarketPhase/pkg/cache"
	applogger "MarketPhase/pkg/logger"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// ErrNoReport is returned by Latest before the first live or streamed report.
var ErrNoReport = errors.New("no phase report available yet")

const latestKey = "phase:latest"

// AnalyzerOption configures PhaseAnalyzer.
type AnalyzerOption func(*PhaseAnalyzer)

// WithFetchTimeout bounds one Collect across all sources.
func WithFetchTimeout(d time.Duration) AnalyzerOption {
	return func(a *PhaseAnalyzer) {
		if d > 0 {
			a.fetchTimeout = d
		}
	}
}

// WithCacheTTL sets how long the latest report stays cached.
func WithCacheTTL(d time.Duration) AnalyzerOption {
	return func(a *PhaseAnalyzer) {
		if d > 0 {
			a.cacheTTL = d
		}
	}
}

// PhaseAnalyzer collects indicators, classifies them and fans the report out.
type PhaseAnalyzer struct {
	sources    []dservice.IndicatorSource
	classifier *phase.Classifier
	cache      cache.Service
	store      drepo.ReportStore
	pub        drepo.ReportPublisher
	metrics    drepo.Metrics
	log        *applogger.Logger

	fetchTimeout time.Duration
	cacheTTL     time.Duration
	now          func() time.Time

	mu      sync.RWMutex
	subs    map[int]func(*models.PhaseReport)
	nextSub int
}

// NewPhaseAnalyzer creates a PhaseAnalyzer. Sources are merged in the given order.
func NewPhaseAnalyzer(
	sources []dservice.IndicatorSource,
	classifier *phase.Classifier,
	c cache.Service,
	store drepo.ReportStore,
	pub drepo.ReportPublisher,
	metrics drepo.Metrics,
	log *applogger.Logger,
	opts ...AnalyzerOption,
) *PhaseAnalyzer {
	if log == nil {
		log = applogger.Nop()
	}
	a := &PhaseAnalyzer{
		sources:      sources,
		classifier:   classifier,
		cache:        c,
		store:        store,
		pub:          pub,
		metrics:      metrics,
		log:          log.With(applogger.String("component", "phase_analyzer")),
		fetchTimeout: 20 * time.Second,
		cacheTTL:     time.Hour,
		now:          time.Now,
		subs:         make(map[int]func(*models.PhaseReport)),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Collect queries every source concurrently and merges the results in source
// order, so an earlier source wins when two report the same indicator.
// Failures never abort the collection; they come back keyed by source name.
func (a *PhaseAnalyzer) Collect(ctx context.Context) (models.IndicatorSet, map[string]string) {
	ctx, cancel := context.WithTimeout(ctx, a.fetchTimeout)
	defer cancel()

	sets := make([]models.IndicatorSet, len(a.sources))
	errs := make([]error, len(a.sources))

	var g errgroup.Group
	for i, src := range a.sources {
		i, src := i, src
		g.Go(func() error {
			start := time.Now()
			sets[i], errs[i] = src.Fetch(ctx)
			a.metrics.RecordSourceFetch(src.Name(), time.Since(start).Seconds(), errs[i])
			return nil
		})
	}
	_ = g.Wait()

	var merged models.IndicatorSet
	var failures map[string]string
	for i, src := range a.sources {
		merged.Merge(sets[i])
		if errs[i] == nil {
			continue
		}
		if failures == nil {
			failures = make(map[string]string)
		}
		failures[src.Name()] = errs[i].Error()
		a.log.Warn("indicator source failed",
			applogger.String("source", src.Name()),
			applogger.Int("partial", len(sets[i].Present())),
			applogger.Error(errs[i]),
		)
	}
	return merged, failures
}

// Analyze runs one live collection and classification and publishes the report.
func (a *PhaseAnalyzer) Analyze(ctx context.Context) (*models.PhaseReport, error) {
	start := time.Now()
	set, failures := a.Collect(ctx)
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("analyze: %w", err)
	}

	r := a.report(set, models.OriginLive, failures)
	a.publish(ctx, r)
	a.metrics.RecordLatency("analyze", time.Since(start).Seconds())

	a.log.Info("phase analyzed",
		applogger.String("verdict", r.Verdict.String()),
		applogger.Strings("present", indicatorNames(set.Present())),
		applogger.Int("source_errors", len(failures)),
		applogger.Duration("took_ms", time.Since(start)),
	)
	return r, nil
}

// Classify builds and publishes a report for externally supplied indicators.
func (a *PhaseAnalyzer) Classify(ctx context.Context, set models.IndicatorSet, origin models.Origin) (*models.PhaseReport, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r := a.report(set, origin, nil)
	a.publish(ctx, r)
	return r, nil
}

func (a *PhaseAnalyzer) report(set models.IndicatorSet, origin models.Origin, failures map[string]string) *models.PhaseReport {
	assessment := a.classifier.Evaluate(set)
	return &models.PhaseReport{
		ID:           uuid.NewString(),
		Timestamp:    a.now().UTC(),
		Origin:       origin,
		Indicators:   set,
		Verdict:      assessment.Verdict,
		Signals:      assessment.Signals,
		Readings:     phase.Describe(set),
		SourceErrors: failures,
	}
}

// publish caches, stores and broadcasts r. Each sink failing is logged and
// counted; none of them stops the others.
func (a *PhaseAnalyzer) publish(ctx context.Context, r *models.PhaseReport) {
	a.metrics.RecordVerdict(r.Verdict.String(), string(r.Origin))

	// Ad-hoc requests are what-if queries and must not replace the current
	// phase or the indicator gauges.
	if r.Origin != models.OriginRequest {
		for _, ind := range r.Indicators.Present() {
			a.metrics.RecordIndicator(string(ind), *r.Indicators.Get(ind))
		}
		if err := a.cache.Set(ctx, latestKey, r, a.cacheTTL); err != nil {
			a.metrics.RecordError("cache_set")
			a.log.Error("cache latest report", applogger.Error(err))
		}
	}
	if err := a.store.Save(ctx, r); err != nil {
		a.metrics.RecordError("store_save")
		a.log.Error("store report", applogger.String("id", r.ID), applogger.Error(err))
	}
	if err := a.pub.Publish(ctx, r); err != nil {
		a.metrics.RecordError("publish")
		a.log.Error("publish report", applogger.String("id", r.ID), applogger.Error(err))
	}

	a.mu.RLock()
	defer a.mu.RUnlock()
	for _, fn := range a.subs {
		fn(r)
	}
}

// Latest returns the most recent live or streamed report.
func (a *PhaseAnalyzer) Latest(ctx context.Context) (*models.PhaseReport, error) {
	var r models.PhaseReport
	if err := a.cache.Get(ctx, latestKey, &r); err != nil {
		if errors.Is(err, cache.ErrCacheMiss) {
			return nil, ErrNoReport
		}
		return nil, fmt.Errorf("latest report: %w", err)
	}
	return &r, nil
}

// History lists stored reports in [from, to], newest first.
func (a *PhaseAnalyzer) History(ctx context.Context, from, to time.Time, limit int) ([]*models.PhaseReport, error) {
	if to.Before(from) {
		return nil, fmt.Errorf("history: to %s is before from %s", to.Format(time.RFC3339), from.Format(time.RFC3339))
	}
	return a.store.Range(ctx, from, to, limit)
}

// Subscribe registers fn for every published report. fn must not block.
func (a *PhaseAnalyzer) Subscribe(fn func(*models.PhaseReport)) (unsubscribe func()) {
	a.mu.Lock()
	id := a.nextSub
	a.nextSub++
	a.subs[id] = fn
	a.mu.Unlock()

	return func() {
		a.mu.Lock()
		delete(a.subs, id)
		a.mu.Unlock()
	}
}

// SourceNames lists the configured sources in merge order.
func (a *PhaseAnalyzer) SourceNames() []string {
	names := make([]string, len(a.sources))
	for i, s := range a.sources {
		names[i] = s.Name()
	}
	return names
}

func indicatorNames(inds []models.Indicator) []string {
	out := make([]string, len(inds))
	for i, ind := range inds {
		out[i] = string(ind)
	}
	return out
}
