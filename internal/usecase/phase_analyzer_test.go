package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"MarketPhase/internal/domain/models"
	dservice "MarketPhase/internal/domain/service"
	"MarketPhase/internal/repository"
	"MarketPhase/internal/services/phase"
	"MarketPhase/pkg/cache"
	pkgkafka "MarketPhase/pkg/kafka"
	"MarketPhase/pkg/metrics"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	name  string
	set   models.IndicatorSet
	err   error
	delay time.Duration
}

func (f *fakeSource) Name() string { return f.name }

func (f *fakeSource) Fetch(ctx context.Context) (models.IndicatorSet, error) {
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return models.IndicatorSet{}, ctx.Err()
		}
	}
	return f.set, f.err
}

type recordingPublisher struct {
	mu      sync.Mutex
	reports []*models.PhaseReport
	err     error
}

func (p *recordingPublisher) Publish(_ context.Context, r *models.PhaseReport) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reports = append(p.reports, r)
	return p.err
}

func (p *recordingPublisher) Close() error { return nil }

// gaugeMetrics keeps the last value recorded per indicator.
type gaugeMetrics struct {
	metrics.Nop
	mu     sync.Mutex
	gauges map[string]float64
}

func (m *gaugeMetrics) RecordIndicator(indicator string, value float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.gauges == nil {
		m.gauges = make(map[string]float64)
	}
	m.gauges[indicator] = value
}

func (m *gaugeMetrics) gauge(indicator string) (float64, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.gauges[indicator]
	return v, ok
}

func overheatSet() models.IndicatorSet {
	return models.IndicatorSet{
		Kospi:    models.Float(2700),
		SP500:    models.Float(5200),
		Vkospi:   models.Float(15),
		Bond3y:   models.Float(2.4),
		BaseRate: models.Float(3.5),
		M2Growth: models.Float(7.1),
		USDKRW:   models.Float(1370),
		US10y:    models.Float(4.3),
	}
}

func newTestAnalyzer(t *testing.T, pub *recordingPublisher, sources ...*fakeSource) (*PhaseAnalyzer, *repository.MemoryReportStore) {
	t.Helper()
	c := cache.NewMemoryCache()
	t.Cleanup(func() { _ = c.Close() })
	store := repository.NewMemoryReportStore(10)
	srcs := make([]dservice.IndicatorSource, len(sources))
	for i, s := range sources {
		srcs[i] = s
	}
	a := NewPhaseAnalyzer(srcs, phase.NewClassifier(phase.DefaultThresholds()), c, store, pub, metrics.Nop{}, nil,
		WithFetchTimeout(time.Second))
	return a, store
}

func TestCollectMergesInSourceOrder(t *testing.T) {
	first := &fakeSource{name: "naver", set: models.IndicatorSet{Kospi: models.Float(2700)}}
	second := &fakeSource{name: "yahoo", set: models.IndicatorSet{Kospi: models.Float(1), SP500: models.Float(5200)}}
	a, _ := newTestAnalyzer(t, &recordingPublisher{}, first, second)

	set, failures := a.Collect(context.Background())
	assert.Nil(t, failures)
	require.NotNil(t, set.Kospi)
	assert.Equal(t, 2700.0, *set.Kospi)
	require.NotNil(t, set.SP500)
	assert.Equal(t, 5200.0, *set.SP500)
}

func TestCollectKeepsPartialResultsAndRecordsFailures(t *testing.T) {
	partial := &fakeSource{
		name: "ecos",
		set:  models.IndicatorSet{BaseRate: models.Float(3.5)},
		err:  errors.New("m2_growth: RESULT INFO-200"),
	}
	broken := &fakeSource{name: "naver", err: errors.New("status 503")}
	a, _ := newTestAnalyzer(t, &recordingPublisher{}, broken, partial)

	set, failures := a.Collect(context.Background())
	require.NotNil(t, set.BaseRate)
	assert.Nil(t, set.Kospi)
	assert.Nil(t, set.M2Growth)
	assert.Equal(t, map[string]string{
		"naver": "status 503",
		"ecos":  "m2_growth: RESULT INFO-200",
	}, failures)
}

func TestCollectBoundedByFetchTimeout(t *testing.T) {
	slow := &fakeSource{name: "yahoo", set: models.IndicatorSet{SP500: models.Float(1)}, delay: time.Minute}
	fast := &fakeSource{name: "manual", set: models.IndicatorSet{M2Growth: models.Float(7.1)}}
	a, _ := newTestAnalyzer(t, &recordingPublisher{}, slow, fast)
	a.fetchTimeout = 50 * time.Millisecond

	start := time.Now()
	set, failures := a.Collect(context.Background())
	assert.Less(t, time.Since(start), 5*time.Second)
	assert.Nil(t, set.SP500)
	require.NotNil(t, set.M2Growth)
	assert.Contains(t, failures, "yahoo")
}

func TestAnalyzePublishesEverywhere(t *testing.T) {
	pub := &recordingPublisher{}
	src := &fakeSource{name: "manual", set: overheatSet()}
	a, store := newTestAnalyzer(t, pub, src)

	var pushed []*models.PhaseReport
	unsubscribe := a.Subscribe(func(r *models.PhaseReport) { pushed = append(pushed, r) })

	r, err := a.Analyze(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.Overheat, r.Verdict)
	assert.Equal(t, models.OriginLive, r.Origin)
	assert.NotEmpty(t, r.ID)
	assert.NotEmpty(t, r.Readings)
	assert.True(t, r.Signals.RateUp.Value)
	assert.True(t, r.Signals.IndexUp.Value)

	latest, err := a.Latest(context.Background())
	require.NoError(t, err)
	assert.Equal(t, r.ID, latest.ID)
	assert.Equal(t, models.Overheat, latest.Verdict)

	assert.Equal(t, 1, store.Len())
	require.Len(t, pub.reports, 1)
	require.Len(t, pushed, 1)

	unsubscribe()
	_, err = a.Analyze(context.Background())
	require.NoError(t, err)
	assert.Len(t, pushed, 1)
	assert.Equal(t, 2, store.Len())
}

func TestPublishFailureDoesNotFailAnalysis(t *testing.T) {
	pub := &recordingPublisher{err: errors.New("broker down")}
	a, store := newTestAnalyzer(t, pub, &fakeSource{name: "manual", set: overheatSet()})

	_, err := a.Analyze(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, store.Len())
}

func TestLatestBeforeFirstReport(t *testing.T) {
	a, _ := newTestAnalyzer(t, &recordingPublisher{})
	_, err := a.Latest(context.Background())
	assert.ErrorIs(t, err, ErrNoReport)
}

func TestClassifyRequestLeavesLatestAlone(t *testing.T) {
	a, store := newTestAnalyzer(t, &recordingPublisher{})

	r, err := a.Classify(context.Background(), models.IndicatorSet{}, models.OriginRequest)
	require.NoError(t, err)
	assert.Equal(t, models.Undetermined, r.Verdict)
	assert.Equal(t, 1, store.Len())

	_, err = a.Latest(context.Background())
	assert.ErrorIs(t, err, ErrNoReport)

	_, err = a.Classify(context.Background(), overheatSet(), models.OriginStream)
	require.NoError(t, err)
	latest, err := a.Latest(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.OriginStream, latest.Origin)
}

func TestClassifyRequestLeavesIndicatorGaugesAlone(t *testing.T) {
	gm := &gaugeMetrics{}
	c := cache.NewMemoryCache()
	t.Cleanup(func() { _ = c.Close() })
	src := &fakeSource{name: "yahoo", set: models.IndicatorSet{Kospi: models.Float(2700)}}
	a := NewPhaseAnalyzer([]dservice.IndicatorSource{src}, phase.NewClassifier(phase.DefaultThresholds()),
		c, repository.NewMemoryReportStore(10), &recordingPublisher{}, gm, nil)

	_, err := a.Analyze(context.Background())
	require.NoError(t, err)
	_, err = a.Classify(context.Background(), models.IndicatorSet{Kospi: models.Float(1), SP500: models.Float(4200)}, models.OriginRequest)
	require.NoError(t, err)

	v, ok := gm.gauge("kospi")
	require.True(t, ok)
	assert.Equal(t, 2700.0, v)
	_, ok = gm.gauge("sp500")
	assert.False(t, ok)

	_, err = a.Classify(context.Background(), models.IndicatorSet{Kospi: models.Float(2650)}, models.OriginStream)
	require.NoError(t, err)
	v, _ = gm.gauge("kospi")
	assert.Equal(t, 2650.0, v)
}

func TestHistory(t *testing.T) {
	a, _ := newTestAnalyzer(t, &recordingPublisher{})
	clock := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	a.now = func() time.Time { clock = clock.Add(time.Hour); return clock }

	for i := 0; i < 3; i++ {
		_, err := a.Classify(context.Background(), overheatSet(), models.OriginStream)
		require.NoError(t, err)
	}

	got, err := a.History(context.Background(), time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), time.Date(2025, 3, 2, 0, 0, 0, 0, time.UTC), 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.True(t, got[0].Timestamp.After(got[1].Timestamp))

	_, err = a.History(context.Background(), time.Date(2025, 3, 2, 0, 0, 0, 0, time.UTC), time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), 10)
	assert.Error(t, err)
}

func TestIndicatorConsumer(t *testing.T) {
	a, store := newTestAnalyzer(t, &recordingPublisher{})
	h := NewIndicatorConsumer(a, "marketphase.indicators")
	assert.Equal(t, "marketphase.indicators", h.Topic())

	require.NoError(t, h.Handle(context.Background(), []byte(`{"kospi":2700,"sp500":5200}`)))
	assert.Equal(t, 1, store.Len())

	assert.ErrorIs(t, h.Handle(context.Background(), []byte(`{"kospi":`)), pkgkafka.ErrPermanent)
	err := h.Handle(context.Background(), []byte(`{"cpi":3}`))
	assert.ErrorIs(t, err, errEmptyIndicators)
	assert.ErrorIs(t, err, pkgkafka.ErrPermanent)
	assert.Equal(t, 1, store.Len())
}

func TestSchedulerRunsImmediatelyAndHonoursLock(t *testing.T) {
	a, store := newTestAnalyzer(t, &recordingPublisher{}, &fakeSource{name: "manual", set: overheatSet()})
	locker := cache.NewMemoryCache()
	t.Cleanup(func() { _ = locker.Close() })

	s := NewScheduler(a, locker, time.Hour, nil)
	require.NoError(t, s.Start(context.Background()))
	require.Eventually(t, func() bool { return store.Len() == 1 }, 2*time.Second, 10*time.Millisecond)
	require.NoError(t, s.Shutdown(context.Background()))

	// A second replica sees the lock and skips its first tick.
	other := NewScheduler(a, locker, time.Hour, nil)
	other.tick(context.Background())
	assert.Equal(t, 1, store.Len())

	assert.Error(t, NewScheduler(a, locker, 0, nil).Start(context.Background()))
}
