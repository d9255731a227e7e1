package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"MarketPhase/internal/domain/models"
	"MarketPhase/internal/usecase"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeService struct {
	mu        sync.Mutex
	latest    *models.PhaseReport
	collected models.IndicatorSet
	failures  map[string]string
	classify  models.IndicatorSet
	history   struct {
		from, to time.Time
		limit    int
	}
	subs []func(*models.PhaseReport)
}

func (f *fakeService) Analyze(context.Context) (*models.PhaseReport, error) {
	f.latest = &models.PhaseReport{ID: "fresh", Origin: models.OriginLive, Verdict: models.Recovery}
	return f.latest, nil
}

func (f *fakeService) Classify(_ context.Context, set models.IndicatorSet, origin models.Origin) (*models.PhaseReport, error) {
	f.classify = set
	return &models.PhaseReport{
		ID:         "req",
		Origin:     origin,
		Indicators: set,
		Verdict:    models.Overheat,
		Readings:   []models.Reading{{Indicator: "kospi", Tone: models.TonePositive}},
	}, nil
}

func (f *fakeService) Latest(context.Context) (*models.PhaseReport, error) {
	if f.latest == nil {
		return nil, usecase.ErrNoReport
	}
	return f.latest, nil
}

func (f *fakeService) History(_ context.Context, from, to time.Time, limit int) ([]*models.PhaseReport, error) {
	f.history.from, f.history.to, f.history.limit = from, to, limit
	return []*models.PhaseReport{{ID: "h1"}, {ID: "h2"}}, nil
}

func (f *fakeService) Collect(context.Context) (models.IndicatorSet, map[string]string) {
	return f.collected, f.failures
}

func (f *fakeService) Subscribe(fn func(*models.PhaseReport)) func() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subs = append(f.subs, fn)
	return func() {}
}

func (f *fakeService) emit(r *models.PhaseReport) {
	f.mu.Lock()
	subs := append([]func(*models.PhaseReport){}, f.subs...)
	f.mu.Unlock()
	for _, fn := range subs {
		fn(r)
	}
}

type envelope struct {
	Status  int             `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func serve(t *testing.T, svc *fakeService, method, target, body string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	e := echo.New()
	NewPhaseEchoHandler(nil, svc).RegisterRoutes(e)

	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return rec, env
}

func TestLatestNotFoundThenRefresh(t *testing.T) {
	svc := &fakeService{}

	rec, env := serve(t, svc, http.MethodGet, "/api/phase", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, http.StatusNotFound, env.Status)

	rec, env = serve(t, svc, http.MethodGet, "/api/phase?refresh=true", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var r models.PhaseReport
	require.NoError(t, json.Unmarshal(env.Data, &r))
	assert.Equal(t, "fresh", r.ID)
	assert.Equal(t, models.Recovery, r.Verdict)

	rec, _ = serve(t, svc, http.MethodGet, "/api/phase", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestClassify(t *testing.T) {
	svc := &fakeService{}

	rec, env := serve(t, svc, http.MethodPost, "/api/phase/classify", `{"kospi":2700,"base_rate":3.5}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var r models.PhaseReport
	require.NoError(t, json.Unmarshal(env.Data, &r))
	assert.Equal(t, models.OriginRequest, r.Origin)
	assert.NotEmpty(t, r.Readings)
	require.NotNil(t, svc.classify.Kospi)
	assert.Equal(t, 3.5, *svc.classify.BaseRate)
	assert.Nil(t, svc.classify.SP500)

	rec, env = serve(t, svc, http.MethodPost, "/api/phase/classify", `{"kospi":2700,"include_readings":false}`)
	require.Equal(t, http.StatusOK, rec.Code)
	r = models.PhaseReport{}
	require.NoError(t, json.Unmarshal(env.Data, &r))
	assert.Empty(t, r.Readings)

	rec, _ = serve(t, svc, http.MethodPost, "/api/phase/classify", `{"kospi":"high"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHistory(t *testing.T) {
	svc := &fakeService{}

	rec, env := serve(t, svc, http.MethodGet, "/api/phase/history?from=2025-01-01T00:00:00Z&to=1740787200", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list struct {
		Rows  []models.PhaseReport `json:"rows"`
		Total int64                `json:"total"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &list))
	assert.EqualValues(t, 2, list.Total)
	assert.Equal(t, 50, svc.history.limit)
	assert.True(t, svc.history.from.Equal(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)))
	assert.True(t, svc.history.to.Equal(time.Unix(1740787200, 0)))

	rec, _ = serve(t, svc, http.MethodGet, "/api/phase/history?limit=5000", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = serve(t, svc, http.MethodGet, "/api/phase/history?from=yesterday", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = serve(t, svc, http.MethodGet, "/api/phase/history?from=2025-02-01&to=2025-01-01", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestIndicators(t *testing.T) {
	svc := &fakeService{
		collected: models.IndicatorSet{Kospi: models.Float(2650)},
		failures:  map[string]string{"ecos": "status 500"},
	}
	rec, env := serve(t, svc, http.MethodGet, "/api/indicators", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var resp models.IndicatorsResponse
	require.NoError(t, json.Unmarshal(env.Data, &resp))
	require.NotNil(t, resp.Indicators.Kospi)
	assert.Equal(t, "status 500", resp.SourceErrors["ecos"])

	svc.collected = models.IndicatorSet{}
	rec, _ = serve(t, svc, http.MethodGet, "/api/indicators", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestStreamPushesReports(t *testing.T) {
	svc := &fakeService{latest: &models.PhaseReport{ID: "current", Verdict: models.Recession}}
	e := echo.New()
	stream := NewStreamHandler(nil, svc)
	stream.RegisterRoutes(e)
	srv := httptest.NewServer(e)
	defer srv.Close()
	defer stream.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws/phase", nil)
	require.NoError(t, err)
	defer conn.Close()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var r models.PhaseReport
	require.NoError(t, conn.ReadJSON(&r))
	assert.Equal(t, "current", r.ID)
	assert.Equal(t, 1, stream.Clients())

	svc.emit(&models.PhaseReport{ID: "next", Verdict: models.Depression})
	require.NoError(t, conn.ReadJSON(&r))
	assert.Equal(t, "next", r.ID)
	assert.Equal(t, models.Depression, r.Verdict)
}
