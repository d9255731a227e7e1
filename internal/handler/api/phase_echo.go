package api

import (
	"context"
	"errors"
	"time"

	"MarketPhase/internal/domain/models"
	"MarketPhase/internal/usecase"
	xhttp "MarketPhase/pkg/http"
	xlogger "MarketPhase/pkg/logger"
	"MarketPhase/pkg/util"

	"github.com/labstack/echo/v4"
)

// PhaseService is what the HTTP layer needs from the analyzer.
type PhaseService interface {
	Analyze(ctx context.Context) (*models.PhaseReport, error)
	Classify(ctx context.Context, set models.IndicatorSet, origin models.Origin) (*models.PhaseReport, error)
	Latest(ctx context.Context) (*models.PhaseReport, error)
	History(ctx context.Context, from, to time.Time, limit int) ([]*models.PhaseReport, error)
	Collect(ctx context.Context) (models.IndicatorSet, map[string]string)
	Subscribe(fn func(*models.PhaseReport)) (unsubscribe func())
}

var _ PhaseService = (*usecase.PhaseAnalyzer)(nil)

// PhaseEchoHandler serves the phase endpoints.
type PhaseEchoHandler struct {
	logger *xlogger.Logger
	svc    PhaseService
	now    func() time.Time
}

func NewPhaseEchoHandler(logger *xlogger.Logger, svc PhaseService) *PhaseEchoHandler {
	if logger == nil {
		logger = xlogger.Nop()
	}
	return &PhaseEchoHandler{logger: logger, svc: svc, now: time.Now}
}

func (h *PhaseEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.GET("/phase", h.Latest)
	g.POST("/phase/classify", h.Classify)
	g.GET("/phase/history", h.History)
	g.GET("/indicators", h.Indicators)
}

// Latest returns the cached report, or runs a live analysis when refresh=true.
func (h *PhaseEchoHandler) Latest(c echo.Context) error {
	req := &models.LatestRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	ctx := c.Request().Context()
	var (
		r   *models.PhaseReport
		err error
	)
	if req.Refresh {
		r, err = h.svc.Analyze(ctx)
	} else {
		r, err = h.svc.Latest(ctx)
	}
	if err != nil {
		return h.fail(c, "latest", err)
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "private, max-age=15")
	return xhttp.SuccessResponse(c, r)
}

func (h *PhaseEchoHandler) Classify(c echo.Context) error {
	req := &models.ClassifyRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	r, err := h.svc.Classify(c.Request().Context(), req.IndicatorSet, models.OriginRequest)
	if err != nil {
		return h.fail(c, "classify", err)
	}
	if req.IncludeReadings != nil && !*req.IncludeReadings {
		out := *r
		out.Readings = nil
		r = &out
	}
	return xhttp.SuccessResponse(c, r)
}

func (h *PhaseEchoHandler) History(c echo.Context) error {
	req := &models.HistoryRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	to := h.now()
	if req.To != "" {
		t, ok := util.ParseTime(req.To)
		if !ok {
			return xhttp.AppErrorResponse(c, xhttp.BadRequestErrorf("to", "cannot parse %q as RFC3339 or unix time", req.To))
		}
		to = t
	}
	from := time.Unix(0, 0)
	if req.From != "" {
		t, ok := util.ParseTime(req.From)
		if !ok {
			return xhttp.AppErrorResponse(c, xhttp.BadRequestErrorf("from", "cannot parse %q as RFC3339 or unix time", req.From))
		}
		from = t
	}
	if to.Before(from) {
		return xhttp.AppErrorResponse(c, xhttp.BadRequestError("to", "to must not be before from"))
	}

	rows, err := h.svc.History(c.Request().Context(), from, to, req.Limit)
	if err != nil {
		return h.fail(c, "history", err)
	}
	return xhttp.ListResponse(c, rows, int64(len(rows)))
}

// Indicators collects without classifying.
func (h *PhaseEchoHandler) Indicators(c echo.Context) error {
	set, failures := h.svc.Collect(c.Request().Context())
	if set.Empty() && len(failures) > 0 {
		appErr := xhttp.UnavailableError("no indicator source answered")
		for name, msg := range failures {
			appErr.WithParam(name, msg)
		}
		return xhttp.AppErrorResponse(c, appErr)
	}
	return xhttp.SuccessResponse(c, &models.IndicatorsResponse{Indicators: set, SourceErrors: failures})
}

func (h *PhaseEchoHandler) fail(c echo.Context, op string, err error) error {
	switch {
	case errors.Is(err, usecase.ErrNoReport):
		return xhttp.AppErrorResponse(c, xhttp.NotFoundError("no phase report yet; retry later or use refresh=true"))
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return xhttp.AppErrorResponse(c, xhttp.UnavailableError("analysis did not finish in time").WithError(err))
	}
	h.logger.Error("phase usecase error", xlogger.String("op", op), xlogger.Error(err))
	return xhttp.AppErrorResponse(c, xhttp.InternalError(op+" failed").WithError(err))
}
