package api

import (
	"errors"

	"github.com/labstack/echo/v4"

	models "StockPulse/internal/domain/models"
	domrepo "StockPulse/internal/domain/repository"
	"StockPulse/internal/service/ratelimit"
	"StockPulse/internal/services/indicator"
	"StockPulse/internal/services/session"
	"StockPulse/internal/usecase"
	xhttp "StockPulse/pkg/http"
	xlogger "StockPulse/pkg/logger"
	"StockPulse/pkg/util"
)

// MarketEchoHandler serves the market data API under /api/v1.
type MarketEchoHandler struct {
	logger   *xlogger.Logger
	market   *usecase.MarketData
	backfill *usecase.Backfill
	session  *session.Classifier
	limiter  *ratelimit.Limiter
}

// NewMarketEchoHandler wires the handler. backfill and limiter may be nil.
func NewMarketEchoHandler(
	logger *xlogger.Logger,
	market *usecase.MarketData,
	backfill *usecase.Backfill,
	sess *session.Classifier,
	limiter *ratelimit.Limiter,
) *MarketEchoHandler {
	if logger == nil {
		logger = xlogger.Nop()
	}
	if sess == nil {
		sess = session.New()
	}
	return &MarketEchoHandler{logger: logger, market: market, backfill: backfill, session: sess, limiter: limiter}
}

func (h *MarketEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api/v1")
	if h.limiter != nil {
		g.Use(RateLimit(h.limiter))
	}
	g.GET("/quotes", h.Quotes)
	g.GET("/candles", h.Candles)
	g.GET("/ticks", h.Ticks)
	g.GET("/search", h.Search)
	g.GET("/detail", h.Detail)
	g.GET("/indicators", h.Indicators)
	g.GET("/session", h.Session)
	g.GET("/archive/candles", h.ArchivedCandles)
	g.POST("/backfill", h.Backfill)
	g.GET("/backfill/stats", h.BackfillStats)
}

func (h *MarketEchoHandler) Quotes(c echo.Context) error {
	req := &models.QuotesRequest{}
	if verr := xhttp.BindAndValidate(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	codes := util.SplitCSV(req.Codes)
	ctx := c.Request().Context()

	if req.Display {
		res, err := h.market.DisplayQuotes(ctx, codes)
		if err != nil {
			return h.fail(c, "quotes", err)
		}
		return xhttp.ListResponse(c, res, int64(len(res)))
	}
	res, err := h.market.Quotes(ctx, codes)
	if err != nil {
		return h.fail(c, "quotes", err)
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "no-cache")
	return xhttp.ListResponse(c, res, int64(len(res)))
}

func (h *MarketEchoHandler) Candles(c echo.Context) error {
	req := &models.CandlesRequest{}
	if verr := xhttp.BindAndValidate(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	res, err := h.market.Candles(c.Request().Context(), req.Code, domrepo.NormalizePeriod(req.Period), req.Count)
	if err != nil {
		return h.fail(c, "candles", err)
	}
	return xhttp.ListResponse(c, res, int64(len(res)))
}

func (h *MarketEchoHandler) Ticks(c echo.Context) error {
	req := &models.CodeRequest{}
	if verr := xhttp.BindAndValidate(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	res, err := h.market.Ticks(c.Request().Context(), req.Code)
	if err != nil {
		return h.fail(c, "ticks", err)
	}
	return xhttp.ListResponse(c, res, int64(len(res)))
}

func (h *MarketEchoHandler) Search(c echo.Context) error {
	req := &models.SearchRequest{}
	if verr := xhttp.BindAndValidate(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	res, err := h.market.Search(c.Request().Context(), req.Q)
	if err != nil {
		return h.fail(c, "search", err)
	}
	return xhttp.ListResponse(c, res, int64(len(res)))
}

func (h *MarketEchoHandler) Detail(c echo.Context) error {
	req := &models.CodeRequest{}
	if verr := xhttp.BindAndValidate(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	res, err := h.market.Detail(c.Request().Context(), req.Code)
	if err != nil {
		return h.fail(c, "detail", err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *MarketEchoHandler) Indicators(c echo.Context) error {
	req := &models.IndicatorsRequest{}
	if verr := xhttp.BindAndValidate(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	res, err := h.market.Indicators(c.Request().Context(), usecase.IndicatorParams{
		Code:   req.Code,
		Period: domrepo.NormalizePeriod(req.Period),
		Count:  req.Count,
		Config: indicator.Config{
			MACDParams: []int{req.MACDFast, req.MACDSlow, req.MACDSignal},
			RSIPeriod:  req.RSI,
			KDJParams:  []int{req.KDJN, req.KDJM1, req.KDJM2},
		},
	})
	if err != nil {
		return h.fail(c, "indicators", err)
	}
	return xhttp.SuccessResponse(c, res)
}

// Session classifies a feed timestamp against the trading session.
func (h *MarketEchoHandler) Session(c echo.Context) error {
	req := &models.SessionRequest{}
	if verr := xhttp.BindAndValidate(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	return xhttp.SuccessResponse(c, models.SessionResponse{
		Time:   req.Time,
		Closed: h.session.IsClosed(req.Time),
	})
}

func (h *MarketEchoHandler) ArchivedCandles(c echo.Context) error {
	req := &models.ArchiveCandlesRequest{}
	if verr := xhttp.BindAndValidate(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	res, err := h.market.ArchivedCandles(c.Request().Context(), req.Code, domrepo.NormalizePeriod(req.Period), req.Limit)
	if err != nil {
		return h.fail(c, "archive", err)
	}
	return xhttp.ListResponse(c, res, int64(len(res)))
}

func (h *MarketEchoHandler) Backfill(c echo.Context) error {
	req := &models.BackfillRequest{}
	if verr := xhttp.BindAndValidate(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	queued, err := h.backfill.Enqueue(c.Request().Context(), usecase.BackfillRequest{
		Code:   req.Code,
		Period: domrepo.Period(req.Period),
		Count:  req.Count,
	})
	if err != nil {
		return h.fail(c, "backfill", err)
	}
	return xhttp.AcceptedResponse(c, queued)
}

func (h *MarketEchoHandler) BackfillStats(c echo.Context) error {
	req := &models.BackfillStatsRequest{}
	if verr := xhttp.BindAndValidate(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	st, err := h.backfill.Stats(c.Request().Context(), req.Code, domrepo.Period(req.Period))
	if err != nil {
		return h.fail(c, "backfill", err)
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "no-cache")
	return xhttp.SuccessResponse(c, st)
}

// fail maps use case errors onto the response envelope. Anything unmapped is
// reported as an upstream failure.
func (h *MarketEchoHandler) fail(c echo.Context, op string, err error) error {
	switch {
	case errors.Is(err, usecase.ErrNotFound):
		return xhttp.AppErrorResponse(c, xhttp.NotFoundError(err.Error()))
	case errors.Is(err, usecase.ErrUnavailable):
		return xhttp.AppErrorResponse(c, xhttp.UnavailableError(op+" is not configured"))
	case errors.Is(err, usecase.ErrConflict):
		return xhttp.AppErrorResponse(c, xhttp.ConflictError(err.Error()))
	}
	h.logger.Error("market usecase error", xlogger.String("op", op), xlogger.Error(err))
	return xhttp.AppErrorResponse(c, xhttp.UpstreamError("quote provider request failed").WithError(err))
}
