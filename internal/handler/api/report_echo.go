package api

import (
	"context"
	"time"

	"MarketThermo/internal/domain/models"
	domsvc "MarketThermo/internal/domain/service"
	"MarketThermo/internal/services/decision"
	"MarketThermo/internal/usecase"
	xhttp "MarketThermo/pkg/http"
	xlogger "MarketThermo/pkg/logger"

	"github.com/labstack/echo/v4"
)

// ReportExporter is satisfied by *usecase.ExportUseCase.
type ReportExporter interface {
	Export(ctx context.Context, day time.Time, lang models.Language, format string, scale int, narrative bool) (*usecase.ExportResult, error)
}

// ReportEchoHandler serves reports, narrative, the decision matrix and exports.
type ReportEchoHandler struct {
	logger  *xlogger.Logger
	reports domsvc.ReportAssembler
	exports ReportExporter
}

func NewReportEchoHandler(logger *xlogger.Logger, reports domsvc.ReportAssembler, exports ReportExporter) *ReportEchoHandler {
	return &ReportEchoHandler{logger: logger, reports: reports, exports: exports}
}

func (h *ReportEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.GET("/report", h.Report)
	g.GET("/report/export", h.Export)
	g.GET("/narrative", h.Narrative)
	g.GET("/matrix", h.Matrix)
	e.GET("/healthz", h.Health)
}

func (h *ReportEchoHandler) Report(c echo.Context) error {
	req := &models.ReportRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	day, err := parseDay(req.Date)
	if err != nil {
		return xhttp.AppErrorResponse(c, toAppError(err))
	}

	report, err := h.reports.Compose(c.Request().Context(), day, models.ParseLanguage(req.Lang), req.Narrative)
	if err != nil {
		h.logger.Warn("report request failed", xlogger.String("date", req.Date), xlogger.Error(err))
		return xhttp.AppErrorResponse(c, toAppError(err))
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "no-store")
	return xhttp.SuccessResponse(c, report)
}

// Narrative always answers 200; failures resolve to fallback text.
func (h *ReportEchoHandler) Narrative(c echo.Context) error {
	req := &models.NarrativeRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	m := models.MarketMetrics{Ratio: req.Ratio, Volatility: req.Volatility}
	text := h.reports.Narrate(c.Request().Context(), m, models.ParseLanguage(req.Lang))
	return xhttp.SuccessResponse(c, models.NarrativeResponse{Text: text})
}

func (h *ReportEchoHandler) Matrix(c echo.Context) error {
	req := &models.MatrixRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "public, max-age=86400")
	return xhttp.SuccessResponse(c, decision.Matrix(models.ParseLanguage(req.Lang)))
}

func (h *ReportEchoHandler) Export(c echo.Context) error {
	req := &models.ExportRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	day, err := parseDay(req.Date)
	if err != nil {
		return xhttp.AppErrorResponse(c, toAppError(err))
	}

	res, err := h.exports.Export(c.Request().Context(), day, models.ParseLanguage(req.Lang), req.Format, req.Scale, false)
	if err != nil {
		h.logger.Warn("export failed",
			xlogger.String("date", req.Date),
			xlogger.String("format", req.Format),
			xlogger.Error(err),
		)
		return xhttp.AppErrorResponse(c, toAppError(err))
	}
	return xhttp.Attachment(c, res.ContentType, res.Filename, res.Body)
}

func (h *ReportEchoHandler) Health(c echo.Context) error {
	return xhttp.SuccessResponse(c, map[string]string{"status": "ok"})
}
