package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"MarketThermo/internal/domain/models"
	domsvc "MarketThermo/internal/domain/service"
	xhttp "MarketThermo/pkg/http"
	xlogger "MarketThermo/pkg/logger"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = wsPongWait * 9 / 10
	wsReadLimit  = 4096
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// ReportSocketHandler answers every {date, lang} frame with a freshly
// assembled report or an error frame.
type ReportSocketHandler struct {
	logger     *xlogger.Logger
	reports    domsvc.ReportAssembler
	pongWait   time.Duration
	pingPeriod time.Duration
}

// SocketOption configures ReportSocketHandler.
type SocketOption func(*ReportSocketHandler)

// WithKeepalive sets how long the peer may stay silent and how often it is pinged.
func WithKeepalive(pongWait, pingPeriod time.Duration) SocketOption {
	return func(h *ReportSocketHandler) {
		if pongWait > 0 && pingPeriod > 0 && pingPeriod < pongWait {
			h.pongWait, h.pingPeriod = pongWait, pingPeriod
		}
	}
}

func NewReportSocketHandler(logger *xlogger.Logger, reports domsvc.ReportAssembler, opts ...SocketOption) *ReportSocketHandler {
	h := &ReportSocketHandler{logger: logger, reports: reports, pongWait: wsPongWait, pingPeriod: wsPingPeriod}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *ReportSocketHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/ws/report", h.Serve)
}

func (h *ReportSocketHandler) Serve(c echo.Context) error {
	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", xlogger.Error(err))
		return nil
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(c.Request().Context())
	defer cancel()

	conn.SetReadLimit(wsReadLimit)
	_ = conn.SetReadDeadline(time.Now().Add(h.pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(h.pongWait))
	})

	frames := make(chan models.ReportFrame)
	go h.readLoop(ctx, cancel, conn, frames)
	// Pings run apart from answering so a slow fetch cannot starve them.
	go h.keepalive(ctx, cancel, conn)

	for {
		select {
		case <-ctx.Done():
			return nil
		case f := <-frames:
			event := h.answer(ctx, f)
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteJSON(event); err != nil {
				h.logger.Debug("websocket write failed", xlogger.Error(err))
				return nil
			}
		}
	}
}

// keepalive pings the peer until ctx ends. WriteControl may run concurrently
// with WriteJSON on the serving goroutine.
func (h *ReportSocketHandler) keepalive(ctx context.Context, cancel context.CancelFunc, conn *websocket.Conn) {
	ticker := time.NewTicker(h.pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteWait)); err != nil {
				cancel()
				return
			}
		}
	}
}

func (h *ReportSocketHandler) readLoop(ctx context.Context, cancel context.CancelFunc, conn *websocket.Conn, out chan<- models.ReportFrame) {
	defer cancel()
	for {
		var f models.ReportFrame
		if err := conn.ReadJSON(&f); err != nil {
			var closeErr *websocket.CloseError
			if !errors.As(err, &closeErr) {
				h.logger.Debug("websocket read ended", xlogger.Error(err))
			}
			return
		}
		select {
		case out <- f:
		case <-ctx.Done():
			return
		}
		// The hand-off waits for the previous answer; pongs were not read meanwhile.
		_ = conn.SetReadDeadline(time.Now().Add(h.pongWait))
	}
}

func (h *ReportSocketHandler) answer(ctx context.Context, f models.ReportFrame) models.ReportEvent {
	if verr, ok := xhttp.ValidateStruct(ctx, &f).([]xhttp.ValidationError); ok && len(verr) > 0 {
		return models.ReportEvent{Type: "error", Error: verr[0].Message, Code: xhttp.CodeBadRequest}
	}
	day, err := parseDay(f.Date)
	if err == nil {
		var report *models.MarketReport
		report, err = h.reports.Compose(ctx, day, models.ParseLanguage(f.Lang), f.Narrative)
		if err == nil {
			return models.ReportEvent{Type: "report", Report: report}
		}
	}
	appErr := toAppError(err)
	return models.ReportEvent{Type: "error", Error: appErr.Message, Code: appErr.Code}
}
