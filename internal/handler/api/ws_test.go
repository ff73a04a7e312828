package api

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"MarketThermo/internal/domain/models"
	xlogger "MarketThermo/pkg/logger"
)

func dialReportSocket(t *testing.T, a *fakeAssembler, opts ...SocketOption) *websocket.Conn {
	t.Helper()
	e := echo.New()
	NewReportSocketHandler(xlogger.Nop(), a, opts...).RegisterRoutes(e)
	srv := httptest.NewServer(e)
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/report"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func roundTrip(t *testing.T, conn *websocket.Conn, f models.ReportFrame) models.ReportEvent {
	t.Helper()
	require.NoError(t, conn.WriteJSON(f))
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var ev models.ReportEvent
	require.NoError(t, conn.ReadJSON(&ev))
	return ev
}

func TestReportSocketAnswersEachFrame(t *testing.T) {
	a := &fakeAssembler{}
	conn := dialReportSocket(t, a)

	ev := roundTrip(t, conn, models.ReportFrame{Lang: "en"})
	assert.Equal(t, "report", ev.Type)
	require.NotNil(t, ev.Report)
	assert.Equal(t, "2024-03-15", ev.Report.Date)

	ev = roundTrip(t, conn, models.ReportFrame{Date: "2024-03-01", Lang: "zh", Narrative: true})
	assert.Equal(t, "report", ev.Type)
	assert.Equal(t, "text", ev.Report.NarrativeText)

	ev = roundTrip(t, conn, models.ReportFrame{Date: "March 1st"})
	assert.Equal(t, "error", ev.Type)
	assert.Equal(t, "ERR_INVALID_DATE", ev.Code)

	ev = roundTrip(t, conn, models.ReportFrame{Lang: "fr"})
	assert.Equal(t, "error", ev.Type)
	assert.Equal(t, "ERR_BAD_REQUEST", ev.Code)
	assert.Contains(t, ev.Error, "lang")

	assert.Equal(t, 2, a.count(), "every valid frame performs a fresh fetch")
}

func TestReportSocketErrorFrame(t *testing.T) {
	conn := dialReportSocket(t, &fakeAssembler{err: models.ErrAllSourcesExhausted})

	ev := roundTrip(t, conn, models.ReportFrame{})
	assert.Equal(t, "error", ev.Type)
	assert.Equal(t, "ERR_DATA_UNAVAILABLE", ev.Code)
	assert.Nil(t, ev.Report)
}

func TestReportSocketKeepsPingingDuringSlowAnswer(t *testing.T) {
	a := &fakeAssembler{delay: time.Second}
	conn := dialReportSocket(t, a, WithKeepalive(400*time.Millisecond, 100*time.Millisecond))

	// The client answers pings while blocked in ReadJSON; a starved pinger
	// would let the server read deadline lapse and cancel the fetch.
	ev := roundTrip(t, conn, models.ReportFrame{Lang: "en"})
	require.Equal(t, "report", ev.Type, "error=%s code=%s", ev.Error, ev.Code)

	ev = roundTrip(t, conn, models.ReportFrame{Lang: "zh"})
	assert.Equal(t, "report", ev.Type)
	assert.Equal(t, 2, a.count())
}
