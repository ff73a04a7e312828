package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"MarketThermo/internal/domain/models"
	"MarketThermo/internal/services/decision"
	"MarketThermo/internal/usecase"
	xlogger "MarketThermo/pkg/logger"
)

type composeCall struct {
	day       time.Time
	lang      models.Language
	narrative bool
}

type fakeAssembler struct {
	mu    sync.Mutex
	err   error
	delay time.Duration
	calls []composeCall
}

func (f *fakeAssembler) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *fakeAssembler) GetReport(ctx context.Context, day time.Time, lang models.Language) (*models.MarketReport, error) {
	return f.Compose(ctx, day, lang, false)
}

func (f *fakeAssembler) Compose(ctx context.Context, day time.Time, lang models.Language, narrative bool) (*models.MarketReport, error) {
	f.mu.Lock()
	f.calls = append(f.calls, composeCall{day, lang, narrative})
	f.mu.Unlock()
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	v, s := models.Expensive, models.Fear
	r := &models.MarketReport{
		Date:           "2024-03-15",
		Language:       lang,
		Ratio:          31.5,
		Volatility:     21.0,
		ValuationState: v,
		SentimentState: s,
		Cell:           decision.Lookup(v, s),
		ActionPlan:     decision.DerivePlan(v, s, lang),
		Sources:        decision.Sources(),
	}
	if narrative {
		r.NarrativeText = "text"
	}
	return r, nil
}

func (f *fakeAssembler) Narrate(_ context.Context, m models.MarketMetrics, lang models.Language) string {
	return fmt.Sprintf("%s:%g", lang, m.Ratio)
}

func (f *fakeAssembler) Today() time.Time { return time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC) }

type fakeExporter struct {
	format string
	scale  int
	err    error
}

func (f *fakeExporter) Export(_ context.Context, _ time.Time, _ models.Language, format string, scale int, _ bool) (*usecase.ExportResult, error) {
	f.format, f.scale = format, scale
	if f.err != nil {
		return nil, f.err
	}
	return &usecase.ExportResult{Body: []byte("PNGDATA"), ContentType: "image/png", Filename: "nasdaq-plan-2024-03-15.png"}, nil
}

type envelope struct {
	Status int             `json:"status"`
	Data   json.RawMessage `json:"data"`
}

func serve(t *testing.T, h *ReportEchoHandler, target string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	e := echo.New()
	h.RegisterRoutes(e)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))

	var env envelope
	if strings.HasPrefix(rec.Header().Get(echo.HeaderContentType), echo.MIMEApplicationJSON) {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	}
	return rec, env
}

func newHandler(a *fakeAssembler, x *fakeExporter) *ReportEchoHandler {
	return NewReportEchoHandler(xlogger.Nop(), a, x)
}

func TestReportDefaults(t *testing.T) {
	a := &fakeAssembler{}
	rec, env := serve(t, newHandler(a, &fakeExporter{}), "/api/report")

	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, a.calls, 1)
	assert.True(t, a.calls[0].day.IsZero(), "no date means today")
	assert.Equal(t, models.LangZH, a.calls[0].lang)
	assert.False(t, a.calls[0].narrative)

	var r models.MarketReport
	require.NoError(t, json.Unmarshal(env.Data, &r))
	assert.Equal(t, "2024-03-15", r.Date)
	assert.Equal(t, "加仓", r.Cell.Description.ZH)
	assert.Contains(t, string(env.Data), `"valuationState":"Expensive"`)
}

func TestReportWithParams(t *testing.T) {
	a := &fakeAssembler{}
	rec, env := serve(t, newHandler(a, &fakeExporter{}), "/api/report?date=2023-01-05&lang=en&narrative=true")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, time.Date(2023, 1, 5, 0, 0, 0, 0, time.UTC), a.calls[0].day)
	assert.Equal(t, models.LangEN, a.calls[0].lang)
	assert.True(t, a.calls[0].narrative)
	assert.Contains(t, string(env.Data), `"narrativeText":"text"`)
}

func TestReportErrors(t *testing.T) {
	cases := []struct {
		name   string
		target string
		err    error
		status int
		code   string
	}{
		{"bad lang", "/api/report?lang=fr", nil, http.StatusBadRequest, "ERR_ONEOF"},
		{"bad date", "/api/report?date=15/03/2024", nil, http.StatusBadRequest, "ERR_INVALID_DATE"},
		{"future", "/api/report", models.ErrFutureDateRequested, http.StatusBadRequest, "ERR_FUTURE_DATE"},
		{"exhausted", "/api/report", models.ErrAllSourcesExhausted, http.StatusServiceUnavailable, "ERR_DATA_UNAVAILABLE"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec, env := serve(t, newHandler(&fakeAssembler{err: tc.err}, &fakeExporter{}), tc.target)
			assert.Equal(t, tc.status, rec.Code)
			assert.Equal(t, tc.status, env.Status)
			assert.Contains(t, string(env.Data), tc.code)
		})
	}
}

func TestNarrative(t *testing.T) {
	rec, env := serve(t, newHandler(&fakeAssembler{}, &fakeExporter{}), "/api/narrative?ratio=31.5&volatility=21&lang=en")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"text":"en:31.5"}`, string(env.Data))

	rec, _ = serve(t, newHandler(&fakeAssembler{}, &fakeExporter{}), "/api/narrative?ratio=0&volatility=21")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMatrix(t *testing.T) {
	rec, env := serve(t, newHandler(&fakeAssembler{}, &fakeExporter{}), "/api/matrix?lang=en")
	require.Equal(t, http.StatusOK, rec.Code)

	var view decision.MatrixView
	require.NoError(t, json.Unmarshal(env.Data, &view))
	require.Len(t, view.Cells, 4)
	for _, row := range view.Cells {
		assert.Len(t, row, 4)
	}
	assert.Equal(t, "Greed", view.Columns[0].Label)
	assert.Equal(t, "All In", view.Cells[3][3].Description.EN)
}

func TestExport(t *testing.T) {
	x := &fakeExporter{}
	rec, _ := serve(t, newHandler(&fakeAssembler{}, x), "/api/report/export?lang=en&scale=3")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "png", x.format)
	assert.Equal(t, 3, x.scale)
	assert.Equal(t, "image/png", rec.Header().Get(echo.HeaderContentType))
	assert.Contains(t, rec.Header().Get(echo.HeaderContentDisposition), "nasdaq-plan-2024-03-15.png")
	assert.Equal(t, "PNGDATA", rec.Body.String())
}

func TestExportErrors(t *testing.T) {
	rec, _ := serve(t, newHandler(&fakeAssembler{}, &fakeExporter{}), "/api/report/export?scale=9")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = serve(t, newHandler(&fakeAssembler{}, &fakeExporter{}), "/api/report/export?format=gif")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, env := serve(t, newHandler(&fakeAssembler{}, &fakeExporter{err: models.ErrAllSourcesExhausted}), "/api/report/export")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, string(env.Data), "ERR_DATA_UNAVAILABLE")
}

func TestHealth(t *testing.T) {
	rec, env := serve(t, newHandler(&fakeAssembler{}, &fakeExporter{}), "/healthz")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, string(env.Data))
}
