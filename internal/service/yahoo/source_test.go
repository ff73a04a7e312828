package yahoo

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"MarketThermo/internal/domain/models"
	"MarketThermo/internal/service/relay"
	"MarketThermo/internal/services/decision"
	xhttp "MarketThermo/pkg/http"
)

// fakeFetcher answers by the first matching URL fragment; unmatched targets
// behave like every relay failing.
type fakeFetcher struct {
	mu     sync.Mutex
	routes map[string]string
	calls  []string
}

func (f *fakeFetcher) Fetch(_ context.Context, target string) ([]byte, bool) {
	f.mu.Lock()
	f.calls = append(f.calls, target)
	f.mu.Unlock()
	for frag, body := range f.routes {
		if strings.Contains(target, frag) {
			return []byte(body), true
		}
	}
	return nil, false
}

func (f *fakeFetcher) called(frag string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.calls {
		if strings.Contains(c, frag) {
			return true
		}
	}
	return false
}

const (
	v7       = "/v7/finance/quote"
	v10Asset = "/v10/finance/quoteSummary/QQQM"
	v10Vol   = "/v10/finance/quoteSummary/%5EVIX"
	v8Asset  = "/v8/finance/chart/QQQM"
	v8Vol    = "/v8/finance/chart/%5EVIX"
)

func newSource(routes map[string]string) (*Source, *fakeFetcher) {
	f := &fakeFetcher{routes: routes}
	return NewSource(Config{}, f, nil, nil), f
}

func TestFallbackEPSPinned(t *testing.T) {
	assert.Equal(t, 7.30, DefaultFallbackEPS)
}

func TestQuoteTierTrailingPE(t *testing.T) {
	src, f := newSource(map[string]string{
		v7: `{"quoteResponse":{"result":[
			{"symbol":"QQQM","trailingPE":32.456,"regularMarketPrice":200},
			{"symbol":"^VIX","regularMarketPrice":18.234}
		],"error":null}}`,
	})

	res, err := src.Current(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.SourceQuote, res.Source)
	assert.False(t, res.Estimated)
	assert.Equal(t, 32.46, res.Metrics.Ratio)
	assert.Equal(t, 18.23, res.Metrics.Volatility)
	assert.False(t, f.called("/v10/"))
}

func TestQuoteTierFallbacks(t *testing.T) {
	src, _ := newSource(map[string]string{
		v7: `{"quoteResponse":{"result":[
			{"symbol":"^VIX","regularMarketPrice":0,"regularMarketPreviousClose":21.5},
			{"symbol":"QQQM","trailingPE":null,"regularMarketPrice":219}
		]}}`,
	})

	res, err := src.Current(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 30.0, res.Metrics.Ratio)
	assert.Equal(t, 21.5, res.Metrics.Volatility)
}

func TestQuoteTierForwardPE(t *testing.T) {
	src, _ := newSource(map[string]string{
		v7: `{"quoteResponse":{"result":[
			{"symbol":"QQQM","forwardPE":27.1},
			{"symbol":"^VIX","regularMarketPrice":14}
		]}}`,
	})

	res, err := src.Current(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 27.1, res.Metrics.Ratio)
}

func TestQuoteTierMissingVolatilityFallsToSummary(t *testing.T) {
	src, f := newSource(map[string]string{
		v7: `{"quoteResponse":{"result":[
			{"symbol":"QQQM","trailingPE":33},
			{"symbol":"^VIX"}
		]}}`,
		v10Asset: `{"quoteSummary":{"result":[{"summaryDetail":{"trailingPE":{"raw":31.987,"fmt":"31.99"}}}],"error":null}}`,
		v10Vol:   `{"quoteSummary":{"result":[{"price":{"regularMarketPrice":{"raw":22.4}}}],"error":null}}`,
	})

	res, err := src.Current(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.SourceSummary, res.Source)
	assert.Equal(t, 31.99, res.Metrics.Ratio)
	assert.Equal(t, 22.4, res.Metrics.Volatility)
	assert.True(t, f.called(v7))
}

func TestSummaryTierComputesFromEPS(t *testing.T) {
	src, _ := newSource(map[string]string{
		v10Asset: `{"quoteSummary":{"result":[{
			"summaryDetail":{},
			"price":{"regularMarketPrice":{"raw":240}},
			"defaultKeyStatistics":{"trailingEps":{"raw":8}}
		}]}}`,
		v10Vol: `{"quoteSummary":{"result":[{"price":{"regularMarketPrice":{"raw":16}}}]}}`,
	})

	res, err := src.Current(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 30.0, res.Metrics.Ratio)
}

func TestSummaryTierCurrentPriceAndFallbackEPS(t *testing.T) {
	src, _ := newSource(map[string]string{
		v10Asset: `{"quoteSummary":{"result":[{"financialData":{"currentPrice":{"raw":146}}}]}}`,
		v10Vol:   `{"quoteSummary":{"result":[{"price":{"regularMarketPrice":{"raw":16}}}]}}`,
	})

	res, err := src.Current(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 20.0, res.Metrics.Ratio)
}

func TestSummaryTierNeedsBothInstruments(t *testing.T) {
	src, f := newSource(map[string]string{
		v10Asset: `{"quoteSummary":{"result":[{"summaryDetail":{"trailingPE":{"raw":31}}}]}}`,
		v8Asset:  `{"chart":{"result":[{"meta":{"regularMarketPrice":255.5}}]}}`,
		v8Vol:    `{"chart":{"result":[{"meta":{"regularMarketPrice":0,"chartPreviousClose":29.004}}]}}`,
	})

	res, err := src.Current(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.SourceChart, res.Source)
	assert.False(t, res.Estimated)
	assert.Equal(t, 35.0, res.Metrics.Ratio)
	assert.Equal(t, 29.0, res.Metrics.Volatility)
	assert.True(t, f.called(v10Vol))
}

func TestCurrentRejectsNonPositiveAfterRounding(t *testing.T) {
	src, _ := newSource(map[string]string{
		v7: `{"quoteResponse":{"result":[
			{"symbol":"QQQM","trailingPE":-4},
			{"symbol":"^VIX","regularMarketPrice":0.004}
		]}}`,
	})

	_, err := src.Current(context.Background())
	assert.True(t, errors.Is(err, models.ErrAllSourcesExhausted))
}

func TestCurrentAllTiersFail(t *testing.T) {
	src, f := newSource(nil)

	_, err := src.Current(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrAllSourcesExhausted))
	assert.True(t, f.called(v7))
	assert.True(t, f.called("/v10/"))
	assert.True(t, f.called("/v8/"))
}

func TestHistoricalUsesFirstNonNullClose(t *testing.T) {
	src, f := newSource(map[string]string{
		v8Asset: `{"chart":{"result":[{"indicators":{"quote":[{"close":[null,233.6,240]}]}}]}}`,
		v8Vol:   `{"chart":{"result":[{"indicators":{"quote":[{"close":[19.456]}]}}]}}`,
	})
	day := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)

	res, err := src.Historical(context.Background(), day)
	require.NoError(t, err)
	assert.True(t, res.Estimated)
	assert.Equal(t, models.SourceHistorical, res.Source)
	assert.Equal(t, 32.0, res.Metrics.Ratio)
	assert.Equal(t, 19.46, res.Metrics.Volatility)
	assert.True(t, f.called("period1=1710460800"))
	assert.True(t, f.called("period2=1710550800"))
	assert.True(t, f.called("interval=1d"))
}

func TestHistoricalMissingClose(t *testing.T) {
	src, _ := newSource(map[string]string{
		v8Asset: `{"chart":{"result":[{"indicators":{"quote":[{"close":[null,null]}]}}]}}`,
		v8Vol:   `{"chart":{"result":[{"indicators":{"quote":[{"close":[19]}]}}]}}`,
	})

	_, err := src.Historical(context.Background(), time.Date(2024, 3, 16, 0, 0, 0, 0, time.UTC))
	assert.True(t, errors.Is(err, models.ErrAllSourcesExhausted))
}

func TestHistoricalConverges(t *testing.T) {
	src, _ := newSource(map[string]string{
		v8Asset: `{"chart":{"result":[{"indicators":{"quote":[{"close":[233.6]}]}}]}}`,
		v8Vol:   `{"chart":{"result":[{"indicators":{"quote":[{"close":[19.4]}]}}]}}`,
	})
	day := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)

	first, err := src.Historical(context.Background(), day)
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		again, err := src.Historical(context.Background(), day)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestRound2(t *testing.T) {
	cases := []struct {
		in, want float64
	}{
		{1.005, 1.00},
		{20.005, 20.00},
		{28.005, 28.00},
		{35.005, 35.01},
		{15.005, 15.01},
		{2.675, 2.67},
		{1.125, 1.13},
		{-1.125, -1.13},
		{34.999, 35.00},
		{0.004, 0.00},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, round2(tc.in), "round2(%v)", tc.in)
	}
}

// Values that sit on a band edge in decimal but just below it in binary must
// classify on the side the exact value falls.
func TestCurrentRoundsBandEdgesFromBinaryValue(t *testing.T) {
	src, _ := newSource(map[string]string{
		v7: `{"quoteResponse":{"result":[
			{"symbol":"QQQM","trailingPE":35.005,"regularMarketPrice":250},
			{"symbol":"^VIX","regularMarketPrice":20.005}
		]}}`,
	})

	res, err := src.Current(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 35.01, res.Metrics.Ratio)
	assert.Equal(t, 20.00, res.Metrics.Volatility)
	assert.Equal(t, models.Overvalued, decision.ClassifyValuation(res.Metrics.Ratio))
	assert.Equal(t, models.Normal, decision.ClassifySentiment(res.Metrics.Volatility))
}

// TestCurrentThroughRelays drives the pipeline through a real racer whose
// relays are served by an in-process upstream.
func TestCurrentThroughRelays(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		target := r.URL.Query().Get("u")
		switch {
		case strings.Contains(target, v7):
			// relay wraps the body as a string, upstream reports no PE and no VIX
			_, _ = w.Write([]byte(`{"contents":"{\"quoteResponse\":{\"result\":[{\"symbol\":\"QQQM\"}]}}"}`))
		case strings.Contains(target, v10Asset):
			_, _ = w.Write([]byte(`{"quoteSummary":{"result":null,"error":{"code":"Unauthorized"}}}`))
		case strings.Contains(target, v10Vol):
			_, _ = w.Write([]byte(`{"quoteSummary":{"result":[{"price":{"regularMarketPrice":{"raw":17}}}]}}`))
		case strings.Contains(target, v8Asset):
			_, _ = w.Write([]byte(`{"chart":{"result":[{"meta":{"regularMarketPrice":219}}],"error":null}}`))
		case strings.Contains(target, v8Vol):
			_, _ = w.Write([]byte(`{"chart":{"result":[{"meta":{"regularMarketPrice":17.25}}],"error":null}}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer upstream.Close()

	racer := relay.NewRacer(xhttp.NewClient(), []relay.Relay{
		{Name: "one", Template: upstream.URL + "/a?u={url}"},
		{Name: "two", Template: upstream.URL + "/b?u={url}"},
	}, relay.WithAttemptTimeout(2*time.Second))
	src := NewSource(Config{}, racer, nil, nil)

	res, err := src.Current(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.SourceChart, res.Source)
	assert.Equal(t, 30.0, res.Metrics.Ratio)
	assert.Equal(t, 17.25, res.Metrics.Volatility)
}
