package yahoo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"MarketThermo/internal/domain/models"
	"MarketThermo/internal/domain/repository"
	applogger "MarketThermo/pkg/logger"
	"MarketThermo/pkg/metrics"
	"MarketThermo/pkg/util"
)

// DefaultFallbackEPS is the trailing EPS assumed for the index proxy when the
// upstream does not report one.
const DefaultFallbackEPS = 7.30

var errNoData = errors.New("no data")

// Config describes the upstream endpoints and instruments.
type Config struct {
	Symbol           string
	VolatilitySymbol string
	FallbackEPS      float64
	QuoteBaseURL     string // hosts /v7 quote
	ChartBaseURL     string // hosts /v10 quoteSummary and /v8 chart
}

func (c *Config) applyDefaults() {
	if c.Symbol == "" {
		c.Symbol = "QQQM"
	}
	if c.VolatilitySymbol == "" {
		c.VolatilitySymbol = "^VIX"
	}
	if c.FallbackEPS <= 0 {
		c.FallbackEPS = DefaultFallbackEPS
	}
	if c.QuoteBaseURL == "" {
		c.QuoteBaseURL = "https://query2.finance.yahoo.com"
	}
	if c.ChartBaseURL == "" {
		c.ChartBaseURL = "https://query1.finance.yahoo.com"
	}
}

type tier struct {
	name    models.DataSource
	resolve func(ctx context.Context) (models.MarketMetrics, error)
}

// Source is the tiered market data pipeline over a relay fetcher.
type Source struct {
	cfg     Config
	fetcher repository.RawFetcher
	logger  *applogger.Logger
	metrics repository.Metrics
}

func NewSource(cfg Config, fetcher repository.RawFetcher, logger *applogger.Logger, m repository.Metrics) *Source {
	cfg.applyDefaults()
	if logger == nil {
		logger = applogger.Nop()
	}
	if m == nil {
		m = metrics.Nop{}
	}
	return &Source{cfg: cfg, fetcher: fetcher, logger: logger, metrics: m}
}

// Current tries the quote, summary and chart tiers in order and returns the
// first that yields a valid pair. Nothing carries over between tiers.
func (s *Source) Current(ctx context.Context) (models.FetchResult, error) {
	tiers := []tier{
		{name: models.SourceQuote, resolve: s.quoteTier},
		{name: models.SourceSummary, resolve: s.summaryTier},
		{name: models.SourceChart, resolve: s.chartTier},
	}

	for _, t := range tiers {
		if err := ctx.Err(); err != nil {
			return models.FetchResult{}, fmt.Errorf("%w: %v", models.ErrAllSourcesExhausted, err)
		}
		m, err := t.resolve(ctx)
		if err == nil {
			m = models.MarketMetrics{Ratio: round2(m.Ratio), Volatility: round2(m.Volatility)}
			if m.Valid() {
				s.metrics.RecordTier(string(t.name), "accepted")
				return models.FetchResult{Metrics: m, Source: t.name}, nil
			}
			err = fmt.Errorf("invalid pair ratio=%v volatility=%v", m.Ratio, m.Volatility)
		}
		s.metrics.RecordTier(string(t.name), "rejected")
		s.logger.Warn("market tier rejected, falling back",
			applogger.String("tier", string(t.name)),
			applogger.Error(err),
		)
	}

	s.logger.Error("all market tiers exhausted")
	return models.FetchResult{}, models.ErrAllSourcesExhausted
}

// Historical estimates the pair from the first daily close on day.
func (s *Source) Historical(ctx context.Context, day time.Time) (models.FetchResult, error) {
	p1, p2 := util.DayWindow(day)
	query := url.Values{
		"period1":  {strconv.FormatInt(p1, 10)},
		"period2":  {strconv.FormatInt(p2, 10)},
		"interval": {"1d"},
	}

	var priceDoc, volDoc chartDoc
	if err := s.joinPair(ctx,
		s.chartURL(s.cfg.Symbol, query), &priceDoc,
		s.chartURL(s.cfg.VolatilitySymbol, query), &volDoc,
	); err != nil {
		s.metrics.RecordTier(string(models.SourceHistorical), "rejected")
		s.logger.Error("historical fetch failed",
			applogger.String("day", util.FormatDay(day)),
			applogger.Error(err),
		)
		return models.FetchResult{}, fmt.Errorf("%w: %v", models.ErrAllSourcesExhausted, err)
	}

	price, okP := firstClose(priceDoc)
	vol, okV := firstClose(volDoc)
	m := models.MarketMetrics{
		Ratio:      round2(price / s.cfg.FallbackEPS),
		Volatility: round2(vol),
	}
	if !okP || !okV || !m.Valid() {
		s.metrics.RecordTier(string(models.SourceHistorical), "rejected")
		s.logger.Error("historical closes missing", applogger.String("day", util.FormatDay(day)))
		return models.FetchResult{}, models.ErrAllSourcesExhausted
	}

	s.metrics.RecordTier(string(models.SourceHistorical), "accepted")
	return models.FetchResult{Metrics: m, Source: models.SourceHistorical, Estimated: true}, nil
}

func (s *Source) quoteTier(ctx context.Context) (models.MarketMetrics, error) {
	target := s.cfg.QuoteBaseURL + "/v7/finance/quote?symbols=" +
		url.QueryEscape(s.cfg.Symbol) + "," + url.QueryEscape(s.cfg.VolatilitySymbol)

	var doc quoteDoc
	if err := s.fetchInto(ctx, target, &doc); err != nil {
		return models.MarketMetrics{}, err
	}

	var asset, vol *quoteResult
	for i := range doc.QuoteResponse.Result {
		r := &doc.QuoteResponse.Result[i]
		switch r.Symbol {
		case s.cfg.Symbol:
			asset = r
		case s.cfg.VolatilitySymbol:
			vol = r
		}
	}
	if asset == nil || vol == nil {
		return models.MarketMetrics{}, fmt.Errorf("quote: missing instrument")
	}

	volatility, ok := firstTruthy(vol.RegularMarketPrice, vol.RegularMarketPreviousClose)
	if !ok {
		return models.MarketMetrics{}, fmt.Errorf("quote: no volatility")
	}
	ratio, ok := firstTruthy(asset.TrailingPE, asset.ForwardPE)
	if !ok {
		price, hasPrice := firstTruthy(asset.RegularMarketPrice)
		if !hasPrice {
			return models.MarketMetrics{}, fmt.Errorf("quote: no ratio or price")
		}
		ratio = price / s.cfg.FallbackEPS
	}
	return models.MarketMetrics{Ratio: ratio, Volatility: volatility}, nil
}

func (s *Source) summaryTier(ctx context.Context) (models.MarketMetrics, error) {
	assetURL := s.cfg.ChartBaseURL + "/v10/finance/quoteSummary/" + url.PathEscape(s.cfg.Symbol) +
		"?modules=summaryDetail,defaultKeyStatistics,price,financialData"
	volURL := s.cfg.ChartBaseURL + "/v10/finance/quoteSummary/" + url.PathEscape(s.cfg.VolatilitySymbol) +
		"?modules=price"

	var assetDoc, volDoc summaryDoc
	if err := s.joinPair(ctx, assetURL, &assetDoc, volURL, &volDoc); err != nil {
		return models.MarketMetrics{}, err
	}
	if len(assetDoc.QuoteSummary.Result) == 0 || len(volDoc.QuoteSummary.Result) == 0 {
		return models.MarketMetrics{}, fmt.Errorf("summary: empty result")
	}
	asset, volRes := assetDoc.QuoteSummary.Result[0], volDoc.QuoteSummary.Result[0]

	var volRaw *float64
	if volRes.Price != nil {
		volRaw = volRes.Price.RegularMarketPrice.value()
	}
	volatility, ok := firstTruthy(volRaw)
	if !ok {
		return models.MarketMetrics{}, fmt.Errorf("summary: no volatility")
	}

	var pe *float64
	if asset.SummaryDetail != nil {
		pe = asset.SummaryDetail.TrailingPE.value()
	}
	ratio, ok := firstTruthy(pe)
	if !ok {
		var marketPrice, currentPrice, eps *float64
		if asset.Price != nil {
			marketPrice = asset.Price.RegularMarketPrice.value()
		}
		if asset.FinancialData != nil {
			currentPrice = asset.FinancialData.CurrentPrice.value()
		}
		if asset.DefaultKeyStatistics != nil {
			eps = asset.DefaultKeyStatistics.TrailingEps.value()
		}
		price, hasPrice := firstTruthy(marketPrice, currentPrice)
		if !hasPrice {
			return models.MarketMetrics{}, fmt.Errorf("summary: no ratio or price")
		}
		divisor, hasEPS := firstTruthy(eps)
		if !hasEPS {
			divisor = s.cfg.FallbackEPS
		}
		ratio = price / divisor
	}
	return models.MarketMetrics{Ratio: ratio, Volatility: volatility}, nil
}

func (s *Source) chartTier(ctx context.Context) (models.MarketMetrics, error) {
	query := url.Values{"interval": {"1d"}, "range": {"1d"}}

	var assetDoc, volDoc chartDoc
	if err := s.joinPair(ctx,
		s.chartURL(s.cfg.Symbol, query), &assetDoc,
		s.chartURL(s.cfg.VolatilitySymbol, query), &volDoc,
	); err != nil {
		return models.MarketMetrics{}, err
	}

	price, okP := metaPrice(assetDoc)
	vol, okV := metaPrice(volDoc)
	if !okP || !okV {
		return models.MarketMetrics{}, fmt.Errorf("chart: missing meta price")
	}
	return models.MarketMetrics{Ratio: price / s.cfg.FallbackEPS, Volatility: vol}, nil
}

func (s *Source) chartURL(symbol string, query url.Values) string {
	return s.cfg.ChartBaseURL + "/v8/finance/chart/" + url.PathEscape(symbol) + "?" + query.Encode()
}

// joinPair fetches both instruments concurrently; both must succeed.
func (s *Source) joinPair(ctx context.Context, urlA string, destA interface{}, urlB string, destB interface{}) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return s.fetchInto(gctx, urlA, destA) })
	g.Go(func() error { return s.fetchInto(gctx, urlB, destB) })
	return g.Wait()
}

func (s *Source) fetchInto(ctx context.Context, target string, dest interface{}) error {
	doc, ok := s.fetcher.Fetch(ctx, target)
	if !ok {
		return fmt.Errorf("%s: %w", target, errNoData)
	}
	if err := json.Unmarshal(doc, dest); err != nil {
		return fmt.Errorf("%s: decode: %w", target, err)
	}
	return nil
}

func metaPrice(doc chartDoc) (float64, bool) {
	if len(doc.Chart.Result) == 0 || doc.Chart.Result[0].Meta == nil {
		return 0, false
	}
	meta := doc.Chart.Result[0].Meta
	return firstTruthy(meta.RegularMarketPrice, meta.ChartPreviousClose)
}

func firstClose(doc chartDoc) (float64, bool) {
	if len(doc.Chart.Result) == 0 {
		return 0, false
	}
	ind := doc.Chart.Result[0].Indicators
	if ind == nil || len(ind.Quote) == 0 {
		return 0, false
	}
	for _, c := range ind.Quote[0].Close {
		if c != nil {
			return firstTruthy(c)
		}
	}
	return 0, false
}

var _ repository.MarketSource = (*Source)(nil)
