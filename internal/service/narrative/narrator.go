package narrative

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"MarketThermo/internal/domain/models"
	"MarketThermo/internal/domain/repository"
	domsvc "MarketThermo/internal/domain/service"
	"MarketThermo/pkg/cache"
	applogger "MarketThermo/pkg/logger"
	"MarketThermo/pkg/metrics"
)

var (
	fallbackNoKey = models.Localized{EN: "Analysis unavailable (No API Key)", ZH: "无法获取分析 (缺少API Key)"}
	fallbackError = models.Localized{EN: "Analysis temporarily unavailable.", ZH: "暂时无法获取分析。"}
	fallbackEmpty = models.Localized{EN: "Market data updated.", ZH: "市场数据已更新"}
)

// Prompt builds the two-sentence commentary request for a metric pair.
func Prompt(m models.MarketMetrics, lang models.Language) string {
	language := "Chinese"
	if lang == models.LangEN {
		language = "English"
	}
	return fmt.Sprintf(
		"Context: Nasdaq 100 TTM PE is %s, VIX is %s.\n"+
			"Task: Write a very concise 2-sentence market commentary in %s.\n"+
			"1st sentence: Interpret valuations and sentiment.\n"+
			"2nd sentence: Provide a direct strategic tip (Buy/Hold/Sell/Wait).",
		formatNumber(m.Ratio), formatNumber(m.Volatility), language)
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Option configures a Narrator.
type Option func(*Narrator)

// WithCache stores generated text under (ratio, volatility, language) for ttl.
func WithCache(c cache.Service, ttl time.Duration) Option {
	return func(n *Narrator) {
		n.cache = c
		n.ttl = ttl
	}
}

func WithTimeout(d time.Duration) Option {
	return func(n *Narrator) {
		if d > 0 {
			n.timeout = d
		}
	}
}

func WithLogger(l *applogger.Logger) Option {
	return func(n *Narrator) {
		if l != nil {
			n.logger = l
		}
	}
}

func WithMetrics(m repository.Metrics) Option {
	return func(n *Narrator) {
		if m != nil {
			n.metrics = m
		}
	}
}

// Narrator produces market commentary and never fails: every error path
// resolves to localized fallback text.
type Narrator struct {
	gen     domsvc.TextGenerator
	cache   cache.Service
	ttl     time.Duration
	timeout time.Duration
	logger  *applogger.Logger
	metrics repository.Metrics
}

// NewNarrator builds a narrator. A nil generator means no API key is configured.
func NewNarrator(gen domsvc.TextGenerator, opts ...Option) *Narrator {
	n := &Narrator{
		gen:     gen,
		ttl:     30 * time.Minute,
		timeout: 20 * time.Second,
		logger:  applogger.Nop(),
		metrics: metrics.Nop{},
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

func (n *Narrator) Narrate(ctx context.Context, m models.MarketMetrics, lang models.Language) string {
	if n.gen == nil {
		n.metrics.RecordNarrative("no_key")
		return fallbackNoKey.In(lang)
	}

	key := cache.GenerateKeyWithParams("narrative", string(lang), formatNumber(m.Ratio), formatNumber(m.Volatility))
	if n.cache != nil {
		var cached string
		err := n.cache.Get(ctx, key, &cached)
		switch {
		case err == nil && cached != "":
			n.metrics.RecordNarrative("cache_hit")
			return cached
		case err != nil && !errors.Is(err, cache.ErrCacheMiss):
			n.logger.Warn("narrative cache read failed", applogger.Error(err))
		}
	}

	text, err := n.generate(ctx, m, lang)
	if err != nil {
		n.metrics.RecordNarrative("error")
		n.logger.Warn("narrative generation failed",
			applogger.Float("ratio", m.Ratio),
			applogger.Float("volatility", m.Volatility),
			applogger.Error(err),
		)
		return fallbackError.In(lang)
	}
	if text == "" {
		n.metrics.RecordNarrative("empty")
		return fallbackEmpty.In(lang)
	}

	n.metrics.RecordNarrative("generated")
	if n.cache != nil {
		if err := n.cache.Set(ctx, key, text, n.ttl); err != nil {
			n.logger.Warn("narrative cache write failed", applogger.Error(err))
		}
	}
	return text
}

func (n *Narrator) generate(ctx context.Context, m models.MarketMetrics, lang models.Language) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()

	text, err := n.gen.Generate(ctx, Prompt(m, lang))
	if err != nil {
		return "", fmt.Errorf("%w: %v", models.ErrNarrativeUnavailable, err)
	}
	return strings.TrimSpace(text), nil
}

var _ domsvc.Narrator = (*Narrator)(nil)
