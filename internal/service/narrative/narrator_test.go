package narrative

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"MarketThermo/internal/domain/models"
	"MarketThermo/pkg/cache"
)

type fakeGenerator struct {
	mu      sync.Mutex
	text    string
	err     error
	delay   time.Duration
	prompts []string
}

func (f *fakeGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	f.mu.Lock()
	f.prompts = append(f.prompts, prompt)
	f.mu.Unlock()
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return f.text, f.err
}

func (f *fakeGenerator) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.prompts)
}

var pair = models.MarketMetrics{Ratio: 32.5, Volatility: 18.2}

func TestNarrateNoKey(t *testing.T) {
	n := NewNarrator(nil)
	assert.Equal(t, "Analysis unavailable (No API Key)", n.Narrate(context.Background(), pair, models.LangEN))
	assert.Equal(t, "无法获取分析 (缺少API Key)", n.Narrate(context.Background(), pair, models.LangZH))
}

func TestNarrateGeneratorError(t *testing.T) {
	n := NewNarrator(&fakeGenerator{err: errors.New("quota")})
	assert.Equal(t, "Analysis temporarily unavailable.", n.Narrate(context.Background(), pair, models.LangEN))
	assert.Equal(t, "暂时无法获取分析。", n.Narrate(context.Background(), pair, models.LangZH))
}

func TestNarrateEmptyResponse(t *testing.T) {
	n := NewNarrator(&fakeGenerator{text: "   "})
	assert.Equal(t, "Market data updated.", n.Narrate(context.Background(), pair, models.LangEN))
	assert.Equal(t, "市场数据已更新", n.Narrate(context.Background(), pair, models.LangZH))
}

func TestNarrateTimeout(t *testing.T) {
	n := NewNarrator(&fakeGenerator{text: "late", delay: time.Second}, WithTimeout(50*time.Millisecond))
	assert.Equal(t, "Analysis temporarily unavailable.", n.Narrate(context.Background(), pair, models.LangEN))
}

func TestNarrateTrimsAndPrompts(t *testing.T) {
	gen := &fakeGenerator{text: "  Valuations are stretched. Wait.  "}
	n := NewNarrator(gen)

	got := n.Narrate(context.Background(), pair, models.LangEN)
	assert.Equal(t, "Valuations are stretched. Wait.", got)

	require.Len(t, gen.prompts, 1)
	p := gen.prompts[0]
	assert.Contains(t, p, "Nasdaq 100 TTM PE is 32.5, VIX is 18.2.")
	assert.Contains(t, p, "2-sentence market commentary in English.")
	assert.Contains(t, p, "(Buy/Hold/Sell/Wait)")
}

func TestPromptLanguage(t *testing.T) {
	assert.True(t, strings.Contains(Prompt(pair, models.LangZH), "in Chinese."))
}

func TestNarrateUsesCache(t *testing.T) {
	mc := cache.NewMemoryCache()
	defer mc.Close()
	gen := &fakeGenerator{text: "Cheap and fearful. Buy."}
	n := NewNarrator(gen, WithCache(mc, time.Minute))

	first := n.Narrate(context.Background(), pair, models.LangEN)
	second := n.Narrate(context.Background(), pair, models.LangEN)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, gen.calls())

	n.Narrate(context.Background(), pair, models.LangZH)
	assert.Equal(t, 2, gen.calls())
}

func TestNarrateDoesNotCacheFallbacks(t *testing.T) {
	mc := cache.NewMemoryCache()
	defer mc.Close()
	gen := &fakeGenerator{err: errors.New("boom")}
	n := NewNarrator(gen, WithCache(mc, time.Minute))

	n.Narrate(context.Background(), pair, models.LangEN)
	n.Narrate(context.Background(), pair, models.LangEN)
	assert.Equal(t, 2, gen.calls())
	assert.Equal(t, 0, mc.Len())
}

type brokenCache struct{ cache.Service }

func (brokenCache) Get(context.Context, string, interface{}) error { return errors.New("down") }
func (brokenCache) Set(context.Context, string, interface{}, time.Duration) error {
	return errors.New("down")
}

func TestNarrateCacheErrorsDegradeToGeneration(t *testing.T) {
	gen := &fakeGenerator{text: "Fresh."}
	n := NewNarrator(gen, WithCache(brokenCache{}, time.Minute))
	assert.Equal(t, "Fresh.", n.Narrate(context.Background(), pair, models.LangEN))
}
