package export

import (
	"fmt"
	"image/color"
	"strconv"
	"strings"
	"unicode/utf8"

	"MarketThermo/internal/domain/models"
	"MarketThermo/internal/services/decision"
)

const (
	MinScale = 1
	MaxScale = 4
)

// card is the renderer-independent content of an exported report.
type card struct {
	lang      models.Language
	labels    decision.Labels
	date      string
	estimated bool
	ratio     string
	vol       string
	valuation string
	valColor  color.RGBA
	sentiment string
	sentColor color.RGBA
	plan      models.ActionPlan
	cell      models.DecisionCell
	narrative string
	matrix    decision.MatrixView
	activeRow int
	activeCol int
	sources   []models.Source
}

// newCard resolves the text of report. Without CJK glyphs everything is
// rendered in English and non-ASCII narrative text is left out.
func newCard(r *models.MarketReport, cjk bool) card {
	lang := r.Language
	if lang != models.LangEN && !cjk {
		lang = models.LangEN
	}
	narrative := r.NarrativeText
	if !cjk && !isASCII(narrative) {
		narrative = ""
	}
	labels := decision.LabelsFor(lang)
	return card{
		lang:      lang,
		labels:    labels,
		date:      r.Date,
		estimated: r.IsEstimated,
		ratio:     strconv.FormatFloat(r.Ratio, 'f', 2, 64),
		vol:       strconv.FormatFloat(r.Volatility, 'f', 2, 64),
		valuation: labels.Valuation(r.ValuationState),
		valColor:  parseHex(decision.ValuationBadge(r.ValuationState)),
		sentiment: labels.Sentiment(r.SentimentState),
		sentColor: parseHex(decision.SentimentBadge(r.SentimentState)),
		plan:      decision.DerivePlan(r.ValuationState, r.SentimentState, lang),
		cell:      decision.Lookup(r.ValuationState, r.SentimentState),
		narrative: narrative,
		matrix:    decision.Matrix(lang),
		activeRow: int(r.ValuationState),
		activeCol: int(r.SentimentState),
		sources:   r.Sources,
	}
}

func (c card) statusLine() string {
	data := c.labels.Live
	if c.estimated {
		data = c.labels.Estimate
	}
	return fmt.Sprintf("%s | %s", c.date, data)
}

func (c card) actionLine() string {
	return fmt.Sprintf("%s | %s", c.cell.Action.In(c.lang), c.cell.Description.In(c.lang))
}

var palette = map[string]color.RGBA{
	"red":    parseHex("#ef4444"),
	"orange": parseHex("#f97316"),
	"yellow": parseHex("#eab308"),
	"green":  parseHex("#22c55e"),
	"blue":   parseHex("#60a5fa"),
	"gray":   parseHex("#64748b"),
}

func hint(name string) color.RGBA {
	if c, ok := palette[name]; ok {
		return c
	}
	return palette["gray"]
}

// parseHex reads #rrggbb; anything else yields opaque black.
func parseHex(s string) color.RGBA {
	s = strings.TrimPrefix(s, "#")
	if len(s) != 6 {
		return color.RGBA{A: 255}
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return color.RGBA{A: 255}
	}
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 255}
}

// mix blends c toward bg; t=0 keeps c, t=1 yields bg.
func mix(c, bg color.RGBA, t float64) color.RGBA {
	lerp := func(a, b uint8) uint8 { return uint8(float64(a)*(1-t) + float64(b)*t) }
	return color.RGBA{R: lerp(c.R, bg.R), G: lerp(c.G, bg.G), B: lerp(c.B, bg.B), A: 255}
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= utf8.RuneSelf {
			return false
		}
	}
	return true
}

// wrap breaks s into lines no wider than width according to measure. Words are
// kept whole unless a single word is too wide, which then breaks per rune.
func wrap(s string, width int, measure func(string) int) []string {
	var lines []string
	var cur string
	push := func() {
		if cur != "" {
			lines = append(lines, cur)
			cur = ""
		}
	}
	for _, word := range strings.Fields(s) {
		candidate := word
		if cur != "" {
			candidate = cur + " " + word
		}
		if measure(candidate) <= width {
			cur = candidate
			continue
		}
		push()
		if measure(word) <= width {
			cur = word
			continue
		}
		for _, r := range word {
			next := cur + string(r)
			if measure(next) > width && cur != "" {
				push()
				next = string(r)
			}
			cur = next
		}
	}
	push()
	return lines
}
