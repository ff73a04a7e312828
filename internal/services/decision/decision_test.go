package decision

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"MarketThermo/internal/domain/models"
)

func TestClassifyValuationBands(t *testing.T) {
	cases := []struct {
		ratio float64
		want  models.ValuationState
	}{
		{40, models.Overvalued},
		{35.01, models.Overvalued},
		{35.00, models.Expensive},
		{30.01, models.Expensive},
		{30, models.Fair},
		{25.01, models.Fair},
		{25, models.Undervalued},
		{0.5, models.Undervalued},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, ClassifyValuation(c.ratio), "ratio %v", c.ratio)
	}
}

func TestClassifySentimentBands(t *testing.T) {
	cases := []struct {
		vix  float64
		want models.SentimentState
	}{
		{45, models.Crash},
		{28.01, models.Crash},
		{28, models.Fear},
		{20.01, models.Fear},
		{20.00, models.Normal},
		{15.01, models.Normal},
		{15, models.Greed},
		{9.8, models.Greed},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, ClassifySentiment(c.vix), "vix %v", c.vix)
	}
}

func TestLookupIsTotal(t *testing.T) {
	seen := map[string]bool{}
	for _, v := range models.ValuationStates() {
		for _, s := range models.SentimentStates() {
			c := Lookup(v, s)
			require.NotEmpty(t, c.Action.EN, "%s/%s", v, s)
			require.NotEmpty(t, c.Action.ZH, "%s/%s", v, s)
			require.NotEmpty(t, c.Description.EN, "%s/%s", v, s)
			require.NotEmpty(t, c.Description.ZH, "%s/%s", v, s)
			require.NotEmpty(t, c.Color, "%s/%s", v, s)
			assert.True(t, c.Action.EN == strconv.Itoa(c.Percent)+"%", "%s/%s percent mismatch", v, s)
			seen[v.String()+"/"+s.String()] = true
		}
	}
	assert.Len(t, seen, 16)
}

func TestLookupCorners(t *testing.T) {
	c := Lookup(models.Overvalued, models.Greed)
	assert.Equal(t, "0%", c.Action.EN)
	assert.Equal(t, "躺平", c.Description.ZH)

	c = Lookup(models.Undervalued, models.Crash)
	assert.Equal(t, 100, c.Percent)
	assert.Equal(t, "12份", c.Action.ZH)
	assert.Equal(t, "All In", c.Description.EN)

	c = Lookup(models.Overvalued, models.Fear)
	assert.Equal(t, "0.5份", c.Action.ZH)
	assert.Equal(t, "orange", c.Color)
}

func TestLookupClampsOutOfRange(t *testing.T) {
	assert.Equal(t, Lookup(models.Undervalued, models.Crash), Lookup(models.ValuationState(9), models.SentimentState(7)))
	assert.Equal(t, Lookup(models.Overvalued, models.Greed), Lookup(models.ValuationState(-1), models.SentimentState(-3)))
}

func TestDerivePlanRules(t *testing.T) {
	cases := []struct {
		v  models.ValuationState
		s  models.SentimentState
		en string
		zh string
	}{
		{models.Overvalued, models.Greed, "WATCH", "观望"},
		{models.Overvalued, models.Crash, "WATCH", "观望"},
		{models.Expensive, models.Greed, "WATCH", "观望"},
		{models.Undervalued, models.Crash, "MAX BUY", "全仓机会"},
		{models.Expensive, models.Normal, "DCA", "定投"},
		{models.Fair, models.Greed, "DCA", "定投"},
		{models.Fair, models.Crash, "AGGRESSIVE", "积极买入"},
		{models.Undervalued, models.Normal, "AGGRESSIVE", "积极买入"},
		{models.Undervalued, models.Fear, "AGGRESSIVE", "积极买入"},
		{models.Undervalued, models.Greed, "DCA", "定投"},
	}
	for _, c := range cases {
		assert.Equal(t, c.en, DerivePlan(c.v, c.s, models.LangEN).Title, "%s/%s", c.v, c.s)
		assert.Equal(t, c.zh, DerivePlan(c.v, c.s, models.LangZH).Title, "%s/%s", c.v, c.s)
	}
}

func TestDerivePlanNeverMaxBuyWhenOvervalued(t *testing.T) {
	for _, s := range models.SentimentStates() {
		p := DerivePlan(models.Overvalued, s, models.LangEN)
		assert.Equal(t, "WATCH", p.Title)
		assert.Equal(t, "High valuation, preserve capital", p.Subtitle)
	}
}

func TestDerivePlanLanguageDoesNotChangeRule(t *testing.T) {
	for _, v := range models.ValuationStates() {
		for _, s := range models.SentimentStates() {
			en := DerivePlan(v, s, models.LangEN)
			zh := DerivePlan(v, s, models.LangZH)
			require.NotEmpty(t, en.Title)
			require.NotEmpty(t, zh.Title)
			assert.Equal(t, ruleIndex(en.Title, models.LangEN), ruleIndex(zh.Title, models.LangZH), "%s/%s", v, s)
		}
	}
}

func ruleIndex(title string, lang models.Language) int {
	for i, r := range planRules {
		if r.text.title.In(lang) == title {
			return i
		}
	}
	return -1
}

func TestMatrixView(t *testing.T) {
	m := Matrix(models.LangZH)
	require.Len(t, m.Cells, 4)
	for _, row := range m.Cells {
		require.Len(t, row, 4)
	}
	assert.Equal(t, "决策矩阵", m.Title)
	assert.Equal(t, "崩盘", m.Columns[3].Label)
	assert.Equal(t, "< 25", m.Rows[3].Sub)
	assert.Equal(t, "全押", m.Cells[3][3].Description.ZH)
}

func TestLabels(t *testing.T) {
	en := LabelsFor(models.LangEN)
	assert.Equal(t, "Nasdaq 100 Thermometer", en.Title)
	assert.Equal(t, "Undervalued", en.Valuation(models.Undervalued))
	assert.Equal(t, "Crash", en.Sentiment(models.Crash))

	zh := LabelsFor(models.Language("fr"))
	assert.Equal(t, "纳指100 市场温度", zh.Title)
	assert.Equal(t, "偏贵", zh.Valuation(models.Expensive))
	assert.Equal(t, "恐慌", zh.Sentiment(models.Fear))
}

func TestSourcesAndFilename(t *testing.T) {
	src := Sources()
	require.Len(t, src, 2)
	assert.Equal(t, "https://finance.yahoo.com/quote/%5EVIX", src[1].Link)
	assert.Equal(t, "nasdaq-plan-2024-03-15.png", ExportFilename("2024-03-15", "png"))
}
