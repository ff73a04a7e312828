package decision

import (
	"fmt"

	"MarketThermo/internal/domain/models"
)

// Header is one labelled row or column of the matrix.
type Header struct {
	Label string `json:"label"`
	Sub   string `json:"sub"`
	Color string `json:"color"`
}

// Labels is the localization table for one language.
type Labels struct {
	Title       string   `json:"title"`
	PELabel     string   `json:"peLabel"`
	VIXLabel    string   `json:"vixLabel"`
	PlanLabel   string   `json:"planLabel"`
	Live        string   `json:"live"`
	Estimate    string   `json:"estimate"`
	Sources     string   `json:"sources"`
	Disclaimer  string   `json:"disclaimer"`
	MatrixTitle string   `json:"matrixTitle"`
	Corner      Header   `json:"corner"`
	Columns     []Header `json:"columns"`
	Rows        []Header `json:"rows"`

	valuation [4]string
	sentiment [4]string
}

var labelsEN = Labels{
	Title:       "Nasdaq 100 Thermometer",
	PELabel:     "PE (TTM)",
	VIXLabel:    "VIX (Sentiment)",
	PlanLabel:   "Today's Plan",
	Live:        "Live Data",
	Estimate:    "Historical Estimate",
	Sources:     "Sources",
	Disclaimer:  "Personal dashboard. Not financial advice. Data accuracy not guaranteed.",
	MatrixTitle: "Decision Matrix",
	Corner:      Header{Label: `PE \ VIX`, Sub: `(Val \ Sent)`, Color: "gray"},
	Columns: []Header{
		{Label: "Greed", Sub: "< 15", Color: "red"},
		{Label: "Normal", Sub: "15-20", Color: "yellow"},
		{Label: "Fear", Sub: "20-28", Color: "green"},
		{Label: "Crash", Sub: "> 28", Color: "green"},
	},
	Rows: []Header{
		{Label: "Overvalued", Sub: "> 35", Color: "red"},
		{Label: "Expensive", Sub: "30-35", Color: "red"},
		{Label: "Fair", Sub: "25-30", Color: "yellow"},
		{Label: "Undervalued", Sub: "< 25", Color: "green"},
	},
	valuation: [4]string{"Overvalued", "Expensive", "Fair", "Undervalued"},
	sentiment: [4]string{"Greed", "Normal", "Fear", "Crash"},
}

var labelsZH = Labels{
	Title:       "纳指100 市场温度",
	PELabel:     "PE (TTM 估值)",
	VIXLabel:    "VIX (情绪)",
	PlanLabel:   "今日计划",
	Live:        "实时数据",
	Estimate:    "历史回测估算",
	Sources:     "数据来源",
	Disclaimer:  "个人复盘记录 · 不作投资建议",
	MatrixTitle: "决策矩阵",
	Corner:      Header{Label: `PE \ VIX`, Sub: `(纵 \ 横)`, Color: "gray"},
	Columns: []Header{
		{Label: "贪婪", Sub: "< 15", Color: "red"},
		{Label: "正常", Sub: "15-20", Color: "yellow"},
		{Label: "恐慌", Sub: "20-28", Color: "green"},
		{Label: "崩盘", Sub: "> 28", Color: "green"},
	},
	Rows: []Header{
		{Label: "高估", Sub: "> 35", Color: "red"},
		{Label: "偏贵", Sub: "30-35", Color: "red"},
		{Label: "合理", Sub: "25-30", Color: "yellow"},
		{Label: "低估", Sub: "< 25", Color: "green"},
	},
	valuation: [4]string{"高估", "偏贵", "合理", "低估"},
	sentiment: [4]string{"贪婪", "正常", "恐慌", "崩盘"},
}

// LabelsFor returns the localization table for lang.
func LabelsFor(lang models.Language) Labels {
	if lang == models.LangEN {
		return labelsEN
	}
	return labelsZH
}

func (l Labels) Valuation(v models.ValuationState) string {
	return l.valuation[clamp(int(v))]
}

func (l Labels) Sentiment(s models.SentimentState) string {
	return l.sentiment[clamp(int(s))]
}

// Badge colors as RGB hex.
var (
	valuationBadge = [4]string{"#ef4444", "#f87171", "#facc15", "#22c55e"}
	sentimentBadge = [4]string{"#ef4444", "#60a5fa", "#22c55e", "#15803d"}
)

func ValuationBadge(v models.ValuationState) string { return valuationBadge[clamp(int(v))] }

func SentimentBadge(s models.SentimentState) string { return sentimentBadge[clamp(int(s))] }

// Sources returns the static provenance attached to every report.
func Sources() []models.Source {
	return []models.Source{
		{Label: "Yahoo Finance (QQQM Quote)", Link: "https://finance.yahoo.com/quote/QQQM"},
		{Label: "Yahoo Finance (VIX)", Link: "https://finance.yahoo.com/quote/%5EVIX"},
	}
}

// ExportFilename names an exported report for day (YYYY-MM-DD).
func ExportFilename(day, ext string) string {
	return fmt.Sprintf("nasdaq-plan-%s.%s", day, ext)
}

// MatrixView is the serializable decision matrix with its localized headers.
type MatrixView struct {
	Title   string                  `json:"title"`
	Corner  Header                  `json:"corner"`
	Columns []Header                `json:"columns"`
	Rows    []Header                `json:"rows"`
	Cells   [][]models.DecisionCell `json:"cells"`
}

// Matrix builds the full 4x4 view for lang.
func Matrix(lang models.Language) MatrixView {
	l := LabelsFor(lang)
	view := MatrixView{Title: l.MatrixTitle, Corner: l.Corner, Columns: l.Columns, Rows: l.Rows}
	for _, v := range models.ValuationStates() {
		row := make([]models.DecisionCell, 0, 4)
		for _, s := range models.SentimentStates() {
			row = append(row, Lookup(v, s))
		}
		view.Cells = append(view.Cells, row)
	}
	return view
}
