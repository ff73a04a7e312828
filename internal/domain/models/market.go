package models

import (
	"math"
	"time"
)

// Language selects the localized variant of labels and narrative text.
type Language string

const (
	LangEN Language = "en"
	LangZH Language = "zh"
)

// ParseLanguage maps anything other than "en" to the default, Chinese.
func ParseLanguage(s string) Language {
	if s == string(LangEN) {
		return LangEN
	}
	return LangZH
}

// MarketMetrics is the raw pair produced by the fetch pipeline.
type MarketMetrics struct {
	Ratio      float64 `json:"ratio"`
	Volatility float64 `json:"volatility"`
}

// Valid reports whether both values are finite and strictly positive.
func (m MarketMetrics) Valid() bool {
	return isPositive(m.Ratio) && isPositive(m.Volatility)
}

func isPositive(v float64) bool {
	return v > 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}

// ValuationState is ordered from most to least expensive.
type ValuationState int

const (
	Overvalued ValuationState = iota
	Expensive
	Fair
	Undervalued
)

var valuationNames = [...]string{"Overvalued", "Expensive", "Fair", "Undervalued"}

func (v ValuationState) String() string {
	if v < Overvalued || v > Undervalued {
		return "Unknown"
	}
	return valuationNames[v]
}

func (v ValuationState) MarshalText() ([]byte, error) { return []byte(v.String()), nil }

// ValuationStates lists every state in table order.
func ValuationStates() []ValuationState {
	return []ValuationState{Overvalued, Expensive, Fair, Undervalued}
}

// SentimentState is ordered from calmest to most fearful.
type SentimentState int

const (
	Greed SentimentState = iota
	Normal
	Fear
	Crash
)

var sentimentNames = [...]string{"Greed", "Normal", "Fear", "Crash"}

func (s SentimentState) String() string {
	if s < Greed || s > Crash {
		return "Unknown"
	}
	return sentimentNames[s]
}

func (s SentimentState) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// SentimentStates lists every state in table order.
func SentimentStates() []SentimentState {
	return []SentimentState{Greed, Normal, Fear, Crash}
}

// Localized holds the English and Chinese variant of one piece of text.
type Localized struct {
	EN string `json:"en"`
	ZH string `json:"zh"`
}

// In picks the variant for lang.
func (l Localized) In(lang Language) string {
	if lang == LangEN {
		return l.EN
	}
	return l.ZH
}

// DecisionCell is one immutable entry of the decision matrix.
type DecisionCell struct {
	Percent     int       `json:"percent"`
	Action      Localized `json:"action"`
	Description Localized `json:"description"`
	Color       string    `json:"color"`
}

type ActionPlan struct {
	Title    string `json:"title"`
	Subtitle string `json:"subtitle"`
}

// Source is provenance metadata attached to every report.
type Source struct {
	Label string `json:"label"`
	Link  string `json:"link"`
}

// DataSource names the path that produced a report's metrics.
type DataSource string

const (
	SourceQuote      DataSource = "quote"
	SourceSummary    DataSource = "summary"
	SourceChart      DataSource = "chart"
	SourceHistorical DataSource = "historical"
)

// FetchResult is the pipeline output: metrics plus the tier that produced them.
type FetchResult struct {
	Metrics   MarketMetrics
	Source    DataSource
	Estimated bool
}

// MarketReport is built once per request and not modified afterwards.
type MarketReport struct {
	Date           string         `json:"date"`
	Language       Language       `json:"lang"`
	Ratio          float64        `json:"ratio"`
	Volatility     float64        `json:"volatility"`
	ValuationState ValuationState `json:"valuationState"`
	SentimentState SentimentState `json:"sentimentState"`
	Cell           DecisionCell   `json:"cell"`
	ActionPlan     ActionPlan     `json:"actionPlan"`
	NarrativeText  string         `json:"narrativeText,omitempty"`
	Sources        []Source       `json:"sources"`
	IsEstimated    bool           `json:"isEstimated"`
	DataSource     DataSource     `json:"dataSource"`
	GeneratedAt    time.Time      `json:"generatedAt"`
}

// Metrics returns the numeric pair behind the report.
func (r *MarketReport) Metrics() MarketMetrics {
	return MarketMetrics{Ratio: r.Ratio, Volatility: r.Volatility}
}
