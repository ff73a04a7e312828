package decision

import "MarketThermo/internal/domain/models"

// Band boundaries. A value equal to a boundary stays in the lower band.
const (
	OvervaluedAbove = 35.0
	ExpensiveAbove  = 30.0
	FairAbove       = 25.0

	CrashAbove  = 28.0
	FearAbove   = 20.0
	NormalAbove = 15.0
)

// ClassifyValuation maps a trailing PE ratio to its valuation band.
func ClassifyValuation(ratio float64) models.ValuationState {
	switch {
	case ratio > OvervaluedAbove:
		return models.Overvalued
	case ratio > ExpensiveAbove:
		return models.Expensive
	case ratio > FairAbove:
		return models.Fair
	default:
		return models.Undervalued
	}
}

// ClassifySentiment maps a volatility index reading to its sentiment band.
func ClassifySentiment(volatility float64) models.SentimentState {
	switch {
	case volatility > CrashAbove:
		return models.Crash
	case volatility > FearAbove:
		return models.Fear
	case volatility > NormalAbove:
		return models.Normal
	default:
		return models.Greed
	}
}
