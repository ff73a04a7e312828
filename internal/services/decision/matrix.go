package decision

import "MarketThermo/internal/domain/models"

func cell(pct int, actionEN, actionZH, descEN, descZH, color string) models.DecisionCell {
	return models.DecisionCell{
		Percent:     pct,
		Action:      models.Localized{EN: actionEN, ZH: actionZH},
		Description: models.Localized{EN: descEN, ZH: descZH},
		Color:       color,
	}
}

// matrix is indexed [valuation][sentiment]; both enums are dense from zero.
var matrix = [4][4]models.DecisionCell{
	models.Overvalued: {
		models.Greed:  cell(0, "0%", "0份", "Flat", "躺平", "red"),
		models.Normal: cell(0, "0%", "0份", "Wait", "观望", "red"),
		models.Fear:   cell(5, "5%", "0.5份", "Nibble", "少量", "orange"),
		models.Crash:  cell(10, "10%", "1份", "Chance", "机会", "green"),
	},
	models.Expensive: {
		models.Greed:  cell(0, "0%", "0份", "Sell", "卖出", "red"),
		models.Normal: cell(10, "10%", "1份", "DCA", "定投", "yellow"),
		models.Fear:   cell(20, "20%", "2份", "Add", "加倍", "green"),
		models.Crash:  cell(30, "30%", "3份", "Buy", "大买", "green"),
	},
	models.Fair: {
		models.Greed:  cell(10, "10%", "1份", "Hold", "持有", "yellow"),
		models.Normal: cell(20, "20%", "2份", "DCA", "定投", "green"),
		models.Fear:   cell(30, "30%", "3份", "Add", "加仓", "green"),
		models.Crash:  cell(50, "50%", "5份", "Greed", "贪婪", "green"),
	},
	models.Undervalued: {
		models.Greed:  cell(30, "30%", "3份", "Accum", "吸筹", "green"),
		models.Normal: cell(50, "50%", "5份", "Heavy", "重仓", "green"),
		models.Fear:   cell(80, "80%", "8份", "Bottom", "抄底", "green"),
		models.Crash:  cell(100, "100%", "12份", "All In", "全押", "green"),
	},
}

// Lookup returns the decision cell for a state pair. Out-of-range states are
// clamped to the nearest band so the lookup never fails.
func Lookup(v models.ValuationState, s models.SentimentState) models.DecisionCell {
	return matrix[clamp(int(v))][clamp(int(s))]
}

func clamp(i int) int {
	if i < 0 {
		return 0
	}
	if i > 3 {
		return 3
	}
	return i
}
