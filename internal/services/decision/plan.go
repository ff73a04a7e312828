package decision

import "MarketThermo/internal/domain/models"

type planText struct {
	title, subtitle models.Localized
}

var (
	planWatch = planText{
		models.Localized{EN: "WATCH", ZH: "观望"},
		models.Localized{EN: "High valuation, preserve capital", ZH: "高估值 + 正常，等待更好机会"},
	}
	planMaxBuy = planText{
		models.Localized{EN: "MAX BUY", ZH: "全仓机会"},
		models.Localized{EN: "Rare opportunity, act decidedly", ZH: "千载难逢，果断出击"},
	}
	planObserve = planText{
		models.Localized{EN: "OBSERVE", ZH: "观察"},
		models.Localized{EN: "Market is hot, wait for dip", ZH: "市场火热，等待回调"},
	}
	planAggressive = planText{
		models.Localized{EN: "AGGRESSIVE", ZH: "积极买入"},
		models.Localized{EN: "Strong value proposition", ZH: "性价比极高"},
	}
	planDCA = planText{
		models.Localized{EN: "DCA", ZH: "定投"},
		models.Localized{EN: "Regular investment recommended", ZH: "建议按计划分批买入"},
	}
	planWait = planText{
		models.Localized{EN: "WAIT", ZH: "观望"},
		models.Localized{EN: "Uncertain market conditions", ZH: "市场走势不明朗"},
	}
)

type planRule struct {
	match func(v models.ValuationState, s models.SentimentState, c models.DecisionCell) bool
	text  planText
}

// planRules are evaluated in order; the first match wins.
var planRules = []planRule{
	{
		match: func(v models.ValuationState, s models.SentimentState, _ models.DecisionCell) bool {
			return v == models.Overvalued || (v == models.Expensive && s == models.Greed)
		},
		text: planWatch,
	},
	{
		match: func(v models.ValuationState, s models.SentimentState, _ models.DecisionCell) bool {
			return v == models.Undervalued && s == models.Crash
		},
		text: planMaxBuy,
	},
	{
		match: func(_ models.ValuationState, _ models.SentimentState, c models.DecisionCell) bool {
			return c.Percent == 0 || c.Percent == 5
		},
		text: planObserve,
	},
	{
		match: func(_ models.ValuationState, _ models.SentimentState, c models.DecisionCell) bool {
			return c.Percent >= 50
		},
		text: planAggressive,
	},
	{
		match: func(models.ValuationState, models.SentimentState, models.DecisionCell) bool { return true },
		text:  planDCA,
	},
}

// DerivePlan applies the override rules to a state pair. Language only
// selects the text variant.
func DerivePlan(v models.ValuationState, s models.SentimentState, lang models.Language) models.ActionPlan {
	c := Lookup(v, s)
	for _, r := range planRules {
		if r.match(v, s, c) {
			return r.text.in(lang)
		}
	}
	return planWait.in(lang)
}

func (p planText) in(lang models.Language) models.ActionPlan {
	return models.ActionPlan{Title: p.title.In(lang), Subtitle: p.subtitle.In(lang)}
}
