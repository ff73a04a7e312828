package yahoo

import (
	"math"
	"strconv"

	"github.com/shopspring/decimal"
)

// rawValue is the {"raw": 1.23, "fmt": "1.23"} wrapper used by quoteSummary.
type rawValue struct {
	Raw *float64 `json:"raw"`
}

func (r *rawValue) value() *float64 {
	if r == nil {
		return nil
	}
	return r.Raw
}

type quoteDoc struct {
	QuoteResponse struct {
		Result []quoteResult `json:"result"`
	} `json:"quoteResponse"`
}

type quoteResult struct {
	Symbol                     string   `json:"symbol"`
	TrailingPE                 *float64 `json:"trailingPE"`
	ForwardPE                  *float64 `json:"forwardPE"`
	RegularMarketPrice         *float64 `json:"regularMarketPrice"`
	RegularMarketPreviousClose *float64 `json:"regularMarketPreviousClose"`
}

type summaryDoc struct {
	QuoteSummary struct {
		Result []summaryResult `json:"result"`
	} `json:"quoteSummary"`
}

type summaryResult struct {
	SummaryDetail *struct {
		TrailingPE *rawValue `json:"trailingPE"`
	} `json:"summaryDetail"`
	DefaultKeyStatistics *struct {
		TrailingEps *rawValue `json:"trailingEps"`
	} `json:"defaultKeyStatistics"`
	Price *struct {
		RegularMarketPrice *rawValue `json:"regularMarketPrice"`
	} `json:"price"`
	FinancialData *struct {
		CurrentPrice *rawValue `json:"currentPrice"`
	} `json:"financialData"`
}

type chartDoc struct {
	Chart struct {
		Result []chartResult `json:"result"`
	} `json:"chart"`
}

type chartResult struct {
	Meta *struct {
		RegularMarketPrice *float64 `json:"regularMarketPrice"`
		ChartPreviousClose *float64 `json:"chartPreviousClose"`
	} `json:"meta"`
	Indicators *struct {
		Quote []struct {
			Close []*float64 `json:"close"`
		} `json:"quote"`
	} `json:"indicators"`
}

// firstTruthy returns the first value that is present, finite and non-zero.
func firstTruthy(vals ...*float64) (float64, bool) {
	for _, v := range vals {
		if v != nil && *v != 0 && !math.IsNaN(*v) && !math.IsInf(*v, 0) {
			return *v, true
		}
	}
	return 0, false
}

// round2 rounds the exact binary value of v to two decimal places, half away
// from zero. 20.005 is stored as 20.00499999... and rounds to 20.00, matching
// Number.prototype.toFixed(2) on the dashboard.
func round2(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	d, err := decimal.NewFromString(strconv.FormatFloat(v, 'f', 40, 64))
	if err != nil {
		d = decimal.NewFromFloat(v)
	}
	f, _ := d.Round(2).Float64()
	return f
}
