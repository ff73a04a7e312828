package models

// Requests for report HTTP endpoints. Defined in domain for consistency and reuse.

type ReportRequest struct {
	Date      string `query:"date" json:"date"`
	Lang      string `query:"lang" json:"lang" default:"zh" validate:"oneof=en zh"`
	Narrative bool   `query:"narrative" json:"narrative"`
}

type NarrativeRequest struct {
	Ratio      float64 `query:"ratio" json:"ratio" validate:"gt=0"`
	Volatility float64 `query:"volatility" json:"volatility" validate:"gt=0"`
	Lang       string  `query:"lang" json:"lang" default:"zh" validate:"oneof=en zh"`
}

type MatrixRequest struct {
	Lang string `query:"lang" json:"lang" default:"zh" validate:"oneof=en zh"`
}

type ExportRequest struct {
	Date   string `query:"date" json:"date"`
	Lang   string `query:"lang" json:"lang" default:"zh" validate:"oneof=en zh"`
	Format string `query:"format" json:"format" default:"png" validate:"oneof=png pdf"`
	Scale  int    `query:"scale" json:"scale" validate:"omitempty,gte=1,lte=4"`
}

// ReportFrame is the WebSocket request message.
type ReportFrame struct {
	Date      string `json:"date"`
	Lang      string `json:"lang" validate:"omitempty,oneof=en zh"`
	Narrative bool   `json:"narrative"`
}

// ReportEvent is the WebSocket reply and the published report payload.
type ReportEvent struct {
	Type   string        `json:"type"` // "report" | "error"
	Report *MarketReport `json:"report,omitempty"`
	Error  string        `json:"error,omitempty"`
	Code   string        `json:"code,omitempty"`
}

type NarrativeResponse struct {
	Text string `json:"text"`
}
