package service

import (
	"context"
	"time"

	"MarketThermo/internal/domain/models"
)

// ReportAssembler composes fetch, classification and decision into a report.
type ReportAssembler interface {
	// GetReport builds the numeric report for day without narrative text.
	GetReport(ctx context.Context, day time.Time, lang models.Language) (*models.MarketReport, error)
	// Compose is GetReport with optional narrative text attached before the
	// report is returned and published.
	Compose(ctx context.Context, day time.Time, lang models.Language, narrative bool) (*models.MarketReport, error)
	// Narrate returns commentary for an arbitrary metric pair; never fails.
	Narrate(ctx context.Context, m models.MarketMetrics, lang models.Language) string
	// Today is the current trading day in the configured timezone, as midnight UTC.
	Today() time.Time
}

// TextGenerator performs one prompt/response round trip against a language model.
type TextGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Narrator produces commentary for a metric pair. It never fails: errors
// degrade to localized fallback text.
type Narrator interface {
	Narrate(ctx context.Context, m models.MarketMetrics, lang models.Language) string
}

// ReportRenderer encodes a report as a shareable document.
type ReportRenderer interface {
	Render(report *models.MarketReport, scale int) ([]byte, error)
	ContentType() string
	Extension() string
}
