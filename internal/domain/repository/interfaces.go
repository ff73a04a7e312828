package repository

import (
	"context"
	"time"

	"MarketThermo/internal/domain/models"
)

// MarketSource resolves the raw metric pair for a trading day.
type MarketSource interface {
	// Current runs the tiered current-day strategy.
	Current(ctx context.Context) (models.FetchResult, error)
	// Historical estimates the pair from the daily close of day.
	Historical(ctx context.Context, day time.Time) (models.FetchResult, error)
}

// RawFetcher returns the decoded JSON document for an upstream URL, or ok=false
// when no relay produced usable data.
type RawFetcher interface {
	Fetch(ctx context.Context, target string) (doc []byte, ok bool)
}

type ReportPublisher interface {
	Publish(ctx context.Context, report *models.MarketReport) error
	Close() error
}

type Metrics interface {
	RecordRelayAttempt(relay, result string)
	RecordTier(tier, result string)
	RecordReport(path, result string, seconds float64)
	RecordNarrative(outcome string)
	RecordPublish(result string)
}
