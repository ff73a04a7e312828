package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"MarketThermo/internal/domain/models"
	domrepo "MarketThermo/internal/domain/repository"
	domsvc "MarketThermo/internal/domain/service"
	"MarketThermo/internal/services/decision"
	applogger "MarketThermo/pkg/logger"
	"MarketThermo/pkg/metrics"
	"MarketThermo/pkg/util"
)

const (
	pathCurrent    = "current"
	pathHistorical = "historical"
)

// ReportOption configures ReportUseCase.
type ReportOption func(*ReportUseCase)

// WithDeadline bounds a whole pipeline run; zero leaves only the per-attempt timeouts.
func WithDeadline(d time.Duration) ReportOption {
	return func(uc *ReportUseCase) { uc.deadline = d }
}

func WithLocation(loc *time.Location) ReportOption {
	return func(uc *ReportUseCase) {
		if loc != nil {
			uc.loc = loc
		}
	}
}

func WithClock(now func() time.Time) ReportOption {
	return func(uc *ReportUseCase) { uc.now = now }
}

func WithPublishTimeout(d time.Duration) ReportOption {
	return func(uc *ReportUseCase) {
		if d > 0 {
			uc.publishTimeout = d
		}
	}
}

// ReportUseCase is the market data assembler.
type ReportUseCase struct {
	source    domrepo.MarketSource
	narrator  domsvc.Narrator
	publisher domrepo.ReportPublisher
	logger    *applogger.Logger
	metrics   domrepo.Metrics

	loc            *time.Location
	now            func() time.Time
	deadline       time.Duration
	publishTimeout time.Duration

	inflight sync.WaitGroup
}

func NewReportUseCase(
	source domrepo.MarketSource,
	narrator domsvc.Narrator,
	publisher domrepo.ReportPublisher,
	logger *applogger.Logger,
	m domrepo.Metrics,
	opts ...ReportOption,
) *ReportUseCase {
	uc := &ReportUseCase{
		source:         source,
		narrator:       narrator,
		publisher:      publisher,
		logger:         logger,
		metrics:        m,
		loc:            time.UTC,
		now:            time.Now,
		publishTimeout: 10 * time.Second,
	}
	if uc.logger == nil {
		uc.logger = applogger.Nop()
	}
	if uc.metrics == nil {
		uc.metrics = metrics.Nop{}
	}
	for _, opt := range opts {
		opt(uc)
	}
	return uc
}

func (uc *ReportUseCase) Today() time.Time {
	return util.Today(uc.now(), uc.loc)
}

func (uc *ReportUseCase) GetReport(ctx context.Context, day time.Time, lang models.Language) (*models.MarketReport, error) {
	return uc.Compose(ctx, day, lang, false)
}

// Compose rejects future days before any network call, then runs the
// current-day tiers for today and the historical estimate for past days.
// A zero day means today.
func (uc *ReportUseCase) Compose(ctx context.Context, day time.Time, lang models.Language, narrative bool) (*models.MarketReport, error) {
	today := uc.Today()
	if day.IsZero() {
		day = today
	}
	day = util.StartOfDayUTC(day)
	if util.CompareDay(day, today) > 0 {
		return nil, fmt.Errorf("%w: %s is after %s", models.ErrFutureDateRequested, util.FormatDay(day), util.FormatDay(today))
	}

	if uc.deadline > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, uc.deadline)
		defer cancel()
	}

	path := pathHistorical
	if util.CompareDay(day, today) == 0 {
		path = pathCurrent
	}

	start := time.Now()
	res, err := uc.fetch(ctx, path, day)
	if err != nil {
		uc.metrics.RecordReport(path, "error", time.Since(start).Seconds())
		uc.logger.Error("report unavailable",
			applogger.String("day", util.FormatDay(day)),
			applogger.String("path", path),
			applogger.Error(err),
		)
		if !errors.Is(err, models.ErrAllSourcesExhausted) {
			err = fmt.Errorf("%w: %v", models.ErrAllSourcesExhausted, err)
		}
		return nil, err
	}
	uc.metrics.RecordReport(path, "ok", time.Since(start).Seconds())

	report := uc.assemble(day, lang, res)
	if narrative && uc.narrator != nil {
		report.NarrativeText = uc.narrator.Narrate(ctx, report.Metrics(), lang)
	}

	uc.logger.Info("report assembled",
		applogger.String("day", report.Date),
		applogger.String("source", string(report.DataSource)),
		applogger.Float("ratio", report.Ratio),
		applogger.Float("volatility", report.Volatility),
		applogger.Bool("estimated", report.IsEstimated),
	)
	uc.publish(report)
	return report, nil
}

func (uc *ReportUseCase) Narrate(ctx context.Context, m models.MarketMetrics, lang models.Language) string {
	if uc.narrator == nil {
		return ""
	}
	return uc.narrator.Narrate(ctx, m, lang)
}

func (uc *ReportUseCase) fetch(ctx context.Context, path string, day time.Time) (models.FetchResult, error) {
	if path == pathCurrent {
		return uc.source.Current(ctx)
	}
	return uc.source.Historical(ctx, day)
}

func (uc *ReportUseCase) assemble(day time.Time, lang models.Language, res models.FetchResult) *models.MarketReport {
	v := decision.ClassifyValuation(res.Metrics.Ratio)
	s := decision.ClassifySentiment(res.Metrics.Volatility)
	return &models.MarketReport{
		Date:           util.FormatDay(day),
		Language:       lang,
		Ratio:          res.Metrics.Ratio,
		Volatility:     res.Metrics.Volatility,
		ValuationState: v,
		SentimentState: s,
		Cell:           decision.Lookup(v, s),
		ActionPlan:     decision.DerivePlan(v, s, lang),
		Sources:        decision.Sources(),
		IsEstimated:    res.Estimated,
		DataSource:     res.Source,
		GeneratedAt:    uc.now().UTC(),
	}
}

// publish hands the report to the publisher in the background; failures are
// logged and never reach the caller.
func (uc *ReportUseCase) publish(report *models.MarketReport) {
	if uc.publisher == nil {
		return
	}
	uc.inflight.Add(1)
	go func() {
		defer uc.inflight.Done()
		ctx, cancel := context.WithTimeout(context.Background(), uc.publishTimeout)
		defer cancel()
		if err := uc.publisher.Publish(ctx, report); err != nil {
			uc.logger.Warn("report publish failed",
				applogger.String("day", report.Date),
				applogger.Error(err),
			)
		}
	}()
}

// Shutdown waits for in-flight publishes or until ctx is done.
func (uc *ReportUseCase) Shutdown(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		uc.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

var _ domsvc.ReportAssembler = (*ReportUseCase)(nil)
