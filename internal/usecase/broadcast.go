package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"MarketThermo/internal/domain/models"
	domsvc "MarketThermo/internal/domain/service"
	"MarketThermo/pkg/cache"
	applogger "MarketThermo/pkg/logger"
	"MarketThermo/pkg/util"
)

const broadcastLockTTL = 20 * time.Hour

// Broadcaster assembles and publishes today's narrated report on a cron
// schedule. A per-day lock keeps replicas from publishing the same day twice.
type Broadcaster struct {
	reports domsvc.ReportAssembler
	locks   cache.Service
	lang    models.Language
	spec    string
	loc     *time.Location
	logger  *applogger.Logger
	cron    *cron.Cron
}

func NewBroadcaster(reports domsvc.ReportAssembler, locks cache.Service, spec string, lang models.Language, loc *time.Location, logger *applogger.Logger) *Broadcaster {
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = applogger.Nop()
	}
	return &Broadcaster{
		reports: reports,
		locks:   locks,
		lang:    lang,
		spec:    spec,
		loc:     loc,
		logger:  logger,
	}
}

// Start validates the schedule and begins firing.
func (b *Broadcaster) Start() error {
	c := cron.New(cron.WithLocation(b.loc))
	if _, err := c.AddFunc(b.spec, func() {
		if _, err := b.Run(context.Background()); err != nil {
			b.logger.Error("scheduled broadcast failed", applogger.Error(err))
		}
	}); err != nil {
		return fmt.Errorf("invalid schedule %q: %w", b.spec, err)
	}
	b.cron = c
	c.Start()
	b.logger.Info("report broadcaster scheduled", applogger.String("spec", b.spec))
	return nil
}

// Stop waits for a running broadcast to finish or ctx to expire.
func (b *Broadcaster) Stop(ctx context.Context) error {
	if b.cron == nil {
		return nil
	}
	select {
	case <-b.cron.Stop().Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run broadcasts today's report once. It reports false when another run
// already holds the day's lock.
func (b *Broadcaster) Run(ctx context.Context) (bool, error) {
	day := b.reports.Today()
	key := cache.GenerateKey("broadcast", util.FormatDay(day))

	if b.locks != nil {
		ok, err := b.locks.TryLock(ctx, key, broadcastLockTTL)
		if err != nil {
			return false, fmt.Errorf("acquire broadcast lock: %w", err)
		}
		if !ok {
			b.logger.Info("broadcast already done", applogger.String("day", util.FormatDay(day)))
			return false, nil
		}
	}

	report, err := b.reports.Compose(ctx, day, b.lang, true)
	if err != nil {
		if b.locks != nil {
			if uerr := b.locks.Unlock(ctx, key); uerr != nil {
				b.logger.Warn("release broadcast lock", applogger.Error(uerr))
			}
		}
		return false, err
	}

	b.logger.Info("report broadcast",
		applogger.String("day", report.Date),
		applogger.String("plan", report.ActionPlan.Title),
	)
	return true, nil
}
