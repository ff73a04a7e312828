package di

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"MarketThermo/internal/domain/models"
	"MarketThermo/internal/domain/repository"
	domsvc "MarketThermo/internal/domain/service"
	"MarketThermo/internal/handler/api"
	internalrepo "MarketThermo/internal/repository"
	"MarketThermo/internal/service/export"
	"MarketThermo/internal/service/narrative"
	"MarketThermo/internal/service/ratelimit"
	"MarketThermo/internal/service/relay"
	"MarketThermo/internal/service/yahoo"
	"MarketThermo/internal/usecase"
	"MarketThermo/pkg/cache"
	"MarketThermo/pkg/config"
	xhttp "MarketThermo/pkg/http"
	pkgkafka "MarketThermo/pkg/kafka"
	applogger "MarketThermo/pkg/logger"
	"MarketThermo/pkg/metrics"
	"MarketThermo/pkg/server"
)

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	l, err := applogger.New(&applogger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l.With(applogger.String("env", cfg.Environment)), nil
}

// ProvideRegisterer returns the registry scraped by the /metrics endpoint.
func ProvideRegisterer() prometheus.Registerer {
	return prometheus.DefaultRegisterer
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics(cfg *config.Config, reg prometheus.Registerer) repository.Metrics {
	if !cfg.Metrics.Enabled {
		return metrics.Nop{}
	}
	return metrics.New(reg)
}

func ProvideHTTPClient(cfg *config.Config) *xhttp.Client {
	return xhttp.NewClient(xhttp.WithTimeout(cfg.Market.AttemptTimeout + cfg.Market.AttemptTimeout/2))
}

// ProvideRelayRacer builds the relay fan-out used for every upstream request.
func ProvideRelayRacer(cfg *config.Config, client *xhttp.Client, logger *applogger.Logger, m repository.Metrics) repository.RawFetcher {
	relays := make([]relay.Relay, 0, len(cfg.Market.Relays))
	for _, r := range cfg.Market.Relays {
		relays = append(relays, relay.Relay{Name: r.Name, Template: r.Template})
	}
	return relay.NewRacer(client, relays,
		relay.WithAttemptTimeout(cfg.Market.AttemptTimeout),
		relay.WithLogger(logger.With(applogger.String("component", "relay"))),
		relay.WithMetrics(m),
	)
}

func ProvideMarketSource(cfg *config.Config, fetcher repository.RawFetcher, logger *applogger.Logger, m repository.Metrics) repository.MarketSource {
	return yahoo.NewSource(yahoo.Config{
		Symbol:           cfg.Market.Symbol,
		VolatilitySymbol: cfg.Market.VolatilitySymbol,
		FallbackEPS:      cfg.Market.FallbackEPS,
		QuoteBaseURL:     cfg.Market.QuoteBaseURL,
		ChartBaseURL:     cfg.Market.ChartBaseURL,
	}, fetcher, logger.With(applogger.String("component", "yahoo")), m)
}

// ProvideCache builds the configured cache backend; "none" yields nil.
func ProvideCache(cfg *config.Config) (cache.Service, error) {
	redisOpts := func() []cache.RedisOption {
		return []cache.RedisOption{
			cache.WithRedisAddr(cfg.Cache.Redis.Host, cfg.Cache.Redis.Port),
			cache.WithRedisPassword(cfg.Cache.Redis.Password),
			cache.WithRedisDB(cfg.Cache.Redis.DB),
			cache.WithRedisPrefix(cfg.Cache.Redis.Prefix),
		}
	}

	switch cfg.Cache.Backend {
	case "memory":
		return cache.NewMemoryCache(cache.WithMemoryMaxSize(cfg.Cache.MaxItems)), nil
	case "redis":
		rc, err := cache.NewRedisCache(redisOpts()...)
		if err != nil {
			return nil, fmt.Errorf("redis cache: %w", err)
		}
		return rc, nil
	case "layered":
		rc, err := cache.NewRedisCache(redisOpts()...)
		if err != nil {
			return nil, fmt.Errorf("redis cache: %w", err)
		}
		return cache.NewLayeredCache(rc, cache.WithLayeredMemorySize(cfg.Cache.MaxItems)), nil
	default:
		return nil, nil
	}
}

// ProvideTextGenerator returns nil when no API key is configured; the
// narrator then answers with its no-key fallback.
func ProvideTextGenerator(cfg *config.Config) (domsvc.TextGenerator, error) {
	if cfg.Narrative.APIKey == "" {
		return nil, nil
	}
	g, err := narrative.NewGeminiGenerator(context.Background(), cfg.Narrative.APIKey, cfg.Narrative.Model)
	if err != nil {
		return nil, fmt.Errorf("gemini: %w", err)
	}
	return g, nil
}

func ProvideNarrator(cfg *config.Config, gen domsvc.TextGenerator, c cache.Service, logger *applogger.Logger, m repository.Metrics) domsvc.Narrator {
	opts := []narrative.Option{
		narrative.WithTimeout(cfg.Narrative.Timeout),
		narrative.WithLogger(logger.With(applogger.String("component", "narrative"))),
		narrative.WithMetrics(m),
	}
	if c != nil && cfg.Narrative.CacheTTL > 0 {
		opts = append(opts, narrative.WithCache(c, cfg.Narrative.CacheTTL))
	}
	return narrative.NewNarrator(gen, opts...)
}

// ProvideKafkaProducer returns nil when Kafka is disabled.
func ProvideKafkaProducer(cfg *config.Config, reg prometheus.Registerer) (*pkgkafka.Producer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithMaxAttempts(cfg.Kafka.MaxAttempts),
		pkgkafka.WithTimeouts(cfg.Kafka.WriteTimeout, cfg.Kafka.WriteTimeout),
		pkgkafka.WithHashByKey(true),
		pkgkafka.WithRegisterer(reg),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvideReportPublisher publishes reports to Kafka when enabled and also
// routes aggregated warn/error logs to the collect topic.
func ProvideReportPublisher(cfg *config.Config, producer *pkgkafka.Producer, logger *applogger.Logger, m repository.Metrics) repository.ReportPublisher {
	if producer == nil {
		return internalrepo.NopPublisher{}
	}
	if cfg.Logging.CollectTopic != "" {
		logger.AddCollector(&applogger.CollectorConfig{
			TimeInterval: cfg.Logging.CollectEvery,
			Topic:        cfg.Logging.CollectTopic,
			Publisher:    producer,
		})
	}
	return internalrepo.NewKafkaReportPublisher(producer, cfg.Kafka.ReportTopic, m)
}

func ProvideReportUseCase(
	cfg *config.Config,
	source repository.MarketSource,
	narrator domsvc.Narrator,
	publisher repository.ReportPublisher,
	logger *applogger.Logger,
	m repository.Metrics,
) *usecase.ReportUseCase {
	return usecase.NewReportUseCase(source, narrator, publisher, logger, m,
		usecase.WithDeadline(cfg.Market.Deadline),
		usecase.WithLocation(cfg.Location()),
	)
}

func ProvideExportUseCase(cfg *config.Config, reports *usecase.ReportUseCase) (*usecase.ExportUseCase, error) {
	png, err := export.NewPNGRenderer(cfg.Export.FontPath)
	if err != nil {
		return nil, fmt.Errorf("png renderer: %w", err)
	}
	pdf, err := export.NewPDFRenderer(cfg.Export.FontPath)
	if err != nil {
		return nil, fmt.Errorf("pdf renderer: %w", err)
	}
	return usecase.NewExportUseCase(reports, cfg.Export.DefaultScale, png, pdf), nil
}

// ProvideBroadcaster returns nil when the schedule is disabled.
func ProvideBroadcaster(cfg *config.Config, reports *usecase.ReportUseCase, c cache.Service, logger *applogger.Logger) *usecase.Broadcaster {
	if !cfg.Schedule.Enabled {
		return nil
	}
	return usecase.NewBroadcaster(reports, c, cfg.Schedule.Spec, models.ParseLanguage(cfg.Schedule.Lang), cfg.Location(),
		logger.With(applogger.String("component", "broadcaster")))
}

// ProvideRateLimiter returns nil when inbound rate limiting is disabled.
func ProvideRateLimiter(cfg *config.Config) *ratelimit.Limiter {
	if !cfg.RateLimit.Enabled {
		return nil
	}
	return ratelimit.New(cfg.RateLimit.Capacity, cfg.RateLimit.PerSec)
}

func ProvideHTTPServer(
	cfg *config.Config,
	logger *applogger.Logger,
	reports *usecase.ReportUseCase,
	exports *usecase.ExportUseCase,
	limiter *ratelimit.Limiter,
) *xhttp.Server {
	handlers := []xhttp.Handler{
		api.NewReportEchoHandler(logger, reports, exports),
		api.NewReportSocketHandler(logger, reports),
	}

	opts := []xhttp.ServerOption{
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithSlowThreshold(cfg.Server.SlowThreshold),
	}
	if cfg.Metrics.Enabled {
		opts = append(opts, xhttp.WithMetricsPath(cfg.Metrics.Path))
	} else {
		opts = append(opts, xhttp.WithMetricsPath(""))
	}
	if limiter != nil {
		opts = append(opts, xhttp.WithMiddleware(limiter.Middleware("/healthz", cfg.Metrics.Path)))
	}
	return xhttp.NewServer(logger, handlers, opts...)
}

// ProvideApp assembles the application lifecycle.
func ProvideApp(
	cfg *config.Config,
	logger *applogger.Logger,
	httpServer *xhttp.Server,
	reports *usecase.ReportUseCase,
	broadcaster *usecase.Broadcaster,
	publisher repository.ReportPublisher,
	c cache.Service,
) *server.App {
	return server.New(cfg, logger, httpServer, reports, broadcaster, publisher, c)
}
