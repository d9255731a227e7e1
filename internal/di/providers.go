package di

import (
	"context"
	"fmt"
	"time"

	"MarketPhase/internal/domain/repository"
	dservice "MarketPhase/internal/domain/service"
	"MarketPhase/internal/handler/api"
	internalrepo "MarketPhase/internal/repository"
	"MarketPhase/internal/service/sources"
	"MarketPhase/internal/services/phase"
	"MarketPhase/internal/usecase"
	"MarketPhase/pkg/cache"
	pkgch "MarketPhase/pkg/clickhouse"
	"MarketPhase/pkg/config"
	xhttp "MarketPhase/pkg/http"
	pkgkafka "MarketPhase/pkg/kafka"
	applogger "MarketPhase/pkg/logger"
	"MarketPhase/pkg/metrics"
	"MarketPhase/pkg/server"

	"github.com/prometheus/client_golang/prometheus"
)

// ProvideLogger creates the application logger from config.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	return applogger.New(&applogger.Config{
		Level:   cfg.Log.Level,
		Format:  cfg.Log.Format,
		Output:  cfg.Log.Output,
		Service: "marketphase",
	})
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New(prometheus.DefaultRegisterer)
}

// ProvideCache returns Redis behind an in-process L1 when Redis is enabled,
// otherwise a plain memory cache.
func ProvideCache(cfg *config.Config) (cache.Service, func(), error) {
	if !cfg.Redis.Enabled {
		mc := cache.NewMemoryCache(cache.WithMemoryDefaultTTL(cfg.Analysis.CacheTTL))
		return mc, func() { _ = mc.Close() }, nil
	}
	rc, err := cache.NewRedisCache(
		cache.WithRedisHost(cfg.Redis.Host),
		cache.WithRedisPort(cfg.Redis.Port),
		cache.WithRedisPassword(cfg.Redis.Password),
		cache.WithRedisDB(cfg.Redis.DB),
		cache.WithRedisPrefix(cfg.Redis.Prefix),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("redis cache: %w", err)
	}
	lc := cache.NewLayeredCache(rc)
	return lc, func() { _ = lc.Close() }, nil
}

// ProvideHTTPClient creates the shared client used by every feed.
func ProvideHTTPClient(cfg *config.Config) *xhttp.Client {
	return xhttp.NewClient(
		xhttp.WithTimeout(cfg.Sources.Timeout),
		xhttp.WithUserAgent(cfg.Sources.Naver.UserAgent),
	)
}

// ProvideSources builds the enabled sources in analysis.source_order.
func ProvideSources(cfg *config.Config, client *xhttp.Client) ([]dservice.IndicatorSource, error) {
	s := cfg.Sources
	out := make([]dservice.IndicatorSource, 0, len(cfg.Analysis.SourceOrder))
	for _, name := range cfg.Analysis.SourceOrder {
		switch name {
		case "naver":
			if s.Naver.Enabled {
				out = append(out, sources.NewNaver(client, s.Naver.BaseURL))
			}
		case "yahoo":
			if s.Yahoo.Enabled {
				out = append(out, sources.NewYahoo(client, s.Yahoo.BaseURL))
			}
		case "ecos":
			if s.ECOS.Enabled {
				out = append(out, sources.NewECOS(client, s.ECOS.BaseURL, s.ECOS.APIKey, s.ECOS.Months,
					sources.ECOSSeries(s.ECOS.BaseRate), sources.ECOSSeries(s.ECOS.M2Growth)))
			}
		case "manual":
			if s.Manual.Enabled {
				m, err := sources.NewManual(s.Manual.Values)
				if err != nil {
					return nil, fmt.Errorf("manual source: %w", err)
				}
				out = append(out, m)
			}
		}
	}
	return out, nil
}

// ProvideClassifier maps configured thresholds onto the classifier.
func ProvideClassifier(cfg *config.Config) *phase.Classifier {
	t := cfg.Analysis.Thresholds
	return phase.NewClassifier(phase.Thresholds{
		RateLow:     t.RateLow,
		RateHigh:    t.RateHigh,
		KospiLevel:  t.KospiLevel,
		SP500Level:  t.SP500Level,
		M2High:      t.M2High,
		M2Low:       t.M2Low,
		VkospiCalm:  t.VkospiCalm,
		VkospiFear:  t.VkospiFear,
		RateQuorum:  t.RateQuorum,
		IndexQuorum: t.IndexQuorum,
		EconQuorum:  t.EconQuorum,
	})
}

// ProvideReportStore returns the ClickHouse store with its schema ready, or a
// bounded in-memory store when ClickHouse is disabled.
func ProvideReportStore(cfg *config.Config, l *applogger.Logger) (repository.ReportStore, func(), error) {
	if !cfg.ClickHouse.Enabled {
		return internalrepo.NewMemoryReportStore(cfg.ClickHouse.MemoryReports), func() {}, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := pkgch.NewClient(ctx,
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(4, 2),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout),
		pkgch.WithCreateDatabase(true),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("clickhouse client: %w", err)
	}

	store := internalrepo.NewCHReportStore(client, cfg.ClickHouse.Database, l)
	if err := store.Init(ctx); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	return store, func() { _ = store.Close() }, nil
}

// ProvideReportPublisher publishes to Kafka when enabled.
func ProvideReportPublisher(cfg *config.Config) (repository.ReportPublisher, func(), error) {
	if !cfg.Kafka.Enabled {
		return internalrepo.NopReportPublisher{}, func() {}, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("kafka producer: %w", err)
	}
	pub := internalrepo.NewKafkaReportPublisher(producer, cfg.Kafka.ReportsTopic)
	return pub, func() { _ = pub.Close() }, nil
}

// ProvidePhaseAnalyzer wires the analysis use case.
func ProvidePhaseAnalyzer(
	cfg *config.Config,
	srcs []dservice.IndicatorSource,
	classifier *phase.Classifier,
	c cache.Service,
	store repository.ReportStore,
	pub repository.ReportPublisher,
	m repository.Metrics,
	l *applogger.Logger,
) *usecase.PhaseAnalyzer {
	return usecase.NewPhaseAnalyzer(srcs, classifier, c, store, pub, m, l,
		usecase.WithFetchTimeout(cfg.Analysis.FetchTimeout),
		usecase.WithCacheTTL(cfg.Analysis.CacheTTL),
	)
}

// ProvideScheduler creates the periodic analysis loop.
func ProvideScheduler(cfg *config.Config, analyzer *usecase.PhaseAnalyzer, c cache.Service, l *applogger.Logger) *usecase.Scheduler {
	return usecase.NewScheduler(analyzer, c, cfg.Analysis.Interval, l)
}

// ProvideIndicatorConsumer returns nil unless Kafka and an indicators topic are configured.
func ProvideIndicatorConsumer(cfg *config.Config, analyzer *usecase.PhaseAnalyzer, l *applogger.Logger) (*pkgkafka.Consumer, error) {
	if !cfg.Kafka.Enabled || cfg.Kafka.IndicatorsTopic == "" {
		return nil, nil
	}
	cc := cfg.Kafka.Consumer
	consumer, err := pkgkafka.NewConsumer(l,
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cc.GroupID),
		pkgkafka.WithConsumerWorkers(cc.Workers),
		pkgkafka.WithConsumerBufferSize(cc.BufferSize),
		pkgkafka.WithConsumerRetry(cc.RetryMax, cc.BackoffMin, cc.BackoffMax),
		pkgkafka.WithConsumerDLQ(cc.DLQTopic),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	consumer.RegisterHandler(usecase.NewIndicatorConsumer(analyzer, cfg.Kafka.IndicatorsTopic))
	return consumer, nil
}

// ProvidePhaseHandler creates the REST handler.
func ProvidePhaseHandler(l *applogger.Logger, analyzer *usecase.PhaseAnalyzer) *api.PhaseEchoHandler {
	return api.NewPhaseEchoHandler(l, analyzer)
}

// ProvideStreamHandler creates the WebSocket push handler.
func ProvideStreamHandler(l *applogger.Logger, analyzer *usecase.PhaseAnalyzer) *api.StreamHandler {
	return api.NewStreamHandler(l, analyzer)
}

// ProvideHTTPServer assembles the echo server with every route.
func ProvideHTTPServer(cfg *config.Config, l *applogger.Logger, ph *api.PhaseEchoHandler, sh *api.StreamHandler) *xhttp.Server {
	return xhttp.NewServer(xhttp.Handlers{ph, sh},
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithRateLimit(cfg.Server.RateLimit.RPS, cfg.Server.RateLimit.Burst),
		xhttp.WithTrustedProxies(cfg.Server.TrustedProxies...),
		xhttp.WithLogger(l),
	)
}

// ProvideApp creates the application.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	analyzer *usecase.PhaseAnalyzer,
	scheduler *usecase.Scheduler,
	consumer *pkgkafka.Consumer,
	httpServer *xhttp.Server,
	stream *api.StreamHandler,
) *server.App {
	return server.New(cfg, l, analyzer, scheduler, consumer, httpServer, stream)
}
