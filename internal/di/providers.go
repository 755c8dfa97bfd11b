package di

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"

	"StockPulse/internal/domain/repository"
	"StockPulse/internal/handler/api"
	"StockPulse/internal/handler/ws"
	mid "StockPulse/internal/middleware"
	internalrepo "StockPulse/internal/repository"
	"StockPulse/internal/service/gtimg"
	"StockPulse/internal/service/ratelimit"
	"StockPulse/internal/services/session"
	"StockPulse/internal/usecase"
	"StockPulse/pkg/cache"
	pkgch "StockPulse/pkg/clickhouse"
	"StockPulse/pkg/config"
	xhttp "StockPulse/pkg/http"
	pkgkafka "StockPulse/pkg/kafka"
	applogger "StockPulse/pkg/logger"
	"StockPulse/pkg/metrics"
	"StockPulse/pkg/queue"
	"StockPulse/pkg/server"
)

// Optional backends are provided as nil when disabled; consumers of those
// providers check for nil rather than failing the whole graph.

func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	l, err := applogger.New(&applogger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l.With(applogger.String("env", cfg.Environment)), nil
}

func ProvideRegisterer() prometheus.Registerer {
	return prometheus.DefaultRegisterer
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics(reg prometheus.Registerer) repository.Metrics {
	return metrics.New(reg)
}

// ProvideRedisClient dials Redis when the cache or the backfill queue needs it.
func ProvideRedisClient(cfg *config.Config) (*redis.Client, error) {
	if cfg.Cache.Backend == "memory" && !cfg.Backfill.Enabled {
		return nil, nil
	}
	client, err := cache.NewRedisClient(context.Background(),
		cache.WithRedisAddr(cfg.Redis.Addr),
		cache.WithRedisAuth(cfg.Redis.Password, cfg.Redis.DB),
	)
	if err != nil {
		return nil, fmt.Errorf("redis client: %w", err)
	}
	return client, nil
}

// ProvideCache builds the configured cache backend.
func ProvideCache(cfg *config.Config, rdb *redis.Client) cache.Service {
	switch cfg.Cache.Backend {
	case "redis":
		return cache.NewRedisCache(rdb, cfg.Redis.Prefix)
	case "layered":
		memory := cache.NewMemoryCache(cache.WithMemoryMaxSize(cfg.Cache.MemoryMaxSize))
		return cache.NewLayeredCache(memory, cache.NewRedisCache(rdb, cfg.Redis.Prefix),
			cache.WithL1TTL(cfg.Cache.TTL.Quotes))
	default:
		return cache.NewMemoryCache(cache.WithMemoryMaxSize(cfg.Cache.MemoryMaxSize))
	}
}

func ProvideHTTPClient(cfg *config.Config) *xhttp.Client {
	return xhttp.NewClient(
		xhttp.WithTimeout(cfg.Provider.Timeout),
		xhttp.WithRetry(cfg.Provider.Retries, cfg.Provider.Backoff),
		xhttp.WithUserAgent(cfg.Provider.UserAgent),
	)
}

// ProvideQuoteProvider creates the Tencent quote client.
func ProvideQuoteProvider(cfg *config.Config, hc *xhttp.Client, m repository.Metrics, l *applogger.Logger) repository.QuoteProvider {
	return gtimg.New(hc, gtimg.Endpoints{
		Quote:  cfg.Provider.QuoteURL,
		Kline:  cfg.Provider.KlineURL,
		Minute: cfg.Provider.MinuteURL,
		Search: cfg.Provider.SearchURL,
		Detail: cfg.Provider.DetailURL,
	},
		gtimg.WithCharset(cfg.Provider.Charset),
		gtimg.WithMetrics(m),
		gtimg.WithLogger(l.With(applogger.String("component", "gtimg"))),
	)
}

// ProvideClickHouseClient creates a ClickHouse client and its schema.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	if !cfg.ClickHouse.Enabled {
		return nil, nil
	}
	client, err := pkgch.NewClient(context.Background(),
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout, cfg.ClickHouse.WriteTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := client.InitSchema(ctx, internalrepo.Schema(cfg.ClickHouse.Database)); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	return client, nil
}

func ProvideQuoteStore(ch *pkgch.Client) repository.QuoteStore {
	if ch == nil {
		return nil
	}
	return internalrepo.NewClickHouseQuoteStore(ch.DB(), ch.Database())
}

func ProvideCandleStore(ch *pkgch.Client, l *applogger.Logger) repository.CandleStore {
	if ch == nil {
		return nil
	}
	s := internalrepo.NewCHCandleStore(ch.DB(), ch.Database())
	s.SetLogger(l)
	return s
}

// ProvideKafkaProducer creates a Kafka producer.
func ProvideKafkaProducer(cfg *config.Config, reg prometheus.Registerer) (*pkgkafka.Producer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatchSize(cfg.Kafka.Producer.BatchSize),
		pkgkafka.WithBatchBytes(cfg.Kafka.Producer.BatchBytes),
		pkgkafka.WithBatchTimeout(cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
		pkgkafka.WithHashByKey(true),
		pkgkafka.WithProducerRegisterer(reg),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

func ProvidePublisher(cfg *config.Config, producer *pkgkafka.Producer) repository.Publisher {
	if producer == nil {
		return nil
	}
	return internalrepo.NewKafkaPublisher(producer, cfg.Kafka.Topic)
}

// ProvideKafkaConsumer creates the archiving consumer for the snapshot topic.
func ProvideKafkaConsumer(cfg *config.Config, reg prometheus.Registerer, l *applogger.Logger, store repository.QuoteStore, m repository.Metrics) (*pkgkafka.Consumer, error) {
	if !cfg.Kafka.Enabled || !cfg.Kafka.Consumer.Enabled || store == nil {
		return nil, nil
	}
	consumer, err := pkgkafka.NewConsumer(
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Consumer.Workers),
		pkgkafka.WithConsumerBufferSize(cfg.Kafka.Consumer.BufferSize),
		pkgkafka.WithConsumerRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.BackoffMin, cfg.Kafka.Consumer.BackoffMax),
		pkgkafka.WithConsumerDLQ(cfg.Kafka.Consumer.DLQTopic),
		pkgkafka.WithConsumerFetch(cfg.Kafka.Consumer.MinBytes, cfg.Kafka.Consumer.MaxBytes),
		pkgkafka.WithConsumerRegisterer(reg),
		pkgkafka.WithConsumerLogger(l.With(applogger.String("component", "kafka_consumer"))),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	consumer.RegisterHandler(usecase.NewQuoteSnapshotHandler(cfg.Kafka.Topic, store, m))
	consumer.WithConsumerHook(pkgkafka.HookFuncs{
		Err: func(_ context.Context, topic string, _ kafkago.Message, _ []byte, _ error) {
			m.RecordError("kafka_consume_" + topic)
		},
	})
	return consumer, nil
}

func ProvideSession() *session.Classifier {
	return session.New()
}

func ProvideHub(l *applogger.Logger) *ws.Hub {
	return ws.NewHub(l.With(applogger.String("component", "ws")))
}

// ProvideQuoteProcessor fans polled snapshots out to the hub and the sink.
// Without a poller nothing reaches the sink, so it is not required.
func ProvideQuoteProcessor(cfg *config.Config, pub repository.Publisher, store repository.QuoteStore, hub *ws.Hub, m repository.Metrics) (*usecase.QuoteProcessor, error) {
	sink := cfg.Poller.Sink
	if !cfg.Poller.Enabled {
		sink = usecase.SinkNone
	}
	return usecase.NewQuoteProcessor(pub, store, hub, m, sink)
}

func ProvideQuotePipeline(cfg *config.Config, proc *usecase.QuoteProcessor, m repository.Metrics) *mid.QuotePipeline {
	return mid.NewQuotePipeline(proc, m,
		mid.WithMaxRPS(cfg.Poller.MaxRPS),
		mid.WithBufferSize(cfg.Poller.BufferSize),
	)
}

func ProvideQuotePoller(cfg *config.Config, provider repository.QuoteProvider, pipe *mid.QuotePipeline, sess *session.Classifier, m repository.Metrics, l *applogger.Logger) *usecase.QuotePoller {
	if !cfg.Poller.Enabled {
		return nil
	}
	return usecase.NewQuotePoller(provider, pipe, sess, m, l.With(applogger.String("component", "poller")), usecase.PollerConfig{
		Symbols:       cfg.Poller.Symbols,
		Interval:      cfg.Poller.Interval,
		BatchSize:     cfg.Poller.BatchSize,
		IgnoreSession: cfg.Poller.IgnoreSession,
	})
}

func ProvideMarketData(cfg *config.Config, provider repository.QuoteProvider, c cache.Service, archive repository.CandleStore, m repository.Metrics) *usecase.MarketData {
	return usecase.NewMarketData(provider, c, usecase.TTLs{
		Quotes:  cfg.Cache.TTL.Quotes,
		Candles: cfg.Cache.TTL.Candles,
		Ticks:   cfg.Cache.TTL.Ticks,
		Search:  cfg.Cache.TTL.Search,
		Detail:  cfg.Cache.TTL.Detail,
	}, archive, m)
}

// ProvideQueue creates the backfill queue with its job registered. The
// same queue both enqueues from the API and runs the workers.
func ProvideQueue(cfg *config.Config, rdb *redis.Client, l *applogger.Logger, provider repository.QuoteProvider, archive repository.CandleStore, c cache.Service, m repository.Metrics) *queue.RedisQueue {
	if !cfg.Backfill.Enabled || rdb == nil || archive == nil {
		return nil
	}
	ql := l.With(applogger.String("component", "queue"))
	job := usecase.NewCandleBackfillJob(provider, archive, c, cfg.Backfill.JobTimeout, m, ql)
	return queue.NewRedisQueue(ql, queue.QueueConfig{
		Workers:      cfg.Backfill.Workers,
		RetryLimit:   cfg.Backfill.RetryLimit,
		RetryDelay:   cfg.Backfill.RetryDelay,
		PollInterval: cfg.Backfill.PollInterval,
		JobTimeout:   cfg.Backfill.JobTimeout,
		InflightTTL:  cfg.Backfill.InflightTTL,
	}, rdb, cfg.Redis.Prefix+":"+cfg.Backfill.QueueName, job)
}

func ProvideBackfill(cfg *config.Config, q *queue.RedisQueue, c cache.Service) *usecase.Backfill {
	if q == nil {
		return nil
	}
	return usecase.NewBackfill(q, c, cfg.Backfill.DefaultCount)
}

func ProvideLimiter(cfg *config.Config) *ratelimit.Limiter {
	if !cfg.Server.RateLimit.Enabled {
		return nil
	}
	return ratelimit.New(cfg.Server.RateLimit.RPS, cfg.Server.RateLimit.Burst)
}

func ProvideMarketHandler(l *applogger.Logger, market *usecase.MarketData, backfill *usecase.Backfill, sess *session.Classifier, limiter *ratelimit.Limiter) *api.MarketEchoHandler {
	return api.NewMarketEchoHandler(l.With(applogger.String("component", "api")), market, backfill, sess, limiter)
}

// ProvideHTTPServer mounts the API and the websocket hub on one server.
func ProvideHTTPServer(cfg *config.Config, l *applogger.Logger, h *api.MarketEchoHandler, hub *ws.Hub) *xhttp.Server {
	metricsPath := ""
	if cfg.Metrics.Enabled {
		metricsPath = cfg.Metrics.Path
	}
	return xhttp.NewServer([]xhttp.Handler{h, hub},
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithMetricsPath(metricsPath),
		xhttp.WithLogger(l),
	)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	httpServer *xhttp.Server,
	hub *ws.Hub,
	poller *usecase.QuotePoller,
	processor *usecase.QuoteProcessor,
	consumer *pkgkafka.Consumer,
	q *queue.RedisQueue,
	limiter *ratelimit.Limiter,
	ch *pkgch.Client,
	rdb *redis.Client,
	c cache.Service,
) *server.App {
	closers := []func() error{c.Close, server.ClickHouseCloser(ch)}
	if rdb != nil {
		closers = append(closers, rdb.Close)
	}
	return server.New(server.Components{
		HTTP:      httpServer,
		Hub:       hub,
		Poller:    poller,
		Processor: processor,
		Consumer:  consumer,
		Queue:     q,
		Limiter:   limiter,
		Closers:   closers,
	}, l, cfg.Server.ShutdownTimeout)
}
