package main

import (
	"context"
	"crypto/rand"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/BearBump/carego/config"
	"github.com/BearBump/carego/internal/auth"
	"github.com/BearBump/carego/internal/broker/kafka"
	"github.com/BearBump/carego/internal/cache/rediscache"
	"github.com/BearBump/carego/internal/services/relay"
	"github.com/BearBump/carego/internal/services/tracking"
	"github.com/BearBump/carego/internal/storage/pgtracking"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type careGoAPIApp struct {
	ctx    context.Context
	cancel context.CancelFunc
	logger *zap.Logger

	opts careGoAPIOpts
	deps careGoAPIDeps

	closers []func()
}

func newLogger(level string) (*zap.Logger, error) {
	if level == "" {
		level = "info"
	}
	loggerLvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, err
	}
	loggerCfg := zap.NewProductionConfig()
	loggerCfg.Level = loggerLvl

	return loggerCfg.Build()
}

func mustBootstrapCareGoAPI() *careGoAPIApp {
	cfg, err := config.LoadConfig(os.Getenv("configPath"))
	if err != nil {
		panic(fmt.Sprintf("ошибка парсинга конфига, %v", err))
	}

	logger, err := newLogger(cfg.CareGo.LogLevel)
	if err != nil {
		panic(fmt.Sprintf("ошибка инициализации логгера, %v", err))
	}

	app := &careGoAPIApp{logger: logger}
	app.closers = append(app.closers, func() { _ = logger.Sync() })

	httpAddr := cfg.CareGo.HTTPAddr
	if httpAddr == "" {
		httpAddr = ":8080"
	}
	swaggerPath := os.Getenv("swaggerPath")
	if swaggerPath == "" {
		swaggerPath = cfg.CareGo.SwaggerPath
	}
	viewTTL := time.Duration(cfg.CareGo.TrackingViewTTLSeconds) * time.Second
	if viewTTL <= 0 {
		viewTTL = 30 * time.Second
	}

	var storageOpts []pgtracking.Option
	if cfg.Kafka.Enabled {
		storageOpts = append(storageOpts, pgtracking.WithOutbox(pgtracking.OutboxTopics{
			Orders:    defaultString(cfg.Kafka.OrderEventsTopicName, "carego.orders"),
			Locations: defaultString(cfg.Kafka.LocationEventsTopicName, "carego.locations"),
		}))
	}
	st := mustOpenPostgresWithRetry(cfg.Database.ConnString(), 60*time.Second, logger, storageOpts...)
	app.closers = append(app.closers, st.Close)

	var rdb *redis.Client
	if addr := cfg.Redis.Addr(); addr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: addr})
		app.closers = append(app.closers, func() { _ = rdb.Close() })
	}

	authn := mustBuildAuthenticator(cfg.Auth, logger)
	if rdb != nil {
		authn.WithRateLimiter(rediscache.NewRateLimiterWithClient(rdb), defaultInt(cfg.Auth.MaxAttemptsPerMinute, 30))
	}

	svc := tracking.New(st, authn, nil).
		WithLogger(logger.Named("tracking")).
		WithMaxCodeAttempts(cfg.CareGo.MaxCodeAttempts)
	if rdb != nil {
		svc.WithCache(rediscache.NewWithClient(rdb), viewTTL)
	}

	deps := careGoAPIDeps{svc: svc, tokens: authn, pinger: st}

	if cfg.Kafka.Enabled {
		brokers := cfg.Kafka.Brokers()
		producer := kafka.NewProducer(brokers)
		app.closers = append(app.closers, func() { _ = producer.Close() })

		deps.relay = relay.New(st, producer).
			WithSettings(
				time.Duration(cfg.CareGo.RelayPollIntervalSeconds)*time.Second,
				cfg.CareGo.RelayBatchSize,
				cfg.CareGo.RelayConcurrency,
				time.Duration(cfg.CareGo.RelayLeaseSeconds)*time.Second,
			).
			WithPlanner(relay.PlannerConfig{
				Backoff1: time.Duration(cfg.CareGo.RelayBackoff1Seconds) * time.Second,
				Backoff2: time.Duration(cfg.CareGo.RelayBackoff2Seconds) * time.Second,
				Backoff3: time.Duration(cfg.CareGo.RelayBackoff3Seconds) * time.Second,
				Backoff4: time.Duration(cfg.CareGo.RelayBackoff4Seconds) * time.Second,
			}).
			WithLogger(logger.Named("relay"))

		if topic := cfg.Kafka.LocationReportedTopicName; topic != "" {
			group := defaultString(cfg.Kafka.ConsumerGroup, "carego-api")
			consumer := kafka.NewConsumer(brokers, topic, group, logger.Named("consumer"))
			app.closers = append(app.closers, func() { _ = consumer.Close() })
			deps.consumer = consumer
			deps.consumerTopic = topic
		}
	}

	app.ctx, app.cancel = signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	app.opts = careGoAPIOpts{
		httpAddr:    httpAddr,
		swaggerPath: swaggerPath,
		seedDemo:    cfg.CareGo.SeedDemoOrder,

		consumerBackoff:    time.Duration(cfg.CareGo.ConsumerRestartSeconds) * time.Second,
		consumerBackoffMax: time.Duration(cfg.CareGo.ConsumerRestartMaxSeconds) * time.Second,
	}
	app.deps = deps
	return app
}

func mustBuildAuthenticator(cfg config.AuthConfig, logger *zap.Logger) *auth.Authenticator {
	hashes := append([]string(nil), cfg.AdminKeyHashes...)
	if cfg.AdminPassword != "" {
		h, err := auth.HashKey(cfg.AdminPassword)
		if err != nil {
			panic(err)
		}
		hashes = append(hashes, h)
	}
	if len(hashes) == 0 {
		logger.Warn("no admin keys configured, admin operations will be rejected")
	}

	key := []byte(cfg.JWTSigningKey)
	if len(key) == 0 {
		// токены не переживут рестарт
		key = make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			panic(err)
		}
		logger.Warn("jwt signing key not configured, using a random one")
	}

	authn, err := auth.New(hashes, key, time.Duration(cfg.TokenTTLSeconds)*time.Second)
	if err != nil {
		panic(fmt.Sprintf("ошибка настройки авторизации, %v", err))
	}
	return authn.WithLogger(logger.Named("auth"))
}

func mustOpenPostgresWithRetry(connString string, wait time.Duration, logger *zap.Logger, opts ...pgtracking.Option) *pgtracking.Storage {
	deadline := time.Now().Add(wait)
	var lastErr error
	for time.Now().Before(deadline) {
		st, err := pgtracking.New(connString, opts...)
		if err == nil {
			return st
		}
		lastErr = err
		logger.Warn("postgres is not ready", zap.Error(err))
		time.Sleep(1 * time.Second)
	}
	panic(fmt.Sprintf("postgres is not ready after %s: %v", wait, lastErr))
}

func (a *careGoAPIApp) Close() {
	if a.cancel != nil {
		a.cancel()
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

func (a *careGoAPIApp) Run() error {
	return runCareGoAPI(a.ctx, a.opts, a.deps, a.logger)
}

func defaultString(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func defaultInt(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
