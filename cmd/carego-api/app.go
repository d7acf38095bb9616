package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/BearBump/carego/internal/api/tracking_api"
	"github.com/BearBump/carego/internal/services/relay"
	"github.com/BearBump/carego/internal/services/tracking"
	"go.uber.org/zap"
)

type careGoAPIOpts struct {
	httpAddr    string
	swaggerPath string
	seedDemo    bool

	// restart delays for a failed kafka consumer; zero means defaults
	consumerBackoff    time.Duration
	consumerBackoffMax time.Duration

	onListen func(httpAddr string)
}

type kafkaConsumer interface {
	Consume(ctx context.Context, handler func(ctx context.Context, key, value []byte) error) error
}

type pinger interface {
	Ping(ctx context.Context) error
}

type careGoAPIDeps struct {
	svc    *tracking.Service
	tokens tracking_api.TokenIssuer
	pinger pinger

	// nil when kafka is disabled
	relay         *relay.Relay
	consumer      kafkaConsumer
	consumerTopic string
}

func runCareGoAPI(ctx context.Context, opts careGoAPIOpts, deps careGoAPIDeps, logger *zap.Logger) error {
	if opts.swaggerPath != "" {
		if _, err := os.Stat(opts.swaggerPath); os.IsNotExist(err) {
			return fmt.Errorf("swagger file not found: %s", opts.swaggerPath)
		}
	}

	if opts.seedDemo {
		if err := deps.svc.SeedDemoOrder(ctx); err != nil {
			return err
		}
	}

	lis, err := net.Listen("tcp", opts.httpAddr)
	if err != nil {
		return err
	}
	if opts.onListen != nil {
		opts.onListen(lis.Addr().String())
	}

	if deps.relay != nil {
		go func() {
			logger.Info("outbox relay started")
			if err := deps.relay.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("outbox relay stopped", zap.Error(err))
			}
		}()
	}

	var ingest *ingestLoop
	if deps.consumer != nil {
		ingest = newIngestLoop(deps.consumer, deps.svc, opts.consumerBackoff, opts.consumerBackoffMax,
			logger.With(zap.String("topic", deps.consumerTopic)))
		go func() {
			logger.Info("kafka consumer started", zap.String("topic", deps.consumerTopic))
			ingest.run(ctx)
		}()
	}

	srv := &http.Server{
		Handler:           newRouter(opts, deps, ingest, logger),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		_ = lis.Close()
	}()

	logger.Info("HTTP server listening", zap.String("addr", lis.Addr().String()))
	if err := srv.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return ctx.Err()
}
