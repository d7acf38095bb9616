package main

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/BearBump/carego/internal/services/tracking"
	"go.uber.org/zap"
)

const (
	defaultConsumerBackoff    = time.Second
	defaultConsumerBackoffMax = 30 * time.Second
)

// ingestLoop keeps the location consumer running. A failed Consume is
// restarted with exponential backoff; readiness is lost from the failure
// until a report is handled again or the restarted consumer has stayed up
// for backoffMax.
type ingestLoop struct {
	consumer kafkaConsumer
	svc      *tracking.Service
	logger   *zap.Logger

	backoff    time.Duration
	backoffMax time.Duration
	now        func() time.Time

	failing     atomic.Bool
	consuming   atomic.Bool
	startedAtNs atomic.Int64
	restarts    atomic.Int64
	lastErr     atomic.Pointer[string]
}

func newIngestLoop(consumer kafkaConsumer, svc *tracking.Service, backoff, backoffMax time.Duration, logger *zap.Logger) *ingestLoop {
	if backoff <= 0 {
		backoff = defaultConsumerBackoff
	}
	if backoffMax < backoff {
		backoffMax = max(defaultConsumerBackoffMax, backoff)
	}
	return &ingestLoop{
		consumer:   consumer,
		svc:        svc,
		logger:     logger,
		backoff:    backoff,
		backoffMax: backoffMax,
		now:        time.Now,
	}
}

func (l *ingestLoop) run(ctx context.Context) {
	delay := l.backoff
	for {
		l.startedAtNs.Store(l.now().UnixNano())
		l.consuming.Store(true)
		err := l.consumer.Consume(ctx, l.handle)
		l.consuming.Store(false)

		if ctx.Err() != nil {
			return
		}
		if err == nil || errors.Is(err, context.Canceled) {
			err = errors.New("consumer returned unexpectedly")
		}
		msg := err.Error()
		l.lastErr.Store(&msg)
		l.failing.Store(true)
		l.logger.Error("kafka consumer stopped, restarting",
			zap.Error(err), zap.Duration("backoff", delay), zap.Int64("restarts", l.restarts.Load()))

		t := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			t.Stop()
			return
		case <-t.C:
		}
		l.restarts.Add(1)
		delay = min(delay*2, l.backoffMax)
	}
}

func (l *ingestLoop) handle(ctx context.Context, _, value []byte) error {
	if err := l.svc.HandleLocationReport(ctx, value); err != nil {
		return err
	}
	l.failing.Store(false)
	return nil
}

// healthy reports false with the last consumer error while ingest is degraded.
func (l *ingestLoop) healthy() (bool, string) {
	if !l.failing.Load() {
		return true, ""
	}
	if l.consuming.Load() && l.now().Sub(time.Unix(0, l.startedAtNs.Load())) >= l.backoffMax {
		l.failing.Store(false)
		return true, ""
	}
	var msg string
	if p := l.lastErr.Load(); p != nil {
		msg = *p
	}
	return false, msg
}
