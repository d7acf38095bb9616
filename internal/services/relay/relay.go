// Package relay publishes domain events stored in the outbox to Kafka.
package relay

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/BearBump/carego/internal/models"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

type Repository interface {
	ClaimDueOutbox(ctx context.Context, now time.Time, limit int, lease time.Duration) ([]*models.OutboxEvent, error)
	MarkOutboxPublished(ctx context.Context, id uint64) error
	MarkOutboxFailed(ctx context.Context, id uint64, lastError string, nextAttemptAt time.Time) error
}

type Producer interface {
	Publish(ctx context.Context, topic string, key, value []byte) error
}

type Relay struct {
	repo     Repository
	producer Producer
	planner  *Planner
	logger   *zap.Logger

	pollInterval time.Duration
	batchSize    int
	concurrency  int
	lease        time.Duration

	triggerCh chan struct{}
	now       func() time.Time

	startedAtUnixNano   int64
	lastCycleUnixNano   atomic.Int64
	lastTriggerUnixNano atomic.Int64
	totalClaimed        atomic.Int64
	totalPublished      atomic.Int64
	totalErrors         atomic.Int64
	inFlight            atomic.Int64
	lastErrorMu         sync.Mutex
	lastError           string
}

func New(repo Repository, producer Producer) *Relay {
	return &Relay{
		repo:              repo,
		producer:          producer,
		planner:           NewPlanner(DefaultPlannerConfig()),
		logger:            zap.NewNop(),
		pollInterval:      time.Second,
		batchSize:         100,
		concurrency:       4,
		lease:             30 * time.Second,
		triggerCh:         make(chan struct{}, 1),
		now:               time.Now,
		startedAtUnixNano: time.Now().UTC().UnixNano(),
	}
}

func (r *Relay) WithSettings(pollInterval time.Duration, batchSize, concurrency int, lease time.Duration) *Relay {
	if pollInterval > 0 {
		r.pollInterval = pollInterval
	}
	if batchSize > 0 {
		r.batchSize = batchSize
	}
	if concurrency > 0 {
		r.concurrency = concurrency
	}
	if lease > 0 {
		r.lease = lease
	}
	return r
}

func (r *Relay) WithPlanner(cfg PlannerConfig) *Relay {
	r.planner = NewPlanner(cfg)
	return r
}

func (r *Relay) WithLogger(l *zap.Logger) *Relay {
	if l != nil {
		r.logger = l
	}
	return r
}

// Trigger forces an immediate relay cycle (best-effort, non-blocking).
func (r *Relay) Trigger() {
	r.lastTriggerUnixNano.Store(time.Now().UTC().UnixNano())
	select {
	case r.triggerCh <- struct{}{}:
	default:
	}
}

type Stats struct {
	StartedAt      time.Time  `json:"startedAt"`
	LastCycleAt    *time.Time `json:"lastCycleAt,omitempty"`
	LastTriggerAt  *time.Time `json:"lastTriggerAt,omitempty"`
	TotalClaimed   int64      `json:"totalClaimed"`
	TotalPublished int64      `json:"totalPublished"`
	TotalErrors    int64      `json:"totalErrors"`
	InFlight       int64      `json:"inFlight"`
	LastError      string     `json:"lastError,omitempty"`
}

func (r *Relay) Stats() Stats {
	st := Stats{
		StartedAt:      time.Unix(0, r.startedAtUnixNano).UTC(),
		TotalClaimed:   r.totalClaimed.Load(),
		TotalPublished: r.totalPublished.Load(),
		TotalErrors:    r.totalErrors.Load(),
		InFlight:       r.inFlight.Load(),
	}
	if n := r.lastCycleUnixNano.Load(); n > 0 {
		t := time.Unix(0, n).UTC()
		st.LastCycleAt = &t
	}
	if n := r.lastTriggerUnixNano.Load(); n > 0 {
		t := time.Unix(0, n).UTC()
		st.LastTriggerAt = &t
	}
	r.lastErrorMu.Lock()
	st.LastError = r.lastError
	r.lastErrorMu.Unlock()
	return st
}

// Run relays until ctx is cancelled.
func (r *Relay) Run(ctx context.Context) error {
	t := time.NewTicker(r.pollInterval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
			r.runOnce(ctx)
		case <-r.triggerCh:
			r.runOnce(ctx)
		}
	}
}

func (r *Relay) runOnce(ctx context.Context) {
	now := r.now().UTC()
	r.lastCycleUnixNano.Store(now.UnixNano())

	events, err := r.repo.ClaimDueOutbox(ctx, now, r.batchSize, r.lease)
	if err != nil {
		r.logger.Error("claim due outbox events", zap.Error(err))
		r.setLastError(err)
		return
	}
	r.totalClaimed.Add(int64(len(events)))

	sem := make(chan struct{}, r.concurrency)
	var wg sync.WaitGroup
	for _, ev := range events {
		sem <- struct{}{}
		wg.Add(1)
		r.inFlight.Add(1)
		go func(ev *models.OutboxEvent) {
			defer func() {
				r.inFlight.Add(-1)
				<-sem
				wg.Done()
			}()
			if err := r.publishOne(ctx, ev); err != nil {
				r.totalErrors.Add(1)
				r.setLastError(err)
				r.logger.Error("relay outbox event",
					zap.Uint64("event_id", ev.ID),
					zap.String("topic", ev.Topic),
					zap.Int32("attempts", ev.Attempts),
					zap.Error(err))
				return
			}
			r.totalPublished.Add(1)
		}(ev)
	}
	wg.Wait()
}

// publishOne sends ev and records the outcome. A failed publish is
// rescheduled with backoff; the returned error is the publish error.
func (r *Relay) publishOne(ctx context.Context, ev *models.OutboxEvent) error {
	pubErr := r.producer.Publish(ctx, ev.Topic, []byte(ev.Key), ev.Payload)
	if pubErr == nil {
		if err := r.repo.MarkOutboxPublished(ctx, ev.ID); err != nil {
			// после lease событие уйдёт повторно
			return errors.Wrap(err, "mark published")
		}
		return nil
	}

	next := r.now().UTC().Add(r.planner.BackoffDelay(ev.Attempts + 1))
	if err := r.repo.MarkOutboxFailed(ctx, ev.ID, pubErr.Error(), next); err != nil {
		r.logger.Error("mark outbox event failed", zap.Uint64("event_id", ev.ID), zap.Error(err))
	}
	return pubErr
}

func (r *Relay) setLastError(err error) {
	r.lastErrorMu.Lock()
	r.lastError = err.Error()
	r.lastErrorMu.Unlock()
}
