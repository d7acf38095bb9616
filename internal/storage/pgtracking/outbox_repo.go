package pgtracking

import (
	"context"
	"encoding/json"
	"time"

	"github.com/BearBump/carego/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"
)

func (s *Storage) enqueue(ctx context.Context, tx pgx.Tx, topic, key string, event any) error {
	b, err := json.Marshal(event)
	if err != nil {
		return errors.Wrap(err, "marshal outbox event")
	}
	_, err = tx.Exec(ctx, `
INSERT INTO outbox_events (topic, event_key, payload, next_attempt_at, created_at)
VALUES ($1, $2, $3, now(), now())
`, topic, key, string(b))
	return errors.Wrap(err, "insert outbox event")
}

// ClaimDueOutbox выбирает пачку неопубликованных событий и "бронирует" их на lease,
// чтобы параллельный relay их не взял. SELECT ... FOR UPDATE SKIP LOCKED.
func (s *Storage) ClaimDueOutbox(ctx context.Context, now time.Time, limit int, lease time.Duration) ([]*models.OutboxEvent, error) {
	var picked []*models.OutboxEvent
	err := s.inTx(ctx, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, `
SELECT id, topic, event_key, payload, attempts, last_error, next_attempt_at, created_at
FROM outbox_events
WHERE published_at IS NULL
  AND next_attempt_at <= $1
ORDER BY id ASC
LIMIT $2
FOR UPDATE SKIP LOCKED
`, now.UTC(), limit)
		if err != nil {
			return errors.Wrap(err, "select due outbox events")
		}
		defer rows.Close()

		for rows.Next() {
			var e models.OutboxEvent
			if err := rows.Scan(
				&e.ID, &e.Topic, &e.Key, &e.Payload,
				&e.Attempts, &e.LastError, &e.NextAttemptAt, &e.CreatedAt,
			); err != nil {
				return errors.Wrap(err, "scan outbox event")
			}
			picked = append(picked, &e)
		}
		if rows.Err() != nil {
			return errors.Wrap(rows.Err(), "rows")
		}
		rows.Close()

		if len(picked) == 0 {
			return nil
		}

		ids := make([]int64, 0, len(picked))
		for _, e := range picked {
			ids = append(ids, int64(e.ID))
		}
		leaseUntil := now.UTC().Add(lease)
		if _, err := tx.Exec(ctx, `UPDATE outbox_events SET next_attempt_at = $2 WHERE id = ANY($1)`, ids, leaseUntil); err != nil {
			return errors.Wrap(err, "lease outbox events")
		}
		for _, e := range picked {
			e.NextAttemptAt = leaseUntil
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return picked, nil
}

func (s *Storage) MarkOutboxPublished(ctx context.Context, id uint64) error {
	_, err := s.db.Exec(ctx, `
UPDATE outbox_events
SET published_at = now(), last_error = NULL
WHERE id = $1
`, id)
	return errors.Wrap(err, "mark outbox published")
}

func (s *Storage) MarkOutboxFailed(ctx context.Context, id uint64, lastError string, nextAttemptAt time.Time) error {
	_, err := s.db.Exec(ctx, `
UPDATE outbox_events
SET attempts = attempts + 1, last_error = $2, next_attempt_at = $3
WHERE id = $1
`, id, lastError, nextAttemptAt.UTC())
	return errors.Wrap(err, "mark outbox failed")
}
