package pgtracking

import (
	"context"

	"github.com/BearBump/carego/internal/broker/messages"
	"github.com/BearBump/carego/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"
)

const orderColumns = `id, tracking_code, status, recipient_name, address, notes, created_at, updated_at`

// InsertOrder stores a new order under code. A unique collision on code
// returns models.ErrTrackingCodeTaken and leaves nothing behind.
func (s *Storage) InsertOrder(ctx context.Context, code string, in models.OrderCreateInput) (*models.Order, error) {
	var o models.Order
	err := s.inTx(ctx, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
INSERT INTO orders (tracking_code, status, recipient_name, address, notes, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, now(), now())
ON CONFLICT (tracking_code) DO NOTHING
RETURNING `+orderColumns,
			code, models.InitialOrderStatus, in.RecipientName, in.Address, in.Notes,
		).Scan(scanOrder(&o)...)
		if errors.Is(err, pgx.ErrNoRows) {
			return models.ErrTrackingCodeTaken
		}
		if err != nil {
			return errors.Wrap(err, "insert order")
		}

		if s.outbox != nil {
			ev := messages.NewOrderCreated(o.TrackingCode, o.Status, o.CreatedAt)
			return s.enqueue(ctx, tx, s.outbox.Orders, o.TrackingCode, ev)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// UpdateOrderStatus overwrites the free-text status of an existing order.
func (s *Storage) UpdateOrderStatus(ctx context.Context, in models.StatusUpdateInput) (*models.Order, error) {
	var o models.Order
	err := s.inTx(ctx, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
UPDATE orders
SET status = $2, updated_at = now()
WHERE tracking_code = $1
RETURNING `+orderColumns,
			in.TrackingCode, in.Status,
		).Scan(scanOrder(&o)...)
		if errors.Is(err, pgx.ErrNoRows) {
			return models.ErrNotFound
		}
		if err != nil {
			return errors.Wrap(err, "update order status")
		}

		if s.outbox != nil {
			ev := messages.NewOrderStatusChanged(o.TrackingCode, o.Status, o.UpdatedAt)
			return s.enqueue(ctx, tx, s.outbox.Orders, o.TrackingCode, ev)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// SeedOrder inserts o unless an order with the same code exists.
// Reports whether a row was inserted.
func (s *Storage) SeedOrder(ctx context.Context, o models.Order) (bool, error) {
	tag, err := s.db.Exec(ctx, `
INSERT INTO orders (tracking_code, status, recipient_name, address, notes, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, now(), now())
ON CONFLICT (tracking_code) DO NOTHING
`, o.TrackingCode, o.Status, o.RecipientName, o.Address, o.Notes)
	if err != nil {
		return false, errors.Wrap(err, "seed order")
	}
	return tag.RowsAffected() == 1, nil
}

func scanOrder(o *models.Order) []any {
	return []any{
		&o.ID, &o.TrackingCode, &o.Status,
		&o.RecipientName, &o.Address, &o.Notes,
		&o.CreatedAt, &o.UpdatedAt,
	}
}
