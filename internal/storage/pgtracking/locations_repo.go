package pgtracking

import (
	"context"
	"time"

	"github.com/BearBump/carego/internal/broker/messages"
	"github.com/BearBump/carego/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"
)

// AppendLocation inserts a location sample only if the order exists; the
// existence check and the insert are one statement.
func (s *Storage) AppendLocation(ctx context.Context, code string, lat, lon float64) (*models.LocationUpdate, error) {
	lu := models.LocationUpdate{
		OrderTrackingCode: code,
		Latitude:          lat,
		Longitude:         lon,
	}
	err := s.inTx(ctx, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
INSERT INTO location_updates (order_tracking_code, latitude, longitude, recorded_at)
SELECT $1::text, $2::float8, $3::float8, now()
WHERE EXISTS (SELECT 1 FROM orders WHERE tracking_code = $1::text)
RETURNING id, recorded_at
`, code, lat, lon).Scan(&lu.ID, &lu.Timestamp)
		if errors.Is(err, pgx.ErrNoRows) {
			return models.ErrNotFound
		}
		if err != nil {
			return errors.Wrap(err, "insert location update")
		}

		if s.outbox != nil {
			ev := messages.NewLocationRecorded(code, lat, lon, lu.Timestamp)
			return s.enqueue(ctx, tx, s.outbox.Locations, code, ev)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &lu, nil
}

// GetTrackingView returns the order with its latest location sample
// (recorded_at DESC, ties by id DESC).
func (s *Storage) GetTrackingView(ctx context.Context, code string) (*models.TrackingView, error) {
	var v models.TrackingView
	var lat, lon *float64
	var recordedAt *time.Time

	err := s.db.QueryRow(ctx, `
SELECT
  o.id, o.tracking_code, o.status, o.recipient_name, o.address, o.notes, o.created_at, o.updated_at,
  l.latitude, l.longitude, l.recorded_at
FROM orders o
LEFT JOIN LATERAL (
  SELECT latitude, longitude, recorded_at
  FROM location_updates
  WHERE order_tracking_code = o.tracking_code
  ORDER BY recorded_at DESC, id DESC
  LIMIT 1
) l ON true
WHERE o.tracking_code = $1
`, code).Scan(append(scanOrder(&v.Order), &lat, &lon, &recordedAt)...)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "select tracking view")
	}

	if lat != nil && lon != nil && recordedAt != nil {
		v.LastKnownLocation = &models.LastKnownLocation{
			Latitude:  *lat,
			Longitude: *lon,
			Timestamp: *recordedAt,
		}
	}
	return &v, nil
}

func (s *Storage) countLocations(ctx context.Context, code string) (int, error) {
	var n int
	err := s.db.QueryRow(ctx, `SELECT count(*) FROM location_updates WHERE order_tracking_code = $1`, code).Scan(&n)
	return n, errors.Wrap(err, "count location updates")
}
