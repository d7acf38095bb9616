package messages

import (
	"time"

	"github.com/google/uuid"
)

const (
	TypeOrderCreated       = "order.created"
	TypeLocationRecorded   = "location.recorded"
	TypeOrderStatusChanged = "order.status_changed"
)

type OrderCreated struct {
	EventID      string    `json:"event_id"`
	Type         string    `json:"type"`
	TrackingCode string    `json:"tracking_code"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
}

type LocationRecorded struct {
	EventID      string    `json:"event_id"`
	Type         string    `json:"type"`
	TrackingCode string    `json:"tracking_code"`
	Latitude     float64   `json:"latitude"`
	Longitude    float64   `json:"longitude"`
	Timestamp    time.Time `json:"timestamp"`
}

type OrderStatusChanged struct {
	EventID      string    `json:"event_id"`
	Type         string    `json:"type"`
	TrackingCode string    `json:"tracking_code"`
	Status       string    `json:"status"`
	ChangedAt    time.Time `json:"changed_at"`
}

// LocationReported is what courier gateways put on the ingest topic.
// Same shape as the POST /api/update_location body.
type LocationReported struct {
	TrackingCode *string  `json:"tracking_code"`
	Latitude     *float64 `json:"latitude"`
	Longitude    *float64 `json:"longitude"`
}

func NewOrderCreated(code, status string, createdAt time.Time) OrderCreated {
	return OrderCreated{
		EventID:      uuid.NewString(),
		Type:         TypeOrderCreated,
		TrackingCode: code,
		Status:       status,
		CreatedAt:    createdAt.UTC(),
	}
}

func NewLocationRecorded(code string, lat, lon float64, ts time.Time) LocationRecorded {
	return LocationRecorded{
		EventID:      uuid.NewString(),
		Type:         TypeLocationRecorded,
		TrackingCode: code,
		Latitude:     lat,
		Longitude:    lon,
		Timestamp:    ts.UTC(),
	}
}

func NewOrderStatusChanged(code, status string, changedAt time.Time) OrderStatusChanged {
	return OrderStatusChanged{
		EventID:      uuid.NewString(),
		Type:         TypeOrderStatusChanged,
		TrackingCode: code,
		Status:       status,
		ChangedAt:    changedAt.UTC(),
	}
}
