package models

import "time"

// InitialOrderStatus is assigned to every newly created order.
const InitialOrderStatus = "awaiting pickup"

type Order struct {
	ID            uint64    `json:"id"`
	TrackingCode  string    `json:"tracking_code"`
	Status        string    `json:"status"`
	RecipientName string    `json:"recipient_name"`
	Address       string    `json:"address"`
	Notes         string    `json:"notes"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

type LocationUpdate struct {
	ID                uint64    `json:"id"`
	OrderTrackingCode string    `json:"order_tracking_code"`
	Latitude          float64   `json:"latitude"`
	Longitude         float64   `json:"longitude"`
	Timestamp         time.Time `json:"timestamp"`
}

type OrderCreateInput struct {
	RecipientName string
	Address       string
	Notes         string
}

// LocationInput is an unvalidated courier report. Nil coordinates mean the
// field was absent or null in the request.
type LocationInput struct {
	TrackingCode string
	Latitude     *float64
	Longitude    *float64
}

type StatusUpdateInput struct {
	TrackingCode string
	Status       string
}

// LastKnownLocation is the location part of a TrackingView.
type LastKnownLocation struct {
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Timestamp time.Time `json:"timestamp"`
}

// TrackingView is an order together with its most recent location, if any.
type TrackingView struct {
	Order
	LastKnownLocation *LastKnownLocation `json:"last_known_location"`
}
