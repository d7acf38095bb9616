package tracking

import (
	"context"
	"encoding/json"

	"github.com/BearBump/carego/internal/broker/messages"
	"github.com/BearBump/carego/internal/models"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// RecordLocation appends a GPS sample for an existing order.
func (s *Service) RecordLocation(ctx context.Context, in models.LocationInput) (*models.LocationUpdate, error) {
	if in.TrackingCode == "" {
		return nil, models.InvalidInput("tracking_code is required")
	}
	if in.Latitude == nil {
		return nil, models.InvalidInput("latitude is required")
	}
	if in.Longitude == nil {
		return nil, models.InvalidInput("longitude is required")
	}

	lu, err := s.repo.AppendLocation(ctx, in.TrackingCode, *in.Latitude, *in.Longitude)
	if err != nil {
		return nil, storageErr("record location", err)
	}
	s.invalidateView(ctx, in.TrackingCode)
	return lu, nil
}

// HandleLocationReport consumes one courier report from Kafka. Reports that
// can never succeed (bad payload, unknown code) are logged and dropped;
// any other error is returned so the message is not committed.
func (s *Service) HandleLocationReport(ctx context.Context, value []byte) error {
	var msg messages.LocationReported
	if err := json.Unmarshal(value, &msg); err != nil {
		s.logger.Warn("skip malformed location report", zap.Error(err))
		return nil
	}

	in := models.LocationInput{Latitude: msg.Latitude, Longitude: msg.Longitude}
	if msg.TrackingCode != nil {
		in.TrackingCode = *msg.TrackingCode
	}

	_, err := s.RecordLocation(ctx, in)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, models.ErrInvalidInput), errors.Is(err, models.ErrNotFound):
		s.logger.Warn("skip location report",
			zap.String("tracking_code", in.TrackingCode), zap.Error(err))
		return nil
	default:
		return err
	}
}
