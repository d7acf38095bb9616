package tracking

import (
	"context"
	"strings"

	"github.com/BearBump/carego/internal/models"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// DemoTrackingCode is the fixed code of the seeded demo order.
const DemoTrackingCode = "CAREGO-ADMIN-TEST"

// CreateOrder registers a shipment and allocates a fresh tracking code.
// The credential is checked before any field validation.
func (s *Service) CreateOrder(ctx context.Context, client, credential string, in models.OrderCreateInput) (*models.Order, error) {
	if err := s.auth.Authorize(ctx, client, credential); err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.RecipientName) == "" {
		return nil, models.InvalidInput("recipient_name is required")
	}
	if strings.TrimSpace(in.Address) == "" {
		return nil, models.InvalidInput("address is required")
	}

	for attempt := 1; attempt <= s.maxCodeAttempts; attempt++ {
		code := s.gen.Next()
		o, err := s.repo.InsertOrder(ctx, code, in)
		if errors.Is(err, models.ErrTrackingCodeTaken) {
			s.logger.Debug("tracking code collision", zap.String("tracking_code", code), zap.Int("attempt", attempt))
			continue
		}
		if err != nil {
			return nil, storageErr("create order", err)
		}
		s.logger.Info("order created", zap.String("tracking_code", o.TrackingCode), zap.Uint64("order_id", o.ID))
		return o, nil
	}

	s.logger.Error("tracking code keyspace exhausted", zap.Int("attempts", s.maxCodeAttempts))
	return nil, models.ErrExhaustedKeyspace
}

// UpdateStatus overwrites the informational status of an order.
func (s *Service) UpdateStatus(ctx context.Context, client, credential string, in models.StatusUpdateInput) (*models.Order, error) {
	if err := s.auth.Authorize(ctx, client, credential); err != nil {
		return nil, err
	}
	if in.TrackingCode == "" {
		return nil, models.InvalidInput("tracking_code is required")
	}
	if strings.TrimSpace(in.Status) == "" {
		return nil, models.InvalidInput("status is required")
	}

	o, err := s.repo.UpdateOrderStatus(ctx, in)
	if err != nil {
		return nil, storageErr("update status", err)
	}
	s.invalidateView(ctx, in.TrackingCode)
	s.logger.Info("order status updated", zap.String("tracking_code", o.TrackingCode), zap.String("status", o.Status))
	return o, nil
}

// SeedDemoOrder inserts the demo order once; repeated calls are no-ops.
func (s *Service) SeedDemoOrder(ctx context.Context) error {
	inserted, err := s.repo.SeedOrder(ctx, models.Order{
		TrackingCode:  DemoTrackingCode,
		Status:        models.InitialOrderStatus,
		RecipientName: "Teszt Elek",
		Address:       "1111 Budapest, Teszt utca 1.",
		Notes:         "demo order",
	})
	if err != nil {
		return storageErr("seed demo order", err)
	}
	if inserted {
		s.logger.Info("demo order seeded", zap.String("tracking_code", DemoTrackingCode))
	}
	return nil
}

// Authorize checks an admin credential without performing any operation.
func (s *Service) Authorize(ctx context.Context, client, credential string) error {
	return s.auth.Authorize(ctx, client, credential)
}
