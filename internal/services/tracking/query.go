package tracking

import (
	"context"
	"encoding/json"

	"github.com/BearBump/carego/internal/models"
	"go.uber.org/zap"
)

// GetTrackingView returns the order and its most recent location sample.
func (s *Service) GetTrackingView(ctx context.Context, code string) (*models.TrackingView, error) {
	if code == "" {
		return nil, models.ErrNotFound
	}

	var key string
	if s.cacheEnabled() {
		if ver, ok := s.viewVersion(ctx, code); ok {
			key = viewKey(code, ver)
		}
	}
	if key != "" {
		b, ok, err := s.cache.Get(ctx, key)
		if err != nil {
			s.logger.Debug("tracking view cache get failed", zap.String("tracking_code", code), zap.Error(err))
		}
		if ok {
			var v models.TrackingView
			if json.Unmarshal(b, &v) == nil {
				return &v, nil
			}
		}
	}

	v, err := s.repo.GetTrackingView(ctx, code)
	if err != nil {
		return nil, storageErr("get tracking view", err)
	}

	if key != "" {
		if b, err := json.Marshal(v); err == nil {
			if err := s.cache.Set(ctx, key, b, s.viewTTL); err != nil {
				s.logger.Debug("tracking view cache set failed", zap.String("tracking_code", code), zap.Error(err))
			}
		}
	}
	return v, nil
}
