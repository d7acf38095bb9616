// Package tracking implements the order registry, location ingest and
// tracking query on top of the storage layer.
package tracking

import (
	"context"
	"strconv"
	"time"

	"github.com/BearBump/carego/internal/cache"
	"github.com/BearBump/carego/internal/models"
	"github.com/BearBump/carego/internal/trackcode"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const DefaultMaxCodeAttempts = 1000

type Repository interface {
	InsertOrder(ctx context.Context, code string, in models.OrderCreateInput) (*models.Order, error)
	UpdateOrderStatus(ctx context.Context, in models.StatusUpdateInput) (*models.Order, error)
	SeedOrder(ctx context.Context, o models.Order) (bool, error)
	AppendLocation(ctx context.Context, code string, lat, lon float64) (*models.LocationUpdate, error)
	GetTrackingView(ctx context.Context, code string) (*models.TrackingView, error)
}

// Authorizer checks an admin credential. client identifies the caller.
type Authorizer interface {
	Authorize(ctx context.Context, client, credential string) error
}

type CodeGenerator interface {
	Next() string
}

type Service struct {
	repo Repository
	auth Authorizer
	gen  CodeGenerator

	cache   cache.BytesCache
	viewTTL time.Duration

	maxCodeAttempts int
	logger          *zap.Logger
}

// New builds a service. A nil gen falls back to a crypto-seeded trackcode.Generator.
func New(repo Repository, auth Authorizer, gen CodeGenerator) *Service {
	if gen == nil {
		gen = trackcode.New(nil)
	}
	return &Service{
		repo:            repo,
		auth:            auth,
		gen:             gen,
		maxCodeAttempts: DefaultMaxCodeAttempts,
		logger:          zap.NewNop(),
	}
}

// WithCache enables read-through caching of tracking views. ttl <= 0 disables it.
func (s *Service) WithCache(c cache.BytesCache, ttl time.Duration) *Service {
	s.cache = c
	s.viewTTL = ttl
	return s
}

func (s *Service) WithLogger(l *zap.Logger) *Service {
	if l != nil {
		s.logger = l
	}
	return s
}

func (s *Service) WithMaxCodeAttempts(n int) *Service {
	if n > 0 {
		s.maxCodeAttempts = n
	}
	return s
}

func (s *Service) cacheEnabled() bool {
	return s.cache != nil && s.viewTTL > 0
}

// invalidateView bumps the view version after a committed write. Views
// cached under older versions are never read again and expire by TTL.
func (s *Service) invalidateView(ctx context.Context, code string) {
	if !s.cacheEnabled() {
		return
	}
	if _, err := s.cache.Incr(ctx, versionKey(code)); err != nil {
		s.logger.Warn("tracking view cache invalidation failed",
			zap.String("tracking_code", code), zap.Error(err))
	}
}

// viewVersion is read before the store, so a fill racing with a write
// lands under the version that write has already retired.
func (s *Service) viewVersion(ctx context.Context, code string) (string, bool) {
	b, ok, err := s.cache.Get(ctx, versionKey(code))
	if err != nil {
		s.logger.Debug("tracking view version get failed", zap.String("tracking_code", code), zap.Error(err))
		return "", false
	}
	if !ok {
		return "0", true
	}
	if _, err := strconv.ParseInt(string(b), 10, 64); err != nil {
		return "", false
	}
	return string(b), true
}

func versionKey(code string) string {
	return "tracking:" + code + ":ver"
}

func viewKey(code, version string) string {
	return "tracking:" + code + ":view:" + version
}

// storageErr keeps domain kinds as they are and wraps everything else as StorageError.
func storageErr(op string, err error) error {
	if errors.Is(err, models.ErrNotFound) ||
		errors.Is(err, models.ErrTrackingCodeTaken) ||
		errors.Is(err, models.ErrStorage) {
		return err
	}
	return models.NewStorageError(op, err)
}
