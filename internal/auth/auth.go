// Package auth authorizes admin operations. Admin keys are configured as
// bcrypt hashes; a valid key can be exchanged for a short-lived HS256 token,
// and either is accepted as an admin credential.
package auth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/BearBump/carego/internal/models"
	"github.com/golang-jwt/jwt/v4"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const (
	tokenIssuer  = "carego"
	tokenSubject = "admin"

	// окно лимитера чуть больше минуты, ключ всё равно поминутный
	rateWindow = 70 * time.Second
)

type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int64, window time.Duration) (bool, int64, error)
}

type Authenticator struct {
	hashes     [][]byte
	signingKey []byte
	tokenTTL   time.Duration

	rl          RateLimiter
	maxAttempts int64

	now    func() time.Time
	logger *zap.Logger
}

// New validates the configured key hashes. signingKey must not be empty.
func New(keyHashes []string, signingKey []byte, tokenTTL time.Duration) (*Authenticator, error) {
	if len(signingKey) == 0 {
		return nil, errors.New("jwt signing key is required")
	}
	if tokenTTL <= 0 {
		tokenTTL = 15 * time.Minute
	}
	hashes := make([][]byte, 0, len(keyHashes))
	for i, h := range keyHashes {
		if _, err := bcrypt.Cost([]byte(h)); err != nil {
			return nil, errors.Wrapf(err, "admin key hash #%d", i)
		}
		hashes = append(hashes, []byte(h))
	}
	return &Authenticator{
		hashes:     hashes,
		signingKey: signingKey,
		tokenTTL:   tokenTTL,
		now:        time.Now,
		logger:     zap.NewNop(),
	}, nil
}

// HashKey returns the bcrypt hash to put into auth.admin_key_hashes.
func HashKey(key string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(key), bcrypt.DefaultCost)
	if err != nil {
		return "", errors.Wrap(err, "hash admin key")
	}
	return string(b), nil
}

// WithRateLimiter counts every admin authentication attempt per client per minute.
func (a *Authenticator) WithRateLimiter(rl RateLimiter, maxPerMinute int) *Authenticator {
	if rl != nil && maxPerMinute > 0 {
		a.rl = rl
		a.maxAttempts = int64(maxPerMinute)
	}
	return a
}

func (a *Authenticator) WithLogger(l *zap.Logger) *Authenticator {
	if l != nil {
		a.logger = l
	}
	return a
}

// Authorize accepts an admin key or a token issued by IssueToken.
// client identifies the caller for rate limiting (usually the remote IP).
func (a *Authenticator) Authorize(ctx context.Context, client, credential string) error {
	if err := a.checkRate(ctx, client); err != nil {
		return err
	}
	if credential == "" {
		return models.ErrUnauthorized
	}
	if looksLikeToken(credential) && a.verifyToken(credential) == nil {
		return nil
	}
	if a.matchKey(credential) {
		return nil
	}
	return models.ErrUnauthorized
}

// IssueToken exchanges an admin key (not a token) for a signed token.
func (a *Authenticator) IssueToken(ctx context.Context, client, key string) (string, time.Time, error) {
	if err := a.checkRate(ctx, client); err != nil {
		return "", time.Time{}, err
	}
	if key == "" || !a.matchKey(key) {
		return "", time.Time{}, models.ErrUnauthorized
	}

	now := a.now().UTC()
	exp := now.Add(a.tokenTTL)
	claims := jwt.RegisteredClaims{
		Issuer:    tokenIssuer,
		Subject:   tokenSubject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(exp),
	}
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.signingKey)
	if err != nil {
		return "", time.Time{}, errors.Wrap(err, "sign token")
	}
	return s, exp, nil
}

func (a *Authenticator) matchKey(key string) bool {
	for _, h := range a.hashes {
		if bcrypt.CompareHashAndPassword(h, []byte(key)) == nil {
			return true
		}
	}
	return false
}

func (a *Authenticator) verifyToken(s string) error {
	claims := &jwt.RegisteredClaims{}
	tok, err := jwt.ParseWithClaims(s, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return a.signingKey, nil
	})
	if err != nil {
		return err
	}
	if !tok.Valid || claims.Issuer != tokenIssuer || claims.Subject != tokenSubject {
		return errors.New("invalid token claims")
	}
	return nil
}

func (a *Authenticator) checkRate(ctx context.Context, client string) error {
	if a.rl == nil {
		return nil
	}
	if client == "" {
		client = "unknown"
	}
	key := fmt.Sprintf("rl:admin-auth:%s:%s", client, a.now().UTC().Format("200601021504"))
	allowed, n, err := a.rl.Allow(ctx, key, a.maxAttempts, rateWindow)
	if err != nil {
		// лимитер недоступен: не блокируем админа
		a.logger.Warn("admin auth rate limiter failed", zap.Error(err))
		return nil
	}
	if !allowed {
		a.logger.Warn("admin auth rate limit exceeded", zap.String("client", client), zap.Int64("count", n))
		return models.ErrRateLimited
	}
	return nil
}

func looksLikeToken(s string) bool {
	return strings.Count(s, ".") == 2
}
