package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/BearBump/carego/internal/models"
	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func mustHash(t *testing.T, key string) string {
	t.Helper()
	b, err := bcrypt.GenerateFromPassword([]byte(key), bcrypt.MinCost)
	require.NoError(t, err)
	return string(b)
}

func newTestAuth(t *testing.T) *Authenticator {
	t.Helper()
	a, err := New([]string{mustHash(t, "secret"), mustHash(t, "rotated")}, []byte("signing-key"), time.Hour)
	require.NoError(t, err)
	return a
}

type fakeRL struct {
	allowed bool
	err     error
	keys    []string
}

func (r *fakeRL) Allow(ctx context.Context, key string, limit int64, window time.Duration) (bool, int64, error) {
	r.keys = append(r.keys, key)
	return r.allowed, int64(len(r.keys)), r.err
}

func TestNew_Validation(t *testing.T) {
	_, err := New(nil, nil, time.Minute)
	require.Error(t, err)

	_, err = New([]string{"not-a-bcrypt-hash"}, []byte("k"), time.Minute)
	require.Error(t, err)

	a, err := New(nil, []byte("k"), 0)
	require.NoError(t, err)
	require.Equal(t, 15*time.Minute, a.tokenTTL)
}

func TestAuthorize_Keys(t *testing.T) {
	a := newTestAuth(t)
	ctx := context.Background()

	require.NoError(t, a.Authorize(ctx, "1.2.3.4", "secret"))
	require.NoError(t, a.Authorize(ctx, "1.2.3.4", "rotated"))
	require.ErrorIs(t, a.Authorize(ctx, "1.2.3.4", "wrong"), models.ErrUnauthorized)
	require.ErrorIs(t, a.Authorize(ctx, "1.2.3.4", ""), models.ErrUnauthorized)
}

func TestIssueToken_AuthorizesAdmin(t *testing.T) {
	a := newTestAuth(t)
	ctx := context.Background()

	tok, exp, err := a.IssueToken(ctx, "c", "secret")
	require.NoError(t, err)
	require.NotEmpty(t, tok)
	require.WithinDuration(t, time.Now().Add(time.Hour), exp, 5*time.Second)
	require.NoError(t, a.Authorize(ctx, "c", tok))

	// токен нельзя обменять на новый токен
	_, _, err = a.IssueToken(ctx, "c", tok)
	require.ErrorIs(t, err, models.ErrUnauthorized)

	_, _, err = a.IssueToken(ctx, "c", "wrong")
	require.ErrorIs(t, err, models.ErrUnauthorized)
}

func TestAuthorize_RejectsExpiredAndForeignTokens(t *testing.T) {
	a := newTestAuth(t)
	ctx := context.Background()

	a.now = func() time.Time { return time.Now().Add(-3 * time.Hour) }
	expired, _, err := a.IssueToken(ctx, "c", "secret")
	require.NoError(t, err)
	a.now = time.Now
	require.ErrorIs(t, a.Authorize(ctx, "c", expired), models.ErrUnauthorized)

	foreign, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Issuer:    tokenIssuer,
		Subject:   tokenSubject,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString([]byte("other-key"))
	require.NoError(t, err)
	require.ErrorIs(t, a.Authorize(ctx, "c", foreign), models.ErrUnauthorized)

	wrongSubject, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Issuer:    tokenIssuer,
		Subject:   "courier",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString([]byte("signing-key"))
	require.NoError(t, err)
	require.ErrorIs(t, a.Authorize(ctx, "c", wrongSubject), models.ErrUnauthorized)
}

func TestAuthorize_RateLimited(t *testing.T) {
	rl := &fakeRL{allowed: false}
	a := newTestAuth(t).WithRateLimiter(rl, 5)

	err := a.Authorize(context.Background(), "9.9.9.9", "secret")
	require.ErrorIs(t, err, models.ErrRateLimited)
	require.Len(t, rl.keys, 1)
	require.Contains(t, rl.keys[0], "rl:admin-auth:9.9.9.9:")
}

func TestAuthorize_RateLimiterErrorFailsOpen(t *testing.T) {
	rl := &fakeRL{err: errors.New("redis down")}
	a := newTestAuth(t).WithRateLimiter(rl, 5)

	require.NoError(t, a.Authorize(context.Background(), "c", "secret"))
}

func TestHashKey(t *testing.T) {
	h, err := HashKey("k")
	require.NoError(t, err)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(h), []byte("k")))
}
