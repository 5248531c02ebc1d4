package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appctx "sysdict/internal/core/context"
)

func newTestService(t *testing.T, secret string) *JWTService {
	t.Helper()
	svc, err := NewJWTService(DefaultJWTConfig(secret))
	require.NoError(t, err)
	return svc
}

func TestNewJWTServiceRequiresSecret(t *testing.T) {
	_, err := NewJWTService(DefaultJWTConfig(""))
	assert.Error(t, err)
}

func TestTokenRoundTrip(t *testing.T) {
	svc := newTestService(t, "s3cret")

	token, expiresAt, err := svc.GenerateAccessToken(appctx.UserContext{
		UserID:      "u-1",
		Email:       "ops@example.com",
		Permissions: []string{"system:dictionary:read"},
	})
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(15*time.Minute), expiresAt, time.Minute)

	user, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "u-1", user.UserID)
	assert.Equal(t, "ops@example.com", user.Email)
	assert.Equal(t, []string{"system:dictionary:read"}, user.Permissions)
	assert.False(t, user.IsAdmin)
}

func TestValidateTokenRejectsForeignSecret(t *testing.T) {
	issuer := newTestService(t, "one")
	validator := newTestService(t, "two")

	token, _, err := issuer.GenerateAccessToken(appctx.UserContext{UserID: "u-1"})
	require.NoError(t, err)

	_, err = validator.ValidateToken(token)
	assert.Error(t, err)
}

func TestValidateTokenRejectsExpired(t *testing.T) {
	svc := newTestService(t, "s3cret")
	svc.now = func() time.Time { return time.Now().Add(-time.Hour) }

	token, _, err := svc.GenerateAccessToken(appctx.UserContext{UserID: "u-1"})
	require.NoError(t, err)

	svc.now = time.Now
	_, err = svc.ValidateToken(token)
	assert.Error(t, err)
}

func TestValidateTokenRejectsOtherIssuer(t *testing.T) {
	cfg := DefaultJWTConfig("s3cret")
	cfg.Issuer = "someone-else"
	other, err := NewJWTService(cfg)
	require.NoError(t, err)

	token, _, err := other.GenerateAccessToken(appctx.UserContext{UserID: "u-1"})
	require.NoError(t, err)

	_, err = newTestService(t, "s3cret").ValidateToken(token)
	assert.Error(t, err)
}
