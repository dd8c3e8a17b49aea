package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"carrental/internal/model"
)

func TestJWTService_RoundTrip(t *testing.T) {
	svc := NewJWTService("test-secret", time.Hour)
	user := &model.User{UserID: 7, UserName: "jdoe", Role: model.RoleAdmin}

	token, err := svc.GenerateToken(user)
	require.NoError(t, err)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, uint(7), claims.UserID)
	assert.Equal(t, "jdoe", claims.Username)
	assert.Equal(t, model.RoleAdmin, claims.Role)
	assert.Equal(t, "7", claims.Subject)
	assert.NotEmpty(t, claims.ID)
	assert.InDelta(t, time.Hour.Seconds(), RemainingTTL(claims).Seconds(), 5)
}

func TestJWTService_RejectsForeignSignature(t *testing.T) {
	issuer := NewJWTService("secret-a", time.Hour)
	verifier := NewJWTService("secret-b", time.Hour)

	token, err := issuer.GenerateToken(&model.User{UserID: 1, Role: model.RoleUser})
	require.NoError(t, err)

	_, err = verifier.ValidateToken(token)
	assert.Error(t, err)
}

func TestJWTService_RejectsExpired(t *testing.T) {
	svc := NewJWTService("test-secret", time.Nanosecond)
	token, err := svc.GenerateToken(&model.User{UserID: 1, Role: model.RoleUser})
	require.NoError(t, err)
	time.Sleep(time.Second)

	_, err = svc.ValidateToken(token)
	assert.Error(t, err)
}

func TestMemoryTokenStore(t *testing.T) {
	store := NewMemoryTokenStore()
	ctx := context.Background()

	revoked, err := store.IsTokenRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.False(t, revoked)

	require.NoError(t, store.RevokeToken(ctx, "jti-1", time.Minute))
	revoked, _ = store.IsTokenRevoked(ctx, "jti-1")
	assert.True(t, revoked)

	require.NoError(t, store.RevokeToken(ctx, "jti-2", 0))
	revoked, _ = store.IsTokenRevoked(ctx, "jti-2")
	assert.False(t, revoked)
}
