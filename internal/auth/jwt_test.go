package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/psds-microservice/cityfix/internal/errs"
	"github.com/psds-microservice/cityfix/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTManager_RoundTrip(t *testing.T) {
	m, err := NewJWTManager("secret", time.Hour)
	require.NoError(t, err)
	tenant := "m1"

	token, err := m.GenerateToken(&model.User{ID: "u-1", Email: "a@b.c", Role: model.UserRoleAdmin, TenantID: &tenant})
	require.NoError(t, err)

	claims, err := m.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "u-1", claims.Subject)
	assert.Equal(t, "admin", claims.Role)
	require.NotNil(t, claims.TenantID)
	assert.Equal(t, "m1", *claims.TenantID)
}

func TestJWTManager_Rejects(t *testing.T) {
	m, err := NewJWTManager("secret", time.Hour)
	require.NoError(t, err)

	other, err := NewJWTManager("other", time.Hour)
	require.NoError(t, err)
	foreign, err := other.GenerateToken(&model.User{ID: "u-1"})
	require.NoError(t, err)
	_, err = m.ValidateToken(foreign)
	assert.Error(t, err)

	m.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	expired, err := m.GenerateToken(&model.User{ID: "u-1"})
	require.NoError(t, err)
	_, err = m.ValidateToken(expired)
	assert.Error(t, err)

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"sub": "u-1"}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = m.ValidateToken(none)
	assert.Error(t, err)

	_, err = NewJWTManager("", time.Hour)
	assert.Error(t, err)
}

func TestPassword(t *testing.T) {
	hash, err := HashPassword("secret123")
	require.NoError(t, err)
	assert.True(t, CheckPassword(hash, "secret123"))
	assert.False(t, CheckPassword(hash, "secret124"))
}

func TestHashPassword_TooLong(t *testing.T) {
	_, err := HashPassword(strings.Repeat("a", 73))
	assert.ErrorIs(t, err, errs.ErrPasswordLong)

	_, err = HashPassword(strings.Repeat("a", 72))
	assert.NoError(t, err)
}
