package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resource-reservation-backend/internal/model"
)

func TestPasswordRoundTrip(t *testing.T) {
	hash, err := HashPassword("segredo123")
	require.NoError(t, err)
	assert.NotEqual(t, "segredo123", hash)

	assert.True(t, CheckPassword(hash, "segredo123"))
	assert.False(t, CheckPassword(hash, "errado"))
	assert.False(t, CheckPassword("not-a-hash", "segredo123"))
}

func TestTokenRoundTrip(t *testing.T) {
	user := &model.User{ID: 7, Username: "maria", Role: model.RoleUser}

	token, err := GenerateToken(user, "test-secret", time.Hour, time.Now())
	require.NoError(t, err)

	claims, err := ParseToken(token, "test-secret")
	require.NoError(t, err)
	assert.Equal(t, int64(7), claims.UserID)
	assert.Equal(t, "maria", claims.Username)
	assert.Equal(t, model.RoleUser, claims.Role)
}

func TestTokenWrongSecret(t *testing.T) {
	user := &model.User{ID: 7, Username: "maria", Role: model.RoleUser}

	token, err := GenerateToken(user, "test-secret", time.Hour, time.Now())
	require.NoError(t, err)

	_, err = ParseToken(token, "other-secret")
	assert.Error(t, err)
}

func TestTokenExpired(t *testing.T) {
	user := &model.User{ID: 7, Username: "maria", Role: model.RoleUser}

	issued := time.Now().Add(-2 * time.Hour)
	token, err := GenerateToken(user, "test-secret", time.Hour, issued)
	require.NoError(t, err)

	_, err = ParseToken(token, "test-secret")
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)
}

func TestTokenRejectsUnsignedAlgorithm(t *testing.T) {
	claims := jwt.MapClaims{"sub": float64(7), "exp": time.Now().Add(time.Hour).Unix()}
	token := jwt.NewWithClaims(jwt.SigningMethodNone, claims)
	signed, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = ParseToken(signed, "test-secret")
	assert.Error(t, err)
}
