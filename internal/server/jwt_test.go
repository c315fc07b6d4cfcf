package server

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/resumind/internal/config"
)

func newJWT(secret string) *JWTService {
	return NewJWTService(&config.JWTConfig{Secret: secret, Expiration: time.Hour, Issuer: config.TokenIssuer})
}

func TestJWTService_RoundTrip(t *testing.T) {
	svc := newJWT("secret")
	userID := uuid.New()

	token, err := svc.GenerateToken(userID, true)
	require.NoError(t, err)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, userID, claims.UserID)
	assert.True(t, claims.Guest)
	assert.Equal(t, config.TokenIssuer, claims.Issuer)
	assert.Equal(t, userID.String(), claims.Subject)
	assert.NotEmpty(t, claims.ID)
}

func TestJWTService_Expired(t *testing.T) {
	svc := newJWT("secret")
	token, err := svc.GenerateToken(uuid.New(), false)
	require.NoError(t, err)

	svc.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = svc.ValidateToken(token)
	assert.Error(t, err)
}

func TestJWTService_WrongSecret(t *testing.T) {
	token, err := newJWT("secret").GenerateToken(uuid.New(), false)
	require.NoError(t, err)

	_, err = newJWT("other").ValidateToken(token)
	assert.Error(t, err)
}

func TestJWTService_RejectsOtherAlgorithms(t *testing.T) {
	claims := &Claims{
		UserID: uuid.New(),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    config.TokenIssuer,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = newJWT("secret").ValidateToken(token)
	assert.Error(t, err)
}

func TestJWTService_WrongIssuer(t *testing.T) {
	other := NewJWTService(&config.JWTConfig{Secret: "secret", Expiration: time.Hour, Issuer: "someone-else"})
	token, err := other.GenerateToken(uuid.New(), false)
	require.NoError(t, err)

	_, err = newJWT("secret").ValidateToken(token)
	assert.Error(t, err)
}

func TestJWTService_AsTokenValidator(t *testing.T) {
	svc := newJWT("secret")
	userID := uuid.New()
	token, err := svc.GenerateToken(userID, false)
	require.NoError(t, err)

	getter, err := svc.AsTokenValidator().ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, userID, getter.GetUserID())

	_, err = svc.AsTokenValidator().ValidateToken("not-a-token")
	assert.Error(t, err)
}
