package identity_test

import (
	"testing"
	"time"

	"tasktrack/backend/internal/identity"

	"github.com/gofrs/uuid"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "verifier-secret"

func sign(t *testing.T, key string, claims jwt.MapClaims) string {
	t.Helper()
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(key))
	require.NoError(t, err)
	return signed
}

func TestVerifyTokenExtractsClaims(t *testing.T) {
	verifier := identity.NewJWTVerifier(secret)
	userID := uuid.Must(uuid.NewV4())

	token := sign(t, secret, jwt.MapClaims{
		"sub":   userID.String(),
		"email": "ada@example.com",
		"user_metadata": map[string]interface{}{
			"full_name": "Ada Lovelace",
		},
		"exp": time.Now().Add(time.Hour).Unix(),
	})

	claims, err := verifier.VerifyToken(token)
	require.NoError(t, err)
	assert.Equal(t, userID, claims.UserID)
	assert.Equal(t, "ada@example.com", claims.Email)
	assert.Equal(t, "Ada Lovelace", claims.FullName)
}

func TestVerifyTokenFullNameFallback(t *testing.T) {
	verifier := identity.NewJWTVerifier(secret)

	token := sign(t, secret, jwt.MapClaims{
		"sub":       uuid.Must(uuid.NewV4()).String(),
		"full_name": "Flat Name",
		"exp":       time.Now().Add(time.Hour).Unix(),
	})

	claims, err := verifier.VerifyToken(token)
	require.NoError(t, err)
	assert.Equal(t, "Flat Name", claims.FullName)
}

func TestVerifyTokenRejectsBadTokens(t *testing.T) {
	verifier := identity.NewJWTVerifier(secret)
	validSub := uuid.Must(uuid.NewV4()).String()

	cases := map[string]string{
		"garbage":         "not.a.token",
		"wrong signature": sign(t, "other-secret", jwt.MapClaims{"sub": validSub, "exp": time.Now().Add(time.Hour).Unix()}),
		"expired":         sign(t, secret, jwt.MapClaims{"sub": validSub, "exp": time.Now().Add(-time.Hour).Unix()}),
		"missing sub":     sign(t, secret, jwt.MapClaims{"exp": time.Now().Add(time.Hour).Unix()}),
		"non-uuid sub":    sign(t, secret, jwt.MapClaims{"sub": "user-42", "exp": time.Now().Add(time.Hour).Unix()}),
	}

	for name, token := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := verifier.VerifyToken(token)
			assert.ErrorIs(t, err, identity.ErrInvalidToken)
		})
	}
}
