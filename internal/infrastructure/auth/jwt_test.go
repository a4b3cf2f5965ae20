package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erp/governance/internal/infrastructure/config"
)

func testJWTService() *JWTService {
	return NewJWTService(config.JWTConfig{
		Secret:                "test-secret-key-for-unit-tests",
		AccessTokenExpiration: 15 * time.Minute,
		Issuer:                "governance-test",
	})
}

func TestGenerateAccessToken(t *testing.T) {
	service := testJWTService()
	tenantID := uuid.NewString()

	token, expiresAt, err := service.GenerateAccessToken(tenantID, "key-1")
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.WithinDuration(t, time.Now().Add(15*time.Minute), expiresAt, 5*time.Second)
}

func TestValidateAccessToken(t *testing.T) {
	service := testJWTService()
	tenantID := uuid.NewString()

	token, _, err := service.GenerateAccessToken(tenantID, "key-1")
	require.NoError(t, err)

	claims, err := service.ValidateAccessToken(token)
	require.NoError(t, err)
	assert.Equal(t, tenantID, claims.TenantID)
	assert.Equal(t, "key-1", claims.APIKeyID)
	assert.Equal(t, "governance-test", claims.Issuer)
	assert.NotEmpty(t, claims.ID)

	parsed, err := claims.GetTenantUUID()
	require.NoError(t, err)
	assert.Equal(t, tenantID, parsed.String())
}

func TestValidateAccessToken_InvalidToken(t *testing.T) {
	service := testJWTService()

	_, err := service.ValidateAccessToken("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateAccessToken_WrongSecret(t *testing.T) {
	service := testJWTService()
	other := NewJWTService(config.JWTConfig{
		Secret:                "a-different-secret",
		AccessTokenExpiration: 15 * time.Minute,
		Issuer:                "governance-test",
	})

	token, _, err := other.GenerateAccessToken(uuid.NewString(), "")
	require.NoError(t, err)

	_, err = service.ValidateAccessToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateAccessToken_WrongIssuer(t *testing.T) {
	service := testJWTService()
	other := NewJWTService(config.JWTConfig{
		Secret:                "test-secret-key-for-unit-tests",
		AccessTokenExpiration: 15 * time.Minute,
		Issuer:                "someone-else",
	})

	token, _, err := other.GenerateAccessToken(uuid.NewString(), "")
	require.NoError(t, err)

	_, err = service.ValidateAccessToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateAccessToken_Expired(t *testing.T) {
	service := testJWTService()

	now := time.Now().Add(-time.Hour)
	claims := &Claims{
		TenantID: uuid.NewString(),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "governance-test",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Minute)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte("test-secret-key-for-unit-tests"))
	require.NoError(t, err)

	_, err = service.ValidateAccessToken(signed)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestValidateAccessToken_MissingTenant(t *testing.T) {
	service := testJWTService()

	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "governance-test",
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte("test-secret-key-for-unit-tests"))
	require.NoError(t, err)

	_, err = service.ValidateAccessToken(signed)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
