package service

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/admission-api/internal/models"
	appErrors "github.com/noah-isme/admission-api/pkg/errors"
)

func signIdentityToken(t *testing.T, method jwt.SigningMethod, secret string, claims *models.IdentityClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(method, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func identityClaims(subject string, expiresIn time.Duration) *models.IdentityClaims {
	now := time.Now()
	return &models.IdentityClaims{
		Email:        "asha@example.com",
		UserMetadata: map[string]interface{}{"full_name": "Asha Rao"},
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    "identity",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(expiresIn)),
		},
	}
}

func TestIdentityServiceValidateToken(t *testing.T) {
	svc := NewIdentityService(IdentityConfig{Secret: "secret", Issuer: "identity"})

	token := signIdentityToken(t, jwt.SigningMethodHS256, "secret", identityClaims("owner-1", time.Hour))
	identity, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "owner-1", identity.OwnerID)
	assert.Equal(t, "asha@example.com", identity.Email)
	assert.Equal(t, "Asha Rao", identity.DisplayName)
}

func TestIdentityServiceRejectsInvalidTokens(t *testing.T) {
	svc := NewIdentityService(IdentityConfig{Secret: "secret", Issuer: "identity"})

	cases := map[string]string{
		"empty":        "",
		"garbage":      "not-a-token",
		"wrong secret": signIdentityToken(t, jwt.SigningMethodHS256, "other", identityClaims("owner-1", time.Hour)),
		"wrong alg":    signIdentityToken(t, jwt.SigningMethodHS384, "secret", identityClaims("owner-1", time.Hour)),
		"expired":      signIdentityToken(t, jwt.SigningMethodHS256, "secret", identityClaims("owner-1", -time.Minute)),
		"no subject":   signIdentityToken(t, jwt.SigningMethodHS256, "secret", identityClaims("", time.Hour)),
	}
	for name, token := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.ValidateToken(token)
			assert.ErrorIs(t, err, appErrors.ErrNotAuthenticated)
		})
	}

	claims := identityClaims("owner-1", time.Hour)
	claims.Issuer = "elsewhere"
	_, err := svc.ValidateToken(signIdentityToken(t, jwt.SigningMethodHS256, "secret", claims))
	assert.ErrorIs(t, err, appErrors.ErrNotAuthenticated)
}
