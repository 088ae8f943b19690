package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/noah-isme/admission-api/internal/models"
	appErrors "github.com/noah-isme/admission-api/pkg/errors"
)

// IdentityConfig configures access token validation.
type IdentityConfig struct {
	Secret   string
	Issuer   string
	Audience string
	Leeway   time.Duration
}

// IdentityService validates access tokens minted by the identity provider.
type IdentityService struct {
	config IdentityConfig
	parser *jwt.Parser
}

// NewIdentityService constructs the service.
func NewIdentityService(config IdentityConfig) *IdentityService {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if config.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(config.Issuer))
	}
	if config.Audience != "" {
		opts = append(opts, jwt.WithAudience(config.Audience))
	}
	if config.Leeway > 0 {
		opts = append(opts, jwt.WithLeeway(config.Leeway))
	}
	return &IdentityService{config: config, parser: jwt.NewParser(opts...)}
}

// ValidateToken parses tokenString and returns the session identity.
func (s *IdentityService) ValidateToken(tokenString string) (*models.Identity, error) {
	if strings.TrimSpace(tokenString) == "" {
		return nil, appErrors.ErrNotAuthenticated
	}
	if s.config.Secret == "" {
		return nil, appErrors.Clone(appErrors.ErrNotAuthenticated, "token validation is not configured")
	}
	token, err := s.parser.ParseWithClaims(tokenString, &models.IdentityClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.config.Secret), nil
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrNotAuthenticated.Code, appErrors.ErrNotAuthenticated.Status, "invalid token")
	}

	claims, ok := token.Claims.(*models.IdentityClaims)
	if !ok || !token.Valid {
		return nil, appErrors.Clone(appErrors.ErrNotAuthenticated, "invalid token claims")
	}
	identity := claims.Identity()
	if !identity.Authenticated() {
		return nil, appErrors.Clone(appErrors.ErrNotAuthenticated, "token has no subject")
	}
	return identity, nil
}
