package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/admission-api/internal/models"
	"github.com/noah-isme/admission-api/internal/service"
	appErrors "github.com/noah-isme/admission-api/pkg/errors"
	"github.com/noah-isme/admission-api/pkg/logger"
	"github.com/noah-isme/admission-api/pkg/response"
)

const (
	// ContextIdentityKey is the gin context key storing *models.Identity.
	ContextIdentityKey = "identity"
	// ContextSessionKey is the gin context key storing the owner's *service.ApplicationManager.
	ContextSessionKey = "applicationSession"
)

type tokenValidator interface {
	ValidateToken(token string) (*models.Identity, error)
}

type sessionProvider interface {
	Acquire(ctx context.Context, identity *models.Identity) (*service.ApplicationManager, error)
}

// Identity protects routes by requiring a valid access token.
func Identity(validator tokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			response.Abort(c, appErrors.ErrNotAuthenticated)
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			response.Abort(c, appErrors.Clone(appErrors.ErrNotAuthenticated, "invalid authorization header"))
			return
		}

		identity, err := validator.ValidateToken(strings.TrimSpace(parts[1]))
		if err != nil {
			response.Abort(c, err)
			return
		}

		c.Set(ContextIdentityKey, identity)
		c.Set(logger.ContextOwnerKey, identity.OwnerID)
		c.Next()
	}
}

// Session attaches the owner's lifecycle manager, loading the record on first
// use. Must run after Identity.
func Session(sessions sessionProvider) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity := IdentityFrom(c)
		if identity == nil {
			response.Abort(c, appErrors.ErrNotAuthenticated)
			return
		}
		manager, err := sessions.Acquire(c.Request.Context(), identity)
		if err != nil {
			response.Abort(c, err)
			return
		}
		c.Set(ContextSessionKey, manager)
		c.Next()
	}
}

// IdentityFrom returns the identity attached by Identity, or nil.
func IdentityFrom(c *gin.Context) *models.Identity {
	value, exists := c.Get(ContextIdentityKey)
	if !exists {
		return nil
	}
	identity, ok := value.(*models.Identity)
	if !ok {
		return nil
	}
	return identity
}

// SessionFrom returns the manager attached by Session, or nil.
func SessionFrom(c *gin.Context) *service.ApplicationManager {
	value, exists := c.Get(ContextSessionKey)
	if !exists {
		return nil
	}
	manager, ok := value.(*service.ApplicationManager)
	if !ok {
		return nil
	}
	return manager
}
