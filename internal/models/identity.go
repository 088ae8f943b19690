package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Identity is the authenticated session context handed to the lifecycle manager.
type Identity struct {
	OwnerID     string `json:"owner_id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name,omitempty"`
}

// Authenticated reports whether an owner is established.
func (i *Identity) Authenticated() bool {
	return i != nil && i.OwnerID != ""
}

// IdentityClaims mirrors the access token issued by the identity provider.
type IdentityClaims struct {
	Email        string                 `json:"email"`
	UserMetadata map[string]interface{} `json:"user_metadata,omitempty"`
	jwt.RegisteredClaims
}

// Identity converts validated claims into the session identity.
func (c *IdentityClaims) Identity() *Identity {
	if c == nil {
		return nil
	}
	identity := &Identity{OwnerID: c.Subject, Email: c.Email}
	if c.UserMetadata != nil {
		if name, ok := c.UserMetadata["full_name"].(string); ok {
			identity.DisplayName = name
		}
	}
	return identity
}

// UserProfile is the identity provider's profile metadata row.
type UserProfile struct {
	OwnerID     string    `db:"user_id" json:"user_id"`
	DisplayName string    `db:"full_name" json:"full_name"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}
