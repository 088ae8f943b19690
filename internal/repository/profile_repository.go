package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/admission-api/internal/models"
)

// ProfileRepository writes the identity provider's user metadata.
type ProfileRepository struct {
	db *sqlx.DB
}

// NewProfileRepository constructs the repository.
func NewProfileRepository(db *sqlx.DB) *ProfileRepository {
	return &ProfileRepository{db: db}
}

// UpdateDisplayName stores the owner's display name.
func (r *ProfileRepository) UpdateDisplayName(ctx context.Context, ownerID, name string) error {
	name = strings.TrimSpace(name)
	if ownerID == "" || name == "" {
		return fmt.Errorf("update display name: owner and name required")
	}
	profile := &models.UserProfile{
		OwnerID:     ownerID,
		DisplayName: name,
		UpdatedAt:   time.Now().UTC(),
	}
	const query = `INSERT INTO user_profiles (user_id, full_name, updated_at)
	VALUES (:user_id, :full_name, :updated_at)
	ON CONFLICT (user_id) DO UPDATE SET full_name = EXCLUDED.full_name, updated_at = EXCLUDED.updated_at`
	if _, err := r.db.NamedExecContext(ctx, query, profile); err != nil {
		return fmt.Errorf("update display name: %w", err)
	}
	return nil
}

// GetByOwner returns the stored profile or ErrNotFound.
func (r *ProfileRepository) GetByOwner(ctx context.Context, ownerID string) (*models.UserProfile, error) {
	const query = `SELECT user_id, full_name, updated_at FROM user_profiles WHERE user_id = $1`
	var profile models.UserProfile
	if err := r.db.GetContext(ctx, &profile, query, ownerID); err != nil {
		if isNoRows(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get profile: %w", err)
	}
	return &profile, nil
}
