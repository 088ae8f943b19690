package repository

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/xeipuuv/gojsonschema"

	"github.com/noah-isme/admission-api/internal/models"
)

// ErrNotFound is returned when no row matches the lookup.
var ErrNotFound = errors.New("record not found")

// ErrSchemaViolation wraps records rejected by the persisted-layout check.
var ErrSchemaViolation = errors.New("application record violates persisted layout")

//go:embed schema/application.schema.json
var applicationSchemaJSON string

var applicationSchema = mustCompileSchema(applicationSchemaJSON)

func mustCompileSchema(raw string) *gojsonschema.Schema {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(raw))
	if err != nil {
		panic(fmt.Sprintf("compile application schema: %v", err))
	}
	return schema
}

type applicationRow struct {
	ID              string    `db:"id"`
	ApplicationID   string    `db:"application_id"`
	UserID          string    `db:"user_id"`
	PersonalDetails []byte    `db:"personal_details"`
	AcademicDetails []byte    `db:"academic_details"`
	Documents       []byte    `db:"documents"`
	Status          string    `db:"status"`
	CreatedAt       time.Time `db:"created_at"`
	UpdatedAt       time.Time `db:"updated_at"`
}

const applicationColumns = `id, application_id, user_id, personal_details, academic_details, documents, status, created_at, updated_at`

// ApplicationRepository persists one application record per owner.
type ApplicationRepository struct {
	db *sqlx.DB
}

// NewApplicationRepository constructs the repository.
func NewApplicationRepository(db *sqlx.DB) *ApplicationRepository {
	return &ApplicationRepository{db: db}
}

// FetchByOwner returns the owner's record or ErrNotFound.
func (r *ApplicationRepository) FetchByOwner(ctx context.Context, ownerID string) (*models.ApplicationRecord, error) {
	query := `SELECT ` + applicationColumns + ` FROM applications WHERE user_id = $1`
	var row applicationRow
	if err := r.db.GetContext(ctx, &row, query, ownerID); err != nil {
		if isNoRows(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("fetch application: %w", err)
	}
	return row.toModel()
}

// UpsertByOwner writes the full record keyed by owner and returns the stored
// row. The conflict clause never rewrites application_id or created_at, and a
// submitted status is never downgraded.
func (r *ApplicationRepository) UpsertByOwner(ctx context.Context, record *models.ApplicationRecord) (*models.ApplicationRecord, error) {
	if record == nil {
		return nil, fmt.Errorf("upsert application: nil record")
	}
	if err := CheckLayout(record); err != nil {
		return nil, err
	}
	row, err := fromModel(record)
	if err != nil {
		return nil, err
	}
	if row.ID == "" {
		row.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if row.CreatedAt.IsZero() {
		row.CreatedAt = now
	}
	if row.UpdatedAt.IsZero() {
		row.UpdatedAt = now
	}

	query := `INSERT INTO applications (` + applicationColumns + `)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	ON CONFLICT (user_id) DO UPDATE SET
		personal_details = EXCLUDED.personal_details,
		academic_details = EXCLUDED.academic_details,
		documents = EXCLUDED.documents,
		status = CASE WHEN applications.status = 'submitted' THEN applications.status ELSE EXCLUDED.status END,
		updated_at = EXCLUDED.updated_at
	RETURNING ` + applicationColumns

	var stored applicationRow
	if err := r.db.GetContext(ctx, &stored, query,
		row.ID,
		row.ApplicationID,
		row.UserID,
		row.PersonalDetails,
		row.AcademicDetails,
		row.Documents,
		row.Status,
		row.CreatedAt,
		row.UpdatedAt,
	); err != nil {
		return nil, fmt.Errorf("upsert application: %w", err)
	}
	return stored.toModel()
}

// CheckLayout validates record against the persisted JSON layout.
func CheckLayout(record *models.ApplicationRecord) error {
	result, err := applicationSchema.Validate(gojsonschema.NewGoLoader(record))
	if err != nil {
		return fmt.Errorf("validate application layout: %w", err)
	}
	if result.Valid() {
		return nil
	}
	msgs := make([]string, len(result.Errors()))
	for i, desc := range result.Errors() {
		msgs[i] = desc.String()
	}
	return fmt.Errorf("%w: %s", ErrSchemaViolation, strings.Join(msgs, "; "))
}

func fromModel(record *models.ApplicationRecord) (*applicationRow, error) {
	row := &applicationRow{
		ID:            record.ID,
		ApplicationID: record.ApplicationID,
		UserID:        record.OwnerID,
		Status:        string(record.Status),
		CreatedAt:     record.CreatedAt,
		UpdatedAt:     record.UpdatedAt,
	}
	var err error
	if record.PersonalDetails != nil {
		if row.PersonalDetails, err = json.Marshal(record.PersonalDetails); err != nil {
			return nil, fmt.Errorf("encode personal details: %w", err)
		}
	}
	if record.AcademicDetails != nil {
		if row.AcademicDetails, err = json.Marshal(record.AcademicDetails); err != nil {
			return nil, fmt.Errorf("encode academic details: %w", err)
		}
	}
	if record.Documents != nil {
		if row.Documents, err = json.Marshal(record.Documents); err != nil {
			return nil, fmt.Errorf("encode documents: %w", err)
		}
	}
	return row, nil
}

func (row applicationRow) toModel() (*models.ApplicationRecord, error) {
	record := &models.ApplicationRecord{
		ID:            row.ID,
		ApplicationID: row.ApplicationID,
		OwnerID:       row.UserID,
		Status:        models.ApplicationStatus(row.Status),
		CreatedAt:     row.CreatedAt,
		UpdatedAt:     row.UpdatedAt,
	}
	if hasJSON(row.PersonalDetails) {
		var personal models.PersonalDetails
		if err := json.Unmarshal(row.PersonalDetails, &personal); err != nil {
			return nil, fmt.Errorf("decode personal details: %w", err)
		}
		record.PersonalDetails = &personal
	}
	if hasJSON(row.AcademicDetails) {
		var academic models.AcademicDetails
		if err := json.Unmarshal(row.AcademicDetails, &academic); err != nil {
			return nil, fmt.Errorf("decode academic details: %w", err)
		}
		record.AcademicDetails = &academic
	}
	if hasJSON(row.Documents) {
		var documents models.Documents
		if err := json.Unmarshal(row.Documents, &documents); err != nil {
			return nil, fmt.Errorf("decode documents: %w", err)
		}
		record.Documents = documents
	}
	return record, nil
}

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

func hasJSON(raw []byte) bool {
	trimmed := strings.TrimSpace(string(raw))
	return trimmed != "" && trimmed != "null"
}
