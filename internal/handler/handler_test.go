package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/admission-api/internal/middleware"
	"github.com/noah-isme/admission-api/internal/models"
	"github.com/noah-isme/admission-api/internal/repository"
	"github.com/noah-isme/admission-api/internal/service"
	appErrors "github.com/noah-isme/admission-api/pkg/errors"
)

type memoryStore struct {
	mu      sync.Mutex
	record  *models.ApplicationRecord
	upserts int
}

func (s *memoryStore) FetchByOwner(ctx context.Context, ownerID string) (*models.ApplicationRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.record == nil {
		return nil, repository.ErrNotFound
	}
	return s.record.Clone(), nil
}

func (s *memoryStore) UpsertByOwner(ctx context.Context, record *models.ApplicationRecord) (*models.ApplicationRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.upserts++
	s.record = record.Clone()
	if s.record.ID == "" {
		s.record.ID = "row-1"
	}
	return s.record.Clone(), nil
}

func (s *memoryStore) saved() *models.ApplicationRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.record
}

type envelope struct {
	Data  json.RawMessage  `json:"data"`
	Error *appErrors.Error `json:"error"`
}

func newSession(t *testing.T, store *memoryStore) *service.ApplicationManager {
	t.Helper()
	identity := models.Identity{OwnerID: "owner-1", Email: "asha@example.com"}
	manager := service.NewApplicationManager(identity, store, nil, nil, service.ManagerConfig{
		Clock: func() time.Time { return time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC) },
		NewID: func() string { return "APP-7" },
	})
	_, err := manager.Load(context.Background())
	require.NoError(t, err)
	return manager
}

func newGinContext(method, target string, body []byte, manager *service.ApplicationManager) (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(method, target, bytes.NewReader(body))
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.Request = req
	if manager != nil {
		c.Set(middleware.ContextSessionKey, manager)
	}
	return c, w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, dest interface{}) *appErrors.Error {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	if dest != nil && len(env.Data) > 0 {
		require.NoError(t, json.Unmarshal(env.Data, dest))
	}
	return env.Error
}

func submittableRecord() *models.ApplicationRecord {
	x, xii := "/api/v1/documents/blob?token=x", "/api/v1/documents/blob?token=xii"
	return &models.ApplicationRecord{
		ID:            "row-1",
		ApplicationID: "APP-7",
		OwnerID:       "owner-1",
		Status:        models.ApplicationStatusDraft,
		PersonalDetails: &models.PersonalDetails{
			FullName: "Asha Rao", FatherName: "Ravi Rao", MotherName: "Meera Rao",
			DateOfBirth: "2006-04-12", Address: "12 Lake Road, Pune",
			Category: models.DefaultCategory, Gender: models.GenderFemale,
		},
		AcademicDetails: &models.AcademicDetails{
			ClassX:   models.ClassDetails{Board: "CBSE", YearOfPassing: "2021", RollNumber: "X-1001", TotalMarks: "500", MarksObtained: "450"},
			ClassXII: models.ClassDetails{Board: "CBSE", YearOfPassing: "2023", RollNumber: "XII-2002", Stream: "Science", TotalMarks: "500", MarksObtained: "420"},
		},
		Documents: models.Documents{
			models.DocumentClassXMarksheet:   &x,
			models.DocumentClassXIIMarksheet: &xii,
		},
	}
}
