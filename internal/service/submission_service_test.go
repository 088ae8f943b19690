package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/admission-api/internal/dto"
	"github.com/noah-isme/admission-api/internal/models"
	appErrors "github.com/noah-isme/admission-api/pkg/errors"
)

func completeDraft(withDocuments bool) *models.ApplicationRecord {
	record := &models.ApplicationRecord{
		ID:            "row-1",
		ApplicationID: "APP-42",
		OwnerID:       "owner-1",
		Status:        models.ApplicationStatusDraft,
		PersonalDetails: &models.PersonalDetails{
			FullName:    "Asha Rao",
			FatherName:  "Ravi Rao",
			MotherName:  "Meera Rao",
			DateOfBirth: "2006-04-12",
			Address:     "12 Lake Road, Pune",
			Category:    models.DefaultCategory,
			Gender:      models.GenderFemale,
		},
		AcademicDetails: &models.AcademicDetails{
			ClassX:   models.ClassDetails{Board: "CBSE", YearOfPassing: "2021", RollNumber: "X-1001", TotalMarks: "500", MarksObtained: "450"},
			ClassXII: models.ClassDetails{Board: "CBSE", YearOfPassing: "2023", RollNumber: "XII-2002", Stream: "Science", TotalMarks: "500", MarksObtained: "420"},
		},
	}
	if withDocuments {
		x, xii := "https://blob/x.pdf", "https://blob/xii.pdf"
		record.Documents = models.Documents{
			models.DocumentClassXMarksheet:   &x,
			models.DocumentClassXIIMarksheet: &xii,
		}
	}
	return record
}

func loadedManager(t *testing.T, store *applicationStoreStub) *ApplicationManager {
	t.Helper()
	manager := newTestManager(store)
	_, err := manager.Load(context.Background())
	require.NoError(t, err)
	return manager
}

func TestSubmitCompleteApplication(t *testing.T) {
	store := &applicationStoreStub{record: completeDraft(true)}
	manager := loadedManager(t, store)
	queue := &enqueuerStub{}
	svc := NewSubmissionService(queue, nil)

	result, err := svc.Submit(context.Background(), manager, dto.SubmitRequest{})
	require.NoError(t, err)
	assert.False(t, result.AlreadySubmitted)
	assert.Equal(t, models.ApplicationStatusSubmitted, result.Application.Status)
	assert.Equal(t, 1, store.upsertCount())

	require.Len(t, queue.jobs, 1)
	assert.Equal(t, JobTypeSubmissionConfirmation, queue.jobs[0].Type)
	confirmation := queue.jobs[0].Payload.(SubmissionConfirmation)
	assert.Equal(t, "asha@example.com", confirmation.Email)
	assert.Equal(t, "APP-42", confirmation.ApplicationID)
	assert.Equal(t, "Asha Rao", confirmation.FullName)

	again, err := svc.Submit(context.Background(), manager, dto.SubmitRequest{})
	require.NoError(t, err)
	assert.True(t, again.AlreadySubmitted)
	assert.Equal(t, 1, store.upsertCount())
	assert.Len(t, queue.jobs, 1)
}

func TestSubmitBlockedByReadinessErrors(t *testing.T) {
	record := completeDraft(true)
	record.AcademicDetails.ClassX.MarksObtained = "550"
	store := &applicationStoreStub{record: record}
	manager := loadedManager(t, store)

	_, err := NewSubmissionService(nil, nil).Submit(context.Background(), manager, dto.SubmitRequest{AcknowledgeWarnings: true})
	require.Error(t, err)
	assert.ErrorIs(t, err, appErrors.ErrValidation)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Contains(t, appErr.Fields, "academicDetails.classX.marksObtained")
	assert.Zero(t, store.upsertCount())
	assert.Equal(t, models.ApplicationStatusDraft, manager.Current().Status)
}

func TestSubmitRequiresWarningAcknowledgement(t *testing.T) {
	store := &applicationStoreStub{record: completeDraft(false)}
	manager := loadedManager(t, store)
	svc := NewSubmissionService(nil, nil)

	_, err := svc.Submit(context.Background(), manager, dto.SubmitRequest{})
	assert.ErrorIs(t, err, appErrors.ErrSubmissionWarnings)
	assert.Contains(t, err.Error(), "Class X marksheet has not been uploaded")
	assert.Zero(t, store.upsertCount())

	result, err := svc.Submit(context.Background(), manager, dto.SubmitRequest{AcknowledgeWarnings: true})
	require.NoError(t, err)
	assert.Equal(t, models.ApplicationStatusSubmitted, result.Application.Status)
}

func TestSubmitWithoutRecord(t *testing.T) {
	manager := loadedManager(t, &applicationStoreStub{})
	_, err := NewSubmissionService(nil, nil).Submit(context.Background(), manager, dto.SubmitRequest{})
	assert.ErrorIs(t, err, appErrors.ErrNoRecord)
}

func TestReview(t *testing.T) {
	manager := loadedManager(t, &applicationStoreStub{record: completeDraft(false)})
	review := NewSubmissionService(nil, nil).Review(manager)
	assert.True(t, review.Ready)
	assert.Empty(t, review.Errors)
	assert.Len(t, review.Warnings, 2)

	empty := NewSubmissionService(nil, nil).Review(loadedManager(t, &applicationStoreStub{}))
	assert.False(t, empty.Ready)
	assert.NotEmpty(t, empty.Errors)
}
