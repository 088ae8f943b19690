package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/admission-api/internal/dto"
	"github.com/noah-isme/admission-api/internal/models"
	"github.com/noah-isme/admission-api/internal/repository"
	appErrors "github.com/noah-isme/admission-api/pkg/errors"
	"github.com/noah-isme/admission-api/pkg/jobs"
)

type profileStoreStub struct {
	mu      sync.Mutex
	names   map[string]string
	updates []DisplayNamePayload
	err     error
}

func (p *profileStoreStub) UpdateDisplayName(ctx context.Context, ownerID, name string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.updates = append(p.updates, DisplayNamePayload{OwnerID: ownerID, Name: name})
	return p.err
}

func (p *profileStoreStub) GetByOwner(ctx context.Context, ownerID string) (*models.UserProfile, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	name, ok := p.names[ownerID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &models.UserProfile{OwnerID: ownerID, DisplayName: name}, nil
}

type enqueuerStub struct {
	jobs []jobs.Job
	err  error
}

func (q *enqueuerStub) Enqueue(job jobs.Job) error {
	if q.err != nil {
		return q.err
	}
	q.jobs = append(q.jobs, job)
	return nil
}

func TestOnboardingCompleteCapturesNameAndGender(t *testing.T) {
	store := &applicationStoreStub{}
	manager := newTestManager(store)
	_, err := manager.Load(context.Background())
	require.NoError(t, err)
	require.Equal(t, models.OnboardingNeedsAvatarAndName, manager.OnboardingState())

	queue := &enqueuerStub{}
	svc := NewOnboardingService(&profileStoreStub{}, queue, nil)
	result, err := svc.Complete(context.Background(), manager, dto.OnboardingRequest{Gender: "Female", FullName: "  Asha Rao "})
	require.NoError(t, err)

	assert.Equal(t, models.OnboardingComplete, result.State)
	require.NotNil(t, result.Application.PersonalDetails)
	assert.Equal(t, "Asha Rao", result.Application.PersonalDetails.FullName)
	assert.Equal(t, "Female", result.Application.PersonalDetails.Gender)
	assert.Empty(t, result.Application.PersonalDetails.Category)
	assert.Equal(t, models.ApplicationStatusDraft, result.Application.Status)
	assert.Equal(t, 1, store.upsertCount())
	assert.Equal(t, models.OnboardingComplete, manager.OnboardingState())

	require.Len(t, queue.jobs, 1)
	assert.Equal(t, JobTypeDisplayName, queue.jobs[0].Type)
	assert.Equal(t, DisplayNamePayload{OwnerID: "owner-1", Name: "Asha Rao"}, queue.jobs[0].Payload)
}

func TestOnboardingLeavesCategorySelectable(t *testing.T) {
	store := &applicationStoreStub{}
	manager := newTestManager(store)
	_, err := manager.Load(context.Background())
	require.NoError(t, err)

	svc := NewOnboardingService(nil, nil, nil)
	_, err = svc.Complete(context.Background(), manager, dto.OnboardingRequest{Gender: "Female", FullName: "Asha Rao"})
	require.NoError(t, err)

	record, err := manager.UpdatePersonalDetails(context.Background(), models.PersonalDetails{
		FullName:    "Asha Rao",
		FatherName:  "Ravi Rao",
		MotherName:  "Meera Rao",
		DateOfBirth: "2006-04-12",
		Address:     "12 Lake Road, Pune",
		Category:    "OBC",
	})
	require.NoError(t, err)
	assert.Equal(t, "OBC", record.PersonalDetails.Category)
	assert.Equal(t, models.GenderFemale, record.PersonalDetails.Gender)

	store.mu.Lock()
	persisted := store.record
	store.mu.Unlock()
	require.NotNil(t, persisted)
	assert.Equal(t, "OBC", persisted.PersonalDetails.Category)
}

func TestOnboardingGenderOnlyKeepsName(t *testing.T) {
	store := &applicationStoreStub{record: &models.ApplicationRecord{
		ID:              "row-1",
		ApplicationID:   "APP-7",
		OwnerID:         "owner-1",
		Status:          models.ApplicationStatusDraft,
		PersonalDetails: &models.PersonalDetails{FullName: "Asha Rao", Address: "12 Lake Rd", Category: "OBC"},
	}}
	manager := newTestManager(store)
	_, err := manager.Load(context.Background())
	require.NoError(t, err)
	require.Equal(t, models.OnboardingNeedsAvatarOnly, manager.OnboardingState())

	profiles := &profileStoreStub{}
	queue := &enqueuerStub{}
	svc := NewOnboardingService(profiles, queue, nil)
	result, err := svc.Complete(context.Background(), manager, dto.OnboardingRequest{Gender: "Other", FullName: "Ignored"})
	require.NoError(t, err)

	assert.Equal(t, models.OnboardingComplete, result.State)
	assert.Equal(t, "Asha Rao", result.Application.PersonalDetails.FullName)
	assert.Equal(t, "12 Lake Rd", result.Application.PersonalDetails.Address)
	assert.Equal(t, "OBC", result.Application.PersonalDetails.Category)
	assert.Equal(t, "APP-7", result.Application.ApplicationID)
	assert.Empty(t, queue.jobs)
}

func TestOnboardingValidation(t *testing.T) {
	cases := []struct {
		name  string
		req   dto.OnboardingRequest
		field string
	}{
		{name: "missing gender", req: dto.OnboardingRequest{FullName: "Asha Rao"}, field: "gender"},
		{name: "unknown gender", req: dto.OnboardingRequest{Gender: "Robot", FullName: "Asha Rao"}, field: "gender"},
		{name: "missing name", req: dto.OnboardingRequest{Gender: "Male"}, field: "fullName"},
		{name: "short name", req: dto.OnboardingRequest{Gender: "Male", FullName: " Al "}, field: "fullName"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store := &applicationStoreStub{}
			manager := newTestManager(store)
			svc := NewOnboardingService(nil, nil, nil)

			_, err := svc.Complete(context.Background(), manager, tc.req)
			require.Error(t, err)
			assert.ErrorIs(t, err, appErrors.ErrValidation)
			var appErr *appErrors.Error
			require.True(t, errors.As(err, &appErr))
			assert.Contains(t, appErr.Fields, tc.field)
			assert.Zero(t, store.upsertCount())
			assert.Equal(t, models.OnboardingNeedsAvatarAndName, manager.OnboardingState())
		})
	}
}

func TestOnboardingCompleteIsNoopWhenDone(t *testing.T) {
	store := &applicationStoreStub{record: &models.ApplicationRecord{
		ID:              "row-1",
		ApplicationID:   "APP-1",
		OwnerID:         "owner-1",
		Status:          models.ApplicationStatusDraft,
		PersonalDetails: &models.PersonalDetails{FullName: "Asha Rao", Gender: "Female"},
	}}
	manager := newTestManager(store)
	_, err := manager.Load(context.Background())
	require.NoError(t, err)

	svc := NewOnboardingService(nil, nil, nil)
	result, err := svc.Complete(context.Background(), manager, dto.OnboardingRequest{})
	require.NoError(t, err)
	assert.Equal(t, models.OnboardingComplete, result.State)
	assert.Zero(t, store.upsertCount())
}

func TestOnboardingPropagatesSynchronouslyWithoutQueue(t *testing.T) {
	manager := newTestManager(&applicationStoreStub{})
	profiles := &profileStoreStub{err: errors.New("provider down")}
	svc := NewOnboardingService(profiles, nil, nil)

	_, err := svc.Complete(context.Background(), manager, dto.OnboardingRequest{Gender: "Male", FullName: "Ravi Kumar"})
	require.NoError(t, err, "propagation failures do not fail the capture")
	require.Len(t, profiles.updates, 1)
	assert.Equal(t, "Ravi Kumar", profiles.updates[0].Name)
}

func TestOnboardingSuggestion(t *testing.T) {
	profiles := &profileStoreStub{names: map[string]string{"owner-2": "Meera Iyer", "owner-3": "Student"}}
	svc := NewOnboardingService(profiles, nil, nil)
	ctx := context.Background()

	assert.Equal(t, "Asha Rao", svc.Suggestion(ctx, models.Identity{OwnerID: "owner-1", DisplayName: "Asha Rao"}))
	assert.Equal(t, "Meera Iyer", svc.Suggestion(ctx, models.Identity{OwnerID: "owner-2", DisplayName: "meera@example.com"}))
	assert.Empty(t, svc.Suggestion(ctx, models.Identity{OwnerID: "owner-3"}))
	assert.Empty(t, svc.Suggestion(ctx, models.Identity{OwnerID: "owner-4"}))
}

func TestOnboardingStatus(t *testing.T) {
	manager := NewApplicationManager(models.Identity{OwnerID: "owner-1", DisplayName: "Asha Rao"}, &applicationStoreStub{}, nil, nil, ManagerConfig{})
	_, err := manager.Load(context.Background())
	require.NoError(t, err)

	svc := NewOnboardingService(nil, nil, nil)
	status := svc.Status(context.Background(), manager)
	assert.Equal(t, models.OnboardingNeedsAvatarAndName, status.State)
	assert.True(t, status.RequiresName)
	assert.Equal(t, "Asha Rao", status.SuggestedName)
}

func TestHandleDisplayNameJob(t *testing.T) {
	profiles := &profileStoreStub{}
	svc := NewOnboardingService(profiles, nil, nil)

	err := svc.HandleDisplayNameJob(context.Background(), jobs.NewJob(JobTypeDisplayName, DisplayNamePayload{OwnerID: "owner-1", Name: "Asha Rao"}))
	require.NoError(t, err)
	require.Len(t, profiles.updates, 1)

	err = svc.HandleDisplayNameJob(context.Background(), jobs.NewJob(JobTypeDisplayName, "bad"))
	assert.Error(t, err)
}
