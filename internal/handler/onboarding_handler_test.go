package handler

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/admission-api/internal/dto"
	"github.com/noah-isme/admission-api/internal/models"
	"github.com/noah-isme/admission-api/internal/service"
)

func TestOnboardingHandlerStatus(t *testing.T) {
	manager := newSession(t, &memoryStore{})
	c, w := newGinContext(http.MethodGet, "/onboarding", nil, manager)

	NewOnboardingHandler(service.NewOnboardingService(nil, nil, nil)).Status(c)

	require.Equal(t, http.StatusOK, w.Code)
	var status dto.OnboardingStatusResponse
	require.Nil(t, decode(t, w, &status))
	assert.Equal(t, models.OnboardingNeedsAvatarAndName, status.State)
	assert.True(t, status.RequiresName)
}

func TestOnboardingHandlerComplete(t *testing.T) {
	store := &memoryStore{}
	manager := newSession(t, store)
	handler := NewOnboardingHandler(service.NewOnboardingService(nil, nil, nil))

	c, w := newGinContext(http.MethodPost, "/onboarding", []byte(`{"gender":"Unknown","fullName":"As"}`), manager)
	handler.Complete(c)
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	appErr := decode(t, w, nil)
	assert.Contains(t, appErr.Fields, "gender")
	assert.Contains(t, appErr.Fields, "fullName")
	assert.Zero(t, store.upserts)

	c, w = newGinContext(http.MethodPost, "/onboarding", []byte(`{"gender":"Female","fullName":"Asha Rao"}`), manager)
	handler.Complete(c)
	require.Equal(t, http.StatusOK, w.Code)
	var result dto.OnboardingResult
	require.Nil(t, decode(t, w, &result))
	assert.Equal(t, models.OnboardingComplete, result.State)
	assert.Equal(t, "Asha Rao", store.saved().PersonalDetails.FullName)
	assert.Empty(t, store.saved().PersonalDetails.Category)
}

func TestOnboardingHandlerInvalidBody(t *testing.T) {
	manager := newSession(t, &memoryStore{})
	c, w := newGinContext(http.MethodPost, "/onboarding", []byte(`{`), manager)
	NewOnboardingHandler(service.NewOnboardingService(nil, nil, nil)).Complete(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
