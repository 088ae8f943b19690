package dto

import "github.com/noah-isme/admission-api/internal/models"

// OnboardingRequest captures the one-time profile details.
type OnboardingRequest struct {
	Gender   string `json:"gender" binding:"max=16"`
	FullName string `json:"fullName" binding:"max=200"`
}

// OnboardingStatusResponse tells the client which capture to show.
type OnboardingStatusResponse struct {
	State         models.OnboardingState `json:"state"`
	RequiresName  bool                   `json:"requiresName"`
	SuggestedName string                 `json:"suggestedName,omitempty"`
}

// OnboardingResult is returned after a successful capture.
type OnboardingResult struct {
	State       models.OnboardingState    `json:"state"`
	Application *models.ApplicationRecord `json:"application"`
}
