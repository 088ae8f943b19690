package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/admission-api/internal/dto"
	"github.com/noah-isme/admission-api/internal/service"
	appErrors "github.com/noah-isme/admission-api/pkg/errors"
	"github.com/noah-isme/admission-api/pkg/response"
)

type onboardingService interface {
	Status(ctx context.Context, session service.OnboardingSession) dto.OnboardingStatusResponse
	Complete(ctx context.Context, session service.OnboardingSession, req dto.OnboardingRequest) (*dto.OnboardingResult, error)
}

// OnboardingHandler serves the one-time profile capture.
type OnboardingHandler struct {
	service onboardingService
}

// NewOnboardingHandler constructs the handler.
func NewOnboardingHandler(service onboardingService) *OnboardingHandler {
	return &OnboardingHandler{service: service}
}

// Status godoc
// @Summary Onboarding state
// @Tags Onboarding
// @Produce json
// @Success 200 {object} response.Envelope{data=dto.OnboardingStatusResponse}
// @Security BearerAuth
// @Router /onboarding [get]
func (h *OnboardingHandler) Status(c *gin.Context) {
	manager, err := sessionFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, h.service.Status(c.Request.Context(), manager))
}

// Complete godoc
// @Summary Complete onboarding
// @Description Gender is always required. Full name is required when the record has none.
// @Tags Onboarding
// @Accept json
// @Produce json
// @Param payload body dto.OnboardingRequest true "Onboarding capture"
// @Success 200 {object} response.Envelope{data=dto.OnboardingResult}
// @Failure 422 {object} response.Envelope
// @Failure 503 {object} response.Envelope
// @Security BearerAuth
// @Router /onboarding [post]
func (h *OnboardingHandler) Complete(c *gin.Context) {
	manager, err := sessionFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.OnboardingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrBadRequest.Code, appErrors.ErrBadRequest.Status, "invalid onboarding payload"))
		return
	}
	result, err := h.service.Complete(c.Request.Context(), manager, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, result)
}
