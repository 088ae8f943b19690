package handler

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/admission-api/internal/dto"
	"github.com/noah-isme/admission-api/internal/service"
	"github.com/noah-isme/admission-api/internal/validation"
	appErrors "github.com/noah-isme/admission-api/pkg/errors"
	"github.com/noah-isme/admission-api/pkg/response"
)

type submissionService interface {
	Review(session service.SubmissionSession) dto.ReviewResponse
	Submit(ctx context.Context, session service.SubmissionSession, req dto.SubmitRequest) (*dto.SubmitResult, error)
}

type receiptService interface {
	Generate(session service.ReceiptSession) (*service.Receipt, error)
}

// ApplicationHandler exposes the wizard's application endpoints.
type ApplicationHandler struct {
	submissions submissionService
	receipts    receiptService
}

// NewApplicationHandler constructs the handler.
func NewApplicationHandler(submissions submissionService, receipts receiptService) *ApplicationHandler {
	return &ApplicationHandler{submissions: submissions, receipts: receipts}
}

// Get godoc
// @Summary Current application
// @Description Returns the owner's record (null before the first save), the session status and the onboarding state.
// @Tags Application
// @Produce json
// @Success 200 {object} response.Envelope{data=dto.ApplicationResponse}
// @Failure 401 {object} response.Envelope
// @Failure 503 {object} response.Envelope
// @Security BearerAuth
// @Router /application [get]
func (h *ApplicationHandler) Get(c *gin.Context) {
	manager, err := sessionFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, applicationView(manager))
}

// Refresh godoc
// @Summary Reload the application from the store
// @Tags Application
// @Produce json
// @Success 200 {object} response.Envelope{data=dto.ApplicationResponse}
// @Failure 503 {object} response.Envelope
// @Security BearerAuth
// @Router /application/refresh [post]
func (h *ApplicationHandler) Refresh(c *gin.Context) {
	manager, err := sessionFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	if _, err := manager.Refresh(c.Request.Context()); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, applicationView(manager))
}

// UpdatePersonalDetails godoc
// @Summary Save the personal step
// @Description Auto-save accepts partial input. With final=true every required field is checked first.
// @Tags Application
// @Accept json
// @Produce json
// @Param final query bool false "Validate the whole section before saving"
// @Param payload body dto.PersonalDetailsRequest true "Personal details"
// @Success 200 {object} response.Envelope{data=models.ApplicationRecord}
// @Failure 409 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Failure 503 {object} response.Envelope
// @Security BearerAuth
// @Router /application/personal-details [put]
func (h *ApplicationHandler) UpdatePersonalDetails(c *gin.Context) {
	manager, err := sessionFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.PersonalDetailsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrBadRequest.Code, appErrors.ErrBadRequest.Status, "invalid personal details payload"))
		return
	}
	details := req.ToModel()
	if queryBool(c, "final") {
		if errs := validation.ValidatePersonal(details); !errs.Empty() {
			response.Error(c, appErrors.Validation(errs))
			return
		}
	}
	record, err := manager.UpdatePersonalDetails(c.Request.Context(), details)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, record)
}

// UpdateAcademicDetails godoc
// @Summary Save the academic step
// @Description Percentages are derived server side. Marks obtained above total marks are always rejected.
// @Tags Application
// @Accept json
// @Produce json
// @Param final query bool false "Validate the whole section before saving"
// @Param payload body dto.AcademicDetailsRequest true "Academic details"
// @Success 200 {object} response.Envelope{data=models.ApplicationRecord}
// @Failure 409 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Failure 503 {object} response.Envelope
// @Security BearerAuth
// @Router /application/academic-details [put]
func (h *ApplicationHandler) UpdateAcademicDetails(c *gin.Context) {
	manager, err := sessionFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.AcademicDetailsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrBadRequest.Code, appErrors.ErrBadRequest.Status, "invalid academic details payload"))
		return
	}
	details := req.ToModel()
	errs := validation.CheckMarks(details)
	if queryBool(c, "final") {
		errs = validation.ValidateAcademic(details)
	}
	if !errs.Empty() {
		response.Error(c, appErrors.Validation(errs))
		return
	}
	record, err := manager.UpdateAcademicDetails(c.Request.Context(), details)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, record)
}

// SaveDraft godoc
// @Summary Persist the current record unchanged
// @Tags Application
// @Produce json
// @Success 200 {object} response.Envelope{data=models.ApplicationRecord}
// @Failure 404 {object} response.Envelope
// @Failure 503 {object} response.Envelope
// @Security BearerAuth
// @Router /application/draft [post]
func (h *ApplicationHandler) SaveDraft(c *gin.Context) {
	manager, err := sessionFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	record, err := manager.SaveDraft(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, record)
}

// Review godoc
// @Summary Submission readiness
// @Tags Application
// @Produce json
// @Success 200 {object} response.Envelope{data=dto.ReviewResponse}
// @Security BearerAuth
// @Router /application/review [get]
func (h *ApplicationHandler) Review(c *gin.Context) {
	manager, err := sessionFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, h.submissions.Review(manager))
}

// Submit godoc
// @Summary Submit the application
// @Description Blocking errors return 422. Missing documents return 409 unless acknowledgeWarnings is set. Submitting twice succeeds.
// @Tags Application
// @Accept json
// @Produce json
// @Param payload body dto.SubmitRequest false "Submission options"
// @Success 200 {object} response.Envelope{data=dto.SubmitResult}
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Failure 503 {object} response.Envelope
// @Security BearerAuth
// @Router /application/submit [post]
func (h *ApplicationHandler) Submit(c *gin.Context) {
	manager, err := sessionFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.SubmitRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrBadRequest.Code, appErrors.ErrBadRequest.Status, "invalid submit payload"))
			return
		}
	}
	result, err := h.submissions.Submit(c.Request.Context(), manager, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, result)
}

// Receipt godoc
// @Summary Download the submission acknowledgement
// @Tags Application
// @Produce application/pdf
// @Success 200 {file} binary
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /application/receipt [get]
func (h *ApplicationHandler) Receipt(c *gin.Context) {
	manager, err := sessionFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	receipt, err := h.receipts.Generate(manager)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", receipt.Filename))
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, "application/pdf", receipt.Content)
}

func applicationView(manager *service.ApplicationManager) dto.ApplicationResponse {
	return dto.ApplicationResponse{
		Status:          string(manager.Status()),
		Application:     manager.Current(),
		OnboardingState: manager.OnboardingState(),
	}
}
