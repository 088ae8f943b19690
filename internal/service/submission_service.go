package service

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/admission-api/internal/dto"
	"github.com/noah-isme/admission-api/internal/models"
	"github.com/noah-isme/admission-api/internal/validation"
	appErrors "github.com/noah-isme/admission-api/pkg/errors"
	"github.com/noah-isme/admission-api/pkg/jobs"
)

// SubmissionSession is the part of a lifecycle manager submission needs.
type SubmissionSession interface {
	Identity() models.Identity
	Current() *models.ApplicationRecord
	Submit(ctx context.Context) (*models.ApplicationRecord, bool, error)
}

// SubmissionService gates the final submit behind the readiness check.
type SubmissionService struct {
	queue  jobEnqueuer
	logger *zap.Logger
}

// NewSubmissionService constructs the service. A nil queue disables the
// confirmation email.
func NewSubmissionService(queue jobEnqueuer, logger *zap.Logger) *SubmissionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SubmissionService{queue: queue, logger: logger}
}

// Review reports blocking errors and soft warnings for the current record.
func (s *SubmissionService) Review(session SubmissionSession) dto.ReviewResponse {
	record := session.Current()
	readiness := validation.CheckReadiness(record)
	return dto.ReviewResponse{
		Application: record,
		Ready:       readiness.Ready(),
		Errors:      readiness.Errors,
		Warnings:    readiness.Warnings,
	}
}

// Submit moves the record to submitted. Readiness errors block with
// VALIDATION_FAILED; warnings block with SUBMISSION_WARNINGS unless
// acknowledged. A record that is already submitted succeeds unchanged.
func (s *SubmissionService) Submit(ctx context.Context, session SubmissionSession, req dto.SubmitRequest) (*dto.SubmitResult, error) {
	current := session.Current()
	if current == nil {
		return nil, appErrors.ErrNoRecord
	}
	if !current.IsSubmitted() {
		readiness := validation.CheckReadiness(current)
		if !readiness.Ready() {
			return nil, appErrors.Validation(readiness.Errors)
		}
		if readiness.HasWarnings() && !req.AcknowledgeWarnings {
			return nil, appErrors.Clone(appErrors.ErrSubmissionWarnings, strings.Join(readiness.Warnings, "; "))
		}
	}

	record, already, err := session.Submit(ctx)
	if err != nil {
		return nil, err
	}
	if !already {
		s.logger.Info("application submitted",
			zap.String("owner_id", record.OwnerID),
			zap.String("application_id", record.ApplicationID))
		s.confirm(session.Identity(), record)
	}
	return &dto.SubmitResult{Application: record, AlreadySubmitted: already}, nil
}

func (s *SubmissionService) confirm(identity models.Identity, record *models.ApplicationRecord) {
	if s.queue == nil || strings.TrimSpace(identity.Email) == "" {
		return
	}
	payload := SubmissionConfirmation{
		Email:         identity.Email,
		ApplicationID: record.ApplicationID,
		SubmittedAt:   record.UpdatedAt,
	}
	if record.PersonalDetails != nil {
		payload.FullName = record.PersonalDetails.FullName
	}
	if err := s.queue.Enqueue(jobs.NewJob(JobTypeSubmissionConfirmation, payload)); err != nil {
		s.logger.Warn("submission confirmation not queued", zap.String("owner_id", record.OwnerID), zap.Error(err))
	}
}

// SubmissionConfirmation is the job payload for JobTypeSubmissionConfirmation.
type SubmissionConfirmation struct {
	Email         string
	FullName      string
	ApplicationID string
	SubmittedAt   time.Time
}
