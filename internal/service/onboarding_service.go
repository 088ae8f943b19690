package service

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/noah-isme/admission-api/internal/dto"
	"github.com/noah-isme/admission-api/internal/models"
	appErrors "github.com/noah-isme/admission-api/pkg/errors"
	"github.com/noah-isme/admission-api/pkg/jobs"
)

// JobTypeDisplayName propagates a captured name to the identity provider.
const JobTypeDisplayName = "profile.display_name"

const minFullNameLength = 3

// placeholderDisplayName is what the identity provider shows before a name is known.
const placeholderDisplayName = "Student"

// DisplayNamePayload is the job payload for JobTypeDisplayName.
type DisplayNamePayload struct {
	OwnerID string
	Name    string
}

// OnboardingSession is the part of a lifecycle manager onboarding needs.
type OnboardingSession interface {
	Identity() models.Identity
	Current() *models.ApplicationRecord
	OnboardingState() models.OnboardingState
	UpdatePersonalDetails(ctx context.Context, details models.PersonalDetails) (*models.ApplicationRecord, error)
}

type profileStore interface {
	UpdateDisplayName(ctx context.Context, ownerID, name string) error
	GetByOwner(ctx context.Context, ownerID string) (*models.UserProfile, error)
}

type jobEnqueuer interface {
	Enqueue(job jobs.Job) error
}

// OnboardingService runs the one-time gender and name capture.
type OnboardingService struct {
	profiles profileStore
	queue    jobEnqueuer
	logger   *zap.Logger
}

// NewOnboardingService constructs the service. A nil queue makes display-name
// propagation synchronous.
func NewOnboardingService(profiles profileStore, queue jobEnqueuer, logger *zap.Logger) *OnboardingService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OnboardingService{profiles: profiles, queue: queue, logger: logger}
}

// Status reports which capture the client must show.
func (s *OnboardingService) Status(ctx context.Context, session OnboardingSession) dto.OnboardingStatusResponse {
	state := session.OnboardingState()
	resp := dto.OnboardingStatusResponse{State: state, RequiresName: state.RequiresName()}
	if state.RequiresName() {
		resp.SuggestedName = s.Suggestion(ctx, session.Identity())
	}
	return resp
}

// Complete validates and persists the capture, merging into the personal
// section. A failed validation leaves the state untouched.
func (s *OnboardingService) Complete(ctx context.Context, session OnboardingSession, req dto.OnboardingRequest) (*dto.OnboardingResult, error) {
	state := session.OnboardingState()
	if state == models.OnboardingComplete {
		return &dto.OnboardingResult{State: state, Application: session.Current()}, nil
	}

	fields := map[string]string{}
	gender := strings.TrimSpace(req.Gender)
	switch gender {
	case models.GenderMale, models.GenderFemale, models.GenderOther:
	case "":
		fields["gender"] = "Gender is required"
	default:
		fields["gender"] = "Gender must be Male, Female or Other"
	}
	name := strings.TrimSpace(req.FullName)
	if state.RequiresName() {
		switch {
		case name == "":
			fields["fullName"] = "Full name is required"
		case utf8.RuneCountInString(name) < minFullNameLength:
			fields["fullName"] = fmt.Sprintf("Full name must be at least %d characters", minFullNameLength)
		}
	}
	if len(fields) > 0 {
		return nil, appErrors.Validation(fields)
	}

	details := models.PersonalDetails{}
	if current := session.Current(); current != nil && current.PersonalDetails != nil {
		details = *current.PersonalDetails
	}
	details.Gender = gender
	if state.RequiresName() {
		details.FullName = name
	}

	record, err := session.UpdatePersonalDetails(ctx, details)
	if err != nil {
		return nil, err
	}

	identity := session.Identity()
	if state.RequiresName() {
		s.propagateDisplayName(ctx, identity.OwnerID, name)
	}
	s.logger.Info("onboarding completed", zap.String("owner_id", identity.OwnerID), zap.Bool("name_captured", state.RequiresName()))
	return &dto.OnboardingResult{State: models.DeriveOnboardingState(record), Application: record}, nil
}

// Suggestion offers the provider's display name as a pre-fill. It is never
// used to decide the onboarding state.
func (s *OnboardingService) Suggestion(ctx context.Context, identity models.Identity) string {
	if name := usableDisplayName(identity.DisplayName); name != "" {
		return name
	}
	if s.profiles == nil || identity.OwnerID == "" {
		return ""
	}
	profile, err := s.profiles.GetByOwner(ctx, identity.OwnerID)
	if err != nil {
		return ""
	}
	return usableDisplayName(profile.DisplayName)
}

// HandleDisplayNameJob is the queue handler for JobTypeDisplayName.
func (s *OnboardingService) HandleDisplayNameJob(ctx context.Context, job jobs.Job) error {
	payload, ok := job.Payload.(DisplayNamePayload)
	if !ok {
		return fmt.Errorf("display name job %s: unexpected payload %T", job.ID, job.Payload)
	}
	if s.profiles == nil {
		return nil
	}
	return s.profiles.UpdateDisplayName(ctx, payload.OwnerID, payload.Name)
}

func (s *OnboardingService) propagateDisplayName(ctx context.Context, ownerID, name string) {
	if s.queue == nil {
		if s.profiles == nil {
			return
		}
		if err := s.profiles.UpdateDisplayName(ctx, ownerID, name); err != nil {
			s.logger.Warn("display name update failed", zap.String("owner_id", ownerID), zap.Error(err))
		}
		return
	}
	job := jobs.NewJob(JobTypeDisplayName, DisplayNamePayload{OwnerID: ownerID, Name: name})
	if err := s.queue.Enqueue(job); err != nil {
		s.logger.Warn("display name update not queued", zap.String("owner_id", ownerID), zap.Error(err))
	}
}

func usableDisplayName(raw string) string {
	name := strings.TrimSpace(raw)
	if name == "" || strings.Contains(name, "@") || strings.EqualFold(name, placeholderDisplayName) {
		return ""
	}
	return name
}
