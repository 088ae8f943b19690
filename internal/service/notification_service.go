package service

import (
	"context"
	"fmt"
	"html"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
	"go.uber.org/zap"

	"github.com/noah-isme/admission-api/pkg/jobs"
)

// JobTypeSubmissionConfirmation emails the applicant after a fresh submit.
const JobTypeSubmissionConfirmation = "application.submitted"

// EmailSender is the subset of the SES client used for notifications.
type EmailSender interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

// NotificationService sends applicant emails through SES.
type NotificationService struct {
	sender EmailSender
	from   string
	logger *zap.Logger
}

// NewSESSender builds an SES client from the default AWS credential chain.
func NewSESSender(ctx context.Context, region string) (EmailSender, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}
	return ses.NewFromConfig(cfg), nil
}

// NewNotificationService constructs the service.
func NewNotificationService(sender EmailSender, from string, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{sender: sender, from: from, logger: logger}
}

// HandleSubmissionJob is the queue handler for JobTypeSubmissionConfirmation.
func (s *NotificationService) HandleSubmissionJob(ctx context.Context, job jobs.Job) error {
	payload, ok := job.Payload.(SubmissionConfirmation)
	if !ok {
		return fmt.Errorf("submission job %s: unexpected payload %T", job.ID, job.Payload)
	}
	return s.SendSubmissionConfirmation(ctx, payload)
}

// SendSubmissionConfirmation emails the acknowledgement for a submitted application.
func (s *NotificationService) SendSubmissionConfirmation(ctx context.Context, msg SubmissionConfirmation) error {
	if s.sender == nil {
		return nil
	}
	name := msg.FullName
	if name == "" {
		name = "Applicant"
	}
	subject := fmt.Sprintf("Application %s submitted", msg.ApplicationID)
	text := fmt.Sprintf("Dear %s,\n\nYour application %s was submitted on %s. No further changes can be made.\n",
		name, msg.ApplicationID, msg.SubmittedAt.UTC().Format("02 Jan 2006 15:04 MST"))
	body := fmt.Sprintf("<p>Dear %s,</p><p>Your application <strong>%s</strong> was submitted on %s. No further changes can be made.</p>",
		html.EscapeString(name), html.EscapeString(msg.ApplicationID), msg.SubmittedAt.UTC().Format("02 Jan 2006 15:04 MST"))

	_, err := s.sender.SendEmail(ctx, &ses.SendEmailInput{
		Destination: &types.Destination{ToAddresses: []string{msg.Email}},
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String(subject)},
			Body: &types.Body{
				Text: &types.Content{Data: aws.String(text)},
				Html: &types.Content{Data: aws.String(body)},
			},
		},
		Source: aws.String(s.from),
	})
	if err != nil {
		return fmt.Errorf("send submission confirmation: %w", err)
	}
	s.logger.Info("submission confirmation sent", zap.String("application_id", msg.ApplicationID))
	return nil
}
