package dto

import (
	"time"

	"github.com/noah-isme/admission-api/internal/models"
)

// PersonalDetailsRequest is the personal step payload. Partial input is
// accepted for auto-save; final validation happens in the validation package.
type PersonalDetailsRequest struct {
	FullName    string `json:"fullName" binding:"max=200"`
	FatherName  string `json:"fatherName" binding:"max=200"`
	MotherName  string `json:"motherName" binding:"max=200"`
	DateOfBirth string `json:"dateOfBirth" binding:"max=32"`
	Address     string `json:"address" binding:"max=1000"`
	Category    string `json:"category" binding:"max=64"`
	Gender      string `json:"gender" binding:"omitempty,oneof=Male Female Other"`
}

// ToModel converts the payload into the domain value.
func (r PersonalDetailsRequest) ToModel() models.PersonalDetails {
	return models.PersonalDetails{
		FullName:    r.FullName,
		FatherName:  r.FatherName,
		MotherName:  r.MotherName,
		DateOfBirth: r.DateOfBirth,
		Address:     r.Address,
		Category:    r.Category,
		Gender:      r.Gender,
	}
}

// ClassDetailsRequest is one examination entry.
type ClassDetailsRequest struct {
	Board         string `json:"board" binding:"max=120"`
	YearOfPassing string `json:"yearOfPassing" binding:"max=4"`
	RollNumber    string `json:"rollNumber" binding:"max=64"`
	Stream        string `json:"stream" binding:"max=64"`
	TotalMarks    string `json:"totalMarks" binding:"max=16"`
	MarksObtained string `json:"marksObtained" binding:"max=16"`
}

func (r ClassDetailsRequest) toModel() models.ClassDetails {
	return models.ClassDetails{
		Board:         r.Board,
		YearOfPassing: r.YearOfPassing,
		RollNumber:    r.RollNumber,
		Stream:        r.Stream,
		TotalMarks:    r.TotalMarks,
		MarksObtained: r.MarksObtained,
	}
}

// AcademicDetailsRequest is the academic step payload. Percentages are always
// derived server side.
type AcademicDetailsRequest struct {
	ClassX   ClassDetailsRequest `json:"classX"`
	ClassXII ClassDetailsRequest `json:"classXII"`
}

// ToModel converts the payload into the domain value.
func (r AcademicDetailsRequest) ToModel() models.AcademicDetails {
	return models.AcademicDetails{
		ClassX:   r.ClassX.toModel(),
		ClassXII: r.ClassXII.toModel(),
	}
}

// SubmitRequest confirms submission. Warnings must be acknowledged explicitly.
type SubmitRequest struct {
	AcknowledgeWarnings bool `json:"acknowledgeWarnings"`
}

// ApplicationResponse is the wizard's view of the session.
type ApplicationResponse struct {
	Status          string                    `json:"status"`
	Application     *models.ApplicationRecord `json:"application"`
	OnboardingState models.OnboardingState    `json:"onboardingState"`
}

// ReviewResponse mirrors the review step: blocking errors and soft warnings.
type ReviewResponse struct {
	Application *models.ApplicationRecord `json:"application"`
	Ready       bool                      `json:"ready"`
	Errors      map[string]string         `json:"errors,omitempty"`
	Warnings    []string                  `json:"warnings,omitempty"`
}

// SubmitResult reports the outcome of a submission.
type SubmitResult struct {
	Application      *models.ApplicationRecord `json:"application"`
	AlreadySubmitted bool                      `json:"alreadySubmitted"`
}

// DocumentUploadResponse reports where a document was stored.
type DocumentUploadResponse struct {
	Application *models.ApplicationRecord `json:"application"`
	Kind        models.DocumentKind       `json:"kind"`
	URL         string                    `json:"url"`
	Degraded    bool                      `json:"degraded"`
	UploadedAt  time.Time                 `json:"uploadedAt"`
}
