package validation

import (
	"strings"

	"github.com/noah-isme/admission-api/internal/models"
)

var documentLabels = map[models.DocumentKind]string{
	models.DocumentClassXMarksheet:   "Class X marksheet",
	models.DocumentClassXIIMarksheet: "Class XII marksheet",
}

// Readiness is the review step's verdict. Errors block submission; warnings
// only need to be acknowledged.
type Readiness struct {
	Errors   FieldErrors `json:"errors,omitempty"`
	Warnings []string    `json:"warnings,omitempty"`
}

// Ready reports whether nothing blocks submission.
func (r Readiness) Ready() bool {
	return r.Errors.Empty()
}

// HasWarnings reports whether the applicant should be asked to confirm.
func (r Readiness) HasWarnings() bool {
	return len(r.Warnings) > 0
}

// CheckReadiness validates every section of record for final submission.
// Missing documents are warnings, never errors.
func CheckReadiness(record *models.ApplicationRecord) Readiness {
	result := Readiness{Errors: FieldErrors{}}
	if record == nil {
		result.Errors["application"] = "Application has not been started"
		return result
	}

	var personal models.PersonalDetails
	if record.PersonalDetails != nil {
		personal = *record.PersonalDetails
	}
	result.Errors.merge("personalDetails.", ValidatePersonal(personal))
	if strings.TrimSpace(personal.Gender) == "" {
		result.Errors["personalDetails.gender"] = "Gender is required"
	}
	if strings.TrimSpace(personal.Category) == "" {
		result.Errors["personalDetails.category"] = "Category is required"
	}

	var academic models.AcademicDetails
	if record.AcademicDetails != nil {
		academic = *record.AcademicDetails
	}
	result.Errors.merge("academicDetails.", ValidateAcademic(academic))

	for _, kind := range models.DocumentKinds {
		if !record.HasDocument(kind) {
			result.Warnings = append(result.Warnings, documentLabels[kind]+" has not been uploaded")
		}
	}
	return result
}
