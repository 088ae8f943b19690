package models

import (
	"errors"
	"math"
	"strconv"
	"strings"
	"time"
)

// ApplicationStatus captures the record lifecycle. It only ever moves forward.
type ApplicationStatus string

const (
	ApplicationStatusDraft     ApplicationStatus = "draft"
	ApplicationStatusSubmitted ApplicationStatus = "submitted"
)

// DocumentKind enumerates the supporting documents an application carries.
type DocumentKind string

const (
	DocumentClassXMarksheet   DocumentKind = "classXMarksheet"
	DocumentClassXIIMarksheet DocumentKind = "classXIIMarksheet"
)

// DocumentKinds lists every accepted document kind in display order.
var DocumentKinds = []DocumentKind{DocumentClassXMarksheet, DocumentClassXIIMarksheet}

// Valid reports whether k is one of the accepted document kinds.
func (k DocumentKind) Valid() bool {
	for _, kind := range DocumentKinds {
		if kind == k {
			return true
		}
	}
	return false
}

// DefaultCategory is the category the wizard preselects on the personal step.
const DefaultCategory = "General"

// ErrRecordSubmitted is returned by the transforms once the record is submitted.
var ErrRecordSubmitted = errors.New("application record already submitted")

// PersonalDetails holds the applicant's personal section.
type PersonalDetails struct {
	FullName    string `json:"fullName"`
	FatherName  string `json:"fatherName"`
	MotherName  string `json:"motherName"`
	DateOfBirth string `json:"dateOfBirth"`
	Address     string `json:"address"`
	Category    string `json:"category"`
	Gender      string `json:"gender,omitempty"`
}

// ClassDetails describes one board examination result.
type ClassDetails struct {
	Board         string   `json:"board"`
	YearOfPassing string   `json:"yearOfPassing"`
	RollNumber    string   `json:"rollNumber"`
	Stream        string   `json:"stream,omitempty"`
	TotalMarks    string   `json:"totalMarks"`
	MarksObtained string   `json:"marksObtained"`
	Percentage    *float64 `json:"percentage,omitempty"`
}

// AcademicDetails holds the two fixed examination entries.
type AcademicDetails struct {
	ClassX   ClassDetails `json:"classX"`
	ClassXII ClassDetails `json:"classXII"`
}

// Documents maps a document kind to its retrievable URL; nil means not uploaded.
type Documents map[DocumentKind]*string

// ApplicationRecord is the single authoritative application owned by a user.
// Its JSON layout is the persisted layout.
type ApplicationRecord struct {
	ID              string            `json:"id,omitempty"`
	ApplicationID   string            `json:"application_id"`
	OwnerID         string            `json:"user_id"`
	PersonalDetails *PersonalDetails  `json:"personal_details,omitempty"`
	AcademicDetails *AcademicDetails  `json:"academic_details,omitempty"`
	Documents       Documents         `json:"documents,omitempty"`
	Status          ApplicationStatus `json:"status"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
}

// NewDraft builds the first version of a record. It is the only place a record
// comes into existence.
func NewDraft(ownerID, applicationID string, now time.Time) *ApplicationRecord {
	return &ApplicationRecord{
		ApplicationID: applicationID,
		OwnerID:       ownerID,
		Status:        ApplicationStatusDraft,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// IsSubmitted reports whether the record reached its terminal status.
func (r *ApplicationRecord) IsSubmitted() bool {
	return r != nil && r.Status == ApplicationStatusSubmitted
}

// HasDocument reports whether a URL is stored for kind.
func (r *ApplicationRecord) HasDocument(kind DocumentKind) bool {
	if r == nil || r.Documents == nil {
		return false
	}
	url, ok := r.Documents[kind]
	return ok && url != nil && *url != ""
}

// Clone returns a deep copy so callers can never alias manager state.
func (r *ApplicationRecord) Clone() *ApplicationRecord {
	if r == nil {
		return nil
	}
	clone := *r
	if r.PersonalDetails != nil {
		personal := *r.PersonalDetails
		clone.PersonalDetails = &personal
	}
	if r.AcademicDetails != nil {
		academic := AcademicDetails{
			ClassX:   r.AcademicDetails.ClassX.clone(),
			ClassXII: r.AcademicDetails.ClassXII.clone(),
		}
		clone.AcademicDetails = &academic
	}
	if r.Documents != nil {
		clone.Documents = make(Documents, len(r.Documents))
		for kind, url := range r.Documents {
			if url == nil {
				clone.Documents[kind] = nil
				continue
			}
			value := *url
			clone.Documents[kind] = &value
		}
	}
	return &clone
}

// WithPersonalDetails returns a copy carrying details. A category that is
// already set is kept; an empty incoming gender keeps the stored one.
func (r *ApplicationRecord) WithPersonalDetails(details PersonalDetails) (*ApplicationRecord, error) {
	if r.IsSubmitted() {
		return nil, ErrRecordSubmitted
	}
	next := r.Clone()
	incoming := details
	if existing := r.PersonalDetails; existing != nil {
		if strings.TrimSpace(existing.Category) != "" {
			incoming.Category = existing.Category
		}
		if strings.TrimSpace(incoming.Gender) == "" {
			incoming.Gender = existing.Gender
		}
	}
	next.PersonalDetails = &incoming
	return next, nil
}

// WithAcademicDetails returns a copy carrying details with derived percentages.
func (r *ApplicationRecord) WithAcademicDetails(details AcademicDetails) (*ApplicationRecord, error) {
	if r.IsSubmitted() {
		return nil, ErrRecordSubmitted
	}
	next := r.Clone()
	academic := AcademicDetails{
		ClassX:   details.ClassX.withPercentage(),
		ClassXII: details.ClassXII.withPercentage(),
	}
	next.AcademicDetails = &academic
	return next, nil
}

// WithDocument returns a copy with url stored for kind. An empty url clears it.
func (r *ApplicationRecord) WithDocument(kind DocumentKind, url string) (*ApplicationRecord, error) {
	if r.IsSubmitted() {
		return nil, ErrRecordSubmitted
	}
	next := r.Clone()
	if next.Documents == nil {
		next.Documents = make(Documents, len(DocumentKinds))
	}
	if url == "" {
		next.Documents[kind] = nil
		return next, nil
	}
	value := url
	next.Documents[kind] = &value
	return next, nil
}

// AsSubmitted returns a copy in the terminal status.
func (r *ApplicationRecord) AsSubmitted() (*ApplicationRecord, error) {
	if r.IsSubmitted() {
		return nil, ErrRecordSubmitted
	}
	next := r.Clone()
	next.Status = ApplicationStatusSubmitted
	return next, nil
}

// ComputePercentage returns round(obtained/total*100, 2), or nil when either
// input is missing, unparseable, or total is zero.
func ComputePercentage(obtained, total string) *float64 {
	obtained = strings.TrimSpace(obtained)
	total = strings.TrimSpace(total)
	if obtained == "" || total == "" {
		return nil
	}
	o, err := strconv.ParseFloat(obtained, 64)
	if err != nil {
		return nil
	}
	t, err := strconv.ParseFloat(total, 64)
	if err != nil || t == 0 {
		return nil
	}
	pct := math.Round(o/t*100*100) / 100
	return &pct
}

func (c ClassDetails) withPercentage() ClassDetails {
	c.Percentage = ComputePercentage(c.MarksObtained, c.TotalMarks)
	return c
}

func (c ClassDetails) clone() ClassDetails {
	if c.Percentage != nil {
		pct := *c.Percentage
		c.Percentage = &pct
	}
	return c
}
