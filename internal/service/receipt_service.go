package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/noah-isme/admission-api/internal/models"
	appErrors "github.com/noah-isme/admission-api/pkg/errors"
	"github.com/noah-isme/admission-api/pkg/export"
)

type receiptRenderer interface {
	Render(doc export.Document) ([]byte, error)
}

// ReceiptSession exposes the record a receipt is rendered from.
type ReceiptSession interface {
	Current() *models.ApplicationRecord
}

// Receipt is a rendered acknowledgement.
type Receipt struct {
	Filename string
	Content  []byte
}

// ReceiptService renders the acknowledgement PDF for a submitted application.
type ReceiptService struct {
	renderer receiptRenderer
	clock    func() time.Time
}

// NewReceiptService constructs the service.
func NewReceiptService(renderer receiptRenderer) *ReceiptService {
	if renderer == nil {
		renderer = export.NewPDFExporter()
	}
	return &ReceiptService{renderer: renderer, clock: time.Now}
}

// Generate renders the receipt. Drafts have no receipt.
func (s *ReceiptService) Generate(session ReceiptSession) (*Receipt, error) {
	record := session.Current()
	if record == nil {
		return nil, appErrors.ErrNoRecord
	}
	if !record.IsSubmitted() {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "receipt is available once the application is submitted")
	}
	content, err := s.renderer.Render(receiptDocument(record, s.clock().UTC()))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render receipt")
	}
	return &Receipt{
		Filename: fmt.Sprintf("%s-receipt.pdf", strings.ToLower(record.ApplicationID)),
		Content:  content,
	}, nil
}

func receiptDocument(record *models.ApplicationRecord, generatedAt time.Time) export.Document {
	personal := models.PersonalDetails{}
	if record.PersonalDetails != nil {
		personal = *record.PersonalDetails
	}
	academic := models.AcademicDetails{}
	if record.AcademicDetails != nil {
		academic = *record.AcademicDetails
	}

	docs := make([]export.Row, 0, len(models.DocumentKinds))
	for _, kind := range models.DocumentKinds {
		status := "Not uploaded"
		if record.HasDocument(kind) {
			status = "Uploaded"
		}
		docs = append(docs, export.Row{Label: documentTitle(kind), Value: status})
	}

	return export.Document{
		Title:    "Application Acknowledgement",
		Subtitle: fmt.Sprintf("Application ID %s", record.ApplicationID),
		Sections: []export.Section{
			{Heading: "Personal Details", Rows: []export.Row{
				{Label: "Full name", Value: personal.FullName},
				{Label: "Father's name", Value: personal.FatherName},
				{Label: "Mother's name", Value: personal.MotherName},
				{Label: "Date of birth", Value: personal.DateOfBirth},
				{Label: "Gender", Value: personal.Gender},
				{Label: "Category", Value: personal.Category},
				{Label: "Address", Value: personal.Address},
			}},
			{Heading: "Class X", Rows: classRows(academic.ClassX)},
			{Heading: "Class XII", Rows: append(classRows(academic.ClassXII), export.Row{Label: "Stream", Value: academic.ClassXII.Stream})},
			{Heading: "Documents", Rows: docs},
		},
		Footer: fmt.Sprintf("Submitted %s. Generated %s.",
			record.UpdatedAt.UTC().Format(time.RFC1123), generatedAt.Format(time.RFC1123)),
	}
}

func classRows(c models.ClassDetails) []export.Row {
	pct := ""
	if c.Percentage != nil {
		pct = fmt.Sprintf("%.2f%%", *c.Percentage)
	}
	return []export.Row{
		{Label: "Board", Value: c.Board},
		{Label: "Year of passing", Value: c.YearOfPassing},
		{Label: "Roll number", Value: c.RollNumber},
		{Label: "Marks", Value: strings.Trim(c.MarksObtained+" / "+c.TotalMarks, " /")},
		{Label: "Percentage", Value: pct},
	}
}

func documentTitle(kind models.DocumentKind) string {
	switch kind {
	case models.DocumentClassXMarksheet:
		return "Class X marksheet"
	case models.DocumentClassXIIMarksheet:
		return "Class XII marksheet"
	default:
		return string(kind)
	}
}
