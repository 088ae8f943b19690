// Package validation holds the stateless section validators used at the wizard
// edit boundary and by the review step.
package validation

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/admission-api/internal/models"
)

// FieldErrors maps a field path (e.g. "classX.marksObtained") to a message.
type FieldErrors map[string]string

// Empty reports whether no field failed.
func (f FieldErrors) Empty() bool {
	return len(f) == 0
}

func (f FieldErrors) merge(prefix string, other FieldErrors) {
	for field, msg := range other {
		f[prefix+field] = msg
	}
}

// MarksExceedTotalMessage is reported on marksObtained when it is above totalMarks.
const MarksExceedTotalMessage = "Marks obtained cannot exceed total marks"

const (
	TotalMarksPositiveMessage = "Total marks must be greater than zero"
	MarksNegativeMessage      = "Marks obtained cannot be negative"
)

var labels = map[string]string{
	"fullName":      "Full name",
	"fatherName":    "Father's name",
	"motherName":    "Mother's name",
	"dateOfBirth":   "Date of birth",
	"address":       "Address",
	"board":         "Board",
	"yearOfPassing": "Year of passing",
	"rollNumber":    "Roll number",
	"stream":        "Stream",
	"totalMarks":    "Total marks",
	"marksObtained": "Marks obtained",
}

type personalInput struct {
	FullName    string `json:"fullName" validate:"required"`
	FatherName  string `json:"fatherName" validate:"required"`
	MotherName  string `json:"motherName" validate:"required"`
	DateOfBirth string `json:"dateOfBirth" validate:"required"`
	Address     string `json:"address" validate:"required"`
}

type classInput struct {
	Board         string `json:"board" validate:"required"`
	YearOfPassing string `json:"yearOfPassing" validate:"required,len=4,number"`
	RollNumber    string `json:"rollNumber" validate:"required"`
	TotalMarks    string `json:"totalMarks" validate:"required,numeric"`
	MarksObtained string `json:"marksObtained" validate:"required,numeric"`
}

type seniorClassInput struct {
	Board         string `json:"board" validate:"required"`
	YearOfPassing string `json:"yearOfPassing" validate:"required,len=4,number"`
	RollNumber    string `json:"rollNumber" validate:"required"`
	Stream        string `json:"stream" validate:"required"`
	TotalMarks    string `json:"totalMarks" validate:"required,numeric"`
	MarksObtained string `json:"marksObtained" validate:"required,numeric"`
}

type academicInput struct {
	ClassX   classInput       `json:"classX"`
	ClassXII seniorClassInput `json:"classXII"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// ValidatePersonal checks the personal section. Gender and category are not
// user inputs here; CheckReadiness requires them on the stored record.
func ValidatePersonal(details models.PersonalDetails) FieldErrors {
	input := personalInput{
		FullName:    strings.TrimSpace(details.FullName),
		FatherName:  strings.TrimSpace(details.FatherName),
		MotherName:  strings.TrimSpace(details.MotherName),
		DateOfBirth: strings.TrimSpace(details.DateOfBirth),
		Address:     strings.TrimSpace(details.Address),
	}
	return collect(validate.Struct(input))
}

// ValidateAcademic checks both examination entries with identical rules, plus
// the stream for classXII and the obtained <= total cross-field rule.
func ValidateAcademic(details models.AcademicDetails) FieldErrors {
	x := details.ClassX
	xii := details.ClassXII
	input := academicInput{
		ClassX: classInput{
			Board:         strings.TrimSpace(x.Board),
			YearOfPassing: strings.TrimSpace(x.YearOfPassing),
			RollNumber:    strings.TrimSpace(x.RollNumber),
			TotalMarks:    strings.TrimSpace(x.TotalMarks),
			MarksObtained: strings.TrimSpace(x.MarksObtained),
		},
		ClassXII: seniorClassInput{
			Board:         strings.TrimSpace(xii.Board),
			YearOfPassing: strings.TrimSpace(xii.YearOfPassing),
			RollNumber:    strings.TrimSpace(xii.RollNumber),
			Stream:        strings.TrimSpace(xii.Stream),
			TotalMarks:    strings.TrimSpace(xii.TotalMarks),
			MarksObtained: strings.TrimSpace(xii.MarksObtained),
		},
	}
	errs := collect(validate.Struct(input))
	for field, msg := range CheckMarks(details) {
		if _, exists := errs[field]; !exists {
			errs[field] = msg
		}
	}
	return errs
}

// CheckMarks applies the marks range rules: total above zero, obtained not
// negative and not above total. Auto-save uses it so an out-of-range value is
// never persisted, even for partial input.
func CheckMarks(details models.AcademicDetails) FieldErrors {
	errs := FieldErrors{}
	levels := []struct {
		name  string
		class models.ClassDetails
	}{
		{name: "classX", class: details.ClassX},
		{name: "classXII", class: details.ClassXII},
	}
	for _, level := range levels {
		total, errT := strconv.ParseFloat(strings.TrimSpace(level.class.TotalMarks), 64)
		obtained, errO := strconv.ParseFloat(strings.TrimSpace(level.class.MarksObtained), 64)
		if errT == nil && total <= 0 {
			errs[level.name+".totalMarks"] = TotalMarksPositiveMessage
		}
		if errO == nil && obtained < 0 {
			errs[level.name+".marksObtained"] = MarksNegativeMessage
			continue
		}
		if errT != nil || errO != nil {
			continue
		}
		if obtained > total {
			errs[level.name+".marksObtained"] = MarksExceedTotalMessage
		}
	}
	return errs
}

func collect(err error) FieldErrors {
	errs := FieldErrors{}
	if err == nil {
		return errs
	}
	validationErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		errs["_"] = err.Error()
		return errs
	}
	for _, fe := range validationErrs {
		errs[fieldPath(fe.Namespace())] = message(fe)
	}
	return errs
}

// fieldPath drops the root struct name from a validator namespace.
func fieldPath(namespace string) string {
	if idx := strings.Index(namespace, "."); idx >= 0 {
		return namespace[idx+1:]
	}
	return namespace
}

func message(fe validator.FieldError) string {
	label, ok := labels[fe.Field()]
	if !ok {
		label = fe.Field()
	}
	switch fe.Tag() {
	case "required":
		return label + " is required"
	case "len", "number":
		if fe.Field() == "yearOfPassing" {
			return "Year of passing must be a 4-digit year"
		}
		return fmt.Sprintf("%s is invalid", label)
	case "numeric":
		return label + " must be a number"
	default:
		return fmt.Sprintf("%s is invalid", label)
	}
}
