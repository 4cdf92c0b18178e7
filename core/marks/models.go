package marks

import (
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
)

// Exam types
const (
	ExamAssignment = "assignment"
	ExamQuiz       = "quiz"
	ExamMidterm    = "midterm"
	ExamFinal      = "final"
	ExamProject    = "project"
)

var examTypes = []string{ExamAssignment, ExamQuiz, ExamMidterm, ExamFinal, ExamProject}

// ExamDateLayout is the wire format for exam dates.
const ExamDateLayout = "2006-01-02"

var (
	errInvalidExamType = errors.New("invalid exam type")
	errInvalidExamDate = errors.New("invalid exam date; expected YYYY-MM-DD")
	errMarksOverMax    = errors.New("marks obtained cannot be greater than maximum marks")
)

type Marks struct {
	ID            string    `json:"id"`
	StudentID     string    `json:"student_id"`
	Subject       string    `json:"subject"`
	ExamType      string    `json:"exam_type"`
	MaxMarks      int       `json:"max_marks"`
	MarksObtained int       `json:"marks_obtained"`
	Percentage    int       `json:"percentage"` // derived, never trusted from input
	Grade         string    `json:"grade"`      // derived, record-level ladder
	ExamDate      time.Time `json:"exam_date"`
	CreatedBy     string    `json:"created_by"` // authoring faculty
	CreatedAt     time.Time `json:"created_at"` // UTC
	UpdatedAt     time.Time `json:"updated_at"` // UTC
}

// Recompute rebuilds the derived percentage and record grade from
// MaxMarks/MarksObtained. Called before every persistence of the record.
func (m *Marks) Recompute() {
	m.Percentage = Percentage(m.MarksObtained, m.MaxMarks)
	m.Grade = RecordGrade(m.Percentage)
}

// NormalizeExamType canonicalizes wire exam types ("Mid-term" -> "midterm")
// before enum validation.
func NormalizeExamType(s string) string {
	return strings.ReplaceAll(core.CleanString(s, true /* lower */), "-", "")
}

func validExamType(s string) bool {
	for _, t := range examTypes {
		if t == s {
			return true
		}
	}
	return false
}

// NewMarks contains information needed to record marks for a student.
type NewMarks struct {
	StudentID     string `json:"student_id" validate:"required"`
	Subject       string `json:"subject" validate:"required"`
	ExamType      string `json:"exam_type" validate:"required"`
	MaxMarks      int    `json:"max_marks" validate:"required,gt=0"`
	MarksObtained int    `json:"marks_obtained" validate:"min=0"`
	ExamDate      string `json:"exam_date" validate:"required"`

	examDate time.Time
}

func (nm *NewMarks) Validate() error {
	nm.Subject = core.CleanString(nm.Subject)
	nm.ExamType = NormalizeExamType(nm.ExamType)

	if err := core.Validate.Struct(nm); err != nil {
		return err
	}
	if !validExamType(nm.ExamType) {
		return core.NewValidationError(errInvalidExamType, core.FieldError{
			Field: "exam_type",
			Error: "invalid exam type; valid types are: " + strings.Join(examTypes, ", "),
		})
	}
	if nm.MarksObtained > nm.MaxMarks {
		return core.NewValidationError(errMarksOverMax, core.FieldError{Field: "marks_obtained", Error: errMarksOverMax.Error()})
	}

	var err error
	if nm.examDate, err = time.Parse(ExamDateLayout, core.CleanString(nm.ExamDate)); err != nil {
		return core.NewValidationError(errInvalidExamDate, core.FieldError{Field: "exam_date", Error: errInvalidExamDate.Error()})
	}
	return nil
}

// UpdateMarks defines what may be modified on an existing record. Zero
// fields are left untouched; the derived fields are always recomputed from
// the resulting MaxMarks/MarksObtained pair.
type UpdateMarks struct {
	Subject       string `json:"subject"`
	ExamType      string `json:"exam_type"`
	MaxMarks      int    `json:"max_marks" validate:"omitempty,gt=0"`
	MarksObtained *int   `json:"marks_obtained" validate:"omitempty"`
	ExamDate      string `json:"exam_date"`

	examDate time.Time
}

func (um *UpdateMarks) Validate(orig Marks) error {
	um.Subject = core.CleanString(um.Subject)
	if um.ExamType != "" {
		um.ExamType = NormalizeExamType(um.ExamType)
	}

	if err := core.Validate.Struct(um); err != nil {
		return err
	}
	if um.ExamType != "" && !validExamType(um.ExamType) {
		return core.NewValidationError(errInvalidExamType, core.FieldError{
			Field: "exam_type",
			Error: "invalid exam type; valid types are: " + strings.Join(examTypes, ", "),
		})
	}

	// validate the resulting pair, not just the provided fields
	maxMarks := orig.MaxMarks
	if um.MaxMarks > 0 {
		maxMarks = um.MaxMarks
	}
	obtained := orig.MarksObtained
	if um.MarksObtained != nil {
		if *um.MarksObtained < 0 {
			return core.NewValidationError(nil, core.FieldError{Field: "marks_obtained", Error: "must be 0 or greater"})
		}
		obtained = *um.MarksObtained
	}
	if obtained > maxMarks {
		return core.NewValidationError(errMarksOverMax, core.FieldError{Field: "marks_obtained", Error: errMarksOverMax.Error()})
	}

	if um.ExamDate != "" {
		var err error
		if um.examDate, err = time.Parse(ExamDateLayout, core.CleanString(um.ExamDate)); err != nil {
			return core.NewValidationError(errInvalidExamDate, core.FieldError{Field: "exam_date", Error: errInvalidExamDate.Error()})
		}
	}
	return nil
}

// QueryFilter narrows marks listings.
type QueryFilter struct {
	Subject  string `query:"subject"`
	ExamType string `query:"exam_type"`
}

func (f *QueryFilter) Clean() {
	f.Subject = core.CleanString(f.Subject)
	if f.ExamType != "" {
		f.ExamType = NormalizeExamType(f.ExamType)
	}
}

// Match reports whether a record passes the filter.
func (f QueryFilter) Match(m Marks) bool {
	if f.Subject != "" && !strings.EqualFold(f.Subject, m.Subject) {
		return false
	}
	if f.ExamType != "" && f.ExamType != m.ExamType {
		return false
	}
	return true
}
