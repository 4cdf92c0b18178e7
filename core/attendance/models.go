package attendance

import (
	"math"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
)

// Statuses
const (
	StatusPresent = "present"
	StatusAbsent  = "absent"
	StatusLate    = "late"
)

// DateLayout is the wire format for attendance dates.
const DateLayout = "2006-01-02"

var errInvalidDate = errors.New("invalid date; expected YYYY-MM-DD")

type Attendance struct {
	ID        string    `json:"id"`
	StudentID string    `json:"student_id"`
	FacultyID string    `json:"faculty_id"` // recording faculty
	Date      time.Time `json:"date"`       // canonical UTC day boundary
	Status    string    `json:"status"`
	Remarks   string    `json:"remarks"`
	CreatedAt time.Time `json:"created_at"` // UTC
	UpdatedAt time.Time `json:"updated_at"` // UTC
}

// NormalizeDate truncates t to its UTC day boundary. All stored attendance
// dates go through here; the (student, date) uniqueness invariant depends on
// a single canonical representation per calendar day.
func NormalizeDate(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD wire date into its canonical UTC day boundary.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, core.CleanString(s))
	if err != nil {
		return time.Time{}, errInvalidDate
	}
	return NormalizeDate(t), nil
}

// Percent computes the attendance percentage over a student's records:
// round(100 * (present + late) / total), 0 when there are no records.
// Pure function of the raw records; recomputing it is idempotent.
func Percent(records []Attendance) int {
	if len(records) == 0 {
		return 0
	}
	var attended int
	for _, rec := range records {
		if rec.Status == StatusPresent || rec.Status == StatusLate {
			attended++
		}
	}
	return int(math.Round(100 * float64(attended) / float64(len(records))))
}

// NewAttendance contains information needed to mark attendance for a student.
type NewAttendance struct {
	StudentID string `json:"student_id" validate:"required"`
	Date      string `json:"date" validate:"required"`
	Status    string `json:"status" validate:"required,oneof=present absent late"`
	Remarks   string `json:"remarks"`

	date time.Time
}

func (na *NewAttendance) Validate() error {
	na.Remarks = core.CleanString(na.Remarks)
	if err := core.Validate.Struct(na); err != nil {
		return err
	}

	var err error
	if na.date, err = ParseDate(na.Date); err != nil {
		return core.NewValidationError(err, core.FieldError{Field: "date", Error: err.Error()})
	}
	return nil
}

// BulkAttendance marks one date for several students at once. Students that
// already have a record for the date are skipped, not errors.
type BulkAttendance struct {
	Date    string           `json:"date" validate:"required"`
	Records []BulkEntry      `json:"records" validate:"required,min=1,dive"`
	date    time.Time
}

type BulkEntry struct {
	StudentID string `json:"student_id" validate:"required"`
	Status    string `json:"status" validate:"required,oneof=present absent late"`
	Remarks   string `json:"remarks"`
}

func (ba *BulkAttendance) Validate() error {
	if err := core.Validate.Struct(ba); err != nil {
		return err
	}

	var err error
	if ba.date, err = ParseDate(ba.Date); err != nil {
		return core.NewValidationError(err, core.FieldError{Field: "date", Error: err.Error()})
	}
	return nil
}

// UpdateAttendance defines what may be modified on an existing record.
// The student and date are fixed; only the status and remarks move.
type UpdateAttendance struct {
	Status  string  `json:"status" validate:"omitempty,oneof=present absent late"`
	Remarks *string `json:"remarks"`
}

func (ua *UpdateAttendance) Validate() error {
	if ua.Remarks != nil {
		cleaned := core.CleanString(*ua.Remarks)
		ua.Remarks = &cleaned
	}
	return core.Validate.Struct(ua)
}
