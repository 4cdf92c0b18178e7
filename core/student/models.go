package student

import (
	"time"

	"github.com/trezcool/academia/core"
)

// Student links a student user account to a course and an owning faculty.
// OverallGrade, AverageMarks and AttendancePercent are materialized views
// over the Marks and Attendance collections: they are owned by the
// recomputation engine and only reach storage through the SetStudent*
// repository methods, never from client input (creation-time defaults
// excepted).
type Student struct {
	ID                string    `json:"id"`
	UserID            string    `json:"user_id"`
	CourseID          string    `json:"course_id"`
	FacultyID         string    `json:"faculty_id"`
	OverallGrade      string    `json:"overall_grade"`         // derived
	AverageMarks      int       `json:"marks"`                 // derived, 0-100
	AttendancePercent int       `json:"attendance_percentage"` // derived, 0-100
	CreatedAt         time.Time `json:"created_at"`            // UTC
	UpdatedAt         time.Time `json:"updated_at"`            // UTC
}

// NewStudent contains information needed to create a new Student. Either an
// existing student user account is referenced by UserID, or Name and Email
// are provided and an account is provisioned with the default password.
type NewStudent struct {
	UserID    string `json:"user_id"`
	CourseID  string `json:"course_id" validate:"required"`
	FacultyID string `json:"faculty_id" validate:"required"`
	Name      string `json:"name" validate:"required_without=UserID"`
	Email     string `json:"email" validate:"required_without=UserID,omitempty,email"`

	// creation-time defaults for the derived fields
	OverallGrade      string `json:"overall_grade"`
	AverageMarks      int    `json:"marks" validate:"min=0,max=100"`
	AttendancePercent int    `json:"attendance_percentage" validate:"min=0,max=100"`
}

func (ns *NewStudent) Validate() error {
	ns.UserID = core.CleanString(ns.UserID)
	ns.CourseID = core.CleanString(ns.CourseID)
	ns.FacultyID = core.CleanString(ns.FacultyID)
	ns.Name = core.CleanString(ns.Name)
	ns.Email = core.CleanString(ns.Email, true /* lower */)
	return core.Validate.Struct(ns)
}

// UpdateStudent defines what may be modified on an existing Student: the
// course and the owning faculty. The derived fields are not updatable.
type UpdateStudent struct {
	CourseID  string `json:"course_id"`
	FacultyID string `json:"faculty_id"`
}

func (us *UpdateStudent) Validate() error {
	us.CourseID = core.CleanString(us.CourseID)
	us.FacultyID = core.CleanString(us.FacultyID)
	return core.Validate.Struct(us)
}
