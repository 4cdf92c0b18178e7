package echoapi

import (
	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/attendance"
	"github.com/trezcool/academia/core/user"
)

type (
	LoginRequest struct {
		Email    string `json:"email" validate:"required,email"`
		Password string `json:"password" validate:"required"`
	}

	LoginResponse struct {
		Token string     `json:"token"`
		User  user.Actor `json:"user"`
	}

	SuccessResponse struct {
		Success string `json:"success"`
	}

	deleteFacultyRequest struct {
		ReassignTo string `json:"reassignTo" query:"reassignTo"`
	}

	facultyDeletedResponse struct {
		StudentsReassigned int `json:"studentsReassigned"`
	}

	studentCountResponse struct {
		StudentCount int `json:"studentCount"`
	}

	bulkAttendanceResponse struct {
		Created []attendance.Attendance `json:"created"`
		Skipped int                     `json:"skipped"`
	}
)

func (r *LoginRequest) Validate() error {
	r.Email = core.CleanString(r.Email, true /* lower */)
	return core.Validate.Struct(r)
}
