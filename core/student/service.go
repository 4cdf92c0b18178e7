package student

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/attendance"
	"github.com/trezcool/academia/core/course"
	"github.com/trezcool/academia/core/marks"
	"github.com/trezcool/academia/core/user"
)

var (
	// errors
	ErrNotFound  = errors.New("student not found")
	ErrUserTaken = errors.New("this user already has a student profile")
)

type (
	Repository interface {
		CreateStudent(ctx context.Context, st Student) (Student, error)
		QueryAllStudents(ctx context.Context) ([]Student, error)
		QueryStudentsByFaculty(ctx context.Context, facultyID string) ([]Student, error)
		GetStudentByID(ctx context.Context, id string) (Student, error)
		GetStudentByUserID(ctx context.Context, userID string) (Student, error)
		UpdateStudent(ctx context.Context, st Student) (Student, error)
		DeleteStudentsByID(ctx context.Context, ids ...string) error
		CountStudentsByFaculty(ctx context.Context, facultyID string) (int, error)
		ReassignStudentsFaculty(ctx context.Context, fromFacultyID, toFacultyID string) (int, error)
		SetAttendancePercent(ctx context.Context, id string, pct int) error
		SetMarks(ctx context.Context, id string, avg int, grade string) error
	}

	// AccountService is the slice of the user service needed to resolve and
	// provision the accounts backing student profiles.
	AccountService interface {
		GetByID(ctx context.Context, id string) (user.User, error)
		ProvisionStudentAccount(ctx context.Context, name, email string) (user.User, error)
	}

	// AccountStore removes the backing account when a student is deleted.
	AccountStore interface {
		DeleteUsersByID(ctx context.Context, ids ...string) error
	}

	CourseGetter interface {
		GetCourseByID(ctx context.Context, id string) (course.Course, error)
	}

	// AttendanceSource and MarksSource feed the reconciliation of the
	// derived fields from the raw collections.
	AttendanceSource interface {
		QueryAttendanceByStudent(ctx context.Context, studentID string) ([]attendance.Attendance, error)
	}
	MarksSource interface {
		QueryMarksByStudent(ctx context.Context, studentID string) ([]marks.Marks, error)
	}

	ServiceInterface interface {
		Query(ctx context.Context, actor user.Actor) ([]Student, error)
		GetByID(ctx context.Context, actor user.Actor, id string) (Student, error)
		GetOwn(ctx context.Context, actor user.Actor) (Student, error)
		Create(ctx context.Context, actor user.Actor, data NewStudent) (Student, error)
		Update(ctx context.Context, actor user.Actor, id string, data UpdateStudent) (Student, error)
		Delete(ctx context.Context, actor user.Actor, id string) error
		Reconcile(ctx context.Context, actor user.Actor, id string) (Student, error)
	}

	service struct {
		repo       Repository
		accounts   AccountService
		accStore   AccountStore
		courses    CourseGetter
		attendance AttendanceSource
		marks      MarksSource
	}
)

var _ ServiceInterface = (*service)(nil)

func NewService(
	repo Repository,
	accounts AccountService,
	accStore AccountStore,
	courses CourseGetter,
	attSrc AttendanceSource,
	marksSrc MarksSource,
) ServiceInterface {
	return &service{
		repo:       repo,
		accounts:   accounts,
		accStore:   accStore,
		courses:    courses,
		attendance: attSrc,
		marks:      marksSrc,
	}
}

// Query returns the students visible to the actor: all of them for an admin,
// the assigned ones for a faculty, the actor's own profile for a student.
func (svc *service) Query(ctx context.Context, actor user.Actor) ([]Student, error) {
	switch {
	case actor.IsAdmin():
		return svc.repo.QueryAllStudents(ctx)
	case actor.IsFaculty():
		return svc.repo.QueryStudentsByFaculty(ctx, actor.ID)
	default:
		st, err := svc.repo.GetStudentByUserID(ctx, actor.ID)
		if err != nil {
			if errors.Cause(err) == ErrNotFound {
				return []Student{}, nil
			}
			return nil, err
		}
		return []Student{st}, nil
	}
}

func (svc *service) GetByID(ctx context.Context, actor user.Actor, id string) (Student, error) {
	st, err := svc.repo.GetStudentByID(ctx, id)
	if err != nil {
		return Student{}, err
	}
	if !svc.canRead(actor, st) {
		return Student{}, core.ErrPermissionDenied
	}
	return st, nil
}

// GetOwn returns the student profile attached to the acting account.
func (svc *service) GetOwn(ctx context.Context, actor user.Actor) (Student, error) {
	if !actor.IsStudent() {
		return Student{}, core.ErrPermissionDenied
	}
	return svc.repo.GetStudentByUserID(ctx, actor.ID)
}

func (svc *service) Create(ctx context.Context, actor user.Actor, data NewStudent) (Student, error) {
	if !actor.IsAdmin() {
		return Student{}, core.ErrPermissionDenied
	}
	if err := data.Validate(); err != nil {
		return Student{}, err
	}
	if err := svc.checkRefs(ctx, data.CourseID, data.FacultyID); err != nil {
		return Student{}, err
	}

	var acc user.User
	if data.UserID != "" {
		var err error
		if acc, err = svc.accounts.GetByID(ctx, data.UserID); err != nil {
			if errors.Cause(err) == user.ErrNotFound {
				return Student{}, fieldErr("user_id", "user not found")
			}
			return Student{}, err
		}
		if !acc.IsStudent() {
			return Student{}, fieldErr("user_id", "user does not hold the student role")
		}
		if _, err = svc.repo.GetStudentByUserID(ctx, acc.ID); err == nil {
			return Student{}, core.NewValidationError(ErrUserTaken, core.FieldError{Field: "user_id", Error: ErrUserTaken.Error()})
		} else if errors.Cause(err) != ErrNotFound {
			return Student{}, err
		}
	} else {
		var err error
		if acc, err = svc.accounts.ProvisionStudentAccount(ctx, data.Name, data.Email); err != nil {
			return Student{}, errors.Wrap(err, "provisioning student account")
		}
	}

	now := time.Now().UTC()
	st := Student{
		UserID:            acc.ID,
		CourseID:          data.CourseID,
		FacultyID:         data.FacultyID,
		OverallGrade:      data.OverallGrade,
		AverageMarks:      data.AverageMarks,
		AttendancePercent: data.AttendancePercent,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if st.OverallGrade == "" {
		st.OverallGrade = marks.GradeNA
	}
	return svc.repo.CreateStudent(ctx, st)
}

func (svc *service) Update(ctx context.Context, actor user.Actor, id string, data UpdateStudent) (Student, error) {
	if !actor.IsAdmin() && !actor.IsFaculty() {
		return Student{}, core.ErrPermissionDenied
	}
	st, err := svc.repo.GetStudentByID(ctx, id)
	if err != nil {
		return Student{}, err
	}
	if actor.IsFaculty() && !actor.Same(st.FacultyID) {
		return Student{}, core.ErrPermissionDenied
	}
	if err = data.Validate(); err != nil {
		return Student{}, err
	}
	if err = svc.checkRefs(ctx, data.CourseID, data.FacultyID); err != nil {
		return Student{}, err
	}

	if data.CourseID != "" {
		st.CourseID = data.CourseID
	}
	if data.FacultyID != "" {
		st.FacultyID = data.FacultyID
	}
	st.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateStudent(ctx, st)
}

// Delete removes a student profile and cascades to the backing user account.
// The profile goes first so that a failure in between leaves a role-only
// account behind rather than an account-less profile.
func (svc *service) Delete(ctx context.Context, actor user.Actor, id string) error {
	if !actor.IsAdmin() {
		return core.ErrPermissionDenied
	}
	st, err := svc.repo.GetStudentByID(ctx, id)
	if err != nil {
		return err
	}
	if err = svc.repo.DeleteStudentsByID(ctx, st.ID); err != nil {
		return errors.Wrap(err, "deleting student")
	}
	if err = svc.accStore.DeleteUsersByID(ctx, st.UserID); err != nil {
		return errors.Wrap(err, "deleting student account")
	}
	return nil
}

// Reconcile recomputes both derived fields from the raw attendance and marks
// collections and persists them. Idempotent: running it twice in a row yields
// the same stored values.
func (svc *service) Reconcile(ctx context.Context, actor user.Actor, id string) (Student, error) {
	if !actor.IsAdmin() {
		return Student{}, core.ErrPermissionDenied
	}
	st, err := svc.repo.GetStudentByID(ctx, id)
	if err != nil {
		return Student{}, err
	}

	attRecs, err := svc.attendance.QueryAttendanceByStudent(ctx, st.ID)
	if err != nil {
		return Student{}, errors.Wrap(err, "querying attendance")
	}
	if err = svc.repo.SetAttendancePercent(ctx, st.ID, attendance.Percent(attRecs)); err != nil {
		return Student{}, errors.Wrap(err, "updating attendance percentage")
	}

	marksRecs, err := svc.marks.QueryMarksByStudent(ctx, st.ID)
	if err != nil {
		return Student{}, errors.Wrap(err, "querying marks")
	}
	avg, grade := marks.Overall(marksRecs)
	if err = svc.repo.SetMarks(ctx, st.ID, avg, grade); err != nil {
		return Student{}, errors.Wrap(err, "updating overall marks")
	}

	return svc.repo.GetStudentByID(ctx, st.ID)
}

func (svc *service) canRead(actor user.Actor, st Student) bool {
	switch {
	case actor.IsAdmin():
		return true
	case actor.IsFaculty():
		return actor.Same(st.FacultyID)
	default:
		return actor.Same(st.UserID)
	}
}

// checkRefs validates the course and faculty references when set.
func (svc *service) checkRefs(ctx context.Context, courseID, facultyID string) error {
	if courseID != "" {
		if _, err := svc.courses.GetCourseByID(ctx, courseID); err != nil {
			if errors.Cause(err) == course.ErrNotFound {
				return fieldErr("course_id", "course not found")
			}
			return err
		}
	}
	if facultyID != "" {
		fac, err := svc.accounts.GetByID(ctx, facultyID)
		if err != nil {
			if errors.Cause(err) == user.ErrNotFound {
				return fieldErr("faculty_id", "faculty not found")
			}
			return err
		}
		if !fac.IsFaculty() {
			return fieldErr("faculty_id", "user does not hold the faculty role")
		}
	}
	return nil
}

func fieldErr(field, msg string) error {
	return core.NewValidationError(errors.New(msg), core.FieldError{Field: field, Error: msg})
}
