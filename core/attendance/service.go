package attendance

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/user"
)

var (
	// errors
	ErrNotFound      = errors.New("attendance record not found")
	ErrDuplicateDate = errors.New("attendance already marked for this student on this date")
)

type (
	Repository interface {
		CreateAttendance(ctx context.Context, att Attendance) (Attendance, error)
		GetAttendanceByID(ctx context.Context, id string) (Attendance, error)
		GetAttendanceByStudentDate(ctx context.Context, studentID string, date time.Time) (Attendance, error)
		QueryAllAttendance(ctx context.Context) ([]Attendance, error)
		QueryAttendanceByStudent(ctx context.Context, studentID string) ([]Attendance, error)
		QueryAttendanceByFaculty(ctx context.Context, facultyID string) ([]Attendance, error)
		UpdateAttendance(ctx context.Context, att Attendance) (Attendance, error)
		DeleteAttendanceByID(ctx context.Context, ids ...string) error
	}

	// StudentDirectory resolves student profiles and receives the derived
	// attendance percentage.
	StudentDirectory interface {
		GetStudentInfo(ctx context.Context, id string) (core.StudentInfo, error)
		GetStudentInfoByUser(ctx context.Context, userID string) (core.StudentInfo, error)
		SetAttendancePercent(ctx context.Context, id string, pct int) error
	}

	ServiceInterface interface {
		Mark(ctx context.Context, actor user.Actor, data NewAttendance) (Attendance, error)
		BulkMark(ctx context.Context, actor user.Actor, data BulkAttendance) (created []Attendance, skipped int, err error)
		Update(ctx context.Context, actor user.Actor, id string, data UpdateAttendance) (Attendance, error)
		Delete(ctx context.Context, actor user.Actor, id string) error
		Query(ctx context.Context, actor user.Actor) ([]Attendance, error)
		QueryByStudent(ctx context.Context, actor user.Actor, studentID string) ([]Attendance, error)
	}

	service struct {
		repo     Repository
		students StudentDirectory
		logger   core.Logger
	}
)

var _ ServiceInterface = (*service)(nil)

func NewService(repo Repository, students StudentDirectory, logger core.Logger) ServiceInterface {
	return &service{
		repo:     repo,
		students: students,
		logger:   logger,
	}
}

// Mark records attendance for a student on a date. One record per student per
// day: a second mark for the same (student, date) pair is rejected before any
// write happens.
func (svc *service) Mark(ctx context.Context, actor user.Actor, data NewAttendance) (Attendance, error) {
	if !actor.IsFaculty() {
		return Attendance{}, core.ErrPermissionDenied
	}
	if err := data.Validate(); err != nil {
		return Attendance{}, err
	}
	st, err := svc.getWritableStudent(ctx, actor, data.StudentID)
	if err != nil {
		return Attendance{}, err
	}
	if _, err = svc.repo.GetAttendanceByStudentDate(ctx, st.ID, data.date); err == nil {
		return Attendance{}, ErrDuplicateDate
	} else if errors.Cause(err) != ErrNotFound {
		return Attendance{}, err
	}

	now := time.Now().UTC()
	att, err := svc.repo.CreateAttendance(ctx, Attendance{
		StudentID: st.ID,
		FacultyID: actor.ID,
		Date:      data.date,
		Status:    data.Status,
		Remarks:   data.Remarks,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		return Attendance{}, err
	}
	svc.recompute(ctx, st)
	return att, nil
}

// BulkMark records one date for several students. Entries whose student
// already has a record for the date are skipped rather than failing the
// batch; unknown or out-of-scope students fail the whole batch up front.
func (svc *service) BulkMark(ctx context.Context, actor user.Actor, data BulkAttendance) ([]Attendance, int, error) {
	if !actor.IsFaculty() {
		return nil, 0, core.ErrPermissionDenied
	}
	if err := data.Validate(); err != nil {
		return nil, 0, err
	}

	infos := make([]core.StudentInfo, len(data.Records))
	for i, rec := range data.Records {
		st, err := svc.getWritableStudent(ctx, actor, rec.StudentID)
		if err != nil {
			return nil, 0, err
		}
		infos[i] = st
	}

	var (
		created []Attendance
		skipped int
		now     = time.Now().UTC()
	)
	for i, rec := range data.Records {
		st := infos[i]
		if _, err := svc.repo.GetAttendanceByStudentDate(ctx, st.ID, data.date); err == nil {
			skipped++
			continue
		} else if errors.Cause(err) != ErrNotFound {
			return created, skipped, err
		}

		att, err := svc.repo.CreateAttendance(ctx, Attendance{
			StudentID: st.ID,
			FacultyID: actor.ID,
			Date:      data.date,
			Status:    rec.Status,
			Remarks:   core.CleanString(rec.Remarks),
			CreatedAt: now,
			UpdatedAt: now,
		})
		if err != nil {
			return created, skipped, err
		}
		created = append(created, att)
		svc.recompute(ctx, st)
	}
	return created, skipped, nil
}

func (svc *service) Update(ctx context.Context, actor user.Actor, id string, data UpdateAttendance) (Attendance, error) {
	if !actor.IsAdmin() && !actor.IsFaculty() {
		return Attendance{}, core.ErrPermissionDenied
	}
	att, err := svc.repo.GetAttendanceByID(ctx, id)
	if err != nil {
		return Attendance{}, err
	}
	st, err := svc.getWritableStudent(ctx, actor, att.StudentID)
	if err != nil {
		return Attendance{}, err
	}
	if err = data.Validate(); err != nil {
		return Attendance{}, err
	}

	if data.Status != "" {
		att.Status = data.Status
	}
	if data.Remarks != nil {
		att.Remarks = *data.Remarks
	}
	att.UpdatedAt = time.Now().UTC()
	if att, err = svc.repo.UpdateAttendance(ctx, att); err != nil {
		return Attendance{}, err
	}
	svc.recompute(ctx, st)
	return att, nil
}

func (svc *service) Delete(ctx context.Context, actor user.Actor, id string) error {
	if !actor.IsAdmin() && !actor.IsFaculty() {
		return core.ErrPermissionDenied
	}
	att, err := svc.repo.GetAttendanceByID(ctx, id)
	if err != nil {
		return err
	}
	st, err := svc.getWritableStudent(ctx, actor, att.StudentID)
	if err != nil {
		return err
	}
	if err = svc.repo.DeleteAttendanceByID(ctx, att.ID); err != nil {
		return err
	}
	svc.recompute(ctx, st)
	return nil
}

// Query returns the attendance records visible to the actor: all of them for
// an admin, those of assigned students for a faculty, the actor's own for a
// student.
func (svc *service) Query(ctx context.Context, actor user.Actor) ([]Attendance, error) {
	switch {
	case actor.IsAdmin():
		return svc.repo.QueryAllAttendance(ctx)
	case actor.IsFaculty():
		return svc.repo.QueryAttendanceByFaculty(ctx, actor.ID)
	default:
		st, err := svc.students.GetStudentInfoByUser(ctx, actor.ID)
		if err != nil {
			return nil, err
		}
		return svc.repo.QueryAttendanceByStudent(ctx, st.ID)
	}
}

func (svc *service) QueryByStudent(ctx context.Context, actor user.Actor, studentID string) ([]Attendance, error) {
	st, err := svc.students.GetStudentInfo(ctx, studentID)
	if err != nil {
		return nil, err
	}
	switch {
	case actor.IsAdmin():
	case actor.IsFaculty():
		if !actor.Same(st.FacultyID) {
			return nil, core.ErrPermissionDenied
		}
	default:
		if !actor.Same(st.UserID) {
			return nil, core.ErrPermissionDenied
		}
	}
	return svc.repo.QueryAttendanceByStudent(ctx, st.ID)
}

// getWritableStudent resolves a student and enforces the write scope: admins
// reach every student, faculty only their assigned ones.
func (svc *service) getWritableStudent(ctx context.Context, actor user.Actor, studentID string) (core.StudentInfo, error) {
	st, err := svc.students.GetStudentInfo(ctx, studentID)
	if err != nil {
		return core.StudentInfo{}, err
	}
	if actor.IsFaculty() && !actor.Same(st.FacultyID) {
		return core.StudentInfo{}, core.ErrPermissionDenied
	}
	return st, nil
}

// recompute refreshes the student's derived attendance percentage after a
// mutation. A failure here leaves the raw records authoritative and is only
// logged; the admin reconciliation endpoint repairs the snapshot.
func (svc *service) recompute(ctx context.Context, st core.StudentInfo) {
	recs, err := svc.repo.QueryAttendanceByStudent(ctx, st.ID)
	if err != nil {
		svc.logger.Error("recomputing attendance percentage", err, "student_id", st.ID)
		return
	}
	if err = svc.students.SetAttendancePercent(ctx, st.ID, Percent(recs)); err != nil {
		svc.logger.Error("updating attendance percentage", err, "student_id", st.ID)
	}
}
