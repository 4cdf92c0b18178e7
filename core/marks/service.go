package marks

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/user"
)

// ErrNotFound is returned when no marks record matches a lookup.
var ErrNotFound = errors.New("marks record not found")

type (
	Repository interface {
		CreateMarks(ctx context.Context, m Marks) (Marks, error)
		GetMarksByID(ctx context.Context, id string) (Marks, error)
		QueryAllMarks(ctx context.Context) ([]Marks, error)
		QueryMarksByStudent(ctx context.Context, studentID string) ([]Marks, error)
		QueryMarksByFaculty(ctx context.Context, facultyID string) ([]Marks, error)
		UpdateMarks(ctx context.Context, m Marks) (Marks, error)
		DeleteMarksByID(ctx context.Context, ids ...string) error
	}

	// StudentDirectory resolves student profiles and receives the derived
	// average and overall grade.
	StudentDirectory interface {
		GetStudentInfo(ctx context.Context, id string) (core.StudentInfo, error)
		GetStudentInfoByUser(ctx context.Context, userID string) (core.StudentInfo, error)
		SetMarks(ctx context.Context, id string, avg int, grade string) error
	}

	ServiceInterface interface {
		Create(ctx context.Context, actor user.Actor, data NewMarks) (Marks, error)
		Update(ctx context.Context, actor user.Actor, id string, data UpdateMarks) (Marks, error)
		Delete(ctx context.Context, actor user.Actor, id string) error
		Query(ctx context.Context, actor user.Actor, filter QueryFilter) ([]Marks, error)
		QueryByStudent(ctx context.Context, actor user.Actor, studentID string, filter QueryFilter) ([]Marks, error)
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

// Create records marks for a student. Only a faculty may record marks, and
// only for students assigned to them; the derived percentage and grade are
// always recomputed server-side before persistence.
func (svc *service) Create(ctx context.Context, actor user.Actor, data NewMarks) (Marks, error) {
	if !actor.IsFaculty() {
		return Marks{}, core.ErrPermissionDenied
	}
	if err := data.Validate(); err != nil {
		return Marks{}, err
	}
	st, err := svc.students.GetStudentInfo(ctx, data.StudentID)
	if err != nil {
		return Marks{}, err
	}
	if !actor.Same(st.FacultyID) {
		return Marks{}, core.ErrPermissionDenied
	}

	now := time.Now().UTC()
	m := Marks{
		StudentID:     st.ID,
		Subject:       data.Subject,
		ExamType:      data.ExamType,
		MaxMarks:      data.MaxMarks,
		MarksObtained: data.MarksObtained,
		ExamDate:      data.examDate,
		CreatedBy:     actor.ID,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	m.Recompute()
	if m, err = svc.repo.CreateMarks(ctx, m); err != nil {
		return Marks{}, err
	}
	svc.recompute(ctx, st.ID)
	return m, nil
}

// Update modifies a marks record. Only the faculty that authored the record
// may change it.
func (svc *service) Update(ctx context.Context, actor user.Actor, id string, data UpdateMarks) (Marks, error) {
	if !actor.IsFaculty() {
		return Marks{}, core.ErrPermissionDenied
	}
	m, err := svc.repo.GetMarksByID(ctx, id)
	if err != nil {
		return Marks{}, err
	}
	if !actor.Same(m.CreatedBy) {
		return Marks{}, core.ErrPermissionDenied
	}
	if err = data.Validate(m); err != nil {
		return Marks{}, err
	}

	if data.Subject != "" {
		m.Subject = data.Subject
	}
	if data.ExamType != "" {
		m.ExamType = data.ExamType
	}
	if data.MaxMarks > 0 {
		m.MaxMarks = data.MaxMarks
	}
	if data.MarksObtained != nil {
		m.MarksObtained = *data.MarksObtained
	}
	if !data.examDate.IsZero() {
		m.ExamDate = data.examDate
	}
	m.Recompute()
	m.UpdatedAt = time.Now().UTC()
	if m, err = svc.repo.UpdateMarks(ctx, m); err != nil {
		return Marks{}, err
	}
	svc.recompute(ctx, m.StudentID)
	return m, nil
}

// Delete removes a marks record. Only the authoring faculty may delete it.
func (svc *service) Delete(ctx context.Context, actor user.Actor, id string) error {
	if !actor.IsFaculty() {
		return core.ErrPermissionDenied
	}
	m, err := svc.repo.GetMarksByID(ctx, id)
	if err != nil {
		return err
	}
	if !actor.Same(m.CreatedBy) {
		return core.ErrPermissionDenied
	}
	if err = svc.repo.DeleteMarksByID(ctx, m.ID); err != nil {
		return err
	}
	svc.recompute(ctx, m.StudentID)
	return nil
}

// Query returns the marks visible to the actor: all of them for an admin,
// records the faculty authored for their currently assigned students, the
// actor's own records for a student.
func (svc *service) Query(ctx context.Context, actor user.Actor, filter QueryFilter) ([]Marks, error) {
	filter.Clean()
	var (
		recs []Marks
		err  error
	)
	switch {
	case actor.IsAdmin():
		recs, err = svc.repo.QueryAllMarks(ctx)
	case actor.IsFaculty():
		recs, err = svc.repo.QueryMarksByFaculty(ctx, actor.ID)
	default:
		var st core.StudentInfo
		if st, err = svc.students.GetStudentInfoByUser(ctx, actor.ID); err != nil {
			return nil, err
		}
		recs, err = svc.repo.QueryMarksByStudent(ctx, st.ID)
	}
	if err != nil {
		return nil, err
	}
	return applyFilter(recs, filter), nil
}

func (svc *service) QueryByStudent(ctx context.Context, actor user.Actor, studentID string, filter QueryFilter) ([]Marks, error) {
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
	recs, err := svc.repo.QueryMarksByStudent(ctx, st.ID)
	if err != nil {
		return nil, err
	}
	filter.Clean()
	return applyFilter(recs, filter), nil
}

// recompute refreshes the student's derived average and overall grade after
// a mutation. A failure leaves the raw records authoritative and is only
// logged; the admin reconciliation endpoint repairs the snapshot.
func (svc *service) recompute(ctx context.Context, studentID string) {
	recs, err := svc.repo.QueryMarksByStudent(ctx, studentID)
	if err != nil {
		svc.logger.Error("recomputing overall marks", err, "student_id", studentID)
		return
	}
	avg, grade := Overall(recs)
	if err = svc.students.SetMarks(ctx, studentID, avg, grade); err != nil {
		svc.logger.Error("updating overall marks", err, "student_id", studentID)
	}
}

func applyFilter(recs []Marks, filter QueryFilter) []Marks {
	if filter.Subject == "" && filter.ExamType == "" {
		return recs
	}
	out := recs[:0:0]
	for _, m := range recs {
		if filter.Match(m) {
			out = append(out, m)
		}
	}
	return out
}
