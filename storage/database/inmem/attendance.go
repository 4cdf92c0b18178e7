package inmemdb

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/attendance"
	"github.com/trezcool/academia/core/student"
)

type attendanceRepository struct {
	db *DB
}

// interface compliance checks
var (
	_ attendance.Repository    = (*attendanceRepository)(nil)
	_ student.AttendanceSource = (*attendanceRepository)(nil)
)

func NewAttendanceRepository(db *DB) *attendanceRepository {
	return &attendanceRepository{db: db}
}

func (repo *attendanceRepository) CreateAttendance(_ context.Context, att attendance.Attendance) (attendance.Attendance, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	att.Date = attendance.NormalizeDate(att.Date)
	for _, a := range repo.db.attendance {
		if core.SameID(a.StudentID, att.StudentID) && a.Date.Equal(att.Date) {
			return attendance.Attendance{}, attendance.ErrDuplicateDate
		}
	}
	att.ID = uuid.New().String()
	repo.db.attendance[att.ID] = &att
	return att, nil
}

func (repo *attendanceRepository) GetAttendanceByID(_ context.Context, id string) (attendance.Attendance, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if att, ok := repo.db.attendance[id]; ok {
		return *att, nil
	}
	return attendance.Attendance{}, attendance.ErrNotFound
}

func (repo *attendanceRepository) GetAttendanceByStudentDate(_ context.Context, studentID string, date time.Time) (attendance.Attendance, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	date = attendance.NormalizeDate(date)
	for _, att := range repo.db.attendance {
		if core.SameID(att.StudentID, studentID) && att.Date.Equal(date) {
			return *att, nil
		}
	}
	return attendance.Attendance{}, attendance.ErrNotFound
}

func (repo *attendanceRepository) QueryAllAttendance(_ context.Context) ([]attendance.Attendance, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()
	return repo.query(func(attendance.Attendance) bool { return true }), nil
}

func (repo *attendanceRepository) QueryAttendanceByStudent(_ context.Context, studentID string) ([]attendance.Attendance, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()
	return repo.query(func(att attendance.Attendance) bool { return core.SameID(att.StudentID, studentID) }), nil
}

func (repo *attendanceRepository) QueryAttendanceByFaculty(_ context.Context, facultyID string) ([]attendance.Attendance, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	assigned := make(map[string]bool)
	for _, st := range repo.db.students {
		if core.SameID(st.FacultyID, facultyID) {
			assigned[st.ID] = true
		}
	}
	return repo.query(func(att attendance.Attendance) bool { return assigned[att.StudentID] }), nil
}

func (repo *attendanceRepository) UpdateAttendance(_ context.Context, att attendance.Attendance) (attendance.Attendance, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	orig, ok := repo.db.attendance[att.ID]
	if !ok {
		return attendance.Attendance{}, attendance.ErrNotFound
	}
	// the student and date are fixed
	att.StudentID = orig.StudentID
	att.Date = orig.Date
	repo.db.attendance[att.ID] = &att
	return att, nil
}

func (repo *attendanceRepository) DeleteAttendanceByID(_ context.Context, ids ...string) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	for _, id := range ids {
		delete(repo.db.attendance, id)
	}
	return nil
}

func (repo *attendanceRepository) query(match func(attendance.Attendance) bool) []attendance.Attendance {
	recs := make([]attendance.Attendance, 0)
	for _, att := range repo.db.attendance {
		if match(*att) {
			recs = append(recs, *att)
		}
	}
	sort.Slice(recs, func(i, j int) bool { return recs[i].Date.After(recs[j].Date) })
	return recs
}
