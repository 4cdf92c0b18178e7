package inmemdb

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/attendance"
	"github.com/trezcool/academia/core/marks"
	"github.com/trezcool/academia/core/student"
	"github.com/trezcool/academia/core/user"
)

type studentRepository struct {
	db *DB
}

// interface compliance checks
var (
	_ student.Repository          = (*studentRepository)(nil)
	_ user.StudentDirectory       = (*studentRepository)(nil)
	_ attendance.StudentDirectory = (*studentRepository)(nil)
	_ marks.StudentDirectory      = (*studentRepository)(nil)
)

func NewStudentRepository(db *DB) *studentRepository {
	return &studentRepository{db: db}
}

func (repo *studentRepository) CreateStudent(_ context.Context, st student.Student) (student.Student, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	for _, s := range repo.db.students {
		if core.SameID(s.UserID, st.UserID) {
			return student.Student{}, student.ErrUserTaken
		}
	}
	st.ID = uuid.New().String()
	repo.db.students[st.ID] = &st
	return st, nil
}

func (repo *studentRepository) QueryAllStudents(_ context.Context) ([]student.Student, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()
	return repo.query(func(student.Student) bool { return true }), nil
}

func (repo *studentRepository) QueryStudentsByFaculty(_ context.Context, facultyID string) ([]student.Student, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()
	return repo.query(func(st student.Student) bool { return core.SameID(st.FacultyID, facultyID) }), nil
}

func (repo *studentRepository) GetStudentByID(_ context.Context, id string) (student.Student, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if st, ok := repo.db.students[id]; ok {
		return *st, nil
	}
	return student.Student{}, student.ErrNotFound
}

func (repo *studentRepository) GetStudentByUserID(_ context.Context, userID string) (student.Student, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	for _, st := range repo.db.students {
		if core.SameID(st.UserID, userID) {
			return *st, nil
		}
	}
	return student.Student{}, student.ErrNotFound
}

func (repo *studentRepository) UpdateStudent(_ context.Context, st student.Student) (student.Student, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	orig, ok := repo.db.students[st.ID]
	if !ok {
		return student.Student{}, student.ErrNotFound
	}
	// the derived fields are not part of an update
	st.OverallGrade = orig.OverallGrade
	st.AverageMarks = orig.AverageMarks
	st.AttendancePercent = orig.AttendancePercent
	repo.db.students[st.ID] = &st
	return st, nil
}

func (repo *studentRepository) DeleteStudentsByID(_ context.Context, ids ...string) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	for _, id := range ids {
		delete(repo.db.students, id)
	}
	return nil
}

func (repo *studentRepository) CountStudentsByFaculty(_ context.Context, facultyID string) (int, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	var count int
	for _, st := range repo.db.students {
		if core.SameID(st.FacultyID, facultyID) {
			count++
		}
	}
	return count, nil
}

func (repo *studentRepository) ReassignStudentsFaculty(_ context.Context, fromFacultyID, toFacultyID string) (int, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	var count int
	for _, st := range repo.db.students {
		if core.SameID(st.FacultyID, fromFacultyID) {
			st.FacultyID = toFacultyID
			st.UpdatedAt = time.Now().UTC()
			count++
		}
	}
	return count, nil
}

func (repo *studentRepository) GetStudentInfo(ctx context.Context, id string) (core.StudentInfo, error) {
	st, err := repo.GetStudentByID(ctx, id)
	if err != nil {
		return core.StudentInfo{}, err
	}
	return core.StudentInfo{ID: st.ID, UserID: st.UserID, FacultyID: st.FacultyID}, nil
}

func (repo *studentRepository) GetStudentInfoByUser(ctx context.Context, userID string) (core.StudentInfo, error) {
	st, err := repo.GetStudentByUserID(ctx, userID)
	if err != nil {
		return core.StudentInfo{}, err
	}
	return core.StudentInfo{ID: st.ID, UserID: st.UserID, FacultyID: st.FacultyID}, nil
}

func (repo *studentRepository) SetAttendancePercent(_ context.Context, id string, pct int) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	st, ok := repo.db.students[id]
	if !ok {
		return student.ErrNotFound
	}
	st.AttendancePercent = pct
	st.UpdatedAt = time.Now().UTC()
	return nil
}

func (repo *studentRepository) SetMarks(_ context.Context, id string, avg int, grade string) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	st, ok := repo.db.students[id]
	if !ok {
		return student.ErrNotFound
	}
	st.AverageMarks = avg
	st.OverallGrade = grade
	st.UpdatedAt = time.Now().UTC()
	return nil
}

func (repo *studentRepository) query(match func(student.Student) bool) []student.Student {
	students := make([]student.Student, 0)
	for _, st := range repo.db.students {
		if match(*st) {
			students = append(students, *st)
		}
	}
	sort.Slice(students, func(i, j int) bool { return students[i].CreatedAt.Before(students[j].CreatedAt) })
	return students
}
