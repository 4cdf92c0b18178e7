package inmemdb

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/marks"
	"github.com/trezcool/academia/core/student"
)

type marksRepository struct {
	db *DB
}

// interface compliance checks
var (
	_ marks.Repository    = (*marksRepository)(nil)
	_ student.MarksSource = (*marksRepository)(nil)
)

func NewMarksRepository(db *DB) *marksRepository {
	return &marksRepository{db: db}
}

func (repo *marksRepository) CreateMarks(_ context.Context, m marks.Marks) (marks.Marks, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	m.ID = uuid.New().String()
	repo.db.marks[m.ID] = &m
	return m, nil
}

func (repo *marksRepository) GetMarksByID(_ context.Context, id string) (marks.Marks, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if m, ok := repo.db.marks[id]; ok {
		return *m, nil
	}
	return marks.Marks{}, marks.ErrNotFound
}

func (repo *marksRepository) QueryAllMarks(_ context.Context) ([]marks.Marks, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()
	return repo.query(func(marks.Marks) bool { return true }), nil
}

func (repo *marksRepository) QueryMarksByStudent(_ context.Context, studentID string) ([]marks.Marks, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()
	return repo.query(func(m marks.Marks) bool { return core.SameID(m.StudentID, studentID) }), nil
}

func (repo *marksRepository) QueryMarksByFaculty(_ context.Context, facultyID string) ([]marks.Marks, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	assigned := make(map[string]bool)
	for _, st := range repo.db.students {
		if core.SameID(st.FacultyID, facultyID) {
			assigned[st.ID] = true
		}
	}
	return repo.query(func(m marks.Marks) bool {
		return core.SameID(m.CreatedBy, facultyID) && assigned[m.StudentID]
	}), nil
}

func (repo *marksRepository) UpdateMarks(_ context.Context, m marks.Marks) (marks.Marks, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	orig, ok := repo.db.marks[m.ID]
	if !ok {
		return marks.Marks{}, marks.ErrNotFound
	}
	// the student and author are fixed
	m.StudentID = orig.StudentID
	m.CreatedBy = orig.CreatedBy
	repo.db.marks[m.ID] = &m
	return m, nil
}

func (repo *marksRepository) DeleteMarksByID(_ context.Context, ids ...string) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	for _, id := range ids {
		delete(repo.db.marks, id)
	}
	return nil
}

func (repo *marksRepository) query(match func(marks.Marks) bool) []marks.Marks {
	recs := make([]marks.Marks, 0)
	for _, m := range repo.db.marks {
		if match(*m) {
			recs = append(recs, *m)
		}
	}
	sort.Slice(recs, func(i, j int) bool { return recs[i].ExamDate.After(recs[j].ExamDate) })
	return recs
}
