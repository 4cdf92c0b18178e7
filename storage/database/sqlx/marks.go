package sqlxrepos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core/marks"
	"github.com/trezcool/academia/core/student"
)

type dbMarks struct {
	ID            string    `db:"id"`
	StudentID     string    `db:"student_id"`
	Subject       string    `db:"subject"`
	ExamType      string    `db:"exam_type"`
	MaxMarks      int       `db:"max_marks"`
	MarksObtained int       `db:"marks_obtained"`
	Percentage    int       `db:"percentage"`
	Grade         string    `db:"grade"`
	ExamDate      time.Time `db:"exam_date"`
	CreatedBy     string    `db:"created_by"`
	CreatedAt     time.Time `db:"created_at"`
	UpdatedAt     time.Time `db:"updated_at"`
}

func (m dbMarks) toMarks() marks.Marks {
	return marks.Marks{
		ID:            m.ID,
		StudentID:     m.StudentID,
		Subject:       m.Subject,
		ExamType:      m.ExamType,
		MaxMarks:      m.MaxMarks,
		MarksObtained: m.MarksObtained,
		Percentage:    m.Percentage,
		Grade:         m.Grade,
		ExamDate:      m.ExamDate,
		CreatedBy:     m.CreatedBy,
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}
}

func newDBMarks(m marks.Marks) dbMarks {
	return dbMarks{
		ID:            m.ID,
		StudentID:     m.StudentID,
		Subject:       m.Subject,
		ExamType:      m.ExamType,
		MaxMarks:      m.MaxMarks,
		MarksObtained: m.MarksObtained,
		Percentage:    m.Percentage,
		Grade:         m.Grade,
		ExamDate:      m.ExamDate.UTC(),
		CreatedBy:     m.CreatedBy,
		CreatedAt:     m.CreatedAt.UTC(),
		UpdatedAt:     m.UpdatedAt.UTC(),
	}
}

type marksRepository struct {
	db *sqlx.DB
}

// interface compliance checks
var (
	_ marks.Repository    = (*marksRepository)(nil)
	_ student.MarksSource = (*marksRepository)(nil)
)

func NewMarksRepository(db *sqlx.DB) *marksRepository {
	return &marksRepository{db: db}
}

func (repo marksRepository) CreateMarks(ctx context.Context, m marks.Marks) (marks.Marks, error) {
	m.ID = uuid.New().String()
	q := `INSERT INTO marks (id, student_id, subject, exam_type, max_marks, marks_obtained, percentage, grade, exam_date, created_by, created_at, updated_at)
		  VALUES (:id, :student_id, :subject, :exam_type, :max_marks, :marks_obtained, :percentage, :grade, :exam_date, :created_by, :created_at, :updated_at)`
	if _, err := repo.db.NamedExecContext(ctx, q, newDBMarks(m)); err != nil {
		return marks.Marks{}, errors.Wrap(err, "inserting marks")
	}
	return m, nil
}

func (repo marksRepository) GetMarksByID(ctx context.Context, id string) (marks.Marks, error) {
	var m dbMarks
	if err := repo.db.GetContext(ctx, &m, `SELECT * FROM marks WHERE id = $1`, id); err != nil {
		return marks.Marks{}, trapNoRowsErr(err, marks.ErrNotFound, "getting marks by id")
	}
	return m.toMarks(), nil
}

func (repo marksRepository) QueryAllMarks(ctx context.Context) ([]marks.Marks, error) {
	var rows []dbMarks
	if err := repo.db.SelectContext(ctx, &rows, `SELECT * FROM marks ORDER BY exam_date DESC`); err != nil {
		return nil, errors.Wrap(err, "querying marks")
	}
	return toMarksRecords(rows), nil
}

func (repo marksRepository) QueryMarksByStudent(ctx context.Context, studentID string) ([]marks.Marks, error) {
	var rows []dbMarks
	if err := repo.db.SelectContext(ctx, &rows,
		`SELECT * FROM marks WHERE student_id = $1 ORDER BY exam_date DESC`, studentID,
	); err != nil {
		return nil, errors.Wrap(err, "querying marks by student")
	}
	return toMarksRecords(rows), nil
}

// QueryMarksByFaculty returns the records the faculty authored for students
// still assigned to them.
func (repo marksRepository) QueryMarksByFaculty(ctx context.Context, facultyID string) ([]marks.Marks, error) {
	var rows []dbMarks
	if err := repo.db.SelectContext(ctx, &rows,
		`SELECT m.* FROM marks m JOIN student s ON m.student_id = s.id
		 WHERE m.created_by = $1 AND s.faculty_id = $1 ORDER BY m.exam_date DESC`,
		facultyID,
	); err != nil {
		return nil, errors.Wrap(err, "querying marks by faculty")
	}
	return toMarksRecords(rows), nil
}

func (repo marksRepository) UpdateMarks(ctx context.Context, m marks.Marks) (marks.Marks, error) {
	q := `UPDATE marks
		  SET subject = :subject, exam_type = :exam_type, max_marks = :max_marks, marks_obtained = :marks_obtained,
			  percentage = :percentage, grade = :grade, exam_date = :exam_date, updated_at = :updated_at
		  WHERE id = :id`
	res, err := repo.db.NamedExecContext(ctx, q, newDBMarks(m))
	if err != nil {
		return marks.Marks{}, errors.Wrap(err, "updating marks")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return marks.Marks{}, marks.ErrNotFound
	}
	return m, nil
}

func (repo marksRepository) DeleteMarksByID(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	q, args, err := sqlx.In(`DELETE FROM marks WHERE id IN (?)`, ids)
	if err != nil {
		return errors.Wrap(err, "building delete query")
	}
	if _, err = repo.db.ExecContext(ctx, repo.db.Rebind(q), args...); err != nil {
		return errors.Wrap(err, "deleting marks")
	}
	return nil
}

func toMarksRecords(rows []dbMarks) []marks.Marks {
	recs := make([]marks.Marks, 0, len(rows))
	for _, m := range rows {
		recs = append(recs, m.toMarks())
	}
	return recs
}
