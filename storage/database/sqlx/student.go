package sqlxrepos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/attendance"
	"github.com/trezcool/academia/core/marks"
	"github.com/trezcool/academia/core/student"
	"github.com/trezcool/academia/core/user"
)

type dbStudent struct {
	ID                string    `db:"id"`
	UserID            string    `db:"user_id"`
	CourseID          string    `db:"course_id"`
	FacultyID         string    `db:"faculty_id"`
	OverallGrade      string    `db:"overall_grade"`
	AverageMarks      int       `db:"average_marks"`
	AttendancePercent int       `db:"attendance_percent"`
	CreatedAt         time.Time `db:"created_at"`
	UpdatedAt         time.Time `db:"updated_at"`
}

func (s dbStudent) toStudent() student.Student {
	return student.Student{
		ID:                s.ID,
		UserID:            s.UserID,
		CourseID:          s.CourseID,
		FacultyID:         s.FacultyID,
		OverallGrade:      s.OverallGrade,
		AverageMarks:      s.AverageMarks,
		AttendancePercent: s.AttendancePercent,
		CreatedAt:         s.CreatedAt,
		UpdatedAt:         s.UpdatedAt,
	}
}

func newDBStudent(s student.Student) dbStudent {
	return dbStudent{
		ID:                s.ID,
		UserID:            s.UserID,
		CourseID:          s.CourseID,
		FacultyID:         s.FacultyID,
		OverallGrade:      s.OverallGrade,
		AverageMarks:      s.AverageMarks,
		AttendancePercent: s.AttendancePercent,
		CreatedAt:         s.CreatedAt.UTC(),
		UpdatedAt:         s.UpdatedAt.UTC(),
	}
}

type studentRepository struct {
	db *sqlx.DB
}

// interface compliance checks
var (
	_ student.Repository          = (*studentRepository)(nil)
	_ user.StudentDirectory       = (*studentRepository)(nil)
	_ attendance.StudentDirectory = (*studentRepository)(nil)
	_ marks.StudentDirectory      = (*studentRepository)(nil)
)

func NewStudentRepository(db *sqlx.DB) *studentRepository {
	return &studentRepository{db: db}
}

func (repo studentRepository) CreateStudent(ctx context.Context, st student.Student) (student.Student, error) {
	st.ID = uuid.New().String()
	q := `INSERT INTO student (id, user_id, course_id, faculty_id, overall_grade, average_marks, attendance_percent, created_at, updated_at)
		  VALUES (:id, :user_id, :course_id, :faculty_id, :overall_grade, :average_marks, :attendance_percent, :created_at, :updated_at)`
	if _, err := repo.db.NamedExecContext(ctx, q, newDBStudent(st)); err != nil {
		if violatesUnique(err, "student_user_id_key") {
			return student.Student{}, student.ErrUserTaken
		}
		return student.Student{}, errors.Wrap(err, "inserting student")
	}
	return st, nil
}

func (repo studentRepository) QueryAllStudents(ctx context.Context) ([]student.Student, error) {
	var rows []dbStudent
	if err := repo.db.SelectContext(ctx, &rows, `SELECT * FROM student ORDER BY created_at`); err != nil {
		return nil, errors.Wrap(err, "querying students")
	}
	return toStudents(rows), nil
}

func (repo studentRepository) QueryStudentsByFaculty(ctx context.Context, facultyID string) ([]student.Student, error) {
	var rows []dbStudent
	if err := repo.db.SelectContext(ctx, &rows, `SELECT * FROM student WHERE faculty_id = $1 ORDER BY created_at`, facultyID); err != nil {
		return nil, errors.Wrap(err, "querying students by faculty")
	}
	return toStudents(rows), nil
}

func (repo studentRepository) GetStudentByID(ctx context.Context, id string) (student.Student, error) {
	var s dbStudent
	if err := repo.db.GetContext(ctx, &s, `SELECT * FROM student WHERE id = $1`, id); err != nil {
		return student.Student{}, trapNoRowsErr(err, student.ErrNotFound, "getting student by id")
	}
	return s.toStudent(), nil
}

func (repo studentRepository) GetStudentByUserID(ctx context.Context, userID string) (student.Student, error) {
	var s dbStudent
	if err := repo.db.GetContext(ctx, &s, `SELECT * FROM student WHERE user_id = $1`, userID); err != nil {
		return student.Student{}, trapNoRowsErr(err, student.ErrNotFound, "getting student by user id")
	}
	return s.toStudent(), nil
}

func (repo studentRepository) UpdateStudent(ctx context.Context, st student.Student) (student.Student, error) {
	q := `UPDATE student SET course_id = :course_id, faculty_id = :faculty_id, updated_at = :updated_at WHERE id = :id`
	res, err := repo.db.NamedExecContext(ctx, q, newDBStudent(st))
	if err != nil {
		return student.Student{}, errors.Wrap(err, "updating student")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return student.Student{}, student.ErrNotFound
	}
	return st, nil
}

func (repo studentRepository) DeleteStudentsByID(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	q, args, err := sqlx.In(`DELETE FROM student WHERE id IN (?)`, ids)
	if err != nil {
		return errors.Wrap(err, "building delete query")
	}
	if _, err = repo.db.ExecContext(ctx, repo.db.Rebind(q), args...); err != nil {
		return errors.Wrap(err, "deleting students")
	}
	return nil
}

func (repo studentRepository) CountStudentsByFaculty(ctx context.Context, facultyID string) (int, error) {
	var count int
	if err := repo.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM student WHERE faculty_id = $1`, facultyID); err != nil {
		return 0, errors.Wrap(err, "counting students by faculty")
	}
	return count, nil
}

// ReassignStudentsFaculty moves every student assigned to fromFacultyID over
// to toFacultyID and returns the number of students moved.
func (repo studentRepository) ReassignStudentsFaculty(ctx context.Context, fromFacultyID, toFacultyID string) (int, error) {
	res, err := repo.db.ExecContext(ctx,
		`UPDATE student SET faculty_id = $1, updated_at = $2 WHERE faculty_id = $3`,
		toFacultyID, time.Now().UTC(), fromFacultyID,
	)
	if err != nil {
		return 0, errors.Wrap(err, "reassigning students")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, "reassigning students")
	}
	return int(n), nil
}

func (repo studentRepository) GetStudentInfo(ctx context.Context, id string) (core.StudentInfo, error) {
	var info core.StudentInfo
	err := repo.db.QueryRowxContext(ctx, `SELECT id, user_id, faculty_id FROM student WHERE id = $1`, id).
		Scan(&info.ID, &info.UserID, &info.FacultyID)
	if err != nil {
		return core.StudentInfo{}, trapNoRowsErr(err, student.ErrNotFound, "getting student info")
	}
	return info, nil
}

func (repo studentRepository) GetStudentInfoByUser(ctx context.Context, userID string) (core.StudentInfo, error) {
	var info core.StudentInfo
	err := repo.db.QueryRowxContext(ctx, `SELECT id, user_id, faculty_id FROM student WHERE user_id = $1`, userID).
		Scan(&info.ID, &info.UserID, &info.FacultyID)
	if err != nil {
		return core.StudentInfo{}, trapNoRowsErr(err, student.ErrNotFound, "getting student info by user")
	}
	return info, nil
}

func (repo studentRepository) SetAttendancePercent(ctx context.Context, id string, pct int) error {
	if _, err := repo.db.ExecContext(ctx,
		`UPDATE student SET attendance_percent = $1, updated_at = $2 WHERE id = $3`,
		pct, time.Now().UTC(), id,
	); err != nil {
		return errors.Wrap(err, "setting attendance percentage")
	}
	return nil
}

func (repo studentRepository) SetMarks(ctx context.Context, id string, avg int, grade string) error {
	if _, err := repo.db.ExecContext(ctx,
		`UPDATE student SET average_marks = $1, overall_grade = $2, updated_at = $3 WHERE id = $4`,
		avg, grade, time.Now().UTC(), id,
	); err != nil {
		return errors.Wrap(err, "setting overall marks")
	}
	return nil
}

func toStudents(rows []dbStudent) []student.Student {
	students := make([]student.Student, 0, len(rows))
	for _, s := range rows {
		students = append(students, s.toStudent())
	}
	return students
}
