package sqlxrepos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core/attendance"
	"github.com/trezcool/academia/core/student"
)

type dbAttendance struct {
	ID        string    `db:"id"`
	StudentID string    `db:"student_id"`
	FacultyID string    `db:"faculty_id"`
	Date      time.Time `db:"date"`
	Status    string    `db:"status"`
	Remarks   string    `db:"remarks"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

func (a dbAttendance) toAttendance() attendance.Attendance {
	return attendance.Attendance{
		ID:        a.ID,
		StudentID: a.StudentID,
		FacultyID: a.FacultyID,
		Date:      attendance.NormalizeDate(a.Date),
		Status:    a.Status,
		Remarks:   a.Remarks,
		CreatedAt: a.CreatedAt,
		UpdatedAt: a.UpdatedAt,
	}
}

func newDBAttendance(a attendance.Attendance) dbAttendance {
	return dbAttendance{
		ID:        a.ID,
		StudentID: a.StudentID,
		FacultyID: a.FacultyID,
		Date:      attendance.NormalizeDate(a.Date),
		Status:    a.Status,
		Remarks:   a.Remarks,
		CreatedAt: a.CreatedAt.UTC(),
		UpdatedAt: a.UpdatedAt.UTC(),
	}
}

type attendanceRepository struct {
	db *sqlx.DB
}

// interface compliance checks
var (
	_ attendance.Repository    = (*attendanceRepository)(nil)
	_ student.AttendanceSource = (*attendanceRepository)(nil)
)

func NewAttendanceRepository(db *sqlx.DB) *attendanceRepository {
	return &attendanceRepository{db: db}
}

func (repo attendanceRepository) CreateAttendance(ctx context.Context, att attendance.Attendance) (attendance.Attendance, error) {
	att.ID = uuid.New().String()
	q := `INSERT INTO attendance (id, student_id, faculty_id, date, status, remarks, created_at, updated_at)
		  VALUES (:id, :student_id, :faculty_id, :date, :status, :remarks, :created_at, :updated_at)`
	if _, err := repo.db.NamedExecContext(ctx, q, newDBAttendance(att)); err != nil {
		if violatesUnique(err, "attendance_student_date_key") {
			return attendance.Attendance{}, attendance.ErrDuplicateDate
		}
		return attendance.Attendance{}, errors.Wrap(err, "inserting attendance")
	}
	return att, nil
}

func (repo attendanceRepository) GetAttendanceByID(ctx context.Context, id string) (attendance.Attendance, error) {
	var a dbAttendance
	if err := repo.db.GetContext(ctx, &a, `SELECT * FROM attendance WHERE id = $1`, id); err != nil {
		return attendance.Attendance{}, trapNoRowsErr(err, attendance.ErrNotFound, "getting attendance by id")
	}
	return a.toAttendance(), nil
}

func (repo attendanceRepository) GetAttendanceByStudentDate(ctx context.Context, studentID string, date time.Time) (attendance.Attendance, error) {
	var a dbAttendance
	err := repo.db.GetContext(ctx, &a,
		`SELECT * FROM attendance WHERE student_id = $1 AND date = $2`,
		studentID, attendance.NormalizeDate(date),
	)
	if err != nil {
		return attendance.Attendance{}, trapNoRowsErr(err, attendance.ErrNotFound, "getting attendance by student and date")
	}
	return a.toAttendance(), nil
}

func (repo attendanceRepository) QueryAllAttendance(ctx context.Context) ([]attendance.Attendance, error) {
	var rows []dbAttendance
	if err := repo.db.SelectContext(ctx, &rows, `SELECT * FROM attendance ORDER BY date DESC`); err != nil {
		return nil, errors.Wrap(err, "querying attendance")
	}
	return toAttendanceRecords(rows), nil
}

func (repo attendanceRepository) QueryAttendanceByStudent(ctx context.Context, studentID string) ([]attendance.Attendance, error) {
	var rows []dbAttendance
	if err := repo.db.SelectContext(ctx, &rows,
		`SELECT * FROM attendance WHERE student_id = $1 ORDER BY date DESC`, studentID,
	); err != nil {
		return nil, errors.Wrap(err, "querying attendance by student")
	}
	return toAttendanceRecords(rows), nil
}

// QueryAttendanceByFaculty returns the records of students currently assigned
// to the faculty, regardless of which faculty recorded them.
func (repo attendanceRepository) QueryAttendanceByFaculty(ctx context.Context, facultyID string) ([]attendance.Attendance, error) {
	var rows []dbAttendance
	if err := repo.db.SelectContext(ctx, &rows,
		`SELECT a.* FROM attendance a JOIN student s ON a.student_id = s.id WHERE s.faculty_id = $1 ORDER BY a.date DESC`,
		facultyID,
	); err != nil {
		return nil, errors.Wrap(err, "querying attendance by faculty")
	}
	return toAttendanceRecords(rows), nil
}

func (repo attendanceRepository) UpdateAttendance(ctx context.Context, att attendance.Attendance) (attendance.Attendance, error) {
	q := `UPDATE attendance SET status = :status, remarks = :remarks, updated_at = :updated_at WHERE id = :id`
	res, err := repo.db.NamedExecContext(ctx, q, newDBAttendance(att))
	if err != nil {
		return attendance.Attendance{}, errors.Wrap(err, "updating attendance")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return attendance.Attendance{}, attendance.ErrNotFound
	}
	return att, nil
}

func (repo attendanceRepository) DeleteAttendanceByID(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	q, args, err := sqlx.In(`DELETE FROM attendance WHERE id IN (?)`, ids)
	if err != nil {
		return errors.Wrap(err, "building delete query")
	}
	if _, err = repo.db.ExecContext(ctx, repo.db.Rebind(q), args...); err != nil {
		return errors.Wrap(err, "deleting attendance")
	}
	return nil
}

func toAttendanceRecords(rows []dbAttendance) []attendance.Attendance {
	recs := make([]attendance.Attendance, 0, len(rows))
	for _, a := range rows {
		recs = append(recs, a.toAttendance())
	}
	return recs
}
