package sqlxrepos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core/course"
)

type dbCourse struct {
	ID        string         `db:"id"`
	Name      string         `db:"name"`
	Subjects  pq.StringArray `db:"subjects"`
	CreatedAt time.Time      `db:"created_at"`
	UpdatedAt time.Time      `db:"updated_at"`
}

func (c dbCourse) toCourse() course.Course {
	return course.Course{
		ID:        c.ID,
		Name:      c.Name,
		Subjects:  c.Subjects,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

func newDBCourse(c course.Course) dbCourse {
	return dbCourse{
		ID:        c.ID,
		Name:      c.Name,
		Subjects:  c.Subjects,
		CreatedAt: c.CreatedAt.UTC(),
		UpdatedAt: c.UpdatedAt.UTC(),
	}
}

type courseRepository struct {
	db *sqlx.DB
}

var _ course.Repository = (*courseRepository)(nil) // interface compliance check

func NewCourseRepository(db *sqlx.DB) *courseRepository {
	return &courseRepository{db: db}
}

func (repo courseRepository) CheckNameUniqueness(ctx context.Context, name string, excludedCourses ...course.Course) error {
	q := `SELECT EXISTS (SELECT 1 FROM course WHERE lower(name) = lower(?))`
	args := []interface{}{name}
	if len(excludedCourses) > 0 {
		ids := make([]string, 0, len(excludedCourses))
		for _, c := range excludedCourses {
			ids = append(ids, c.ID)
		}
		var err error
		if q, args, err = sqlx.In(`SELECT EXISTS (SELECT 1 FROM course WHERE lower(name) = lower(?) AND id NOT IN (?))`, name, ids); err != nil {
			return errors.Wrap(err, "building uniqueness query")
		}
	}

	var exists bool
	if err := repo.db.GetContext(ctx, &exists, repo.db.Rebind(q), args...); err != nil {
		return errors.Wrap(err, "checking course name uniqueness")
	}
	if exists {
		return course.ErrNameExists
	}
	return nil
}

func (repo courseRepository) CreateCourse(ctx context.Context, c course.Course) (course.Course, error) {
	c.ID = uuid.New().String()
	q := `INSERT INTO course (id, name, subjects, created_at, updated_at)
		  VALUES (:id, :name, :subjects, :created_at, :updated_at)`
	if _, err := repo.db.NamedExecContext(ctx, q, newDBCourse(c)); err != nil {
		if violatesUnique(err, "course_name_key") {
			return course.Course{}, course.ErrNameExists
		}
		return course.Course{}, errors.Wrap(err, "inserting course")
	}
	return c, nil
}

func (repo courseRepository) QueryAllCourses(ctx context.Context) ([]course.Course, error) {
	var rows []dbCourse
	if err := repo.db.SelectContext(ctx, &rows, `SELECT * FROM course ORDER BY name`); err != nil {
		return nil, errors.Wrap(err, "querying courses")
	}
	courses := make([]course.Course, 0, len(rows))
	for _, c := range rows {
		courses = append(courses, c.toCourse())
	}
	return courses, nil
}

func (repo courseRepository) GetCourseByID(ctx context.Context, id string) (course.Course, error) {
	var c dbCourse
	if err := repo.db.GetContext(ctx, &c, `SELECT * FROM course WHERE id = $1`, id); err != nil {
		return course.Course{}, trapNoRowsErr(err, course.ErrNotFound, "getting course by id")
	}
	return c.toCourse(), nil
}

func (repo courseRepository) UpdateCourse(ctx context.Context, c course.Course) (course.Course, error) {
	q := `UPDATE course SET name = :name, subjects = :subjects, updated_at = :updated_at WHERE id = :id`
	res, err := repo.db.NamedExecContext(ctx, q, newDBCourse(c))
	if err != nil {
		if violatesUnique(err, "course_name_key") {
			return course.Course{}, course.ErrNameExists
		}
		return course.Course{}, errors.Wrap(err, "updating course")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return course.Course{}, course.ErrNotFound
	}
	return c, nil
}

func (repo courseRepository) DeleteCoursesByID(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	q, args, err := sqlx.In(`DELETE FROM course WHERE id IN (?)`, ids)
	if err != nil {
		return errors.Wrap(err, "building delete query")
	}
	if _, err = repo.db.ExecContext(ctx, repo.db.Rebind(q), args...); err != nil {
		return errors.Wrap(err, "deleting courses")
	}
	return nil
}
