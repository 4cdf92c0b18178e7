package course

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/user"
)

var (
	// errors
	ErrNotFound   = errors.New("course not found")
	ErrNameExists = errors.New("a course with this name already exists")
)

type (
	Repository interface {
		CheckNameUniqueness(ctx context.Context, name string, excludedCourses ...Course) error
		CreateCourse(ctx context.Context, crs Course) (Course, error)
		QueryAllCourses(ctx context.Context) ([]Course, error)
		GetCourseByID(ctx context.Context, id string) (Course, error)
		UpdateCourse(ctx context.Context, crs Course) (Course, error)
		DeleteCoursesByID(ctx context.Context, ids ...string) error
	}

	ServiceInterface interface {
		CheckNameUniqueness(ctx context.Context, name string, excludedCourses ...Course) error
		QueryAll(ctx context.Context) ([]Course, error)
		GetByID(ctx context.Context, id string) (Course, error)
		Create(ctx context.Context, actor user.Actor, nc NewCourse) (Course, error)
		Update(ctx context.Context, actor user.Actor, id string, uc UpdateCourse) (Course, error)
		Delete(ctx context.Context, actor user.Actor, id string) error
	}

	service struct {
		repo Repository
	}
)

var _ ServiceInterface = (*service)(nil)

func NewService(repo Repository) ServiceInterface {
	return &service{repo: repo}
}

func (svc *service) CheckNameUniqueness(ctx context.Context, name string, exclCourses ...Course) error {
	if err := svc.repo.CheckNameUniqueness(ctx, name, exclCourses...); err != nil {
		if err == ErrNameExists {
			return core.NewValidationError(err, core.FieldError{Field: "name", Error: err.Error()})
		}
		return err
	}
	return nil
}

// QueryAll lists courses; any authenticated principal may read them.
func (svc *service) QueryAll(ctx context.Context) ([]Course, error) {
	return svc.repo.QueryAllCourses(ctx)
}

func (svc *service) GetByID(ctx context.Context, id string) (Course, error) {
	return svc.repo.GetCourseByID(ctx, id)
}

func (svc *service) Create(ctx context.Context, actor user.Actor, nc NewCourse) (Course, error) {
	if !actor.IsAdmin() {
		return Course{}, core.ErrPermissionDenied
	}
	if err := nc.Validate(ctx, svc); err != nil {
		return Course{}, err
	}

	now := time.Now().UTC()
	crs := Course{
		Name:      nc.Name,
		Subjects:  nc.Subjects,
		CreatedAt: now,
		UpdatedAt: now,
	}
	return svc.repo.CreateCourse(ctx, crs)
}

func (svc *service) Update(ctx context.Context, actor user.Actor, id string, uc UpdateCourse) (Course, error) {
	if !actor.IsAdmin() {
		return Course{}, core.ErrPermissionDenied
	}
	crs, err := svc.repo.GetCourseByID(ctx, id)
	if err != nil {
		return Course{}, err
	}
	if err = uc.Validate(ctx, crs, svc); err != nil {
		return Course{}, err
	}

	if uc.Name != "" {
		crs.Name = uc.Name
	}
	if len(uc.Subjects) > 0 {
		crs.Subjects = uc.Subjects
	}
	crs.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateCourse(ctx, crs)
}

func (svc *service) Delete(ctx context.Context, actor user.Actor, id string) error {
	if !actor.IsAdmin() {
		return core.ErrPermissionDenied
	}
	if _, err := svc.repo.GetCourseByID(ctx, id); err != nil {
		return err
	}
	return svc.repo.DeleteCoursesByID(ctx, id)
}
