package course

import (
	"context"
	"time"

	"github.com/trezcool/academia/core"
)

type Course struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Subjects  []string  `json:"subjects"`
	CreatedAt time.Time `json:"created_at"` // UTC
	UpdatedAt time.Time `json:"updated_at"` // UTC
}

// HasSubject reports whether subj belongs to the course's subject set.
func (c Course) HasSubject(subj string) bool {
	subj = core.CleanString(subj, true /* lower */)
	for _, s := range c.Subjects {
		if core.CleanString(s, true /* lower */) == subj {
			return true
		}
	}
	return false
}

// NewCourse contains information needed to create a new Course.
type NewCourse struct {
	Name     string   `json:"name" validate:"required"`
	Subjects []string `json:"subjects" validate:"required,min=1,dive,required"`
}

func (nc *NewCourse) Validate(ctx context.Context, svc ServiceInterface) error {
	nc.Name = core.CleanString(nc.Name)
	nc.Subjects = cleanSubjects(nc.Subjects)

	if err := core.Validate.Struct(nc); err != nil {
		return err
	}
	return svc.CheckNameUniqueness(ctx, nc.Name)
}

// UpdateCourse defines what may be modified on an existing Course.
// Empty fields are left untouched.
type UpdateCourse struct {
	Name     string   `json:"name"`
	Subjects []string `json:"subjects" validate:"omitempty,min=1,dive,required"`
}

func (uc *UpdateCourse) Validate(ctx context.Context, orig Course, svc ServiceInterface) error {
	uc.Name = core.CleanString(uc.Name)
	uc.Subjects = cleanSubjects(uc.Subjects)

	if err := core.Validate.Struct(uc); err != nil {
		return err
	}
	if uc.Name != "" && uc.Name != orig.Name {
		return svc.CheckNameUniqueness(ctx, uc.Name, orig)
	}
	return nil
}

// cleanSubjects trims each subject, drops empties and case-insensitive
// duplicates.
func cleanSubjects(subjects []string) []string {
	if subjects == nil {
		return nil
	}
	c := Course{Subjects: make([]string, 0, len(subjects))}
	for _, s := range subjects {
		if s = core.CleanString(s); s != "" && !c.HasSubject(s) {
			c.Subjects = append(c.Subjects, s)
		}
	}
	return c.Subjects
}
