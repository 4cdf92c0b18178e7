package user

import (
	"context"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/trezcool/academia/core"
)

// Roles. A user carries exactly one role, fixed at creation.
const (
	RoleAdmin   = "admin"
	RoleFaculty = "faculty"
	RoleStudent = "student"
)

var AllRoles = []string{RoleAdmin, RoleStudent, RoleFaculty}

func ValidRole(role string) bool {
	for _, r := range AllRoles {
		if r == role {
			return true
		}
	}
	return false
}

type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	Role         string    `json:"role"`
	PasswordHash []byte    `json:"-"`
	CreatedAt    time.Time `json:"created_at"` // UTC
	UpdatedAt    time.Time `json:"updated_at"` // UTC
}

func (u *User) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	return nil
}

func (u *User) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(pwd))
}

func (u User) IsAdmin() bool   { return u.Role == RoleAdmin }
func (u User) IsFaculty() bool { return u.Role == RoleFaculty }
func (u User) IsStudent() bool { return u.Role == RoleStudent }

func (u User) Actor() Actor {
	return Actor{ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role}
}

// Actor is the acting principal as asserted by a verified token. Policy
// checks compare Actor.ID against stored references via core.SameID only.
type Actor struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

func (a Actor) IsAdmin() bool   { return a.Role == RoleAdmin }
func (a Actor) IsFaculty() bool { return a.Role == RoleFaculty }
func (a Actor) IsStudent() bool { return a.Role == RoleStudent }

// Same reports whether the actor is the principal identified by id.
func (a Actor) Same(id string) bool { return core.SameID(a.ID, id) }

// NewUser contains information needed to create a new User.
type NewUser struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
	Role     string `json:"role" validate:"omitempty,oneof=admin faculty student"`
}

func (nu *NewUser) Validate(ctx context.Context, svc ServiceInterface) error {
	nu.Name = core.CleanString(nu.Name)
	nu.Email = core.CleanString(nu.Email, true /* lower */)
	if nu.Role == "" {
		nu.Role = RoleStudent
	}

	if err := core.Validate.Struct(nu); err != nil {
		return err
	}
	return svc.CheckEmailUniqueness(ctx, nu.Email)
}

// UpdateFaculty defines what an admin may change on a faculty account.
// The role itself is immutable.
type UpdateFaculty struct {
	Name     string `json:"name"`
	Email    string `json:"email" validate:"omitempty,email"`
	Password string `json:"password"`
}

func (uf *UpdateFaculty) Validate(ctx context.Context, orig User, svc ServiceInterface) error {
	uf.Name = core.CleanString(uf.Name)
	uf.Email = core.CleanString(uf.Email, true /* lower */)

	if err := core.Validate.Struct(uf); err != nil {
		return err
	}
	if uf.Email != "" && uf.Email != orig.Email {
		return svc.CheckEmailUniqueness(ctx, uf.Email, orig)
	}
	return nil
}

// ChangePassword rotates a user's own credential; the current one must be
// presented and checked first.
type ChangePassword struct {
	OldPassword string `json:"old_password" validate:"required"`
	NewPassword string `json:"new_password" validate:"required"`
}

func (cp *ChangePassword) Validate() error {
	return core.Validate.Struct(cp)
}
