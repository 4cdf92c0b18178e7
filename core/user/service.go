package user

import (
	"context"
	"fmt"
	"net/mail"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
)

var (
	// errors
	ErrNotFound           = errors.New("user not found")
	ErrEmailExists        = errors.New("a user with this email already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// defaultStudentPassword seeds provisioned student accounts; holders are
// expected to rotate it via the change-password endpoint.
const defaultStudentPassword = "1234"

// ReassignmentRequiredError rejects a faculty deletion that would orphan
// students. No mutation has happened when it is returned; the caller retries
// with a reassignment target.
type ReassignmentRequiredError struct {
	StudentCount int
}

func (err ReassignmentRequiredError) Error() string {
	return fmt.Sprintf("this faculty has %d assigned student(s); reassignment required", err.StudentCount)
}

type (
	Repository interface {
		CheckEmailUniqueness(ctx context.Context, email string, excludedUsers ...User) error
		CreateUser(ctx context.Context, usr User) (User, error)
		GetUserByID(ctx context.Context, id string) (User, error)
		GetUserByEmail(ctx context.Context, email string) (User, error)
		QueryUsersByRole(ctx context.Context, role string) ([]User, error)
		UpdateUser(ctx context.Context, usr User) (User, error)
		DeleteUsersByID(ctx context.Context, ids ...string) error
	}

	// StudentDirectory is the slice of the student store the faculty
	// deletion cascade needs.
	StudentDirectory interface {
		CountStudentsByFaculty(ctx context.Context, facultyID string) (int, error)
		ReassignStudentsFaculty(ctx context.Context, fromFacultyID, toFacultyID string) (int, error)
	}

	ServiceInterface interface {
		CheckEmailUniqueness(ctx context.Context, email string, excludedUsers ...User) error
		Register(ctx context.Context, nu NewUser) (User, error)
		Authenticate(ctx context.Context, email, pwd string) (User, error)
		GetByID(ctx context.Context, id string) (User, error)
		GetByEmail(ctx context.Context, email string) (User, error)
		ChangePassword(ctx context.Context, actor Actor, data ChangePassword) error
		ProvisionStudentAccount(ctx context.Context, name, email string) (User, error)
		QueryFaculty(ctx context.Context, actor Actor) ([]User, error)
		CreateFaculty(ctx context.Context, actor Actor, data NewUser) (User, error)
		UpdateFaculty(ctx context.Context, actor Actor, id string, data UpdateFaculty) (User, error)
		DeleteFaculty(ctx context.Context, actor Actor, id, reassignTo string) (int, error)
		FacultyStudentCount(ctx context.Context, actor Actor, id string) (int, error)
	}

	service struct {
		repo     Repository
		students StudentDirectory
		mailSvc  core.EmailService
	}
)

var _ ServiceInterface = (*service)(nil)

func NewService(repo Repository, students StudentDirectory, mailSvc core.EmailService) ServiceInterface {
	return &service{
		repo:     repo,
		students: students,
		mailSvc:  mailSvc,
	}
}

func (svc *service) CheckEmailUniqueness(ctx context.Context, email string, exclUsers ...User) error {
	if err := svc.repo.CheckEmailUniqueness(ctx, email, exclUsers...); err != nil {
		if err == ErrEmailExists {
			return core.NewValidationError(err, core.FieldError{Field: "email", Error: err.Error()})
		}
		return err
	}
	return nil
}

func (svc *service) Register(ctx context.Context, nu NewUser) (User, error) {
	now := time.Now().UTC()
	usr := User{
		Name:      nu.Name,
		Email:     nu.Email,
		Role:      nu.Role,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := usr.SetPassword(nu.Password); err != nil {
		return User{}, errors.Wrap(err, "setting password")
	}
	return svc.repo.CreateUser(ctx, usr)
}

func (svc *service) Authenticate(ctx context.Context, email, pwd string) (User, error) {
	usr, err := svc.GetByEmail(ctx, email)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return User{}, ErrInvalidCredentials
		}
		return User{}, errors.Wrap(err, "finding user by email")
	}
	if err = usr.CheckPassword(pwd); err != nil {
		return User{}, ErrInvalidCredentials
	}
	return usr, nil
}

func (svc *service) GetByID(ctx context.Context, id string) (User, error) {
	return svc.repo.GetUserByID(ctx, id)
}

func (svc *service) GetByEmail(ctx context.Context, email string) (User, error) {
	return svc.repo.GetUserByEmail(ctx, core.CleanString(email, true /* lower */))
}

func (svc *service) ChangePassword(ctx context.Context, actor Actor, data ChangePassword) error {
	usr, err := svc.repo.GetUserByID(ctx, actor.ID)
	if err != nil {
		return errors.Wrap(err, "finding user by ID")
	}
	if err = usr.CheckPassword(data.OldPassword); err != nil {
		return core.NewValidationError(
			errors.New("password mismatch"),
			core.FieldError{Field: "old_password", Error: "old password is incorrect"},
		)
	}
	if err = usr.SetPassword(data.NewPassword); err != nil {
		return errors.Wrap(err, "setting password")
	}
	usr.UpdatedAt = time.Now().UTC()
	if _, err = svc.repo.UpdateUser(ctx, usr); err != nil {
		return errors.Wrap(err, "updating user")
	}
	return nil
}

// ProvisionStudentAccount creates the user account backing a new student
// profile with the default password and mails the credentials.
func (svc *service) ProvisionStudentAccount(ctx context.Context, name, email string) (User, error) {
	email = core.CleanString(email, true /* lower */)
	if err := svc.CheckEmailUniqueness(ctx, email); err != nil {
		return User{}, err
	}

	now := time.Now().UTC()
	usr := User{
		Name:      core.CleanString(name),
		Email:     email,
		Role:      RoleStudent,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := usr.SetPassword(defaultStudentPassword); err != nil {
		return User{}, errors.Wrap(err, "setting password")
	}
	usr, err := svc.repo.CreateUser(ctx, usr)
	if err != nil {
		return User{}, errors.Wrap(err, "creating user")
	}
	svc.sendWelcomeMail(usr, defaultStudentPassword)
	return usr, nil
}

func (svc *service) QueryFaculty(ctx context.Context, actor Actor) ([]User, error) {
	if !actor.IsAdmin() {
		return nil, core.ErrPermissionDenied
	}
	return svc.repo.QueryUsersByRole(ctx, RoleFaculty)
}

func (svc *service) CreateFaculty(ctx context.Context, actor Actor, data NewUser) (User, error) {
	if !actor.IsAdmin() {
		return User{}, core.ErrPermissionDenied
	}
	data.Role = RoleFaculty
	usr, err := svc.Register(ctx, data)
	if err != nil {
		return User{}, err
	}
	svc.sendWelcomeMail(usr, data.Password)
	return usr, nil
}

func (svc *service) UpdateFaculty(ctx context.Context, actor Actor, id string, data UpdateFaculty) (User, error) {
	if !actor.IsAdmin() {
		return User{}, core.ErrPermissionDenied
	}
	usr, err := svc.getFaculty(ctx, id)
	if err != nil {
		return User{}, err
	}
	if err = data.Validate(ctx, usr, svc); err != nil {
		return User{}, err
	}

	if data.Name != "" {
		usr.Name = data.Name
	}
	if data.Email != "" {
		usr.Email = data.Email
	}
	if data.Password != "" {
		if err = usr.SetPassword(data.Password); err != nil {
			return User{}, errors.Wrap(err, "setting password")
		}
	}
	usr.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateUser(ctx, usr)
}

// DeleteFaculty deletes a faculty account, first reassigning any dependent
// students to another faculty. Two-phase: students are reassigned before the
// account is deleted, so a failure in between leaves the account orphaned but
// harmless and the operation retryable (the dependent count is then 0).
// Returns the number of students reassigned.
func (svc *service) DeleteFaculty(ctx context.Context, actor Actor, id, reassignTo string) (int, error) {
	if !actor.IsAdmin() {
		return 0, core.ErrPermissionDenied
	}
	fac, err := svc.getFaculty(ctx, id)
	if err != nil {
		return 0, err
	}

	count, err := svc.students.CountStudentsByFaculty(ctx, fac.ID)
	if err != nil {
		return 0, errors.Wrap(err, "counting assigned students")
	}
	if count > 0 {
		if reassignTo == "" {
			return 0, &ReassignmentRequiredError{StudentCount: count}
		}
		if core.SameID(fac.ID, reassignTo) {
			return 0, core.NewValidationError(
				errors.New("invalid reassignment target"),
				core.FieldError{Field: "reassign_to", Error: "cannot reassign students to the faculty being deleted"},
			)
		}
		target, err := svc.getFaculty(ctx, reassignTo)
		if err != nil {
			if errors.Cause(err) == ErrNotFound {
				return 0, core.NewValidationError(
					errors.New("invalid reassignment target"),
					core.FieldError{Field: "reassign_to", Error: "target faculty for reassignment not found"},
				)
			}
			return 0, err
		}
		if count, err = svc.students.ReassignStudentsFaculty(ctx, fac.ID, target.ID); err != nil {
			return 0, errors.Wrap(err, "reassigning students")
		}
	}

	if err = svc.repo.DeleteUsersByID(ctx, fac.ID); err != nil {
		return count, errors.Wrap(err, "deleting faculty")
	}
	return count, nil
}

func (svc *service) FacultyStudentCount(ctx context.Context, actor Actor, id string) (int, error) {
	if !actor.IsAdmin() {
		return 0, core.ErrPermissionDenied
	}
	fac, err := svc.getFaculty(ctx, id)
	if err != nil {
		return 0, err
	}
	return svc.students.CountStudentsByFaculty(ctx, fac.ID)
}

// getFaculty loads a user by id and ensures it holds the faculty role;
// any other role is reported as not found, mirroring the lookup filter.
func (svc *service) getFaculty(ctx context.Context, id string) (User, error) {
	usr, err := svc.repo.GetUserByID(ctx, id)
	if err != nil {
		return User{}, err
	}
	if !usr.IsFaculty() {
		return User{}, ErrNotFound
	}
	return usr, nil
}

func (svc *service) sendWelcomeMail(usr User, rawPwd string) {
	if svc.mailSvc == nil {
		return
	}
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:      []mail.Address{{Name: usr.Name, Address: usr.Email}},
		Subject: "Your account is ready",
		BodyStr: fmt.Sprintf(
			"Hi %s,\n\nAn account has been created for you.\n\nEmail: %s\nPassword: %s\n\n"+
				"Please sign in at %s and change your password.\n",
			usr.Name, usr.Email, rawPwd, core.Conf.FrontendBaseURL,
		),
	})
}
