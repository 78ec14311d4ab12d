package user

import (
	"context"
	"net/mail"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/kitab-bazar/server/core"
)

var (
	// errors
	ErrNotFound        = errors.New("user not found")
	ErrEmailExists     = errors.New("a user with this email already exists")
	ErrInvalidPassword = errors.New("invalid password")

	// OrderingFields maps the public ordering fields to their columns.
	OrderingFields = map[string]string{
		"full_name":  "full_name",
		"email":      "email",
		"user_type":  "user_type",
		"is_active":  "is_active",
		"created_at": "created_at",
		"last_login": "last_login",
	}
)

type (
	Repository interface {
		// CheckEmailUniqueness returns ErrEmailExists if a user other than excludedUsers owns email.
		CheckEmailUniqueness(ctx context.Context, email string, excludedUsers []User) error
		CreateUser(ctx context.Context, usr User) (User, error)
		// QueryUsers applies AND operation on available QueryFilter fields.
		// QueryFilter.Search does a case-insensitive match on one of User.FullName, User.Email or User.PhoneNumber.
		QueryUsers(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]User, error)
		GetUser(ctx context.Context, filter GetFilter) (User, error)
		GetUsersByID(ctx context.Context, ids []string) ([]User, error)
		UpdateUser(ctx context.Context, usr User) (User, error)
		DeleteUsersByID(ctx context.Context, ids []string) (int, error)
	}

	Service struct {
		repo     Repository
		tasks    core.TaskQueue
		validate *validator.Validate
		tokens   tokenGenerator
		logger   core.Logger
	}
)

func NewService(repo Repository, tasks core.TaskQueue, validate *validator.Validate, conf *core.Config, logger core.Logger) *Service {
	return &Service{
		repo:     repo,
		tasks:    tasks,
		validate: validate,
		tokens:   newTokenGenerator(conf.SecretKey, conf.PasswordResetTimeoutDelta),
		logger:   logger,
	}
}

func (svc *Service) Validator() *validator.Validate { return svc.validate }

func (svc *Service) CheckUniqueness(ctx context.Context, email string, exclUsers ...User) error {
	if err := svc.repo.CheckEmailUniqueness(ctx, email, exclUsers); err != nil {
		if errors.Cause(err) == ErrEmailExists {
			return core.NewValidationError(err, core.FieldError{Field: "email", Error: err.Error()})
		}
		return err
	}
	return nil
}

// Create validates nu and creates a new active User.
func (svc *Service) Create(ctx context.Context, nu NewUser) (User, error) {
	if err := nu.Validate(ctx, svc.validate, svc); err != nil {
		return User{}, err
	}
	now := time.Now().UTC()
	usr := User{
		FullName:      nu.FullName,
		Email:         nu.Email,
		PhoneNumber:   nu.PhoneNumber,
		UserType:      nu.UserType,
		PublisherID:   nu.PublisherID,
		SchoolID:      nu.SchoolID,
		InstitutionID: nu.InstitutionID,
		IsActive:      true,
		IsVerified:    nu.IsVerified,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := usr.SetPassword(nu.Password); err != nil {
		return User{}, errors.Wrap(err, "setting password")
	}
	return svc.repo.CreateUser(ctx, usr)
}

func (svc *Service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]User, error) {
	if filter != nil {
		filter.Clean()
	}
	return svc.repo.QueryUsers(ctx, filter, ordering)
}

func (svc *Service) GetByID(ctx context.Context, id string) (User, error) {
	return svc.repo.GetUser(ctx, GetFilter{ID: id})
}

func (svc *Service) GetByEmail(ctx context.Context, email string) (User, error) {
	return svc.repo.GetUser(ctx, GetFilter{Email: core.CleanString(email, true /* lower */)})
}

func (svc *Service) GetMany(ctx context.Context, ids []string) ([]User, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	return svc.repo.GetUsersByID(ctx, ids)
}

// Update validates uu and applies it to the User identified by uu's origin.
func (svc *Service) Update(ctx context.Context, usr User, uu UpdateUser) (User, error) {
	if err := uu.Validate(ctx, usr, svc.validate, svc); err != nil {
		return User{}, err
	}
	uu.Apply(&usr)
	usr.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateUser(ctx, usr)
}

// Save persists usr as is.
func (svc *Service) Save(ctx context.Context, usr User) (User, error) {
	usr.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateUser(ctx, usr)
}

func (svc *Service) Delete(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := svc.repo.DeleteUsersByID(ctx, ids)
	return err
}

func (svc *Service) SetLastLogin(ctx context.Context, usr User) (User, error) {
	usr.LastLogin = time.Now().UTC()
	return svc.repo.UpdateUser(ctx, usr)
}

// ChangePassword sets a new password after checking the current one.
func (svc *Service) ChangePassword(ctx context.Context, usr User, cp ChangePassword) (User, error) {
	if err := svc.validate.Struct(cp); err != nil {
		return User{}, err
	}
	if err := usr.CheckPassword(cp.OldPassword); err != nil {
		return User{}, core.NewValidationError(ErrInvalidPassword, core.FieldError{Field: "old_password", Error: ErrInvalidPassword.Error()})
	}
	if err := usr.SetPassword(cp.Password); err != nil {
		return User{}, errors.Wrap(err, "setting password")
	}
	return svc.Save(ctx, usr)
}

// RequestPasswordReset emails a password reset link to the active user owning email.
// Unknown or inactive emails are ignored.
func (svc *Service) RequestPasswordReset(ctx context.Context, email string) error {
	usr, err := svc.GetByEmail(ctx, email)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			svc.logger.Info("password reset requested for unknown email: " + email)
			return nil
		}
		return err
	}
	if !usr.IsActive {
		return nil
	}
	msg := core.EmailMessage{
		To:           []mail.Address{{Name: usr.FullName, Address: usr.Email}},
		Subject:      "Password Reset",
		TemplateName: "password_reset",
		TemplateData: map[string]string{
			"Name":  usr.FullName,
			"UID":   EncodeUID(usr),
			"Token": svc.tokens.makeToken(usr),
		},
	}
	return errors.Wrap(svc.tasks.Enqueue(ctx, core.TaskSendEmail, msg), "enqueueing password reset email")
}

// MakePasswordResetToken returns the (uid, token) pair that allows usr to reset its password.
func (svc *Service) MakePasswordResetToken(usr User) (uid, token string) {
	return EncodeUID(usr), svc.tokens.makeToken(usr)
}

func (svc *Service) ResetPassword(ctx context.Context, data ResetUserPassword) error {
	if err := data.Validate(svc.validate); err != nil {
		return err
	}
	invalid := func(field string) error {
		return core.NewValidationError(nil, core.FieldError{Field: field, Error: "invalid value"})
	}

	id, err := decodeUID(data.UID)
	if err != nil || !core.IsValidID(id) {
		return invalid("uid")
	}
	usr, err := svc.GetByID(ctx, id)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return invalid("uid")
		}
		return err
	}
	if err = svc.tokens.verifyToken(usr, data.Token); err != nil {
		return invalid("token")
	}
	if err = usr.SetPassword(data.Password); err != nil {
		return errors.Wrap(err, "setting password")
	}
	_, err = svc.Save(ctx, usr)
	return err
}
