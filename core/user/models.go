package user

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	"github.com/kitab-bazar/server/core"
)

// User types
const (
	TypeSuperAdmin        = "super_admin"
	TypeModerator         = "moderator"
	TypePublisher         = "publisher"
	TypeSchoolAdmin       = "school_admin"
	TypeInstitutionalUser = "institutional_user"
	TypeIndividualUser    = "individual_user"
)

var (
	AdminTypes = []string{TypeSuperAdmin, TypeModerator}
	BuyerTypes = []string{TypeSchoolAdmin, TypeInstitutionalUser, TypeIndividualUser}
	AllTypes   = getAllTypes()

	Types = []Type{
		{Name: "Super Admin", Value: TypeSuperAdmin},
		{Name: "Moderator", Value: TypeModerator},
		{Name: "Publisher", Value: TypePublisher},
		{Name: "School Admin", Value: TypeSchoolAdmin},
		{Name: "Institutional User", Value: TypeInstitutionalUser},
		{Name: "Individual User", Value: TypeIndividualUser},
	}
)

func getAllTypes() []string {
	all := make([]string, 0, 6)
	all = append(all, AdminTypes...)
	all = append(all, TypePublisher)
	all = append(all, BuyerTypes...)
	return all
}

type Type struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type User struct {
	ID            string    `json:"id"`
	FullName      string    `json:"full_name"`
	Email         string    `json:"email"`
	PhoneNumber   string    `json:"phone_number"`
	UserType      string    `json:"user_type"`
	PublisherID   string    `json:"publisher_id,omitempty"`
	SchoolID      string    `json:"school_id,omitempty"`
	InstitutionID string    `json:"institution_id,omitempty"`
	IsActive      bool      `json:"is_active"`
	IsVerified    bool      `json:"is_verified"`
	PasswordHash  []byte    `json:"-"`
	CreatedAt     time.Time `json:"created_at"` // UTC
	UpdatedAt     time.Time `json:"updated_at"` // UTC
	LastLogin     time.Time `json:"last_login"` // UTC
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

func (u User) IsAdmin() bool {
	return core.ContainsString(AdminTypes, u.UserType)
}

func (u User) IsPublisher() bool { return u.UserType == TypePublisher }

func (u User) IsBuyer() bool {
	return core.ContainsString(BuyerTypes, u.UserType)
}

// NewUser contains information needed to create a new User.
type NewUser struct {
	FullName        string `json:"full_name" validate:"required,notblank"`
	Email           string `json:"email" validate:"required,email"`
	PhoneNumber     string `json:"phone_number" validate:"omitempty,max=20"`
	UserType        string `json:"user_type" validate:"required,usertype"`
	PublisherID     string `json:"publisher_id" validate:"omitempty,uuid"`
	SchoolID        string `json:"school_id" validate:"omitempty,uuid"`
	InstitutionID   string `json:"institution_id" validate:"omitempty,uuid"`
	IsVerified      bool   `json:"-"`
	Password        string `json:"password" validate:"required"`
	PasswordConfirm string `json:"password_confirm" validate:"required,eqfield=Password"`
}

func (nu *NewUser) Clean() {
	nu.FullName = core.CleanString(nu.FullName)
	nu.Email = core.CleanString(nu.Email, true /* lower */)
	nu.PhoneNumber = core.CleanString(nu.PhoneNumber)
}

func (nu *NewUser) Validate(ctx context.Context, validate *validator.Validate, svc *Service) error {
	nu.Clean()
	if err := validate.Struct(nu); err != nil {
		return err
	}
	return svc.CheckUniqueness(ctx, nu.Email)
}

// UpdateUser defines what information may be provided to modify an existing User.
// nil fields are left unchanged.
type UpdateUser struct {
	FullName    *string `json:"full_name" validate:"omitempty,notblank"`
	Email       *string `json:"email" validate:"omitempty,email"`
	PhoneNumber *string `json:"phone_number" validate:"omitempty,max=20"`
	UserType    *string `json:"user_type" validate:"omitempty,usertype"`
	IsActive    *bool   `json:"is_active"`
	IsVerified  *bool   `json:"is_verified"`
}

func (uu *UpdateUser) Validate(ctx context.Context, origUsr User, validate *validator.Validate, svc *Service) error {
	if uu.FullName != nil {
		name := core.CleanString(*uu.FullName)
		uu.FullName = &name
	}
	if uu.Email != nil {
		email := core.CleanString(*uu.Email, true /* lower */)
		uu.Email = &email
	}
	if uu.PhoneNumber != nil {
		phone := core.CleanString(*uu.PhoneNumber)
		uu.PhoneNumber = &phone
	}
	if err := validate.Struct(uu); err != nil {
		return err
	}
	if uu.Email != nil && *uu.Email != origUsr.Email {
		return svc.CheckUniqueness(ctx, *uu.Email, origUsr)
	}
	return nil
}

// Apply copies the provided fields onto usr.
func (uu UpdateUser) Apply(usr *User) {
	if uu.FullName != nil {
		usr.FullName = *uu.FullName
	}
	if uu.Email != nil {
		usr.Email = *uu.Email
	}
	if uu.PhoneNumber != nil {
		usr.PhoneNumber = *uu.PhoneNumber
	}
	if uu.UserType != nil {
		usr.UserType = *uu.UserType
	}
	if uu.IsActive != nil {
		usr.IsActive = *uu.IsActive
	}
	if uu.IsVerified != nil {
		usr.IsVerified = *uu.IsVerified
	}
}

type ChangePassword struct {
	OldPassword     string `json:"old_password" validate:"required"`
	Password        string `json:"password" validate:"required"`
	PasswordConfirm string `json:"password_confirm" validate:"required,eqfield=Password"`
}

type ResetUserPassword struct {
	Token           string `json:"token,omitempty" validate:"required"`
	UID             string `json:"uid,omitempty" validate:"required"`
	Password        string `json:"password,omitempty" validate:"required"`
	PasswordConfirm string `json:"password_confirm,omitempty" validate:"required,eqfield=Password"`
}

func (rp ResetUserPassword) Validate(validate *validator.Validate) error { return validate.Struct(rp) }

type QueryFilter struct {
	Search        string    `query:"search"`
	UserTypes     []string  `query:"user_type"`
	IsActive      *bool     `query:"is_active"`
	IsVerified    *bool     `query:"is_verified"`
	PublisherID   string    `query:"publisher"`
	SchoolID      string    `query:"school"`
	InstitutionID string    `query:"institution"`
	CreatedFrom   time.Time `query:"created_from"`
	CreatedTo     time.Time `query:"created_to"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.Search == "" && qf.UserTypes == nil && qf.IsActive == nil && qf.IsVerified == nil &&
		qf.PublisherID == "" && qf.SchoolID == "" && qf.InstitutionID == "" &&
		qf.CreatedFrom.IsZero() && qf.CreatedTo.IsZero()
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
}

// Match reports whether usr satisfies the filter (used by in-memory storage).
func (qf *QueryFilter) Match(usr User) bool {
	if qf == nil {
		return true
	}
	if qf.Search != "" && !core.ContainsFold(qf.Search, usr.FullName, usr.Email, usr.PhoneNumber) {
		return false
	}
	if len(qf.UserTypes) > 0 && !core.ContainsString(qf.UserTypes, usr.UserType) {
		return false
	}
	if qf.IsActive != nil && usr.IsActive != *qf.IsActive {
		return false
	}
	if qf.IsVerified != nil && usr.IsVerified != *qf.IsVerified {
		return false
	}
	if qf.PublisherID != "" && usr.PublisherID != qf.PublisherID {
		return false
	}
	if qf.SchoolID != "" && usr.SchoolID != qf.SchoolID {
		return false
	}
	if qf.InstitutionID != "" && usr.InstitutionID != qf.InstitutionID {
		return false
	}
	if !qf.CreatedFrom.IsZero() && usr.CreatedAt.Before(qf.CreatedFrom.UTC()) {
		return false
	}
	if !qf.CreatedTo.IsZero() && usr.CreatedAt.After(qf.CreatedTo.UTC()) {
		return false
	}
	return true
}

// GetFilter finds a single User, by ID or by Email.
type GetFilter struct {
	ID    string
	Email string
}
