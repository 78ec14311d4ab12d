// Package account registers users together with the profile their type requires.
package account

import (
	"context"

	"github.com/pkg/errors"

	"github.com/kitab-bazar/server/core"
	"github.com/kitab-bazar/server/core/publisher"
	"github.com/kitab-bazar/server/core/school"
	"github.com/kitab-bazar/server/core/user"
)

var ErrStaffRegistration = errors.New("this user type cannot register")

type (
	// Registration holds a new user and, depending on its type, the publisher,
	// school or institution created with it.
	Registration struct {
		User        user.NewUser
		Publisher   *publisher.NewPublisher
		School      *school.NewSchool
		Institution *school.NewSchool
	}

	Service struct {
		tx         core.TxRunner
		users      *user.Service
		publishers *publisher.Service
		schools    *school.Service
		logger     core.Logger
	}
)

func NewService(tx core.TxRunner, users *user.Service, publishers *publisher.Service, schools *school.Service, logger core.Logger) *Service {
	return &Service{tx: tx, users: users, publishers: publishers, schools: schools, logger: logger}
}

func missingProfile(field string) error {
	return core.NewFieldError(field, "this field is required")
}

// Register creates the user and its profile in one transaction.
// Staff users cannot be registered this way.
func (svc *Service) Register(ctx context.Context, reg Registration) (user.User, error) {
	nu := reg.User
	if core.ContainsString(user.AdminTypes, nu.UserType) {
		return user.User{}, core.NewValidationError(ErrStaffRegistration, core.FieldError{Field: "user_type", Error: ErrStaffRegistration.Error()})
	}
	nu.IsVerified = false
	nu.PublisherID, nu.SchoolID, nu.InstitutionID = "", "", ""

	var usr user.User
	err := svc.tx.RunInTx(ctx, func(ctx context.Context) error {
		switch nu.UserType {
		case user.TypePublisher:
			if reg.Publisher == nil {
				return missingProfile("publisher")
			}
			pub, err := svc.publishers.Create(ctx, *reg.Publisher)
			if err != nil {
				return err
			}
			nu.PublisherID = pub.ID
		case user.TypeSchoolAdmin:
			if reg.School == nil {
				return missingProfile("school")
			}
			ns := *reg.School
			ns.Kind = school.KindSchool
			sch, err := svc.schools.Create(ctx, ns)
			if err != nil {
				return err
			}
			nu.SchoolID = sch.ID
		case user.TypeInstitutionalUser:
			if reg.Institution == nil {
				return missingProfile("institution")
			}
			ni := *reg.Institution
			ni.Kind = school.KindInstitution
			inst, err := svc.schools.Create(ctx, ni)
			if err != nil {
				return err
			}
			nu.InstitutionID = inst.ID
		}

		var err error
		usr, err = svc.users.Create(ctx, nu)
		return err
	})
	return usr, err
}

// Verify marks the user, and its school or institution, verified.
func (svc *Service) Verify(ctx context.Context, actor user.User, userID string) (user.User, error) {
	if !actor.HasPerm(user.PermVerifyUsers) {
		return user.User{}, core.ErrPermissionDenied
	}
	if !core.IsValidID(userID) {
		return user.User{}, user.ErrNotFound
	}

	var usr user.User
	err := svc.tx.RunInTx(ctx, func(ctx context.Context) error {
		var err error
		if usr, err = svc.users.GetByID(ctx, userID); err != nil {
			return err
		}
		if profileID, kind := profileOf(usr); profileID != "" {
			sch, err := svc.schools.Get(ctx, kind, profileID)
			if err != nil {
				return err
			}
			if !sch.IsVerified {
				sch.IsVerified = true
				if _, err = svc.schools.Save(ctx, sch); err != nil {
					return err
				}
			}
		}
		usr.IsVerified = true
		usr, err = svc.users.Save(ctx, usr)
		return err
	})
	return usr, err
}

func profileOf(usr user.User) (id, kind string) {
	switch {
	case usr.SchoolID != "":
		return usr.SchoolID, school.KindSchool
	case usr.InstitutionID != "":
		return usr.InstitutionID, school.KindInstitution
	}
	return "", ""
}
