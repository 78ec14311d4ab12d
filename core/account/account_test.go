package account_test

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kitab-bazar/server/core"
	"github.com/kitab-bazar/server/core/account"
	"github.com/kitab-bazar/server/core/publisher"
	"github.com/kitab-bazar/server/core/school"
	"github.com/kitab-bazar/server/core/user"
	"github.com/kitab-bazar/server/tests"
)

func validationError(t *testing.T, err error) *core.ValidationError {
	t.Helper()
	var vErr *core.ValidationError
	require.True(t, errors.As(err, &vErr), "not a validation error: %v", err)
	return vErr
}

func newUser(userType, email string) user.NewUser {
	return user.NewUser{
		FullName:        "Sita Sharma",
		Email:           email,
		UserType:        userType,
		Password:        testutil.Password,
		PasswordConfirm: testutil.Password,
	}
}

func TestRegister(t *testing.T) {
	env := testutil.Setup(t)
	ctx := context.Background()
	svc := env.Svc.Accounts
	m := env.Municipality(t, "Lalitpur")

	t.Run("staff", func(t *testing.T) {
		for _, userType := range user.AdminTypes {
			_, err := svc.Register(ctx, account.Registration{User: newUser(userType, userType+"@kitab.test")})
			vErr := validationError(t, err)
			assert.Equal(t, account.ErrStaffRegistration, vErr.Err)
			assert.Equal(t, "user_type", vErr.Fields[0].Field)
		}
	})

	t.Run("missing profile", func(t *testing.T) {
		tests := []struct{ userType, field string }{
			{user.TypePublisher, "publisher"},
			{user.TypeSchoolAdmin, "school"},
			{user.TypeInstitutionalUser, "institution"},
		}
		for _, tt := range tests {
			_, err := svc.Register(ctx, account.Registration{User: newUser(tt.userType, "missing@kitab.test")})
			assert.Equal(t, []core.FieldError{{Field: tt.field, Error: "this field is required"}}, validationError(t, err).Fields, tt.userType)
		}
		_, err := env.Svc.Users.GetByEmail(ctx, "missing@kitab.test")
		assert.Equal(t, user.ErrNotFound, errors.Cause(err))
	})

	t.Run("publisher", func(t *testing.T) {
		nu := newUser(user.TypePublisher, "ekata@kitab.test")
		nu.IsVerified = true
		usr, err := svc.Register(ctx, account.Registration{User: nu, Publisher: &publisher.NewPublisher{Name: "Ekata Books"}})
		require.NoError(t, err)
		assert.False(t, usr.IsVerified)
		pub, err := env.Svc.Publishers.GetByName(ctx, "Ekata Books")
		require.NoError(t, err)
		assert.Equal(t, pub.ID, usr.PublisherID)
	})

	t.Run("duplicate email rolls the profile back", func(t *testing.T) {
		env.CreateUser(t, user.TypeIndividualUser, "taken@kitab.test")

		_, err := svc.Register(ctx, account.Registration{
			User:      newUser(user.TypePublisher, "taken@kitab.test"),
			Publisher: &publisher.NewPublisher{Name: "Sajha Prakashan"},
		})
		assert.Equal(t, "email", validationError(t, err).Fields[0].Field)
		_, err = env.Svc.Publishers.GetByName(ctx, "Sajha Prakashan")
		assert.Equal(t, publisher.ErrNotFound, errors.Cause(err))

		_, err = svc.Register(ctx, account.Registration{
			User:   newUser(user.TypeSchoolAdmin, "taken@kitab.test"),
			School: &school.NewSchool{Name: "Shree School", MunicipalityID: m.ID},
		})
		assert.Equal(t, "email", validationError(t, err).Fields[0].Field)
		schools, err := env.Svc.Schools.Query(ctx, school.QueryFilter{Search: "Shree"}, nil)
		require.NoError(t, err)
		assert.Empty(t, schools)
	})
}

func TestVerify(t *testing.T) {
	env := testutil.Setup(t)
	ctx := context.Background()
	svc := env.Svc.Accounts
	admin := env.Admin(t)
	m := env.Municipality(t, "Lalitpur")

	usr, err := svc.Register(ctx, account.Registration{
		User:   newUser(user.TypeSchoolAdmin, "school@kitab.test"),
		School: &school.NewSchool{Kind: school.KindInstitution, Name: "Shree School", MunicipalityID: m.ID},
	})
	require.NoError(t, err)
	require.NotEmpty(t, usr.SchoolID)
	sch, err := env.Svc.Schools.Get(ctx, school.KindSchool, usr.SchoolID)
	require.NoError(t, err)
	assert.False(t, sch.IsVerified)

	t.Run("buyers cannot verify", func(t *testing.T) {
		_, err := svc.Verify(ctx, usr, usr.ID)
		assert.Equal(t, core.ErrPermissionDenied, err)
	})

	t.Run("unknown user", func(t *testing.T) {
		_, err := svc.Verify(ctx, admin, core.NewID())
		assert.Equal(t, user.ErrNotFound, errors.Cause(err))
	})

	usr, err = svc.Verify(ctx, admin, usr.ID)
	require.NoError(t, err)
	assert.True(t, usr.IsVerified)
	sch, err = env.Svc.Schools.Get(ctx, school.KindSchool, usr.SchoolID)
	require.NoError(t, err)
	assert.True(t, sch.IsVerified)

	t.Run("user without school", func(t *testing.T) {
		reader := env.CreateUser(t, user.TypeIndividualUser, "reader@kitab.test", func(u *user.User) { u.IsVerified = false })
		verified, err := svc.Verify(ctx, admin, reader.ID)
		require.NoError(t, err)
		assert.True(t, verified.IsVerified)
	})
}
