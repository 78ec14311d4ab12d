package user_test

import (
	"context"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kitab-bazar/server/core/user"
	"github.com/kitab-bazar/server/tests"
)

func TestPasswordPolicy(t *testing.T) {
	env := testutil.Setup(t)

	tests := []struct {
		name    string
		pwd     string
		confirm string
		wantTag string
	}{
		{name: "too short", pwd: "Sh0rt!", wantTag: "pwdminlen"},
		{name: "whitespace", pwd: "Has Space1!", wantTag: "pwdnospace"},
		{name: "all numeric", pwd: "1234567890", wantTag: "pwdnotallnum"},
		{name: "not complex", pwd: "alllowercase1!", wantTag: "pwdcplx"},
		{name: "similar to name", pwd: "RameshSharma1!", wantTag: "pwdtoosim"},
		{name: "common", pwd: "P@ssw0rd", wantTag: "pwdnocommon"},
		{name: "mismatch", pwd: "Kathmandu-V4lley", confirm: "Kathmandu-V4lley?", wantTag: "eqfield"},
		{name: "valid", pwd: "Kathmandu-V4lley"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			confirm := tt.confirm
			if confirm == "" {
				confirm = tt.pwd
			}
			_, err := env.Svc.Users.Create(context.Background(), user.NewUser{
				FullName:        "Ramesh Sharma",
				Email:           "ramesh@kitab.test",
				UserType:        user.TypeIndividualUser,
				Password:        tt.pwd,
				PasswordConfirm: confirm,
			})
			if tt.wantTag == "" {
				require.NoError(t, err)
				return
			}
			vErrs, ok := errors.Cause(err).(validator.ValidationErrors)
			require.True(t, ok, "got %v", err)
			var tags []string
			for _, fe := range vErrs {
				tags = append(tags, fe.Tag())
			}
			assert.Contains(t, tags, tt.wantTag)
		})
	}
}
