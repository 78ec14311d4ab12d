package main

import (
	"context"

	"github.com/pkg/errors"

	"github.com/kitab-bazar/server/core/user"
)

func (cli *commandLine) ctx() context.Context { return context.Background() }

// addUser updates or creates an active & verified user.User
func (cli *commandLine) addUser(email, name, userType, pwd string) error {
	usr, err := cli.svc.Users.GetByEmail(cli.ctx(), email)
	if err != nil {
		if errors.Cause(err) != user.ErrNotFound {
			return err
		}
		_, err = cli.svc.Users.Create(cli.ctx(), user.NewUser{
			FullName:        name,
			Email:           email,
			UserType:        userType,
			IsVerified:      true,
			Password:        pwd,
			PasswordConfirm: pwd,
		})
		return err
	}

	usr.FullName = name
	usr.UserType = userType
	usr.IsActive = true
	usr.IsVerified = true
	if err = usr.SetPassword(pwd); err != nil {
		return err
	}
	_, err = cli.svc.Users.Save(cli.ctx(), usr)
	return err
}
