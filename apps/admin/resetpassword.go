package main

func (cli *commandLine) resetPassword(email, pwd string) error {
	usr, err := cli.svc.Users.GetByEmail(cli.ctx(), email)
	if err != nil {
		return err
	}
	if err = usr.SetPassword(pwd); err != nil {
		return err
	}
	_, err = cli.svc.Users.Save(cli.ctx(), usr)
	return err
}
