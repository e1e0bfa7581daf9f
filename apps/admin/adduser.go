package main

import (
	"context"
	"fmt"

	"github.com/trezcool/portal/core/user"
)

// addUser creates an active admin account, applying the same checks as the API.
func (cli *commandLine) addUser(id, name, email, pwd string) error {
	nu := user.NewUser{
		ID:       id,
		Name:     name,
		Email:    email,
		Role:     user.RoleAdmin,
		Password: pwd,
	}
	if err := nu.Validate(cli.validate); err != nil {
		return err
	}
	usr, err := cli.usrSvc.Create(context.Background(), nu)
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "admin %s created\n", usr.ID)
	return nil
}
