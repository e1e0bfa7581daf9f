package main

import (
	"context"
	"fmt"
)

func (cli *commandLine) resetPassword(id, pwd string) error {
	ctx := context.Background()
	usr, err := cli.usrSvc.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := cli.usrSvc.SetPassword(ctx, usr.ID, pwd); err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "password of %s reset\n", usr.ID)
	return nil
}
