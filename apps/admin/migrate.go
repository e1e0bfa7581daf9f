package main

import (
	"errors"

	"github.com/trezcool/portal/storage/pgstore"
)

var (
	gooseRunFunc = pgstore.Migrate // mockable

	errNoDatabase = errors.New("migrations require the postgres store driver")
)

func (cli *commandLine) migrate(args []string) error {
	if cli.db == nil {
		return errNoDatabase
	}
	return gooseRunFunc(cli.db, args[0], args[1:]...)
}
