package main

import (
	"context"
	"fmt"
	"os"

	"github.com/pkg/errors"

	"github.com/trezcool/portal/services/sheet"
)

func (cli *commandLine) seed() error {
	if err := cli.seeder.Initialize(context.Background()); err != nil {
		return err
	}
	fmt.Fprintln(cli.out, "store seeded")
	return nil
}

// importResults grades and stores every row of the workbook, all or nothing.
func (cli *commandLine) importResults(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrap(err, "opening workbook")
	}
	defer func() { _ = f.Close() }()

	nrs, err := sheet.ParseResults(f)
	if err != nil {
		return err
	}
	for i := range nrs {
		if err := nrs[i].Validate(cli.validate); err != nil {
			return errors.Wrapf(err, "row %d", i+2)
		}
	}
	saved, err := cli.grdSvc.Import(context.Background(), nrs)
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "%d results imported\n", len(saved))
	return nil
}

func (cli *commandLine) notify() error {
	msgs, err := cli.rptSvc.LowAttendanceEmails(context.Background())
	if err != nil {
		return err
	}
	cli.mailer.SendMessages(msgs...)
	fmt.Fprintf(cli.out, "%d students notified\n", len(msgs))
	return nil
}
