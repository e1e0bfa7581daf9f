package main

import (
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io"
	"syscall"

	"github.com/go-playground/validator/v10"
	"golang.org/x/term"

	"github.com/trezcool/portal/core"
	"github.com/trezcool/portal/core/grading"
	"github.com/trezcool/portal/core/report"
	"github.com/trezcool/portal/core/user"
	"github.com/trezcool/portal/storage/seed"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	out      io.Writer
	db       *sql.DB // postgres driver only
	validate *validator.Validate
	usrSvc   *user.Service
	grdSvc   *grading.Service
	rptSvc   *report.Service
	seeder   *seed.Seeder
	mailer   core.EmailService
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  seed - write the default data into empty collections")
	fmt.Fprintln(cli.out, "  migrate COMMAND [ARGS] - run a goose migration command (postgres store)")
	fmt.Fprintln(cli.out, "  adduser -id ID -name NAME -email EMAIL - create an admin account")
	fmt.Fprintln(cli.out, "  resetpassword -id ID - reset user's password")
	fmt.Fprintln(cli.out, "  import -file FILE.xlsx - import marks from a spreadsheet")
	fmt.Fprintln(cli.out, "  notify - email every student under the attendance threshold")
}

// promptPassword reads a password from the terminal; empty means none was entered.
func (cli *commandLine) promptPassword() (string, error) {
	fmt.Fprint(cli.out, "Enter password:")
	pwd, err := readPasswordFunc(int(syscall.Stdin))
	fmt.Fprintln(cli.out)
	if err != nil {
		return "", err
	}
	return string(pwd), nil
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	addUserCmd := flag.NewFlagSet("adduser", flag.ExitOnError)
	addUserID := addUserCmd.String("id", "", "The admin's ID. The password will be prompted next.")
	addUserName := addUserCmd.String("name", "", "The admin's full name.")
	addUserEmail := addUserCmd.String("email", "", "The admin's email address.")

	resetPasswordCmd := flag.NewFlagSet("resetpassword", flag.ExitOnError)
	resetPasswordID := resetPasswordCmd.String("id", "", "The user's ID. The password will be prompted next.")

	importCmd := flag.NewFlagSet("import", flag.ExitOnError)
	importFile := importCmd.String("file", "", "Path of the .xlsx workbook.")

	switch args[1] {
	case "seed":
		return cli.seed()

	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])

	case "adduser":
		if err := addUserCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *addUserID == "" || *addUserName == "" || *addUserEmail == "" {
			addUserCmd.Usage()
			return errHelp
		}
		pwd, err := cli.promptPassword()
		if err != nil {
			return err
		}
		if pwd == "" {
			addUserCmd.Usage()
			return errHelp
		}
		return cli.addUser(*addUserID, *addUserName, *addUserEmail, pwd)

	case "resetpassword":
		if err := resetPasswordCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *resetPasswordID == "" {
			resetPasswordCmd.Usage()
			return errHelp
		}
		pwd, err := cli.promptPassword()
		if err != nil {
			return err
		}
		if pwd == "" {
			resetPasswordCmd.Usage()
			return errHelp
		}
		return cli.resetPassword(*resetPasswordID, pwd)

	case "import":
		if err := importCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *importFile == "" {
			importCmd.Usage()
			return errHelp
		}
		return cli.importResults(*importFile)

	case "notify":
		return cli.notify()

	default:
		cli.printUsage()
		return errHelp
	}
}
