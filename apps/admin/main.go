package main

import (
	"database/sql"
	"os"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/portal/core"
	"github.com/trezcool/portal/core/attendance"
	"github.com/trezcool/portal/core/course"
	"github.com/trezcool/portal/core/grading"
	"github.com/trezcool/portal/core/report"
	"github.com/trezcool/portal/core/user"
	emailsvc "github.com/trezcool/portal/services/email"
	logsvc "github.com/trezcool/portal/services/logger"
	"github.com/trezcool/portal/storage"
	"github.com/trezcool/portal/storage/pgstore"
	"github.com/trezcool/portal/storage/seed"
)

var logger core.Logger

func main() {
	conf := core.NewConfig()
	logger = logsvc.NewStdoutLogger("ADMIN", conf.Debug)

	// set up store
	store, err := storage.Open(conf, logger)
	errAndDie(err)
	var db *sql.DB
	if pg, ok := store.(*pgstore.Store); ok {
		db = pg.DB().DB
	}

	engine, err := grading.NewEngineFromConfig(conf)
	errAndDie(err)

	_en := en.New()
	translator, _ := ut.New(_en, _en).GetTranslator("en")
	validate := validator.New()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	core.ParseEmailTemplates(conf, logger)

	// start CLI
	cli := newCommandLine(conf, store, db, engine, validate, emailsvc.New(conf, logger), logger)
	err = cli.run(os.Args)
	if cerr := store.Close(); cerr != nil {
		logger.Error("closing record store", cerr)
	}
	if err != nil {
		if err != errHelp {
			logger.Error("error: "+err.Error(), err)
		}
		os.Exit(1)
	}
}

func errAndDie(err error) {
	if err != nil {
		logger.Fatal(err.Error(), err)
	}
}

func newCommandLine(
	conf *core.Config,
	store core.RecordStore,
	db *sql.DB,
	engine *grading.Engine,
	validate *validator.Validate,
	mailer core.EmailService,
	logger core.Logger,
) *commandLine {
	usrSvc := user.NewService(store, logger)
	crsSvc := course.NewService(store)
	grdSvc := grading.NewService(store, engine, logger)
	attSvc := attendance.NewService(store, logger, conf.Attendance.LowThreshold)
	return &commandLine{
		out:      os.Stdout,
		db:       db,
		validate: validate,
		usrSvc:   usrSvc,
		grdSvc:   grdSvc,
		rptSvc:   report.NewService(usrSvc, crsSvc, grdSvc, attSvc),
		seeder:   seed.NewSeeder(store, usrSvc, grdSvc, logger),
		mailer:   mailer,
	}
}
