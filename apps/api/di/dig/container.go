package dig_container

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"go.uber.org/dig"

	echoapi "github.com/trezcool/portal/apps/api/echo"
	"github.com/trezcool/portal/core"
	"github.com/trezcool/portal/core/attendance"
	"github.com/trezcool/portal/core/course"
	"github.com/trezcool/portal/core/grading"
	"github.com/trezcool/portal/core/report"
	"github.com/trezcool/portal/core/user"
	emailsvc "github.com/trezcool/portal/services/email"
	logsvc "github.com/trezcool/portal/services/logger"
	"github.com/trezcool/portal/storage"
	"github.com/trezcool/portal/storage/seed"
)

type StoreLoggerParam struct {
	dig.In
	Logger core.Logger `name:"storeLogger"`
}

type serverParams struct {
	dig.In
	Conf          *core.Config
	Logger        core.Logger
	UserSvc       *user.Service
	CourseSvc     *course.Service
	GradingSvc    *grading.Service
	AttendanceSvc *attendance.Service
	ReportSvc     *report.Service
	Mailer        core.EmailService
	Validate      *validator.Validate
	Translator    ut.Translator
}

// newComponentLogger logs to the console in debug mode, to rollbar (mirrored on stdout) otherwise.
func newComponentLogger(conf *core.Config, component string, flags int) core.Logger {
	if conf.Debug {
		return logsvc.NewStdoutLogger(component, true)
	}
	stdLogger := log.New(os.Stdout, component+" : ", flags)
	logger := logsvc.NewRollbarLogger(stdLogger, conf)
	logger.Enable(true)
	return logger
}

func newLogger(conf *core.Config) core.Logger {
	return newComponentLogger(conf, "API", log.LstdFlags)
}

func newStoreLogger(conf *core.Config) core.Logger {
	return newComponentLogger(conf, "STORE", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
}

func newStore(conf *core.Config, loggerParam StoreLoggerParam) core.RecordStore {
	store, err := storage.Open(conf, loggerParam.Logger)
	if err != nil {
		loggerParam.Logger.Fatal(fmt.Sprintf("opening record store: %v", err), err)
	}
	return store
}

func newEngine(conf *core.Config, logger core.Logger) *grading.Engine {
	engine, err := grading.NewEngineFromConfig(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("grading engine: %v", err), err)
	}
	return engine
}

func newAttendanceService(store core.RecordStore, logger core.Logger, conf *core.Config) *attendance.Service {
	return attendance.NewService(store, logger, conf.Attendance.LowThreshold)
}

func newTranslator() ut.Translator {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	return translator
}

func newServer(p serverParams) *echoapi.Server {
	return echoapi.NewServer(echoapi.ServerDeps{
		Conf:          p.Conf,
		Logger:        p.Logger,
		UserSvc:       p.UserSvc,
		CourseSvc:     p.CourseSvc,
		GradingSvc:    p.GradingSvc,
		AttendanceSvc: p.AttendanceSvc,
		ReportSvc:     p.ReportSvc,
		Mailer:        p.Mailer,
		Validate:      p.Validate,
		Translator:    p.Translator,
	})
}

// New returns a new dependency injection dig.Container
func New() *dig.Container {
	c := dig.New()

	must(c.Provide(core.NewConfig))
	must(c.Provide(newLogger))
	must(c.Provide(newStoreLogger, dig.Name("storeLogger")))
	must(c.Provide(newStore))
	must(c.Provide(newEngine))
	must(c.Provide(emailsvc.New))
	must(c.Provide(validator.New))
	must(c.Provide(newTranslator))
	must(c.Provide(user.NewService))
	must(c.Provide(course.NewService))
	must(c.Provide(grading.NewService))
	must(c.Provide(newAttendanceService))
	must(c.Provide(report.NewService))
	must(c.Provide(seed.NewSeeder))
	must(c.Provide(newServer))

	return c
}

// Seed writes the default data into the collections that were never written.
func Seed(ctx context.Context, conf *core.Config, seeder *seed.Seeder) error {
	if !conf.Store.Seed {
		return nil
	}
	return seeder.Initialize(ctx)
}

// must exits program if err happened
func must(err error) {
	if err != nil {
		log.Fatal(errors.Wrap(err, "failed to provide dependency").Error())
	}
}
