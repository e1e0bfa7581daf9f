package logsvc

import (
	"io"
	"os"

	"github.com/rs/zerolog"

	"github.com/trezcool/portal/core"
	"github.com/trezcool/portal/core/user"
)

// ConsoleLogger writes structured logs with zerolog. Used in DEV & TEST.
type ConsoleLogger struct {
	zl zerolog.Logger
}

var _ core.Logger = (*ConsoleLogger)(nil)

// NewConsoleLogger logs to w: human friendly when pretty, JSON lines otherwise.
func NewConsoleLogger(w io.Writer, component string, pretty bool) *ConsoleLogger {
	if pretty {
		w = zerolog.ConsoleWriter{Out: w}
	}
	zl := zerolog.New(w).With().Timestamp().Str("component", component).Logger()
	return &ConsoleLogger{zl: zl}
}

// NewStdoutLogger is the console logger of the given component, at debug level when debug is set.
func NewStdoutLogger(component string, debug bool) *ConsoleLogger {
	l := NewConsoleLogger(os.Stdout, component, debug)
	if !debug {
		l.zl = l.zl.Level(zerolog.InfoLevel)
	}
	return l
}

// NewNopLogger discards everything.
func NewNopLogger() *ConsoleLogger {
	return &ConsoleLogger{zl: zerolog.Nop()}
}

// expected fmt: msg | error, map[string]interface{}, user.User, user.Session
func (l ConsoleLogger) log(evt *zerolog.Event, msg string, args []interface{}) {
	for _, arg := range args {
		switch a := arg.(type) {
		case error:
			evt = evt.Err(a)
		case map[string]interface{}:
			evt = evt.Fields(a)
		case user.User:
			evt = evt.Str("user", a.ID)
		case user.Session:
			evt = evt.Str("user", a.UserID)
		default:
			evt = evt.Interface("extra", a)
		}
	}
	evt.Msg(msg)
}

func (l ConsoleLogger) Debug(msg string, args ...interface{}) { l.log(l.zl.Debug(), msg, args) }
func (l ConsoleLogger) Info(msg string, args ...interface{})  { l.log(l.zl.Info(), msg, args) }
func (l ConsoleLogger) Warn(msg string, args ...interface{})  { l.log(l.zl.Warn(), msg, args) }
func (l ConsoleLogger) Error(msg string, args ...interface{}) { l.log(l.zl.Error(), msg, args) }

func (l ConsoleLogger) Fatal(msg string, args ...interface{}) {
	l.log(l.zl.Fatal(), msg, args)
}
