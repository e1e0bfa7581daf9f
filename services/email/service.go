// Package emailsvc provides the core.EmailService implementations.
package emailsvc

import "github.com/trezcool/portal/core"

// New returns the console service in debug mode and the sendgrid service otherwise.
func New(conf *core.Config, logger core.Logger) core.EmailService {
	if conf.Debug || conf.SendgridApiKey == "" {
		return NewConsoleService(conf, logger)
	}
	return NewSendgridService(conf, logger)
}
