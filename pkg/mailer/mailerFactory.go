package mailer

import (
	"fmt"

	"github.com/zoff-tech/time-capsule/pkg/config"
)

// NewMailer builds the mail backend selected by the mailer configuration.
// The choice is a pure strategy swap; the scheduler depends on no backend
// state.
func NewMailer(cfg config.MailerSettings) (Mailer, error) {
	switch cfg.Driver {
	case "console":
		return NewConsoleMailer(), nil
	case "smtp":
		return NewSMTPMailer(cfg), nil
	case "rabbitmq":
		return NewAMQPMailer(cfg)
	default:
		return nil, fmt.Errorf("unsupported mailer driver: %s", cfg.Driver)
	}
}
