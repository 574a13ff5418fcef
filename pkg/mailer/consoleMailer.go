package mailer

import (
	"context"
	"log"
)

// consoleMailer logs delivery intent without contacting any transport. It is
// the development and testing default.
type consoleMailer struct{}

func NewConsoleMailer() Mailer {
	return &consoleMailer{}
}

func (c *consoleMailer) Send(ctx context.Context, delivery Delivery) error {
	if err := checkAddress(delivery.To); err != nil {
		return err
	}
	log.Printf("[console] email to %s: %s", delivery.To, subjectFor(delivery))
	return nil
}

func (c *consoleMailer) Close() error { return nil }
