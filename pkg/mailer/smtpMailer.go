package mailer

import (
	"context"
	"crypto/tls"
	"log"

	"gopkg.in/gomail.v2"

	"github.com/zoff-tech/time-capsule/pkg/config"
)

type smtpMailer struct {
	dialer      *gomail.Dialer
	fromAddress string
	fromName    string
}

func NewSMTPMailer(cfg config.MailerSettings) Mailer {
	log.Printf("[mail] Initializing SMTP mailer for host: %s, port: %d, user: %s", cfg.Host, cfg.Port, cfg.User)
	d := gomail.NewDialer(cfg.Host, cfg.Port, cfg.User, cfg.Password)
	if cfg.InsecureSkipVerify {
		log.Printf("[mail] InsecureSkipVerify is enabled for mail TLS connection")
		d.TLSConfig = &tls.Config{InsecureSkipVerify: true}
	}

	fromAddress := cfg.From
	if fromAddress == "" {
		fromAddress = "no-reply@example.com"
	}
	fromName := cfg.FromName
	if fromName == "" {
		fromName = "Time Capsule"
	}

	return &smtpMailer{
		dialer:      d,
		fromAddress: fromAddress,
		fromName:    fromName,
	}
}

func (s *smtpMailer) Send(ctx context.Context, delivery Delivery) error {
	if err := checkAddress(delivery.To); err != nil {
		return err
	}

	msg := gomail.NewMessage()
	msg.SetAddressHeader("From", s.fromAddress, s.fromName)
	msg.SetHeader("To", delivery.To)
	msg.SetHeader("Subject", subjectFor(delivery))
	msg.SetBody("text/plain", textBody(delivery))
	msg.AddAlternative("text/html", htmlBody(delivery))

	if err := s.dialer.DialAndSend(msg); err != nil {
		log.Printf("[mail] Failed to send mail to %s: %v", delivery.To, err)
		return &DeliveryError{To: delivery.To, Err: err}
	}

	log.Printf("[mail] Mail sent to %s", delivery.To)
	return nil
}

func (s *smtpMailer) Close() error { return nil }
