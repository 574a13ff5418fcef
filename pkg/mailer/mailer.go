package mailer

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"
)

// Delivery is one capsule message handed to a Mailer backend.
type Delivery struct {
	To         string    `json:"to"`
	SenderName string    `json:"sender_name"`
	Message    string    `json:"message"`
	WrittenAt  time.Time `json:"written_at"`
	UnlockAt   time.Time `json:"unlock_at"`
}

// Mailer defines the operations to deliver a capsule message to its
// recipient.
type Mailer interface {
	// Send delivers the message, failing with a *DeliveryError on an invalid
	// destination or any transport problem.
	Send(ctx context.Context, delivery Delivery) error
	// Close cleans up any resources (connections).
	Close() error
}

// ErrInvalidAddress is returned before any transport is contacted when the
// destination does not look like local@domain.
var ErrInvalidAddress = errors.New("invalid email address")

// DeliveryError wraps any failure to deliver a message.
type DeliveryError struct {
	To  string
	Err error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("delivery to %s failed: %v", e.To, e.Err)
}

func (e *DeliveryError) Unwrap() error { return e.Err }

var addressPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

func checkAddress(to string) error {
	if !addressPattern.MatchString(to) {
		return &DeliveryError{To: to, Err: ErrInvalidAddress}
	}
	return nil
}
