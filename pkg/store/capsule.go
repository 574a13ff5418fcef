package store

import "time"

// Status represents the delivery status of a capsule.
type Status string

const (
	StatusPending Status = "pending"
	StatusSent    Status = "sent"
	StatusFailed  Status = "failed"
	// StatusProcessing marks a capsule claimed by an in-flight scheduler
	// pass. It is transient: the pass writes back one of the three public
	// statuses, and FetchDue reclaims stale claims after lockExpiration.
	StatusProcessing Status = "processing"
)

// Capsule represents a single scheduled message with one recipient and one
// unlock time. Content fields are immutable after creation; only the
// delivery fields (Status, SentAt, LastError, LastErrorAt, FailureCount)
// change afterwards.
type Capsule struct {
	ID               string     `json:"id" bson:"id"`
	SenderName       string     `json:"senderName" bson:"sender_name"`
	ReceiverEmail    string     `json:"receiverEmail" bson:"receiver_email"`
	Message          string     `json:"message" bson:"message"`
	UnlockAt         time.Time  `json:"unlockAt" bson:"unlock_at"`
	Category         string     `json:"category,omitempty" bson:"category,omitempty"`
	CredentialDigest string     `json:"-" bson:"credential_digest,omitempty"`
	Status           Status     `json:"status" bson:"status"`
	CreatedAt        time.Time  `json:"createdAt" bson:"created_at"`
	SentAt           *time.Time `json:"sentAt" bson:"sent_at"`
	LastError        string     `json:"lastError,omitempty" bson:"last_error,omitempty"`
	LastErrorAt      *time.Time `json:"lastErrorAt,omitempty" bson:"last_error_at"`
	FailureCount     int        `json:"failureCount" bson:"failure_count"`
	UpdatedAt        time.Time  `json:"-" bson:"updated_at"`
}
