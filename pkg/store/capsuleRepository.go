package store

import (
	"context"
	"time"
)

// CapsuleRepository defines the database operations for capsules.
type CapsuleRepository interface {
	// Create persists a new capsule record.
	Create(ctx context.Context, capsule *Capsule) error
	// List returns all capsules ordered by creation time, newest first.
	List(ctx context.Context) ([]Capsule, error)
	// FetchDue retrieves up to batchSize pending capsules whose unlock time
	// is at or before now, oldest creation first. Capsules stuck in the
	// processing state longer than lockExpiration are included again.
	FetchDue(ctx context.Context, now time.Time, batchSize int) ([]Capsule, error)
	// Claim atomically moves a capsule from pending to processing so that at
	// most one concurrent pass attempts its delivery. Returns false when the
	// capsule is already claimed or no longer pending.
	Claim(ctx context.Context, capsuleID string) (bool, error)
	// Update persists the delivery fields (status, sent_at, last_error,
	// last_error_at, failure_count) of one capsule.
	Update(ctx context.Context, capsule *Capsule) error
}
