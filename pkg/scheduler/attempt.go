package scheduler

import (
	"context"
	"log"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/zoff-tech/time-capsule/pkg/mailer"
	"github.com/zoff-tech/time-capsule/pkg/store"
)

// attemptDelivery drives one claimed capsule through a single delivery
// attempt and persists the resulting state with exactly one Update call.
// Returns true when the message went out.
//
// On success the capsule becomes sent with sent_at set; failure_count stays
// untouched as a lifetime counter. On failure the counter is incremented and
// the capsule either returns to pending or, at the failure limit, becomes
// permanently failed.
func (s *Scheduler) attemptDelivery(ctx context.Context, capsule *store.Capsule, now time.Time) bool {
	ctx, span := s.tracer.Start(ctx, "DeliverCapsule", trace.WithAttributes(
		attribute.String("capsule.id", capsule.ID),
		attribute.String("capsule.email", capsule.ReceiverEmail),
		attribute.Int("capsule.failure_count", capsule.FailureCount),
	))
	defer span.End()

	err := s.mailer.Send(ctx, mailer.Delivery{
		To:         capsule.ReceiverEmail,
		SenderName: capsule.SenderName,
		Message:    capsule.Message,
		WrittenAt:  capsule.CreatedAt,
		UnlockAt:   capsule.UnlockAt,
	})
	if err != nil {
		log.Printf("Capsule %s failed: %v", capsule.ID, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())

		errorAt := now
		capsule.LastError = err.Error()
		capsule.LastErrorAt = &errorAt
		capsule.FailureCount++
		if capsule.FailureCount >= s.failureLimit {
			capsule.Status = store.StatusFailed
		} else {
			capsule.Status = store.StatusPending
		}
	} else {
		sentAt := now
		capsule.Status = store.StatusSent
		capsule.SentAt = &sentAt
		capsule.LastError = ""
	}

	if updateErr := s.repo.Update(ctx, capsule); updateErr != nil {
		// The new state is lost for this pass; the capsule is re-attempted
		// once its processing claim expires.
		log.Printf("Failed to persist capsule %s: %v", capsule.ID, updateErr)
		span.RecordError(updateErr)
	}

	return err == nil
}
