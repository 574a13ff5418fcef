package scheduler

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/zoff-tech/time-capsule/pkg/config"
	"github.com/zoff-tech/time-capsule/pkg/mailer"
	"github.com/zoff-tech/time-capsule/pkg/store"
)

// Summary aggregates the outcome of one scheduler pass.
type Summary struct {
	Checked int               `json:"checked"`
	Sent    int               `json:"sent"`
	Failed  int               `json:"failed"`
	Errors  []DeliveryFailure `json:"errors"`
}

// DeliveryFailure describes one failed delivery attempt within a pass.
type DeliveryFailure struct {
	CapsuleID string `json:"capsuleId"`
	Email     string `json:"email"`
	Error     string `json:"error"`
}

// Scheduler periodically delivers due capsules. Passes run sequentially over
// a bounded batch; a single pass can also be triggered on demand through
// RunOnce.
type Scheduler struct {
	repo         store.CapsuleRepository
	mailer       mailer.Mailer
	tracer       trace.Tracer
	pollInterval time.Duration
	batchSize    int
	failureLimit int

	stop     chan struct{}
	stopOnce sync.Once
}

// New creates a new Scheduler instance.
func New(repo store.CapsuleRepository, m mailer.Mailer, cfg *config.Settings) *Scheduler {
	return &Scheduler{
		repo:         repo,
		mailer:       m,
		tracer:       otel.Tracer("time-capsule"),
		pollInterval: cfg.PollInterval,
		batchSize:    cfg.BatchSize,
		failureLimit: cfg.FailureLimit,
		stop:         make(chan struct{}),
	}
}

// RunOnce executes one pass: fetch the due batch, claim and deliver each
// capsule sequentially, and aggregate the results. Per-capsule delivery
// failures are recorded in the summary and never abort the batch; only a
// batch-fetch failure aborts the pass.
func (s *Scheduler) RunOnce(ctx context.Context, now time.Time) (Summary, error) {
	ctx, span := s.tracer.Start(ctx, "SchedulerPass")
	defer span.End()

	capsules, err := s.repo.FetchDue(ctx, now, s.batchSize)
	if err != nil {
		span.RecordError(err)
		return Summary{}, fmt.Errorf("fetch due capsules: %w", err)
	}

	summary := Summary{Checked: len(capsules)}
	if len(capsules) == 0 {
		return summary, nil
	}

	log.Printf("Processing %d due capsule(s)", len(capsules))

	for i := range capsules {
		capsule := &capsules[i]

		claimed, err := s.repo.Claim(ctx, capsule.ID)
		if err != nil {
			log.Printf("Failed to claim capsule %s: %v", capsule.ID, err)
			continue
		}
		if !claimed {
			// Another pass got here first.
			continue
		}

		if s.attemptDelivery(ctx, capsule, now) {
			summary.Sent++
		} else {
			summary.Failed++
			summary.Errors = append(summary.Errors, DeliveryFailure{
				CapsuleID: capsule.ID,
				Email:     capsule.ReceiverEmail,
				Error:     capsule.LastError,
			})
		}
	}

	log.Printf("Sent: %d/%d, Failed: %d", summary.Sent, summary.Checked, summary.Failed)

	span.SetAttributes(
		attribute.Int("pass.checked", summary.Checked),
		attribute.Int("pass.sent", summary.Sent),
		attribute.Int("pass.failed", summary.Failed),
	)

	return summary, nil
}

// Start runs passes on the configured interval until the context is canceled
// or Stop is called. A pass that fails or panics is logged and does not stop
// future passes.
func (s *Scheduler) Start(ctx context.Context) {
	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	log.Printf("Scheduler started (interval %s)", s.pollInterval)

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stop:
			return
		case <-ticker.C:
			s.runScheduled(ctx)
		}
	}
}

// Stop halts the periodic passes. Safe to call more than once.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() { close(s.stop) })
}

func (s *Scheduler) runScheduled(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Scheduler pass panicked: %v", r)
		}
	}()

	if _, err := s.RunOnce(ctx, time.Now()); err != nil {
		log.Printf("Scheduler pass failed: %v", err)
	}
}
