package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/zoff-tech/time-capsule/pkg/config"
	"github.com/zoff-tech/time-capsule/pkg/mailer"
	"github.com/zoff-tech/time-capsule/pkg/store"
)

// fakeRepo is an in-memory CapsuleRepository.
type fakeRepo struct {
	mu          sync.Mutex
	capsules    []*store.Capsule
	fetchErr    error
	updateErr   error
	claimDenied map[string]bool
	updateCalls int
}

func (f *fakeRepo) Create(ctx context.Context, capsule *store.Capsule) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.capsules = append(f.capsules, capsule)
	return nil
}

func (f *fakeRepo) List(ctx context.Context) ([]store.Capsule, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []store.Capsule
	for i := len(f.capsules) - 1; i >= 0; i-- {
		out = append(out, *f.capsules[i])
	}
	return out, nil
}

func (f *fakeRepo) FetchDue(ctx context.Context, now time.Time, batchSize int) ([]store.Capsule, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	var out []store.Capsule
	for _, c := range f.capsules {
		if len(out) == batchSize {
			break
		}
		if c.Status == store.StatusPending && !c.UnlockAt.After(now) {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (f *fakeRepo) Claim(ctx context.Context, capsuleID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.claimDenied[capsuleID] {
		return false, nil
	}
	for _, c := range f.capsules {
		if c.ID == capsuleID && c.Status == store.StatusPending {
			c.Status = store.StatusProcessing
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeRepo) Update(ctx context.Context, capsule *store.Capsule) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updateCalls++
	if f.updateErr != nil {
		return f.updateErr
	}
	for _, c := range f.capsules {
		if c.ID == capsule.ID {
			c.Status = capsule.Status
			c.SentAt = capsule.SentAt
			c.LastError = capsule.LastError
			c.LastErrorAt = capsule.LastErrorAt
			c.FailureCount = capsule.FailureCount
			return nil
		}
	}
	return nil
}

func (f *fakeRepo) get(id string) *store.Capsule {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.capsules {
		if c.ID == id {
			return c
		}
	}
	return nil
}

func (f *fakeRepo) status(id string) store.Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.capsules {
		if c.ID == id {
			return c.Status
		}
	}
	return ""
}

func (f *fakeRepo) seed(fetchErr error, capsules ...*store.Capsule) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetchErr = fetchErr
	f.capsules = capsules
}

// fakeMailer fails scripted destinations and records the rest.
type fakeMailer struct {
	failFor map[string]error
	sent    []string
}

func (m *fakeMailer) Send(ctx context.Context, d mailer.Delivery) error {
	if err, ok := m.failFor[d.To]; ok {
		return &mailer.DeliveryError{To: d.To, Err: err}
	}
	m.sent = append(m.sent, d.To)
	return nil
}

func (m *fakeMailer) Close() error { return nil }

func testSettings() *config.Settings {
	return &config.Settings{
		PollInterval: time.Minute,
		BatchSize:    20,
		FailureLimit: 5,
	}
}

func pendingCapsule(id string, unlockAt time.Time, failureCount int) *store.Capsule {
	return &store.Capsule{
		ID:            id,
		SenderName:    "Alice",
		ReceiverEmail: id + "@example.com",
		Message:       "see you in the future",
		UnlockAt:      unlockAt,
		Status:        store.StatusPending,
		CreatedAt:     unlockAt.Add(-24 * time.Hour),
		FailureCount:  failureCount,
	}
}

func TestRunOnce_NoDueCapsules(t *testing.T) {
	repo := &fakeRepo{}
	m := &fakeMailer{}
	s := New(repo, m, testSettings())

	summary, err := s.RunOnce(context.Background(), time.Now())
	assert.NoError(t, err)
	assert.Equal(t, Summary{Checked: 0, Sent: 0, Failed: 0, Errors: nil}, summary)
	assert.Zero(t, repo.updateCalls)
	assert.Empty(t, m.sent)
}

func TestRunOnce_SkipsFutureCapsules(t *testing.T) {
	now := time.Now()
	repo := &fakeRepo{capsules: []*store.Capsule{
		pendingCapsule("c1", now.Add(time.Hour), 0),
	}}
	m := &fakeMailer{}
	s := New(repo, m, testSettings())

	summary, err := s.RunOnce(context.Background(), now)
	assert.NoError(t, err)
	assert.Zero(t, summary.Checked)
	assert.Empty(t, m.sent)
	assert.Equal(t, store.StatusPending, repo.get("c1").Status)
	assert.Zero(t, repo.get("c1").FailureCount)
}

func TestRunOnce_SkipsTerminalCapsules(t *testing.T) {
	now := time.Now()
	sent := pendingCapsule("c1", now.Add(-time.Hour), 0)
	sent.Status = store.StatusSent
	failed := pendingCapsule("c2", now.Add(-time.Hour), 5)
	failed.Status = store.StatusFailed

	repo := &fakeRepo{capsules: []*store.Capsule{sent, failed}}
	m := &fakeMailer{}
	s := New(repo, m, testSettings())

	summary, err := s.RunOnce(context.Background(), now)
	assert.NoError(t, err)
	assert.Zero(t, summary.Checked)
	assert.Empty(t, m.sent)
	assert.Equal(t, store.StatusSent, sent.Status)
	assert.Equal(t, store.StatusFailed, failed.Status)
	assert.Zero(t, repo.updateCalls)
}

func TestRunOnce_SuccessfulDelivery(t *testing.T) {
	now := time.Now()
	capsule := pendingCapsule("c1", now.Add(-24*time.Hour), 0)
	capsule.LastError = "relay unreachable"

	repo := &fakeRepo{capsules: []*store.Capsule{capsule}}
	m := &fakeMailer{}
	s := New(repo, m, testSettings())

	summary, err := s.RunOnce(context.Background(), now)
	assert.NoError(t, err)
	assert.Equal(t, 1, summary.Checked)
	assert.Equal(t, 1, summary.Sent)
	assert.Zero(t, summary.Failed)
	assert.Nil(t, summary.Errors)

	assert.Equal(t, store.StatusSent, capsule.Status)
	if assert.NotNil(t, capsule.SentAt) {
		assert.Equal(t, now, *capsule.SentAt)
	}
	assert.Empty(t, capsule.LastError)
	assert.Zero(t, capsule.FailureCount)
	// exactly one save per attempt
	assert.Equal(t, 1, repo.updateCalls)
	assert.Equal(t, []string{"c1@example.com"}, m.sent)
}

func TestRunOnce_FailureIncrementsCounter(t *testing.T) {
	now := time.Now()
	capsule := pendingCapsule("c1", now.Add(-time.Hour), 2)

	repo := &fakeRepo{capsules: []*store.Capsule{capsule}}
	m := &fakeMailer{failFor: map[string]error{
		"c1@example.com": errors.New("relay unreachable"),
	}}
	s := New(repo, m, testSettings())

	summary, err := s.RunOnce(context.Background(), now)
	assert.NoError(t, err)
	assert.Equal(t, 1, summary.Checked)
	assert.Equal(t, 1, summary.Failed)

	assert.Equal(t, store.StatusPending, capsule.Status)
	assert.Equal(t, 3, capsule.FailureCount)
	assert.Contains(t, capsule.LastError, "relay unreachable")
	if assert.NotNil(t, capsule.LastErrorAt) {
		assert.Equal(t, now, *capsule.LastErrorAt)
	}
	assert.Nil(t, capsule.SentAt)
	assert.Equal(t, 1, repo.updateCalls)
}

func TestRunOnce_FailureLimitReached(t *testing.T) {
	now := time.Now()
	capsule := pendingCapsule("c1", now.Add(-time.Hour), 4)

	repo := &fakeRepo{capsules: []*store.Capsule{capsule}}
	m := &fakeMailer{failFor: map[string]error{
		"c1@example.com": errors.New("mailbox gone"),
	}}
	s := New(repo, m, testSettings())

	_, err := s.RunOnce(context.Background(), now)
	assert.NoError(t, err)
	assert.Equal(t, 5, capsule.FailureCount)
	assert.Equal(t, store.StatusFailed, capsule.Status)

	// a further pass must not touch the failed capsule
	m.failFor = nil
	summary, err := s.RunOnce(context.Background(), now)
	assert.NoError(t, err)
	assert.Zero(t, summary.Checked)
	assert.Equal(t, 5, capsule.FailureCount)
	assert.Empty(t, m.sent)
}

func TestRunOnce_BatchBound(t *testing.T) {
	now := time.Now()
	repo := &fakeRepo{}
	for i := 0; i < 25; i++ {
		repo.capsules = append(repo.capsules, pendingCapsule(fmt.Sprintf("c%02d", i), now.Add(-time.Hour), 0))
	}
	m := &fakeMailer{}
	s := New(repo, m, testSettings())

	first, err := s.RunOnce(context.Background(), now)
	assert.NoError(t, err)
	assert.Equal(t, 20, first.Checked)
	assert.Equal(t, 20, first.Sent)

	second, err := s.RunOnce(context.Background(), now)
	assert.NoError(t, err)
	assert.Equal(t, 5, second.Checked)
	assert.Equal(t, 5, second.Sent)

	assert.Len(t, m.sent, 25)
}

func TestRunOnce_MixedBatch(t *testing.T) {
	now := time.Now()
	repo := &fakeRepo{capsules: []*store.Capsule{
		pendingCapsule("c1", now.Add(-time.Hour), 0),
		pendingCapsule("c2", now.Add(-time.Hour), 0),
		pendingCapsule("c3", now.Add(-time.Hour), 0),
	}}
	m := &fakeMailer{failFor: map[string]error{
		"c2@example.com": errors.New("mailbox full"),
	}}
	s := New(repo, m, testSettings())

	summary, err := s.RunOnce(context.Background(), now)
	assert.NoError(t, err)
	assert.Equal(t, 3, summary.Checked)
	assert.Equal(t, 2, summary.Sent)
	assert.Equal(t, 1, summary.Failed)
	if assert.Len(t, summary.Errors, 1) {
		assert.Equal(t, "c2", summary.Errors[0].CapsuleID)
		assert.Equal(t, "c2@example.com", summary.Errors[0].Email)
		assert.Contains(t, summary.Errors[0].Error, "mailbox full")
	}
	assert.Equal(t, store.StatusPending, repo.get("c2").Status)
	assert.Equal(t, 1, repo.get("c2").FailureCount)
}

func TestRunOnce_FetchErrorAbortsPass(t *testing.T) {
	repo := &fakeRepo{fetchErr: errors.New("connection refused")}
	m := &fakeMailer{}
	s := New(repo, m, testSettings())

	_, err := s.RunOnce(context.Background(), time.Now())
	assert.Error(t, err)
	assert.Empty(t, m.sent)
}

func TestRunOnce_UpdateErrorDoesNotAbortBatch(t *testing.T) {
	now := time.Now()
	repo := &fakeRepo{
		capsules: []*store.Capsule{
			pendingCapsule("c1", now.Add(-time.Hour), 0),
			pendingCapsule("c2", now.Add(-time.Hour), 0),
		},
		updateErr: errors.New("write timeout"),
	}
	m := &fakeMailer{}
	s := New(repo, m, testSettings())

	summary, err := s.RunOnce(context.Background(), now)
	assert.NoError(t, err)
	assert.Equal(t, 2, summary.Checked)
	assert.Equal(t, 2, summary.Sent)
	assert.Equal(t, 2, repo.updateCalls)
}

func TestRunOnce_LostClaimSkipsDelivery(t *testing.T) {
	now := time.Now()
	repo := &fakeRepo{
		capsules:    []*store.Capsule{pendingCapsule("c1", now.Add(-time.Hour), 0)},
		claimDenied: map[string]bool{"c1": true},
	}
	m := &fakeMailer{}
	s := New(repo, m, testSettings())

	summary, err := s.RunOnce(context.Background(), now)
	assert.NoError(t, err)
	assert.Equal(t, 1, summary.Checked)
	assert.Zero(t, summary.Sent)
	assert.Zero(t, summary.Failed)
	assert.Empty(t, m.sent)
	assert.Zero(t, repo.updateCalls)
}

func TestStart_RunsPeriodicPasses(t *testing.T) {
	now := time.Now()
	repo := &fakeRepo{capsules: []*store.Capsule{
		pendingCapsule("c1", now.Add(-time.Hour), 0),
	}}
	m := &fakeMailer{}
	cfg := testSettings()
	cfg.PollInterval = 10 * time.Millisecond
	s := New(repo, m, cfg)

	go s.Start(context.Background())
	defer s.Stop()

	assert.Eventually(t, func() bool {
		return repo.status("c1") == store.StatusSent
	}, time.Second, 5*time.Millisecond)
}

func TestStart_SurvivesFailingPasses(t *testing.T) {
	repo := &fakeRepo{fetchErr: errors.New("connection refused")}
	m := &fakeMailer{}
	cfg := testSettings()
	cfg.PollInterval = 5 * time.Millisecond
	s := New(repo, m, cfg)

	done := make(chan struct{})
	go func() {
		s.Start(context.Background())
		close(done)
	}()

	time.Sleep(30 * time.Millisecond)
	repo.seed(nil, pendingCapsule("c1", time.Now().Add(-time.Hour), 0))

	assert.Eventually(t, func() bool {
		return repo.status("c1") == store.StatusSent
	}, time.Second, 5*time.Millisecond)

	s.Stop()
	<-done
}
