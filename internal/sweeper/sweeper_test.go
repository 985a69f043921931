package sweeper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/layerloom/psdtranslate/internal/storage"
	"github.com/layerloom/psdtranslate/internal/store"
	"github.com/layerloom/psdtranslate/pkg/models"
)

// sweepStore stubs just the deletion queue; any other Store call panics via
// the nil embedded interface.
type sweepStore struct {
	store.Store
	mu     sync.Mutex
	due    []*models.PendingDeletion
	done   []uuid.UUID
	failed map[uuid.UUID]string
}

func (s *sweepStore) DuePendingDeletions(context.Context, time.Time, int) ([]*models.PendingDeletion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	due := s.due
	s.due = nil
	return due, nil
}

func (s *sweepStore) MarkDeletionDone(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.done = append(s.done, id)
	return nil
}

func (s *sweepStore) MarkDeletionFailed(_ context.Context, id uuid.UUID, lastError string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failed == nil {
		s.failed = map[uuid.UUID]string{}
	}
	s.failed[id] = lastError
	return nil
}

type sweepObjects struct {
	storage.ObjectStore
	mu      sync.Mutex
	deleted []string
	errs    map[string]error
}

func (o *sweepObjects) Delete(_ context.Context, key string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if err := o.errs[key]; err != nil {
		return err
	}
	o.deleted = append(o.deleted, key)
	return nil
}

func pending(key string) *models.PendingDeletion {
	return &models.PendingDeletion{
		ID:          uuid.New(),
		ObjectKey:   key,
		DeleteAfter: time.Now().Add(-time.Minute),
	}
}

func TestSweepDeletesDueObjects(t *testing.T) {
	a, b := pending("a-translated.psd"), pending("b-translated.psd")
	st := &sweepStore{due: []*models.PendingDeletion{a, b}}
	objects := &sweepObjects{}

	sw := New(st, objects, time.Minute, slog.New(slog.DiscardHandler))
	sw.sweep(context.Background())

	assert.ElementsMatch(t, []string{"a-translated.psd", "b-translated.psd"}, objects.deleted)
	assert.ElementsMatch(t, []uuid.UUID{a.ID, b.ID}, st.done)
	assert.Empty(t, st.failed)
}

func TestSweepMissingObjectCountsAsDeleted(t *testing.T) {
	d := pending("gone-translated.psd")
	st := &sweepStore{due: []*models.PendingDeletion{d}}
	objects := &sweepObjects{errs: map[string]error{
		"gone-translated.psd": fmt.Errorf("%w: gone-translated.psd", storage.ErrObjectNotFound),
	}}

	sw := New(st, objects, time.Minute, slog.New(slog.DiscardHandler))
	sw.sweep(context.Background())

	assert.Equal(t, []uuid.UUID{d.ID}, st.done)
	assert.Empty(t, st.failed)
}

func TestSweepRecordsFailuresAndContinues(t *testing.T) {
	bad, good := pending("bad-translated.psd"), pending("good-translated.psd")
	st := &sweepStore{due: []*models.PendingDeletion{bad, good}}
	objects := &sweepObjects{errs: map[string]error{
		"bad-translated.psd": errors.New("bucket unavailable"),
	}}

	sw := New(st, objects, time.Minute, slog.New(slog.DiscardHandler))
	sw.sweep(context.Background())

	// the failed row stays queued for the next sweep, the rest proceed
	assert.Equal(t, []uuid.UUID{good.ID}, st.done)
	require.Contains(t, st.failed, bad.ID)
	assert.Contains(t, st.failed[bad.ID], "bucket unavailable")
}

func TestRunStopsOnContextCancel(t *testing.T) {
	st := &sweepStore{}
	sw := New(st, &sweepObjects{}, 10*time.Millisecond, slog.New(slog.DiscardHandler))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- sw.Run(ctx) }()

	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop after cancellation")
	}
}
