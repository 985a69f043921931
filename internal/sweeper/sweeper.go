// Package sweeper deletes translated outputs after their download grace
// period. Deletions are durable rows, so a restart never strands a file.
package sweeper

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/layerloom/psdtranslate/internal/storage"
	"github.com/layerloom/psdtranslate/internal/store"
)

const sweepBatchSize = 50

// Sweeper drains the pending_deletions table on a fixed interval.
type Sweeper struct {
	store    store.Store
	objects  storage.ObjectStore
	interval time.Duration
	logger   *slog.Logger
}

func New(s store.Store, objects storage.ObjectStore, interval time.Duration, logger *slog.Logger) *Sweeper {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sweeper{store: s, objects: objects, interval: interval, logger: logger}
}

// Run sweeps until the context is cancelled. One sweep runs immediately so a
// restart catches up on overdue deletions without waiting a full interval.
func (s *Sweeper) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.sweep(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	due, err := s.store.DuePendingDeletions(ctx, time.Now(), sweepBatchSize)
	if err != nil {
		s.logger.Error("failed to list due deletions", "error", err)
		return
	}

	for _, d := range due {
		if err := s.deleteOne(ctx, d.ObjectKey); err != nil {
			s.logger.Error("deletion failed", "object_key", d.ObjectKey, "attempts", d.Attempts+1, "error", err)
			if err := s.store.MarkDeletionFailed(ctx, d.ID, err.Error()); err != nil {
				s.logger.Error("failed to record deletion failure", "object_key", d.ObjectKey, "error", err)
			}
			continue
		}
		if err := s.store.MarkDeletionDone(ctx, d.ID); err != nil {
			s.logger.Error("failed to record deletion", "object_key", d.ObjectKey, "error", err)
			continue
		}
		s.logger.Info("expired output deleted", "object_key", d.ObjectKey)
	}
}

// deleteOne removes the object. A missing object counts as success; someone
// or something else already cleaned it up.
func (s *Sweeper) deleteOne(ctx context.Context, key string) error {
	err := s.objects.Delete(ctx, key)
	if err != nil && !errors.Is(err, storage.ErrObjectNotFound) {
		return err
	}
	return nil
}
