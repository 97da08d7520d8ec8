// Package scheduler keeps a message archive current by running recurring
// per-group syncs on cron expressions.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/robfig/cron/v3"

	"github.com/flemzord/groupme/pkg/archive"
)

const defaultSchedule = "*/5 * * * *"

// Target names one group to keep synced and the message feed to pull from.
type Target struct {
	GroupID  string
	Messages archive.Lister

	// Schedule is a 5-field cron expression. Empty = every five minutes.
	Schedule string
}

func (t Target) schedule() string {
	if t.Schedule != "" {
		return t.Schedule
	}
	return defaultSchedule
}

// Syncer drives periodic archive syncs for a set of groups. A tick that
// fires while the previous sync of the same group is still running is
// skipped rather than stacked.
type Syncer struct {
	store  *archive.Store
	logger *slog.Logger

	mu     sync.Mutex
	cron   *cron.Cron
	cancel context.CancelFunc
}

// NewSyncer creates a syncer writing to the given archive.
func NewSyncer(store *archive.Store, logger *slog.Logger) *Syncer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Syncer{store: store, logger: logger}
}

// Start schedules a sync per target and begins ticking. It returns an error
// if any target carries an invalid cron expression.
func (s *Syncer) Start(targets ...Target) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	s.cron = cron.New(cron.WithParser(parser))

	for _, t := range targets {
		target := t
		// TryLock is atomic; a slow sync makes later ticks no-ops
		// instead of piling up.
		var running sync.Mutex

		_, err := s.cron.AddFunc(target.schedule(), func() {
			if !running.TryLock() {
				s.logger.Warn("sync still running, skipping tick", "group_id", target.GroupID)
				return
			}
			defer running.Unlock()
			s.sync(ctx, target)
		})
		if err != nil {
			cancel()
			return fmt.Errorf("scheduler: invalid schedule %q for group %s: %w",
				target.schedule(), target.GroupID, err)
		}
	}

	s.cron.Start()
	s.logger.Info("archive sync scheduled", "groups", len(targets))
	return nil
}

// sync runs one archive pull for the target.
func (s *Syncer) sync(ctx context.Context, target Target) {
	stored, err := s.store.Sync(ctx, target.Messages, target.GroupID)
	if err != nil {
		s.logger.Error("sync failed", "group_id", target.GroupID, "error", err)
		return
	}
	if stored > 0 {
		s.logger.Info("archived new messages", "group_id", target.GroupID, "count", stored)
	}
}

// Stop cancels pending syncs and waits for an in-flight one to finish.
func (s *Syncer) Stop(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}
	if s.cron != nil {
		<-s.cron.Stop().Done()
		s.logger.Info("archive sync stopped")
	}
	return nil
}
