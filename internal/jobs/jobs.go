// Package jobs runs the periodic maintenance tasks.
package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"
)

const jobTimeout = 2 * time.Minute

// GuestCartStore empties carts whose guest owner has expired.
type GuestCartStore interface {
	ClearExpiredGuestCarts(ctx context.Context, now time.Time) (int64, error)
}

// Scheduler wraps a cron runner with the storefront's jobs registered on it.
type Scheduler struct {
	cron *cron.Cron
	now  func() time.Time
}

// NewScheduler registers the guest cart cleanup on the given cron spec
// (e.g. "@hourly" or "0 3 * * *").
func NewScheduler(guestCleanupSpec string, store GuestCartStore) (*Scheduler, error) {
	s := &Scheduler{
		cron: cron.New(cron.WithChain(cron.Recover(cron.DefaultLogger))),
		now:  time.Now,
	}
	if _, err := s.cron.AddFunc(guestCleanupSpec, func() { s.cleanupGuestCarts(store) }); err != nil {
		return nil, fmt.Errorf("schedule guest cleanup %q: %w", guestCleanupSpec, err)
	}
	return s, nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
	log.WithField("jobs", len(s.cron.Entries())).Info("⏰ Scheduler started")
}

// Stop prevents new runs and waits for running jobs until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) {
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
		log.Warn("⚠️  Scheduler stop timed out")
	}
}

func (s *Scheduler) cleanupGuestCarts(store GuestCartStore) {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	n, err := store.ClearExpiredGuestCarts(ctx, s.now())
	if err != nil {
		log.WithError(err).Error("❌ Guest cart cleanup failed")
		return
	}
	if n > 0 {
		log.WithField("removed", n).Info("🧹 Expired guest carts cleared")
	}
}
