package services

import (
	"context"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/dmitrijs2005/fieldsync/internal/logging"
)

// Scheduler runs SyncAll every interval. After a failing pass the next one
// is delayed by an exponential backoff capped at maxBackoff; a clean pass
// resets it.
type Scheduler struct {
	sync       SyncService
	interval   time.Duration
	maxBackoff time.Duration
	log        logging.Logger

	after func(time.Duration) <-chan time.Time
}

func NewScheduler(sync SyncService, interval, maxBackoff time.Duration, log logging.Logger) *Scheduler {
	if interval <= 0 {
		interval = time.Minute
	}
	if maxBackoff < interval {
		maxBackoff = interval
	}
	if log == nil {
		log = logging.Nop()
	}
	return &Scheduler{
		sync:       sync,
		interval:   interval,
		maxBackoff: maxBackoff,
		log:        log.With("component", "scheduler"),
		after:      time.After,
	}
}

func (s *Scheduler) newBackoff() retry.Backoff {
	return retry.WithCappedDuration(s.maxBackoff, retry.NewExponential(s.interval))
}

// Run blocks until ctx is done or a pass fails with a signing error. The
// first pass starts immediately.
func (s *Scheduler) Run(ctx context.Context) error {
	backoff := s.newBackoff()

	for {
		delay := s.interval

		if _, err := s.sync.SyncAll(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if fatal(err) {
				s.log.Error(ctx, "sync stopped", "error", err)
				return err
			}
			next, _ := backoff.Next()
			delay = next
			s.log.Warn(ctx, "sync pass failed", "error", err, "retry_in", delay.String())
		} else {
			backoff = s.newBackoff()
		}

		select {
		case <-ctx.Done():
			return nil
		case <-s.after(delay):
		}
	}
}
