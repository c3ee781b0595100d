package sleep

import (
	"context"
	"errors"
	"log"
	"time"
)

// Sweeper periodically finalizes accumulators whose device went quiet, so a
// session is not stranded until the store's TTL silently discards it.
type Sweeper struct {
	recon    *Reconstructor
	interval time.Duration
	logger   *log.Logger
}

// NewSweeper constructs a Sweeper around the reconstructor.
func NewSweeper(recon *Reconstructor, interval time.Duration, logger *log.Logger) *Sweeper {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	if logger == nil {
		logger = log.New(log.Writer(), "[sweeper] ", log.LstdFlags)
	}
	return &Sweeper{recon: recon, interval: interval, logger: logger}
}

// Run loops until the context is cancelled, sweeping once per interval.
func (s *Sweeper) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			finalized, err := s.recon.SweepOnce(ctx, time.Now().UTC())
			if err != nil {
				if errors.Is(err, context.Canceled) {
					return err
				}
				s.logger.Printf("sweep error: %v", err)
				continue
			}
			if finalized > 0 {
				s.logger.Printf("swept %d idle sleep sessions", finalized)
			}
		}
	}
}

// SweepOnce finalizes every accumulator whose last event is older than the gap
// threshold as of now. It returns the number of sessions finalized.
func (r *Reconstructor) SweepOnce(ctx context.Context, now time.Time) (int, error) {
	users, err := r.store.OpenUsers(ctx)
	if err != nil {
		return 0, err
	}
	recordOpenAccumulators(len(users))

	finalized := 0
	for _, userID := range users {
		if err := ctx.Err(); err != nil {
			return finalized, err
		}

		lock := r.lockUser(userID)
		acc, err := r.store.Get(ctx, userID)
		if err != nil {
			r.unlockUser(userID, lock)
			return finalized, err
		}
		if acc == nil || now.Sub(acc.LastTimestamp) <= r.cfg.GapThreshold {
			r.unlockUser(userID, lock)
			continue
		}
		if err := r.finalize(ctx, acc); err != nil {
			r.unlockUser(userID, lock)
			return finalized, err
		}
		r.unlockUser(userID, lock)
		finalized++
		recordSweepFinalized()
	}
	return finalized, nil
}
