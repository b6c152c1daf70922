package hold

import (
	"context"
	"log/slog"
	"time"
)

// Sweeper periodically evicts expired holds so snapshot subscribers are
// notified without polling. It is separate from the booking-expiration
// sweeper; this one only touches the ephemeral store.
type Sweeper struct {
	store    *Store
	interval time.Duration
	logger   *slog.Logger
	onChange func(ctx context.Context, showtimeID int)
}

// NewSweeper builds a hold sweeper. onChange is invoked for every showtime
// whose hold set changed during a cycle, typically to rebuild and broadcast
// the seat snapshot.
func NewSweeper(
	store *Store,
	interval time.Duration,
	logger *slog.Logger,
	onChange func(ctx context.Context, showtimeID int)) *Sweeper {

	return &Sweeper{
		store:    store,
		interval: interval,
		logger:   logger,
		onChange: onChange,
	}
}

// Run blocks until ctx is cancelled, sweeping on a fixed interval.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweepOnce(ctx)
		}
	}
}

func (s *Sweeper) sweepOnce(ctx context.Context) {
	showtimes, err := s.store.TrackedShowtimes(ctx)
	if err != nil {
		s.logger.Error("hold sweeper failed to list tracked showtimes", "error", err)
		return
	}

	for _, showtimeID := range showtimes {
		expired, err := s.store.Sweep(ctx, showtimeID)
		if err != nil {
			s.logger.Error("hold sweep failed", "showtime_id", showtimeID, "error", err)
			continue
		}

		if expired > 0 {
			s.logger.Info("evicted expired seat holds", "showtime_id", showtimeID, "count", expired)

			if s.onChange != nil {
				s.onChange(ctx, showtimeID)
			}
		}
	}
}
