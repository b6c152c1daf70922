// Package sweeper expires overdue bookings. It is the single authoritative
// expiry mechanism: per-booking local timers are only a best-effort shortcut
// and both paths funnel into the same idempotent, status-guarded transition,
// so either may fire first.
package sweeper

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/ferhatkaplan/cinema-booking-engine/internal/domain"
	"github.com/ferhatkaplan/cinema-booking-engine/internal/mailer"
)

const defaultBatchSize = 100

type Sweeper struct {
	bookings  domain.BookingRepository
	users     domain.UserRepository
	seats     domain.SeatRepository
	mailer    mailer.Mailer
	logger    *slog.Logger
	clock     Clock
	interval  time.Duration
	batch     int
	onExpired func(ctx context.Context, showtimeID int)
}

// New builds a sweeper. onExpired is invoked for every applied expiration,
// typically to rebuild and broadcast the showtime's seat snapshot.
func New(
	bookings domain.BookingRepository,
	users domain.UserRepository,
	seats domain.SeatRepository,
	m mailer.Mailer,
	logger *slog.Logger,
	clock Clock,
	interval time.Duration,
	onExpired func(ctx context.Context, showtimeID int)) *Sweeper {

	return &Sweeper{
		bookings:  bookings,
		users:     users,
		seats:     seats,
		mailer:    m,
		logger:    logger,
		clock:     clock,
		interval:  interval,
		batch:     defaultBatchSize,
		onExpired: onExpired,
	}
}

// Run blocks until ctx is cancelled, sweeping on a fixed interval. Cycles are
// not mutually excluded; correctness relies on the status-guarded update, so
// an overlapping cycle can only lose races, never double-release.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			expired, err := s.SweepOnce(ctx)
			if err != nil {
				s.logger.Error("booking expiration sweep failed", "error", err)
				continue
			}

			if expired > 0 {
				s.logger.Info("expired overdue bookings", "count", expired)
			}
		}
	}
}

// SweepOnce runs a single sweep cycle and returns how many bookings it
// expired. The query goes straight to the persisted store; the ephemeral
// hold cache is never consulted. Per-booking failures are logged and the
// cycle continues with the remaining bookings.
func (s *Sweeper) SweepOnce(ctx context.Context) (int, error) {
	ids, err := s.bookings.FindExpired(ctx, s.clock.Now(), s.batch)
	if err != nil {
		return 0, err
	}

	expired := 0

	for _, id := range ids {
		applied, err := s.ExpireBooking(ctx, id)
		if err != nil {
			s.logger.Error("failed to expire booking", "booking_id", id, "error", err)
			continue
		}

		if applied {
			expired++
		}
	}

	return expired, nil
}

// ExpireBooking attempts the conditional pending-to-expired transition for a
// single booking. A booking concurrently confirmed or cancelled is silently
// skipped. Also used by the local deadline timers scheduled at creation.
func (s *Sweeper) ExpireBooking(ctx context.Context, id int) (bool, error) {
	booking, applied, err := s.bookings.Expire(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrRecordNotFound) {
			return false, nil
		}

		return false, err
	}

	if !applied {
		return false, nil
	}

	if booking.PointsUsed > 0 && !booking.PointsRefunded {
		s.logger.Warn("points refund skipped, already applied",
			"booking_id", booking.ID,
			"points", booking.PointsUsed,
		)
	}

	if s.onExpired != nil {
		s.onExpired(ctx, booking.ShowtimeID)
	}

	s.notifyExpiration(ctx, booking)

	return true, nil
}

// notifyExpiration emails the customer. Failure to notify never rolls back
// or retries the expiration itself.
func (s *Sweeper) notifyExpiration(ctx context.Context, booking *domain.Booking) {
	user, err := s.users.GetById(ctx, booking.UserID)
	if err != nil {
		s.logger.Error("cannot resolve user for expiration notice", "booking_id", booking.ID, "error", err)
		return
	}

	movieTitle := ""

	showtime, err := s.seats.GetShowtime(ctx, booking.ShowtimeID)
	if err == nil {
		movieTitle = showtime.MovieTitle
	}

	data := map[string]any{
		"FirstName":      user.FirstName,
		"Reference":      booking.Reference,
		"MovieTitle":     movieTitle,
		"PointsUsed":     booking.PointsUsed,
		"PointsRefunded": booking.PointsRefunded,
	}

	err = s.mailer.Send(user.Email, "booking_expired.tmpl", data)
	if err != nil {
		s.logger.Error("failed to send expiration notice", "booking_id", booking.ID, "error", err)
	}
}
