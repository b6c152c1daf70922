package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ferhatkaplan/cinema-booking-engine/internal/domain"
	"github.com/ferhatkaplan/cinema-booking-engine/internal/points"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PostgresBookingRepository struct {
	db *pgxpool.Pool
}

func NewPostgresBookingRepository(db *pgxpool.Pool) *PostgresBookingRepository {
	return &PostgresBookingRepository{
		db: db,
	}
}

func (p *PostgresBookingRepository) Create(ctx context.Context, booking *domain.Booking) error {
	err := runInTx(ctx, p.db, func(tx pgx.Tx) error {
		// The authoritative conflict check. The ephemeral hold store was
		// consulted before we got here, but only this query, inside the
		// transaction, closes the seat-reservation race.
		layoutIDs := make([]int, len(booking.Tickets))
		for i, t := range booking.Tickets {
			layoutIDs[i] = t.LayoutID
		}

		var conflicts int

		query := `
			SELECT COUNT(*)
			FROM tickets
			WHERE showtime_id = $1
				AND layout_id = ANY($2)
				AND status IN ('pending', 'confirmed')
		`

		err := tx.QueryRow(ctx, query, booking.ShowtimeID, layoutIDs).Scan(&conflicts)
		if err != nil {
			return err
		}

		if conflicts > 0 {
			return domain.ErrSeatAlreadyBooked
		}

		query = `
			INSERT INTO bookings (
				reference,
				user_id,
				showtime_id,
				status,
				payment_deadline,
				total_amount,
				points_used,
				points_earned
			)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			RETURNING id, booking_date
		`

		err = tx.QueryRow(
			ctx,
			query,
			booking.Reference,
			booking.UserID,
			booking.ShowtimeID,
			domain.BookingStatusPending,
			booking.PaymentDeadline,
			booking.TotalAmount,
			booking.PointsUsed,
			booking.PointsEarned,
		).Scan(&booking.ID, &booking.BookingDate)

		if err != nil {
			return err
		}

		booking.Status = domain.BookingStatusPending

		// Seat rows exist only while a booking is in flight; one is created
		// here per consumed layout cell and deleted again on cancel/expire.
		for i := range booking.Tickets {
			ticket := &booking.Tickets[i]

			query = `
				INSERT INTO seats (layout_id, seat_number, active)
				VALUES ($1, $2, true)
				RETURNING id
			`

			err = tx.QueryRow(ctx, query, ticket.LayoutID, seatNumber(ticket)).Scan(&ticket.SeatID)
			if err != nil {
				return err
			}

			ticket.BookingID = booking.ID
			ticket.ShowtimeID = booking.ShowtimeID
			ticket.Status = domain.BookingStatusPending
		}

		rows := make([][]any, 0, len(booking.Tickets))
		for _, t := range booking.Tickets {
			rows = append(rows, []any{
				t.BookingID,
				t.SeatID,
				t.LayoutID,
				t.ShowtimeID,
				t.BasePrice,
				t.DiscountAmount,
				t.FinalPrice,
				domain.BookingStatusPending,
			})
		}

		_, err = tx.CopyFrom(
			ctx,
			pgx.Identifier{"tickets"},
			[]string{"booking_id", "seat_id", "layout_id", "showtime_id", "base_price", "discount_amount", "final_price", "status"},
			pgx.CopyFromRows(rows),
		)
		if err != nil {
			return err
		}

		if booking.PointsUsed > 0 {
			err = applyPointsDelta(
				ctx,
				tx,
				booking.UserID,
				-booking.PointsUsed,
				domain.LedgerStatusRedeemed,
				bookingNote(booking.Reference),
			)
			if err != nil {
				return err
			}
		}

		return insertHistory(ctx, tx, booking.ID, domain.BookingStatusPending, "booking created")
	})

	if err != nil {
		// Two transactions may pass the COUNT check concurrently; the partial
		// unique index then rejects the loser.
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return domain.ErrSeatAlreadyBooked
		}

		return err
	}

	return nil
}

func (p *PostgresBookingRepository) AttachCheckoutSession(ctx context.Context, id int, checkoutSessionID string) error {
	query := `
		UPDATE bookings
		SET checkout_session_id = $1
		WHERE id = $2 AND status = 'pending'
	`

	tag, err := p.db.Exec(ctx, query, checkoutSessionID, id)
	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return domain.ErrBookingNotPending
	}

	return nil
}

func (p *PostgresBookingRepository) ConfirmByCheckoutSession(
	ctx context.Context,
	checkoutSessionID string) (*domain.Booking, error) {

	var booking *domain.Booking

	err := runInTx(ctx, p.db, func(tx pgx.Tx) error {
		query := `
			SELECT id, reference, user_id, showtime_id, status, booking_date,
				payment_deadline, total_amount, points_used, points_earned, checkout_session_id
			FROM bookings
			WHERE checkout_session_id = $1
			FOR UPDATE
		`

		b, err := scanBooking(tx.QueryRow(ctx, query, checkoutSessionID))
		if err != nil {
			return err
		}

		// Lifecycle operations re-read status inside their transaction and
		// no-op when the booking has left the pending state.
		if b.Status != domain.BookingStatusPending {
			return domain.ErrBookingNotPending
		}

		if time.Now().After(b.PaymentDeadline) {
			// Race with the sweeper: the expiry path wins.
			return domain.ErrDeadlinePassed
		}

		earned := points.ValidateAward(b.PointsEarned, b.TotalAmount)
		if earned == 0 {
			earned = points.Award(b.TotalAmount)
		}

		query = `
			UPDATE bookings
			SET status = 'confirmed', points_earned = $1
			WHERE id = $2 AND status = 'pending'
		`

		tag, err := tx.Exec(ctx, query, earned, b.ID)
		if err != nil {
			return err
		}

		if tag.RowsAffected() == 0 {
			return domain.ErrBookingNotPending
		}

		_, err = tx.Exec(ctx, `UPDATE tickets SET status = 'confirmed' WHERE booking_id = $1`, b.ID)
		if err != nil {
			return err
		}

		if earned > 0 {
			err = applyPointsDelta(ctx, tx, b.UserID, earned, domain.LedgerStatusEarned, bookingNote(b.Reference))
			if err != nil {
				return err
			}
		}

		err = insertHistory(ctx, tx, b.ID, domain.BookingStatusConfirmed, "payment completed")
		if err != nil {
			return err
		}

		b.Status = domain.BookingStatusConfirmed
		b.PointsEarned = earned
		booking = b

		return nil
	})

	if err != nil {
		return nil, err
	}

	return booking, nil
}

func (p *PostgresBookingRepository) Cancel(
	ctx context.Context,
	id, userID int,
	reason string) (*domain.Booking, bool, error) {

	return p.release(ctx, id, userID, domain.BookingStatusCancelled, reason)
}

func (p *PostgresBookingRepository) Expire(ctx context.Context, id int) (*domain.Booking, bool, error) {
	return p.release(ctx, id, 0, domain.BookingStatusExpired, "payment deadline passed")
}

// release is the shared cancel/expire path: a status-guarded transition out
// of pending, hard deletion of the booking's tickets and seats, an idempotent
// points refund and a history record. applied is false when a concurrent
// confirm, cancel or expire got there first.
func (p *PostgresBookingRepository) release(
	ctx context.Context,
	id, userID int,
	target domain.BookingStatus,
	reason string) (*domain.Booking, bool, error) {

	var (
		booking *domain.Booking
		applied bool
	)

	err := runInTx(ctx, p.db, func(tx pgx.Tx) error {
		query := `
			SELECT id, reference, user_id, showtime_id, status, booking_date,
				payment_deadline, total_amount, points_used, points_earned, checkout_session_id
			FROM bookings
			WHERE id = $1
			FOR UPDATE
		`

		b, err := scanBooking(tx.QueryRow(ctx, query, id))
		if err != nil {
			return err
		}

		if userID > 0 && b.UserID != userID {
			return domain.ErrRecordNotFound
		}

		booking = b

		if b.Status != domain.BookingStatusPending {
			// Already terminal; silently skipped, never an error.
			return nil
		}

		tag, err := tx.Exec(
			ctx,
			`UPDATE bookings SET status = $1 WHERE id = $2 AND status = 'pending'`,
			target,
			b.ID,
		)
		if err != nil {
			return err
		}

		if tag.RowsAffected() == 0 {
			return nil
		}

		err = deleteTicketsAndSeats(ctx, tx, b.ID)
		if err != nil {
			return err
		}

		err = insertHistory(ctx, tx, b.ID, target, reason)
		if err != nil {
			return err
		}

		refunded, err := refundBookingPoints(ctx, tx, b.UserID, b.PointsUsed, b.Reference)
		if err != nil {
			// A pre-existing refund entry must not roll back the release
			// itself; the booking still transitions, just without a second
			// refund.
			if !errors.Is(err, domain.ErrRefundAlreadyApplied) {
				return err
			}
		}

		b.Status = target
		b.PointsRefunded = refunded
		applied = true

		return nil
	})

	if err != nil {
		return nil, false, err
	}

	return booking, applied, nil
}

func (p *PostgresBookingRepository) FindExpired(ctx context.Context, asOf time.Time, limit int) ([]int, error) {
	query := `
		SELECT id
		FROM bookings
		WHERE status = 'pending' AND payment_deadline < $1
		ORDER BY payment_deadline
		LIMIT $2
	`

	rows, err := p.db.Query(ctx, query, asOf, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := make([]int, 0)

	for rows.Next() {
		var id int

		if err := rows.Scan(&id); err != nil {
			return nil, err
		}

		ids = append(ids, id)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return ids, nil
}

func (p *PostgresBookingRepository) GetActiveSeatsByShowtime(
	ctx context.Context,
	showtimeID int) ([]domain.ActiveSeat, error) {

	query := `
		SELECT layout_id, status
		FROM tickets
		WHERE showtime_id = $1 AND status IN ('pending', 'confirmed')
	`

	rows, err := p.db.Query(ctx, query, showtimeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	activeSeats := make([]domain.ActiveSeat, 0)

	for rows.Next() {
		var seat domain.ActiveSeat

		if err := rows.Scan(&seat.LayoutID, &seat.Status); err != nil {
			return nil, err
		}

		activeSeats = append(activeSeats, seat)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return activeSeats, nil
}

func (p *PostgresBookingRepository) GetByID(ctx context.Context, id int) (*domain.Booking, error) {
	query := `
		SELECT id, reference, user_id, showtime_id, status, booking_date,
			payment_deadline, total_amount, points_used, points_earned, checkout_session_id
		FROM bookings
		WHERE id = $1
	`

	booking, err := scanBooking(p.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, err
	}

	booking.Tickets, err = p.retrieveTickets(ctx, id)
	if err != nil {
		return nil, err
	}

	return booking, nil
}

func (p *PostgresBookingRepository) GetByIDAndUserID(ctx context.Context, id, userID int) (*domain.Booking, error) {
	booking, err := p.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if booking.UserID != userID {
		return nil, domain.ErrRecordNotFound
	}

	return booking, nil
}

func (p *PostgresBookingRepository) GetSummariesByUserID(
	ctx context.Context,
	userID int,
	pagination domain.Pagination) ([]domain.BookingSummary, *domain.Metadata, error) {

	query := `
		SELECT
			COUNT(*) OVER(),
			b.id,
			b.reference,
			s.movie_title,
			s.starts_at,
			b.status,
			b.total_amount,
			(SELECT COUNT(*) FROM tickets t WHERE t.booking_id = b.id),
			b.booking_date
		FROM bookings b
		JOIN showtimes s ON b.showtime_id = s.id
		WHERE b.user_id = $1
		ORDER BY b.booking_date DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := p.db.Query(ctx, query, userID, pagination.Limit(), pagination.Offset())
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	summaries := make([]domain.BookingSummary, 0)
	totalRecords := 0

	for rows.Next() {
		var summary domain.BookingSummary

		err := rows.Scan(
			&totalRecords,
			&summary.BookingID,
			&summary.Reference,
			&summary.MovieTitle,
			&summary.ShowtimeDate,
			&summary.Status,
			&summary.TotalAmount,
			&summary.SeatCount,
			&summary.CreatedAt,
		)
		if err != nil {
			return nil, nil, err
		}

		summaries = append(summaries, summary)
	}

	if err = rows.Err(); err != nil {
		return nil, nil, err
	}

	metadata := domain.NewMetadata(totalRecords, pagination.Page, pagination.PageSize)

	return summaries, metadata, nil
}

func (p *PostgresBookingRepository) retrieveTickets(ctx context.Context, bookingID int) ([]domain.Ticket, error) {
	query := `
		SELECT t.id, t.booking_id, t.seat_id, t.layout_id, t.showtime_id,
			sl.row_label, sl.col_number, sl.seat_type,
			t.base_price, t.discount_amount, t.final_price, t.status
		FROM tickets t
		JOIN seat_layouts sl ON t.layout_id = sl.id
		WHERE t.booking_id = $1
		ORDER BY sl.row_label, sl.col_number
	`

	rows, err := p.db.Query(ctx, query, bookingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tickets := make([]domain.Ticket, 0)

	for rows.Next() {
		var ticket domain.Ticket

		err := rows.Scan(
			&ticket.ID,
			&ticket.BookingID,
			&ticket.SeatID,
			&ticket.LayoutID,
			&ticket.ShowtimeID,
			&ticket.RowLabel,
			&ticket.ColumnNumber,
			&ticket.SeatType,
			&ticket.BasePrice,
			&ticket.DiscountAmount,
			&ticket.FinalPrice,
			&ticket.Status,
		)
		if err != nil {
			return nil, err
		}

		tickets = append(tickets, ticket)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return tickets, nil
}

func scanBooking(row pgx.Row) (*domain.Booking, error) {
	var booking domain.Booking

	err := row.Scan(
		&booking.ID,
		&booking.Reference,
		&booking.UserID,
		&booking.ShowtimeID,
		&booking.Status,
		&booking.BookingDate,
		&booking.PaymentDeadline,
		&booking.TotalAmount,
		&booking.PointsUsed,
		&booking.PointsEarned,
		&booking.CheckoutSessionID,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrRecordNotFound
		}

		return nil, err
	}

	return &booking, nil
}

// deleteTicketsAndSeats destroys the booking's tickets and their seat rows.
// Seats only exist for in-flight bookings, so they are removed rather than
// soft-marked.
func deleteTicketsAndSeats(ctx context.Context, tx pgx.Tx, bookingID int) error {
	rows, err := tx.Query(ctx, `SELECT seat_id FROM tickets WHERE booking_id = $1`, bookingID)
	if err != nil {
		return err
	}

	seatIDs := make([]int, 0)

	for rows.Next() {
		var seatID int

		if err := rows.Scan(&seatID); err != nil {
			rows.Close()
			return err
		}

		seatIDs = append(seatIDs, seatID)
	}

	if err := rows.Err(); err != nil {
		rows.Close()
		return err
	}
	rows.Close()

	_, err = tx.Exec(ctx, `DELETE FROM tickets WHERE booking_id = $1`, bookingID)
	if err != nil {
		return err
	}

	_, err = tx.Exec(ctx, `DELETE FROM seats WHERE id = ANY($1)`, seatIDs)

	return err
}

func insertHistory(ctx context.Context, tx pgx.Tx, bookingID int, status domain.BookingStatus, reason string) error {
	query := `
		INSERT INTO booking_history (booking_id, status, reason)
		VALUES ($1, $2, $3)
	`

	_, err := tx.Exec(ctx, query, bookingID, status, reason)

	return err
}

func seatNumber(ticket *domain.Ticket) string {
	return fmt.Sprintf("%s%d", ticket.RowLabel, ticket.ColumnNumber)
}
