package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/ferhatkaplan/cinema-booking-engine/internal/domain"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PostgresPointsRepository struct {
	db *pgxpool.Pool
}

func NewPostgresPointsRepository(db *pgxpool.Pool) *PostgresPointsRepository {
	return &PostgresPointsRepository{
		db: db,
	}
}

func (p *PostgresPointsRepository) GetBalance(ctx context.Context, userID int) (*domain.UserPoints, error) {
	query := `
		SELECT user_id, total_points, last_updated
		FROM user_points
		WHERE user_id = $1
	`

	var balance domain.UserPoints

	err := p.db.QueryRow(ctx, query, userID).Scan(
		&balance.UserID,
		&balance.TotalPoints,
		&balance.LastUpdated,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// A user without a row simply has no points yet.
			return &domain.UserPoints{UserID: userID}, nil
		}

		return nil, err
	}

	return &balance, nil
}

func (p *PostgresPointsRepository) GetEntriesByUserID(
	ctx context.Context,
	userID int,
	pagination domain.Pagination) ([]domain.PointsLedgerEntry, *domain.Metadata, error) {

	query := `
		SELECT COUNT(*) OVER(), id, user_id, points_delta, entry_date, status, note
		FROM points_ledger
		WHERE user_id = $1
		ORDER BY entry_date DESC, id DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := p.db.Query(ctx, query, userID, pagination.Limit(), pagination.Offset())
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	entries := make([]domain.PointsLedgerEntry, 0)
	totalRecords := 0

	for rows.Next() {
		var entry domain.PointsLedgerEntry

		err := rows.Scan(
			&totalRecords,
			&entry.ID,
			&entry.UserID,
			&entry.PointsDelta,
			&entry.Date,
			&entry.Status,
			&entry.Note,
		)
		if err != nil {
			return nil, nil, err
		}

		entries = append(entries, entry)
	}

	if err = rows.Err(); err != nil {
		return nil, nil, err
	}

	metadata := domain.NewMetadata(totalRecords, pagination.Page, pagination.PageSize)

	return entries, metadata, nil
}

// bookingNote is the ledger note format tying an entry to its booking. It is
// also the refund idempotency key.
func bookingNote(reference string) string {
	return fmt.Sprintf("booking:%s", reference)
}

// applyPointsDelta mutates a user's balance and appends the matching ledger
// entry inside the caller's transaction. Negative deltas fail with
// ErrInsufficientPoints when the balance cannot cover them.
func applyPointsDelta(
	ctx context.Context,
	tx pgx.Tx,
	userID int,
	delta int,
	status domain.LedgerEntryStatus,
	note string) error {

	if delta == 0 {
		return nil
	}

	query := `
		INSERT INTO user_points (user_id, total_points, last_updated)
		VALUES ($1, $2, now())
		ON CONFLICT (user_id) DO UPDATE
		SET total_points = user_points.total_points + EXCLUDED.total_points,
			last_updated = now()
		WHERE user_points.total_points + EXCLUDED.total_points >= 0
		RETURNING user_id
	`

	var id int

	err := tx.QueryRow(ctx, query, userID, delta).Scan(&id)
	if err != nil {
		// No row back means the guarded update refused a negative balance; a
		// check violation means the insert path tried to open one below zero.
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrInsufficientPoints
		}

		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.CheckViolation {
			return domain.ErrInsufficientPoints
		}

		return err
	}

	query = `
		INSERT INTO points_ledger (user_id, points_delta, status, note)
		VALUES ($1, $2, $3, $4)
	`

	_, err = tx.Exec(ctx, query, userID, delta, status, note)

	return err
}

// refundBookingPoints restores points previously deducted for a booking. The
// refund is written at most once per booking: a prior refund entry for the
// same note fails with ErrRefundAlreadyApplied, regardless of how many times
// the cancellation or expiration path is triggered.
func refundBookingPoints(
	ctx context.Context,
	tx pgx.Tx,
	userID int,
	pointsUsed int,
	reference string) (applied bool, err error) {

	if pointsUsed <= 0 {
		return false, nil
	}

	note := bookingNote(reference)

	var exists bool

	query := `
		SELECT EXISTS (
			SELECT 1 FROM points_ledger
			WHERE note = $1 AND status = $2
		)
	`

	err = tx.QueryRow(ctx, query, note, domain.LedgerStatusRefunded).Scan(&exists)
	if err != nil {
		return false, err
	}

	if exists {
		return false, domain.ErrRefundAlreadyApplied
	}

	err = applyPointsDelta(ctx, tx, userID, pointsUsed, domain.LedgerStatusRefunded, note)
	if err != nil {
		return false, err
	}

	return true, nil
}
