package repository

import (
	"context"
	"errors"

	"github.com/ferhatkaplan/cinema-booking-engine/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PostgresSeatRepository struct {
	db *pgxpool.Pool
}

func NewPostgresSeatRepository(db *pgxpool.Pool) *PostgresSeatRepository {
	return &PostgresSeatRepository{
		db: db,
	}
}

func (p *PostgresSeatRepository) GetShowtime(ctx context.Context, id int) (*domain.Showtime, error) {
	query := `
		SELECT s.id, s.room_id, r.room_type, s.movie_title, s.starts_at
		FROM showtimes s
		JOIN rooms r ON s.room_id = r.id
		WHERE s.id = $1
	`

	var showtime domain.Showtime

	err := p.db.QueryRow(ctx, query, id).Scan(
		&showtime.ID,
		&showtime.RoomID,
		&showtime.RoomType,
		&showtime.MovieTitle,
		&showtime.StartsAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrRecordNotFound
		}

		return nil, err
	}

	return &showtime, nil
}

func (p *PostgresSeatRepository) GetLayoutsByRoom(ctx context.Context, roomID int) ([]domain.SeatLayout, error) {
	query := `
		SELECT id, room_id, row_label, col_number, seat_type, active
		FROM seat_layouts
		WHERE room_id = $1 AND active
		ORDER BY row_label, col_number
	`

	rows, err := p.db.Query(ctx, query, roomID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectLayouts(rows)
}

func (p *PostgresSeatRepository) GetLayoutsByIDs(
	ctx context.Context,
	roomID int,
	layoutIDs []int) ([]domain.SeatLayout, error) {

	query := `
		SELECT id, room_id, row_label, col_number, seat_type, active
		FROM seat_layouts
		WHERE room_id = $1 AND id = ANY($2) AND active
		ORDER BY row_label, col_number
	`

	rows, err := p.db.Query(ctx, query, roomID, layoutIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectLayouts(rows)
}

func collectLayouts(rows pgx.Rows) ([]domain.SeatLayout, error) {
	layouts := make([]domain.SeatLayout, 0)

	for rows.Next() {
		var layout domain.SeatLayout

		err := rows.Scan(
			&layout.ID,
			&layout.RoomID,
			&layout.RowLabel,
			&layout.ColumnNumber,
			&layout.SeatType,
			&layout.Active,
		)
		if err != nil {
			return nil, err
		}

		layouts = append(layouts, layout)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return layouts, nil
}
