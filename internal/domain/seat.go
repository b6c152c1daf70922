package domain

import (
	"context"
	"time"
)

// SeatLayout is a fixed template cell of a room's floor plan. Layouts are
// created when the room is configured and are immutable during normal
// operation; concrete Seat rows only come into existence when a hold is
// converted into a booking.
type SeatLayout struct {
	ID           int
	RoomID       int
	RowLabel     string
	ColumnNumber int
	SeatType     string
	Active       bool
}

type Showtime struct {
	ID         int
	RoomID     int
	RoomType   string
	MovieTitle string
	StartsAt   time.Time
}

type SeatAvailability string

const (
	SeatAvailable SeatAvailability = "available"
	SeatHeld      SeatAvailability = "held"
	SeatBooked    SeatAvailability = "booked"
)

type SeatStatus struct {
	LayoutID     int              `json:"layoutId"`
	RowLabel     string           `json:"rowLabel"`
	ColumnNumber int              `json:"columnNumber"`
	SeatType     string           `json:"seatType"`
	State        SeatAvailability `json:"state"`
}

// SeatSnapshot is the merged seat-state view: persisted tickets overlaid by
// live ephemeral holds. Persisted state always wins over a stale hold.
type SeatSnapshot struct {
	ShowtimeID  int          `json:"showtimeId"`
	GeneratedAt time.Time    `json:"generatedAt"`
	Seats       []SeatStatus `json:"seats"`
}

type SeatRepository interface {
	GetShowtime(ctx context.Context, id int) (*Showtime, error)
	GetLayoutsByRoom(ctx context.Context, roomID int) ([]SeatLayout, error)
	GetLayoutsByIDs(ctx context.Context, roomID int, layoutIDs []int) ([]SeatLayout, error)
}

// Broadcaster pushes a seat snapshot to the realtime transport after every
// state-changing operation on seat availability. Delivery is best-effort;
// failures must never block the operation that produced the snapshot.
type Broadcaster interface {
	Broadcast(ctx context.Context, showtimeID int, snapshot SeatSnapshot) error
}
