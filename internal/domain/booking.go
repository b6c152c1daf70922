package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "pending"
	BookingStatusConfirmed BookingStatus = "confirmed"
	BookingStatusCancelled BookingStatus = "cancelled"
	BookingStatusExpired   BookingStatus = "expired"
)

// Terminal reports whether no further lifecycle transition is permitted.
func (s BookingStatus) Terminal() bool {
	return s == BookingStatusConfirmed || s == BookingStatusCancelled || s == BookingStatusExpired
}

type Booking struct {
	ID                int
	Reference         string
	UserID            int
	ShowtimeID        int
	Status            BookingStatus
	BookingDate       time.Time
	PaymentDeadline   time.Time
	TotalAmount       decimal.Decimal
	PointsUsed        int
	PointsEarned      int
	CheckoutSessionID *string
	Tickets           []Ticket

	// PointsRefunded reports whether a cancellation or expiration actually
	// wrote the refund ledger entry. Not persisted; false with PointsUsed > 0
	// means the refund had already been applied by an earlier attempt.
	PointsRefunded bool
}

// Ticket is one seat within a booking. Its status mirrors the booking's
// lifecycle; tickets of cancelled or expired bookings are deleted, not marked.
type Ticket struct {
	ID             int
	BookingID      int
	SeatID         int
	LayoutID       int
	ShowtimeID     int
	RowLabel       string
	ColumnNumber   int
	SeatType       string
	BasePrice      decimal.Decimal
	DiscountAmount decimal.Decimal
	FinalPrice     decimal.Decimal
	Status         BookingStatus
}

type BookingSummary struct {
	BookingID    int
	Reference    string
	MovieTitle   string
	ShowtimeDate time.Time
	Status       BookingStatus
	TotalAmount  decimal.Decimal
	SeatCount    int
	CreatedAt    time.Time
}

// ActiveSeat is a persisted claim on a seat layout cell: a ticket whose
// status is still pending or confirmed.
type ActiveSeat struct {
	LayoutID int
	Status   BookingStatus
}

type BookingRepository interface {
	// Create persists the booking, its seats and its tickets, and deducts any
	// redeemed points, all in one transaction. It re-verifies inside the
	// transaction that no active ticket exists for any of the requested seat
	// layout cells and returns ErrSeatAlreadyBooked on a conflict.
	Create(ctx context.Context, booking *Booking) error

	GetByID(ctx context.Context, id int) (*Booking, error)
	GetByIDAndUserID(ctx context.Context, id, userID int) (*Booking, error)
	GetSummariesByUserID(ctx context.Context, userID int, pagination Pagination) ([]BookingSummary, *Metadata, error)

	// GetActiveSeatsByShowtime returns the layout cells consumed by pending or
	// confirmed tickets of the given showtime. This is the authoritative view
	// that ephemeral holds are overlaid on.
	GetActiveSeatsByShowtime(ctx context.Context, showtimeID int) ([]ActiveSeat, error)

	AttachCheckoutSession(ctx context.Context, id int, checkoutSessionID string) error

	// ConfirmByCheckoutSession transitions the booking bound to the checkout
	// session from pending to confirmed and awards loyalty points. The update
	// is status-guarded; a booking already cancelled or expired yields
	// ErrBookingNotPending, and one past its deadline ErrDeadlinePassed.
	ConfirmByCheckoutSession(ctx context.Context, checkoutSessionID string) (*Booking, error)

	// Cancel transitions a pending booking to cancelled, deletes its tickets
	// and seats, refunds spent points idempotently and records the reason.
	// applied is false when the booking had already left the pending state.
	Cancel(ctx context.Context, id, userID int, reason string) (booking *Booking, applied bool, err error)

	// Expire is the sweeper's variant of Cancel: no user check, status set to
	// expired. Safe to call concurrently with Confirm and Cancel.
	Expire(ctx context.Context, id int) (booking *Booking, applied bool, err error)

	// FindExpired returns IDs of pending bookings whose payment deadline lies
	// before asOf.
	FindExpired(ctx context.Context, asOf time.Time, limit int) ([]int, error)
}
