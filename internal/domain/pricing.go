package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// PriceCalculator computes the final per-seat price for a showtime. Pricing
// rules (price lists, campaign discounts) live outside this core; callers
// treat the calculator as an external collaborator.
type PriceCalculator interface {
	TicketPrice(roomType, seatType string, startsAt time.Time) decimal.Decimal
}
