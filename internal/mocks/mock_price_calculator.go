package mocks

import (
	"time"

	"github.com/shopspring/decimal"
)

// MockPriceCalculator returns a fixed price for every seat.
type MockPriceCalculator struct {
	Price decimal.Decimal
}

func (m MockPriceCalculator) TicketPrice(roomType, seatType string, startsAt time.Time) decimal.Decimal {
	return m.Price
}
