// Package pricing provides the default ticket price calculator. Real
// deployments may swap in a remote price service; this implementation covers
// the standard room/seat matrix with evening and weekend adjustments.
package pricing

import (
	"time"

	"github.com/shopspring/decimal"
)

var roomBasePrices = map[string]decimal.Decimal{
	"standard": decimal.NewFromInt(10),
	"3d":       decimal.NewFromInt(13),
	"imax":     decimal.NewFromInt(16),
}

var seatTypeExtras = map[string]decimal.Decimal{
	"standard":   decimal.Zero,
	"accessible": decimal.Zero,
	"vip":        decimal.NewFromInt(5),
	"recliner":   decimal.NewFromInt(3),
}

var (
	eveningMultiplier = decimal.NewFromFloat(1.2)
	weekendMultiplier = decimal.NewFromFloat(1.1)

	defaultBasePrice = decimal.NewFromInt(10)
)

type Calculator struct{}

func NewCalculator() *Calculator {
	return &Calculator{}
}

func (c *Calculator) TicketPrice(roomType, seatType string, startsAt time.Time) decimal.Decimal {
	price, ok := roomBasePrices[roomType]
	if !ok {
		price = defaultBasePrice
	}

	if extra, ok := seatTypeExtras[seatType]; ok {
		price = price.Add(extra)
	}

	if startsAt.Hour() >= 18 {
		price = price.Mul(eveningMultiplier)
	}

	switch startsAt.Weekday() {
	case time.Saturday, time.Sunday:
		price = price.Mul(weekendMultiplier)
	}

	return price.Round(2)
}
