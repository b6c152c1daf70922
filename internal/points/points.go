// Package points implements the loyalty point rules: awards on confirmation,
// redemptions against a booking total and refunds of spent points. All
// percentage caps are applied here so callers can never over-award or
// over-discount.
package points

import "github.com/shopspring/decimal"

const (
	// AwardRate is the fraction of the paid amount earned back as points.
	AwardRate = 0.1

	// AwardCapRate and RedemptionCapRate bound earned points and applied
	// discounts to half of the relevant amount.
	AwardCapRate      = 0.5
	RedemptionCapRate = 0.5
)

// ConversionRate is the monetary value of a single point.
var ConversionRate = decimal.NewFromFloat(0.01)

// Award computes the points earned for a paid amount:
// floor(amount * 0.1), capped at floor(amount * 0.5).
func Award(paidAmount decimal.Decimal) int {
	if paidAmount.Sign() <= 0 {
		return 0
	}

	earned := paidAmount.Mul(decimal.NewFromFloat(AwardRate)).Floor()
	cap := paidAmount.Mul(decimal.NewFromFloat(AwardCapRate)).Floor()

	if earned.GreaterThan(cap) {
		earned = cap
	}

	return int(earned.IntPart())
}

// ValidateAward re-checks a provisional awarded-points figure against the cap
// for the paid amount. A figure within the cap is kept as-is; anything above
// it is clamped rather than trusted.
func ValidateAward(provisional int, paidAmount decimal.Decimal) int {
	if provisional <= 0 {
		return 0
	}

	cap := int(paidAmount.Mul(decimal.NewFromFloat(AwardCapRate)).Floor().IntPart())
	if provisional > cap {
		return cap
	}

	return provisional
}

// Redemption converts a requested number of points into a discount against a
// booking's pre-discount total. The discount is capped at half the total, and
// the points actually charged are recomputed from the capped discount so the
// user never spends points beyond what the cap allows.
func Redemption(requestedPoints int, preDiscountTotal decimal.Decimal) (discount decimal.Decimal, pointsCharged int) {
	if requestedPoints <= 0 || preDiscountTotal.Sign() <= 0 {
		return decimal.Zero, 0
	}

	discount = decimal.NewFromInt(int64(requestedPoints)).Mul(ConversionRate)
	cap := preDiscountTotal.Mul(decimal.NewFromFloat(RedemptionCapRate))

	if discount.GreaterThan(cap) {
		discount = cap
	}

	pointsCharged = int(discount.Div(ConversionRate).Floor().IntPart())

	// Recompute from the charged points so discount and point spend always
	// agree after flooring.
	discount = decimal.NewFromInt(int64(pointsCharged)).Mul(ConversionRate)

	return discount, pointsCharged
}
