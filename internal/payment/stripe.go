package payment

import (
	"fmt"
	"strconv"

	"github.com/ferhatkaplan/cinema-booking-engine/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/checkout/session"
)

type StripePaymentProvider struct {
	failureUrl string
	successUrl string
}

func NewStripePaymentProvider(failureUrl, successUrl string) *StripePaymentProvider {
	return &StripePaymentProvider{
		failureUrl: failureUrl,
		successUrl: successUrl,
	}
}

func (s *StripePaymentProvider) CreateCheckoutSession(
	user *domain.User,
	booking *domain.Booking,
	showtime *domain.Showtime) (*stripe.CheckoutSession, error) {

	var lineItems []*stripe.CheckoutSessionLineItemParams

	for _, ticket := range booking.Tickets {
		seatLabel := fmt.Sprintf("Row %s Seat %d", ticket.RowLabel, ticket.ColumnNumber)
		priceCents := ticket.FinalPrice.Mul(decimal.NewFromInt(100)).IntPart()

		lineItem := &stripe.CheckoutSessionLineItemParams{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:   stripe.String(string(stripe.CurrencyUSD)),
				UnitAmount: stripe.Int64(priceCents),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String(fmt.Sprintf("🎬 %s - %s", showtime.MovieTitle, seatLabel)),
					Description: stripe.String(fmt.Sprintf(
						"Showtime: %s • Seat Type: %s",
						showtime.StartsAt.Format("Jan 2, 2006 15:04"),
						ticket.SeatType,
					)),
				},
			},
			Quantity: stripe.Int64(1),
		}

		lineItems = append(lineItems, lineItem)
	}

	// The checkout session expires together with the booking's payment
	// deadline so a stale session can never confirm an expired booking.
	params := &stripe.CheckoutSessionParams{
		LineItems: lineItems,
		Mode:      stripe.String(string(stripe.CheckoutSessionModePayment)),

		SuccessURL: stripe.String(s.successUrl),
		CancelURL:  stripe.String(s.failureUrl),
		ExpiresAt:  stripe.Int64(booking.PaymentDeadline.Unix()),
		Metadata: map[string]string{
			"booking_id":        strconv.Itoa(booking.ID),
			"booking_reference": booking.Reference,
			"user_id":           strconv.Itoa(user.ID),
		},
		CustomerEmail:     &user.Email,
		ClientReferenceID: stripe.String(strconv.Itoa(user.ID)),
	}

	return session.New(params)
}
