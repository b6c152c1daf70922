package domain

import "github.com/stripe/stripe-go/v82"

// PaymentProvider creates an external checkout session for a pending booking.
// Booking confirmation is triggered by the provider's payment-success event,
// never by this core directly.
type PaymentProvider interface {
	CreateCheckoutSession(user *User, booking *Booking, showtime *Showtime) (*stripe.CheckoutSession, error)
}
