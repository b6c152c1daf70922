package payment

import (
	"fmt"

	"github.com/ferhatkaplan/cinema-booking-engine/internal/domain"
	"github.com/stripe/stripe-go/v82"
)

type MockPaymentProvider struct {
}

func NewMockPaymentProvider() *MockPaymentProvider {
	return &MockPaymentProvider{}
}

func (m *MockPaymentProvider) CreateCheckoutSession(
	user *domain.User,
	booking *domain.Booking,
	showtime *domain.Showtime) (*stripe.CheckoutSession, error) {

	return &stripe.CheckoutSession{
		ID:  fmt.Sprintf("cs_test_%s", booking.Reference),
		URL: "https://checkout.stripe.test/session",
	}, nil
}
