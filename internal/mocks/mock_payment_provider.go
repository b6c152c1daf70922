package mocks

import (
	"github.com/ferhatkaplan/cinema-booking-engine/internal/domain"
	"github.com/stretchr/testify/mock"
	"github.com/stripe/stripe-go/v82"
)

type MockPaymentProvider struct {
	mock.Mock
	domain.PaymentProvider
}

func (m *MockPaymentProvider) CreateCheckoutSession(
	user *domain.User,
	booking *domain.Booking,
	showtime *domain.Showtime) (*stripe.CheckoutSession, error) {

	args := m.Called(user, booking, showtime)
	return args.Get(0).(*stripe.CheckoutSession), args.Error(1)
}
