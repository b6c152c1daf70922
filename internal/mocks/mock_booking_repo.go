package mocks

import (
	"context"
	"time"

	"github.com/ferhatkaplan/cinema-booking-engine/internal/domain"
)

type MockBookingRepo struct {
	domain.BookingRepository
	CreateFunc                   func(ctx context.Context, booking *domain.Booking) error
	GetByIDFunc                  func(ctx context.Context, id int) (*domain.Booking, error)
	GetByIDAndUserIDFunc         func(ctx context.Context, id, userID int) (*domain.Booking, error)
	GetSummariesByUserIDFunc     func(ctx context.Context, userID int, pagination domain.Pagination) ([]domain.BookingSummary, *domain.Metadata, error)
	GetActiveSeatsByShowtimeFunc func(ctx context.Context, showtimeID int) ([]domain.ActiveSeat, error)
	AttachCheckoutSessionFunc    func(ctx context.Context, id int, checkoutSessionID string) error
	ConfirmByCheckoutSessionFunc func(ctx context.Context, checkoutSessionID string) (*domain.Booking, error)
	CancelFunc                   func(ctx context.Context, id, userID int, reason string) (*domain.Booking, bool, error)
	ExpireFunc                   func(ctx context.Context, id int) (*domain.Booking, bool, error)
	FindExpiredFunc              func(ctx context.Context, asOf time.Time, limit int) ([]int, error)
}

func (m *MockBookingRepo) Create(ctx context.Context, booking *domain.Booking) error {
	return m.CreateFunc(ctx, booking)
}

func (m *MockBookingRepo) GetByID(ctx context.Context, id int) (*domain.Booking, error) {
	return m.GetByIDFunc(ctx, id)
}

func (m *MockBookingRepo) GetByIDAndUserID(ctx context.Context, id, userID int) (*domain.Booking, error) {
	return m.GetByIDAndUserIDFunc(ctx, id, userID)
}

func (m *MockBookingRepo) GetSummariesByUserID(ctx context.Context, userID int, pagination domain.Pagination) ([]domain.BookingSummary, *domain.Metadata, error) {
	return m.GetSummariesByUserIDFunc(ctx, userID, pagination)
}

func (m *MockBookingRepo) GetActiveSeatsByShowtime(ctx context.Context, showtimeID int) ([]domain.ActiveSeat, error) {
	return m.GetActiveSeatsByShowtimeFunc(ctx, showtimeID)
}

func (m *MockBookingRepo) AttachCheckoutSession(ctx context.Context, id int, checkoutSessionID string) error {
	return m.AttachCheckoutSessionFunc(ctx, id, checkoutSessionID)
}

func (m *MockBookingRepo) ConfirmByCheckoutSession(ctx context.Context, checkoutSessionID string) (*domain.Booking, error) {
	return m.ConfirmByCheckoutSessionFunc(ctx, checkoutSessionID)
}

func (m *MockBookingRepo) Cancel(ctx context.Context, id, userID int, reason string) (*domain.Booking, bool, error) {
	return m.CancelFunc(ctx, id, userID, reason)
}

func (m *MockBookingRepo) Expire(ctx context.Context, id int) (*domain.Booking, bool, error) {
	return m.ExpireFunc(ctx, id)
}

func (m *MockBookingRepo) FindExpired(ctx context.Context, asOf time.Time, limit int) ([]int, error) {
	return m.FindExpiredFunc(ctx, asOf, limit)
}
