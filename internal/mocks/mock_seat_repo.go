package mocks

import (
	"context"

	"github.com/ferhatkaplan/cinema-booking-engine/internal/domain"
)

type MockSeatRepo struct {
	domain.SeatRepository
	GetShowtimeFunc      func(ctx context.Context, id int) (*domain.Showtime, error)
	GetLayoutsByRoomFunc func(ctx context.Context, roomID int) ([]domain.SeatLayout, error)
	GetLayoutsByIDsFunc  func(ctx context.Context, roomID int, layoutIDs []int) ([]domain.SeatLayout, error)
}

func (m *MockSeatRepo) GetShowtime(ctx context.Context, id int) (*domain.Showtime, error) {
	return m.GetShowtimeFunc(ctx, id)
}

func (m *MockSeatRepo) GetLayoutsByRoom(ctx context.Context, roomID int) ([]domain.SeatLayout, error) {
	return m.GetLayoutsByRoomFunc(ctx, roomID)
}

func (m *MockSeatRepo) GetLayoutsByIDs(ctx context.Context, roomID int, layoutIDs []int) ([]domain.SeatLayout, error) {
	return m.GetLayoutsByIDsFunc(ctx, roomID, layoutIDs)
}
