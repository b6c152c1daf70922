package mocks

import (
	"context"

	"github.com/ferhatkaplan/cinema-booking-engine/internal/domain"
)

type MockPointsRepo struct {
	domain.PointsRepository
	GetBalanceFunc         func(ctx context.Context, userID int) (*domain.UserPoints, error)
	GetEntriesByUserIDFunc func(ctx context.Context, userID int, pagination domain.Pagination) ([]domain.PointsLedgerEntry, *domain.Metadata, error)
}

func (m *MockPointsRepo) GetBalance(ctx context.Context, userID int) (*domain.UserPoints, error) {
	return m.GetBalanceFunc(ctx, userID)
}

func (m *MockPointsRepo) GetEntriesByUserID(ctx context.Context, userID int, pagination domain.Pagination) ([]domain.PointsLedgerEntry, *domain.Metadata, error) {
	return m.GetEntriesByUserIDFunc(ctx, userID, pagination)
}
