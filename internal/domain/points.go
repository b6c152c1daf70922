package domain

import (
	"context"
	"time"
)

type UserPoints struct {
	UserID      int
	TotalPoints int
	LastUpdated time.Time
}

type LedgerEntryStatus string

const (
	LedgerStatusEarned   LedgerEntryStatus = "earned"
	LedgerStatusRedeemed LedgerEntryStatus = "redeemed"
	LedgerStatusRefunded LedgerEntryStatus = "refunded"
)

// PointsLedgerEntry is one signed mutation of a user's point balance. The
// note references the originating booking and doubles as the idempotency key
// for refunds.
type PointsLedgerEntry struct {
	ID          int
	UserID      int
	PointsDelta int
	Date        time.Time
	Status      LedgerEntryStatus
	Note        string
}

type PointsRepository interface {
	GetBalance(ctx context.Context, userID int) (*UserPoints, error)
	GetEntriesByUserID(ctx context.Context, userID int, pagination Pagination) ([]PointsLedgerEntry, *Metadata, error)
}
