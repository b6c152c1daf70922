package mocks

import (
	"context"
	"sync"

	"github.com/ferhatkaplan/cinema-booking-engine/internal/domain"
)

// MockBroadcaster records every snapshot it receives so tests can assert on
// what was broadcast and when.
type MockBroadcaster struct {
	mu        sync.Mutex
	Snapshots []domain.SeatSnapshot
	Err       error
}

func (m *MockBroadcaster) Broadcast(ctx context.Context, showtimeID int, snapshot domain.SeatSnapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.Err != nil {
		return m.Err
	}

	m.Snapshots = append(m.Snapshots, snapshot)

	return nil
}

func (m *MockBroadcaster) BroadcastCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.Snapshots)
}
