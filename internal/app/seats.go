package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/ferhatkaplan/cinema-booking-engine/internal/domain"
)

type SeatMapResponse struct {
	ShowtimeID int                 `json:"showtimeId"`
	MovieTitle string              `json:"movieTitle"`
	StartsAt   time.Time           `json:"startsAt"`
	Seats      []domain.SeatStatus `json:"seats"`
}

type SeatSelectionResponse struct {
	ShowtimeID    int    `json:"showtimeId"`
	LayoutID      int    `json:"layoutId"`
	State         string `json:"state"`
	HoldExpiresIn int    `json:"holdExpiresIn"`
}

func (app *Application) GetSeatMapByShowtime(w http.ResponseWriter, r *http.Request) {
	showtimeID, err := app.readIDParam(r, "showtimeID")
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	showtime, err := app.seatRepo.GetShowtime(r.Context(), showtimeID)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrRecordNotFound):
			app.notFoundResponse(w, r)
		default:
			app.serverErrorResponse(w, r, err)
		}

		return
	}

	snapshot, err := app.buildSeatSnapshot(r.Context(), showtime)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	resp := SeatMapResponse{
		ShowtimeID: showtimeID,
		MovieTitle: showtime.MovieTitle,
		StartsAt:   showtime.StartsAt,
		Seats:      snapshot.Seats,
	}

	err = app.writeJSON(w, http.StatusOK, resp, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func (app *Application) SelectSeat(w http.ResponseWriter, r *http.Request) {
	logger := app.contextGetLogger(r)

	showtimeID, err := app.readIDParam(r, "showtimeID")
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	layoutID, err := app.readIDParam(r, "layoutID")
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	showtime, err := app.seatRepo.GetShowtime(r.Context(), showtimeID)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrRecordNotFound):
			app.notFoundResponse(w, r)
		default:
			app.serverErrorResponse(w, r, err)
		}

		return
	}

	layouts, err := app.seatRepo.GetLayoutsByIDs(r.Context(), showtime.RoomID, []int{layoutID})
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	if len(layouts) == 0 {
		app.notFoundResponseWithErr(w, r, domain.ErrSeatNotFound)
		return
	}

	// Persisted state always wins over the ephemeral store: a seat with an
	// active ticket can never be held, no matter what the cache says.
	booked, err := app.bookedLayouts(r.Context(), showtimeID)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	if booked[layoutID] {
		logger.Warn("seat selection conflict: seat already booked", "showtime_id", showtimeID, "layout_id", layoutID)
		app.editConflictResponseWithErr(w, r, domain.ErrSeatAlreadyBooked)
		return
	}

	holder := app.sessionManager.Token(r.Context())

	err = app.holdStore.Select(r.Context(), showtimeID, layoutID, holder)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrSeatAlreadyHeld):
			logger.Warn("seat selection conflict: seat held by another session", "showtime_id", showtimeID, "layout_id", layoutID)
			app.editConflictResponseWithErr(w, r, domain.ErrSeatAlreadyHeld)
		default:
			app.serverErrorResponse(w, r, fmt.Errorf("seat couldn't be held: %w", err))
		}

		return
	}

	app.broadcastSeatSnapshot(r.Context(), showtimeID)

	resp := SeatSelectionResponse{
		ShowtimeID:    showtimeID,
		LayoutID:      layoutID,
		State:         string(domain.SeatHeld),
		HoldExpiresIn: int(app.holdStore.TTL().Seconds()),
	}

	err = app.writeJSON(w, http.StatusOK, resp, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func (app *Application) DeselectSeat(w http.ResponseWriter, r *http.Request) {
	showtimeID, err := app.readIDParam(r, "showtimeID")
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	layoutID, err := app.readIDParam(r, "layoutID")
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	holder := app.sessionManager.Token(r.Context())

	// Releasing an already-released or foreign hold is a no-op.
	err = app.holdStore.Deselect(r.Context(), showtimeID, layoutID, holder)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	app.broadcastSeatSnapshot(r.Context(), showtimeID)

	w.WriteHeader(http.StatusNoContent)
}

// buildSeatSnapshot merges persisted tickets with live ephemeral holds into
// the seat-state view. Persisted status takes precedence over a stale hold.
func (app *Application) buildSeatSnapshot(ctx context.Context, showtime *domain.Showtime) (*domain.SeatSnapshot, error) {
	layouts, err := app.seatRepo.GetLayoutsByRoom(ctx, showtime.RoomID)
	if err != nil {
		return nil, err
	}

	booked, err := app.bookedLayouts(ctx, showtime.ID)
	if err != nil {
		return nil, err
	}

	heldSeats, err := app.holdStore.HeldSeats(ctx, showtime.ID)
	if err != nil {
		return nil, err
	}

	held := make(map[int]bool, len(heldSeats))
	for _, layoutID := range heldSeats {
		held[layoutID] = true
	}

	snapshot := &domain.SeatSnapshot{
		ShowtimeID:  showtime.ID,
		GeneratedAt: time.Now(),
		Seats:       make([]domain.SeatStatus, 0, len(layouts)),
	}

	for _, layout := range layouts {
		state := domain.SeatAvailable

		switch {
		case booked[layout.ID]:
			state = domain.SeatBooked
		case held[layout.ID]:
			state = domain.SeatHeld
		}

		snapshot.Seats = append(snapshot.Seats, domain.SeatStatus{
			LayoutID:     layout.ID,
			RowLabel:     layout.RowLabel,
			ColumnNumber: layout.ColumnNumber,
			SeatType:     layout.SeatType,
			State:        state,
		})
	}

	return snapshot, nil
}

func (app *Application) bookedLayouts(ctx context.Context, showtimeID int) (map[int]bool, error) {
	activeSeats, err := app.bookingRepo.GetActiveSeatsByShowtime(ctx, showtimeID)
	if err != nil {
		return nil, fmt.Errorf("failed to get active seats from DB: %w", err)
	}

	booked := make(map[int]bool, len(activeSeats))
	for _, seat := range activeSeats {
		booked[seat.LayoutID] = true
	}

	return booked, nil
}

// broadcastSeatSnapshot pushes the current view to the realtime transport.
// Best-effort: failures are logged and never surfaced to the caller.
func (app *Application) broadcastSeatSnapshot(ctx context.Context, showtimeID int) {
	showtime, err := app.seatRepo.GetShowtime(ctx, showtimeID)
	if err != nil {
		app.logger.Error("snapshot broadcast skipped, showtime lookup failed", "showtime_id", showtimeID, "error", err)
		return
	}

	snapshot, err := app.buildSeatSnapshot(ctx, showtime)
	if err != nil {
		app.logger.Error("snapshot broadcast skipped, snapshot build failed", "showtime_id", showtimeID, "error", err)
		return
	}

	err = app.broadcaster.Broadcast(ctx, showtimeID, *snapshot)
	if err != nil {
		app.logger.Error("seat snapshot broadcast failed", "showtime_id", showtimeID, "error", err)
	}
}
