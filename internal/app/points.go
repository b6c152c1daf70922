package app

import (
	"net/http"
	"time"

	"github.com/ferhatkaplan/cinema-booking-engine/internal/domain"
)

type PointsLedgerEntryResponse struct {
	PointsDelta int                      `json:"pointsDelta"`
	Date        time.Time                `json:"date"`
	Status      domain.LedgerEntryStatus `json:"status"`
	Note        string                   `json:"note"`
}

type PointsResponse struct {
	TotalPoints int                         `json:"totalPoints"`
	LastUpdated time.Time                   `json:"lastUpdated"`
	Entries     []PointsLedgerEntryResponse `json:"entries"`
	Metadata    *domain.Metadata            `json:"metadata"`
}

func (app *Application) GetPoints(w http.ResponseWriter, r *http.Request) {
	userID := app.contextGetUserId(r)
	pagination := app.readPagination(r)

	balance, err := app.pointsRepo.GetBalance(r.Context(), userID)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	entries, metadata, err := app.pointsRepo.GetEntriesByUserID(r.Context(), userID, pagination)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	resp := PointsResponse{
		TotalPoints: balance.TotalPoints,
		LastUpdated: balance.LastUpdated,
		Entries:     make([]PointsLedgerEntryResponse, 0, len(entries)),
		Metadata:    metadata,
	}

	for _, e := range entries {
		resp.Entries = append(resp.Entries, PointsLedgerEntryResponse{
			PointsDelta: e.PointsDelta,
			Date:        e.Date,
			Status:      e.Status,
			Note:        e.Note,
		})
	}

	err = app.writeJSON(w, http.StatusOK, resp, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}
