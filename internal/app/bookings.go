package app

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/ferhatkaplan/cinema-booking-engine/internal/domain"
	"github.com/ferhatkaplan/cinema-booking-engine/internal/points"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	DefaultPage     = 1
	DefaultPageSize = 10
	MaxPageSize     = 50
)

type CreateBookingRequest struct {
	SeatIdList []int `json:"seatIdList" validate:"required,min=1,max=10,unique"`
	UsePoints  int   `json:"usePoints" validate:"min=0"`
}

type CancelBookingRequest struct {
	Reason string `json:"reason" validate:"cancel_reason"`
}

type TicketResponse struct {
	SeatNumber     string          `json:"seatNumber"`
	SeatType       string          `json:"seatType"`
	BasePrice      decimal.Decimal `json:"basePrice"`
	DiscountAmount decimal.Decimal `json:"discountAmount"`
	FinalPrice     decimal.Decimal `json:"finalPrice"`
}

type BookingResponse struct {
	ID              int                  `json:"id"`
	Reference       string               `json:"reference"`
	Status          domain.BookingStatus `json:"status"`
	BookingDate     time.Time            `json:"bookingDate"`
	PaymentDeadline time.Time            `json:"paymentDeadline"`
	TotalAmount     decimal.Decimal      `json:"totalAmount"`
	PointsUsed      int                  `json:"pointsUsed"`
	PointsEarned    int                  `json:"pointsEarned"`
	Tickets         []TicketResponse     `json:"tickets"`
}

type BookingSummaryResponse struct {
	ID           int                  `json:"id"`
	Reference    string               `json:"reference"`
	MovieTitle   string               `json:"movieTitle"`
	ShowtimeDate time.Time            `json:"showtimeDate"`
	Status       domain.BookingStatus `json:"status"`
	TotalAmount  decimal.Decimal      `json:"totalAmount"`
	SeatCount    int                  `json:"seatCount"`
	CreatedAt    time.Time            `json:"createdAt"`
}

type BookingListResponse struct {
	Bookings []BookingSummaryResponse `json:"bookings"`
	Metadata *domain.Metadata         `json:"metadata"`
}

func (app *Application) CreateBooking(w http.ResponseWriter, r *http.Request) {
	logger := app.contextGetLogger(r)

	showtimeID, err := app.readIDParam(r, "showtimeID")
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	var input CreateBookingRequest

	err = app.readJSON(w, r, &input)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	err = app.validator.Struct(input)
	if err != nil {
		app.failedValidationResponse(w, r, err)
		return
	}

	userID := app.contextGetUserId(r)

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

	layouts, err := app.seatRepo.GetLayoutsByIDs(r.Context(), showtime.RoomID, input.SeatIdList)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	if len(layouts) != len(input.SeatIdList) {
		app.notFoundResponseWithErr(w, r, domain.ErrSeatNotFound)
		return
	}

	booked, err := app.bookedLayouts(r.Context(), showtimeID)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	holder := app.sessionManager.Token(r.Context())

	// Each requested seat must be unsold and either free or held by this
	// very session. A hold owned by someone else blocks the booking until it
	// expires.
	for _, layout := range layouts {
		if booked[layout.ID] {
			logger.Warn("booking conflict: seat already booked", "showtime_id", showtimeID, "layout_id", layout.ID)
			app.editConflictResponseWithErr(w, r, domain.ErrSeatAlreadyBooked)
			return
		}

		seatHolder, err := app.holdStore.Holder(r.Context(), showtimeID, layout.ID)
		if err != nil {
			app.serverErrorResponse(w, r, err)
			return
		}

		if seatHolder != "" && seatHolder != holder {
			logger.Warn("booking conflict: seat held by another session", "showtime_id", showtimeID, "layout_id", layout.ID)
			app.editConflictResponseWithErr(w, r, domain.ErrSeatAlreadyHeld)
			return
		}
	}

	booking := app.assembleBooking(userID, showtime, layouts, input.UsePoints)

	err = app.bookingRepo.Create(r.Context(), booking)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrSeatAlreadyBooked):
			logger.Warn("booking conflict: seat sold concurrently", "showtime_id", showtimeID)
			app.editConflictResponseWithErr(w, r, domain.ErrSeatAlreadyBooked)
		case errors.Is(err, domain.ErrInsufficientPoints):
			app.badRequestResponse(w, r, domain.ErrInsufficientPoints)
		default:
			app.serverErrorResponse(w, r, err)
		}

		return
	}

	// The seats are committed; the ephemeral holds on them are no longer
	// needed. Failure here is harmless, the holds will simply age out.
	err = app.holdStore.ReleaseAll(r.Context(), showtimeID, input.SeatIdList)
	if err != nil {
		logger.Error("failed to release holds after booking", "booking_id", booking.ID, "error", err)
	}

	app.scheduleExpiration(booking)

	app.broadcastSeatSnapshot(r.Context(), showtimeID)

	logger.Info("booking created", "booking_id", booking.ID, "reference", booking.Reference, "seats", len(booking.Tickets))

	err = app.writeJSON(w, http.StatusCreated, bookingResponseFrom(booking), nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func (app *Application) GetBooking(w http.ResponseWriter, r *http.Request) {
	bookingID, err := app.readIDParam(r, "bookingID")
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	userID := app.contextGetUserId(r)

	booking, err := app.bookingRepo.GetByIDAndUserID(r.Context(), bookingID, userID)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrRecordNotFound):
			app.notFoundResponse(w, r)
		default:
			app.serverErrorResponse(w, r, err)
		}

		return
	}

	err = app.writeJSON(w, http.StatusOK, bookingResponseFrom(booking), nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func (app *Application) ListBookings(w http.ResponseWriter, r *http.Request) {
	userID := app.contextGetUserId(r)
	pagination := app.readPagination(r)

	summaries, metadata, err := app.bookingRepo.GetSummariesByUserID(r.Context(), userID, pagination)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	resp := BookingListResponse{
		Bookings: make([]BookingSummaryResponse, 0, len(summaries)),
		Metadata: metadata,
	}

	for _, s := range summaries {
		resp.Bookings = append(resp.Bookings, BookingSummaryResponse{
			ID:           s.BookingID,
			Reference:    s.Reference,
			MovieTitle:   s.MovieTitle,
			ShowtimeDate: s.ShowtimeDate,
			Status:       s.Status,
			TotalAmount:  s.TotalAmount,
			SeatCount:    s.SeatCount,
			CreatedAt:    s.CreatedAt,
		})
	}

	err = app.writeJSON(w, http.StatusOK, resp, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func (app *Application) CancelBooking(w http.ResponseWriter, r *http.Request) {
	logger := app.contextGetLogger(r)

	bookingID, err := app.readIDParam(r, "bookingID")
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	var input CancelBookingRequest

	// The reason body is optional on cancellation.
	if r.ContentLength > 0 {
		err = app.readJSON(w, r, &input)
		if err != nil {
			app.badRequestResponse(w, r, err)
			return
		}

		err = app.validator.Struct(input)
		if err != nil {
			app.failedValidationResponse(w, r, err)
			return
		}
	}

	userID := app.contextGetUserId(r)

	booking, applied, err := app.bookingRepo.Cancel(r.Context(), bookingID, userID, input.Reason)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrRecordNotFound):
			app.notFoundResponse(w, r)
		default:
			app.serverErrorResponse(w, r, err)
		}

		return
	}

	if !applied {
		// Already in a terminal state; report it back without touching
		// anything.
		err = app.writeJSON(w, http.StatusOK, bookingResponseFrom(booking), nil)
		if err != nil {
			app.serverErrorResponse(w, r, err)
		}

		return
	}

	if booking.PointsUsed > 0 && !booking.PointsRefunded {
		logger.Warn("points refund skipped, already applied", "booking_id", booking.ID, "points_used", booking.PointsUsed)
	}

	app.background(func() {
		app.sendCancellationEmail(booking, input.Reason)
	})

	app.broadcastSeatSnapshot(r.Context(), booking.ShowtimeID)

	logger.Info("booking cancelled", "booking_id", booking.ID, "reference", booking.Reference, "reason", input.Reason)

	err = app.writeJSON(w, http.StatusOK, bookingResponseFrom(booking), nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// assembleBooking prices the requested seats, applies the point redemption and
// produces the pending booking with its payment deadline. The earned points
// figure is provisional; confirmation re-validates it against the cap.
func (app *Application) assembleBooking(userID int, showtime *domain.Showtime, layouts []domain.SeatLayout, usePoints int) *domain.Booking {
	tickets := make([]domain.Ticket, 0, len(layouts))
	total := decimal.Zero

	for _, layout := range layouts {
		price := app.pricing.TicketPrice(showtime.RoomType, layout.SeatType, showtime.StartsAt)
		total = total.Add(price)

		tickets = append(tickets, domain.Ticket{
			LayoutID:     layout.ID,
			ShowtimeID:   showtime.ID,
			RowLabel:     layout.RowLabel,
			ColumnNumber: layout.ColumnNumber,
			SeatType:     layout.SeatType,
			BasePrice:    price,
			Status:       domain.BookingStatusPending,
		})
	}

	discount, pointsCharged := points.Redemption(usePoints, total)

	// Spread the discount over the tickets, last ticket takes the rounding
	// remainder so the ticket prices always sum to the booking total.
	remaining := discount
	for i := range tickets {
		share := discount.Div(decimal.NewFromInt(int64(len(tickets)))).Round(2)
		if i == len(tickets)-1 {
			share = remaining
		}
		remaining = remaining.Sub(share)

		tickets[i].DiscountAmount = share
		tickets[i].FinalPrice = tickets[i].BasePrice.Sub(share)
	}

	paidTotal := total.Sub(discount)

	return &domain.Booking{
		Reference:       uuid.New().String(),
		UserID:          userID,
		ShowtimeID:      showtime.ID,
		Status:          domain.BookingStatusPending,
		PaymentDeadline: time.Now().Add(app.config.Booking.PaymentDeadline),
		TotalAmount:     paidTotal,
		PointsUsed:      pointsCharged,
		PointsEarned:    points.Award(paidTotal),
		Tickets:         tickets,
	}
}

// scheduleExpiration arms a local timer for the booking's payment deadline so
// an unpaid booking is expired promptly. The periodic sweeper remains the
// safety net across restarts.
func (app *Application) scheduleExpiration(booking *domain.Booking) {
	delay := time.Until(booking.PaymentDeadline) + time.Second

	time.AfterFunc(delay, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		_, err := app.sweeper.ExpireBooking(ctx, booking.ID)
		if err != nil {
			app.logger.Error("deadline timer failed to expire booking", "booking_id", booking.ID, "error", err)
		}
	})
}

func (app *Application) sendCancellationEmail(booking *domain.Booking, reason string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	user, err := app.userRepo.GetById(ctx, booking.UserID)
	if err != nil {
		app.logger.Error("cancellation email skipped, user lookup failed", "booking_id", booking.ID, "error", err)
		return
	}

	showtime, err := app.seatRepo.GetShowtime(ctx, booking.ShowtimeID)
	if err != nil {
		app.logger.Error("cancellation email skipped, showtime lookup failed", "booking_id", booking.ID, "error", err)
		return
	}

	data := map[string]any{
		"FirstName":      user.FirstName,
		"Reference":      booking.Reference,
		"MovieTitle":     showtime.MovieTitle,
		"Reason":         reason,
		"PointsUsed":     booking.PointsUsed,
		"PointsRefunded": booking.PointsRefunded,
	}

	err = app.mailer.Send(user.Email, "booking_cancelled.tmpl", data)
	if err != nil {
		app.logger.Error("failed to send cancellation email", "booking_id", booking.ID, "error", err)
	}
}

func (app *Application) readPagination(r *http.Request) domain.Pagination {
	qs := r.URL.Query()

	page, err := strconv.Atoi(qs.Get("page"))
	if err != nil || page < 1 {
		page = DefaultPage
	}

	pageSize, err := strconv.Atoi(qs.Get("pageSize"))
	if err != nil || pageSize < 1 || pageSize > MaxPageSize {
		pageSize = DefaultPageSize
	}

	return domain.Pagination{Page: page, PageSize: pageSize}
}

func bookingResponseFrom(booking *domain.Booking) BookingResponse {
	resp := BookingResponse{
		ID:              booking.ID,
		Reference:       booking.Reference,
		Status:          booking.Status,
		BookingDate:     booking.BookingDate,
		PaymentDeadline: booking.PaymentDeadline,
		TotalAmount:     booking.TotalAmount,
		PointsUsed:      booking.PointsUsed,
		PointsEarned:    booking.PointsEarned,
		Tickets:         make([]TicketResponse, 0, len(booking.Tickets)),
	}

	for _, t := range booking.Tickets {
		resp.Tickets = append(resp.Tickets, TicketResponse{
			SeatNumber:     t.RowLabel + strconv.Itoa(t.ColumnNumber),
			SeatType:       t.SeatType,
			BasePrice:      t.BasePrice,
			DiscountAmount: t.DiscountAmount,
			FinalPrice:     t.FinalPrice,
		})
	}

	return resp
}
