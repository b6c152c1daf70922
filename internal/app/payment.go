package app

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/ferhatkaplan/cinema-booking-engine/internal/domain"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"
)

type CheckoutSessionResponse struct {
	RedirectUrl string `json:"redirectUrl"`
}

func (app *Application) CreateCheckoutSessionHandler(w http.ResponseWriter, r *http.Request) {
	logger := app.contextGetLogger(r)

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

	if booking.Status != domain.BookingStatusPending {
		app.editConflictResponseWithErr(w, r, domain.ErrBookingNotPending)
		return
	}

	if time.Now().After(booking.PaymentDeadline) {
		app.editConflictResponseWithErr(w, r, domain.ErrDeadlinePassed)
		return
	}

	user, err := app.userRepo.GetById(r.Context(), userID)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	showtime, err := app.seatRepo.GetShowtime(r.Context(), booking.ShowtimeID)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	checkoutSession, err := app.provider.CreateCheckoutSession(user, booking, showtime)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	err = app.bookingRepo.AttachCheckoutSession(r.Context(), booking.ID, checkoutSession.ID)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrBookingNotPending):
			app.editConflictResponseWithErr(w, r, domain.ErrBookingNotPending)
		default:
			app.serverErrorResponse(w, r, err)
		}

		return
	}

	logger.Info("checkout session created", "booking_id", booking.ID, "checkout_session_id", checkoutSession.ID)

	resp := CheckoutSessionResponse{
		RedirectUrl: checkoutSession.URL,
	}

	err = app.writeJSON(w, http.StatusOK, resp, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// StripeWebhookHandler confirms bookings on the provider's payment-success
// event. Stripe retries until it gets a 2xx, so events that can never be
// applied (booking already cancelled or expired) are acknowledged rather than
// failed.
func (app *Application) StripeWebhookHandler(w http.ResponseWriter, r *http.Request) {
	logger := app.contextGetLogger(r)

	r.Body = http.MaxBytesReader(w, r.Body, 65536)

	payload, err := io.ReadAll(r.Body)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	event, err := webhook.ConstructEvent(payload, r.Header.Get("Stripe-Signature"), app.config.Stripe.WebhookSecret)
	if err != nil {
		logger.Warn("webhook signature verification failed", "error", err)
		app.badRequestResponse(w, r, errors.New("invalid webhook signature"))
		return
	}

	if event.Type != "checkout.session.completed" {
		logger.Info("ignoring webhook event", "type", event.Type)
		w.WriteHeader(http.StatusOK)
		return
	}

	var checkoutSession stripe.CheckoutSession

	err = json.Unmarshal(event.Data.Raw, &checkoutSession)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	booking, err := app.bookingRepo.ConfirmByCheckoutSession(r.Context(), checkoutSession.ID)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrRecordNotFound),
			errors.Is(err, domain.ErrBookingNotPending),
			errors.Is(err, domain.ErrDeadlinePassed):
			logger.Warn("payment event could not be applied",
				"checkout_session_id", checkoutSession.ID, "reason", err.Error())
			w.WriteHeader(http.StatusOK)
		default:
			app.serverErrorResponse(w, r, err)
		}

		return
	}

	app.broadcastSeatSnapshot(r.Context(), booking.ShowtimeID)

	logger.Info("booking confirmed",
		"booking_id", booking.ID, "reference", booking.Reference, "points_earned", booking.PointsEarned)

	w.WriteHeader(http.StatusOK)
}
