package app

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/ferhatkaplan/cinema-booking-engine/internal/domain"
	"github.com/ferhatkaplan/cinema-booking-engine/internal/hold"
	"github.com/ferhatkaplan/cinema-booking-engine/internal/mocks"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"
)

const testWebhookSecret = "whsec_test_secret"

type PaymentTestSuite struct {
	suite.Suite
	app         *Application
	bookingRepo *mocks.MockBookingRepo
	userRepo    *mocks.MockUserRepo
	seatRepo    *mocks.MockSeatRepo
	provider    *mocks.MockPaymentProvider
	broadcaster *mocks.MockBroadcaster
}

func (s *PaymentTestSuite) SetupTest() {
	s.bookingRepo = new(mocks.MockBookingRepo)
	s.userRepo = new(mocks.MockUserRepo)
	s.seatRepo = new(mocks.MockSeatRepo)
	s.provider = new(mocks.MockPaymentProvider)
	s.broadcaster = new(mocks.MockBroadcaster)

	s.app = newTestApplication(func(a *Application) {
		a.config.Stripe.WebhookSecret = testWebhookSecret
		a.bookingRepo = s.bookingRepo
		a.userRepo = s.userRepo
		a.seatRepo = s.seatRepo
		a.provider = s.provider
		a.broadcaster = s.broadcaster
		a.sessionManager = scs.New()
	})
}

func TestPaymentSuite(t *testing.T) {
	suite.Run(t, new(PaymentTestSuite))
}

func (s *PaymentTestSuite) pendingBooking() *domain.Booking {
	return &domain.Booking{
		ID:              5,
		Reference:       "ref-5",
		UserID:          7,
		ShowtimeID:      1,
		Status:          domain.BookingStatusPending,
		PaymentDeadline: time.Now().Add(20 * time.Minute),
	}
}

func (s *PaymentTestSuite) TestCreateCheckoutSessionHandler() {
	tests := []struct {
		name           string
		setupMocks     func()
		wantStatus     int
		wantErrMessage string
		wantResponse   *CheckoutSessionResponse
	}{
		{
			name: "should fail when the booking does not belong to the user",
			setupMocks: func() {
				s.bookingRepo.GetByIDAndUserIDFunc = func(ctx context.Context, id, userID int) (*domain.Booking, error) {
					return nil, domain.ErrRecordNotFound
				}
			},
			wantStatus: http.StatusNotFound,
		},
		{
			name: "should fail when the booking already left the pending state",
			setupMocks: func() {
				s.bookingRepo.GetByIDAndUserIDFunc = func(ctx context.Context, id, userID int) (*domain.Booking, error) {
					b := s.pendingBooking()
					b.Status = domain.BookingStatusCancelled
					return b, nil
				}
			},
			wantStatus:     http.StatusConflict,
			wantErrMessage: domain.ErrBookingNotPending.Error(),
		},
		{
			name: "should fail when the payment deadline already passed",
			setupMocks: func() {
				s.bookingRepo.GetByIDAndUserIDFunc = func(ctx context.Context, id, userID int) (*domain.Booking, error) {
					b := s.pendingBooking()
					b.PaymentDeadline = time.Now().Add(-time.Minute)
					return b, nil
				}
			},
			wantStatus:     http.StatusConflict,
			wantErrMessage: domain.ErrDeadlinePassed.Error(),
		},
		{
			name: "should fail when the payment provider errors",
			setupMocks: func() {
				s.bookingRepo.GetByIDAndUserIDFunc = func(ctx context.Context, id, userID int) (*domain.Booking, error) {
					return s.pendingBooking(), nil
				}
				s.userRepo.GetByIdFunc = func(ctx context.Context, id int) (*domain.User, error) {
					return &domain.User{ID: 7, Email: "test@test.com"}, nil
				}
				s.seatRepo.GetShowtimeFunc = func(ctx context.Context, id int) (*domain.Showtime, error) {
					return &domain.Showtime{ID: 1, MovieTitle: "Test Movie"}, nil
				}
				s.provider.On("CreateCheckoutSession", mock.Anything, mock.Anything, mock.Anything).
					Return(&stripe.CheckoutSession{}, fmt.Errorf("payment provider error"))
			},
			wantStatus:     http.StatusInternalServerError,
			wantErrMessage: ErrInternalServer,
		},
		{
			name: "should create the checkout session and attach it to the booking",
			setupMocks: func() {
				s.bookingRepo.GetByIDAndUserIDFunc = func(ctx context.Context, id, userID int) (*domain.Booking, error) {
					return s.pendingBooking(), nil
				}
				s.userRepo.GetByIdFunc = func(ctx context.Context, id int) (*domain.User, error) {
					return &domain.User{ID: 7, Email: "test@test.com"}, nil
				}
				s.seatRepo.GetShowtimeFunc = func(ctx context.Context, id int) (*domain.Showtime, error) {
					return &domain.Showtime{ID: 1, MovieTitle: "Test Movie"}, nil
				}
				s.provider.On("CreateCheckoutSession", mock.Anything, mock.Anything, mock.Anything).
					Return(&stripe.CheckoutSession{ID: "cs_123", URL: "http://payment.url"}, nil)
				s.bookingRepo.AttachCheckoutSessionFunc = func(ctx context.Context, id int, checkoutSessionID string) error {
					s.Equal(5, id)
					s.Equal("cs_123", checkoutSessionID)
					return nil
				}
			},
			wantStatus: http.StatusOK,
			wantResponse: &CheckoutSessionResponse{
				RedirectUrl: "http://payment.url",
			},
		},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			s.SetupTest()

			if tt.setupMocks != nil {
				tt.setupMocks()
			}

			w, r := executeRequest(s.T(), http.MethodPost, "/users/me/bookings/5/checkout", nil)
			r = withURLParams(r, map[string]string{"bookingID": "5"})
			r = setupTestSession(s.T(), s.app, r, 7)

			handler := http.Handler(http.HandlerFunc(s.app.CreateCheckoutSessionHandler))
			handler = s.app.sessionManager.LoadAndSave(handler)
			handler = s.app.requireAuthentication(handler)
			handler.ServeHTTP(w, r)

			s.Equal(tt.wantStatus, w.Code)

			if tt.wantResponse != nil {
				var response CheckoutSessionResponse
				err := json.NewDecoder(w.Body).Decode(&response)
				s.Require().NoError(err)

				s.Equal(tt.wantResponse.RedirectUrl, response.RedirectUrl)
			}

			checkErrorResponse(s.T(), w, tt.wantStatus, tt.wantErrMessage)
		})
	}
}

func (s *PaymentTestSuite) signedWebhookRequest(eventType, checkoutSessionID string) (*httptest.ResponseRecorder, *http.Request) {
	event := map[string]any{
		"id":          "evt_123",
		"type":        eventType,
		"api_version": stripe.APIVersion,
		"data": map[string]any{
			"object": map[string]any{"id": checkoutSessionID},
		},
	}

	payload, err := json.Marshal(event)
	s.Require().NoError(err)

	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload: payload,
		Secret:  testWebhookSecret,
	})

	r := httptest.NewRequest(http.MethodPost, "/webhook", bytes.NewReader(signed.Payload))
	r.Header.Set("Stripe-Signature", signed.Header)
	w := httptest.NewRecorder()

	return w, r
}

func (s *PaymentTestSuite) TestStripeWebhookHandler() {
	tests := []struct {
		name           string
		request        func() (*httptest.ResponseRecorder, *http.Request)
		setupMocks     func()
		wantStatus     int
		wantBroadcasts int
	}{
		{
			name: "should reject an unsigned payload",
			request: func() (*httptest.ResponseRecorder, *http.Request) {
				r := httptest.NewRequest(http.MethodPost, "/webhook", bytes.NewReader([]byte(`{}`)))
				return httptest.NewRecorder(), r
			},
			wantStatus: http.StatusBadRequest,
		},
		{
			name: "should ignore events other than checkout completion",
			request: func() (*httptest.ResponseRecorder, *http.Request) {
				return s.signedWebhookRequest("payment_intent.created", "cs_123")
			},
			wantStatus: http.StatusOK,
		},
		{
			name: "should acknowledge a payment that can no longer be applied",
			request: func() (*httptest.ResponseRecorder, *http.Request) {
				return s.signedWebhookRequest("checkout.session.completed", "cs_123")
			},
			setupMocks: func() {
				s.bookingRepo.ConfirmByCheckoutSessionFunc = func(ctx context.Context, checkoutSessionID string) (*domain.Booking, error) {
					return nil, domain.ErrDeadlinePassed
				}
			},
			wantStatus: http.StatusOK,
		},
		{
			name: "should confirm the booking and broadcast the freed snapshot",
			request: func() (*httptest.ResponseRecorder, *http.Request) {
				return s.signedWebhookRequest("checkout.session.completed", "cs_123")
			},
			setupMocks: func() {
				s.bookingRepo.ConfirmByCheckoutSessionFunc = func(ctx context.Context, checkoutSessionID string) (*domain.Booking, error) {
					s.Equal("cs_123", checkoutSessionID)

					b := s.pendingBooking()
					b.Status = domain.BookingStatusConfirmed
					b.PointsEarned = 1
					return b, nil
				}
				s.seatRepo.GetShowtimeFunc = func(ctx context.Context, id int) (*domain.Showtime, error) {
					return &domain.Showtime{ID: 1, RoomID: 2, MovieTitle: "Test Movie"}, nil
				}
				s.seatRepo.GetLayoutsByRoomFunc = func(ctx context.Context, roomID int) ([]domain.SeatLayout, error) {
					return nil, nil
				}
				s.bookingRepo.GetActiveSeatsByShowtimeFunc = func(ctx context.Context, showtimeID int) ([]domain.ActiveSeat, error) {
					return nil, nil
				}
				redisClient := new(mocks.MockRedisClient)
				redisClient.On("EvalSha", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
					Return(redis.NewCmdResult([]interface{}{}, nil))
				s.app.holdStore = hold.NewStore(redisClient, 5*time.Minute)
			},
			wantStatus:     http.StatusOK,
			wantBroadcasts: 1,
		},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			s.SetupTest()

			if tt.setupMocks != nil {
				tt.setupMocks()
			}

			w, r := tt.request()

			s.app.StripeWebhookHandler(w, r)

			s.Equal(tt.wantStatus, w.Code)
			s.Equal(tt.wantBroadcasts, s.broadcaster.BroadcastCount())
		})
	}
}
