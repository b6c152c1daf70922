package integration_test

import (
	"log/slog"
	"os"

	"github.com/alexedwards/scs/v2"
	"github.com/ferhatkaplan/cinema-booking-engine/internal/app"
	"github.com/ferhatkaplan/cinema-booking-engine/internal/hold"
	"github.com/ferhatkaplan/cinema-booking-engine/internal/mailer"
	"github.com/ferhatkaplan/cinema-booking-engine/internal/mocks"
	"github.com/ferhatkaplan/cinema-booking-engine/internal/payment"
	"github.com/ferhatkaplan/cinema-booking-engine/internal/pricing"
	"github.com/ferhatkaplan/cinema-booking-engine/internal/repository"
	appvalidator "github.com/ferhatkaplan/cinema-booking-engine/internal/validator"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

type TestApp struct {
	App            *app.Application
	DB             *pgxpool.Pool
	Redis          *redis.Client
	SessionManager *scs.SessionManager
	Mailer         *mailer.MockMailer
	Broadcaster    *mocks.MockBroadcaster
}

func newTestApp(cfg app.Config) (*TestApp, error) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	validator := appvalidator.NewValidator()
	mockMailer := mailer.NewMockMailer()
	broadcaster := &mocks.MockBroadcaster{}

	db, err := app.NewDatabasePool(cfg)
	if err != nil {
		return nil, err
	}

	redisClient, err := app.NewRedisClient(cfg)
	if err != nil {
		db.Close()
		return nil, err
	}

	sessionManager := app.NewSessionManager(redisClient)

	application := app.NewApp(
		cfg,
		logger,
		db,
		redisClient,
		validator,
		mockMailer,
		sessionManager,
		repository.NewPostgresUserRepository(db),
		repository.NewPostgresSeatRepository(db),
		repository.NewPostgresBookingRepository(db),
		repository.NewPostgresPointsRepository(db),
		hold.NewStore(redisClient, cfg.Booking.HoldTTL),
		broadcaster,
		pricing.NewCalculator(),
		payment.NewMockPaymentProvider(),
	)

	return &TestApp{
		App:            application,
		DB:             db,
		Redis:          redisClient,
		SessionManager: sessionManager,
		Mailer:         mockMailer,
		Broadcaster:    broadcaster,
	}, nil
}
