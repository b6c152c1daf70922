package integration_test

import (
	"context"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ferhatkaplan/cinema-booking-engine/internal/app"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
)

type BaseSuite struct {
	suite.Suite
	app            *TestApp
	dbContainer    *PostgresContainer
	cacheContainer *RedisContainer
	server         *httptest.Server
}

func (s *BaseSuite) SetupSuite() {
	ctx := context.Background()

	postgresContainer, err := getDbContainer(ctx)
	if err != nil {
		log.Printf("failed to start container: %s", err)
		return
	}

	redisContainer, err := getCacheContainer(ctx)
	if err != nil {
		log.Printf("failed to start container: %s", err)
		return
	}

	s.dbContainer = postgresContainer
	s.cacheContainer = redisContainer

	cfg := app.Config{
		Port: 3000,
		Env:  "test",
		DB: app.DBConfig{
			DSN:          postgresContainer.ConnectionString,
			MaxOpenConns: 25,
			MaxIdleTime:  2 * time.Minute,
		},
		Redis: app.RedisConfig{
			URL:          redisContainer.ConnectionString,
			MaxOpenConns: 10,
			MaxIdleConns: 10,
			MaxIdleTime:  2 * time.Minute,
		},
		Stripe: app.StripeConfig{
			WebhookSecret: TestWebhookSecret,
		},
		Booking: app.BookingConfig{
			HoldTTL:         5 * time.Minute,
			PaymentDeadline: 30 * time.Minute,
			SweepInterval:   time.Minute,
		},
	}

	testApp, err := newTestApp(cfg)
	if err != nil {
		log.Printf("cannot initialize app: %s", err)
		return
	}

	s.app = testApp
	s.server = httptest.NewServer(testApp.App.Routes())

	err = seedBaseData(ctx, testApp)
	if err != nil {
		log.Printf("cannot seed base data: %s", err)
	}
}

func (s *BaseSuite) TearDownSuite() {
	s.server.Close()
	if err := testcontainers.TerminateContainer(s.dbContainer.Container.Container); err != nil {
		log.Printf("failed to terminate container: %s", err)
	}
	if err := testcontainers.TerminateContainer(s.cacheContainer.Container); err != nil {
		log.Printf("failed to terminate container: %s", err)
	}
}

// seedBaseData installs the fixed fixtures every scenario builds on: one user
// with a point balance, one IMAX room with a three-seat layout row and one
// future showtime.
func seedBaseData(ctx context.Context, testApp *TestApp) error {
	stmts := []string{
		`INSERT INTO users (id, first_name, last_name, email)
		 VALUES (1, 'John', 'Doe', 'test@example.com')`,
		`INSERT INTO user_points (user_id, total_points) VALUES (1, 1000)`,
		`INSERT INTO points_ledger (user_id, points_delta, status, note)
		 VALUES (1, 1000, 'earned', 'booking:seed')`,
		`INSERT INTO rooms (id, name, room_type) VALUES (1, 'Room 1', 'imax')`,
		`INSERT INTO seat_layouts (id, room_id, row_label, col_number, seat_type) VALUES
			(1, 1, 'A', 1, 'standard'),
			(2, 1, 'A', 2, 'standard'),
			(3, 1, 'A', 3, 'vip')`,
		`INSERT INTO showtimes (id, room_id, movie_title, starts_at)
		 VALUES (1, 1, 'Test Movie', '2027-03-10 14:00:00+00')`,
		`SELECT setval('users_id_seq', 1, true)`,
		`SELECT setval('rooms_id_seq', 1, true)`,
		`SELECT setval('seat_layouts_id_seq', 3, true)`,
		`SELECT setval('showtimes_id_seq', 1, true)`,
	}

	for _, stmt := range stmts {
		if _, err := testApp.DB.Exec(ctx, stmt); err != nil {
			return err
		}
	}

	return nil
}

type Scenario struct {
	Name             string
	Method           string
	URL              string
	Body             io.Reader
	Headers          map[string]string
	Cookies          []*http.Cookie
	ExpectedStatus   int
	ExpectedResponse string
	BeforeTestFunc   func(t testing.TB, app *TestApp)
	AfterTestFunc    func(t testing.TB, app *TestApp, res *http.Response)
}

func (s Scenario) Run(t *testing.T, testApp *TestApp) {
	t.Run(s.Name, func(t *testing.T) {
		req, err := prepareRequest(s.Method, s.URL, s.Body, s.Headers, s.Cookies)
		require.NoError(t, err)

		if s.BeforeTestFunc != nil {
			s.BeforeTestFunc(t, testApp)
		}

		rec := httptest.NewRecorder()
		testApp.App.Routes().ServeHTTP(rec, req)

		res := rec.Result()
		defer res.Body.Close()

		assert.Equal(t, s.ExpectedStatus, res.StatusCode)

		if s.ExpectedResponse != "" {
			compareResponse(t, res.Body, s.ExpectedResponse)
		}

		if s.AfterTestFunc != nil {
			s.AfterTestFunc(t, testApp, res)
		}
	})
}
