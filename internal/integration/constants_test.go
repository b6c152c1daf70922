package integration_test

const (
	dbName         = "cinema_booking"
	dbUser         = "test_user"
	dbPassword     = "test_password"
	dbImageName    = "postgres:17-alpine"
	cacheImageName = "redis:7"

	TestUserId        = 1
	TestUserFirstName = "John"
	TestUserLastName  = "Doe"
	TestUserEmail     = "test@example.com"
	TestUserPoints    = 1000

	TestRoomId     = 1
	TestShowtimeId = 1
	TestMovieTitle = "Test Movie"

	TestWebhookSecret = "whsec_test_secret"
)
