package service_test

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/EgehanKilicarslan/bienesraices/internal/config"
	"github.com/EgehanKilicarslan/bienesraices/internal/database"
	"github.com/EgehanKilicarslan/bienesraices/internal/database/models"
	"github.com/EgehanKilicarslan/bienesraices/internal/database/repository"
	"github.com/EgehanKilicarslan/bienesraices/internal/database/service"
	"github.com/EgehanKilicarslan/bienesraices/internal/mail"
	"github.com/EgehanKilicarslan/bienesraices/internal/validation"
)

// ==================== Mocks ====================

type mockDispatcher struct {
	mock.Mock
}

func (m *mockDispatcher) Dispatch(ctx context.Context, msg mail.Message) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

type mockImageStore struct {
	mock.Mock
}

func (m *mockImageStore) Delete(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

// ==================== Fixtures ====================

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig() *config.Config {
	return &config.Config{
		AppEnv:                 "test",
		BackendURL:             "http://localhost:3000",
		JWTSecret:              "test-secret",
		SessionTokenExpiration: 3600,
		OneTimeTokenTTL:        3600,
		ListingsPageSize:       3,
	}
}

// setupTestDB opens an in-memory sqlite database with the full schema and seeded lookups
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	// A single connection keeps every query on the same in-memory database
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(database.Models...))

	catalog := repository.NewCatalogRepository(db)
	require.NoError(t, catalog.SeedCategories([]models.Category{
		{Name: "Casa"}, {Name: "Departamento"}, {Name: "Bodega"},
	}))
	require.NoError(t, catalog.SeedPrices([]models.Price{
		{Name: "0 - $10,000 USD"}, {Name: "$10,000 - $30,000 USD"},
	}))

	return db
}

func newSessionStore(t *testing.T, cfg *config.Config) (*database.RedisClient, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return database.NewRedisClientForTesting(client, cfg, discardLogger()), mr
}

type authFixture struct {
	db       *gorm.DB
	cfg      *config.Config
	users    repository.UserRepository
	tokens   service.TokenService
	mailer   *mockDispatcher
	sessions *database.RedisClient
	service  service.AuthService
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()

	cfg := testConfig()
	db := setupTestDB(t)
	users := repository.NewUserRepository(db)
	tokens := service.NewTokenService(cfg)
	sessions, _ := newSessionStore(t, cfg)

	mailer := new(mockDispatcher)
	mailer.On("Dispatch", mock.Anything, mock.Anything).Return(nil)

	svc := service.NewAuthService(users, tokens, sessions, mailer, validation.New(), cfg, discardLogger())
	return &authFixture{
		db:       db,
		cfg:      cfg,
		users:    users,
		tokens:   tokens,
		mailer:   mailer,
		sessions: sessions,
		service:  svc,
	}
}

// createConfirmedUser registers an account and confirms it directly
func (f *authFixture) createConfirmedUser(t *testing.T, name, email, password string) *models.User {
	t.Helper()

	user, err := f.service.Register(context.Background(), service.RegisterInput{
		Name:                 name,
		Email:                email,
		Password:             password,
		PasswordConfirmation: password,
	})
	require.NoError(t, err)

	_, err = f.service.ConfirmAccount(*user.Token)
	require.NoError(t, err)
	return user
}

type listingFixture struct {
	db       *gorm.DB
	listings repository.ListingRepository
	images   *mockImageStore
	service  service.ListingService
	messages service.MessageService
	alice    *models.User
	bob      *models.User
}

func newListingFixture(t *testing.T) *listingFixture {
	t.Helper()

	cfg := testConfig()
	db := setupTestDB(t)

	users := repository.NewUserRepository(db)
	alice := &models.User{Name: "Alice", Email: "alice@example.com", Password: "x", Confirmed: true}
	bob := &models.User{Name: "Bob", Email: "bob@example.com", Password: "x", Confirmed: true}
	require.NoError(t, users.Create(alice))
	require.NoError(t, users.Create(bob))

	listings := repository.NewListingRepository(db)
	images := new(mockImageStore)
	v := validation.New()

	return &listingFixture{
		db:       db,
		listings: listings,
		images:   images,
		service: service.NewListingService(listings, repository.NewCatalogRepository(db), images, v, cfg, discardLogger()),
		messages: service.NewMessageService(repository.NewMessageRepository(db), listings, v, discardLogger()),
		alice:    alice,
		bob:      bob,
	}
}

func intPtr(i int) *int           { return &i }
func floatPtr(f float64) *float64 { return &f }

func validListingInput(title string) service.ListingInput {
	return service.ListingInput{
		Title:       title,
		Description: "Casa con jardín y alberca",
		CategoryID:  1,
		PriceID:     1,
		Rooms:       intPtr(3),
		Parking:     intPtr(0),
		Bathrooms:   intPtr(2),
		Street:      "Av. Reforma 123",
		Lat:         floatPtr(19.4326),
		Lng:         floatPtr(-99.1332),
	}
}

// createPublished creates a listing for owner and publishes it through AttachImage
func (f *listingFixture) createPublished(t *testing.T, owner *models.User, title string) *models.Listing {
	t.Helper()

	listing, err := f.service.CreateListing(owner.ID, validListingInput(title))
	require.NoError(t, err)
	require.NoError(t, f.service.AttachImage(listing.ID, owner.ID, title+".jpg"))
	return listing
}
