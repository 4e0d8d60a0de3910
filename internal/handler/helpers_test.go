package handler_test

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/EgehanKilicarslan/bienesraices/internal/api"
	"github.com/EgehanKilicarslan/bienesraices/internal/config"
	"github.com/EgehanKilicarslan/bienesraices/internal/database"
	"github.com/EgehanKilicarslan/bienesraices/internal/database/models"
	"github.com/EgehanKilicarslan/bienesraices/internal/database/repository"
	"github.com/EgehanKilicarslan/bienesraices/internal/database/service"
	"github.com/EgehanKilicarslan/bienesraices/internal/handler"
	"github.com/EgehanKilicarslan/bienesraices/internal/mail"
	"github.com/EgehanKilicarslan/bienesraices/internal/middleware"
	"github.com/EgehanKilicarslan/bienesraices/internal/storage"
	"github.com/EgehanKilicarslan/bienesraices/internal/validation"
	"github.com/EgehanKilicarslan/bienesraices/internal/web"
)

func init() {
	gin.SetMode(gin.TestMode)
	gin.DefaultWriter = io.Discard
}

// recordingMailer keeps every dispatched message
type recordingMailer struct {
	mu   sync.Mutex
	sent []mail.Message
}

func (m *recordingMailer) Dispatch(ctx context.Context, msg mail.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, msg)
	return nil
}

func (m *recordingMailer) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

type testEnv struct {
	router   *gin.Engine
	db       *gorm.DB
	cfg      *config.Config
	tokens   service.TokenService
	mailer   *recordingMailer
	store    *storage.LocalStorage
	redis    *miniredis.Miniredis
	listings repository.ListingRepository

	alice *models.User
	bob   *models.User
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	cfg := &config.Config{
		AppEnv:                 "test",
		BackendURL:             "http://localhost:3000",
		JWTSecret:              "test-secret",
		SessionTokenExpiration: 3600,
		OneTimeTokenTTL:        3600,
		ListingsPageSize:       3,
		MaxFileSize:            1024,
		LoginMaxAttempts:       3,
		LoginWindow:            900,
	}
	log := discardLogger()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(database.Models...))

	catalog := repository.NewCatalogRepository(db)
	require.NoError(t, catalog.SeedCategories([]models.Category{{Name: "Casa"}, {Name: "Departamento"}}))
	require.NoError(t, catalog.SeedPrices([]models.Price{{Name: "0 - $10,000 USD"}}))

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	users := repository.NewUserRepository(db)
	listingRepo := repository.NewListingRepository(db)
	messageRepo := repository.NewMessageRepository(db)
	validator := validation.New()
	tokens := service.NewTokenService(cfg)
	mailer := &recordingMailer{}

	authService := service.NewAuthService(users, tokens, database.NewRedisClientForTesting(client, cfg, log), mailer, validator, cfg, log)
	listingService := service.NewListingService(listingRepo, catalog, store, validator, cfg, log)
	messageService := service.NewMessageService(messageRepo, listingRepo, validator, log)
	limiter := middleware.NewRateLimiter(client, cfg.LoginMaxAttempts, time.Duration(cfg.LoginWindow)*time.Second, log)

	renderer, err := web.NewRenderer()
	require.NoError(t, err)

	router := api.SetupRouter(api.Handlers{
		Auth:     handler.NewAuthHandler(authService, limiter, cfg, log),
		Listings: handler.NewListingHandler(listingService, messageService, storage.NewImageUploader(store, cfg.MaxFileSize), store, log),
		Public:   handler.NewPublicHandler(listingService, messageService, log),
		API:      handler.NewAPIHandler(listingService, store, db, log),
	}, middleware.NewAuthMiddleware(authService, log), renderer, cfg)

	env := &testEnv{
		router:   router,
		db:       db,
		cfg:      cfg,
		tokens:   tokens,
		mailer:   mailer,
		store:    store,
		redis:    mr,
		listings: listingRepo,
	}
	env.alice = env.createUser(t, "Alice", "alice@example.com")
	env.bob = env.createUser(t, "Bob", "bob@example.com")
	return env
}

func (e *testEnv) createUser(t *testing.T, name, email string) *models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("secret1"), bcrypt.MinCost)
	require.NoError(t, err)

	user := &models.User{Name: name, Email: email, Password: string(hash), Confirmed: true}
	require.NoError(t, repository.NewUserRepository(e.db).Create(user))
	return user
}

func (e *testEnv) session(t *testing.T, user *models.User) *http.Cookie {
	t.Helper()
	token, _, err := e.tokens.GenerateSessionToken(user.ID, user.Name)
	require.NoError(t, err)
	return &http.Cookie{Name: middleware.SessionCookie, Value: token}
}

func (e *testEnv) createListing(t *testing.T, owner *models.User, title string, published bool) *models.Listing {
	t.Helper()
	listing := &models.Listing{
		Title:       title,
		Description: "Una propiedad",
		Rooms:       3,
		Parking:     1,
		Bathrooms:   2,
		Street:      "Calle 1",
		Lat:         7.95,
		Lng:         -80.45,
		UserID:      owner.ID,
		CategoryID:  1,
		PriceID:     1,
	}
	require.NoError(t, e.listings.Create(listing))
	if published {
		require.NoError(t, e.listings.AttachImage(listing.ID, owner.ID, title+".jpg"))
		listing.Image = title + ".jpg"
		listing.Published = true
	}
	return listing
}

func (e *testEnv) do(req *http.Request, cookie *http.Cookie) *httptest.ResponseRecorder {
	if cookie != nil {
		req.AddCookie(cookie)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e *testEnv) get(path string, cookie *http.Cookie) *httptest.ResponseRecorder {
	return e.do(httptest.NewRequest(http.MethodGet, path, nil), cookie)
}

func (e *testEnv) postForm(path string, form url.Values, cookie *http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return e.do(req, cookie)
}

func findCookie(w *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range w.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func validListingForm() url.Values {
	return url.Values{
		"titulo":          {"Casa en la playa"},
		"descripcion":     {"Frente al mar"},
		"categoria":       {"1"},
		"precio":          {"1"},
		"habitaciones":    {"3"},
		"estacionamiento": {"1"},
		"wc":              {"2"},
		"calle":           {"Av. del Mar 12"},
		"lat":             {"7.958"},
		"lng":             {"-80.455"},
	}
}
