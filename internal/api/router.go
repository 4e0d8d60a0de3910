package api

import (
	"io/fs"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/csrf"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/EgehanKilicarslan/bienesraices/internal/config"
	"github.com/EgehanKilicarslan/bienesraices/internal/handler"
	"github.com/EgehanKilicarslan/bienesraices/internal/middleware"
	"github.com/EgehanKilicarslan/bienesraices/internal/storage"
	"github.com/EgehanKilicarslan/bienesraices/internal/web"
)

// Handlers groups every HTTP handler the router mounts
type Handlers struct {
	Auth     *handler.AuthHandler
	Listings *handler.ListingHandler
	Public   *handler.PublicHandler
	API      *handler.APIHandler
}

func SetupRouter(
	h Handlers,
	authMiddleware *middleware.AuthMiddleware,
	renderer *web.Renderer,
	cfg *config.Config,
) *gin.Engine {
	r := gin.Default()
	r.SetTrustedProxies(nil)
	r.HTMLRender = renderer
	r.MaxMultipartMemory = cfg.MaxFileSize

	r.Use(middleware.Metrics())
	r.Use(authMiddleware.Identify())

	// Operational routes
	r.GET("/healthz", h.API.Health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Assets
	scripts, err := fs.Sub(web.Static(), "js")
	if err != nil {
		panic(err)
	}
	r.StaticFS("/js", http.FS(scripts))
	r.GET("/uploads/:filename", h.API.Image)
	r.GET("/api/propiedades", h.API.Listings)

	// Auth routes (Public)
	authGroup := r.Group("/auth")
	{
		authGroup.GET("/login", h.Auth.LoginForm)
		authGroup.POST("/login", h.Auth.Login)
		authGroup.POST("/cerrar-sesion", h.Auth.Logout)
		authGroup.GET("/registro", h.Auth.RegisterForm)
		authGroup.POST("/registro", h.Auth.Register)
		authGroup.GET("/confirmar/:token", h.Auth.Confirm)
		authGroup.GET("/olvide-password", h.Auth.ForgotPasswordForm)
		authGroup.POST("/olvide-password", h.Auth.ForgotPassword)
		authGroup.GET("/olvide-password/:token", h.Auth.ResetPasswordForm)
		authGroup.POST("/olvide-password/:token", h.Auth.ResetPassword)
	}

	// Public pages
	r.GET("/", h.Public.Home)
	r.GET("/categorias/:id", h.Public.Category)
	r.POST("/buscador", h.Public.Search)
	r.GET("/propiedad/:id", h.Public.Show)
	r.POST("/propiedad/:id", h.Public.SendInquiry)
	r.GET("/404", h.Public.NotFound)

	// Seller pages
	owner := r.Group("/")
	owner.Use(authMiddleware.RequireAuth())
	{
		owner.GET("/mis-propiedades", h.Listings.MyListings)
		owner.GET("/propiedades/crear", h.Listings.CreateForm)
		owner.POST("/propiedades/crear", h.Listings.Create)
		owner.GET("/propiedades/agregar-imagen/:id", h.Listings.AddImageForm)
		owner.POST("/propiedades/agregar-imagen/:id", h.Listings.AddImage)
		owner.GET("/propiedades/editar/:id", h.Listings.EditForm)
		owner.POST("/propiedades/editar/:id", h.Listings.Edit)
		owner.POST("/propiedades/eliminar/:id", h.Listings.Delete)
		owner.PUT("/propiedades/:id", h.Listings.Toggle)
		owner.GET("/mensajes/:id", h.Listings.Inquiries)
	}

	r.NoRoute(func(c *gin.Context) {
		c.Redirect(http.StatusFound, "/404")
	})

	return r
}

// Wrap adds CSRF protection and tracing around the router.
// Unsafe methods without a valid token, or sent from a foreign origin, are rejected
// with 403 before any handler runs. BACKEND_URL's host is always a trusted origin and
// an http:// BACKEND_URL marks requests as plaintext so the TLS-only Referer check is skipped.
func Wrap(engine http.Handler, cfg *config.Config) http.Handler {
	opts := []csrf.Option{
		csrf.FieldName("_csrf"),
		csrf.RequestHeader("X-CSRF-Token"),
		csrf.CookieName("_csrf"),
		csrf.Path("/"),
		csrf.Secure(cfg.IsProduction()),
		csrf.SameSite(csrf.SameSiteLaxMode),
		csrf.ErrorHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reason := "invalid CSRF token"
			if err := csrf.FailureReason(r); err != nil {
				reason = err.Error()
			}
			http.Error(w, "Forbidden - "+reason, http.StatusForbidden)
		})),
	}

	plaintext := true
	if backend, err := url.Parse(cfg.BackendURL); err == nil && backend.Host != "" {
		opts = append(opts, csrf.TrustedOrigins([]string{backend.Host}))
		plaintext = backend.Scheme != "https"
	}

	protected := csrf.Protect([]byte(cfg.CSRFAuthKey), opts...)(engine)
	// The CSRF check parses form bodies before any route runs
	if limit := storage.UploadBodyLimit(cfg.MaxFileSize); limit > 0 {
		protected = http.MaxBytesHandler(protected, limit)
	}
	if plaintext {
		inner := protected
		protected = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			inner.ServeHTTP(w, csrf.PlaintextHTTPRequest(r))
		})
	}

	return otelhttp.NewHandler(protected, "bienesraices")
}
