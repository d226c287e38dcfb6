// Package server wires the Fiber application: middleware, routes and the page
// handlers that forward every data operation to the fitness API.
package server

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"fitnessweb/internal/ads"
	"fitnessweb/internal/apiclient"
	"fitnessweb/internal/cache"
	"fitnessweb/internal/config"
	"fitnessweb/internal/featureflags"
	"fitnessweb/internal/middleware"
	"fitnessweb/internal/session"
	"fitnessweb/internal/views"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/csrf"
	"github.com/gofiber/fiber/v2/middleware/filesystem"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	redis          *redis.Client
	api            *apiclient.Client
	sessions       *session.Manager
	featureFlags   *featureflags.Manager
	ads            *ads.Loader
	views          fiber.Views
	snapshots      cache.JSONStore
	promMiddleware *fiberprometheus.FiberPrometheus
	loc            *time.Location
	now            func() time.Time
	app            *fiber.App
}

// NewServer creates a new server instance with all dependencies
func NewServer(cfg *config.Config) (*Server, error) {
	api, err := apiclient.New(cfg.APIBaseURL, cfg.APITimeout())
	if err != nil {
		return nil, fmt.Errorf("api client: %w", err)
	}

	// Sessions, CSRF tokens and list snapshots fall back to memory without Redis.
	cache.InitRedis(cfg.RedisURL)
	return NewServerWithDeps(cfg, api, cache.GetClient())
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// Tests pass a client for a fake API and a miniredis-backed Redis client.
func NewServerWithDeps(cfg *config.Config, api *apiclient.Client, redisClient *redis.Client) (*Server, error) {
	flags := featureflags.NewManager(cfg.FeatureFlags)

	signer, err := ads.NewSigner(cfg.SessionSecret, ads.DefaultTokenTTL)
	if err != nil {
		return nil, fmt.Errorf("ad click signer: %w", err)
	}

	opts := session.Options{
		TTL:            cfg.SessionTTL(),
		CookieSecure:   cfg.SessionCookieSecure,
		VerifyInterval: cfg.SessionVerifyInterval(),
	}
	if redisClient != nil {
		opts.Storage = cache.NewStorage(redisClient, cache.SessionKeyPrefix)
	}

	loc := cfg.Location()
	return &Server{
		config:         cfg,
		redis:          redisClient,
		api:            api,
		sessions:       session.NewManager(api, flags, opts),
		featureFlags:   flags,
		ads:            ads.NewLoader(flags, signer),
		views:          views.New(loc),
		snapshots:      cache.NewJSONStore(redisClient),
		promMiddleware: middleware.InitMetrics("fitness-web"),
		loc:            loc,
		now:            func() time.Time { return time.Now().In(loc) },
	}, nil
}

// NewApp builds the Fiber application with every middleware and route.
func (s *Server) NewApp() *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      "Fitness Web",
		Views:        s.views,
		ErrorHandler: s.errorHandler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	})
	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	return app
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	// Panic recovery
	app.Use(recover.New())

	// Request ID for tracing
	app.Use(requestid.New(requestid.Config{Generator: uuid.NewString}))

	// Context Middleware to propagate Request ID and User ID
	app.Use(middleware.ContextMiddleware())
	app.Use(middleware.TracingMiddleware())

	// Prometheus Metrics
	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	// Security headers
	app.Use(helmet.New(helmet.Config{
		ContentSecurityPolicy: "default-src 'self'; img-src 'self' https: data:; style-src 'self' 'unsafe-inline'",
	}))

	// Structured Logging middleware (after requestid and context middleware)
	app.Use(middleware.StructuredLogger())

	app.Use("/static", filesystem.New(filesystem.Config{
		Root:   http.FS(views.Static()),
		MaxAge: 3600,
	}))

	// Global rate limiting (120 requests per minute per IP)
	app.Use(limiter.New(limiter.Config{
		Max:        120,
		Expiration: 1 * time.Minute,
		Next: func(c *fiber.Ctx) bool {
			return isExemptPath(c.Path())
		},
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return fiber.NewError(fiber.StatusTooManyRequests, "Demasiados pedidos. Tente novamente dentro de momentos.")
		},
	}))

	app.Use(csrf.New(s.csrfConfig()))
}

func (s *Server) csrfConfig() csrf.Config {
	cfg := csrf.Config{
		KeyLookup:      "form:" + csrfFormField,
		CookieName:     "fitness_csrf",
		CookieSameSite: "Lax",
		CookieSecure:   s.config.SessionCookieSecure,
		CookieHTTPOnly: true,
		Expiration:     s.config.SessionTTL(),
		ContextKey:     csrfContextKey,
		KeyGenerator:   uuid.NewString,
		// Probes and scrapes never post forms; tests post without tokens.
		Next: func(c *fiber.Ctx) bool {
			return s.config.Env == "test" || isExemptPath(c.Path())
		},
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return fiber.NewError(fiber.StatusForbidden, "A sua sessão expirou. Recarregue a página e tente novamente.")
		},
	}
	if s.redis != nil {
		cfg.Storage = cache.NewStorage(s.redis, cache.CSRFKeyPrefix)
	}
	return cfg
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	// Health checks
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)

	// Metrics endpoint for Prometheus
	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}

	// Public pages
	app.Get("/", s.Home)
	app.Get("/login", s.LoginPage)
	app.Post("/login", middleware.RateLimit(s.redis, 10, 5*time.Minute, "login"), s.Login)
	app.Get("/register", s.RegisterPage)
	app.Post("/register", middleware.RateLimit(s.redis, 5, 10*time.Minute, "register"), s.Register)
	app.Post("/logout", s.Logout)

	app.Get("/shop", s.Shop)
	app.Post("/shop/filter", s.ShopFilter)
	app.Get("/shop/product/:slug", s.ProductDetail)
	app.Get(strings.TrimSuffix(ads.ClickPath, "/")+"/:token", s.AdClick)

	// User pages
	requireUser := middleware.RequireUser(s.sessions, s.placeholder(msgCheckingAuth))
	app.Get("/dashboard", requireUser, s.Dashboard)
	app.Post("/dashboard/generate", requireUser, s.GeneratePlan)
	app.Get("/profile", requireUser, s.ProfilePage)
	app.Post("/profile", requireUser, s.SaveProfile)
	app.Get("/preferences", requireUser, s.PreferencesPage)
	app.Post("/preferences", requireUser, s.SavePreferences)

	// Admin pages
	admin := app.Group("/admin", middleware.RequireAdmin(s.sessions, s.placeholder(msgCheckingAdmin)))
	admin.Get("/", s.AdminDashboard)
	admin.Get("/dashboard", s.AdminDashboard)
	admin.Get("/monitor", monitor.New(monitor.Config{
		Title: "Fitness Web Monitor",
	}))
	admin.Get("/shop", func(c *fiber.Ctx) error {
		return c.Redirect("/admin/shop/products", fiber.StatusSeeOther)
	})
	admin.Post("/users/:id/toggle-admin", s.ToggleUserAdmin)
	s.registerAdminResources(admin)

	// Unknown paths go home
	app.Use(func(c *fiber.Ctx) error {
		return c.Redirect("/", fiber.StatusSeeOther)
	})
}

// Start starts the server
func (s *Server) Start() error {
	s.app = s.NewApp()
	log.Printf("Server starting on port %s...", s.config.Port)
	return s.app.Listen(":" + s.config.Port)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			log.Printf("error shutting down HTTP server: %v", err)
		}
	}

	if s.redis != nil {
		if rerr := s.redis.Close(); rerr != nil {
			log.Printf("error closing redis: %v", rerr)
		}
	}

	log.Println("Server shutdown complete")
	return nil
}

// LivenessCheck handles liveness probe requests
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck reports whether Redis and the fitness API answer. Redis is
// optional: without it the app runs on in-memory stores and says so.
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
	defer cancel()

	redisStatus := "healthy"
	if s.redis != nil {
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
	} else {
		redisStatus = "unavailable"
	}

	// Any HTTP answer from the API counts; only transport failures do not.
	apiStatus := "healthy"
	if _, err := s.api.For(nil).Status(ctx); apiclient.IsTransport(err) {
		apiStatus = "unhealthy"
	}

	status := fiber.StatusOK
	overallStatus := "healthy"
	if apiStatus != "healthy" || redisStatus == "unhealthy" {
		status = fiber.StatusServiceUnavailable
		overallStatus = "unhealthy"
	}

	return c.Status(status).JSON(fiber.Map{
		"status": overallStatus,
		"checks": fiber.Map{
			"api":   apiStatus,
			"redis": redisStatus,
		},
		"time": time.Now(),
	})
}

func isExemptPath(path string) bool {
	return path == "/metrics" || strings.HasPrefix(path, "/health") || strings.HasPrefix(path, "/static/")
}
