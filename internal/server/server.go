package server

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/shinyyama/farmmarket-backend/internal/auth"
	"github.com/shinyyama/farmmarket-backend/internal/config"
	"github.com/shinyyama/farmmarket-backend/internal/handler"
	"github.com/shinyyama/farmmarket-backend/internal/metrics"
	appmw "github.com/shinyyama/farmmarket-backend/internal/middleware"
	"github.com/shinyyama/farmmarket-backend/internal/model"
	"github.com/shinyyama/farmmarket-backend/internal/repository"
	"github.com/shinyyama/farmmarket-backend/internal/service"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"gorm.io/gorm"
)

type Server struct {
	e   *echo.Echo
	log *zap.Logger
}

type options struct {
	hasher auth.PasswordHasher
	sha    string
	build  string
}

type Option func(*options)

// WithHasher replaces the default bcrypt hasher. Tests use a low cost.
func WithHasher(h auth.PasswordHasher) Option {
	return func(o *options) { o.hasher = h }
}

func WithBuildInfo(sha, buildTime string) Option {
	return func(o *options) {
		o.sha = sha
		o.build = buildTime
	}
}

func allowOrigin(extra []string) func(string) (bool, error) {
	allowed := make(map[string]struct{}, len(extra))
	for _, o := range extra {
		if o = strings.TrimRight(strings.ToLower(strings.TrimSpace(o)), "/"); o != "" {
			allowed[o] = struct{}{}
		}
	}
	return func(origin string) (bool, error) {
		low := strings.ToLower(origin)
		if strings.HasPrefix(low, "http://localhost:") || strings.HasPrefix(low, "http://127.0.0.1:") ||
			strings.HasPrefix(low, "https://localhost:") || strings.HasPrefix(low, "https://127.0.0.1:") {
			return true, nil
		}
		if _, ok := allowed[low]; ok {
			return true, nil
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false, nil
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return false, nil
		}
		if strings.HasSuffix(u.Hostname(), "vercel.app") {
			return true, nil
		}
		return false, nil
	}
}

func New(db *gorm.DB, cfg *config.Config, log *zap.Logger, m *metrics.Metrics, opts ...Option) *Server {
	o := options{hasher: auth.BcryptHasher{}, sha: "dev"}
	for _, opt := range opts {
		opt(&o)
	}
	if log == nil {
		log = zap.NewNop()
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(appmw.RequestID())
	e.Use(appmw.RequestLogger(log))
	e.Use(appmw.SecurityHeaders())
	e.Use(middleware.BodyLimit("1M"))
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
		AllowOriginFunc:  allowOrigin(cfg.CORSAllowOrigins),
	}))

	// A non-positive rate disables limiting.
	limit := func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	if cfg.RateLimitRPS > 0 {
		limit = middleware.RateLimiter(middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
			Rate:      rate.Limit(cfg.RateLimitRPS),
			ExpiresIn: 3 * time.Minute,
		}))
	}

	userRepo := repository.NewUserRepository(db)
	verificationRepo := repository.NewVerificationRepository(db)
	productRepo := repository.NewProductRepository(db)
	txRepo := repository.NewTransactionRepository(db)
	notifRepo := repository.NewNotificationRepository(db)
	statsRepo := repository.NewStatsRepository(db)

	tokens := auth.NewTokenIssuer(cfg.JWTSecret, cfg.TokenTTL)
	notifSvc := service.NewNotificationService(notifRepo, log)
	authSvc := service.NewAuthService(userRepo, o.hasher, tokens, cfg.AllowAdminSignup)
	verificationSvc := service.NewVerificationService(verificationRepo, userRepo, notifSvc)
	productSvc := service.NewProductService(productRepo, userRepo, verificationSvc)
	txSvc := service.NewTransactionService(txRepo, productRepo, userRepo, verificationSvc, notifSvc, m)
	statsSvc := service.NewStatsService(statsRepo, cfg.RecentWindow)

	authHandler := handler.NewAuthHandler(authSvc, log)
	userHandler := handler.NewUserHandler(verificationSvc)
	productHandler := handler.NewProductHandler(productSvc, log)
	verificationHandler := handler.NewVerificationHandler(verificationSvc, log)
	txHandler := handler.NewTransactionHandler(txSvc, log)
	notifHandler := handler.NewNotificationHandler(notifSvc)
	statsHandler := handler.NewStatsHandler(statsSvc, log)

	authMw := appmw.NewAuthMiddleware(authSvc)
	farmer := appmw.RequireRole(model.RoleFarmer)
	admin := appmw.RequireRole(model.RoleAdmin)

	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"ok":         "true",
			"git_sha":    o.sha,
			"build_time": o.build,
		})
	})
	if m != nil {
		e.GET("/metrics", echo.WrapHandler(m.Handler()))
	}

	api := e.Group("/api")
	api.GET("", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"message": "Farm market API is running"})
	})

	api.POST("/auth/register", authHandler.Register, limit)
	api.POST("/auth/login", authHandler.Login, limit)
	api.GET("/auth/me", userHandler.Me, authMw.RequireAuth)

	api.GET("/products", productHandler.List)
	api.POST("/products", productHandler.Create, limit, authMw.RequireAuth, farmer)
	api.GET("/products/my-products", productHandler.ListMine, authMw.RequireAuth, farmer)
	api.PUT("/products/:id", productHandler.Update, limit, authMw.RequireAuth, farmer)
	api.DELETE("/products/:id", productHandler.Delete, limit, authMw.RequireAuth, farmer)

	api.GET("/buyer-verification", verificationHandler.List, authMw.RequireAuth, admin)
	api.PUT("/buyer-verification/:userId", verificationHandler.SetStatus, limit, authMw.RequireAuth, admin)

	api.POST("/transactions", txHandler.Purchase, limit, authMw.RequireAuth, appmw.RequireRole(model.RoleBuyer))
	api.GET("/transactions", txHandler.List, authMw.RequireAuth)
	api.PATCH("/transactions/:id/status", txHandler.UpdateStatus, limit, authMw.RequireAuth)

	api.GET("/notifications", notifHandler.List, authMw.RequireAuth)
	api.POST("/notifications/read", notifHandler.MarkRead, authMw.RequireAuth)

	api.GET("/stats", statsHandler.Get)

	return &Server{e: e, log: log}
}

// Handler exposes the router for httptest.
func (s *Server) Handler() http.Handler {
	return s.e
}

func (s *Server) Start(addr string) error {
	s.log.Info("starting server", zap.String("addr", addr))
	return s.e.Start(addr)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.e.Shutdown(ctx)
}
