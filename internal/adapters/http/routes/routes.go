package routes

import (
	"time"

	"sponsornet/internal/adapters/http/handlers"
	"sponsornet/internal/adapters/http/middleware"
	"sponsornet/internal/adapters/persistence/repositories"
	"sponsornet/internal/config"
	"sponsornet/internal/core/services"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/swagger"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Services groups the core services shared by handlers and background jobs
type Services struct {
	DB         *gorm.DB
	Path       *services.PathService
	Subtree    *services.SubtreeService
	Invite     *services.InviteService
	Member     *services.MemberService
	Commission *services.CommissionService
	Auth       *services.AuthService
}

// NewServices wires repositories into services
func NewServices(db *gorm.DB, cfg *config.Config, audit services.AuditSink, log *zap.Logger) *Services {
	// Initialize repositories
	memberRepo := repositories.NewMemberRepository(db)
	codeRepo := repositories.NewInviteCodeRepository(db)
	slabRepo := repositories.NewSlabRepository(db)
	earningRepo := repositories.NewEarningRepository(db)

	// Initialize services
	invite := services.NewInviteService(db, memberRepo, codeRepo, audit, log, cfg.Invite.MaxAttempts)
	limits := services.TreeLimits{
		MemberMaxDepth: cfg.Tree.MemberMaxDepth,
		AdminMaxDepth:  cfg.Tree.AdminMaxDepth,
		DefaultDepth:   cfg.Tree.DefaultDepth,
		MaxExpanded:    cfg.Tree.MaxExpanded,
	}
	return &Services{
		DB:         db,
		Path:       services.NewPathService(db, memberRepo, audit, log),
		Subtree:    services.NewSubtreeService(memberRepo, limits),
		Invite:     invite,
		Member:     services.NewMemberService(db, memberRepo, codeRepo, invite, audit, log),
		Commission: services.NewCommissionService(db, memberRepo, slabRepo, earningRepo, log),
		Auth:       services.NewAuthService(memberRepo, cfg.JWT.Secret, cfg.JWT.AccessTokenMins, log),
	}
}

// Setup configures all routes for the application
func Setup(app *fiber.App, svc *Services, cfg *config.Config) {
	// Initialize handlers
	healthHandler := handlers.NewHealthHandler(cfg.AppMode, func() error { return config.Ping(svc.DB) })
	authHandler := handlers.NewAuthHandler(svc.Auth, cfg.IsProd(), cfg.JWT.AccessTokenMins)
	networkHandler := handlers.NewNetworkHandler(svc.Member, svc.Invite, svc.Subtree)
	earningHandler := handlers.NewEarningHandler(svc.Commission, svc.Subtree)
	adminHandler := handlers.NewAdminHandler(svc.Path, svc.Member, svc.Subtree, svc.Commission)

	// Health check & root routes
	app.Get("/", healthHandler.Root)
	app.Get("/health", healthHandler.HealthCheck)

	// Prometheus metrics
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	// Swagger documentation
	app.Get("/swagger/*", swagger.HandlerDefault)

	// API v1 group
	apiV1 := app.Group("/api/v1")
	setupAPIV1Routes(apiV1, healthHandler, authHandler, networkHandler, earningHandler, adminHandler, cfg)
}

// setupAPIV1Routes configures API v1 routes
func setupAPIV1Routes(
	router fiber.Router,
	healthHandler *handlers.HealthHandler,
	authHandler *handlers.AuthHandler,
	networkHandler *handlers.NetworkHandler,
	earningHandler *handlers.EarningHandler,
	adminHandler *handlers.AdminHandler,
	cfg *config.Config,
) {
	auth := middleware.AuthMiddleware(cfg.JWT.Secret)

	// API Info
	router.Get("/", healthHandler.APIInfo)

	// Auth routes (public)
	authRoutes := router.Group("/auth")
	authRoutes.Post("/login", middleware.AuthRateLimiter(), authHandler.Login)
	authRoutes.Post("/logout", authHandler.Logout)

	// Network routes
	networkRoutes := router.Group("/network")
	setupNetworkRoutes(networkRoutes, networkHandler, auth)

	// Earnings routes (Authenticated members)
	earningRoutes := router.Group("/earnings")
	earningRoutes.Use(auth, middleware.NoCacheHeaders())
	earningRoutes.Get("/me", earningHandler.MyStatement)
	earningRoutes.Get("/members/:id", earningHandler.MemberStatement)

	// Admin routes (Admin only)
	adminRoutes := router.Group("/admin")
	adminRoutes.Use(auth, middleware.AdminOnly())
	setupAdminRoutes(adminRoutes, adminHandler)
}

// setupNetworkRoutes configures join and downline routes
func setupNetworkRoutes(router fiber.Router, handler *handlers.NetworkHandler, auth fiber.Handler) {
	// Public routes
	router.Post("/join", middleware.AuthRateLimiter(), handler.Join)
	router.Get("/invite/:code", middleware.StrictRateLimiter(), middleware.PublicCache(30*time.Second), handler.ResolveInviteCode)

	// Protected routes
	noCache := middleware.NoCacheHeaders()
	router.Get("/me", auth, noCache, handler.Me)
	router.Get("/me/invite-code", auth, noCache, handler.MyInviteCode)
	router.Get("/tree", auth, noCache, handler.Tree)
	router.Get("/members/:id", auth, noCache, handler.Member)
	router.Get("/members/:id/children", auth, noCache, handler.Children)
	router.Get("/members/:id/stats", auth, noCache, handler.Stats)
}

// setupAdminRoutes configures administrative routes
func setupAdminRoutes(router fiber.Router, handler *handlers.AdminHandler) {
	router.Put("/members/:id/sponsor", handler.ReassignSponsor)
	router.Post("/members/:id/recompute-path", handler.RecomputePath)
	router.Put("/members/:id/status", handler.ChangeStatus)
	router.Put("/members/:id/role", handler.ChangeRole)
	router.Delete("/members/:id", handler.DeleteMember)
	router.Get("/members/:id/downline", handler.Downline)
	router.Get("/consistency", handler.Consistency)
	router.Put("/slabs", handler.UpsertSlab)
	router.Post("/sales", handler.RecordSale)
}
