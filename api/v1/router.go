package v1

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/monitoria-simple/lib/logger"
	"github.com/monitoria-simple/lib/metrics"
	"github.com/monitoria-simple/middleware"
	"github.com/monitoria-simple/services"
)

// Dependencies are the collaborators the HTTP layer needs
type Dependencies struct {
	Services    *services.Services
	Downloads   DocumentDownloader
	Log         *logger.Logger
	RateLimiter *middleware.RateLimiter
	CORSOrigins []string
}

// NewRouter builds the gin engine with the global middleware chain and
// every v1 route registered
func NewRouter(deps Dependencies) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CorrelationID())
	router.Use(middleware.RequestLogger(deps.Log))
	router.Use(middleware.Metrics())
	router.Use(cors.New(corsConfig(deps.CORSOrigins)))

	router.GET("/metrics", gin.WrapH(metrics.Handler()))
	RegisterRoutes(router.Group("/api/v1"), deps)
	return router
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.CorrelationHeader},
		ExposeHeaders: []string{middleware.CorrelationHeader},
	}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
		return cfg
	}
	cfg.AllowOrigins = origins
	cfg.AllowCredentials = true
	return cfg
}

// RegisterRoutes registers all v1 API routes
func RegisterRoutes(router *gin.RouterGroup, deps Dependencies) {
	svc := deps.Services
	log := deps.Log

	router.GET("/health", HealthCheck)

	signing := NewSigningController(svc.Signing, deps.Downloads, log)
	signing.RegisterPublicRoutes(router)

	protected := router.Group("")
	protected.Use(middleware.AuthMiddleware(svc.Auth, log))
	if deps.RateLimiter != nil {
		protected.Use(deps.RateLimiter.Handler())
	}
	protected.GET("/me", CurrentUser)

	NewPeriodController(svc.Periods, log).RegisterRoutes(protected)
	NewProjectController(svc.Projects, log).RegisterRoutes(protected)
	signing.RegisterRoutes(protected)
	NewAllocationController(svc.Allocation, log).RegisterRoutes(protected)
	NewApplicationController(svc.Applications, svc.Selection, log).RegisterRoutes(protected)
	NewSelectionController(svc, log).RegisterRoutes(protected)
	NewAuditController(svc.Audit, log).RegisterRoutes(protected)
}
