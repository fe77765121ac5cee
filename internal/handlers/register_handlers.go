package handlers

import (
	"github.com/SscSPs/transfer_backoffice/cmd/docs"
	portssvc "github.com/SscSPs/transfer_backoffice/internal/core/ports/services"
	"github.com/SscSPs/transfer_backoffice/internal/middleware"
	"github.com/SscSPs/transfer_backoffice/internal/platform/config"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"github.com/ulule/limiter/v3"
)

// RegisterRoutes sets up all application routes, injecting dependencies using interfaces
func RegisterRoutes(
	r *gin.Engine,
	cfg *config.Config,
	services *portssvc.ServiceContainer,
	store middleware.SubmissionStore,
	lim *limiter.Limiter,
	db HealthChecker,
) {
	registerDecimalValidation()

	registerHealthRoutes(r, db)

	// Setup API v1 routes with Auth Middleware, passing service interfaces
	setupAPIV1Routes(r, cfg, services, store, lim)

	// Swagger routes (typically public or conditionally available)
	setupSwaggerRoutes(r, cfg)
}

// setupAPIV1Routes configures the /api/v1 group and delegates to specific entity route registrations
func setupAPIV1Routes(
	r *gin.Engine,
	cfg *config.Config,
	services *portssvc.ServiceContainer,
	store middleware.SubmissionStore,
	lim *limiter.Limiter,
) {
	handlers := []gin.HandlerFunc{middleware.AuthMiddleware(cfg.JWTSecret, cfg.JWTIssuer)}
	if lim != nil {
		handlers = append(handlers, middleware.RateLimit(lim))
	}
	if store != nil {
		handlers = append(handlers, middleware.SubmissionGuard(store, cfg.SubmissionGuardTTL))
	}
	v1 := r.Group("/api/v1", handlers...)

	registerCardRoutes(v1, services.Card)
	registerExpenseRoutes(v1, services.Expense)
	registerTillRoutes(v1, services.Till)
}

// setupSwaggerRoutes configures the swagger documentation routes
func setupSwaggerRoutes(r *gin.Engine, cfg *config.Config) {
	if cfg.IsProduction {
		//no swagger in prod
		return
	}
	docs.SwaggerInfo.BasePath = "/api/v1"
	swagger := r.Group("/swagger")
	swagger.GET("/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
}
