package v1

import (
	"portfolio-backend/config"
	"portfolio-backend/internal/delivery/http/middleware"
	"portfolio-backend/internal/domain"
	"portfolio-backend/internal/usecase"
	"portfolio-backend/pkg/security"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

type RouterDeps struct {
	ContactUC     domain.ContactUsecase
	HealthUC      usecase.HealthUsecase
	GlobalLimiter domain.RateLimiter // optional API-wide limiter
	SecurityLog   *security.SecurityLogger
	Config        *config.Config
}

func NewRouter(deps RouterDeps) *gin.Engine {
	r := gin.New()
	r.HandleMethodNotAllowed = true

	var origins []string
	isProduction := false
	if deps.Config != nil {
		origins = deps.Config.AllowedOrigins
		isProduction = deps.Config.IsProduction()
	}

	// Global Middlewares
	r.Use(middleware.CORSMiddleware(origins, isProduction, deps.SecurityLog)) // CORS must be first!
	r.Use(gin.Recovery())
	r.Use(gin.Logger())
	r.Use(middleware.RequestID())
	r.Use(middleware.SecurityHeadersMiddleware())
	r.Use(middleware.ErrorHandler())
	if deps.GlobalLimiter != nil {
		r.Use(middleware.RateLimitMiddleware(middleware.RateLimitConfig{
			Limiter:     deps.GlobalLimiter,
			SecurityLog: deps.SecurityLog,
		}))
	}

	r.NoMethod(middleware.MethodNotAllowed())
	r.NoRoute(middleware.NotFound())

	v1 := r.Group("/v1")

	NewHealthHandler(v1, deps.HealthUC)
	NewContactHandler(v1, deps.ContactUC)

	// Swagger
	v1.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	return r
}
