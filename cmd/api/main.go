package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"portfolio-backend/config"
	_ "portfolio-backend/docs" // Important for Swagger
	v1 "portfolio-backend/internal/delivery/http/v1"
	"portfolio-backend/internal/usecase"
	"portfolio-backend/pkg/email"
	"portfolio-backend/pkg/logger"
	"portfolio-backend/pkg/ratelimit"
	redisclient "portfolio-backend/pkg/redis"
	"portfolio-backend/pkg/security"
	"portfolio-backend/pkg/turnstile"
	"portfolio-backend/pkg/validation"

	"github.com/go-playground/validator/v10"
	goredis "github.com/redis/go-redis/v9"
)

// @title           Portfolio Backend API
// @version         1.0
// @description     Contact form backend for the portfolio site.
// @host            localhost:8080
// @BasePath        /v1
func main() {
	// 1. Load Config
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 2. Setup Loggers
	logger.Init(cfg.LogLevel)
	logger.Log.Info("Starting portfolio backend", "port", cfg.Port, "env", cfg.Environment)

	securityLog := security.Nop()
	if cfg.SecurityLogEnabled {
		securityLog = security.NewSecurityLogger("portfolio-backend", cfg.Environment)
	}
	defer securityLog.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 3. Setup Redis (optional)
	var redisClient *goredis.Client
	if cfg.RedisURL != "" {
		redisClient, err = redisclient.Connect(ctx, redisclient.Config{URL: cfg.RedisURL, Password: cfg.RedisPassword})
		if err != nil {
			logger.Log.Warn("Redis unavailable, rate limiting stays in memory", "error", err)
			redisClient = nil
		} else {
			defer redisClient.Close()
		}
	}

	// 4. Setup Rate Limiters
	contactPolicy := ratelimit.Policy{Limit: cfg.ContactRateLimit, Window: cfg.ContactRateWindow()}
	globalPolicy := ratelimit.Policy{Limit: cfg.RateLimitGlobalThreshold, Window: cfg.GlobalRateWindow()}

	contactMemory := ratelimit.NewFixedWindow(contactPolicy)
	globalMemory := ratelimit.NewFixedWindow(globalPolicy)
	go contactMemory.RunSweeper(ctx, time.Minute)
	go globalMemory.RunSweeper(ctx, time.Minute)

	contactLimiter := ratelimit.NewRedisLimiter(redisClient, contactPolicy, "ratelimit:contact:", contactMemory)
	globalLimiter := ratelimit.NewRedisLimiter(redisClient, globalPolicy, "ratelimit:global:", globalMemory)

	// 5. Setup Challenge Verifier
	verifier := turnstile.NewVerifier(turnstile.Config{
		Secret:    cfg.TurnstileSecretKey,
		VerifyURL: cfg.TurnstileVerifyURL,
		Timeout:   10 * time.Second,
	})

	// 6. Setup Email Service
	emailService := email.NewEmailService(cfg)
	if !emailService.IsConfigured() {
		logger.Log.Warn("Email service not fully configured - contact form will be unavailable")
	}

	// 7. Setup UseCases
	contactUC := usecase.NewContactUsecase(usecase.ContactDeps{
		Limiter:     contactLimiter,
		Validator:   validation.NewContactValidator(validator.New()),
		Verifier:    verifier,
		Notifier:    emailService,
		SecurityLog: securityLog,
		SiteKey:     cfg.TurnstileSiteKey,
		Timeout:     cfg.ContactTimeout(),
	})
	healthUC := usecase.NewHealthUsecase(map[string]usecase.HealthProbe{
		"redis": func(ctx context.Context) string { return redisclient.HealthCheck(ctx, redisClient) },
		"email": func(context.Context) string {
			if emailService.IsConfigured() {
				return "configured"
			}
			return "not_configured"
		},
	})

	// 8. Setup Router
	router := v1.NewRouter(v1.RouterDeps{
		ContactUC:     contactUC,
		HealthUC:      healthUC,
		GlobalLimiter: globalLimiter,
		SecurityLog:   securityLog,
		Config:        cfg,
	})

	// 9. Start Server
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Log.Error("Listen failed", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful Shutdown
	<-ctx.Done()
	logger.Log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Log.Error("Server forced to shutdown", "error", err)
	}

	logger.Log.Info("Server exiting")
}
