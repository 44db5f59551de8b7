package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// DefaultTurnstileVerifyURL is Cloudflare's siteverify endpoint.
const DefaultTurnstileVerifyURL = "https://challenges.cloudflare.com/turnstile/v0/siteverify"

type Config struct {
	Port           string
	Environment    string
	LogLevel       string
	AllowedOrigins []string
	// Turnstile (challenge widget)
	TurnstileSecretKey string
	TurnstileSiteKey   string
	TurnstileVerifyURL string
	// Mail transport
	EmailService  string
	EmailUser     string
	EmailPassword string
	ContactEmail  string // Destination mailbox, falls back to EmailUser
	SMTPHost      string // Optional override of the host derived from EmailService
	SMTPPort      string
	// Redis (optional shared rate-limit store)
	RedisURL      string
	RedisPassword string
	// Rate Limiting Configuration
	ContactRateLimit         int
	ContactRateWindowSeconds int
	RateLimitGlobalThreshold int
	RateLimitWindowSeconds   int
	// Orchestrator deadline for challenge verification and dispatch
	ContactTimeoutSeconds int
	// Security Configuration
	SecurityLogEnabled bool
}

func LoadConfig() (*Config, error) {
	// .env is only present locally; missing file is not an error
	_ = godotenv.Load()

	emailUser := getEnv("EMAIL_USER", "")

	cfg := &Config{
		Port:           getEnv("PORT", "8080"),
		Environment:    environment(),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		AllowedOrigins: splitList(getEnv("ALLOWED_ORIGINS", "http://localhost:3000")),
		// Turnstile
		TurnstileSecretKey: getEnv("TURNSTILE_SECRET_KEY", ""),
		TurnstileSiteKey:   getEnv("TURNSTILE_SITE_KEY", getEnv("NEXT_PUBLIC_TURNSTILE_SITE_KEY", "")),
		TurnstileVerifyURL: getEnv("TURNSTILE_VERIFY_URL", DefaultTurnstileVerifyURL),
		// Mail transport
		EmailService:  strings.ToLower(getEnv("EMAIL_SERVICE", "gmail")),
		EmailUser:     emailUser,
		EmailPassword: getEnv("EMAIL_PASSWORD", ""),
		ContactEmail:  getEnv("CONTACT_EMAIL", emailUser),
		SMTPHost:      getEnv("SMTP_HOST", ""),
		SMTPPort:      getEnv("SMTP_PORT", ""),
		// Redis
		RedisURL:      getEnv("REDIS_URL", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		// Rate Limiting Configuration (with sensible defaults)
		ContactRateLimit:         getEnvInt("CONTACT_RATE_LIMIT", 5),
		ContactRateWindowSeconds: getEnvInt("CONTACT_RATE_WINDOW_SECONDS", 15*60), // 15 minute fixed window
		RateLimitGlobalThreshold: getEnvInt("RATE_LIMIT_GLOBAL_THRESHOLD", 100),   // 100 requests per window
		RateLimitWindowSeconds:   getEnvInt("RATE_LIMIT_WINDOW_SECONDS", 60),      // 1 minute window
		ContactTimeoutSeconds:    getEnvInt("CONTACT_TIMEOUT_SECONDS", 20),
		SecurityLogEnabled:       getEnvBool("SECURITY_LOG_ENABLED", true),
	}

	// An empty CONTACT_EMAIL is treated the same as an unset one
	if cfg.ContactEmail == "" {
		cfg.ContactEmail = cfg.EmailUser
	}

	if cfg.TurnstileSecretKey == "" {
		log.Println("WARNING: TURNSTILE_SECRET_KEY is missing. Every contact submission will fail captcha verification.")
	}
	if cfg.EmailUser == "" || cfg.EmailPassword == "" {
		log.Println("WARNING: EMAIL_USER/EMAIL_PASSWORD not configured. Contact form will answer 503.")
	}
	if cfg.RedisURL == "" {
		log.Println("WARNING: REDIS_URL not configured. Rate limiting will use in-memory store.")
	}

	return cfg, nil
}

// ContactRateWindow returns the contact limiter window as a duration.
func (c *Config) ContactRateWindow() time.Duration {
	return time.Duration(c.ContactRateWindowSeconds) * time.Second
}

// GlobalRateWindow returns the global limiter window as a duration.
func (c *Config) GlobalRateWindow() time.Duration {
	return time.Duration(c.RateLimitWindowSeconds) * time.Second
}

// ContactTimeout returns the deadline applied to external calls of a submission.
func (c *Config) ContactTimeout() time.Duration {
	return time.Duration(c.ContactTimeoutSeconds) * time.Second
}

// IsProduction reports whether gin runs in release mode.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

// getEnvInt returns an integer environment variable or fallback if not set/invalid
func getEnvInt(key string, fallback int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return fallback
}

// getEnvBool returns a boolean environment variable or fallback if not set/invalid
func getEnvBool(key string, fallback bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return fallback
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimRight(strings.TrimSpace(part), "/"); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func environment() string {
	if os.Getenv("GIN_MODE") == "release" {
		return "production"
	}
	return "development"
}
