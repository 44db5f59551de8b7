package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("EMAIL_USER", "me@example.com")
	t.Setenv("EMAIL_PASSWORD", "secret")
	t.Setenv("CONTACT_EMAIL", "")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "me@example.com", cfg.ContactEmail, "destination falls back to the mail username")
	assert.Equal(t, 5, cfg.ContactRateLimit)
	assert.Equal(t, 15*time.Minute, cfg.ContactRateWindow())
	assert.Equal(t, DefaultTurnstileVerifyURL, cfg.TurnstileVerifyURL)
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("EMAIL_SERVICE", "Outlook")
	t.Setenv("CONTACT_EMAIL", "inbox@example.com")
	t.Setenv("CONTACT_RATE_LIMIT", "3")
	t.Setenv("CONTACT_TIMEOUT_SECONDS", "not-a-number")
	t.Setenv("ALLOWED_ORIGINS", "https://example.com/, http://localhost:3000 ,")
	t.Setenv("NEXT_PUBLIC_TURNSTILE_SITE_KEY", "site-key")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "outlook", cfg.EmailService)
	assert.Equal(t, "inbox@example.com", cfg.ContactEmail)
	assert.Equal(t, 3, cfg.ContactRateLimit)
	assert.Equal(t, 20*time.Second, cfg.ContactTimeout(), "invalid ints keep the default")
	assert.Equal(t, []string{"https://example.com", "http://localhost:3000"}, cfg.AllowedOrigins)
	assert.Equal(t, "site-key", cfg.TurnstileSiteKey)
}
