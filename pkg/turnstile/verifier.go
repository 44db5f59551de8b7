// Package turnstile verifies Cloudflare Turnstile challenge tokens.
package turnstile

import (
	"context"
	"net/http"
	"strings"
	"time"

	"portfolio-backend/pkg/logger"

	"github.com/go-resty/resty/v2"
)

// DefaultVerifyURL is Cloudflare's siteverify endpoint.
const DefaultVerifyURL = "https://challenges.cloudflare.com/turnstile/v0/siteverify"

// Response is the siteverify answer.
type Response struct {
	Success     bool     `json:"success"`
	ChallengeTS string   `json:"challenge_ts"`
	Hostname    string   `json:"hostname"`
	ErrorCodes  []string `json:"error-codes"`
	Action      string   `json:"action"`
	CData       string   `json:"cdata"`
}

// Config holds what the verifier needs to reach siteverify.
type Config struct {
	Secret    string
	VerifyURL string
	Timeout   time.Duration
}

// Verifier checks tokens against siteverify. It fails closed: anything short
// of an explicit success reports false.
type Verifier struct {
	secret    string
	verifyURL string
	client    *resty.Client
}

// Option customizes a Verifier.
type Option func(*Verifier)

// WithHTTPClient swaps the transport used for siteverify calls.
func WithHTTPClient(hc *http.Client) Option {
	return func(v *Verifier) {
		if hc != nil {
			v.client = resty.NewWithClient(hc)
		}
	}
}

// NewVerifier creates a verifier from cfg.
func NewVerifier(cfg Config, opts ...Option) *Verifier {
	v := &Verifier{
		secret:    strings.TrimSpace(cfg.Secret),
		verifyURL: cfg.VerifyURL,
		client:    resty.New(),
	}
	if v.verifyURL == "" {
		v.verifyURL = DefaultVerifyURL
	}

	for _, opt := range opts {
		if opt != nil {
			opt(v)
		}
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	v.client.SetTimeout(timeout)

	return v
}

// IsConfigured reports whether a secret is set. Without one every Verify call fails.
func (v *Verifier) IsConfigured() bool {
	return v.secret != ""
}

// Verify reports whether siteverify explicitly accepted token.
// remoteIP is forwarded when known.
func (v *Verifier) Verify(ctx context.Context, token, remoteIP string) bool {
	if !v.IsConfigured() {
		logger.Log.Error("turnstile secret key not configured")
		return false
	}
	if token == "" {
		return false
	}

	form := map[string]string{
		"secret":   v.secret,
		"response": token,
	}
	if remoteIP != "" && remoteIP != "unknown" {
		form["remoteip"] = remoteIP
	}

	var result Response
	resp, err := v.client.R().
		SetContext(ctx).
		SetFormData(form).
		ForceContentType("application/json").
		SetResult(&result).
		Post(v.verifyURL)
	if err != nil {
		logger.Log.Warn("turnstile verification error", "error", err)
		return false
	}
	if !resp.IsSuccess() {
		logger.Log.Warn("turnstile verification rejected", "status", resp.StatusCode())
		return false
	}

	if !result.Success {
		logger.Log.Info("turnstile token rejected", "error_codes", result.ErrorCodes)
		return false
	}
	return true
}
