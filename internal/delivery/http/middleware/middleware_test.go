package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"portfolio-backend/internal/domain"
	"portfolio-backend/pkg/apperror"
	"portfolio-backend/pkg/security"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestClientKeyPrecedence(t *testing.T) {
	tests := []struct {
		name       string
		headers    map[string]string
		remoteAddr string
		want       string
	}{
		{
			name:       "first forwarded entry wins",
			headers:    map[string]string{"X-Forwarded-For": " 203.0.113.5 , 10.0.0.1", "X-Real-IP": "198.51.100.1"},
			remoteAddr: "10.0.0.2:5555",
			want:       "203.0.113.5",
		},
		{
			name:       "real ip when no forwarded header",
			headers:    map[string]string{"X-Real-IP": "198.51.100.1"},
			remoteAddr: "10.0.0.2:5555",
			want:       "198.51.100.1",
		},
		{
			name:       "empty forwarded entry falls through",
			headers:    map[string]string{"X-Forwarded-For": " , 10.0.0.1", "X-Real-IP": "198.51.100.1"},
			remoteAddr: "10.0.0.2:5555",
			want:       "198.51.100.1",
		},
		{
			name:       "remote address host",
			remoteAddr: "10.0.0.2:5555",
			want:       "10.0.0.2",
		},
		{
			name: "unknown",
			want: UnknownClient,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := gin.CreateTestContext(httptest.NewRecorder())
			req := httptest.NewRequest(http.MethodPost, "/v1/contact", nil)
			req.RemoteAddr = tt.remoteAddr
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			c.Request = req

			assert.Equal(t, tt.want, ClientKey(c))
		})
	}
}

func newEngine(handlers ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	r.Use(handlers...)
	return r
}

func TestRequestIDGeneratedAndPropagated(t *testing.T) {
	r := newEngine(RequestID())
	var fromGin, fromCtx, clientFromCtx, clientFromKey string
	r.GET("/", func(c *gin.Context) {
		fromGin = c.GetString("RequestID")
		fromCtx, _ = c.Request.Context().Value(domain.KeyRequestID).(string)
		clientFromCtx, _ = c.Request.Context().Value(domain.KeyClientKey).(string)
		clientFromKey = ClientKey(c)
		c.Status(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Forwarded-For", "203.0.113.20, 10.0.0.1")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	id := w.Header().Get(RequestIDHeader)
	require.NotEmpty(t, id)
	assert.Equal(t, id, fromGin)
	assert.Equal(t, id, fromCtx)
	assert.Equal(t, "203.0.113.20", clientFromCtx)
	assert.Equal(t, "203.0.113.20", clientFromKey)
}

func TestRequestIDReusesWellFormedIncoming(t *testing.T) {
	r := newEngine(RequestID())
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	for incoming, reused := range map[string]bool{
		"abc-123_XYZ.789":       true,
		"short":                 false,
		"bad id\r\nInjected: 1": false,
	} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(RequestIDHeader, incoming)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		if reused {
			assert.Equal(t, incoming, w.Header().Get(RequestIDHeader))
		} else {
			assert.NotEqual(t, incoming, w.Header().Get(RequestIDHeader))
		}
	}
}

func TestCORSMiddleware(t *testing.T) {
	tests := []struct {
		name       string
		production bool
		origin     string
		method     string
		wantStatus int
		wantAllow  string
	}{
		{"configured origin", true, "https://portfolio.example.com", http.MethodPost, http.StatusOK, "https://portfolio.example.com"},
		{"configured origin preflight", true, "https://portfolio.example.com", http.MethodOptions, http.StatusNoContent, "https://portfolio.example.com"},
		{"foreign origin preflight", true, "https://evil.example", http.MethodOptions, http.StatusForbidden, ""},
		{"foreign origin request", true, "https://evil.example", http.MethodPost, http.StatusOK, ""},
		{"localhost in development", false, "http://localhost:3000", http.MethodOptions, http.StatusNoContent, "http://localhost:3000"},
		{"localhost in production", true, "http://localhost:3000", http.MethodOptions, http.StatusForbidden, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newEngine(CORSMiddleware([]string{"https://portfolio.example.com/"}, tt.production, security.Nop()))
			r.POST("/", func(c *gin.Context) { c.Status(http.StatusOK) })
			r.OPTIONS("/", func(c *gin.Context) { c.Status(http.StatusOK) })

			req := httptest.NewRequest(tt.method, "/", nil)
			req.Header.Set("Origin", tt.origin)
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, tt.wantAllow, w.Header().Get("Access-Control-Allow-Origin"))
		})
	}
}

func TestCORSMiddlewareLogsRejectedPreflight(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	securityLog := security.NewSecurityLoggerWithZap(zap.New(core), "portfolio-backend", "test")
	r := newEngine(CORSMiddleware([]string{"https://portfolio.example.com"}, true, securityLog))
	r.OPTIONS("/v1/contact", func(c *gin.Context) { c.Status(http.StatusOK) })

	for _, origin := range []string{"https://portfolio.example.com", "https://evil.example"} {
		req := httptest.NewRequest(http.MethodOptions, "/v1/contact", nil)
		req.Header.Set("Origin", origin)
		req.Header.Set("X-Real-IP", "198.51.100.30")
		r.ServeHTTP(httptest.NewRecorder(), req)
	}

	events := logs.All()
	require.Len(t, events, 1)
	assert.Equal(t, string(security.EventOriginRejected), events[0].Message)
	fields := events[0].ContextMap()
	assert.Equal(t, "198.51.100.30", fields["ip"])
	assert.Equal(t, "https://evil.example", fields["details"].(map[string]interface{})["origin"])
}

func TestErrorHandlerRendersAppError(t *testing.T) {
	r := newEngine(RequestID(), ErrorHandler())
	r.POST("/", func(c *gin.Context) {
		_ = c.Error(apperror.BadRequest("Validation failed").WithDetails([]domain.FieldError{
			{Field: "name", Message: "Name must be at least 2 characters"},
		}))
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/", nil))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t,
		`{"error":"Validation failed","details":[{"field":"name","message":"Name must be at least 2 characters"}],"request_id":"`+w.Header().Get(RequestIDHeader)+`"}`,
		w.Body.String())
}

func TestErrorHandlerHidesPlainErrors(t *testing.T) {
	r := newEngine(ErrorHandler())
	r.POST("/", func(c *gin.Context) {
		_ = c.Error(errors.New("dial tcp: connection refused"))
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "connection refused")
}

func TestSecurityHeaders(t *testing.T) {
	r := newEngine(SecurityHeadersMiddleware())
	r.GET("/v1/health", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/health", nil))

	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))
	assert.Contains(t, w.Header().Get("Content-Security-Policy"), "default-src 'none'")
}
