package security

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Jahansayem/agencydesk/internal/database"
	"github.com/Jahansayem/agencydesk/internal/monitoring"
)

// Config holds security middleware configuration.
type Config struct {
	AllowedOrigins []string      `json:"allowed_origins"`
	RequestTimeout time.Duration `json:"request_timeout"`
}

// DefaultConfig returns secure defaults.
func DefaultConfig() Config {
	return Config{
		AllowedOrigins: []string{"http://localhost:5173", "https://js.stripe.com", "https://checkout.stripe.com"},
		RequestTimeout: 30 * time.Second,
	}
}

// Middleware bundles the HTTP-level security concerns: headers, content type
// validation, request timeouts, and agent session checks.
type Middleware struct {
	config       Config
	agentService *database.AgentService
	metrics      *monitoring.Metrics
}

// NewMiddleware creates the security middleware.
func NewMiddleware(config Config, agentService *database.AgentService, metrics *monitoring.Metrics) *Middleware {
	return &Middleware{
		config:       config,
		agentService: agentService,
		metrics:      metrics,
	}
}

// SecurityHeaders sets standard hardening response headers.
func (m *Middleware) SecurityHeaders(c *gin.Context) {
	c.Header("X-Content-Type-Options", "nosniff")
	c.Header("X-Frame-Options", "SAMEORIGIN")
	c.Header("X-XSS-Protection", "1; mode=block")

	if c.Request.TLS != nil {
		c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
	}

	// Allow the Stripe checkout flow alongside same-origin resources.
	c.Header("Content-Security-Policy", "default-src 'self'; script-src 'self' 'unsafe-inline' https://js.stripe.com https://checkout.stripe.com; style-src 'self' 'unsafe-inline'; connect-src 'self' https://api.stripe.com; frame-src https://checkout.stripe.com https://js.stripe.com")
	c.Header("Referrer-Policy", "strict-origin-when-cross-origin")
	c.Header("Permissions-Policy", "camera=(), microphone=()")

	c.Next()
}

// ValidateContentType rejects request bodies in unexpected formats.
func (m *Middleware) ValidateContentType(c *gin.Context) {
	contentType := c.GetHeader("Content-Type")

	allowedTypes := []string{
		"application/json",
		"application/x-www-form-urlencoded",
		"multipart/form-data",
		"text/csv",
	}

	if contentType != "" {
		found := false
		for _, allowed := range allowedTypes {
			if strings.Contains(strings.ToLower(contentType), allowed) {
				found = true
				break
			}
		}

		if !found {
			c.JSON(http.StatusUnsupportedMediaType, gin.H{
				"error": "unsupported content type",
			})
			c.Abort()
			return
		}
	}

	c.Next()
}

// RequestTimeout enforces a per-request deadline.
func (m *Middleware) RequestTimeout(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), m.config.RequestTimeout)
	defer cancel()

	c.Request = c.Request.WithContext(ctx)
	c.Header("X-Timeout", strconv.Itoa(int(m.config.RequestTimeout.Seconds())))

	c.Next()
}

// RequireAgent validates the Bearer session token and puts agency_id and
// agent_id on the context. Requests without a valid token get 401.
func (m *Middleware) RequireAgent(c *gin.Context) {
	header := c.GetHeader("Authorization")
	if header == "" || !strings.HasPrefix(header, "Bearer ") {
		m.metrics.IncrementAuthFailure()
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
		c.Abort()
		return
	}

	token := strings.TrimPrefix(header, "Bearer ")
	agencyID, agentID, err := m.agentService.ValidateSessionToken(token)
	if err != nil {
		m.metrics.IncrementAuthFailure()
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
		c.Abort()
		return
	}

	c.Set("agency_id", agencyID)
	c.Set("agent_id", agentID)
	c.Next()
}

// AgencyID returns the authenticated agency from the request context.
func AgencyID(c *gin.Context) string {
	if v, ok := c.Get("agency_id"); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// AgentID returns the authenticated agent from the request context.
func AgentID(c *gin.Context) string {
	if v, ok := c.Get("agent_id"); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}
