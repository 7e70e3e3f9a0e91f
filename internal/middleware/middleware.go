// Package middleware holds the gateway's shared HTTP middleware chain:
// request id, structured logging, CORS, authentication, device gating, and
// rate limiting — centralised once and applied per route, rather than
// duplicated inline per handler.
package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/tesseract-hub/dashboard-gateway/internal/apierr"
	"github.com/tesseract-hub/dashboard-gateway/internal/device"
	"github.com/tesseract-hub/dashboard-gateway/internal/identity"
	"github.com/tesseract-hub/dashboard-gateway/internal/ratelimit"
	"github.com/tesseract-hub/dashboard-gateway/internal/security"
)

// Context keys shared between middleware and handlers.
const (
	RequestIDKey  = "request_id"
	PrincipalKey  = "principal"
	DeviceIDHeader = "X-Client-Device-Id"
)

// RequestID generates or extracts a correlation id for request tracing.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}
		c.Set(RequestIDKey, requestID)
		c.Header("X-Request-ID", requestID)
		c.Next()
	}
}

// StructuredLogger logs every request with structured fields via logrus.
func StructuredLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		duration := time.Since(start)

		requestID, _ := c.Get(RequestIDKey)
		logrus.WithFields(logrus.Fields{
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"status":     c.Writer.Status(),
			"duration":   duration.String(),
			"ip":         security.MaskIP(ClientIP(c)),
			"user_agent": c.Request.UserAgent(),
			"request_id": requestID,
		}).Info("request")
	}
}

// CORS applies the CORS preamble the engine requires: a configurable
// allowed origin, the fixed header/method allowlist, and a 204 short-circuit
// for preflight OPTIONS requests.
func CORS(allowedOrigin string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", allowedOrigin)
		c.Header("Access-Control-Allow-Headers", "authorization, content-type, apikey, x-client-info, x-client-version")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// ClientIP derives the caller's IP following spec.md §4.5's header order:
// X-Forwarded-For's first element, CF-Connecting-IP, X-Real-IP,
// X-Client-IP, else "unknown".
func ClientIP(c *gin.Context) string {
	if xff := c.GetHeader("X-Forwarded-For"); xff != "" {
		if first := strings.TrimSpace(strings.Split(xff, ",")[0]); first != "" {
			return first
		}
	}
	if cf := c.GetHeader("CF-Connecting-IP"); cf != "" {
		return cf
	}
	if xr := c.GetHeader("X-Real-IP"); xr != "" {
		return xr
	}
	if xc := c.GetHeader("X-Client-IP"); xc != "" {
		return xc
	}
	return "unknown"
}

// bearerToken extracts the raw token from an "Authorization: Bearer <token>"
// header, or "" if absent/malformed.
func bearerToken(c *gin.Context) string {
	auth := c.GetHeader("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(auth, prefix) {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(auth, prefix))
}

// rateLimitKey combines the client IP with the trailing 16 characters of
// the bearer token (when present). A different token from the same IP
// yields a different key, and so a separate bucket.
func rateLimitKey(c *gin.Context) string {
	key := ClientIP(c)
	token := bearerToken(c)
	if len(token) > 16 {
		token = token[len(token)-16:]
	}
	if token != "" {
		key = key + ":" + token
	}
	return key
}

// rateLimitRecorder narrows the metrics dependency to the one thing
// RateLimit needs, so callers that don't care about metrics can pass nil.
type rateLimitRecorder interface {
	RecordRateLimitHit(endpoint string)
}

// RateLimit enforces a token-bucket quota per (endpoint, ip+token) key,
// responding 429 with retryAfterSeconds and a matching Retry-After header
// when exceeded. recorder may be nil.
func RateLimit(limiter *ratelimit.Limiter, recorder rateLimitRecorder, endpoint string, max int, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := rateLimitKey(c)
		allowed, retryAfter := limiter.Allow(endpoint, key, max, window)
		if !allowed {
			if recorder != nil {
				recorder.RecordRateLimitHit(endpoint)
			}
			seconds := ratelimit.RetryAfterSeconds(retryAfter)
			c.Header("Retry-After", strconv.Itoa(seconds))
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error":             "limite de requisições excedido",
				"retryAfterSeconds": seconds,
			})
			c.Abort()
			return
		}
		c.Next()
	}
}

// Auth resolves the bearer token into a Principal via resolver and stores it
// in the gin context, failing 401 otherwise.
func Auth(resolver *identity.Resolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, err := resolver.ResolvePrincipal(c.Request.Context(), bearerToken(c))
		if err != nil {
			writeAPIError(c, err)
			return
		}
		c.Set(PrincipalKey, principal)
		c.Next()
	}
}

// RequireRole fails 403 unless the principal resolved by Auth has role.
func RequireRole(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, ok := GetPrincipal(c)
		if !ok {
			writeAPIError(c, apierr.Unauthenticated("autenticação ausente"))
			return
		}
		if !principal.HasRole(role) {
			writeAPIError(c, apierr.Forbidden("usuário não possui permissão para esta operação"))
			return
		}
		c.Next()
	}
}

// RequireDeviceApproved fails 403 unless the caller's device (identified by
// the X-Client-Device-Id header) is approved.
func RequireDeviceApproved(store *device.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, ok := GetPrincipal(c)
		if !ok {
			writeAPIError(c, apierr.Unauthenticated("autenticação ausente"))
			return
		}
		deviceID := c.GetHeader(DeviceIDHeader)
		if err := store.RequireApproved(c.Request.Context(), principal.ID, deviceID); err != nil {
			writeAPIError(c, err)
			return
		}
		c.Next()
	}
}

// GetPrincipal reads the Principal set by Auth.
func GetPrincipal(c *gin.Context) (identity.Principal, bool) {
	v, ok := c.Get(PrincipalKey)
	if !ok {
		return identity.Principal{}, false
	}
	principal, ok := v.(identity.Principal)
	return principal, ok
}

// GetRequestID reads the request id set by RequestID.
func GetRequestID(c *gin.Context) string {
	v, _ := c.Get(RequestIDKey)
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

// writeAPIError maps a typed apierr.Error (or an unexpected error) to the
// JSON error body and status code, aborting the chain.
func writeAPIError(c *gin.Context, err error) {
	if apiErr, ok := apierr.As(err); ok {
		if apiErr.Cause != nil {
			logrus.WithError(apiErr.Cause).WithField("request_id", GetRequestID(c)).Warn(apiErr.Message)
		}
		c.JSON(apiErr.StatusCode(), gin.H{"error": apiErr.Message})
		c.Abort()
		return
	}
	logrus.WithError(err).WithField("request_id", GetRequestID(c)).Error("erro não tratado")
	c.JSON(http.StatusInternalServerError, gin.H{"error": "erro interno"})
	c.Abort()
}
