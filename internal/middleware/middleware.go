// Package middleware generalizes the security-header, CORS, auth, and
// error-mapping concerns that auth-service and content-service each
// duplicated per-handler into gin.HandlerFunc chains installed once at
// startup, per spec.md §9's "implicit globals" re-architecture note.
package middleware

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/epicrunze/evocable/internal/apperr"
	"github.com/epicrunze/evocable/internal/authn"
	"github.com/epicrunze/evocable/internal/ratelimit"
)

// SecurityHeaders sets the fixed header set §4.1 requires on every
// response.
func SecurityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("X-XSS-Protection", "1; mode=block")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Header("Permissions-Policy", "geolocation=(), microphone=(), camera=()")
		c.Header("Content-Security-Policy", "default-src 'self'")
		c.Next()
	}
}

// CORS configures allowed origins from an allowlist; credentials are
// permitted unless the list contains "*".
func CORS(origins []string) gin.HandlerFunc {
	allowAll := false
	set := make(map[string]bool, len(origins))
	for _, o := range origins {
		if o == "*" {
			allowAll = true
		}
		set[o] = true
	}
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		switch {
		case allowAll:
			c.Header("Access-Control-Allow-Origin", "*")
		case set[origin]:
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Access-Control-Allow-Credentials", "true")
		}
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Authorization, Content-Type")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// ErrorMapper recovers panics and converts any *apperr.Error left on the
// context into the {"detail": "..."} body the HTTP surface promises.
func ErrorMapper() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"detail": "an internal error occurred"})
				c.Abort()
			}
		}()
		c.Next()
		if len(c.Errors) == 0 {
			return
		}
		err := c.Errors.Last().Err
		var ae *apperr.Error
		if e, ok := err.(*apperr.Error); ok {
			ae = e
		} else {
			ae = apperr.InternalErr(err)
		}
		c.JSON(ae.Status(), gin.H{"detail": ae.Message})
	}
}

// Fail is the handler-side helper for aborting a request with a typed
// error, used in place of the teacher's inline c.JSON(status, gin.H{...}).
func Fail(c *gin.Context, err *apperr.Error) {
	c.Error(err)
	c.Abort()
}

const contextUserIDKey = "evocable_user_id"
const contextUsernameKey = "evocable_username"

// RequireSession authenticates via, in order: Authorization bearer header,
// `token` query parameter — matching content-service's authMiddleware,
// which accepted either. Signed-URL authentication is handled separately
// by the chunk handler itself since it needs the endpoint path and expiry.
func RequireSession(issuer *authn.Issuer) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractToken(c)
		if token == "" {
			Fail(c, apperr.New(apperr.Unauthenticated, "missing credentials"))
			return
		}
		claims, aerr := issuer.Parse(token, authn.TokenSession)
		if aerr != nil {
			Fail(c, aerr)
			return
		}
		c.Set(contextUserIDKey, claims.Subject)
		c.Set(contextUsernameKey, claims.Username)
		c.Next()
	}
}

func extractToken(c *gin.Context) string {
	auth := c.GetHeader("Authorization")
	if strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	if q := c.Query("token"); q != "" {
		return q
	}
	return ""
}

// UserID returns the authenticated subject's numeric user id.
func UserID(c *gin.Context) uint {
	v, _ := c.Get(contextUserIDKey)
	s, _ := v.(string)
	n, _ := strconv.ParseUint(s, 10, 64)
	return uint(n)
}

// RateLimit enforces the named policy keyed by client IP.
func RateLimit(l *ratelimit.Limiter, policy string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !l.Allow(policy, c.ClientIP()) {
			Fail(c, apperr.New(apperr.RateLimited, "rate limit exceeded"))
			return
		}
		c.Next()
	}
}
