package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"brand-ranking/internal/handler"
	"brand-ranking/internal/model"
	"brand-ranking/internal/pkg/session"
)

// sessionToken returns the token from the session cookie, or from an
// "Authorization: Bearer" header.
func sessionToken(c *gin.Context, cookieName string) string {
	if token, err := c.Cookie(cookieName); err == nil && token != "" {
		return token
	}
	header := c.GetHeader("Authorization")
	if token, ok := strings.CutPrefix(header, "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	return ""
}

// AuthMiddleware rejects requests without a valid session token and stores
// the session claims for the handlers.
func AuthMiddleware(issuer *session.Issuer, cookieName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := sessionToken(c, cookieName)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":  "authentication required",
				"reason": "unauthorized",
			})
			return
		}

		claims, err := issuer.Parse(token)
		if err != nil {
			log.Debug().Err(err).Str("path", c.Request.URL.Path).Msg("Rejected session token")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":  "invalid session",
				"reason": "unauthorized",
			})
			return
		}

		handler.SetClaims(c, claims)
		c.Next()
	}
}

// AdminMiddleware allows only sessions holding the admin role. It must run
// after AuthMiddleware.
func AdminMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := handler.Claims(c)
		if claims == nil || claims.Role != model.RoleAdmin {
			ev := log.Warn().Str("path", c.Request.URL.Path)
			if claims != nil {
				ev = ev.Str("user_id", claims.UserID.String())
			}
			ev.Msg("Non-admin attempted admin request")

			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error":  "admin role required",
				"reason": "forbidden",
			})
			return
		}
		c.Next()
	}
}

// LoggingMiddleware logs every request once it has been served.
func LoggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		ev := log.Debug()
		switch {
		case status >= http.StatusInternalServerError:
			ev = log.Error()
		case status >= http.StatusBadRequest:
			ev = log.Info()
		}

		ev.
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", status).
			Dur("latency", time.Since(start)).
			Str("client_ip", c.ClientIP())
		if claims := handler.Claims(c); claims != nil {
			ev = ev.Str("user_id", claims.UserID.String())
		}
		ev.Msg("Request served")
	}
}

// RecoveryMiddleware turns a handler panic into a 500 response.
func RecoveryMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				log.Error().
					Interface("panic", r).
					Str("path", c.Request.URL.Path).
					Msg("Recovered from panic in handler")
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"error":  "internal error",
					"reason": "internal",
				})
			}
		}()
		c.Next()
	}
}
