// Package api serves a read-only view of the persisted leadscout state:
// seen posts, seen users and the latest active user snapshot.
package api

import (
	"crypto/subtle"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"leadscout/pkg/logger"
)

// NewServer creates the gin engine with all routes configured
func NewServer(handler *Handler, accessKey string, log logger.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	if log == nil {
		log = logger.NewNopLogger()
	}
	log = logger.ForComponent(log, "api")

	r := gin.New()
	r.Use(requestLogger(log))
	r.Use(gin.Recovery())

	setupRoutes(r, handler, accessKey)
	return r
}

func setupRoutes(r *gin.Engine, handler *Handler, accessKey string) {
	r.GET("/healthz", handler.Health)

	protected := r.Group("/")
	if accessKey != "" {
		protected.Use(authMiddleware(accessKey))
	}
	protected.GET("/leads", handler.Leads)
	protected.GET("/users", handler.Users)
	protected.GET("/active-users", handler.ActiveUsers)

	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"service": "leadscout",
			"endpoints": map[string]string{
				"health":       "/healthz",
				"leads":        "/leads?limit=<n>&expand=true",
				"users":        "/users?limit=<n>",
				"active_users": "/active-users?limit=<n>",
			},
			"auth_required": accessKey != "",
		})
	})
}

// requestLogger logs every request through the structured logger
func requestLogger(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := map[string]interface{}{
			"method":   c.Request.Method,
			"path":     c.Request.URL.Path,
			"status":   c.Writer.Status(),
			"latency":  time.Since(start).String(),
			"clientIP": c.ClientIP(),
		}
		if len(c.Errors) > 0 {
			fields["error"] = c.Errors.String()
			log.WarnWithFields("HTTP request", fields)
			return
		}
		log.DebugWithFields("HTTP request", fields)
	}
}

// authMiddleware accepts the key in X-API-Key or as a bearer token
func authMiddleware(accessKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		providedKey := c.GetHeader("X-API-Key")
		if providedKey == "" {
			if auth := c.GetHeader("Authorization"); strings.HasPrefix(auth, "Bearer ") {
				providedKey = strings.TrimPrefix(auth, "Bearer ")
			}
		}

		if providedKey == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "API key required"})
			return
		}
		if subtle.ConstantTimeCompare([]byte(providedKey), []byte(accessKey)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid API key"})
			return
		}
		c.Next()
	}
}
