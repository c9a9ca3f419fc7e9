package web

import (
	"crypto/subtle"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/Zachkp/portfolio/internal/storage"
	"github.com/Zachkp/portfolio/internal/theme"
)

const (
	visitorCookie       = "visitor_id"
	adminCookie         = "admin_token"
	visitorKey          = "visitor_id"
	sessionKey          = "theme_session"
	colorSchemeHint     = "Sec-CH-Prefers-Color-Scheme"
	visitorCookieMaxAge = 365 * 24 * 60 * 60
)

func requestLogger(logger *log.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		started := time.Now()
		c.Next()
		logger.Info("http request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration_ms", time.Since(started).Milliseconds(),
		)
	}
}

// visitorIdentity assigns every browser a random visitor id cookie. The id
// scopes the persisted theme keys, the way browser storage is per origin.
func visitorIdentity(secure bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := c.Cookie(visitorCookie)
		if err != nil || uuid.Validate(id) != nil {
			id = uuid.NewString()
			c.SetSameSite(http.SameSiteLaxMode)
			c.SetCookie(visitorCookie, id, visitorCookieMaxAge, "/", "", secure, true)
		}
		c.Set(visitorKey, id)
		c.Next()
	}
}

// themeSessionMiddleware attaches the visitor's live theme session and feeds
// the color-scheme client hint into its system signal.
func themeSessionMiddleware(sessions *Sessions) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Accept-CH", colorSchemeHint)
		c.Header("Vary", colorSchemeHint)

		hint, ok := theme.ParseHint(c.GetHeader(colorSchemeHint))
		c.Set(sessionKey, sessions.Acquire(c.GetString(visitorKey), hint, ok))
		c.Next()
	}
}

func sessionFrom(c *gin.Context) *themeSession {
	return c.MustGet(sessionKey).(*themeSession)
}

// visitorTracking records page views with hashed addresses only. Static
// assets, admin pages and Do Not Track requests are skipped.
func visitorTracking(db *storage.DB, salt string, logger *log.Logger) gin.HandlerFunc {
	skipped := []string{"/static/", "/images/", "/assets/", "/admin/", "/api/", "/favicon", "/privacy", "/healthz"}
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		for _, prefix := range skipped {
			if strings.HasPrefix(path, prefix) {
				c.Next()
				return
			}
		}
		if c.GetHeader("DNT") == "1" {
			c.Next()
			return
		}

		if err := db.RecordVisit(storage.HashIP(c.ClientIP(), salt), c.GetHeader("User-Agent"), path); err != nil {
			logger.Warn("recording visit failed", "error", err)
		}
		c.Next()
	}
}

func adminAuth(token string) gin.HandlerFunc {
	return func(c *gin.Context) {
		got, err := c.Cookie(adminCookie)
		if err != nil || subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
			c.Redirect(http.StatusFound, "/admin/login")
			c.Abort()
			return
		}
		c.Next()
	}
}
