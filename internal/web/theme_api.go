package web

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Zachkp/portfolio/internal/theme"
)

type modeRequest struct {
	Mode string `json:"mode" binding:"required"`
}

const eventsKeepAlive = 25 * time.Second

// respondTheme answers with the preference and an HX-Trigger so htmx pages
// can swap data-theme without another round trip.
func respondTheme(c *gin.Context, pref theme.Preference) {
	if trigger, err := json.Marshal(map[string]any{"themeChanged": pref}); err == nil {
		c.Header("HX-Trigger", string(trigger))
	}
	c.JSON(http.StatusOK, pref)
}

func bindMode(c *gin.Context) (theme.Mode, bool) {
	var req modeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "body must be {\"mode\": \"light\"|\"dark\"}"})
		return "", false
	}
	mode, err := theme.ParseMode(req.Mode)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return "", false
	}
	return mode, true
}

func (s *Server) getTheme(c *gin.Context) {
	c.JSON(http.StatusOK, sessionFrom(c).store.Current())
}

func (s *Server) setTheme(c *gin.Context) {
	mode, ok := bindMode(c)
	if !ok {
		return
	}
	pref, err := sessionFrom(c).store.SetExplicit(mode)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	respondTheme(c, pref)
}

func (s *Server) toggleTheme(c *gin.Context) {
	respondTheme(c, sessionFrom(c).store.Toggle())
}

func (s *Server) resetTheme(c *gin.Context) {
	respondTheme(c, sessionFrom(c).store.Reset())
}

// reportSystemTheme receives the page's prefers-color-scheme value, on load
// and whenever the media query fires.
func (s *Server) reportSystemTheme(c *gin.Context) {
	mode, ok := bindMode(c)
	if !ok {
		return
	}
	sess := sessionFrom(c)
	sess.signal.Set(mode)
	respondTheme(c, sess.store.Current())
}

// themeEvents streams every preference change as a server-sent "theme"
// event until the client goes away. The stream also ends when the session's
// store is closed (eviction) or the server shuts down; EventSource then
// reconnects and attaches to a fresh session.
func (s *Server) themeEvents(c *gin.Context) {
	sess := sessionFrom(c)

	updates := make(chan theme.Preference, 8)
	stop := sess.store.OnChange(func(p theme.Preference) {
		select {
		case updates <- p:
		default:
		}
	})
	defer stop()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")

	c.SSEvent("theme", sess.store.Current())
	c.Writer.Flush()

	keepAlive := time.NewTicker(eventsKeepAlive)
	defer keepAlive.Stop()

	ctx := c.Request.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-sess.store.Done():
			return
		case <-s.streams.Done():
			return
		case pref := <-updates:
			c.SSEvent("theme", pref)
			c.Writer.Flush()
		case <-keepAlive.C:
			c.SSEvent("ping", "")
			c.Writer.Flush()
		}
	}
}
