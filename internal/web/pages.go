package web

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Zachkp/portfolio/internal/contact"
	"github.com/Zachkp/portfolio/internal/content"
)

func (s *Server) index(c *gin.Context) {
	site := s.content.Site()
	c.HTML(http.StatusOK, "index.html", gin.H{
		"site":     site,
		"featured": site.Featured(),
		"work":     site.TimelineOf("work"),
		"study":    site.TimelineOf("education"),
		"sections": content.Sections,
		"theme":    sessionFrom(c).store.Current(),
	})
}

// contactForm returns just the form markup for htmx swaps.
func (s *Server) contactForm(c *gin.Context) {
	c.HTML(http.StatusOK, "contact.html", gin.H{
		"title": "Contact Me",
	})
}

// timelineFragment renders one half of the timeline toggle.
func (s *Server) timelineFragment(kind, heading string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.HTML(http.StatusOK, "timeline.html", gin.H{
			"heading": heading,
			"entries": s.content.Site().TimelineOf(kind),
		})
	}
}

// submitContact makes one delivery attempt and answers with a status
// fragment that swaps itself back to the form after contact.ResetDelay.
// Failures are shown to the visitor, never propagated as HTTP errors.
func (s *Server) submitContact(c *gin.Context) {
	msg := contact.Message{
		Name:    c.PostForm("fullName"),
		Email:   c.PostForm("email"),
		Message: c.PostForm("message"),
		Subject: c.PostForm("subject"),
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), s.cfg.Contact.Timeout)
	defer cancel()
	result := contact.Submit(ctx, s.sender, msg)

	if result.Err != nil {
		s.logger.Warn("contact submission failed", "status", result.Status, "error", result.Err)
	} else {
		s.logger.Info("contact submission delivered")
	}
	if s.db != nil {
		n := msg.Normalize()
		if err := s.db.RecordMessage(n.Name, n.Email, n.SubjectOrDefault(), string(result.Status)); err != nil {
			s.logger.Warn("recording contact submission failed", "error", err)
		}
	}

	c.HTML(http.StatusOK, "contact-result.html", gin.H{
		"result": result,
	})
}

func (s *Server) privacy(c *gin.Context) {
	c.HTML(http.StatusOK, "privacy.html", gin.H{
		"title":     "Privacy Policy",
		"retention": s.cfg.Analytics.Retention,
		"theme":     sessionFrom(c).store.Current(),
	})
}

func (s *Server) healthz(c *gin.Context) {
	if s.db != nil {
		if err := s.db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "error": err.Error()})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "theme_sessions": s.sessions.Len()})
}
