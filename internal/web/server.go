// Package web serves the portfolio page, the theme API, the contact form and
// the admin dashboard.
package web

import (
	"context"
	"crypto/rand"
	"embed"
	"encoding/hex"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"

	"github.com/Zachkp/portfolio/internal/config"
	"github.com/Zachkp/portfolio/internal/contact"
	"github.com/Zachkp/portfolio/internal/content"
	"github.com/Zachkp/portfolio/internal/storage"
	"github.com/Zachkp/portfolio/internal/theme"
)

//go:embed templates/*.html
var templatesFS embed.FS

//go:embed static
var staticFS embed.FS

// Deps are the collaborators a Server is built from. DB and Sender may be
// nil: without a DB theme choices live in memory and nothing is tracked,
// without a Sender every contact submission fails as not configured.
type Deps struct {
	Config  config.Config
	Logger  *log.Logger
	DB      *storage.DB
	Content *content.Library
	Sender  contact.Sender
}

type Server struct {
	cfg        config.Config
	logger     *log.Logger
	db         *storage.DB
	content    *content.Library
	sender     contact.Sender
	sessions   *Sessions
	engine     *gin.Engine
	adminToken string
	salt       string

	// streams is cancelled when the HTTP server starts shutting down so
	// long-lived event streams let go of their connections.
	streams     context.Context
	stopStreams context.CancelFunc
}

func New(d Deps) (*Server, error) {
	if d.Logger == nil {
		d.Logger = log.Default()
	}
	if d.Content == nil {
		d.Content = content.NewLibrary(content.Default())
	}

	adminToken, err := randomToken()
	if err != nil {
		return nil, err
	}
	salt, err := randomToken()
	if err != nil {
		return nil, err
	}

	s := &Server{
		cfg:        d.Config,
		logger:     d.Logger,
		db:         d.DB,
		content:    d.Content,
		sender:     d.Sender,
		adminToken: adminToken,
		salt:       salt,
	}
	s.streams, s.stopStreams = context.WithCancel(context.Background())

	var storageFor func(string) theme.Storage
	if s.db != nil {
		storageFor = func(visitorID string) theme.Storage { return s.db.VisitorStorage(visitorID) }
	}
	s.sessions = NewSessions(d.Config.Theme.MaxSessions, d.Config.Theme.SessionTTL, storageFor, d.Logger)

	engine, err := s.buildEngine()
	if err != nil {
		return nil, err
	}
	s.engine = engine
	return s, nil
}

func randomToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return hex.EncodeToString(b), nil
}

var templateFuncs = template.FuncMap{
	"join":  strings.Join,
	"ms":    func(d time.Duration) int64 { return d.Milliseconds() },
	"year":  func() int { return time.Now().Year() },
	"lower": strings.ToLower,
	"days":  func(d time.Duration) int { return int(d.Hours() / 24) },
	"dict":  dict,
}

// dict builds a map from alternating keys and values so partials can take
// more than one argument.
func dict(pairs ...any) (map[string]any, error) {
	if len(pairs)%2 != 0 {
		return nil, errors.New("dict: odd number of arguments")
	}
	m := make(map[string]any, len(pairs)/2)
	for i := 0; i < len(pairs); i += 2 {
		key, ok := pairs[i].(string)
		if !ok {
			return nil, fmt.Errorf("dict: key %v is not a string", pairs[i])
		}
		m[key] = pairs[i+1]
	}
	return m, nil
}

func (s *Server) buildEngine() (*gin.Engine, error) {
	gin.SetMode(s.cfg.Server.Mode)

	tmpl, err := template.New("").Funcs(templateFuncs).ParseFS(templatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	assets, err := fs.Sub(staticFS, "static")
	if err != nil {
		return nil, fmt.Errorf("static assets: %w", err)
	}

	r := gin.New()
	if err := r.SetTrustedProxies(nil); err != nil {
		return nil, err
	}
	r.SetHTMLTemplate(tmpl)
	r.Use(gin.Recovery(), requestLogger(s.logger))

	r.StaticFS("/assets", http.FS(assets))
	if s.cfg.Server.ImagesDir != "" {
		r.Static("/images", s.cfg.Server.ImagesDir)
	}
	if s.cfg.Server.StaticDir != "" {
		r.Static("/static", s.cfg.Server.StaticDir)
	}
	r.GET("/healthz", s.healthz)

	site := r.Group("/")
	site.Use(visitorIdentity(s.cfg.Server.SecureCookies), themeSessionMiddleware(s.sessions))
	if s.db != nil && s.cfg.Analytics.Enabled {
		site.Use(visitorTracking(s.db, s.salt, s.logger))
	}

	site.GET("/", s.index)
	site.GET("/contact-form", s.contactForm)
	site.GET("/work-content", s.timelineFragment("work", "Work Experience"))
	site.GET("/education-content", s.timelineFragment("education", "Education"))
	site.POST("/contact", s.submitContact)
	site.GET("/privacy", s.privacy)

	api := site.Group("/api/theme")
	api.GET("", s.getTheme)
	api.PUT("", s.setTheme)
	api.DELETE("", s.resetTheme)
	api.POST("/toggle", s.toggleTheme)
	api.POST("/system", s.reportSystemTheme)
	api.GET("/events", s.themeEvents)

	s.setupAdminRoutes(r)
	return r, nil
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Sessions exposes the live theme sessions.
func (s *Server) Sessions() *Sessions {
	return s.sessions
}

// Run listens on the configured address and serves until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Address())
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.cfg.Address(), err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is cancelled, then shuts down
// gracefully. Open theme event streams are ended as shutdown begins.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	srv.RegisterOnShutdown(s.stopStreams)

	if s.db != nil && s.cfg.Analytics.Enabled {
		go s.retentionLoop(ctx)
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", ln.Addr().String(), "mode", s.cfg.Server.Mode)
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		s.stopStreams()
		s.sessions.Close()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.Server.ShutdownTimeout)
	defer cancel()
	err := srv.Shutdown(shutdownCtx)
	s.sessions.Close()
	s.logger.Info("server stopped")
	return err
}

// retentionLoop deletes visits older than the configured retention, once at
// start and then daily.
func (s *Server) retentionLoop(ctx context.Context) {
	cleanup := func() {
		n, err := s.db.CleanupVisits(s.cfg.Analytics.Retention)
		if err != nil {
			s.logger.Warn("visit cleanup failed", "error", err)
			return
		}
		if n > 0 {
			s.logger.Info("privacy cleanup removed old visits", "rows", n)
		}
	}

	cleanup()
	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cleanup()
		}
	}
}
