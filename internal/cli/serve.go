package cli

import (
	"net/http"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/Zachkp/portfolio/internal/config"
	"github.com/Zachkp/portfolio/internal/contact"
	"github.com/Zachkp/portfolio/internal/content"
	"github.com/Zachkp/portfolio/internal/storage"
	"github.com/Zachkp/portfolio/internal/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the web server",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	db, err := storage.Open(cfg.Database.Path)
	if err != nil {
		return err
	}
	defer db.Close()

	site, err := loadSite(cfg.Content)
	if err != nil {
		return err
	}
	lib := content.NewLibrary(site)

	srv, err := web.New(web.Deps{
		Config:  *cfg,
		Logger:  logger,
		DB:      db,
		Content: lib,
		Sender:  newSender(cfg.Contact),
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return srv.Run(ctx) })
	if cfg.Content.Watch {
		g.Go(func() error { return content.Watch(ctx, cfg.Content.Path, lib, logger) })
	}
	return g.Wait()
}

func loadSite(c config.ContentConfig) (content.Site, error) {
	if c.Path == "" {
		return content.Default(), nil
	}
	site, err := content.Load(c.Path)
	if err != nil {
		return content.Site{}, err
	}
	logger.Info("content loaded", "path", c.Path, "projects", len(site.Projects))
	return site, nil
}

// newSender picks the delivery backend. Missing credentials are only
// warned about: the site still serves and submissions report failure.
func newSender(c config.ContactConfig) contact.Sender {
	switch c.Provider {
	case "smtp":
		if c.SMTP.User == "" || c.SMTP.Pass == "" || c.SMTP.To == "" {
			logger.Warn("SMTP credentials not configured, contact form will fail")
		}
		return contact.NewSMTPSender(c.SMTP.Host, c.SMTP.Port, c.SMTP.User, c.SMTP.Pass, c.SMTP.To)
	default:
		if c.AccessKey == "" {
			logger.Warn("relay access key not configured, contact form will fail")
		}
		return contact.NewRelayClient(c.Endpoint, c.AccessKey, c.FromName, &http.Client{Timeout: c.Timeout})
	}
}

