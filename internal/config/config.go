// Package config loads the site configuration from a .env file, an optional
// config file and PORTFOLIO_* environment variables, in increasing priority.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const envPrefix = "PORTFOLIO"

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Content   ContentConfig   `mapstructure:"content"`
	Contact   ContactConfig   `mapstructure:"contact"`
	Admin     AdminConfig     `mapstructure:"admin"`
	Theme     ThemeConfig     `mapstructure:"theme"`
	Analytics AnalyticsConfig `mapstructure:"analytics"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Mode            string        `mapstructure:"mode"` // gin mode: debug | release | test
	StaticDir       string        `mapstructure:"static_dir"`
	ImagesDir       string        `mapstructure:"images_dir"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	SecureCookies   bool          `mapstructure:"secure_cookies"`
}

type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

type ContentConfig struct {
	Path  string `mapstructure:"path"`
	Watch bool   `mapstructure:"watch"`
}

type ContactConfig struct {
	Provider  string        `mapstructure:"provider"` // relay | smtp
	Endpoint  string        `mapstructure:"endpoint"`
	AccessKey string        `mapstructure:"access_key"`
	FromName  string        `mapstructure:"from_name"`
	Timeout   time.Duration `mapstructure:"timeout"`
	SMTP      SMTPConfig    `mapstructure:"smtp"`
}

type SMTPConfig struct {
	Host string `mapstructure:"host"`
	Port string `mapstructure:"port"`
	User string `mapstructure:"user"`
	Pass string `mapstructure:"pass"`
	To   string `mapstructure:"to"`
}

type AdminConfig struct {
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

type ThemeConfig struct {
	SessionTTL  time.Duration `mapstructure:"session_ttl"`
	MaxSessions int           `mapstructure:"max_sessions"`
}

type AnalyticsConfig struct {
	Enabled   bool          `mapstructure:"enabled"`
	Retention time.Duration `mapstructure:"retention"`
}

type LoggingConfig struct {
	Level string `mapstructure:"level"`
}

// Default returns the configuration used when nothing overrides it.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			Mode:            "release",
			StaticDir:       "./static",
			ImagesDir:       "./images",
			ShutdownTimeout: 10 * time.Second,
		},
		Database: DatabaseConfig{Path: ".data/portfolio.db"},
		Contact: ContactConfig{
			Provider: "relay",
			FromName: "Portfolio Contact Form",
			Timeout:  15 * time.Second,
			SMTP:     SMTPConfig{Host: "smtp.gmail.com", Port: "587"},
		},
		Admin: AdminConfig{Username: "admin"},
		Theme: ThemeConfig{
			SessionTTL:  30 * time.Minute,
			MaxSessions: 4096,
		},
		Analytics: AnalyticsConfig{
			Enabled:   true,
			Retention: 365 * 24 * time.Hour,
		},
		Logging: LoggingConfig{Level: "info"},
	}
}

// legacyEnv maps the variable names the site has always read onto keys.
var legacyEnv = map[string]string{
	"server.port":       "PORT",
	"contact.smtp.host": "SMTP_HOST",
	"contact.smtp.port": "SMTP_PORT",
	"contact.smtp.user": "SMTP_USER",
	"contact.smtp.pass": "SMTP_PASS",
	"contact.smtp.to":   "TO_EMAIL",
	"admin.username":    "ADMIN_USERNAME",
	"admin.password":    "ADMIN_PASSWORD",
}

// Load builds the configuration. configFile may be empty.
func Load(configFile string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v, Default())

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, legacy := range legacyEnv {
		// The prefixed name is listed first so it wins over the legacy one.
		if err := v.BindEnv(key, envPrefix+"_"+strings.ToUpper(strings.ReplaceAll(key, ".", "_")), legacy); err != nil {
			return nil, fmt.Errorf("bind %s: %w", legacy, err)
		}
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", configFile, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper, d Config) {
	v.SetDefault("server.host", d.Server.Host)
	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("server.mode", d.Server.Mode)
	v.SetDefault("server.static_dir", d.Server.StaticDir)
	v.SetDefault("server.images_dir", d.Server.ImagesDir)
	v.SetDefault("server.shutdown_timeout", d.Server.ShutdownTimeout)
	v.SetDefault("server.secure_cookies", d.Server.SecureCookies)
	v.SetDefault("database.path", d.Database.Path)
	v.SetDefault("content.path", d.Content.Path)
	v.SetDefault("content.watch", d.Content.Watch)
	v.SetDefault("contact.provider", d.Contact.Provider)
	v.SetDefault("contact.endpoint", d.Contact.Endpoint)
	v.SetDefault("contact.access_key", d.Contact.AccessKey)
	v.SetDefault("contact.from_name", d.Contact.FromName)
	v.SetDefault("contact.timeout", d.Contact.Timeout)
	v.SetDefault("contact.smtp.host", d.Contact.SMTP.Host)
	v.SetDefault("contact.smtp.port", d.Contact.SMTP.Port)
	v.SetDefault("contact.smtp.user", d.Contact.SMTP.User)
	v.SetDefault("contact.smtp.pass", d.Contact.SMTP.Pass)
	v.SetDefault("contact.smtp.to", d.Contact.SMTP.To)
	v.SetDefault("admin.username", d.Admin.Username)
	v.SetDefault("admin.password", d.Admin.Password)
	v.SetDefault("theme.session_ttl", d.Theme.SessionTTL)
	v.SetDefault("theme.max_sessions", d.Theme.MaxSessions)
	v.SetDefault("analytics.enabled", d.Analytics.Enabled)
	v.SetDefault("analytics.retention", d.Analytics.Retention)
	v.SetDefault("logging.level", d.Logging.Level)
}

// Validate range-checks the values that would otherwise fail late.
func (c Config) Validate() error {
	var problems []string

	if strings.TrimSpace(c.Server.Host) == "" {
		problems = append(problems, "server.host must not be empty")
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		problems = append(problems, "server.port must be between 1 and 65535")
	}
	switch c.Server.Mode {
	case "debug", "release", "test":
	default:
		problems = append(problems, "server.mode must be debug, release or test")
	}
	if c.Server.ShutdownTimeout <= 0 {
		problems = append(problems, "server.shutdown_timeout must be greater than 0")
	}
	if strings.TrimSpace(c.Database.Path) == "" {
		problems = append(problems, "database.path must not be empty")
	}
	if c.Content.Watch && c.Content.Path == "" {
		problems = append(problems, "content.watch requires content.path")
	}
	switch c.Contact.Provider {
	case "relay", "smtp":
	default:
		problems = append(problems, "contact.provider must be relay or smtp")
	}
	if c.Contact.Timeout <= 0 {
		problems = append(problems, "contact.timeout must be greater than 0")
	}
	if c.Theme.SessionTTL <= 0 {
		problems = append(problems, "theme.session_ttl must be greater than 0")
	}
	if c.Theme.MaxSessions < 1 {
		problems = append(problems, "theme.max_sessions must be at least 1")
	}
	if c.Analytics.Retention <= 0 {
		problems = append(problems, "analytics.retention must be greater than 0")
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}

// Address is the listen address.
func (c Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
