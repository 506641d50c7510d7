package travelblog

import (
	"io/fs"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// SiteConfig holds all configuration for a travelblog site.
type SiteConfig struct {
	Name        string // Site name (default "Travel Blog")
	URL         string // Canonical URL (default "http://localhost:5000")
	Description string // Site description for RSS and meta tags

	Addr           string // Listen address (default ":5000")
	DatabaseDriver string // "sqlite" (default) or "postgres"
	DatabaseDSN    string // SQLite path or Postgres DSN (default "data/TravelBlog.db")

	StaticDir    string // Directory served under /static (default "static")
	UploadSubdir string // Upload directory below StaticDir (default "img/uploads")

	SessionSecret string // Required: session encryption secret
	CookieSecure  bool   // Set true for HTTPS

	RedisURL     string        // Optional second cache tier for the post list
	PostCacheTTL time.Duration // Post cache TTL (default 5min)

	MaxUploadBytes int64 // Upload size limit (default 10MB)
	MaxImageWidth  int   // Wider uploads are scaled down (default 1600)
	JPEGQuality    int   // Re-encode quality (default 30)

	LoginAttempts int           // Failed logins allowed per window (default 5)
	LoginWindow   time.Duration // Login limiter window (default 1min)

	Debug bool // Verbose SQL logging
}

func (c *SiteConfig) setDefaults() {
	if c.Name == "" {
		c.Name = "Travel Blog"
	}
	if c.URL == "" {
		c.URL = "http://localhost:5000"
	}
	if c.Addr == "" {
		c.Addr = ":5000"
	}
	if c.DatabaseDriver == "" {
		c.DatabaseDriver = "sqlite"
	}
	if c.DatabaseDSN == "" {
		c.DatabaseDSN = "data/TravelBlog.db"
	}
	if c.StaticDir == "" {
		c.StaticDir = "static"
	}
	if c.UploadSubdir == "" {
		c.UploadSubdir = "img/uploads"
	}
	if c.PostCacheTTL == 0 {
		c.PostCacheTTL = 5 * time.Minute
	}
	if c.MaxUploadBytes == 0 {
		c.MaxUploadBytes = 10 << 20
	}
	if c.MaxImageWidth == 0 {
		c.MaxImageWidth = 1600
	}
	if c.JPEGQuality == 0 {
		c.JPEGQuality = 30
	}
	if c.LoginAttempts == 0 {
		c.LoginAttempts = 5
	}
	if c.LoginWindow == 0 {
		c.LoginWindow = time.Minute
	}
}

// Option configures additional App behavior.
type Option func(*App)

// WithCustomRoutes registers additional routes on the Echo instance.
// The callback receives the App after the built-in routes are registered.
func WithCustomRoutes(fn func(*App)) Option {
	return func(a *App) {
		a.customRoutes = append(a.customRoutes, fn)
	}
}

// WithLogger replaces the default logrus logger.
func WithLogger(log *logrus.Logger) Option {
	return func(a *App) {
		a.Log = log
	}
}

// WithRedis uses an existing redis client as the second post cache tier
// instead of dialing SiteConfig.RedisURL.
func WithRedis(rdb *redis.Client) Option {
	return func(a *App) {
		a.redis = rdb
	}
}

// LoadConfig builds a SiteConfig from, in rising precedence: built-in
// defaults, an optional config.yml found in the working directory or
// extraPaths, and environment variables. A .env file in the working
// directory is loaded into the environment first; variables already set
// win over it.
func LoadConfig(extraPaths ...string) (SiteConfig, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return SiteConfig{}, errors.Wrap(err, "load .env")
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yml")
	v.AddConfigPath(".")
	for _, p := range extraPaths {
		v.AddConfigPath(p)
	}
	v.AutomaticEnv()

	v.SetDefault("SITE_NAME", "Travel Blog")
	v.SetDefault("SITE_URL", "http://localhost:5000")
	v.SetDefault("SITE_DESCRIPTION", "Stories and pictures from the road.")
	v.SetDefault("ADDR", ":5000")
	v.SetDefault("DATABASE_DRIVER", "sqlite")
	v.SetDefault("DATABASE_URL", "data/TravelBlog.db")
	v.SetDefault("STATIC_DIR", "static")
	v.SetDefault("UPLOAD_SUBDIR", "img/uploads")
	v.SetDefault("COOKIE_SECURE", false)
	v.SetDefault("POST_CACHE_TTL", "5m")
	v.SetDefault("MAX_UPLOAD_BYTES", 10<<20)
	v.SetDefault("MAX_IMAGE_WIDTH", 1600)
	v.SetDefault("JPEG_QUALITY", 30)
	v.SetDefault("LOGIN_ATTEMPTS", 5)
	v.SetDefault("LOGIN_WINDOW", "1m")
	v.SetDefault("DEBUG", false)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return SiteConfig{}, errors.Wrap(err, "read config file")
		}
	}

	cfg := SiteConfig{
		Name:           v.GetString("SITE_NAME"),
		URL:            v.GetString("SITE_URL"),
		Description:    v.GetString("SITE_DESCRIPTION"),
		Addr:           v.GetString("ADDR"),
		DatabaseDriver: v.GetString("DATABASE_DRIVER"),
		DatabaseDSN:    v.GetString("DATABASE_URL"),
		StaticDir:      v.GetString("STATIC_DIR"),
		UploadSubdir:   v.GetString("UPLOAD_SUBDIR"),
		SessionSecret:  v.GetString("SESSION_SECRET"),
		CookieSecure:   v.GetBool("COOKIE_SECURE"),
		RedisURL:       v.GetString("REDIS_URL"),
		PostCacheTTL:   v.GetDuration("POST_CACHE_TTL"),
		MaxUploadBytes: v.GetInt64("MAX_UPLOAD_BYTES"),
		MaxImageWidth:  v.GetInt("MAX_IMAGE_WIDTH"),
		JPEGQuality:    v.GetInt("JPEG_QUALITY"),
		LoginAttempts:  v.GetInt("LOGIN_ATTEMPTS"),
		LoginWindow:    v.GetDuration("LOGIN_WINDOW"),
		Debug:          v.GetBool("DEBUG"),
	}
	if cfg.JPEGQuality < 1 || cfg.JPEGQuality > 100 {
		return SiteConfig{}, errors.Errorf("JPEG_QUALITY must be between 1 and 100, got %d", cfg.JPEGQuality)
	}
	return cfg, nil
}
