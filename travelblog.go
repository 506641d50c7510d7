// Package travelblog is a server-rendered travel blog built with Go, Echo,
// gorm and templ. Readers register, log in and comment; the site admin
// writes travel reports with a cover image that is re-encoded on upload.
//
// Page markup is supplied through ViewFuncs, so the package only owns the
// handlers, middleware and persistence. The views package holds the default
// set.
package travelblog

import (
	"context"
	"net/http"
	"time"

	"github.com/a-h/templ"
	"github.com/gorilla/sessions"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// ViewFuncs holds the components the handlers render. Every component gets
// the Page for the shared layout.
type ViewFuncs struct {
	Home     func(p Page, posts []BlogPost) templ.Component
	Post     func(p Page, post BlogPost, form CommentForm, errs FormErrors) templ.Component
	Register func(p Page, form RegisterForm, errs FormErrors) templ.Component
	Login    func(p Page, form LoginForm, errs FormErrors) templ.Component
	// PostForm renders the create form when postID is 0 and the edit form
	// otherwise.
	PostForm    func(p Page, form PostForm, errs FormErrors, postID uint) templ.Component
	Author      func(p Page, name string, posts []BlogPost) templ.Component
	Gallery     func(p Page, posts []BlogPost, photos []Photo) templ.Component
	Upload      func(p Page, errs FormErrors) templ.Component
	Uploaded    func(p Page, photo Photo) templ.Component
	About       func(p Page) templ.Component
	Contact     func(p Page) templ.Component
	NotFound    func(p Page) templ.Component
	Forbidden   func(p Page) templ.Component
	ServerError func(p Page) templ.Component
}

// App is the central travelblog application. It wires together the store,
// cache, uploads, handlers, middleware and the page components.
type App struct {
	Config  SiteConfig
	Echo    *echo.Echo
	Store   *Store
	Cache   *PostCache
	Uploads *Uploads
	Views   ViewFuncs
	Log     *logrus.Logger

	limiter      *LoginLimiter
	redis        *redis.Client
	ownRedis     bool
	metrics      *appMetrics
	sessions     sessions.Store
	customRoutes []func(*App)
	initialized  bool
}

// New creates a new App with the given configuration and views. Nothing is
// opened until Init or Start.
func New(cfg SiteConfig, views ViewFuncs, opts ...Option) *App {
	cfg.setDefaults()

	a := &App{
		Config: cfg,
		Echo:   echo.New(),
		Views:  views,
	}

	for _, opt := range opts {
		opt(a)
	}
	if a.Log == nil {
		a.Log = logrus.StandardLogger()
	}
	return a
}

// Init opens the database, cache tiers and upload directory and installs
// middleware and routes. After Init the App serves requests through
// a.Echo; Start calls it implicitly.
func (a *App) Init() error {
	if a.initialized {
		return nil
	}
	if a.Config.SessionSecret == "" {
		return errors.New("travelblog: SessionSecret is required")
	}

	store, err := NewStore(a.Config, a.Log)
	if err != nil {
		return errors.Wrap(err, "travelblog: init store")
	}
	a.Store = store

	if a.redis == nil && a.Config.RedisURL != "" {
		opt, err := redis.ParseURL(a.Config.RedisURL)
		if err != nil {
			return errors.Wrap(err, "travelblog: parse redis url")
		}
		a.redis = redis.NewClient(opt)
		a.ownRedis = true
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := a.redis.Ping(ctx).Err(); err != nil {
			return errors.Wrap(err, "travelblog: ping redis")
		}
	}

	a.metrics = newAppMetrics()
	a.Cache = NewPostCache(a.Store, a.Config.PostCacheTTL, a.redis, a.Log)
	a.Cache.onReload = a.metrics.PostCacheReloads.Inc
	a.Uploads = NewUploads(a.Config)
	a.limiter = NewLoginLimiter(a.Config.LoginAttempts, a.Config.LoginWindow)
	a.sessions = a.newSessionStore()

	a.setupMiddleware()
	a.setupRoutes()
	for _, fn := range a.customRoutes {
		fn(a)
	}
	a.initialized = true
	return nil
}

// Start initializes the App and serves HTTP on Config.Addr until Shutdown.
func (a *App) Start() error {
	if err := a.Init(); err != nil {
		return err
	}
	a.Log.WithField("addr", a.Config.Addr).Info("travelblog: listening")
	if err := a.Echo.Start(a.Config.Addr); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (a *App) Shutdown(ctx context.Context) error {
	return a.Echo.Shutdown(ctx)
}

func (a *App) setupRoutes() {
	e := a.Echo
	getPost := []string{http.MethodGet, http.MethodPost}

	e.Static("/static", a.Config.StaticDir)
	e.StaticFS("/assets", echo.MustSubFS(EmbeddedAssets, "embedded"))
	e.GET("/robots.txt", a.handleRobots)
	e.GET("/sitemap.xml", a.handleSitemap)
	e.GET("/feed.xml", a.handleFeed)
	e.GET("/metrics", a.metrics.handler())

	e.GET("/", a.handleHome)
	e.GET("/about", a.handleAbout)
	e.GET("/contact", a.handleContact)
	e.GET("/post/:id", a.handleShowPost)
	e.POST("/post/:id", a.handleAddComment)
	e.Match(getPost, "/author/:name", a.handleAuthor)
	e.Match(getPost, "/gallery", a.handleGallery)

	e.Match(getPost, "/register", a.handleRegister)
	e.Match(getPost, "/login", a.handleLogin)
	e.GET("/logout", a.handleLogout)

	e.Match(getPost, "/new-post", a.handleNewPost, adminOnly)
	e.Match(getPost, "/edit-post/:id", a.handleEditPost, adminOnly)
	e.GET("/delete/:id", a.handleDeletePost, adminOnly)
	e.Match(getPost, "/upload", a.handleUpload, adminOnly)
}

// Close releases everything Init opened. Call it when shutting down.
func (a *App) Close() error {
	if a.limiter != nil {
		a.limiter.Stop()
	}
	if a.redis != nil && a.ownRedis {
		a.redis.Close()
	}
	if a.Store != nil {
		return a.Store.Close()
	}
	return nil
}
