package travelblog

import (
	"strings"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "travelblog"

// appMetrics holds the counters for blog activity. Each App registers them
// on its own registry so several Apps can coexist in one process.
type appMetrics struct {
	registry         *prometheus.Registry
	UsersRegistered  prometheus.Counter
	LoginFailures    *prometheus.CounterVec
	PostsCreated     prometheus.Counter
	PostsUpdated     prometheus.Counter
	PostsDeleted     prometheus.Counter
	CommentsAdded    prometheus.Counter
	ImagesIngested   prometheus.Counter
	PostCacheReloads prometheus.Counter
}

func newAppMetrics() *appMetrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)
	counter := func(name, help string) prometheus.Counter {
		return f.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      name,
			Help:      help,
		})
	}
	return &appMetrics{
		registry:        reg,
		UsersRegistered: counter("users_registered_total", "Accounts created through /register."),
		LoginFailures: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "login_failures_total",
			Help:      "Rejected logins by reason.",
		}, []string{"reason"}),
		PostsCreated:     counter("posts_created_total", "Posts created."),
		PostsUpdated:     counter("posts_updated_total", "Posts edited."),
		PostsDeleted:     counter("posts_deleted_total", "Posts deleted."),
		CommentsAdded:    counter("comments_added_total", "Comments stored."),
		ImagesIngested:   counter("images_ingested_total", "Uploads re-encoded and stored."),
		PostCacheReloads: counter("post_cache_reloads_total", "Post list reloads from the database."),
	}
}

// middleware records request count and latency for every route except the
// static trees and the metrics endpoint itself.
func (m *appMetrics) middleware() echo.MiddlewareFunc {
	return echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
		Namespace:  metricsNamespace,
		Registerer: m.registry,
		Skipper: func(c echo.Context) bool {
			p := c.Request().URL.Path
			return p == "/metrics" || strings.HasPrefix(p, "/static/") || strings.HasPrefix(p, "/assets/")
		},
	})
}

func (m *appMetrics) handler() echo.HandlerFunc {
	return echoprometheus.NewHandlerWithConfig(echoprometheus.HandlerConfig{
		Gatherer: m.registry,
	})
}
