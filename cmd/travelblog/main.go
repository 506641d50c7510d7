// Command travelblog serves the travel blog.
//
// Configuration comes from the environment, an optional .env file and an
// optional config.yml; see travelblog.LoadConfig for the keys.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/eringen/travelblog"
	"github.com/eringen/travelblog/views"
)

// version is set at build time via ldflags.
var version = "dev"

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := travelblog.LoadConfig()
	if err != nil {
		logrus.WithError(err).Fatal("travelblog: load config")
	}
	log := travelblog.NewLogger(cfg.Debug)
	log.WithField("version", version).Info("travelblog: starting")

	app := travelblog.New(cfg, views.Funcs(), travelblog.WithLogger(log))
	app.Echo.HideBanner = true
	app.Echo.HidePort = true

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errc := make(chan error, 1)
	go func() { errc <- app.Start() }()

	select {
	case err := <-errc:
		app.Close()
		if err != nil {
			log.WithError(err).Fatal("travelblog: server stopped")
		}
		return
	case <-ctx.Done():
	}

	log.Info("travelblog: shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := app.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("travelblog: shutdown")
	}
	if err := app.Close(); err != nil {
		log.WithError(err).Error("travelblog: close")
	}
}
