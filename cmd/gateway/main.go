// Command gateway runs the HTTP gateway for the web client.
package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/groupdesk/groupdesk/internal/app"
	"github.com/groupdesk/groupdesk/internal/app/services/chat"
	"github.com/groupdesk/groupdesk/internal/app/services/session"
	"github.com/groupdesk/groupdesk/internal/app/storage/memory"
	"github.com/groupdesk/groupdesk/internal/app/storage/postgres"
	supastore "github.com/groupdesk/groupdesk/internal/app/storage/supabase"
	"github.com/groupdesk/groupdesk/internal/cache"
	"github.com/groupdesk/groupdesk/internal/config"
	"github.com/groupdesk/groupdesk/internal/httpapi"
	"github.com/groupdesk/groupdesk/internal/platform/realtime"
	"github.com/groupdesk/groupdesk/internal/platform/supabase"
	"github.com/groupdesk/groupdesk/pkg/logger"
)

func main() {
	var (
		configPath  = flag.String("config", "", "optional YAML config file overlaid on the environment")
		sessionPath = flag.String("session-file", "", "optional path for persisting the platform session")
	)
	flag.Parse()

	log := logger.NewDefault("gateway")

	var (
		cfg config.Config
		err error
	)
	if *configPath != "" {
		cfg, err = config.LoadFile(*configPath, log)
	} else {
		cfg, err = config.Load(log)
	}
	if err != nil {
		log.WithError(err).Error("configuration failed")
		os.Exit(1)
	}
	log = logger.New("gateway", cfg.LogLevel)

	opts := app.Options{Config: cfg, Log: log}

	var client *supabase.Client
	if cfg.PlatformConfigured() {
		client, err = supabase.New(supabase.Config{
			ProjectURL: cfg.Platform.URL,
			AnonKey:    cfg.Platform.AnonKey,
			ServiceKey: cfg.Platform.ServiceKey,
			Timeout:    cfg.Platform.Timeout,
			Retry:      supabase.DefaultRetryConfig(),
		})
		if err != nil {
			log.WithError(err).Error("platform client failed")
			os.Exit(1)
		}
		opts.Auth = client.Auth()
		opts.Upload = chat.NewStorageUploader(client.Storage(), cfg.Platform.Bucket)

		feed := realtime.New(cfg.Platform.URL, cfg.Platform.AnonKey, log.WithField("component", "realtime"))
		if err := feed.Connect(context.Background()); err != nil {
			log.WithError(err).Warn("realtime unavailable, chat runs without live updates")
		} else {
			opts.Feed = chat.NewRealtimeFeed(feed)
			defer feed.Disconnect()
		}
	}

	// Row storage: a direct database wins over the platform row API,
	// which wins over the in-memory fallback.
	switch {
	case cfg.Postgres.DSN != "":
		pg, err := postgres.Open(context.Background(), cfg.Postgres.DSN)
		if err != nil {
			log.WithError(err).Error("postgres connection failed")
			os.Exit(1)
		}
		defer pg.Close()
		log.Info("row storage: postgres")
		opts.Stores = app.Stores{
			Profiles: pg, Agencies: pg, Channels: pg,
			Journal: pg, Logbook: pg, Notices: pg,
			Ledger: pg, Todos: pg,
		}
	case client != nil:
		store := supastore.New(client)
		opts.Stores = app.Stores{
			Profiles: store, Agencies: store, Channels: store,
			Journal: store, Logbook: store, Notices: store,
			Ledger: store, Todos: store,
		}
	default:
		log.Warn("platform not configured, running with in-memory stores")
		mem := memory.New()
		opts.Stores = app.Stores{
			Profiles: mem, Agencies: mem, Channels: mem,
			Journal: mem, Logbook: mem, Notices: mem,
			Ledger: mem, Todos: mem,
		}
	}

	if *sessionPath != "" {
		opts.Tokens = session.NewFileTokenStore(*sessionPath)
	}

	if cfg.Redis.Addr != "" {
		names, err := cache.NewRedis(context.Background(), cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, "groupdesk")
		if err != nil {
			log.WithError(err).Warn("redis unavailable, using in-process name cache")
		} else {
			opts.Names = names
			defer names.Close()
		}
	}

	application := app.New(opts)
	if err := application.Init(context.Background()); err != nil {
		log.WithError(err).Error("application init failed")
		os.Exit(1)
	}
	defer application.Close()

	handler := httpapi.New(application, opts.Stores.Profiles, cfg, log.WithField("component", "httpapi"))
	server := &http.Server{
		Addr:              cfg.Gateway.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithField("addr", cfg.Gateway.Addr).Info("gateway listening")
		errCh <- server.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			log.WithError(err).Error("server failed")
			os.Exit(1)
		}
	case sig := <-stop:
		log.WithField("signal", sig.String()).Info("shutting down")
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			log.WithError(err).Warn("shutdown incomplete")
		}
	}
}
