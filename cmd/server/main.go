package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v3"
	"golang.org/x/sync/errgroup"

	"github.com/handsomefox/nextep/internal/config"
	"github.com/handsomefox/nextep/internal/discover"
	"github.com/handsomefox/nextep/internal/env"
	"github.com/handsomefox/nextep/internal/handlers"
	"github.com/handsomefox/nextep/internal/logger"
	"github.com/handsomefox/nextep/internal/store"
	"github.com/handsomefox/nextep/internal/tmdb"
	"github.com/handsomefox/nextep/internal/trakt"
	"github.com/handsomefox/nextep/internal/web"

	_ "github.com/joho/godotenv/autoload"
)

const shutdownTimeout = 15 * time.Second

func main() {
	slog.SetDefault(logger.New(slog.LevelInfo))
	if err := run(); err != nil {
		fmt.Println("Error:", err.Error())
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(config.Requirements{Trakt: true})
	if err != nil {
		return err
	}

	log := logger.New(logger.ParseLevel(cfg.Server.LogLevel))
	slog.SetDefault(log)

	builder, err := discover.NewBuilder(cfg.BuilderOptions())
	if err != nil {
		return fmt.Errorf("failed to init query builder: %w", err)
	}
	catalog, err := tmdb.New(cfg.TMDBClient())
	if err != nil {
		return fmt.Errorf("failed to init tmdb client: %w", err)
	}
	tc, err := trakt.New(trakt.Config{
		ClientID:     cfg.Trakt.ClientID,
		ClientSecret: cfg.Trakt.ClientSecret,
		RedirectURI:  cfg.RedirectURI(),
	})
	if err != nil {
		return fmt.Errorf("failed to init trakt client: %w", err)
	}

	st, err := store.Open(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to open db: %w", err)
	}
	defer func() {
		if err := st.Close(); err != nil {
			slog.Error("Failed to close DB", logger.Error(err))
		}
	}()

	app, err := handlers.New(&handlers.Config{
		Store:         st,
		Catalog:       catalog,
		Trakt:         tc,
		Builder:       builder,
		ImageBase:     cfg.TMDB.ImageBase,
		Logger:        log,
		Debounce:      cfg.Discover.Debounce.Duration,
		BrowseIdleTTL: cfg.Server.SessionIdleTTL.Duration,
	})
	if err != nil {
		return fmt.Errorf("failed to init handlers: %w", err)
	}
	defer app.Close()

	dist, err := web.Dist()
	if err != nil {
		return fmt.Errorf("failed to load embedded frontend: %w", err)
	}
	spa, err := handlers.SPA(dist)
	if err != nil {
		return err
	}

	r := chi.NewRouter()
	r.Use(httplog.RequestLogger(log, &httplog.Options{
		Level:         slog.LevelInfo,
		Schema:        httplog.SchemaECS,
		RecoverPanics: true,
		Skip: func(req *http.Request, respStatus int) bool {
			return respStatus < 400 && req.URL.Path == "/api/browse/events"
		},
	}))
	if len(cfg.Server.AllowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   cfg.Server.AllowedOrigins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
			AllowedHeaders:   []string{"Accept", "Content-Type"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}
	app.RegisterRoutes(r)
	r.Handle("/*", spa)

	server := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      20 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	server.BaseContext = func(net.Listener) context.Context { return ctx }

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("listening", slog.String("addr", server.Addr), slog.String("env", string(env.Current)))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		return app.RunJanitor(ctx)
	})
	g.Go(func() error {
		<-ctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
