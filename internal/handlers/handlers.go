// Package handlers wires HTTP routing and API handlers.
package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/singleflight"

	"github.com/handsomefox/nextep/internal/discover"
	"github.com/handsomefox/nextep/internal/logger"
	"github.com/handsomefox/nextep/internal/media"
	"github.com/handsomefox/nextep/internal/store"
	"github.com/handsomefox/nextep/internal/tmdb"
	"github.com/handsomefox/nextep/internal/trakt"
)

// Catalog is the subset of *tmdb.Client the handlers use.
type Catalog interface {
	Fetch(ctx context.Context, req discover.Request) (media.Page, error)
	Trending(ctx context.Context, window tmdb.Window, locale string) (media.Page, error)
}

// Authenticator is the subset of *trakt.Client the handlers use.
type Authenticator interface {
	AuthorizeURL() string
	Exchange(ctx context.Context, code string) (*trakt.Token, error)
	UserSettings(ctx context.Context, accessToken string) (*trakt.Settings, error)
}

const (
	defaultTrendingTTL   = 15 * time.Minute
	defaultBrowseIdleTTL = 30 * time.Minute
	janitorInterval      = time.Minute
)

type Handler struct {
	store     *store.Store
	catalog   Catalog
	trakt     Authenticator
	builder   *discover.Builder
	imageBase string
	logger    *slog.Logger

	trendingTTL time.Duration
	trending    trendingCache
	fill        singleflight.Group

	browse *browseRegistry
}

type Config struct {
	Store     *store.Store
	Catalog   Catalog
	Trakt     Authenticator
	Builder   *discover.Builder
	ImageBase string
	Logger    *slog.Logger

	// Debounce applies to every browse session controller.
	Debounce      time.Duration
	BrowseIdleTTL time.Duration
	TrendingTTL   time.Duration
}

func New(cfg *Config) (*Handler, error) {
	if cfg.Store == nil {
		return nil, errors.New("store is required")
	}
	if cfg.Catalog == nil {
		return nil, errors.New("catalog client is required")
	}
	if cfg.Trakt == nil {
		return nil, errors.New("trakt client is required")
	}
	if cfg.Builder == nil {
		return nil, errors.New("query builder is required")
	}

	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	imageBase := cfg.ImageBase
	if imageBase == "" {
		imageBase = tmdb.DefaultImageBase
	}
	trendingTTL := cfg.TrendingTTL
	if trendingTTL <= 0 {
		trendingTTL = defaultTrendingTTL
	}
	idleTTL := cfg.BrowseIdleTTL
	if idleTTL <= 0 {
		idleTTL = defaultBrowseIdleTTL
	}

	h := &Handler{
		store:       cfg.Store,
		catalog:     cfg.Catalog,
		trakt:       cfg.Trakt,
		builder:     cfg.Builder,
		imageBase:   imageBase,
		logger:      log,
		trendingTTL: trendingTTL,
		trending:    trendingCache{entries: map[tmdb.Window]trendingEntry{}},
	}
	h.browse = newBrowseRegistry(cfg.Catalog, cfg.Builder, cfg.Debounce, idleTTL, log)
	return h, nil
}

// RegisterRoutes mounts the auth and API routes on r.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/auth", func(r chi.Router) {
		r.Method(http.MethodGet, "/login", http.HandlerFunc(h.getLogin))
		r.Method(http.MethodGet, "/callback", http.HandlerFunc(h.getCallback))
		r.Method(http.MethodPost, "/logout", Adapt(h.postLogout))
	})

	r.Route("/api", func(r chi.Router) {
		r.Method(http.MethodGet, "/session", Adapt(h.getSession))
		r.Method(http.MethodGet, "/search", Adapt(h.getSearch))
		r.Method(http.MethodGet, "/discover", Adapt(h.getDiscover))
		r.Method(http.MethodGet, "/trending", Adapt(h.getTrending))
		r.Method(http.MethodGet, "/genres", Adapt(h.getGenres))

		r.Group(func(r chi.Router) {
			r.Use(h.MiddlewareRequireAuth)
			r.Method(http.MethodGet, "/profile", Adapt(h.getProfile))
		})

		r.Route("/browse", func(r chi.Router) {
			r.Method(http.MethodGet, "/", Adapt(h.getBrowse))
			r.Method(http.MethodPut, "/filters", Adapt(h.putBrowseFilters))
			r.Method(http.MethodPost, "/more", Adapt(h.postBrowseMore))
			r.Method(http.MethodGet, "/events", Adapt(h.getBrowseEvents))
		})
	})
}

// RunJanitor evicts idle browse sessions and purges expired login sessions
// until ctx is done.
func (h *Handler) RunJanitor(ctx context.Context) error {
	ticker := time.NewTicker(janitorInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.C:
			if n := h.browse.evictIdle(now); n > 0 {
				h.logger.Debug("evicted idle browse sessions", slog.Int("count", n))
			}
			n, err := h.store.PurgeExpired(ctx)
			if err != nil {
				h.logger.Warn("purge expired sessions failed", logger.Error(err))
				continue
			}
			if n > 0 {
				h.logger.Debug("purged expired sessions", slog.Int64("count", n))
			}
		}
	}
}

// Close stops every browse controller.
func (h *Handler) Close() {
	h.browse.close()
}
