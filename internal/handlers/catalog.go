package handlers

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/handsomefox/nextep/internal/carousel"
	"github.com/handsomefox/nextep/internal/discover"
	"github.com/handsomefox/nextep/internal/media"
	"github.com/handsomefox/nextep/internal/tmdb"
)

const (
	defaultTrendingLimit = 10
	maxTrendingLimit     = 50
	// trendingTopN is how many titles the carousel cycles through.
	trendingTopN = 20
)

type trendingEntry struct {
	items     []media.Item
	fetchedAt time.Time
}

type trendingCache struct {
	mu      sync.RWMutex
	entries map[tmdb.Window]trendingEntry
}

func (c *trendingCache) get(w tmdb.Window, ttl time.Duration, now time.Time) ([]media.Item, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[w]
	if !ok || now.Sub(e.fetchedAt) > ttl {
		return nil, false
	}
	return e.items, true
}

func (c *trendingCache) set(w tmdb.Window, items []media.Item, now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[w] = trendingEntry{items: items, fetchedAt: now}
}

// getSearch runs a multi search. Queries under two characters answer with an
// empty page instead of calling the catalog.
func (h *Handler) getSearch(w http.ResponseWriter, r *http.Request) error {
	f := discover.Defaults(h.builder.Limits())
	f.Query = r.URL.Query().Get("q")

	if _, ok := f.SearchText(); !ok {
		writeJSON(w, http.StatusOK, &pageResponse{Mode: discover.ModeSearch, Page: 1, Items: []itemResponse{}})
		return nil
	}

	req := h.builder.Build(&f, 1)
	page, err := h.catalog.Fetch(r.Context(), req)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, h.toPage(req.Mode, &page))
	return nil
}

// getDiscover serves a single page for the filters in the query string.
func (h *Handler) getDiscover(w http.ResponseWriter, r *http.Request) error {
	f, err := h.parseFilters(r)
	if err != nil {
		return err
	}
	page, _, err := queryInt(r, "page")
	if err != nil {
		return err
	}
	if page < 1 {
		page = 1
	}

	req := h.builder.Build(&f, page)
	res, err := h.catalog.Fetch(r.Context(), req)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, h.toPage(req.Mode, &res))
	return nil
}

func (h *Handler) parseFilters(r *http.Request) (discover.FilterState, error) {
	f := discover.Defaults(h.builder.Limits())
	q := r.URL.Query()

	f.Query = q.Get("q")
	if kinds := queryList(r, "type"); len(kinds) > 0 {
		f.MediaTypes = f.MediaTypes[:0]
		for _, raw := range kinds {
			k, err := media.ParseKind(raw)
			if err != nil {
				return f, badRequest(err.Error())
			}
			f.MediaTypes = append(f.MediaTypes, k)
		}
	}
	f.Anime = queryBool(r, "anime")
	f.GenreIDs = queryList(r, "genres")
	f.MatchAllGenres = queryBool(r, "match_all")

	ints := []struct {
		name string
		dst  *int
	}{
		{"votes_min", &f.VoteCount.Min},
		{"votes_max", &f.VoteCount.Max},
		{"year_min", &f.ReleaseYear.Min},
		{"year_max", &f.ReleaseYear.Max},
	}
	for _, p := range ints {
		v, ok, err := queryInt(r, p.name)
		if err != nil {
			return f, err
		}
		if ok {
			*p.dst = v
		}
	}

	for name, dst := range map[string]*discover.AgeRating{"min_age": &f.MinAgeRating, "max_age": &f.MaxAgeRating} {
		v, ok, err := queryInt(r, name)
		if err != nil {
			return f, err
		}
		if ok {
			*dst = discover.AgeRating(v)
		}
	}

	for name, dst := range map[string]*float64{"vote_min": &f.VoteAverage.Min, "vote_max": &f.VoteAverage.Max} {
		v, ok, err := queryFloat(r, name)
		if err != nil {
			return f, err
		}
		if ok {
			*dst = v
		}
	}

	if s := strings.TrimSpace(q.Get("sort")); s != "" {
		f.SortField = discover.SortField(s)
	}
	if d := strings.TrimSpace(q.Get("order")); d != "" {
		f.SortDirection = discover.SortDirection(strings.ToLower(d))
	}

	if err := f.Validate(h.builder.Limits()); err != nil {
		return f, badRequest(err.Error())
	}
	return f, nil
}

// getTrending exposes the cached trending list as a cyclic carousel window.
func (h *Handler) getTrending(w http.ResponseWriter, r *http.Request) error {
	window := tmdb.Week
	if raw := strings.TrimSpace(r.URL.Query().Get("window")); raw != "" {
		window = tmdb.Window(strings.ToLower(raw))
	}
	if !window.Valid() {
		return badRequest("window must be day or week")
	}

	offset, _, err := queryInt(r, "offset")
	if err != nil {
		return err
	}
	limit, ok, err := queryInt(r, "limit")
	if err != nil {
		return err
	}
	if !ok || limit <= 0 {
		limit = defaultTrendingLimit
	}
	limit = min(limit, maxTrendingLimit)

	items, err := h.trendingItems(r.Context(), window)
	if err != nil {
		return err
	}

	ring := carousel.New(h.toItems(items))
	slots := ring.Window(offset, limit)
	if slots == nil {
		slots = []carousel.Slot[itemResponse]{}
	}
	writeJSON(w, http.StatusOK, &trendingResponse{Window: window, Total: ring.Len(), Slots: slots})
	return nil
}

// trendingItems serves from cache, collapsing concurrent refills into one
// upstream call per window.
func (h *Handler) trendingItems(ctx context.Context, window tmdb.Window) ([]media.Item, error) {
	if items, ok := h.trending.get(window, h.trendingTTL, time.Now()); ok {
		return items, nil
	}

	v, err, _ := h.fill.Do(string(window), func() (any, error) {
		page, err := h.catalog.Trending(context.WithoutCancel(ctx), window, h.builder.Locale())
		if err != nil {
			return nil, err
		}
		items := page.Items
		if len(items) > trendingTopN {
			items = items[:trendingTopN]
		}
		h.trending.set(window, items, time.Now())
		return items, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]media.Item), nil
}

func (h *Handler) getGenres(w http.ResponseWriter, r *http.Request) error {
	kind := media.Movie
	if raw := strings.TrimSpace(r.URL.Query().Get("type")); raw != "" {
		k, err := media.ParseKind(raw)
		if err != nil {
			return badRequest(err.Error())
		}
		kind = k
	}
	writeJSON(w, http.StatusOK, &genresResponse{Type: kind, Genres: tmdb.GenresFor(kind)})
	return nil
}
