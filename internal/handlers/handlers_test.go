package handlers

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"testing/fstest"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/handsomefox/nextep/internal/discover"
	"github.com/handsomefox/nextep/internal/logger"
	"github.com/handsomefox/nextep/internal/store"
	"github.com/handsomefox/nextep/internal/tmdb"
	"github.com/handsomefox/nextep/internal/trakt"
)

const goodToken = "tok-123"

type fakeTMDB struct {
	mu       sync.Mutex
	paths    []string
	queries  []string
	searches atomic.Int32
	trending atomic.Int32
}

func (f *fakeTMDB) record(r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.paths = append(f.paths, r.URL.Path)
	f.queries = append(f.queries, r.URL.RawQuery)
}

func (f *fakeTMDB) last() (string, string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.paths) == 0 {
		return "", ""
	}
	return f.paths[len(f.paths)-1], f.queries[len(f.queries)-1]
}

func (f *fakeTMDB) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.record(r)
	w.Header().Set("Content-Type", "application/json")
	q := r.URL.Query()

	switch {
	case r.URL.Path == "/search/multi":
		f.searches.Add(1)
		if q.Get("query") == "fail" {
			w.WriteHeader(http.StatusUnauthorized)
			fmt.Fprint(w, `{"status_code":7,"status_message":"Invalid API key"}`)
			return
		}
		fmt.Fprint(w, `{"page":1,"total_pages":3,"total_results":2,"results":[
			{"id":1,"media_type":"movie","title":"Alpha","release_date":"2020-05-01","poster_path":"/a.jpg"},
			{"id":9,"media_type":"person","name":"Someone"}]}`)
	case strings.HasPrefix(r.URL.Path, "/discover/"):
		page := q.Get("page")
		fmt.Fprintf(w, `{"page":%s,"total_pages":2,"total_results":4,"results":[
			{"id":%s0,"title":"Page %s A"},{"id":%s1,"title":"Page %s B"}]}`, page, page, page, page, page)
	case r.URL.Path == "/trending/all/week":
		f.trending.Add(1)
		fmt.Fprint(w, `{"page":1,"total_pages":1,"total_results":3,"results":[
			{"id":1,"media_type":"movie","title":"One"},
			{"id":2,"media_type":"tv","name":"Two"},
			{"id":3,"media_type":"movie","title":"Three"}]}`)
	default:
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"status_code":34,"status_message":"The resource you requested could not be found."}`)
	}
}

func fakeTrakt(t *testing.T) http.Handler {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("POST /oauth/token", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Code      string `json:"code"`
			GrantType string `json:"grant_type"`
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.Header().Set("Content-Type", "application/json")
		if body.Code != "good" || body.GrantType != "authorization_code" {
			w.WriteHeader(http.StatusUnauthorized)
			fmt.Fprint(w, `{"error":"invalid_grant","error_description":"bad code"}`)
			return
		}
		fmt.Fprintf(w, `{"access_token":%q,"token_type":"bearer","expires_in":3600,"created_at":1700000000}`, goodToken)
	})
	mux.HandleFunc("GET /users/settings", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.Header.Get("Authorization") != "Bearer "+goodToken {
			w.WriteHeader(http.StatusUnauthorized)
			fmt.Fprint(w, `{"error":"invalid_token"}`)
			return
		}
		fmt.Fprint(w, `{"user":{"username":"sean","name":"Sean Rudford","ids":{"slug":"sean"}},"account":{"timezone":"America/Sao_Paulo"}}`)
	})
	return mux
}

type testEnv struct {
	h       *Handler
	router  http.Handler
	tmdb    *fakeTMDB
	authURL string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	ft := &fakeTMDB{}
	tmdbSrv := httptest.NewServer(ft)
	t.Cleanup(tmdbSrv.Close)
	traktSrv := httptest.NewServer(fakeTrakt(t))
	t.Cleanup(traktSrv.Close)

	catalog, err := tmdb.New(tmdb.Config{APIKey: "key", BaseURL: tmdbSrv.URL})
	require.NoError(t, err)
	tc, err := trakt.New(trakt.Config{
		ClientID:     "client",
		ClientSecret: "secret",
		RedirectURI:  "http://localhost:8080/auth/callback",
		AuthBaseURL:  "https://trakt.example",
		APIBaseURL:   traktSrv.URL,
	})
	require.NoError(t, err)
	builder, err := discover.NewBuilder(discover.Options{})
	require.NoError(t, err)
	st, err := store.Open(filepath.Join(t.TempDir(), "nextep.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	h, err := New(&Config{
		Store:     st,
		Catalog:   catalog,
		Trakt:     tc,
		Builder:   builder,
		ImageBase: "https://img.example/w500",
		Logger:    logger.Discard(),
		Debounce:  10 * time.Millisecond,
	})
	require.NoError(t, err)
	t.Cleanup(h.Close)

	r := chi.NewRouter()
	h.RegisterRoutes(r)
	return &testEnv{h: h, router: r, tmdb: ft, authURL: "https://trakt.example"}
}

func (e *testEnv) do(t *testing.T, method, target, body string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, http.NoBody)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func findCookie(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestNew_RequiresCollaborators(t *testing.T) {
	_, err := New(&Config{})
	assert.Error(t, err)
}

func TestLogin_RedirectsToTrakt(t *testing.T) {
	e := newTestEnv(t)
	rec := e.do(t, http.MethodGet, "/auth/login", "")
	assert.Equal(t, http.StatusFound, rec.Code)
	loc := rec.Header().Get("Location")
	assert.True(t, strings.HasPrefix(loc, e.authURL+"/oauth/authorize?"), loc)
	assert.Contains(t, loc, "client_id=client")
	assert.Contains(t, loc, "response_type=code")
}

func TestCallback_MissingCode(t *testing.T) {
	e := newTestEnv(t)
	rec := e.do(t, http.MethodGet, "/auth/callback", "")
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/login?error=no_code", rec.Header().Get("Location"))
	assert.Nil(t, findCookie(rec, authCookieName))
}

func TestCallback_ExchangeFails(t *testing.T) {
	e := newTestEnv(t)
	rec := e.do(t, http.MethodGet, "/auth/callback?code=bad", "")
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/login?error=auth_failed", rec.Header().Get("Location"))
	assert.Nil(t, findCookie(rec, authCookieName))
}

func TestCallback_SuccessAndSession(t *testing.T) {
	e := newTestEnv(t)

	rec := e.do(t, http.MethodGet, "/auth/callback?code=good", "")
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))

	c := findCookie(rec, authCookieName)
	require.NotNil(t, c)
	assert.Equal(t, goodToken, c.Value)
	assert.True(t, c.HttpOnly)
	assert.Equal(t, http.SameSiteLaxMode, c.SameSite)
	assert.Equal(t, 3600, c.MaxAge)
	assert.False(t, c.Secure, "local environment")

	rec = e.do(t, http.MethodGet, "/api/session", "", c)
	require.Equal(t, http.StatusOK, rec.Code)
	sess := decode[sessionResponse](t, rec)
	assert.True(t, sess.Authenticated)
	require.NotNil(t, sess.Username)
	assert.Equal(t, "sean", *sess.Username)
	require.NotNil(t, sess.Name)
	assert.Equal(t, "Sean Rudford", *sess.Name)

	rec = e.do(t, http.MethodGet, "/api/profile", "", c)
	require.Equal(t, http.StatusOK, rec.Code)
	profile := decode[trakt.Settings](t, rec)
	assert.Equal(t, "sean", profile.User.IDs.Slug)

	rec = e.do(t, http.MethodPost, "/auth/logout", "", c)
	require.Equal(t, http.StatusOK, rec.Code)
	cleared := findCookie(rec, authCookieName)
	require.NotNil(t, cleared)
	assert.Equal(t, -1, cleared.MaxAge)

	rec = e.do(t, http.MethodGet, "/api/session", "", c)
	assert.False(t, decode[sessionResponse](t, rec).Authenticated)
}

func TestProfile_RequiresAuth(t *testing.T) {
	e := newTestEnv(t)

	rec := e.do(t, http.MethodGet, "/api/profile", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = e.do(t, http.MethodGet, "/api/profile", "", &http.Cookie{Name: authCookieName, Value: "forged"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSearch_ShortQueryIsEmpty(t *testing.T) {
	e := newTestEnv(t)

	rec := e.do(t, http.MethodGet, "/api/search?q=a", "")
	require.Equal(t, http.StatusOK, rec.Code)
	page := decode[pageResponse](t, rec)
	assert.Empty(t, page.Items)
	assert.Zero(t, e.tmdb.searches.Load())
}

func TestSearch_DropsPeople(t *testing.T) {
	e := newTestEnv(t)

	rec := e.do(t, http.MethodGet, "/api/search?q=alpha", "")
	require.Equal(t, http.StatusOK, rec.Code)
	page := decode[pageResponse](t, rec)
	assert.Equal(t, discover.ModeSearch, page.Mode)
	assert.False(t, page.HasMore, "search has no load more")
	require.Len(t, page.Items, 1)
	assert.Equal(t, "Alpha", page.Items[0].Title)
	assert.Equal(t, "2020", page.Items[0].Year)
	assert.Equal(t, "https://img.example/w500/a.jpg", page.Items[0].PosterURL)

	_, query := e.tmdb.last()
	assert.Contains(t, query, "language=pt-BR")
	assert.Contains(t, query, "include_adult=false")
}

func TestSearch_UpstreamErrorIs502(t *testing.T) {
	e := newTestEnv(t)

	rec := e.do(t, http.MethodGet, "/api/search?q=fail", "")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, decode[errorResponse](t, rec).Error, "Invalid API key")
}

func TestDiscover_PageAndKind(t *testing.T) {
	e := newTestEnv(t)

	rec := e.do(t, http.MethodGet, "/api/discover?type=tv&page=2&genres=18,35&match_all=true", "")
	require.Equal(t, http.StatusOK, rec.Code)
	page := decode[pageResponse](t, rec)
	assert.Equal(t, discover.ModeDiscover, page.Mode)
	assert.Equal(t, 2, page.Page)
	assert.False(t, page.HasMore)
	require.Len(t, page.Items, 2)
	assert.Equal(t, "tv", string(page.Items[0].Kind))

	path, query := e.tmdb.last()
	assert.Equal(t, "/discover/tv", path)
	assert.Contains(t, query, "with_genres=18%2C35")
}

func TestDiscover_InvalidFilters(t *testing.T) {
	e := newTestEnv(t)

	for _, target := range []string{
		"/api/discover?year_min=2000&year_max=1990",
		"/api/discover?type=book",
		"/api/discover?min_age=13",
		"/api/discover?vote_min=abc",
		"/api/discover?sort=random",
	} {
		rec := e.do(t, http.MethodGet, target, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code, target)
	}
}

func TestTrending_CarouselWindowIsCached(t *testing.T) {
	e := newTestEnv(t)

	rec := e.do(t, http.MethodGet, "/api/trending?offset=-1&limit=5", "")
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[trendingResponse](t, rec)
	assert.Equal(t, tmdb.Week, resp.Window)
	assert.Equal(t, 3, resp.Total)
	require.Len(t, resp.Slots, 5)
	assert.Equal(t, 3, resp.Slots[0].Rank)
	assert.Equal(t, "Three", resp.Slots[0].Item.Title)
	assert.Equal(t, "One", resp.Slots[1].Item.Title)
	assert.Equal(t, "One", resp.Slots[4].Item.Title)

	rec = e.do(t, http.MethodGet, "/api/trending?window=week", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 1, e.tmdb.trending.Load())
}

func TestTrending_ConcurrentFillsCollapse(t *testing.T) {
	e := newTestEnv(t)

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rec := e.do(t, http.MethodGet, "/api/trending", "")
			var resp trendingResponse
			if assert.Equal(t, http.StatusOK, rec.Code) && assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp)) {
				assert.Equal(t, 3, resp.Total)
			}
		}()
	}
	wg.Wait()

	before := e.tmdb.trending.Load()
	assert.Positive(t, before)
	e.do(t, http.MethodGet, "/api/trending", "")
	assert.Equal(t, before, e.tmdb.trending.Load(), "served from cache once filled")
}

func TestTrending_Errors(t *testing.T) {
	e := newTestEnv(t)

	rec := e.do(t, http.MethodGet, "/api/trending?window=month", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = e.do(t, http.MethodGet, "/api/trending?window=day", "")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestGenres(t *testing.T) {
	e := newTestEnv(t)

	rec := e.do(t, http.MethodGet, "/api/genres?type=tv", "")
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[genresResponse](t, rec)
	assert.Equal(t, tmdb.TVGenres, resp.Genres)

	rec = e.do(t, http.MethodGet, "/api/genres?type=book", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

type browseBody struct {
	Session  string `json:"session"`
	Phase    string `json:"phase"`
	Mode     string `json:"mode"`
	Page     int    `json:"page"`
	HasMore  bool   `json:"has_more"`
	Pending  bool   `json:"pending"`
	Version  uint64 `json:"version"`
	Items    []itemResponse
	Filters  discover.FilterState `json:"filters"`
	ErrorMsg string               `json:"error"`
}

func TestBrowse_FiltersThenLoadMore(t *testing.T) {
	e := newTestEnv(t)

	rec := e.do(t, http.MethodPut, "/api/browse/filters?wait", `{"media_types":["movie"],"genre_ids":["28"]}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	c := findCookie(rec, browseCookieName)
	require.NotNil(t, c)

	first := decode[browseBody](t, rec)
	assert.Equal(t, c.Value, first.Session)
	assert.Equal(t, "ready", first.Phase)
	assert.Equal(t, "discover", first.Mode)
	assert.True(t, first.HasMore)
	assert.Len(t, first.Items, 2)
	assert.Equal(t, []string{"28"}, first.Filters.GenreIDs)
	assert.Equal(t, discover.DefaultYearCeiling, first.Filters.ReleaseYear.Max, "defaults fill missing fields")

	rec = e.do(t, http.MethodPost, "/api/browse/more?wait", "", c)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	second := decode[browseBody](t, rec)
	assert.Equal(t, first.Session, second.Session)
	assert.Equal(t, "exhausted", second.Phase)
	assert.Equal(t, 2, second.Page)
	assert.Len(t, second.Items, 4)

	rec = e.do(t, http.MethodGet, "/api/browse", "", c)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, second.Version, decode[browseBody](t, rec).Version)
	assert.Equal(t, 1, e.h.browse.len())
}

func TestBrowse_IgnoredMoreAnswersAtOnce(t *testing.T) {
	e := newTestEnv(t)

	rec := e.do(t, http.MethodPut, "/api/browse/filters?wait", `{"media_types":["movie"]}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	c := findCookie(rec, browseCookieName)
	require.NotNil(t, c)
	rec = e.do(t, http.MethodPost, "/api/browse/more?wait", "", c)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	exhausted := decode[browseBody](t, rec)
	require.Equal(t, "exhausted", exhausted.Phase)

	start := time.Now()
	rec = e.do(t, http.MethodPost, "/api/browse/more?wait", "", c)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Less(t, time.Since(start), time.Second)
	again := decode[browseBody](t, rec)
	assert.Equal(t, "exhausted", again.Phase)
	assert.Equal(t, 2, again.Page)
	assert.Len(t, again.Items, 4)
	assert.Greater(t, again.Version, exhausted.Version)

	rec = e.do(t, http.MethodPut, "/api/browse/filters?wait", `{"query":"alpha"}`, c)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Equal(t, "search", decode[browseBody](t, rec).Mode)

	start = time.Now()
	rec = e.do(t, http.MethodPost, "/api/browse/more?wait", "", c)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Less(t, time.Since(start), time.Second)
	search := decode[browseBody](t, rec)
	assert.Equal(t, "search", search.Mode)
	assert.Len(t, search.Items, 1)
	assert.EqualValues(t, 1, e.tmdb.searches.Load(), "load more does not refetch in search mode")
}

func TestBrowse_InvalidFilters(t *testing.T) {
	e := newTestEnv(t)

	rec := e.do(t, http.MethodPut, "/api/browse/filters", `{"release_year":{"min":2010,"max":2000}}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = e.do(t, http.MethodPut, "/api/browse/filters", `{"colour":"blue"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBrowse_EvictIdle(t *testing.T) {
	e := newTestEnv(t)

	rec := e.do(t, http.MethodGet, "/api/browse", "")
	require.Equal(t, http.StatusOK, rec.Code)
	c := findCookie(rec, browseCookieName)
	require.NotNil(t, c)

	assert.Zero(t, e.h.browse.evictIdle(time.Now()))
	assert.Equal(t, 1, e.h.browse.evictIdle(time.Now().Add(time.Hour)))
	assert.Zero(t, e.h.browse.len())

	rec = e.do(t, http.MethodGet, "/api/browse", "", c)
	require.Equal(t, http.StatusOK, rec.Code)
	fresh := findCookie(rec, browseCookieName)
	require.NotNil(t, fresh)
	assert.NotEqual(t, c.Value, fresh.Value)
}

func TestBrowse_EventStream(t *testing.T) {
	e := newTestEnv(t)
	srv := httptest.NewServer(e.router)
	t.Cleanup(srv.Close)

	req, err := http.NewRequestWithContext(t.Context(), http.MethodGet, srv.URL+"/api/browse/events", http.NoBody)
	require.NoError(t, err)
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	sc := bufio.NewScanner(resp.Body)
	var lines []string
	for sc.Scan() {
		line := sc.Text()
		if line == "" {
			break
		}
		lines = append(lines, line)
	}
	require.Len(t, lines, 3)
	assert.Equal(t, "event: snapshot", lines[1])
	require.True(t, strings.HasPrefix(lines[2], "data: "))

	var body browseBody
	require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(lines[2], "data: ")), &body))
	assert.Equal(t, "idle", body.Phase)
}

// nextSnapshot reads server-sent events until one event's data is decoded.
func nextSnapshot(t *testing.T, sc *bufio.Scanner) (browseBody, bool) {
	t.Helper()
	for sc.Scan() {
		data, ok := strings.CutPrefix(sc.Text(), "data: ")
		if !ok {
			continue
		}
		var body browseBody
		require.NoError(t, json.Unmarshal([]byte(data), &body))
		return body, true
	}
	return browseBody{}, false
}

func TestBrowse_StreamSharesSessionWithFilters(t *testing.T) {
	e := newTestEnv(t)
	srv := httptest.NewServer(e.router)
	t.Cleanup(srv.Close)

	rec := e.do(t, http.MethodGet, "/api/browse", "")
	require.Equal(t, http.StatusOK, rec.Code)
	c := findCookie(rec, browseCookieName)
	require.NotNil(t, c)

	ctx, cancel := context.WithTimeout(t.Context(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/browse/events", http.NoBody)
	require.NoError(t, err)
	req.AddCookie(c)
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	for _, sc := range resp.Cookies() {
		assert.NotEqual(t, browseCookieName, sc.Name, "stream reuses the session")
	}

	sc := bufio.NewScanner(resp.Body)
	first, ok := nextSnapshot(t, sc)
	require.True(t, ok)
	assert.Equal(t, c.Value, first.Session)

	rec = e.do(t, http.MethodPut, "/api/browse/filters", `{"media_types":["tv"]}`, c)
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	assert.Equal(t, c.Value, decode[browseBody](t, rec).Session)
	assert.Equal(t, 1, e.h.browse.len())

	for {
		snap, ok := nextSnapshot(t, sc)
		require.True(t, ok, "stream ended before the filters settled")
		assert.Equal(t, c.Value, snap.Session)
		if snap.Phase == "ready" {
			assert.Len(t, snap.Items, 2)
			return
		}
	}
}

func TestSession_StoreFailureIsGeneric500(t *testing.T) {
	e := newTestEnv(t)

	rec := e.do(t, http.MethodGet, "/auth/callback?code=good", "")
	require.Equal(t, http.StatusFound, rec.Code)
	c := findCookie(rec, authCookieName)
	require.NotNil(t, c)

	require.NoError(t, e.h.store.Close())

	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/api/session"},
		{http.MethodPost, "/auth/logout"},
	} {
		rec = e.do(t, tc.method, tc.path, "", c)
		assert.Equal(t, http.StatusInternalServerError, rec.Code, tc.path)
		body := decode[errorResponse](t, rec)
		assert.Equal(t, "internal error", body.Error, tc.path)
		assert.NotContains(t, rec.Body.String(), "closed", tc.path)
	}
}

func TestTrending_HugeOffset(t *testing.T) {
	e := newTestEnv(t)

	rec := e.do(t, http.MethodGet, "/api/trending?limit=3&offset="+strconv.Itoa(math.MaxInt), "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decode[trendingResponse](t, rec)
	require.Len(t, resp.Slots, 3)
	// math.MaxInt % 3 == 1
	assert.Equal(t, "Two", resp.Slots[0].Item.Title)
	assert.Equal(t, []int{2, 3, 1}, []int{resp.Slots[0].Rank, resp.Slots[1].Rank, resp.Slots[2].Rank})
}

func TestSPA_Fallback(t *testing.T) {
	spa, err := SPA(fstest.MapFS{
		"index.html": {Data: []byte("<html>nextep</html>")},
		"app.js":     {Data: []byte("console.log(1)")},
	})
	require.NoError(t, err)

	for path, want := range map[string]string{
		"/":        "<html>nextep</html>",
		"/login":   "<html>nextep</html>",
		"/app.js":  "console.log(1)",
		"/a/b/c/d": "<html>nextep</html>",
	} {
		rec := httptest.NewRecorder()
		spa.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, http.NoBody))
		assert.Equal(t, http.StatusOK, rec.Code, path)
		assert.Equal(t, want, rec.Body.String(), path)
	}

	rec := httptest.NewRecorder()
	spa.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/unknown", http.NoBody))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
