package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/handsomefox/nextep/internal/browse"
	"github.com/handsomefox/nextep/internal/carousel"
	"github.com/handsomefox/nextep/internal/media"
)

func newFakeCatalog(t *testing.T) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var discoverCalls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("GET /search/multi", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "cidade de deus", r.URL.Query().Get("query"))
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"page":1,"total_pages":1,"total_results":1,"results":[
			{"id":598,"media_type":"movie","title":"Cidade de Deus","release_date":"2002-08-30","vote_average":8.4,"vote_count":7000}]}`)
	})
	mux.HandleFunc("GET /discover/tv", func(w http.ResponseWriter, r *http.Request) {
		discoverCalls.Add(1)
		page := r.URL.Query().Get("page")
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"page":%s,"total_pages":3,"total_results":6,"results":[
			{"id":%s1,"name":"Show %s-1","first_air_date":"2010-01-01"},{"id":%s2,"name":"Show %s-2"}]}`,
			page, page, page, page, page)
	})
	mux.HandleFunc("GET /trending/all/week", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"page":1,"total_pages":1,"total_results":2,"results":[
			{"id":1,"media_type":"movie","title":"First"},{"id":2,"media_type":"tv","name":"Second"}]}`)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, &discoverCalls
}

func setupEnv(t *testing.T, baseURL string) {
	t.Helper()
	for _, k := range []string{"NEXTEP_CONFIG", "TMDB_API_READ_TOKEN", "TMDB_LOCALE", "CERTIFICATION_COUNTRY",
		"VOTE_COUNT_CEILING", "YEAR_FLOOR", "YEAR_CEILING", "SESSION_IDLE_TTL", "PORT"} {
		t.Setenv(k, "")
	}
	t.Setenv("TMDB_API_KEY", "test-key")
	t.Setenv("TMDB_BASE_URL", baseURL)
	t.Setenv("BROWSE_DEBOUNCE", "5ms")
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestSearchCmd(t *testing.T) {
	srv, _ := newFakeCatalog(t)
	setupEnv(t, srv.URL)

	out, err := execute(t, "search", "cidade", "de", "deus")
	require.NoError(t, err)
	assert.Contains(t, out, `Found 1 results for "cidade de deus"`)
	assert.Contains(t, out, "Cidade de Deus")
	assert.Contains(t, out, "2002")
}

func TestSearchCmd_ShortQuery(t *testing.T) {
	srv, _ := newFakeCatalog(t)
	setupEnv(t, srv.URL)

	_, err := execute(t, "search", "x")
	assert.ErrorContains(t, err, "at least 2 characters")
}

func TestDiscoverCmd_LoadsPages(t *testing.T) {
	srv, calls := newFakeCatalog(t)
	setupEnv(t, srv.URL)

	out, err := execute(t, "discover", "--type", "tv", "--pages", "2", "--json")
	require.NoError(t, err)

	var snap struct {
		Phase   string       `json:"phase"`
		Page    int          `json:"page"`
		HasMore bool         `json:"has_more"`
		Items   []media.Item `json:"items"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &snap))
	assert.Equal(t, browse.PhaseReady.String(), snap.Phase)
	assert.Equal(t, 2, snap.Page)
	assert.True(t, snap.HasMore)
	require.Len(t, snap.Items, 4)
	assert.Equal(t, "Show 1-1", snap.Items[0].Title)
	assert.Equal(t, media.TV, snap.Items[0].Kind)
	assert.EqualValues(t, 2, calls.Load())
}

func TestDiscoverCmd_StopsWhenExhausted(t *testing.T) {
	srv, calls := newFakeCatalog(t)
	setupEnv(t, srv.URL)

	out, err := execute(t, "discover", "--type", "tv", "--pages", "10")
	require.NoError(t, err)
	assert.Contains(t, out, "discover: 6 titles, page 3 of 3")
	assert.EqualValues(t, 3, calls.Load())
}

func TestDiscoverCmd_InvalidFilters(t *testing.T) {
	srv, calls := newFakeCatalog(t)
	setupEnv(t, srv.URL)

	_, err := execute(t, "discover", "--year-min", "2000", "--year-max", "1990")
	assert.Error(t, err)

	_, err = execute(t, "discover", "--type", "book")
	assert.Error(t, err)

	_, err = execute(t, "discover", "--vote-min", "NaN")
	assert.ErrorContains(t, err, "vote average")
	assert.Zero(t, calls.Load())
}

func TestTrendingCmd_WrapsAround(t *testing.T) {
	srv, _ := newFakeCatalog(t)
	setupEnv(t, srv.URL)

	out, err := execute(t, "trending", "--offset", "1", "--limit", "3", "--json")
	require.NoError(t, err)

	var slots []carousel.Slot[media.Item]
	require.NoError(t, json.Unmarshal([]byte(out), &slots))
	require.Len(t, slots, 3)
	assert.Equal(t, []string{"Second", "First", "Second"}, []string{slots[0].Item.Title, slots[1].Item.Title, slots[2].Item.Title})
	assert.Equal(t, []int{2, 1, 2}, []int{slots[0].Rank, slots[1].Rank, slots[2].Rank})
}

func TestTrendingCmd_BadWindow(t *testing.T) {
	srv, _ := newFakeCatalog(t)
	setupEnv(t, srv.URL)

	_, err := execute(t, "trending", "--window", "month")
	assert.Error(t, err)
}

func TestRoot_MissingCredential(t *testing.T) {
	setupEnv(t, "http://127.0.0.1:0")
	t.Setenv("TMDB_API_KEY", "")

	_, err := execute(t, "trending")
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "TMDB_API_KEY"))
}
