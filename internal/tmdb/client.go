// Package tmdb wraps the TMDB API for search, discover and trending.
package tmdb

import (
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/handsomefox/nextep/internal/discover"
	"github.com/handsomefox/nextep/internal/media"
	"github.com/handsomefox/nextep/internal/upstream"
)

const (
	DefaultBaseURL   = "https://api.themoviedb.org/3"
	DefaultImageBase = "https://image.tmdb.org/t/p/w500"

	service = "tmdb"
)

// ErrMissingCredential is returned by New when neither an api key nor a read
// token is configured.
var ErrMissingCredential = errors.New("tmdb: api key or read token is required")

type Window string

const (
	Day  Window = "day"
	Week Window = "week"
)

func (w Window) Valid() bool { return w == Day || w == Week }

type Config struct {
	APIKey     string
	ReadToken  string
	BaseURL    string
	HTTPClient *http.Client
}

type Client struct {
	apiKey    string
	readToken string
	baseURL   string
	http      *http.Client
}

type listResponse struct {
	Page         int `json:"page"`
	TotalPages   int `json:"total_pages"`
	TotalResults int `json:"total_results"`
	Results      []struct {
		ID           int64   `json:"id"`
		MediaType    string  `json:"media_type"`
		Title        string  `json:"title"`
		Name         string  `json:"name"`
		ReleaseDate  string  `json:"release_date"`
		FirstAirDate string  `json:"first_air_date"`
		PosterPath   string  `json:"poster_path"`
		Overview     string  `json:"overview"`
		VoteAverage  float64 `json:"vote_average"`
		VoteCount    int     `json:"vote_count"`
		GenreIDs     []int   `json:"genre_ids"`
	} `json:"results"`
}

type errorResponse struct {
	StatusCode    int    `json:"status_code"`
	StatusMessage string `json:"status_message"`
}

func New(cfg Config) (*Client, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	readToken := strings.TrimSpace(cfg.ReadToken)
	if readToken == "" && looksLikeJWT(apiKey) {
		readToken = apiKey
		apiKey = ""
	}
	if apiKey == "" && readToken == "" {
		return nil, ErrMissingCredential
	}

	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{
		apiKey:    apiKey,
		readToken: readToken,
		baseURL:   baseURL,
		http:      hc,
	}, nil
}

// Fetch executes a request descriptor built by discover.Builder.
func (c *Client) Fetch(ctx context.Context, req discover.Request) (media.Page, error) {
	return c.list(ctx, req.Endpoint, req.Query(), req.Kind)
}

// Trending lists titles trending over window, movies and tv mixed.
func (c *Client) Trending(ctx context.Context, window Window, locale string) (media.Page, error) {
	if !window.Valid() {
		return media.Page{}, fmt.Errorf("invalid trending window %q", window)
	}
	values := url.Values{}
	if locale != "" {
		values.Set("language", locale)
	}
	return c.list(ctx, "/trending/all/"+string(window), values, "")
}

func (c *Client) list(ctx context.Context, endpoint string, values url.Values, kindOverride media.Kind) (media.Page, error) {
	if c.apiKey != "" {
		values.Set("api_key", c.apiKey)
	}
	u := c.baseURL + endpoint
	if len(values) > 0 {
		u += "?" + values.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, http.NoBody)
	if err != nil {
		return media.Page{}, err
	}
	req.Header.Set("Accept", "application/json")
	c.applyAuth(req)

	var payload listResponse
	if err := upstream.Do(c.http, service, req, &payload, decodeError); err != nil {
		return media.Page{}, err
	}

	out := make([]media.Item, 0, len(payload.Results))
	for i := range payload.Results {
		r := payload.Results[i]
		kind := media.Kind(r.MediaType)
		if kindOverride != "" {
			kind = kindOverride
		}
		if !kind.Valid() {
			continue
		}
		item := media.Item{
			ID:          r.ID,
			Kind:        kind,
			PosterPath:  r.PosterPath,
			Overview:    r.Overview,
			VoteAverage: r.VoteAverage,
			VoteCount:   r.VoteCount,
			GenreIDs:    r.GenreIDs,
		}
		if kind == media.Movie {
			item.Title = r.Title
			item.ReleaseDate = r.ReleaseDate
		} else {
			item.Title = r.Name
			item.ReleaseDate = r.FirstAirDate
		}
		if item.Title == "" {
			item.Title = cmp.Or(r.Title, r.Name)
		}
		out = append(out, item)
	}
	return media.Page{
		Page:         payload.Page,
		Items:        out,
		TotalPages:   payload.TotalPages,
		TotalResults: payload.TotalResults,
	}, nil
}

func decodeError(body []byte) string {
	var payload errorResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	return payload.StatusMessage
}

func (c *Client) applyAuth(req *http.Request) {
	if c.readToken == "" {
		return
	}
	req.Header.Set("Authorization", "Bearer "+c.readToken)
}

func looksLikeJWT(token string) bool {
	parts := strings.Split(strings.TrimSpace(token), ".")
	return len(parts) == 3 && len(token) > 80
}

// PosterURL joins an image base with a poster path. Empty paths stay empty.
func PosterURL(imageBase, path string) string {
	if path == "" {
		return ""
	}
	return strings.TrimRight(imageBase, "/") + "/" + strings.TrimLeft(path, "/")
}
