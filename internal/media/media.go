// Package media defines the catalog types shared between the query builder,
// the catalog client and the pagination controller.
package media

import "fmt"

type Kind string

const (
	Movie Kind = "movie"
	TV    Kind = "tv"
)

func (k Kind) Valid() bool { return k == Movie || k == TV }

func ParseKind(s string) (Kind, error) {
	k := Kind(s)
	if !k.Valid() {
		return "", fmt.Errorf("invalid media type %q", s)
	}
	return k, nil
}

// Item is a catalog title. Identity is (Kind, ID).
type Item struct {
	ID          int64   `json:"id"`
	Kind        Kind    `json:"media_type"`
	Title       string  `json:"title"`
	PosterPath  string  `json:"poster_path,omitempty"`
	ReleaseDate string  `json:"release_date,omitempty"`
	VoteAverage float64 `json:"vote_average"`
	VoteCount   int     `json:"vote_count"`
	Overview    string  `json:"overview,omitempty"`
	GenreIDs    []int   `json:"genre_ids,omitempty"`
}

type Key struct {
	Kind Kind
	ID   int64
}

func (it *Item) Key() Key { return Key{Kind: it.Kind, ID: it.ID} }

// Year returns the four digit year of the release date, or "".
func (it *Item) Year() string {
	if len(it.ReleaseDate) < 4 {
		return ""
	}
	return it.ReleaseDate[:4]
}

// Page is one page of catalog results.
type Page struct {
	Page         int    `json:"page"`
	Items        []Item `json:"results"`
	TotalPages   int    `json:"total_pages"`
	TotalResults int    `json:"total_results"`
}

// HasMore is true only when a further page exists and this one was not empty.
func (p *Page) HasMore() bool {
	return p.Page < p.TotalPages && len(p.Items) > 0
}
