package handlers

import (
	"github.com/handsomefox/nextep/internal/browse"
	"github.com/handsomefox/nextep/internal/carousel"
	"github.com/handsomefox/nextep/internal/discover"
	"github.com/handsomefox/nextep/internal/media"
	"github.com/handsomefox/nextep/internal/tmdb"
)

type errorResponse struct {
	Error string `json:"error"`
}

type sessionResponse struct {
	Authenticated bool    `json:"authenticated"`
	Username      *string `json:"username,omitempty"`
	Name          *string `json:"name,omitempty"`
	AvatarURL     *string `json:"avatar_url,omitempty"`
	ImageBase     string  `json:"image_base"`
}

type itemResponse struct {
	media.Item
	Year      string `json:"year,omitempty"`
	PosterURL string `json:"poster_url,omitempty"`
}

type pageResponse struct {
	Mode         discover.Mode  `json:"mode"`
	Page         int            `json:"page"`
	TotalPages   int            `json:"total_pages"`
	TotalResults int            `json:"total_results"`
	HasMore      bool           `json:"has_more"`
	Items        []itemResponse `json:"items"`
}

type trendingResponse struct {
	Window tmdb.Window                    `json:"window"`
	Total  int                            `json:"total"`
	Slots  []carousel.Slot[itemResponse] `json:"slots"`
}

type genresResponse struct {
	Type   media.Kind   `json:"type"`
	Genres []tmdb.Genre `json:"genres"`
}

type browseResponse struct {
	Session string `json:"session"`
	browse.Snapshot
	Items []itemResponse `json:"items"`
}

func (h *Handler) toItem(it media.Item) itemResponse {
	return itemResponse{
		Item:      it,
		Year:      it.Year(),
		PosterURL: tmdb.PosterURL(h.imageBase, it.PosterPath),
	}
}

func (h *Handler) toItems(items []media.Item) []itemResponse {
	out := make([]itemResponse, 0, len(items))
	for _, it := range items {
		out = append(out, h.toItem(it))
	}
	return out
}

func (h *Handler) toPage(mode discover.Mode, p *media.Page) *pageResponse {
	return &pageResponse{
		Mode:         mode,
		Page:         p.Page,
		TotalPages:   p.TotalPages,
		TotalResults: p.TotalResults,
		HasMore:      mode == discover.ModeDiscover && p.HasMore(),
		Items:        h.toItems(p.Items),
	}
}

func (h *Handler) toBrowse(id string, snap *browse.Snapshot) *browseResponse {
	return &browseResponse{Session: id, Snapshot: *snap, Items: h.toItems(snap.Items)}
}
