package browse

import (
	"github.com/handsomefox/nextep/internal/discover"
	"github.com/handsomefox/nextep/internal/media"
)

type Phase int

const (
	PhaseIdle Phase = iota
	PhaseLoading
	PhaseReady
	PhaseLoadingMore
	PhaseExhausted
)

func (p Phase) String() string {
	switch p {
	case PhaseLoading:
		return "loading"
	case PhaseReady:
		return "ready"
	case PhaseLoadingMore:
		return "loading_more"
	case PhaseExhausted:
		return "exhausted"
	default:
		return "idle"
	}
}

func (p Phase) MarshalText() ([]byte, error) { return []byte(p.String()), nil }

// Snapshot is an immutable copy of the controller state.
type Snapshot struct {
	Phase      Phase                `json:"phase"`
	Mode       discover.Mode        `json:"mode"`
	Filters    discover.FilterState `json:"filters"`
	Page       int                  `json:"page"`
	TotalPages int                  `json:"total_pages"`
	HasMore    bool                 `json:"has_more"`
	Items      []media.Item         `json:"items"`
	// Error is the last search failure. Discover failures are not surfaced.
	Error string `json:"error,omitempty"`
	// Pending is set while a filter change waits out the debounce window.
	Pending bool   `json:"pending"`
	Version uint64 `json:"version"`
}

// Settled reports that no fetch or debounce is outstanding.
func (s *Snapshot) Settled() bool {
	if s.Pending {
		return false
	}
	return s.Phase != PhaseLoading && s.Phase != PhaseLoadingMore
}
