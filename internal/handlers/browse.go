package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/handsomefox/nextep/internal/browse"
	"github.com/handsomefox/nextep/internal/discover"
	"github.com/handsomefox/nextep/internal/logger"
)

// settleTimeout bounds how long ?wait requests block for a settled state.
const settleTimeout = 15 * time.Second

type browseSession struct {
	id       string
	ctrl     *browse.Controller
	cancel   context.CancelFunc
	lastSeen atomic.Int64
	streams  atomic.Int32
}

func (s *browseSession) touch(now time.Time) { s.lastSeen.Store(now.UnixNano()) }

func (s *browseSession) idleSince(now time.Time) time.Duration {
	return now.Sub(time.Unix(0, s.lastSeen.Load()))
}

// browseRegistry owns one controller per browse cookie.
type browseRegistry struct {
	fetcher  browse.Fetcher
	builder  *discover.Builder
	debounce time.Duration
	idleTTL  time.Duration
	logger   *slog.Logger

	mu       sync.Mutex
	sessions map[string]*browseSession
	closed   bool
}

func newBrowseRegistry(fetcher browse.Fetcher, builder *discover.Builder, debounce, idleTTL time.Duration, log *slog.Logger) *browseRegistry {
	return &browseRegistry{
		fetcher:  fetcher,
		builder:  builder,
		debounce: debounce,
		idleTTL:  idleTTL,
		logger:   log,
		sessions: map[string]*browseSession{},
	}
}

// session returns the caller's session, starting a new one when the cookie is
// missing, malformed or expired.
func (b *browseRegistry) session(w http.ResponseWriter, r *http.Request) (*browseSession, error) {
	now := time.Now()
	var id string
	if c, err := r.Cookie(browseCookieName); err == nil {
		if parsed, err := uuid.Parse(c.Value); err == nil {
			id = parsed.String()
		}
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, browse.ErrStopped
	}
	if s, ok := b.sessions[id]; ok && id != "" {
		s.touch(now)
		return s, nil
	}

	ctrl, err := browse.New(b.fetcher, b.builder,
		browse.WithDebounce(b.debounce),
		browse.WithLogger(b.logger),
	)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &browseSession{id: uuid.NewString(), ctrl: ctrl, cancel: cancel}
	s.touch(now)
	b.sessions[s.id] = s

	go func() {
		if err := ctrl.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			b.logger.Warn("browse controller stopped", slog.String("session", s.id), logger.Error(err))
		}
	}()

	setBrowseCookie(w, s.id)
	return s, nil
}

// evictIdle stops sessions unused for longer than the idle TTL. Sessions with
// an open event stream are kept.
func (b *browseRegistry) evictIdle(now time.Time) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for id, s := range b.sessions {
		if s.streams.Load() > 0 || s.idleSince(now) < b.idleTTL {
			continue
		}
		s.cancel()
		delete(b.sessions, id)
		n++
	}
	return n
}

func (b *browseRegistry) len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.sessions)
}

func (b *browseRegistry) close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	for id, s := range b.sessions {
		s.cancel()
		delete(b.sessions, id)
	}
}

func (h *Handler) getBrowse(w http.ResponseWriter, r *http.Request) error {
	s, err := h.browse.session(w, r)
	if err != nil {
		return err
	}
	snap := s.ctrl.Snapshot()
	writeJSON(w, http.StatusOK, h.toBrowse(s.id, &snap))
	return nil
}

// putBrowseFilters replaces the session's filters. Fields missing from the
// body keep their defaults. With ?wait the response is the settled state.
func (h *Handler) putBrowseFilters(w http.ResponseWriter, r *http.Request) error {
	s, err := h.browse.session(w, r)
	if err != nil {
		return err
	}

	f := discover.Defaults(h.builder.Limits())
	if err := decodeJSON(r, &f); err != nil {
		return badRequest("bad request")
	}

	before := s.ctrl.Snapshot().Version
	if err := s.ctrl.SetFilters(r.Context(), f); err != nil {
		if errors.Is(err, browse.ErrStopped) || errors.Is(err, context.Canceled) {
			return err
		}
		return badRequest(err.Error())
	}
	return h.respondBrowse(w, r, s, before)
}

// postBrowseMore signals that the end of the list is visible.
func (h *Handler) postBrowseMore(w http.ResponseWriter, r *http.Request) error {
	s, err := h.browse.session(w, r)
	if err != nil {
		return err
	}
	before := s.ctrl.Snapshot().Version
	if err := s.ctrl.SentinelVisible(r.Context()); err != nil {
		return err
	}
	return h.respondBrowse(w, r, s, before)
}

func (h *Handler) respondBrowse(w http.ResponseWriter, r *http.Request, s *browseSession, before uint64) error {
	if !r.URL.Query().Has("wait") {
		snap := s.ctrl.Snapshot()
		writeJSON(w, http.StatusAccepted, h.toBrowse(s.id, &snap))
		return nil
	}

	ctx, cancel := context.WithTimeout(r.Context(), settleTimeout)
	defer cancel()
	snap, err := s.ctrl.AwaitSettled(ctx, before)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return &Error{Status: http.StatusGatewayTimeout, Message: "browse did not settle"}
		}
		return err
	}
	writeJSON(w, http.StatusOK, h.toBrowse(s.id, &snap))
	return nil
}

// getBrowseEvents streams every published snapshot as a server-sent event.
// A slow client only skips intermediate states.
func (h *Handler) getBrowseEvents(w http.ResponseWriter, r *http.Request) error {
	s, err := h.browse.session(w, r)
	if err != nil {
		return err
	}
	s.streams.Add(1)
	defer func() {
		s.touch(time.Now())
		s.streams.Add(-1)
	}()

	rc := http.NewResponseController(w)
	// Streams outlive the server write timeout.
	_ = rc.SetWriteDeadline(time.Time{})

	updates, unsubscribe := s.ctrl.Subscribe(1)
	defer unsubscribe()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	snap := s.ctrl.Snapshot()
	if err := h.writeEvent(w, rc, s.id, &snap); err != nil {
		return nil
	}
	for {
		select {
		case <-r.Context().Done():
			return nil
		case snap, ok := <-updates:
			if !ok {
				return nil
			}
			s.touch(time.Now())
			if err := h.writeEvent(w, rc, s.id, &snap); err != nil {
				h.logger.Debug("browse stream closed", slog.String("session", s.id), logger.Error(err))
				return nil
			}
		}
	}
}

func (h *Handler) writeEvent(w http.ResponseWriter, rc *http.ResponseController, id string, snap *browse.Snapshot) error {
	data, err := json.Marshal(h.toBrowse(id, snap))
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "id: %d\nevent: snapshot\ndata: %s\n\n", snap.Version, data); err != nil {
		return err
	}
	return rc.Flush()
}
