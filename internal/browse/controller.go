// Package browse drives a paged, debounced result list for one discovery
// screen. All state is owned by the goroutine running Controller.Run; the
// public methods post messages to it.
package browse

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/handsomefox/nextep/internal/discover"
	"github.com/handsomefox/nextep/internal/logger"
	"github.com/handsomefox/nextep/internal/media"
)

//go:generate mockgen -destination=mocks/mock_fetcher.go -package=mocks github.com/handsomefox/nextep/internal/browse Fetcher

// Fetcher executes catalog requests. *tmdb.Client satisfies it.
type Fetcher interface {
	Fetch(ctx context.Context, req discover.Request) (media.Page, error)
}

const (
	DefaultDebounce = 400 * time.Millisecond

	inboxSize = 32
)

var (
	ErrStopped        = errors.New("browse: controller stopped")
	ErrAlreadyRunning = errors.New("browse: controller already running")
)

type Option func(*Controller)

func WithDebounce(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.debounce = d
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.logger = l
		}
	}
}

type Controller struct {
	fetcher  Fetcher
	builder  *discover.Builder
	debounce time.Duration
	logger   *slog.Logger

	inbox   chan any
	done    chan struct{}
	running atomic.Bool

	mu      sync.Mutex
	snap    Snapshot
	subs    map[int]chan Snapshot
	nextSub int
	stopped bool

	st loopState
}

// loopState is only touched by the Run goroutine.
type loopState struct {
	filters  discover.FilterState
	pending  *discover.FilterState
	timer    *time.Timer
	timerSeq uint64

	gen      uint64
	inFlight bool

	phase      Phase
	mode       discover.Mode
	page       int
	totalPages int
	hasMore    bool
	items      []media.Item
	seen       map[media.Key]struct{}
	errMsg     string
	version    uint64
}

type (
	filtersMsg  struct{ filters discover.FilterState }
	sentinelMsg struct{}
	debounceMsg struct{ seq uint64 }
	fetchMsg    struct {
		gen    uint64
		page   int
		extend bool
		result media.Page
		err    error
	}
)

func New(fetcher Fetcher, builder *discover.Builder, opts ...Option) (*Controller, error) {
	if fetcher == nil {
		return nil, errors.New("browse: fetcher is required")
	}
	if builder == nil {
		return nil, errors.New("browse: builder is required")
	}
	c := &Controller{
		fetcher:  fetcher,
		builder:  builder,
		debounce: DefaultDebounce,
		logger:   slog.Default(),
		inbox:    make(chan any, inboxSize),
		done:     make(chan struct{}),
		subs:     make(map[int]chan Snapshot),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.snap = Snapshot{Phase: PhaseIdle, Filters: discover.Defaults(builder.Limits())}
	c.st.filters = c.snap.Filters.Clone()
	return c, nil
}

// Run processes messages until ctx is done. It may be called once.
func (c *Controller) Run(ctx context.Context) error {
	if !c.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	defer c.stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg := <-c.inbox:
			c.handle(ctx, msg)
		}
	}
}

// SetFilters replaces the filter state. The page-1 refetch happens once no
// further change arrives for the debounce window.
func (c *Controller) SetFilters(ctx context.Context, f discover.FilterState) error {
	if err := f.Validate(c.builder.Limits()); err != nil {
		return err
	}
	return c.send(ctx, filtersMsg{filters: f.Clone()})
}

// SentinelVisible reports that the end of the list scrolled into view. It
// loads the next page only in discover mode, when more pages remain and
// nothing is in flight; otherwise the current state is republished.
func (c *Controller) SentinelVisible(ctx context.Context) error {
	return c.send(ctx, sentinelMsg{})
}

// Snapshot returns the last published state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snap
}

// Subscribe delivers every published snapshot. A slow reader only misses
// intermediate states, never the latest one. The channel is closed when the
// controller stops or cancel is called.
func (c *Controller) Subscribe(bufferSize int) (<-chan Snapshot, func()) {
	if bufferSize < 1 {
		bufferSize = 1
	}
	ch := make(chan Snapshot, bufferSize)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopped {
		close(ch)
		return ch, func() {}
	}
	id := c.nextSub
	c.nextSub++
	c.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			if sub, ok := c.subs[id]; ok {
				delete(c.subs, id)
				close(sub)
			}
		})
	}
}

// Await blocks until cond holds for a published snapshot.
func (c *Controller) Await(ctx context.Context, cond func(*Snapshot) bool) (Snapshot, error) {
	ch, cancel := c.Subscribe(1)
	defer cancel()

	if snap := c.Snapshot(); cond(&snap) {
		return snap, nil
	}
	for {
		select {
		case <-ctx.Done():
			return Snapshot{}, ctx.Err()
		case snap, ok := <-ch:
			if !ok {
				return Snapshot{}, ErrStopped
			}
			if cond(&snap) {
				return snap, nil
			}
		}
	}
}

// AwaitSettled waits for the first settled snapshot newer than version.
func (c *Controller) AwaitSettled(ctx context.Context, version uint64) (Snapshot, error) {
	return c.Await(ctx, func(s *Snapshot) bool { return s.Version > version && s.Settled() })
}

func (c *Controller) send(ctx context.Context, msg any) error {
	select {
	case c.inbox <- msg:
		return nil
	case <-c.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// post is used by timers and fetch goroutines, which have no caller context.
func (c *Controller) post(msg any) {
	select {
	case c.inbox <- msg:
	case <-c.done:
	}
}

func (c *Controller) stop() {
	if c.st.timer != nil {
		c.st.timer.Stop()
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopped = true
	close(c.done)
	for id, ch := range c.subs {
		delete(c.subs, id)
		close(ch)
	}
}

func (c *Controller) handle(ctx context.Context, msg any) {
	switch m := msg.(type) {
	case filtersMsg:
		c.onFilters(m)
	case debounceMsg:
		c.onDebounce(ctx, m)
	case sentinelMsg:
		c.onSentinel(ctx)
	case fetchMsg:
		c.onFetched(m)
	}
}

func (c *Controller) onFilters(m filtersMsg) {
	st := &c.st
	st.pending = &m.filters
	st.timerSeq++
	seq := st.timerSeq
	if st.timer != nil {
		st.timer.Stop()
	}
	st.timer = time.AfterFunc(c.debounce, func() { c.post(debounceMsg{seq: seq}) })
	c.publish()
}

func (c *Controller) onDebounce(ctx context.Context, m debounceMsg) {
	st := &c.st
	if m.seq != st.timerSeq || st.pending == nil {
		return
	}
	st.filters = *st.pending
	st.pending = nil
	st.timer = nil

	st.mode = c.builder.Mode(&st.filters)
	st.page = 0
	st.totalPages = 0
	st.hasMore = false
	st.items = nil
	st.seen = make(map[media.Key]struct{})
	st.errMsg = ""
	st.phase = PhaseLoading

	c.issue(ctx, 1, false)
	c.publish()
}

// onSentinel publishes even when the signal is ignored, so a caller waiting
// for a newer settled snapshot is answered with the unchanged state.
func (c *Controller) onSentinel(ctx context.Context) {
	st := &c.st
	if st.phase == PhaseReady && st.hasMore && !st.inFlight && st.mode == discover.ModeDiscover && st.pending == nil {
		st.phase = PhaseLoadingMore
		c.issue(ctx, st.page+1, true)
	}
	c.publish()
}

// issue starts a fetch tagged with a fresh generation. Completions carrying
// an older generation are dropped in onFetched.
func (c *Controller) issue(ctx context.Context, page int, extend bool) {
	st := &c.st
	st.gen++
	st.inFlight = true
	gen := st.gen
	req := c.builder.Build(&st.filters, page)

	c.logger.Debug("browse fetch",
		slog.String("mode", req.Mode.String()),
		slog.String("endpoint", req.Endpoint),
		slog.Int("page", req.Page()),
		slog.Uint64("gen", gen))

	go func() {
		res, err := c.fetcher.Fetch(ctx, req)
		c.post(fetchMsg{gen: gen, page: req.Page(), extend: extend, result: res, err: err})
	}()
}

func (c *Controller) onFetched(m fetchMsg) {
	st := &c.st
	if m.gen != st.gen {
		c.logger.Debug("browse: discarding stale response", slog.Uint64("gen", m.gen), slog.Uint64("current", st.gen))
		return
	}
	st.inFlight = false

	if m.err != nil {
		c.logger.Warn("browse fetch failed",
			slog.String("mode", st.mode.String()),
			slog.Int("page", m.page),
			logger.Error(m.err))
		if st.mode == discover.ModeSearch {
			st.errMsg = m.err.Error()
		}
		if st.page == 0 {
			st.phase = PhaseIdle
		} else {
			st.phase = PhaseReady
		}
		c.publish()
		return
	}

	if !m.extend {
		st.items = nil
		st.seen = make(map[media.Key]struct{}, len(m.result.Items))
	}
	for i := range m.result.Items {
		item := m.result.Items[i]
		key := item.Key()
		if _, dup := st.seen[key]; dup {
			continue
		}
		st.seen[key] = struct{}{}
		st.items = append(st.items, item)
	}

	st.page = m.page
	if m.result.Page > 0 {
		st.page = m.result.Page
	}
	st.totalPages = m.result.TotalPages
	st.hasMore = st.mode == discover.ModeDiscover && st.page < st.totalPages && len(m.result.Items) > 0
	st.errMsg = ""
	if st.hasMore {
		st.phase = PhaseReady
	} else {
		st.phase = PhaseExhausted
	}
	c.publish()
}

func (c *Controller) publish() {
	st := &c.st
	st.version++
	snap := Snapshot{
		Phase:      st.phase,
		Mode:       st.mode,
		Filters:    st.filters.Clone(),
		Page:       st.page,
		TotalPages: st.totalPages,
		HasMore:    st.hasMore,
		Items:      slices.Clone(st.items),
		Error:      st.errMsg,
		Pending:    st.pending != nil,
		Version:    st.version,
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.snap = snap
	for _, ch := range c.subs {
		select {
		case ch <- snap:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- snap:
			default:
			}
		}
	}
}
