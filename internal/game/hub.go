package game

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"clickchess/internal/logging"
)

// Archive records sessions when they start, when they end, and when they are
// dropped unfinished.
type Archive interface {
	CreateGame(ctx context.Context, st State) error
	CompleteGame(ctx context.Context, st State) error
	AbandonGame(ctx context.Context, id string, when time.Time) error
}

// Cache keeps the latest snapshot of each live session.
type Cache interface {
	Save(ctx context.Context, st State) error
	Delete(ctx context.Context, id string) error
}

const storeTimeout = 2 * time.Second

// HubConfig configures NewHub. Archive and Cache are optional.
type HubConfig struct {
	Defaults   Options
	IdleTTL    time.Duration
	EndedTTL   time.Duration // how long a finished session stays after it was last seen
	SweepEvery time.Duration
	Archive    Archive
	Cache      Cache
}

// Hub manages all active sessions, keyed by id.
type Hub struct {
	Mu       sync.Mutex
	Sessions map[string]*Session

	cfg        HubConfig
	dirty      chan string
	archivedMu sync.Mutex
	archived   map[string]bool
	stop       chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewHub creates a hub and starts its cleanup and sync goroutines.
func NewHub(cfg HubConfig) *Hub {
	if cfg.IdleTTL <= 0 {
		cfg.IdleTTL = 24 * time.Hour
	}
	if cfg.EndedTTL <= 0 {
		cfg.EndedTTL = 10 * time.Minute
	}
	if cfg.EndedTTL > cfg.IdleTTL {
		cfg.EndedTTL = cfg.IdleTTL
	}
	if cfg.SweepEvery <= 0 {
		cfg.SweepEvery = 5 * time.Minute
	}
	h := &Hub{
		Sessions: make(map[string]*Session),
		cfg:      cfg,
		dirty:    make(chan string, 256),
		archived: make(map[string]bool),
		stop:     make(chan struct{}),
	}
	h.wg.Add(2)
	go h.cleanupLoop()
	go h.syncLoop()
	return h
}

func (h *Hub) cleanupLoop() {
	defer h.wg.Done()
	t := time.NewTicker(h.cfg.SweepEvery)
	defer t.Stop()
	for {
		select {
		case <-t.C:
			h.Sweep(time.Now())
		case <-h.stop:
			return
		}
	}
}

// Sweep removes sessions idle for longer than IdleTTL, and finished sessions
// not seen for EndedTTL.
func (h *Hub) Sweep(now time.Time) int {
	h.Mu.Lock()
	var idle []string
	for id, s := range h.Sessions {
		ttl := h.cfg.IdleTTL
		if !s.Ongoing() {
			ttl = h.cfg.EndedTTL
		}
		if now.Sub(s.LastSeen()) > ttl {
			idle = append(idle, id)
		}
	}
	h.Mu.Unlock()
	for _, id := range idle {
		h.Remove(id)
	}
	if len(idle) > 0 {
		logging.L().Info("hub_sweep", zap.Int("removed", len(idle)))
	}
	return len(idle)
}

// Create starts a session with the hub defaults overridden by non-zero
// fields of opts.
func (h *Hub) Create(opts Options) (*Session, error) {
	s, err := NewSession(uuid.NewString(), h.merge(opts))
	if err != nil {
		return nil, err
	}
	h.Mu.Lock()
	h.Sessions[s.ID()] = s
	h.Mu.Unlock()

	id := s.ID()
	s.Subscribe(func(e Event) {
		if e.Kind != EventGameEnded {
			h.markDirty(id)
			return
		}
		// The final snapshot must reach the archive even when the queue is full.
		go func() {
			select {
			case h.dirty <- id:
			case <-h.stop:
			}
		}()
	})

	if h.cfg.Archive != nil {
		ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
		err := h.cfg.Archive.CreateGame(ctx, s.Snapshot())
		cancel()
		if err != nil {
			logging.L().Warn("archive_create_failed", zap.String("session_id", id), zap.Error(err))
		}
	}
	h.markDirty(id)
	return s, nil
}

func (h *Hub) merge(opts Options) Options {
	out := h.cfg.Defaults
	if opts.WhiteName != "" {
		out.WhiteName = opts.WhiteName
	}
	if opts.BlackName != "" {
		out.BlackName = opts.BlackName
	}
	if opts.Seconds > 0 {
		out.Seconds = opts.Seconds
	}
	if opts.Tick > 0 {
		out.Tick = opts.Tick
	}
	if opts.FEN != "" {
		out.FEN = opts.FEN
	}
	out.KingSafety = out.KingSafety || opts.KingSafety
	out.StartClock = out.StartClock || opts.StartClock
	return out
}

// Get returns the session with id.
func (h *Hub) Get(id string) (*Session, error) {
	h.Mu.Lock()
	defer h.Mu.Unlock()
	s, ok := h.Sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return s, nil
}

// Remove closes and forgets the session with id.
func (h *Hub) Remove(id string) bool {
	h.Mu.Lock()
	s, ok := h.Sessions[id]
	delete(h.Sessions, id)
	h.Mu.Unlock()
	if !ok {
		return false
	}
	s.Close()
	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()
	if s.Ongoing() {
		if h.cfg.Archive != nil {
			if err := h.cfg.Archive.AbandonGame(ctx, id, time.Now()); err != nil {
				logging.L().Warn("archive_abandon_failed", zap.String("session_id", id), zap.Error(err))
			}
		}
	} else {
		h.complete(ctx, s.Snapshot())
	}
	if h.cfg.Cache != nil {
		if err := h.cfg.Cache.Delete(ctx, id); err != nil {
			logging.L().Warn("cache_delete_failed", zap.String("session_id", id), zap.Error(err))
		}
	}
	return true
}

// List returns the ids of all sessions in sorted order.
func (h *Hub) List() []string {
	h.Mu.Lock()
	ids := make([]string, 0, len(h.Sessions))
	for id := range h.Sessions {
		ids = append(ids, id)
	}
	h.Mu.Unlock()
	sort.Strings(ids)
	return ids
}

// Len is the number of live sessions.
func (h *Hub) Len() int {
	h.Mu.Lock()
	defer h.Mu.Unlock()
	return len(h.Sessions)
}

func (h *Hub) markDirty(id string) {
	select {
	case h.dirty <- id:
	default:
	}
}

func (h *Hub) syncLoop() {
	defer h.wg.Done()
	for {
		select {
		case id := <-h.dirty:
			h.sync(id)
		case <-h.stop:
			return
		}
	}
}

// sync pushes the latest snapshot to the cache and archives finished games once.
func (h *Hub) sync(id string) {
	s, err := h.Get(id)
	if err != nil {
		h.archivedMu.Lock()
		delete(h.archived, id)
		h.archivedMu.Unlock()
		return
	}
	st := s.Snapshot()
	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()
	if h.cfg.Cache != nil {
		if err := h.cfg.Cache.Save(ctx, st); err != nil {
			logging.L().Warn("cache_save_failed", zap.String("session_id", id), zap.Error(err))
		}
	}
	if !st.Ongoing {
		h.complete(ctx, st)
	}
}

// complete archives a finished session. Each session is archived at most once,
// whether sync or Remove gets there first.
func (h *Hub) complete(ctx context.Context, st State) {
	h.archivedMu.Lock()
	done := h.archived[st.ID]
	h.archived[st.ID] = true
	h.archivedMu.Unlock()
	if done || h.cfg.Archive == nil {
		return
	}
	if err := h.cfg.Archive.CompleteGame(ctx, st); err != nil {
		logging.L().Warn("archive_complete_failed", zap.String("session_id", st.ID), zap.Error(err))
	}
}

// Close stops the background goroutines and every session.
func (h *Hub) Close() {
	h.stopOnce.Do(func() {
		close(h.stop)
		h.wg.Wait()
		for _, id := range h.List() {
			h.Remove(id)
		}
	})
}
