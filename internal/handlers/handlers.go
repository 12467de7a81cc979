package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"clickchess/internal/board"
	"clickchess/internal/game"
	"clickchess/internal/logging"
	"clickchess/internal/storage"
)

const heartbeat = 15 * time.Second

// Handler contains dependencies for HTTP handlers
type Handler struct {
	Hub     *game.Hub
	Store   *storage.Store
	Version string
}

// NewHandler creates a new handler instance. store may be nil.
func NewHandler(hub *game.Hub, store *storage.Store, version string) *Handler {
	return &Handler{Hub: hub, Store: store, Version: version}
}

// Routes builds the router for the host adapter.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(Recover)
	r.Use(AccessLog)

	r.Get("/version", h.HandleVersion)
	r.Get("/stats", h.HandleStats)
	r.Post("/new", h.HandleNew)
	r.Get("/archive/{id}", h.HandleArchive)
	r.Get("/sse/{id}", h.HandleSSE)
	r.Get("/ws/{id}", h.HandleWS)

	r.Route("/sessions/{id}", func(r chi.Router) {
		r.Get("/", h.HandleState)
		r.Delete("/", h.HandleRemove)
		r.Post("/click", h.HandleClick)
		r.Post("/promote", h.HandlePromote)
		r.Post("/forfeit", h.HandleForfeit)
		r.Post("/draw", h.HandleDraw)
		r.Post("/start", h.HandleStart)
		r.Post("/players/{color}", h.HandlePlayer)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusNotFound, map[string]any{"ok": false, "error": "not found"})
	})
	return r
}

type newRequest struct {
	White      string `json:"white"`
	Black      string `json:"black"`
	Seconds    int    `json:"seconds"`
	KingSafety bool   `json:"kingSafety"`
	FEN        string `json:"fen"`
	StartClock bool   `json:"startClock"`
}

type clickRequest struct {
	X int `json:"x"`
	Y int `json:"y"`
}

type promoteRequest struct {
	Piece string `json:"piece"`
}

type playerRequest struct {
	Name    *string `json:"name"`
	Seconds *int    `json:"seconds"`
}

// HandleNew creates a session and returns its initial state
func (h *Handler) HandleNew(w http.ResponseWriter, r *http.Request) {
	var req newRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteJSON(w, http.StatusBadRequest, map[string]any{"ok": false, "error": "bad json"})
			return
		}
	}
	s, err := h.Hub.Create(game.Options{
		WhiteName:  strings.TrimSpace(req.White),
		BlackName:  strings.TrimSpace(req.Black),
		Seconds:    req.Seconds,
		KingSafety: req.KingSafety,
		FEN:        req.FEN,
		StartClock: req.StartClock,
	})
	if err != nil {
		WriteJSON(w, http.StatusBadRequest, map[string]any{"ok": false, "error": err.Error()})
		return
	}
	logging.L().Info("http_session_new",
		zap.String("session_id", s.ID()),
		zap.String("client_ip", ClientIP(r)),
	)
	WriteJSON(w, http.StatusCreated, map[string]any{"ok": true, "state": s.Snapshot()})
}

// HandleState returns the current snapshot of a session
func (h *Handler) HandleState(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"ok": true, "state": s.Snapshot()})
}

// HandleRemove drops a session from the hub
func (h *Handler) HandleRemove(w http.ResponseWriter, r *http.Request) {
	if !h.Hub.Remove(chi.URLParam(r, "id")) {
		writeError(w, game.ErrNotFound)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"ok": true})
}

// HandleClick forwards a board click
func (h *Handler) HandleClick(w http.ResponseWriter, r *http.Request) {
	var req clickRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteJSON(w, http.StatusBadRequest, map[string]any{"ok": false, "error": "bad json"})
		return
	}
	h.command(w, r, func(s *game.Session) error {
		logging.Debugf("click %s (%d,%d)", s.ID(), req.X, req.Y)
		return s.HandleBoardInput(req.X, req.Y)
	})
}

// HandlePromote resolves a pending promotion
func (h *Handler) HandlePromote(w http.ResponseWriter, r *http.Request) {
	var req promoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteJSON(w, http.StatusBadRequest, map[string]any{"ok": false, "error": "bad json"})
		return
	}
	t, ok := board.ParsePieceType(req.Piece)
	if !ok {
		WriteJSON(w, http.StatusBadRequest, map[string]any{"ok": false, "error": fmt.Sprintf("unknown piece %q", req.Piece)})
		return
	}
	h.command(w, r, func(s *game.Session) error { return s.ResolvePromotion(t) })
}

// HandleForfeit ends the game in favour of the player not on move
func (h *Handler) HandleForfeit(w http.ResponseWriter, r *http.Request) {
	h.command(w, r, func(s *game.Session) error { return s.Forfeit() })
}

// HandleDraw ends the game as a draw
func (h *Handler) HandleDraw(w http.ResponseWriter, r *http.Request) {
	h.command(w, r, func(s *game.Session) error { return s.AcceptDraw() })
}

// HandleStart starts both clocks
func (h *Handler) HandleStart(w http.ResponseWriter, r *http.Request) {
	h.command(w, r, func(s *game.Session) error { return s.StartClock() })
}

// HandlePlayer renames a player or sets their remaining time
func (h *Handler) HandlePlayer(w http.ResponseWriter, r *http.Request) {
	c, ok := board.ParseColor(chi.URLParam(r, "color"))
	if !ok {
		WriteJSON(w, http.StatusBadRequest, map[string]any{"ok": false, "error": "unknown color"})
		return
	}
	var req playerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteJSON(w, http.StatusBadRequest, map[string]any{"ok": false, "error": "bad json"})
		return
	}
	h.command(w, r, func(s *game.Session) error {
		if req.Name != nil {
			if err := s.SetPlayerName(c, strings.TrimSpace(*req.Name)); err != nil {
				return err
			}
		}
		if req.Seconds != nil {
			return s.SetPlayerTime(c, *req.Seconds)
		}
		return nil
	})
}

// HandleSSE streams session events as Server-Sent Events
func (h *Handler) HandleSSE(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch := make(chan []byte, 16)
	cancel := s.Subscribe(watcher(s, ch))
	defer cancel()

	initial, _ := json.Marshal(frame{State: s.Snapshot()})
	_, _ = fmt.Fprintf(w, "data: %s\n\n", initial)
	flusher.Flush()

	s.Touch()

	ticker := time.NewTicker(heartbeat)
	defer ticker.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_, _ = w.Write([]byte("data: {}\n\n"))
			flusher.Flush()
		case msg := <-ch:
			_, _ = w.Write([]byte("data: "))
			_, _ = w.Write(msg)
			_, _ = w.Write([]byte("\n\n"))
			flusher.Flush()
		}
	}
}

// HandleStats reports archive counts and the number of live sessions
func (h *Handler) HandleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Store.FetchStats(r.Context())
	if err != nil {
		logging.L().Warn("stats_failed", zap.Error(err))
		WriteJSON(w, http.StatusInternalServerError, map[string]any{"ok": false, "error": "stats unavailable"})
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"ok": true, "archive": stats, "live": h.Hub.Len()})
}

// HandleArchive returns an archived game with its moves
func (h *Handler) HandleArchive(w http.ResponseWriter, r *http.Request) {
	pg, err := h.Store.LoadGame(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			WriteJSON(w, http.StatusNotFound, map[string]any{"ok": false, "error": "game not found"})
			return
		}
		logging.L().Warn("archive_load_failed", zap.Error(err))
		WriteJSON(w, http.StatusInternalServerError, map[string]any{"ok": false, "error": "archive unavailable"})
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"ok": true, "game": pg})
}

// HandleVersion reports the build version
func (h *Handler) HandleVersion(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]any{"ok": true, "version": h.Version})
}

func (h *Handler) session(w http.ResponseWriter, r *http.Request) (*game.Session, bool) {
	s, err := h.Hub.Get(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return nil, false
	}
	return s, true
}

// command runs fn against the session named in the URL and replies with the
// resulting state.
func (h *Handler) command(w http.ResponseWriter, r *http.Request, fn func(*game.Session) error) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	s.Touch()
	if err := fn(s); err != nil {
		status := statusFor(err)
		WriteJSON(w, status, map[string]any{"ok": false, "error": err.Error(), "state": s.Snapshot()})
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"ok": true, "state": s.Snapshot()})
}

// frame is one pushed message: the event that caused it, if any, and the
// state after it.
type frame struct {
	Event *game.Event `json:"event,omitempty"`
	State game.State  `json:"state"`
}

// watcher returns an observer that pushes frames into ch, dropping them when
// the reader falls behind.
func watcher(s *game.Session, ch chan []byte) func(game.Event) {
	return func(e game.Event) {
		b, err := json.Marshal(frame{Event: &e, State: s.Snapshot()})
		if err != nil {
			return
		}
		select {
		case ch <- b:
		default:
		}
	}
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, game.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, game.ErrGameEnded),
		errors.Is(err, game.ErrNoPromotionPending),
		errors.Is(err, game.ErrSessionClosed):
		return http.StatusConflict
	case errors.Is(err, game.ErrInvalidPromotion),
		errors.Is(err, game.ErrNegativeTime),
		errors.Is(err, game.ErrInvariant),
		errors.Is(err, board.ErrKingCount):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	WriteJSON(w, statusFor(err), map[string]any{"ok": false, "error": err.Error()})
}

// ClientIP extracts the client IP from the request
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		parts := strings.Split(xff, ",")
		return strings.TrimSpace(parts[0])
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
