package game

import (
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"clickchess/internal/board"
	"clickchess/internal/logging"
	"clickchess/internal/movegen"
)

// Options configures a new session.
type Options struct {
	WhiteName string
	BlackName string
	// Seconds is each player's starting clock. Zero means untimed.
	Seconds int
	Tick    time.Duration
	// KingSafety drops moves that leave the mover's king attacked and turns on
	// checkmate and stalemate detection.
	KingSafety bool
	// FEN sets up a custom position. Empty means the standard start.
	FEN string
	// StartClock starts both timers as soon as the session is created.
	StartClock bool
}

type command struct {
	fn   func() error
	errc chan error
}

type observer struct {
	id int
	fn func(Event)
}

// Session runs one game. Every mutation runs on the session goroutine, in
// the order it was queued; timer expiry is queued the same way. Queries read
// the snapshot published after each command and never block on the queue.
//
// Observers are called synchronously on the session goroutine after the
// snapshot is published. They may call query methods and Subscribe, but must
// not call mutating methods directly.
type Session struct {
	id   string
	opts Options

	cmds      chan command
	done      chan struct{}
	closeOnce sync.Once

	obsMu     sync.Mutex
	observers []observer
	nextObs   int

	state    atomic.Pointer[State]
	lastSeen atomic.Int64

	// Owned by the session goroutine.
	board      *board.Board
	initial    *board.Board
	initialFEN string
	white      *Player
	black      *Player
	current    *Player
	phase      Phase
	marked     *board.Square
	legal      []board.Square
	castling   []board.Square
	enPassant  []board.Square
	promotion  *board.Square
	timed      bool
	plies      []Ply
	reason     EndReason
	winner     *board.Color
	pending    []Event
	created    time.Time
	updated    time.Time
}

// NewSession sets up the position and players and starts the session goroutine.
func NewSession(id string, opts Options) (*Session, error) {
	b := board.NewStandard()
	turn := board.White
	if strings.TrimSpace(opts.FEN) != "" {
		var err error
		b, turn, err = board.ParseFEN(opts.FEN)
		if err != nil {
			return nil, err
		}
	}
	if err := b.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvariant, err)
	}
	if opts.Seconds < 0 {
		return nil, ErrNegativeTime
	}
	if opts.WhiteName == "" {
		opts.WhiteName = "Player 1"
	}
	if opts.BlackName == "" {
		opts.BlackName = "Player 2"
	}

	now := time.Now()
	s := &Session{
		id:      id,
		opts:    opts,
		cmds:    make(chan command, 16),
		done:    make(chan struct{}),
		board:   b,
		initial: b.Clone(),
		timed:   opts.Seconds > 0,
		created: now,
		updated: now,
	}
	s.white = newPlayer(opts.WhiteName, board.White, b, NewTimer(opts.Seconds, opts.Tick, s.expiry(board.White)))
	s.black = newPlayer(opts.BlackName, board.Black, b, NewTimer(opts.Seconds, opts.Tick, s.expiry(board.Black)))
	s.white.opponent, s.black.opponent = s.black, s.white
	s.current = s.player(turn)
	s.initialFEN = b.PositionFEN(turn)
	s.lastSeen.Store(now.UnixNano())
	s.publish()

	go s.loop()
	if opts.StartClock {
		s.StartClock()
	}
	logging.L().Info("session_create",
		zap.String("session_id", id),
		zap.Int("seconds", opts.Seconds),
		zap.Bool("king_safety", opts.KingSafety),
	)
	return s, nil
}

func (s *Session) ID() string { return s.id }

func (s *Session) loop() {
	for {
		select {
		case c := <-s.cmds:
			err := c.fn()
			s.updated = time.Now()
			s.publish()
			s.flush()
			if c.errc != nil {
				c.errc <- err
			}
		case <-s.done:
			return
		}
	}
}

// do queues fn and waits until it has run and its effects are published.
func (s *Session) do(fn func() error) error {
	select {
	case <-s.done:
		return ErrSessionClosed
	default:
	}
	c := command{fn: fn, errc: make(chan error, 1)}
	select {
	case s.cmds <- c:
	case <-s.done:
		return ErrSessionClosed
	}
	select {
	case err := <-c.errc:
		return err
	case <-s.done:
		return ErrSessionClosed
	}
}

// post queues fn without waiting.
func (s *Session) post(fn func() error) {
	select {
	case s.cmds <- command{fn: fn}:
	case <-s.done:
	}
}

// Close stops the timers and the session goroutine. Later mutations return
// ErrSessionClosed; queries keep returning the last snapshot.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.white.timer.Stop()
		s.black.timer.Stop()
		close(s.done)
	})
}

// Touch records client activity for idle cleanup.
func (s *Session) Touch() { s.lastSeen.Store(time.Now().UnixNano()) }

// LastSeen returns the time of the last Touch.
func (s *Session) LastSeen() time.Time { return time.Unix(0, s.lastSeen.Load()) }

// Subscribe registers fn for every event. The returned func unregisters it.
func (s *Session) Subscribe(fn func(Event)) (cancel func()) {
	s.obsMu.Lock()
	s.nextObs++
	id := s.nextObs
	s.observers = append(s.observers, observer{id: id, fn: fn})
	s.obsMu.Unlock()
	return func() {
		s.obsMu.Lock()
		defer s.obsMu.Unlock()
		for i, o := range s.observers {
			if o.id == id {
				s.observers = append(s.observers[:i:i], s.observers[i+1:]...)
				return
			}
		}
	}
}

func (s *Session) emit(e Event) {
	e.Session = s.id
	s.pending = append(s.pending, e)
}

func (s *Session) flush() {
	if len(s.pending) == 0 {
		return
	}
	events := s.pending
	s.pending = nil
	s.obsMu.Lock()
	obs := append([]observer(nil), s.observers...)
	s.obsMu.Unlock()
	for _, e := range events {
		for _, o := range obs {
			o.fn(e)
		}
	}
}

func (s *Session) publish() {
	st := State{
		ID:         s.id,
		Phase:      s.phase,
		Turn:       s.current.color,
		Board:      s.board.Snapshot(),
		Captured:   s.board.Captured(),
		Plies:      clonePlies(s.plies),
		Legal:      append([]board.Square(nil), s.legal...),
		Ongoing:    s.phase != Ended,
		Reason:     s.reason,
		FEN:        s.board.PositionFEN(s.current.color),
		InitialFEN: s.initialFEN,
		KingSafety: s.opts.KingSafety,
		CreatedAt:  s.created,
		UpdatedAt:  s.updated,
	}
	if s.marked != nil {
		m := *s.marked
		st.Marked = &m
	}
	if s.promotion != nil {
		p := *s.promotion
		st.Promotion = &p
	}
	if s.winner != nil {
		w := *s.winner
		st.Winner = &w
	}
	st.Players[board.White] = s.white.info()
	st.Players[board.Black] = s.black.info()
	s.state.Store(&st)
}

func (s *Session) player(c board.Color) *Player {
	if c == board.White {
		return s.white
	}
	return s.black
}

func (s *Session) lastMove() *movegen.LastMove {
	if len(s.plies) == 0 {
		return nil
	}
	return s.plies[len(s.plies)-1].lastMove()
}

func (s *Session) clearSelection() {
	s.marked = nil
	s.legal = nil
	s.castling = nil
	s.enPassant = nil
	if s.phase == SelectionMarked {
		s.phase = AwaitingSelection
	}
}

// HandleBoardInput processes a click on (x, y). Clicks off the board, clicks
// while a promotion is pending and clicks after the game ended are ignored.
// The first click on an own piece marks it and computes its destinations; the
// next click moves there if it is one of them and otherwise clears the mark.
func (s *Session) HandleBoardInput(x, y int) error {
	return s.do(func() error { return s.click(x, y) })
}

func (s *Session) click(x, y int) error {
	if s.phase == Ended || s.phase == PromotionPending {
		return nil
	}
	sq := board.Sq(x, y)
	if !sq.Valid() {
		return nil
	}
	logging.Debugf("session %s click %v phase=%v", s.id, sq, s.phase)

	var err error
	if p, ok := s.board.PieceAt(sq); ok && p.Color == s.current.color {
		s.clearSelection()
		s.mark(sq)
	} else if s.marked != nil {
		err = s.tryMove(sq)
	}
	s.emit(Event{Kind: EventRedrawLegalMoves})
	return err
}

func (s *Session) mark(sq board.Square) {
	dests, castling, enPassant := movegen.All(s.board, sq, s.lastMove(), s.opts.KingSafety)
	if len(dests) == 0 {
		return
	}
	s.marked = &sq
	s.legal = dests
	s.castling = castling
	s.enPassant = enPassant
	s.phase = SelectionMarked
}

func (s *Session) tryMove(to board.Square) error {
	from := *s.marked
	hit := movegen.Contains(s.legal, to)
	castling, enPassant := s.castling, s.enPassant
	s.clearSelection()
	if !hit {
		return nil
	}

	piece, _ := s.board.PieceAt(from)
	special := SpecialNone
	switch {
	case piece.Type == board.King && movegen.Contains(castling, to):
		special = SpecialCastle
	case piece.Type == board.Pawn && movegen.Contains(enPassant, to):
		special = SpecialEnPassant
	}
	return s.execute(from, to, piece, special)
}

func (s *Session) execute(from, to board.Square, piece board.Piece, special Special) error {
	ply := Ply{From: from, To: to, Piece: piece, Player: s.current.name, Special: special}
	ply.Captured = applyMove(s.board, from, to, special)
	if ply.Captured != nil {
		s.emit(Event{Kind: EventRedrawDeadPieces})
	}
	logging.L().Info("session_move",
		zap.String("session_id", s.id),
		zap.String("color", piece.Color.String()),
		zap.String("piece", piece.Type.String()),
		zap.String("from", from.String()),
		zap.String("to", to.String()),
		zap.String("special", special.String()),
	)

	if ply.Captured != nil && ply.Captured.Type == board.King {
		ply.Snapshot = s.board.Snapshot()
		s.plies = append(s.plies, ply)
		s.emit(Event{Kind: EventRedrawPieces})
		winner := piece.Color
		s.end(ReasonKingCaptured, &winner)
		return nil
	}
	if err := s.board.Validate(); err != nil {
		ply.Snapshot = s.board.Snapshot()
		s.plies = append(s.plies, ply)
		return s.abort(err)
	}

	if piece.Type == board.Pawn && to.Rank == board.LastRank(piece.Color) {
		s.plies = append(s.plies, ply)
		s.phase = PromotionPending
		s.promotion = &to
		s.emit(Event{Kind: EventPromotionRequired, Color: piece.Color})
		s.emit(Event{Kind: EventRedrawPieces})
		return nil
	}

	ply.Snapshot = s.board.Snapshot()
	s.plies = append(s.plies, ply)
	s.switchPlayer()
	s.emit(Event{Kind: EventRedrawPieces})
	s.checkNoMoves()
	return nil
}

func (s *Session) switchPlayer() {
	s.current.timer.SetActive(false)
	s.current = s.current.opponent
	s.current.timer.SetActive(true)
	s.emit(Event{Kind: EventPlayerSwitched, Color: s.current.color})
}

// checkNoMoves ends the game when the side to move has no king-safe move.
func (s *Session) checkNoMoves() {
	if !s.opts.KingSafety || s.phase == Ended {
		return
	}
	c := s.current.color
	if movegen.HasLegalMove(s.board, c, s.lastMove()) {
		return
	}
	if movegen.InCheck(s.board, c) {
		winner := c.Opposite()
		s.end(ReasonCheckmate, &winner)
		return
	}
	s.end(ReasonStalemate, nil)
}

func (s *Session) end(reason EndReason, winner *board.Color) {
	s.white.timer.Stop()
	s.black.timer.Stop()
	s.clearSelection()
	s.promotion = nil
	s.phase = Ended
	s.reason = reason
	s.winner = winner
	s.emit(Event{Kind: EventGameEnded, Reason: reason})
	fields := []zap.Field{
		zap.String("session_id", s.id),
		zap.String("reason", string(reason)),
		zap.Int("plies", len(s.plies)),
	}
	if winner != nil {
		fields = append(fields, zap.String("winner", winner.String()))
	}
	logging.L().Info("session_end", fields...)
}

func (s *Session) abort(cause error) error {
	logging.L().Error("session_invariant", zap.String("session_id", s.id), zap.Error(cause))
	s.end(ReasonAborted, nil)
	return fmt.Errorf("%w: %v", ErrInvariant, cause)
}

// ResolvePromotion sets the type of the pawn awaiting promotion and passes
// the turn.
func (s *Session) ResolvePromotion(t board.PieceType) error {
	return s.do(func() error {
		if s.phase != PromotionPending || s.promotion == nil {
			return ErrNoPromotionPending
		}
		if t == board.Pawn || t == board.King {
			return fmt.Errorf("%w: %v", ErrInvalidPromotion, t)
		}
		sq := *s.promotion
		s.board.SetType(sq, t)
		last := &s.plies[len(s.plies)-1]
		last.Promotion = &t
		last.Snapshot = s.board.Snapshot()
		s.promotion = nil
		s.phase = AwaitingSelection
		logging.L().Info("session_promotion",
			zap.String("session_id", s.id),
			zap.String("square", sq.String()),
			zap.String("piece", t.String()),
		)
		s.switchPlayer()
		s.emit(Event{Kind: EventRedrawPieces})
		s.checkNoMoves()
		return nil
	})
}

// Forfeit ends the game as a loss for the player to move.
func (s *Session) Forfeit() error {
	return s.do(func() error {
		if s.phase == Ended {
			return ErrGameEnded
		}
		winner := s.current.color.Opposite()
		s.end(ReasonForfeit, &winner)
		return nil
	})
}

// AcceptDraw ends the game as a draw.
func (s *Session) AcceptDraw() error {
	return s.do(func() error {
		if s.phase == Ended {
			return ErrGameEnded
		}
		s.end(ReasonDraw, nil)
		return nil
	})
}

func (s *Session) expiry(c board.Color) func() {
	return func() {
		s.post(func() error {
			s.timeout(c)
			return nil
		})
	}
}

func (s *Session) timeout(c board.Color) {
	if s.phase == Ended || !s.timed {
		return
	}
	if s.player(c).timer.RemainingSeconds() > 0 {
		return
	}
	winner := c.Opposite()
	s.end(ReasonTimeout, &winner)
}

// StartClock starts both tickers and activates the player to move.
func (s *Session) StartClock() error {
	return s.do(func() error {
		if s.phase == Ended {
			return ErrGameEnded
		}
		s.white.timer.Start()
		s.black.timer.Start()
		s.current.opponent.timer.SetActive(false)
		s.current.timer.SetActive(true)
		return nil
	})
}

// SetPlayerName renames the player of color c.
func (s *Session) SetPlayerName(c board.Color, name string) error {
	return s.do(func() error {
		if s.phase == Ended {
			return ErrGameEnded
		}
		s.player(c).name = name
		return nil
	})
}

// SetPlayerTime replaces the remaining seconds of the player of color c.
func (s *Session) SetPlayerTime(c board.Color, seconds int) error {
	return s.do(func() error {
		if s.phase == Ended {
			return ErrGameEnded
		}
		t := s.player(c).timer
		if err := t.SetSeconds(seconds); err != nil {
			return err
		}
		if seconds > 0 {
			s.timed = true
		}
		if seconds == 0 && t.Active() {
			s.timeout(c)
		}
		return nil
	})
}

// Snapshot returns a copy of the latest state with live clock readings.
func (s *Session) Snapshot() State {
	st := s.state.Load().clone()
	st.Players[board.White] = s.livePlayer(st.Players[board.White])
	st.Players[board.Black] = s.livePlayer(st.Players[board.Black])
	return st
}

func (s *Session) livePlayer(pi PlayerInfo) PlayerInfo {
	t := s.player(pi.Color).timer
	pi.RemainingSeconds = t.RemainingSeconds()
	pi.Active = t.Active()
	return pi
}

// InitialBoard returns a copy of the starting position.
func (s *Session) InitialBoard() *board.Board { return s.initial.Clone() }

func (s *Session) Board() map[board.Square]board.Piece { return s.Snapshot().Board }
func (s *Session) Captured() []board.Piece { return s.Snapshot().Captured }
func (s *Session) Plies() []Ply { return s.Snapshot().Plies }
func (s *Session) LegalDestinations() []board.Square { return s.Snapshot().Legal }
func (s *Session) Players() [2]PlayerInfo { return s.Snapshot().Players }
func (s *Session) Ongoing() bool { return s.state.Load().Ongoing }
func (s *Session) Phase() Phase { return s.state.Load().Phase }
func (s *Session) Turn() board.Color { return s.state.Load().Turn }

// Result reports why and by whom the game was decided. ok is false while the
// game is ongoing; winner is nil for draws, stalemates and aborts.
func (s *Session) Result() (reason EndReason, winner *board.Color, ok bool) {
	st := s.state.Load()
	if st.Ongoing {
		return ReasonNone, nil, false
	}
	if st.Winner != nil {
		w := *st.Winner
		winner = &w
	}
	return st.Reason, winner, true
}
