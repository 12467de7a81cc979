package game

import (
	"errors"
	"fmt"
	"time"

	"clickchess/internal/board"
)

var (
	ErrGameEnded          = errors.New("game: session has ended")
	ErrNoPromotionPending = errors.New("game: no promotion pending")
	ErrInvalidPromotion   = errors.New("game: pawns may only promote to knight, bishop, rook or queen")
	ErrNegativeTime       = errors.New("game: time must not be negative")
	ErrInvariant          = errors.New("game: board invariant violated")
	ErrSessionClosed      = errors.New("game: session closed")
	ErrNotFound           = errors.New("game: session not found")
)

// Phase is the position of a session in its turn state machine.
type Phase uint8

const (
	AwaitingSelection Phase = iota
	SelectionMarked
	PromotionPending
	Ended
)

func (p Phase) String() string {
	switch p {
	case AwaitingSelection:
		return "awaiting-selection"
	case SelectionMarked:
		return "selection-marked"
	case PromotionPending:
		return "promotion-pending"
	case Ended:
		return "ended"
	default:
		return fmt.Sprintf("phase(%d)", p)
	}
}

func (p Phase) MarshalText() ([]byte, error) { return []byte(p.String()), nil }

func (p *Phase) UnmarshalText(b []byte) error {
	for _, v := range []Phase{AwaitingSelection, SelectionMarked, PromotionPending, Ended} {
		if v.String() == string(b) {
			*p = v
			return nil
		}
	}
	return fmt.Errorf("game: unknown phase %q", b)
}

// EndReason says why a session ended.
type EndReason string

const (
	ReasonNone         EndReason = ""
	ReasonForfeit      EndReason = "forfeit"
	ReasonDraw         EndReason = "draw"
	ReasonTimeout      EndReason = "timeout"
	ReasonCheckmate    EndReason = "checkmate"
	ReasonStalemate    EndReason = "stalemate"
	ReasonKingCaptured EndReason = "king-captured"
	ReasonAborted      EndReason = "aborted"
)

// EventKind names an outbound notification.
type EventKind string

const (
	EventRedrawPieces      EventKind = "redraw-pieces"
	EventRedrawDeadPieces  EventKind = "redraw-dead-pieces"
	EventRedrawLegalMoves  EventKind = "redraw-legal-moves"
	EventPlayerSwitched    EventKind = "player-switched"
	EventPromotionRequired EventKind = "promotion-required"
	EventGameEnded         EventKind = "game-ended"
)

// Event is delivered to observers. Color is set for player-switched (the new
// current player) and promotion-required; Reason for game-ended.
type Event struct {
	Kind    EventKind   `json:"kind"`
	Session string      `json:"session"`
	Color   board.Color `json:"color"`
	Reason  EndReason   `json:"reason,omitempty"`
}

// PlayerInfo is the query view of one player.
type PlayerInfo struct {
	Name             string         `json:"name"`
	Color            board.Color    `json:"color"`
	RemainingSeconds int            `json:"remainingSeconds"`
	Active           bool           `json:"active"`
	StartingSquares  []board.Square `json:"startingSquares"`
}

// State is an immutable snapshot of a session. Values returned from a
// Session never alias its internal state.
type State struct {
	ID         string                       `json:"id"`
	Phase      Phase                        `json:"phase"`
	Turn       board.Color                  `json:"turn"`
	Board      map[board.Square]board.Piece `json:"board"`
	Captured   []board.Piece                `json:"captured"`
	Plies      []Ply                        `json:"plies"`
	Marked     *board.Square                `json:"marked,omitempty"`
	Legal      []board.Square               `json:"legal"`
	Promotion  *board.Square                `json:"promotion,omitempty"`
	Players    [2]PlayerInfo                `json:"players"`
	Ongoing    bool                         `json:"ongoing"`
	Reason     EndReason                    `json:"reason,omitempty"`
	Winner     *board.Color                 `json:"winner,omitempty"`
	FEN        string                       `json:"fen"`
	InitialFEN string                       `json:"initialFen"`
	KingSafety bool                         `json:"kingSafety"`
	CreatedAt  time.Time                    `json:"createdAt"`
	UpdatedAt  time.Time                    `json:"updatedAt"`
}

func (st State) clone() State {
	out := st
	out.Board = make(map[board.Square]board.Piece, len(st.Board))
	for sq, p := range st.Board {
		out.Board[sq] = p
	}
	out.Captured = append([]board.Piece(nil), st.Captured...)
	out.Plies = clonePlies(st.Plies)
	out.Legal = append([]board.Square(nil), st.Legal...)
	if st.Marked != nil {
		m := *st.Marked
		out.Marked = &m
	}
	if st.Promotion != nil {
		p := *st.Promotion
		out.Promotion = &p
	}
	if st.Winner != nil {
		w := *st.Winner
		out.Winner = &w
	}
	for i := range out.Players {
		out.Players[i].StartingSquares = append([]board.Square(nil), st.Players[i].StartingSquares...)
	}
	return out
}
