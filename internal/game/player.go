package game

import "clickchess/internal/board"

// Player is one side of a session. Only the session goroutine touches name.
type Player struct {
	name     string
	color    board.Color
	pieces   []board.Square
	timer    *Timer
	opponent *Player
}

func newPlayer(name string, color board.Color, b *board.Board, timer *Timer) *Player {
	return &Player{
		name:   name,
		color:  color,
		pieces: b.Squares(color),
		timer:  timer,
	}
}

func (p *Player) Name() string { return p.name }
func (p *Player) Color() board.Color { return p.color }
func (p *Player) Timer() *Timer { return p.timer }
func (p *Player) Opponent() *Player { return p.opponent }

// StartingSquares lists where the player's pieces stood when the session began.
func (p *Player) StartingSquares() []board.Square {
	return append([]board.Square(nil), p.pieces...)
}

func (p *Player) info() PlayerInfo {
	return PlayerInfo{
		Name:             p.name,
		Color:            p.color,
		RemainingSeconds: p.timer.RemainingSeconds(),
		Active:           p.timer.Active(),
		StartingSquares:  p.StartingSquares(),
	}
}
