package storage

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Game is one archived session.
type Game struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey"`
	FEN         string
	InitialFEN  string
	Status      string
	Result      string
	Winner      string
	KingSafety  bool
	Active      bool `gorm:"index"`
	PlyCount    int
	CompletedAt *time.Time
	LastSeen    time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
	Players     []Player `gorm:"constraint:OnDelete:CASCADE;"`
	Moves       []Move   `gorm:"constraint:OnDelete:CASCADE;"`
}

// Player stores the name and clock of one side of a game.
type Player struct {
	ID               uuid.UUID `gorm:"type:uuid;primaryKey"`
	GameID           uuid.UUID `gorm:"type:uuid;uniqueIndex:idx_game_color"`
	Color            string    `gorm:"uniqueIndex:idx_game_color"`
	Name             string
	RemainingSeconds int
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Move stores a single ply. Snapshot is the JSON occupancy after the ply.
type Move struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey"`
	GameID     uuid.UUID `gorm:"type:uuid;index"`
	Number     int
	FromSquare string
	ToSquare   string
	Piece      string
	Color      string
	Player     string
	Captured   string
	Special    string
	Promotion  string
	Snapshot   string
	CreatedAt  time.Time
}

func (g *Game) BeforeCreate(*gorm.DB) error {
	if g.ID == uuid.Nil {
		g.ID = uuid.New()
	}
	return nil
}

func (p *Player) BeforeCreate(*gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

func (m *Move) BeforeCreate(*gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}
