package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"clickchess/internal/board"
	"clickchess/internal/game"
)

// Store wraps a gorm DB instance and provides helper methods for persisting games.
type Store struct {
	db *gorm.DB
}

// NewStore creates a new store helper from a gorm DB.
func NewStore(db *gorm.DB) *Store {
	if db == nil {
		return nil
	}
	return &Store{db: db}
}

// DB exposes the underlying gorm DB instance.
func (s *Store) DB() *gorm.DB {
	if s == nil {
		return nil
	}
	return s.db
}

// ErrNotFound is returned when a record is not found.
var ErrNotFound = gorm.ErrRecordNotFound

// GameStateUpdate represents a partial update to a game row.
type GameStateUpdate struct {
	FEN         *string
	Status      *string
	Result      *string
	Winner      *string
	Active      *bool
	PlyCount    *int
	LastSeen    *time.Time
	CompletedAt *time.Time
}

// CreateGame inserts the game row and both players for a new session.
func (s *Store) CreateGame(ctx context.Context, st game.State) error {
	if s == nil {
		return nil
	}
	id, err := uuid.Parse(st.ID)
	if err != nil {
		return fmt.Errorf("game id: %w", err)
	}
	row := Game{
		ID:         id,
		FEN:        st.FEN,
		InitialFEN: st.InitialFEN,
		Status:     st.Phase.String(),
		KingSafety: st.KingSafety,
		Active:     true,
		LastSeen:   st.UpdatedAt,
	}
	players := playerRows(id, st)
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Omit(clause.Associations).Create(&row).Error; err != nil {
			return err
		}
		if len(players) == 0 {
			return nil
		}
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "game_id"}, {Name: "color"}},
			DoNothing: true,
		}).Create(&players).Error
	})
}

// SaveGameState applies partial updates to the game row.
func (s *Store) SaveGameState(ctx context.Context, id uuid.UUID, upd GameStateUpdate) error {
	if s == nil {
		return nil
	}
	return saveGameState(s.db.WithContext(ctx), id, upd)
}

func saveGameState(db *gorm.DB, id uuid.UUID, upd GameStateUpdate) error {
	updates := make(map[string]any)
	if upd.FEN != nil {
		updates["fen"] = *upd.FEN
	}
	if upd.Status != nil {
		updates["status"] = *upd.Status
	}
	if upd.Result != nil {
		updates["result"] = *upd.Result
	}
	if upd.Winner != nil {
		updates["winner"] = *upd.Winner
	}
	if upd.Active != nil {
		updates["active"] = *upd.Active
	}
	if upd.PlyCount != nil {
		updates["ply_count"] = *upd.PlyCount
	}
	if upd.LastSeen != nil {
		updates["last_seen"] = *upd.LastSeen
	}
	if upd.CompletedAt != nil {
		updates["completed_at"] = *upd.CompletedAt
	}
	if len(updates) == 0 {
		return nil
	}
	return db.Model(&Game{}).Where("id = ?", id).Updates(updates).Error
}

// CompleteGame records the final position, result, clocks and plies of a
// finished session.
func (s *Store) CompleteGame(ctx context.Context, st game.State) error {
	if s == nil {
		return nil
	}
	id, err := uuid.Parse(st.ID)
	if err != nil {
		return fmt.Errorf("game id: %w", err)
	}
	moves, err := moveRows(id, st.Plies)
	if err != nil {
		return err
	}
	status := st.Phase.String()
	result := string(st.Reason)
	winner := ""
	if st.Winner != nil {
		winner = st.Winner.String()
	}
	active := false
	plies := len(st.Plies)
	completedAt := st.UpdatedAt

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := saveGameState(tx, id, GameStateUpdate{
			FEN:         &st.FEN,
			Status:      &status,
			Result:      &result,
			Winner:      &winner,
			Active:      &active,
			PlyCount:    &plies,
			LastSeen:    &completedAt,
			CompletedAt: &completedAt,
		})
		if err != nil {
			return err
		}
		for _, p := range playerRows(id, st) {
			p := p
			err := tx.Where("game_id = ? AND color = ?", id, p.Color).
				Assign(map[string]any{
					"name":              p.Name,
					"remaining_seconds": p.RemainingSeconds,
				}).
				FirstOrCreate(&p).Error
			if err != nil {
				return err
			}
		}
		if err := tx.Where("game_id = ?", id).Delete(&Move{}).Error; err != nil {
			return err
		}
		if len(moves) == 0 {
			return nil
		}
		return tx.Create(&moves).Error
	})
}

// AbandonGame marks a game that was dropped before it finished.
func (s *Store) AbandonGame(ctx context.Context, id string, when time.Time) error {
	if s == nil {
		return nil
	}
	gid, err := uuid.Parse(id)
	if err != nil {
		return fmt.Errorf("game id: %w", err)
	}
	status := "abandoned"
	active := false
	return s.SaveGameState(ctx, gid, GameStateUpdate{
		Status:      &status,
		Active:      &active,
		CompletedAt: &when,
	})
}

// PersistedGame is an archived game with its players and moves.
type PersistedGame struct {
	Game    Game     `json:"game"`
	Players []Player `json:"players"`
	Moves   []Move   `json:"moves"`
}

// LoadGame fetches a persisted game with its players and moves in order.
func (s *Store) LoadGame(ctx context.Context, id string) (*PersistedGame, error) {
	if s == nil {
		return nil, ErrNotFound
	}
	gid, err := uuid.Parse(id)
	if err != nil {
		return nil, ErrNotFound
	}
	var row Game
	if err := s.db.WithContext(ctx).First(&row, "id = ?", gid).Error; err != nil {
		return nil, err
	}
	var players []Player
	if err := s.db.WithContext(ctx).Where("game_id = ?", gid).Order("color").Find(&players).Error; err != nil {
		return nil, err
	}
	var moves []Move
	if err := s.db.WithContext(ctx).Where("game_id = ?", gid).Order("number").Find(&moves).Error; err != nil {
		return nil, err
	}
	return &PersistedGame{Game: row, Players: players, Moves: moves}, nil
}

// Plies decodes the stored moves.
func (p *PersistedGame) Plies() ([]game.Ply, error) {
	out := make([]game.Ply, 0, len(p.Moves))
	for _, m := range p.Moves {
		ply, err := decodeMove(m)
		if err != nil {
			return nil, fmt.Errorf("move %d: %w", m.Number, err)
		}
		out = append(out, ply)
	}
	return out, nil
}

// Replay rebuilds the final board from the initial position and the moves.
func (p *PersistedGame) Replay() (*board.Board, error) {
	initial, _, err := board.ParseFEN(p.Game.InitialFEN)
	if err != nil {
		return nil, err
	}
	plies, err := p.Plies()
	if err != nil {
		return nil, err
	}
	return game.Replay(initial, plies)
}

// Stats represents aggregate counts for games.
type Stats struct {
	Started   int64 `json:"started"`
	Completed int64 `json:"completed"`
	Active    int64 `json:"active"`
}

// FetchStats aggregates game counts.
func (s *Store) FetchStats(ctx context.Context) (Stats, error) {
	var stats Stats
	if s == nil {
		return stats, nil
	}
	if err := s.db.WithContext(ctx).Model(&Game{}).Count(&stats.Started).Error; err != nil {
		return stats, err
	}
	if err := s.db.WithContext(ctx).Model(&Game{}).Where("active = ?", true).Count(&stats.Active).Error; err != nil {
		return stats, err
	}
	if err := s.db.WithContext(ctx).Model(&Game{}).Where("completed_at IS NOT NULL").Count(&stats.Completed).Error; err != nil {
		return stats, err
	}
	return stats, nil
}

func playerRows(id uuid.UUID, st game.State) []Player {
	out := make([]Player, 0, len(st.Players))
	for _, p := range st.Players {
		out = append(out, Player{
			GameID:           id,
			Color:            p.Color.String(),
			Name:             p.Name,
			RemainingSeconds: p.RemainingSeconds,
		})
	}
	return out
}

func moveRows(id uuid.UUID, plies []game.Ply) ([]Move, error) {
	out := make([]Move, 0, len(plies))
	for i, p := range plies {
		snap, err := json.Marshal(p.Snapshot)
		if err != nil {
			return nil, fmt.Errorf("encode snapshot %d: %w", i+1, err)
		}
		m := Move{
			GameID:     id,
			Number:     i + 1,
			FromSquare: p.From.String(),
			ToSquare:   p.To.String(),
			Piece:      p.Piece.Type.String(),
			Color:      p.Color().String(),
			Player:     p.Player,
			Special:    p.Special.String(),
			Snapshot:   string(snap),
		}
		if p.Captured != nil {
			m.Captured = p.Captured.Type.String()
		}
		if p.Promotion != nil {
			m.Promotion = p.Promotion.String()
		}
		out = append(out, m)
	}
	return out, nil
}

func decodeMove(m Move) (game.Ply, error) {
	var ply game.Ply
	var ok bool
	if ply.From, ok = board.ParseSquare(m.FromSquare); !ok {
		return ply, fmt.Errorf("bad from square %q", m.FromSquare)
	}
	if ply.To, ok = board.ParseSquare(m.ToSquare); !ok {
		return ply, fmt.Errorf("bad to square %q", m.ToSquare)
	}
	if ply.Piece.Type, ok = board.ParsePieceType(m.Piece); !ok {
		return ply, fmt.Errorf("bad piece %q", m.Piece)
	}
	if ply.Piece.Color, ok = board.ParseColor(m.Color); !ok {
		return ply, fmt.Errorf("bad color %q", m.Color)
	}
	ply.Player = m.Player
	if err := ply.Special.UnmarshalText([]byte(m.Special)); err != nil {
		return ply, err
	}
	if m.Captured != "" {
		t, ok := board.ParsePieceType(m.Captured)
		if !ok {
			return ply, fmt.Errorf("bad captured piece %q", m.Captured)
		}
		ply.Captured = &board.Piece{Type: t, Color: ply.Piece.Color.Opposite(), Moved: true}
	}
	if m.Promotion != "" {
		t, ok := board.ParsePieceType(m.Promotion)
		if !ok {
			return ply, fmt.Errorf("bad promotion %q", m.Promotion)
		}
		ply.Promotion = &t
	}
	if m.Snapshot != "" && m.Snapshot != "null" {
		if err := json.Unmarshal([]byte(m.Snapshot), &ply.Snapshot); err != nil {
			return ply, fmt.Errorf("decode snapshot: %w", err)
		}
	}
	return ply, nil
}
