package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"

	"clickchess/internal/board"
	"clickchess/internal/game"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	name := strings.ReplaceAll(t.Name(), "/", "_")
	db, err := Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name)))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return NewStore(db)
}

func newSession(t *testing.T) *game.Session {
	t.Helper()
	s, err := game.NewSession(uuid.NewString(), game.Options{WhiteName: "Alice", BlackName: "Bob", Seconds: 300})
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	t.Cleanup(s.Close)
	return s
}

func clicks(t *testing.T, s *game.Session, squares ...board.Square) {
	t.Helper()
	for _, sq := range squares {
		if err := s.HandleBoardInput(sq.File, sq.Rank); err != nil {
			t.Fatalf("click %v: %v", sq, err)
		}
	}
}

func TestCreateCompleteAndLoad(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	s := newSession(t)

	if err := store.CreateGame(ctx, s.Snapshot()); err != nil {
		t.Fatalf("CreateGame: %v", err)
	}
	// Creating twice is a no-op.
	if err := store.CreateGame(ctx, s.Snapshot()); err != nil {
		t.Fatalf("CreateGame again: %v", err)
	}

	clicks(t, s, board.Sq(4, 6), board.Sq(4, 4), board.Sq(3, 1), board.Sq(3, 3), board.Sq(4, 4), board.Sq(3, 3))
	if err := s.Forfeit(); err != nil {
		t.Fatalf("Forfeit: %v", err)
	}
	st := s.Snapshot()
	if err := store.CompleteGame(ctx, st); err != nil {
		t.Fatalf("CompleteGame: %v", err)
	}
	if err := store.CompleteGame(ctx, st); err != nil {
		t.Fatalf("CompleteGame again: %v", err)
	}

	pg, err := store.LoadGame(ctx, st.ID)
	if err != nil {
		t.Fatalf("LoadGame: %v", err)
	}
	if pg.Game.Result != "forfeit" || pg.Game.Winner != "white" || pg.Game.Active {
		t.Fatalf("unexpected game row %+v", pg.Game)
	}
	if pg.Game.CompletedAt == nil || pg.Game.PlyCount != 3 {
		t.Fatalf("expected completed game with 3 plies, got %+v", pg.Game)
	}
	if len(pg.Players) != 2 || len(pg.Moves) != 3 {
		t.Fatalf("expected 2 players and 3 moves, got %d and %d", len(pg.Players), len(pg.Moves))
	}
	if pg.Moves[2].Captured != "pawn" || pg.Moves[2].Player != "Alice" {
		t.Fatalf("unexpected capture row %+v", pg.Moves[2])
	}

	plies, err := pg.Plies()
	if err != nil {
		t.Fatalf("Plies: %v", err)
	}
	if plies[1].From != board.Sq(3, 1) || plies[1].Piece.Color != board.Black {
		t.Fatalf("unexpected decoded ply %+v", plies[1])
	}
	final, err := pg.Replay()
	if err != nil {
		t.Fatalf("Replay: %v", err)
	}
	if !board.Equal(final.Snapshot(), st.Board) {
		t.Fatalf("replayed archive differs from the final board")
	}
}

func TestLoadMissingGame(t *testing.T) {
	store := newTestStore(t)
	if _, err := store.LoadGame(context.Background(), uuid.NewString()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := store.LoadGame(context.Background(), "not-a-uuid"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for a bad id, got %v", err)
	}
}

func TestAbandonAndStats(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	a, b := newSession(t), newSession(t)
	for _, s := range []*game.Session{a, b} {
		if err := store.CreateGame(ctx, s.Snapshot()); err != nil {
			t.Fatalf("CreateGame: %v", err)
		}
	}

	stats, err := store.FetchStats(ctx)
	if err != nil {
		t.Fatalf("FetchStats: %v", err)
	}
	if stats.Started != 2 || stats.Active != 2 || stats.Completed != 0 {
		t.Fatalf("unexpected stats %+v", stats)
	}

	if err := store.AbandonGame(ctx, a.ID(), time.Now()); err != nil {
		t.Fatalf("AbandonGame: %v", err)
	}
	pg, err := store.LoadGame(ctx, a.ID())
	if err != nil {
		t.Fatalf("LoadGame: %v", err)
	}
	if pg.Game.Status != "abandoned" || pg.Game.Active {
		t.Fatalf("unexpected abandoned row %+v", pg.Game)
	}
	stats, err = store.FetchStats(ctx)
	if err != nil {
		t.Fatalf("FetchStats: %v", err)
	}
	if stats.Active != 1 || stats.Completed != 1 {
		t.Fatalf("unexpected stats after abandon %+v", stats)
	}
}

func TestNilStoreIsNoop(t *testing.T) {
	var s *Store
	if s.DB() != nil {
		t.Fatalf("nil store should have no DB")
	}
	if err := s.CreateGame(context.Background(), game.State{ID: uuid.NewString()}); err != nil {
		t.Fatalf("CreateGame on nil store: %v", err)
	}
	if stats, err := s.FetchStats(context.Background()); err != nil || stats.Started != 0 {
		t.Fatalf("unexpected stats %+v %v", stats, err)
	}
	if NewStore(nil) != nil {
		t.Fatalf("NewStore(nil) should be nil")
	}
}

func TestCreateGameIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	s := newSession(t)

	for i := 0; i < 3; i++ {
		if err := store.CreateGame(ctx, s.Snapshot()); err != nil {
			t.Fatalf("CreateGame #%d: %v", i+1, err)
		}
	}
	var games, players int64
	if err := store.DB().Model(&Game{}).Count(&games).Error; err != nil {
		t.Fatalf("count games: %v", err)
	}
	if err := store.DB().Model(&Player{}).Count(&players).Error; err != nil {
		t.Fatalf("count players: %v", err)
	}
	if games != 1 || players != 2 {
		t.Fatalf("expected 1 game and 2 players, got %d and %d", games, players)
	}
}
