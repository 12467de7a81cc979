package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"clickchess/internal/board"
	"clickchess/internal/game"
	"clickchess/internal/logging"
)

const wsWriteTimeout = 5 * time.Second

// wsCommand is an inbound message on the websocket.
type wsCommand struct {
	Type  string `json:"type"` // click, promote, forfeit, draw
	X     int    `json:"x"`
	Y     int    `json:"y"`
	Piece string `json:"piece"`
}

type wsReply struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// HandleWS streams the same frames as HandleSSE over a websocket and accepts
// commands on it.
func (h *Handler) HandleWS(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		CompressionMode: websocket.CompressionNoContextTakeover,
	})
	if err != nil {
		logging.L().Warn("ws_accept_failed", zap.String("session_id", s.ID()), zap.Error(err))
		return
	}
	defer conn.Close(websocket.StatusInternalError, "closing")

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	ch := make(chan []byte, 16)
	unsubscribe := s.Subscribe(watcher(s, ch))
	defer unsubscribe()

	replies := make(chan wsReply, 4)
	go func() {
		defer cancel()
		for {
			var cmd wsCommand
			if err := wsjson.Read(ctx, conn, &cmd); err != nil {
				return
			}
			s.Touch()
			reply := wsReply{OK: true}
			if err := runCommand(s, cmd); err != nil {
				reply = wsReply{Error: err.Error()}
			}
			select {
			case replies <- reply:
			case <-ctx.Done():
				return
			}
		}
	}()

	initial, _ := json.Marshal(frame{State: s.Snapshot()})
	if err := write(ctx, conn, initial); err != nil {
		return
	}

	ticker := time.NewTicker(heartbeat)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			conn.Close(websocket.StatusNormalClosure, "")
			return
		case <-ticker.C:
			pctx, pcancel := context.WithTimeout(ctx, wsWriteTimeout)
			err := conn.Ping(pctx)
			pcancel()
			if err != nil {
				return
			}
		case msg := <-ch:
			if err := write(ctx, conn, msg); err != nil {
				return
			}
		case reply := <-replies:
			wctx, wcancel := context.WithTimeout(ctx, wsWriteTimeout)
			err := wsjson.Write(wctx, conn, reply)
			wcancel()
			if err != nil {
				return
			}
		}
	}
}

func write(ctx context.Context, conn *websocket.Conn, msg []byte) error {
	ctx, cancel := context.WithTimeout(ctx, wsWriteTimeout)
	defer cancel()
	return conn.Write(ctx, websocket.MessageText, msg)
}

var errUnknownCommand = errors.New("unknown command")

func runCommand(s *game.Session, cmd wsCommand) error {
	switch cmd.Type {
	case "click":
		return s.HandleBoardInput(cmd.X, cmd.Y)
	case "promote":
		t, ok := board.ParsePieceType(cmd.Piece)
		if !ok {
			return game.ErrInvalidPromotion
		}
		return s.ResolvePromotion(t)
	case "forfeit":
		return s.Forfeit()
	case "draw":
		return s.AcceptDraw()
	default:
		return errUnknownCommand
	}
}
