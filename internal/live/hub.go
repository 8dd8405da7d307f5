// Package live referees real-time games over persistent connections.
package live

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/park285/cheese-live-chess/internal/chess"
	"github.com/park285/cheese-live-chess/internal/gamestore"
	"github.com/park285/cheese-live-chess/internal/identity"
	"github.com/park285/cheese-live-chess/internal/msgcat"
	"github.com/park285/cheese-live-chess/internal/notation"
	"github.com/park285/cheese-live-chess/pkg/chessdto"
)

// Role is a connection's relationship to a game.
type Role string

const (
	RoleWhite    Role = "WHITE"
	RoleBlack    Role = "BLACK"
	RoleObserver Role = "OBSERVER"
)

func (r Role) color() chess.Color {
	if r == RoleBlack {
		return chess.Black
	}
	return chess.White
}

// roleOf matches username against the seats. A user holding both seats plays
// whichever side is to move.
func roleOf(rec *gamestore.GameRecord, username string) Role {
	white := rec.WhiteUsername != "" && rec.WhiteUsername == username
	black := rec.BlackUsername != "" && rec.BlackUsername == username
	switch {
	case white && black:
		if rec.State.Turn() == chess.Black {
			return RoleBlack
		}
		return RoleWhite
	case white:
		return RoleWhite
	case black:
		return RoleBlack
	}
	return RoleObserver
}

// Options configure a Hub. Zero values pick defaults.
type Options struct {
	Registry       *Registry
	Archive        gamestore.Archiver
	Messages       *msgcat.Catalog
	Logger         *zap.Logger
	CommandTimeout time.Duration
}

// Hub decodes commands, applies them to the stored game and fans out the results.
type Hub struct {
	registry *Registry
	games    gamestore.Repository
	ids      identity.Resolver
	archive  gamestore.Archiver
	msgs     *msgcat.Catalog
	locks    *gameLocks
	logger   *zap.Logger

	commandTimeout time.Duration
}

func NewHub(games gamestore.Repository, ids identity.Resolver, opts Options) *Hub {
	h := &Hub{
		registry:       opts.Registry,
		games:          games,
		ids:            ids,
		archive:        opts.Archive,
		msgs:           opts.Messages,
		locks:          newGameLocks(),
		logger:         opts.Logger,
		commandTimeout: opts.CommandTimeout,
	}
	if h.registry == nil {
		h.registry = NewRegistry()
	}
	if h.msgs == nil {
		h.msgs = msgcat.MustDefault()
	}
	if h.logger == nil {
		h.logger = zap.NewNop()
	}
	if h.commandTimeout <= 0 {
		h.commandTimeout = 10 * time.Second
	}
	return h
}

func (h *Hub) Registry() *Registry { return h.registry }

// Attach registers a freshly opened connection.
func (h *Hub) Attach(c *Conn) {
	h.registry.Add(c)
	h.logger.Debug("live_attach", zap.String("conn_id", c.ID()))
}

// Detach forgets a connection whose transport has closed. Seats are kept.
func (h *Hub) Detach(c *Conn) {
	gameID, bound := h.registry.Remove(c)
	_ = c.Close("closed")
	h.logger.Debug("live_detach", zap.String("conn_id", c.ID()), zap.Int64("game_id", gameID), zap.Bool("bound", bound))
}

// Handle processes one raw frame from c. Failures are reported to c only.
func (h *Hub) Handle(ctx context.Context, c *Conn, frame []byte) {
	var cmd chessdto.UserGameCommand
	if err := json.Unmarshal(frame, &cmd); err != nil {
		h.fail(ctx, c, cmd, protocolError(h.msgs, "malformed command"))
		return
	}
	h.Dispatch(ctx, c, cmd)
}

// Dispatch runs one decoded command under the command timeout.
func (h *Hub) Dispatch(ctx context.Context, c *Conn, cmd chessdto.UserGameCommand) {
	ctx, cancel := context.WithTimeout(ctx, h.commandTimeout)
	defer cancel()

	err := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				h.logger.Error("live_command_panic", zap.String("conn_id", c.ID()), zap.Any("panic", r))
				err = protocolError(h.msgs, "internal error")
			}
		}()
		switch cmd.CommandType {
		case chessdto.CommandConnect:
			return h.connect(ctx, c, cmd)
		case chessdto.CommandMakeMove:
			return h.makeMove(ctx, c, cmd)
		case chessdto.CommandLeave:
			return h.leave(ctx, c, cmd)
		case chessdto.CommandResign:
			return h.resign(ctx, c, cmd)
		}
		return protocolError(h.msgs, fmt.Sprintf("unknown command type %q", cmd.CommandType))
	}()
	if err != nil {
		h.fail(ctx, c, cmd, err)
	}
}

func (h *Hub) fail(ctx context.Context, c *Conn, cmd chessdto.UserGameCommand, err error) {
	de := domainError(h.msgs, err)
	fields := []zap.Field{
		zap.String("conn_id", c.ID()),
		zap.String("command", string(cmd.CommandType)),
		zap.Int64("game_id", cmd.GameID),
		zap.String("code", de.Code),
		zap.Error(err),
	}
	if de.Code == chessdto.CodeStorage || de.Code == chessdto.CodeProtocol {
		h.logger.Warn("live_command_error", fields...)
	} else {
		h.logger.Info("live_command_rejected", fields...)
	}
	h.send(ctx, c, chessdto.ErrorFrame(de))
}

func (h *Hub) resolve(ctx context.Context, token string) (string, error) {
	if strings.TrimSpace(token) == "" {
		return "", identity.ErrUnauthorized
	}
	return h.ids.Resolve(ctx, token)
}

func (h *Hub) load(ctx context.Context, id int64) (*gamestore.GameRecord, error) {
	rec, err := h.games.Load(ctx, id)
	if errors.Is(err, gamestore.ErrNotFound) {
		return nil, chessdto.DomainError{
			Code:    chessdto.CodeNotFound,
			Message: h.msgs.Text("error.not_found", map[string]any{"GameID": id}, fmt.Sprintf("Error: game %d does not exist", id)),
		}
	}
	return rec, err
}

// requireBound checks that c is attached to the command's game.
func (h *Hub) requireBound(c *Conn, gameID int64) error {
	bound, ok := h.registry.GameOf(c)
	if !ok {
		return chessdto.DomainError{Code: chessdto.CodeProtocol, Message: h.msgs.Text("error.not_connected", nil, "Error: connect to a game first")}
	}
	if bound != gameID {
		return chessdto.DomainError{Code: chessdto.CodeProtocol, Message: h.msgs.Text("error.wrong_game", map[string]any{"GameID": bound}, "Error: wrong game")}
	}
	return nil
}

func (h *Hub) connect(ctx context.Context, c *Conn, cmd chessdto.UserGameCommand) error {
	user, err := h.resolve(ctx, cmd.AuthToken)
	if err != nil {
		return err
	}
	if bound, ok := h.registry.GameOf(c); ok && bound != cmd.GameID {
		return chessdto.DomainError{Code: chessdto.CodeProtocol, Message: h.msgs.Text("error.wrong_game", map[string]any{"GameID": bound}, "Error: wrong game")}
	}

	unlock, err := h.locks.Lock(ctx, cmd.GameID)
	if err != nil {
		return err
	}
	defer unlock()

	rec, err := h.load(ctx, cmd.GameID)
	if err != nil {
		return err
	}
	if err := h.registry.Bind(c, cmd.GameID, user); err != nil {
		return protocolError(h.msgs, "connection cannot join this game")
	}
	role := roleOf(rec, user)
	h.logger.Info("live_connect",
		zap.Int64("game_id", rec.ID),
		zap.String("conn_id", c.ID()),
		zap.String("username", user),
		zap.String("role", string(role)),
	)

	text := h.msgs.Text("notify.joined", map[string]any{"User": user, "Role": strings.ToLower(string(role))},
		fmt.Sprintf("%s has joined the game as %s", user, strings.ToLower(string(role))))
	h.broadcast(ctx, rec.ID, c, chessdto.Notification(text))
	h.send(ctx, c, chessdto.LoadGame(rec.State))
	h.broadcast(ctx, rec.ID, nil, chessdto.Notification(h.seatStatus(rec)))
	return nil
}

// seatStatus tells everyone whether the game can start.
func (h *Hub) seatStatus(rec *gamestore.GameRecord) string {
	if rec.WhiteUsername == "" || rec.BlackUsername == "" {
		return h.msgs.Text("notify.waiting", nil, "Waiting for another player to join...")
	}
	turn := rec.State.Turn()
	return h.msgs.Text("notify.ready", map[string]any{"Color": string(turn)},
		fmt.Sprintf("Both players are present. It is %s's turn.", turn))
}

func (h *Hub) makeMove(ctx context.Context, c *Conn, cmd chessdto.UserGameCommand) error {
	user, err := h.resolve(ctx, cmd.AuthToken)
	if err != nil {
		return err
	}
	if err := h.requireBound(c, cmd.GameID); err != nil {
		return err
	}
	if cmd.Move == nil {
		return protocolError(h.msgs, "MAKE_MOVE requires a move")
	}
	mv := *cmd.Move

	unlock, err := h.locks.Lock(ctx, cmd.GameID)
	if err != nil {
		return err
	}
	defer unlock()

	rec, err := h.load(ctx, cmd.GameID)
	if err != nil {
		return err
	}
	role := roleOf(rec, user)
	switch {
	case role == RoleObserver:
		return chessdto.DomainError{Code: chessdto.CodeRole, Message: h.msgs.Text("error.observer_move", nil, "Error: observers cannot make moves")}
	case rec.State.Over():
		return h.gameOver(rec)
	case role.color() != rec.State.Turn():
		return chessdto.DomainError{Code: chessdto.CodeIllegalMove, Message: h.msgs.Text("error.not_your_turn", nil, "Error: it is not your turn")}
	}

	san := notation.SANOrUCI(rec.State, len(rec.MovesUCI), mv)
	next := rec.Clone()
	if err := next.State.MakeMove(mv); err != nil {
		return err
	}
	next.MovesUCI = append(next.MovesUCI, mv.UCI())
	next.MovesSAN = append(next.MovesSAN, san)

	mover := role.color()
	data := map[string]any{"User": user, "SAN": san, "Color": string(mover.Opponent())}
	var text string
	switch next.State.StatusOf(mover.Opponent()) {
	case chess.StatusCheckmate:
		next.State.SetOver(true)
		next.Result, next.Method = resultFor(mover), gamestore.MethodCheckmate
		text = h.msgs.Text("notify.checkmate", data, fmt.Sprintf("Checkmate! %s wins!", user))
	case chess.StatusStalemate:
		next.State.SetOver(true)
		next.Result, next.Method = gamestore.ResultDraw, gamestore.MethodStalemate
		text = h.msgs.Text("notify.stalemate", data, "Stalemate! The game is a draw.")
	case chess.StatusCheck:
		text = h.msgs.Text("notify.check", data, fmt.Sprintf("Check! %s is in check.", mover.Opponent()))
	default:
		text = h.msgs.Text("notify.moved", data, fmt.Sprintf("%s has made a move.", user))
	}

	if err := h.games.Save(ctx, next); err != nil {
		return err
	}
	h.logger.Info("live_move",
		zap.Int64("game_id", next.ID),
		zap.String("username", user),
		zap.String("uci", mv.UCI()),
		zap.String("san", san),
		zap.String("turn", string(next.State.Turn())),
		zap.Bool("over", next.State.Over()),
		zap.String("result", next.Result),
	)

	h.broadcast(ctx, next.ID, c, chessdto.Notification(text))
	h.broadcast(ctx, next.ID, nil, chessdto.LoadGame(next.State))
	if !next.State.Over() {
		turn := next.State.Turn()
		h.broadcast(ctx, next.ID, c, chessdto.Notification(h.msgs.Text("notify.turn",
			map[string]any{"Color": string(turn)}, fmt.Sprintf("It is now %s's turn.", turn))))
	}
	h.archiveIfFinished(ctx, next)
	return nil
}

func (h *Hub) leave(ctx context.Context, c *Conn, cmd chessdto.UserGameCommand) error {
	user, err := h.resolve(ctx, cmd.AuthToken)
	if err != nil {
		return err
	}
	if err := h.requireBound(c, cmd.GameID); err != nil {
		return err
	}

	unlock, err := h.locks.Lock(ctx, cmd.GameID)
	if err != nil {
		return err
	}
	defer unlock()

	rec, err := h.load(ctx, cmd.GameID)
	if err != nil {
		return err
	}
	role := roleOf(rec, user)
	if role != RoleObserver {
		next := rec.Clone()
		if next.WhiteUsername == user {
			next.WhiteUsername = ""
		}
		if next.BlackUsername == user {
			next.BlackUsername = ""
		}
		if err := h.games.Save(ctx, next); err != nil {
			return err
		}
	}
	h.registry.Unbind(c)
	h.logger.Info("live_leave",
		zap.Int64("game_id", rec.ID),
		zap.String("conn_id", c.ID()),
		zap.String("username", user),
		zap.String("role", string(role)),
	)
	text := h.msgs.Text("notify.left", map[string]any{"User": user}, fmt.Sprintf("%s has left the game.", user))
	h.broadcast(ctx, rec.ID, c, chessdto.Notification(text))
	return nil
}

func (h *Hub) resign(ctx context.Context, c *Conn, cmd chessdto.UserGameCommand) error {
	user, err := h.resolve(ctx, cmd.AuthToken)
	if err != nil {
		return err
	}
	if err := h.requireBound(c, cmd.GameID); err != nil {
		return err
	}

	unlock, err := h.locks.Lock(ctx, cmd.GameID)
	if err != nil {
		return err
	}
	defer unlock()

	rec, err := h.load(ctx, cmd.GameID)
	if err != nil {
		return err
	}
	role := roleOf(rec, user)
	if role == RoleObserver {
		return chessdto.DomainError{Code: chessdto.CodeRole, Message: h.msgs.Text("error.observer_resign", nil, "Error: observers cannot resign")}
	}
	if rec.State.Over() {
		return h.gameOver(rec)
	}

	winner := role.color().Opponent()
	next := rec.Clone()
	next.State.SetOver(true)
	next.Result, next.Method = resultFor(winner), gamestore.MethodResignation
	if err := h.games.Save(ctx, next); err != nil {
		return err
	}
	h.logger.Info("live_resign",
		zap.Int64("game_id", next.ID),
		zap.String("username", user),
		zap.String("winner", string(winner)),
	)
	text := h.msgs.Text("notify.resigned", map[string]any{"User": user, "Winner": string(winner)},
		fmt.Sprintf("%s has resigned. Team %s wins!", user, winner))
	h.broadcast(ctx, next.ID, nil, chessdto.Notification(text))
	h.archiveIfFinished(ctx, next)
	return nil
}

func (h *Hub) gameOver(rec *gamestore.GameRecord) error {
	reason := rec.Method
	if reason == "" {
		reason = "finished"
	}
	return chessdto.DomainError{
		Code:    chessdto.CodeGameOver,
		Message: h.msgs.Text("error.game_over", map[string]any{"Reason": reason}, "Error: the game is over"),
	}
}

func resultFor(winner chess.Color) string {
	if winner == chess.Black {
		return gamestore.ResultBlack
	}
	return gamestore.ResultWhite
}

// broadcast sends msg to every connection on gameID except skip (nil skips none).
func (h *Hub) broadcast(ctx context.Context, gameID int64, skip *Conn, msg chessdto.ServerMessage) {
	for _, peer := range h.registry.Peers(gameID) {
		if peer == skip {
			continue
		}
		h.send(ctx, peer, msg)
	}
}

// send delivers msg to c; delivery failures only get logged. Writes are bounded
// by the connection's write timeout, not by the command deadline.
func (h *Hub) send(ctx context.Context, c *Conn, msg chessdto.ServerMessage) {
	if err := c.Send(context.WithoutCancel(ctx), msg); err != nil {
		if errors.Is(err, ErrConnClosed) {
			h.logger.Debug("live_send_closed", zap.String("conn_id", c.ID()), zap.String("type", string(msg.ServerMessageType)))
			return
		}
		h.logger.Warn("live_send_error", zap.String("conn_id", c.ID()), zap.String("type", string(msg.ServerMessageType)), zap.Error(err))
	}
}

// archiveIfFinished hands a finished game to the archive. Failures are logged only.
func (h *Hub) archiveIfFinished(ctx context.Context, rec *gamestore.GameRecord) {
	if h.archive == nil || !rec.Finished() {
		return
	}
	if err := h.archive.SaveResult(context.WithoutCancel(ctx), rec); err != nil {
		h.logger.Error("game_archive_error", zap.Int64("game_id", rec.ID), zap.String("result", rec.Result), zap.Error(err))
		return
	}
	h.logger.Info("game_archive", zap.Int64("game_id", rec.ID), zap.String("result", rec.Result), zap.String("method", rec.Method))
}
