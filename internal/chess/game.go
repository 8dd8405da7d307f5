package chess

import (
	"encoding/json"
	"errors"
)

// Status summarises the position from one side's point of view.
type Status string

const (
	StatusNormal    Status = "normal"
	StatusCheck     Status = "check"
	StatusCheckmate Status = "checkmate"
	StatusStalemate Status = "stalemate"
)

// Game is the rules engine for one game: a board, the side to move and the over flag.
// A Game is not safe for concurrent use.
type Game struct {
	board Board
	turn  Color
	over  bool
}

// NewGame returns a game in the starting position with WHITE to move.
func NewGame() *Game {
	return &Game{board: NewBoard(), turn: White}
}

// NewGameFromBoard starts a game from an arbitrary position.
func NewGameFromBoard(b Board, turn Color) *Game {
	if !turn.Valid() {
		turn = White
	}
	return &Game{board: b, turn: turn}
}

func (g *Game) Board() Board { return g.board }

func (g *Game) Turn() Color { return g.turn }

func (g *Game) Over() bool { return g.over }

// SetOver freezes (or unfreezes) the game. Resignation is recorded this way.
func (g *Game) SetOver(v bool) { g.over = v }

// Clone returns an independent copy.
func (g *Game) Clone() *Game {
	cp := *g
	return &cp
}

// ValidMoves returns the legal moves of the piece at p, or nil if p is empty.
func (g *Game) ValidMoves(p Position) []Move {
	pc, ok := g.board.Piece(p)
	if !ok {
		return nil
	}
	candidates := PseudoLegalMoves(&g.board, p)
	legal := make([]Move, 0, len(candidates))
	for _, m := range candidates {
		if !leavesKingInCheck(g.board, m, pc.Color) {
			legal = append(legal, m)
		}
	}
	return legal
}

// leavesKingInCheck plays m on a scratch copy of b and tests mover's king.
func leavesKingInCheck(b Board, m Move, mover Color) bool {
	b.apply(m)
	return inCheck(&b, mover)
}

// MakeMove validates and applies m. On error the game is left untouched.
// MakeMove does not evaluate check or mate; callers query that afterwards.
func (g *Game) MakeMove(m Move) error {
	if g.over {
		return &IllegalMoveError{Move: m, Reason: ReasonGameOver}
	}
	pc, ok := g.board.Piece(m.Start)
	if !ok {
		return &IllegalMoveError{Move: m, Reason: ReasonNoPiece}
	}
	if pc.Color != g.turn {
		return &IllegalMoveError{Move: m, Reason: ReasonWrongTurn}
	}
	legal := false
	for _, v := range g.ValidMoves(m.Start) {
		if v == m {
			legal = true
			break
		}
	}
	if !legal {
		return &IllegalMoveError{Move: m, Reason: ReasonNotLegal}
	}
	g.board.apply(m)
	g.turn = g.turn.Opponent()
	return nil
}

// IsInCheck reports whether c's king is attacked. A side without a king is never in check.
func (g *Game) IsInCheck(c Color) bool { return inCheck(&g.board, c) }

func inCheck(b *Board, c Color) bool {
	king, ok := b.KingPosition(c)
	if !ok {
		return false
	}
	return attacks(b, c.Opponent(), king)
}

func (g *Game) hasLegalMove(c Color) bool {
	for _, p := range g.board.Occupied(c) {
		if len(g.ValidMoves(p)) > 0 {
			return true
		}
	}
	return false
}

// IsInCheckmate reports whether c is in check with no legal move.
func (g *Game) IsInCheckmate(c Color) bool {
	return g.IsInCheck(c) && !g.hasLegalMove(c)
}

// IsInStalemate reports whether c has no legal move while not in check.
func (g *Game) IsInStalemate(c Color) bool {
	return !g.IsInCheck(c) && !g.hasLegalMove(c)
}

// StatusOf classifies the position for c.
func (g *Game) StatusOf(c Color) Status {
	check := g.IsInCheck(c)
	mobile := g.hasLegalMove(c)
	switch {
	case check && !mobile:
		return StatusCheckmate
	case !mobile:
		return StatusStalemate
	case check:
		return StatusCheck
	}
	return StatusNormal
}

type gameJSON struct {
	Board    Board `json:"board"`
	TeamTurn Color `json:"teamTurn"`
	Over     bool  `json:"over"`
}

func (g *Game) MarshalJSON() ([]byte, error) {
	return json.Marshal(gameJSON{Board: g.board, TeamTurn: g.turn, Over: g.over})
}

func (g *Game) UnmarshalJSON(data []byte) error {
	var raw gameJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if !raw.TeamTurn.Valid() {
		return errors.New("game: invalid teamTurn")
	}
	g.board = raw.Board
	g.turn = raw.TeamTurn
	g.over = raw.Over
	return nil
}
