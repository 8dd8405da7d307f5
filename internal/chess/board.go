package chess

import (
	"encoding/json"
	"fmt"
)

// Board is an 8x8 grid of optional pieces. The zero value is an empty board.
// Board is a plain array so copies are independent and comparable with ==.
type Board struct {
	squares [64]Piece
}

var backRank = [8]PieceType{Rook, Knight, Bishop, Queen, King, Bishop, Knight, Rook}

// NewBoard returns a board in the standard opening arrangement.
func NewBoard() Board {
	var b Board
	for col := 1; col <= 8; col++ {
		b.Put(Pos(1, col), Piece{Color: White, Type: backRank[col-1]})
		b.Put(Pos(2, col), Piece{Color: White, Type: Pawn})
		b.Put(Pos(7, col), Piece{Color: Black, Type: Pawn})
		b.Put(Pos(8, col), Piece{Color: Black, Type: backRank[col-1]})
	}
	return b
}

func index(p Position) int { return (p.Row-1)*8 + (p.Col - 1) }

// Piece returns the piece at p and whether the square is occupied.
func (b *Board) Piece(p Position) (Piece, bool) {
	if !p.Valid() {
		return Piece{}, false
	}
	pc := b.squares[index(p)]
	return pc, pc.Type != ""
}

// Put places pc at p, replacing whatever was there. Out-of-range squares are ignored.
func (b *Board) Put(p Position, pc Piece) {
	if !p.Valid() {
		return
	}
	b.squares[index(p)] = pc
}

func (b *Board) Clear(p Position) { b.Put(p, Piece{}) }

// KingPosition locates c's king.
func (b *Board) KingPosition(c Color) (Position, bool) {
	for i, pc := range b.squares {
		if pc.Type == King && pc.Color == c {
			return Position{Row: i/8 + 1, Col: i%8 + 1}, true
		}
	}
	return Position{}, false
}

// Occupied returns every square holding a piece of color c, in a1..h8 order.
func (b *Board) Occupied(c Color) []Position {
	out := make([]Position, 0, 16)
	for i, pc := range b.squares {
		if pc.Type != "" && pc.Color == c {
			out = append(out, Position{Row: i/8 + 1, Col: i%8 + 1})
		}
	}
	return out
}

// apply moves the piece on m.Start to m.End, promoting when requested.
// It performs no validation.
func (b *Board) apply(m Move) {
	pc, ok := b.Piece(m.Start)
	if !ok {
		return
	}
	if m.Promotion != "" {
		pc = Piece{Color: pc.Color, Type: m.Promotion}
	}
	b.Clear(m.Start)
	b.Put(m.End, pc)
}

type square struct {
	Position Position `json:"position"`
	Piece    Piece    `json:"piece"`
}

// MarshalJSON encodes the occupied squares only.
func (b Board) MarshalJSON() ([]byte, error) {
	list := make([]square, 0, 32)
	for i, pc := range b.squares {
		if pc.Type == "" {
			continue
		}
		list = append(list, square{Position: Position{Row: i/8 + 1, Col: i%8 + 1}, Piece: pc})
	}
	return json.Marshal(list)
}

func (b *Board) UnmarshalJSON(data []byte) error {
	var list []square
	if err := json.Unmarshal(data, &list); err != nil {
		return err
	}
	var next Board
	for _, sq := range list {
		if !sq.Position.Valid() {
			return fmt.Errorf("board: square out of range: %+v", sq.Position)
		}
		if !sq.Piece.Color.Valid() || !sq.Piece.Type.Valid() {
			return fmt.Errorf("board: invalid piece at %s", sq.Position)
		}
		next.Put(sq.Position, sq.Piece)
	}
	*b = next
	return nil
}
