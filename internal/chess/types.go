package chess

import (
	"fmt"
	"strings"
)

// Color identifies a side.
type Color string

const (
	White Color = "WHITE"
	Black Color = "BLACK"
)

// Opponent returns the other side.
func (c Color) Opponent() Color {
	if c == White {
		return Black
	}
	return White
}

func (c Color) Valid() bool { return c == White || c == Black }

// PieceType is the kind of a piece. The zero value means "no piece" and,
// on a Move, "no promotion".
type PieceType string

const (
	King   PieceType = "KING"
	Queen  PieceType = "QUEEN"
	Rook   PieceType = "ROOK"
	Bishop PieceType = "BISHOP"
	Knight PieceType = "KNIGHT"
	Pawn   PieceType = "PAWN"
)

// PromotionTypes lists the pieces a pawn may become, in generation order.
var PromotionTypes = []PieceType{Queen, Bishop, Rook, Knight}

func (t PieceType) Valid() bool {
	switch t {
	case King, Queen, Rook, Bishop, Knight, Pawn:
		return true
	}
	return false
}

// ParsePieceType accepts the wire names as well as one-letter forms (q, r, b, n, k, p).
func ParsePieceType(s string) (PieceType, error) {
	v := strings.ToUpper(strings.TrimSpace(s))
	switch v {
	case "":
		return "", nil
	case "Q":
		return Queen, nil
	case "R":
		return Rook, nil
	case "B":
		return Bishop, nil
	case "N":
		return Knight, nil
	case "K":
		return King, nil
	case "P":
		return Pawn, nil
	}
	t := PieceType(v)
	if !t.Valid() {
		return "", fmt.Errorf("unknown piece type %q", s)
	}
	return t, nil
}

// Letter returns the lowercase UCI letter of the type.
func (t PieceType) Letter() string {
	switch t {
	case Queen:
		return "q"
	case Rook:
		return "r"
	case Bishop:
		return "b"
	case Knight:
		return "n"
	case King:
		return "k"
	case Pawn:
		return "p"
	}
	return ""
}

// Piece is an immutable (color, type) pair.
type Piece struct {
	Color Color     `json:"teamColor"`
	Type  PieceType `json:"pieceType"`
}

// Position is a square; Row and Col are both 1-based, Row 1 being white's back rank
// and Col 1 the a-file.
type Position struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

func Pos(row, col int) Position { return Position{Row: row, Col: col} }

func (p Position) Valid() bool {
	return p.Row >= 1 && p.Row <= 8 && p.Col >= 1 && p.Col <= 8
}

func (p Position) offset(dr, dc int) Position {
	return Position{Row: p.Row + dr, Col: p.Col + dc}
}

// String renders the square in algebraic form ("e4"); invalid squares render as "??".
func (p Position) String() string {
	if !p.Valid() {
		return "??"
	}
	return string(rune('a'+p.Col-1)) + string(rune('0'+p.Row))
}

// ParseSquare parses an algebraic square such as "e4".
func ParseSquare(s string) (Position, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if len(s) != 2 {
		return Position{}, fmt.Errorf("invalid square %q", s)
	}
	p := Position{Row: int(s[1] - '0'), Col: int(s[0]-'a') + 1}
	if !p.Valid() {
		return Position{}, fmt.Errorf("invalid square %q", s)
	}
	return p, nil
}

// Move is a value type; two moves with equal endpoints but different
// promotion types are different moves.
type Move struct {
	Start     Position  `json:"startPosition"`
	End       Position  `json:"endPosition"`
	Promotion PieceType `json:"promotionPiece,omitempty"`
}

// UCI renders the move in long algebraic form ("e7e8q").
func (m Move) UCI() string {
	return m.Start.String() + m.End.String() + m.Promotion.Letter()
}

func (m Move) String() string { return m.UCI() }

// ParseUCI parses a long algebraic move such as "e2e4" or "a7a8q".
func ParseUCI(s string) (Move, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if len(s) != 4 && len(s) != 5 {
		return Move{}, fmt.Errorf("invalid uci move %q", s)
	}
	from, err := ParseSquare(s[0:2])
	if err != nil {
		return Move{}, err
	}
	to, err := ParseSquare(s[2:4])
	if err != nil {
		return Move{}, err
	}
	mv := Move{Start: from, End: to}
	if len(s) == 5 {
		t, err := ParsePieceType(s[4:])
		if err != nil {
			return Move{}, err
		}
		mv.Promotion = t
	}
	return mv, nil
}
