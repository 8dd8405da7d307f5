// Package notation renders positions and moves of the rules engine in
// standard chess notations (SAN, FEN, PGN), using a reference chess library
// loaded from the engine's own board.
package notation

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	nchess "github.com/corentings/chess/v2"

	"github.com/park285/cheese-live-chess/internal/chess"
)

var errNoKing = errors.New("notation: position needs both kings")

// FEN renders the engine's position. ply is the number of half-moves already
// played and only feeds the move counter. Castling and en passant are never
// available in this game, so those fields are always "-".
func FEN(g *chess.Game, ply int) string {
	board := g.Board()
	var b strings.Builder
	for row := 8; row >= 1; row-- {
		empty := 0
		for col := 1; col <= 8; col++ {
			pc, ok := board.Piece(chess.Pos(row, col))
			if !ok {
				empty++
				continue
			}
			if empty > 0 {
				b.WriteString(strconv.Itoa(empty))
				empty = 0
			}
			letter := pc.Type.Letter()
			if pc.Color == chess.White {
				letter = strings.ToUpper(letter)
			}
			b.WriteString(letter)
		}
		if empty > 0 {
			b.WriteString(strconv.Itoa(empty))
		}
		if row > 1 {
			b.WriteByte('/')
		}
	}
	side := "w"
	if g.Turn() == chess.Black {
		side = "b"
	}
	if ply < 0 {
		ply = 0
	}
	fmt.Fprintf(&b, " %s - - 0 %d", side, ply/2+1)
	return b.String()
}

// SAN renders next in standard algebraic notation from the engine's current
// position, before next is applied.
func SAN(g *chess.Game, ply int, next chess.Move) (string, error) {
	board := g.Board()
	if _, ok := board.KingPosition(chess.White); !ok {
		return "", errNoKing
	}
	if _, ok := board.KingPosition(chess.Black); !ok {
		return "", errNoKing
	}
	opt, err := nchess.FEN(FEN(g, ply))
	if err != nil {
		return "", fmt.Errorf("load position: %w", err)
	}
	pos := nchess.NewGame(opt).Position()
	mv, err := nchess.UCINotation{}.Decode(pos, next.UCI())
	if err != nil {
		return "", fmt.Errorf("decode %s: %w", next.UCI(), err)
	}
	return nchess.AlgebraicNotation{}.Encode(pos, mv), nil
}

// SANOrUCI is SAN falling back to UCI for positions the notation library
// cannot represent, such as a board missing a king.
func SANOrUCI(g *chess.Game, ply int, next chess.Move) string {
	if s, err := SAN(g, ply, next); err == nil && s != "" {
		return s
	}
	return next.UCI()
}

// Headers are the PGN tag pairs written by PGN.
type Headers struct {
	Event       string
	Site        string
	Date        time.Time
	White       string
	Black       string
	Termination string
}

// ResultToken maps white/black/draw to the PGN result token.
func ResultToken(result string) string {
	switch strings.ToLower(strings.TrimSpace(result)) {
	case "white":
		return "1-0"
	case "black":
		return "0-1"
	case "draw":
		return "1/2-1/2"
	default:
		return "*"
	}
}

// PGN writes headers and numbered SAN movetext.
func PGN(h Headers, san []string, result string) string {
	token := ResultToken(result)
	date := h.Date
	if date.IsZero() {
		date = time.Now()
	}
	event := h.Event
	if strings.TrimSpace(event) == "" {
		event = "Live Chess"
	}
	site := h.Site
	if strings.TrimSpace(site) == "" {
		site = "?"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "[Event \"%s\"]\n", sanitize(event))
	fmt.Fprintf(&b, "[Site \"%s\"]\n", sanitize(site))
	fmt.Fprintf(&b, "[Date \"%04d.%02d.%02d\"]\n", date.Year(), int(date.Month()), date.Day())
	fmt.Fprintf(&b, "[White \"%s\"]\n", sanitize(orUnknown(h.White)))
	fmt.Fprintf(&b, "[Black \"%s\"]\n", sanitize(orUnknown(h.Black)))
	if strings.TrimSpace(h.Termination) != "" {
		fmt.Fprintf(&b, "[Termination \"%s\"]\n", sanitize(strings.ToLower(h.Termination)))
	}
	fmt.Fprintf(&b, "[Result \"%s\"]\n\n", token)

	for i := 0; i < len(san); i += 2 {
		fmt.Fprintf(&b, "%d. %s ", i/2+1, strings.TrimSpace(san[i]))
		if i+1 < len(san) {
			b.WriteString(strings.TrimSpace(san[i+1]))
			b.WriteString(" ")
		}
	}
	b.WriteString(token)
	return b.String()
}

func orUnknown(s string) string {
	if strings.TrimSpace(s) == "" {
		return "?"
	}
	return s
}

func sanitize(s string) string {
	s = strings.ReplaceAll(s, "\\", " ")
	s = strings.ReplaceAll(s, "\"", "'")
	return strings.TrimSpace(s)
}
