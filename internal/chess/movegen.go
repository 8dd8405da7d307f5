package chess

type offset struct{ dr, dc int }

var (
	orthogonal = []offset{{1, 0}, {-1, 0}, {0, 1}, {0, -1}}
	diagonal   = []offset{{1, 1}, {1, -1}, {-1, 1}, {-1, -1}}
	allDirs    = append(append([]offset{}, orthogonal...), diagonal...)
	knightHops = []offset{{2, 1}, {2, -1}, {-2, 1}, {-2, -1}, {1, 2}, {1, -2}, {-1, 2}, {-1, -2}}
)

// movement describes how a non-pawn piece travels.
type movement struct {
	dirs  []offset
	slide bool
}

var movements = map[PieceType]movement{
	King:   {dirs: allDirs},
	Queen:  {dirs: allDirs, slide: true},
	Rook:   {dirs: orthogonal, slide: true},
	Bishop: {dirs: diagonal, slide: true},
	Knight: {dirs: knightHops},
}

// PseudoLegalMoves returns every move the piece at from could make by its
// movement pattern, ignoring whether its own king would be left in check.
// An empty square yields nil.
func PseudoLegalMoves(b *Board, from Position) []Move {
	pc, ok := b.Piece(from)
	if !ok {
		return nil
	}
	if pc.Type == Pawn {
		return pawnMoves(b, from, pc.Color)
	}
	mv, ok := movements[pc.Type]
	if !ok {
		return nil
	}
	var out []Move
	for _, d := range mv.dirs {
		to := from
		for {
			to = to.offset(d.dr, d.dc)
			if !to.Valid() {
				break
			}
			target, occupied := b.Piece(to)
			if occupied {
				if target.Color != pc.Color {
					out = append(out, Move{Start: from, End: to})
				}
				break
			}
			out = append(out, Move{Start: from, End: to})
			if !mv.slide {
				break
			}
		}
	}
	return out
}

func pawnDirection(c Color) int {
	if c == White {
		return 1
	}
	return -1
}

func pawnStartRow(c Color) int {
	if c == White {
		return 2
	}
	return 7
}

func promotionRow(c Color) int {
	if c == White {
		return 8
	}
	return 1
}

func pawnMoves(b *Board, from Position, c Color) []Move {
	dir := pawnDirection(c)
	var out []Move
	emit := func(to Position) {
		if to.Row == promotionRow(c) {
			for _, t := range PromotionTypes {
				out = append(out, Move{Start: from, End: to, Promotion: t})
			}
			return
		}
		out = append(out, Move{Start: from, End: to})
	}

	one := from.offset(dir, 0)
	if one.Valid() {
		if _, occupied := b.Piece(one); !occupied {
			emit(one)
			two := from.offset(2*dir, 0)
			if from.Row == pawnStartRow(c) {
				if _, occupied := b.Piece(two); !occupied {
					emit(two)
				}
			}
		}
	}
	for _, dc := range []int{-1, 1} {
		to := from.offset(dir, dc)
		if target, occupied := b.Piece(to); occupied && target.Color != c {
			emit(to)
		}
	}
	return out
}

// attacks reports whether any piece of color by has a pseudo-legal move ending on target.
func attacks(b *Board, by Color, target Position) bool {
	for _, from := range b.Occupied(by) {
		for _, m := range PseudoLegalMoves(b, from) {
			if m.End == target {
				return true
			}
		}
	}
	return false
}
