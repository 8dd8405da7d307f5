package chess

import (
	"encoding/json"
	"errors"
	"math/rand"
	"testing"
)

func mustMove(t *testing.T, g *Game, uci string) {
	t.Helper()
	mv, err := ParseUCI(uci)
	if err != nil {
		t.Fatalf("ParseUCI(%q): %v", uci, err)
	}
	if err := g.MakeMove(mv); err != nil {
		t.Fatalf("MakeMove(%s): %v", uci, err)
	}
}

func boardWith(pieces map[string]Piece) Board {
	var b Board
	for sq, pc := range pieces {
		p, err := ParseSquare(sq)
		if err != nil {
			panic(err)
		}
		b.Put(p, pc)
	}
	return b
}

var (
	wK = Piece{White, King}
	wQ = Piece{White, Queen}
	wR = Piece{White, Rook}
	wB = Piece{White, Bishop}
	wN = Piece{White, Knight}
	wP = Piece{White, Pawn}
	bK = Piece{Black, King}
	bR = Piece{Black, Rook}
	bN = Piece{Black, Knight}
	bP = Piece{Black, Pawn}
)

func TestNewBoardLayout(t *testing.T) {
	b := NewBoard()
	if pc, ok := b.Piece(Pos(1, 5)); !ok || pc != wK {
		t.Fatalf("e1: got %+v ok=%v", pc, ok)
	}
	if pc, ok := b.Piece(Pos(8, 4)); !ok || pc != (Piece{Black, Queen}) {
		t.Fatalf("d8: got %+v ok=%v", pc, ok)
	}
	if n := len(b.Occupied(White)) + len(b.Occupied(Black)); n != 32 {
		t.Fatalf("expected 32 pieces, got %d", n)
	}
	if _, ok := b.Piece(Pos(4, 4)); ok {
		t.Fatalf("d4 should be empty")
	}
}

func TestStartingPositionHasTwentyMoves(t *testing.T) {
	g := NewGame()
	total := 0
	for _, p := range g.board.Occupied(White) {
		total += len(g.ValidMoves(p))
	}
	if total != 20 {
		t.Fatalf("expected 20 legal moves, got %d", total)
	}
	if got := g.ValidMoves(Pos(4, 4)); got != nil {
		t.Fatalf("empty square should have no moves, got %v", got)
	}
}

func TestSlidingPieceStopsAtBlockers(t *testing.T) {
	b := boardWith(map[string]Piece{"d4": wR, "d6": wP, "g4": bP, "a1": wK, "h8": bK})
	moves := PseudoLegalMoves(&b, Pos(4, 4))
	if len(moves) != 10 {
		t.Fatalf("expected 10 rook moves, got %d: %v", len(moves), moves)
	}
	captures := 0
	for _, m := range moves {
		switch m.End.String() {
		case "d6", "d7", "d8", "h4":
			t.Fatalf("rook passed a blocker: %s", m)
		case "g4":
			captures++
		}
	}
	if captures != 1 {
		t.Fatalf("expected exactly one capture on g4, got %d", captures)
	}
}

func TestIsInCheckAtCanonicalDistances(t *testing.T) {
	cases := []struct {
		name  string
		sq    string
		pc    Piece
		check bool
	}{
		{"queen rank", "a5", wQ, true},
		{"rook file", "e8", wR, true},
		{"bishop diagonal", "b2", wB, true},
		{"knight hop", "d3", wN, true},
		{"pawn capture", "d4", wP, true},
		{"king adjacent", "d4", wK, true},
		{"rook off line", "f8", wR, false},
		{"pawn in front", "e4", wP, false},
		{"knight too close", "d4", wN, false},
	}
	for _, tc := range cases {
		pieces := map[string]Piece{"e5": bK, tc.sq: tc.pc}
		if tc.pc != wK {
			pieces["h1"] = wK
		}
		g := NewGameFromBoard(boardWith(pieces), Black)
		if got := g.IsInCheck(Black); got != tc.check {
			t.Fatalf("%s: IsInCheck(BLACK)=%v want %v", tc.name, got, tc.check)
		}
		if tc.pc != wK && g.IsInCheck(White) {
			t.Fatalf("%s: white should not be in check", tc.name)
		}
	}
}

func TestBlockedAttackerGivesNoCheck(t *testing.T) {
	g := NewGameFromBoard(boardWith(map[string]Piece{"e5": bK, "e1": wR, "e3": bN, "h1": wK}), Black)
	if g.IsInCheck(Black) {
		t.Fatalf("knight on e3 should block the rook")
	}
}

func TestNoKingMeansNoCheck(t *testing.T) {
	g := NewGameFromBoard(boardWith(map[string]Piece{"e5": wQ}), Black)
	if g.IsInCheck(Black) {
		t.Fatalf("a side without a king cannot be in check")
	}
}

func TestPawnAdvanceRules(t *testing.T) {
	b := boardWith(map[string]Piece{"e2": wP, "e3": bP, "a1": wK, "h8": bK})
	if got := PseudoLegalMoves(&b, Pos(2, 5)); len(got) != 0 {
		t.Fatalf("blocked pawn should not move, got %v", got)
	}
	b = boardWith(map[string]Piece{"e2": wP, "e4": bP, "a1": wK, "h8": bK})
	got := PseudoLegalMoves(&b, Pos(2, 5))
	if len(got) != 1 || got[0].End != Pos(3, 5) {
		t.Fatalf("expected only e3, got %v", got)
	}
	b = boardWith(map[string]Piece{"e6": bP, "d5": wP, "f5": wN, "a1": wK, "h8": bK})
	got = PseudoLegalMoves(&b, Pos(6, 5))
	if len(got) != 3 {
		t.Fatalf("expected e5 and two captures, got %v", got)
	}
	b = boardWith(map[string]Piece{"e3": wP, "a1": wK, "h8": bK})
	if got := PseudoLegalMoves(&b, Pos(3, 5)); len(got) != 1 {
		t.Fatalf("double step only from the start rank, got %v", got)
	}
}

func TestPromotion(t *testing.T) {
	b := boardWith(map[string]Piece{"a7": wP, "b8": bN, "e1": wK, "h6": bK})
	g := NewGameFromBoard(b, White)
	moves := g.ValidMoves(Pos(7, 1))
	if len(moves) != 8 {
		t.Fatalf("expected 4 promotions on a8 and 4 on b8, got %d: %v", len(moves), moves)
	}
	for _, m := range moves {
		if m.Promotion == "" {
			t.Fatalf("unexpected plain move onto back rank: %v", m)
		}
	}

	before := g.Board()
	plain := Move{Start: Pos(7, 1), End: Pos(8, 1)}
	var ime *IllegalMoveError
	if err := g.MakeMove(plain); !errors.As(err, &ime) || ime.Reason != ReasonNotLegal {
		t.Fatalf("plain move to back rank should be rejected, got %v", err)
	}
	if g.Board() != before {
		t.Fatalf("board changed after rejected move")
	}

	if err := g.MakeMove(Move{Start: Pos(7, 1), End: Pos(8, 1), Promotion: Queen}); err != nil {
		t.Fatalf("promotion: %v", err)
	}
	if pc, ok := g.board.Piece(Pos(8, 1)); !ok || pc != wQ {
		t.Fatalf("expected white queen on a8, got %+v", pc)
	}
	if _, ok := g.board.Piece(Pos(7, 1)); ok {
		t.Fatalf("origin should be empty")
	}
	if g.Turn() != Black {
		t.Fatalf("turn should pass to black")
	}
}

func TestPinnedPieceHasNoMoves(t *testing.T) {
	g := NewGameFromBoard(boardWith(map[string]Piece{"e1": wK, "e2": wB, "e8": bR, "a8": bK}), White)
	if got := g.ValidMoves(Pos(2, 5)); len(got) != 0 {
		t.Fatalf("pinned bishop should have no legal moves, got %v", got)
	}
	for _, m := range g.ValidMoves(Pos(1, 5)) {
		if m.End.Col == 5 {
			t.Fatalf("king may not stay on the rook's file: %v", m)
		}
	}
}

func TestMakeMoveIsAtomic(t *testing.T) {
	g := NewGame()
	cases := []struct {
		mv     Move
		reason string
	}{
		{Move{Start: Pos(4, 4), End: Pos(5, 4)}, ReasonNoPiece},
		{Move{Start: Pos(7, 5), End: Pos(5, 5)}, ReasonWrongTurn},
		{Move{Start: Pos(2, 5), End: Pos(5, 5)}, ReasonNotLegal},
		{Move{Start: Pos(1, 4), End: Pos(5, 8)}, ReasonNotLegal},
	}
	for _, tc := range cases {
		before, turn := g.Board(), g.Turn()
		err := g.MakeMove(tc.mv)
		var ime *IllegalMoveError
		if !errors.As(err, &ime) {
			t.Fatalf("%s: expected IllegalMoveError, got %v", tc.mv, err)
		}
		if ime.Reason != tc.reason {
			t.Fatalf("%s: reason=%q want %q", tc.mv, ime.Reason, tc.reason)
		}
		if g.Board() != before || g.Turn() != turn {
			t.Fatalf("%s: state changed on rejection", tc.mv)
		}
	}
}

func TestOpeningPawnPush(t *testing.T) {
	g := NewGame()
	if err := g.MakeMove(Move{Start: Pos(2, 5), End: Pos(4, 5)}); err != nil {
		t.Fatalf("e2e4: %v", err)
	}
	if g.Turn() != Black {
		t.Fatalf("expected BLACK to move, got %s", g.Turn())
	}
	if pc, ok := g.board.Piece(Pos(4, 5)); !ok || pc != wP {
		t.Fatalf("expected white pawn on e4")
	}
}

func TestFoolsMate(t *testing.T) {
	g := NewGame()
	for _, mv := range []string{"f2f3", "e7e5", "g2g4", "d8h4"} {
		mustMove(t, g, mv)
	}
	if !g.IsInCheck(White) {
		t.Fatalf("white should be in check")
	}
	if !g.IsInCheckmate(White) {
		t.Fatalf("white should be checkmated")
	}
	if g.IsInStalemate(White) {
		t.Fatalf("checkmate is not stalemate")
	}
	if s := g.StatusOf(White); s != StatusCheckmate {
		t.Fatalf("StatusOf=%s", s)
	}
}

func TestStalemate(t *testing.T) {
	g := NewGameFromBoard(boardWith(map[string]Piece{"a8": bK, "b6": wQ, "e1": wK}), Black)
	if g.IsInCheck(Black) {
		t.Fatalf("black is not in check")
	}
	if !g.IsInStalemate(Black) {
		t.Fatalf("expected stalemate")
	}
	if g.IsInCheckmate(Black) {
		t.Fatalf("stalemate is not checkmate")
	}
	if s := g.StatusOf(Black); s != StatusStalemate {
		t.Fatalf("StatusOf=%s", s)
	}
}

func TestOverGameRejectsMoves(t *testing.T) {
	g := NewGame()
	g.SetOver(true)
	err := g.MakeMove(Move{Start: Pos(2, 5), End: Pos(4, 5)})
	var ime *IllegalMoveError
	if !errors.As(err, &ime) || ime.Reason != ReasonGameOver {
		t.Fatalf("expected game over rejection, got %v", err)
	}
}

func TestGameJSONRoundTrip(t *testing.T) {
	g := NewGame()
	mustMove(t, g, "e2e4")
	raw, err := json.Marshal(g)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var back Game
	if err := json.Unmarshal(raw, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if back.Board() != g.Board() || back.Turn() != Black || back.Over() {
		t.Fatalf("round trip mismatch: %s", raw)
	}
}

// Random playouts: every returned move keeps the mover's king safe, and a side
// with no legal move is always in checkmate or stalemate.
func TestRandomPlayoutsKeepKingSafe(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for game := 0; game < 12; game++ {
		g := NewGame()
		for ply := 0; ply < 120; ply++ {
			mover := g.Turn()
			var all []Move
			for _, p := range g.board.Occupied(mover) {
				for _, m := range g.ValidMoves(p) {
					if leavesKingInCheck(g.board, m, mover) {
						t.Fatalf("game %d ply %d: %s leaves %s in check", game, ply, m, mover)
					}
					all = append(all, m)
				}
			}
			if len(all) == 0 {
				s := g.StatusOf(mover)
				if s != StatusCheckmate && s != StatusStalemate {
					t.Fatalf("game %d: no moves but status %s", game, s)
				}
				break
			}
			mv := all[rng.Intn(len(all))]
			if err := g.MakeMove(mv); err != nil {
				t.Fatalf("game %d ply %d: legal move %s rejected: %v", game, ply, mv, err)
			}
		}
	}
}
