package chess

import "fmt"

// Reasons carried by IllegalMoveError.
const (
	ReasonNoPiece   = "no piece at start square"
	ReasonWrongTurn = "not that side's turn"
	ReasonNotLegal  = "move is not legal"
	ReasonGameOver  = "game is over"
)

// IllegalMoveError reports a rejected move. The game is unchanged when it is returned.
type IllegalMoveError struct {
	Move   Move
	Reason string
}

func (e *IllegalMoveError) Error() string {
	return fmt.Sprintf("illegal move %s: %s", e.Move.UCI(), e.Reason)
}
