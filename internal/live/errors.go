package live

import (
	"context"
	"errors"

	"github.com/park285/cheese-live-chess/internal/chess"
	"github.com/park285/cheese-live-chess/internal/gamestore"
	"github.com/park285/cheese-live-chess/internal/identity"
	"github.com/park285/cheese-live-chess/internal/msgcat"
	"github.com/park285/cheese-live-chess/pkg/chessdto"
)

// domainError converts a command failure into the ERROR frame payload.
func domainError(msgs *msgcat.Catalog, err error) chessdto.DomainError {
	var de chessdto.DomainError
	if errors.As(err, &de) {
		return de
	}
	var ime *chess.IllegalMoveError
	switch {
	case errors.As(err, &ime):
		if ime.Reason == chess.ReasonGameOver {
			return chessdto.DomainError{Code: chessdto.CodeGameOver, Message: msgs.Text("error.game_over", map[string]any{"Reason": "no further moves"}, "Error: the game is over")}
		}
		return chessdto.DomainError{Code: chessdto.CodeIllegalMove, Message: msgs.Text("error.illegal_move", map[string]any{"Move": ime.Move.UCI()}, "Error: illegal move")}
	case errors.Is(err, identity.ErrUnauthorized):
		return chessdto.DomainError{Code: chessdto.CodeAuth, Message: msgs.Text("error.auth", nil, "Error: unauthorized")}
	case errors.Is(err, identity.ErrUnavailable):
		return chessdto.DomainError{Code: chessdto.CodeAuth, Message: "Error: identity service unavailable", Retryable: true}
	case errors.Is(err, gamestore.ErrNotFound):
		return chessdto.DomainError{Code: chessdto.CodeNotFound, Message: "Error: game not found"}
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return chessdto.DomainError{Code: chessdto.CodeStorage, Message: "Error: request timed out", Retryable: true}
	case errors.Is(err, gamestore.ErrStorage):
		return chessdto.DomainError{Code: chessdto.CodeStorage, Message: msgs.Text("error.storage", nil, "Error: the game could not be saved"), Retryable: true}
	}
	return chessdto.DomainError{Code: chessdto.CodeProtocol, Message: msgs.Text("error.protocol", map[string]any{"Detail": "request failed"}, "Error: request failed")}
}

func protocolError(msgs *msgcat.Catalog, detail string) chessdto.DomainError {
	return chessdto.DomainError{
		Code:    chessdto.CodeProtocol,
		Message: msgs.Text("error.protocol", map[string]any{"Detail": detail}, "Error: "+detail),
	}
}
