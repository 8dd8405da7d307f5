package chessdto

import "github.com/park285/cheese-live-chess/internal/chess"

// CommandType discriminates inbound frames.
type CommandType string

const (
	CommandConnect  CommandType = "CONNECT"
	CommandMakeMove CommandType = "MAKE_MOVE"
	CommandLeave    CommandType = "LEAVE"
	CommandResign   CommandType = "RESIGN"
)

func (t CommandType) Valid() bool {
	switch t {
	case CommandConnect, CommandMakeMove, CommandLeave, CommandResign:
		return true
	}
	return false
}

// UserGameCommand is one inbound frame. Move is set only for MAKE_MOVE.
type UserGameCommand struct {
	CommandType CommandType `json:"commandType"`
	AuthToken   string      `json:"authToken"`
	GameID      int64       `json:"gameID"`
	Move        *chess.Move `json:"move,omitempty"`
}
