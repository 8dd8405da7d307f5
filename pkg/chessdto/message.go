package chessdto

import "github.com/park285/cheese-live-chess/internal/chess"

// ServerMessageType discriminates outbound frames.
type ServerMessageType string

const (
	MessageLoadGame     ServerMessageType = "LOAD_GAME"
	MessageNotification ServerMessageType = "NOTIFICATION"
	MessageError        ServerMessageType = "ERROR"
)

// ServerMessage is one outbound frame; only the field matching the type is set.
type ServerMessage struct {
	ServerMessageType ServerMessageType `json:"serverMessageType"`
	Game              *chess.Game       `json:"game,omitempty"`
	Message           string            `json:"message,omitempty"`
	ErrorMessage      string            `json:"errorMessage,omitempty"`
	ErrorCode         string            `json:"errorCode,omitempty"`
}

func LoadGame(g *chess.Game) ServerMessage {
	return ServerMessage{ServerMessageType: MessageLoadGame, Game: g}
}

func Notification(text string) ServerMessage {
	return ServerMessage{ServerMessageType: MessageNotification, Message: text}
}

func ErrorFrame(e DomainError) ServerMessage {
	return ServerMessage{ServerMessageType: MessageError, ErrorMessage: e.Error(), ErrorCode: e.Code}
}
