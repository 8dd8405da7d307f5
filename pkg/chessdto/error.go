package chessdto

// Error codes carried by ERROR frames.
const (
	CodeAuth        = "AUTH"
	CodeNotFound    = "NOT_FOUND"
	CodeIllegalMove = "ILLEGAL_MOVE"
	CodeRole        = "ROLE"
	CodeGameOver    = "GAME_OVER"
	CodeStorage     = "STORAGE"
	CodeProtocol    = "PROTOCOL"
)

type DomainError struct {
	Code      string
	Message   string
	Retryable bool
}

func (e DomainError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Code != "" {
		return e.Code
	}
	return "chess service error"
}
