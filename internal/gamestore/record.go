// Package gamestore persists GameRecords: the seats, display name and
// rules-engine state of each live game.
package gamestore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/park285/cheese-live-chess/internal/chess"
)

var (
	ErrNotFound = errors.New("gamestore: game not found")
	ErrStorage  = errors.New("gamestore: storage failure")

	errNilRecord = errors.New("nil record")
)

// Result values recorded on finished games.
const (
	ResultWhite = "white"
	ResultBlack = "black"
	ResultDraw  = "draw"
)

// Methods by which a game ends.
const (
	MethodCheckmate   = "checkmate"
	MethodStalemate   = "stalemate"
	MethodResignation = "resignation"
)

// GameRecord is the durable form of one game.
type GameRecord struct {
	ID            int64       `json:"gameID"`
	WhiteUsername string      `json:"whiteUsername"`
	BlackUsername string      `json:"blackUsername"`
	Name          string      `json:"gameName"`
	State         *chess.Game `json:"game"`
	MovesUCI      []string    `json:"movesUci"`
	MovesSAN      []string    `json:"movesSan"`
	Result        string      `json:"result,omitempty"`
	Method        string      `json:"method,omitempty"`
	CreatedAt     time.Time   `json:"createdAt"`
	UpdatedAt     time.Time   `json:"updatedAt"`
}

// NewRecord returns a record with a fresh game already initialised.
func NewRecord(id int64, name string) *GameRecord {
	now := time.Now().UTC()
	return &GameRecord{
		ID:        id,
		Name:      name,
		State:     chess.NewGame(),
		MovesUCI:  []string{},
		MovesSAN:  []string{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Clone returns a deep copy.
func (r *GameRecord) Clone() *GameRecord {
	if r == nil {
		return nil
	}
	cp := *r
	if r.State != nil {
		cp.State = r.State.Clone()
	}
	cp.MovesUCI = append([]string{}, r.MovesUCI...)
	cp.MovesSAN = append([]string{}, r.MovesSAN...)
	return &cp
}

// Finished reports whether a result has been recorded.
func (r *GameRecord) Finished() bool { return r != nil && r.Result != "" }

// Repository loads and stores GameRecords. Implementations return errors
// wrapping ErrNotFound or ErrStorage.
type Repository interface {
	Create(ctx context.Context, name string) (*GameRecord, error)
	Load(ctx context.Context, id int64) (*GameRecord, error)
	Save(ctx context.Context, rec *GameRecord) error
	Close() error
}

// Archiver stores finished games for history.
type Archiver interface {
	SaveResult(ctx context.Context, rec *GameRecord) error
}

func storageErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrStorage, op, err)
}

func notFound(id int64) error {
	return fmt.Errorf("%w: %d", ErrNotFound, id)
}
