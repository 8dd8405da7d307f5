package gamestore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"
)

// OpenPostgres opens and pings a lib/pq pool.
func OpenPostgres(databaseURL string) (*sql.DB, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(16)
	db.SetMaxIdleConns(8)
	db.SetConnMaxLifetime(30 * time.Minute)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS games (
		game_id        BIGSERIAL PRIMARY KEY,
		white_username TEXT NOT NULL DEFAULT '',
		black_username TEXT NOT NULL DEFAULT '',
		game_name      TEXT NOT NULL DEFAULT '',
		game_state     JSONB NOT NULL,
		moves_uci      JSONB NOT NULL DEFAULT '[]',
		moves_san      JSONB NOT NULL DEFAULT '[]',
		result         TEXT NOT NULL DEFAULT '',
		result_method  TEXT NOT NULL DEFAULT '',
		created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at     TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS game_results (
		game_id        BIGINT PRIMARY KEY,
		game_name      TEXT NOT NULL DEFAULT '',
		white_username TEXT NOT NULL DEFAULT '',
		black_username TEXT NOT NULL DEFAULT '',
		result         TEXT NOT NULL,
		result_method  TEXT NOT NULL,
		moves_uci      JSONB NOT NULL,
		moves_san      JSONB NOT NULL,
		final_fen      TEXT NOT NULL DEFAULT '',
		pgn            TEXT NOT NULL,
		started_at     TIMESTAMPTZ NOT NULL,
		ended_at       TIMESTAMPTZ NOT NULL,
		duration_ms    BIGINT NOT NULL DEFAULT 0
	)`,
	`CREATE INDEX IF NOT EXISTS idx_game_results_white ON game_results(white_username, ended_at DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_game_results_black ON game_results(black_username, ended_at DESC)`,
}

// Migrate creates the game tables if they do not exist.
func Migrate(ctx context.Context, db *sql.DB) error {
	for _, stmt := range migrations {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// PostgresStore keeps live records in the games table.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore { return &PostgresStore{db: db} }

// Close is a no-op; the pool is owned by the caller of OpenPostgres.
func (s *PostgresStore) Close() error { return nil }

func (s *PostgresStore) Create(ctx context.Context, name string) (*GameRecord, error) {
	rec := NewRecord(0, strings.TrimSpace(name))
	state, err := json.Marshal(rec.State)
	if err != nil {
		return nil, storageErr("encode", err)
	}
	q := `INSERT INTO games (game_name, game_state, created_at, updated_at)
	      VALUES ($1, $2, $3, $3) RETURNING game_id`
	if err := s.db.QueryRowContext(ctx, q, rec.Name, string(state), rec.CreatedAt).Scan(&rec.ID); err != nil {
		return nil, storageErr("create", err)
	}
	return rec, nil
}

func (s *PostgresStore) Load(ctx context.Context, id int64) (*GameRecord, error) {
	q := `SELECT game_id, white_username, black_username, game_name, game_state,
	             moves_uci, moves_san, result, result_method, created_at, updated_at
	      FROM games WHERE game_id = $1`
	var (
		rec             GameRecord
		state, uci, san []byte
	)
	err := s.db.QueryRowContext(ctx, q, id).Scan(
		&rec.ID, &rec.WhiteUsername, &rec.BlackUsername, &rec.Name, &state,
		&uci, &san, &rec.Result, &rec.Method, &rec.CreatedAt, &rec.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound(id)
	}
	if err != nil {
		return nil, storageErr("load", err)
	}
	if err := json.Unmarshal(state, &rec.State); err != nil || rec.State == nil {
		return nil, storageErr("decode state", fmt.Errorf("game %d: %v", id, err))
	}
	if err := json.Unmarshal(uci, &rec.MovesUCI); err != nil {
		return nil, storageErr("decode moves", err)
	}
	if err := json.Unmarshal(san, &rec.MovesSAN); err != nil {
		return nil, storageErr("decode moves", err)
	}
	if rec.MovesUCI == nil {
		rec.MovesUCI = []string{}
	}
	if rec.MovesSAN == nil {
		rec.MovesSAN = []string{}
	}
	return &rec, nil
}

func (s *PostgresStore) Save(ctx context.Context, rec *GameRecord) error {
	if rec == nil {
		return storageErr("save", errNilRecord)
	}
	state, err := json.Marshal(rec.State)
	if err != nil {
		return storageErr("encode", err)
	}
	uci, _ := json.Marshal(nonNil(rec.MovesUCI))
	san, _ := json.Marshal(nonNil(rec.MovesSAN))
	rec.UpdatedAt = time.Now().UTC()

	q := `UPDATE games SET
	        white_username=$2, black_username=$3, game_name=$4, game_state=$5,
	        moves_uci=$6, moves_san=$7, result=$8, result_method=$9, updated_at=$10
	      WHERE game_id=$1`
	res, err := s.db.ExecContext(ctx, q,
		rec.ID, rec.WhiteUsername, rec.BlackUsername, rec.Name, string(state),
		string(uci), string(san), rec.Result, rec.Method, rec.UpdatedAt,
	)
	if err != nil {
		return storageErr("save", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return notFound(rec.ID)
	}
	return nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
