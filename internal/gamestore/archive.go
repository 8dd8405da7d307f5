package gamestore

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"

	"github.com/park285/cheese-live-chess/internal/notation"
)

// PostgresArchive upserts finished games into game_results together with a PGN.
type PostgresArchive struct {
	db    *sql.DB
	event string
	site  string
}

func NewPostgresArchive(db *sql.DB, event, site string) *PostgresArchive {
	return &PostgresArchive{db: db, event: event, site: site}
}

// SaveResult is a no-op for records without a result.
func (a *PostgresArchive) SaveResult(ctx context.Context, rec *GameRecord) error {
	if a == nil || a.db == nil || !rec.Finished() {
		return nil
	}
	pgn := BuildPGN(rec, a.event, a.site)
	fen := ""
	if rec.State != nil {
		fen = notation.FEN(rec.State, len(rec.MovesUCI))
	}
	uci, _ := json.Marshal(nonNil(rec.MovesUCI))
	san, _ := json.Marshal(nonNil(rec.MovesSAN))
	duration := rec.UpdatedAt.Sub(rec.CreatedAt).Milliseconds()
	if duration < 0 {
		duration = 0
	}

	q := `INSERT INTO game_results (
	        game_id, game_name, white_username, black_username,
	        result, result_method, moves_uci, moves_san, final_fen, pgn,
	        started_at, ended_at, duration_ms
	      ) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
	      ON CONFLICT (game_id) DO UPDATE SET
	        game_name=EXCLUDED.game_name,
	        white_username=EXCLUDED.white_username,
	        black_username=EXCLUDED.black_username,
	        result=EXCLUDED.result,
	        result_method=EXCLUDED.result_method,
	        moves_uci=EXCLUDED.moves_uci,
	        moves_san=EXCLUDED.moves_san,
	        final_fen=EXCLUDED.final_fen,
	        pgn=EXCLUDED.pgn,
	        started_at=EXCLUDED.started_at,
	        ended_at=EXCLUDED.ended_at,
	        duration_ms=EXCLUDED.duration_ms`
	_, err := a.db.ExecContext(ctx, q,
		rec.ID, rec.Name, rec.WhiteUsername, rec.BlackUsername,
		rec.Result, strings.TrimSpace(rec.Method), string(uci), string(san), fen, pgn,
		rec.CreatedAt, rec.UpdatedAt, duration,
	)
	if err != nil {
		return storageErr("archive", err)
	}
	return nil
}

// BuildPGN renders a finished record as PGN.
func BuildPGN(rec *GameRecord, event, site string) string {
	if rec == nil {
		return ""
	}
	h := notation.Headers{
		Event:       event,
		Site:        site,
		Date:        rec.UpdatedAt,
		White:       rec.WhiteUsername,
		Black:       rec.BlackUsername,
		Termination: rec.Method,
	}
	return notation.PGN(h, rec.MovesSAN, rec.Result)
}
