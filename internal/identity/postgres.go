package identity

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

const authSchema = `CREATE TABLE IF NOT EXISTS auth (
	auth_token TEXT PRIMARY KEY,
	username   TEXT NOT NULL
)`

// PostgresResolver looks tokens up in the auth table written by the login service.
type PostgresResolver struct {
	db *sql.DB
}

func NewPostgresResolver(db *sql.DB) *PostgresResolver { return &PostgresResolver{db: db} }

// Migrate creates the auth table if it does not exist.
func (r *PostgresResolver) Migrate(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, authSchema); err != nil {
		return fmt.Errorf("migrate auth: %w", err)
	}
	return nil
}

func (r *PostgresResolver) Resolve(ctx context.Context, token string) (string, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return "", ErrUnauthorized
	}
	var user string
	err := r.db.QueryRowContext(ctx, `SELECT username FROM auth WHERE auth_token = $1`, token).Scan(&user)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrUnauthorized
	}
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return user, nil
}
