package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DB is the subset of pgxpool.Pool the repositories need. Tests provide
// in-memory implementations.
type DB interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

var (
	// ErrNotFound signals a lookup that matched no row.
	ErrNotFound = errors.New("not found")
	// ErrDuplicateGameID signals a game_results insert that lost the
	// uniqueness race on game_id. Callers treat this as an expected outcome.
	ErrDuplicateGameID = errors.New("duplicate game id")
	// ErrUsernameTaken signals a users insert with an already-claimed username.
	ErrUsernameTaken = errors.New("username taken")
)

const uniqueViolationCode = "23505"

func isUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	if pgErr.Code != uniqueViolationCode {
		return false
	}
	return constraint == "" || pgErr.ConstraintName == constraint
}
