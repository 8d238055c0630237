// Package repository implements the store contracts on PostgreSQL with pgx.
package repository

import (
	"context"
	"errors"
	"fmt"

	"silver-social-backend/internal/apperrors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	uniqueViolation     = "23505"
	foreignKeyViolation = "23503"
)

// Connect opens a connection pool and verifies it with a ping
func Connect(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	db, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := db.Ping(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return db, nil
}

// validID reports whether id can be bound to a uuid column
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

type scanner interface {
	Scan(dest ...any) error
}

// classify maps driver errors onto apperrors kinds
func classify(err error, what, op string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return apperrors.NotFound("%s not found", what)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case uniqueViolation:
			return apperrors.Conflict(err, "%s already exists", what)
		case foreignKeyViolation:
			return apperrors.NotFound("referenced %s not found", what)
		}
	}

	return apperrors.Storage(err, "failed to %s", op)
}
