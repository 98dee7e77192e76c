package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/tradeloom/tradeloom/internal/domain"
)

// SQLSTATE codes mapped to domain errors.
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
	pgInvalidText         = "22P02"
)

// scannable abstracts pgx.Row and pgx.Rows for shared scan helpers.
type scannable interface {
	Scan(dest ...any) error
}

// querier is implemented by *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// nullIfEmpty returns nil for empty strings (for nullable columns).
func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// orEmpty returns items unchanged if non-nil, or an empty slice if nil.
// Useful to ensure JSON serialization produces [] instead of null.
func orEmpty[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}

func pgCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

// IsUniqueViolation reports whether err is a unique constraint violation.
func IsUniqueViolation(err error) bool { return pgCode(err) == pgUniqueViolation }

// mapErr converts driver errors into domain errors. A malformed id can never
// match a row, so it reads as not found like any other miss.
func mapErr(err error, format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)
	switch {
	case errors.Is(err, pgx.ErrNoRows), pgCode(err) == pgInvalidText:
		return fmt.Errorf("%s: %w", msg, domain.ErrNotFound)
	case pgCode(err) == pgUniqueViolation:
		return fmt.Errorf("%s: %w", msg, domain.ErrConflict)
	default:
		return fmt.Errorf("%s: %w", msg, err)
	}
}

// mapWriteErr is mapErr for inserts and updates, where a foreign key
// violation means a referenced row does not exist in the caller's tenant.
func mapWriteErr(err error, format string, args ...any) error {
	if pgCode(err) == pgForeignKeyViolation {
		return fmt.Errorf("%s: referenced record: %w", fmt.Sprintf(format, args...), domain.ErrNotFound)
	}
	return mapErr(err, format, args...)
}

// mapDeleteErr is mapErr for deletes, where a foreign key violation means
// the row is still referenced.
func mapDeleteErr(err error, format string, args ...any) error {
	if pgCode(err) == pgForeignKeyViolation {
		return fmt.Errorf("%s: still referenced: %w", fmt.Sprintf(format, args...), domain.ErrConflict)
	}
	return mapErr(err, format, args...)
}

// execExpectOne runs b and verifies that it affected exactly one row. If
// not, it returns domain.ErrNotFound with the given message.
func execExpectOne(ctx context.Context, db querier, b sq.Sqlizer, mapFn func(error, string, ...any) error, format string, args ...any) error {
	query, qargs, err := b.ToSql()
	if err != nil {
		return fmt.Errorf("%s: build: %w", fmt.Sprintf(format, args...), err)
	}
	tag, err := db.Exec(ctx, query, qargs...)
	if err != nil {
		return mapFn(err, format, args...)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), domain.ErrNotFound)
	}
	return nil
}

// queryOne runs b and scans the single resulting row.
func queryOne[T any](ctx context.Context, db querier, b sq.Sqlizer, scan func(scannable) (T, error)) (T, error) {
	var zero T
	query, args, err := b.ToSql()
	if err != nil {
		return zero, fmt.Errorf("build query: %w", err)
	}
	return scan(db.QueryRow(ctx, query, args...))
}

// queryAll runs b and scans every resulting row.
func queryAll[T any](ctx context.Context, db querier, b sq.Sqlizer, scan func(scannable) (T, error)) ([]T, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	rows, err := db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []T
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return orEmpty(out), rows.Err()
}

// joinColumns renders a column list for RETURNING clauses.
func joinColumns(cols []string) string {
	return strings.Join(cols, ", ")
}
