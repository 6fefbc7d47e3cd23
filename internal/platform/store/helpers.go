package store

import (
	"context"
	"errors"
)

// ErrNoRows is returned by Scalar when the query yields nothing
var ErrNoRows = errors.New("store: no rows")

// Exec runs a write and returns the rows affected
func Exec(ctx context.Context, q RowQuerier, sql string, args ...any) (int64, error) {
	tag, err := q.Exec(ctx, sql, args...)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// Scalar queries the first row, first column into T
func Scalar[T any](ctx context.Context, q RowQuerier, sql string, args ...any) (T, error) {
	var zero T
	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return zero, err
	}
	defer rows.Close()
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return zero, err
		}
		return zero, ErrNoRows
	}
	var v T
	if err := rows.Scan(&v); err != nil {
		return zero, err
	}
	return v, rows.Err()
}
