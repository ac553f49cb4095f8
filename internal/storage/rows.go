package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/regiond/regiond/internal/sync"
)

// GetRow reads the current local row for (table, id), implementing
// sync.RowStore. A missing row is not an error: Row.Exists is false.
func (s *Storage) GetRow(ctx context.Context, table sync.Table, id string) (sync.Row, error) {
	query := fmt.Sprintf(`SELECT updated_at, COALESCE(version, 0) FROM %s WHERE id = $1`, table)

	var updatedAt time.Time
	var version int64
	err := s.Pool.QueryRow(ctx, query, id).Scan(&updatedAt, &version)
	if errors.Is(err, pgx.ErrNoRows) {
		return sync.Row{Exists: false}, nil
	}
	if err != nil {
		return sync.Row{}, fmt.Errorf("get row %s/%s: %w", table, id, err)
	}

	return sync.Row{Exists: true, UpdatedAt: updatedAt, Version: version}, nil
}

// Upsert executes the INSERT ... ON CONFLICT (id) DO UPDATE mutation
// described in spec.md §4.5: every passed column is updated on
// conflict except sync_source (preserved, so it is only ever set on
// insert) and updated_at (always bumped to the server's current
// time). columns/values have already been privacy-filtered and
// schema-whitelisted by the caller; only parameter placeholders are
// used for values, matching the design note in spec.md §9.
func (s *Storage) Upsert(ctx context.Context, table sync.Table, id string, columns []string, values []any, syncSource sync.Region) error {
	query, args := buildUpsert(table, id, columns, values, syncSource)
	if _, err := s.Pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert %s/%s: %w", table, id, err)
	}
	return nil
}

// buildUpsert assembles the INSERT ... ON CONFLICT statement and its
// positional arguments. It is a pure function so the generated SQL
// can be asserted on without a live Postgres connection.
//
// id and sync_source are bound exactly once regardless of whether the
// caller's columns already carries one or the other: columns is the
// privacy-filtered, schema-whitelisted list derived from the CDC
// payload's After map, and sync_source is a real column in that
// whitelist (spec.md §6), so it can legitimately arrive already
// present.
func buildUpsert(table sync.Table, id string, columns []string, values []any, syncSource sync.Region) (query string, args []any) {
	cols := make([]string, 0, len(columns)+2)
	vals := make([]any, 0, len(values)+2)

	cols = append(cols, "id")
	vals = append(vals, id)
	for i, c := range columns {
		if c == "id" || c == "sync_source" {
			continue
		}
		cols = append(cols, c)
		vals = append(vals, values[i])
	}
	cols = append(cols, "sync_source")
	vals = append(vals, string(syncSource))

	placeholders := make([]string, len(cols))
	for i := range cols {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}

	var sets []string
	for _, c := range cols {
		if c == "id" || c == "sync_source" || c == "updated_at" {
			continue
		}
		sets = append(sets, fmt.Sprintf("%s = excluded.%s", c, c))
	}
	sets = append(sets, "updated_at = NOW()")

	query = fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s) ON CONFLICT (id) DO UPDATE SET %s",
		table, strings.Join(cols, ", "), strings.Join(placeholders, ", "), strings.Join(sets, ", "),
	)
	return query, vals
}

// Delete removes the row, implementing sync.RowStore.
func (s *Storage) Delete(ctx context.Context, table sync.Table, id string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, table)
	if _, err := s.Pool.Exec(ctx, query, id); err != nil {
		return fmt.Errorf("delete %s/%s: %w", table, id, err)
	}
	return nil
}
