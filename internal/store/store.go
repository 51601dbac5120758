// Package store exports flat recipe rows to a SQLite database.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/GjhanAi/albion-recipes/internal/recipe"
)

const schema = `
CREATE TABLE IF NOT EXISTS flat_rows (
  row_no      INTEGER PRIMARY KEY,
  output_id   TEXT NOT NULL,
  output_qty  INTEGER NOT NULL,
  input_id    TEXT NOT NULL,
  input_qty   INTEGER NOT NULL,
  station     TEXT NOT NULL,
  focus_based INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS flat_rows_output ON flat_rows(output_id);
`

// Open opens (or creates) the database at path and ensures the schema.
func Open(ctx context.Context, path string) (*sql.DB, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return db, nil
}

// SaveRows replaces the contents of flat_rows with rows, in order, inside a
// single transaction. row_no is the zero-based position in rows.
func SaveRows(ctx context.Context, db *sql.DB, rows []recipe.FlatRow) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM flat_rows`); err != nil {
		return fmt.Errorf("clear rows: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO flat_rows (row_no, output_id, output_qty, input_id, input_qty, station, focus_based)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("prepare stmt: %w", err)
	}
	defer stmt.Close()

	for i, r := range rows {
		if _, err := stmt.ExecContext(ctx, i, r.OutputID, r.OutputQty, r.InputID, r.InputQty, r.Station, r.FocusBased); err != nil {
			return fmt.Errorf("insert row %d (%s): %w", i, r.OutputID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// LoadRows reads flat_rows back in row order.
func LoadRows(ctx context.Context, db *sql.DB) ([]recipe.FlatRow, error) {
	rs, err := db.QueryContext(ctx, `
		SELECT output_id, output_qty, input_id, input_qty, station, focus_based
		FROM flat_rows ORDER BY row_no
	`)
	if err != nil {
		return nil, fmt.Errorf("query rows: %w", err)
	}
	defer rs.Close()
	var out []recipe.FlatRow
	for rs.Next() {
		var r recipe.FlatRow
		if err := rs.Scan(&r.OutputID, &r.OutputQty, &r.InputID, &r.InputQty, &r.Station, &r.FocusBased); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		out = append(out, r)
	}
	return out, rs.Err()
}

// Export writes rows to a fresh database file at path.
func Export(ctx context.Context, path string, rows []recipe.FlatRow) error {
	db, err := Open(ctx, path)
	if err != nil {
		return err
	}
	defer db.Close()
	return SaveRows(ctx, db, rows)
}
