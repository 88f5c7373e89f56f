package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/cognicore/relief/pkg/relief/store"
)

// WriteDataset creates (or replaces) table in the database at path with the
// layout the loader expects: id, message, original, genre and one INTEGER
// column per category. Original and genre are left empty.
func WriteDataset(ctx context.Context, path, table string, ds store.Dataset) error {
	if err := ds.Validate(); err != nil {
		return err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return err
	}
	defer db.Close()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	cols := []string{"id INTEGER PRIMARY KEY", MessageColumn + " TEXT", "original TEXT", "genre TEXT"}
	names := []string{"id", MessageColumn, "original", "genre"}
	for _, c := range ds.Categories {
		cols = append(cols, quoteIdent(c)+" INTEGER")
		names = append(names, quoteIdent(c))
	}

	if _, err := tx.ExecContext(ctx, "DROP TABLE IF EXISTS "+quoteIdent(table)); err != nil {
		return fmt.Errorf("drop table %q: %w", table, err)
	}
	create := fmt.Sprintf("CREATE TABLE %s (%s)", quoteIdent(table), strings.Join(cols, ", "))
	if _, err := tx.ExecContext(ctx, create); err != nil {
		return fmt.Errorf("create table %q: %w", table, err)
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(names)), ", ")
	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		quoteIdent(table), strings.Join(names, ", "), placeholders))
	if err != nil {
		return err
	}
	defer stmt.Close()

	args := make([]any, len(names))
	for i, msg := range ds.Messages {
		args[0] = i
		args[1] = msg
		args[2] = ""
		args[3] = ""
		for j, v := range ds.Labels[i] {
			args[4+j] = v
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return fmt.Errorf("insert row %d: %w", i, err)
		}
	}

	return tx.Commit()
}
