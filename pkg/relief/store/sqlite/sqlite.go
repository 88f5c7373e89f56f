package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"strconv"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/cognicore/relief/pkg/relief/internalerr"
	"github.com/cognicore/relief/pkg/relief/store"
)

// MessageColumn holds the message text.
const MessageColumn = "message"

// firstLabelColumn is the position of the first category column. The ETL
// output starts with id, message, original and genre.
const firstLabelColumn = 4

// sqliteStore implements the Store interface using SQLite
type sqliteStore struct {
	db *sql.DB
}

// Open opens an existing SQLite database for reading. A missing file is
// reported as ErrStoreUnavailable instead of creating an empty database.
func Open(ctx context.Context, path string) (store.Store, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("database %s: %w", path, internalerr.ErrStoreUnavailable)
		}
		return nil, fmt.Errorf("database %s: %v: %w", path, err, internalerr.ErrStoreUnavailable)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// query_only is per connection.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, "PRAGMA query_only=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("database %s: %v: %w", path, err, internalerr.ErrStoreUnavailable)
	}

	return &sqliteStore{db: db}, nil
}

// Close closes the database connection
func (s *sqliteStore) Close() error {
	return s.db.Close()
}

// LoadDataset implements store.Store.
func (s *sqliteStore) LoadDataset(ctx context.Context, table string) (store.Dataset, error) {
	var name string
	err := s.db.QueryRowContext(ctx,
		`SELECT name FROM sqlite_master WHERE type IN ('table', 'view') AND name = ? COLLATE NOCASE`,
		table).Scan(&name)
	if errors.Is(err, sql.ErrNoRows) {
		return store.Dataset{}, fmt.Errorf("table %q: %w", table, internalerr.ErrNotFound)
	}
	if err != nil {
		return store.Dataset{}, fmt.Errorf("lookup table %q: %w", table, err)
	}

	rows, err := s.db.QueryContext(ctx, "SELECT * FROM "+quoteIdent(name))
	if err != nil {
		return store.Dataset{}, fmt.Errorf("read table %q: %w", table, err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return store.Dataset{}, err
	}
	msgCol := -1
	for i, c := range cols {
		if c == MessageColumn {
			msgCol = i
			break
		}
	}
	if msgCol < 0 {
		return store.Dataset{}, fmt.Errorf("table %q has no %q column: %w", table, MessageColumn, internalerr.ErrNotFound)
	}
	if len(cols) <= firstLabelColumn {
		return store.Dataset{}, fmt.Errorf("table %q has %d columns, categories start at column %d: %w",
			table, len(cols), firstLabelColumn+1, internalerr.ErrInvalidInput)
	}

	ds := store.Dataset{Categories: append([]string(nil), cols[firstLabelColumn:]...)}
	values := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range values {
		ptrs[i] = &values[i]
	}

	for row := 0; rows.Next(); row++ {
		if err := rows.Scan(ptrs...); err != nil {
			return store.Dataset{}, fmt.Errorf("scan row %d: %w", row, err)
		}
		msg, err := textValue(values[msgCol])
		if err != nil {
			return store.Dataset{}, fmt.Errorf("row %d column %q: %w", row, MessageColumn, err)
		}
		labels := make([]int, len(ds.Categories))
		for j := range labels {
			v, err := labelValue(values[firstLabelColumn+j])
			if err != nil {
				return store.Dataset{}, fmt.Errorf("row %d column %q: %w", row, ds.Categories[j], err)
			}
			labels[j] = v
		}
		ds.Messages = append(ds.Messages, msg)
		ds.Labels = append(ds.Labels, labels)
	}
	if err := rows.Err(); err != nil {
		return store.Dataset{}, fmt.Errorf("read table %q: %w", table, err)
	}

	if err := ds.Validate(); err != nil {
		return store.Dataset{}, fmt.Errorf("table %q: %w", table, err)
	}
	return ds, nil
}

func textValue(v any) (string, error) {
	switch x := v.(type) {
	case string:
		return x, nil
	case []byte:
		return string(x), nil
	case nil:
		return "", fmt.Errorf("NULL message: %w", internalerr.ErrInvalidInput)
	default:
		return fmt.Sprint(x), nil
	}
}

// labelValue converts a category cell to an integer label. INTEGER, whole
// REAL and numeric TEXT cells are accepted.
func labelValue(v any) (int, error) {
	switch x := v.(type) {
	case int64:
		return int(x), nil
	case float64:
		if x != math.Trunc(x) || math.IsInf(x, 0) {
			return 0, fmt.Errorf("label %v is not a whole number: %w", x, internalerr.ErrInvalidInput)
		}
		return int(x), nil
	case []byte:
		return parseLabel(string(x))
	case string:
		return parseLabel(x)
	case nil:
		return 0, fmt.Errorf("NULL label: %w", internalerr.ErrInvalidInput)
	default:
		return 0, fmt.Errorf("label of type %T: %w", v, internalerr.ErrInvalidInput)
	}
}

func parseLabel(s string) (int, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("label %q is not numeric: %w", s, internalerr.ErrInvalidInput)
	}
	return labelValue(f)
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
