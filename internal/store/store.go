// Package store is the relational persistence abstraction over a primary
// PostgreSQL database (github.com/lib/pq) with a local embedded SQLite
// fallback (modernc.org/sqlite), per spec.md §4.1 and §9's "two SQL
// dialects" design note. Every call site uses $-style placeholders; the
// Store rewrites them to "?" when running against SQLite.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
)

// Dialect identifies which SQL engine a Store talks to.
type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectSQLite   Dialect = "sqlite"
)

// BatchSize bounds how many rows a single upsert statement carries, per
// spec.md §4.1 ("≤500 rows per batch by default").
const BatchSize = 500

// Store wraps a *sql.DB with dialect-aware placeholder translation and
// batched upsert helpers. All call sites write queries using "$1, $2, ..."
// regardless of dialect.
type Store struct {
	DB      *sql.DB
	Dialect Dialect
}

// Rebind rewrites a $-placeholder query for the underlying dialect. Postgres
// queries pass through unchanged; SQLite queries get "?" in positional order.
func (s *Store) Rebind(query string) string {
	if s.Dialect == DialectPostgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query))
	for i := 0; i < len(query); i++ {
		if query[i] == '$' && i+1 < len(query) && isDigit(query[i+1]) {
			j := i + 1
			for j < len(query) && isDigit(query[j]) {
				j++
			}
			b.WriteByte('?')
			i = j - 1
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }

// ExecContext runs a rebind-aware exec.
func (s *Store) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return s.DB.ExecContext(ctx, s.Rebind(query), args...)
}

// QueryContext runs a rebind-aware query.
func (s *Store) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return s.DB.QueryContext(ctx, s.Rebind(query), args...)
}

// QueryRowContext runs a rebind-aware single-row query.
func (s *Store) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	return s.DB.QueryRowContext(ctx, s.Rebind(query), args...)
}

// WithTx runs fn inside a transaction, committing on success and rolling
// back on any error or panic. Every builder and grader call completes in a
// transaction per date, per spec.md §4.1.
func (s *Store) WithTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("%w (rollback also failed: %v)", err, rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// UpsertRow describes one row for a batched natural-key-conflict upsert.
// Columns and Values must be the same length and order.
type UpsertRow struct {
	Columns []string
	Values  []any
}

// BatchUpsert writes rows to table in chunks of at most BatchSize, each chunk
// a single INSERT ... ON CONFLICT(conflictCols) DO UPDATE statement. It
// returns the total number of rows written. All rows must share the same
// column set (the first row's Columns is taken as authoritative).
func (s *Store) BatchUpsert(ctx context.Context, tx *sql.Tx, table string, rows []UpsertRow, conflictCols []string) (int, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	cols := rows[0].Columns
	updateCols := make([]string, 0, len(cols))
	conflictSet := make(map[string]bool, len(conflictCols))
	for _, c := range conflictCols {
		conflictSet[c] = true
	}
	for _, c := range cols {
		if !conflictSet[c] {
			updateCols = append(updateCols, c)
		}
	}

	written := 0
	for start := 0; start < len(rows); start += BatchSize {
		end := start + BatchSize
		if end > len(rows) {
			end = len(rows)
		}
		chunk := rows[start:end]
		query, args := s.buildUpsertStatement(table, cols, conflictCols, updateCols, chunk)
		res, err := tx.ExecContext(ctx, s.Rebind(query), args...)
		if err != nil {
			return written, fmt.Errorf("batch upsert into %s: %w", table, err)
		}
		if n, err := res.RowsAffected(); err == nil {
			written += int(n)
		} else {
			written += len(chunk)
		}
	}
	return written, nil
}

func (s *Store) buildUpsertStatement(table string, cols, conflictCols, updateCols []string, rows []UpsertRow) (string, []any) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "INSERT INTO %s (%s) VALUES ", table, strings.Join(cols, ", "))

	args := make([]any, 0, len(rows)*len(cols))
	argIdx := 1
	for i, row := range rows {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteByte('(')
		for j := range cols {
			if j > 0 {
				sb.WriteString(", ")
			}
			sb.WriteByte('$')
			sb.WriteString(strconv.Itoa(argIdx))
			argIdx++
		}
		sb.WriteByte(')')
		args = append(args, row.Values...)
	}

	if len(conflictCols) > 0 {
		fmt.Fprintf(&sb, " ON CONFLICT (%s)", strings.Join(conflictCols, ", "))
		if len(updateCols) == 0 {
			sb.WriteString(" DO NOTHING")
		} else {
			sb.WriteString(" DO UPDATE SET ")
			for i, c := range updateCols {
				if i > 0 {
					sb.WriteString(", ")
				}
				fmt.Fprintf(&sb, "%s = EXCLUDED.%s", c, c)
			}
		}
	}
	return sb.String(), args
}
