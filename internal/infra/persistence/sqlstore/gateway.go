// Package sqlstore implements the plantcare persistent store on database/sql.
// Every statement runs on a dedicated connection acquired for that call and
// released on every exit path; Postgres and SQLite differ only in dialect.
package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	"plantcare/pkg/domain"
)

// Compile-time contract assertion ensuring the store satisfies the domain interface.
var _ domain.PersistentStore = (*Store)(nil)

// Dialect selects placeholder style and schema.
type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectSQLite   Dialect = "sqlite"
)

// Store is the gateway plus read models and transactional writes.
type Store struct {
	db      *sql.DB
	dialect Dialect
	engine  *domain.RulesEngine
}

// New wraps an opened database handle. The engine may be nil, in which case
// writes derive no reminders.
func New(db *sql.DB, dialect Dialect, engine *domain.RulesEngine) *Store {
	return &Store{db: db, dialect: dialect, engine: engine}
}

// DB exposes the underlying sql.DB for integration testing hooks.
func (s *Store) DB() *sql.DB { return s.db }

// Dialect reports the configured dialect.
func (s *Store) Dialect() Dialect { return s.dialect }

// Close releases the connection pool.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Query runs one read statement and returns every row as an untyped table.
func (s *Store) Query(ctx context.Context, query string, args ...any) (domain.Table, error) {
	var table domain.Table
	err := s.withConn(ctx, func(conn *sql.Conn) error {
		rows, err := conn.QueryContext(ctx, s.rebind(query), args...)
		if err != nil {
			return err
		}
		defer func() { _ = rows.Close() }()
		cols, err := rows.Columns()
		if err != nil {
			return err
		}
		table.Columns = cols
		for rows.Next() {
			values := make([]any, len(cols))
			ptrs := make([]any, len(cols))
			for i := range values {
				ptrs[i] = &values[i]
			}
			if err := rows.Scan(ptrs...); err != nil {
				return err
			}
			for i, v := range values {
				if b, ok := v.([]byte); ok {
					values[i] = string(b)
				}
			}
			table.Rows = append(table.Rows, values)
		}
		return rows.Err()
	})
	return table, err
}

// Execute runs one write statement inside its own transaction and commits it.
func (s *Store) Execute(ctx context.Context, query string, args ...any) error {
	_, err := s.execute(ctx, query, args...)
	return err
}

func (s *Store) execute(ctx context.Context, query string, args ...any) (int64, error) {
	var affected int64
	err := s.withConn(ctx, func(conn *sql.Conn) error {
		tx, err := conn.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, s.rebind(query), args...)
		if err != nil {
			_ = tx.Rollback()
			return err
		}
		if n, err := res.RowsAffected(); err == nil {
			affected = n
		}
		return tx.Commit()
	})
	return affected, err
}

// queryRows runs one read statement and hands the live rows to scan.
func (s *Store) queryRows(ctx context.Context, query string, scan func(*sql.Rows) error, args ...any) error {
	return s.withConn(ctx, func(conn *sql.Conn) error {
		rows, err := conn.QueryContext(ctx, s.rebind(query), args...)
		if err != nil {
			return err
		}
		defer func() { _ = rows.Close() }()
		for rows.Next() {
			if err := scan(rows); err != nil {
				return err
			}
		}
		return rows.Err()
	})
}

func (s *Store) withConn(ctx context.Context, fn func(*sql.Conn) error) (err error) {
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer func() {
		if cerr := conn.Close(); err == nil && cerr != nil {
			err = cerr
		}
	}()
	return fn(conn)
}

// rebind converts '?' placeholders to the $n style Postgres expects.
func (s *Store) rebind(query string) string {
	return formatPlaceholders(s.dialect, query)
}

func formatPlaceholders(d Dialect, query string) string {
	if d != DialectPostgres || !strings.Contains(query, "?") {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	idx := 1
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(idx))
			idx++
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}

// placeholders returns "?, ?, ?" for n arguments.
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
