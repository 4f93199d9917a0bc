package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"crm-migrate/internal/logging"
	"crm-migrate/internal/util"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Default database call timeout.
const defaultTimeout = 30 * time.Second

// pgxPool is the subset of *pgxpool.Pool the store uses.
type pgxPool interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Ping(ctx context.Context) error
	Close()
}

// pgxPoolNewFunc allows overriding pool creation for testing.
var pgxPoolNewFunc = func(ctx context.Context, connStr string) (pgxPool, error) {
	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, err
	}
	return pool, nil
}

// PostgresStore writes documents into one table per collection. Scalar fields
// map to columns of the same name; nested sections are expected to be jsonb.
type PostgresStore struct {
	pool    pgxPool
	tables  map[string]string
	timeout time.Duration
}

// NewPostgresStore connects to the database and verifies the connection.
// Environment variables in connStr are expanded.
func NewPostgresStore(ctx context.Context, connStr string, tables map[string]string, timeout time.Duration) (*PostgresStore, error) {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	expandedConnStr := util.ExpandEnvUniversal(connStr)
	maskedConnStr := util.MaskCredentials(expandedConnStr)

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	pool, err := pgxPoolNewFunc(ctx, expandedConnStr)
	if err != nil {
		logging.Logf(logging.Error, "PostgresStore failed to create connection pool: %s", maskedConnStr)
		return nil, fmt.Errorf("PostgresStore failed to create connection pool (using %s): %w", maskedConnStr, err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		if errors.Is(err, context.DeadlineExceeded) || ctx.Err() == context.DeadlineExceeded {
			return nil, fmt.Errorf("PostgresStore connection timed out (using %s): %w", maskedConnStr, err)
		}
		return nil, fmt.Errorf("PostgresStore failed to reach database (using %s): %w", maskedConnStr, err)
	}
	logging.Logf(logging.Info, "PostgresStore connected: %s", maskedConnStr)
	return &PostgresStore{pool: pool, tables: tables, timeout: timeout}, nil
}

// table returns the configured table for a collection.
func (s *PostgresStore) table(collection string) string {
	if t, ok := s.tables[collection]; ok && strings.TrimSpace(t) != "" {
		return t
	}
	return collection
}

// identifier splits an optionally schema-qualified table name.
func identifier(table string) pgx.Identifier {
	return pgx.Identifier(strings.Split(table, "."))
}

// documentColumns returns the sorted union of keys across docs.
func documentColumns(docs []Document) []string {
	seen := make(map[string]struct{})
	for _, d := range docs {
		for k := range d {
			seen[k] = struct{}{}
		}
	}
	columns := make([]string, 0, len(seen))
	for k := range seen {
		columns = append(columns, k)
	}
	sort.Strings(columns)
	return columns
}

// BulkInsert copies docs into the collection's table inside a single
// transaction, so either every document is stored or none is.
func (s *PostgresStore) BulkInsert(ctx context.Context, collection string, docs []Document) (int64, error) {
	if len(docs) == 0 {
		return 0, nil
	}
	table := s.table(collection)
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	columns := documentColumns(docs)
	logging.Logf(logging.Debug, "PostgresStore (COPY): columns for table '%s': %v", table, columns)
	copyData := make([][]interface{}, len(docs))
	for i, doc := range docs {
		row := make([]interface{}, len(columns))
		for j, col := range columns {
			row[j] = doc[col]
		}
		copyData[i] = row
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, s.wrapErr(ctx, "begin transaction", table, err)
	}
	committed := false
	defer func() {
		if committed {
			return
		}
		// The caller's context may already be done.
		rbCtx, rbCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer rbCancel()
		if rbErr := tx.Rollback(rbCtx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			logging.Logf(logging.Error, "PostgresStore (COPY): failed to rollback transaction for table '%s': %v", table, rbErr)
		}
	}()

	copyCount, err := tx.CopyFrom(ctx, identifier(table), columns, pgx.CopyFromRows(copyData))
	if err != nil {
		return 0, s.wrapErr(ctx, "COPY", table, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, s.wrapErr(ctx, "commit", table, err)
	}
	committed = true

	if copyCount != int64(len(docs)) {
		logging.Logf(logging.Warning, "PostgresStore (COPY): expected to copy %d rows to table '%s', driver reported %d.", len(docs), table, copyCount)
	} else {
		logging.Logf(logging.Debug, "PostgresStore (COPY): inserted %d rows into table '%s'.", copyCount, table)
	}
	return copyCount, nil
}

// insertSQL builds a parameterized INSERT for the given columns.
func insertSQL(table string, columns []string) string {
	quoted := make([]string, len(columns))
	placeholders := make([]string, len(columns))
	for i, col := range columns {
		quoted[i] = pgx.Identifier{col}.Sanitize()
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		identifier(table).Sanitize(), strings.Join(quoted, ", "), strings.Join(placeholders, ", "))
}

// Insert stores a single document.
func (s *PostgresStore) Insert(ctx context.Context, collection string, doc Document) error {
	table := s.table(collection)
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	columns := documentColumns([]Document{doc})
	params := make([]interface{}, len(columns))
	for i, col := range columns {
		params[i] = doc[col]
	}
	if _, err := s.pool.Exec(ctx, insertSQL(table, columns), params...); err != nil {
		return s.wrapErr(ctx, "INSERT", table, err)
	}
	return nil
}

// ListContacts reads the matching data of every stored contact.
func (s *PostgresStore) ListContacts(ctx context.Context) ([]ContactRef, error) {
	table := s.table(CollectionContacts)
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	query := fmt.Sprintf("SELECT id::text, first_name, last_name, emails::text FROM %s", identifier(table).Sanitize())
	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, s.wrapErr(ctx, "query", table, err)
	}
	defer rows.Close()

	refs := make([]ContactRef, 0)
	for rows.Next() {
		var ref ContactRef
		var first, last, emails *string
		if err := rows.Scan(&ref.ID, &first, &last, &emails); err != nil {
			return nil, fmt.Errorf("PostgresStore failed to scan contact row: %w", err)
		}
		if first != nil {
			ref.FirstName = *first
		}
		if last != nil {
			ref.LastName = *last
		}
		if emails != nil && *emails != "" {
			var list []interface{}
			if err := json.Unmarshal([]byte(*emails), &list); err != nil {
				logging.Logf(logging.Warning, "PostgresStore: contact %s has unreadable emails: %v", ref.ID, err)
			} else {
				ref.Emails = emailValues(list)
			}
		}
		refs = append(refs, ref)
	}
	if err := rows.Err(); err != nil {
		return nil, s.wrapErr(ctx, "row iteration", table, err)
	}
	logging.Logf(logging.Debug, "PostgresStore: read %d contacts from table '%s'", len(refs), table)
	return refs, nil
}

// Close releases the connection pool.
func (s *PostgresStore) Close() error {
	if s.pool != nil {
		s.pool.Close()
		s.pool = nil
	}
	return nil
}

// wrapErr adds table and operation context and logs PostgreSQL error detail.
func (s *PostgresStore) wrapErr(ctx context.Context, op, table string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || ctx.Err() == context.DeadlineExceeded {
		return fmt.Errorf("PostgresStore (%s): operation timed out for table '%s': %w", op, table, err)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		logging.Logf(logging.Debug, "PostgresStore (%s) failed for table '%s'. PG Error Code: %s, Message: %s, Detail: %s", op, table, pgErr.Code, pgErr.Message, pgErr.Detail)
	}
	return fmt.Errorf("PostgresStore (%s) failed for table '%s': %w", op, table, err)
}
