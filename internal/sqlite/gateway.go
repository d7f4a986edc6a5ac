package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"

	"github.com/thenotsotalentedcoder/sqlite-chatbot/internal/domain"
)

var (
	lineCommentRe  = regexp.MustCompile(`(?m)--.*$`)
	blockCommentRe = regexp.MustCompile(`(?s)/\*.*?\*/`)
)

// Gateway owns a single connection to one SQLite database file. One gateway
// per session; gateways are never shared across sessions.
type Gateway struct {
	db   *sql.DB
	path string
}

// Open connects to the database file and enables foreign-key enforcement for
// the lifetime of the connection. It fails if the file is unreadable or not a
// valid SQLite database.
func Open(ctx context.Context, path string) (*Gateway, error) {
	if path == "" {
		return nil, fmt.Errorf("database file path is required")
	}

	dsn := fmt.Sprintf("file:%s?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)", path)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(1) // one connection per session
	db.SetMaxIdleConns(1)

	// Ping alone does not touch the file; reading sqlite_master proves the
	// file is actually a database.
	var n int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM sqlite_master").Scan(&n); err != nil {
		db.Close()
		return nil, fmt.Errorf("not a valid sqlite database: %w", err)
	}

	log.Info().Str("path", path).Msg("connected to database")

	return &Gateway{db: db, path: path}, nil
}

// Path returns the database file path.
func (g *Gateway) Path() string {
	return g.path
}

// Close closes the connection.
func (g *Gateway) Close() error {
	if g.db != nil {
		err := g.db.Close()
		g.db = nil
		return err
	}
	return nil
}

// StripComments removes line and block comments from a statement.
func StripComments(sqlText string) string {
	sqlText = lineCommentRe.ReplaceAllString(sqlText, "")
	sqlText = blockCommentRe.ReplaceAllString(sqlText, "")
	return strings.TrimSpace(sqlText)
}

// firstStatement keeps only the first semicolon-separated statement. This is a
// deliberate safety simplification, not a parser; the rest of the input is
// silently discarded.
func firstStatement(sqlText string) string {
	parts := strings.Split(sqlText, ";")
	if len(parts) > 1 {
		first := strings.TrimSpace(parts[0])
		if first != "" {
			first += ";"
		}
		log.Debug().Str("statement", first).Msg("multiple statements detected, executing only the first")
		return first
	}
	return sqlText
}

// ExecuteStatement strips comments, executes only the first statement and
// classifies it: PRAGMA and SELECT/WITH are read paths returning row data,
// everything else is a write path returning an affected-row-count message.
// Engine errors are captured in QueryResult.Error, never returned as a Go
// error - execution always yields a result object.
func (g *Gateway) ExecuteStatement(ctx context.Context, sqlText string) *domain.QueryResult {
	start := time.Now()

	stmt := firstStatement(StripComments(sqlText))
	result := &domain.QueryResult{}

	if stmt == "" {
		result.Error = "empty statement"
		result.ExecutionSeconds = time.Since(start).Seconds()
		return result
	}

	lower := strings.ToLower(strings.TrimSpace(stmt))
	isRead := strings.HasPrefix(lower, "pragma") ||
		strings.HasPrefix(lower, "select") ||
		strings.HasPrefix(lower, "with")

	log.Debug().Str("statement", stmt).Bool("read", isRead).Msg("executing statement")

	if isRead {
		cols, rows, err := g.queryRows(ctx, stmt)
		if err != nil {
			result.Error = err.Error()
		} else {
			result.Columns = cols
			result.Rows = rows
			result.RowCount = len(rows)
		}
	} else {
		res, err := g.db.ExecContext(ctx, stmt)
		if err != nil {
			result.Error = err.Error()
		} else {
			affected, _ := res.RowsAffected()
			result.Columns = []string{"message"}
			result.Rows = [][]any{{fmt.Sprintf("Query executed successfully. %d row(s) affected.", affected)}}
			result.RowCount = 1
		}
	}

	result.ExecutionSeconds = time.Since(start).Seconds()
	return result
}

// Tables returns the user table names in the database.
func (g *Gateway) Tables(ctx context.Context) ([]string, error) {
	rows, err := g.db.QueryContext(ctx, `
		SELECT name
		FROM sqlite_master
		WHERE type = 'table'
		  AND name NOT LIKE 'sqlite_%'
		ORDER BY name
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan table name: %w", err)
		}
		tables = append(tables, name)
	}
	return tables, rows.Err()
}

// Columns returns the ordered column descriptors for a table.
func (g *Gateway) Columns(ctx context.Context, table string) ([]domain.ColumnDescriptor, error) {
	rows, err := g.db.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%q)", table))
	if err != nil {
		return nil, fmt.Errorf("failed to describe table: %w", err)
	}
	defer rows.Close()

	var columns []domain.ColumnDescriptor
	for rows.Next() {
		var cid, notNull, pk int
		var name, dataType string
		var dflt sql.NullString

		if err := rows.Scan(&cid, &name, &dataType, &notNull, &dflt, &pk); err != nil {
			return nil, fmt.Errorf("failed to scan column: %w", err)
		}

		col := domain.ColumnDescriptor{
			Name:       name,
			DataType:   dataType,
			NotNull:    notNull != 0,
			PrimaryKey: pk > 0,
		}
		if dflt.Valid {
			col.DefaultValue = &dflt.String
		}
		columns = append(columns, col)
	}

	if len(columns) == 0 {
		return nil, fmt.Errorf("table not found: %s", table)
	}
	return columns, rows.Err()
}

// ForeignKeys returns the outgoing foreign-key edges of a table.
func (g *Gateway) ForeignKeys(ctx context.Context, table string) ([]domain.ForeignKey, error) {
	rows, err := g.db.QueryContext(ctx, fmt.Sprintf("PRAGMA foreign_key_list(%q)", table))
	if err != nil {
		return nil, fmt.Errorf("failed to list foreign keys: %w", err)
	}
	defer rows.Close()

	var fks []domain.ForeignKey
	for rows.Next() {
		var id, seq int
		var refTable, from string
		var to, onUpdate, onDelete, match sql.NullString

		if err := rows.Scan(&id, &seq, &refTable, &from, &to, &onUpdate, &onDelete, &match); err != nil {
			return nil, fmt.Errorf("failed to scan foreign key: %w", err)
		}

		fks = append(fks, domain.ForeignKey{
			FromColumn: from,
			RefTable:   refTable,
			RefColumn:  to.String,
		})
	}
	return fks, rows.Err()
}

// SampleRows returns up to limit rows from a table, in column order.
func (g *Gateway) SampleRows(ctx context.Context, table string, limit int) ([]string, [][]any, error) {
	return g.queryRows(ctx, fmt.Sprintf("SELECT * FROM %q LIMIT %d", table, limit))
}

func (g *Gateway) queryRows(ctx context.Context, stmt string) ([]string, [][]any, error) {
	rows, err := g.db.QueryContext(ctx, stmt)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get columns: %w", err)
	}

	var out [][]any
	for rows.Next() {
		values := make([]any, len(columns))
		valuePtrs := make([]any, len(columns))
		for i := range values {
			valuePtrs[i] = &values[i]
		}

		if err := rows.Scan(valuePtrs...); err != nil {
			return nil, nil, fmt.Errorf("failed to scan row: %w", err)
		}

		// Convert []byte to string for better JSON serialization
		for i, v := range values {
			if b, ok := v.([]byte); ok {
				values[i] = string(b)
			}
		}

		out = append(out, values)
	}

	return columns, out, rows.Err()
}
