package sqlite_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thenotsotalentedcoder/sqlite-chatbot/internal/sqlite"
)

func newTestGateway(t *testing.T) *sqlite.Gateway {
	t.Helper()

	path := filepath.Join(t.TempDir(), "test.db")
	gw, err := sqlite.Open(context.Background(), path)
	require.NoError(t, err)
	t.Cleanup(func() { gw.Close() })

	for _, stmt := range []string{
		`CREATE TABLE category (category_id INTEGER PRIMARY KEY, name TEXT NOT NULL)`,
		`CREATE TABLE film (
			film_id INTEGER PRIMARY KEY,
			title TEXT NOT NULL,
			category_id INTEGER,
			FOREIGN KEY (category_id) REFERENCES category(category_id)
		)`,
		`INSERT INTO category (category_id, name) VALUES (1, 'Drama')`,
		`INSERT INTO film (film_id, title, category_id) VALUES (1, 'Alpha', 1)`,
		`INSERT INTO film (film_id, title, category_id) VALUES (2, 'Beta', 1)`,
	} {
		result := gw.ExecuteStatement(context.Background(), stmt)
		require.Empty(t, result.Error, "setup statement failed: %s", stmt)
	}

	return gw
}

func TestOpen_InvalidPath(t *testing.T) {
	_, err := sqlite.Open(context.Background(), "")
	assert.Error(t, err)
}

func TestOpen_NotADatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "garbage.db")
	require.NoError(t, os.WriteFile(path, []byte("this is not a database file at all"), 0644))

	_, err := sqlite.Open(context.Background(), path)
	assert.Error(t, err)
}

func TestExecuteStatement_SelectReturnsRows(t *testing.T) {
	gw := newTestGateway(t)

	result := gw.ExecuteStatement(context.Background(), "SELECT title FROM film ORDER BY film_id")
	require.Empty(t, result.Error)
	assert.Equal(t, []string{"title"}, result.Columns)
	assert.Equal(t, 2, result.RowCount)
	assert.Equal(t, "Alpha", result.Rows[0][0])
	assert.Greater(t, result.ExecutionSeconds, 0.0)
}

func TestExecuteStatement_WithCTEIsReadPath(t *testing.T) {
	gw := newTestGateway(t)

	result := gw.ExecuteStatement(context.Background(),
		"WITH c AS (SELECT COUNT(*) AS n FROM film) SELECT n FROM c")
	require.Empty(t, result.Error)
	assert.Equal(t, int64(2), result.Rows[0][0])
}

func TestExecuteStatement_PragmaReturnsRows(t *testing.T) {
	gw := newTestGateway(t)

	result := gw.ExecuteStatement(context.Background(), "PRAGMA table_info(film)")
	require.Empty(t, result.Error)
	assert.Greater(t, result.RowCount, 0)
}

func TestExecuteStatement_WritePathReturnsMessage(t *testing.T) {
	gw := newTestGateway(t)

	result := gw.ExecuteStatement(context.Background(), "UPDATE film SET title = 'Gamma' WHERE film_id = 1")
	require.Empty(t, result.Error)
	assert.Equal(t, []string{"message"}, result.Columns)
	require.Equal(t, 1, result.RowCount)
	assert.Contains(t, result.Rows[0][0], "1 row(s) affected")
}

func TestExecuteStatement_OnlyFirstStatementRuns(t *testing.T) {
	gw := newTestGateway(t)

	result := gw.ExecuteStatement(context.Background(), "SELECT COUNT(*) FROM film; DELETE FROM film;")
	require.Empty(t, result.Error)
	assert.Equal(t, int64(2), result.Rows[0][0])

	// The second statement must have been discarded
	check := gw.ExecuteStatement(context.Background(), "SELECT COUNT(*) FROM film")
	assert.Equal(t, int64(2), check.Rows[0][0])
}

func TestExecuteStatement_CommentsStripped(t *testing.T) {
	gw := newTestGateway(t)

	result := gw.ExecuteStatement(context.Background(),
		"-- count the films\nSELECT /* all of them */ COUNT(*) FROM film")
	require.Empty(t, result.Error)
	assert.Equal(t, int64(2), result.Rows[0][0])
}

func TestExecuteStatement_EngineErrorCaptured(t *testing.T) {
	gw := newTestGateway(t)

	result := gw.ExecuteStatement(context.Background(), "SELECT * FROM no_such_table")
	assert.NotEmpty(t, result.Error)
	assert.True(t, result.Failed())
}

func TestExecuteStatement_EmptyInput(t *testing.T) {
	gw := newTestGateway(t)

	result := gw.ExecuteStatement(context.Background(), "-- only a comment")
	assert.NotEmpty(t, result.Error)
}

func TestExecuteStatement_ForeignKeysEnforced(t *testing.T) {
	gw := newTestGateway(t)

	result := gw.ExecuteStatement(context.Background(),
		"INSERT INTO film (film_id, title, category_id) VALUES (9, 'Orphan', 999)")
	assert.NotEmpty(t, result.Error)
}

func TestTables(t *testing.T) {
	gw := newTestGateway(t)

	tables, err := gw.Tables(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"category", "film"}, tables)
}

func TestColumns(t *testing.T) {
	gw := newTestGateway(t)

	columns, err := gw.Columns(context.Background(), "film")
	require.NoError(t, err)
	require.Len(t, columns, 3)

	assert.Equal(t, "film_id", columns[0].Name)
	assert.True(t, columns[0].PrimaryKey)
	assert.Equal(t, "title", columns[1].Name)
	assert.True(t, columns[1].NotNull)
	assert.False(t, columns[2].NotNull)
}

func TestColumns_UnknownTable(t *testing.T) {
	gw := newTestGateway(t)

	_, err := gw.Columns(context.Background(), "missing")
	assert.Error(t, err)
}

func TestForeignKeys(t *testing.T) {
	gw := newTestGateway(t)

	fks, err := gw.ForeignKeys(context.Background(), "film")
	require.NoError(t, err)
	require.Len(t, fks, 1)
	assert.Equal(t, "category_id", fks[0].FromColumn)
	assert.Equal(t, "category", fks[0].RefTable)
	assert.Equal(t, "category_id", fks[0].RefColumn)

	fks, err = gw.ForeignKeys(context.Background(), "category")
	require.NoError(t, err)
	assert.Empty(t, fks)
}

func TestSampleRows(t *testing.T) {
	gw := newTestGateway(t)

	cols, rows, err := gw.SampleRows(context.Background(), "film", 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"film_id", "title", "category_id"}, cols)
	assert.Len(t, rows, 1)
}
