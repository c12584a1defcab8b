package server

import (
	"context"
	"database/sql"
	"net/http"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koustreak/tabula/internal/database"
	_ "github.com/koustreak/tabula/internal/database/sqlite"
)

// TestMessage_SQLite posts a guestbook entry through a real pool.
func TestMessage_SQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "guestbook.db")
	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	_, err = db.Exec(`CREATE TABLE comments (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		contact TEXT,
		content TEXT NOT NULL,
		created_at DATETIME
	)`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	pool := database.New(database.WithEnv(func(string) (string, bool) { return "", false }))
	require.NoError(t, pool.Init(context.Background(), database.Config{Driver: database.DriverSQLite, Database: path}))
	t.Cleanup(func() { _ = pool.Close(context.Background()) })

	h := newTestServer(t, pool, nil)

	rec, resp := do(t, h, http.MethodPost, "/api/message", `{"name":"Ada","contact":"","content":"first"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.NotNil(t, resp.ID)
	assert.Equal(t, int64(1), *resp.ID)

	rec, resp = do(t, h, http.MethodGet, "/api/tables/comments/rows", "")
	require.Equal(t, http.StatusOK, rec.Code)
	rows := resp.Data.([]any)
	require.Len(t, rows, 1)
	assert.Equal(t, "first", rows[0].(map[string]any)["content"])

	rec, _ = do(t, h, http.MethodGet, "/api/tables/nonexistent_table/rows", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, _ = do(t, h, http.MethodGet, "/api/tables/bad;name/rows", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = do(t, h, http.MethodPatch, "/api/tables/comments/rows", `{"set":{"content":"x"}}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code, "update without where is refused")
}
