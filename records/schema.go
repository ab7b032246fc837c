package records

import (
	"context"
	"database/sql"
)

const schema = `
CREATE TABLE IF NOT EXISTS memories (
    id INTEGER PRIMARY KEY,
    caption TEXT,
    modality TEXT,
    timestamp TEXT,
    filepath TEXT
);
CREATE TABLE IF NOT EXISTS reflections (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    summary TEXT,
    timestamp TEXT,
    tags TEXT
);
CREATE TABLE IF NOT EXISTS memory_embeddings (
    memory_id INTEGER PRIMARY KEY,
    embedding BLOB NOT NULL
);
`

// ensureSchema creates the store tables if they do not already exist.
func ensureSchema(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, schema)
	return err
}

// hasSchema reports whether the memories table is present.
func hasSchema(ctx context.Context, db *sql.DB) (bool, error) {
	var n int
	err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name IN ('memories', 'reflections')`).Scan(&n)
	if err != nil {
		return false, err
	}
	return n == 2, nil
}
