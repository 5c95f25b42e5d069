package store

import (
	"database/sql"
	"fmt"
)

const ddl = `
PRAGMA journal_mode=WAL;
PRAGMA foreign_keys=ON;

CREATE TABLE IF NOT EXISTS documents (
    doc_id     TEXT PRIMARY KEY,
    path       TEXT NOT NULL UNIQUE,
    vendor     TEXT NOT NULL DEFAULT 'Unknown',
    doc_type   TEXT NOT NULL DEFAULT 'unknown',
    topic      TEXT NOT NULL DEFAULT 'unknown',
    topology   TEXT NOT NULL DEFAULT 'unknown',
    confidence REAL NOT NULL DEFAULT 0,
    title      TEXT NOT NULL DEFAULT '',
    language   TEXT NOT NULL DEFAULT 'en',
    page_count INTEGER NOT NULL DEFAULT 0,
    added_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS chunks (
    chunk_id   INTEGER PRIMARY KEY AUTOINCREMENT,
    doc_id     TEXT NOT NULL REFERENCES documents(doc_id) ON DELETE CASCADE,
    text       TEXT NOT NULL,
    page_start INTEGER NOT NULL DEFAULT 1
);

CREATE INDEX IF NOT EXISTS idx_chunks_doc ON chunks(doc_id);

CREATE VIRTUAL TABLE IF NOT EXISTS chunks_fts USING fts5(
    text,
    chunk_id UNINDEXED
);

CREATE TABLE IF NOT EXISTS embeddings (
    chunk_id  INTEGER NOT NULL UNIQUE REFERENCES chunks(chunk_id) ON DELETE CASCADE,
    vector_id INTEGER NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS meta (
    key   TEXT PRIMARY KEY,
    value TEXT NOT NULL
);
`

// vecDDL is applied separately because the embedding dimension is
// configuration dependent.
const vecDDL = `
CREATE VIRTUAL TABLE IF NOT EXISTS vec_chunks USING vec0(
    vector_id INTEGER PRIMARY KEY,
    embedding float[%d] distance_metric=cosine
);
`

// Init creates the schema tables if they don't exist. dim is the embedding
// dimension of the vector table.
func Init(db *sql.DB, dim int) error {
	if _, err := db.Exec(ddl); err != nil {
		return err
	}
	_, err := db.Exec(fmt.Sprintf(vecDDL, dim))
	return err
}
