// Package store persists classified documents, their text chunks, the FTS5
// lexical index, and the sqlite-vec vector index in a single SQLite file.
package store

import (
	"database/sql"
	"fmt"
	"strings"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	_ "github.com/mattn/go-sqlite3"

	"alaidocs/internal/chunker"
)

func init() {
	sqlite_vec.Auto()
}

// Store provides persistence for documents, chunks, and embeddings.
type Store interface {
	// HasDocument reports whether a document with this content hash exists.
	HasDocument(docID string) (bool, error)
	// InsertDocument adds a classified document record.
	InsertDocument(d Document) error
	// GetDocument returns a document by ID, or nil if absent.
	GetDocument(docID string) (*Document, error)
	// ListDocuments returns up to limit documents ordered by added_at
	// descending. limit <= 0 returns all.
	ListDocuments(limit int) ([]Document, error)
	// UnindexedDocuments returns documents that have no chunks yet.
	UnindexedDocuments() ([]Document, error)
	// InsertChunks stores chunks for a document, mirrors them into the
	// FTS index, and returns the assigned chunk IDs.
	InsertChunks(docID string, chunks []chunker.Chunk) ([]int64, error)
	// InsertEmbeddings stores vectors for chunks. Vector IDs are assigned
	// sequentially and never reused.
	InsertEmbeddings(chunkIDs []int64, embeddings [][]float32) error
	// ChunksWithoutEmbeddings returns up to limit chunks that have no
	// vector yet, oldest first. limit <= 0 returns all.
	ChunksWithoutEmbeddings(limit int) ([]ChunkRecord, error)
	// FTSSearch runs an FTS5 MATCH query and returns up to k hits with
	// raw bm25 scores (lower is better).
	FTSSearch(match string, k int) ([]ChunkHit, error)
	// VectorSearch returns the k chunks nearest to the query embedding,
	// with raw distances.
	VectorSearch(embedding []float32, k int) ([]ChunkHit, error)
	// RepairFTS drops and rebuilds the FTS index from the chunks table.
	RepairFTS() error
	// ResetVectors removes all embeddings and vectors, keeping documents,
	// chunks, and the FTS index. Used when the embedding model changes.
	ResetVectors() error
	// GetMeta returns a metadata value by key, or "" if not set.
	GetMeta(key string) (string, error)
	// SetMeta sets a metadata key-value pair.
	SetMeta(key, value string) error
	// Stats returns document, chunk, and embedding counts.
	Stats() (Stats, error)
	// Close closes the underlying database.
	Close() error
}

// Meta keys recorded at index time.
const (
	MetaEmbedModel = "embed_model"
	MetaEmbedDim   = "embed_dim"
)

// SQLiteStore implements Store backed by SQLite + FTS5 + sqlite-vec.
type SQLiteStore struct {
	db *sql.DB
}

// Open creates or opens the database at dbPath and initializes the schema.
// dim is the embedding dimension used for the vector table.
func Open(dbPath string, dim int) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := Init(db, dim); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) HasDocument(docID string) (bool, error) {
	var one int
	err := s.db.QueryRow("SELECT 1 FROM documents WHERE doc_id = ?", docID).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	return err == nil, err
}

func (s *SQLiteStore) InsertDocument(d Document) error {
	_, err := s.db.Exec(
		`INSERT INTO documents (doc_id, path, vendor, doc_type, topic, topology, confidence, title, language, page_count)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.DocID, d.Path, d.Vendor, d.DocType, d.Topic, d.Topology,
		d.Confidence, d.Title, d.Language, d.PageCount,
	)
	if err != nil {
		return fmt.Errorf("insert document %s: %w", d.DocID, err)
	}
	return nil
}

const docColumns = "doc_id, path, vendor, doc_type, topic, topology, confidence, title, language, page_count, added_at"

func scanDocument(row interface{ Scan(...any) error }) (Document, error) {
	var d Document
	err := row.Scan(
		&d.DocID, &d.Path, &d.Vendor, &d.DocType, &d.Topic, &d.Topology,
		&d.Confidence, &d.Title, &d.Language, &d.PageCount, &d.AddedAt,
	)
	return d, err
}

func (s *SQLiteStore) GetDocument(docID string) (*Document, error) {
	row := s.db.QueryRow("SELECT "+docColumns+" FROM documents WHERE doc_id = ?", docID)
	d, err := scanDocument(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (s *SQLiteStore) ListDocuments(limit int) ([]Document, error) {
	q := "SELECT " + docColumns + " FROM documents ORDER BY added_at DESC"
	var args []any
	if limit > 0 {
		q += " LIMIT ?"
		args = append(args, limit)
	}
	return s.queryDocuments(q, args...)
}

func (s *SQLiteStore) UnindexedDocuments() ([]Document, error) {
	q := "SELECT " + docColumns + ` FROM documents d
		WHERE NOT EXISTS (SELECT 1 FROM chunks c WHERE c.doc_id = d.doc_id)
		ORDER BY added_at`
	return s.queryDocuments(q)
}

func (s *SQLiteStore) queryDocuments(q string, args ...any) ([]Document, error) {
	rows, err := s.db.Query(q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var docs []Document
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

func (s *SQLiteStore) InsertChunks(docID string, chunks []chunker.Chunk) ([]int64, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare("INSERT INTO chunks (doc_id, text, page_start) VALUES (?, ?, ?)")
	if err != nil {
		return nil, err
	}
	defer stmt.Close()
	ftsStmt, err := tx.Prepare("INSERT INTO chunks_fts (text, chunk_id) VALUES (?, ?)")
	if err != nil {
		return nil, err
	}
	defer ftsStmt.Close()

	ids := make([]int64, 0, len(chunks))
	for _, c := range chunks {
		res, err := stmt.Exec(docID, c.Text, c.PageStart)
		if err != nil {
			return nil, err
		}
		id, err := res.LastInsertId()
		if err != nil {
			return nil, err
		}
		if _, err := ftsStmt.Exec(c.Text, id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return ids, nil
}

func (s *SQLiteStore) InsertEmbeddings(chunkIDs []int64, embeddings [][]float32) error {
	if len(chunkIDs) != len(embeddings) {
		return fmt.Errorf("mismatched chunk IDs (%d) and embeddings (%d)", len(chunkIDs), len(embeddings))
	}
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	// Vector IDs continue after the highest ever assigned so deletes never
	// cause reuse.
	var next int64
	if err := tx.QueryRow("SELECT COALESCE(MAX(vector_id) + 1, 0) FROM embeddings").Scan(&next); err != nil {
		return err
	}

	vecStmt, err := tx.Prepare("INSERT INTO vec_chunks (vector_id, embedding) VALUES (?, ?)")
	if err != nil {
		return err
	}
	defer vecStmt.Close()
	mapStmt, err := tx.Prepare("INSERT INTO embeddings (chunk_id, vector_id) VALUES (?, ?)")
	if err != nil {
		return err
	}
	defer mapStmt.Close()

	for i, cid := range chunkIDs {
		blob, err := sqlite_vec.SerializeFloat32(embeddings[i])
		if err != nil {
			return fmt.Errorf("serialize embedding for chunk %d: %w", cid, err)
		}
		vid := next + int64(i)
		if _, err := vecStmt.Exec(vid, blob); err != nil {
			return fmt.Errorf("insert vector for chunk %d: %w", cid, err)
		}
		if _, err := mapStmt.Exec(cid, vid); err != nil {
			return fmt.Errorf("map chunk %d to vector %d: %w", cid, vid, err)
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) ChunksWithoutEmbeddings(limit int) ([]ChunkRecord, error) {
	q := `SELECT c.chunk_id, c.doc_id, c.text, c.page_start FROM chunks c
		WHERE NOT EXISTS (SELECT 1 FROM embeddings e WHERE e.chunk_id = c.chunk_id)
		ORDER BY c.chunk_id`
	var args []any
	if limit > 0 {
		q += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := s.db.Query(q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []ChunkRecord
	for rows.Next() {
		var c ChunkRecord
		if err := rows.Scan(&c.ChunkID, &c.DocID, &c.Text, &c.PageStart); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) FTSSearch(match string, k int) ([]ChunkHit, error) {
	rows, err := s.db.Query(`
		SELECT f.chunk_id, c.doc_id, c.text, c.page_start,
		       d.path, d.vendor, d.doc_type, d.title,
		       bm25(chunks_fts) AS score
		FROM chunks_fts f
		JOIN chunks c ON c.chunk_id = f.chunk_id
		JOIN documents d ON d.doc_id = c.doc_id
		WHERE chunks_fts MATCH ?
		ORDER BY score
		LIMIT ?
	`, match, k)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanHits(rows)
}

func (s *SQLiteStore) VectorSearch(embedding []float32, k int) ([]ChunkHit, error) {
	blob, err := sqlite_vec.SerializeFloat32(embedding)
	if err != nil {
		return nil, fmt.Errorf("serialize query embedding: %w", err)
	}
	rows, err := s.db.Query(`
		SELECT e.chunk_id, c.doc_id, c.text, c.page_start,
		       d.path, d.vendor, d.doc_type, d.title,
		       v.distance
		FROM vec_chunks v
		JOIN embeddings e ON e.vector_id = v.vector_id
		JOIN chunks c ON c.chunk_id = e.chunk_id
		JOIN documents d ON d.doc_id = c.doc_id
		WHERE v.embedding MATCH ? AND v.k = ?
		ORDER BY v.distance
	`, blob, k)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanHits(rows)
}

func scanHits(rows *sql.Rows) ([]ChunkHit, error) {
	var hits []ChunkHit
	for rows.Next() {
		var h ChunkHit
		err := rows.Scan(
			&h.ChunkID, &h.DocID, &h.Text, &h.PageStart,
			&h.Path, &h.Vendor, &h.DocType, &h.Title, &h.Raw,
		)
		if err != nil {
			return nil, err
		}
		hits = append(hits, h)
	}
	return hits, rows.Err()
}

// ftsShadowTables are the FTS5 internal tables dropped on repair. A
// corrupted index can leave them behind after the virtual table itself is
// gone.
var ftsShadowTables = []string{
	"chunks_fts_data", "chunks_fts_idx", "chunks_fts_content",
	"chunks_fts_docsize", "chunks_fts_config",
}

func (s *SQLiteStore) RepairFTS() error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DROP TABLE IF EXISTS chunks_fts"); err != nil {
		return fmt.Errorf("drop fts table: %w", err)
	}
	for _, t := range ftsShadowTables {
		if _, err := tx.Exec("DROP TABLE IF EXISTS " + t); err != nil {
			return fmt.Errorf("drop fts shadow table %s: %w", t, err)
		}
	}
	if _, err := tx.Exec("CREATE VIRTUAL TABLE chunks_fts USING fts5(text, chunk_id UNINDEXED)"); err != nil {
		return fmt.Errorf("recreate fts table: %w", err)
	}
	if _, err := tx.Exec("INSERT INTO chunks_fts (text, chunk_id) SELECT text, chunk_id FROM chunks"); err != nil {
		return fmt.Errorf("rebuild fts index: %w", err)
	}
	return tx.Commit()
}

func (s *SQLiteStore) ResetVectors() error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM vec_chunks"); err != nil {
		return err
	}
	if _, err := tx.Exec("DELETE FROM embeddings"); err != nil {
		return err
	}
	// Documents with chunks but no embeddings get re-embedded by marking
	// nothing: the index builder embeds chunks missing from embeddings.
	return tx.Commit()
}

func (s *SQLiteStore) GetMeta(key string) (string, error) {
	var value string
	err := s.db.QueryRow("SELECT value FROM meta WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return value, err
}

func (s *SQLiteStore) SetMeta(key, value string) error {
	_, err := s.db.Exec(
		"INSERT INTO meta (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value",
		key, value,
	)
	return err
}

func (s *SQLiteStore) Stats() (Stats, error) {
	st := Stats{ByVendor: make(map[string]int64), ByDocType: make(map[string]int64)}
	counts := map[string]*int64{
		"SELECT COUNT(*) FROM documents":  &st.Documents,
		"SELECT COUNT(*) FROM chunks":     &st.Chunks,
		"SELECT COUNT(*) FROM embeddings": &st.Embeddings,
	}
	for q, dst := range counts {
		if err := s.db.QueryRow(q).Scan(dst); err != nil {
			return st, err
		}
	}
	for _, group := range []struct {
		col string
		dst map[string]int64
	}{
		{"vendor", st.ByVendor},
		{"doc_type", st.ByDocType},
	} {
		rows, err := s.db.Query("SELECT " + group.col + ", COUNT(*) FROM documents GROUP BY " + group.col)
		if err != nil {
			return st, err
		}
		for rows.Next() {
			var k string
			var n int64
			if err := rows.Scan(&k, &n); err != nil {
				rows.Close()
				return st, err
			}
			group.dst[k] = n
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return st, err
		}
		rows.Close()
	}
	return st, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// IsFTSCorruption reports whether err looks like structural FTS index
// damage that RepairFTS can fix.
func IsFTSCorruption(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "malformed") ||
		strings.Contains(msg, "corrupt") ||
		strings.Contains(msg, "fts5: missing")
}
