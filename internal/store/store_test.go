package store

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"alaidocs/internal/chunker"
)

func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "kb.db"), 4)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func testDoc(id, path string) Document {
	return Document{
		DocID:    id,
		Path:     path,
		Vendor:   "TI",
		DocType:  "datasheet",
		Topic:    "power_ic",
		Topology: "buck_boost",
		Title:    "LM5176 controller",
		Language: "en",
	}
}

func TestDocumentLifecycle(t *testing.T) {
	s := openTestStore(t)

	ok, err := s.HasDocument("abc")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.InsertDocument(testDoc("abc", "/lib/a.pdf")))

	ok, err = s.HasDocument("abc")
	require.NoError(t, err)
	assert.True(t, ok)

	d, err := s.GetDocument("abc")
	require.NoError(t, err)
	require.NotNil(t, d)
	assert.Equal(t, "TI", d.Vendor)
	assert.False(t, d.AddedAt.IsZero())

	d, err = s.GetDocument("missing")
	require.NoError(t, err)
	assert.Nil(t, d)

	// Same content hash again must fail the primary key.
	assert.Error(t, s.InsertDocument(testDoc("abc", "/lib/b.pdf")))
}

func TestUnindexedDocuments(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.InsertDocument(testDoc("d1", "/lib/1.pdf")))
	require.NoError(t, s.InsertDocument(testDoc("d2", "/lib/2.pdf")))

	_, err := s.InsertChunks("d1", []chunker.Chunk{{Text: "buck boost converter", PageStart: 1}})
	require.NoError(t, err)

	pending, err := s.UnindexedDocuments()
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "d2", pending[0].DocID)
}

func TestFTSSearch(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.InsertDocument(testDoc("d1", "/lib/1.pdf")))
	_, err := s.InsertChunks("d1", []chunker.Chunk{
		{Text: "emi filter design for buck converters", PageStart: 1},
		{Text: "thermal derating of inductors", PageStart: 2},
	})
	require.NoError(t, err)

	hits, err := s.FTSSearch(`"emi" OR "filter"`, 10)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "d1", hits[0].DocID)
	assert.Equal(t, "TI", hits[0].Vendor)
	// bm25 scores from SQLite are negative; lower means more relevant.
	assert.Less(t, hits[0].Raw, 0.0)
}

func TestVectorSearchRoundTrip(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.InsertDocument(testDoc("d1", "/lib/1.pdf")))
	ids, err := s.InsertChunks("d1", []chunker.Chunk{
		{Text: "alpha", PageStart: 1},
		{Text: "beta", PageStart: 1},
	})
	require.NoError(t, err)

	err = s.InsertEmbeddings(ids, [][]float32{
		{1, 0, 0, 0},
		{0, 1, 0, 0},
	})
	require.NoError(t, err)

	hits, err := s.VectorSearch([]float32{1, 0, 0, 0}, 2)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "alpha", hits[0].Text)
	assert.InDelta(t, 0.0, hits[0].Raw, 1e-5)
}

func TestInsertEmbeddingsAssignsSequentialVectorIDs(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.InsertDocument(testDoc("d1", "/lib/1.pdf")))
	ids, err := s.InsertChunks("d1", []chunker.Chunk{
		{Text: "a"}, {Text: "b"}, {Text: "c"},
	})
	require.NoError(t, err)

	require.NoError(t, s.InsertEmbeddings(ids[:2], [][]float32{{1, 0, 0, 0}, {0, 1, 0, 0}}))
	require.NoError(t, s.InsertEmbeddings(ids[2:], [][]float32{{0, 0, 1, 0}}))

	var vid int64
	err = s.db.QueryRow("SELECT vector_id FROM embeddings WHERE chunk_id = ?", ids[2]).Scan(&vid)
	require.NoError(t, err)
	assert.Equal(t, int64(2), vid)

	st, err := s.Stats()
	require.NoError(t, err)
	assert.Equal(t, int64(3), st.Embeddings)
}

func TestInsertEmbeddingsLengthMismatch(t *testing.T) {
	s := openTestStore(t)
	assert.Error(t, s.InsertEmbeddings([]int64{1}, nil))
}

func TestRepairFTSRebuildsFromChunks(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.InsertDocument(testDoc("d1", "/lib/1.pdf")))
	_, err := s.InsertChunks("d1", []chunker.Chunk{{Text: "surge protection tvs diode", PageStart: 1}})
	require.NoError(t, err)

	// Wreck the FTS side, then repair.
	_, err = s.db.Exec("DELETE FROM chunks_fts")
	require.NoError(t, err)
	require.NoError(t, s.RepairFTS())

	hits, err := s.FTSSearch(`"tvs"`, 10)
	require.NoError(t, err)
	assert.Len(t, hits, 1)

	// Repair is idempotent.
	require.NoError(t, s.RepairFTS())
}

func TestResetVectorsKeepsLexicalSide(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.InsertDocument(testDoc("d1", "/lib/1.pdf")))
	ids, err := s.InsertChunks("d1", []chunker.Chunk{{Text: "gate driver layout"}})
	require.NoError(t, err)
	require.NoError(t, s.InsertEmbeddings(ids, [][]float32{{1, 0, 0, 0}}))

	require.NoError(t, s.ResetVectors())

	st, err := s.Stats()
	require.NoError(t, err)
	assert.Equal(t, int64(0), st.Embeddings)
	assert.Equal(t, int64(1), st.Chunks)

	hits, err := s.FTSSearch(`"gate"`, 10)
	require.NoError(t, err)
	assert.Len(t, hits, 1)
}

func TestMeta(t *testing.T) {
	s := openTestStore(t)

	v, err := s.GetMeta(MetaEmbedModel)
	require.NoError(t, err)
	assert.Empty(t, v)

	require.NoError(t, s.SetMeta(MetaEmbedModel, "nomic-embed-text"))
	require.NoError(t, s.SetMeta(MetaEmbedModel, "mxbai-embed-large"))

	v, err = s.GetMeta(MetaEmbedModel)
	require.NoError(t, err)
	assert.Equal(t, "mxbai-embed-large", v)
}

func TestStatsGroups(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.InsertDocument(testDoc("d1", "/lib/1.pdf")))
	d2 := testDoc("d2", "/lib/2.pdf")
	d2.Vendor = "ST"
	require.NoError(t, s.InsertDocument(d2))

	st, err := s.Stats()
	require.NoError(t, err)
	assert.Equal(t, int64(2), st.Documents)
	assert.Equal(t, int64(1), st.ByVendor["TI"])
	assert.Equal(t, int64(1), st.ByVendor["ST"])
	assert.Equal(t, int64(2), st.ByDocType["datasheet"])
}

func TestIsFTSCorruption(t *testing.T) {
	assert.False(t, IsFTSCorruption(nil))
	assert.False(t, IsFTSCorruption(errors.New("no such column")))
	assert.True(t, IsFTSCorruption(errors.New("database disk image is malformed")))
	assert.True(t, IsFTSCorruption(errors.New("SQL logic error: fts5: missing data")))
}
