package search

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"alaidocs/internal/chunker"
	"alaidocs/internal/store"
)

// mockStore is a test double for store.Store covering the retrieval
// surface; writes are not expected.
type mockStore struct {
	ftsHits   []store.ChunkHit
	ftsErr    error
	vecHits   []store.ChunkHit
	vecErr    error
	repaired  bool
	ftsCalls  int
	repairErr error
}

func (m *mockStore) FTSSearch(string, int) ([]store.ChunkHit, error) {
	m.ftsCalls++
	if m.ftsErr != nil && !m.repaired {
		return nil, m.ftsErr
	}
	return m.ftsHits, nil
}

func (m *mockStore) VectorSearch([]float32, int) ([]store.ChunkHit, error) {
	if m.vecErr != nil {
		return nil, m.vecErr
	}
	return m.vecHits, nil
}

func (m *mockStore) RepairFTS() error {
	if m.repairErr != nil {
		return m.repairErr
	}
	m.repaired = true
	return nil
}

func (m *mockStore) HasDocument(string) (bool, error)           { return false, nil }
func (m *mockStore) InsertDocument(store.Document) error        { return nil }
func (m *mockStore) GetDocument(string) (*store.Document, error) { return nil, nil }
func (m *mockStore) ListDocuments(int) ([]store.Document, error) { return nil, nil }
func (m *mockStore) UnindexedDocuments() ([]store.Document, error) {
	return nil, nil
}
func (m *mockStore) InsertChunks(string, []chunker.Chunk) ([]int64, error) {
	return nil, nil
}
func (m *mockStore) InsertEmbeddings([]int64, [][]float32) error { return nil }
func (m *mockStore) ChunksWithoutEmbeddings(int) ([]store.ChunkRecord, error) {
	return nil, nil
}
func (m *mockStore) ResetVectors() error               { return nil }
func (m *mockStore) GetMeta(string) (string, error)    { return "", nil }
func (m *mockStore) SetMeta(string, string) error      { return nil }
func (m *mockStore) Stats() (store.Stats, error)       { return store.Stats{}, nil }
func (m *mockStore) Close() error                      { return nil }

// fixedEmbedder returns the same vector for every input.
type fixedEmbedder struct{ err error }

func (f *fixedEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(texts))
	for i := range out {
		out[i] = []float32{1, 0, 0, 0}
	}
	return out, nil
}

func (f *fixedEmbedder) EmbedSingle(ctx context.Context, text string) ([]float32, error) {
	vecs, err := f.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (f *fixedEmbedder) Model() string  { return "fixed" }
func (f *fixedEmbedder) Dimension() int { return 4 }

func hit(docID string, raw float64) store.ChunkHit {
	return store.ChunkHit{
		DocID:   docID,
		Text:    "chunk text for " + docID,
		Path:    "/lib/" + docID + ".pdf",
		Vendor:  "TI",
		DocType: "datasheet",
		Raw:     raw,
	}
}

func TestSearchHybridFusion(t *testing.T) {
	st := &mockStore{
		// bm25: more negative is better, so d1 is the best lexical hit.
		ftsHits: []store.ChunkHit{hit("d1", -5.0), hit("d2", -3.0)},
		// cosine distance: d1 is also the nearest vector.
		vecHits: []store.ChunkHit{hit("d1", 0.3), hit("d3", 0.4)},
	}
	r := NewRetriever(st, &fixedEmbedder{}, nil, 100)

	results, q, err := r.Search(context.Background(), "buck converter")
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.NotEmpty(t, q.Keywords)

	// d1 hit both channels: fused and ranked first.
	assert.Equal(t, "d1", results[0].DocID)
	assert.Equal(t, MethodHybrid, results[0].Method)
	expected := 0.6*1.0 + 0.4*0.7 + 0.05
	assert.InDelta(t, expected, results[0].Score, 1e-9)

	methods := map[string]string{}
	for _, r := range results {
		methods[r.DocID] = r.Method
	}
	assert.Equal(t, MethodFTS, methods["d2"])
	assert.Equal(t, MethodVector, methods["d3"])
}

func TestSearchScoreClamped(t *testing.T) {
	st := &mockStore{
		ftsHits: []store.ChunkHit{hit("d1", -9.0)},
		vecHits: []store.ChunkHit{hit("d1", 0.0)},
	}
	r := NewRetriever(st, &fixedEmbedder{}, nil, 100)

	results, _, err := r.Search(context.Background(), "buck")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.InDelta(t, 1.0, results[0].Score, 1e-9)
}

func TestSearchLexicalOnlyWithoutEmbedder(t *testing.T) {
	st := &mockStore{ftsHits: []store.ChunkHit{hit("d1", -2.0)}}
	r := NewRetriever(st, nil, nil, 100)

	results, _, err := r.Search(context.Background(), "buck")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, MethodFTS, results[0].Method)
}

func TestSearchVectorFailureDegradesToLexical(t *testing.T) {
	st := &mockStore{
		ftsHits: []store.ChunkHit{hit("d1", -2.0)},
		vecErr:  errors.New("vec0: no such table"),
	}
	r := NewRetriever(st, &fixedEmbedder{}, nil, 100)

	results, _, err := r.Search(context.Background(), "buck")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, MethodFTS, results[0].Method)
}

func TestSearchRepairsCorruptFTSOnce(t *testing.T) {
	st := &mockStore{
		ftsHits: []store.ChunkHit{hit("d1", -2.0)},
		ftsErr:  errors.New("database disk image is malformed"),
	}
	r := NewRetriever(st, nil, nil, 100)

	results, _, err := r.Search(context.Background(), "buck")
	require.NoError(t, err)
	assert.True(t, st.repaired)
	assert.Equal(t, 2, st.ftsCalls)
	assert.Len(t, results, 1)
}

func TestSearchSurfacesNonStructuralFTSError(t *testing.T) {
	st := &mockStore{ftsErr: errors.New("no such column: zap")}
	r := NewRetriever(st, nil, nil, 100)

	_, _, err := r.Search(context.Background(), "buck")
	assert.Error(t, err)
	assert.False(t, st.repaired)
}

func TestSearchSurfacesFailedRepair(t *testing.T) {
	st := &mockStore{
		ftsErr:    errors.New("database disk image is malformed"),
		repairErr: errors.New("disk full"),
	}
	r := NewRetriever(st, nil, nil, 100)

	_, _, err := r.Search(context.Background(), "buck")
	assert.Error(t, err)
}

func TestNormalizeBM25AnchorsBestAtOne(t *testing.T) {
	scored := normalizeBM25([]store.ChunkHit{hit("a", -4.0), hit("b", -2.0), hit("c", -2.0)})

	require.Len(t, scored, 3)
	assert.InDelta(t, 1.0, scored[0].score, 1e-9)
	assert.InDelta(t, 1.0/3.0, scored[1].score, 1e-9)
	assert.Equal(t, scored[1].score, scored[2].score)
}

func TestSimilarityMappings(t *testing.T) {
	assert.InDelta(t, 1.0, CosineSimilarity(0), 1e-9)
	assert.InDelta(t, 0.5, CosineSimilarity(0.5), 1e-9)
	assert.Zero(t, CosineSimilarity(1.8))

	assert.InDelta(t, 1.0, L2Similarity(0), 1e-9)
	assert.InDelta(t, 0.5, L2Similarity(1), 1e-9)
}
