package search

import (
	"context"
	"fmt"
	"sort"

	"alaidocs/internal/embedder"
	"alaidocs/internal/logger"
	"alaidocs/internal/store"
)

// Fusion constants. Dual-channel hits are dominated by the lexical score,
// boosted for agreement, and clamped to 1.
const (
	ftsWeight   = 0.6
	vecWeight   = 0.4
	dualHitBond = 0.05
)

// Method tags on results name the channel that produced the score.
const (
	MethodFTS    = "fts5"
	MethodVector = "vector"
	MethodHybrid = "hybrid"
)

// DocResult is one ranked document.
type DocResult struct {
	DocID     string
	Path      string
	Vendor    string
	DocType   string
	Title     string
	Score     float64
	Method    string
	BestChunk string
	PageStart int
}

// Retriever answers queries against the store. A nil embedder or
// translator degrades gracefully: lexical-only search and untranslated
// queries respectively.
type Retriever struct {
	st store.Store
	// emb may be nil for lexical-only retrieval.
	emb embedder.Embedder
	tr  Translator
	// topK is the per-channel chunk fetch depth before fusion.
	topK int
}

// NewRetriever builds a Retriever. emb and tr may be nil.
func NewRetriever(st store.Store, emb embedder.Embedder, tr Translator, topK int) *Retriever {
	if topK <= 0 {
		topK = 100
	}
	return &Retriever{st: st, emb: emb, tr: tr, topK: topK}
}

// Search analyzes the query, runs both channels, and returns fused
// per-document results sorted by descending score.
func (r *Retriever) Search(ctx context.Context, raw string) ([]DocResult, Query, error) {
	q := Analyze(ctx, raw, r.tr)

	ftsHits, err := r.searchFTS(q)
	if err != nil {
		return nil, q, err
	}

	var vecHits []store.ChunkHit
	if r.emb != nil {
		vecHits, err = r.searchVector(ctx, q)
		if err != nil {
			// Vector trouble never hides lexical results.
			logger.Warn("vector search failed, returning lexical results only: %v", err)
			vecHits = nil
		}
	}

	results := fuse(ftsHits, vecHits)
	return results, q, nil
}

// searchFTS runs the lexical channel. A structural index error triggers
// one repair and retry before surfacing.
func (r *Retriever) searchFTS(q Query) ([]store.ChunkHit, error) {
	match := FTSMatch(q.Keywords)
	if match == "" {
		return nil, nil
	}
	hits, err := r.st.FTSSearch(match, r.topK)
	if err == nil {
		return hits, nil
	}
	if !store.IsFTSCorruption(err) {
		return nil, fmt.Errorf("fts search: %w", err)
	}
	logger.Warn("fts index looks corrupted, rebuilding: %v", err)
	if repairErr := r.st.RepairFTS(); repairErr != nil {
		return nil, fmt.Errorf("fts repair after %v: %w", err, repairErr)
	}
	hits, err = r.st.FTSSearch(match, r.topK)
	if err != nil {
		return nil, fmt.Errorf("fts search after repair: %w", err)
	}
	return hits, nil
}

func (r *Retriever) searchVector(ctx context.Context, q Query) ([]store.ChunkHit, error) {
	vec, err := r.emb.EmbedSingle(ctx, q.Text)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	embedder.Normalize(vec)
	return r.st.VectorSearch(vec, r.topK)
}

// fuse groups chunk hits by document and combines per-channel maxima.
func fuse(ftsHits, vecHits []store.ChunkHit) []DocResult {
	type agg struct {
		hit      store.ChunkHit
		fts, vec float64
		hasFTS   bool
		hasVec   bool
	}
	docs := map[string]*agg{}
	get := func(h store.ChunkHit) *agg {
		a, ok := docs[h.DocID]
		if !ok {
			a = &agg{hit: h}
			docs[h.DocID] = a
		}
		return a
	}

	for _, sh := range normalizeBM25(ftsHits) {
		a := get(sh.hit)
		if !a.hasFTS || sh.score > a.fts {
			a.fts = sh.score
			a.hit = sh.hit
			a.hasFTS = true
		}
	}
	for _, h := range vecHits {
		score := CosineSimilarity(h.Raw)
		a := get(h)
		if !a.hasVec || score > a.vec {
			a.vec = score
			if !a.hasFTS {
				a.hit = h
			}
			a.hasVec = true
		}
	}

	results := make([]DocResult, 0, len(docs))
	for docID, a := range docs {
		res := DocResult{
			DocID:     docID,
			Path:      a.hit.Path,
			Vendor:    a.hit.Vendor,
			DocType:   a.hit.DocType,
			Title:     a.hit.Title,
			BestChunk: a.hit.Text,
			PageStart: a.hit.PageStart,
		}
		switch {
		case a.hasFTS && a.hasVec:
			res.Score = clamp01(ftsWeight*a.fts + vecWeight*a.vec + dualHitBond)
			res.Method = MethodHybrid
		case a.hasFTS:
			res.Score = a.fts
			res.Method = MethodFTS
		default:
			res.Score = a.vec
			res.Method = MethodVector
		}
		results = append(results, res)
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].DocID < results[j].DocID
	})
	return results
}

type scoredHit struct {
	hit   store.ChunkHit
	score float64
}

// normalizeBM25 maps raw bm25 values (lower is better, typically negative
// in SQLite) onto (0, 1] anchored at the best hit in this result set.
func normalizeBM25(hits []store.ChunkHit) []scoredHit {
	if len(hits) == 0 {
		return nil
	}
	min := hits[0].Raw
	for _, h := range hits {
		if h.Raw < min {
			min = h.Raw
		}
	}
	out := make([]scoredHit, 0, len(hits))
	for _, h := range hits {
		out = append(out, scoredHit{hit: h, score: 1 / (1 + (h.Raw - min))})
	}
	return out
}

// CosineSimilarity maps a cosine distance in [0, 2] onto [0, 1].
func CosineSimilarity(dist float64) float64 {
	return clamp01(1 - dist)
}

// L2Similarity maps a Euclidean distance onto (0, 1] for indexes built
// with an L2 metric.
func L2Similarity(dist float64) float64 {
	if dist < 0 {
		dist = 0
	}
	return 1 / (1 + dist)
}

func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}
