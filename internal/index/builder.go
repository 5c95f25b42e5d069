// Package index builds the lexical and vector indexes over classified
// documents. The build is incremental: only documents without chunks are
// extracted and chunked, and only chunks without vectors are embedded.
package index

import (
	"context"
	"fmt"
	"sync"
	"time"

	"alaidocs/internal/chunker"
	"alaidocs/internal/config"
	"alaidocs/internal/embedder"
	"alaidocs/internal/logger"
	"alaidocs/internal/pdfio"
	"alaidocs/internal/store"
)

// Stats reports build results.
type Stats struct {
	DocsPending int
	DocsIndexed int
	DocsFailed  int
	Chunks      int
	Embedded    int
	// LexicalOnly is set when embedding was skipped or aborted; FTS is
	// still complete.
	LexicalOnly bool
}

// Builder drives the index build.
type Builder struct {
	cfg *config.Config
	st  store.Store
	ext *pdfio.Extractor
	ch  *chunker.Chunker
	// emb may be nil for lexical-only operation.
	emb embedder.Embedder
}

// New builds an index Builder. Pass a nil embedder to index without
// vectors.
func New(cfg *config.Config, st store.Store, ext *pdfio.Extractor, emb embedder.Embedder) *Builder {
	return &Builder{
		cfg: cfg,
		st:  st,
		ext: ext,
		ch:  chunker.New(cfg.Chunker.ChunkSize, cfg.Chunker.Overlap),
		emb: emb,
	}
}

// chunkBatch is the chunks extracted from a single document.
type chunkBatch struct {
	doc    store.Document
	chunks []chunker.Chunk
	err    error
}

// Build runs both phases: chunk every pending document into the store and
// the FTS index, then embed every chunk that has no vector yet. Embedding
// failures degrade to a lexical-only index instead of failing the build.
func (b *Builder) Build(ctx context.Context) (*Stats, error) {
	stats := &Stats{}

	if err := b.checkModelChange(); err != nil {
		return stats, err
	}

	docs, err := b.st.UnindexedDocuments()
	if err != nil {
		return stats, fmt.Errorf("list unindexed documents: %w", err)
	}
	stats.DocsPending = len(docs)

	if len(docs) > 0 {
		b.chunkDocuments(ctx, docs, stats)
	}

	if b.emb == nil {
		stats.LexicalOnly = true
		return stats, nil
	}
	if err := b.embedPending(ctx, stats); err != nil {
		logger.Warn("embedding aborted, index is lexical-only: %v", err)
		stats.LexicalOnly = true
		return stats, nil
	}

	if err := b.st.SetMeta(store.MetaEmbedModel, b.emb.Model()); err != nil {
		return stats, fmt.Errorf("record embed model: %w", err)
	}
	if err := b.st.SetMeta(store.MetaEmbedDim, fmt.Sprintf("%d", b.emb.Dimension())); err != nil {
		return stats, fmt.Errorf("record embed dim: %w", err)
	}
	return stats, nil
}

// checkModelChange resets the vector side when the configured embedding
// model differs from the one the vectors were built with. Documents,
// chunks, and the FTS index are kept.
func (b *Builder) checkModelChange() error {
	if b.emb == nil {
		return nil
	}
	last, err := b.st.GetMeta(store.MetaEmbedModel)
	if err != nil {
		return fmt.Errorf("get meta: %w", err)
	}
	if last == "" || last == b.emb.Model() {
		return nil
	}
	logger.Warn("embedding model changed from %q to %q, re-embedding all chunks", last, b.emb.Model())
	if err := b.st.ResetVectors(); err != nil {
		return fmt.Errorf("reset vectors: %w", err)
	}
	return nil
}

// chunkDocuments extracts and chunks pending documents with a worker pool
// feeding a single store writer.
func (b *Builder) chunkDocuments(ctx context.Context, docs []store.Document, stats *Stats) {
	workers := b.cfg.Ingest.Workers
	if workers <= 0 {
		workers = 1
	}

	docCh := make(chan store.Document)
	go func() {
		defer close(docCh)
		for _, d := range docs {
			select {
			case docCh <- d:
			case <-ctx.Done():
				return
			}
		}
	}()

	batchCh := make(chan chunkBatch, workers)
	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for d := range docCh {
				text, err := b.extractFull(ctx, d.Path)
				if err != nil {
					batchCh <- chunkBatch{doc: d, err: err}
					continue
				}
				batchCh <- chunkBatch{doc: d, chunks: b.ch.Split(text)}
			}
		}()
	}
	go func() {
		wg.Wait()
		close(batchCh)
	}()

	// Single writer: chunk inserts are serialized.
	for batch := range batchCh {
		if batch.err != nil {
			logger.Warn("indexing %s failed: %v", batch.doc.Path, batch.err)
			stats.DocsFailed++
			continue
		}
		if len(batch.chunks) == 0 {
			logger.Warn("no text chunks for %s", batch.doc.Path)
			stats.DocsFailed++
			continue
		}
		if _, err := b.st.InsertChunks(batch.doc.DocID, batch.chunks); err != nil {
			logger.Warn("storing chunks for %s failed: %v", batch.doc.Path, err)
			stats.DocsFailed++
			continue
		}
		stats.DocsIndexed++
		stats.Chunks += len(batch.chunks)
		logger.Debug("indexed %s (%d chunks)", batch.doc.Path, len(batch.chunks))
	}
}

func (b *Builder) extractFull(ctx context.Context, path string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, time.Duration(b.cfg.Ingest.ExtractTimeoutSecs)*time.Second)
	defer cancel()
	return b.ext.ExtractText(ctx, path, b.cfg.Chunker.MaxPages)
}

// embedPending embeds chunks without vectors in batches. Vectors are
// L2-normalized so the cosine index sees unit vectors.
func (b *Builder) embedPending(ctx context.Context, stats *Stats) error {
	batchSize := b.cfg.Embedder.BatchSize
	if batchSize <= 0 {
		batchSize = 64
	}
	for {
		pending, err := b.st.ChunksWithoutEmbeddings(batchSize)
		if err != nil {
			return fmt.Errorf("list pending chunks: %w", err)
		}
		if len(pending) == 0 {
			return nil
		}

		texts := make([]string, len(pending))
		ids := make([]int64, len(pending))
		for i, c := range pending {
			texts[i] = c.Text
			ids[i] = c.ChunkID
		}

		vecs, err := b.emb.Embed(ctx, texts)
		if err != nil {
			return fmt.Errorf("embed batch: %w", err)
		}
		for i := range vecs {
			embedder.Normalize(vecs[i])
		}
		if err := b.st.InsertEmbeddings(ids, vecs); err != nil {
			return fmt.Errorf("store embeddings: %w", err)
		}
		stats.Embedded += len(pending)
		logger.Debug("embedded %d chunks", stats.Embedded)
	}
}
