// Package ingest runs the classification pipeline: discover PDFs in the
// source directory, deduplicate by content hash, classify along the four
// taxonomy dimensions, and relocate each file into the classified tree.
package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"alaidocs/internal/classify"
	"alaidocs/internal/config"
	"alaidocs/internal/logger"
	"alaidocs/internal/pdfio"
	"alaidocs/internal/store"
	"alaidocs/internal/walker"
)

// Status is the outcome of processing one source file.
type Status int

const (
	StatusIngested Status = iota
	StatusDuplicate
	StatusQuarantined
	StatusLowConfidence
	StatusSkipped
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusIngested:
		return "ingested"
	case StatusDuplicate:
		return "duplicate"
	case StatusQuarantined:
		return "quarantined"
	case StatusLowConfidence:
		return "low_confidence"
	case StatusSkipped:
		return "skipped"
	default:
		return "failed"
	}
}

// Result describes what happened to one source file.
type Result struct {
	Source string
	Dest   string
	Status Status
	Doc    store.Document
	Err    error
}

// Stats is the batch summary. Per-file failures never abort the batch, so
// the counts always add up to Total.
type Stats struct {
	Total         int
	Ingested      int
	Duplicates    int
	Quarantined   int
	LowConfidence int
	Skipped       int
	Failed        int
}

func (st *Stats) count(s Status) {
	st.Total++
	switch s {
	case StatusIngested:
		st.Ingested++
	case StatusDuplicate:
		st.Duplicates++
	case StatusQuarantined:
		st.Quarantined++
	case StatusLowConfidence:
		st.LowConfidence++
	case StatusSkipped:
		st.Skipped++
	default:
		st.Failed++
	}
}

// Pipeline classifies and relocates PDFs.
type Pipeline struct {
	cfg *config.Config
	cls *classify.Classifier
	ext *pdfio.Extractor
	st  store.Store

	// DryRun computes classifications and reports results without moving
	// files or writing to the store.
	DryRun bool
	// OnResult, when set, receives every per-file result as the writer
	// finishes it.
	OnResult func(Result)
}

// New builds a pipeline from the configuration.
func New(cfg *config.Config, cls *classify.Classifier, ext *pdfio.Extractor, st store.Store) *Pipeline {
	return &Pipeline{cfg: cfg, cls: cls, ext: ext, st: st}
}

// work carries one classified file from a worker to the writer.
type work struct {
	info   walker.FileInfo
	status Status
	err    error
	doc    store.Document
}

// Run processes every PDF under the source directory. Workers hash,
// extract, and classify concurrently; a single writer goroutine owns all
// file moves and store writes so duplicate checks stay race free.
func (p *Pipeline) Run(ctx context.Context) (*Stats, error) {
	fileCh, walkErrCh := walker.Walk(p.cfg.Paths.Source)

	workers := p.cfg.Ingest.Workers
	if workers <= 0 {
		workers = 1
	}
	interval := time.Duration(p.cfg.Ingest.StableWindowMS) *
		time.Millisecond / time.Duration(max(p.cfg.Ingest.StableChecks, 1))

	workCh := make(chan work, workers)
	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for fi := range fileCh {
				workCh <- p.process(ctx, fi, interval)
			}
		}()
	}
	go func() {
		wg.Wait()
		close(workCh)
	}()

	batchID := newBatchID()
	stats := &Stats{}
	for w := range workCh {
		res := p.commit(w, batchID)
		stats.count(res.Status)
		if p.OnResult != nil {
			p.OnResult(res)
		}
	}

	if err := <-walkErrCh; err != nil {
		return stats, fmt.Errorf("walk source dir: %w", err)
	}
	return stats, nil
}

// process runs the read-only half of ingestion for one file: stability,
// validity, hashing, extraction, and classification.
func (p *Pipeline) process(ctx context.Context, fi walker.FileInfo, interval time.Duration) work {
	w := work{info: fi}

	if !pdfio.IsStable(ctx, fi.Path, p.cfg.Ingest.StableChecks, interval) {
		logger.Debug("skipping unstable file %s", fi.RelPath)
		w.status = StatusSkipped
		return w
	}

	if !pdfio.IsPDF(fi.Path) {
		logger.Info("quarantining %s: missing PDF header", fi.RelPath)
		w.status = StatusQuarantined
		return w
	}

	docID, err := hashFile(fi.Path)
	if err != nil {
		w.status = StatusFailed
		w.err = fmt.Errorf("hash %s: %w", fi.RelPath, err)
		return w
	}

	// Cheap pre-check; the writer re-checks authoritatively.
	if exists, err := p.st.HasDocument(docID); err == nil && exists {
		w.status = StatusDuplicate
		w.doc.DocID = docID
		return w
	}

	text := p.extractHead(ctx, fi.Path)
	if len(text) < p.cfg.Classifier.MinTextChars {
		logger.Warn("%s: only %d chars extracted, classifying on filename alone", fi.RelPath, len(text))
	}

	c := p.cls.Classify(fi.Path, text)
	w.doc = store.Document{
		DocID:      docID,
		Vendor:     c.Vendor.Label,
		DocType:    c.DocType.Label,
		Topic:      c.Topic.Label,
		Topology:   c.Topology.Label,
		Confidence: c.DocType.Confidence,
		Title:      classify.GuessTitle(text, fi.Path),
		Language:   classify.GuessLanguage(text),
	}
	if n, err := p.ext.PageCount(ctx, fi.Path); err == nil {
		w.doc.PageCount = n
	}

	if c.DocType.Confidence < p.cfg.Classifier.ConfidenceThreshold {
		logger.Debug("%s: doc_type confidence %.2f below %.2f",
			fi.RelPath, c.DocType.Confidence, p.cfg.Classifier.ConfidenceThreshold)
		w.status = StatusLowConfidence
		return w
	}
	w.status = StatusIngested
	return w
}

// extractHead pulls the first head pages of text with a per-file timeout.
// Extraction failure degrades to empty text; classification proceeds on
// the filename.
func (p *Pipeline) extractHead(ctx context.Context, path string) string {
	if !p.ext.Available() {
		return ""
	}
	ctx, cancel := context.WithTimeout(ctx, time.Duration(p.cfg.Ingest.ExtractTimeoutSecs)*time.Second)
	defer cancel()
	text, err := p.ext.ExtractText(ctx, path, p.cfg.Classifier.HeadPages)
	if err != nil {
		logger.Warn("text extraction failed for %s: %v", path, err)
		return ""
	}
	return text
}

// commit is the single-writer half: it owns every file move and store
// write.
func (p *Pipeline) commit(w work, batchID string) Result {
	res := Result{Source: w.info.Path, Status: w.status, Doc: w.doc, Err: w.err}
	if w.status == StatusSkipped || w.status == StatusFailed {
		return res
	}
	if p.DryRun {
		res.Dest = p.destPath(w)
		return res
	}

	switch w.status {
	case StatusQuarantined, StatusLowConfidence:
		dest, err := moveFile(w.info.Path, p.destPath(w))
		if err != nil {
			res.Status = StatusFailed
			res.Err = err
			return res
		}
		res.Dest = dest
		return res
	}

	// Authoritative duplicate check under the single writer. Catches two
	// copies of the same content arriving in one batch.
	exists, err := p.st.HasDocument(w.doc.DocID)
	if err != nil {
		res.Status = StatusFailed
		res.Err = fmt.Errorf("duplicate check %s: %w", w.info.RelPath, err)
		return res
	}
	if exists || w.status == StatusDuplicate {
		logger.Info("removing duplicate %s (doc %s)", w.info.RelPath, short(w.doc.DocID))
		if err := os.Remove(w.info.Path); err != nil {
			res.Status = StatusFailed
			res.Err = fmt.Errorf("remove duplicate %s: %w", w.info.RelPath, err)
			return res
		}
		res.Status = StatusDuplicate
		return res
	}

	dest, err := moveFile(w.info.Path, p.destPath(w))
	if err != nil {
		res.Status = StatusFailed
		res.Err = err
		return res
	}
	res.Dest = dest
	res.Doc.Path = dest

	if err := p.st.InsertDocument(res.Doc); err != nil {
		res.Status = StatusFailed
		res.Err = err
		return res
	}
	if err := appendMetadata(p.cfg.Paths.Classified, batchID, res.Doc); err != nil {
		// The document is already placed and recorded; the export is
		// advisory.
		logger.Warn("metadata export failed for %s: %v", res.Doc.DocID, err)
	}
	logger.Debug("ingested %s -> %s", w.info.RelPath, res.Dest)
	return res
}

// destPath decides where a file lands in the classified tree.
func (p *Pipeline) destPath(w work) string {
	name := filepath.Base(w.info.Path)
	root := p.cfg.Paths.Classified
	switch w.status {
	case StatusQuarantined:
		return filepath.Join(root, "Trash", "InvalidPDF", name)
	case StatusLowConfidence:
		return filepath.Join(root, "Unknown", "LowConfidence", name)
	default:
		return filepath.Join(root, w.doc.Vendor, w.doc.DocType, w.doc.Topic, w.doc.Topology, name)
	}
}

func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// moveFile renames src to dest, creating parent directories. When a
// different file already occupies dest the name gets a numeric suffix, so
// the returned path is the one the file actually landed on and callers
// must record that, not the requested dest. Rename failure (cross-device
// moves) falls back to copy and remove.
func moveFile(src, dest string) (string, error) {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return "", fmt.Errorf("create dir for %s: %w", dest, err)
	}
	dest = uniquePath(dest)
	if err := os.Rename(src, dest); err == nil {
		return dest, nil
	}
	if err := copyFile(src, dest); err != nil {
		return "", fmt.Errorf("move %s to %s: %w", src, dest, err)
	}
	if err := os.Remove(src); err != nil {
		return "", fmt.Errorf("remove %s after copy: %w", src, err)
	}
	return dest, nil
}

func uniquePath(dest string) string {
	if _, err := os.Stat(dest); os.IsNotExist(err) {
		return dest
	}
	ext := filepath.Ext(dest)
	stem := dest[:len(dest)-len(ext)]
	for i := 1; ; i++ {
		alt := fmt.Sprintf("%s_%d%s", stem, i, ext)
		if _, err := os.Stat(alt); os.IsNotExist(err) {
			return alt
		}
	}
}

func copyFile(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

func short(docID string) string {
	if len(docID) > 12 {
		return docID[:12]
	}
	return docID
}
