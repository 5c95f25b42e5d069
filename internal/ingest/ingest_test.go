package ingest

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"alaidocs/internal/classify"
	"alaidocs/internal/config"
	"alaidocs/internal/pdfio"
	"alaidocs/internal/rules"
	"alaidocs/internal/store"
)

// fakeRunner stands in for the poppler tools: pdftotext returns canned
// text, pdfinfo reports three pages.
type fakeRunner struct {
	text string
	err  error
}

func (f *fakeRunner) Run(_ context.Context, name string, _ ...string) ([]byte, error) {
	if f.err != nil {
		return nil, f.err
	}
	if name == "pdfinfo" {
		return []byte("Pages: 3\n"), nil
	}
	return []byte(f.text), nil
}

const datasheetText = `LM5176 Synchronous Buck-Boost Controller
Texas Instruments datasheet
Absolute Maximum Ratings and Electrical Characteristics follow.
This section lists the pin configuration and typical application circuits
for the synchronous buck-boost converter with wide input voltage range.`

func newTestPipeline(t *testing.T, text string) (*Pipeline, *config.Config, *store.SQLiteStore) {
	t.Helper()
	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.Source = filepath.Join(base, "inbox")
	cfg.Paths.Classified = filepath.Join(base, "classified")
	cfg.Ingest.Workers = 2
	cfg.Ingest.StableChecks = 1
	cfg.Ingest.StableWindowMS = 1
	require.NoError(t, os.MkdirAll(cfg.Paths.Source, 0o755))

	st, err := store.Open(filepath.Join(base, "kb.db"), 4)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	cls := classify.New(rules.Defaults())
	ext := pdfio.NewExtractorWithRunner(&fakeRunner{text: text})
	return New(cfg, cls, ext, st), cfg, st
}

func writePDF(t *testing.T, dir, name string, content []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, content, 0o644))
	return path
}

func TestRunIngestsAndRoutes(t *testing.T) {
	p, cfg, st := newTestPipeline(t, datasheetText)
	writePDF(t, cfg.Paths.Source, "lm5176.pdf", []byte("%PDF-1.7 datasheet bytes"))

	stats, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Total)
	assert.Equal(t, 1, stats.Ingested)

	dest := filepath.Join(cfg.Paths.Classified, "TI", "datasheet", "power_ic", "buck_boost", "lm5176.pdf")
	assert.FileExists(t, dest)
	assert.NoFileExists(t, filepath.Join(cfg.Paths.Source, "lm5176.pdf"))

	docs, err := st.ListDocuments(0)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, dest, docs[0].Path)
	assert.Equal(t, "TI", docs[0].Vendor)
	assert.Equal(t, 3, docs[0].PageCount)
	assert.Equal(t, "en", docs[0].Language)

	meta, err := os.ReadFile(filepath.Join(cfg.Paths.Classified, "metadata.jsonl"))
	require.NoError(t, err)
	assert.Contains(t, string(meta), docs[0].DocID)
	assert.Contains(t, string(meta), `"vendor":"TI"`)
}

func TestRunRemovesDuplicates(t *testing.T) {
	p, cfg, st := newTestPipeline(t, datasheetText)
	content := []byte("%PDF-1.7 identical bytes")
	writePDF(t, cfg.Paths.Source, "a.pdf", content)
	writePDF(t, cfg.Paths.Source, "a_copy.pdf", content)

	stats, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Total)
	assert.Equal(t, 1, stats.Ingested)
	assert.Equal(t, 1, stats.Duplicates)

	// The duplicate is deleted, not relocated.
	entries, err := os.ReadDir(cfg.Paths.Source)
	require.NoError(t, err)
	assert.Empty(t, entries)

	docs, err := st.ListDocuments(0)
	require.NoError(t, err)
	assert.Len(t, docs, 1)
}

func TestRunSameNameDistinctContentKeepsBoth(t *testing.T) {
	p, cfg, st := newTestPipeline(t, datasheetText)
	writePDF(t, cfg.Paths.Source, "lm5176.pdf", []byte("%PDF-1.7 revision a"))
	rev := filepath.Join(cfg.Paths.Source, "rev-b")
	require.NoError(t, os.MkdirAll(rev, 0o755))
	writePDF(t, rev, "lm5176.pdf", []byte("%PDF-1.7 revision b"))

	stats, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Ingested)
	assert.Zero(t, stats.Failed)

	// Both land in the same category; the second gets a numeric suffix and
	// every recorded path points at the file that actually holds it.
	docs, err := st.ListDocuments(0)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	names := map[string]bool{}
	for _, d := range docs {
		assert.FileExists(t, d.Path)
		names[filepath.Base(d.Path)] = true
	}
	assert.True(t, names["lm5176.pdf"])
	assert.True(t, names["lm5176_1.pdf"])
}

func TestRunQuarantinesInvalidPDF(t *testing.T) {
	p, cfg, st := newTestPipeline(t, datasheetText)
	writePDF(t, cfg.Paths.Source, "fake.pdf", []byte("<html>not a pdf at all</html>"))

	stats, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Quarantined)

	assert.FileExists(t, filepath.Join(cfg.Paths.Classified, "Trash", "InvalidPDF", "fake.pdf"))

	docs, err := st.ListDocuments(0)
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestRunRoutesLowConfidence(t *testing.T) {
	// One weak hit for three doc_type labels each keeps every share under
	// the 0.6 threshold.
	ambiguous := "application note datasheet test report"
	p, cfg, st := newTestPipeline(t, ambiguous)
	writePDF(t, cfg.Paths.Source, "doc1.pdf", []byte("%PDF-1.7 ambiguous"))

	stats, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.LowConfidence)

	assert.FileExists(t, filepath.Join(cfg.Paths.Classified, "Unknown", "LowConfidence", "doc1.pdf"))

	docs, err := st.ListDocuments(0)
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestRunSecondPassIsIdempotent(t *testing.T) {
	p, cfg, _ := newTestPipeline(t, datasheetText)
	writePDF(t, cfg.Paths.Source, "lm5176.pdf", []byte("%PDF-1.7 bytes"))

	_, err := p.Run(context.Background())
	require.NoError(t, err)

	stats, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Total)
}

func TestRunReIngestSameContentIsDuplicate(t *testing.T) {
	p, cfg, _ := newTestPipeline(t, datasheetText)
	content := []byte("%PDF-1.7 same bytes")
	writePDF(t, cfg.Paths.Source, "first.pdf", content)
	_, err := p.Run(context.Background())
	require.NoError(t, err)

	// Same content arrives again under a new name.
	writePDF(t, cfg.Paths.Source, "second.pdf", content)
	stats, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Duplicates)
	assert.NoFileExists(t, filepath.Join(cfg.Paths.Source, "second.pdf"))
}

func TestRunDryRunMovesNothing(t *testing.T) {
	p, cfg, st := newTestPipeline(t, datasheetText)
	p.DryRun = true
	var results []Result
	p.OnResult = func(r Result) { results = append(results, r) }
	writePDF(t, cfg.Paths.Source, "lm5176.pdf", []byte("%PDF-1.7 bytes"))

	stats, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Ingested)

	assert.FileExists(t, filepath.Join(cfg.Paths.Source, "lm5176.pdf"))
	docs, err := st.ListDocuments(0)
	require.NoError(t, err)
	assert.Empty(t, docs)

	require.Len(t, results, 1)
	assert.Contains(t, results[0].Dest, filepath.Join("TI", "datasheet"))
}

func TestRunExtractionFailureFallsBackToFilename(t *testing.T) {
	p, cfg, st := newTestPipeline(t, "")
	p.ext = pdfio.NewExtractorWithRunner(&fakeRunner{err: os.ErrDeadlineExceeded})
	writePDF(t, cfg.Paths.Source, "ti_lm5176_datasheet_buck.pdf", []byte("%PDF-1.7 scanned"))

	stats, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Ingested)

	docs, err := st.ListDocuments(0)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "TI", docs[0].Vendor)
	assert.Equal(t, "datasheet", docs[0].DocType)
	assert.Zero(t, docs[0].PageCount)
}
