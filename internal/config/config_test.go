package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadPartialFileFillsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "alaidocs.yaml")
	yaml := `paths:
  source: /mnt/inbox
embedder:
  model: mxbai-embed-large
  dimension: 1024
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/mnt/inbox", cfg.Paths.Source)
	assert.Equal(t, "mxbai-embed-large", cfg.Embedder.Model)
	assert.Equal(t, 1024, cfg.Embedder.Dimension)

	// Everything the file omits comes from the defaults.
	def := Default()
	assert.Equal(t, def.Paths.Classified, cfg.Paths.Classified)
	assert.Equal(t, def.Classifier.ConfidenceThreshold, cfg.Classifier.ConfidenceThreshold)
	assert.Equal(t, def.Ingest.Workers, cfg.Ingest.Workers)
	assert.Equal(t, def.Chunker.ChunkSize, cfg.Chunker.ChunkSize)
	assert.Equal(t, def.Search.TopK, cfg.Search.TopK)
}

func TestLoadClampsOverlap(t *testing.T) {
	path := filepath.Join(t.TempDir(), "alaidocs.yaml")
	yaml := `chunker:
  chunk_size: 200
  overlap: 500
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 200, cfg.Chunker.ChunkSize)
	assert.Equal(t, 20, cfg.Chunker.Overlap)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "alaidocs.yaml")

	cfg := Default()
	cfg.Paths.KB = "/var/lib/alaidocs"
	cfg.Search.TranslateModel = "qwen2.5:7b"
	require.NoError(t, Save(path, cfg))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestLoadMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "alaidocs.yaml")
	require.NoError(t, os.WriteFile(path, []byte("paths: [oops"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}
